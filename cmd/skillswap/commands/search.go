package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/okian/skillswap/internal/domain/model"
)

func searchCmd(opts *rootOptions) *cobra.Command {
	var suggest int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "List partners whose name or skills match the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, err := openEngine(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer eng.close()

			found, err := eng.svc.SearchPartners(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tRATING\tOFFERS\tWANTS")
			for _, p := range found {
				offers := lo.Map(p.Offered, func(s model.Skill, _ int) string { return s.Name })
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\t%s\n",
					p.UserID, p.Name, p.Rating, strings.Join(offers, ", "), strings.Join(p.Wanted, ", "))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if len(found) == 0 && suggest > 0 {
				names, err := eng.svc.SuggestSkills(ctx, args[0], suggest)
				if err != nil {
					return err
				}
				if len(names) > 0 {
					fmt.Fprintf(out, "did you mean: %s\n", strings.Join(names, ", "))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&suggest, "suggest", 3, "skill suggestions to print when nothing matches (0 disables)")
	return cmd
}
