package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/skillswap/internal/app"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/seed"
)

// The demo runs on the seed's calendar: requests are sent on Monday and the
// session takes place the following Saturday.
var (
	demoNow  = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	demoSlot = model.Slot{Date: "2024-01-20", Time: "09:00"}
)

func demoCmd(opts *rootOptions) *cobra.Command {
	var requester, responder string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk one swap from request to feedback against the seeded engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			eng, err := openEngine(ctx, opts.cfg, service.WithClock(func() time.Time { return demoNow }))
			if err != nil {
				return err
			}
			defer eng.close()

			if err := eng.svc.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = eng.svc.Stop(context.WithoutCancel(ctx)) }()

			return runDemo(ctx, cmd.OutOrStdout(), eng, requester, responder)
		},
	}
	cmd.Flags().StringVar(&requester, "requester", "alex", "profile id sending the request")
	cmd.Flags().StringVar(&responder, "responder", "sarah", "profile id receiving the request")
	return cmd
}

func runDemo(ctx context.Context, out io.Writer, eng *engine, requesterID, responderID string) error {
	svc := eng.svc
	step := 0
	say := func(format string, args ...any) {
		step++
		fmt.Fprintf(out, "%d. "+format+"\n", append([]any{step}, args...)...)
	}

	offered, requested, err := demoSkills(ctx, svc, requesterID, responderID)
	if err != nil {
		return err
	}

	req, err := svc.SendRequest(ctx, requesterID, responderID, offered, requested)
	if err != nil {
		return err
	}
	say("%s offers %s to %s for %s -> %s", requesterID, offered, responderID, requested, req.State)
	for _, w := range req.Warnings {
		fmt.Fprintf(out, "   warning: %s\n", w)
	}

	if req, err = svc.RespondToRequest(ctx, req.ID, responderID, model.DecisionAccept); err != nil {
		return err
	}
	say("%s accepts -> %s", responderID, req.State)

	for _, side := range []model.Side{model.SideRequester, model.SideResponder} {
		questions, err := svc.GetQuiz(ctx, req.ID, side)
		if err != nil && !isUnknownSkill(err) {
			return err
		}
		res, err := svc.SubmitQuiz(ctx, req.ID, side, answerKey(eng.seed, req.SkillFor(side), questions))
		if err != nil {
			return err
		}
		cur, _ := svc.GetRequest(ctx, req.ID)
		verdict := "passed"
		switch {
		case res.Unverified:
			verdict = "passed unverified"
		case !res.Passed:
			verdict = "failed"
		}
		say("%s quiz on %s: %d%% (pass %d%%) %s -> %s", req.Participant(side), req.SkillFor(side),
			res.ScorePercent, svc.Gate().PassThreshold(), verdict, cur.State)
	}

	booking, err := svc.ProposeSession(ctx, req.ID, service.SessionProposal{
		Candidates:  []model.Slot{demoSlot},
		SessionType: model.SessionVideoCall,
		ProposedBy:  requesterID,
	})
	if err != nil {
		return err
	}
	req, _ = svc.GetRequest(ctx, req.ID)
	say("session booked %s %s -> %s", booking.Slot, booking.SessionType, req.State)

	start, err := booking.Slot.Start(time.UTC)
	if err != nil {
		return err
	}
	if _, err := svc.CompleteElapsed(ctx, start.Add(booking.SessionType.Duration())); err != nil {
		return err
	}
	req, _ = svc.GetRequest(ctx, req.ID)
	say("session attended -> %s", req.State)

	for _, rater := range []string{requesterID, responderID} {
		if _, err := svc.SubmitFeedback(ctx, booking.ID, rater, model.MaxStars, "great session"); err != nil {
			return err
		}
	}
	say("%s and %s rate each other %d stars", requesterID, responderID, model.MaxStars)

	for _, id := range []string{requesterID, responderID} {
		st, err := svc.GetStats(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "stats %s: rating=%.2f sessions_completed=%d skills_taught=%d reviews_given=%d\n",
			id, st.AverageRating, st.SessionsCompleted, st.SkillsTaughtCount, st.ReviewsGivenCount)
	}

	log, err := svc.Audit(ctx, req.ID)
	if err != nil {
		return err
	}
	events := make([]string, len(log))
	for i, rec := range log {
		events[i] = string(rec.Event)
	}
	fmt.Fprintf(out, "audit: %s\n", strings.Join(events, " > "))
	return nil
}

// demoSkills picks the first skill each side offers that the other wants,
// falling back to the first offered skill.
func demoSkills(ctx context.Context, svc *service.Service, requesterID, responderID string) (string, string, error) {
	a, err := svc.SearchPartners(ctx, "")
	if err != nil {
		return "", "", err
	}
	byID := make(map[string]model.SkillProfile, len(a))
	for _, p := range a {
		byID[p.UserID] = p
	}
	requester, ok := byID[requesterID]
	if !ok || len(requester.Offered) == 0 {
		return "", "", fmt.Errorf("profile %q missing or offers nothing", requesterID)
	}
	responder, ok := byID[responderID]
	if !ok || len(responder.Offered) == 0 {
		return "", "", fmt.Errorf("profile %q missing or offers nothing", responderID)
	}
	return pickSkill(requester, responder), pickSkill(responder, requester), nil
}

func pickSkill(mentor, learner model.SkillProfile) string {
	for _, s := range mentor.Offered {
		if learner.Wants(s.Name) {
			return s.Name
		}
	}
	return mentor.Offered[0].Name
}

// answerKey answers every generated question correctly from the seed bank.
func answerKey(doc *seed.Document, skill string, questions []model.Question) []model.Answer {
	correct := map[string]int{}
	for name, bank := range doc.Quizzes {
		if !strings.EqualFold(name, skill) {
			continue
		}
		for _, q := range bank {
			correct[q.ID] = q.Correct
		}
	}
	answers := make([]model.Answer, 0, len(questions))
	for _, q := range questions {
		if idx, ok := correct[q.ID]; ok {
			answers = append(answers, model.Answer{QuestionID: q.ID, Selected: idx})
		}
	}
	return answers
}

func isUnknownSkill(err error) bool { return errors.Is(err, model.ErrUnknownSkill) }
