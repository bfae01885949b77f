package service

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/okian/skillswap/internal/domain/model"
)

// SearchPartners returns profiles whose name, offered skills or wanted
// skills contain query, case-insensitively. An empty query matches everyone.
// Results are ordered by rating, then name, then user id.
func (s *Service) SearchPartners(ctx context.Context, query string) ([]model.SkillProfile, error) {
	all, err := s.directory.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := lo.Filter(all, func(p model.SkillProfile, _ int) bool {
		return q == "" || matchesProfile(p, q)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func matchesProfile(p model.SkillProfile, q string) bool {
	if strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	if lo.SomeBy(p.Offered, func(sk model.Skill) bool { return strings.Contains(strings.ToLower(sk.Name), q) }) {
		return true
	}
	return lo.SomeBy(p.Wanted, func(w string) bool { return strings.Contains(strings.ToLower(w), q) })
}

// SuggestSkills returns up to limit known skill names closest to term,
// tolerating typos and partial input. Names come from the directory and the
// question catalog.
func (s *Service) SuggestSkills(ctx context.Context, term string, limit int) ([]string, error) {
	all, err := s.directory.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.TrimSpace(term)
	if term == "" || limit <= 0 {
		return []string{}, nil
	}

	names := make([]string, 0, len(all)*4)
	for _, p := range all {
		names = append(names, lo.Map(p.Offered, func(sk model.Skill, _ int) string { return sk.Name })...)
		names = append(names, p.Wanted...)
	}
	names = append(names, s.gate.Skills()...)
	names = lo.UniqBy(names, strings.ToLower)

	ranks := fuzzy.RankFindNormalizedFold(term, names)
	sort.Sort(ranks)
	out := lo.Map(ranks, func(r fuzzy.Rank, _ int) string { return r.Target })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
