// Package quiz generates skill assessments and grades submissions against
// a per-skill question bank.
package quiz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

// Default gate configuration constants.
const (
	defaultPassThreshold = 70
	defaultMaxQuestions  = 5
	unverifiedScore      = 100
)

// Submission is one side's graded attempt input.
type Submission struct {
	RequestID string
	Side      model.Side
	Skill     string
	Answers   []model.Answer
	Attempt   int
}

// Gate holds the question banks and the pass threshold.
type Gate struct {
	mu           sync.RWMutex
	banks        map[string][]BankQuestion
	threshold    int
	maxQuestions int
	now          func() time.Time
	logger       logger.Logger
}

// NewGate creates a gate seeded with DefaultCatalog unless WithCatalog is given.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		threshold:    defaultPassThreshold,
		maxQuestions: defaultMaxQuestions,
		now:          time.Now,
		logger:       logger.Get().Named("quiz"),
	}
	WithCatalog(DefaultCatalog())(g)

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PassThreshold returns the configured pass mark.
func (g *Gate) PassThreshold() int { return g.threshold }

// AddBank registers or replaces the bank for skill.
func (g *Gate) AddBank(skill string, bank []BankQuestion) error {
	const op = "quiz.add_bank"
	if catalogKey(skill) == "" {
		return model.Invalidf(op, "skill is required")
	}
	seen := make(map[string]struct{}, len(bank))
	for _, q := range bank {
		if q.ID == "" {
			return model.Invalidf(op, "question id is required")
		}
		if _, dup := seen[q.ID]; dup {
			return model.Invalidf(op, "duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}
		if len(q.Options) < 2 || q.Correct < 0 || q.Correct >= len(q.Options) {
			return model.Invalidf(op, "question %q has an invalid option set", q.ID)
		}
	}

	g.mu.Lock()
	g.banks[catalogKey(skill)] = append([]BankQuestion(nil), bank...)
	g.mu.Unlock()
	return nil
}

// HasBank reports whether skill has at least one question.
func (g *Gate) HasBank(skill string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.banks[catalogKey(skill)]) > 0
}

// Skills lists the skills with a bank.
func (g *Gate) Skills() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.banks))
	for skill, bank := range g.banks {
		if len(bank) > 0 {
			out = append(out, skill)
		}
	}
	return out
}

// Generate returns the questions for skill in bank order, without answers.
// A skill without a bank yields ErrUnknownSkill.
func (g *Gate) Generate(ctx context.Context, skill string) ([]model.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	bank := g.bank(skill)
	if len(bank) == 0 {
		return nil, model.WrapKind("quiz.generate", model.ErrUnknownSkill, fmt.Errorf("no questions for %q", skill))
	}
	if len(bank) > g.maxQuestions {
		bank = bank[:g.maxQuestions]
	}
	out := make([]model.Question, len(bank))
	for i, q := range bank {
		out[i] = model.Question{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
		}
	}
	return out, nil
}

// Score grades a submission. Unanswered questions count as incorrect; an
// answer for a question that was not asked, or a repeated answer, is rejected.
// The percentage is rounded half up.
func (g *Gate) Score(ctx context.Context, s Submission) (model.QuizResult, error) {
	const op = "quiz.score"
	if err := ctx.Err(); err != nil {
		return model.QuizResult{}, fmt.Errorf("context cancelled: %w", err)
	}
	if !s.Side.Valid() {
		return model.QuizResult{}, model.Invalidf(op, "unknown side %q", s.Side)
	}

	bank := g.bank(s.Skill)
	if len(bank) == 0 {
		return g.Unverified(s), nil
	}
	if len(bank) > g.maxQuestions {
		bank = bank[:g.maxQuestions]
	}

	index := make(map[string]int, len(bank))
	for i, q := range bank {
		index[q.ID] = i
	}
	selected := make(map[string]int, len(s.Answers))
	for _, a := range s.Answers {
		i, ok := index[a.QuestionID]
		if !ok {
			return model.QuizResult{}, model.Invalidf(op, "unknown question %q", a.QuestionID)
		}
		if _, dup := selected[a.QuestionID]; dup {
			return model.QuizResult{}, model.Invalidf(op, "question %q answered twice", a.QuestionID)
		}
		if a.Selected < 0 || a.Selected >= len(bank[i].Options) {
			return model.QuizResult{}, model.Invalidf(op, "option %d out of range for %q", a.Selected, a.QuestionID)
		}
		selected[a.QuestionID] = a.Selected
	}

	graded := make([]model.GradedAnswer, len(bank))
	correct := 0
	for i, q := range bank {
		choice, answered := selected[q.ID]
		if !answered {
			choice = -1
		}
		if choice == q.Correct {
			correct++
		}
		graded[i] = model.GradedAnswer{QuestionID: q.ID, Selected: choice, Correct: q.Correct}
	}

	score := percent(correct, len(bank))
	result := model.QuizResult{
		ID:           uuid.NewString(),
		RequestID:    s.RequestID,
		Side:         s.Side,
		Skill:        s.Skill,
		Answers:      graded,
		ScorePercent: score,
		Passed:       score >= g.threshold,
		Attempt:      s.Attempt,
		SubmittedAt:  g.now(),
	}

	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	metrics.RecordQuizAttempt(outcome)
	g.logger.Debug(ctx, "quiz graded",
		logger.String("request_id", s.RequestID),
		logger.String("side", string(s.Side)),
		logger.String("skill", s.Skill),
		logger.Int("score", score),
		logger.Bool("passed", result.Passed),
	)
	return result, nil
}

// Unverified returns the automatic pass recorded when skill has no bank.
func (g *Gate) Unverified(s Submission) model.QuizResult {
	metrics.RecordQuizAttempt("unverified")
	return model.QuizResult{
		ID:           uuid.NewString(),
		RequestID:    s.RequestID,
		Side:         s.Side,
		Skill:        s.Skill,
		Answers:      []model.GradedAnswer{},
		ScorePercent: unverifiedScore,
		Passed:       true,
		Unverified:   true,
		Attempt:      s.Attempt,
		SubmittedAt:  g.now(),
	}
}

func (g *Gate) bank(skill string) []BankQuestion {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.banks[catalogKey(skill)]
}

// percent returns round-half-up(100*correct/total).
func percent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}
