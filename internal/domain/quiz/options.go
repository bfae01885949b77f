package quiz

import (
	"time"

	"github.com/okian/skillswap/pkg/logger"
)

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithPassThreshold sets the minimum score_percent that passes.
func WithPassThreshold(threshold int) Option {
	return func(g *Gate) {
		if threshold >= 0 && threshold <= 100 {
			g.threshold = threshold
		}
	}
}

// WithMaxQuestions caps the number of questions generated per quiz.
func WithMaxQuestions(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.maxQuestions = n
		}
	}
}

// WithCatalog replaces the question banks. Banks are copied so later changes
// by the caller do not leak in.
func WithCatalog(c Catalog) Option {
	return func(g *Gate) {
		g.banks = make(map[string][]BankQuestion, len(c))
		for skill, bank := range c {
			g.banks[catalogKey(skill)] = append([]BankQuestion(nil), bank...)
		}
	}
}

// WithClock sets the time source used for SubmittedAt.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}
