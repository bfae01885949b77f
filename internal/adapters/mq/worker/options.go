// Package worker delivers queued lifecycle notifications.
package worker

import (
	"github.com/okian/skillswap/internal/domain/dedupe"
	"github.com/okian/skillswap/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithDeduper sets the at-most-once tracker.
func WithDeduper(d dedupe.Deduper) Option {
	return func(p *Pool) {
		if d != nil {
			p.deduper = d
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
