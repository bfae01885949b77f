package repository

import (
	"context"
	"time"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
)

// TransitionHook observes every appended audit record, creation included.
// It runs while the request is locked, so per-request order is preserved;
// it must not block.
type TransitionHook func(ctx context.Context, req model.SwapRequest, rec model.AuditRecord)

// Option applies a configuration option to the MemoryRequestStore.
type Option func(*MemoryRequestStore)

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryRequestStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *MemoryRequestStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTransitionHook registers the audit observer.
func WithTransitionHook(h TransitionHook) Option {
	return func(s *MemoryRequestStore) {
		s.hook = h
	}
}

type transitionConfig struct {
	mutation        Mutation
	expectedVersion int
	checkVersion    bool
}

// TransitionOption tunes a single Transition call.
type TransitionOption func(*transitionConfig)

// WithMutation runs fn on the working copy before the state changes.
func WithMutation(fn Mutation) TransitionOption {
	return func(c *transitionConfig) {
		c.mutation = fn
	}
}

// WithExpectedVersion fails with ErrConcurrentModification if the request
// moved since version v was read.
func WithExpectedVersion(v int) TransitionOption {
	return func(c *transitionConfig) {
		c.expectedVersion = v
		c.checkVersion = true
	}
}
