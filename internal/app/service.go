// Package service is the lifecycle orchestrator: the only entry point the
// presentation layer uses. It composes the request store, quiz gate,
// scheduler and reputation aggregator and is the sole writer of request
// state.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/skillswap/internal/adapters/mq/queue"
	"github.com/okian/skillswap/internal/adapters/mq/worker"
	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/dedupe"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/quiz"
	"github.com/okian/skillswap/internal/domain/reputation"
	"github.com/okian/skillswap/internal/domain/schedule"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

// SystemActor is recorded for transitions the engine initiates itself.
const SystemActor = "system"

const (
	defaultPassThreshold = 70
	defaultMaxAttempts   = 3
	defaultMaxQuestions  = 5
	defaultQueueSize     = 10000
	defaultWorkerCount   = 4
	defaultDedupeSize    = 100000

	// Internal retries when a multi-step operation loses a version race.
	maxVersionRetries = 3
)

// Service orchestrates the swap request lifecycle.
type Service struct {
	mu sync.Mutex

	directory  repository.Directory
	requests   *repository.MemoryRequestStore
	gate       *quiz.Gate
	scheduler  *schedule.Scheduler
	reputation *reputation.Aggregator

	outbox   *queue.InMemoryQueue
	pool     *worker.Pool
	notifier worker.Notifier

	passThreshold int
	maxAttempts   int
	maxQuestions  int
	catalog       quiz.Catalog
	policy        BookingPolicy
	queueSize     int
	workerCount   int
	dedupeSize    int
	now           func() time.Time
	loc           *time.Location

	started bool
	stopped bool
	cancel  context.CancelFunc
	logger  logger.Logger
}

// New wires the engine around a profile directory.
func New(dir repository.Directory, opts ...Option) *Service {
	s := &Service{
		directory:     dir,
		passThreshold: defaultPassThreshold,
		maxAttempts:   defaultMaxAttempts,
		maxQuestions:  defaultMaxQuestions,
		policy:        PolicyCombined,
		queueSize:     defaultQueueSize,
		workerCount:   defaultWorkerCount,
		dedupeSize:    defaultDedupeSize,
		now:           time.Now,
		loc:           time.UTC,
		logger:        logger.Get().Named("orchestrator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = worker.LogNotifier{Logger: logger.Get().Named("notify")}
	}

	gateOpts := []quiz.Option{
		quiz.WithPassThreshold(s.passThreshold),
		quiz.WithMaxQuestions(s.maxQuestions),
		quiz.WithClock(s.now),
	}
	if s.catalog != nil {
		gateOpts = append(gateOpts, quiz.WithCatalog(s.catalog))
	}
	s.gate = quiz.NewGate(gateOpts...)
	s.scheduler = schedule.New(schedule.WithClock(s.now), schedule.WithLocation(s.loc))
	s.reputation = reputation.New(dir, reputation.WithClock(s.now))

	s.outbox = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.outbox, s.notifier,
		worker.WithWorkers(s.workerCount),
		worker.WithDeduper(dedupe.New(dedupe.WithMaxSize(s.dedupeSize))),
	)
	s.requests = repository.NewMemoryRequestStore(
		repository.WithClock(s.now),
		repository.WithTransitionHook(s.publish),
	)
	return s
}

// ErrStopped is returned by Start once the engine has been stopped.
var ErrStopped = errors.New("engine stopped")

// Start launches notification delivery. A stopped engine cannot be
// restarted.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)
	s.started = true

	s.logger.Info(ctx, "skillswap engine started",
		logger.String("booking_policy", string(s.policy)),
		logger.Int("pass_threshold", s.passThreshold),
		logger.Int("max_quiz_attempts", s.maxAttempts),
		logger.Int("notify_workers", s.workerCount),
	)
	return nil
}

// Stop drains pending notifications and stops the workers. Notifications
// published after Stop are dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	s.stopped = true

	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.logger.Info(ctx, "skillswap engine stopped")
	return err
}

// Ready reports whether notification delivery is running.
func (s *Service) Ready(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.New("engine not started")
	}
	return nil
}

// Scheduler exposes availability management to seeding and tooling.
func (s *Service) Scheduler() *schedule.Scheduler { return s.scheduler }

// Gate exposes the question catalog to seeding and tooling.
func (s *Service) Gate() *quiz.Gate { return s.gate }

// Policy returns the configured booking policy.
func (s *Service) Policy() BookingPolicy { return s.policy }

// publish turns an audit record into a notification for both participants.
// It never blocks and never fails the transition.
func (s *Service) publish(ctx context.Context, req model.SwapRequest, rec model.AuditRecord) {
	n := model.Notification{
		ID:         rec.ID,
		RequestID:  rec.RequestID,
		Event:      rec.Event,
		From:       rec.From,
		To:         rec.To,
		Actor:      rec.Actor,
		Recipients: []string{req.RequesterID, req.ResponderID},
		At:         rec.At,
	}
	if err := s.outbox.Enqueue(context.WithoutCancel(ctx), n); err != nil {
		metrics.RecordNotification("dropped")
		s.logger.Warn(ctx, "notification dropped",
			logger.String("request_id", rec.RequestID),
			logger.String("event", string(rec.Event)),
			logger.Error(err),
		)
		return
	}
	metrics.RecordNotification("enqueued")
}

// participant resolves actor's side or fails with ErrInvalidInput.
func participant(op string, req model.SwapRequest, actor string) (model.Side, error) {
	side, ok := req.SideOf(actor)
	if !ok {
		return "", model.Invalidf(op, "%q is not a participant of request %q", actor, req.ID)
	}
	return side, nil
}

// observe records latency and classifies failures by kind.
func observe(op string, started time.Time, err error) {
	metrics.ObserveOperation(op, started)
	if err != nil {
		metrics.RecordError(op, errorKind(err))
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrIllegalTransition):
		return "illegal_transition"
	case errors.Is(err, model.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, model.ErrDuplicateFeedback):
		return "duplicate_feedback"
	case errors.Is(err, model.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// retryOnConflict reruns fn while it loses version races.
func retryOnConflict[T any](fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for i := 0; i < maxVersionRetries; i++ {
		out, err = fn()
		if !errors.Is(err, model.ErrConcurrentModification) {
			return out, err
		}
	}
	return out, fmt.Errorf("gave up after %d attempts: %w", maxVersionRetries, err)
}
