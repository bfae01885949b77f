package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/skillswap/internal/domain/dedupe"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

const (
	defaultWorkers      = 4
	poolShutdownTimeout = 30 * time.Second
	notifyTimeout       = 5 * time.Second
	outcomeDelivered    = "delivered"
	outcomeDuplicate    = "duplicate"
	outcomeFailed       = "failed"
)

// Notifier delivers one notification to its recipients.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n model.Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n model.Notification) error { return f(ctx, n) }

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Logger logger.Logger
}

// Notify logs n.
func (l LogNotifier) Notify(ctx context.Context, n model.Notification) error {
	l.Logger.Info(ctx, "notification",
		logger.String("notification_id", n.ID),
		logger.String("request_id", n.RequestID),
		logger.String("event", string(n.Event)),
		logger.String("to", string(n.To)),
		logger.Any("recipients", n.Recipients),
	)
	return nil
}

// Source is the receive side of a notification queue.
type Source interface {
	Dequeue() <-chan model.Notification
	Close() error
}

// Pool runs a fixed number of delivery workers over one source.
type Pool struct {
	source   Source
	notifier Notifier
	deduper  dedupe.Deduper
	size     int
	logger   logger.Logger

	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewPool creates a pool; call Start to launch the workers.
func NewPool(source Source, notifier Notifier, opts ...Option) *Pool {
	p := &Pool{
		source:   source,
		notifier: notifier,
		size:     defaultWorkers,
		logger:   logger.Get().Named("notifier"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.deduper == nil {
		p.deduper = dedupe.New()
	}
	return p
}

// Start launches the workers. They stop when ctx is done or the source is
// closed and drained.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(ctx, p.logger.Named("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(p.size)
	p.logger.Info(ctx, "notification workers started", logger.Int("workers", p.size))
}

func (p *Pool) run(ctx context.Context, log logger.Logger) {
	defer p.wg.Done()
	items := p.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-items:
			if !ok {
				return
			}
			p.deliver(ctx, log, n)
		}
	}
}

func (p *Pool) deliver(ctx context.Context, log logger.Logger, n model.Notification) {
	if p.deduper.SeenAndRecord(ctx, n.ID) {
		metrics.RecordNotification(outcomeDuplicate)
		log.Debug(ctx, "duplicate notification skipped", logger.String("notification_id", n.ID))
		return
	}

	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := p.notifier.Notify(nctx, n); err != nil {
		p.deduper.Unrecord(ctx, n.ID)
		metrics.RecordNotification(outcomeFailed)
		metrics.RecordError("notifier", "delivery")
		log.Error(ctx, "notification delivery failed",
			logger.String("notification_id", n.ID),
			logger.String("request_id", n.RequestID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordNotification(outcomeDelivered)
}

// Shutdown closes the source and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.source.Close(); err != nil {
		p.logger.Error(ctx, "error closing notification queue", logger.Error(err))
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	select {
	case <-done:
		metrics.UpdateWorkerCount(0)
		return nil
	case <-shutdownCtx.Done():
		p.logger.Warn(ctx, "notification workers did not drain in time")
		return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
	}
}
