package commands

import (
	"context"
	"fmt"

	"github.com/okian/skillswap/internal/adapters/repository"
	service "github.com/okian/skillswap/internal/app"
	"github.com/okian/skillswap/internal/config"
	"github.com/okian/skillswap/internal/seed"
	"github.com/okian/skillswap/pkg/logger"
)

// engine is a configured, seeded orchestrator plus its backing resources.
type engine struct {
	svc   *service.Service
	seed  *seed.Document
	close func()
}

// directory is what the engine reads and the seed writes.
type directory interface {
	repository.Directory
	seed.ProfileWriter
}

func openEngine(ctx context.Context, cfg *config.Config, extra ...service.Option) (*engine, error) {
	doc, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	var (
		dir      directory
		closeDir = func() {}
	)
	switch cfg.ProfileStore {
	case config.StorePostgres:
		pg, closeFn, err := repository.OpenPostgresDirectory(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open profile store: %w", err)
		}
		dir, closeDir = pg, closeFn
	default:
		dir = repository.NewMemoryDirectory()
	}

	opts := append([]service.Option{
		service.WithPassThreshold(cfg.PassThreshold),
		service.WithMaxQuizAttempts(cfg.MaxQuizAttempts),
		service.WithMaxQuizQuestions(cfg.MaxQuizQuestions),
		service.WithBookingPolicy(service.BookingPolicy(cfg.BookingPolicy)),
		service.WithQueueSize(cfg.NotifyQueueSize),
		service.WithWorkerCount(cfg.NotifyWorkers),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithLogger(logger.Named("orchestrator")),
	}, extra...)
	svc := service.New(dir, opts...)

	if err := doc.Apply(ctx, dir, svc.Scheduler(), svc.Gate()); err != nil {
		closeDir()
		return nil, err
	}
	return &engine{svc: svc, seed: doc, close: closeDir}, nil
}
