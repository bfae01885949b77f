package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names.
const (
	EnvPrefix     = "SKILLSWAP_"
	EnvConfigFile = "SKILLSWAP_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SKILLSWAP_CONFIG is set
//  3. env (prefix SKILLSWAP_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SKILLSWAP_NOTIFY_WORKERS -> notify_workers; keys stay flat so the
	// underscores match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	cfg.BookingPolicy = strings.ToLower(strings.TrimSpace(cfg.BookingPolicy))
	cfg.ProfileStore = strings.ToLower(strings.TrimSpace(cfg.ProfileStore))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.AdminAddr == "" {
		errs = append(errs, errors.New("admin_addr must not be empty"))
	}
	if c.PassThreshold < 0 || c.PassThreshold > 100 {
		errs = append(errs, fmt.Errorf("pass_threshold must be 0..100, got %d", c.PassThreshold))
	}
	if c.MaxQuizAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_quiz_attempts must be >= 1, got %d", c.MaxQuizAttempts))
	}
	if c.MaxQuizQuestions < 1 {
		errs = append(errs, fmt.Errorf("max_quiz_questions must be >= 1, got %d", c.MaxQuizQuestions))
	}
	switch c.BookingPolicy {
	case PolicyCombined, PolicySplit:
	default:
		errs = append(errs, fmt.Errorf("booking_policy must be %s or %s, got %q", PolicyCombined, PolicySplit, c.BookingPolicy))
	}
	switch c.ProfileStore {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres_dsn is required when profile_store is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("profile_store must be %s or %s, got %q", StoreMemory, StorePostgres, c.ProfileStore))
	}
	if c.NotifyQueueSize < 1 {
		errs = append(errs, fmt.Errorf("notify_queue_size must be >= 1, got %d", c.NotifyQueueSize))
	}
	if c.NotifyWorkers < 1 {
		errs = append(errs, fmt.Errorf("notify_workers must be >= 1, got %d", c.NotifyWorkers))
	}
	if c.CompletionSweepMS < 1 {
		errs = append(errs, fmt.Errorf("completion_sweep_ms must be >= 1, got %d", c.CompletionSweepMS))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
