// Package config defines engine configuration and its loading hooks.
//
// Conventions:
//   - New returns a Config filled with defaults.
//   - Load layers an optional YAML file and SKILLSWAP_ env vars on top.
//   - Validation failures wrap ErrInvalidConfig; load failures wrap ErrLoadConfig.
package config

// Profile store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Booking policies.
const (
	PolicyCombined = "combined"
	PolicySplit    = "split"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// AdminAddr is the listen address of the /healthz and /metrics surface.
	AdminAddr string `koanf:"admin_addr"`

	// PassThreshold is the quiz score (0-100) a side needs to pass.
	PassThreshold int `koanf:"pass_threshold"`

	// MaxQuizAttempts is the number of failed attempts per side before the
	// request expires.
	MaxQuizAttempts int `koanf:"max_quiz_attempts"`

	// MaxQuizQuestions caps generated quiz length.
	MaxQuizQuestions int `koanf:"max_quiz_questions"`

	// BookingPolicy is combined (one session) or split (one per direction).
	BookingPolicy string `koanf:"booking_policy"`

	// NotifyQueueSize bounds the notification outbox.
	NotifyQueueSize int `koanf:"notify_queue_size"`

	// NotifyWorkers sets the number of delivery workers.
	NotifyWorkers int `koanf:"notify_workers"`

	// DedupeSize bounds the delivery dedupe window; <= 0 is unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	// CompletionSweepMS is how often serve mode completes elapsed sessions.
	CompletionSweepMS int `koanf:"completion_sweep_ms"`

	// SeedFile overrides the embedded seed document.
	SeedFile string `koanf:"seed_file"`

	// ProfileStore selects the directory backend.
	ProfileStore string `koanf:"profile_store"`

	// PostgresDSN is required when ProfileStore is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		AdminAddr:         ":9090",
		PassThreshold:     70,
		MaxQuizAttempts:   3,
		MaxQuizQuestions:  5,
		BookingPolicy:     PolicyCombined,
		NotifyQueueSize:   10_000,
		NotifyWorkers:     4,
		DedupeSize:        100_000,
		CompletionSweepMS: 60_000,
		ProfileStore:      StoreMemory,
	}
}
