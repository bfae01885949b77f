package service

import (
	"time"

	"github.com/okian/skillswap/internal/adapters/mq/worker"
	"github.com/okian/skillswap/internal/domain/quiz"
	"github.com/okian/skillswap/pkg/logger"
)

// BookingPolicy decides how many sessions a swap produces.
type BookingPolicy string

// Booking policies.
const (
	// PolicyCombined books one session covering both skills.
	PolicyCombined BookingPolicy = "combined"
	// PolicySplit books one session per skill direction.
	PolicySplit BookingPolicy = "split"
)

// Valid reports whether p is a known policy.
func (p BookingPolicy) Valid() bool { return p == PolicyCombined || p == PolicySplit }

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPassThreshold sets the quiz pass mark.
func WithPassThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold >= 0 && threshold <= 100 {
			s.passThreshold = threshold
		}
	}
}

// WithMaxQuizAttempts sets how many failing attempts a side gets before the
// request expires.
func WithMaxQuizAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithMaxQuizQuestions caps generated quiz length.
func WithMaxQuizQuestions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxQuestions = n
		}
	}
}

// WithCatalog replaces the default question banks.
func WithCatalog(c quiz.Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithBookingPolicy selects combined or split sessions.
func WithBookingPolicy(p BookingPolicy) Option {
	return func(s *Service) {
		if p.Valid() {
			s.policy = p
		}
	}
}

// WithQueueSize sets the notification queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDedupeSize sets the delivery dedupe window; <= 0 is unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithNotifier sets the notification delivery collaborator.
func WithNotifier(n worker.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock sets the time source shared by every component.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the zone slot labels are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
