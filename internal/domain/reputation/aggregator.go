// Package reputation keeps the feedback log and folds each entry into the
// rated user's running mean.
package reputation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

// RatingStore applies rating updates atomically per profile.
type RatingStore interface {
	UpdateRating(ctx context.Context, userID string, fn func(rating float64, count int) (float64, int)) (model.SkillProfile, error)
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithClock sets the time source used for SubmittedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

type entryKey struct {
	bookingID string
	raterID   string
}

// Aggregator records feedback at most once per (booking, rater).
type Aggregator struct {
	store RatingStore

	mu       sync.RWMutex
	entries  []model.FeedbackEntry
	reserved map[entryKey]struct{}

	now    func() time.Time
	logger logger.Logger
}

// New creates an aggregator writing ratings to store.
func New(store RatingStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:    store,
		reserved: make(map[entryKey]struct{}),
		now:      time.Now,
		logger:   logger.Get().Named("reputation"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply folds stars into a running mean.
func Apply(rating float64, count, stars int) (float64, int) {
	if count <= 0 {
		return float64(stars), 1
	}
	return (rating*float64(count) + float64(stars)) / float64(count+1), count + 1
}

// Record validates and stores e, then updates the rated profile. The
// returned entry has its id and timestamp filled in.
func (a *Aggregator) Record(ctx context.Context, e model.FeedbackEntry) (model.FeedbackEntry, model.SkillProfile, error) {
	const op = "reputation.record"
	defer metrics.ObserveOperation(op, time.Now())

	if e.Stars < model.MinStars || e.Stars > model.MaxStars {
		return model.FeedbackEntry{}, model.SkillProfile{}, model.Invalidf(op, "stars must be %d..%d", model.MinStars, model.MaxStars)
	}
	if e.BookingID == "" || e.RaterID == "" || e.RatedID == "" {
		return model.FeedbackEntry{}, model.SkillProfile{}, model.Invalidf(op, "booking, rater and rated ids are required")
	}
	if e.RaterID == e.RatedID {
		return model.FeedbackEntry{}, model.SkillProfile{}, model.Invalidf(op, "users cannot rate themselves")
	}
	e.Comment = strings.TrimSpace(e.Comment)

	key := entryKey{bookingID: e.BookingID, raterID: e.RaterID}
	a.mu.Lock()
	if _, dup := a.reserved[key]; dup {
		a.mu.Unlock()
		return model.FeedbackEntry{}, model.SkillProfile{}, model.WrapKind(op, model.ErrDuplicateFeedback,
			fmt.Errorf("booking %q rater %q", e.BookingID, e.RaterID))
	}
	a.reserved[key] = struct{}{}
	a.mu.Unlock()

	profile, err := a.store.UpdateRating(ctx, e.RatedID, func(rating float64, count int) (float64, int) {
		return Apply(rating, count, e.Stars)
	})
	if err != nil {
		a.mu.Lock()
		delete(a.reserved, key)
		a.mu.Unlock()
		return model.FeedbackEntry{}, model.SkillProfile{}, fmt.Errorf("%s: %w", op, err)
	}

	e.ID = uuid.NewString()
	e.SubmittedAt = a.now()
	a.mu.Lock()
	a.entries = append(a.entries, e)
	a.mu.Unlock()

	metrics.RecordFeedback(e.Stars)
	a.logger.Info(ctx, "feedback recorded",
		logger.String("booking_id", e.BookingID),
		logger.String("rated_id", e.RatedID),
		logger.Int("stars", e.Stars),
		logger.Float64("rating", profile.Rating),
		logger.Int("rating_count", profile.RatingCount),
	)
	return e, profile, nil
}

// ByRater returns entries authored by userID in submission order.
func (a *Aggregator) ByRater(userID string) []model.FeedbackEntry {
	return a.filter(func(e model.FeedbackEntry) bool { return e.RaterID == userID })
}

// ByRated returns entries about userID in submission order.
func (a *Aggregator) ByRated(userID string) []model.FeedbackEntry {
	return a.filter(func(e model.FeedbackEntry) bool { return e.RatedID == userID })
}

// ForBooking returns entries for a booking, ordered by rater.
func (a *Aggregator) ForBooking(bookingID string) []model.FeedbackEntry {
	out := a.filter(func(e model.FeedbackEntry) bool { return e.BookingID == bookingID })
	sort.Slice(out, func(i, j int) bool { return out[i].RaterID < out[j].RaterID })
	return out
}

func (a *Aggregator) filter(keep func(model.FeedbackEntry) bool) []model.FeedbackEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return lo.Filter(a.entries, func(e model.FeedbackEntry, _ int) bool { return keep(e) })
}
