package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/okian/skillswap/internal/domain/model"
)

// SubmitFeedback records rater's stars for a completed booking. The rated
// user is the other participant.
func (s *Service) SubmitFeedback(ctx context.Context, bookingID, raterID string, stars int, comment string) (entry model.FeedbackEntry, err error) {
	const op = "submit_feedback"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	if stars < model.MinStars || stars > model.MaxStars {
		return model.FeedbackEntry{}, model.Invalidf(op, "stars must be %d..%d", model.MinStars, model.MaxStars)
	}
	b, err := s.scheduler.Get(ctx, bookingID)
	if err != nil {
		return model.FeedbackEntry{}, err
	}
	if !b.Involves(raterID) {
		return model.FeedbackEntry{}, model.Invalidf(op, "%q is not a participant of booking %q", raterID, bookingID)
	}
	if b.Status != model.BookingCompleted {
		return model.FeedbackEntry{}, model.WrapKind(op, model.ErrIllegalTransition,
			fmt.Errorf("booking %q is %s, feedback needs a completed session", bookingID, b.Status))
	}

	entry, _, err = s.reputation.Record(ctx, model.FeedbackEntry{
		BookingID: bookingID,
		RaterID:   raterID,
		RatedID:   b.Partner(raterID),
		Stars:     stars,
		Comment:   comment,
	})
	return entry, err
}

// Feedback returns the entries left for a booking.
func (s *Service) Feedback(_ context.Context, bookingID string) []model.FeedbackEntry {
	return s.reputation.ForBooking(bookingID)
}

// GetStats derives a user's aggregates from stored entities.
func (s *Service) GetStats(ctx context.Context, userID string) (model.Stats, error) {
	const op = "get_stats"
	p, err := s.profile(ctx, op, userID)
	if err != nil {
		return model.Stats{}, err
	}

	completed := lo.Filter(s.scheduler.ForUser(ctx, userID), func(b model.SessionBooking, _ int) bool {
		return b.Status == model.BookingCompleted
	})

	var taught []string
	for _, b := range completed {
		req, err := s.requests.Get(ctx, b.RequestID)
		if err != nil {
			return model.Stats{}, err
		}
		side, ok := req.SideOf(userID)
		if !ok {
			continue
		}
		skill := req.SkillFor(side)
		if !b.Combined() && !strings.EqualFold(b.FocusSkill, skill) {
			continue
		}
		taught = append(taught, strings.ToLower(skill))
	}

	return model.Stats{
		UserID:            userID,
		AverageRating:     p.Rating,
		SessionsCompleted: len(completed),
		SkillsTaughtCount: len(lo.Uniq(taught)),
		ReviewsGivenCount: len(s.reputation.ByRater(userID)),
	}, nil
}
