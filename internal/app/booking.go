package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/schedule"
	"github.com/okian/skillswap/pkg/logger"
)

// SessionProposal is a caller's candidate list for one session.
type SessionProposal struct {
	Candidates  []model.Slot
	SessionType model.SessionType
	// FocusSkill selects the direction under the split policy; it must be
	// empty under the combined policy.
	FocusSkill string
	ProposedBy string
}

// ProposeSession books the earliest candidate free for both participants
// and advances the request. Under the combined policy one booking schedules
// the request; under the split policy the request is scheduled once both
// skill directions hold a booking. Candidates are tried in date and time
// order, so a proposal succeeds past conflicting candidates and fails with
// SlotUnavailable only when none is free. The slot is committed before the
// request is locked and released again if the transition loses.
func (s *Service) ProposeSession(ctx context.Context, requestID string, p SessionProposal) (b model.SessionBooking, err error) {
	const op = "propose_session"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return model.SessionBooking{}, err
	}
	if req.State != model.StateQuizPassed {
		return model.SessionBooking{}, fmt.Errorf("%s: %w", op, &model.TransitionError{From: req.State, Event: model.EventSchedule})
	}
	actor := p.ProposedBy
	if actor == "" {
		actor = req.RequesterID
	} else if _, err := participant(op, req, actor); err != nil {
		return model.SessionBooking{}, err
	}

	focus, err := s.focusSkill(ctx, op, req, p.FocusSkill)
	if err != nil {
		return model.SessionBooking{}, err
	}
	ev := model.EventSchedule
	if s.policy == PolicySplit && len(s.liveBookings(ctx, req)) == 0 {
		ev = model.EventBookingCommitted
	}

	booking, err := s.scheduler.Commit(ctx, schedule.Proposal{
		RequestID:    requestID,
		Participants: [2]string{req.RequesterID, req.ResponderID},
		Candidates:   p.Candidates,
		SessionType:  p.SessionType,
		FocusSkill:   focus,
	})
	if err != nil {
		return model.SessionBooking{}, err
	}

	_, err = s.requests.Transition(ctx, requestID, ev, actor,
		repository.WithExpectedVersion(req.Version),
		repository.WithMutation(func(r *model.SwapRequest) error {
			r.BookingIDs = append(r.BookingIDs, booking.ID)
			return nil
		}))
	if err != nil {
		if _, relErr := s.scheduler.Release(ctx, booking.ID); relErr != nil {
			s.logger.Error(ctx, "failed to release orphaned booking",
				logger.String("booking_id", booking.ID),
				logger.Error(relErr),
			)
		}
		return model.SessionBooking{}, err
	}
	return booking, nil
}

// focusSkill validates the proposal's focus against the policy and returns
// its canonical spelling.
func (s *Service) focusSkill(ctx context.Context, op string, req model.SwapRequest, focus string) (string, error) {
	focus = strings.TrimSpace(focus)
	if s.policy == PolicyCombined {
		if focus != "" {
			return "", model.Invalidf(op, "combined sessions cover both skills; focus skill must be empty")
		}
		return "", nil
	}

	var canonical string
	switch {
	case strings.EqualFold(focus, req.OfferedSkill):
		canonical = req.OfferedSkill
	case strings.EqualFold(focus, req.RequestedSkill):
		canonical = req.RequestedSkill
	default:
		return "", model.Invalidf(op, "focus skill must be %q or %q", req.OfferedSkill, req.RequestedSkill)
	}
	for _, b := range s.liveBookings(ctx, req) {
		if b.FocusSkill == canonical {
			return "", model.Invalidf(op, "%q already has a session booked", canonical)
		}
	}
	return canonical, nil
}

// liveBookings returns the non-cancelled bookings attached to req. Only
// attached bookings count, so the answer is tied to req.Version.
func (s *Service) liveBookings(ctx context.Context, req model.SwapRequest) []model.SessionBooking {
	out := make([]model.SessionBooking, 0, len(req.BookingIDs))
	for _, id := range req.BookingIDs {
		b, err := s.scheduler.Get(ctx, id)
		if err != nil || b.Status == model.BookingCancelled {
			continue
		}
		out = append(out, b)
	}
	return out
}

// CancelBooking cancels a scheduled booking. While the request is scheduled
// or in progress the whole request is cancelled with it; while it is still
// collecting split bookings only this booking is released.
func (s *Service) CancelBooking(ctx context.Context, bookingID, actor string) (req model.SwapRequest, err error) {
	const op = "cancel_booking"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	b, err := s.scheduler.Get(ctx, bookingID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	if b.Status != model.BookingScheduled {
		return model.SwapRequest{}, model.WrapKind(op, model.ErrIllegalTransition,
			fmt.Errorf("booking %q is %s", bookingID, b.Status))
	}
	if actor != SystemActor && !b.Involves(actor) {
		return model.SwapRequest{}, model.Invalidf(op, "%q is not a participant of booking %q", actor, bookingID)
	}

	cur, err := s.requests.Get(ctx, b.RequestID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	if cur.State == model.StateQuizPassed {
		return s.releasePartial(ctx, cur, bookingID, actor)
	}
	return s.CancelRequest(ctx, cur.ID, actor)
}

// releasePartial drops one split booking while the request still waits for
// its other direction. It fails if req moved on since it was read.
func (s *Service) releasePartial(ctx context.Context, req model.SwapRequest, bookingID, actor string) (model.SwapRequest, error) {
	return s.requests.Transition(ctx, req.ID, model.EventBookingReleased, actor,
		repository.WithExpectedVersion(req.Version),
		repository.WithMutation(func(*model.SwapRequest) error {
			_, err := s.scheduler.Release(ctx, bookingID)
			return err
		}))
}

// MarkAttended records that a booked session took place. The first
// attended session starts the request; once every live booking is completed
// the request completes.
func (s *Service) MarkAttended(ctx context.Context, bookingID, actor string) (req model.SwapRequest, err error) {
	const op = "mark_attended"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	b, err := s.scheduler.Get(ctx, bookingID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	if actor != SystemActor && !b.Involves(actor) {
		return model.SwapRequest{}, model.Invalidf(op, "%q is not a participant of booking %q", actor, bookingID)
	}
	if b.Status != model.BookingScheduled {
		return model.SwapRequest{}, model.WrapKind(op, model.ErrIllegalTransition,
			fmt.Errorf("booking %q is %s", bookingID, b.Status))
	}

	return retryOnConflict(func() (model.SwapRequest, error) {
		return s.markAttended(ctx, b, actor)
	})
}

func (s *Service) markAttended(ctx context.Context, b model.SessionBooking, actor string) (model.SwapRequest, error) {
	const op = "mark_attended"
	cur, err := s.requests.Get(ctx, b.RequestID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	fresh, err := s.scheduler.Get(ctx, b.ID)
	if err != nil {
		return model.SwapRequest{}, err
	}

	remaining := lo.CountBy(s.liveBookings(ctx, cur), func(o model.SessionBooking) bool {
		return o.ID != b.ID && o.Status == model.BookingScheduled
	})
	opts := []repository.TransitionOption{repository.WithExpectedVersion(cur.Version)}
	switch fresh.Status {
	case model.BookingScheduled:
		opts = append(opts, repository.WithMutation(func(*model.SwapRequest) error {
			_, err := s.scheduler.Complete(ctx, b.ID, s.now())
			return err
		}))
	case model.BookingCompleted:
		// A previous attempt completed the booking but lost the final
		// transition; only the request state is left to move.
		if cur.State != model.StateInProgress || remaining > 0 {
			return cur, nil
		}
	default:
		return model.SwapRequest{}, model.WrapKind(op, model.ErrIllegalTransition,
			fmt.Errorf("booking %q is %s", b.ID, fresh.Status))
	}

	var ev model.Event
	switch {
	case cur.State == model.StateScheduled:
		ev = model.EventStart
	case cur.State == model.StateInProgress && remaining == 0:
		ev = model.EventComplete
	case cur.State == model.StateInProgress:
		ev = model.EventSessionAttended
	default:
		return model.SwapRequest{}, fmt.Errorf("%s: %w", op, &model.TransitionError{From: cur.State, Event: model.EventStart})
	}

	next, err := s.requests.Transition(ctx, cur.ID, ev, actor, opts...)
	if err != nil {
		return model.SwapRequest{}, err
	}
	if ev == model.EventStart && remaining == 0 {
		return s.requests.Transition(ctx, cur.ID, model.EventComplete, actor,
			repository.WithExpectedVersion(next.Version))
	}
	return next, nil
}

// CompleteElapsed marks every scheduled session whose end has passed as
// attended. A split booking whose request never got its second direction
// booked is released instead, since its session can no longer start. It
// returns the bookings it completed; failures are joined.
func (s *Service) CompleteElapsed(ctx context.Context, now time.Time) ([]model.SessionBooking, error) {
	var (
		done     []model.SessionBooking
		released int
		errs     []error
	)
	for _, b := range s.scheduler.Elapsed(now) {
		req, err := s.requests.Get(ctx, b.RequestID)
		if err != nil {
			errs = append(errs, fmt.Errorf("booking %s: %w", b.ID, err))
			continue
		}
		if req.State == model.StateQuizPassed {
			if _, err := s.releasePartial(ctx, req, b.ID, SystemActor); err != nil {
				errs = append(errs, fmt.Errorf("booking %s: %w", b.ID, err))
				continue
			}
			released++
			continue
		}
		if _, err := s.MarkAttended(ctx, b.ID, SystemActor); err != nil {
			errs = append(errs, fmt.Errorf("booking %s: %w", b.ID, err))
			continue
		}
		if got, err := s.scheduler.Get(ctx, b.ID); err == nil {
			done = append(done, got)
		}
	}
	if len(done) > 0 {
		s.logger.Info(ctx, "elapsed sessions completed", logger.Int("count", len(done)))
	}
	if released > 0 {
		s.logger.Warn(ctx, "elapsed partial bookings released", logger.Int("count", released))
	}
	return done, errors.Join(errs...)
}

// Bookings returns every booking of a request in commit order.
func (s *Service) Bookings(ctx context.Context, requestID string) ([]model.SessionBooking, error) {
	if _, err := s.requests.Get(ctx, requestID); err != nil {
		return nil, err
	}
	return s.scheduler.ForRequest(ctx, requestID), nil
}

// SetAvailability replaces a user's blocked dates and slots.
func (s *Service) SetAvailability(ctx context.Context, userID string, a schedule.Availability) error {
	if _, err := s.profile(ctx, "set_availability", userID); err != nil {
		return err
	}
	return s.scheduler.SetAvailability(ctx, userID, a)
}
