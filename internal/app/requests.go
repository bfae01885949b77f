package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/model"
)

// SendRequest creates a pending swap request from requester to responder.
func (s *Service) SendRequest(ctx context.Context, requesterID, responderID, offeredSkill, requestedSkill string) (req model.SwapRequest, err error) {
	const op = "send_request"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	requester, err := s.profile(ctx, op, requesterID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	responder, err := s.profile(ctx, op, responderID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	return s.requests.Create(ctx, repository.CreateInput{
		Requester:      requester,
		Responder:      responder,
		OfferedSkill:   offeredSkill,
		RequestedSkill: requestedSkill,
		Actor:          requesterID,
	})
}

// RespondToRequest records the responder's decision. A request can be
// decided once; a second response fails with ErrIllegalTransition.
func (s *Service) RespondToRequest(ctx context.Context, requestID, responderID string, decision model.Decision) (req model.SwapRequest, err error) {
	const op = "respond_to_request"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	var ev model.Event
	switch decision {
	case model.DecisionAccept:
		ev = model.EventAccept
	case model.DecisionDecline:
		ev = model.EventDecline
	default:
		return model.SwapRequest{}, model.Invalidf(op, "unknown decision %q", decision)
	}

	cur, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	if cur.ResponderID != responderID {
		return model.SwapRequest{}, model.Invalidf(op, "only %q may respond to request %q", cur.ResponderID, requestID)
	}
	return s.requests.Transition(ctx, requestID, ev, responderID)
}

// CancelRequest moves a non-terminal request to cancelled. Live bookings are
// released inside the same transition.
func (s *Service) CancelRequest(ctx context.Context, requestID, actor string) (req model.SwapRequest, err error) {
	const op = "cancel_request"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	cur, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	if actor != SystemActor {
		if _, err := participant(op, cur, actor); err != nil {
			return model.SwapRequest{}, err
		}
	}
	return s.requests.Transition(ctx, requestID, model.EventCancel, actor,
		repository.WithMutation(func(r *model.SwapRequest) error {
			return s.releaseAll(ctx, r.BookingIDs)
		}))
}

func (s *Service) releaseAll(ctx context.Context, bookingIDs []string) error {
	for _, id := range bookingIDs {
		if _, err := s.scheduler.Release(ctx, id); err != nil && !errors.Is(err, model.ErrIllegalTransition) {
			return err
		}
	}
	return nil
}

// GetRequest returns a request snapshot.
func (s *Service) GetRequest(ctx context.Context, requestID string) (model.SwapRequest, error) {
	return s.requests.Get(ctx, requestID)
}

// ListRequests returns the requests userID takes part in, optionally
// narrowed to states. An empty userID lists every request.
func (s *Service) ListRequests(ctx context.Context, userID string, states ...model.State) ([]model.SwapRequest, error) {
	return s.requests.List(ctx, repository.Filter{UserID: userID, States: states})
}

// Audit returns the transition log of a request.
func (s *Service) Audit(ctx context.Context, requestID string) ([]model.AuditRecord, error) {
	return s.requests.Audit(ctx, requestID)
}

func (s *Service) profile(ctx context.Context, op, userID string) (model.SkillProfile, error) {
	p, err := s.directory.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.SkillProfile{}, model.WrapKind(op, model.ErrUnknownProfile, err)
		}
		return model.SkillProfile{}, err
	}
	return p, nil
}
