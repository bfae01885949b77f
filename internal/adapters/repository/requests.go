package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/skillswap/internal/domain/lifecycle"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

// requestEntry serialises writers of one request.
type requestEntry struct {
	mu    sync.Mutex
	req   model.SwapRequest
	audit []model.AuditRecord
}

// MemoryRequestStore is the in-memory RequestStore.
type MemoryRequestStore struct {
	mu      sync.RWMutex
	entries map[string]*requestEntry

	now    func() time.Time
	hook   TransitionHook
	logger logger.Logger
}

// NewMemoryRequestStore creates an empty store.
func NewMemoryRequestStore(opts ...Option) *MemoryRequestStore {
	s := &MemoryRequestStore{
		entries: make(map[string]*requestEntry),
		now:     time.Now,
		logger:  logger.Get().Named("requests"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the skill pair and stores a pending request. Skill names
// are matched case-insensitively and stored in the owning profile's spelling.
func (s *MemoryRequestStore) Create(ctx context.Context, in CreateInput) (model.SwapRequest, error) {
	const op = "requests.create"
	defer metrics.ObserveOperation(op, time.Now())

	if in.Requester.UserID == "" || in.Responder.UserID == "" {
		return model.SwapRequest{}, model.Invalidf(op, "both participants are required")
	}
	if in.Requester.UserID == in.Responder.UserID {
		return model.SwapRequest{}, model.Invalidf(op, "cannot request a swap with yourself")
	}
	if strings.TrimSpace(in.OfferedSkill) == "" || strings.TrimSpace(in.RequestedSkill) == "" {
		return model.SwapRequest{}, model.Invalidf(op, "offered and requested skills are required")
	}

	offered, ok := in.Requester.OfferedSkill(in.OfferedSkill)
	if !ok {
		return model.SwapRequest{}, model.WrapKind(op, model.ErrInvalidSkillPair,
			fmt.Errorf("%s does not offer %q", in.Requester.UserID, in.OfferedSkill))
	}
	requested, ok := in.Responder.OfferedSkill(in.RequestedSkill)
	if !ok {
		return model.SwapRequest{}, model.WrapKind(op, model.ErrInvalidSkillPair,
			fmt.Errorf("%s does not offer %q", in.Responder.UserID, in.RequestedSkill))
	}

	now := s.now()
	req := model.SwapRequest{
		ID:             uuid.NewString(),
		RequesterID:    in.Requester.UserID,
		ResponderID:    in.Responder.UserID,
		OfferedSkill:   offered,
		RequestedSkill: requested,
		State:          model.StatePending,
		CreatedAt:      now,
		FailedAttempts: map[model.Side]int{},
		Version:        1,
	}
	if !in.Requester.Wants(requested) {
		req.Warnings = append(req.Warnings,
			fmt.Sprintf("%s does not list %s among wanted skills", in.Requester.UserID, requested))
		s.logger.Warn(ctx, "requested skill not in requester's wanted list",
			logger.String("requester_id", req.RequesterID),
			logger.String("requested_skill", requested),
		)
	}

	actor := in.Actor
	if actor == "" {
		actor = req.RequesterID
	}
	rec := model.AuditRecord{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		Seq:       1,
		Event:     model.EventCreated,
		To:        model.StatePending,
		Actor:     actor,
		At:        now,
	}
	e := &requestEntry{req: req, audit: []model.AuditRecord{rec}}

	e.mu.Lock()
	defer e.mu.Unlock()
	s.mu.Lock()
	s.entries[req.ID] = e
	s.mu.Unlock()

	metrics.RecordRequestCreated()
	s.logger.Info(ctx, "swap request created",
		logger.String("request_id", req.ID),
		logger.String("requester_id", req.RequesterID),
		logger.String("responder_id", req.ResponderID),
		logger.String("offered_skill", offered),
		logger.String("requested_skill", requested),
	)
	if s.hook != nil {
		s.hook(ctx, req.Clone(), rec)
	}
	return req.Clone(), nil
}

func (s *MemoryRequestStore) entry(op, id string) (*requestEntry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("request %q", id))
	}
	return e, nil
}

// Get returns a snapshot of the request.
func (s *MemoryRequestStore) Get(_ context.Context, id string) (model.SwapRequest, error) {
	e, err := s.entry("requests.get", id)
	if err != nil {
		return model.SwapRequest{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.req.Clone(), nil
}

// List returns matching requests, oldest first.
func (s *MemoryRequestStore) List(_ context.Context, f Filter) ([]model.SwapRequest, error) {
	s.mu.RLock()
	entries := make([]*requestEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]model.SwapRequest, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		r := e.req.Clone()
		e.mu.Unlock()

		if f.UserID != "" {
			if _, ok := r.SideOf(f.UserID); !ok {
				continue
			}
		}
		if len(f.States) > 0 && !slices.Contains(f.States, r.State) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Transition applies event under the request's lock. The mutation, the state
// change and the audit append happen together or not at all.
func (s *MemoryRequestStore) Transition(ctx context.Context, id string, event model.Event, actor string, opts ...TransitionOption) (model.SwapRequest, error) {
	const op = "requests.transition"
	defer metrics.ObserveOperation(op, time.Now())

	var cfg transitionConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	e, err := s.entry(op, id)
	if err != nil {
		return model.SwapRequest{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if cfg.checkVersion && e.req.Version != cfg.expectedVersion {
		return model.SwapRequest{}, model.WrapKind(op, model.ErrConcurrentModification,
			fmt.Errorf("request %q is at version %d, expected %d", id, e.req.Version, cfg.expectedVersion))
	}
	from := e.req.State
	to, err := lifecycle.Next(from, event)
	if err != nil {
		return model.SwapRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	work := e.req.Clone()
	if cfg.mutation != nil {
		if err := cfg.mutation(&work); err != nil {
			return model.SwapRequest{}, err
		}
	}

	now := s.now()
	work.State = to
	work.Version = e.req.Version + 1
	if event == model.EventAccept || event == model.EventDecline {
		work.DecidedAt = &now
	}
	rec := model.AuditRecord{
		ID:        uuid.NewString(),
		RequestID: id,
		Seq:       len(e.audit) + 1,
		Event:     event,
		From:      from,
		To:        to,
		Actor:     actor,
		At:        now,
	}
	e.req = work
	e.audit = append(e.audit, rec)

	metrics.RecordTransition(string(from), string(to), string(event))
	s.logger.Info(ctx, "swap request transitioned",
		logger.String("request_id", id),
		logger.String("event", string(event)),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
		logger.String("actor", actor),
	)
	if s.hook != nil {
		s.hook(ctx, work.Clone(), rec)
	}
	return work.Clone(), nil
}

// Audit returns the request's transition log in append order.
func (s *MemoryRequestStore) Audit(_ context.Context, id string) ([]model.AuditRecord, error) {
	e, err := s.entry("requests.audit", id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.AuditRecord(nil), e.audit...), nil
}
