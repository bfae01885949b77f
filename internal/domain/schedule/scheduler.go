// Package schedule books session slots for swap requests. A slot is held by
// at most one live booking per participant; commit is an atomic
// test-and-set over both participants.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

// Conflict reasons reported in SlotUnavailableError.
const (
	ReasonBlockedDate = "blocked date"
	ReasonBlockedSlot = "blocked slot"
	ReasonBooked      = "already booked"
)

// Availability is what a participant cannot attend.
type Availability struct {
	BlockedDates []string     `json:"blocked_dates" yaml:"blocked_dates"`
	BlockedSlots []model.Slot `json:"blocked_slots" yaml:"blocked_slots"`
}

// Proposal asks for one booking among ordered candidate slots.
type Proposal struct {
	RequestID    string
	Participants [2]string
	Candidates   []model.Slot
	SessionType  model.SessionType
	FocusSkill   string
}

type calendar struct {
	mu           sync.Mutex
	blockedDates map[string]struct{}
	blockedSlots map[model.Slot]struct{}
	holds        map[model.Slot]string
}

func newCalendar() *calendar {
	return &calendar{
		blockedDates: make(map[string]struct{}),
		blockedSlots: make(map[model.Slot]struct{}),
		holds:        make(map[model.Slot]string),
	}
}

// conflict returns why slot is unusable, or "" if it is free.
func (c *calendar) conflict(slot model.Slot) string {
	if _, ok := c.blockedDates[slot.Date]; ok {
		return ReasonBlockedDate
	}
	if _, ok := c.blockedSlots[slot]; ok {
		return ReasonBlockedSlot
	}
	if _, ok := c.holds[slot]; ok {
		return ReasonBooked
	}
	return ""
}

// Scheduler tracks availability, holds and bookings.
type Scheduler struct {
	mu        sync.RWMutex
	calendars map[string]*calendar
	bookings  map[string]*model.SessionBooking
	byRequest map[string][]string

	now    func() time.Time
	loc    *time.Location
	logger logger.Logger
}

// New creates an empty scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		calendars: make(map[string]*calendar),
		bookings:  make(map[string]*model.SessionBooking),
		byRequest: make(map[string][]string),
		now:       time.Now,
		loc:       time.UTC,
		logger:    logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) calendar(userID string) *calendar {
	s.mu.RLock()
	c, ok := s.calendars[userID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.calendars[userID]; !ok {
		c = newCalendar()
		s.calendars[userID] = c
	}
	return c
}

// lockPair locks both calendars in user id order and returns the unlock func.
func (s *Scheduler) lockPair(a, b string) (*calendar, *calendar, func()) {
	ca, cb := s.calendar(a), s.calendar(b)
	first, second := ca, cb
	if b < a {
		first, second = cb, ca
	}
	first.mu.Lock()
	second.mu.Lock()
	return ca, cb, func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// SetAvailability replaces userID's blocked dates and slots. Existing holds
// are kept.
func (s *Scheduler) SetAvailability(ctx context.Context, userID string, a Availability) error {
	const op = "schedule.set_availability"
	if userID == "" {
		return model.Invalidf(op, "user id is required")
	}
	for _, d := range a.BlockedDates {
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return model.Invalidf(op, "blocked date %q: want YYYY-MM-DD", d)
		}
	}
	for _, slot := range a.BlockedSlots {
		if err := slot.Validate(); err != nil {
			return model.WrapKind(op, model.ErrInvalidInput, err)
		}
	}

	c := s.calendar(userID)
	c.mu.Lock()
	c.blockedDates = lo.SliceToMap(a.BlockedDates, func(d string) (string, struct{}) { return d, struct{}{} })
	c.blockedSlots = lo.SliceToMap(a.BlockedSlots, func(sl model.Slot) (model.Slot, struct{}) { return sl, struct{}{} })
	c.mu.Unlock()

	s.logger.Debug(ctx, "availability updated",
		logger.String("user_id", userID),
		logger.Int("blocked_dates", len(a.BlockedDates)),
		logger.Int("blocked_slots", len(a.BlockedSlots)),
	)
	return nil
}

// Availability returns userID's blocked dates and slots, sorted.
func (s *Scheduler) Availability(userID string) Availability {
	c := s.calendar(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	dates := lo.Keys(c.blockedDates)
	sort.Strings(dates)
	slots := lo.Keys(c.blockedSlots)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Less(slots[j]) })
	return Availability{BlockedDates: dates, BlockedSlots: slots}
}

// Commit books the earliest candidate free for both participants.
func (s *Scheduler) Commit(ctx context.Context, p Proposal) (model.SessionBooking, error) {
	const op = "schedule.commit"
	defer metrics.ObserveOperation(op, time.Now())

	if err := ctx.Err(); err != nil {
		return model.SessionBooking{}, fmt.Errorf("context cancelled: %w", err)
	}
	candidates, err := validateProposal(op, p)
	if err != nil {
		return model.SessionBooking{}, err
	}

	a, b := p.Participants[0], p.Participants[1]
	ca, cb, unlock := s.lockPair(a, b)
	defer unlock()

	var firstConflict *model.SlotUnavailableError
	for _, slot := range candidates {
		reason := ca.conflict(slot)
		if reason == "" {
			reason = cb.conflict(slot)
		}
		if reason != "" {
			if firstConflict == nil {
				firstConflict = &model.SlotUnavailableError{Slot: slot, Reason: reason}
			}
			continue
		}

		booking := &model.SessionBooking{
			ID:           uuid.NewString(),
			RequestID:    p.RequestID,
			Participants: p.Participants,
			Slot:         slot,
			SessionType:  p.SessionType,
			FocusSkill:   p.FocusSkill,
			Status:       model.BookingScheduled,
			CreatedAt:    s.now(),
		}
		ca.holds[slot] = booking.ID
		cb.holds[slot] = booking.ID

		s.mu.Lock()
		s.bookings[booking.ID] = booking
		s.byRequest[p.RequestID] = append(s.byRequest[p.RequestID], booking.ID)
		s.mu.Unlock()

		metrics.RecordBookingCommitted(string(p.SessionType))
		s.logger.Info(ctx, "session booked",
			logger.String("booking_id", booking.ID),
			logger.String("request_id", p.RequestID),
			logger.String("slot", slot.String()),
			logger.String("session_type", string(p.SessionType)),
		)
		return booking.Clone(), nil
	}

	metrics.RecordSlotConflict()
	s.logger.Debug(ctx, "no free slot",
		logger.String("request_id", p.RequestID),
		logger.String("first_conflict", firstConflict.Slot.String()),
		logger.String("reason", firstConflict.Reason),
	)
	return model.SessionBooking{}, firstConflict
}

func validateProposal(op string, p Proposal) ([]model.Slot, error) {
	a, b := p.Participants[0], p.Participants[1]
	if a == "" || b == "" || a == b {
		return nil, model.Invalidf(op, "two distinct participants are required")
	}
	if !p.SessionType.Valid() {
		return nil, model.Invalidf(op, "unknown session type %q", p.SessionType)
	}
	if len(p.Candidates) == 0 {
		return nil, model.Invalidf(op, "at least one candidate slot is required")
	}
	for _, slot := range p.Candidates {
		if err := slot.Validate(); err != nil {
			return nil, model.WrapKind(op, model.ErrInvalidInput, err)
		}
	}
	candidates := lo.Uniq(p.Candidates)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Less(candidates[j]) })
	return candidates, nil
}

// Release cancels a scheduled booking and frees its holds. Releasing an
// already cancelled booking is a no-op.
func (s *Scheduler) Release(ctx context.Context, bookingID string) (model.SessionBooking, error) {
	return s.finish(ctx, "schedule.release", bookingID, model.BookingCancelled, time.Time{})
}

// Complete marks a scheduled booking completed at the given time.
func (s *Scheduler) Complete(ctx context.Context, bookingID string, at time.Time) (model.SessionBooking, error) {
	return s.finish(ctx, "schedule.complete", bookingID, model.BookingCompleted, at)
}

func (s *Scheduler) finish(ctx context.Context, op, bookingID string, status model.BookingStatus, at time.Time) (model.SessionBooking, error) {
	s.mu.RLock()
	b, ok := s.bookings[bookingID]
	s.mu.RUnlock()
	if !ok {
		return model.SessionBooking{}, model.WrapKind(op, model.ErrNotFound, fmt.Errorf("booking %q", bookingID))
	}

	ca, cb, unlock := s.lockPair(b.Participants[0], b.Participants[1])
	defer unlock()

	// Status is only mutated under both participant locks.
	switch {
	case b.Status == status && status == model.BookingCancelled:
		return b.Clone(), nil
	case b.Status != model.BookingScheduled:
		return model.SessionBooking{}, model.WrapKind(op, model.ErrIllegalTransition,
			fmt.Errorf("booking %q is %s", bookingID, b.Status))
	}

	for _, c := range []*calendar{ca, cb} {
		if c.holds[b.Slot] == b.ID {
			delete(c.holds, b.Slot)
		}
	}
	b.Status = status
	if status == model.BookingCompleted {
		t := at
		b.CompletedAt = &t
		metrics.RecordBookingCompleted()
	} else {
		metrics.RecordBookingReleased()
	}

	s.logger.Info(ctx, "booking "+string(status),
		logger.String("booking_id", b.ID),
		logger.String("request_id", b.RequestID),
	)
	return b.Clone(), nil
}

// Get returns a booking by id.
func (s *Scheduler) Get(_ context.Context, bookingID string) (model.SessionBooking, error) {
	s.mu.RLock()
	b, ok := s.bookings[bookingID]
	s.mu.RUnlock()
	if !ok {
		return model.SessionBooking{}, model.WrapKind("schedule.get", model.ErrNotFound, fmt.Errorf("booking %q", bookingID))
	}
	return s.snapshot(b), nil
}

// ForRequest returns the bookings of a request in commit order.
func (s *Scheduler) ForRequest(_ context.Context, requestID string) []model.SessionBooking {
	s.mu.RLock()
	ids := append([]string(nil), s.byRequest[requestID]...)
	list := make([]*model.SessionBooking, 0, len(ids))
	for _, id := range ids {
		list = append(list, s.bookings[id])
	}
	s.mu.RUnlock()

	return lo.Map(list, func(b *model.SessionBooking, _ int) model.SessionBooking { return s.snapshot(b) })
}

// ForUser returns every booking userID takes part in, ordered by slot.
func (s *Scheduler) ForUser(_ context.Context, userID string) []model.SessionBooking {
	out := lo.Filter(s.all(), func(b model.SessionBooking, _ int) bool { return b.Involves(userID) })
	sortBySlot(out)
	return out
}

// Elapsed returns scheduled bookings whose session has ended by now.
func (s *Scheduler) Elapsed(now time.Time) []model.SessionBooking {
	out := lo.Filter(s.all(), func(b model.SessionBooking, _ int) bool {
		if b.Status != model.BookingScheduled {
			return false
		}
		start, err := b.Slot.Start(s.loc)
		return err == nil && !start.Add(b.SessionType.Duration()).After(now)
	})
	sortBySlot(out)
	return out
}

func (s *Scheduler) all() []model.SessionBooking {
	s.mu.RLock()
	list := lo.Values(s.bookings)
	s.mu.RUnlock()
	return lo.Map(list, func(b *model.SessionBooking, _ int) model.SessionBooking { return s.snapshot(b) })
}

// snapshot copies b under its participants' locks so status reads are
// consistent with commit and finish.
func (s *Scheduler) snapshot(b *model.SessionBooking) model.SessionBooking {
	_, _, unlock := s.lockPair(b.Participants[0], b.Participants[1])
	defer unlock()
	return b.Clone()
}

func sortBySlot(list []model.SessionBooking) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Slot != list[j].Slot {
			return list[i].Slot.Less(list[j].Slot)
		}
		return list[i].ID < list[j].ID
	})
}
