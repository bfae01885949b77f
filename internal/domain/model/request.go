package model

import "time"

// State is a swap request lifecycle state.
type State string

// Lifecycle states.
const (
	StatePending     State = "pending"
	StateAccepted    State = "accepted"
	StateQuizPending State = "quiz_pending"
	StateQuizFailed  State = "quiz_failed"
	StateQuizPassed  State = "quiz_passed"
	StateScheduled   State = "scheduled"
	StateInProgress  State = "in_progress"
	StateCompleted   State = "completed"
	StateDeclined    State = "declined"
	StateCancelled   State = "cancelled"
	StateExpired     State = "expired"
)

// Terminal reports whether no event can leave s.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateDeclined, StateCancelled, StateExpired:
		return true
	default:
		return false
	}
}

// Event drives a transition.
type Event string

// Lifecycle events.
const (
	EventCreated          Event = "created"
	EventAccept           Event = "accept"
	EventDecline          Event = "decline"
	EventBeginAssessment  Event = "begin_assessment"
	EventQuizRecorded     Event = "quiz_recorded"
	EventQuizPassed       Event = "quiz_passed"
	EventQuizFailed       Event = "quiz_failed"
	EventQuizRetry        Event = "quiz_retry"
	EventQuizExhausted    Event = "quiz_exhausted"
	EventBookingCommitted Event = "booking_committed"
	EventBookingReleased  Event = "booking_released"
	EventSchedule         Event = "schedule"
	EventStart            Event = "start"
	EventSessionAttended  Event = "session_attended"
	EventComplete         Event = "complete"
	EventCancel           Event = "cancel"
)

// Side identifies one participant of a swap request.
type Side string

// Participant sides.
const (
	SideRequester Side = "requester"
	SideResponder Side = "responder"
)

// Valid reports whether s names a side.
func (s Side) Valid() bool { return s == SideRequester || s == SideResponder }

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideRequester {
		return SideResponder
	}
	return SideRequester
}

// Decision is the responder's answer to a pending request.
type Decision string

// Responder decisions.
const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// SwapRequest is a proposed bidirectional skill exchange.
type SwapRequest struct {
	ID             string     `json:"id"`
	RequesterID    string     `json:"requester_id"`
	ResponderID    string     `json:"responder_id"`
	OfferedSkill   string     `json:"offered_skill"`
	RequestedSkill string     `json:"requested_skill"`
	State          State      `json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`

	RequesterQuiz *QuizResult `json:"requester_quiz,omitempty"`
	ResponderQuiz *QuizResult `json:"responder_quiz,omitempty"`
	// Failed attempts per side; a side that reaches the configured maximum
	// expires the request.
	FailedAttempts map[Side]int `json:"failed_attempts,omitempty"`

	// Live and historical bookings produced by this request.
	BookingIDs []string `json:"booking_ids,omitempty"`

	// Version increments on every successful transition.
	Version int `json:"version"`
}

// Participant returns the user id on side s.
func (r SwapRequest) Participant(s Side) string {
	if s == SideRequester {
		return r.RequesterID
	}
	return r.ResponderID
}

// SideOf returns the side userID plays in the request.
func (r SwapRequest) SideOf(userID string) (Side, bool) {
	switch userID {
	case r.RequesterID:
		return SideRequester, true
	case r.ResponderID:
		return SideResponder, true
	default:
		return "", false
	}
}

// SkillFor returns the skill side s must demonstrate: the requester teaches
// the offered skill, the responder teaches the requested one.
func (r SwapRequest) SkillFor(s Side) string {
	if s == SideRequester {
		return r.OfferedSkill
	}
	return r.RequestedSkill
}

// Quiz returns the latest quiz result for side s.
func (r SwapRequest) Quiz(s Side) *QuizResult {
	if s == SideRequester {
		return r.RequesterQuiz
	}
	return r.ResponderQuiz
}

// SetQuiz stores the latest quiz result for side s.
func (r *SwapRequest) SetQuiz(s Side, q QuizResult) {
	if s == SideRequester {
		r.RequesterQuiz = &q
		return
	}
	r.ResponderQuiz = &q
}

// Clone returns a deep copy.
func (r SwapRequest) Clone() SwapRequest {
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		r.DecidedAt = &t
	}
	r.Warnings = append([]string(nil), r.Warnings...)
	if r.RequesterQuiz != nil {
		q := r.RequesterQuiz.Clone()
		r.RequesterQuiz = &q
	}
	if r.ResponderQuiz != nil {
		q := r.ResponderQuiz.Clone()
		r.ResponderQuiz = &q
	}
	if r.FailedAttempts != nil {
		m := make(map[Side]int, len(r.FailedAttempts))
		for k, v := range r.FailedAttempts {
			m[k] = v
		}
		r.FailedAttempts = m
	}
	r.BookingIDs = append([]string(nil), r.BookingIDs...)
	return r
}

// AuditRecord is an immutable entry of a request's transition log.
type AuditRecord struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Seq       int       `json:"seq"`
	Event     Event     `json:"event"`
	From      State     `json:"from,omitempty"`
	To        State     `json:"to"`
	Actor     string    `json:"actor"`
	At        time.Time `json:"at"`
}
