package model

import (
	"fmt"
	"time"
)

// Slot layouts.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Slot is a (date, time) unit of schedulable session capacity.
type Slot struct {
	Date string `json:"date" yaml:"date"`
	Time string `json:"time" yaml:"time"`
}

// Validate checks both layouts.
func (s Slot) Validate() error {
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("date %q: want YYYY-MM-DD", s.Date)
	}
	if _, err := time.Parse(TimeLayout, s.Time); err != nil {
		return fmt.Errorf("time %q: want HH:MM", s.Time)
	}
	return nil
}

// Less orders slots date first, then time.
func (s Slot) Less(o Slot) bool {
	if s.Date != o.Date {
		return s.Date < o.Date
	}
	return s.Time < o.Time
}

// Start returns the slot start in loc.
func (s Slot) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.Time, loc)
}

func (s Slot) String() string { return s.Date + " " + s.Time }

// SessionType is the format of a session.
type SessionType string

// Session types.
const (
	SessionVideoCall SessionType = "video-call"
	SessionInPerson  SessionType = "in-person"
	SessionWorkshop  SessionType = "workshop"
)

// Valid reports whether t is a known session type.
func (t SessionType) Valid() bool {
	switch t {
	case SessionVideoCall, SessionInPerson, SessionWorkshop:
		return true
	default:
		return false
	}
}

// Duration is the nominal length of a session of type t.
func (t SessionType) Duration() time.Duration {
	switch t {
	case SessionInPerson:
		return 2 * time.Hour
	case SessionWorkshop:
		return 3 * time.Hour
	default:
		return time.Hour
	}
}

// BookingStatus is the state of a single booking.
type BookingStatus string

// Booking statuses.
const (
	BookingScheduled BookingStatus = "scheduled"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// SessionBooking is a committed session slot for a swap request.
type SessionBooking struct {
	ID           string      `json:"id"`
	RequestID    string      `json:"request_id"`
	Participants [2]string   `json:"participants"`
	Slot         Slot        `json:"slot"`
	SessionType  SessionType `json:"session_type"`
	// FocusSkill is the skill taught in this session; empty for a combined
	// session covering both directions.
	FocusSkill  string        `json:"focus_skill,omitempty"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Combined reports whether the booking covers both skill directions.
func (b SessionBooking) Combined() bool { return b.FocusSkill == "" }

// Involves reports whether userID takes part in the booking.
func (b SessionBooking) Involves(userID string) bool {
	return b.Participants[0] == userID || b.Participants[1] == userID
}

// Partner returns the other participant.
func (b SessionBooking) Partner(userID string) string {
	if b.Participants[0] == userID {
		return b.Participants[1]
	}
	return b.Participants[0]
}

// Clone returns a copy that does not share the completion timestamp.
func (b SessionBooking) Clone() SessionBooking {
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		b.CompletedAt = &t
	}
	return b
}
