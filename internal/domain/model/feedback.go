package model

import "time"

// Star bounds.
const (
	MinStars = 1
	MaxStars = 5
)

// FeedbackEntry is an immutable rating left for a completed booking.
type FeedbackEntry struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id"`
	RaterID     string    `json:"rater_id"`
	RatedID     string    `json:"rated_id"`
	Stars       int       `json:"stars"`
	Comment     string    `json:"comment"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Stats are read-only aggregates derived from stored entities.
type Stats struct {
	UserID            string  `json:"user_id"`
	AverageRating     float64 `json:"average_rating"`
	SessionsCompleted int     `json:"sessions_completed"`
	SkillsTaughtCount int     `json:"skills_taught_count"`
	ReviewsGivenCount int     `json:"reviews_given_count"`
}

// Notification is a lifecycle event handed to the delivery collaborator.
type Notification struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	Event      Event     `json:"event"`
	From       State     `json:"from,omitempty"`
	To         State     `json:"to"`
	Actor      string    `json:"actor"`
	Recipients []string  `json:"recipients"`
	At         time.Time `json:"at"`
}
