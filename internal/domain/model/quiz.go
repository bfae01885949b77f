package model

import "time"

// Question is a multiple-choice question as shown to a participant.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// Answer is a participant's choice for one question.
type Answer struct {
	QuestionID string `json:"question_id"`
	Selected   int    `json:"selected"`
}

// GradedAnswer pairs the selected option with the correct one. Selected is -1
// when the question was left unanswered.
type GradedAnswer struct {
	QuestionID string `json:"question_id"`
	Selected   int    `json:"selected"`
	Correct    int    `json:"correct"`
}

// QuizResult is one side's immutable assessment outcome.
type QuizResult struct {
	ID           string         `json:"id"`
	RequestID    string         `json:"request_id"`
	Side         Side           `json:"side"`
	Skill        string         `json:"skill"`
	Answers      []GradedAnswer `json:"answers"`
	ScorePercent int            `json:"score_percent"`
	Passed       bool           `json:"passed"`
	// Unverified marks an automatic pass granted because no question bank
	// exists for the skill.
	Unverified  bool      `json:"unverified,omitempty"`
	Attempt     int       `json:"attempt"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Clone returns a deep copy.
func (q QuizResult) Clone() QuizResult {
	q.Answers = append([]GradedAnswer(nil), q.Answers...)
	return q
}
