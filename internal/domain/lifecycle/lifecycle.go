// Package lifecycle holds the swap request transition table. It is pure: it
// knows which (state, event) pairs are edges and nothing about guards, which
// the orchestrator evaluates before choosing an event.
package lifecycle

import "github.com/okian/skillswap/internal/domain/model"

type edge struct {
	from  model.State
	event model.Event
}

// cancellable lists every non-terminal state an explicit cancel may leave.
var cancellable = []model.State{
	model.StatePending,
	model.StateAccepted,
	model.StateQuizPending,
	model.StateQuizFailed,
	model.StateQuizPassed,
	model.StateScheduled,
	model.StateInProgress,
}

var table = func() map[edge]model.State {
	t := map[edge]model.State{
		{model.StatePending, model.EventAccept}:              model.StateAccepted,
		{model.StatePending, model.EventDecline}:             model.StateDeclined,
		{model.StateAccepted, model.EventBeginAssessment}:    model.StateQuizPending,
		{model.StateQuizPending, model.EventQuizRecorded}:    model.StateQuizPending,
		{model.StateQuizPending, model.EventQuizPassed}:      model.StateQuizPassed,
		{model.StateQuizPending, model.EventQuizFailed}:      model.StateQuizFailed,
		{model.StateQuizPending, model.EventQuizExhausted}:   model.StateExpired,
		{model.StateQuizFailed, model.EventQuizRetry}:        model.StateQuizPending,
		{model.StateQuizPassed, model.EventBookingCommitted}: model.StateQuizPassed,
		{model.StateQuizPassed, model.EventBookingReleased}:  model.StateQuizPassed,
		{model.StateQuizPassed, model.EventSchedule}:         model.StateScheduled,
		{model.StateScheduled, model.EventStart}:             model.StateInProgress,
		{model.StateInProgress, model.EventSessionAttended}:  model.StateInProgress,
		{model.StateInProgress, model.EventComplete}:         model.StateCompleted,
	}
	for _, s := range cancellable {
		t[edge{s, model.EventCancel}] = model.StateCancelled
	}
	return t
}()

// Next returns the state reached by applying ev to from.
func Next(from model.State, ev model.Event) (model.State, error) {
	to, ok := table[edge{from, ev}]
	if !ok {
		return "", &model.TransitionError{From: from, Event: ev}
	}
	return to, nil
}
