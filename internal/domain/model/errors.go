package model

import (
	"errors"
	"fmt"
)

// ErrValidation is the category of every input error. Validation errors are
// always reported before any state is touched.
var ErrValidation = errors.New("validation error")

// Validation kinds. Each one matches itself and ErrValidation with errors.Is.
var (
	ErrInvalidSkillPair = validationKind("invalid skill pair")
	ErrUnknownSkill     = validationKind("unknown skill")
	ErrInvalidInput     = validationKind("invalid input")
	ErrUnknownProfile   = validationKind("unknown profile")
)

// Business-rule and state errors.
var (
	ErrIllegalTransition      = errors.New("illegal transition")
	ErrSlotUnavailable        = errors.New("slot unavailable")
	ErrDuplicateFeedback      = errors.New("duplicate feedback")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrNotFound               = errors.New("not found")
)

type kindError struct {
	msg    string
	parent error
}

func validationKind(msg string) error { return &kindError{msg: msg, parent: ErrValidation} }

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.parent }

// opError decorates a kind with the failing operation and an optional cause.
type opError struct {
	op    string
	kind  error
	cause error
}

func (e *opError) Error() string {
	if e.cause == nil {
		return e.op + ": " + e.kind.Error()
	}
	return e.op + ": " + e.kind.Error() + ": " + e.cause.Error()
}

func (e *opError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// NewKind returns an error for op that matches kind.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// WrapKind returns an error for op that matches both kind and err.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, cause: err}
}

// Invalidf returns an ErrInvalidInput error for op with a formatted detail.
func Invalidf(op, format string, args ...any) error {
	return WrapKind(op, ErrInvalidInput, fmt.Errorf(format, args...))
}

// SlotUnavailableError names the first conflicting slot of a proposal.
type SlotUnavailableError struct {
	Slot   Slot
	Reason string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("slot unavailable: %s %s (%s)", e.Slot.Date, e.Slot.Time, e.Reason)
}

func (e *SlotUnavailableError) Is(target error) bool { return target == ErrSlotUnavailable }

// TransitionError reports an event that is not applicable to a state.
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: %q does not apply to state %q", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }
