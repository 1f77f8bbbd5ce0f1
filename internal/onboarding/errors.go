package onboarding

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrFinalizeFailed    = errors.New("finalize failed")
	ErrSessionNotFound   = errors.New("onboarding session not found")
	ErrVersionConflict   = errors.New("onboarding session was modified concurrently")
)

// Validation rule names reported in ValidationError.Rule.
const (
	RuleRequired      = "required"
	RuleSingle        = "single"
	RuleOption        = "option"
	RulePrerequisite  = "prerequisite"
	RulePattern       = "pattern"
	RuleStaleQuestion = "stale_question"
)

// TransitionError reports an operation invoked from a status that does not allow it.
type TransitionError struct {
	Op   string
	From Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from status %s", ErrInvalidTransition, e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError carries enough detail to re-prompt the user.
type ValidationError struct {
	QuestionID string
	Rule       string
	Detail     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: question %q (%s): %s", ErrValidation, e.QuestionID, e.Rule, e.Detail)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// FinalizeError wraps the downstream failure reported by a Finalizer.
// Both ErrFinalizeFailed and the downstream error match errors.Is.
type FinalizeError struct {
	Err error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrFinalizeFailed, e.Err)
}

func (e *FinalizeError) Unwrap() []error { return []error{ErrFinalizeFailed, e.Err} }

func invalid(op string, from Status) error {
	return &TransitionError{Op: op, From: from}
}

func invalidAnswer(q Question, rule, format string, args ...any) error {
	return &ValidationError{QuestionID: q.ID, Rule: rule, Detail: fmt.Sprintf(format, args...)}
}
