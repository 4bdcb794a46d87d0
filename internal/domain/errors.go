package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrEmptyUpload    = errors.New("empty upload")
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrJobNotRetryable rejects a retry of a job that is not in failed.
	ErrJobNotRetryable = errors.New("only failed jobs can be retried")
)

// InvalidTransitionError rejects an event that is not legal from the entity's
// current state. It is a business error, not a system fault: callers surface
// it as a structured rejection, never as an internal error.
type InvalidTransitionError struct {
	State   ProductState
	Event   Event
	Allowed []Event
}

func (e *InvalidTransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, ev := range e.Allowed {
		allowed[i] = string(ev)
	}
	return fmt.Sprintf("event %q is not allowed from state %q, allowed events: %s",
		e.Event, e.State, strings.Join(allowed, ", "))
}

// UnknownStateError indicates a persisted state outside the enumerated set.
// This points at data corruption or a missed migration; processing of the
// affected entity must stop rather than guess a recovery path.
type UnknownStateError struct {
	EntityType EntityType
	EntityID   string
	State      string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("%s %s has unknown state %q", e.EntityType, e.EntityID, e.State)
}
