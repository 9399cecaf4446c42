// Package workflow implements the SCAR lifecycle state machine: which
// status a SCAR may be in, who may transition it, and which sections are
// writable in which states. Every mutation records exactly one entry to
// the append-only activity trail, atomically with the field update.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no SCAR exists for the given id.
var ErrNotFound = errors.New("scar not found")

// ErrForbidden is returned when the actor's role or vendor ownership
// does not permit the operation. Handlers translate it to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition is returned when a status precondition is unmet,
// e.g. verifying a SCAR that is not submitted.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidationError reports required creation fields that are absent.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// IncompleteSubmissionError reports the supplier sections that still
// need content before a SCAR response can be submitted.
type IncompleteSubmissionError struct {
	Missing []string
}

func (e *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("incomplete submission, missing: %s", strings.Join(e.Missing, "; "))
}
