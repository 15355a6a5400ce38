package workflow

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Sentinel errors for workflow operations.
var (
	ErrInvalidTransition = eris.New("workflow: invalid transition")
	ErrNoResult          = eris.New("workflow: no result yet, submit the assessment first")
	ErrClearNotConfirmed = eris.New("workflow: clearing history requires confirmation")
)

// FieldError describes one out-of-range field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every problem found in the draft. The workflow
// stays in draft when it is returned.
type ValidationError struct {
	Missing []string     `json:"missing,omitempty"`
	Invalid []FieldError `json:"invalid,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	for _, f := range e.Invalid {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Reason))
	}
	return "workflow: validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// PersistenceError wraps a history store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("workflow: history %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
