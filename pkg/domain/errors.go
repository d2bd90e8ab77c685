package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrPipelineComplete is returned when an operation needs a current stage but
// every stage already has a committed output.
var ErrPipelineComplete = errors.New("pipeline complete")

// ErrReadAhead is returned when a payload builder asks for an output of a
// stage that is not behind it.
var ErrReadAhead = errors.New("read ahead of current stage")

// ErrInvalidInput marks user input that cannot be turned into a payload.
var ErrInvalidInput = errors.New("invalid input")

// ErrCorruptContext is returned when a context violates its structural invariants.
var ErrCorruptContext = errors.New("corrupt pipeline context")

// Remote failure kinds. Every one of them is recoverable: the orchestrator
// degrades the stage to a fallback output instead of surfacing them.
var (
	ErrTransport    = errors.New("transport error")
	ErrRemoteStatus = errors.New("remote status error")
	ErrSchema       = errors.New("schema mismatch")
	ErrTimeout      = errors.New("stage timed out")
	ErrTokenMissing = errors.New("correlation token missing")
)

// StageError records why a remote stage attempt did not produce a real result.
type StageError struct {
	Kind       error  // One of ErrTransport, ErrRemoteStatus, ErrSchema, ErrTimeout, ErrTokenMissing.
	Stage      string // Stage name.
	StatusCode int    // HTTP status, when known.
	Err        error  // Underlying cause, may be nil.
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %s: %v", e.Stage, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *StageError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewStageError is a convenience constructor.
func NewStageError(kind error, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// PayloadError is returned when a stage payload cannot be built from the
// context. Unlike StageError it is never degraded: the caller gets it back
// and the context is left as it was.
type PayloadError struct {
	Stage string
	Err   error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("stage %s: build payload: %v", e.Stage, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err describes a remote failure that should be
// degraded into a fallback output.
func IsRecoverable(err error) bool {
	var se *StageError
	return errors.As(err, &se)
}
