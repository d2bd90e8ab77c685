package domain

import "time"

// DispatchMode defines how a stage talks to its handler.
type DispatchMode string

const (
	ModeSync  DispatchMode = "sync"  // Request/response; the reply body is the result.
	ModeAsync DispatchMode = "async" // Submit returns a correlation token; the result is polled.
)

// Valid reports whether m is a known mode.
func (m DispatchMode) Valid() bool {
	return m == ModeSync || m == ModeAsync
}

// StageState is the position of a single stage attempt in its state machine.
type StageState string

const (
	StateIdle          StageState = "idle"
	StateDispatching   StageState = "dispatching"
	StateAwaitingToken StageState = "awaiting_token"
	StatePolling       StageState = "polling"
	StateCompleted     StageState = "completed"
	StateFailed        StageState = "failed"
	StateTimedOut      StageState = "timed_out"
)

// Terminal reports whether no further automatic transition happens from s.
func (s StageState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

// InFlight reports whether s is waiting on a remote party.
func (s StageState) InFlight() bool {
	return s == StateDispatching || s == StateAwaitingToken || s == StatePolling
}

// StageRun is one attempt at a stage. It lives on the context only while the
// attempt is in flight and is discarded once its result is committed.
type StageRun struct {
	Stage      int        `json:"stage"`
	Name       string     `json:"name"`
	State      StageState `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	Token      string     `json:"token,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	Polls      int        `json:"polls"`
	NextPollAt time.Time  `json:"next_poll_at,omitempty"`

	// Fingerprint of the payload this attempt was dispatched with.
	Fingerprint uint64 `json:"fingerprint"`
}
