package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStageEnter    EventType = "stage_enter"
	EventDispatch      EventType = "stage_dispatch"
	EventPoll          EventType = "stage_poll"
	EventStageComplete EventType = "stage_complete"
	EventFallback      EventType = "stage_fallback"
	EventNavigate      EventType = "navigate"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StageEvent describes a stage attempt changing state.
type StageEvent struct {
	EventBase
	Stage    int           `json:"stage"`
	Name     string        `json:"name"`
	Mode     DispatchMode  `json:"mode"`
	State    StageState    `json:"state"`
	Token    string        `json:"token,omitempty"`
	Fallback bool          `json:"fallback,omitempty"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration,omitempty"`
}

// PollEvent describes one query of the Result Store.
type PollEvent struct {
	EventBase
	Stage  int          `json:"stage"`
	Name   string       `json:"name"`
	Token  string       `json:"token"`
	Status ResultStatus `json:"status,omitempty"`
	Polls  int          `json:"polls"`
	Err    error        `json:"-"`
}

// NavigationAction names a user-driven pointer move.
type NavigationAction string

const (
	NavAdvance  NavigationAction = "advance"
	NavBack     NavigationAction = "back"
	NavResubmit NavigationAction = "resubmit"
	NavReset    NavigationAction = "reset"
)

// NavigationEvent represents a pointer move.
type NavigationEvent struct {
	EventBase
	Action NavigationAction `json:"action"`
	From   int              `json:"from"`
	To     int              `json:"to"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStageEnter    func(context.Context, *StageEvent)
	OnDispatch      func(context.Context, *StageEvent)
	OnPoll          func(context.Context, *PollEvent)
	OnStageComplete func(context.Context, *StageEvent)
	OnFallback      func(context.Context, *StageEvent)
	OnNavigate      func(context.Context, *NavigationEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStageEnter:    chain(h.OnStageEnter, other.OnStageEnter),
		OnDispatch:      chain(h.OnDispatch, other.OnDispatch),
		OnPoll:          chain(h.OnPoll, other.OnPoll),
		OnStageComplete: chain(h.OnStageComplete, other.OnStageComplete),
		OnFallback:      chain(h.OnFallback, other.OnFallback),
		OnNavigate:      chain(h.OnNavigate, other.OnNavigate),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
