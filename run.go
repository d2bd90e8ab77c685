package datagpt

import (
	"context"
	"errors"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/session"
)

// Outcome is returned by every run operation.
type Outcome struct {
	View domain.View `json:"view"`
	// Diff lists what the call changed. Nil when nothing moved.
	Diff *domain.ContextDiff `json:"diff,omitempty"`
}

// Start creates and stores a new run. An empty runID gets a generated one.
func (e *Engine) Start(ctx context.Context, runID string) (*Outcome, error) {
	if runID == "" {
		runID = e.newID()
	}
	pc := e.runtime.Start(ctx, runID)
	if err := e.sessions.Create(ctx, pc); err != nil {
		return nil, err
	}
	return &Outcome{View: e.runtime.View(pc), Diff: domain.Diff(nil, pc)}, nil
}

// Advance records input for the current stage of runID and drives it.
// A nil input keeps the previously recorded one.
func (e *Engine) Advance(ctx context.Context, runID string, input map[string]any) (*Outcome, error) {
	return e.apply(ctx, runID, func(ctx context.Context, pc *domain.PipelineContext) error {
		return e.runtime.Advance(ctx, pc, input)
	})
}

// Refresh re-enters runID: one poll check when a stage is in flight.
// An idle run is read without being saved.
func (e *Engine) Refresh(ctx context.Context, runID string) (*Outcome, error) {
	return e.apply(ctx, runID, func(ctx context.Context, pc *domain.PipelineContext) error {
		if !pc.InFlight() {
			return session.ErrNoChange
		}
		return e.runtime.Refresh(ctx, pc)
	})
}

// Back moves runID one stage back.
func (e *Engine) Back(ctx context.Context, runID string) (*Outcome, error) {
	return e.apply(ctx, runID, e.runtime.Back)
}

// Resubmit clears the current stage of runID.
func (e *Engine) Resubmit(ctx context.Context, runID string) (*Outcome, error) {
	return e.apply(ctx, runID, e.runtime.Resubmit)
}

// Reset clears runID and returns it to the first stage.
func (e *Engine) Reset(ctx context.Context, runID string) (*Outcome, error) {
	return e.apply(ctx, runID, e.runtime.Reset)
}

// View returns the stored view of runID without touching it.
func (e *Engine) View(ctx context.Context, runID string) (domain.View, error) {
	pc, err := e.sessions.Load(ctx, runID)
	if err != nil {
		return domain.View{}, err
	}
	return e.runtime.View(pc), nil
}

// Context returns a copy of the stored context of runID.
func (e *Engine) Context(ctx context.Context, runID string) (*domain.PipelineContext, error) {
	return e.sessions.Load(ctx, runID)
}

// Delete removes runID.
func (e *Engine) Delete(ctx context.Context, runID string) error {
	return e.sessions.Delete(ctx, runID)
}

// List returns the IDs of stored runs.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

func (e *Engine) apply(ctx context.Context, runID string, op func(context.Context, *domain.PipelineContext) error) (*Outcome, error) {
	var before *domain.PipelineContext
	pc, err := e.sessions.Update(ctx, runID, func(ctx context.Context, pc *domain.PipelineContext) error {
		before = pc.Clone()
		return op(ctx, pc)
	})
	if pc == nil {
		return nil, err
	}
	out := &Outcome{View: e.runtime.View(pc), Diff: domain.Diff(before, pc)}
	return out, err
}

// IsNotFound reports whether err means the run does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrRunNotFound)
}

// IsConflict reports whether err means the run ID is already taken.
func IsConflict(err error) bool {
	return errors.Is(err, session.ErrRunExists)
}
