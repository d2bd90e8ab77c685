package domain

import "sort"

// ContextDiff represents the changes between two snapshots of a run.
// It is designed to be serialized to JSON so clients can refresh only what moved.
type ContextDiff struct {
	// RunID is always present to identify the target.
	RunID string `json:"run_id"`

	// CurrentStage is set when the pointer moved.
	CurrentStage *int `json:"current_stage,omitempty"`

	// Committed lists stages whose output appeared or changed.
	Committed []int `json:"committed,omitempty"`

	// Dropped lists stages whose output was removed (stale or resubmitted).
	Dropped []int `json:"dropped,omitempty"`

	// Active is set when the in-flight attempt changed state.
	// A pointer to the zero StageState means the attempt ended.
	Active *StageState `json:"active,omitempty"`
}

// Diff calculates the difference between oldCtx and newCtx.
// If oldCtx is nil, it returns a diff representing the entire newCtx (initial load).
func Diff(oldCtx, newCtx *PipelineContext) *ContextDiff {
	if newCtx == nil {
		return nil
	}
	diff := &ContextDiff{RunID: newCtx.RunID}

	if oldCtx == nil || oldCtx.CurrentStage != newCtx.CurrentStage {
		stage := newCtx.CurrentStage
		diff.CurrentStage = &stage
	}

	var oldOutputs map[int]*StageOutput
	if oldCtx != nil {
		oldOutputs = oldCtx.StageOutputs
	}
	for s, out := range newCtx.StageOutputs {
		prev, ok := oldOutputs[s]
		if !ok || prev == nil || !sameOutput(prev, out) {
			diff.Committed = append(diff.Committed, s)
		}
	}
	for s := range oldOutputs {
		if _, ok := newCtx.StageOutputs[s]; !ok {
			diff.Dropped = append(diff.Dropped, s)
		}
	}
	sort.Ints(diff.Committed)
	sort.Ints(diff.Dropped)

	if state, changed := activeChange(oldCtx, newCtx); changed {
		diff.Active = &state
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func sameOutput(a, b *StageOutput) bool {
	return a.Fingerprint == b.Fingerprint &&
		a.Fallback == b.Fallback &&
		a.CompletedAt.Equal(b.CompletedAt)
}

func activeChange(oldCtx, newCtx *PipelineContext) (StageState, bool) {
	var before, after StageState
	if oldCtx != nil && oldCtx.Active != nil {
		before = oldCtx.Active.State
	}
	if newCtx.Active != nil {
		after = newCtx.Active.State
	}
	return after, before != after
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ContextDiff) IsEmpty() bool {
	return d.CurrentStage == nil &&
		len(d.Committed) == 0 &&
		len(d.Dropped) == 0 &&
		d.Active == nil
}
