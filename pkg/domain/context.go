package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ajayshanks/datagpt/pkg/schema"
)

// PipelineContext is the accumulated state of one pipeline run.
// Stages are numbered 1..StageCount; CurrentStage == StageCount+1 means done.
type PipelineContext struct {
	RunID        string `json:"run_id"`
	CurrentStage int    `json:"current_stage"`
	StageCount   int    `json:"stage_count"`

	// UserInputs holds the raw input fragment recorded for each stage.
	UserInputs map[int]map[string]any `json:"user_inputs"`

	// StageOutputs holds the terminal result of every stage that reached one.
	StageOutputs map[int]*StageOutput `json:"stage_outputs"`

	// CorrelationTokens holds the live token of an async stage in flight.
	CorrelationTokens map[int]string `json:"correlation_tokens"`

	// Active is the in-flight attempt, if any.
	Active *StageRun `json:"active,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed carries an encrypted copy of the context when a store wraps it.
	// Everything except the run coordinates is left empty alongside it.
	Sealed []byte `json:"sealed,omitempty"`
}

// NewPipelineContext creates a clean context positioned at stage 1.
func NewPipelineContext(runID string, stageCount int) *PipelineContext {
	now := time.Now().UTC()
	return &PipelineContext{
		RunID:             runID,
		CurrentStage:      1,
		StageCount:        stageCount,
		UserInputs:        make(map[int]map[string]any),
		StageOutputs:      make(map[int]*StageOutput),
		CorrelationTokens: make(map[int]string),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Terminal reports whether every stage has a committed output.
func (c *PipelineContext) Terminal() bool {
	return c.CurrentStage > c.StageCount
}

// InFlight reports whether the current stage is waiting on a remote party.
func (c *PipelineContext) InFlight() bool {
	return c.Active != nil && c.Active.State.InFlight()
}

// Output returns the committed output of stage, if any.
func (c *PipelineContext) Output(stage int) (*StageOutput, bool) {
	out, ok := c.StageOutputs[stage]
	return out, ok && out != nil
}

// Input returns the recorded input of stage (nil if none).
func (c *PipelineContext) Input(stage int) map[string]any {
	return c.UserInputs[stage]
}

// Validate checks the structural invariants of the context:
// the pointer is in range, every stage before the pointer has an output, and
// tokens only exist for the stage currently in flight.
func (c *PipelineContext) Validate() error {
	if c.StageCount < 1 {
		return fmt.Errorf("%w: stage count %d", ErrCorruptContext, c.StageCount)
	}
	if c.CurrentStage < 1 || c.CurrentStage > c.StageCount+1 {
		return fmt.Errorf("%w: pointer %d outside 1..%d", ErrCorruptContext, c.CurrentStage, c.StageCount+1)
	}
	for s := 1; s < c.CurrentStage; s++ {
		if _, ok := c.Output(s); !ok {
			return fmt.Errorf("%w: stage %d is behind the pointer without an output", ErrCorruptContext, s)
		}
	}
	for s, tok := range c.CorrelationTokens {
		if c.Active == nil || c.Active.Stage != s || c.Active.Token != tok {
			return fmt.Errorf("%w: stage %d holds an untracked token", ErrCorruptContext, s)
		}
	}
	return nil
}

// Clone returns a copy that shares no maps with c. Results are treated as
// immutable and are shared.
func (c *PipelineContext) Clone() *PipelineContext {
	if c == nil {
		return nil
	}
	next := *c
	next.UserInputs = make(map[int]map[string]any, len(c.UserInputs))
	for k, v := range c.UserInputs {
		next.UserInputs[k] = CopyInput(v)
	}
	next.StageOutputs = make(map[int]*StageOutput, len(c.StageOutputs))
	for k, v := range c.StageOutputs {
		if v != nil {
			out := *v
			next.StageOutputs[k] = &out
		}
	}
	next.CorrelationTokens = make(map[int]string, len(c.CorrelationTokens))
	for k, v := range c.CorrelationTokens {
		next.CorrelationTokens[k] = v
	}
	if c.Active != nil {
		run := *c.Active
		next.Active = &run
	}
	return &next
}

// CopyInput deep-copies a JSON-like input fragment.
func CopyInput(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyInput(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// StageOutput is the committed, schema-valid result of a stage.
type StageOutput struct {
	Result schema.Result

	// Fallback marks outputs synthesized after a failure or timeout.
	Fallback bool

	// Origin is the terminal state the attempt actually reached
	// (Completed for real results, Failed or TimedOut for fallbacks).
	Origin StageState

	// Reason describes the degradation when Fallback is set.
	Reason string

	// Fingerprint identifies the payload the output was produced from.
	Fingerprint uint64

	CompletedAt time.Time
}

type stageOutputJSON struct {
	Result      json.RawMessage `json:"result"`
	Fallback    bool            `json:"fallback"`
	Origin      StageState      `json:"origin"`
	Reason      string          `json:"reason,omitempty"`
	Fingerprint uint64          `json:"fingerprint"`
	CompletedAt time.Time       `json:"completed_at"`
}

// MarshalJSON encodes the result with its kind tag.
func (o StageOutput) MarshalJSON() ([]byte, error) {
	res, err := schema.Marshal(o.Result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stageOutputJSON{
		Result:      res,
		Fallback:    o.Fallback,
		Origin:      o.Origin,
		Reason:      o.Reason,
		Fingerprint: o.Fingerprint,
		CompletedAt: o.CompletedAt,
	})
}

// UnmarshalJSON restores the typed result through its kind tag.
func (o *StageOutput) UnmarshalJSON(data []byte) error {
	var raw stageOutputJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	res, err := schema.Unmarshal(raw.Result)
	if err != nil {
		return fmt.Errorf("stage output: %w", err)
	}
	*o = StageOutput{
		Result:      res,
		Fallback:    raw.Fallback,
		Origin:      raw.Origin,
		Reason:      raw.Reason,
		Fingerprint: raw.Fingerprint,
		CompletedAt: raw.CompletedAt,
	}
	return nil
}
