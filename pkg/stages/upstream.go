package stages

import (
	"fmt"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/schema"
)

// Upstream is the read-only slice of a context visible to the payload builder
// of one stage: inputs of stages 1..k and outputs of stages 1..k-1.
type Upstream struct {
	stage int
	pc    *domain.PipelineContext
}

// NewUpstream returns the view of pc for stage.
func NewUpstream(pc *domain.PipelineContext, stage int) Upstream {
	return Upstream{stage: stage, pc: pc}
}

// Stage returns the stage the view was built for.
func (u Upstream) Stage() int { return u.stage }

// Input returns the recorded input of stage k (nil if none was recorded).
func (u Upstream) Input(k int) (map[string]any, error) {
	if k < 1 || k > u.stage {
		return nil, fmt.Errorf("%w: stage %d reads input of stage %d", domain.ErrReadAhead, u.stage, k)
	}
	return u.pc.Input(k), nil
}

// Output returns the committed result of stage k.
func (u Upstream) Output(k int) (schema.Result, error) {
	if k < 1 || k >= u.stage {
		return nil, fmt.Errorf("%w: stage %d reads output of stage %d", domain.ErrReadAhead, u.stage, k)
	}
	out, ok := u.pc.Output(k)
	if !ok {
		return nil, fmt.Errorf("%w: stage %d has no output", domain.ErrCorruptContext, k)
	}
	return out.Result, nil
}

// OutputAs returns the committed result of stage k as T.
func OutputAs[T schema.Result](u Upstream, k int) (T, error) {
	var zero T
	res, err := u.Output(k)
	if err != nil {
		return zero, err
	}
	typed, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%w: stage %d holds a %s result", domain.ErrCorruptContext, k, res.Kind())
	}
	return typed, nil
}
