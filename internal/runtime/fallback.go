package runtime

import (
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/schema"
	"github.com/ajayshanks/datagpt/pkg/stages"
)

// Synthesize returns the placeholder result for stage of pc. The seed is the
// payload the stage would be sent, so the same upstream state always yields
// the same placeholder. A payload that cannot be rebuilt leaves the seed empty.
func (e *Engine) Synthesize(def stages.Definition, pc *domain.PipelineContext, stage int) schema.Result {
	payload, _ := def.Payload(pc, stage)
	return def.Schema.Synthesize(payload.Seed(def.Name))
}
