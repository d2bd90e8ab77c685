package ports

import (
	"context"

	"github.com/ajayshanks/datagpt/pkg/domain"
)

// Orchestrator is the navigation surface exposed to presentation adapters.
// It owns no state: every call operates on the context it is given and
// mutates it in place.
type Orchestrator interface {
	// Advance records input for the current stage and drives it as far as it can go.
	Advance(ctx context.Context, pc *domain.PipelineContext, input map[string]any) error

	// Refresh performs one poll check for the stage in flight, if any.
	Refresh(ctx context.Context, pc *domain.PipelineContext) error

	// Back moves the pointer one stage back, abandoning any in-flight attempt.
	Back(ctx context.Context, pc *domain.PipelineContext) error

	// Resubmit clears the current stage so the next Advance dispatches it again.
	Resubmit(ctx context.Context, pc *domain.PipelineContext) error

	// Reset clears the whole context and returns to stage 1.
	Reset(ctx context.Context, pc *domain.PipelineContext) error

	// View returns the read model of a context.
	View(pc *domain.PipelineContext) domain.View
}
