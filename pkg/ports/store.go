package ports

import (
	"context"

	"github.com/ajayshanks/datagpt/pkg/domain"
)

// ContextStore defines the interface for persisting pipeline runs between
// user interactions. This is what lets a run survive across HTTP requests,
// CLI invocations and process restarts.
type ContextStore interface {
	// Save persists the context for a given run ID.
	Save(ctx context.Context, runID string, pc *domain.PipelineContext) error

	// Load retrieves the context for a given run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.PipelineContext, error)

	// Delete removes the context for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of every stored run.
	List(ctx context.Context) ([]string, error)
}
