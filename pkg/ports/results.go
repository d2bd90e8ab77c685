package ports

import (
	"context"
	"errors"

	"github.com/ajayshanks/datagpt/pkg/domain"
)

// ErrResultNotFound is returned when no row exists for a (token, step) pair.
// The poller treats it like PENDING: the row may not have been written yet.
var ErrResultNotFound = errors.New("result not found")

// ResultStore is the read-only view of the table async handlers write to.
// Rows are keyed by (unique_id, step_name). Implementations must be safe for
// concurrent use by many runs.
type ResultStore interface {
	// Status returns the current status of the row.
	Status(ctx context.Context, token, step string) (domain.ResultStatus, error)

	// Fetch returns the serialized JSON result of a COMPLETED row.
	Fetch(ctx context.Context, token, step string) ([]byte, error)
}
