package memory

import (
	"context"
	"sync"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
)

type resultKey struct {
	token, step string
}

type resultRow struct {
	status domain.ResultStatus
	body   []byte
}

// Results implements ports.ResultStore in memory. Handlers running in the
// same process (and tests) write rows with Put.
type Results struct {
	mu   sync.RWMutex
	rows map[resultKey]resultRow
}

// NewResults creates an empty result table.
func NewResults() *Results {
	return &Results{rows: make(map[resultKey]resultRow)}
}

// Put writes or replaces the row for (token, step).
func (r *Results) Put(token, step string, status domain.ResultStatus, body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[resultKey{token, step}] = resultRow{status: status, body: append([]byte(nil), body...)}
}

// Status returns the status of the row.
func (r *Results) Status(ctx context.Context, token, step string) (domain.ResultStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[resultKey{token, step}]
	if !ok {
		return "", ports.ErrResultNotFound
	}
	return row.status, nil
}

// Fetch returns the body of a COMPLETED row.
func (r *Results) Fetch(ctx context.Context, token, step string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[resultKey{token, step}]
	if !ok || row.status != domain.ResultCompleted {
		return nil, ports.ErrResultNotFound
	}
	return append([]byte(nil), row.body...), nil
}
