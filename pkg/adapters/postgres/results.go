// Package postgres reads stage results from the shared result table that
// asynchronous stage workers write to.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the result table name.
const DefaultTable = "pipeline_results"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Querier is the slice of pgx used here. *pgxpool.Pool, *pgx.Conn and
// pgx.Tx all satisfy it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Results implements ports.ResultStore over a table of
// (unique_id, step_name, status, result) rows.
type Results struct {
	db          Querier
	statusQuery string
	fetchQuery  string
}

type Option func(*options)

type options struct {
	table string
}

// WithTable overrides the result table. The name may be schema qualified.
func WithTable(name string) Option {
	return func(o *options) {
		o.table = name
	}
}

// NewResults creates a result store on db.
func NewResults(db Querier, opts ...Option) (*Results, error) {
	o := options{table: DefaultTable}
	for _, opt := range opts {
		opt(&o)
	}
	if !identifier.MatchString(o.table) {
		return nil, fmt.Errorf("invalid result table name %q", o.table)
	}
	return &Results{
		db:          db,
		statusQuery: fmt.Sprintf(`SELECT status FROM %s WHERE unique_id = $1 AND step_name = $2 `+
			`ORDER BY CASE status WHEN 'COMPLETED' THEN 0 WHEN 'ERROR' THEN 1 ELSE 2 END LIMIT 1`, o.table),
		fetchQuery: fmt.Sprintf(`SELECT result FROM %s WHERE unique_id = $1 AND step_name = $2 AND status = 'COMPLETED' LIMIT 1`, o.table),
	}, nil
}

// Connect opens a pool for dsn and wraps it. The caller closes the pool.
func Connect(ctx context.Context, dsn string, opts ...Option) (*Results, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect result store: %w", err)
	}
	r, err := NewResults(pool, opts...)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return r, pool, nil
}

// Status returns the status of the (token, step) row. When a worker left
// several rows behind, a terminal status wins over PENDING.
func (r *Results) Status(ctx context.Context, token, step string) (domain.ResultStatus, error) {
	var status string
	if err := r.db.QueryRow(ctx, r.statusQuery, token, step).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ports.ErrResultNotFound
		}
		return "", fmt.Errorf("query status %s/%s: %w", token, step, err)
	}
	return domain.ResultStatus(status), nil
}

// Fetch returns the result column of a COMPLETED row.
func (r *Results) Fetch(ctx context.Context, token, step string) ([]byte, error) {
	var body []byte
	if err := r.db.QueryRow(ctx, r.fetchQuery, token, step).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrResultNotFound
		}
		return nil, fmt.Errorf("query result %s/%s: %w", token, step, err)
	}
	if body == nil {
		return nil, ports.ErrResultNotFound
	}
	return body, nil
}
