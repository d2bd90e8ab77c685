package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultResultPrefix namespaces result rows.
const DefaultResultPrefix = "datagpt:result:"

// Hash fields of a result row.
const (
	FieldStatus = "status"
	FieldResult = "result"
)

// Results implements ports.ResultStore over Redis hashes keyed by
// prefix+token+":"+step, holding the status and result fields.
type Results struct {
	client *backend.Client
	prefix string
}

// NewResults creates a result store. An empty prefix means DefaultResultPrefix.
func NewResults(client *backend.Client, prefix string) *Results {
	if prefix == "" {
		prefix = DefaultResultPrefix
	}
	return &Results{client: client, prefix: prefix}
}

// Key returns the hash key for (token, step).
func (r *Results) Key(token, step string) string {
	return r.prefix + token + ":" + step
}

// Put writes a row. Remote workers normally do this; it is exported for
// local handlers and tests.
func (r *Results) Put(ctx context.Context, token, step string, status domain.ResultStatus, body []byte) error {
	err := r.client.HSet(ctx, r.Key(token, step), FieldStatus, string(status), FieldResult, body).Err()
	if err != nil {
		return fmt.Errorf("redis put result %s/%s: %w", token, step, err)
	}
	return nil
}

// Status returns the status field of the row.
func (r *Results) Status(ctx context.Context, token, step string) (domain.ResultStatus, error) {
	status, err := r.client.HGet(ctx, r.Key(token, step), FieldStatus).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return "", ports.ErrResultNotFound
		}
		return "", fmt.Errorf("redis status %s/%s: %w", token, step, err)
	}
	return domain.ResultStatus(status), nil
}

// Fetch returns the result field of a COMPLETED row.
func (r *Results) Fetch(ctx context.Context, token, step string) ([]byte, error) {
	vals, err := r.client.HMGet(ctx, r.Key(token, step), FieldStatus, FieldResult).Result()
	if err != nil {
		return nil, fmt.Errorf("redis fetch %s/%s: %w", token, step, err)
	}
	status, _ := vals[0].(string)
	body, ok := vals[1].(string)
	if domain.ResultStatus(status) != domain.ResultCompleted || !ok {
		return nil, ports.ErrResultNotFound
	}
	return []byte(body), nil
}
