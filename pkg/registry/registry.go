// Package registry serves stages from Go functions registered in-process.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/ajayshanks/datagpt/pkg/ports"
)

// StageFunc implements one stage in-process.
// It receives the decoded payload and returns a value that is encoded as the
// reply body. Returning a *ports.StageReply passes it through untouched.
type StageFunc func(ctx context.Context, payload map[string]any) (any, error)

// Registry maps stage names to functions. It is a ports.StageHandler.
type Registry struct {
	mu       sync.RWMutex
	stages   map[string]StageFunc
	fallback ports.StageHandler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]StageFunc),
	}
}

// Register adds a function for stage.
// If one is already registered it is overwritten.
func (r *Registry) Register(stage string, fn StageFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage] = fn
}

// SetFallback routes stages with no registered function to next.
func (r *Registry) SetFallback(next ports.StageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = next
}

// Stages lists the registered stage names.
func (r *Registry) Stages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stages))
	for name := range r.stages {
		names = append(names, name)
	}
	return names
}

// Invoke runs the function registered for call.Stage.
// A returned error becomes a 500 reply; an unknown stage is a 404 reply
// unless a fallback is set.
func (r *Registry) Invoke(ctx context.Context, call ports.StageCall) (*ports.StageReply, error) {
	r.mu.RLock()
	fn, ok := r.stages[call.Stage]
	fallback := r.fallback
	r.mu.RUnlock()

	if !ok {
		if fallback != nil {
			return fallback.Invoke(ctx, call)
		}
		return &ports.StageReply{
			StatusCode: http.StatusNotFound,
			Body:       fmt.Appendf(nil, "stage not registered: %s", call.Stage),
		}, nil
	}

	var payload map[string]any
	if len(call.Body) > 0 {
		if err := json.Unmarshal(call.Body, &payload); err != nil {
			return &ports.StageReply{StatusCode: http.StatusBadRequest, Body: []byte(err.Error())}, nil
		}
	}

	out, err := fn(ctx, payload)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return &ports.StageReply{StatusCode: http.StatusInternalServerError, Body: []byte(err.Error())}, nil
	}
	if reply, ok := out.(*ports.StageReply); ok {
		return reply, nil
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s reply: %w", call.Stage, err)
	}
	return &ports.StageReply{StatusCode: http.StatusOK, Body: body}, nil
}
