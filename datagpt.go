package datagpt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajayshanks/datagpt/internal/logging"
	"github.com/ajayshanks/datagpt/internal/runtime"
	"github.com/ajayshanks/datagpt/pkg/adapters/memory"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/session"
	"github.com/ajayshanks/datagpt/pkg/stages"
	"github.com/google/uuid"
)

// ErrNoHandler is returned by New when no stage handler was configured.
var ErrNoHandler = errors.New("stage handler is required")

// Engine is the high-level entry point of the library.
// It wraps the stateless runtime with run persistence and per-run locking.
type Engine struct {
	runtime  *runtime.Engine
	sessions *session.Manager

	table   *stages.Table
	handler ports.StageHandler
	results ports.ResultStore
	store   ports.ContextStore
	locker  ports.DistributedLocker
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	clock   func() time.Time
	newID   func() string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithTable replaces the default Data-to-Insights stage table.
func WithTable(t *stages.Table) Option {
	return func(e *Engine) {
		e.table = t
	}
}

// WithHandler sets the transport used to call stage endpoints.
func WithHandler(h ports.StageHandler) Option {
	return func(e *Engine) {
		e.handler = h
	}
}

// WithResults sets the table async stages are polled against.
// Defaults to an in-memory table.
func WithResults(r ports.ResultStore) Option {
	return func(e *Engine) {
		e.results = r
	}
}

// WithStore sets where runs are persisted. Defaults to memory.
func WithStore(s ports.ContextStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker enables distributed run locks.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// WithIDGenerator replaces the UUID run ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New initializes an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}

	if e.handler == nil {
		return nil, ErrNoHandler
	}
	if e.table == nil {
		t, err := stages.DataToInsights(stages.Options{})
		if err != nil {
			return nil, fmt.Errorf("default stage table: %w", err)
		}
		e.table = t
	}
	if e.results == nil {
		e.results = memory.NewResults()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
	}
	if e.clock != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithClock(e.clock))
	}
	e.runtime = runtime.NewEngine(e.table, e.handler, e.results, runtimeOpts...)

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	return e, nil
}

// Orchestrator exposes the stateless navigation surface, for hosts that keep
// contexts themselves.
func (e *Engine) Orchestrator() ports.Orchestrator {
	return e.runtime
}

// Sessions returns the run manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Table returns the stage table.
func (e *Engine) Table() *stages.Table {
	return e.table
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}
