package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/ajayshanks/datagpt/internal/logging"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/stages"
)

// Engine drives pipeline contexts through the stage table.
// It holds no per-run state; every operation works on the context it is handed.
type Engine struct {
	table   *stages.Table
	handler ports.StageHandler
	results ports.ResultStore
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	now     func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces time.Now. Used by tests to drive polling deterministically.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a new engine with dependencies.
// results may be nil when the table has no async stages.
func NewEngine(table *stages.Table, handler ports.StageHandler, results ports.ResultStore, opts ...EngineOption) *Engine {
	e := &Engine{
		table:   table,
		handler: handler,
		results: results,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the stage table the engine drives.
func (e *Engine) Table() *stages.Table {
	return e.table
}

// Start creates a clean context for a new run.
func (e *Engine) Start(ctx context.Context, runID string) *domain.PipelineContext {
	pc := domain.NewPipelineContext(runID, e.table.Len())
	pc.CreatedAt = e.now().UTC()
	pc.UpdatedAt = pc.CreatedAt
	e.logger.DebugContext(ctx, "run started", "run_id", runID, "stages", e.table.Len())
	return pc
}

func (e *Engine) touch(pc *domain.PipelineContext) {
	pc.UpdatedAt = e.now().UTC()
}

func (e *Engine) runLogger(pc *domain.PipelineContext, def stages.Definition) *slog.Logger {
	return e.logger.With("run_id", pc.RunID, "stage", def.Name)
}

func (e *Engine) stageEvent(typ domain.EventType, pc *domain.PipelineContext, def stages.Definition, run *domain.StageRun) *domain.StageEvent {
	ev := &domain.StageEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: typ, RunID: pc.RunID},
		Name:      def.Name,
		Mode:      def.Mode,
	}
	if run != nil {
		ev.Stage = run.Stage
		ev.State = run.State
		ev.Token = run.Token
		ev.Duration = e.now().Sub(run.StartedAt)
	}
	return ev
}

func (e *Engine) emitStage(ctx context.Context, hook func(context.Context, *domain.StageEvent), ev *domain.StageEvent) {
	if hook != nil {
		hook(ctx, ev)
	}
}

func (e *Engine) emitPoll(ctx context.Context, ev *domain.PollEvent) {
	if e.hooks.OnPoll != nil {
		e.hooks.OnPoll(ctx, ev)
	}
}

func (e *Engine) emitNavigate(ctx context.Context, pc *domain.PipelineContext, action domain.NavigationAction, from int) {
	if e.hooks.OnNavigate == nil {
		return
	}
	e.hooks.OnNavigate(ctx, &domain.NavigationEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventNavigate, RunID: pc.RunID},
		Action:    action,
		From:      from,
		To:        pc.CurrentStage,
	})
}
