package observability

import (
	"context"
	"log/slog"

	"github.com/ajayshanks/datagpt/pkg/domain"
)

// LogHooks returns hooks that trace every lifecycle event at debug level.
// Fallbacks are logged at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "enter stage", "run_id", e.RunID, "stage", e.Name, "mode", e.Mode)
		},
		OnDispatch: func(ctx context.Context, e *domain.StageEvent) {
			if e.Err != nil {
				logger.DebugContext(ctx, "dispatch failed", "run_id", e.RunID, "stage", e.Name, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "dispatched", "run_id", e.RunID, "stage", e.Name, "token", e.Token)
		},
		OnPoll: func(ctx context.Context, e *domain.PollEvent) {
			logger.DebugContext(ctx, "polled", "run_id", e.RunID, "stage", e.Name, "status", e.Status, "polls", e.Polls)
		},
		OnStageComplete: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "stage complete", "run_id", e.RunID, "stage", e.Name, "state", e.State, "duration", e.Duration)
		},
		OnFallback: func(ctx context.Context, e *domain.StageEvent) {
			logger.WarnContext(ctx, "fallback output", "run_id", e.RunID, "stage", e.Name, "state", e.State, "err", e.Err)
		},
		OnNavigate: func(ctx context.Context, e *domain.NavigationEvent) {
			logger.DebugContext(ctx, "navigate", "run_id", e.RunID, "action", e.Action, "from", e.From, "to", e.To)
		},
	}
}
