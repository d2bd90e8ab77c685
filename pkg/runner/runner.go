package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ajayshanks/datagpt/internal/logging"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/session"
)

// Runner is the interactive loop for one run.
type Runner struct {
	engine    ports.Orchestrator
	sessions  *session.Manager
	handler   IOHandler
	logger    *slog.Logger
	tick      time.Duration
	interrupt <-chan struct{}
}

// New creates a Runner. Runs are read and written through sessions.
func New(engine ports.Orchestrator, sessions *session.Manager, opts ...Option) *Runner {
	r := &Runner{
		engine:   engine,
		sessions: sessions,
		logger:   logging.NewNop(),
		tick:     DefaultTick,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(nil, nil)
	}
	return r
}

// Run drives runID until the user quits, input ends or ctx is canceled.
// End of input and quit return nil. Rejected input and out-of-range moves
// are reported through the handler and the loop goes on.
func (r *Runner) Run(ctx context.Context, runID string) error {
	interrupts := func() <-chan struct{} { return r.interrupt }
	if r.interrupt == nil {
		signals := NewSignalManager(ctx)
		defer signals.Stop()
		interrupts = func() <-chan struct{} {
			// Re-arm after a handled SIGINT.
			if ctx.Err() == nil && signals.Context().Err() != nil {
				signals.Reset()
			}
			return signals.Done()
		}
	}
	return r.loop(ctx, runID, interrupts)
}

func (r *Runner) loop(ctx context.Context, runID string, interrupts func() <-chan struct{}) error {
	waiting := true
	for {
		pc, err := r.sessions.Load(ctx, runID)
		if err != nil {
			return err
		}
		v := r.engine.View(pc)
		if err := r.handler.Render(ctx, v); err != nil {
			return fmt.Errorf("render: %w", err)
		}

		if pc.InFlight() && waiting {
			interrupted, err := r.await(ctx, runID, interrupts())
			if err != nil {
				return err
			}
			if interrupted {
				waiting = false
				_ = r.handler.Notify(ctx, "stopped waiting; the stage is still running remotely")
			}
			continue
		}
		waiting = true

		cmd, err := r.handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input: %w", err)
		}
		if cmd.Action == ActionQuit {
			return nil
		}
		if err := r.apply(ctx, runID, cmd); err != nil {
			return err
		}
	}
}

// await refreshes runID every tick until no stage is in flight. It reports
// whether the wait was interrupted.
func (r *Runner) await(ctx context.Context, runID string, interrupt <-chan struct{}) (bool, error) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-interrupt:
			if err := ctx.Err(); err != nil {
				return false, err
			}
			return true, nil
		case <-ticker.C:
		}

		pc, err := r.sessions.Update(ctx, runID, r.engine.Refresh)
		if err != nil {
			return false, err
		}
		if !pc.InFlight() {
			return false, nil
		}
		if run := pc.Active; run != nil {
			r.logger.DebugContext(ctx, "still waiting", "run_id", runID, "stage", run.Name, "polls", run.Polls)
		}
	}
}

// apply runs cmd under the run lock. User-correctable errors are reported
// and swallowed.
func (r *Runner) apply(ctx context.Context, runID string, cmd Command) error {
	var fn func(context.Context, *domain.PipelineContext) error
	switch cmd.Action {
	case ActionAdvance:
		fn = func(ctx context.Context, pc *domain.PipelineContext) error {
			return r.engine.Advance(ctx, pc, cmd.Input)
		}
	case ActionBack:
		fn = r.engine.Back
	case ActionResubmit:
		fn = r.engine.Resubmit
	case ActionReset:
		fn = r.engine.Reset
	case ActionRefresh:
		fn = r.engine.Refresh
	default:
		return r.handler.Notify(ctx, fmt.Sprintf("unknown action %q", cmd.Action))
	}

	_, err := r.sessions.Update(ctx, runID, fn)
	var payloadErr *domain.PayloadError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &payloadErr), errors.Is(err, domain.ErrPipelineComplete):
		r.logger.InfoContext(ctx, "command rejected", "run_id", runID, "action", cmd.Action, "err", err)
		return r.handler.Notify(ctx, err.Error())
	}
	return err
}
