package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ajayshanks/datagpt/internal/logging"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/session"
)

// DefaultSweepInterval is how often a Sweeper scans stored runs.
const DefaultSweepInterval = 5 * time.Second

// Sweeper refreshes every stored run with a stage in flight.
type Sweeper struct {
	engine   ports.Orchestrator
	sessions *session.Manager
	interval time.Duration
	logger   *slog.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval overrides DefaultSweepInterval.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweepLogger sets the logger.
func WithSweepLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = l
	}
}

// NewSweeper creates a Sweeper.
func NewSweeper(engine ports.Orchestrator, sessions *session.Manager, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		engine:   engine,
		sessions: sessions,
		interval: DefaultSweepInterval,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep makes one pass and returns how many runs it refreshed. A failing
// run is logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		pc, err := s.sessions.Load(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrRunNotFound) {
				s.logger.WarnContext(ctx, "sweep: load failed", "run_id", id, "err", err)
			}
			continue
		}
		if !pc.InFlight() {
			continue
		}
		_, err = s.sessions.Update(ctx, id, func(ctx context.Context, pc *domain.PipelineContext) error {
			// Another caller may have settled the stage since the load above.
			if !pc.InFlight() {
				return nil
			}
			return s.engine.Refresh(ctx, pc)
		})
		if err != nil {
			s.logger.WarnContext(ctx, "sweep: refresh failed", "run_id", id, "err", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// Run sweeps every interval until ctx ends. It returns nil on cancellation.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "sweep failed", "err", err)
			} else if n > 0 {
				s.logger.DebugContext(ctx, "sweep", "refreshed", n)
			}
		}
	}
}
