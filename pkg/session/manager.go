package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ajayshanks/datagpt/internal/logging"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
)

// DefaultLockTTL is the lease of a distributed run lock.
const DefaultLockTTL = 30 * time.Second

// ErrRunExists is returned by Create when the run ID is taken.
var ErrRunExists = errors.New("run already exists")

// ErrNoChange tells Update that fn left the context untouched, so there is
// nothing to save. Update itself returns nil in that case.
var ErrNoChange = errors.New("no change")

// lockEntry is a reference-counted per-run mutex.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager guards a ContextStore with per-run locks. Unused lock entries are
// dropped as soon as their last holder releases them.
type Manager struct {
	store ports.ContextStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager on store.
func NewManager(store ports.ContextStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[runID]
	if !ok {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[runID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

// WithLock runs fn while holding the lock for runID.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, runID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire run lock: %w", err)
		}
		defer func() {
			// Release even when ctx is already canceled.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release run lock (will expire via TTL)",
					"run_id", runID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create stores pc under its run ID. It fails with ErrRunExists when the ID
// is already in use.
func (m *Manager) Create(ctx context.Context, pc *domain.PipelineContext) error {
	return m.WithLock(ctx, pc.RunID, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, pc.RunID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", ErrRunExists, pc.RunID)
		case !errors.Is(err, domain.ErrRunNotFound):
			return fmt.Errorf("check run existence: %w", err)
		}
		return m.store.Save(ctx, pc.RunID, pc)
	})
}

// Load reads a run.
func (m *Manager) Load(ctx context.Context, runID string) (*domain.PipelineContext, error) {
	var pc *domain.PipelineContext
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		pc, err = m.store.Load(ctx, runID)
		return err
	})
	return pc, err
}

// Update loads a run, applies fn and saves the result, all under the run
// lock. When fn fails nothing is saved; the loaded (possibly mutated)
// context is returned alongside the error so callers can still render it.
// When fn returns ErrNoChange the save is skipped and Update succeeds.
func (m *Manager) Update(ctx context.Context, runID string, fn func(context.Context, *domain.PipelineContext) error) (*domain.PipelineContext, error) {
	var pc *domain.PipelineContext
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		pc, err = m.store.Load(ctx, runID)
		if err != nil {
			return err
		}
		if err := fn(ctx, pc); err != nil {
			if errors.Is(err, ErrNoChange) {
				return nil
			}
			return err
		}
		if err := m.store.Save(ctx, runID, pc); err != nil {
			return fmt.Errorf("save run %s: %w", runID, err)
		}
		return nil
	})
	return pc, err
}

// Save persists a run.
func (m *Manager) Save(ctx context.Context, runID string, pc *domain.PipelineContext) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Save(ctx, runID, pc)
	})
}

// Delete removes a run.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Delete(ctx, runID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying context store.
func (m *Manager) Store() ports.ContextStore {
	return m.store
}
