// Package cli wires configuration into a ready engine for the commands in cmd/datagpt.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ajayshanks/datagpt"
	"github.com/ajayshanks/datagpt/internal/config"
	"github.com/ajayshanks/datagpt/internal/logging"
	"github.com/ajayshanks/datagpt/pkg/adapters/file"
	"github.com/ajayshanks/datagpt/pkg/adapters/memory"
	"github.com/ajayshanks/datagpt/pkg/adapters/postgres"
	"github.com/ajayshanks/datagpt/pkg/adapters/process"
	"github.com/ajayshanks/datagpt/pkg/adapters/redis"
	"github.com/ajayshanks/datagpt/pkg/adapters/webhook"
	"github.com/ajayshanks/datagpt/pkg/observability"
	"github.com/ajayshanks/datagpt/pkg/persistence/middleware"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/stages"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// App bundles the engine with the resources it owns.
type App struct {
	Config  *config.Config
	Engine  *datagpt.Engine
	Logger  *slog.Logger
	Metrics *observability.Metrics // nil unless requested

	closers []func() error
}

// Close releases connections opened by Build, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

type buildOptions struct {
	metrics bool
	logger  *slog.Logger
}

// BuildOption tunes Build.
type BuildOption func(*buildOptions)

// WithMetrics registers Prometheus collectors on the engine hooks.
func WithMetrics() BuildOption {
	return func(o *buildOptions) { o.metrics = true }
}

// WithLogger overrides the logger derived from the config.
func WithLogger(l *slog.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// Build creates every adapter cfg selects and the engine on top of them.
func Build(ctx context.Context, cfg *config.Config, opts ...BuildOption) (*App, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	app := &App{Config: cfg, Logger: bo.logger}
	if app.Logger == nil {
		l, err := NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		app.Logger = l
	}

	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	table, err := BuildTable(cfg)
	if err != nil {
		return nil, err
	}
	handler, err := buildHandler(cfg)
	if err != nil {
		return nil, err
	}

	var client *backend.Client
	if cfg.UsesRedis() {
		client = backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, client.Close)
	}

	store, err := buildStore(cfg, client)
	if err != nil {
		return nil, err
	}
	results, err := app.buildResults(ctx, cfg, client)
	if err != nil {
		return nil, err
	}

	engineOpts := []datagpt.Option{
		datagpt.WithTable(table),
		datagpt.WithHandler(handler),
		datagpt.WithStore(store),
		datagpt.WithResults(results),
		datagpt.WithLogger(app.Logger),
		datagpt.WithLifecycleHooks(observability.LogHooks(app.Logger)),
	}
	if cfg.Redis.Lock {
		_, _, lockPrefix := redisPrefixes(cfg)
		engineOpts = append(engineOpts, datagpt.WithLocker(redis.NewLocker(client, lockPrefix)))
	}
	if bo.metrics {
		m, err := observability.NewMetrics(prometheus.NewRegistry())
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		app.Metrics = m
		engineOpts = append(engineOpts, datagpt.WithLifecycleHooks(m.Hooks()))
	}

	app.Engine, err = datagpt.New(engineOpts...)
	if err != nil {
		return nil, err
	}
	ok = true
	return app, nil
}

// NewLogger creates the process logger from cfg.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(level, logging.WithFormat(format)), nil
}

// BuildTable loads the stage overlay, if any, and fills what it leaves
// unset from the top-level settings.
func BuildTable(cfg *config.Config) (*stages.Table, error) {
	overlay := &stages.Config{}
	if cfg.StagesFile != "" {
		var err error
		if overlay, err = stages.LoadConfig(cfg.StagesFile); err != nil {
			return nil, err
		}
	}
	if overlay.BaseURL == "" {
		overlay.BaseURL = cfg.BaseURL
	}
	if overlay.PollInterval == 0 {
		overlay.PollInterval = stages.Duration(cfg.PollInterval)
	}
	if overlay.MaxWait == 0 {
		overlay.MaxWait = stages.Duration(cfg.MaxWait)
	}
	t, err := overlay.Build()
	if err != nil {
		return nil, fmt.Errorf("stage table: %w", err)
	}
	return t, nil
}

func buildHandler(cfg *config.Config) (ports.StageHandler, error) {
	hook := webhook.New(
		webhook.WithClient(&http.Client{Timeout: cfg.Handler.Timeout}),
		webhook.WithToken(cfg.Token),
	)
	if cfg.Handler.Kind != "process" {
		return hook, nil
	}

	commands, err := process.LoadCommands(cfg.Handler.Commands)
	if err != nil {
		return nil, fmt.Errorf("process commands: %w", err)
	}
	opts := []process.Option{process.WithRegistry(commands)}
	if cfg.BaseURL != "" {
		opts = append(opts, process.WithFallback(hook))
	}
	return process.NewHandler(opts...), nil
}

func buildStore(cfg *config.Config, client *backend.Client) (ports.ContextStore, error) {
	store, err := baseStore(cfg, client)
	if err != nil || cfg.Store.EncryptionKey == "" {
		return store, err
	}
	seal, err := sealing(cfg.Store)
	if err != nil {
		return nil, err
	}
	return middleware.Chain(store, seal), nil
}

func sealing(cfg config.StoreConfig) (middleware.Middleware, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(enc)
}

func baseStore(cfg *config.Config, client *backend.Client) (ports.ContextStore, error) {
	switch cfg.Store.Kind {
	case "memory":
		return memory.NewStore(), nil
	case "file":
		return file.New(cfg.Store.Dir), nil
	case "redis":
		prefix, _, _ := redisPrefixes(cfg)
		return redis.NewFromClient(client,
			redis.WithPrefix(prefix),
			redis.WithTTL(cfg.Store.TTL),
		), nil
	}
	return nil, fmt.Errorf("%w: store %q", config.ErrUnknownKind, cfg.Store.Kind)
}

func (a *App) buildResults(ctx context.Context, cfg *config.Config, client *backend.Client) (ports.ResultStore, error) {
	switch cfg.Results.Kind {
	case "memory":
		return memory.NewResults(), nil
	case "redis":
		_, prefix, _ := redisPrefixes(cfg)
		return redis.NewResults(client, prefix), nil
	case "postgres":
		res, pool, err := postgres.Connect(ctx, cfg.Results.DSN, postgres.WithTable(cfg.Results.Table))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		return res, nil
	}
	return nil, fmt.Errorf("%w: results %q", config.ErrUnknownKind, cfg.Results.Kind)
}

// redisPrefixes returns the run, result and lock key prefixes.
func redisPrefixes(cfg *config.Config) (run, result, lock string) {
	if p := cfg.Redis.Prefix; p != "" {
		return p + "run:", p + "result:", p
	}
	return redis.DefaultPrefix, redis.DefaultResultPrefix, "datagpt:"
}
