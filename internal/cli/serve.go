package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	httpadapter "github.com/ajayshanks/datagpt/pkg/adapters/http"
	"github.com/ajayshanks/datagpt/pkg/runner"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configures Serve.
type ServeOptions struct {
	Addr string
	// SweepInterval enables the background sweeper when positive.
	SweepInterval time.Duration
}

// Serve runs the HTTP API, and optionally the sweeper, until ctx ends.
func Serve(ctx context.Context, app *App, opts ServeOptions) error {
	handlerOpts := []httpadapter.Option{httpadapter.WithLogger(app.Logger)}
	if app.Metrics != nil {
		handlerOpts = append(handlerOpts, httpadapter.WithMetrics(app.Metrics.Handler()))
	}
	srv := httpadapter.NewServer(opts.Addr, httpadapter.NewHandler(app.Engine, handlerOpts...))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info("http server listening", "addr", opts.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		app.Logger.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return err
		}
		return nil
	})
	if opts.SweepInterval > 0 {
		sweeper := runner.NewSweeper(app.Engine.Orchestrator(), app.Engine.Sessions(),
			runner.WithSweepInterval(opts.SweepInterval),
			runner.WithSweepLogger(app.Logger),
		)
		g.Go(func() error {
			return sweeper.Run(ctx)
		})
	}
	return g.Wait()
}
