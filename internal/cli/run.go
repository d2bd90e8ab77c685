package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ajayshanks/datagpt/internal/presentation/tui"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/runner"
)

// RunOptions configures RunSession.
type RunOptions struct {
	// RunID resumes a stored run. When empty, or unknown, a run is started.
	RunID string
	JSON  bool // NDJSON in and out
	Plain bool // skip markdown styling
	Quiet bool // no banner or system messages

	In  io.Reader
	Out io.Writer
}

// RunSession drives one run interactively until the user quits or input ends.
func RunSession(ctx context.Context, app *App, opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	quiet := opts.Quiet || opts.JSON

	runID, resumed, err := openRun(ctx, app, opts.RunID)
	if err != nil {
		return err
	}
	app.Logger.Info("run opened", "run_id", runID, "resumed", resumed)

	var handler runner.IOHandler
	if opts.JSON {
		handler = runner.NewJSONHandler(opts.In, opts.Out)
	} else {
		render := tui.Renderer(tui.Plain)
		if !opts.Plain {
			render = tui.ForStdout()
		}
		handler = runner.NewTextHandler(opts.In, opts.Out, runner.WithRenderer(runner.ContentRenderer(render)))
	}

	if !quiet {
		tui.PrintBanner(opts.Out)
		if resumed {
			printSystemMessage(opts.Out, "Resuming run '%s'.", runID)
		} else {
			printSystemMessage(opts.Out, "Run '%s' started.", runID)
		}
	}

	r := runner.New(app.Engine.Orchestrator(), app.Engine.Sessions(),
		runner.WithHandler(handler),
		runner.WithLogger(app.Logger),
	)
	return r.Run(ctx, runID)
}

// openRun loads runID, or starts it when it does not exist yet.
func openRun(ctx context.Context, app *App, runID string) (string, bool, error) {
	if runID != "" {
		_, err := app.Engine.View(ctx, runID)
		switch {
		case err == nil:
			return runID, true, nil
		case !errors.Is(err, domain.ErrRunNotFound):
			return "", false, fmt.Errorf("load run %s: %w", runID, err)
		}
	}
	out, err := app.Engine.Start(ctx, runID)
	if err != nil {
		return "", false, fmt.Errorf("start run: %w", err)
	}
	return out.View.RunID, false, nil
}

func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
