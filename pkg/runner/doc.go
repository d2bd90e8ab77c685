/*
Package runner drives pipeline runs outside of a request/response cycle.

Runner is the interactive loop behind the CLI: it renders the run, reads a
command through an IOHandler, applies it under the run lock and, while an
asynchronous stage is in flight, refreshes the run on a ticker until the
stage settles.

Sweeper is its server-side counterpart. It periodically refreshes every
stored run that has a stage in flight, so runs progress even when no client
is watching.

# Usage

	r := runner.New(engine, sessions,
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)
	if err := r.Run(ctx, runID); err != nil {
		log.Fatal(err)
	}
*/
package runner
