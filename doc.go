/*
Package datagpt is a staged pipeline orchestrator for data-to-insights workflows.

A run moves through an ordered table of stages. Each stage builds a JSON
payload from everything upstream, calls a remote endpoint and records a typed
result. Synchronous stages answer inline. Asynchronous stages answer with a
correlation token, and the engine polls a Result Store until the row is
COMPLETED or FAILED, or the stage times out. Any remote failure degrades into a
synthesized placeholder so the run can always move forward, and the user may
step back, resubmit or reset at any point.

# Architecture

The engine is a cooperative state machine with no background goroutines. A
run is a domain.PipelineContext; every operation loads it, mutates it and
saves it back under a per-run lock. Hosts re-enter a waiting run by calling
Refresh (or any other operation), which performs at most one poll.

	pkg/domain     run state, events, read model
	pkg/stages     stage table, payload builders, YAML overlay
	pkg/schema     typed results and fallback synthesis
	pkg/ports      driven interfaces (handler, result store, context store, locker)
	pkg/adapters   webhook, process, memory, file, redis, postgres, http, mcp
	pkg/session    locked load-modify-save of runs
	pkg/runner     interactive terminal loop and background sweeper

# Usage

	eng, err := datagpt.New(
		datagpt.WithHandler(webhook.New(webhook.WithToken(token))),
		datagpt.WithResults(results),
	)
	if err != nil {
		log.Fatal(err)
	}

	out, err := eng.Start(ctx, "")
	runID := out.View.RunID

	out, err = eng.Advance(ctx, runID, map[string]any{
		"data_sources": []string{"zip_territory"},
		"use_case":     "Segmentation",
	})

	// Later, or on every page view:
	out, err = eng.Refresh(ctx, runID)
*/
package datagpt
