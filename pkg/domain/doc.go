/*
Package domain contains the core models of the staged pipeline orchestrator.

It defines the per-run aggregate (PipelineContext), the transient attempt record
(StageRun), the per-stage state machine vocabulary, the error taxonomy used at the
orchestrator boundary and the lifecycle hooks used for observability. The package
is pure: no I/O, no persistence, no transport.

# Key Entities

  - PipelineContext: the stage pointer plus every input, output and live
    correlation token of one run. Owned by exactly one orchestrator at a time.
  - StageOutput: the terminal result of a stage, real or fallback-derived.
  - StageRun: one attempt at a stage (Idle, Dispatching, AwaitingToken, Polling, terminal).
  - StageError / PayloadError: remote failures (always degraded to a fallback)
    versus programming or input errors (returned to the caller).
*/
package domain
