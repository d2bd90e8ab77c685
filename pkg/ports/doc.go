/*
Package ports defines the driven ports (interfaces) for the pipeline orchestrator.

These interfaces decouple the orchestration logic from transport and storage,
allowing the same engine to run against HTTP handlers, Postgres or Redis result
stores, and memory, file or Redis context stores.

# Key Interfaces

  - StageHandler: the remote service invoked once per stage attempt.
  - ResultStore: read-only lookup of async stage results by correlation token.
  - ContextStore: persistence of PipelineContext between user interactions.
  - DistributedLocker: distributed locking for concurrent access to one run.
*/
package ports
