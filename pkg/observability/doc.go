/*
Package observability turns engine lifecycle events into metrics and logs.

Both Metrics.Hooks and LogHooks return domain.LifecycleHooks, so they can be
merged and passed to the engine with a single option.
*/
package observability
