// Package stages holds the Stage Definition Table: the static, ordered list of
// remote stages a run goes through, how each one is dispatched, how its payload
// is built from upstream state and what its result must look like.
//
// Payload builders only see an Upstream view, which refuses reads of stages
// that are not behind the one being built.
package stages
