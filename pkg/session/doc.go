/*
Package session serializes access to stored pipeline runs.

Every read-modify-write of a run goes through Manager.Update, which holds a
per-run lock (and, when configured, a distributed lock) for the duration of
the load, the mutation and the save. This keeps two requests from advancing
the same run concurrently and double-submitting a stage.
*/
package session
