// Package pool owns the cache of loaded model runtime handles across all
// model kinds. It is structured into small files by concern:
//
//   - pool.go: core Pool type, constructor, resolver surface.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: internal state types (entry, pendingLoad).
//   - errors.go: error types and helpers (IsLoadFailed, IsTooBusy, ...).
//   - acquire.go: admission (global ceiling + per-model exclusivity),
//     Release and the Run combinator.
//   - load.go: single-flight handle construction.
//   - evict.go: idle sweep and pressure eviction scoring.
//   - remove.go: explicit Remove and Clear.
//   - status.go: Status/Ready reporting.
//   - metrics.go: Prometheus collectors.
//   - events.go: lifecycle event publishing.
//   - lru_persist.go: usage metadata persistence across restarts.
//
// Invariants maintained under the single pool mutex:
//
//   - a model key is present in at most one of {cache, pending} at a time;
//   - a key in the in-flight set is never evicted;
//   - the active execution count never exceeds the configured ceiling and
//     never goes negative;
//   - the cache holds at most MaxLoaded entries, except transiently when
//     every cached handle is in flight (liveness over strict bounds).
//
// Backend invocations run outside the mutex once a handle and the per-model
// execution right have been acquired, so distinct models execute in parallel
// up to the global ceiling.
package pool
