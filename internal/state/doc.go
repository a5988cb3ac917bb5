// Package state holds the shared parameter cache and the reconciliation
// loop that keeps it consistent with the hardware.
//
// # Cache
//
// Cache is the single source of truth both the background poller and any
// foreground editor (shell, HTTP API) mutate. It is created empty when a
// device session opens, primed by the session's first full read, updated
// on every successful read or write, and torn down with the session. All
// operations are atomic under one RWMutex; the cache lock is independent
// of the session's transport lock and the two are never held together.
//
// # Reconciliation
//
// Reconciler runs on its own goroutine at a fixed cadence. Each tick it
// first refreshes every read-only parameter through the session (which
// updates the cache as a side effect), then snapshots the cache and
// diffs it against the previous tick's snapshot, writing each changed
// read-write parameter to the device exactly once. Read-only kinds are
// never diffed for write-back, so a hardware-reported value can never be
// pushed back at the device as if it were an edit.
//
// A tick error ends that tick's remaining work and is logged; the loop
// itself keeps running until its context is cancelled. Because every
// transport call blocks for up to the transfer timeout, the loop's real
// latency floor is the sum of per-tick transfers, not the tick interval.
package state
