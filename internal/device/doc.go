// Package device drives the ReSpeaker Mic Array v2.0 over a USB control
// transport.
//
// Session is the only component that talks to the transport. It wraps the
// protocol codec with at-most-one-attempt semantics: the transport owns
// the transfer timeout, the session never retries, and every failure
// surfaces verbatim to the caller. Each successful read or write also
// updates the shared parameter cache, which the session owns and hands
// out to the reconciliation loop and foreground editors.
//
// # Lifecycle
//
//	Closed -> Open          (NewSession over an open transport)
//	Open   -> Resetting     (Reset: DFU reset command, settle, reopen)
//	Resetting -> Open       (transport reopened against the same index)
//	Open   -> Closed        (Close)
//
// Reads and writes attempted while a reset is in flight fail fast with
// ErrResetInFlight instead of racing the re-open. After a reset the cache
// is stale until the caller primes it again with List or ReadAllReadOnly.
//
// # Locking
//
// The transport handle has its own mutex (control transfers on one handle
// must not interleave); the cache has its own inside state.Cache. The two
// locks are never held together.
package device
