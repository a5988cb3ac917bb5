package state

import (
	"context"
	"sync"
	"time"

	"github.com/brookman/respeaker-go/internal/param"
)

// Default reconciliation cadences.
const (
	// UIPollInterval is the cadence for interactive surfaces (shell, API).
	UIPollInterval = 50 * time.Millisecond

	// RecordPollInterval is the cadence while recording telemetry.
	RecordPollInterval = 10 * time.Millisecond
)

// ReaderWriter is the slice of the device session the reconciler drives.
type ReaderWriter interface {
	// Read refreshes one parameter from the device and updates the cache.
	Read(k param.Kind) (param.Value, error)
	// Write pushes one parameter value to the device and updates the cache.
	Write(k param.Kind, v param.Value) error
}

// Logger is the logging interface used by the reconciler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// TickObserver is called at the end of each tick's read-only refresh with
// the fresh telemetry values. Observers run on the loop goroutine and must
// not block; the WebSocket hub and MQTT publisher hang off this hook.
type TickObserver func(readonly map[param.Kind]param.Value)

// Reconciler propagates foreign cache edits to the hardware while keeping
// read-only telemetry fresh.
type Reconciler struct {
	session  ReaderWriter
	cache    *Cache
	interval time.Duration
	logger   Logger
	observer TickObserver

	// prev is the previous tick's snapshot. The loop goroutine advances
	// it each tick; Adopt updates single entries from other goroutines.
	prev   map[param.Kind]param.Value
	prevMu sync.Mutex
}

// NewReconciler creates a reconciler over the given session and cache.
// The caller must have primed the cache (session.List) before Run, or the
// first tick will see nothing to diff.
func NewReconciler(session ReaderWriter, cache *Cache, interval time.Duration) *Reconciler {
	return &Reconciler{
		session:  session,
		cache:    cache,
		interval: interval,
		logger:   noopLogger{},
		prev:     cache.Snapshot(),
	}
}

// SetLogger sets the logger for the reconciler.
func (r *Reconciler) SetLogger(logger Logger) {
	r.logger = logger
}

// SetObserver installs the per-tick telemetry observer.
// Must be called before Run.
func (r *Reconciler) SetObserver(obs TickObserver) {
	r.observer = obs
}

// Adopt records that k already holds v on the device. Callers that write
// through the session directly (preset apply) use it so the next
// write-back pass does not push the same value a second time.
func (r *Reconciler) Adopt(k param.Kind, v param.Value) {
	r.prevMu.Lock()
	r.prev[k] = v
	r.prevMu.Unlock()
}

// Run executes the loop until ctx is cancelled. The shutdown signal is
// checked at the top of each tick; a cancellation mid-tick lets the tick
// finish, leaving the device in whatever state the last successful write
// produced.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		r.Tick()
	}
}

// Tick performs one reconciliation pass: read-only refresh first, then the
// write-back diff. Exported for tests; Run calls it on every tick.
func (r *Reconciler) Tick() {
	if !r.refreshReadOnly() {
		return
	}
	r.writeBack()
}

// refreshReadOnly reads every read-only parameter in registry order.
// Reports false when a read failed, which aborts the rest of the tick.
func (r *Reconciler) refreshReadOnly() bool {
	readonly := make(map[param.Kind]param.Value)
	for _, k := range param.All() {
		if k.Definition().Access != param.ReadOnly {
			continue
		}
		v, err := r.session.Read(k)
		if err != nil {
			r.logger.Warn("telemetry refresh failed", "param", k.String(), "error", err)
			return false
		}
		readonly[k] = v
	}
	if r.observer != nil {
		r.observer(readonly)
	}
	return true
}

// writeBack diffs the current cache snapshot against the previous tick's
// and pushes each changed read-write parameter exactly once. prev is
// advanced per key as writes succeed, so a failed write is retried next
// tick without re-sending values that already went through.
func (r *Reconciler) writeBack() {
	current := r.cache.Snapshot()

	r.prevMu.Lock()
	defer r.prevMu.Unlock()

	for _, k := range param.All() {
		if k.Definition().Access != param.ReadWrite {
			continue
		}
		cur, ok := current[k]
		if !ok {
			continue
		}
		prev, seen := r.prev[k]
		if seen && cur.Equal(prev) {
			continue
		}
		if !seen {
			// First sighting of this kind; adopt without writing.
			r.prev[k] = cur
			continue
		}

		if err := r.session.Write(k, cur); err != nil {
			r.logger.Warn("write-back failed", "param", k.String(), "value", cur.String(), "error", err)
			return
		}
		r.logger.Debug("edit propagated", "param", k.String(), "old", prev.String(), "new", cur.String())
		r.prev[k] = cur
	}

	// Adopt the full snapshot so read-only refreshes and untouched keys
	// are carried forward too.
	r.prev = current
}
