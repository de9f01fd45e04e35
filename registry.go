package tickreg

import (
	"log/slog"
	"time"

	"braces.dev/errtrace"

	"github.com/ghettovoice/tickreg/internal/log"
	"github.com/ghettovoice/tickreg/internal/syncutil"
	"github.com/ghettovoice/tickreg/timing"
)

// RegistryOptions are the options for a [Registry].
type RegistryOptions struct {
	// Logger is the logger.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

func (o *RegistryOptions) log() *slog.Logger {
	if o == nil || o.Logger == nil {
		return log.Noop
	}
	return o.Logger
}

// Registry is a table of named countdown timers and stopwatches with
// tick-based listener notification.
//
// Each entry is identified by a caller-chosen string id. Running entries
// notify their subscribed listeners with the current value every
// [TickInterval]; a countdown that reaches zero notifies its listeners with
// a final value of 0 and removes itself from the registry.
//
// A Registry is owned by its creator, there is no package-level instance.
// All methods are safe for concurrent use.
type Registry struct {
	entries syncutil.RWMap[string, *entry]
	stats   statsRecorder
	log     *slog.Logger
}

// NewRegistry creates a new empty [Registry].
// Options are optional, if nil, default values are used (see [RegistryOptions]).
func NewRegistry(opts *RegistryOptions) *Registry {
	return &Registry{log: opts.log()}
}

// CreateStopwatch inserts a new stopwatch entry under id with the given
// initial elapsed time, not running and without listeners. If id already
// exists the call is a no-op, whatever kind the existing entry has.
func (r *Registry) CreateStopwatch(id string, initialElapsed time.Duration) {
	r.create(id, KindStopwatch, 0, initialElapsed)
}

// CreateTimer inserts a new countdown entry under id counting down from
// duration, not running and without listeners. If id already exists the call
// is a no-op, whatever kind the existing entry has.
//
// A non-positive duration is not rejected: once started, such an entry
// reports 0 immediately and is removed on its first tick.
func (r *Registry) CreateTimer(id string, duration time.Duration) {
	r.create(id, KindCountdown, duration, 0)
}

func (r *Registry) create(id string, kind EntryKind, initial, accumulated time.Duration) {
	e := newEntry(r, id, kind, initial, accumulated)
	if _, existed := r.entries.GetOrSet(id, e); existed {
		return
	}
	r.stats.entryCreated(kind)

	r.log.Debug("entry created",
		slog.Any("entry", e),
		slog.Duration("initial_duration", initial),
		slog.Duration("initial_elapsed", accumulated),
	)
}

// Start arms the periodic tick schedule of the entry under id and
// synchronously notifies its listeners with the current value before any
// time has elapsed. Starting an already running entry is a no-op, so two
// consecutive starts never produce a doubled notification stream.
//
// Returns [ErrNotFound] if id is absent.
func (r *Registry) Start(id string) error {
	e, ok := r.entries.Get(id)
	if !ok {
		return errtrace.Wrap(newNotFoundError(id))
	}
	e.start()
	return nil
}

// Stop folds the running interval of the entry under id into its accumulated
// elapsed time and cancels the tick schedule. The entry and its listeners
// are kept, a later [Registry.Start] resumes from the preserved value.
// Stop of an absent or not running entry is a silent no-op.
func (r *Registry) Stop(id string) {
	e, ok := r.entries.Get(id)
	if !ok {
		return
	}
	e.stop()
}

// Clear stops the entry under id and removes it from the registry together
// with all its listeners. Clearing an absent id is a no-op.
func (r *Registry) Clear(id string) {
	e, ok := r.entries.Get(id)
	if !ok {
		return
	}
	e.clear()
}

// Subscribe registers fn as a listener of the entry under id. The listener
// receives the entry's value on every tick until the returned cancel is
// invoked or the entry is cleared.
//
// The cancel removes exactly this registration. It is safe to invoke after
// the entry has been cleared and never affects an entry created later under
// the same id.
//
// Returns [ErrNotFound] if id is absent.
func (r *Registry) Subscribe(id string, fn ListenerFunc) (cancel func(), err error) {
	if fn == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil listener"))
	}
	e, ok := r.entries.Get(id)
	if !ok {
		return nil, errtrace.Wrap(newNotFoundError(id))
	}
	return e.listeners.Add(fn), nil
}

// GetValue returns the current value of the entry under id without side
// effects: elapsed time for a stopwatch, remaining time floored at zero for
// a countdown.
//
// Returns [ErrNotFound] if id is absent.
func (r *Registry) GetValue(id string) (time.Duration, error) {
	e, ok := r.entries.Get(id)
	if !ok {
		return 0, errtrace.Wrap(newNotFoundError(id))
	}
	return e.Value(), nil
}

// Len returns the number of entries currently in the registry.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Close clears all entries. It is idempotent and intended for host
// application teardown.
func (r *Registry) Close() {
	for id := range r.entries.All() {
		r.Clear(id)
	}
}

// removeEntry drops e from the table. Guarded by identity so that a stale
// expiry never removes a newer entry reusing the same id.
func (r *Registry) removeEntry(e *entry) {
	if r.entries.DelIf(e.id, func(cur *entry) bool { return cur == e }) {
		r.stats.entryRemoved(e.kind)
	}
}

// Snapshot exports the deterministic state of all entries at the current
// time. Listeners and tick schedules are runtime-only and are not part of
// the snapshot.
func (r *Registry) Snapshot() *RegistrySnapshot {
	now := timing.Now()
	snap := &RegistrySnapshot{Time: now}
	for _, e := range r.entries.All() {
		snap.Entries = append(snap.Entries, e.snapshot(now))
	}
	snap.sort()
	return snap
}

// Stats returns a point-in-time report of the registry counters.
func (r *Registry) Stats() StatsReport {
	return r.stats.report()
}
