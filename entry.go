package tickreg

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/tickreg/internal/types"
	"github.com/ghettovoice/tickreg/timing"
)

// EntryKind identifies the direction an entry's value moves in while running.
type EntryKind string

const (
	// KindStopwatch counts up from its accumulated elapsed time.
	KindStopwatch EntryKind = "stopwatch"
	// KindCountdown counts down from its initial duration and is removed
	// from the registry once it reaches zero.
	KindCountdown EntryKind = "countdown"
)

// EntryState is the lifecycle state of a registry entry.
type EntryState string

const (
	// EntryStateStopped indicates no tick schedule is armed.
	EntryStateStopped EntryState = "stopped"
	// EntryStateRunning indicates the entry accumulates elapsed time and
	// notifies its listeners every [TickInterval].
	EntryStateRunning EntryState = "running"
	// EntryStateTerminated indicates the entry was cleared or expired and
	// left the registry. The state is final.
	EntryStateTerminated EntryState = "terminated"
)

const (
	entryEvtStart  = "start"
	entryEvtStop   = "stop"
	entryEvtExpire = "expire"
	entryEvtClear  = "clear"
)

// TickInterval is the fixed cadence of listener notifications for running
// entries.
const TickInterval = time.Second

// ListenerFunc receives the current value of the entry it is subscribed to
// on every tick. Listeners of a countdown receive a final value of exactly 0
// before the entry is removed.
type ListenerFunc = func(value time.Duration)

type entry struct {
	id      string
	kind    EntryKind
	initial time.Duration

	reg *Registry
	log *slog.Logger

	mu          sync.Mutex
	fsm         *stateless.StateMachine
	startTime   time.Time
	accumulated time.Duration
	ticker      timing.Ticker
	tickDone    chan struct{}

	listeners types.CallbackManager[ListenerFunc]
}

func newEntry(reg *Registry, id string, kind EntryKind, initial, accumulated time.Duration) *entry {
	e := &entry{
		id:          id,
		kind:        kind,
		initial:     initial,
		accumulated: accumulated,
		reg:         reg,
		log:         reg.log,
	}
	e.initFSM(EntryStateStopped)
	return e
}

func (e *entry) initFSM(start EntryState) {
	fsm := stateless.NewStateMachine(start)

	fsm.Configure(EntryStateStopped).
		OnEntryFrom(entryEvtStop, e.actHalt).
		Permit(entryEvtStart, EntryStateRunning).
		Permit(entryEvtClear, EntryStateTerminated).
		Ignore(entryEvtStop).
		Ignore(entryEvtExpire)

	fsm.Configure(EntryStateRunning).
		OnEntry(e.actRun).
		Permit(entryEvtStop, EntryStateStopped).
		Permit(entryEvtExpire, EntryStateTerminated).
		Permit(entryEvtClear, EntryStateTerminated).
		Ignore(entryEvtStart)

	fsm.Configure(EntryStateTerminated).
		OnEntry(e.actTerminate).
		Ignore(entryEvtStart).
		Ignore(entryEvtStop).
		Ignore(entryEvtExpire).
		Ignore(entryEvtClear)

	e.fsm = fsm
}

func (e *entry) stateLocked() EntryState {
	return e.fsm.MustState().(EntryState) //nolint:forcetypeassert
}

func (e *entry) fireLocked(trigger string) {
	if err := e.fsm.Fire(trigger); err != nil {
		panic(fmt.Errorf("fire %q in state %q: %w", trigger, e.stateLocked(), err))
	}
}

// valueLocked computes the current value at now. Caller must hold e.mu.
func (e *entry) valueLocked(now time.Time) time.Duration {
	total := e.accumulated
	if e.stateLocked() == EntryStateRunning {
		total += now.Sub(e.startTime)
	}
	if e.kind == KindCountdown {
		if left := e.initial - total; left > 0 {
			return left
		}
		return 0
	}
	return total
}

// Value returns the current value without mutating the entry.
func (e *entry) Value() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.valueLocked(timing.Now())
}

// start transitions the entry to running and synchronously notifies the
// listeners with the value at start time. It is a no-op when already running.
func (e *entry) start() {
	e.mu.Lock()
	if e.stateLocked() != EntryStateStopped {
		e.mu.Unlock()
		return
	}
	e.fireLocked(entryEvtStart)
	value := e.valueLocked(e.startTime)
	e.mu.Unlock()

	e.notify(value)
}

// stop folds the running interval into the accumulated elapsed time and
// cancels the tick schedule. Listeners are kept for a later start.
func (e *entry) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fireLocked(entryEvtStop)
}

// clear cancels the tick schedule, drops all listeners and removes the entry
// from the registry.
func (e *entry) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fireLocked(entryEvtClear)
}

// actRun arms the tick schedule. Runs with e.mu held.
func (e *entry) actRun(ctx context.Context, _ ...any) error {
	e.startTime = timing.Now()
	e.ticker = timing.NewTicker(TickInterval)
	e.tickDone = make(chan struct{})
	go e.runTicks(e.ticker, e.tickDone)

	e.log.LogAttrs(ctx, slog.LevelDebug, "entry started",
		slog.Any("entry", e),
		slog.Time("started_at", e.startTime),
	)
	return nil
}

// actHalt folds the just-ended interval and disarms the tick schedule.
// Runs with e.mu held.
func (e *entry) actHalt(ctx context.Context, _ ...any) error {
	e.accumulated += timing.Now().Sub(e.startTime)
	e.startTime = time.Time{}
	e.cancelTicksLocked()

	e.log.LogAttrs(ctx, slog.LevelDebug, "entry stopped",
		slog.Any("entry", e),
		slog.Duration("accumulated", e.accumulated),
	)
	return nil
}

// actTerminate disarms the tick schedule, drops the listeners and removes
// the entry from the registry. Runs with e.mu held.
func (e *entry) actTerminate(ctx context.Context, _ ...any) error {
	e.cancelTicksLocked()
	e.listeners.Clear()
	e.reg.removeEntry(e)

	e.log.LogAttrs(ctx, slog.LevelDebug, "entry terminated", slog.Any("entry", e))
	return nil
}

func (e *entry) cancelTicksLocked() {
	if e.ticker == nil {
		return
	}
	e.ticker.Stop()
	close(e.tickDone)
	e.ticker = nil
	e.tickDone = nil
}

func (e *entry) runTicks(tk timing.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-tk.C():
			e.tick()
		}
	}
}

// tick delivers one periodic notification. The value is computed from the
// clock rather than the tick timestamp, so a tick delayed by a slow listener
// still reports the true elapsed time.
func (e *entry) tick() {
	e.mu.Lock()
	if e.stateLocked() != EntryStateRunning {
		e.mu.Unlock()
		return
	}
	now := timing.Now()
	value := e.valueLocked(now)
	e.mu.Unlock()

	e.reg.stats.tickDelivered()

	if e.kind == KindCountdown && value == 0 {
		// Terminal notification precedes removal: a GetValue issued from
		// inside a listener during this notification still observes the
		// entry and reads 0.
		e.notify(0)
		e.expire()
		return
	}
	e.notify(value)
}

func (e *entry) expire() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stateLocked() != EntryStateRunning {
		return
	}
	e.reg.stats.countdownExpired()
	e.fireLocked(entryEvtExpire)
}

func (e *entry) notify(value time.Duration) {
	n := 0
	for fn := range e.listeners.All() {
		fn(value)
		n++
	}
	e.reg.stats.notificationsSent(uint64(n))

	e.log.LogAttrs(context.Background(), slog.LevelDebug, "listeners notified",
		slog.Any("entry", e),
		slog.Duration("value", value),
		slog.Int("listeners", n),
	)
}

// snapshotLocked exports the deterministic entry state. Caller must hold e.mu.
func (e *entry) snapshotLocked(now time.Time) EntrySnapshot {
	return EntrySnapshot{
		ID:              e.id,
		Kind:            e.kind,
		State:           e.stateLocked(),
		Accumulated:     e.accumulated,
		InitialDuration: e.initial,
		StartTime:       e.startTime,
		Value:           e.valueLocked(now),
	}
}

func (e *entry) snapshot(now time.Time) EntrySnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(now)
}

// LogValue implements [slog.LogValuer].
func (e *entry) LogValue() slog.Value {
	if e == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("id", e.id),
		slog.String("kind", string(e.kind)),
	)
}
