// Package timing provides a shim around the standard time functions used by
// the registry so that tests can run against a controllable mock clock.
//
// With MockMode disabled (the default) every function delegates to the real
// [time] package. With MockMode enabled, time stands still until the test
// advances it explicitly with [Elapse]; timers and tickers fire synchronously
// with respect to the mock clock, which makes multi-tick scenarios fully
// deterministic and free of real sleeps.
package timing

import (
	"sync"
	"time"
)

// MockMode enables the mock clock. It must be set before any timers are
// created and is intended for tests only.
var MockMode = false

// MockStartTime is the instant the mock clock starts at.
var MockStartTime = time.Unix(0, 0)

var (
	mockTimeMu sync.Mutex
	mockTime   = MockStartTime
	mockTimers []*mockTimer
)

// Timer is a one-shot timer, analogous to [time.Timer].
type Timer interface {
	// C returns the channel on which the expiration time is delivered.
	C() <-chan time.Time
	// Reset rearms the timer to expire after d from now.
	Reset(d time.Duration)
	// Stop disarms the timer. It reports whether the timer was still armed.
	Stop() bool
}

// Ticker delivers ticks at a fixed interval, analogous to [time.Ticker].
type Ticker interface {
	// C returns the channel on which ticks are delivered.
	C() <-chan time.Time
	// Stop disarms the ticker. No tick is delivered after Stop returns.
	Stop()
}

// Now returns the current time of the active clock.
func Now() time.Time {
	if !MockMode {
		return time.Now()
	}
	mockTimeMu.Lock()
	defer mockTimeMu.Unlock()
	return mockTime
}

// Since returns the time elapsed on the active clock since t.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// NewTimer creates a timer that fires once after d.
func NewTimer(d time.Duration) Timer {
	if !MockMode {
		return &realTimer{time.NewTimer(d)}
	}
	return newMockTimer(d, 0, nil)
}

// After returns a channel that receives the current time after d.
func After(d time.Duration) <-chan time.Time {
	return NewTimer(d).C()
}

// AfterFunc arranges for fn to be called in its own goroutine after d.
func AfterFunc(d time.Duration, fn func()) Timer {
	if !MockMode {
		return &realFuncTimer{time.AfterFunc(d, fn)}
	}
	return newMockTimer(d, 0, fn)
}

// NewTicker creates a ticker that fires every d.
func NewTicker(d time.Duration) Ticker {
	if !MockMode {
		return &realTicker{time.NewTicker(d)}
	}
	return &mockTicker{newMockTimer(d, d, nil)}
}

// Sleep blocks until d has elapsed on the active clock.
func Sleep(d time.Duration) {
	<-After(d)
}

// Elapse advances the mock clock by d, firing all timers and tickers that
// become due, in deadline order. It panics if MockMode is disabled.
func Elapse(d time.Duration) {
	if !MockMode {
		panic("timing: Elapse called outside of mock mode")
	}

	mockTimeMu.Lock()
	defer mockTimeMu.Unlock()

	target := mockTime.Add(d)
	for {
		next := nextDueTimer(target)
		if next == nil {
			break
		}
		mockTime = next.deadline
		next.fire(mockTime)
		if next.interval > 0 {
			next.deadline = next.deadline.Add(next.interval)
		} else {
			next.stopped = true
		}
		compactTimers()
	}
	mockTime = target
}

// nextDueTimer returns the armed timer with the earliest deadline not after
// target. Caller must hold mockTimeMu.
func nextDueTimer(target time.Time) *mockTimer {
	var next *mockTimer
	for _, t := range mockTimers {
		if t.stopped || t.deadline.After(target) {
			continue
		}
		if next == nil || t.deadline.Before(next.deadline) {
			next = t
		}
	}
	return next
}

func compactTimers() {
	active := mockTimers[:0]
	for _, t := range mockTimers {
		if !t.stopped {
			active = append(active, t)
		}
	}
	mockTimers = active
}

type realTimer struct{ t *time.Timer }

func (t *realTimer) C() <-chan time.Time { return t.t.C }

func (t *realTimer) Reset(d time.Duration) { t.t.Reset(d) }

func (t *realTimer) Stop() bool { return t.t.Stop() }

type realFuncTimer struct{ t *time.Timer }

// C of an AfterFunc timer is never delivered on, matching [time.AfterFunc].
func (t *realFuncTimer) C() <-chan time.Time { return nil }

func (t *realFuncTimer) Reset(d time.Duration) { t.t.Reset(d) }

func (t *realFuncTimer) Stop() bool { return t.t.Stop() }

type realTicker struct{ t *time.Ticker }

func (t *realTicker) C() <-chan time.Time { return t.t.C }

func (t *realTicker) Stop() { t.t.Stop() }

type mockTimer struct {
	deadline time.Time
	// interval is zero for one-shot timers.
	interval time.Duration
	fn       func()
	c        chan time.Time
	stopped  bool
}

func newMockTimer(d, interval time.Duration, fn func()) *mockTimer {
	mockTimeMu.Lock()
	defer mockTimeMu.Unlock()

	t := &mockTimer{
		deadline: mockTime.Add(d),
		interval: interval,
		fn:       fn,
		c:        make(chan time.Time, 1),
	}
	mockTimers = append(mockTimers, t)
	return t
}

// fire delivers one expiration. Caller must hold mockTimeMu.
func (t *mockTimer) fire(now time.Time) {
	if t.fn != nil {
		go t.fn()
		return
	}
	// Drop the tick if the receiver has not caught up, like time.Ticker.
	select {
	case t.c <- now:
	default:
	}
}

func (t *mockTimer) C() <-chan time.Time {
	if t.fn != nil {
		return nil
	}
	return t.c
}

func (t *mockTimer) Reset(d time.Duration) {
	mockTimeMu.Lock()
	defer mockTimeMu.Unlock()
	t.deadline = mockTime.Add(d)
	if t.stopped {
		t.stopped = false
		mockTimers = append(mockTimers, t)
	}
}

// mockTicker adapts *mockTimer to the Ticker interface, whose Stop has no
// return value.
type mockTicker struct{ *mockTimer }

func (t *mockTicker) Stop() { t.mockTimer.Stop() }

func (t *mockTimer) Stop() bool {
	mockTimeMu.Lock()
	defer mockTimeMu.Unlock()
	wasArmed := !t.stopped
	t.stopped = true
	compactTimers()
	return wasArmed
}
