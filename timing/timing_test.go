package timing

// Tests for the mock clock: timers fire only when Elapse moves time past
// their deadline, and Reset rearms them relative to the current mock time.

import (
	"testing"
	"time"
)

func expectFired(t *testing.T, done <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(50 * time.Millisecond):
		t.Fatalf("%s didn't fire at its end time", what)
	}
}

func expectQuiet(t *testing.T, done <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-done:
		t.Fatalf("%s fired before its end time", what)
	case <-time.After(50 * time.Millisecond):
	}
}

func watch(tmr Timer) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		<-tmr.C()
		done <- struct{}{}
	}()
	return done
}

func TestTimer(t *testing.T) {
	MockMode = true
	tmr := NewTimer(5 * time.Second)
	done := watch(tmr)

	Elapse(5 * time.Second)
	expectFired(t, done, "Timer")
}

func TestTwoTimers(t *testing.T) {
	MockMode = true
	slow := NewTimer(5 * time.Second)
	slowDone := watch(slow)
	fast := NewTimer(5 * time.Millisecond)
	fastDone := watch(fast)

	Elapse(5 * time.Millisecond)
	expectFired(t, fastDone, "fast Timer")
	expectQuiet(t, slowDone, "slow Timer")

	Elapse(4995 * time.Millisecond)
	expectFired(t, slowDone, "slow Timer")
}

func TestAfter(t *testing.T) {
	MockMode = true
	c := After(5 * time.Second)
	done := make(chan struct{})
	go func() {
		<-c
		done <- struct{}{}
	}()

	Elapse(5 * time.Second)
	expectFired(t, done, "After")
}

func TestAfterFunc(t *testing.T) {
	MockMode = true
	done := make(chan struct{})
	AfterFunc(5*time.Second, func() { done <- struct{}{} })

	Elapse(5 * time.Second)
	expectFired(t, done, "AfterFunc")
}

func TestAfterFuncReset(t *testing.T) {
	MockMode = true
	done := make(chan struct{})
	tmr := AfterFunc(5*time.Second, func() { done <- struct{}{} })

	Elapse(3 * time.Second)
	tmr.Reset(5 * time.Second)
	Elapse(2 * time.Second)
	expectQuiet(t, done, "reset AfterFunc")

	Elapse(3 * time.Second)
	expectFired(t, done, "reset AfterFunc")
}

func TestAfterFuncExpiredReset(t *testing.T) {
	MockMode = true
	done := make(chan struct{})
	tmr := AfterFunc(5*time.Second, func() { done <- struct{}{} })

	Elapse(5 * time.Second)
	expectFired(t, done, "AfterFunc")

	// Resetting an already fired timer rearms it.
	tmr.Reset(5 * time.Second)
	Elapse(5 * time.Second)
	expectFired(t, done, "reset AfterFunc")
}

func TestExpiredReset(t *testing.T) {
	MockMode = true
	tmr := NewTimer(5 * time.Second)
	done := watch(tmr)

	Elapse(5 * time.Second)
	expectFired(t, done, "Timer")

	tmr.Reset(3 * time.Second)
	done = watch(tmr)

	Elapse(2 * time.Second)
	expectQuiet(t, done, "reset Timer")

	Elapse(1 * time.Second)
	expectFired(t, done, "reset Timer")
}

func TestNotExpiredReset(t *testing.T) {
	MockMode = true
	tmr := NewTimer(5 * time.Second)
	done := watch(tmr)

	Elapse(4 * time.Second)
	tmr.Reset(5 * time.Second)
	Elapse(1 * time.Second)
	expectQuiet(t, done, "reset Timer")

	Elapse(4 * time.Second)
	expectFired(t, done, "reset Timer")
}

func TestTimerStop(t *testing.T) {
	MockMode = true
	tmr := NewTimer(5 * time.Second)

	if !tmr.Stop() {
		t.Fatal("Stop() of an armed timer reported false")
	}
	Elapse(10 * time.Second)
	select {
	case <-tmr.C():
		t.Fatal("stopped Timer fired")
	case <-time.After(50 * time.Millisecond):
	}

	if tmr.Stop() {
		t.Fatal("Stop() of a stopped timer reported true")
	}
}

// Resetting one timer must not lose track of the others.
func TestThreeTimersWithReset(t *testing.T) {
	MockMode = true
	tmr1 := NewTimer(1 * time.Second)
	done1 := watch(tmr1)
	tmr2 := NewTimer(2 * time.Second)
	done2 := watch(tmr2)
	tmr3 := NewTimer(3 * time.Second)
	done3 := watch(tmr3)

	tmr1.Reset(4 * time.Second)

	Elapse(2 * time.Second)
	expectFired(t, done2, "second Timer")

	Elapse(1 * time.Second)
	expectFired(t, done3, "third Timer")

	Elapse(1 * time.Second)
	expectFired(t, done1, "reset first Timer")
}
