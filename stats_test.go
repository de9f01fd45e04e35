package tickreg_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ghettovoice/tickreg"
	"github.com/ghettovoice/tickreg/timing"
)

func TestRegistry_Stats(t *testing.T) {
	reg := tickreg.NewRegistry(nil)
	t.Cleanup(reg.Close)

	reg.CreateStopwatch("sw", 0)
	reg.CreateTimer("cd", time.Second)
	// Duplicate creates must not inflate the totals.
	reg.CreateStopwatch("sw", 0)
	reg.CreateTimer("cd", time.Minute)

	if err := reg.Start("cd"); err != nil {
		t.Fatalf("reg.Start() error = %v, want nil", err)
	}
	timing.Elapse(time.Second)
	waitFor(t, "countdown expiry", func() bool {
		_, err := reg.GetValue("cd")
		return errors.Is(err, tickreg.ErrNotFound)
	})

	stats := reg.Stats()
	wantEntries := tickreg.EntryStats{
		Stopwatches:      1,
		Countdowns:       0,
		StopwatchesTotal: 1,
		CountdownsTotal:  1,
		Expirations:      1,
	}
	if diff := cmp.Diff(wantEntries, stats.Entries); diff != "" {
		t.Errorf("stats.Entries mismatch (-want +got):\n%s", diff)
	}
	if stats.Ticks.Delivered == 0 {
		t.Error("stats.Ticks.Delivered = 0, want > 0")
	}
}
