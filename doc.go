// Package tickreg implements an in-process registry of named countdown
// timers and stopwatches with tick-based listener notification.
//
// A [Registry] maps string ids to entries. An entry is either a stopwatch,
// whose value grows from an initial accumulation while running, or a
// countdown, whose value shrinks from a fixed duration toward zero and which
// removes itself from the registry upon reaching it. Running entries notify
// their subscribed listeners with the current value every second.
//
// Basic usage:
//
//	reg := tickreg.NewRegistry(nil)
//	defer reg.Close()
//
//	reg.CreateTimer("egg", 3*time.Minute)
//	cancel, _ := reg.Subscribe("egg", func(left time.Duration) {
//	    fmt.Println("left:", left)
//	})
//	defer cancel()
//
//	_ = reg.Start("egg")
//
// Values are durations with millisecond unit of record; the tick cadence is
// fixed at one second. Time is read through the [timing] package, which
// tests may switch to a mock clock.
package tickreg
