package tickreg

import (
	"sync/atomic"
	"time"

	"github.com/ghettovoice/tickreg/timing"
)

// StatsReport is a point-in-time report of registry counters.
type StatsReport struct {
	Time    time.Time  `json:"time"`
	Entries EntryStats `json:"entries"`
	Ticks   TickStats  `json:"ticks"`
}

// EntryStats counts registry entries per kind.
type EntryStats struct {
	// Stopwatches is the number of stopwatch entries currently in the registry.
	Stopwatches uint64 `json:"stopwatches"`
	// Countdowns is the number of countdown entries currently in the registry.
	Countdowns uint64 `json:"countdowns"`
	// StopwatchesTotal is the total number of created stopwatch entries.
	StopwatchesTotal uint64 `json:"stopwatches_total"`
	// CountdownsTotal is the total number of created countdown entries.
	CountdownsTotal uint64 `json:"countdowns_total"`
	// Expirations is the number of countdowns that reached zero and
	// removed themselves.
	Expirations uint64 `json:"expirations"`
}

// TickStats counts tick processing.
type TickStats struct {
	// Delivered is the number of processed periodic ticks.
	Delivered uint64 `json:"delivered"`
	// Notifications is the number of listener invocations, including the
	// synchronous notification on start.
	Notifications uint64 `json:"notifications"`
}

// statsRecorder records registry statistics.
type statsRecorder struct {
	stopwatches      atomic.Uint64
	countdowns       atomic.Uint64
	stopwatchesTotal atomic.Uint64
	countdownsTotal  atomic.Uint64
	expirations      atomic.Uint64
	ticks            atomic.Uint64
	notifications    atomic.Uint64
}

func (s *statsRecorder) entryCreated(kind EntryKind) {
	if kind == KindCountdown {
		s.countdowns.Add(1)
		s.countdownsTotal.Add(1)
		return
	}
	s.stopwatches.Add(1)
	s.stopwatchesTotal.Add(1)
}

func (s *statsRecorder) entryRemoved(kind EntryKind) {
	if kind == KindCountdown {
		s.countdowns.Add(^uint64(0))
		return
	}
	s.stopwatches.Add(^uint64(0))
}

func (s *statsRecorder) countdownExpired() {
	s.expirations.Add(1)
}

func (s *statsRecorder) tickDelivered() {
	s.ticks.Add(1)
}

func (s *statsRecorder) notificationsSent(n uint64) {
	s.notifications.Add(n)
}

func (s *statsRecorder) report() StatsReport {
	return StatsReport{
		Time: timing.Now(),
		Entries: EntryStats{
			Stopwatches:      s.stopwatches.Load(),
			Countdowns:       s.countdowns.Load(),
			StopwatchesTotal: s.stopwatchesTotal.Load(),
			CountdownsTotal:  s.countdownsTotal.Load(),
			Expirations:      s.expirations.Load(),
		},
		Ticks: TickStats{
			Delivered:     s.ticks.Load(),
			Notifications: s.notifications.Load(),
		},
	}
}
