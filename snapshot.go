package tickreg

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"braces.dev/errtrace"
)

// EntrySnapshot is a serializable view of a single entry. Only deterministic
// fields are included, listeners and the tick schedule are runtime-only and
// must be reattached after restoration with [Registry.Subscribe] and
// [Registry.Start].
type EntrySnapshot struct {
	ID              string        `json:"id"`
	Kind            EntryKind     `json:"kind"`
	State           EntryState    `json:"state"`
	Accumulated     time.Duration `json:"accumulated"`
	InitialDuration time.Duration `json:"initial_duration,omitempty"`
	StartTime       time.Time     `json:"start_time,omitzero"`
	// Value is the computed value at snapshot time, informational.
	Value time.Duration `json:"value"`
}

// RegistrySnapshot is a serializable view of a whole [Registry] taken at
// [RegistrySnapshot.Time]. Entries are ordered by id.
type RegistrySnapshot struct {
	Time    time.Time       `json:"time"`
	Entries []EntrySnapshot `json:"entries"`
}

func (s *RegistrySnapshot) sort() {
	slices.SortFunc(s.Entries, func(a, b EntrySnapshot) int {
		return strings.Compare(a.ID, b.ID)
	})
}

// ToJSON serializes the snapshot.
func (s *RegistrySnapshot) ToJSON() ([]byte, error) {
	return errtrace.Wrap2(json.Marshal(s))
}

// SnapshotFromJSON deserializes a snapshot produced by
// [RegistrySnapshot.ToJSON].
func SnapshotFromJSON(data []byte) (*RegistrySnapshot, error) {
	snap := new(RegistrySnapshot)
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return snap, nil
}

// RestoreRegistry rebuilds a [Registry] from a snapshot. Every non-terminated
// entry is restored in the stopped state with the elapsed time it had at
// snapshot time: an entry that was running has its open interval folded into
// the accumulated elapsed time as of [RegistrySnapshot.Time]. Listeners and
// tick schedules must be reattached by the caller.
func RestoreRegistry(snap *RegistrySnapshot, opts *RegistryOptions) *Registry {
	r := NewRegistry(opts)
	if snap == nil {
		return r
	}
	for _, es := range snap.Entries {
		if es.State == EntryStateTerminated {
			continue
		}
		accumulated := es.Accumulated
		if es.State == EntryStateRunning && !es.StartTime.IsZero() {
			accumulated += snap.Time.Sub(es.StartTime)
		}
		switch es.Kind {
		case KindCountdown:
			e := newEntry(r, es.ID, KindCountdown, es.InitialDuration, accumulated)
			if _, existed := r.entries.GetOrSet(es.ID, e); !existed {
				r.stats.entryCreated(KindCountdown)
			}
		default:
			r.CreateStopwatch(es.ID, accumulated)
		}
	}
	return r
}
