package telemetry

import (
	"sync"

	"github.com/aerosyn-sim/swarmcore/internal/telemetry/crdt"
)

// Store is a CRDT-backed telemetry replica. It implements both Sink (so
// the scheduler can publish into it directly) and gossip.MergeSink (so
// the dissemination system can fold in deltas received from peers),
// giving the AWORSet/DotKernel machinery a real production caller
// instead of existing only for its own tests.
type Store struct {
	nodeID string

	mu  sync.Mutex
	set *crdt.AWORSet[TelemetryDeltaEntry]
}

// NewStore returns an empty Store for nodeID.
func NewStore(nodeID string) *Store {
	return &Store{nodeID: nodeID, set: crdt.NewAWORSet[TelemetryDeltaEntry]()}
}

// Publish implements Sink: folds a freshly gated transmission into the
// set under the dot the scheduler already stamped it with, queuing it
// into the pending outgoing delta.
func (s *Store) Publish(entry TelemetryDeltaEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set.Insert(entry.Dot, entry)
}

// MergeDelta implements gossip.MergeSink: absorbs a delta received from
// a peer replica into this store's set.
func (s *Store) MergeDelta(delta TelemetryDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := delta.Context
	kernel := &crdt.DotKernel[TelemetryDeltaEntry]{
		Context: &ctx,
		Entries: make(map[crdt.Dot]TelemetryDeltaEntry, len(delta.Entries)),
	}
	for _, e := range delta.Entries {
		kernel.Entries[e.Dot] = e
	}
	s.set.MergeDelta(kernel)
}

// PendingDelta drains whatever entries have accumulated locally since
// the last call and returns them as a wire-shape TelemetryDelta, or nil
// if nothing is pending. This is the pending-delta supplier the gossip
// dissemination loop polls on its push interval.
func (s *Store) PendingDelta() *TelemetryDelta {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set.Delta == nil || len(s.set.Delta.Entries) == 0 {
		return nil
	}
	entries := make([]TelemetryDeltaEntry, 0, len(s.set.Delta.Entries))
	for _, e := range s.set.Delta.Entries {
		entries = append(entries, e)
	}
	delta := &TelemetryDelta{Context: *s.set.Delta.Context, Entries: entries}
	s.set.Delta = nil
	return delta
}

// Elements returns every currently active (non-removed) telemetry
// entry, for facade endpoints that expose merged fleet-wide state.
func (s *Store) Elements() []TelemetryDeltaEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Elements()
}
