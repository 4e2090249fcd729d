// Package crdt provides the delta-CRDT building blocks the telemetry
// relay tier uses to merge gated drone state across independently
// deployed replicas without coordination: Dot/VectorClock/DotContext for
// causal tracking, and a generic DotKernel/AWORSet pair for the
// add-wins observed-remove set itself. Lifted and generalized from the
// teacher's pkg/crdt/crdt.go, which used the identical machinery to
// merge per-cell fire detections across drones; here the merged element
// type is a gated telemetry record instead of a fire cell.
package crdt

import (
	"encoding/json"
	"fmt"
)

// Dot uniquely identifies one operation from one replica.
type Dot struct {
	NodeID  string `json:"node_id"`
	Counter int64  `json:"counter"`
}

func (d Dot) String() string {
	return fmt.Sprintf("%s#%d", d.NodeID, d.Counter)
}

// VectorClock holds the highest continuous counter seen per node.
type VectorClock map[string]int64

// DotCloud holds dots outside the continuous prefix a VectorClock can
// represent compactly.
type DotCloud map[Dot]bool

// DotContext pairs a VectorClock with a DotCloud and knows how to
// compact itself as cloud entries become contiguous.
type DotContext struct {
	Clock    VectorClock
	DotCloud DotCloud
}

// MarshalJSON flattens DotCloud into a slice for wire transport.
func (ctx DotContext) MarshalJSON() ([]byte, error) {
	cloud := make([]Dot, 0, len(ctx.DotCloud))
	for d := range ctx.DotCloud {
		cloud = append(cloud, d)
	}
	alias := struct {
		Clock    VectorClock `json:"clock"`
		DotCloud []Dot       `json:"dot_cloud"`
	}{Clock: ctx.Clock, DotCloud: cloud}
	return json.Marshal(alias)
}

// UnmarshalJSON rebuilds the DotCloud map from the wire slice form.
func (ctx *DotContext) UnmarshalJSON(data []byte) error {
	alias := struct {
		Clock    VectorClock `json:"clock"`
		DotCloud []Dot       `json:"dot_cloud"`
	}{Clock: make(VectorClock)}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	ctx.Clock = alias.Clock
	ctx.DotCloud = make(DotCloud, len(alias.DotCloud))
	for _, d := range alias.DotCloud {
		ctx.DotCloud[d] = true
	}
	return nil
}

// NewDotContext returns an empty DotContext.
func NewDotContext() *DotContext {
	return &DotContext{Clock: make(VectorClock), DotCloud: make(DotCloud)}
}

// Contains reports whether d has already been observed.
func (ctx *DotContext) Contains(d Dot) bool {
	if v, ok := ctx.Clock[d.NodeID]; ok && v >= d.Counter {
		return true
	}
	_, inCloud := ctx.DotCloud[d]
	return inCloud
}

// NextDot advances nodeID's counter and returns the fresh dot.
func (ctx *DotContext) NextDot(nodeID string) Dot {
	next := ctx.Clock[nodeID] + 1
	ctx.Clock[nodeID] = next
	return Dot{NodeID: nodeID, Counter: next}
}

// Merge folds another context into this one and compacts the result.
func (ctx *DotContext) Merge(other *DotContext) {
	for n, c := range other.Clock {
		if c > ctx.Clock[n] {
			ctx.Clock[n] = c
		}
	}
	for d := range other.DotCloud {
		ctx.DotCloud[d] = true
	}
	ctx.compact()
}

func (ctx *DotContext) compact() {
	var toRemove []Dot
	for d := range ctx.DotCloud {
		maxCont := ctx.Clock[d.NodeID]
		switch {
		case d.Counter == maxCont+1:
			ctx.Clock[d.NodeID] = d.Counter
			toRemove = append(toRemove, d)
		case d.Counter <= maxCont:
			toRemove = append(toRemove, d)
		}
	}
	for _, d := range toRemove {
		delete(ctx.DotCloud, d)
	}
}

// DotKernel holds the active (non-tombstoned) entries of a CRDT plus the
// context needed to merge it causally.
type DotKernel[E comparable] struct {
	Context *DotContext
	Entries map[Dot]E
}

// NewDotKernel returns an empty kernel.
func NewDotKernel[E comparable]() *DotKernel[E] {
	return &DotKernel[E]{Context: NewDotContext(), Entries: make(map[Dot]E)}
}

// Values returns every active element, in no particular order.
func (k *DotKernel[E]) Values() []E {
	vals := make([]E, 0, len(k.Entries))
	for _, v := range k.Entries {
		vals = append(vals, v)
	}
	return vals
}

// Merge incorporates another kernel: unseen entries are added, and
// entries the other kernel has observed removed (in its context, absent
// from its entries) are dropped here too.
func (k *DotKernel[E]) Merge(other *DotKernel[E]) {
	for d, v := range other.Entries {
		if _, seen := k.Entries[d]; !seen && !k.Context.Contains(d) {
			k.Entries[d] = v
		}
	}
	for d := range k.Entries {
		if other.Context.Contains(d) {
			if _, stillPresent := other.Entries[d]; !stillPresent {
				delete(k.Entries, d)
			}
		}
	}
	k.Context.Merge(other.Context)
}

// AWORSet is an add-wins observed-remove set with delta tracking: every
// Add/Remove also records the operation into Delta so a caller can ship
// just the delta instead of the whole set.
type AWORSet[E comparable] struct {
	Core  *DotKernel[E]
	Delta *DotKernel[E]
}

// NewAWORSet returns an empty set.
func NewAWORSet[E comparable]() *AWORSet[E] {
	return &AWORSet[E]{Core: NewDotKernel[E]()}
}

// Add inserts v, stamped with a fresh dot for nodeID.
func (s *AWORSet[E]) Add(nodeID string, v E) {
	if s.Delta == nil {
		s.Delta = NewDotKernel[E]()
	}
	d := s.Core.Context.NextDot(nodeID)
	s.Core.Entries[d] = v
	s.Delta.Entries[d] = v
}

// Insert adds v under a dot the caller already minted (e.g. from its own
// DotContext.NextDot call), rather than generating a new one from this
// set's context. Used when an entry's dot must match one already handed
// out elsewhere (a published telemetry record, say), so the same
// operation isn't double-stamped with two different dots.
func (s *AWORSet[E]) Insert(d Dot, v E) {
	if s.Delta == nil {
		s.Delta = NewDotKernel[E]()
	}
	if d.Counter > s.Core.Context.Clock[d.NodeID] {
		s.Core.Context.Clock[d.NodeID] = d.Counter
	}
	s.Core.Entries[d] = v
	s.Delta.Entries[d] = v
}

// Remove deletes every occurrence of v and records the removal.
func (s *AWORSet[E]) Remove(v E) {
	if s.Delta == nil {
		s.Delta = NewDotKernel[E]()
	}
	for d, vv := range s.Core.Entries {
		if vv == v {
			delete(s.Core.Entries, d)
			s.Delta.Context.DotCloud[d] = true
		}
	}
	s.Delta.Context.compact()
}

// MergeDelta applies a received delta kernel and clears this replica's
// own pending delta.
func (s *AWORSet[E]) MergeDelta(delta *DotKernel[E]) {
	s.Core.Merge(delta)
	s.Delta = nil
}

// Merge incorporates another full set (state-based merge).
func (s *AWORSet[E]) Merge(other *AWORSet[E]) {
	s.Core.Merge(other.Core)
	if other.Delta != nil {
		s.MergeDelta(other.Delta)
	}
}

// Elements returns the set's current active members.
func (s *AWORSet[E]) Elements() []E {
	return s.Core.Values()
}
