package gtsring

import "github.com/giwi/gtsstore/pkg/chunkenc"

// snapshotEncoders copies the slot encoder references under the ring
// mutex, so Count and Size can iterate them without holding the lock for
// their full duration; the totals returned are point-in-time
// approximations if a concurrent Store or Clean is in flight.
func (cs *ChunkSet) snapshotEncoders() []*chunkenc.Encoder {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]*chunkenc.Encoder, len(cs.chunks))
	copy(out, cs.chunks)
	return out
}

// Count returns the sum of tuple counts across all populated slots.
func (cs *ChunkSet) Count() uint64 {
	var n uint64
	for _, enc := range cs.snapshotEncoders() {
		if enc != nil {
			n += enc.Count()
		}
	}
	return n
}

// Size returns the sum of encoder byte sizes across all populated slots.
func (cs *ChunkSet) Size() uint64 {
	var n uint64
	for _, enc := range cs.snapshotEncoders() {
		if enc != nil {
			n += enc.Size()
		}
	}
	return n
}

// UncompressedSize returns what Size would be across all populated slots if
// no cut block were ever compressed; Size()/UncompressedSize() is the
// ring's overall compression ratio.
func (cs *ChunkSet) UncompressedSize() uint64 {
	var n uint64
	for _, enc := range cs.snapshotEncoders() {
		if enc != nil {
			n += enc.UncompressedSize()
		}
	}
	return n
}

// PopulatedSlots returns the number of ring slots currently holding an
// encoder. Not part of spec.md's core contract; exposed for tooling such
// as cmd/gtsinspect.
func (cs *ChunkSet) PopulatedSlots() int {
	n := 0
	for _, enc := range cs.snapshotEncoders() {
		if enc != nil {
			n++
		}
	}
	return n
}

// TimeRange returns the minimum and maximum tuple timestamp stored across
// every populated slot, folding each encoder's own chunkenc.Encoder.TimeRange
// into one ring-wide span. ok is false for an empty ring.
func (cs *ChunkSet) TimeRange() (mint, maxt int64, ok bool) {
	for _, enc := range cs.snapshotEncoders() {
		if enc == nil {
			continue
		}
		emint, emaxt, eok := enc.TimeRange()
		if !eok {
			continue
		}
		if !ok || emint < mint {
			mint = emint
		}
		if !ok || emaxt > maxt {
			maxt = emaxt
		}
		ok = true
	}
	return mint, maxt, ok
}
