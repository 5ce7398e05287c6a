package gtsring

import (
	"sort"

	"github.com/giwi/gtsstore/pkg/chunkenc"
)

// slotSnapshot is the metadata a fetch needs about one slot, read under the
// ring mutex in one shot so the encoder reference and the end/chronological
// values it is decoded against never drift relative to each other.
type slotSnapshot struct {
	enc           *chunkenc.Encoder
	end           int64
	chronological bool
}

func (cs *ChunkSet) snapshotSlot(id int) slotSnapshot {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return slotSnapshot{
		enc:           cs.chunks[id],
		end:           cs.chunkEnds[id],
		chronological: cs.chronological[id],
	}
}

// FetchSpan returns an encoder containing every stored tuple with
// now-span+1 <= ts <= now, in slot-visit order (newest slot first, not
// globally sorted). A negative span delegates to FetchCount(now, -span).
func (cs *ChunkSet) FetchSpan(now, span int64) (*chunkenc.Encoder, error) {
	if span < 0 {
		return cs.FetchCount(now, int(-span))
	}

	cs.Clean(cs.now())

	out := chunkenc.New(0, cs.encoding)
	nowSlot := Slot(now, cs.chunkLength, int(cs.chunkCount)) + int(cs.chunkCount)
	firstTs := now - span + 1

	for i := 0; i < int(cs.chunkCount); i++ {
		s := (nowSlot - i) % int(cs.chunkCount)
		snap := cs.snapshotSlot(s)
		if snap.enc == nil || snap.end < firstTs || snap.end-cs.chunkLength >= now {
			continue
		}

		d := snap.enc.DecoderView(false)
		for d.Advance() {
			t := d.Tuple()
			if t.Timestamp >= firstTs && t.Timestamp <= now {
				if err := out.Append(t); err != nil {
					return nil, err
				}
			}
		}
		if err := d.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FetchCount returns an encoder containing min(n, available) tuples with
// ts <= now, walking slots newest to oldest and branching per slot on
// whether it was written in order (chronological) and whether its window
// extends past now. See spec.md §4.4, Cases A-D. Within a slot that lies
// entirely at or before now, the tuples dropped are the first ones in
// append order, so for a slot written out of order they are not
// necessarily the oldest. In an out-of-order slot that extends past now,
// ties at the timestamp cutoff are all kept, which can return more than n.
func (cs *ChunkSet) FetchCount(now int64, n int) (*chunkenc.Encoder, error) {
	out := chunkenc.New(0, cs.encoding)
	if n <= 0 {
		return out, nil
	}

	remaining := n
	nowSlot := Slot(now, cs.chunkLength, int(cs.chunkCount)) + int(cs.chunkCount)

	for i := 0; i < int(cs.chunkCount) && remaining > 0; i++ {
		s := (nowSlot - i) % int(cs.chunkCount)
		snap := cs.snapshotSlot(s)
		if snap.enc == nil || snap.end-cs.chunkLength >= now {
			continue
		}

		slotAfterNow := snap.end > now
		k := int(snap.enc.Count())

		emitted, err := cs.harvestSlot(snap, now, remaining, slotAfterNow, k, out)
		if err != nil {
			return nil, err
		}
		remaining -= emitted
	}
	return out, nil
}

// harvestSlot dispatches to the Case A/C, B, or D extraction per spec.md
// §4.4. Cases A and C share one implementation: the "skip the first k -
// remaining entries, emit the rest" rule does not depend on ordering, only
// on the slot's window lying entirely at or before now.
func (cs *ChunkSet) harvestSlot(snap slotSnapshot, now int64, remaining int, slotAfterNow bool, k int, out *chunkenc.Encoder) (int, error) {
	if !slotAfterNow {
		return harvestSkipOrAll(snap.enc.DecoderView(false), remaining, k, out)
	}
	if snap.chronological {
		return cs.harvestInOrderPastNow(snap.enc, now, remaining, out)
	}
	return cs.harvestOutOfOrderPastNow(snap.enc, now, remaining, out)
}

// harvestSkipOrAll implements Cases A/C: emit the whole slot if it fits,
// otherwise skip the first k-remaining entries in decode order and emit
// the tail.
func harvestSkipOrAll(d *chunkenc.Decoder, remaining, k int, out *chunkenc.Encoder) (int, error) {
	if k <= remaining {
		return harvestAll(d, out)
	}
	return harvestSkipFirst(d, k-remaining, out)
}

// harvestInOrderPastNow implements Case B: the slot is chronological but its
// window extends past now, so entries past now form a contiguous suffix.
func (cs *ChunkSet) harvestInOrderPastNow(enc *chunkenc.Encoder, now int64, remaining int, out *chunkenc.Encoder) (int, error) {
	cnt, err := countWhileLE(enc.DecoderView(false), now)
	if err != nil {
		return 0, err
	}

	if cnt <= remaining {
		return harvestWhileLE(enc.DecoderView(false), now, out)
	}

	tmp := chunkenc.New(0, cs.encoding)
	if _, err := harvestWhileLE(enc.DecoderView(false), now, tmp); err != nil {
		return 0, err
	}
	return harvestSkipFirst(tmp.DecoderView(false), cnt-remaining, out)
}

// harvestOutOfOrderPastNow implements Case D: materialise every tuple with
// ts <= now, sort their timestamps, and emit everything at or above the
// cutoff that keeps (at least) remaining entries.
func (cs *ChunkSet) harvestOutOfOrderPastNow(enc *chunkenc.Encoder, now int64, remaining int, out *chunkenc.Encoder) (int, error) {
	tmp := chunkenc.New(0, cs.encoding)
	if _, err := harvestWhileLEUnordered(enc.DecoderView(false), now, tmp); err != nil {
		return 0, err
	}

	total := int(tmp.Count())
	if total <= remaining {
		return harvestAll(tmp.DecoderView(false), out)
	}

	ts := make([]int64, 0, total)
	d := tmp.DecoderView(false)
	for d.Advance() {
		ts = append(ts, d.Timestamp())
	}
	if err := d.Err(); err != nil {
		return 0, err
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	cutoff := ts[total-remaining]

	emitted := 0
	d2 := tmp.DecoderView(false)
	for d2.Advance() {
		if d2.Timestamp() >= cutoff {
			if err := out.Append(d2.Tuple()); err != nil {
				return emitted, err
			}
			emitted++
		}
	}
	return emitted, d2.Err()
}

func harvestAll(d *chunkenc.Decoder, out *chunkenc.Encoder) (int, error) {
	n := 0
	for d.Advance() {
		if err := out.Append(d.Tuple()); err != nil {
			return n, err
		}
		n++
	}
	return n, d.Err()
}

func harvestSkipFirst(d *chunkenc.Decoder, skip int, out *chunkenc.Encoder) (int, error) {
	idx := 0
	n := 0
	for d.Advance() {
		if idx < skip {
			idx++
			continue
		}
		if err := out.Append(d.Tuple()); err != nil {
			return n, err
		}
		n++
	}
	return n, d.Err()
}

// countWhileLE counts entries up to (and not including) the first ts > now,
// relying on chronological order to make that count well-defined without
// scanning the whole slot.
func countWhileLE(d *chunkenc.Decoder, now int64) (int, error) {
	n := 0
	for d.Advance() {
		if d.Timestamp() > now {
			break
		}
		n++
	}
	return n, d.Err()
}

// harvestWhileLE emits entries up to the first ts > now, assuming
// chronological order (Case B).
func harvestWhileLE(d *chunkenc.Decoder, now int64, out *chunkenc.Encoder) (int, error) {
	n := 0
	for d.Advance() {
		if d.Timestamp() > now {
			break
		}
		if err := out.Append(d.Tuple()); err != nil {
			return n, err
		}
		n++
	}
	return n, d.Err()
}

// harvestWhileLEUnordered emits every entry with ts <= now without assuming
// any ordering, scanning the whole slot (Case D's materialisation step).
func harvestWhileLEUnordered(d *chunkenc.Decoder, now int64, out *chunkenc.Encoder) (int, error) {
	n := 0
	for d.Advance() {
		if d.Timestamp() <= now {
			if err := out.Append(d.Tuple()); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, d.Err()
}
