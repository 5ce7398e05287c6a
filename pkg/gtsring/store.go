package gtsring

import (
	"github.com/go-kit/kit/log/level"

	"github.com/giwi/gtsstore/pkg/chunkenc"
)

// Store decodes every tuple produced by in and appends each one that falls
// within the live window to its slot's encoder. Tuples are dropped
// silently when out of window; per-slot metadata (chunk end, last-seen
// timestamp, chronological flag) is maintained as described in spec.md
// §4.2. Concurrent Store calls on the same ChunkSet are safe.
func (cs *ChunkSet) Store(in *chunkenc.Encoder) error {
	now := cs.now()
	lastEnd := ChunkEnd(now, cs.chunkLength)
	firstStart := lastEnd - int64(cs.chunkCount)*cs.chunkLength + 1

	d := in.DecoderView(false)

	for d.Advance() {
		t := d.Tuple()
		if t.Timestamp < firstStart || t.Timestamp > lastEnd {
			continue
		}

		id := Slot(t.Timestamp, cs.chunkLength, int(cs.chunkCount))
		enc := cs.bindSlot(id, t.Timestamp, firstStart)

		if err := enc.Append(t); err != nil {
			return err
		}
	}
	return d.Err()
}

// bindSlot resolves the encoder to append to for slot id, (re)initialising
// the slot's metadata under the ring mutex when it is absent or stale, and
// maintaining the chronological flag and last-seen timestamp regardless.
func (cs *ChunkSet) bindSlot(id int, ts, firstStart int64) *chunkenc.Encoder {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.chunks[id] == nil || cs.chunkEnds[id] < firstStart {
		cs.chunks[id] = chunkenc.New(0, cs.encoding)
		cs.chunkEnds[id] = ChunkEnd(ts, cs.chunkLength)
		cs.lastTs[id] = cs.chunkEnds[id] - cs.chunkLength
		cs.chronological[id] = true
		level.Debug(cs.logger).Log("msg", "re-initialised stale slot", "slot", id, "chunk_end", cs.chunkEnds[id])
	}

	if ts < cs.lastTs[id] {
		cs.chronological[id] = false
	}
	cs.lastTs[id] = ts

	return cs.chunks[id]
}
