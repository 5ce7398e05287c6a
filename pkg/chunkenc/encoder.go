package chunkenc

import (
	"sync"

	"go.uber.org/atomic"
)

// DefaultBlockSize is the uncompressed-byte threshold at which a head
// block is cut into a compressed block, mirroring memchunk.go's
// blocksPerChunk/blockSize role but sized for tuples instead of log lines.
const DefaultBlockSize = 64 * 1024

// Encoder is the append-only, compressed tuple buffer a ChunkSet slot owns.
// It implements the Encoder side of the codec interface in spec.md §6.1.
//
// Appends and DecoderView calls are safe to call concurrently with each
// other: appends serialize on mu, and a zero-copy DecoderView reads the
// head block up to an atomically-published length so it never observes a
// torn write (see the "Decoder-during-append race" note in spec.md §9).
type Encoder struct {
	mu sync.Mutex

	encoding  Encoding
	blockSize int

	head *headBlock
	// headLen is the number of head.entries safely visible to a
	// zero-copy DecoderView snapshot; it is published *after* the
	// entry has been fully appended, so a reader that takes the head
	// slice header under mu and trusts headLen never observes a
	// partially-written tuple.
	headLen atomic.Int64

	blocks []block
}

// New returns a new, empty Encoder. baseTimestamp is accepted for parity
// with spec.md §6.1's constructor signature; this implementation does not
// need it (head blocks self-describe their own mint/maxt).
func New(baseTimestamp int64, enc Encoding) *Encoder {
	return &Encoder{
		encoding:  enc,
		blockSize: DefaultBlockSize,
		head:      &headBlock{},
	}
}

// Append appends one tuple to the encoder's buffer, cutting the head block
// into a compressed block once it crosses blockSize. It fails only on an
// internal I/O error during compression.
func (e *Encoder) Append(t Tuple) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.head.append(t)
	e.headLen.Store(int64(len(e.head.entries)))

	if e.head.size >= e.blockSize {
		return wrapCodecErr("cut", e.cutLocked())
	}
	return nil
}

// cutLocked moves the head block into a compressed block. Caller must hold mu.
func (e *Encoder) cutLocked() error {
	if e.head.isEmpty() {
		return nil
	}
	b, checksum, err := e.head.serialise(getWriterPool(e.encoding))
	if err != nil {
		return err
	}
	e.blocks = append(e.blocks, block{
		b:                b,
		numEntries:       len(e.head.entries),
		mint:             e.head.mint,
		maxt:             e.head.maxt,
		checksum:         checksum,
		uncompressedSize: e.head.size,
	})
	e.head.reset()
	e.headLen.Store(0)
	return nil
}

// Count returns the total number of tuples appended so far.
func (e *Encoder) Count() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := uint64(len(e.head.entries))
	for _, b := range e.blocks {
		n += uint64(b.numEntries)
	}
	return n
}

// Size returns the current buffer byte length: compressed bytes for cut
// blocks plus the uncompressed bytes still sitting in the head block.
func (e *Encoder) Size() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := uint64(e.head.size)
	for _, b := range e.blocks {
		n += uint64(len(b.b))
	}
	return n
}

// UncompressedSize returns what Size would be if no cut block were ever
// compressed, using each block's recorded pre-compression byte count. The
// ratio between UncompressedSize and Size is how much a slot's encoding is
// actually buying, the same bookkeeping memchunk.go keeps per block.
func (e *Encoder) UncompressedSize() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := uint64(e.head.size)
	for _, b := range e.blocks {
		n += uint64(b.uncompressedSize)
	}
	return n
}

// TimeRange returns the minimum and maximum timestamp across every tuple
// currently held in the encoder (cut blocks and the head block alike). ok
// is false for an empty encoder, in which case mint and maxt are zero.
func (e *Encoder) TimeRange() (mint, maxt int64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, b := range e.blocks {
		mint, maxt = extendRange(ok, mint, maxt, b.mint, b.maxt)
		ok = true
	}
	if !e.head.isEmpty() {
		mint, maxt = extendRange(ok, mint, maxt, e.head.mint, e.head.maxt)
		ok = true
	}
	return mint, maxt, ok
}

// DecoderView returns a Decoder over the encoder's current prefix.
//
// copy=true snapshots the head block's entries into a private slice, safe
// to read even while Append continues to run; this is the "copy-on-
// snapshot" strategy from spec.md §9.
//
// copy=false shares the head block's backing array instead of copying it,
// bounded to headLen at the moment the slice header was read. Grabbing the
// slice header itself still happens under mu (a cheap three-word copy, no
// per-tuple copying) so the shared-memory rule in the Go memory model is
// respected; only the *tuples* are zero-copy, not the synchronization.
func (e *Encoder) DecoderView(copyEntries bool) *Decoder {
	e.mu.Lock()
	blocks := make([]block, len(e.blocks))
	copy(blocks, e.blocks)
	enc := e.encoding

	var headEntries []Tuple
	if copyEntries {
		headEntries = make([]Tuple, len(e.head.entries))
		copy(headEntries, e.head.entries)
	} else {
		n := int(e.headLen.Load())
		full := e.head.entries
		headEntries = full[:n:n]
	}
	e.mu.Unlock()

	return &Decoder{
		blocks:      blocks,
		encoding:    enc,
		headEntries: headEntries,
		pos:         -1,
	}
}
