package gtsring

import (
	"sync"

	"github.com/go-kit/kit/log"

	"github.com/giwi/gtsstore/pkg/chunkenc"
	"github.com/giwi/gtsstore/pkg/metricsink"
)

// ChunkSet is a fixed-capacity ring covering a total window of
// chunkCount*chunkLength time units. chunkCount and chunkLength are
// immutable after construction.
//
// A single mutex (mu) guards only the four metadata arrays below; the
// encoders themselves are appended to and decoded from outside the lock,
// per the lock-discipline design in spec.md §5.
type ChunkSet struct {
	mu sync.Mutex

	chunkCount  uint32
	chunkLength int64
	encoding    chunkenc.Encoding

	chunks        []*chunkenc.Encoder
	chunkEnds     []int64
	chronological []bool
	lastTs        []int64

	sink   metricsink.Sink
	logger log.Logger

	// now is overridden in tests; production callers get time.Now's wall
	// clock via the default set in New.
	now func() int64
}

// New returns an empty ChunkSet with the given slot count and slot length.
// A zero chunkCount or a non-positive chunkLength is raised to 1. sink receives eviction counts from Clean; a nil sink
// is replaced with metricsink.NopSink{}. A nil logger is replaced with
// log.NewNopLogger().
func New(chunkCount uint32, chunkLength int64, enc chunkenc.Encoding, sink metricsink.Sink, logger log.Logger) *ChunkSet {
	if chunkCount == 0 {
		chunkCount = 1
	}
	if chunkLength <= 0 {
		chunkLength = 1
	}
	if sink == nil {
		sink = metricsink.NopSink{}
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &ChunkSet{
		chunkCount:    chunkCount,
		chunkLength:   chunkLength,
		encoding:      enc,
		chunks:        make([]*chunkenc.Encoder, chunkCount),
		chunkEnds:     make([]int64, chunkCount),
		chronological: make([]bool, chunkCount),
		lastTs:        make([]int64, chunkCount),
		sink:          sink,
		logger:        logger,
		now:           wallClockNow,
	}
}

// ChunkCount returns the ring's immutable slot count.
func (cs *ChunkSet) ChunkCount() uint32 { return cs.chunkCount }

// ChunkLength returns the ring's immutable slot length.
func (cs *ChunkSet) ChunkLength() int64 { return cs.chunkLength }

// SetClock overrides the wall clock Store and FetchSpan read "now" from.
// Production callers never need this; it exists for tests and for tools
// like cmd/gtsinspect that replay historical data against a caller-chosen
// instant instead of the real wall clock.
func (cs *ChunkSet) SetClock(now func() int64) {
	cs.now = now
}
