package gtsring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giwi/gtsstore/pkg/chunkenc"
)

func newTestSet(c uint32, l int64) *ChunkSet {
	return New(c, l, chunkenc.EncNone, nil, nil)
}

func fixedNow(n int64) func() int64 {
	return func() int64 { return n }
}

func storeTuples(t *testing.T, cs *ChunkSet, tss ...int64) {
	t.Helper()
	in := chunkenc.New(0, chunkenc.EncNone)
	for _, ts := range tss {
		require.NoError(t, in.Append(chunkenc.Tuple{Timestamp: ts}))
	}
	require.NoError(t, cs.Store(in))
}

func timestampsOf(t *testing.T, enc *chunkenc.Encoder) []int64 {
	t.Helper()
	d := enc.DecoderView(true)
	var out []int64
	for d.Advance() {
		out = append(out, d.Timestamp())
	}
	require.NoError(t, d.Err())
	return out
}

// Scenario 1 (spec.md §8): sequential store/fetch over C=4, L=1000.
func TestScenarioSequentialStoreAndFetch(t *testing.T) {
	cs := newTestSet(4, 1000)
	cs.now = fixedNow(3999)

	var tss []int64
	for ts := int64(100); ts <= 3900; ts += 100 {
		tss = append(tss, ts)
	}
	storeTuples(t, cs, tss...)

	span, err := cs.FetchSpan(3999, 4000)
	require.NoError(t, err)
	require.ElementsMatch(t, tss, timestampsOf(t, span))

	count, err := cs.FetchCount(3999, 5)
	require.NoError(t, err)
	require.Equal(t, []int64{3500, 3600, 3700, 3800, 3900}, timestampsOf(t, count))
}

// Scenario 2 (spec.md §8): out-of-order arrivals within one slot clear the
// chronological flag; the specific survivors of a Case-C count query are
// documented as codec-defined, so this only asserts the count contract.
func TestScenarioOutOfOrderWithinSlot(t *testing.T) {
	cs := newTestSet(4, 1000)
	cs.now = fixedNow(1999)

	storeTuples(t, cs, 1500)
	storeTuples(t, cs, 1200)
	storeTuples(t, cs, 1700)

	require.False(t, cs.chronological[Slot(1500, 1000, 4)])

	out, err := cs.FetchCount(1999, 2)
	require.NoError(t, err)
	got := timestampsOf(t, out)
	require.Len(t, got, 2)
	require.Subset(t, []int64{1500, 1200, 1700}, got)
}

// Scenario 3 (spec.md §8): a slot's window ages out and is silently
// re-initialised on the next write that maps to it.
func TestScenarioWindowRollOver(t *testing.T) {
	cs := newTestSet(4, 1000)

	cs.now = fixedNow(500)
	storeTuples(t, cs, 400)

	cs.now = fixedNow(4500)
	storeTuples(t, cs, 4400)

	require.Equal(t, Slot(400, 1000, 4), Slot(4400, 1000, 4))

	out, err := cs.FetchSpan(4500, 200)
	require.NoError(t, err)
	require.Equal(t, []int64{4400}, timestampsOf(t, out))
}

// Scenario 4 (spec.md §8): negative timestamps straddling zero occupy
// distinct windows and distinct slots.
func TestScenarioNegativeTimestamps(t *testing.T) {
	const L = 1000
	require.EqualValues(t, -1, ChunkEnd(-1, L))
	require.EqualValues(t, L-1, ChunkEnd(0, L))
	require.NotEqual(t, Slot(-1, L, 4), Slot(0, L, 4))
}

// Scenario 5 (spec.md §8): a slot ages out of the live window entirely and
// clean() evicts it.
func TestScenarioEviction(t *testing.T) {
	cs := newTestSet(2, 1000)
	cs.now = fixedNow(500)
	storeTuples(t, cs, 500)

	dropped := cs.Clean(3500)
	require.Equal(t, 1, dropped)
	require.EqualValues(t, 0, cs.Count())
}

// Scenario 6 (spec.md §8): a count query spanning multiple slots returns
// the newest n tuples, newest slot first, per-slot append order preserved.
func TestScenarioCountQuerySpanningSlots(t *testing.T) {
	cs := newTestSet(3, 100)
	cs.now = fixedNow(299)

	for _, ts := range []int64{0, 50, 100, 150, 200, 250} {
		storeTuples(t, cs, ts)
	}

	out, err := cs.FetchCount(299, 4)
	require.NoError(t, err)
	got := timestampsOf(t, out)
	require.Len(t, got, 4)
	require.ElementsMatch(t, []int64{100, 150, 200, 250}, got)
}

func TestFetchSpanNegativeSpanDelegatesToFetchCount(t *testing.T) {
	cs := newTestSet(4, 1000)
	cs.now = fixedNow(3999)
	storeTuples(t, cs, 100, 200, 300, 400)

	viaSpan, err := cs.FetchSpan(3999, -2)
	require.NoError(t, err)
	viaCount, err := cs.FetchCount(3999, 2)
	require.NoError(t, err)
	require.Equal(t, timestampsOf(t, viaCount), timestampsOf(t, viaSpan))
}

func TestFetchSpanZeroReturnsEmpty(t *testing.T) {
	cs := newTestSet(4, 1000)
	cs.now = fixedNow(3999)
	storeTuples(t, cs, 100, 200, 300)

	out, err := cs.FetchSpan(3999, 0)
	require.NoError(t, err)
	require.Empty(t, timestampsOf(t, out))
}

func TestFetchCountZeroReturnsEmpty(t *testing.T) {
	cs := newTestSet(4, 1000)
	cs.now = fixedNow(3999)
	storeTuples(t, cs, 100, 200, 300)

	out, err := cs.FetchCount(3999, 0)
	require.NoError(t, err)
	require.Empty(t, timestampsOf(t, out))
}

func TestStoreDropsOutOfWindowTuples(t *testing.T) {
	cs := newTestSet(4, 1000)
	cs.now = fixedNow(3999) // live window is [0, 3999]
	storeTuples(t, cs, -500, 100, 5000)

	require.EqualValues(t, 1, cs.Count())
	out, err := cs.FetchSpan(3999, 4000)
	require.NoError(t, err)
	require.Equal(t, []int64{100}, timestampsOf(t, out))
}

func TestCleanIsIdempotent(t *testing.T) {
	cs := newTestSet(2, 1000)
	cs.now = fixedNow(500)
	storeTuples(t, cs, 500)

	require.Equal(t, 1, cs.Clean(3500))
	require.Equal(t, 0, cs.Clean(3500))
}

func TestSingleSlotRingCollapses(t *testing.T) {
	cs := newTestSet(1, 1000)
	cs.now = fixedNow(999)
	storeTuples(t, cs, 0, 500, 999)

	out, err := cs.FetchCount(999, 2)
	require.NoError(t, err)
	require.Equal(t, []int64{500, 999}, timestampsOf(t, out))
}

func TestCountAndSizeAccumulateAcrossSlots(t *testing.T) {
	cs := newTestSet(4, 1000)
	cs.now = fixedNow(3999)
	storeTuples(t, cs, 100, 1100, 2100, 3100)

	require.EqualValues(t, 4, cs.Count())
	require.True(t, cs.Size() > 0)
}

func TestChunkSetClampsZeroCapacityArguments(t *testing.T) {
	cs := New(0, 0, chunkenc.EncNone, nil, nil)
	require.EqualValues(t, 1, cs.ChunkCount())
	require.EqualValues(t, 1, cs.ChunkLength())
}

func TestTimeRangeAndPopulatedSlots(t *testing.T) {
	cs := newTestSet(4, 1000)
	cs.now = fixedNow(3999)

	_, _, ok := cs.TimeRange()
	require.False(t, ok)
	require.Equal(t, 0, cs.PopulatedSlots())

	storeTuples(t, cs, 100, 1100, 2100, 3100)

	require.Equal(t, 4, cs.PopulatedSlots())
	mint, maxt, ok := cs.TimeRange()
	require.True(t, ok)
	require.Equal(t, int64(100), mint)
	require.Equal(t, int64(3100), maxt)
}

func TestUncompressedSizeIsAtLeastSize(t *testing.T) {
	cs := New(2, 1000, chunkenc.EncSnappy, nil, nil)
	cs.now = fixedNow(1999)
	storeTuples(t, cs, 1000, 1500, 1900)

	require.True(t, cs.Size() > 0)
	require.True(t, cs.UncompressedSize() >= cs.Size())
}

func TestManyTuplesFetchCountCase(t *testing.T) {
	cs := newTestSet(2, 1000)
	cs.now = fixedNow(1999)
	for i := int64(0); i < 50; i++ {
		storeTuples(t, cs, 1000+i*10)
	}

	out, err := cs.FetchCount(1999, 10)
	require.NoError(t, err)
	got := timestampsOf(t, out)
	require.Len(t, got, 10)
	require.Equal(t, fmt.Sprintf("%v", []int64{1400, 1410, 1420, 1430, 1440, 1450, 1460, 1470, 1480, 1490}), fmt.Sprintf("%v", got))
}
