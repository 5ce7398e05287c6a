package chunkenc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func tuple(ts int64) Tuple {
	return Tuple{
		Timestamp: ts,
		Location:  Location(ts * 7),
		Elevation: Elevation(ts % 100),
		Value:     Value{Kind: KindLong, Long: ts * 2},
	}
}

func TestEncoderRoundTrip(t *testing.T) {
	for _, enc := range []Encoding{EncNone, EncSnappy, EncLZ4, EncGZIP} {
		enc := enc
		t.Run(enc.String(), func(t *testing.T) {
			e := New(0, enc)
			want := []Tuple{tuple(100), tuple(200), tuple(300)}
			for _, tp := range want {
				require.NoError(t, e.Append(tp))
			}

			require.EqualValues(t, 3, e.Count())

			d := e.DecoderView(true)
			var got []Tuple
			for d.Advance() {
				got = append(got, d.Tuple())
			}
			require.NoError(t, d.Err())
			require.Equal(t, want, got)
			require.EqualValues(t, 3, d.Count())
		})
	}
}

func TestEncoderCutsBlocks(t *testing.T) {
	e := New(0, EncSnappy)
	e.blockSize = 1 // cut after every append

	for i := int64(0); i < 5; i++ {
		require.NoError(t, e.Append(tuple(i*10)))
	}
	require.EqualValues(t, 5, e.Count())
	require.True(t, len(e.blocks) >= 4, "expected multiple cut blocks, got %d", len(e.blocks))

	d := e.DecoderView(false)
	var got []int64
	for d.Advance() {
		got = append(got, d.Timestamp())
	}
	require.NoError(t, d.Err())
	require.Equal(t, []int64{0, 10, 20, 30, 40}, got)
}

func TestDecoderViewZeroCopySeesPriorAppends(t *testing.T) {
	e := New(0, EncNone)
	require.NoError(t, e.Append(tuple(1)))
	require.NoError(t, e.Append(tuple(2)))

	d := e.DecoderView(false)

	// Appends after the view was taken must not appear in it.
	require.NoError(t, e.Append(tuple(3)))

	var got []int64
	for d.Advance() {
		got = append(got, d.Timestamp())
	}
	require.NoError(t, d.Err())
	require.Equal(t, []int64{1, 2}, got)
}

func TestValueKinds(t *testing.T) {
	e := New(0, EncNone)
	tuples := []Tuple{
		{Timestamp: 1, Value: Value{Kind: KindLong, Long: -42}},
		{Timestamp: 2, Value: Value{Kind: KindDouble, Double: 3.5}},
		{Timestamp: 3, Value: Value{Kind: KindBool, Bool: true}},
		{Timestamp: 4, Value: Value{Kind: KindBytes, Bytes: []byte("geo")}},
	}
	for _, tp := range tuples {
		require.NoError(t, e.Append(tp))
	}
	d := e.DecoderView(true)
	var got []Tuple
	for d.Advance() {
		got = append(got, d.Tuple())
	}
	require.NoError(t, d.Err())
	require.Equal(t, tuples, got)
}

func TestEncoderCutBlockChecksumDetectsCorruption(t *testing.T) {
	e := New(0, EncSnappy)
	e.blockSize = 1
	require.NoError(t, e.Append(tuple(10)))
	require.NoError(t, e.Append(tuple(20)))
	require.True(t, len(e.blocks) >= 1)

	e.blocks[0].b[0] ^= 0xFF

	d := e.DecoderView(false)
	d.Advance()
	require.Error(t, d.Err())
	require.True(t, errors.Is(d.Err(), ErrInvalidChecksum))
}

func TestEncoderTimeRangeAndUncompressedSize(t *testing.T) {
	e := New(0, EncSnappy)
	e.blockSize = 1 // cut after every append, so the range comes from cut blocks

	_, _, ok := e.TimeRange()
	require.False(t, ok)

	require.NoError(t, e.Append(tuple(100)))
	require.NoError(t, e.Append(tuple(50)))
	require.NoError(t, e.Append(tuple(200)))

	mint, maxt, ok := e.TimeRange()
	require.True(t, ok)
	require.Equal(t, int64(50), mint)
	require.Equal(t, int64(200), maxt)

	require.True(t, e.UncompressedSize() > 0)
	require.True(t, e.Size() > 0)
}

// TestDecoderReusesReaderPool exercises the Decoder's openBlock/closeBlock
// pairing across multiple blocks: every GetReader must be balanced by a
// PutReader, so a compressor's decoder is reused rather than reallocated
// per block.
func TestDecoderReusesReaderPool(t *testing.T) {
	e := New(0, EncSnappy)
	e.blockSize = 1
	for i := int64(0); i < 4; i++ {
		require.NoError(t, e.Append(tuple(i*10)))
	}
	require.True(t, len(e.blocks) >= 3)

	pool := getReaderPool(EncSnappy).(*snappyPool)

	d := e.DecoderView(false)
	var got []int64
	for d.Advance() {
		got = append(got, d.Timestamp())
	}
	require.NoError(t, d.Err())
	require.Equal(t, []int64{0, 10, 20, 30}, got)

	// After decoding every block, the pool must have at least one reader
	// available for reuse instead of every GetReader leaking its reader.
	v := pool.readers.Get()
	require.NotNil(t, v, "expected a decompressor reader to have been returned to the pool")
}

func TestParseEncoding(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Encoding
	}{
		{"", EncNone},
		{"none", EncNone},
		{"snappy", EncSnappy},
		{"lz4", EncLZ4},
		{"gzip", EncGZIP},
	} {
		got, err := ParseEncoding(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := ParseEncoding("bogus")
	require.Error(t, err)
}
