package gtsring

import "testing"

import "github.com/stretchr/testify/require"

func TestChunkEndBoundaries(t *testing.T) {
	const L = 1000
	require.EqualValues(t, -1, ChunkEnd(-1, L))
	require.EqualValues(t, L-1, ChunkEnd(0, L))
	require.EqualValues(t, L-1, ChunkEnd(L-1, L))
	require.EqualValues(t, 2*L-1, ChunkEnd(L, L))
	require.EqualValues(t, -1, ChunkEnd(-L, L))
	require.NotEqual(t, ChunkEnd(0, L), ChunkEnd(L, L))
	require.NotEqual(t, ChunkEnd(-1, L), ChunkEnd(0, L))
}

func TestChunkEndPeriodicity(t *testing.T) {
	const L = 777
	for _, tt := range []int64{-10_000_000, -1, 0, 1, 999_999, -999_999} {
		require.Equal(t, ChunkEnd(tt, L)+L, ChunkEnd(tt+L, L), "t=%d", tt)
	}
}

func TestSlotPeriodicityAndChunkEndAgreement(t *testing.T) {
	const L, C = 100, 4
	for _, tt := range []int64{-10_000_000, -12345, -1, 0, 1, 12345, 10_000_000} {
		require.Equal(t, Slot(tt, L, C), Slot(tt+int64(C)*L, L, C), "t=%d periodicity", tt)
		require.Equal(t, Slot(tt, L, C), Slot(ChunkEnd(tt, L), L, C), "t=%d chunk_end agreement", tt)
	}
}

func TestSlotRange(t *testing.T) {
	const L, C = 37, 5
	for tt := int64(-1000); tt <= 1000; tt++ {
		s := Slot(tt, L, C)
		require.True(t, s >= 0 && s < C, "slot %d out of range for t=%d", s, tt)
	}
}

func TestSlotNegativeZeroBoundary(t *testing.T) {
	require.NotEqual(t, Slot(-1, 1000, 4), Slot(0, 1000, 4))
}
