package gtsring

// ChunkEnd returns the inclusive end of the L-wide time window containing
// t. Windows tile the integer timeline with no overlap or gap, including
// across the zero boundary: t=0 and t=L always fall in different windows,
// as do t=-1 and t=0.
func ChunkEnd(t, chunkLength int64) int64 {
	if t >= 0 {
		return (t/chunkLength)*chunkLength + chunkLength - 1
	}
	return ((t+1)/chunkLength-1)*chunkLength + chunkLength - 1
}

// Slot returns the ring index, 0 <= Slot < chunkCount, that t's window maps
// to. Slot(t) == Slot(t + chunkCount*chunkLength) for every t whose
// ChunkEnd does not overflow, and Slot(ChunkEnd(t)) == Slot(t) always.
func Slot(t, chunkLength int64, chunkCount int) int {
	c := int64(chunkCount)
	if t >= 0 {
		return int((t / chunkLength) % c)
	}
	m := ((t + 1) / chunkLength) % c
	return int(c + m - 1)
}
