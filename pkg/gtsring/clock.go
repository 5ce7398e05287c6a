package gtsring

import "time"

// wallClockNow is the default source Store and FetchSpan read "now" from;
// tests substitute ChunkSet.now to get deterministic timestamps.
func wallClockNow() int64 {
	return time.Now().UnixNano()
}
