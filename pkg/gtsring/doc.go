// Package gtsring implements ChunkSet, an in-memory rolling chunk store for
// a single Geo Time Series: a bounded-time ring of C slots of length L,
// each holding a chunkenc.Encoder of (timestamp, location, elevation,
// value) tuples. It absorbs a continuous stream of measurements, evicts
// data older than the C*L-wide live window, and answers two bounded
// retrieval queries, by timespan (FetchSpan) and by count (FetchCount).
//
// The ring's correctness rests on two pure functions, ChunkEnd and Slot,
// which map a signed timestamp to the window and ring index it belongs to,
// and on a per-slot chronological flag that lets FetchCount skip sorting
// whenever a slot's writes happened to arrive in order.
package gtsring
