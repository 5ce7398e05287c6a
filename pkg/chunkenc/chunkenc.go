// Package chunkenc implements the encoder/decoder codec a gtsring.ChunkSet
// depends on: an append-only, compressed buffer of GTS tuples plus a
// forward-cursor decoder over it.
//
// The shape (head block of raw entries, cut into compressed blocks once a
// size threshold is crossed) is the same one Loki's MemChunk uses for log
// lines; here the entries are GTS tuples instead.
package chunkenc

import "fmt"

// Encoding selects the compression applied to cut blocks.
type Encoding byte

const (
	// EncNone stores cut blocks uncompressed.
	EncNone Encoding = iota
	// EncSnappy compresses cut blocks with snappy.
	EncSnappy
	// EncLZ4 compresses cut blocks with lz4.
	EncLZ4
	// EncGZIP compresses cut blocks with gzip.
	EncGZIP
)

func (e Encoding) String() string {
	switch e {
	case EncNone:
		return "none"
	case EncSnappy:
		return "snappy"
	case EncLZ4:
		return "lz4"
	case EncGZIP:
		return "gzip"
	default:
		return fmt.Sprintf("unknown(%d)", byte(e))
	}
}

// ParseEncoding parses the string form used in config files and flags.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "none":
		return EncNone, nil
	case "snappy":
		return EncSnappy, nil
	case "lz4":
		return EncLZ4, nil
	case "gzip":
		return EncGZIP, nil
	default:
		return EncNone, fmt.Errorf("unknown chunk encoding: %q", s)
	}
}

// Location is an opaque packed geohash. ChunkSet never interprets it.
type Location uint64

// Elevation is a signed altitude, in opaque units. ChunkSet never interprets it.
type Elevation int64

// Kind discriminates the payload carried by a Value.
type Kind byte

const (
	// KindLong marks a Value carrying an integer payload in Long.
	KindLong Kind = iota
	// KindDouble marks a Value carrying a float payload in Double.
	KindDouble
	// KindBool marks a Value carrying a boolean payload in Bool.
	KindBool
	// KindBytes marks a Value carrying an opaque payload in Bytes.
	KindBytes
)

// Value is an opaque, discriminated scalar. ChunkSet never interprets it.
type Value struct {
	Kind   Kind
	Long   int64
	Double float64
	Bool   bool
	Bytes  []byte
}

// Tuple is one GTS datapoint. ChunkSet only ever reads Timestamp.
type Tuple struct {
	Timestamp int64
	Location  Location
	Elevation Elevation
	Value     Value
}
