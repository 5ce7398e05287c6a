package chunkenc

import "github.com/pkg/errors"

// ErrOutOfOrder names the failure of an append that would write entries
// within a single block out of timestamp order. No code in this package
// returns it: headBlock.append accepts tuples in any order, and ChunkSet
// tolerates out-of-order input (§4.2 of the spec) by routing it through the
// head block directly. It remains here for parity with the teacher's
// block-append contract.
var ErrOutOfOrder = errors.New("chunkenc: entries out of order")

// ErrInvalidChecksum is returned when a decoded block's CRC does not match.
var ErrInvalidChecksum = errors.New("chunkenc: invalid checksum")

// CodecError wraps a failure from appending to, or decoding, an encoder's
// buffer. Callers of gtsring.ChunkSet see this type (or an error that wraps
// it) surfaced verbatim from Store/FetchSpan/FetchCount per spec.md §7.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return "chunkenc: " + e.Op + ": " + e.Err.Error()
}

func (e *CodecError) Unwrap() error { return e.Err }

// wrapCodecErr is a constructor used throughout the package instead of
// building CodecError literals inline, mirroring errors.Wrap's call shape.
func wrapCodecErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CodecError{Op: op, Err: errors.WithStack(err)}
}
