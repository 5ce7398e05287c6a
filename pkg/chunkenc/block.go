package chunkenc

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"hash"
	"hash/crc32"
	"math"

	"github.com/pkg/errors"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

func newCRC32() hash.Hash32 { return crc32.New(castagnoliTable) }

// block is one finished, compressed run of tuples inside an Encoder.
type block struct {
	b          []byte // compressed bytes
	numEntries int

	mint, maxt int64

	checksum         uint32 // CRC32 (Castagnoli) of b, checked by openBlock
	uncompressedSize int
}

// headBlock holds the raw, uncompressed entries accumulated since the last
// cut(). Entries are appended in whatever order the caller hands them to
// Encoder.Append; headBlock itself does not reorder or reject anything —
// ordering bookkeeping (the ChunkSet-level "chronological" flag) lives one
// layer up, in gtsring.
type headBlock struct {
	entries []Tuple
	size    int // uncompressed bytes, used against blockSize

	mint, maxt int64
}

func (hb *headBlock) isEmpty() bool { return len(hb.entries) == 0 }

// extendRange folds a finished block's [mint, maxt] into the running
// [mint, maxt] an Encoder reports via TimeRange.
func extendRange(haveRange bool, mint, maxt, bmint, bmaxt int64) (int64, int64) {
	if !haveRange {
		return bmint, bmaxt
	}
	if bmint < mint {
		mint = bmint
	}
	if bmaxt > maxt {
		maxt = bmaxt
	}
	return mint, maxt
}

func tupleEncodedSize(t Tuple) int {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutVarint(scratch[:], t.Timestamp)
	n += 8 // location, fixed width
	n += binary.PutVarint(scratch[:], int64(t.Elevation))
	n++ // kind byte
	switch t.Value.Kind {
	case KindLong:
		n += binary.PutVarint(scratch[:], t.Value.Long)
	case KindDouble:
		n += 8
	case KindBool:
		n++
	case KindBytes:
		n += binary.PutUvarint(scratch[:], uint64(len(t.Value.Bytes))) + len(t.Value.Bytes)
	}
	return n
}

func (hb *headBlock) append(t Tuple) {
	first := hb.isEmpty()
	hb.entries = append(hb.entries, t)
	if first || t.Timestamp < hb.mint {
		hb.mint = t.Timestamp
	}
	if first || t.Timestamp > hb.maxt {
		hb.maxt = t.Timestamp
	}
	hb.size += tupleEncodedSize(t)
}

func (hb *headBlock) reset() {
	// Drop the backing array rather than reslicing it: a zero-copy Decoder
	// may still be reading the old entries.
	hb.entries = nil
	hb.size = 0
	hb.mint, hb.maxt = 0, 0
}

// serialise encodes every entry in the head block, varint-framed the same
// way memchunk.go frames (timestamp, line) pairs, compresses the result with
// the given pool, and returns the CRC32 (Castagnoli) of the compressed
// bytes alongside them, mirroring the checksum memchunk.go computes per
// block so openBlock can detect a corrupted block before decompressing it.
func (hb *headBlock) serialise(pool WriterPool) ([]byte, uint32, error) {
	inBuf := serializeBufPool.Get().(*bytes.Buffer)
	defer func() {
		inBuf.Reset()
		serializeBufPool.Put(inBuf)
	}()
	outBuf := &bytes.Buffer{}

	encBuf := make([]byte, binary.MaxVarintLen64)
	compressedWriter := pool.GetWriter(outBuf)
	defer pool.PutWriter(compressedWriter)

	for _, t := range hb.entries {
		writeTuple(inBuf, encBuf, t)
	}

	if _, err := compressedWriter.Write(inBuf.Bytes()); err != nil {
		return nil, 0, errors.Wrap(err, "appending entries")
	}
	if err := compressedWriter.Close(); err != nil {
		return nil, 0, errors.Wrap(err, "flushing pending compress buffer")
	}

	b := outBuf.Bytes()
	crc := newCRC32()
	crc.Write(b)
	return b, crc.Sum32(), nil
}

func writeTuple(buf *bytes.Buffer, encBuf []byte, t Tuple) {
	n := binary.PutVarint(encBuf, t.Timestamp)
	buf.Write(encBuf[:n])

	var locBuf [8]byte
	binary.BigEndian.PutUint64(locBuf[:], uint64(t.Location))
	buf.Write(locBuf[:])

	n = binary.PutVarint(encBuf, int64(t.Elevation))
	buf.Write(encBuf[:n])

	buf.WriteByte(byte(t.Value.Kind))
	switch t.Value.Kind {
	case KindLong:
		n = binary.PutVarint(encBuf, t.Value.Long)
		buf.Write(encBuf[:n])
	case KindDouble:
		var db [8]byte
		binary.BigEndian.PutUint64(db[:], math.Float64bits(t.Value.Double))
		buf.Write(db[:])
	case KindBool:
		if t.Value.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindBytes:
		n = binary.PutUvarint(encBuf, uint64(len(t.Value.Bytes)))
		buf.Write(encBuf[:n])
		buf.Write(t.Value.Bytes)
	}
}

// readTuple decodes one tuple from r, advancing it past the entry. It
// returns io.EOF (unwrapped) when r is exhausted at an entry boundary.
func readTuple(r *bufio.Reader) (Tuple, error) {
	var t Tuple

	ts, err := binary.ReadVarint(r)
	if err != nil {
		return t, err
	}
	t.Timestamp = ts

	var locBuf [8]byte
	if _, err := readFull(r, locBuf[:]); err != nil {
		return t, errors.Wrap(err, "reading location")
	}
	t.Location = Location(binary.BigEndian.Uint64(locBuf[:]))

	elev, err := binary.ReadVarint(r)
	if err != nil {
		return t, errors.Wrap(err, "reading elevation")
	}
	t.Elevation = Elevation(elev)

	kind, err := r.ReadByte()
	if err != nil {
		return t, errors.Wrap(err, "reading value kind")
	}
	t.Value.Kind = Kind(kind)

	switch t.Value.Kind {
	case KindLong:
		v, err := binary.ReadVarint(r)
		if err != nil {
			return t, errors.Wrap(err, "reading long value")
		}
		t.Value.Long = v
	case KindDouble:
		var db [8]byte
		if _, err := readFull(r, db[:]); err != nil {
			return t, errors.Wrap(err, "reading double value")
		}
		t.Value.Double = math.Float64frombits(binary.BigEndian.Uint64(db[:]))
	case KindBool:
		b, err := r.ReadByte()
		if err != nil {
			return t, errors.Wrap(err, "reading bool value")
		}
		t.Value.Bool = b != 0
	case KindBytes:
		l, err := binary.ReadUvarint(r)
		if err != nil {
			return t, errors.Wrap(err, "reading bytes length")
		}
		buf := make([]byte, l)
		if _, err := readFull(r, buf); err != nil {
			return t, errors.Wrap(err, "reading bytes value")
		}
		t.Value.Bytes = buf
	}

	return t, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
