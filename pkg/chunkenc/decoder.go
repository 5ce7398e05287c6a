package chunkenc

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Decoder is a forward cursor over an Encoder's tuples, implementing the
// Decoder side of spec.md §6.1. It first yields every entry from the
// encoder's compressed blocks (oldest first), then the head block's raw
// entries, matching append order.
type Decoder struct {
	blocks      []block
	encoding    Encoding
	headEntries []Tuple

	blockIdx   int
	blockBuf   *bufio.Reader
	closer     io.Closer
	readerPool ReaderPool
	rawReader  io.Reader

	pos int // -1 before the first Advance

	cur Tuple
	err error
}

// Advance moves to the next tuple, returning false at the end of the
// buffer or on a decode error (check Err() to distinguish the two).
func (d *Decoder) Advance() bool {
	if d.err != nil {
		return false
	}
	for {
		if d.blockBuf == nil {
			if d.blockIdx >= len(d.blocks) {
				break
			}
			if err := d.openBlock(d.blocks[d.blockIdx]); err != nil {
				d.err = err
				return false
			}
		}

		t, err := readTuple(d.blockBuf)
		if err == nil {
			d.cur = t
			return true
		}
		if !errors.Is(err, io.EOF) {
			d.err = wrapCodecErr("decoding block", err)
			return false
		}
		d.closeBlock()
		d.blockIdx++
	}

	if d.pos+1 < len(d.headEntries) {
		d.pos++
		d.cur = d.headEntries[d.pos]
		return true
	}
	return false
}

func (d *Decoder) openBlock(b block) error {
	crc := newCRC32()
	crc.Write(b.b)
	if crc.Sum32() != b.checksum {
		return wrapCodecErr("checksum", ErrInvalidChecksum)
	}

	pool := getReaderPool(d.encoding)
	r := pool.GetReader(bytes.NewReader(b.b))
	d.closer, _ = r.(io.Closer)
	d.readerPool = pool
	d.rawReader = r
	d.blockBuf = getBufioReader(r)
	return nil
}

// closeBlock returns the block's decompressor and bufio.Reader to their
// pools, mirroring the teacher's getWriterPool/getReaderPool pairing: every
// GetReader is balanced by a PutReader once the block is fully consumed.
func (d *Decoder) closeBlock() {
	if d.blockBuf != nil {
		putBufioReader(d.blockBuf)
		d.blockBuf = nil
	}
	if d.closer != nil {
		_ = d.closer.Close()
		d.closer = nil
	}
	if d.readerPool != nil {
		d.readerPool.PutReader(d.rawReader)
		d.readerPool = nil
		d.rawReader = nil
	}
}

// Timestamp returns the current tuple's timestamp.
func (d *Decoder) Timestamp() int64 { return d.cur.Timestamp }

// Location returns the current tuple's opaque location.
func (d *Decoder) Location() Location { return d.cur.Location }

// Elevation returns the current tuple's opaque elevation.
func (d *Decoder) Elevation() Elevation { return d.cur.Elevation }

// Value returns the current tuple's opaque value.
func (d *Decoder) Value() Value { return d.cur.Value }

// Tuple returns the full current tuple, a convenience beyond the
// field-at-a-time accessors spec.md §6.1 requires.
func (d *Decoder) Tuple() Tuple { return d.cur }

// Count returns the total number of tuples in the underlying buffer,
// independent of the cursor's current position.
func (d *Decoder) Count() uint64 {
	n := uint64(len(d.headEntries))
	for _, b := range d.blocks {
		n += uint64(b.numEntries)
	}
	return n
}

// Err returns the first decode error encountered, if any.
func (d *Decoder) Err() error { return d.err }
