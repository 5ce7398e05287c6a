package chunkenc

import (
	"bufio"
	"bytes"
	"compress/flate"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// WriterPool is implemented by a pool of compressors for a given Encoding,
// the same pairing chunkenc.getWriterPool/getReaderPool provide in the
// teacher (memchunk.go), just written out here since that pool file itself
// wasn't part of the retrieved pack.
type WriterPool interface {
	GetWriter(io.Writer) io.WriteCloser
	PutWriter(io.WriteCloser)
}

// ReaderPool mirrors WriterPool for decompression.
type ReaderPool interface {
	GetReader(io.Reader) io.Reader
	PutReader(io.Reader)
}

var (
	noneWriterPool   = &nopWriterPool{}
	snappyWriterPool = &snappyPool{}
	lz4WriterPool    = &lz4Pool{bufPool: sync.Pool{New: func() interface{} { return lz4.NewWriter(nil) }}}
	gzipWriterPool   = &gzipPool{level: flate.DefaultCompression}
)

func getWriterPool(enc Encoding) WriterPool {
	switch enc {
	case EncSnappy:
		return snappyWriterPool
	case EncLZ4:
		return lz4WriterPool
	case EncGZIP:
		return gzipWriterPool
	default:
		return noneWriterPool
	}
}

func getReaderPool(enc Encoding) ReaderPool {
	switch enc {
	case EncSnappy:
		return snappyWriterPool
	case EncLZ4:
		return lz4WriterPool
	case EncGZIP:
		return gzipWriterPool
	default:
		return noneWriterPool
	}
}

// nopWriterPool implements WriterPool/ReaderPool for EncNone: no
// compression, just a thin pass-through so callers don't special-case it.
type nopWriterPool struct{}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (nopWriterPool) GetWriter(w io.Writer) io.WriteCloser { return nopWriteCloser{w} }
func (nopWriterPool) PutWriter(io.WriteCloser)             {}
func (nopWriterPool) GetReader(r io.Reader) io.Reader      { return r }
func (nopWriterPool) PutReader(io.Reader)                  {}

// snappyPool pools snappy.Writer/Reader values, avoiding a fresh allocation
// per cut block.
type snappyPool struct {
	writers sync.Pool
	readers sync.Pool
}

func (p *snappyPool) GetWriter(w io.Writer) io.WriteCloser {
	if v := p.writers.Get(); v != nil {
		sw := v.(*snappy.Writer)
		sw.Reset(w)
		return sw
	}
	return snappy.NewBufferedWriter(w)
}

func (p *snappyPool) PutWriter(w io.WriteCloser) {
	p.writers.Put(w)
}

func (p *snappyPool) GetReader(r io.Reader) io.Reader {
	if v := p.readers.Get(); v != nil {
		sr := v.(*snappy.Reader)
		sr.Reset(r)
		return sr
	}
	return snappy.NewReader(r)
}

func (p *snappyPool) PutReader(r io.Reader) {
	p.readers.Put(r)
}

// lz4Pool pools lz4.Writer/Reader values.
type lz4Pool struct {
	bufPool sync.Pool
	readers sync.Pool
}

func (p *lz4Pool) GetWriter(w io.Writer) io.WriteCloser {
	if v := p.bufPool.Get(); v != nil {
		lw := v.(*lz4.Writer)
		lw.Reset(w)
		return lw
	}
	lw := lz4.NewWriter(w)
	return lw
}

func (p *lz4Pool) PutWriter(w io.WriteCloser) {
	p.bufPool.Put(w)
}

func (p *lz4Pool) GetReader(r io.Reader) io.Reader {
	if v := p.readers.Get(); v != nil {
		lr := v.(*lz4.Reader)
		lr.Reset(r)
		return lr
	}
	return lz4.NewReader(r)
}

func (p *lz4Pool) PutReader(r io.Reader) {
	p.readers.Put(r)
}

// gzipPool pools gzip.Writer/Reader values.
type gzipPool struct {
	level   int
	writers sync.Pool
	readers sync.Pool
}

func (p *gzipPool) GetWriter(w io.Writer) io.WriteCloser {
	if v := p.writers.Get(); v != nil {
		gw := v.(*gzip.Writer)
		gw.Reset(w)
		return gw
	}
	gw, err := gzip.NewWriterLevel(w, p.level)
	if err != nil {
		// p.level is always a valid constant; this cannot happen.
		panic(errors.Wrap(err, "gzip.NewWriterLevel"))
	}
	return gw
}

func (p *gzipPool) PutWriter(w io.WriteCloser) {
	p.writers.Put(w)
}

func (p *gzipPool) GetReader(r io.Reader) io.Reader {
	if v := p.readers.Get(); v != nil {
		gr := v.(*gzip.Reader)
		if err := gr.Reset(r); err != nil {
			return errReader{err}
		}
		return gr
	}
	gr, err := gzip.NewReader(r)
	if err != nil {
		return errReader{err}
	}
	return gr
}

func (p *gzipPool) PutReader(r io.Reader) {
	if gr, ok := r.(*gzip.Reader); ok {
		p.readers.Put(gr)
	}
}

// errReader is returned when a reader pool fails to (re)initialize its
// underlying decompressor; Read immediately surfaces the stored error.
type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// bufioReaderPool pools *bufio.Reader values wrapping arbitrary io.Reader,
// used by Decoder.openBlock to avoid a bufio.Reader allocation per block.
var bufioReaderPool = sync.Pool{
	New: func() interface{} { return bufio.NewReaderSize(nil, 4096) },
}

func getBufioReader(r io.Reader) *bufio.Reader {
	br := bufioReaderPool.Get().(*bufio.Reader)
	br.Reset(r)
	return br
}

func putBufioReader(br *bufio.Reader) {
	br.Reset(nil)
	bufioReaderPool.Put(br)
}

// serializeBufPool pools *bytes.Buffer values used while serialising a head
// block, avoiding a fresh allocation on every cut().
var serializeBufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}
