// Package source opens GC log files, transparently decompressing gzip, lz4,
// zstd and framed snappy content detected by magic bytes.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type Compression int

const (
	None Compression = iota
	Gzip
	LZ4
	Zstd
	Snappy
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case Snappy:
		return "snappy"
	}
	return "none"
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	// stream identifier chunk of the snappy framing format
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
)

const magicLen = 10

// Detect identifies the compression of a stream from its first bytes.
func Detect(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	case bytes.HasPrefix(head, lz4Magic):
		return LZ4
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	case bytes.HasPrefix(head, snappyMagic):
		return Snappy
	}
	return None
}

// Reader yields the decoded text of a GC log.
type Reader struct {
	io.Reader

	Compression Compression

	file    *os.File
	size    int64
	counter *countingReader
	closers []func() error
}

// Open opens path and wraps it in the matching decompressor.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gc log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gc log: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open gc log: %s is a directory", path)
	}

	counter := &countingReader{r: f}
	r, err := newReader(counter)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gc log: %w", err)
	}

	r.file = f
	r.size = info.Size()
	r.counter = counter
	return r, nil
}

// NewReader wraps an already open stream. Close releases the decompressor
// but not src.
func NewReader(src io.Reader) (*Reader, error) {
	return newReader(src)
}

func newReader(src io.Reader) (*Reader, error) {
	br := bufio.NewReader(src)

	head, err := br.Peek(magicLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	r := &Reader{Compression: Detect(head)}

	switch r.Compression {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		r.Reader = zr
		r.closers = append(r.closers, zr.Close)
	case LZ4:
		r.Reader = lz4.NewReader(br)
	case Zstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		r.Reader = zr
		r.closers = append(r.closers, func() error {
			zr.Close()
			return nil
		})
	case Snappy:
		r.Reader = snappy.NewReader(br)
	default:
		r.Reader = br
	}

	return r, nil
}

// Size is the on-disk size of the file, or 0 for streams.
func (r *Reader) Size() int64 {
	return r.size
}

// Offset is the number of on-disk bytes consumed so far. It is safe to call
// from another goroutine while the log is being read.
func (r *Reader) Offset() int64 {
	if r.counter == nil {
		return 0
	}
	return r.counter.n.Load()
}

func (r *Reader) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	if r.file != nil {
		errs = append(errs, r.file.Close())
	}
	return errors.Join(errs...)
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
