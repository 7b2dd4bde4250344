package cfb

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how a stream bundle body is compressed. It has no
// effect on the compound file format itself.
type Compression uint16

const (
	CompNone Compression = 0
	CompZIP  Compression = 1
	CompZSTD Compression = 2
	CompLZ4  Compression = 3
	CompBR   Compression = 4
)

func (c Compression) valid() bool {
	switch c {
	case CompNone, CompZIP, CompZSTD, CompLZ4, CompBR:
		return true
	}
	return false
}

func (c Compression) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompZIP:
		return "zip"
	case CompZSTD:
		return "zstd"
	case CompLZ4:
		return "lz4"
	case CompBR:
		return "brotli"
	}
	return fmt.Sprintf("Compression(%d)", uint16(c))
}

// ParseCompression maps a name printed by String back to its value.
func ParseCompression(s string) (Compression, error) {
	for c := CompNone; c <= CompBR; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown compression %q", ErrInvalidPayload, s)
}

// Function variables for testing injection.
var (
	newZstdWriter = func(w io.Writer) (*zstd.Encoder, error) { return zstd.NewWriter(w) }
	newZstdReader = func(r io.Reader) (*zstd.Decoder, error) { return zstd.NewReader(r) }
	zipCreate     = func(zw *zip.Writer, name string) (io.Writer, error) { return zw.Create(name) }
	zipOpen       = func(zf *zip.File) (io.ReadCloser, error) { return zf.Open() }
	lz4Close      = func(w *lz4.Writer) error { return w.Close() }
	brotliClose   = func(w *brotli.Writer) error { return w.Close() }
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type lz4WriteCloser struct{ *lz4.Writer }

func (w lz4WriteCloser) Close() error { return lz4Close(w.Writer) }

type brotliWriteCloser struct{ *brotli.Writer }

func (w brotliWriteCloser) Close() error { return brotliClose(w.Writer) }

// newCompressWriter wraps w with a stream codec. Closing the result flushes
// the codec but does not close w. CompZIP is an archive format, not a
// stream codec, and is refused here.
func newCompressWriter(comp Compression, w io.Writer) (io.WriteCloser, error) {
	switch comp {
	case CompNone:
		return nopWriteCloser{w}, nil
	case CompZSTD:
		return newZstdWriter(w)
	case CompLZ4:
		return lz4WriteCloser{lz4.NewWriter(w)}, nil
	case CompBR:
		return brotliWriteCloser{brotli.NewWriter(w)}, nil
	}
	return nil, fmt.Errorf("%w: %s is not a stream codec", ErrInvalidPayload, comp)
}

// newDecompressReader is the inverse of newCompressWriter.
func newDecompressReader(comp Compression, r io.Reader) (io.ReadCloser, error) {
	switch comp {
	case CompNone:
		return io.NopCloser(r), nil
	case CompZSTD:
		d, err := newZstdReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case CompLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompBR:
		return io.NopCloser(brotli.NewReader(r)), nil
	}
	return nil, fmt.Errorf("%w: %s is not a stream codec", ErrInvalidPayload, comp)
}

// budgetReader fails with ErrLimitExceeded once more than budget bytes have
// been read through it. It guards against decompression bombs.
type budgetReader struct {
	r      io.Reader
	budget uint64
}

func (b *budgetReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if uint64(n) > b.budget {
		b.budget = 0
		return n, fmt.Errorf("%w: bundle expands beyond limit", ErrLimitExceeded)
	}
	b.budget -= uint64(n)
	return n, err
}

// writeZipEntry stores data as a deflated zip entry.
func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	entry, err := zipCreate(zw, name)
	if err != nil {
		return err
	}
	_, err = entry.Write(data)
	return err
}

// readZipEntry reads one entry, enforcing both the declared size and the
// shared budget.
func readZipEntry(zf *zip.File, budget *budgetReader) ([]byte, error) {
	if zf.FileInfo().IsDir() {
		return nil, fmt.Errorf("%w: zip entry %q is a directory", ErrInvalidPayload, zf.Name)
	}
	if zf.UncompressedSize64 > budget.budget {
		return nil, fmt.Errorf("%w: zip entry %q is %d bytes", ErrLimitExceeded, zf.Name, zf.UncompressedSize64)
	}
	rc, err := zipOpen(zf)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	budget.r = io.LimitReader(rc, int64(zf.UncompressedSize64)+1)
	b, err := io.ReadAll(budget)
	if err != nil {
		return nil, err
	}
	if uint64(len(b)) != zf.UncompressedSize64 {
		return nil, fmt.Errorf("%w: zip entry %q is %d bytes, header says %d", ErrInvalidPayload, zf.Name, len(b), zf.UncompressedSize64)
	}
	return b, nil
}
