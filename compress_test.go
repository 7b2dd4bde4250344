package cfb

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"
)

func TestStreamCodecRoundTrip(t *testing.T) {
	in := bytes.Repeat([]byte("compound file bundle "), 500)
	for _, comp := range []Compression{CompNone, CompZSTD, CompLZ4, CompBR} {
		var buf bytes.Buffer
		cw, err := newCompressWriter(comp, &buf)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := cw.Write(in); err != nil {
			t.Fatal(err)
		}
		if err := cw.Close(); err != nil {
			t.Fatal(err)
		}
		if comp != CompNone && buf.Len() >= len(in) {
			t.Fatalf("%s: did not compress (%d bytes)", comp, buf.Len())
		}
		dr, err := newDecompressReader(comp, &buf)
		if err != nil {
			t.Fatal(err)
		}
		out, err := io.ReadAll(dr)
		_ = dr.Close()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(in, out) {
			t.Fatalf("%s: round trip mismatch", comp)
		}
	}
}

func TestStreamCodec_RefusesArchiveAndUnknown(t *testing.T) {
	for _, comp := range []Compression{CompZIP, Compression(42)} {
		if _, err := newCompressWriter(comp, io.Discard); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("%s writer: expected ErrInvalidPayload, got %v", comp, err)
		}
		if _, err := newDecompressReader(comp, strings.NewReader("")); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("%s reader: expected ErrInvalidPayload, got %v", comp, err)
		}
	}
}

func TestParseCompression(t *testing.T) {
	for _, comp := range []Compression{CompNone, CompZIP, CompZSTD, CompLZ4, CompBR} {
		got, err := ParseCompression(comp.String())
		if err != nil || got != comp {
			t.Fatalf("ParseCompression(%q) = %v, %v", comp.String(), got, err)
		}
	}
	if _, err := ParseCompression("gzip"); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if s := Compression(7).String(); s != "Compression(7)" {
		t.Fatalf("String() = %q", s)
	}
}

func TestBudgetReader(t *testing.T) {
	b := &budgetReader{r: strings.NewReader("0123456789"), budget: 10}
	if out, err := io.ReadAll(b); err != nil || len(out) != 10 {
		t.Fatalf("exact budget: %d, %v", len(out), err)
	}
	b = &budgetReader{r: strings.NewReader("0123456789x"), budget: 10}
	if _, err := io.ReadAll(b); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
}

func zipWith(t *testing.T, add func(zw *zip.Writer)) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	add(zw)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	return zr
}

func TestReadZipEntryErrors(t *testing.T) {
	// Entry is a directory
	{
		zr := zipWith(t, func(zw *zip.Writer) {
			h := &zip.FileHeader{Name: "streams/dir"}
			h.SetMode(fs.ModeDir | 0o755)
			_, _ = zw.CreateHeader(h)
		})
		if _, err := readZipEntry(zr.File[0], &budgetReader{budget: 100}); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	}
	// Declared size over budget
	{
		zr := zipWith(t, func(zw *zip.Writer) {
			_ = writeZipEntry(zw, "streams/big", make([]byte, 200))
		})
		if _, err := readZipEntry(zr.File[0], &budgetReader{budget: 100}); !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("expected ErrLimitExceeded, got %v", err)
		}
	}
	// Budget shared across entries
	{
		zr := zipWith(t, func(zw *zip.Writer) {
			_ = writeZipEntry(zw, "streams/a", make([]byte, 60))
			_ = writeZipEntry(zw, "streams/b", make([]byte, 60))
		})
		budget := &budgetReader{budget: 100}
		if _, err := readZipEntry(zr.File[0], budget); err != nil {
			t.Fatal(err)
		}
		if _, err := readZipEntry(zr.File[1], budget); !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("expected ErrLimitExceeded, got %v", err)
		}
	}
	// Ok
	{
		zr := zipWith(t, func(zw *zip.Writer) {
			_ = writeZipEntry(zw, "streams/ok", []byte("payload"))
		})
		got, err := readZipEntry(zr.File[0], &budgetReader{budget: 100})
		if err != nil || string(got) != "payload" {
			t.Fatalf("got %q, %v", got, err)
		}
	}
}
