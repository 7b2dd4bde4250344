package cfb

import (
	"archive/tar"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func exportFS(t *testing.T, fsys *FileSystem, comp Compression) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Export(&buf, fsys, WithCompression(comp)); err != nil {
		t.Fatalf("Export(%s): %v", comp, err)
	}
	return buf.Bytes()
}

func importErr(b []byte, opts ...ReadOption) error {
	_, err := Import(bytes.NewReader(b), opts...)
	return err
}

func TestBundleRoundTrip(t *testing.T) {
	in := sampleFS(t)
	for _, comp := range []Compression{CompNone, CompZIP, CompZSTD, CompLZ4, CompBR} {
		t.Run(comp.String(), func(t *testing.T) {
			b := exportFS(t, in, comp)
			if !bytes.Equal(b[:8], BundleMagic[:]) {
				t.Fatalf("magic %q", b[:8])
			}
			if got := Compression(binary.LittleEndian.Uint16(b[10:])); got != comp {
				t.Fatalf("header compression %s", got)
			}
			out, err := Import(bytes.NewReader(b))
			if err != nil {
				t.Fatal(err)
			}
			sameTree(t, in, out)
			if out.BlockSize() != in.BlockSize() {
				t.Fatalf("block size %d", out.BlockSize())
			}
		})
	}
}

func TestBundle_ImportThenEncode(t *testing.T) {
	in := sampleFS(t, WithBlockSize(BlockSize4096))
	out, err := Import(bytes.NewReader(exportFS(t, in, CompZSTD)))
	if err != nil {
		t.Fatal(err)
	}
	if out.BlockSize() != BlockSize4096 {
		t.Fatalf("block size %d", out.BlockSize())
	}
	b := encodeFS(t, out)
	if len(b)%4096 != 0 {
		t.Fatalf("encoded length %d", len(b))
	}
	sameTree(t, in, openBytes(t, b))
}

func TestBundle_DigestMismatch(t *testing.T) {
	fsys := New()
	marker := bytes.Repeat([]byte("tamper-me!"), 20)
	mustDoc(t, fsys, fsys.Root(), "Stream", marker)
	b := exportFS(t, fsys, CompNone)
	i := bytes.Index(b, marker)
	if i < 0 {
		t.Fatal("stream bytes not found in uncompressed bundle")
	}
	b[i] ^= 0xFF
	if err := importErr(b); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestBundle_HeaderErrors(t *testing.T) {
	good := exportFS(t, sampleFS(t), CompNone)
	cases := []struct {
		name  string
		patch func(b []byte) []byte
		want  error
	}{
		{"magic", func(b []byte) []byte { b[0] = 'X'; return b }, ErrInvalidMagic},
		{"version", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[8:], 2); return b }, ErrUnsupportedVersion},
		{"compression", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[10:], 9); return b }, ErrInvalidPayload},
		{"reserved", func(b []byte) []byte { b[12] = 1; return b }, ErrInvalidPayload},
		{"short", func(b []byte) []byte { return b[:10] }, ErrInvalidPayload},
		{"body", func(b []byte) []byte { binary.LittleEndian.PutUint16(b[10:], uint16(CompZIP)); return b }, ErrInvalidPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.patch(bytes.Clone(good))
			if err := importErr(b); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

// rawTarBundle writes an uncompressed bundle holding exactly files, in order.
func rawTarBundle(t *testing.T, files ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := writeBundleHeader(&buf, CompNone); err != nil {
		t.Fatal(err)
	}
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		if err := writeTarEntry(tw, f[0], []byte(f[1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func manifestBytes(t *testing.T, fsys *FileSystem) string {
	t.Helper()
	m, _, err := buildManifest(fsys)
	if err != nil {
		t.Fatal(err)
	}
	b, err := manifestEncMode.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestBundle_ContentErrors(t *testing.T) {
	fsys := New()
	mustDoc(t, fsys, fsys.Root(), "A", []byte("alpha"))
	man := manifestBytes(t, fsys)

	cases := []struct {
		name  string
		files [][2]string
		want  error
	}{
		{"no manifest", [][2]string{{"streams/A", "alpha"}}, ErrInvalidPayload},
		{"garbage manifest", [][2]string{{manifestName, "\xff\xff"}, {"streams/A", "alpha"}}, ErrInvalidPayload},
		{"missing stream", [][2]string{{manifestName, man}}, ErrInvalidPayload},
		{"size mismatch", [][2]string{{manifestName, man}, {"streams/A", "alphabet"}}, ErrInvalidPayload},
		{"extra stream", [][2]string{{manifestName, man}, {"streams/A", "alpha"}, {"streams/B", "beta"}}, ErrInvalidPayload},
		{"stray file", [][2]string{{manifestName, man}, {"streams/A", "alpha"}, {"notes.txt", "hi"}}, ErrInvalidPayload},
		{"duplicate entry", [][2]string{{manifestName, man}, {"streams/A", "alpha"}, {"streams/A", "alpha"}}, ErrInvalidPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := importErr(rawTarBundle(t, tc.files...)); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	fsys2, err := Import(bytes.NewReader(rawTarBundle(t, [2]string{manifestName, man}, [2]string{"streams/A", "alpha"})))
	if err != nil {
		t.Fatal(err)
	}
	p, err := fsys2.Lookup("A")
	if err != nil {
		t.Fatal(err)
	}
	if d, _ := fsys2.ReadDocument(p); string(d) != "alpha" {
		t.Fatalf("content %q", d)
	}
}

func TestBundle_Limits(t *testing.T) {
	in := sampleFS(t)
	small := WithReadLimits(Limits{MaxBundleUncompressed: 4096})
	for _, comp := range []Compression{CompZIP, CompZSTD, CompBR} {
		if err := importErr(exportFS(t, in, comp), small); !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("%s: expected ErrLimitExceeded, got %v", comp, err)
		}
	}
	if err := importErr(exportFS(t, in, CompLZ4), WithReadLimits(Limits{MaxBundleEntries: 3})); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded for entry count, got %v", err)
	}
	var buf bytes.Buffer
	if err := Export(&buf, in, WithWriteLimits(Limits{MaxBundleEntries: 3})); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded on export, got %v", err)
	}
}

func TestExport_Errors(t *testing.T) {
	if err := Export(io.Discard, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := Export(io.Discard, New(), WithCompression(Compression(9))); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	for _, comp := range []Compression{CompNone, CompZIP, CompZSTD} {
		if err := Export(&failingWriter{n: 20}, sampleFS(t), WithCompression(comp)); err == nil {
			t.Fatalf("%s: expected write error", comp)
		}
	}
}
