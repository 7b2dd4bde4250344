package cfb

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/logicossoftware/go-cfb/binrec"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// A stream bundle is an exchange form of a compound file: a 16-byte header
// followed by an archive holding a CBOR manifest and one entry per
// document.
var BundleMagic = [8]byte{'C', 'F', 'B', 'U', 'N', 'D', 'L', 'E'}

const (
	BundleVersion    uint16 = 1
	bundleHeaderSize        = 16
	manifestName            = "manifest.cbor"
	streamPrefix            = "streams/"
)

// ManifestEntry describes one directory or document of a bundle.
type ManifestEntry struct {
	Path      string       `cbor:"1,keyasint"`
	Type      PropertyType `cbor:"2,keyasint"`
	ClassID   []byte       `cbor:"3,keyasint,omitempty"`
	StateBits uint32       `cbor:"4,keyasint,omitempty"`
	Created   uint64       `cbor:"5,keyasint,omitempty"`
	Modified  uint64       `cbor:"6,keyasint,omitempty"`
	Size      uint64       `cbor:"7,keyasint,omitempty"`
	Digest    []byte       `cbor:"8,keyasint,omitempty"` // BLAKE3-256 of the stream
}

// Manifest lists a bundle's entries, parents before children.
type Manifest struct {
	Version     uint16          `cbor:"1,keyasint"`
	BlockSize   int             `cbor:"2,keyasint"`
	RootClassID []byte          `cbor:"3,keyasint,omitempty"`
	Entries     []ManifestEntry `cbor:"4,keyasint"`
}

var (
	manifestEncMode cbor.EncMode
	manifestDecMode cbor.DecMode
)

func init() {
	var err error
	manifestEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cfb: CBOR encoder initialization failed: " + err.Error())
	}
	manifestDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("cfb: CBOR decoder initialization failed: " + err.Error())
	}
}

func classIDBytes(c ClassID) []byte {
	if c.IsZero() {
		return nil
	}
	return c[:]
}

// buildManifest describes fsys and collects the document bytes by path.
func buildManifest(fsys *FileSystem) (Manifest, map[string][]byte, error) {
	m := Manifest{
		Version:     BundleVersion,
		BlockSize:   int(fsys.blockSize),
		RootClassID: classIDBytes(fsys.Root().ClassID),
	}
	streams := make(map[string][]byte)
	err := fsys.Walk(func(name string, p *Property) error {
		if err := validateEntryPath(name); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrValidation, name, err)
		}
		e := ManifestEntry{
			Path:      name,
			Type:      p.Type,
			ClassID:   classIDBytes(p.ClassID),
			StateBits: p.StateBits,
			Created:   p.Created,
			Modified:  p.Modified,
		}
		if p.Type == TypeDocument {
			data := fsys.data[p]
			sum := blake3.Sum256(data)
			e.Size = uint64(len(data))
			e.Digest = sum[:]
			streams[name] = data
		}
		m.Entries = append(m.Entries, e)
		return nil
	})
	return m, streams, err
}

func writeBundleHeader(w io.Writer, comp Compression) error {
	bw := binrec.NewWriter(bundleHeaderSize)
	bw.Write(BundleMagic[:])
	bw.Uint16(BundleVersion)
	bw.Uint16(uint16(comp))
	bw.Uint32(0)
	_, err := w.Write(bw.Bytes())
	return err
}

// Export writes every directory and document of fsys as a stream bundle.
// Compression is chosen with WithCompression.
func Export(w io.Writer, fsys *FileSystem, opts ...WriteOption) error {
	if fsys == nil {
		return fmt.Errorf("%w: file system is nil", ErrValidation)
	}
	cfg := newWriteConfig(fsys.blockSize, opts)
	if !cfg.compression.valid() {
		return fmt.Errorf("%w: unknown compression %d", ErrInvalidPayload, cfg.compression)
	}
	m, streams, err := buildManifest(fsys)
	if err != nil {
		return err
	}
	if len(m.Entries) > cfg.limits.MaxBundleEntries {
		return fmt.Errorf("%w: %d bundle entries", ErrLimitExceeded, len(m.Entries))
	}
	mb, err := manifestEncMode.Marshal(m)
	if err != nil {
		return err
	}
	if err := writeBundleHeader(w, cfg.compression); err != nil {
		return err
	}

	if cfg.compression == CompZIP {
		zw := zip.NewWriter(w)
		if err := writeZipEntry(zw, manifestName, mb); err != nil {
			_ = zw.Close()
			return err
		}
		for _, e := range m.Entries {
			if e.Type != TypeDocument {
				continue
			}
			if err := writeZipEntry(zw, streamPrefix+e.Path, streams[e.Path]); err != nil {
				_ = zw.Close()
				return err
			}
		}
		return zw.Close()
	}

	cw, err := newCompressWriter(cfg.compression, w)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(cw)
	if err := writeTarEntry(tw, manifestName, mb); err != nil {
		_ = cw.Close()
		return err
	}
	for _, e := range m.Entries {
		if e.Type != TypeDocument {
			continue
		}
		if err := writeTarEntry(tw, streamPrefix+e.Path, streams[e.Path]); err != nil {
			_ = cw.Close()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		_ = cw.Close()
		return err
	}
	if err := cw.Close(); err != nil {
		return err
	}
	cfg.logger.Debug("exported stream bundle",
		zap.Stringer("compression", cfg.compression),
		zap.Int("entries", len(m.Entries)))
	return nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(data)),
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

// Import reads a stream bundle and rebuilds the file system it describes.
// Stream digests are checked against the manifest.
func Import(r io.Reader, opts ...ReadOption) (*FileSystem, error) {
	cfg := newReadConfig(opts)
	var hb [bundleHeaderSize]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		return nil, fmt.Errorf("%w: bundle header: %v", ErrInvalidPayload, err)
	}
	c := binrec.NewCursor(hb[:])
	magic, _ := c.Bytes(8)
	version, _ := c.Uint16()
	compRaw, _ := c.Uint16()
	reserved, _ := c.Uint32()
	if [8]byte(magic) != BundleMagic {
		return nil, ErrInvalidMagic
	}
	if version != BundleVersion {
		return nil, fmt.Errorf("%w: bundle version %d", ErrUnsupportedVersion, version)
	}
	if reserved != 0 {
		return nil, fmt.Errorf("%w: reserved must be zero", ErrInvalidPayload)
	}
	comp := Compression(compRaw)
	if !comp.valid() {
		return nil, fmt.Errorf("%w: unknown compression %d", ErrInvalidPayload, compRaw)
	}

	var files map[string][]byte
	var err error
	if comp == CompZIP {
		files, err = readZipBundle(r, cfg.limits)
	} else {
		files, err = readTarBundle(r, comp, cfg.limits)
	}
	if err != nil {
		return nil, err
	}
	mb, ok := files[manifestName]
	if !ok {
		return nil, fmt.Errorf("%w: bundle has no manifest", ErrInvalidPayload)
	}
	var m Manifest
	if err := manifestDecMode.Unmarshal(mb, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrInvalidPayload, err)
	}
	fsys, err := applyManifest(m, files, cfg)
	if err != nil {
		return nil, err
	}
	cfg.logger.Debug("imported stream bundle",
		zap.Stringer("compression", comp),
		zap.Int("entries", len(m.Entries)))
	return fsys, nil
}

func readTarBundle(r io.Reader, comp Compression, limits Limits) (map[string][]byte, error) {
	dr, err := newDecompressReader(comp, r)
	if err != nil {
		return nil, err
	}
	defer dr.Close()
	tr := tar.NewReader(&budgetReader{r: dr, budget: limits.MaxBundleUncompressed})
	files := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return nil, bundleReadError(err)
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil, fmt.Errorf("%w: tar entry %q is not a regular file", ErrInvalidPayload, hdr.Name)
		}
		if len(files) > limits.MaxBundleEntries {
			return nil, fmt.Errorf("%w: more than %d bundle entries", ErrLimitExceeded, limits.MaxBundleEntries)
		}
		if _, dup := files[hdr.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %q", ErrInvalidPayload, hdr.Name)
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return nil, bundleReadError(err)
		}
		files[hdr.Name] = b
	}
}

func bundleReadError(err error) error {
	if errors.Is(err, ErrLimitExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
}

func readZipBundle(r io.Reader, limits Limits) (map[string][]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limits.readCap()))
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) > limits.MaxTotalSize {
		return nil, fmt.Errorf("%w: bundle exceeds %d bytes", ErrLimitExceeded, limits.MaxTotalSize)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(zr.File) > limits.MaxBundleEntries+1 {
		return nil, fmt.Errorf("%w: %d bundle entries", ErrLimitExceeded, len(zr.File))
	}
	budget := &budgetReader{budget: limits.MaxBundleUncompressed}
	files := make(map[string][]byte, len(zr.File))
	for _, zf := range zr.File {
		if _, dup := files[zf.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %q", ErrInvalidPayload, zf.Name)
		}
		b, err := readZipEntry(zf, budget)
		if err != nil {
			return nil, err
		}
		files[zf.Name] = b
	}
	return files, nil
}

func applyManifest(m Manifest, files map[string][]byte, cfg readConfig) (*FileSystem, error) {
	if m.Version != BundleVersion {
		return nil, fmt.Errorf("%w: manifest version %d", ErrUnsupportedVersion, m.Version)
	}
	if len(m.Entries) > cfg.limits.MaxBundleEntries {
		return nil, fmt.Errorf("%w: %d bundle entries", ErrLimitExceeded, len(m.Entries))
	}
	bs := BlockSize(m.BlockSize)
	if !bs.valid() {
		return nil, fmt.Errorf("%w: block size %d", ErrInvalidPayload, m.BlockSize)
	}
	fsys := New(WithBlockSize(bs), WithWriteLimits(cfg.limits), WithWriteLogger(cfg.logger))
	root := fsys.Root()
	if len(m.RootClassID) > 0 {
		if len(m.RootClassID) != len(root.ClassID) {
			return nil, fmt.Errorf("%w: root class id is %d bytes", ErrInvalidPayload, len(m.RootClassID))
		}
		copy(root.ClassID[:], m.RootClassID)
	}

	used := map[string]struct{}{manifestName: {}}
	for i, e := range m.Entries {
		if err := validateEntryPath(e.Path); err != nil {
			return nil, fmt.Errorf("%w: entry %d path: %v", ErrInvalidPayload, i, err)
		}
		parent := root
		if dir := path.Dir(e.Path); dir != "." {
			p, err := fsys.Lookup(dir)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %q: %v", ErrInvalidPayload, e.Path, err)
			}
			parent = p
		}
		name := path.Base(e.Path)

		var p *Property
		var err error
		switch e.Type {
		case TypeDirectory:
			p, err = fsys.CreateDirectory(parent, name)
		case TypeDocument:
			key := streamPrefix + e.Path
			data, ok := files[key]
			if !ok {
				return nil, fmt.Errorf("%w: stream %q missing", ErrInvalidPayload, e.Path)
			}
			used[key] = struct{}{}
			if uint64(len(data)) != e.Size {
				return nil, fmt.Errorf("%w: stream %q is %d bytes, manifest says %d", ErrInvalidPayload, e.Path, len(data), e.Size)
			}
			if len(e.Digest) > 0 {
				sum := blake3.Sum256(data)
				if subtle.ConstantTimeCompare(sum[:], e.Digest) != 1 {
					return nil, fmt.Errorf("%w: stream %q digest mismatch", ErrValidation, e.Path)
				}
			}
			p, err = fsys.CreateDocument(parent, name, data)
		default:
			return nil, fmt.Errorf("%w: entry %q has type %s", ErrInvalidPayload, e.Path, e.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Path, err)
		}
		if len(e.ClassID) > 0 {
			if len(e.ClassID) != len(p.ClassID) {
				return nil, fmt.Errorf("%w: entry %q class id is %d bytes", ErrInvalidPayload, e.Path, len(e.ClassID))
			}
			copy(p.ClassID[:], e.ClassID)
		}
		p.StateBits = e.StateBits
		p.Created = e.Created
		p.Modified = e.Modified
	}
	for name := range files {
		if _, ok := used[name]; !ok {
			if strings.HasPrefix(name, streamPrefix) {
				return nil, fmt.Errorf("%w: stream %q not in manifest", ErrInvalidPayload, name)
			}
			return nil, fmt.Errorf("%w: unexpected entry %q", ErrInvalidPayload, name)
		}
	}
	return fsys, nil
}
