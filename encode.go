package cfb

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// prepareTable is swapped in tests to inject failures.
var prepareTable = func(t *PropertyTable) error { return t.PreWrite() }

// Encode writes fsys to w as a compound file.
//
// The table is validated before writing: names, sibling uniqueness and
// configured size limits. Encode then:
//   - places streams shorter than the mini stream cutoff in the mini stream
//   - assigns every other chain a contiguous run of blocks
//   - rebuilds every sibling tree and serializes the directory
//   - sizes the FAT and DIFAT to cover the whole file
//
// Use WriteOption functions to customize this behavior:
//   - WithBlockSize(b): write 512-byte (version 3) or 4096-byte (version 4) blocks
//   - WithWriteLimits(l): set custom size limits
//   - WithWriteLogger(l): receive write diagnostics
//
// On error the file system is left intact and Encode may be retried.
func Encode(w io.Writer, fsys *FileSystem, opts ...WriteOption) error {
	if fsys == nil {
		return fmt.Errorf("%w: file system is nil", ErrValidation)
	}
	cfg := newWriteConfig(fsys.blockSize, opts)
	if !cfg.blockSize.valid() {
		return fmt.Errorf("%w: block size %d", ErrValidation, cfg.blockSize)
	}
	t := fsys.table
	if err := validateTable(t, cfg.limits); err != nil {
		return err
	}
	if t.blockSize != cfg.blockSize {
		t.blockSize = cfg.blockSize
		t.touch()
	}
	t.logger = cfg.logger

	lay, err := planLayout(fsys, cfg.blockSize)
	if err != nil {
		return err
	}
	if err := prepareTable(t); err != nil {
		return err
	}
	dir, err := t.Bytes()
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, lay.header(), cfg.blockSize); err != nil {
		return err
	}
	if err := lay.writeBlocks(bw, dir); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	fsys.blockSize = cfg.blockSize
	cfg.logger.Debug("wrote compound file",
		zap.Int("block_size", int(cfg.blockSize)),
		zap.Int("blocks", len(lay.fat)),
		zap.Int("fat_blocks", len(lay.fatLocs)),
		zap.Int("difat_blocks", lay.difatBlocks))
	return nil
}

// Encode writes the file system to w. See the package-level Encode.
func (fsys *FileSystem) Encode(w io.Writer, opts ...WriteOption) error {
	return Encode(w, fsys, opts...)
}
