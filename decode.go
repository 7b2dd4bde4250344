package cfb

import (
	"bytes"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Open reads a compound file of size bytes from r.
//
// The read:
//  1. Reads and validates the header
//  2. Reassembles the FAT from the header DIFAT and the DIFAT chain
//  3. Reads the directory chain and rebuilds the property tree
//  4. Reads every document, from the mini stream when it is smaller than
//     the mini stream cutoff
//
// All document bytes are loaded, so r is not used after Open returns.
// Any failure yields no FileSystem: ErrInvalidMagic or ErrOOXML for foreign
// data, ErrUnsupportedVersion, ErrInvalidHeader, ErrInvalidBlock,
// ErrChainLoop or ErrCorruptTree for damaged containers, and
// ErrLimitExceeded when a configured limit is hit.
func Open(r io.ReaderAt, size int64, opts ...ReadOption) (*FileSystem, error) {
	cfg := newReadConfig(opts)

	h, err := readHeader(r, size)
	if err != nil {
		return nil, err
	}
	if err := validateHeader(h); err != nil {
		return nil, err
	}
	store, err := newBlockStore(r, size, h, cfg)
	if err != nil {
		return nil, err
	}
	table, err := readPropertyTable(store, h.FirstDirBlock, cfg)
	if err != nil {
		return nil, err
	}
	root, err := table.Root()
	if err != nil {
		return nil, err
	}

	var mini *miniStore
	needMini := false
	for _, p := range table.props {
		if p != nil && p.Type == TypeDocument && p.Size > 0 && p.Size < MiniStreamCutoff {
			needMini = true
			break
		}
	}
	if needMini {
		if mini, err = loadMiniStore(store, h, root); err != nil {
			return nil, err
		}
	}

	fsys := &FileSystem{
		table:     table,
		data:      make(map[*Property][]byte),
		blockSize: store.BlockSize(),
		limits:    cfg.limits,
		logger:    cfg.logger,
	}
	var total uint64
	for _, p := range table.props {
		if p == nil || p.Type != TypeDocument {
			continue
		}
		total += p.Size
		if total > cfg.limits.MaxTotalSize {
			return nil, fmt.Errorf("%w: streams total more than %d bytes", ErrLimitExceeded, cfg.limits.MaxTotalSize)
		}
		var data []byte
		if p.Size < MiniStreamCutoff {
			data, err = mini.readChainOrEmpty(p.StartBlock, p.Size)
		} else {
			data, err = store.ReadChain(p.StartBlock, p.Size)
		}
		if err != nil {
			return nil, fmt.Errorf("stream %q: %w", p.Name, err)
		}
		fsys.data[p] = data
	}
	cfg.logger.Debug("opened compound file",
		zap.Int("block_size", int(store.BlockSize())),
		zap.Int("blocks", store.NumBlocks()),
		zap.Int("properties", table.Len()))
	return fsys, nil
}

func (m *miniStore) readChainOrEmpty(start uint32, size uint64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	return m.readChain(start, size)
}

// Decode reads a whole compound file from r and opens it. Input larger
// than Limits.MaxTotalSize is refused.
func Decode(r io.Reader, opts ...ReadOption) (*FileSystem, error) {
	cfg := newReadConfig(opts)
	buf, err := io.ReadAll(io.LimitReader(r, cfg.limits.readCap()))
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) > cfg.limits.MaxTotalSize {
		return nil, fmt.Errorf("%w: input exceeds %d bytes", ErrLimitExceeded, cfg.limits.MaxTotalSize)
	}
	return Open(bytes.NewReader(buf), int64(len(buf)), opts...)
}
