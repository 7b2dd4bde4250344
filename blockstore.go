package cfb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// BlockStore resolves block chains over the container bytes. Block i lives
// at byte offset (i+1)*blockSize; the first block-sized span is the header.
// A BlockStore is not safe for concurrent use.
type BlockStore struct {
	r         io.ReaderAt
	blockSize BlockSize
	numBlocks int
	fat       []uint32
	limits    Limits
	logger    *zap.Logger
}

func newBlockStore(r io.ReaderAt, size int64, h header, cfg readConfig) (*BlockStore, error) {
	if uint64(size) > cfg.limits.MaxTotalSize {
		return nil, fmt.Errorf("%w: container is %d bytes", ErrLimitExceeded, size)
	}
	bs := h.blockSize()
	n := (size - int64(bs)) / int64(bs)
	if n < 0 {
		n = 0
	}
	if rem := (size - int64(bs)) % int64(bs); rem > 0 {
		cfg.logger.Debug("ignoring partial trailing block", zap.Int64("bytes", rem))
	}
	s := &BlockStore{
		r:         r,
		blockSize: bs,
		numBlocks: int(n),
		limits:    cfg.limits,
		logger:    cfg.logger,
	}
	if err := s.loadFAT(h); err != nil {
		return nil, err
	}
	return s, nil
}

// BlockSize reports the sector size.
func (s *BlockStore) BlockSize() BlockSize { return s.blockSize }

// NumBlocks reports the number of whole blocks after the header.
func (s *BlockStore) NumBlocks() int { return s.numBlocks }

// Block returns a copy of block i.
func (s *BlockStore) Block(i uint32) ([]byte, error) {
	if i > MaxRegularBlock || int64(i) >= int64(s.numBlocks) {
		return nil, fmt.Errorf("%w: block %d of %d", ErrInvalidBlock, i, s.numBlocks)
	}
	buf := make([]byte, int(s.blockSize))
	off := (int64(i) + 1) * int64(s.blockSize)
	n, err := s.r.ReadAt(buf, off)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("block %d: %w", i, err)
}

// NextBlock returns the allocation table entry for block i.
func (s *BlockStore) NextBlock(i uint32) (uint32, error) {
	if int64(i) >= int64(len(s.fat)) {
		return 0, fmt.Errorf("%w: block %d outside allocation table of %d", ErrInvalidBlock, i, len(s.fat))
	}
	return s.fat[i], nil
}

// FetchBlocks returns the blocks of the chain starting at start, in chain
// order. A start of EndOfChain yields no blocks.
func (s *BlockStore) FetchBlocks(start uint32) ([][]byte, error) {
	var blocks [][]byte
	err := walkChain(start, s.fat, s.numBlocks, s.limits.MaxChainLength, func(i uint32) error {
		b, err := s.Block(i)
		if err != nil {
			return err
		}
		blocks = append(blocks, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// ReadChain reads size bytes from the chain at start. Blocks past size are
// not visited; a chain that ends early is an error.
func (s *BlockStore) ReadChain(start uint32, size uint64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if size > s.limits.MaxStreamSize {
		return nil, fmt.Errorf("%w: stream of %d bytes", ErrLimitExceeded, size)
	}
	if size > uint64(s.numBlocks)*uint64(s.blockSize) {
		return nil, fmt.Errorf("%w: stream of %d bytes exceeds container", ErrInvalidBlock, size)
	}
	out := make([]byte, 0, size)
	err := walkChain(start, s.fat, s.numBlocks, s.limits.MaxChainLength, func(i uint32) error {
		b, err := s.Block(i)
		if err != nil {
			return err
		}
		out = append(out, b...)
		if uint64(len(out)) >= size {
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, err
	}
	if uint64(len(out)) < size {
		return nil, fmt.Errorf("%w: chain at %d ends after %d of %d bytes", ErrInvalidBlock, start, len(out), size)
	}
	return out[:size], nil
}

var errStopWalk = errors.New("stop")

// walkChain visits each block of a chain. Indexes must fall inside count
// blocks and the allocation table; revisiting a block or passing maxLen
// blocks fails.
func walkChain(start uint32, next []uint32, count, maxLen int, visit func(uint32) error) error {
	seen := make(map[uint32]struct{})
	for cur := start; cur != EndOfChain; {
		if cur > MaxRegularBlock || int64(cur) >= int64(count) || int64(cur) >= int64(len(next)) {
			return fmt.Errorf("%w: block %d of %d", ErrInvalidBlock, cur, count)
		}
		if _, dup := seen[cur]; dup {
			return fmt.Errorf("%w: block %d revisited", ErrChainLoop, cur)
		}
		if len(seen) >= maxLen {
			return fmt.Errorf("%w: chain longer than %d blocks", ErrLimitExceeded, maxLen)
		}
		seen[cur] = struct{}{}
		if err := visit(cur); err != nil {
			return err
		}
		cur = next[cur]
	}
	return nil
}

// claimSet records blocks owned by the allocation tables themselves. Each
// block may be claimed once.
type claimSet []bool

func (c claimSet) claim(i uint32) error {
	if int64(i) >= int64(len(c)) {
		return fmt.Errorf("%w: allocation block %d of %d", ErrInvalidBlock, i, len(c))
	}
	if c[i] {
		return fmt.Errorf("%w: allocation block %d claimed twice", ErrChainLoop, i)
	}
	c[i] = true
	return nil
}

func (s *BlockStore) loadFAT(h header) error {
	count := int(h.FATBlockCount)
	if int64(h.FATBlockCount) > int64(s.numBlocks) {
		return fmt.Errorf("%w: %d FAT blocks in a container of %d", ErrInvalidHeader, h.FATBlockCount, s.numBlocks)
	}
	claimed := make(claimSet, s.numBlocks)
	locs := make([]uint32, 0, count)
	for i := 0; i < count && i < headerDIFATEntries; i++ {
		locs = append(locs, h.DIFAT[i])
	}
	per := s.blockSize.entries() - 1
	next := h.FirstDIFATBlock
	for i := 0; i < int(h.DIFATBlockCount) && len(locs) < count; i++ {
		if err := claimed.claim(next); err != nil {
			return err
		}
		b, err := s.Block(next)
		if err != nil {
			return err
		}
		for j := 0; j < per && len(locs) < count; j++ {
			locs = append(locs, le32(b, j))
		}
		next = le32(b, per)
	}
	if len(locs) < count {
		return fmt.Errorf("%w: DIFAT lists %d of %d FAT blocks", ErrInvalidHeader, len(locs), count)
	}

	entries := s.blockSize.entries()
	s.fat = make([]uint32, 0, count*entries)
	for _, loc := range locs {
		if err := claimed.claim(loc); err != nil {
			return err
		}
		b, err := s.Block(loc)
		if err != nil {
			return err
		}
		for j := 0; j < entries; j++ {
			s.fat = append(s.fat, le32(b, j))
		}
	}
	return nil
}

// readTable reads a chain of uint32 entries, such as the mini FAT.
func (s *BlockStore) readTable(start uint32) ([]uint32, error) {
	blocks, err := s.FetchBlocks(start)
	if err != nil {
		return nil, err
	}
	entries := s.blockSize.entries()
	out := make([]uint32, 0, len(blocks)*entries)
	for _, b := range blocks {
		for j := 0; j < entries; j++ {
			out = append(out, le32(b, j))
		}
	}
	return out, nil
}

func le32(b []byte, i int) uint32 {
	return binary.LittleEndian.Uint32(b[4*i : 4*i+4])
}

// miniStore serves 64-byte mini blocks carved out of the root entry's
// stream, chained through the mini FAT.
type miniStore struct {
	stream []byte
	fat    []uint32
	limits Limits
}

func loadMiniStore(s *BlockStore, h header, root *Property) (*miniStore, error) {
	stream, err := s.ReadChain(root.StartBlock, root.Size)
	if err != nil {
		return nil, fmt.Errorf("mini stream: %w", err)
	}
	m := &miniStore{stream: stream, limits: s.limits}
	if h.MiniFATBlockCount == 0 || h.FirstMiniFATBlock == EndOfChain {
		return m, nil
	}
	if m.fat, err = s.readTable(h.FirstMiniFATBlock); err != nil {
		return nil, fmt.Errorf("mini FAT: %w", err)
	}
	return m, nil
}

func (m *miniStore) readChain(start uint32, size uint64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	count := len(m.stream) / MiniBlockSize
	if size > uint64(count)*MiniBlockSize {
		return nil, fmt.Errorf("%w: mini stream of %d bytes exceeds mini store", ErrInvalidBlock, size)
	}
	out := make([]byte, 0, size)
	err := walkChain(start, m.fat, count, m.limits.MaxChainLength, func(i uint32) error {
		off := int(i) * MiniBlockSize
		out = append(out, m.stream[off:off+MiniBlockSize]...)
		if uint64(len(out)) >= size {
			return errStopWalk
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopWalk) {
		return nil, err
	}
	if uint64(len(out)) < size {
		return nil, fmt.Errorf("%w: mini chain at %d ends after %d of %d bytes", ErrInvalidBlock, start, len(out), size)
	}
	return out[:size], nil
}
