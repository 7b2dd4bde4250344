package cfb

import (
	"bytes"
	"errors"
	"testing"
)

func fixtureStore(t *testing.T, opts ...ReadOption) (*BlockStore, []byte) {
	t.Helper()
	b := bigDocFile(t)
	s, err := newBlockStore(bytes.NewReader(b), int64(len(b)), decodeHeader(b), newReadConfig(opts))
	if err != nil {
		t.Fatal(err)
	}
	return s, b
}

func TestBlockStore_Chains(t *testing.T) {
	s, b := fixtureStore(t)
	if s.NumBlocks() != 10 || s.BlockSize() != BlockSize512 {
		t.Fatalf("%d blocks of %d", s.NumBlocks(), s.BlockSize())
	}
	data, err := s.ReadChain(0, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, pattern(4096, 6)) {
		t.Fatal("stream content")
	}
	part, err := s.ReadChain(0, 700)
	if err != nil || !bytes.Equal(part, data[:700]) {
		t.Fatalf("partial read: %v", err)
	}
	dir, err := s.FetchBlocks(8)
	if err != nil {
		t.Fatal(err)
	}
	if len(dir) != 1 || !bytes.Equal(dir[0], b[blockOffset(8):blockOffset(9)]) {
		t.Fatal("directory chain")
	}
	if blocks, err := s.FetchBlocks(EndOfChain); err != nil || len(blocks) != 0 {
		t.Fatalf("empty chain: %d, %v", len(blocks), err)
	}
	next, err := s.NextBlock(7)
	if err != nil || next != EndOfChain {
		t.Fatalf("NextBlock(7) = %#x, %v", next, err)
	}
}

func TestBlockStore_OutOfRange(t *testing.T) {
	s, _ := fixtureStore(t)
	if _, err := s.Block(10); !errors.Is(err, ErrInvalidBlock) {
		t.Fatalf("expected ErrInvalidBlock, got %v", err)
	}
	if _, err := s.Block(FATBlock); !errors.Is(err, ErrInvalidBlock) {
		t.Fatalf("expected ErrInvalidBlock, got %v", err)
	}
	if _, err := s.NextBlock(1 << 20); !errors.Is(err, ErrInvalidBlock) {
		t.Fatalf("expected ErrInvalidBlock, got %v", err)
	}
	if _, err := s.ReadChain(0, 20*512); !errors.Is(err, ErrInvalidBlock) {
		t.Fatalf("expected ErrInvalidBlock, got %v", err)
	}
}

func TestBlockStore_Limits(t *testing.T) {
	s, _ := fixtureStore(t, WithReadLimits(Limits{MaxChainLength: 3, MaxStreamSize: 2048}))
	if _, err := s.FetchBlocks(0); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if _, err := s.ReadChain(0, 4096); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if _, err := s.ReadChain(0, 1024); err != nil {
		t.Fatal(err)
	}

	b := bigDocFile(t)
	_, err := newBlockStore(bytes.NewReader(b), int64(len(b)), decodeHeader(b), newReadConfig([]ReadOption{WithReadLimits(Limits{MaxTotalSize: 1024})}))
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
}

func TestWalkChain(t *testing.T) {
	next := []uint32{1, 2, EndOfChain, 0, 99}
	var got []uint32
	visit := func(i uint32) error { got = append(got, i); return nil }

	if err := walkChain(0, next, len(next), 100, visit); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Fatalf("visited %v", got)
	}

	loop := []uint32{1, 2, 0}
	if err := walkChain(0, loop, len(loop), 100, visit); !errors.Is(err, ErrChainLoop) {
		t.Fatalf("expected ErrChainLoop, got %v", err)
	}
	if err := walkChain(4, next, len(next), 100, visit); !errors.Is(err, ErrInvalidBlock) {
		t.Fatalf("expected ErrInvalidBlock, got %v", err)
	}
	if err := walkChain(3, next, len(next), 3, visit); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if err := walkChain(0, next, 2, 100, visit); !errors.Is(err, ErrInvalidBlock) {
		t.Fatalf("expected ErrInvalidBlock for a block past the file, got %v", err)
	}
	stop := errors.New("stop here")
	if err := walkChain(0, next, len(next), 100, func(uint32) error { return stop }); !errors.Is(err, stop) {
		t.Fatalf("visitor error lost: %v", err)
	}
}
