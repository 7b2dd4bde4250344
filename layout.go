package cfb

import (
	"fmt"
	"io"

	"github.com/logicossoftware/go-cfb/binrec"
)

// layout places every chain of a container being written. Blocks are
// handed out in write order: mini stream, large streams, directory, mini
// FAT, FAT, DIFAT.
type layout struct {
	bs         BlockSize
	fat        []uint32
	miniFAT    []uint32
	miniStream []byte
	streams    [][]byte

	dirStart      uint32
	dirBlocks     int
	miniFATStart  uint32
	miniFATBlocks int
	fatLocs       []uint32
	difatStart    uint32
	difatBlocks   int
}

func blocksFor(n, size int) int { return (n + size - 1) / size }

func (l *layout) allocate(n int) uint32 {
	if n == 0 {
		return EndOfChain
	}
	start := uint32(len(l.fat))
	for i := 1; i < n; i++ {
		l.fat = append(l.fat, start+uint32(i))
	}
	l.fat = append(l.fat, EndOfChain)
	return start
}

func (l *layout) allocateMini(n int) uint32 {
	if n == 0 {
		return EndOfChain
	}
	start := uint32(len(l.miniFAT))
	for i := 1; i < n; i++ {
		l.miniFAT = append(l.miniFAT, start+uint32(i))
	}
	l.miniFAT = append(l.miniFAT, EndOfChain)
	return start
}

// planLayout sets the start block and size of every written stream and of
// the root's mini stream. It must run before PreWrite serializes the table.
func planLayout(fsys *FileSystem, bs BlockSize) (*layout, error) {
	order, _, err := fsys.table.reachable()
	if err != nil {
		return nil, err
	}
	l := &layout{bs: bs, miniFATStart: EndOfChain, difatStart: EndOfChain}

	var big []*Property
	for _, p := range order {
		if p.Type != TypeDocument {
			continue
		}
		data := fsys.data[p]
		p.setSize(uint64(len(data)))
		switch {
		case len(data) == 0:
			p.StartBlock = EndOfChain
		case len(data) < MiniStreamCutoff:
			p.StartBlock = l.allocateMini(blocksFor(len(data), MiniBlockSize))
			l.miniStream = append(l.miniStream, data...)
			if rem := len(l.miniStream) % MiniBlockSize; rem != 0 {
				l.miniStream = append(l.miniStream, make([]byte, MiniBlockSize-rem)...)
			}
		default:
			big = append(big, p)
		}
	}

	root := order[0]
	root.setSize(uint64(len(l.miniStream)))
	root.StartBlock = l.allocate(blocksFor(len(l.miniStream), int(bs)))
	for _, p := range big {
		data := fsys.data[p]
		p.StartBlock = l.allocate(blocksFor(len(data), int(bs)))
		l.streams = append(l.streams, data)
	}

	l.dirBlocks = blocksFor(len(order), bs.propertiesPerBlock())
	l.dirStart = l.allocate(l.dirBlocks)
	if len(l.miniFAT) > 0 {
		l.miniFATBlocks = blocksFor(len(l.miniFAT), bs.entries())
		l.miniFATStart = l.allocate(l.miniFATBlocks)
	}
	l.planAllocationTables()
	if uint64(len(l.fat)) > uint64(MaxRegularBlock) {
		return nil, fmt.Errorf("%w: %d blocks", ErrLimitExceeded, len(l.fat))
	}
	return l, nil
}

// planAllocationTables sizes the FAT and DIFAT. Both describe themselves,
// so their counts are iterated until they stop growing.
func (l *layout) planAllocationTables() {
	base := len(l.fat)
	epb := l.bs.entries()
	fat, difat := 0, 0
	for {
		needFAT := blocksFor(base+fat+difat, epb)
		needDIFAT := 0
		if needFAT > headerDIFATEntries {
			needDIFAT = blocksFor(needFAT-headerDIFATEntries, epb-1)
		}
		if needFAT == fat && needDIFAT == difat {
			break
		}
		fat, difat = needFAT, needDIFAT
	}
	for i := 0; i < fat; i++ {
		l.fatLocs = append(l.fatLocs, uint32(len(l.fat)))
		l.fat = append(l.fat, FATBlock)
	}
	if difat > 0 {
		l.difatStart = uint32(len(l.fat))
	}
	for i := 0; i < difat; i++ {
		l.fat = append(l.fat, DIFATBlock)
	}
	l.difatBlocks = difat
	for len(l.fat) < fat*epb {
		l.fat = append(l.fat, FreeBlock)
	}
}

func (l *layout) header() header {
	h := newHeader(l.bs)
	if l.bs == BlockSize4096 {
		h.DirBlockCount = uint32(l.dirBlocks)
	}
	h.FATBlockCount = uint32(len(l.fatLocs))
	h.FirstDirBlock = l.dirStart
	h.FirstMiniFATBlock = l.miniFATStart
	h.MiniFATBlockCount = uint32(l.miniFATBlocks)
	h.FirstDIFATBlock = l.difatStart
	h.DIFATBlockCount = uint32(l.difatBlocks)
	for i := 0; i < len(l.fatLocs) && i < headerDIFATEntries; i++ {
		h.DIFAT[i] = l.fatLocs[i]
	}
	return h
}

// writeBlocks writes every block after the header. dir is the serialized
// property table.
func (l *layout) writeBlocks(w io.Writer, dir []byte) error {
	if len(dir) != l.dirBlocks*int(l.bs) {
		return fmt.Errorf("%w: directory is %d bytes, planned %d blocks", ErrNotPrepared, len(dir), l.dirBlocks)
	}
	if err := writePadded(w, l.miniStream, l.bs); err != nil {
		return err
	}
	for _, s := range l.streams {
		if err := writePadded(w, s, l.bs); err != nil {
			return err
		}
	}
	if _, err := w.Write(dir); err != nil {
		return err
	}
	epb := l.bs.entries()
	if err := writeTable(w, l.miniFAT, l.miniFATBlocks*epb); err != nil {
		return err
	}
	if err := writeTable(w, l.fat, len(l.fatLocs)*epb); err != nil {
		return err
	}
	if len(l.fatLocs) <= headerDIFATEntries {
		return nil
	}
	rest := l.fatLocs[headerDIFATEntries:]
	for i := 0; i < l.difatBlocks; i++ {
		n := min(epb-1, len(rest))
		entries := make([]uint32, epb)
		copy(entries, rest[:n])
		for j := n; j < epb-1; j++ {
			entries[j] = FreeBlock
		}
		rest = rest[n:]
		entries[epb-1] = EndOfChain
		if i+1 < l.difatBlocks {
			entries[epb-1] = l.difatStart + uint32(i+1)
		}
		if err := writeTable(w, entries, epb); err != nil {
			return err
		}
	}
	return nil
}

func writePadded(w io.Writer, data []byte, bs BlockSize) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if rem := len(data) % int(bs); rem != 0 {
		_, err := w.Write(make([]byte, int(bs)-rem))
		return err
	}
	return nil
}

// writeTable writes entries padded with FreeBlock to n entries.
func writeTable(w io.Writer, entries []uint32, n int) error {
	if n == 0 {
		return nil
	}
	bw := binrec.NewWriter(4 * n)
	for i := 0; i < n; i++ {
		if i < len(entries) {
			bw.Uint32(entries[i])
		} else {
			bw.Uint32(FreeBlock)
		}
	}
	_, err := w.Write(bw.Bytes())
	return err
}
