package cfb

import (
	"fmt"
	"io"

	"github.com/logicossoftware/go-cfb/binrec"
)

type header struct {
	Magic             [8]byte
	ClassID           ClassID
	MinorVersion      uint16
	MajorVersion      uint16
	ByteOrder         uint16
	BlockShift        uint16
	MiniBlockShift    uint16
	Reserved          [6]byte
	DirBlockCount     uint32
	FATBlockCount     uint32
	FirstDirBlock     uint32
	TransactionSig    uint32
	MiniStreamCutoff  uint32
	FirstMiniFATBlock uint32
	MiniFATBlockCount uint32
	FirstDIFATBlock   uint32
	DIFATBlockCount   uint32
	DIFAT             [headerDIFATEntries]uint32
}

// decodeHeader reads the header fields from buf, which holds at least
// headerFieldsSize bytes.
func decodeHeader(buf []byte) header {
	var h header
	c := binrec.NewCursor(buf[:headerFieldsSize])
	magic, _ := c.Bytes(8)
	copy(h.Magic[:], magic)
	clsid, _ := c.Bytes(16)
	copy(h.ClassID[:], clsid)
	h.MinorVersion, _ = c.Uint16()
	h.MajorVersion, _ = c.Uint16()
	h.ByteOrder, _ = c.Uint16()
	h.BlockShift, _ = c.Uint16()
	h.MiniBlockShift, _ = c.Uint16()
	reserved, _ := c.Bytes(len(h.Reserved))
	copy(h.Reserved[:], reserved)
	h.DirBlockCount, _ = c.Uint32()
	h.FATBlockCount, _ = c.Uint32()
	h.FirstDirBlock, _ = c.Uint32()
	h.TransactionSig, _ = c.Uint32()
	h.MiniStreamCutoff, _ = c.Uint32()
	h.FirstMiniFATBlock, _ = c.Uint32()
	h.MiniFATBlockCount, _ = c.Uint32()
	h.FirstDIFATBlock, _ = c.Uint32()
	h.DIFATBlockCount, _ = c.Uint32()
	for i := range h.DIFAT {
		h.DIFAT[i], _ = c.Uint32()
	}
	return h
}

func readHeader(r io.ReaderAt, size int64) (header, error) {
	if size < headerFieldsSize {
		if size >= 4 {
			var sig [4]byte
			if _, err := r.ReadAt(sig[:], 0); err == nil && sig == ooxmlMagic {
				return header{}, ErrOOXML
			}
		}
		return header{}, fmt.Errorf("%w: %d bytes is shorter than a header", ErrInvalidHeader, size)
	}
	var buf [headerFieldsSize]byte
	if _, err := r.ReadAt(buf[:], 0); err != nil {
		return header{}, err
	}
	if [4]byte(buf[0:4]) == ooxmlMagic {
		return header{}, ErrOOXML
	}
	return decodeHeader(buf[:]), nil
}

func writeHeader(w io.Writer, h header, bs BlockSize) error {
	bw := binrec.NewWriter(int(bs))
	bw.Write(h.Magic[:])
	bw.Write(h.ClassID[:])
	bw.Uint16(h.MinorVersion)
	bw.Uint16(h.MajorVersion)
	bw.Uint16(h.ByteOrder)
	bw.Uint16(h.BlockShift)
	bw.Uint16(h.MiniBlockShift)
	bw.Write(h.Reserved[:])
	bw.Uint32(h.DirBlockCount)
	bw.Uint32(h.FATBlockCount)
	bw.Uint32(h.FirstDirBlock)
	bw.Uint32(h.TransactionSig)
	bw.Uint32(h.MiniStreamCutoff)
	bw.Uint32(h.FirstMiniFATBlock)
	bw.Uint32(h.MiniFATBlockCount)
	bw.Uint32(h.FirstDIFATBlock)
	bw.Uint32(h.DIFATBlockCount)
	for _, v := range h.DIFAT {
		bw.Uint32(v)
	}
	bw.Zero(int(bs) - bw.Len())
	_, err := w.Write(bw.Bytes())
	return err
}

// blockSize reports the sector size declared by h.
func (h header) blockSize() BlockSize {
	bs, _ := blockSizeForShift(h.BlockShift)
	return bs
}

func validateHeader(h header) error {
	if h.Magic != Magic {
		return ErrInvalidMagic
	}
	if h.ByteOrder != byteOrderMark {
		return fmt.Errorf("%w: byte order 0x%04X", ErrInvalidHeader, h.ByteOrder)
	}
	bs, ok := blockSizeForShift(h.BlockShift)
	if !ok {
		return fmt.Errorf("%w: sector shift %d", ErrInvalidHeader, h.BlockShift)
	}
	switch h.MajorVersion {
	case 3, 4:
	default:
		return fmt.Errorf("%w: major version %d", ErrUnsupportedVersion, h.MajorVersion)
	}
	if h.MajorVersion != bs.majorVersion() {
		return fmt.Errorf("%w: major version %d with %d-byte blocks", ErrUnsupportedVersion, h.MajorVersion, bs)
	}
	if h.MiniBlockShift != miniBlockShift {
		return fmt.Errorf("%w: mini sector shift %d", ErrInvalidHeader, h.MiniBlockShift)
	}
	if h.MiniStreamCutoff != MiniStreamCutoff {
		return fmt.Errorf("%w: mini stream cutoff %d", ErrInvalidHeader, h.MiniStreamCutoff)
	}
	return nil
}

func newHeader(bs BlockSize) header {
	h := header{
		Magic:             Magic,
		MinorVersion:      minorVersion,
		MajorVersion:      bs.majorVersion(),
		ByteOrder:         byteOrderMark,
		BlockShift:        bs.shift(),
		MiniBlockShift:    miniBlockShift,
		MiniStreamCutoff:  MiniStreamCutoff,
		FirstDirBlock:     EndOfChain,
		FirstMiniFATBlock: EndOfChain,
		FirstDIFATBlock:   EndOfChain,
	}
	for i := range h.DIFAT {
		h.DIFAT[i] = FreeBlock
	}
	return h
}
