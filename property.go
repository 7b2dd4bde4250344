package cfb

import (
	"fmt"
	"strings"
	"time"

	"github.com/logicossoftware/go-cfb/binrec"
	"go.uber.org/zap"
)

// Property is one directory entry: the root, a storage (directory) or a
// stream (document). Sibling and child links are positions in the owning
// table's flat list, never pointers.
type Property struct {
	Name       string
	Type       PropertyType
	Color      NodeColor
	Previous   uint32
	Next       uint32
	Child      uint32
	ClassID    ClassID
	StateBits  uint32
	Created    uint64 // FILETIME
	Modified   uint64 // FILETIME
	StartBlock uint32
	Size       uint64

	// Index is the slot this property was read from or will be written to.
	Index uint32

	// Raw name bytes are kept so an untouched record re-encodes exactly.
	rawName    [nameFieldSize]byte
	rawNameLen uint16
	rawFor     string
	hasRaw     bool
	sizeHigh   uint32 // ignored upper size bits of a version 3 slot

	table    *PropertyTable
	slot     int
	parent   int
	children []int
}

// NewProperty returns a detached property with no links.
func NewProperty(name string, typ PropertyType) *Property {
	return &Property{
		Name:       name,
		Type:       typ,
		Color:      Black,
		Previous:   NoStream,
		Next:       NoStream,
		Child:      NoStream,
		StartBlock: EndOfChain,
		slot:       -1,
		parent:     -1,
	}
}

// IsDirectory reports whether p can own children.
func (p *Property) IsDirectory() bool { return p.Type.IsDirectory() }

// CreatedTime returns the creation time, or the zero Time when unset.
func (p *Property) CreatedTime() time.Time { return FileTimeToTime(p.Created) }

// ModifiedTime returns the modification time, or the zero Time when unset.
func (p *Property) ModifiedTime() time.Time { return FileTimeToTime(p.Modified) }

func (p *Property) String() string {
	return fmt.Sprintf("%s %q size=%d start=%d", p.Type, p.Name, p.Size, p.StartBlock)
}

// compareNames orders siblings: shorter UTF-16 names first, then by code
// unit. Zero means the names collide.
func compareNames(a, b string) int {
	ua, ub := binrec.UTF16Units(a), binrec.UTF16Units(b)
	if len(ua) != len(ub) {
		if len(ua) < len(ub) {
			return -1
		}
		return 1
	}
	for i := range ua {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// decodeProperty reads the slot at off. A slot with an unknown type tag,
// including free slots, decodes to nil with no error.
func decodeProperty(buf []byte, off int, bs BlockSize, log *zap.Logger) (*Property, error) {
	if off < 0 || len(buf)-off < PropertySize {
		return nil, fmt.Errorf("%w: property slot at %d", binrec.ErrTruncated, off)
	}
	c := binrec.NewCursor(buf[off : off+PropertySize])
	p := &Property{slot: -1, parent: -1}

	raw, _ := c.Bytes(nameFieldSize)
	copy(p.rawName[:], raw)
	p.rawNameLen, _ = c.Uint16()
	tag, _ := c.Uint8()
	p.Type = PropertyType(tag)
	if !p.Type.known() {
		if tag != 0 {
			log.Debug("skipping property slot with unknown type", zap.Int("offset", off), zap.Uint8("type", tag))
		}
		return nil, nil
	}
	color, _ := c.Uint8()
	p.Color = NodeColor(color)
	p.Previous, _ = c.Uint32()
	p.Next, _ = c.Uint32()
	p.Child, _ = c.Uint32()
	clsid, _ := c.Bytes(16)
	copy(p.ClassID[:], clsid)
	p.StateBits, _ = c.Uint32()
	p.Created, _ = c.Uint64()
	p.Modified, _ = c.Uint64()
	p.StartBlock, _ = c.Uint32()
	low, _ := c.Uint32()
	high, err := c.Uint32()
	if err != nil {
		return nil, err
	}
	if bs == BlockSize512 {
		p.Size = uint64(low)
		p.sizeHigh = high
		if high != 0 {
			log.Debug("ignoring high size bits in version 3 slot", zap.Int("offset", off), zap.Uint32("high", high))
		}
	} else {
		p.Size = uint64(high)<<32 | uint64(low)
	}

	units := int(p.rawNameLen)/2 - 1
	if units < 0 {
		units = 0
	}
	if units > MaxNameLen {
		units = MaxNameLen
	}
	name, err := binrec.DecodeUTF16LE(p.rawName[:units*2])
	if err != nil {
		return nil, fmt.Errorf("property slot at %d: %w", off, err)
	}
	if i := strings.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	p.Name = name
	p.rawFor = name
	p.hasRaw = true
	return p, nil
}

// encode writes p into the slot at off. Directories and the root are always
// written black.
func (p *Property) encode(buf []byte, off int, bs BlockSize) error {
	if off < 0 || len(buf)-off < PropertySize {
		return fmt.Errorf("%w: property slot at %d", binrec.ErrTruncated, off)
	}
	w := binrec.NewWriter(PropertySize)
	if p.hasRaw && p.rawFor == p.Name {
		w.Write(p.rawName[:])
		w.Uint16(p.rawNameLen)
	} else {
		if err := binrec.WriteUTF16Field(w, p.Name, nameFieldSize/2); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidName, err)
		}
		w.Uint16(uint16((binrec.UTF16Len(p.Name) + 1) * 2))
	}
	w.Uint8(uint8(p.Type))
	if p.Type.IsDirectory() {
		w.Uint8(uint8(Black))
	} else {
		w.Uint8(uint8(p.Color))
	}
	w.Uint32(p.Previous)
	w.Uint32(p.Next)
	w.Uint32(p.Child)
	w.Write(p.ClassID[:])
	w.Uint32(p.StateBits)
	w.Uint64(p.Created)
	w.Uint64(p.Modified)
	w.Uint32(p.StartBlock)
	w.Uint32(uint32(p.Size))
	if bs == BlockSize512 {
		w.Uint32(p.sizeHigh)
	} else {
		w.Uint32(uint32(p.Size >> 32))
	}
	copy(buf[off:off+PropertySize], w.Bytes())
	return nil
}

// encodeFreeSlot writes an unused directory entry.
func encodeFreeSlot(buf []byte, off int) {
	slot := buf[off : off+PropertySize]
	clear(slot)
	for _, o := range []int{68, 72, 76} {
		slot[o], slot[o+1], slot[o+2], slot[o+3] = 0xFF, 0xFF, 0xFF, 0xFF
	}
}

// setSize records a new stream size and drops any stale high bits.
func (p *Property) setSize(n uint64) {
	p.Size = n
	p.sizeHigh = 0
}
