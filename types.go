package cfb

import (
	"time"

	"github.com/google/uuid"
)

// Magic is the 8-byte compound file signature.
var Magic = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ooxmlMagic is the local file header signature of a zip package.
var ooxmlMagic = [4]byte{'P', 'K', 0x03, 0x04}

// Block chain sentinels, as stored in the allocation tables.
const (
	MaxRegularBlock uint32 = 0xFFFFFFFA
	DIFATBlock      uint32 = 0xFFFFFFFC
	FATBlock        uint32 = 0xFFFFFFFD
	EndOfChain      uint32 = 0xFFFFFFFE
	FreeBlock       uint32 = 0xFFFFFFFF
)

// NoStream marks an absent previous, next or child link in a property.
const NoStream uint32 = 0xFFFFFFFF

const (
	headerFieldsSize   = 512
	headerDIFATEntries = 109

	minorVersion  uint16 = 0x003E
	byteOrderMark uint16 = 0xFFFE

	MiniBlockSize    = 64
	miniBlockShift   = 6
	MiniStreamCutoff = 4096

	PropertySize = 128

	nameFieldSize = 64
	// MaxNameLen is the longest property name in UTF-16 code units; the
	// field also holds a terminator.
	MaxNameLen = nameFieldSize/2 - 1
)

// BlockSize is the container sector size.
type BlockSize int

const (
	BlockSize512  BlockSize = 512
	BlockSize4096 BlockSize = 4096
)

func (b BlockSize) valid() bool { return b == BlockSize512 || b == BlockSize4096 }

func (b BlockSize) shift() uint16 {
	if b == BlockSize4096 {
		return 12
	}
	return 9
}

func (b BlockSize) majorVersion() uint16 {
	if b == BlockSize4096 {
		return 4
	}
	return 3
}

// entries is the number of uint32 values one block holds.
func (b BlockSize) entries() int { return int(b) / 4 }

func (b BlockSize) propertiesPerBlock() int { return int(b) / PropertySize }

func blockSizeForShift(shift uint16) (BlockSize, bool) {
	switch shift {
	case 9:
		return BlockSize512, true
	case 12:
		return BlockSize4096, true
	}
	return 0, false
}

// PropertyType is the object type tag of a property slot.
type PropertyType uint8

const (
	TypeDirectory PropertyType = 1
	TypeDocument  PropertyType = 2
	TypeRoot      PropertyType = 5
)

func (t PropertyType) known() bool {
	switch t {
	case TypeDirectory, TypeDocument, TypeRoot:
		return true
	}
	return false
}

// IsDirectory reports whether properties of type t own children.
func (t PropertyType) IsDirectory() bool {
	return t == TypeDirectory || t == TypeRoot
}

func (t PropertyType) String() string {
	switch t {
	case TypeDirectory:
		return "directory"
	case TypeDocument:
		return "document"
	case TypeRoot:
		return "root"
	}
	return "unknown"
}

// NodeColor is the red-black color byte. It is carried but not interpreted.
type NodeColor uint8

const (
	Red   NodeColor = 0
	Black NodeColor = 1
)

// ClassID is a CLSID in its on-disk GUID layout: the first three fields
// little-endian, the last eight bytes in order.
type ClassID [16]byte

func (c ClassID) IsZero() bool { return c == ClassID{} }

// UUID returns the class id in RFC 4122 byte order.
func (c ClassID) UUID() uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = c[3], c[2], c[1], c[0]
	u[4], u[5] = c[5], c[4]
	u[6], u[7] = c[7], c[6]
	copy(u[8:], c[8:])
	return u
}

// ClassIDFromUUID converts an RFC 4122 UUID into the on-disk layout.
func ClassIDFromUUID(u uuid.UUID) ClassID {
	var c ClassID
	c[0], c[1], c[2], c[3] = u[3], u[2], u[1], u[0]
	c[4], c[5] = u[5], u[4]
	c[6], c[7] = u[7], u[6]
	copy(c[8:], u[8:])
	return c
}

// ParseClassID parses a GUID string such as
// "{00020906-0000-0000-C000-000000000046}".
func ParseClassID(s string) (ClassID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ClassID{}, err
	}
	return ClassIDFromUUID(u), nil
}

func (c ClassID) String() string {
	return "{" + c.UUID().String() + "}"
}

// fileTimeUnixOffset is the number of 100ns intervals between 1601-01-01 and
// the Unix epoch.
const fileTimeUnixOffset = 116444736000000000

// FileTimeToTime converts a FILETIME value. Zero maps to the zero Time.
func FileTimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	d := int64(ft) - fileTimeUnixOffset
	return time.Unix(d/1e7, (d%1e7)*100).UTC()
}

// TimeToFileTime converts t to a FILETIME value. The zero Time maps to 0.
func TimeToFileTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/100 + fileTimeUnixOffset)
}
