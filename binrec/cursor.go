package binrec

import (
	"encoding/binary"
	"fmt"
)

// Cursor reads little-endian fields from a byte window in offset order.
type Cursor struct {
	buf []byte
	off int
}

func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Offset reports the number of bytes consumed so far.
func (c *Cursor) Offset() int { return c.off }

// Remaining reports the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, c.off, c.Remaining())
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) Int8() (int8, error) {
	v, err := c.Uint8()
	return int8(v), err
}

func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err
}

func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err
}

func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Bytes returns a copy of the next n bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Skip advances past n bytes, which must be present.
func (c *Cursor) Skip(n int) error {
	_, err := c.take(n)
	return err
}

// Window returns a cursor over the next n bytes without advancing c. Callers
// decode from the window and then Skip what they consumed, so a record can
// never read past its declared size.
func (c *Cursor) Window(n int) (*Cursor, error) {
	if n < 0 || n > c.Remaining() {
		return nil, fmt.Errorf("%w: record of %d bytes at offset %d, have %d", ErrTruncated, n, c.off, c.Remaining())
	}
	return NewCursor(c.buf[c.off : c.off+n]), nil
}
