package binrec

import (
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeUTF16LE converts UTF-16LE bytes to a Go string. Unpaired surrogates
// decode to U+FFFD.
func DecodeUTF16LE(b []byte) (string, error) {
	out, err := utf16LE.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeUTF16LE converts s to UTF-16LE without a terminator.
func EncodeUTF16LE(s string) ([]byte, error) {
	return utf16LE.NewEncoder().Bytes([]byte(s))
}

// UTF16Len reports the number of UTF-16 code units needed for s.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// UTF16Units returns the UTF-16 code units of s, splitting supplementary
// characters into surrogate pairs.
func UTF16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// terminatorAt returns the byte offset of the first aligned 0x0000 unit in b,
// or -1.
func terminatorAt(b []byte) int {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return i
		}
	}
	return -1
}

// ReadUTF16Field consumes a fixed field of units UTF-16 code units and
// returns the text before the first NUL unit. A field with no NUL unit is
// malformed.
func ReadUTF16Field(c *Cursor, units int) (string, error) {
	raw, err := c.take(units * 2)
	if err != nil {
		return "", err
	}
	end := terminatorAt(raw)
	if end < 0 {
		return "", fmt.Errorf("%w: no terminator in %d-unit field", ErrUnterminated, units)
	}
	return DecodeUTF16LE(raw[:end])
}

// WriteUTF16Field writes s into a fixed field of units code units, NUL
// terminated and zero padded.
func WriteUTF16Field(w *Writer, s string, units int) error {
	enc, err := EncodeUTF16LE(s)
	if err != nil {
		return err
	}
	if len(enc)/2 >= units {
		return fmt.Errorf("%w: %q needs %d units, field holds %d", ErrFieldTooLong, s, len(enc)/2+1, units)
	}
	w.Write(enc)
	w.Zero(units*2 - len(enc))
	return nil
}

// ReadCString consumes bytes up to and including a NUL, reading at most max
// bytes. It returns the bytes before the NUL and the number consumed.
func ReadCString(c *Cursor, max int) ([]byte, int, error) {
	var out []byte
	for n := 0; n < max; n++ {
		b, err := c.Uint8()
		if err != nil {
			return nil, n, err
		}
		if b == 0 {
			return out, n + 1, nil
		}
		out = append(out, b)
	}
	return nil, max, fmt.Errorf("%w: no NUL within %d bytes", ErrUnterminated, max)
}
