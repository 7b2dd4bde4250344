package font

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/logicossoftware/go-cfb/binrec"
)

const (
	// wmfFixedSize covers the five int16 metrics and eight flag bytes.
	wmfFixedSize = 5*2 + 8

	// WMFFacenameMax is the facename field width in bytes.
	WMFFacenameMax = 32
)

// Font is the WMF Font object used by META_CREATEFONTINDIRECT.
type Font struct {
	Height         int16
	Width          int16
	Escapement     int16
	Orientation    int16
	Weight         int16
	Italic         bool
	Underline      bool
	StrikeOut      bool
	CharSet        Charset
	OutPrecision   OutPrecision
	ClipPrecision  ClipPrecision
	Quality        Quality
	PitchAndFamily uint8
	Facename       string
}

func (f Font) Family() FamilyClass { return familyOf(f.PitchAndFamily) }

func (f Font) Pitch() Pitch { return pitchOf(f.PitchAndFamily) }

// DecodeFont reads a WMF Font from c. The facename is an ISO-8859-1 string
// terminated by NUL within 32 bytes; bytes after the terminator belong to
// the caller's record and are not consumed. It returns the bytes consumed.
func DecodeFont(c *binrec.Cursor) (Font, int, error) {
	var f Font
	var err error
	start := c.Offset()
	if f.Height, err = c.Int16(); err != nil {
		return Font{}, 0, err
	}
	if f.Width, err = c.Int16(); err != nil {
		return Font{}, 0, err
	}
	if f.Escapement, err = c.Int16(); err != nil {
		return Font{}, 0, err
	}
	if f.Orientation, err = c.Int16(); err != nil {
		return Font{}, 0, err
	}
	if f.Weight, err = c.Int16(); err != nil {
		return Font{}, 0, err
	}
	flags, err := c.Bytes(8)
	if err != nil {
		return Font{}, 0, err
	}
	f.Italic = flags[0] != 0
	f.Underline = flags[1] != 0
	f.StrikeOut = flags[2] != 0
	f.CharSet = Charset(flags[3])
	f.OutPrecision = OutPrecision(flags[4])
	f.ClipPrecision = ClipPrecision(flags[5])
	f.Quality = Quality(flags[6])
	f.PitchAndFamily = flags[7]

	raw, _, err := binrec.ReadCString(c, WMFFacenameMax)
	if err != nil {
		return Font{}, 0, fmt.Errorf("font facename: %w", err)
	}
	name, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return Font{}, 0, err
	}
	f.Facename = string(name)
	return f, c.Offset() - start, nil
}

// Encode appends f with its facename NUL terminated. It returns the number
// of bytes written.
func (f Font) Encode(w *binrec.Writer) (int, error) {
	name, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(f.Facename))
	if err != nil {
		return 0, fmt.Errorf("font facename: %w", err)
	}
	if len(name) >= WMFFacenameMax {
		return 0, fmt.Errorf("%w: facename %q", binrec.ErrFieldTooLong, f.Facename)
	}
	start := w.Len()
	w.Int16(f.Height)
	w.Int16(f.Width)
	w.Int16(f.Escapement)
	w.Int16(f.Orientation)
	w.Int16(f.Weight)
	w.Uint8(boolByte(f.Italic))
	w.Uint8(boolByte(f.Underline))
	w.Uint8(boolByte(f.StrikeOut))
	w.Uint8(uint8(f.CharSet))
	w.Uint8(uint8(f.OutPrecision))
	w.Uint8(uint8(f.ClipPrecision))
	w.Uint8(uint8(f.Quality))
	w.Uint8(f.PitchAndFamily)
	w.Write(name)
	w.Uint8(0)
	return w.Len() - start, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
