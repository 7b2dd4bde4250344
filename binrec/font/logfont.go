package font

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/logicossoftware/go-cfb/binrec"
)

const (
	// LogFontSize is the fixed LogFont prefix: five int32 metrics, eight
	// flag bytes and a 32-unit facename.
	LogFontSize = 5*4 + 8 + facenameUnits*2

	// LogFontPanoseSize is the exact size of a LogFont followed by full
	// name, style and a LogFontPanose tail.
	LogFontPanoseSize = logFontExPrefix + panoseBodySize

	// LogFontExSize is the LogFontEx prefix of a LogFontExDv record, up to
	// and including the script field.
	LogFontExSize = logFontExPrefix + scriptUnits*2

	// DesignVectorSignature is the documented DesignVector magic.
	DesignVectorSignature uint32 = 0x08007664

	// MaxDesignAxes is the largest axis count a DesignVector may declare.
	MaxDesignAxes = 16

	facenameUnits = 32
	fullNameUnits = 64
	styleUnits    = 32
	scriptUnits   = 32

	logFontExPrefix = LogFontSize + fullNameUnits*2 + styleUnits*2
)

// ErrAxisCount reports a DesignVector whose declared axis count is outside
// 0..MaxDesignAxes. Such records are rejected rather than clamped.
var ErrAxisCount = errors.New("font: design vector axis count out of range")

// DesignVector is the LogFontExDv tail of an EMF LogFont.
type DesignVector struct {
	Signature uint32
	Values    []int32
}

// LogFont is the EMF LogFont object together with the optional extended
// fields of LogFontPanose and LogFontExDv. Which tail is present depends only
// on the record size handed to Decode.
type LogFont struct {
	Height         int32
	Width          int32
	Escapement     int32
	Orientation    int32
	Weight         int32
	Italic         bool
	Underline      bool
	StrikeOut      bool
	CharSet        Charset
	OutPrecision   OutPrecision
	ClipPrecision  ClipPrecision
	Quality        Quality
	PitchAndFamily uint8
	Facename       string

	// Extended fields, empty when the record is a bare LogFont.
	FullName string
	Style    string

	// Script is set only for LogFontExDv records.
	Script string

	Panose       *Panose
	DesignVector *DesignVector
}

func (f LogFont) Family() FamilyClass { return familyOf(f.PitchAndFamily) }

func (f LogFont) Pitch() Pitch { return pitchOf(f.PitchAndFamily) }

// Extended reports whether f carries more than the bare LogFont prefix.
func (f LogFont) Extended() bool {
	return f.Panose != nil || f.DesignVector != nil || f.FullName != "" || f.Style != "" || f.Script != ""
}

// Size is the number of bytes Encode writes for f.
func (f LogFont) Size() int {
	switch {
	case f.Panose != nil:
		return LogFontPanoseSize
	case f.Extended():
		n := 0
		if f.DesignVector != nil {
			n = len(f.DesignVector.Values)
		}
		return LogFontExSize + 8 + 4*n
	default:
		return LogFontSize
	}
}

// Decoder decodes EMF LogFont records. The zero value is usable and
// discards diagnostics.
type Decoder struct {
	Logger *zap.Logger
}

func (d Decoder) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// DecodeLogFont decodes with a zero Decoder.
func DecodeLogFont(c *binrec.Cursor, recordSize int) (LogFont, int, error) {
	return Decoder{}.DecodeLogFont(c, recordSize)
}

// DecodeLogFont reads a LogFont occupying recordSize bytes at c.
//
// A record of LogFontSize bytes or fewer holds only the LogFont prefix.
// Larger records add full name and style; a record of exactly
// LogFontPanoseSize bytes then carries a Panose tail, any other size a
// script and DesignVector. Reads never cross recordSize. It returns the
// number of bytes consumed, and c is advanced by that amount.
func (d Decoder) DecodeLogFont(c *binrec.Cursor, recordSize int) (LogFont, int, error) {
	win, err := c.Window(recordSize)
	if err != nil {
		return LogFont{}, 0, err
	}
	f, err := d.decode(win, recordSize)
	if err != nil {
		return LogFont{}, 0, err
	}
	n := win.Offset()
	if err := c.Skip(n); err != nil {
		return LogFont{}, 0, err
	}
	return f, n, nil
}

func (d Decoder) decode(c *binrec.Cursor, recordSize int) (LogFont, error) {
	var f LogFont
	metrics := []*int32{&f.Height, &f.Width, &f.Escapement, &f.Orientation, &f.Weight}
	for _, dst := range metrics {
		v, err := c.Int32()
		if err != nil {
			return LogFont{}, err
		}
		*dst = v
	}
	flags, err := c.Bytes(8)
	if err != nil {
		return LogFont{}, err
	}
	f.Italic = flags[0] != 0
	f.Underline = flags[1] != 0
	f.StrikeOut = flags[2] != 0
	f.CharSet = Charset(flags[3])
	f.OutPrecision = OutPrecision(flags[4])
	f.ClipPrecision = ClipPrecision(flags[5])
	f.Quality = Quality(flags[6])
	f.PitchAndFamily = flags[7]

	if f.Facename, err = binrec.ReadUTF16Field(c, facenameUnits); err != nil {
		return LogFont{}, fmt.Errorf("font facename: %w", err)
	}
	if recordSize <= LogFontSize {
		return f, nil
	}

	if f.FullName, err = binrec.ReadUTF16Field(c, fullNameUnits); err != nil {
		return LogFont{}, fmt.Errorf("font full name: %w", err)
	}
	if f.Style, err = binrec.ReadUTF16Field(c, styleUnits); err != nil {
		return LogFont{}, fmt.Errorf("font style: %w", err)
	}

	if recordSize == LogFontPanoseSize {
		if f.Panose, err = decodePanose(c); err != nil {
			return LogFont{}, err
		}
		return f, nil
	}

	if f.Script, err = binrec.ReadUTF16Field(c, scriptUnits); err != nil {
		return LogFont{}, fmt.Errorf("font script: %w", err)
	}
	dv := &DesignVector{}
	if dv.Signature, err = c.Uint32(); err != nil {
		return LogFont{}, err
	}
	if dv.Signature != DesignVectorSignature {
		// Several producers leave the signature zero; the axis data that
		// follows is still well formed.
		d.logger().Debug("design vector signature mismatch",
			zap.Uint32("signature", dv.Signature),
			zap.String("facename", f.Facename))
	}
	axes, err := c.Uint32()
	if err != nil {
		return LogFont{}, err
	}
	if axes > MaxDesignAxes {
		return LogFont{}, fmt.Errorf("%w: %d", ErrAxisCount, axes)
	}
	dv.Values = make([]int32, axes)
	for i := range dv.Values {
		if dv.Values[i], err = c.Int32(); err != nil {
			return LogFont{}, err
		}
	}
	f.DesignVector = dv
	return f, nil
}

// Encode appends f in the variant selected by its extended fields and
// returns the number of bytes written, which equals f.Size().
func (f LogFont) Encode(w *binrec.Writer) (int, error) {
	start := w.Len()
	w.Int32(f.Height)
	w.Int32(f.Width)
	w.Int32(f.Escapement)
	w.Int32(f.Orientation)
	w.Int32(f.Weight)
	w.Uint8(boolByte(f.Italic))
	w.Uint8(boolByte(f.Underline))
	w.Uint8(boolByte(f.StrikeOut))
	w.Uint8(uint8(f.CharSet))
	w.Uint8(uint8(f.OutPrecision))
	w.Uint8(uint8(f.ClipPrecision))
	w.Uint8(uint8(f.Quality))
	w.Uint8(f.PitchAndFamily)
	if err := binrec.WriteUTF16Field(w, f.Facename, facenameUnits); err != nil {
		return 0, err
	}
	if !f.Extended() {
		return w.Len() - start, nil
	}
	if err := binrec.WriteUTF16Field(w, f.FullName, fullNameUnits); err != nil {
		return 0, err
	}
	if err := binrec.WriteUTF16Field(w, f.Style, styleUnits); err != nil {
		return 0, err
	}
	if f.Panose != nil {
		f.Panose.encode(w)
		return w.Len() - start, nil
	}
	if err := binrec.WriteUTF16Field(w, f.Script, scriptUnits); err != nil {
		return 0, err
	}
	dv := f.DesignVector
	if dv == nil {
		dv = &DesignVector{Signature: DesignVectorSignature}
	}
	if len(dv.Values) > MaxDesignAxes {
		return 0, fmt.Errorf("%w: %d", ErrAxisCount, len(dv.Values))
	}
	w.Uint32(dv.Signature)
	w.Uint32(uint32(len(dv.Values)))
	for _, v := range dv.Values {
		w.Int32(v)
	}
	return w.Len() - start, nil
}
