package font

import (
	"fmt"

	"github.com/logicossoftware/go-cfb/binrec"
)

// Panose classification enumerations. Each value must be below the count of
// its enumeration; the ordinals follow the PAN_* tables.
type (
	FamilyType      uint8
	SerifType       uint8
	PanoseWeight    uint8
	Proportion      uint8
	Contrast        uint8
	StrokeVariation uint8
	ArmStyle        uint8
	Letterform      uint8
	MidLine         uint8
	XHeight         uint8
)

const (
	PanAny   = 0
	PanNoFit = 1
)

// Enumeration sizes.
const (
	familyTypeCount      = 6
	serifTypeCount       = 16
	panoseWeightCount    = 12
	proportionCount      = 10
	contrastCount        = 10
	strokeVariationCount = 9
	armStyleCount        = 12
	letterformCount      = 16
	midLineCount         = 14
	xHeightCount         = 8
)

const (
	FamilyTextDisplay FamilyType = 2
	FamilyScriptPan   FamilyType = 3
	FamilyDecorPan    FamilyType = 4
	FamilyPictorial   FamilyType = 5
)

const (
	WeightBook   PanoseWeight = 5
	WeightMedium PanoseWeight = 6
	WeightBold   PanoseWeight = 8
)

const ProportionMonospaced Proportion = 9

// panoseBodySize is version, style size, match, reserved, vendor and culture
// (six uint32), ten classification bytes and two bytes of alignment padding.
const panoseBodySize = 6*4 + 10 + 2

// Panose is the LogFontPanose tail of an EMF LogFont.
type Panose struct {
	Version         uint32
	StyleSize       uint32
	Match           uint32
	Reserved        uint32
	VendorID        uint32
	Culture         uint32
	FamilyType      FamilyType
	SerifStyle      SerifType
	Weight          PanoseWeight
	Proportion      Proportion
	Contrast        Contrast
	StrokeVariation StrokeVariation
	ArmStyle        ArmStyle
	Letterform      Letterform
	MidLine         MidLine
	XHeight         XHeight
}

func enumByte(c *binrec.Cursor, name string, count uint8) (uint8, error) {
	v, err := c.Uint8()
	if err != nil {
		return 0, err
	}
	if v >= count {
		return 0, fmt.Errorf("%w: panose %s %d not below %d", binrec.ErrInvalidValue, name, v, count)
	}
	return v, nil
}

func decodePanose(c *binrec.Cursor) (*Panose, error) {
	p := &Panose{}
	words := []*uint32{&p.Version, &p.StyleSize, &p.Match, &p.Reserved, &p.VendorID, &p.Culture}
	for _, dst := range words {
		v, err := c.Uint32()
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	fields := []struct {
		name  string
		count uint8
		dst   *uint8
	}{
		{"family type", familyTypeCount, (*uint8)(&p.FamilyType)},
		{"serif style", serifTypeCount, (*uint8)(&p.SerifStyle)},
		{"weight", panoseWeightCount, (*uint8)(&p.Weight)},
		{"proportion", proportionCount, (*uint8)(&p.Proportion)},
		{"contrast", contrastCount, (*uint8)(&p.Contrast)},
		{"stroke variation", strokeVariationCount, (*uint8)(&p.StrokeVariation)},
		{"arm style", armStyleCount, (*uint8)(&p.ArmStyle)},
		{"letterform", letterformCount, (*uint8)(&p.Letterform)},
		{"midline", midLineCount, (*uint8)(&p.MidLine)},
		{"x height", xHeightCount, (*uint8)(&p.XHeight)},
	}
	for _, f := range fields {
		v, err := enumByte(c, f.name, f.count)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	if err := c.Skip(2); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Panose) encode(w *binrec.Writer) {
	w.Uint32(p.Version)
	w.Uint32(p.StyleSize)
	w.Uint32(p.Match)
	w.Uint32(p.Reserved)
	w.Uint32(p.VendorID)
	w.Uint32(p.Culture)
	w.Uint8(uint8(p.FamilyType))
	w.Uint8(uint8(p.SerifStyle))
	w.Uint8(uint8(p.Weight))
	w.Uint8(uint8(p.Proportion))
	w.Uint8(uint8(p.Contrast))
	w.Uint8(uint8(p.StrokeVariation))
	w.Uint8(uint8(p.ArmStyle))
	w.Uint8(uint8(p.Letterform))
	w.Uint8(uint8(p.MidLine))
	w.Uint8(uint8(p.XHeight))
	w.Zero(2)
}
