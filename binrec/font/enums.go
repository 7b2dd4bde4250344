package font

import "fmt"

// Charset is the WMF CharacterSet enumeration.
type Charset uint8

const (
	CharsetANSI        Charset = 0x00
	CharsetDefault     Charset = 0x01
	CharsetSymbol      Charset = 0x02
	CharsetMac         Charset = 0x4D
	CharsetShiftJIS    Charset = 0x80
	CharsetHangul      Charset = 0x81
	CharsetJohab       Charset = 0x82
	CharsetGB2312      Charset = 0x86
	CharsetChineseBig5 Charset = 0x88
	CharsetGreek       Charset = 0xA1
	CharsetTurkish     Charset = 0xA2
	CharsetVietnamese  Charset = 0xA3
	CharsetHebrew      Charset = 0xB1
	CharsetArabic      Charset = 0xB2
	CharsetBaltic      Charset = 0xBA
	CharsetRussian     Charset = 0xCC
	CharsetThai        Charset = 0xDE
	CharsetEastEurope  Charset = 0xEE
	CharsetOEM         Charset = 0xFF
)

var charsetNames = map[Charset]string{
	CharsetANSI:        "ANSI_CHARSET",
	CharsetDefault:     "DEFAULT_CHARSET",
	CharsetSymbol:      "SYMBOL_CHARSET",
	CharsetMac:         "MAC_CHARSET",
	CharsetShiftJIS:    "SHIFTJIS_CHARSET",
	CharsetHangul:      "HANGUL_CHARSET",
	CharsetJohab:       "JOHAB_CHARSET",
	CharsetGB2312:      "GB2312_CHARSET",
	CharsetChineseBig5: "CHINESEBIG5_CHARSET",
	CharsetGreek:       "GREEK_CHARSET",
	CharsetTurkish:     "TURKISH_CHARSET",
	CharsetVietnamese:  "VIETNAMESE_CHARSET",
	CharsetHebrew:      "HEBREW_CHARSET",
	CharsetArabic:      "ARABIC_CHARSET",
	CharsetBaltic:      "BALTIC_CHARSET",
	CharsetRussian:     "RUSSIAN_CHARSET",
	CharsetThai:        "THAI_CHARSET",
	CharsetEastEurope:  "EASTEUROPE_CHARSET",
	CharsetOEM:         "OEM_CHARSET",
}

// Known reports whether c is a defined character set. Unknown sets are kept
// as raw values; strings in them should not be translated.
func (c Charset) Known() bool {
	_, ok := charsetNames[c]
	return ok
}

func (c Charset) String() string {
	if s, ok := charsetNames[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown(0x%02X)", uint8(c))
}

// OutPrecision is the WMF OutPrecision enumeration.
type OutPrecision uint8

const (
	OutDefaultPrecis       OutPrecision = 0x00
	OutStringPrecis        OutPrecision = 0x01
	OutStrokePrecis        OutPrecision = 0x03
	OutTTPrecis            OutPrecision = 0x04
	OutDevicePrecis        OutPrecision = 0x05
	OutRasterPrecis        OutPrecision = 0x06
	OutTTOnlyPrecis        OutPrecision = 0x07
	OutOutlinePrecis       OutPrecision = 0x08
	OutScreenOutlinePrecis OutPrecision = 0x09
	OutPSOnlyPrecis        OutPrecision = 0x0A
)

func (o OutPrecision) Known() bool {
	return o <= OutPSOnlyPrecis && o != 0x02
}

// ClipPrecision is a set of WMF ClipPrecision flags.
type ClipPrecision uint8

const (
	ClipDefaultPrecis   ClipPrecision = 0x00
	ClipCharacterPrecis ClipPrecision = 0x01
	ClipStrokePrecis    ClipPrecision = 0x02
	ClipLHAngles        ClipPrecision = 0x10
	ClipTTAlways        ClipPrecision = 0x20
	ClipDFADisable      ClipPrecision = 0x40
	ClipEmbedded        ClipPrecision = 0x80
)

func (c ClipPrecision) Has(flag ClipPrecision) bool { return c&flag == flag }

// Quality is the WMF FontQuality enumeration.
type Quality uint8

const (
	QualityDefault        Quality = 0x00
	QualityDraft          Quality = 0x01
	QualityProof          Quality = 0x02
	QualityNonAntialiased Quality = 0x03
	QualityAntialiased    Quality = 0x04
	QualityClearType      Quality = 0x05
)

func (q Quality) Known() bool { return q <= QualityClearType }

// FamilyClass is the font family carried in the high nibble of a
// PitchAndFamily byte.
type FamilyClass uint8

const (
	FamilyDontCare   FamilyClass = 0x00
	FamilyRoman      FamilyClass = 0x01
	FamilySwiss      FamilyClass = 0x02
	FamilyModern     FamilyClass = 0x03
	FamilyScript     FamilyClass = 0x04
	FamilyDecorative FamilyClass = 0x05
)

// Pitch is carried in the low two bits of a PitchAndFamily byte.
type Pitch uint8

const (
	PitchDefault  Pitch = 0x00
	PitchFixed    Pitch = 0x01
	PitchVariable Pitch = 0x02
)

// PitchAndFamily packs a pitch and family class into the WMF byte layout.
func PitchAndFamily(p Pitch, f FamilyClass) uint8 {
	return uint8(f)<<4 | uint8(p)&0x03
}

func familyOf(b uint8) FamilyClass { return FamilyClass(b >> 4) }

func pitchOf(b uint8) Pitch { return Pitch(b & 0x03) }
