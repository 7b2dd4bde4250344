package font

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/logicossoftware/go-cfb/binrec"
)

func sampleLogFont() LogFont {
	return LogFont{
		Height:         -16,
		Width:          0,
		Weight:         700,
		Italic:         true,
		CharSet:        CharsetANSI,
		OutPrecision:   OutTTPrecis,
		ClipPrecision:  ClipDefaultPrecis | ClipLHAngles,
		Quality:        QualityClearType,
		PitchAndFamily: PitchAndFamily(PitchVariable, FamilySwiss),
		Facename:       "Arial",
	}
}

func encodeLogFont(t *testing.T, f LogFont) []byte {
	t.Helper()
	w := binrec.NewWriter(f.Size())
	n, err := f.Encode(w)
	require.NoError(t, err)
	require.Equal(t, f.Size(), n)
	return w.Bytes()
}

func TestLogFont_BaseOnly(t *testing.T) {
	in := sampleLogFont()
	raw := encodeLogFont(t, in)
	require.Len(t, raw, 92)

	// Trailing bytes beyond the record belong to the next record.
	raw = append(raw, 0xEE, 0xEE)
	c := binrec.NewCursor(raw)
	got, n, err := DecodeLogFont(c, LogFontSize)
	require.NoError(t, err)
	require.Equal(t, LogFontSize, n)
	require.Equal(t, LogFontSize, c.Offset())
	require.Equal(t, in, got)
	require.Empty(t, got.FullName)
	require.Nil(t, got.Panose)
	require.Nil(t, got.DesignVector)
	require.Equal(t, FamilySwiss, got.Family())
	require.Equal(t, PitchVariable, got.Pitch())
}

func TestLogFont_Panose(t *testing.T) {
	in := sampleLogFont()
	in.FullName = "Arial Bold Italic"
	in.Style = "Bold Italic"
	in.Panose = &Panose{
		Version:    0x200,
		StyleSize:  12,
		VendorID:   0x4D534654,
		FamilyType: FamilyTextDisplay,
		SerifStyle: 11,
		Weight:     WeightBold,
		Proportion: 3,
		Contrast:   2,
		Letterform: 9,
		MidLine:    13,
		XHeight:    7,
	}
	raw := encodeLogFont(t, in)
	require.Len(t, raw, LogFontPanoseSize)
	require.Equal(t, 320, LogFontPanoseSize)

	c := binrec.NewCursor(raw)
	got, n, err := DecodeLogFont(c, LogFontPanoseSize)
	require.NoError(t, err)
	require.Equal(t, LogFontPanoseSize, n)
	require.Zero(t, c.Remaining())
	require.Equal(t, in, got)
}

func TestLogFont_PanoseEnumOutOfRange(t *testing.T) {
	in := sampleLogFont()
	in.FullName = "x"
	in.Panose = &Panose{}
	raw := encodeLogFont(t, in)

	// The serif style byte sits right after the family type byte.
	serifOff := LogFontPanoseSize - 2 - 10 + 1
	raw[serifOff] = 16
	_, _, err := DecodeLogFont(binrec.NewCursor(raw), LogFontPanoseSize)
	require.ErrorIs(t, err, binrec.ErrInvalidValue)
}

func TestLogFont_DesignVector(t *testing.T) {
	in := sampleLogFont()
	in.FullName = "Minion MM"
	in.Style = "Regular"
	in.Script = "Western"
	in.DesignVector = &DesignVector{Signature: DesignVectorSignature, Values: []int32{400, -12, 600}}
	raw := encodeLogFont(t, in)
	require.Len(t, raw, LogFontExSize+8+12)

	got, n, err := DecodeLogFont(binrec.NewCursor(raw), len(raw))
	require.NoError(t, err)
	require.Equal(t, len(raw), n)
	require.Equal(t, in, got)
}

func TestLogFont_DesignVectorBadSignatureIsLogged(t *testing.T) {
	in := sampleLogFont()
	in.Script = "Western"
	in.DesignVector = &DesignVector{Signature: 0, Values: []int32{1}}
	raw := encodeLogFont(t, in)

	core, logs := observer.New(zap.DebugLevel)
	d := Decoder{Logger: zap.New(core)}
	got, _, err := d.DecodeLogFont(binrec.NewCursor(raw), len(raw))
	require.NoError(t, err)
	require.Equal(t, []int32{1}, got.DesignVector.Values)
	require.Equal(t, 1, logs.FilterMessage("design vector signature mismatch").Len())
}

func TestLogFont_DesignVectorAxisCountRejected(t *testing.T) {
	in := sampleLogFont()
	in.Script = "Western"
	in.DesignVector = &DesignVector{Signature: DesignVectorSignature}
	raw := encodeLogFont(t, in)
	binary.LittleEndian.PutUint32(raw[LogFontExSize+4:], 17)
	raw = append(raw, make([]byte, 17*4)...)

	_, _, err := DecodeLogFont(binrec.NewCursor(raw), len(raw))
	require.ErrorIs(t, err, ErrAxisCount)

	w := binrec.NewWriter(0)
	in.DesignVector.Values = make([]int32, 17)
	_, err = in.Encode(w)
	require.ErrorIs(t, err, ErrAxisCount)
}

func TestLogFont_DesignVectorDeclaresMoreThanRecord(t *testing.T) {
	in := sampleLogFont()
	in.Script = "Western"
	in.DesignVector = &DesignVector{Signature: DesignVectorSignature}
	raw := encodeLogFont(t, in)
	binary.LittleEndian.PutUint32(raw[LogFontExSize+4:], 4)
	// The record size does not cover the four declared axes.
	raw = append(raw, make([]byte, 64)...)
	_, _, err := DecodeLogFont(binrec.NewCursor(raw), LogFontExSize+8)
	require.ErrorIs(t, err, binrec.ErrTruncated)
}

func TestLogFont_Truncated(t *testing.T) {
	raw := encodeLogFont(t, sampleLogFont())
	_, _, err := DecodeLogFont(binrec.NewCursor(raw[:50]), LogFontSize)
	require.ErrorIs(t, err, binrec.ErrTruncated)

	// Declared size larger than the bytes present.
	_, _, err = DecodeLogFont(binrec.NewCursor(raw), LogFontPanoseSize)
	require.ErrorIs(t, err, binrec.ErrTruncated)
}

func TestLogFont_UnterminatedFacename(t *testing.T) {
	raw := encodeLogFont(t, sampleLogFont())
	for i := 28; i < LogFontSize; i++ {
		raw[i] = 'A'
	}
	_, _, err := DecodeLogFont(binrec.NewCursor(raw), LogFontSize)
	require.ErrorIs(t, err, binrec.ErrUnterminated)
}

func TestWMFFont_RoundTrip(t *testing.T) {
	in := Font{
		Height:         -13,
		Weight:         400,
		Underline:      true,
		CharSet:        CharsetDefault,
		Quality:        QualityDraft,
		PitchAndFamily: PitchAndFamily(PitchFixed, FamilyModern),
		Facename:       "Courier Neue é",
	}
	w := binrec.NewWriter(64)
	n, err := in.Encode(w)
	require.NoError(t, err)
	require.Equal(t, wmfFixedSize+len("Courier Neue ")+1+1, n)

	// A padded facename field: the decoder stops at the terminator.
	raw := append(w.Bytes(), 0, 0, 0)
	c := binrec.NewCursor(raw)
	got, consumed, err := DecodeFont(c)
	require.NoError(t, err)
	require.Equal(t, n, consumed)
	require.Equal(t, in, got)
	require.Equal(t, FamilyModern, got.Family())
	require.Equal(t, PitchFixed, got.Pitch())
	require.Equal(t, 3, c.Remaining())
}

func TestWMFFont_FacenameUnterminated(t *testing.T) {
	w := binrec.NewWriter(64)
	_, err := Font{Facename: "f"}.Encode(w)
	require.NoError(t, err)
	raw := w.Bytes()[:wmfFixedSize]
	for i := 0; i < WMFFacenameMax; i++ {
		raw = append(raw, 'z')
	}
	_, _, err = DecodeFont(binrec.NewCursor(raw))
	require.ErrorIs(t, err, binrec.ErrUnterminated)
}

func TestEnums(t *testing.T) {
	require.True(t, CharsetShiftJIS.Known())
	require.False(t, Charset(0x03).Known())
	require.Equal(t, "GREEK_CHARSET", CharsetGreek.String())
	require.Equal(t, "unknown(0x03)", Charset(0x03).String())
	require.False(t, OutPrecision(0x02).Known())
	require.True(t, OutPSOnlyPrecis.Known())
	require.True(t, (ClipStrokePrecis | ClipEmbedded).Has(ClipEmbedded))
	require.False(t, Quality(6).Known())
}
