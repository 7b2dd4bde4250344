package cfb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/logicossoftware/go-cfb/binrec"
	"go.uber.org/zap"
)

func fullProperty() *Property {
	p := NewProperty("Contents", TypeDocument)
	p.Color = Red
	p.Previous, p.Next, p.Child = 3, 9, NoStream
	p.ClassID = ClassID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	p.StateBits = 0xCAFE
	p.Created = 0x01D0000000000001
	p.Modified = 0x01D0000000000002
	p.StartBlock = 42
	p.Size = 0x1_0000_0010
	return p
}

func TestProperty_EncodeDecode(t *testing.T) {
	in := fullProperty()
	buf := make([]byte, 2*PropertySize)
	if err := in.encode(buf, PropertySize, BlockSize4096); err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint16(buf[PropertySize+64:]); got != 18 {
		t.Fatalf("name length %d", got)
	}
	out, err := decodeProperty(buf, PropertySize, BlockSize4096, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if out.Name != in.Name || out.Type != in.Type || out.Color != in.Color ||
		out.Previous != in.Previous || out.Next != in.Next || out.Child != in.Child ||
		out.ClassID != in.ClassID || out.StateBits != in.StateBits ||
		out.Created != in.Created || out.Modified != in.Modified ||
		out.StartBlock != in.StartBlock || out.Size != in.Size {
		t.Fatalf("mismatch:\n in %+v\nout %+v", in, out)
	}
}

func TestProperty_DecodeEncodeIsByteExact(t *testing.T) {
	buf := make([]byte, PropertySize)
	if err := fullProperty().encode(buf, 0, BlockSize512); err != nil {
		t.Fatal(err)
	}
	// Bytes after the terminator and high size bits survive untouched.
	buf[40] = 0x5A
	binary.LittleEndian.PutUint32(buf[124:], 0x77)
	p, err := decodeProperty(buf, 0, BlockSize512, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if p.Size != 0x10 {
		t.Fatalf("version 3 size %#x", p.Size)
	}
	again := make([]byte, PropertySize)
	if err := p.encode(again, 0, BlockSize512); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, again) {
		t.Fatalf("re-encode differs:\n%x\n%x", buf, again)
	}

	p.Name = "Other"
	if err := p.encode(again, 0, BlockSize512); err != nil {
		t.Fatal(err)
	}
	if again[40] != 0 {
		t.Fatal("renamed property kept stale name bytes")
	}
}

func TestProperty_DirectoriesEncodeBlack(t *testing.T) {
	p := NewProperty("Storage", TypeDirectory)
	p.Color = Red
	buf := make([]byte, PropertySize)
	if err := p.encode(buf, 0, BlockSize512); err != nil {
		t.Fatal(err)
	}
	if NodeColor(buf[67]) != Black {
		t.Fatalf("color %d", buf[67])
	}
	doc := NewProperty("Stream", TypeDocument)
	doc.Color = Red
	if err := doc.encode(buf, 0, BlockSize512); err != nil {
		t.Fatal(err)
	}
	if NodeColor(buf[67]) != Red {
		t.Fatalf("document color %d", buf[67])
	}
}

func TestProperty_UnknownTypeIsNil(t *testing.T) {
	buf := make([]byte, PropertySize)
	for _, tag := range []byte{0, 3, 4, 6, 0xFF} {
		buf[66] = tag
		p, err := decodeProperty(buf, 0, BlockSize512, zap.NewNop())
		if err != nil || p != nil {
			t.Fatalf("tag %d: got %v, %v", tag, p, err)
		}
	}
}

func TestProperty_Truncated(t *testing.T) {
	buf := make([]byte, PropertySize-1)
	if _, err := decodeProperty(buf, 0, BlockSize512, zap.NewNop()); !errors.Is(err, binrec.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if err := NewProperty("x", TypeDocument).encode(buf, 0, BlockSize512); !errors.Is(err, binrec.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestProperty_NameLengthClamped(t *testing.T) {
	buf := make([]byte, PropertySize)
	name, _ := binrec.EncodeUTF16LE("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	copy(buf[:64], name)
	binary.LittleEndian.PutUint16(buf[64:], 0xFFFF)
	buf[66] = byte(TypeDocument)
	p, err := decodeProperty(buf, 0, BlockSize512, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "ABCDEFGHIJKLMNOPQRSTUVWXYZ01234" {
		t.Fatalf("name %q", p.Name)
	}
}

func TestProperty_EncodeNameTooLong(t *testing.T) {
	p := NewProperty("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456", TypeDocument)
	if err := p.encode(make([]byte, PropertySize), 0, BlockSize512); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestEncodeFreeSlot(t *testing.T) {
	buf := bytes.Repeat([]byte{0xAB}, PropertySize)
	encodeFreeSlot(buf, 0)
	if buf[66] != 0 {
		t.Fatalf("type %d", buf[66])
	}
	for _, off := range []int{68, 72, 76} {
		if binary.LittleEndian.Uint32(buf[off:]) != NoStream {
			t.Fatalf("link at %d not cleared", off)
		}
	}
	if p, err := decodeProperty(buf, 0, BlockSize512, zap.NewNop()); p != nil || err != nil {
		t.Fatalf("free slot decoded to %v, %v", p, err)
	}
}

func TestCompareNames(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"A", "BB", -1},
		{"ZZ", "AAA", -1},
		{"B", "A", 1},
		{"a", "B", 1}, // code unit order, not case folded
		{"same", "same", 0},
		{"\U0001F600", "ab", 1}, // a surrogate pair is two units
	}
	for _, tc := range cases {
		if got := compareNames(tc.a, tc.b); got != tc.want {
			t.Fatalf("compareNames(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
