package cfb

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseClassID(t *testing.T) {
	c, err := ParseClassID("{00020906-0000-0000-C000-000000000046}")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x06, 0x09, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}
	if !bytes.Equal(c[:], want) {
		t.Fatalf("on-disk bytes % x", c[:])
	}
	if s := c.String(); s != "{00020906-0000-0000-c000-000000000046}" {
		t.Fatalf("String() = %s", s)
	}
	if c.UUID() != uuid.MustParse("00020906-0000-0000-c000-000000000046") {
		t.Fatal("UUID()")
	}
	if ClassIDFromUUID(c.UUID()) != c {
		t.Fatal("UUID conversion is not reversible")
	}
	if _, err := ParseClassID("not a guid"); err == nil {
		t.Fatal("expected error")
	}
	if !(ClassID{}).IsZero() || c.IsZero() {
		t.Fatal("IsZero")
	}
}

func TestFileTime(t *testing.T) {
	if !FileTimeToTime(0).IsZero() || TimeToFileTime(time.Time{}) != 0 {
		t.Fatal("zero values")
	}
	if got := FileTimeToTime(fileTimeUnixOffset); !got.Equal(time.Unix(0, 0)) {
		t.Fatalf("epoch = %v", got)
	}
	ts := time.Date(2021, 3, 14, 15, 9, 26, 535897900, time.UTC)
	ft := TimeToFileTime(ts)
	if back := FileTimeToTime(ft); !back.Equal(ts) {
		t.Fatalf("round trip %v != %v", back, ts)
	}
	// Before the Unix epoch.
	old := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	if back := FileTimeToTime(TimeToFileTime(old)); !back.Equal(old) {
		t.Fatalf("round trip %v != %v", back, old)
	}
}

func TestPropertyType(t *testing.T) {
	if !TypeRoot.IsDirectory() || !TypeDirectory.IsDirectory() || TypeDocument.IsDirectory() {
		t.Fatal("IsDirectory")
	}
	if PropertyType(3).known() || PropertyType(3).String() != "unknown" {
		t.Fatal("unknown tag")
	}
	if TypeDocument.String() != "document" {
		t.Fatal("String")
	}
}
