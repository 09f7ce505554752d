package keyspec

import (
	"encoding/binary"
	"testing"

	"sortdb/pkg/common"
)

func TestParseAndString(t *testing.T) {
	spec, err := Parse(" date@9 , -u16le@0,str30@13 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spec.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(spec.Fields))
	}
	if !spec.Fields[1].Desc || spec.Fields[1].Offset != 0 || spec.Fields[1].Width() != 2 {
		t.Fatalf("unexpected second field %+v", spec.Fields[1])
	}
	if got := spec.String(); got != "date@9,-u16le@0,str30@13" {
		t.Fatalf("unexpected string %q", got)
	}
	if got := spec.MinRecordSize(); got != 43 {
		t.Fatalf("expected min record size 43, got %d", got)
	}
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{"", "i64le", "i64le@x", "i64le@-1", "i128@0", "str@0", "str0@0", "bytes-2@0", "i64le@0,"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error", s)
		}
	}
}

func TestIntegerOrdering(t *testing.T) {
	spec, err := Parse("i32le@0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	neg, pos := make([]byte, 4), make([]byte, 4)
	binary.LittleEndian.PutUint32(neg, uint32(0xFFFFFFFF)) // -1
	binary.LittleEndian.PutUint32(pos, 1)
	if spec.Compare(neg, pos) >= 0 {
		t.Fatal("signed field: -1 should sort before 1")
	}

	uspec, err := Parse("u32le@0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if uspec.Compare(neg, pos) <= 0 {
		t.Fatal("unsigned field: 0xFFFFFFFF should sort after 1")
	}

	be, err := Parse("u16be@0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if be.Compare([]byte{0x01, 0x00}, []byte{0x00, 0xFF}) <= 0 {
		t.Fatal("big-endian 256 should sort after 255")
	}
}

func TestDescendingAndCompositeKeys(t *testing.T) {
	// Layout: date at 0, u16le quantity at 4.
	spec, err := Parse("date@0,-u16le@4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec := func(date string, qty string) []byte {
		b, err := spec.Encode([]string{date, qty}, 8)
		if err != nil {
			t.Fatalf("encode %s %s: %v", date, qty, err)
		}
		return b
	}

	if spec.Compare(rec("01/02/2020", "5"), rec("31/01/2020", "9")) <= 0 {
		t.Fatal("later date must sort after earlier date")
	}
	if spec.Compare(rec("01/02/2020", "9"), rec("01/02/2020", "5")) >= 0 {
		t.Fatal("descending quantity: 9 must sort before 5")
	}
	if spec.Compare(rec("01/02/2020", "5"), rec("01/02/2020", "5")) != common.Equal {
		t.Fatal("identical keys must compare equal")
	}
}

func TestStringFieldsStopAtNUL(t *testing.T) {
	spec, err := Parse("str8@0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a := []byte("abc\x00zzzz")
	b := []byte("abc\x00aaaa")
	if spec.Compare(a, b) != 0 {
		t.Fatal("bytes after NUL must be ignored")
	}
	if spec.Compare([]byte("ab\x00\x00\x00\x00\x00\x00"), []byte("abc\x00\x00\x00\x00\x00")) >= 0 {
		t.Fatal("prefix must sort first")
	}

	raw, err := Parse("bytes8@0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if raw.Compare(a, b) <= 0 {
		t.Fatal("bytes fields compare every byte")
	}
}

func TestFloatField(t *testing.T) {
	spec, err := Parse("f64le@0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, err := spec.Encode([]string{"-2.5"}, 8)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := spec.Encode([]string{"1e3"}, 8)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if spec.Compare(a, b) >= 0 {
		t.Fatal("-2.5 should sort before 1000")
	}
}

func TestEncode(t *testing.T) {
	spec, err := Parse("i64le@0,str4@8")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec, err := spec.Encode([]string{"-7", "EUR"}, 16)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(rec) != 16 {
		t.Fatalf("expected 16 byte record, got %d", len(rec))
	}
	if v := int64(binary.LittleEndian.Uint64(rec)); v != -7 {
		t.Fatalf("expected -7, got %d", v)
	}
	if string(rec[8:12]) != "EUR\x00" {
		t.Fatalf("unexpected string bytes %q", rec[8:12])
	}

	if _, err := spec.Encode([]string{"1"}, 16); err == nil {
		t.Fatal("expected error for missing value")
	}
	if _, err := spec.Encode([]string{"1", "EUR"}, 10); err == nil {
		t.Fatal("expected error for record smaller than the key span")
	}
	if _, err := spec.Encode([]string{"x", "EUR"}, 16); err == nil {
		t.Fatal("expected error for a non-numeric value")
	}
	if _, err := spec.Encode([]string{"1", "TOOLONG"}, 16); err == nil {
		t.Fatal("expected error for an oversized string")
	}

	u8, _ := Parse("u8@0")
	if _, err := u8.Encode([]string{"256"}, 1); err == nil {
		t.Fatal("expected range error for u8 value 256")
	}
	date, _ := Parse("date@0")
	if _, err := date.Encode([]string{"29/02/2023"}, 4); err == nil {
		t.Fatal("expected error for 29/02/2023")
	}
}
