package currency

import (
	"errors"
	"path/filepath"
	"testing"

	"sortdb/pkg/common"
	"sortdb/pkg/storage/recordfile"
)

func date(t *testing.T, s string) common.Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return d
}

func TestEncodeDecodeRate(t *testing.T) {
	r := Rate{Currency: "EUR", Date: date(t, "05/03/2021"), Rate: 1.1875}
	buf, err := EncodeRate(r)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(buf) != RecordSize {
		t.Fatalf("expected %d bytes, got %d", RecordSize, len(buf))
	}
	if string(buf[0:10]) != "05/03/2021" || string(buf[10:14]) != "EUR\x00" {
		t.Fatalf("unexpected layout %q", buf[:14])
	}

	got, err := DecodeRate(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != r {
		t.Fatalf("round trip: got %+v want %+v", got, r)
	}

	if _, err := EncodeRate(Rate{Currency: "EURO", Date: r.Date, Rate: 1}); err == nil {
		t.Fatal("expected error for 4 letter code")
	}
	if _, err := DecodeRate(buf[:10]); err == nil {
		t.Fatal("expected error for short record")
	}
}

func TestParseDate(t *testing.T) {
	valid := []string{"29/02/2024", "29/02/2000", "31/12/1999", "30/04/2020", "01/01/1900", "31/12/2100"}
	for _, s := range valid {
		if _, err := ParseDate(s); err != nil {
			t.Errorf("ParseDate(%q): %v", s, err)
		}
	}
	invalid := []string{"29/02/2023", "29/02/1900", "31/04/2020", "00/01/2020", "01/13/2020", "31/12/1899", "01/01/2101", "1/1/2020", "2020-01-01", ""}
	for _, s := range invalid {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q): expected error", s)
		}
	}
}

func TestRoundToThirdDecimal(t *testing.T) {
	cases := map[float64]float64{
		1.23456:  1.235,
		-1.23456: -1.235,
		2.0004:   2.0,
		10:       10,
	}
	for in, want := range cases {
		if got := RoundToThirdDecimal(in); got != want {
			t.Errorf("RoundToThirdDecimal(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestDaysApart(t *testing.T) {
	a := date(t, "01/01/2020")
	if DaysApart(a, a) != 0 {
		t.Fatal("same date should be 0 days apart")
	}
	if got := DaysApart(a, date(t, "11/01/2020")); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := DaysApart(date(t, "01/03/2020"), a); got != 60 {
		t.Fatalf("two months apart should be 60 in the approximation, got %d", got)
	}
}

func newCache(t *testing.T, rates ...Rate) *RateCache {
	t.Helper()
	c := NewRateCache(4)
	for _, r := range rates {
		if err := c.Add(r); err != nil {
			t.Fatalf("add %+v: %v", r, err)
		}
	}
	return c
}

func TestNearest(t *testing.T) {
	c := newCache(t,
		Rate{"EUR", date(t, "01/01/2020"), 1.10},
		Rate{"EUR", date(t, "11/01/2020"), 1.20},
		Rate{"EUR", date(t, "31/01/2020"), 1.30},
		Rate{"GBP", date(t, "15/01/2020"), 1.50},
		Rate{"AUD", date(t, "15/01/2020"), 0.70},
	)

	cases := []struct {
		day  string
		want float64
	}{
		{"11/01/2020", 1.20}, // exact
		{"03/01/2020", 1.10}, // closer to the 1st
		{"09/01/2020", 1.20}, // closer to the 11th
		{"06/01/2020", 1.10}, // tie between the 1st and 11th goes to the earlier date
		{"01/06/2019", 1.10}, // before every rate
		{"01/06/2021", 1.30}, // after every rate
	}
	for _, tc := range cases {
		r, err := c.Nearest("EUR", date(t, tc.day))
		if err != nil {
			t.Fatalf("nearest %s: %v", tc.day, err)
		}
		if r.Rate != tc.want || r.Currency != "EUR" {
			t.Errorf("nearest %s: got %+v, want rate %v", tc.day, r, tc.want)
		}
	}

	if _, err := c.Nearest("JPY", date(t, "01/01/2020")); !errors.Is(err, ErrNoRate) {
		t.Fatalf("expected ErrNoRate, got %v", err)
	}
}

func TestConvert(t *testing.T) {
	c := newCache(t, Rate{"EUR", date(t, "01/01/2020"), 1.1})

	usd, err := c.Convert(100.12345, USD, date(t, "01/01/2020"))
	if err != nil || usd != 100.123 {
		t.Fatalf("USD passthrough: got %v err %v", usd, err)
	}
	usd, err = c.Convert(10, "EUR", date(t, "05/01/2020"))
	if err != nil || usd != 11 {
		t.Fatalf("EUR conversion: got %v err %v", usd, err)
	}
	if _, err := c.Convert(10, "CHF", date(t, "05/01/2020")); !errors.Is(err, ErrNoRate) {
		t.Fatalf("expected ErrNoRate, got %v", err)
	}
}

func TestAddRejectsInvalidRates(t *testing.T) {
	c := NewRateCache(4)
	if err := c.Add(Rate{"EUR", date(t, "01/01/2020"), 0}); err == nil {
		t.Fatal("expected error for zero rate")
	}
	if err := c.Add(Rate{"EUR", date(t, "01/01/2020"), -1}); err == nil {
		t.Fatal("expected error for negative rate")
	}
	if c.Len() != 0 {
		t.Fatalf("invalid rates must not be stored, got %d", c.Len())
	}
}

func TestLoadFileSkipsBadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.dat")
	good1, _ := EncodeRate(Rate{"EUR", date(t, "01/01/2020"), 1.1})
	good2, _ := EncodeRate(Rate{"GBP", date(t, "02/01/2020"), 1.3})
	badDate := make([]byte, RecordSize)
	copy(badDate, "31/02/2020EUR")
	badRate, _ := EncodeRate(Rate{"EUR", date(t, "03/01/2020"), -2})

	if err := recordfile.WriteAll(path, RecordSize, [][]byte{good1, badDate, good2, badRate}); err != nil {
		t.Fatalf("write rates: %v", err)
	}

	c := NewRateCache(4)
	n, err := c.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if n != 2 || c.Len() != 2 {
		t.Fatalf("expected 2 rates loaded, got %d (len %d)", n, c.Len())
	}

	if _, err := c.LoadFile(filepath.Join(t.TempDir(), "missing.dat")); !errors.Is(err, common.ErrIO) {
		t.Fatalf("expected ErrIO for missing file, got %v", err)
	}
}
