package common

import (
	"errors"
	"fmt"
)

// Comparator orders two records of the same size. It returns a negative
// value when a sorts before b, zero when they are equal and a positive
// value otherwise.
type Comparator func(a, b []byte) int

const (
	Less    = -1
	Equal   = 0
	Greater = 1
)

var (
	ErrIO        = errors.New("io error")
	ErrAlloc     = errors.New("allocation error")
	ErrAlgorithm = errors.New("algorithm error")
)

// MaxRecordSize bounds the size of a single record buffer.
const MaxRecordSize = 1 << 24

// CheckRecordSize reports ErrAlloc when a record buffer of the given size
// cannot be handed out.
func CheckRecordSize(size int) error {
	if size <= 0 || size > MaxRecordSize {
		return fmt.Errorf("%w: invalid record size %d", ErrAlloc, size)
	}
	return nil
}

// IOErr wraps err as an ErrIO with some context.
func IOErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// Date is the 4 byte on-disk date: day, month, then a little-endian year.
type Date struct {
	Day   uint8
	Month uint8
	Year  uint16
}

func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// Compare orders dates chronologically.
func (d Date) Compare(o Date) int {
	if d.Year != o.Year {
		return int(d.Year) - int(o.Year)
	}
	if d.Month != o.Month {
		return int(d.Month) - int(o.Month)
	}
	return int(d.Day) - int(o.Day)
}

func (d Date) Bytes() []byte {
	return []byte{d.Day, d.Month, byte(d.Year), byte(d.Year >> 8)}
}

func DateFromBytes(b []byte) Date {
	return Date{Day: b[0], Month: b[1], Year: uint16(b[2]) | uint16(b[3])<<8}
}

// Years outside this range are rejected by ParseDate.
const (
	MinYear = 1900
	MaxYear = 2100
)

// ParseDate parses "DD/MM/YYYY", checking the day against the month
// length and leap years.
func ParseDate(s string) (Date, error) {
	var d, m, y int
	if len(s) != 10 || s[2] != '/' || s[5] != '/' {
		return Date{}, fmt.Errorf("invalid date %q: want DD/MM/YYYY", s)
	}
	if _, err := fmt.Sscanf(s, "%2d/%2d/%4d", &d, &m, &y); err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if y < MinYear || y > MaxYear || m < 1 || m > 12 || d < 1 || d > DaysInMonth(m, y) {
		return Date{}, fmt.Errorf("invalid date %q: out of range", s)
	}
	return Date{Day: uint8(d), Month: uint8(m), Year: uint16(y)}, nil
}

func IsLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func DaysInMonth(m, y int) int {
	switch m {
	case 2:
		if IsLeapYear(y) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}
