// Package keyspec builds record comparators from a short textual
// description of the key fields, such as "date@9,-u16le@0,str30@2".
//
// Each field is [-]type@offset. Fields are compared in order and the first
// difference decides; a leading '-' reverses that field.
package keyspec

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"sortdb/pkg/common"
	"strconv"
	"strings"
)

type kind int

const (
	kindInt kind = iota
	kindUint
	kindFloat
	kindString
	kindBytes
	kindDate
)

type fieldType struct {
	kind  kind
	width int
	order binary.ByteOrder
}

var fixedTypes = map[string]fieldType{
	"i8":    {kindInt, 1, binary.LittleEndian},
	"u8":    {kindUint, 1, binary.LittleEndian},
	"i16le": {kindInt, 2, binary.LittleEndian},
	"i16be": {kindInt, 2, binary.BigEndian},
	"u16le": {kindUint, 2, binary.LittleEndian},
	"u16be": {kindUint, 2, binary.BigEndian},
	"i32le": {kindInt, 4, binary.LittleEndian},
	"i32be": {kindInt, 4, binary.BigEndian},
	"u32le": {kindUint, 4, binary.LittleEndian},
	"u32be": {kindUint, 4, binary.BigEndian},
	"i64le": {kindInt, 8, binary.LittleEndian},
	"i64be": {kindInt, 8, binary.BigEndian},
	"u64le": {kindUint, 8, binary.LittleEndian},
	"u64be": {kindUint, 8, binary.BigEndian},
	"f64le": {kindFloat, 8, binary.LittleEndian},
	"date":  {kindDate, 4, binary.LittleEndian},
}

// Field is one key component.
type Field struct {
	Name   string
	Offset int
	Desc   bool
	typ    fieldType
}

func (f Field) Width() int {
	return f.typ.width
}

type Spec struct {
	Fields []Field
}

func Parse(s string) (*Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("keyspec: empty key spec")
	}

	spec := &Spec{}
	for _, part := range strings.Split(s, ",") {
		f, err := parseField(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		spec.Fields = append(spec.Fields, f)
	}
	return spec, nil
}

func parseField(s string) (Field, error) {
	var f Field
	if strings.HasPrefix(s, "-") {
		f.Desc = true
		s = s[1:]
	}

	name, off, ok := strings.Cut(s, "@")
	if !ok {
		return Field{}, fmt.Errorf("keyspec: field %q: missing @offset", s)
	}
	offset, err := strconv.Atoi(off)
	if err != nil || offset < 0 {
		return Field{}, fmt.Errorf("keyspec: field %q: bad offset %q", s, off)
	}

	typ, err := lookupType(name)
	if err != nil {
		return Field{}, err
	}
	f.Name = name
	f.Offset = offset
	f.typ = typ
	return f, nil
}

func lookupType(name string) (fieldType, error) {
	if t, ok := fixedTypes[name]; ok {
		return t, nil
	}
	for prefix, k := range map[string]kind{"str": kindString, "bytes": kindBytes} {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := strconv.Atoi(name[len(prefix):])
		if err != nil || n <= 0 || n > common.MaxRecordSize {
			return fieldType{}, fmt.Errorf("keyspec: bad width in %q", name)
		}
		return fieldType{kind: k, width: n}, nil
	}
	return fieldType{}, fmt.Errorf("keyspec: unknown field type %q", name)
}

// MinRecordSize is the smallest record that holds every field.
func (s *Spec) MinRecordSize() int {
	size := 0
	for _, f := range s.Fields {
		if end := f.Offset + f.Width(); end > size {
			size = end
		}
	}
	return size
}

// Compare orders two records field by field. It satisfies
// common.Comparator. Records shorter than MinRecordSize panic.
func (s *Spec) Compare(a, b []byte) int {
	for _, f := range s.Fields {
		c := f.compare(a[f.Offset:f.Offset+f.Width()], b[f.Offset:f.Offset+f.Width()])
		if c != 0 {
			if f.Desc {
				return -c
			}
			return c
		}
	}
	return common.Equal
}

func (f Field) compare(a, b []byte) int {
	switch f.typ.kind {
	case kindInt:
		return cmp.Compare(f.decodeInt(a), f.decodeInt(b))
	case kindUint:
		return cmp.Compare(f.decodeUint(a), f.decodeUint(b))
	case kindFloat:
		return cmp.Compare(math.Float64frombits(f.decodeUint(a)), math.Float64frombits(f.decodeUint(b)))
	case kindString:
		return bytes.Compare(cstring(a), cstring(b))
	case kindDate:
		return sign(common.DateFromBytes(a).Compare(common.DateFromBytes(b)))
	default:
		return bytes.Compare(a, b)
	}
}

func (f Field) decodeUint(b []byte) uint64 {
	switch f.typ.width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(f.typ.order.Uint16(b))
	case 4:
		return uint64(f.typ.order.Uint32(b))
	default:
		return f.typ.order.Uint64(b)
	}
}

func (f Field) decodeInt(b []byte) int64 {
	switch f.typ.width {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(f.typ.order.Uint16(b)))
	case 4:
		return int64(int32(f.typ.order.Uint32(b)))
	default:
		return int64(f.typ.order.Uint64(b))
	}
}

// Encode builds a probe record of the given size with one textual value
// per field. Bytes outside the key fields are zero.
func (s *Spec) Encode(values []string, size int) ([]byte, error) {
	if err := common.CheckRecordSize(size); err != nil {
		return nil, err
	}
	if size < s.MinRecordSize() {
		return nil, fmt.Errorf("keyspec: record size %d smaller than key span %d", size, s.MinRecordSize())
	}
	if len(values) != len(s.Fields) {
		return nil, fmt.Errorf("keyspec: %d values for %d fields", len(values), len(s.Fields))
	}

	rec := make([]byte, size)
	for i, f := range s.Fields {
		if err := f.encode(rec[f.Offset:f.Offset+f.Width()], values[i]); err != nil {
			return nil, fmt.Errorf("keyspec: field %s@%d: %w", f.Name, f.Offset, err)
		}
	}
	return rec, nil
}

func (f Field) encode(dst []byte, v string) error {
	switch f.typ.kind {
	case kindInt:
		n, err := strconv.ParseInt(v, 0, f.typ.width*8)
		if err != nil {
			return err
		}
		f.putUint(dst, uint64(n))
	case kindUint:
		n, err := strconv.ParseUint(v, 0, f.typ.width*8)
		if err != nil {
			return err
		}
		f.putUint(dst, n)
	case kindFloat:
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		f.putUint(dst, math.Float64bits(x))
	case kindString, kindBytes:
		if len(v) > len(dst) {
			return fmt.Errorf("value %q longer than %d bytes", v, len(dst))
		}
		copy(dst, v)
	case kindDate:
		d, err := common.ParseDate(v)
		if err != nil {
			return err
		}
		copy(dst, d.Bytes())
	}
	return nil
}

func (f Field) putUint(dst []byte, v uint64) {
	switch f.typ.width {
	case 1:
		dst[0] = byte(v)
	case 2:
		f.typ.order.PutUint16(dst, uint16(v))
	case 4:
		f.typ.order.PutUint32(dst, uint32(v))
	default:
		f.typ.order.PutUint64(dst, v)
	}
}

func (s *Spec) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		prefix := ""
		if f.Desc {
			prefix = "-"
		}
		parts[i] = fmt.Sprintf("%s%s@%d", prefix, f.Name, f.Offset)
	}
	return strings.Join(parts, ",")
}

func cstring(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

func sign(c int) int {
	switch {
	case c < 0:
		return common.Less
	case c > 0:
		return common.Greater
	default:
		return common.Equal
	}
}
