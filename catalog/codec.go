package catalog

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Pack encodes values, which must match s field-for-field, into a
// fixed-width byte record. Byte framing follows the same fixed-field,
// binary.BigEndian convention the teacher's datom codec uses
// (datalog/storage/types.go StorageDatom.Bytes), rather than a
// self-describing message format — appropriate since every field's width
// is already known from the schema.
func (s Schema) Pack(values ...any) ([]byte, error) {
	if len(values) != len(s.Fields) {
		return nil, fmt.Errorf("catalog: pack expects %d values, got %d", len(s.Fields), len(values))
	}
	buf := make([]byte, 0, s.Width())
	for i, f := range s.Fields {
		enc, err := packValue(f.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("catalog: field %q: %w", f.Name, err)
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

func packValue(t FieldType, v any) ([]byte, error) {
	switch t.Kind {
	case IntType:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(n))
		return b, nil
	case FloatType:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(f))
		return b, nil
	case CharType:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for char(%d), got %T", t.Len, v)
		}
		b := make([]byte, t.Len)
		copy(b, s)
		return b, nil
	default:
		return nil, fmt.Errorf("unknown field kind %v", t.Kind)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected int, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected float, got %T", v)
	}
}

// Unpack is the inverse of Pack: it decodes b into a typed Record under s.
func (s Schema) Unpack(b []byte) (Record, error) {
	if len(b) != s.Width() {
		return Record{}, fmt.Errorf("catalog: unpack expects %d bytes, got %d", s.Width(), len(b))
	}
	values := make([]any, len(s.Fields))
	offset := 0
	for i, f := range s.Fields {
		w := f.Type.Width()
		chunk := b[offset : offset+w]
		switch f.Type.Kind {
		case IntType:
			values[i] = int64(binary.BigEndian.Uint64(chunk))
		case FloatType:
			values[i] = math.Float64frombits(binary.BigEndian.Uint64(chunk))
		case CharType:
			values[i] = trimNulls(chunk)
		}
		offset += w
	}
	return NewRecord(s, values), nil
}

func trimNulls(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

// Instantiate packs already-typed values directly into a Record without a
// byte round-trip, used by operators constructing a fresh tuple in memory
// (e.g. GroupBy emitting a group+aggregate record before packing it out).
func (s Schema) Instantiate(values ...any) (Record, error) {
	if len(values) != len(s.Fields) {
		return Record{}, fmt.Errorf("catalog: instantiate expects %d values, got %d", len(s.Fields), len(values))
	}
	return NewRecord(s, values), nil
}
