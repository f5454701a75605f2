// Package catalog defines the fixed-width relational schema and tuple
// codec consumed by the operator package.
package catalog

import "fmt"

// FieldType is a fixed-width scalar type.
type FieldType struct {
	Kind FieldKind
	Len  int // byte length for CharType; ignored otherwise
}

// FieldKind enumerates the supported scalar kinds.
type FieldKind int

const (
	IntType FieldKind = iota
	FloatType
	CharType
)

func Int() FieldType          { return FieldType{Kind: IntType} }
func Float() FieldType        { return FieldType{Kind: FloatType} }
func Char(n int) FieldType    { return FieldType{Kind: CharType, Len: n} }

// Width returns the packed byte width of a value of this type.
func (t FieldType) Width() int {
	switch t.Kind {
	case IntType, FloatType:
		return 8
	case CharType:
		return t.Len
	default:
		return 0
	}
}

func (t FieldType) String() string {
	switch t.Kind {
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case CharType:
		return fmt.Sprintf("char(%d)", t.Len)
	default:
		return "unknown"
	}
}

// Field is a named, typed column.
type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered list of fields tagged with a relation name.
type Schema struct {
	RelationName string
	Fields       []Field
}

// NewSchema builds a Schema from name/type pairs.
func NewSchema(relationName string, fields ...Field) Schema {
	return Schema{RelationName: relationName, Fields: fields}
}

// Match reports whether two schemas have equivalent field type sequences.
// Field names may differ; this is the union-compatibility check (spec §3).
func (s Schema) Match(other Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range s.Fields {
		o := other.Fields[i]
		if f.Type.Kind != o.Type.Kind {
			return false
		}
		if f.Type.Kind == CharType && f.Type.Len != o.Type.Len {
			return false
		}
	}
	return true
}

// FieldIndex returns the position of a named field, requiring an exact
// name match (unlike Match, which only compares type sequences).
func (s Schema) FieldIndex(name string) (int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Width returns the total packed byte width of a tuple under this schema.
func (s Schema) Width() int {
	w := 0
	for _, f := range s.Fields {
		w += f.Type.Width()
	}
	return w
}

// Concat returns a new schema whose fields are this schema's fields
// followed by other's fields, used for join output schemas (spec §4.3).
func (s Schema) Concat(other Schema, relationName string) Schema {
	fields := make([]Field, 0, len(s.Fields)+len(other.Fields))
	fields = append(fields, s.Fields...)
	fields = append(fields, other.Fields...)
	return Schema{RelationName: relationName, Fields: fields}
}

// DisjointFieldNames reports whether s and other share no field name.
func (s Schema) DisjointFieldNames(other Schema) bool {
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		seen[f.Name] = struct{}{}
	}
	for _, f := range other.Fields {
		if _, ok := seen[f.Name]; ok {
			return false
		}
	}
	return true
}
