package catalog

// Record is a name-addressable, typed view over one tuple's values. It is
// the environment the expr and agg packages evaluate against (spec §4.1
// loadSchema / §6 "name->value environment").
type Record struct {
	schema Schema
	values []any
}

// NewRecord pairs a schema with already-typed values, as produced by
// Schema.Unpack or Schema.Instantiate.
func NewRecord(schema Schema, values []any) Record {
	return Record{schema: schema, values: values}
}

// Get resolves a field by name. The second return is false if the schema
// has no field with that name.
func (r Record) Get(name string) (any, bool) {
	idx, ok := r.schema.FieldIndex(name)
	if !ok {
		return nil, false
	}
	return r.values[idx], true
}

// Values returns the underlying positional value slice.
func (r Record) Values() []any {
	return r.values
}

// Schema returns the record's schema.
func (r Record) Schema() Schema {
	return r.schema
}
