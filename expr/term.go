// Package expr is the expression-evaluation plug-in the operator package
// consumes for predicates and hash functions, replacing the reference
// implementation's eval()-of-strings boundary with a small Go-native AST
// (spec §9 design note: "A systems-language port should replace this with
// ... a small AST evaluator"). Grounded on the Term/Comparison shape of
// datalog/query/predicate.go, adapted from Datalog symbol terms to
// relational field terms.
package expr

import "github.com/georgejdanforth/dbsys-hw2/catalog"

// Env is the name->value environment a term resolves against (spec §4.1
// loadSchema, §6 "name→value environment").
type Env interface {
	Get(name string) (any, bool)
}

// recordEnv adapts catalog.Record to Env.
type recordEnv struct {
	rec catalog.Record
}

// EnvOf wraps a catalog.Record as an Env.
func EnvOf(rec catalog.Record) Env {
	return recordEnv{rec: rec}
}

func (e recordEnv) Get(name string) (any, bool) {
	return e.rec.Get(name)
}

// CombinedEnv looks a name up in left first, then right, used by Join to
// build the combined left∪right environment (spec §4.3.1).
type CombinedEnv struct {
	Left, Right Env
}

func (e CombinedEnv) Get(name string) (any, bool) {
	if v, ok := e.Left.Get(name); ok {
		return v, true
	}
	return e.Right.Get(name)
}

// Term is a value-producing expression node.
type Term interface {
	Resolve(env Env) (any, error)
}

// FieldTerm resolves a named field from the environment.
type FieldTerm struct {
	Name string
}

func Field(name string) Term { return FieldTerm{Name: name} }

func (t FieldTerm) Resolve(env Env) (any, error) {
	v, ok := env.Get(t.Name)
	if !ok {
		return nil, &FieldNotFoundError{Name: t.Name}
	}
	return v, nil
}

// FieldNotFoundError is returned when a FieldTerm names a field absent
// from the environment (spec §7 "evaluation" error kind).
type FieldNotFoundError struct {
	Name string
}

func (e *FieldNotFoundError) Error() string {
	return "expr: field not found: " + e.Name
}

// ConstTerm resolves to a fixed value regardless of the environment.
type ConstTerm struct {
	Value any
}

func Const(v any) Term { return ConstTerm{Value: v} }

func (t ConstTerm) Resolve(env Env) (any, error) {
	return t.Value, nil
}
