// Package agg implements the (init, step, finalize) aggregate-expression
// triples GroupBy drives (spec §4.4), reshaping the teacher's single
// mutable AggregateState (datalog/executor/aggregation.go) into the
// explicit triple the spec requires.
package agg

import (
	"fmt"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
)

// Expr is one aggregate output field's accumulator contract.
type Expr struct {
	Init     any
	Step     func(acc any, t catalog.Record) any
	Finalize func(acc any) any
}

// Count counts input tuples, ignoring field values.
func Count() Expr {
	return Expr{
		Init: int64(0),
		Step: func(acc any, t catalog.Record) any {
			return acc.(int64) + 1
		},
		Finalize: func(acc any) any { return acc },
	}
}

// Sum accumulates a running sum over a named numeric field.
func Sum(field string) Expr {
	return Expr{
		Init: float64(0),
		Step: func(acc any, t catalog.Record) any {
			v, ok := t.Get(field)
			if !ok {
				return acc
			}
			return acc.(float64) + toFloat(v)
		},
		Finalize: func(acc any) any { return acc },
	}
}

// Avg accumulates a running (sum, count) pair and divides at finalize.
func Avg(field string) Expr {
	type state struct {
		sum   float64
		count int64
	}
	return Expr{
		Init: state{},
		Step: func(acc any, t catalog.Record) any {
			s := acc.(state)
			v, ok := t.Get(field)
			if !ok {
				return s
			}
			s.sum += toFloat(v)
			s.count++
			return s
		},
		Finalize: func(acc any) any {
			s := acc.(state)
			if s.count == 0 {
				return float64(0)
			}
			return s.sum / float64(s.count)
		},
	}
}

// Min tracks the smallest value seen for field.
func Min(field string) Expr {
	return Expr{
		Init: (*float64)(nil),
		Step: func(acc any, t catalog.Record) any {
			v, ok := t.Get(field)
			if !ok {
				return acc
			}
			f := toFloat(v)
			cur := acc.(*float64)
			if cur == nil || f < *cur {
				return &f
			}
			return cur
		},
		Finalize: func(acc any) any {
			cur := acc.(*float64)
			if cur == nil {
				return float64(0)
			}
			return *cur
		},
	}
}

// Max tracks the largest value seen for field.
func Max(field string) Expr {
	return Expr{
		Init: (*float64)(nil),
		Step: func(acc any, t catalog.Record) any {
			v, ok := t.Get(field)
			if !ok {
				return acc
			}
			f := toFloat(v)
			cur := acc.(*float64)
			if cur == nil || f > *cur {
				return &f
			}
			return cur
		},
		Finalize: func(acc any) any {
			cur := acc.(*float64)
			if cur == nil {
				return float64(0)
			}
			return *cur
		},
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

// ValidateArity checks that one Expr exists per aggregate output field
// (spec §4.4: "|aggExprs| must equal |aggSchema.fields|").
func ValidateArity(exprs []Expr, aggSchema catalog.Schema) error {
	if len(exprs) != len(aggSchema.Fields) {
		return fmt.Errorf("agg: %d aggregate expressions for %d aggregate fields", len(exprs), len(aggSchema.Fields))
	}
	return nil
}
