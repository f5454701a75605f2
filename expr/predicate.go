package expr

import "fmt"

// CompareOp enumerates the comparison operators a Compare predicate
// supports, mirroring query.CompareOp (datalog/query/predicate.go).
type CompareOp int

const (
	OpEQ CompareOp = iota
	OpNE
	OpLT
	OpLTE
	OpGT
	OpGTE
)

// Predicate is a boolean expression over an Env (spec §4.1, §6).
type Predicate interface {
	Eval(env Env) (bool, error)
}

// Compare implements the common "field OP value" / "field OP field"
// predicate shape used by Select and by tuple/block-nested-loop join
// predicates, grounded on query.Comparison.Eval.
type Compare struct {
	Op          CompareOp
	Left, Right Term
}

func (c Compare) Eval(env Env) (bool, error) {
	l, err := c.Left.Resolve(env)
	if err != nil {
		return false, err
	}
	r, err := c.Right.Resolve(env)
	if err != nil {
		return false, err
	}
	cmp, err := compareValues(l, r)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case OpEQ:
		return cmp == 0, nil
	case OpNE:
		return cmp != 0, nil
	case OpLT:
		return cmp < 0, nil
	case OpLTE:
		return cmp <= 0, nil
	case OpGT:
		return cmp > 0, nil
	case OpGTE:
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("expr: unknown comparison operator %v", c.Op)
	}
}

func compareValues(a, b any) (int, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("expr: cannot compare %T with %T", a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// And/Or/Not compose predicates, mirroring the conjunction-composition
// idiom used throughout query/predicate.go callers.
type And struct{ Terms []Predicate }

func (a And) Eval(env Env) (bool, error) {
	for _, p := range a.Terms {
		ok, err := p.Eval(env)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

type Or struct{ Terms []Predicate }

func (o Or) Eval(env Env) (bool, error) {
	for _, p := range o.Terms {
		ok, err := p.Eval(env)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type Not struct{ Term Predicate }

func (n Not) Eval(env Env) (bool, error) {
	ok, err := n.Term.Eval(env)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
