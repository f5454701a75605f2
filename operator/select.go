package operator

import (
	"context"
	"fmt"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/expr"
	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// Select filters its child's tuples by a boolean predicate evaluated in
// the child's schema environment (spec §4.5). It is pipelined: it pulls
// one child page at a time and emits matching tuples directly.
type Select struct {
	*base
	child     Operator
	predicate expr.Predicate
	childDone bool
}

// NewSelect builds a Select over child, keeping child's schema as its
// own output schema (Select never changes field shape).
func NewSelect(store storage.PageStore, opts Options, child Operator, predicate expr.Predicate) *Select {
	return &Select{
		base:      newBase("Select", store, opts, child.Schema()),
		child:     child,
		predicate: predicate,
	}
}

func (s *Select) Schema() catalog.Schema         { return s.schema }
func (s *Select) InputSchemas() []catalog.Schema { return []catalog.Schema{s.child.Schema()} }
func (s *Select) Inputs() []Operator             { return []Operator{s.child} }
func (s *Select) OperatorType() string           { return "Select" }
func (s *Select) Explain() string                { return fmt.Sprintf("Select(%s)", s.child.Explain()) }

func (s *Select) Open(ctx context.Context) error {
	if err := s.initializeOutput(ctx); err != nil {
		return err
	}
	return s.child.Open(ctx)
}

func (s *Select) Next(ctx context.Context) (storage.PageID, *storage.Page, error) {
	for {
		if id, p, ok := s.popPending(); ok {
			return id, p, nil
		}
		if s.childDone {
			return storage.PageID{}, nil, nil
		}
		_, page, err := s.child.Next(ctx)
		if err != nil {
			return storage.PageID{}, nil, err
		}
		if page == nil {
			s.childDone = true
			s.flushCurrent()
			continue
		}
		if err := s.processInputPage(ctx, page); err != nil {
			return storage.PageID{}, nil, err
		}
	}
}

func (s *Select) processInputPage(ctx context.Context, page *storage.Page) error {
	for _, tuple := range page.Tuples() {
		rec, err := s.base.loadSchema(tuple)
		if err != nil {
			return fmt.Errorf("operator Select: %w", err)
		}
		ok, err := s.predicate.Eval(expr.EnvOf(rec))
		if err != nil {
			return fmt.Errorf("operator Select: evaluation: %w", err)
		}
		if ok {
			if err := s.emitOutputTuple(ctx, tuple); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Select) Close() error {
	return s.child.Close()
}
