package operator

import (
	"context"
	"fmt"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// Union concatenates two input streams (union-all; no dedup), validating
// schema equivalence at construction (spec §4.2). Supports both pipelined
// and batch execution.
//
// Pipelined mode alternates between unfinished inputs, draining one page
// at a time from the lowest-indexed unfinished input, grounded directly
// on Query/Operators/Union.py's __next__ ("self.inputsFinished.index(False)")
// and on the teacher's StreamingUnionBuilder.unionStreaming
// (datalog/executor/streaming_union.go). Batch mode drains left then
// right, per Union.py's processAllPages.
type Union struct {
	*base
	left, right Operator
	pipelined   bool

	finished   [2]bool
	batchDrove bool
}

// NewUnion validates left.Schema().Match(right.Schema()) and returns a
// schema-mismatch error otherwise (spec §4.2, §8 scenario S6).
func NewUnion(store storage.PageStore, opts Options, left, right Operator, pipelined bool) (*Union, error) {
	if !left.Schema().Match(right.Schema()) {
		return nil, schemaErrorf("operator Union: schema mismatch between %q and %q", left.Schema().RelationName, right.Schema().RelationName)
	}
	return &Union{
		base:      newBase("Union", store, opts, left.Schema()),
		left:      left,
		right:     right,
		pipelined: pipelined,
	}, nil
}

func (u *Union) Schema() catalog.Schema { return u.schema }
func (u *Union) InputSchemas() []catalog.Schema {
	return []catalog.Schema{u.left.Schema(), u.right.Schema()}
}
func (u *Union) Inputs() []Operator   { return []Operator{u.left, u.right} }
func (u *Union) OperatorType() string { return "Union" }
func (u *Union) Explain() string {
	mode := "batch"
	if u.pipelined {
		mode = "pipelined"
	}
	return fmt.Sprintf("Union[%s](%s, %s)", mode, u.left.Explain(), u.right.Explain())
}

func (u *Union) Open(ctx context.Context) error {
	if err := u.initializeOutput(ctx); err != nil {
		return err
	}
	if err := u.left.Open(ctx); err != nil {
		return err
	}
	if err := u.right.Open(ctx); err != nil {
		return err
	}
	if !u.pipelined {
		return u.runBatch(ctx)
	}
	return nil
}

func (u *Union) runBatch(ctx context.Context) error {
	for _, in := range []Operator{u.left, u.right} {
		for {
			_, page, err := in.Next(ctx)
			if err != nil {
				return err
			}
			if page == nil {
				break
			}
			for _, tuple := range page.Tuples() {
				if err := u.emitOutputTuple(ctx, tuple); err != nil {
					return err
				}
			}
		}
	}
	u.flushCurrent()
	return nil
}

func (u *Union) Next(ctx context.Context) (storage.PageID, *storage.Page, error) {
	if !u.pipelined {
		if id, p, ok := u.popPending(); ok {
			return id, p, nil
		}
		return storage.PageID{}, nil, nil
	}

	for {
		if id, p, ok := u.popPending(); ok {
			return id, p, nil
		}
		idx, ok := u.lowestUnfinished()
		if !ok {
			u.flushCurrent()
			if id, p, ok := u.popPending(); ok {
				return id, p, nil
			}
			return storage.PageID{}, nil, nil
		}
		in := u.inputAt(idx)
		_, page, err := in.Next(ctx)
		if err != nil {
			return storage.PageID{}, nil, err
		}
		if page == nil {
			u.finished[idx] = true
			continue
		}
		for _, tuple := range page.Tuples() {
			if err := u.emitOutputTuple(ctx, tuple); err != nil {
				return storage.PageID{}, nil, err
			}
		}
	}
}

func (u *Union) lowestUnfinished() (int, bool) {
	for i, done := range u.finished {
		if !done {
			return i, true
		}
	}
	return 0, false
}

func (u *Union) inputAt(idx int) Operator {
	if idx == 0 {
		return u.left
	}
	return u.right
}

func (u *Union) Close() error {
	if err := u.left.Close(); err != nil {
		return err
	}
	return u.right.Close()
}
