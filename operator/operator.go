// Package operator implements the physical operator pipeline: the cursor
// iteration contract shared by every operator (spec §4.1), and the
// concrete Scan/Select/Project/Union/Join/GroupBy kernels (spec §4.2-4.5).
//
// The contract is re-architected from the reference's generator protocol
// into an explicit cursor per spec §9: Open/Next/Close, with the nested-loop
// joins' restartable right child modeled as a bufferedOperator that replays
// the child's pages. This mirrors the
// teacher's Relation/Iterator split in datalog/executor/relation.go, where
// Relation.Iterator() plays the role of Open and Iterator.Next()/Tuple()
// together play the role of Next.
package operator

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// Operator is the contract every physical operator satisfies (spec §4.1,
// §6 "Exposed by the core").
type Operator interface {
	Schema() catalog.Schema
	InputSchemas() []catalog.Schema
	Inputs() []Operator
	OperatorType() string
	Explain() string
	RelationID() string

	Open(ctx context.Context) error
	// Next returns the next output page, or a nil page once exhausted.
	Next(ctx context.Context) (storage.PageID, *storage.Page, error)
	Close() error
}

var nextOperatorID int64

// newOperatorID hands out a process-unique integer id (spec §3 "Operator
// identity").
func newOperatorID() int64 {
	return atomic.AddInt64(&nextOperatorID, 1)
}

// Options are the small, per-operator tunables threaded through
// constructors, mirroring executor.ExecutorOptions
// (datalog/executor/options.go) — a plain options struct passed by value
// rather than ambient global configuration.
type Options struct {
	PageCapacity     int
	BufferPoolPages  int
	EnableDebugTrace bool
}

// DefaultOptions returns sane defaults for small seed-scenario relations.
func DefaultOptions() Options {
	return Options{PageCapacity: 8, BufferPoolPages: 4}
}

// base is the shared-helper struct every concrete operator embeds,
// providing relationId(), initializeOutput(), and emitOutputTuple() from
// spec §4.1.
type base struct {
	id       int64
	opType   string
	store    storage.PageStore
	opts     Options
	schema   catalog.Schema
	pending  []*storage.Page
	current  *storage.Page
	pageSeq  uint64
	opened   bool
	exists   bool
}

func newBase(opType string, store storage.PageStore, opts Options, schema catalog.Schema) *base {
	return &base{
		id:     newOperatorID(),
		opType: opType,
		store:  store,
		opts:   opts,
		schema: schema,
	}
}

func (b *base) RelationID() string {
	return fmt.Sprintf("%s%d", b.opType, b.id)
}

// initializeOutput ensures the operator's output relation exists in
// storage (spec §4.1 initializeOutput).
func (b *base) initializeOutput(ctx context.Context) error {
	if b.exists {
		return nil
	}
	if err := b.store.CreateRelation(ctx, b.RelationID(), b.schema, b.opts.PageCapacity); err != nil {
		return fmt.Errorf("operator %s: %w", b.RelationID(), err)
	}
	b.exists = true
	return nil
}

// emitOutputTuple appends a tuple to the current output page, persisting
// it to storage and, on overflow, flushing the page and starting a new
// one (spec §4.1 emitOutputTuple).
func (b *base) emitOutputTuple(ctx context.Context, tuple []byte) error {
	if err := b.store.InsertTuple(ctx, b.RelationID(), tuple); err != nil {
		return fmt.Errorf("operator %s: emit tuple: %w", b.RelationID(), err)
	}
	if b.current == nil {
		b.current = storage.NewPage(storage.PageID{RelationID: b.RelationID(), Index: b.pageSeq}, b.opts.PageCapacity)
	}
	if !b.current.Insert(tuple) {
		b.flushCurrent()
		b.current = storage.NewPage(storage.PageID{RelationID: b.RelationID(), Index: b.pageSeq}, b.opts.PageCapacity)
		b.current.Insert(tuple)
	}
	return nil
}

func (b *base) flushCurrent() {
	if b.current == nil || b.current.Len() == 0 {
		b.current = nil
		return
	}
	b.pending = append(b.pending, b.current)
	b.pageSeq++
	b.current = nil
}

// popPending returns the next ready output page, if any.
func (b *base) popPending() (storage.PageID, *storage.Page, bool) {
	if len(b.pending) == 0 {
		return storage.PageID{}, nil, false
	}
	p := b.pending[0]
	b.pending = b.pending[1:]
	return p.ID, p, true
}

// loadSchema adapts a packed tuple to a catalog.Record against b.schema, the
// loadSchema helper of spec §4.1.
func (b *base) loadSchema(tuple []byte) (catalog.Record, error) {
	return b.schema.Unpack(tuple)
}
