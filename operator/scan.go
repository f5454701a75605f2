package operator

import (
	"context"
	"fmt"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// Scan is the leaf operator: it iterates a base relation already resident
// in storage (spec §4.5). Its own "output relation" is simply the source
// relation; Scan does not copy tuples into a fresh relation.
type Scan struct {
	relationID string
	schema     catalog.Schema
	store      storage.PageStore
	cursor     storage.PageCursor
}

// NewScan builds a Scan over an existing relation. sourceID must already
// exist in store (created by the caller via CreateRelation + InsertTuple
// when loading base tables).
func NewScan(store storage.PageStore, sourceID string, schema catalog.Schema) *Scan {
	return &Scan{relationID: sourceID, schema: schema, store: store}
}

func (s *Scan) Schema() catalog.Schema          { return s.schema }
func (s *Scan) InputSchemas() []catalog.Schema  { return nil }
func (s *Scan) Inputs() []Operator              { return nil }
func (s *Scan) OperatorType() string            { return "Scan" }
func (s *Scan) RelationID() string              { return s.relationID }
func (s *Scan) Explain() string                 { return fmt.Sprintf("Scan(%s)", s.relationID) }

func (s *Scan) Open(ctx context.Context) error {
	cur, err := s.store.Pages(ctx, s.relationID)
	if err != nil {
		return fmt.Errorf("operator Scan(%s): %w", s.relationID, err)
	}
	s.cursor = cur
	return nil
}

func (s *Scan) Next(ctx context.Context) (storage.PageID, *storage.Page, error) {
	more, err := s.cursor.Next(ctx)
	if err != nil {
		return storage.PageID{}, nil, err
	}
	if !more {
		return storage.PageID{}, nil, nil
	}
	p := s.cursor.Page()
	return p.ID, p, nil
}

// Reopen restarts the scan from the first page. Join does not call it: the
// nested-loop joins restart their right child through bufferedOperator, and
// hash-join/group-by partition probing opens a fresh Scan per partition.
func (s *Scan) Reopen(ctx context.Context) error {
	return s.cursor.Reopen(ctx)
}

func (s *Scan) Close() error {
	if s.cursor == nil {
		return nil
	}
	return s.cursor.Close()
}
