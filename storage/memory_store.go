package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
)

// MemoryPageStore is an in-process PageStore implementation used by unit
// tests that exercise operator logic without needing a BadgerDB file on
// disk. New code — the teacher's own executor tests mostly operate
// against in-memory MaterializedRelation rather than its BadgerStore
// (datalog/executor/relation_test.go-style fixtures), so an in-memory
// PageStore double plays the same role here for fast, storage-agnostic
// operator tests while BadgerPageStore remains the production backend.
type MemoryPageStore struct {
	mu    sync.Mutex
	rels  map[string]*memRelation
}

type memRelation struct {
	schema   catalog.Schema
	capacity int
	pages    []*Page
}

func NewMemoryPageStore() *MemoryPageStore {
	return &MemoryPageStore{rels: make(map[string]*memRelation)}
}

func (s *MemoryPageStore) CreateRelation(ctx context.Context, id string, schema catalog.Schema, pageCapacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rels[id]; ok {
		return ErrRelationExists(id)
	}
	s.rels[id] = &memRelation{schema: schema, capacity: pageCapacity}
	return nil
}

func (s *MemoryPageStore) RemoveRelation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rels, id)
	return nil
}

func (s *MemoryPageStore) RelationExists(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rels[id]
	return ok, nil
}

func (s *MemoryPageStore) Schema(ctx context.Context, id string) (catalog.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rels[id]
	if !ok {
		return catalog.Schema{}, ErrRelationNotFound(id)
	}
	return r.schema, nil
}

func (s *MemoryPageStore) InsertTuple(ctx context.Context, id string, tuple []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rels[id]
	if !ok {
		return ErrRelationNotFound(id)
	}
	var last *Page
	if len(r.pages) > 0 {
		last = r.pages[len(r.pages)-1]
	}
	if last == nil || last.Full() {
		last = NewPage(PageID{RelationID: id, Index: uint64(len(r.pages))}, r.capacity)
		r.pages = append(r.pages, last)
	}
	last.Insert(tuple)
	return nil
}

// Page fetches the page at id.Index directly, without advancing a cursor.
func (s *MemoryPageStore) Page(ctx context.Context, id PageID) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rels[id.RelationID]
	if !ok {
		return nil, ErrRelationNotFound(id.RelationID)
	}
	if id.Index >= uint64(len(r.pages)) {
		return nil, fmt.Errorf("storage: page %s out of range", id)
	}
	return r.pages[id.Index], nil
}

func (s *MemoryPageStore) Pages(ctx context.Context, id string) (PageCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rels[id]; !ok {
		return nil, ErrRelationNotFound(id)
	}
	return &memPageCursor{store: s, relationID: id, index: 0}, nil
}

func (s *MemoryPageStore) Close() error {
	return nil
}

type memPageCursor struct {
	store      *MemoryPageStore
	relationID string
	index      int
	current    *Page
}

func (c *memPageCursor) Next(ctx context.Context) (bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	r, ok := c.store.rels[c.relationID]
	if !ok {
		return false, ErrRelationNotFound(c.relationID)
	}
	if c.index >= len(r.pages) {
		return false, nil
	}
	c.current = r.pages[c.index]
	c.index++
	return true, nil
}

func (c *memPageCursor) Page() *Page {
	return c.current
}

func (c *memPageCursor) Reopen(ctx context.Context) error {
	c.index = 0
	c.current = nil
	return nil
}

func (c *memPageCursor) Close() error {
	return nil
}
