// Package storage implements the relation/page/buffer-pool external
// collaborator the operator package consumes (spec §3, §6). Pages are
// persisted durably in BadgerDB, following the same storage engine and
// badger.Options tuning the teacher uses for its own triple-store indices.
package storage

import "fmt"

// PageID identifies a page within a relation.
type PageID struct {
	RelationID string
	Index      uint64
}

func (id PageID) String() string {
	return fmt.Sprintf("%s#%d", id.RelationID, id.Index)
}

// Page is a bounded sequence of packed tuples, the unit of buffer-pool
// residency and of I/O (spec §3).
type Page struct {
	ID       PageID
	tuples   [][]byte
	capacity int
}

// NewPage creates an empty page with room for capacity tuples.
func NewPage(id PageID, capacity int) *Page {
	return &Page{ID: id, capacity: capacity, tuples: make([][]byte, 0, capacity)}
}

// Insert appends a packed tuple to the page. It returns false if the page
// is already at capacity, in which case the caller must flush and start a
// fresh page (spec §4.1 emitOutputTuple).
func (p *Page) Insert(tuple []byte) bool {
	if len(p.tuples) >= p.capacity {
		return false
	}
	p.tuples = append(p.tuples, tuple)
	return true
}

// Tuples returns the page's packed tuples in insertion order.
func (p *Page) Tuples() [][]byte {
	return p.tuples
}

// Len reports the number of tuples currently in the page.
func (p *Page) Len() int {
	return len(p.tuples)
}

// Full reports whether the page has reached capacity.
func (p *Page) Full() bool {
	return len(p.tuples) >= p.capacity
}
