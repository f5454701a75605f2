package storage

import (
	"context"
	"fmt"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
)

// PageStore is the durable relation store the operator package consumes
// (spec §6): createRelation/removeRelation/insertTuple/pages.
type PageStore interface {
	CreateRelation(ctx context.Context, id string, schema catalog.Schema, pageCapacity int) error
	RemoveRelation(ctx context.Context, id string) error
	RelationExists(ctx context.Context, id string) (bool, error)
	Schema(ctx context.Context, id string) (catalog.Schema, error)
	InsertTuple(ctx context.Context, id string, tuple []byte) error
	Pages(ctx context.Context, id string) (PageCursor, error)
	// Page fetches a single page by id directly, independent of any
	// cursor's position. Used by BufferPool to fill a frame on a cache
	// miss (spec §3, §6 "bufferPool ... fills from it on miss").
	Page(ctx context.Context, id PageID) (*Page, error)
	Close() error
}

// PageCursor is a lazy, restartable sequence of (pageId, page) pairs
// (spec §3 "pages(id) -> lazy sequence"; spec §9 "restartability becomes
// an explicit reopen() on a scan cursor").
type PageCursor interface {
	// Next advances to the next page. It returns false once exhausted.
	Next(ctx context.Context) (bool, error)
	// Page returns the current page; valid only after Next returned true.
	Page() *Page
	// Reopen resets the cursor to scan from the first page again
	// (exposed to operators as Scan.Reopen).
	Reopen(ctx context.Context) error
	Close() error
}

// ErrRelationNotFound is returned by Schema/Pages/InsertTuple when the
// relation id is unknown to the store.
func ErrRelationNotFound(id string) error {
	return fmt.Errorf("storage: relation %q does not exist", id)
}

// ErrRelationExists is returned by CreateRelation on a duplicate id.
func ErrRelationExists(id string) error {
	return fmt.Errorf("storage: relation %q already exists", id)
}
