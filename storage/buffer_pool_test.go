package storage

import (
	"context"
	"testing"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/stretchr/testify/require"
)

// seedPages creates relation id in store with one page per row, so
// PageID{id, 0} and PageID{id, 1} are each backed by a real stored page.
func seedPages(t *testing.T, ctx context.Context, store PageStore, id string) (PageID, PageID) {
	t.Helper()
	schema := catalog.NewSchema(id, catalog.Field{Name: "X", Type: catalog.Int()})
	require.NoError(t, store.CreateRelation(ctx, id, schema, 1))
	for _, v := range []int64{1, 2} {
		b, err := schema.Pack(v)
		require.NoError(t, err)
		require.NoError(t, store.InsertTuple(ctx, id, b))
	}
	return PageID{RelationID: id, Index: 0}, PageID{RelationID: id, Index: 1}
}

func TestBufferPoolPinBalance(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPageStore()
	id1, id2 := seedPages(t, ctx, store, "r")
	pool := NewBufferPool(store, 2)

	before := pool.NumFreePages()
	require.Equal(t, 2, before)

	_, err := pool.GetPage(ctx, id1, true)
	require.NoError(t, err)
	_, err = pool.GetPage(ctx, id2, true)
	require.NoError(t, err)

	require.Equal(t, 0, pool.NumFreePages())

	pool.UnpinPage(id1)
	pool.UnpinPage(id2)

	require.Equal(t, before, pool.NumFreePages(), "unpinning every pinned page restores the free-page count")
}

func TestBufferPoolRejectsOverPinnedCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPageStore()
	id1, id2 := seedPages(t, ctx, store, "r")
	pool := NewBufferPool(store, 1)

	_, err := pool.GetPage(ctx, id1, true)
	require.NoError(t, err)

	_, err = pool.GetPage(ctx, id2, true)
	require.Error(t, err)
}

// TestBufferPoolFillsFromStoreOnMiss exercises the read-through path: a
// page never explicitly loaded is fetched from the backing PageStore the
// first time it's requested, and a second request for the same id returns
// the already-resident frame without incrementing the pool's footprint.
func TestBufferPoolFillsFromStoreOnMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPageStore()
	id1, _ := seedPages(t, ctx, store, "r")
	pool := NewBufferPool(store, 2)

	page, err := pool.GetPage(ctx, id1, false)
	require.NoError(t, err)
	require.Equal(t, 1, page.Len())
	require.Equal(t, 1, len(pool.frames))

	again, err := pool.GetPage(ctx, id1, false)
	require.NoError(t, err)
	require.Same(t, page, again)
	require.Equal(t, 1, len(pool.frames))
}

func TestBufferPoolUnpinOfNonPinnedPagePanics(t *testing.T) {
	pool := NewBufferPool(nil, 1)
	id := PageID{RelationID: "r", Index: 0}

	require.Panics(t, func() {
		pool.UnpinPage(id)
	})
}
