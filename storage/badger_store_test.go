package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/stretchr/testify/require"
)

func openTestBadgerStore(t *testing.T) *BadgerPageStore {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "badger")
	store, err := NewBadgerPageStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func widgetSchema() catalog.Schema {
	return catalog.NewSchema("widget",
		catalog.Field{Name: "ID", Type: catalog.Int()},
		catalog.Field{Name: "NAME", Type: catalog.Char(8)},
	)
}

func TestBadgerPageStoreCreateInsertAndPages(t *testing.T) {
	ctx := context.Background()
	store := openTestBadgerStore(t)
	schema := widgetSchema()

	require.NoError(t, store.CreateRelation(ctx, "widget", schema, 2))

	exists, err := store.RelationExists(ctx, "widget")
	require.NoError(t, err)
	require.True(t, exists)

	got, err := store.Schema(ctx, "widget")
	require.NoError(t, err)
	require.Equal(t, schema.Fields, got.Fields)

	rows := [][]any{
		{int64(1), "aa"},
		{int64(2), "bb"},
		{int64(3), "cc"},
	}
	for _, row := range rows {
		b, err := schema.Pack(row...)
		require.NoError(t, err)
		require.NoError(t, store.InsertTuple(ctx, "widget", b))
	}

	cursor, err := store.Pages(ctx, "widget")
	require.NoError(t, err)
	defer cursor.Close()

	var tuples [][]byte
	pageCount := 0
	for {
		more, err := cursor.Next(ctx)
		require.NoError(t, err)
		if !more {
			break
		}
		pageCount++
		tuples = append(tuples, cursor.Page().Tuples()...)
	}
	require.Equal(t, 2, pageCount, "3 tuples at page capacity 2 span 2 pages")
	require.Len(t, tuples, 3)

	for i, tup := range tuples {
		rec, err := schema.Unpack(tup)
		require.NoError(t, err)
		v, _ := rec.Get("ID")
		require.Equal(t, rows[i][0], v)
	}
}

func TestBadgerPageStorePageFetchByID(t *testing.T) {
	ctx := context.Background()
	store := openTestBadgerStore(t)
	schema := widgetSchema()

	require.NoError(t, store.CreateRelation(ctx, "widget", schema, 2))
	for _, row := range [][]any{{int64(1), "aa"}, {int64(2), "bb"}, {int64(3), "cc"}} {
		b, err := schema.Pack(row...)
		require.NoError(t, err)
		require.NoError(t, store.InsertTuple(ctx, "widget", b))
	}

	page, err := store.Page(ctx, PageID{RelationID: "widget", Index: 1})
	require.NoError(t, err)
	require.Equal(t, 1, page.Len())

	rec, err := schema.Unpack(page.Tuples()[0])
	require.NoError(t, err)
	v, _ := rec.Get("ID")
	require.Equal(t, int64(3), v)

	_, err = store.Page(ctx, PageID{RelationID: "widget", Index: 5})
	require.Error(t, err)
}

func TestBadgerPageStoreReopenCursorRestartsFromFirstPage(t *testing.T) {
	ctx := context.Background()
	store := openTestBadgerStore(t)
	schema := widgetSchema()

	require.NoError(t, store.CreateRelation(ctx, "widget", schema, 8))
	for _, row := range [][]any{{int64(1), "aa"}, {int64(2), "bb"}} {
		b, err := schema.Pack(row...)
		require.NoError(t, err)
		require.NoError(t, store.InsertTuple(ctx, "widget", b))
	}

	cursor, err := store.Pages(ctx, "widget")
	require.NoError(t, err)
	defer cursor.Close()

	more, err := cursor.Next(ctx)
	require.NoError(t, err)
	require.True(t, more)
	require.Equal(t, 2, cursor.Page().Len())

	more, err = cursor.Next(ctx)
	require.NoError(t, err)
	require.False(t, more)

	require.NoError(t, cursor.Reopen(ctx))

	more, err = cursor.Next(ctx)
	require.NoError(t, err)
	require.True(t, more, "reopen must restart iteration from the first page")
	require.Equal(t, 2, cursor.Page().Len())
}

func TestBadgerPageStoreCreateDuplicateRelationFails(t *testing.T) {
	ctx := context.Background()
	store := openTestBadgerStore(t)
	schema := widgetSchema()

	require.NoError(t, store.CreateRelation(ctx, "widget", schema, 2))
	err := store.CreateRelation(ctx, "widget", schema, 2)
	require.Error(t, err)
}

func TestBadgerPageStoreRemoveRelationDropsPagesAndMetadata(t *testing.T) {
	ctx := context.Background()
	store := openTestBadgerStore(t)
	schema := widgetSchema()

	require.NoError(t, store.CreateRelation(ctx, "widget", schema, 2))
	for _, row := range [][]any{{int64(1), "aa"}, {int64(2), "bb"}, {int64(3), "cc"}} {
		b, err := schema.Pack(row...)
		require.NoError(t, err)
		require.NoError(t, store.InsertTuple(ctx, "widget", b))
	}

	require.NoError(t, store.RemoveRelation(ctx, "widget"))

	exists, err := store.RelationExists(ctx, "widget")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = store.Schema(ctx, "widget")
	require.Error(t, err)

	_, err = store.Pages(ctx, "widget")
	require.Error(t, err)

	// Re-creating after removal must succeed, confirming no leftover keys.
	require.NoError(t, store.CreateRelation(ctx, "widget", schema, 2))
	cursor, err := store.Pages(ctx, "widget")
	require.NoError(t, err)
	defer cursor.Close()
	more, err := cursor.Next(ctx)
	require.NoError(t, err)
	require.False(t, more, "freshly re-created relation has no pages")
}
