package operator

import (
	"context"
	"testing"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/storage"
	"github.com/stretchr/testify/require"
)

func testOpts() Options {
	return Options{PageCapacity: 2, BufferPoolPages: 2}
}

// loadRelation creates a base relation in store and inserts one tuple per
// row, returning a ready-to-open Scan over it.
func loadRelation(t *testing.T, ctx context.Context, store storage.PageStore, id string, schema catalog.Schema, rows [][]any) *Scan {
	t.Helper()
	require.NoError(t, store.CreateRelation(ctx, id, schema, 2))
	for _, row := range rows {
		b, err := schema.Pack(row...)
		require.NoError(t, err)
		require.NoError(t, store.InsertTuple(ctx, id, b))
	}
	return NewScan(store, id, schema)
}

// drain fully runs op and returns every output tuple, unpacked.
func drain(t *testing.T, ctx context.Context, store storage.PageStore, op Operator) []catalog.Record {
	t.Helper()
	relID, err := Finalize(ctx, op)
	require.NoError(t, err)

	tuples, err := ReadAll(ctx, store, relID)
	require.NoError(t, err)

	schema := op.Schema()
	recs := make([]catalog.Record, 0, len(tuples))
	for _, tup := range tuples {
		rec, err := schema.Unpack(tup)
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	return recs
}
