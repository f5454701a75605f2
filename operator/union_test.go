package operator

import (
	"context"
	"testing"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/expr"
	"github.com/georgejdanforth/dbsys-hw2/storage"
	"github.com/stretchr/testify/require"
)

func partsuppSchema() catalog.Schema {
	return catalog.NewSchema("partsupp",
		catalog.Field{Name: "PS_PARTKEY", Type: catalog.Int()},
		catalog.Field{Name: "PS_SUPPKEY", Type: catalog.Int()},
		catalog.Field{Name: "PS_AVAILQTY", Type: catalog.Int()},
		catalog.Field{Name: "PS_SUPPLYCOST", Type: catalog.Int()},
	)
}

// S1 — Union of two selections (spec §8).
func TestScenarioS1UnionOfSelections(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryPageStore()
	schema := partsuppSchema()

	rows := [][]any{
		{int64(1), int64(10), int64(1), int64(9)},
		{int64(2), int64(20), int64(5), int64(3)},
		{int64(3), int64(30), int64(1), int64(5)},
	}

	scanA := loadRelation(t, ctx, store, "partsupp_a", schema, rows)
	selA := NewSelect(store, testOpts(), scanA, expr.Compare{Op: expr.OpEQ, Left: expr.Field("PS_AVAILQTY"), Right: expr.Const(int64(1))})
	projA := NewProject(store, testOpts(), selA, "t1", []ProjectField{
		{Name: "PS_PARTKEY", Expr: expr.Field("PS_PARTKEY"), Type: catalog.Int()},
		{Name: "PS_SUPPKEY", Expr: expr.Field("PS_SUPPKEY"), Type: catalog.Int()},
	})

	scanB := loadRelation(t, ctx, store, "partsupp_b", schema, rows)
	selB := NewSelect(store, testOpts(), scanB, expr.Compare{Op: expr.OpLT, Left: expr.Field("PS_SUPPLYCOST"), Right: expr.Const(int64(5))})
	projB := NewProject(store, testOpts(), selB, "t2", []ProjectField{
		{Name: "PS_PARTKEY", Expr: expr.Field("PS_PARTKEY"), Type: catalog.Int()},
		{Name: "PS_SUPPKEY", Expr: expr.Field("PS_SUPPKEY"), Type: catalog.Int()},
	})

	union, err := NewUnion(store, testOpts(), projA, projB, false)
	require.NoError(t, err)

	recs := drain(t, ctx, store, union)
	require.Len(t, recs, 4)

	got := make([][2]int64, len(recs))
	for i, r := range recs {
		pk, _ := r.Get("PS_PARTKEY")
		sk, _ := r.Get("PS_SUPPKEY")
		got[i] = [2]int64{pk.(int64), sk.(int64)}
	}
	want := [][2]int64{{1, 10}, {3, 30}, {2, 20}, {3, 30}}
	require.ElementsMatch(t, want, got)
}

// S6 — Union schema mismatch (spec §8).
func TestScenarioS6UnionSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryPageStore()

	left := catalog.NewSchema("l", catalog.Field{Name: "A", Type: catalog.Int()}, catalog.Field{Name: "B", Type: catalog.Int()})
	right := catalog.NewSchema("r", catalog.Field{Name: "A", Type: catalog.Int()}, catalog.Field{Name: "B", Type: catalog.Char(10)})

	leftScan := loadRelation(t, ctx, store, "l", left, nil)
	rightScan := loadRelation(t, ctx, store, "r", right, nil)

	_, err := NewUnion(store, testOpts(), leftScan, rightScan, false)
	require.ErrorIs(t, err, ErrSchema)

	exists, err := store.RelationExists(ctx, "Union1")
	require.NoError(t, err)
	require.False(t, exists)
}

// Invariant 1 (§8): union schema law, pipelined mode.
func TestUnionPipelinedYieldsEveryTuple(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryPageStore()
	schema := catalog.NewSchema("t", catalog.Field{Name: "X", Type: catalog.Int()})

	leftRows := [][]any{{int64(1)}, {int64(2)}}
	rightRows := [][]any{{int64(3)}}

	leftScan := loadRelation(t, ctx, store, "l2", schema, leftRows)
	rightScan := loadRelation(t, ctx, store, "r2", schema, rightRows)

	union, err := NewUnion(store, testOpts(), leftScan, rightScan, true)
	require.NoError(t, err)

	recs := drain(t, ctx, store, union)
	require.Len(t, recs, 3)
}
