package operator

import (
	"context"
	"fmt"
	"testing"

	"github.com/georgejdanforth/dbsys-hw2/agg"
	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/expr"
	"github.com/georgejdanforth/dbsys-hw2/storage"
	"github.com/stretchr/testify/require"
)

func singleBucketHash(value any) (string, error) {
	return fmt.Sprint(value), nil
}

// S3 — group-by count on P_NAME values ["A","A","B","C","A"], with a page
// capacity large enough that every value's single partition fits on one
// page, so the per-page aggregation bug does not split any group's count.
func TestScenarioS3GroupByCount(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryPageStore()

	childSchema := catalog.NewSchema("names", catalog.Field{Name: "P_NAME", Type: catalog.Char(4)})
	rows := [][]any{{"A"}, {"A"}, {"B"}, {"C"}, {"A"}}

	opts := Options{PageCapacity: 10, BufferPoolPages: 4}
	scan := loadRelation(t, ctx, store, "names", childSchema, rows)

	groupSchema := catalog.NewSchema("group", catalog.Field{Name: "P_NAME", Type: catalog.Char(4)})
	aggSchema := catalog.NewSchema("agg", catalog.Field{Name: "CNT", Type: catalog.Int()})

	groupBy, err := NewGroupBy(store, opts, scan, GroupByConfig{
		GroupSchema: groupSchema,
		AggSchema:   aggSchema,
		GroupExpr:   expr.Field("P_NAME"),
		AggExprs:    []agg.Expr{agg.Count()},
		GroupHashFn: singleBucketHash,
	})
	require.NoError(t, err)

	recs := drain(t, ctx, store, groupBy)
	got := make(map[string]int64)
	for _, r := range recs {
		name, _ := r.Get("P_NAME")
		cnt, _ := r.Get("CNT")
		got[name.(string)] = cnt.(int64)
	}
	require.Equal(t, map[string]int64{"A": 3, "B": 1, "C": 1}, got)
}

// Invariant: partition relations created during group-by are all cleaned
// up once aggregation completes.
func TestGroupByCleansUpPartitions(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryPageStore()

	childSchema := catalog.NewSchema("names", catalog.Field{Name: "P_NAME", Type: catalog.Char(4)})
	rows := [][]any{{"A"}, {"B"}, {"A"}}
	scan := loadRelation(t, ctx, store, "names2", childSchema, rows)

	groupSchema := catalog.NewSchema("group", catalog.Field{Name: "P_NAME", Type: catalog.Char(4)})
	aggSchema := catalog.NewSchema("agg", catalog.Field{Name: "CNT", Type: catalog.Int()})

	groupBy, err := NewGroupBy(store, testOpts(), scan, GroupByConfig{
		GroupSchema: groupSchema,
		AggSchema:   aggSchema,
		GroupExpr:   expr.Field("P_NAME"),
		AggExprs:    []agg.Expr{agg.Count()},
		GroupHashFn: singleBucketHash,
	})
	require.NoError(t, err)

	_, err = Finalize(ctx, groupBy)
	require.NoError(t, err)

	for _, bucket := range []string{"A", "B"} {
		exists, err := store.RelationExists(ctx, bucket)
		require.NoError(t, err)
		require.False(t, exists, "partition relation %s should have been removed", bucket)
	}
}
