package operator

import (
	"context"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// partitionRelation scans src once, routing each tuple into a lazily
// created partition relation named by relID(bucket), where bucket is
// computed by bucketFn from the tuple's unpacked record. It is the shared
// helper behind both hash-join's partition phase (§4.3.3 steps 1-2) and
// group-by's partition phase (§4.4 step 1), grounded on
// Query/Operators/Join.py's hashPartition and GroupBy.py's groupHashFn
// partitioning loop, which are structurally identical in the original.
//
// The returned order slice lists buckets in first-seen (insertion) order,
// satisfying the insertion-ordered-enumeration requirement of spec §5.
// The returned guards map lets the caller release (remove) a partition
// relation as soon as it is done with it, rather than waiting until the
// whole operator returns.
func partitionRelation(
	ctx context.Context,
	store storage.PageStore,
	opts Options,
	src Operator,
	schema catalog.Schema,
	bucketFn func(catalog.Record) (string, error),
	relID func(bucket string) string,
) (order []string, guards map[string]*relationGuard, err error) {
	guards = make(map[string]*relationGuard)
	seen := make(map[string]bool)

	for {
		_, page, err := src.Next(ctx)
		if err != nil {
			return order, guards, err
		}
		if page == nil {
			break
		}
		for _, tuple := range page.Tuples() {
			rec, err := schema.Unpack(tuple)
			if err != nil {
				return order, guards, err
			}
			bucket, err := bucketFn(rec)
			if err != nil {
				return order, guards, err
			}
			rid := relID(bucket)
			if !seen[bucket] {
				seen[bucket] = true
				order = append(order, bucket)
				if err := store.CreateRelation(ctx, rid, schema, opts.PageCapacity); err != nil {
					return order, guards, err
				}
				guards[bucket] = newRelationGuard(store, rid)
			}
			if err := store.InsertTuple(ctx, rid, tuple); err != nil {
				return order, guards, err
			}
		}
	}
	return order, guards, nil
}

// releaseGuards releases every guard in the map, best-effort, returning
// the first error encountered (if any). Safe to call on guards already
// individually released.
func releaseGuards(ctx context.Context, guards map[string]*relationGuard) error {
	var firstErr error
	for _, g := range guards {
		if err := g.release(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
