package operator

import (
	"context"
	"fmt"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/expr"
	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// JoinMethod selects one of the three implemented join strategies, plus
// the declared-but-not-implemented indexed method (spec §4.3).
type JoinMethod int

const (
	TupleNestedLoop JoinMethod = iota
	BlockNestedLoop
	Indexed
	Hash
)

// JoinConfig carries the method-specific required parameters of spec §4.3.
type JoinConfig struct {
	Method JoinMethod

	// tuple-nested-loop, block-nested-loop
	JoinExpr expr.Predicate

	// hash
	LHSHashFn    expr.HashFn
	LHSKeySchema catalog.Schema
	RHSHashFn    expr.HashFn
	RHSKeySchema catalog.Schema

	// indexed
	IndexID      string
	IndexKeySchema catalog.Schema
}

// Join is the batch-only operator implementing tuple-nested-loop,
// block-nested-loop, partitioned hash join, and a validated-but-stubbed
// indexed method (spec §4.3).
type Join struct {
	*base
	left, right Operator
	cfg         JoinConfig
	pool        *storage.BufferPool
}

// NewJoin validates schema disjointness and per-method required
// parameters (spec §4.3), returning a configuration or schema error.
func NewJoin(store storage.PageStore, opts Options, left, right Operator, cfg JoinConfig, pool *storage.BufferPool) (*Join, error) {
	if !left.Schema().DisjointFieldNames(right.Schema()) {
		return nil, schemaErrorf("operator Join: left and right schemas share a field name")
	}

	switch cfg.Method {
	case TupleNestedLoop, BlockNestedLoop:
		if cfg.JoinExpr == nil {
			return nil, configErrorf("operator Join: method requires joinExpr")
		}
	case Hash:
		if cfg.LHSHashFn == nil || cfg.RHSHashFn == nil {
			return nil, configErrorf("operator Join: hash method requires lhsHashFn and rhsHashFn")
		}
		if len(cfg.LHSKeySchema.Fields) == 0 || len(cfg.RHSKeySchema.Fields) == 0 {
			return nil, configErrorf("operator Join: hash method requires lhsKeySchema and rhsKeySchema")
		}
	case Indexed:
		if cfg.IndexID == "" || len(cfg.IndexKeySchema.Fields) == 0 {
			return nil, configErrorf("operator Join: indexed method requires indexId and lhsKeySchema")
		}
	default:
		return nil, configErrorf("operator Join: unknown join method %v", cfg.Method)
	}

	relName := left.Schema().RelationName + "_join_" + right.Schema().RelationName
	outSchema := left.Schema().Concat(right.Schema(), relName)

	if pool == nil {
		pool = storage.NewBufferPool(store, opts.BufferPoolPages)
	}

	return &Join{
		base:  newBase("Join", store, opts, outSchema),
		left:  left,
		right: right,
		cfg:   cfg,
		pool:  pool,
	}, nil
}

func (j *Join) Schema() catalog.Schema { return j.schema }
func (j *Join) InputSchemas() []catalog.Schema {
	return []catalog.Schema{j.left.Schema(), j.right.Schema()}
}
func (j *Join) Inputs() []Operator   { return []Operator{j.left, j.right} }
func (j *Join) OperatorType() string { return "Join" }
func (j *Join) Explain() string {
	names := [...]string{"tuple-nested", "block-nested", "indexed", "hash"}
	return fmt.Sprintf("Join[%s](%s, %s)", names[j.cfg.Method], j.left.Explain(), j.right.Explain())
}

func (j *Join) Open(ctx context.Context) error {
	if j.cfg.Method == Indexed {
		return notImplementedf("operator Join: indexed nested-loop is not implemented")
	}
	if err := j.initializeOutput(ctx); err != nil {
		return err
	}
	if err := j.left.Open(ctx); err != nil {
		return err
	}
	if err := j.right.Open(ctx); err != nil {
		return err
	}

	var err error
	switch j.cfg.Method {
	case TupleNestedLoop:
		err = j.nestedLoops(ctx)
	case BlockNestedLoop:
		err = j.runBlockNestedLoop(ctx, j.left, j.right, j.cfg.JoinExpr)
		j.flushCurrent()
	case Hash:
		err = j.hashJoin(ctx)
	}
	return err
}

func (j *Join) Next(ctx context.Context) (storage.PageID, *storage.Page, error) {
	if id, p, ok := j.popPending(); ok {
		return id, p, nil
	}
	return storage.PageID{}, nil, nil
}

func (j *Join) Close() error {
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}

// emitJoined appends the byte concatenation of a left and a right tuple,
// matching the output schema (left fields then right fields, spec §4.3).
func (j *Join) emitJoined(ctx context.Context, lt, rt []byte) error {
	out := make([]byte, 0, len(lt)+len(rt))
	out = append(out, lt...)
	out = append(out, rt...)
	return j.emitOutputTuple(ctx, out)
}

func evalJoinPredicate(pred expr.Predicate, leftSchema, rightSchema catalog.Schema, lt, rt []byte) (bool, error) {
	if pred == nil {
		return true, nil
	}
	lrec, err := leftSchema.Unpack(lt)
	if err != nil {
		return false, err
	}
	rrec, err := rightSchema.Unpack(rt)
	if err != nil {
		return false, err
	}
	env := expr.CombinedEnv{Left: expr.EnvOf(lrec), Right: expr.EnvOf(rrec)}
	return pred.Eval(env)
}

// nestedLoops implements tuple-nested-loop join (spec §4.3.1), grounded
// directly on Query/Operators/Join.py's nestedLoops: for each left tuple,
// re-scan the entire right child from the start.
func (j *Join) nestedLoops(ctx context.Context) error {
	rightBuffered := newBufferedOperator(j.right)
	for {
		_, lp, err := j.left.Next(ctx)
		if err != nil {
			return err
		}
		if lp == nil {
			break
		}
		for _, lt := range lp.Tuples() {
			if err := rightBuffered.Reopen(ctx); err != nil {
				return err
			}
			for {
				_, rp, err := rightBuffered.Next(ctx)
				if err != nil {
					return err
				}
				if rp == nil {
					break
				}
				for _, rt := range rp.Tuples() {
					ok, err := evalJoinPredicate(j.cfg.JoinExpr, j.left.Schema(), j.right.Schema(), lt, rt)
					if err != nil {
						return fmt.Errorf("operator Join: evaluation: %w", err)
					}
					if ok {
						if err := j.emitJoined(ctx, lt, rt); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	j.flushCurrent()
	return nil
}

// runBlockNestedLoop implements the block-nested-loop core (spec §4.3.2),
// shared by Join's own BlockNestedLoop method and by hash-join's
// per-bucket probe phase (which calls it with predicate == nil, matching
// Join.py's hashJoin calling _blockNestedLoops with an implicit
// joinExpr=None since equality is already implied by the bucket match).
func (j *Join) runBlockNestedLoop(ctx context.Context, left, right Operator, predicate expr.Predicate) error {
	rightBuffered := newBufferedOperator(right)
	leftSchema, rightSchema := left.Schema(), right.Schema()

	for {
		pages, pins, leftMore, err := acquireBlock(ctx, j.pool, left)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			break
		}

		blockErr := func() error {
			defer pins.release()
			for _, lp := range pages {
				for _, lt := range lp.Tuples() {
					if err := rightBuffered.Reopen(ctx); err != nil {
						return err
					}
					for {
						_, rp, err := rightBuffered.Next(ctx)
						if err != nil {
							return err
						}
						if rp == nil {
							break
						}
						for _, rt := range rp.Tuples() {
							ok, err := evalJoinPredicate(predicate, leftSchema, rightSchema, lt, rt)
							if err != nil {
								return fmt.Errorf("operator Join: evaluation: %w", err)
							}
							if ok {
								if err := j.emitJoined(ctx, lt, rt); err != nil {
									return err
								}
							}
						}
					}
				}
			}
			return nil
		}()
		if blockErr != nil {
			return blockErr
		}
		if !leftMore {
			break
		}
	}
	return nil
}

// acquireBlock pulls pages from left into pool, pinning each, until
// either the pool reports no free pages or left is exhausted (spec
// §4.3.2 step 1, Join.py's accessPageBlock). The returned pinSet must be
// released (via defer) once the block has been fully processed — on every
// return path, including a failed acquisition, so a page pinned earlier
// in this call is never leaked (spec §5, §8 property 5).
func acquireBlock(ctx context.Context, pool *storage.BufferPool, left Operator) ([]*storage.Page, *pinSet, bool, error) {
	pins := newPinSet(pool)
	var pages []*storage.Page
	for pool.NumFreePages() > 0 {
		_, p, err := left.Next(ctx)
		if err != nil {
			pins.release()
			return nil, pins, false, err
		}
		if p == nil {
			return pages, pins, false, nil
		}
		resident, err := pool.GetPage(ctx, p.ID, true)
		if err != nil {
			pins.release()
			return nil, pins, false, err
		}
		pins.pin(p.ID)
		pages = append(pages, resident)
	}
	return pages, pins, true, nil
}

// hashJoin implements the partitioned hash join (spec §4.3.3): partition
// both sides by hash bucket into temporary relations, then probe matching
// buckets with block-nested-loop and no predicate, removing each bucket's
// partitions as soon as it has been probed.
func (j *Join) hashJoin(ctx context.Context) error {
	leftOrder, leftGuards, err := partitionRelation(ctx, j.store, j.opts, j.left, j.left.Schema(),
		func(rec catalog.Record) (string, error) { return j.cfg.LHSHashFn.Bucket(expr.EnvOf(rec)) },
		func(bucket string) string { return bucket + "_lhs" })
	if err != nil {
		releaseGuards(ctx, leftGuards)
		return err
	}

	_, rightGuards, err := partitionRelation(ctx, j.store, j.opts, j.right, j.right.Schema(),
		func(rec catalog.Record) (string, error) { return j.cfg.RHSHashFn.Bucket(expr.EnvOf(rec)) },
		func(bucket string) string { return bucket + "_rhs" })
	if err != nil {
		releaseGuards(ctx, leftGuards)
		releaseGuards(ctx, rightGuards)
		return err
	}

	var probeErr error
	for _, bucket := range leftOrder {
		lg := leftGuards[bucket]
		rg, hasRight := rightGuards[bucket]
		if hasRight {
			probeErr = j.probeBucket(ctx, lg.id, rg.id)
		}
		// Cleanup happens per bucket, immediately after probing it
		// (spec §4.3.3 step 4), not deferred to the operator's return.
		lg.release(ctx)
		if hasRight {
			rg.release(ctx)
		}
		if probeErr != nil {
			break
		}
	}

	// Safety net: any relation not individually released above (e.g. a
	// bucket present only on the right, or leftovers on early error) is
	// still cleaned up here, so property 6 (§8) holds unconditionally.
	releaseGuards(ctx, leftGuards)
	releaseGuards(ctx, rightGuards)

	if probeErr != nil {
		return probeErr
	}
	j.flushCurrent()
	return nil
}

func (j *Join) probeBucket(ctx context.Context, lhsRelID, rhsRelID string) error {
	leftScan := NewScan(j.store, lhsRelID, j.left.Schema())
	rightScan := NewScan(j.store, rhsRelID, j.right.Schema())
	if err := leftScan.Open(ctx); err != nil {
		return err
	}
	defer leftScan.Close()
	if err := rightScan.Open(ctx); err != nil {
		return err
	}
	defer rightScan.Close()
	return j.runBlockNestedLoop(ctx, leftScan, rightScan, nil)
}

// bufferedOperator wraps an arbitrary Operator so it can be restarted
// (Reopen) from the beginning after a full drain, directly grounded on
// the teacher's BufferedIterator (datalog/executor/buffered_iterator.go):
// the first full pass buffers every page; subsequent passes replay the
// buffer instead of re-invoking the wrapped operator.
type bufferedOperator struct {
	child   Operator
	pages   []*storage.Page
	drained bool
	idx     int
}

func newBufferedOperator(child Operator) *bufferedOperator {
	return &bufferedOperator{child: child}
}

func (b *bufferedOperator) Next(ctx context.Context) (storage.PageID, *storage.Page, error) {
	if b.idx < len(b.pages) {
		p := b.pages[b.idx]
		b.idx++
		return p.ID, p, nil
	}
	if b.drained {
		return storage.PageID{}, nil, nil
	}
	_, p, err := b.child.Next(ctx)
	if err != nil {
		return storage.PageID{}, nil, err
	}
	if p == nil {
		b.drained = true
		return storage.PageID{}, nil, nil
	}
	b.pages = append(b.pages, p)
	b.idx++
	return p.ID, p, nil
}

// Reopen rewinds to the start, fully draining the wrapped child into the
// buffer first if it has not been drained yet.
func (b *bufferedOperator) Reopen(ctx context.Context) error {
	for !b.drained {
		_, p, err := b.child.Next(ctx)
		if err != nil {
			return err
		}
		if p == nil {
			b.drained = true
			break
		}
		b.pages = append(b.pages, p)
	}
	b.idx = 0
	return nil
}
