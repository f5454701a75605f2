package operator

import (
	"context"
	"fmt"

	"github.com/georgejdanforth/dbsys-hw2/agg"
	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/expr"
	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// GroupHashFn maps a grouping value to the bucket string used as a
// partition-relation id (spec §4.4 groupHashFn).
type GroupHashFn func(value any) (string, error)

// GroupByConfig carries the required parameters of spec §4.4. All fields
// are required; a missing one is a configuration error.
type GroupByConfig struct {
	GroupSchema catalog.Schema // exactly one field: the grouping key
	AggSchema   catalog.Schema
	GroupExpr   expr.Term // resolved against the child's record
	AggExprs    []agg.Expr
	GroupHashFn GroupHashFn
}

// GroupBy implements the two-phase partition-then-aggregate algorithm of
// spec §4.4, batch-only. It deliberately preserves the reference's
// per-page (not per-partition) aggregation-map rebuild: a grouping value
// split across two pages of the same partition emits one output row per
// page it appears in, rather than a single merged row (spec §4.4
// "Critical semantic note"; decision recorded in DESIGN.md open question
// 1 — this is not fixed here).
type GroupBy struct {
	*base
	child Operator
	cfg   GroupByConfig
}

func NewGroupBy(store storage.PageStore, opts Options, child Operator, cfg GroupByConfig) (*GroupBy, error) {
	if len(cfg.GroupSchema.Fields) != 1 {
		return nil, configErrorf("operator GroupBy: groupSchema must have exactly one field")
	}
	if len(cfg.AggSchema.Fields) == 0 {
		return nil, configErrorf("operator GroupBy: aggSchema is required")
	}
	if cfg.GroupExpr == nil {
		return nil, configErrorf("operator GroupBy: groupExpr is required")
	}
	if cfg.GroupHashFn == nil {
		return nil, configErrorf("operator GroupBy: groupHashFn is required")
	}
	if err := agg.ValidateArity(cfg.AggExprs, cfg.AggSchema); err != nil {
		return nil, fmt.Errorf("operator GroupBy: %w", &kindError{kind: ErrConfiguration, detail: err.Error()})
	}

	relName := "groupby_" + child.Schema().RelationName
	outSchema := cfg.GroupSchema.Concat(cfg.AggSchema, relName)

	return &GroupBy{
		base:  newBase("GroupBy", store, opts, outSchema),
		child: child,
		cfg:   cfg,
	}, nil
}

func (g *GroupBy) Schema() catalog.Schema         { return g.schema }
func (g *GroupBy) InputSchemas() []catalog.Schema { return []catalog.Schema{g.child.Schema()} }
func (g *GroupBy) Inputs() []Operator             { return []Operator{g.child} }
func (g *GroupBy) OperatorType() string           { return "GroupBy" }
func (g *GroupBy) Explain() string                { return fmt.Sprintf("GroupBy(%s)", g.child.Explain()) }

func (g *GroupBy) Open(ctx context.Context) error {
	if err := g.initializeOutput(ctx); err != nil {
		return err
	}
	if err := g.child.Open(ctx); err != nil {
		return err
	}
	if err := g.run(ctx); err != nil {
		return err
	}
	g.flushCurrent()
	return nil
}

func (g *GroupBy) Next(ctx context.Context) (storage.PageID, *storage.Page, error) {
	if id, p, ok := g.popPending(); ok {
		return id, p, nil
	}
	return storage.PageID{}, nil, nil
}

func (g *GroupBy) Close() error {
	return g.child.Close()
}

func (g *GroupBy) groupValueOf(tuple []byte) (any, error) {
	rec, err := g.child.Schema().Unpack(tuple)
	if err != nil {
		return nil, err
	}
	return g.cfg.GroupExpr.Resolve(expr.EnvOf(rec))
}

func (g *GroupBy) run(ctx context.Context) error {
	childSchema := g.child.Schema()

	order, guards, err := partitionRelation(ctx, g.store, g.opts, g.child, childSchema,
		func(rec catalog.Record) (string, error) {
			v, err := g.cfg.GroupExpr.Resolve(expr.EnvOf(rec))
			if err != nil {
				return "", err
			}
			return g.cfg.GroupHashFn(v)
		},
		func(bucket string) string { return bucket })
	if err != nil {
		releaseGuards(ctx, guards)
		return err
	}

	aggErr := g.aggregatePartitions(ctx, order, guards, childSchema)

	// Step 3: remove every partition relation, after all partitions have
	// been aggregated (spec §4.4) — not per-partition, unlike hash join.
	releaseGuards(ctx, guards)

	return aggErr
}

func (g *GroupBy) aggregatePartitions(ctx context.Context, order []string, guards map[string]*relationGuard, childSchema catalog.Schema) error {
	for _, bucket := range order {
		rg := guards[bucket]
		scan := NewScan(g.store, rg.id, childSchema)
		if err := scan.Open(ctx); err != nil {
			return err
		}
		err := g.aggregatePartitionPages(ctx, scan, childSchema)
		scan.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// aggregatePartitionPages implements spec §4.4 step 2: for each page of
// the partition, rebuild the grouping-value -> accumulators map from
// scratch, advance it over that page's tuples only, then finalize and
// emit — inside the page loop, reproducing the per-page (not
// per-partition) aggregation bug faithfully.
func (g *GroupBy) aggregatePartitionPages(ctx context.Context, scan *Scan, childSchema catalog.Schema) error {
	for {
		_, page, err := scan.Next(ctx)
		if err != nil {
			return err
		}
		if page == nil {
			return nil
		}

		type groupState struct {
			value any
			accs  []any
		}
		groups := make(map[string]*groupState)
		var groupOrder []string // insertion order within this page (spec §5)

		for _, tuple := range page.Tuples() {
			rec, err := childSchema.Unpack(tuple)
			if err != nil {
				return err
			}
			gv, err := g.cfg.GroupExpr.Resolve(expr.EnvOf(rec))
			if err != nil {
				return fmt.Errorf("operator GroupBy: evaluation: %w", err)
			}
			key := fmt.Sprint(gv)
			st, ok := groups[key]
			if !ok {
				accs := make([]any, len(g.cfg.AggExprs))
				for i, ae := range g.cfg.AggExprs {
					accs[i] = ae.Init
				}
				st = &groupState{value: gv, accs: accs}
				groups[key] = st
				groupOrder = append(groupOrder, key)
			}
			for i, ae := range g.cfg.AggExprs {
				st.accs[i] = ae.Step(st.accs[i], rec)
			}
		}

		for _, key := range groupOrder {
			st := groups[key]
			values := make([]any, 0, 1+len(g.cfg.AggExprs))
			values = append(values, st.value)
			for i, ae := range g.cfg.AggExprs {
				values = append(values, ae.Finalize(st.accs[i]))
			}
			packed, err := g.schema.Pack(values...)
			if err != nil {
				return fmt.Errorf("operator GroupBy: %w", err)
			}
			if err := g.emitOutputTuple(ctx, packed); err != nil {
				return err
			}
		}
	}
}
