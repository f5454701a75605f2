// Command queryrunner loads a small TPC-H-flavored dataset and runs a
// canned query plan over it, printing results as a table. It is the
// runnable demo of the operator pipeline, grounded on cmd/datalog/main.go's
// flag parsing and demo-data-loading shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/georgejdanforth/dbsys-hw2/agg"
	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/expr"
	"github.com/georgejdanforth/dbsys-hw2/operator"
	"github.com/georgejdanforth/dbsys-hw2/storage"
)

func main() {
	var dbPath string
	var explain bool
	var help bool
	var demo string

	flag.StringVar(&dbPath, "db", "", "badger database path (default: in-memory)")
	flag.BoolVar(&explain, "explain", false, "print the plan before running it")
	flag.BoolVar(&help, "h", false, "show help")
	flag.StringVar(&demo, "demo", "query1", "which demo plan to run: query1 or groupby")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs a canned query plan over a demo partsupp/part/supplier dataset.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	store, closeStore, err := openStore(dbPath)
	if err != nil {
		log.Fatalf("queryrunner: %v", err)
	}
	defer closeStore()

	ctx := context.Background()
	if err := loadDemoData(ctx, store); err != nil {
		log.Fatalf("queryrunner: failed to load demo data: %v", err)
	}

	var plan operator.Operator
	switch demo {
	case "query1":
		plan, err = buildQuery1(store)
	case "groupby":
		plan, err = groupByPartNameCount(store)
	default:
		log.Fatalf("queryrunner: unknown -demo value %q (want query1 or groupby)", demo)
	}
	if err != nil {
		log.Fatalf("queryrunner: failed to build plan: %v", err)
	}

	if explain {
		fmt.Println(color.YellowString("Plan: ") + plan.Explain())
	}

	relID, err := operator.Finalize(ctx, plan)
	if err != nil {
		log.Fatalf("queryrunner: %v", err)
	}

	tuples, err := operator.ReadAll(ctx, store, relID)
	if err != nil {
		log.Fatalf("queryrunner: failed to read results: %v", err)
	}

	printResults(plan.Schema(), tuples)
}

func openStore(dbPath string) (storage.PageStore, func(), error) {
	if dbPath == "" {
		s := storage.NewMemoryPageStore()
		return s, func() {}, nil
	}
	s, err := storage.NewBadgerPageStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open badger store at %s: %w", dbPath, err)
	}
	return s, func() { s.Close() }, nil
}

func demoSchemas() (partsupp, part, supplier catalog.Schema) {
	partsupp = catalog.NewSchema("partsupp",
		catalog.Field{Name: "PS_PARTKEY", Type: catalog.Int()},
		catalog.Field{Name: "PS_SUPPKEY", Type: catalog.Int()},
		catalog.Field{Name: "PS_AVAILQTY", Type: catalog.Int()},
		catalog.Field{Name: "PS_SUPPLYCOST", Type: catalog.Int()},
	)
	part = catalog.NewSchema("part",
		catalog.Field{Name: "P_PARTKEY", Type: catalog.Int()},
		catalog.Field{Name: "P_NAME", Type: catalog.Char(16)},
	)
	supplier = catalog.NewSchema("supplier",
		catalog.Field{Name: "S_SUPPKEY", Type: catalog.Int()},
		catalog.Field{Name: "S_NAME", Type: catalog.Char(16)},
	)
	return
}

// loadDemoData seeds the three base relations Experiment.py's query1
// exercises. Re-creating an already-loaded database is a no-op.
func loadDemoData(ctx context.Context, store storage.PageStore) error {
	partsuppSchema, partSchema, supplierSchema := demoSchemas()

	if exists, _ := store.RelationExists(ctx, "partsupp"); exists {
		return nil
	}

	relations := []struct {
		id     string
		schema catalog.Schema
		rows   [][]any
	}{
		{"partsupp", partsuppSchema, [][]any{
			{int64(1), int64(10), int64(1), int64(9)},
			{int64(2), int64(20), int64(5), int64(3)},
			{int64(3), int64(30), int64(1), int64(5)},
		}},
		{"part", partSchema, [][]any{
			{int64(1), "A"},
			{int64(2), "B"},
			{int64(3), "C"},
		}},
		{"supplier", supplierSchema, [][]any{
			{int64(10), "X"},
			{int64(20), "Y"},
			{int64(30), "Z"},
		}},
	}

	for _, r := range relations {
		if err := store.CreateRelation(ctx, r.id, r.schema, 8); err != nil {
			return err
		}
		for _, row := range r.rows {
			packed, err := r.schema.Pack(row...)
			if err != nil {
				return err
			}
			if err := store.InsertTuple(ctx, r.id, packed); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildQuery1 mirrors Experiment.py's query1: a three-way hash join of
// partsupp/part/supplier on PS_PARTKEY=P_PARTKEY and PS_SUPPKEY=S_SUPPKEY,
// filtered by PS_AVAILQTY=1, unioned with a second selection on the same
// join over PS_SUPPLYCOST<5, projected down to (P_NAME, S_NAME).
func buildQuery1(store storage.PageStore) (operator.Operator, error) {
	opts := operator.DefaultOptions()
	partsuppSchema, partSchema, supplierSchema := demoSchemas()

	joinSide := func(pred expr.Predicate) (operator.Operator, error) {
		psScan := operator.NewScan(store, "partsupp", partsuppSchema)
		sel := operator.NewSelect(store, opts, psScan, pred)

		partScan := operator.NewScan(store, "part", partSchema)
		join1, err := operator.NewJoin(store, opts, sel, partScan, operator.JoinConfig{
			Method:       operator.Hash,
			LHSHashFn:    expr.Mod{Field: "PS_PARTKEY", N: 4},
			LHSKeySchema: partsuppSchema,
			RHSHashFn:    expr.Mod{Field: "P_PARTKEY", N: 4},
			RHSKeySchema: partSchema,
		}, nil)
		if err != nil {
			return nil, err
		}

		supplierScan := operator.NewScan(store, "supplier", supplierSchema)
		join2, err := operator.NewJoin(store, opts, join1, supplierScan, operator.JoinConfig{
			Method:       operator.Hash,
			LHSHashFn:    expr.Mod{Field: "PS_SUPPKEY", N: 4},
			LHSKeySchema: join1.Schema(),
			RHSHashFn:    expr.Mod{Field: "S_SUPPKEY", N: 4},
			RHSKeySchema: supplierSchema,
		}, nil)
		if err != nil {
			return nil, err
		}

		return operator.NewProject(store, opts, join2, "query1_side", []operator.ProjectField{
			{Name: "P_NAME", Expr: expr.Field("P_NAME"), Type: catalog.Char(16)},
			{Name: "S_NAME", Expr: expr.Field("S_NAME"), Type: catalog.Char(16)},
		}), nil
	}

	left, err := joinSide(expr.Compare{Op: expr.OpEQ, Left: expr.Field("PS_AVAILQTY"), Right: expr.Const(int64(1))})
	if err != nil {
		return nil, err
	}
	right, err := joinSide(expr.Compare{Op: expr.OpLT, Left: expr.Field("PS_SUPPLYCOST"), Right: expr.Const(int64(5))})
	if err != nil {
		return nil, err
	}

	return operator.NewUnion(store, opts, left, right, false)
}

// groupByPartNameCount demonstrates the partitioned group-by operator over
// the part relation, counting rows per P_NAME. Selected with -demo groupby.
func groupByPartNameCount(store storage.PageStore) (operator.Operator, error) {
	opts := operator.DefaultOptions()
	_, partSchema, _ := demoSchemas()

	scan := operator.NewScan(store, "part", partSchema)
	groupSchema := catalog.NewSchema("group", catalog.Field{Name: "P_NAME", Type: catalog.Char(16)})
	aggSchema := catalog.NewSchema("agg", catalog.Field{Name: "CNT", Type: catalog.Int()})

	return operator.NewGroupBy(store, opts, scan, operator.GroupByConfig{
		GroupSchema: groupSchema,
		AggSchema:   aggSchema,
		GroupExpr:   expr.Field("P_NAME"),
		AggExprs:    []agg.Expr{agg.Count()},
		GroupHashFn: func(v any) (string, error) { return fmt.Sprint(v), nil },
	})
}

func printResults(schema catalog.Schema, tuples [][]byte) {
	if len(tuples) == 0 {
		fmt.Println(color.YellowString("(no rows)"))
		return
	}

	headers := make([]string, len(schema.Fields))
	alignment := make([]tw.Align, len(schema.Fields))
	for i, f := range schema.Fields {
		headers[i] = f.Name
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)

	for _, tup := range tuples {
		rec, err := schema.Unpack(tup)
		if err != nil {
			log.Fatalf("queryrunner: failed to unpack result tuple: %v", err)
		}
		row := make([]string, len(schema.Fields))
		for i, f := range schema.Fields {
			v, _ := rec.Get(f.Name)
			row[i] = formatValue(v)
		}
		table.Append(row)
	}
	table.Render()
	fmt.Printf("\n%d rows\n", len(tuples))
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimRight(x, "\x00")
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
