package operator

import (
	"context"
	"fmt"

	"github.com/georgejdanforth/dbsys-hw2/catalog"
	"github.com/georgejdanforth/dbsys-hw2/expr"
	"github.com/georgejdanforth/dbsys-hw2/storage"
)

// ProjectField names one output column and the expression that computes
// it from the child's environment (spec §4.5 "Project evaluates a map of
// output-field -> (expression, type)").
type ProjectField struct {
	Name string
	Expr expr.Term
	Type catalog.FieldType
}

// Project repacks each child tuple under a new schema computed from a
// list of named expressions. Pipelined, like Select.
type Project struct {
	*base
	child     Operator
	fields    []ProjectField
	childDone bool
}

func NewProject(store storage.PageStore, opts Options, child Operator, relationName string, fields []ProjectField) *Project {
	schemaFields := make([]catalog.Field, len(fields))
	for i, f := range fields {
		schemaFields[i] = catalog.Field{Name: f.Name, Type: f.Type}
	}
	outSchema := catalog.NewSchema(relationName, schemaFields...)
	return &Project{
		base:   newBase("Project", store, opts, outSchema),
		child:  child,
		fields: fields,
	}
}

func (p *Project) Schema() catalog.Schema         { return p.schema }
func (p *Project) InputSchemas() []catalog.Schema { return []catalog.Schema{p.child.Schema()} }
func (p *Project) Inputs() []Operator             { return []Operator{p.child} }
func (p *Project) OperatorType() string           { return "Project" }
func (p *Project) Explain() string                { return fmt.Sprintf("Project(%s)", p.child.Explain()) }

func (p *Project) Open(ctx context.Context) error {
	if err := p.initializeOutput(ctx); err != nil {
		return err
	}
	return p.child.Open(ctx)
}

func (p *Project) Next(ctx context.Context) (storage.PageID, *storage.Page, error) {
	for {
		if id, pg, ok := p.popPending(); ok {
			return id, pg, nil
		}
		if p.childDone {
			return storage.PageID{}, nil, nil
		}
		_, page, err := p.child.Next(ctx)
		if err != nil {
			return storage.PageID{}, nil, err
		}
		if page == nil {
			p.childDone = true
			p.flushCurrent()
			continue
		}
		if err := p.processInputPage(ctx, page); err != nil {
			return storage.PageID{}, nil, err
		}
	}
}

func (p *Project) processInputPage(ctx context.Context, page *storage.Page) error {
	childSchema := p.child.Schema()
	for _, tuple := range page.Tuples() {
		rec, err := childSchema.Unpack(tuple)
		if err != nil {
			return fmt.Errorf("operator Project: %w", err)
		}
		env := expr.EnvOf(rec)
		values := make([]any, len(p.fields))
		for i, f := range p.fields {
			v, err := f.Expr.Resolve(env)
			if err != nil {
				return fmt.Errorf("operator Project: evaluation: %w", err)
			}
			values[i] = v
		}
		packed, err := p.schema.Pack(values...)
		if err != nil {
			return fmt.Errorf("operator Project: %w", err)
		}
		if err := p.emitOutputTuple(ctx, packed); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) Close() error {
	return p.child.Close()
}
