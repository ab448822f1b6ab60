package lazyq

import (
	"context"
	"fmt"

	"github.com/kartikbazzad/lazyq/internal/plan"
)

// Frame is a lazy handle: an immutable plan over one backing table. Every
// chaining method returns a new Frame sharing the plan built so far, so a
// Frame can serve as a common ancestor for several divergent queries. No
// method on Frame performs I/O except Materialize and Preview.
type Frame struct {
	db    *DB
	table string
	plan  *plan.Node
}

// Table returns the backing table identifier the frame reads from.
func (f *Frame) Table() string { return f.table }

// Schema returns the columns the frame would produce.
func (f *Frame) Schema() []Column {
	return f.plan.OutputSchema().Columns()
}

func (f *Frame) extend(p *plan.Node, err error) (*Frame, error) {
	if err != nil {
		return nil, err
	}
	return &Frame{db: f.db, table: f.table, plan: p}, nil
}

// Project keeps only the named columns, in the given order. Referencing a
// column the plan no longer carries fails here, not at execution.
func (f *Frame) Project(cols ...string) (*Frame, error) {
	p, err := f.plan.Project(cols...)
	return f.extend(p, err)
}

// Filter keeps rows matching the predicate. Before a GroupAggregate it
// filters input rows; after one it filters aggregated rows.
func (f *Frame) Filter(pred Expr) (*Frame, error) {
	p, err := f.plan.Filter(pred)
	return f.extend(p, err)
}

// Sort orders the result by the given keys. A later Sort replaces the
// ordering.
func (f *Frame) Sort(keys ...SortKey) (*Frame, error) {
	p, err := f.plan.Sort(keys...)
	return f.extend(p, err)
}

// GroupAggregate groups by groupCols and computes one output column per
// aggregate. The resulting frame carries only the group columns and the
// aggregate outputs.
func (f *Frame) GroupAggregate(groupCols []string, aggs ...AggregateSpec) (*Frame, error) {
	p, err := f.plan.GroupAggregate(groupCols, aggs...)
	return f.extend(p, err)
}

// Join combines two frames from the same DB on equality of the named key
// columns.
func (f *Frame) Join(other *Frame, keys []string, kind JoinKind) (*Frame, error) {
	if other == nil {
		return nil, fmt.Errorf("join: nil frame")
	}
	if err := f.db.checkShared(other.db); err != nil {
		return nil, err
	}
	p, err := f.plan.Join(other.plan, keys, kind)
	return f.extend(p, err)
}

// Limit caps the result at n rows.
func (f *Frame) Limit(n int) (*Frame, error) {
	p, err := f.plan.Limit(n)
	return f.extend(p, err)
}

// Distinct removes duplicate rows.
func (f *Frame) Distinct() *Frame {
	nf, _ := f.extend(f.plan.Distinct(), nil)
	return nf
}

// SQL returns the SQL the frame would execute, without executing it.
func (f *Frame) SQL() (string, error) {
	return f.db.translator.Translate(f.plan)
}

// RowCount reports how many rows the frame would produce. The count is
// unknown until the plan is executed, and a Frame never executes implicitly,
// so this always returns (0, false); materialize and use ResultSet.Len for
// the real count.
func (f *Frame) RowCount() (int64, bool) {
	return 0, false
}

// Materialize executes the frame's plan and returns the full result. Rows
// come back in store order; only a Sort in the plan imposes one.
func (f *Frame) Materialize(ctx context.Context) (*ResultSet, error) {
	res, err := f.db.executor.Execute(ctx, "materialize", f.plan)
	if err != nil {
		return nil, err
	}
	return newResultSet(res), nil
}

// Preview executes the frame's plan with a row limit appended and returns at
// most n rows. The frame's own plan is untouched and the partial result is
// never cached as if it were the full one.
func (f *Frame) Preview(ctx context.Context, n int) (*ResultSet, error) {
	limited, err := f.plan.Limit(n)
	if err != nil {
		return nil, err
	}
	res, err := f.db.executor.Execute(ctx, "preview", limited)
	if err != nil {
		return nil, err
	}
	return newResultSet(res), nil
}

// fingerprint is used by tests to assert structural sharing.
func (f *Frame) fingerprint() string {
	return f.plan.Fingerprint()
}
