package lazyq

import "github.com/kartikbazzad/lazyq/internal/store"

// Row maps projected column names to values for one result row.
type Row map[string]interface{}

// ResultSet is the materialized output of a plan: a finite, ordered set of
// rows owned by the caller that requested execution. It has no further
// relationship to the plan that produced it.
type ResultSet struct {
	columns []string
	rows    [][]interface{}
}

func newResultSet(res *store.Result) *ResultSet {
	return &ResultSet{columns: res.Columns, rows: res.Rows}
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	return len(r.rows)
}

// Columns returns the projected column names in result order.
func (r *ResultSet) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Row returns row i as a name → value mapping.
func (r *ResultSet) Row(i int) Row {
	row := make(Row, len(r.columns))
	for j, col := range r.columns {
		row[col] = r.rows[i][j]
	}
	return row
}

// Rows returns every row as a mapping, in result order.
func (r *ResultSet) Rows() []Row {
	out := make([]Row, len(r.rows))
	for i := range r.rows {
		out[i] = r.Row(i)
	}
	return out
}

// Value returns the value at row i, column col.
func (r *ResultSet) Value(i int, col string) (interface{}, bool) {
	for j, name := range r.columns {
		if name == col {
			return r.rows[i][j], true
		}
	}
	return nil, false
}
