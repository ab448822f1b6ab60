// Package schema describes the columns of a backing table. A Schema is built
// once per table (usually by store discovery) and never changes afterwards;
// plan nodes derive new schemas from it but do not mutate it.
package schema

import (
	"fmt"

	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
)

type ColumnType int

const (
	Numeric ColumnType = iota + 1
	Text
	Boolean
)

func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case Boolean:
		return "boolean"
	default:
		return "unknown"
	}
}

type Column struct {
	Name string
	Type ColumnType
}

// Schema is an immutable, ordered set of uniquely named columns.
type Schema struct {
	cols  []Column
	index map[string]int
}

// New builds a schema from the given columns. Column order is preserved;
// duplicate names are rejected.
func New(cols ...Column) (*Schema, error) {
	s := &Schema{
		cols:  make([]Column, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, col := range cols {
		if col.Name == "" {
			return nil, fmt.Errorf("schema: empty column name at position %d", i)
		}
		if _, dup := s.index[col.Name]; dup {
			return nil, fmt.Errorf("schema: %w: %q", lqerrors.ErrDuplicateColumn, col.Name)
		}
		s.cols[i] = col
		s.index[col.Name] = i
	}
	return s, nil
}

// MustNew is New for static schemas in tests and examples; it panics on error.
func MustNew(cols ...Column) *Schema {
	s, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Len() int {
	return len(s.cols)
}

func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s *Schema) Type(name string) (ColumnType, bool) {
	i, ok := s.index[name]
	if !ok {
		return 0, false
	}
	return s.cols[i].Type, true
}

// Columns returns a copy of the column list in declaration order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Names returns the column names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.cols))
	for i, col := range s.cols {
		out[i] = col.Name
	}
	return out
}

// Select returns a new schema containing the named columns, in the given
// order. Unknown names report which column was missing.
func (s *Schema) Select(names ...string) (*Schema, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		i, ok := s.index[name]
		if !ok {
			return nil, lqerrors.NewColumnError("select", name)
		}
		cols = append(cols, s.cols[i])
	}
	return New(cols...)
}
