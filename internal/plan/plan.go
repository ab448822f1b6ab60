// Package plan models a query as an immutable chain of relational operation
// nodes. Appending an operation allocates a new node pointing at its parent;
// the parent is never touched, so any node can serve as a shared ancestor for
// several divergent plans (structural sharing, not copying).
//
// Column references are validated against the output schema reachable at the
// append position. A reference to a column dropped by an earlier projection
// fails here, when the operation is added, not when the plan is eventually
// translated or executed.
package plan

import (
	"fmt"
	"strings"

	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
	"github.com/kartikbazzad/lazyq/internal/schema"
)

type Kind int

const (
	KindScan Kind = iota + 1
	KindProject
	KindFilter
	KindSort
	KindGroupAggregate
	KindJoin
	KindLimit
	KindDistinct
)

func (k Kind) String() string {
	switch k {
	case KindScan:
		return "scan"
	case KindProject:
		return "project"
	case KindFilter:
		return "filter"
	case KindSort:
		return "sort"
	case KindGroupAggregate:
		return "group-aggregate"
	case KindJoin:
		return "join"
	case KindLimit:
		return "limit"
	case KindDistinct:
		return "distinct"
	default:
		return "unknown"
	}
}

// SortKey orders one column ascending or descending.
type SortKey struct {
	Column string
	Desc   bool
}

func Asc(column string) SortKey  { return SortKey{Column: column} }
func Desc(column string) SortKey { return SortKey{Column: column, Desc: true} }

type AggFunc int

const (
	AggMin AggFunc = iota + 1
	AggMax
	AggSum
	AggMean
	AggCount
)

func (f AggFunc) String() string {
	switch f {
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggSum:
		return "sum"
	case AggMean:
		return "mean"
	case AggCount:
		return "count"
	default:
		return "unknown"
	}
}

// AggregateSpec names one aggregate output: As = output column name,
// Column = input column. An empty Column with AggCount counts rows.
type AggregateSpec struct {
	As     string
	Func   AggFunc
	Column string
}

func Min(column, as string) AggregateSpec  { return AggregateSpec{As: as, Func: AggMin, Column: column} }
func Max(column, as string) AggregateSpec  { return AggregateSpec{As: as, Func: AggMax, Column: column} }
func Sum(column, as string) AggregateSpec  { return AggregateSpec{As: as, Func: AggSum, Column: column} }
func Mean(column, as string) AggregateSpec { return AggregateSpec{As: as, Func: AggMean, Column: column} }
func Count(column, as string) AggregateSpec {
	return AggregateSpec{As: as, Func: AggCount, Column: column}
}

type JoinKind int

const (
	JoinInner JoinKind = iota + 1
	JoinLeft
)

func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Node is one operation in a plan chain. Nodes are immutable after
// construction and safe to share across goroutines for reading.
type Node struct {
	parent   *Node
	kind     Kind
	out      *schema.Schema
	afterAgg bool // a GroupAggregate exists somewhere upstream

	table       string // scan
	projectCols []string
	pred        Expr
	sortKeys    []SortKey
	groupCols   []string
	aggs        []AggregateSpec
	right       *Node // join
	joinKeys    []string
	joinKind    JoinKind
	limit       int
}

// NewScan starts a plan over the named backing table with its schema.
func NewScan(table string, s *schema.Schema) *Node {
	return &Node{
		kind:  KindScan,
		out:   s,
		table: table,
	}
}

func (n *Node) Kind() Kind    { return n.kind }
func (n *Node) Parent() *Node { return n.parent }

// OutputSchema is the schema visible to operations appended after n.
func (n *Node) OutputSchema() *schema.Schema { return n.out }

// AfterAggregate reports whether a GroupAggregate exists at or above n.
func (n *Node) AfterAggregate() bool { return n.afterAgg }

func (n *Node) Table() string { return n.table }

func (n *Node) ProjectColumns() []string { return append([]string(nil), n.projectCols...) }
func (n *Node) Predicate() Expr          { return n.pred }
func (n *Node) SortKeys() []SortKey      { return append([]SortKey(nil), n.sortKeys...) }
func (n *Node) GroupColumns() []string   { return append([]string(nil), n.groupCols...) }
func (n *Node) Aggregates() []AggregateSpec {
	return append([]AggregateSpec(nil), n.aggs...)
}
func (n *Node) Right() *Node       { return n.right }
func (n *Node) JoinKeys() []string { return append([]string(nil), n.joinKeys...) }
func (n *Node) JoinKind() JoinKind { return n.joinKind }
func (n *Node) LimitCount() int    { return n.limit }

// child allocates the new node appended after n, inheriting the aggregation
// marker.
func (n *Node) child(kind Kind, out *schema.Schema) *Node {
	return &Node{
		parent:   n,
		kind:     kind,
		out:      out,
		afterAgg: n.afterAgg,
	}
}

func (n *Node) checkColumns(op string, cols []string) error {
	for _, col := range cols {
		if !n.out.Has(col) {
			return lqerrors.NewColumnError(op, col)
		}
	}
	return nil
}

// Project keeps only the named columns, in the given order.
func (n *Node) Project(cols ...string) (*Node, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("project: %w", lqerrors.ErrEmptyOperation)
	}
	out, err := n.out.Select(cols...)
	if err != nil {
		if ce, ok := err.(*lqerrors.ColumnError); ok {
			return nil, lqerrors.NewColumnError("project", ce.Column)
		}
		return nil, fmt.Errorf("project: %w", err)
	}
	c := n.child(KindProject, out)
	c.projectCols = append([]string(nil), cols...)
	return c, nil
}

// Filter keeps rows matching the predicate. Appended before any
// GroupAggregate it filters input rows; appended after one it filters
// aggregated rows.
func (n *Node) Filter(pred Expr) (*Node, error) {
	if pred == nil {
		return nil, fmt.Errorf("filter: %w", lqerrors.ErrEmptyOperation)
	}
	if err := n.checkColumns("filter", pred.Columns()); err != nil {
		return nil, err
	}
	c := n.child(KindFilter, n.out)
	c.pred = pred
	return c, nil
}

// Sort orders the rows by the given keys. A later Sort replaces the ordering
// rather than refining it.
func (n *Node) Sort(keys ...SortKey) (*Node, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("sort: %w", lqerrors.ErrEmptyOperation)
	}
	for _, key := range keys {
		if !n.out.Has(key.Column) {
			return nil, lqerrors.NewColumnError("sort", key.Column)
		}
	}
	c := n.child(KindSort, n.out)
	c.sortKeys = append([]SortKey(nil), keys...)
	return c, nil
}

// GroupAggregate groups rows by groupCols and computes one output column per
// aggregate spec. The output schema is exactly groupCols followed by the
// aggregate outputs; every other upstream column is consumed.
func (n *Node) GroupAggregate(groupCols []string, aggs ...AggregateSpec) (*Node, error) {
	if len(aggs) == 0 {
		return nil, fmt.Errorf("group-aggregate: %w", lqerrors.ErrEmptyOperation)
	}
	if err := n.checkColumns("group-aggregate", groupCols); err != nil {
		return nil, err
	}

	cols := make([]schema.Column, 0, len(groupCols)+len(aggs))
	for _, g := range groupCols {
		t, _ := n.out.Type(g)
		cols = append(cols, schema.Column{Name: g, Type: t})
	}
	for _, agg := range aggs {
		outType, err := n.checkAggregate(agg)
		if err != nil {
			return nil, err
		}
		cols = append(cols, schema.Column{Name: agg.As, Type: outType})
	}

	out, err := schema.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("group-aggregate: %w", err)
	}
	c := n.child(KindGroupAggregate, out)
	c.groupCols = append([]string(nil), groupCols...)
	c.aggs = append([]AggregateSpec(nil), aggs...)
	c.afterAgg = true
	return c, nil
}

func (n *Node) checkAggregate(agg AggregateSpec) (schema.ColumnType, error) {
	if agg.As == "" {
		return 0, fmt.Errorf("group-aggregate: %w: aggregate output needs a name", lqerrors.ErrInvalidAggregate)
	}
	if agg.Column == "" {
		if agg.Func != AggCount {
			return 0, fmt.Errorf("group-aggregate: %w: %s needs an input column", lqerrors.ErrInvalidAggregate, agg.Func)
		}
		return schema.Numeric, nil
	}
	inType, ok := n.out.Type(agg.Column)
	if !ok {
		return 0, lqerrors.NewColumnError("group-aggregate", agg.Column)
	}
	switch agg.Func {
	case AggSum, AggMean:
		if inType != schema.Numeric {
			return 0, fmt.Errorf("group-aggregate: %w: %s over %s column %q",
				lqerrors.ErrInvalidAggregate, agg.Func, inType, agg.Column)
		}
		return schema.Numeric, nil
	case AggCount:
		return schema.Numeric, nil
	case AggMin, AggMax:
		return inType, nil
	default:
		return 0, fmt.Errorf("group-aggregate: %w: unknown function", lqerrors.ErrInvalidAggregate)
	}
}

// Join combines n with another plan on equality of the named key columns.
// Keys must exist on both sides; the joined output is n's columns followed by
// the right side's non-key columns. Colliding non-key names are rejected here
// so the translated query is never ambiguous.
func (n *Node) Join(right *Node, keys []string, kind JoinKind) (*Node, error) {
	if right == nil || len(keys) == 0 {
		return nil, fmt.Errorf("join: %w", lqerrors.ErrEmptyOperation)
	}
	if err := n.checkColumns("join", keys); err != nil {
		return nil, err
	}
	if err := right.checkColumns("join", keys); err != nil {
		return nil, err
	}

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	cols := n.out.Columns()
	for _, col := range right.out.Columns() {
		if isKey[col.Name] {
			continue
		}
		cols = append(cols, col)
	}
	out, err := schema.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}

	c := n.child(KindJoin, out)
	c.right = right
	c.joinKeys = append([]string(nil), keys...)
	c.joinKind = kind
	c.afterAgg = n.afterAgg || right.afterAgg
	return c, nil
}

// Limit caps the result at count rows. Preview uses this internally; it is
// also a regular plan operation.
func (n *Node) Limit(count int) (*Node, error) {
	if count < 0 {
		return nil, fmt.Errorf("limit: negative count %d", count)
	}
	c := n.child(KindLimit, n.out)
	c.limit = count
	return c, nil
}

// Distinct removes duplicate rows from the current projection.
func (n *Node) Distinct() *Node {
	return n.child(KindDistinct, n.out)
}

// Chain returns the nodes from the scan root to n, in application order.
func (n *Node) Chain() []*Node {
	var count int
	for cur := n; cur != nil; cur = cur.parent {
		count++
	}
	nodes := make([]*Node, count)
	for cur := n; cur != nil; cur = cur.parent {
		count--
		nodes[count] = cur
	}
	return nodes
}

// Fingerprint renders a stable, injective description of the whole chain.
// Equal plans produce equal fingerprints; the translator caches on it.
func (n *Node) Fingerprint() string {
	var sb strings.Builder
	for i, node := range n.Chain() {
		if i > 0 {
			sb.WriteByte('|')
		}
		node.writeOp(&sb)
	}
	return sb.String()
}

func (n *Node) writeOp(sb *strings.Builder) {
	switch n.kind {
	case KindScan:
		fmt.Fprintf(sb, "scan(%s)", n.table)
	case KindProject:
		fmt.Fprintf(sb, "project(%s)", strings.Join(n.projectCols, ","))
	case KindFilter:
		fmt.Fprintf(sb, "filter(%s)", n.pred)
	case KindSort:
		parts := make([]string, len(n.sortKeys))
		for i, key := range n.sortKeys {
			dir := "asc"
			if key.Desc {
				dir = "desc"
			}
			parts[i] = key.Column + " " + dir
		}
		fmt.Fprintf(sb, "sort(%s)", strings.Join(parts, ","))
	case KindGroupAggregate:
		parts := make([]string, len(n.aggs))
		for i, agg := range n.aggs {
			parts[i] = fmt.Sprintf("%s(%s) as %s", agg.Func, agg.Column, agg.As)
		}
		fmt.Fprintf(sb, "groupagg([%s];%s)", strings.Join(n.groupCols, ","), strings.Join(parts, ","))
	case KindJoin:
		fmt.Fprintf(sb, "join(%s;[%s];<%s>)", n.joinKind, strings.Join(n.joinKeys, ","), n.right.Fingerprint())
	case KindLimit:
		fmt.Fprintf(sb, "limit(%d)", n.limit)
	case KindDistinct:
		sb.WriteString("distinct()")
	}
}

func (n *Node) String() string {
	return n.Fingerprint()
}
