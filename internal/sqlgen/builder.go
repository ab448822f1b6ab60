package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
	"github.com/kartikbazzad/lazyq/internal/plan"
)

// selectStmt is one SELECT layer under construction. Operations are folded
// into the current layer while SQL clause order still matches plan order;
// when it no longer does, the layer is flushed into a FROM subquery and a
// fresh one is started.
type selectStmt struct {
	from      string
	projCols  []string // output column names; nil = passthrough (*)
	projExprs []string // rendered select-list items, parallel to projCols
	where     []string
	groupBy   []string
	having    []string
	orderKeys []plan.SortKey
	// carriedOrder marks orderKeys inherited from a flushed inner layer.
	// Same-layer keys resolve against the FROM source even when the
	// projection drops them; carried keys can only be re-emitted from the
	// outer projection.
	carriedOrder bool
	distinct     bool
	limit        int // -1 = none
}

type builder struct {
	cur   selectStmt
	depth int // subquery alias counter, deterministic per plan
}

func newStmt(from string) selectStmt {
	return selectStmt{from: from, limit: -1}
}

// build translates a full plan chain into one SQL string.
func build(n *plan.Node) (string, error) {
	b := &builder{}
	for _, node := range n.Chain() {
		if err := b.apply(node); err != nil {
			return "", err
		}
	}
	return b.cur.render(true), nil
}

func (b *builder) apply(node *plan.Node) error {
	switch node.Kind() {
	case plan.KindScan:
		b.cur = newStmt(quoteIdent(node.Table()))
		return nil
	case plan.KindFilter:
		return b.applyFilter(node)
	case plan.KindProject:
		return b.applyProject(node)
	case plan.KindSort:
		return b.applySort(node)
	case plan.KindGroupAggregate:
		return b.applyGroupAggregate(node)
	case plan.KindJoin:
		return b.applyJoin(node)
	case plan.KindLimit:
		if b.cur.limit >= 0 {
			b.flush()
		}
		b.cur.limit = node.LimitCount()
		return nil
	case plan.KindDistinct:
		if b.cur.distinct || b.cur.limit >= 0 {
			b.flush()
		}
		b.cur.distinct = true
		return nil
	default:
		return lqerrors.NewTranslateError(node.Kind().String(), "unsupported operation")
	}
}

// flush renders the current layer into a FROM subquery. An ORDER BY with no
// LIMIT is not rendered inside the subquery (inner ordering without a limit
// is not guaranteed to survive); the keys are carried into the new layer and
// re-emitted there instead.
func (b *builder) flush() {
	var carried []plan.SortKey
	withOrder := true
	if len(b.cur.orderKeys) > 0 && b.cur.limit < 0 {
		carried = b.cur.orderKeys
		withOrder = false
	}
	inner := b.cur.render(withOrder)
	b.cur = newStmt("(" + inner + ") AS t" + strconv.Itoa(b.depth))
	b.depth++
	b.cur.orderKeys = carried
	b.cur.carriedOrder = len(carried) > 0
}

func (b *builder) applyFilter(node *plan.Node) error {
	rendered, err := renderExpr(node.Predicate())
	if err != nil {
		return err
	}
	if b.cur.limit >= 0 {
		b.flush()
	}
	// A filter appended after a GroupAggregate in the same layer applies to
	// aggregated rows: HAVING, not WHERE.
	if len(b.cur.groupBy) > 0 {
		b.cur.having = append(b.cur.having, rendered)
	} else {
		b.cur.where = append(b.cur.where, rendered)
	}
	return nil
}

func (b *builder) applyProject(node *plan.Node) error {
	cols := node.ProjectColumns()
	if b.cur.projCols != nil || len(b.cur.groupBy) > 0 || b.cur.distinct || b.cur.limit >= 0 {
		b.flush()
	}
	// Order keys carried from an inner layer must survive this projection,
	// or there is no position left where the ORDER BY could be emitted.
	// Keys set in this layer are exempt: the FROM source still has them.
	if b.cur.carriedOrder {
		for _, key := range b.cur.orderKeys {
			if !contains(cols, key.Column) {
				return lqerrors.NewTranslateError("project",
					"sort column %q is not in the final projection", key.Column)
			}
		}
	}
	b.cur.projCols = cols
	b.cur.projExprs = quoteAll(cols)
	return nil
}

func (b *builder) applySort(node *plan.Node) error {
	if b.cur.limit >= 0 {
		b.flush()
	}
	// A later sort replaces the ordering outright.
	b.cur.orderKeys = node.SortKeys()
	b.cur.carriedOrder = false
	return nil
}

func (b *builder) applyGroupAggregate(node *plan.Node) error {
	if b.cur.projCols != nil || len(b.cur.groupBy) > 0 || b.cur.distinct || b.cur.limit >= 0 {
		b.flush()
	}
	// Input order is irrelevant to aggregation; pending sort keys are dropped.
	b.cur.orderKeys = nil
	b.cur.carriedOrder = false

	groups := node.GroupColumns()
	aggs := node.Aggregates()

	projCols := make([]string, 0, len(groups)+len(aggs))
	projExprs := make([]string, 0, len(groups)+len(aggs))
	for _, g := range groups {
		projCols = append(projCols, g)
		projExprs = append(projExprs, quoteIdent(g))
	}
	for _, agg := range aggs {
		rendered, err := renderAggregate(agg)
		if err != nil {
			return err
		}
		projCols = append(projCols, agg.As)
		projExprs = append(projExprs, rendered+" AS "+quoteIdent(agg.As))
	}

	b.cur.projCols = projCols
	b.cur.projExprs = projExprs
	b.cur.groupBy = quoteAll(groups)
	return nil
}

func (b *builder) applyJoin(node *plan.Node) error {
	right, err := build(node.Right())
	if err != nil {
		return err
	}

	// Both sides become subqueries; ordering on either side is meaningless
	// after the join, so the left layer flushes without carrying it.
	b.cur.orderKeys = nil
	b.flush()
	left := b.cur.from

	joinWord := "JOIN"
	if node.JoinKind() == plan.JoinLeft {
		joinWord = "LEFT JOIN"
	}
	rightAlias := "t" + strconv.Itoa(b.depth)
	b.depth++

	b.cur = newStmt(fmt.Sprintf("%s %s (%s) AS %s USING (%s)",
		left, joinWord, right, rightAlias, strings.Join(quoteAll(node.JoinKeys()), ", ")))

	// Pin the output column order to the plan's joined schema.
	outNames := node.OutputSchema().Names()
	b.cur.projCols = outNames
	b.cur.projExprs = quoteAll(outNames)
	return nil
}

func (s *selectStmt) render(withOrder bool) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.distinct {
		sb.WriteString("DISTINCT ")
	}
	if s.projExprs == nil {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(s.projExprs, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(s.from)
	if len(s.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(s.where, " AND "))
	}
	if len(s.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(s.groupBy, ", "))
	}
	if len(s.having) > 0 {
		sb.WriteString(" HAVING ")
		sb.WriteString(strings.Join(s.having, " AND "))
	}
	if withOrder && len(s.orderKeys) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, key := range s.orderKeys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(quoteIdent(key.Column))
			if key.Desc {
				sb.WriteString(" DESC")
			} else {
				sb.WriteString(" ASC")
			}
		}
	}
	if s.limit >= 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(s.limit))
	}
	return sb.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = quoteIdent(name)
	}
	return out
}

func contains(names []string, name string) bool {
	for _, have := range names {
		if have == name {
			return true
		}
	}
	return false
}
