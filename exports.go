package lazyq

import (
	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
	"github.com/kartikbazzad/lazyq/internal/plan"
	"github.com/kartikbazzad/lazyq/internal/schema"
)

// Schema types.

type Column = schema.Column
type ColumnType = schema.ColumnType

const (
	Numeric = schema.Numeric
	Text    = schema.Text
	Boolean = schema.Boolean
)

// Plan operation types.

type Expr = plan.Expr
type SortKey = plan.SortKey
type AggregateSpec = plan.AggregateSpec
type JoinKind = plan.JoinKind

const (
	JoinInner = plan.JoinInner
	JoinLeft  = plan.JoinLeft
)

// Sort key builders.

func Asc(column string) SortKey  { return plan.Asc(column) }
func Desc(column string) SortKey { return plan.Desc(column) }

// Aggregate builders: Min("bid", "smallestBid") computes min(bid) named
// smallestBid in the output.

func Min(column, as string) AggregateSpec  { return plan.Min(column, as) }
func Max(column, as string) AggregateSpec  { return plan.Max(column, as) }
func Sum(column, as string) AggregateSpec  { return plan.Sum(column, as) }
func Mean(column, as string) AggregateSpec { return plan.Mean(column, as) }
func Count(column, as string) AggregateSpec {
	return plan.Count(column, as)
}

// Expression builders.

func Col(name string) Expr          { return plan.Col(name) }
func Lit(value interface{}) Expr    { return plan.Lit(value) }
func Eq(left, right Expr) Expr      { return plan.Eq(left, right) }
func Ne(left, right Expr) Expr      { return plan.Ne(left, right) }
func Lt(left, right Expr) Expr      { return plan.Lt(left, right) }
func Le(left, right Expr) Expr      { return plan.Le(left, right) }
func Gt(left, right Expr) Expr      { return plan.Gt(left, right) }
func Ge(left, right Expr) Expr      { return plan.Ge(left, right) }
func And(operands ...Expr) Expr     { return plan.And(operands...) }
func Or(operands ...Expr) Expr      { return plan.Or(operands...) }
func Not(operand Expr) Expr         { return plan.Neg(operand) }
func Add(left, right Expr) Expr     { return plan.Add(left, right) }
func Sub(left, right Expr) Expr     { return plan.Sub(left, right) }
func Mul(left, right Expr) Expr     { return plan.Mul(left, right) }
func Div(left, right Expr) Expr     { return plan.Div(left, right) }
func In(operand Expr, values ...interface{}) Expr {
	return plan.InList(operand, values...)
}

// Error sentinels, re-exported for errors.Is at call sites.

var (
	ErrColumnNotFound    = lqerrors.ErrColumnNotFound
	ErrDuplicateColumn   = lqerrors.ErrDuplicateColumn
	ErrInvalidAggregate  = lqerrors.ErrInvalidAggregate
	ErrTranslation       = lqerrors.ErrTranslation
	ErrTableNotFound     = lqerrors.ErrTableNotFound
	ErrConnectionFailure = lqerrors.ErrConnectionFailure
	ErrTimeout           = lqerrors.ErrTimeout
	ErrTooManyQueries    = lqerrors.ErrTooManyQueries
)
