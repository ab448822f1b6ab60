package plan

import (
	"fmt"
	"strings"
)

// Expr is a predicate or arithmetic expression over the columns visible at
// one position of a plan. Expressions are immutable values; rendering to SQL
// lives in the translator.
type Expr interface {
	// Columns returns every column the expression references, in first-use
	// order. Used for append-time validation.
	Columns() []string

	// String renders a stable debug form. Plan fingerprints are built from
	// it, so two equal expressions must render identically.
	String() string
}

type CompareOp int

const (
	OpEq CompareOp = iota + 1
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

type ArithOp int

const (
	OpAdd ArithOp = iota + 1
	OpSub
	OpMul
	OpDiv
)

func (op ArithOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	default:
		return "?"
	}
}

// ColumnRef references a column by name.
type ColumnRef struct {
	Name string
}

func (c ColumnRef) Columns() []string { return []string{c.Name} }
func (c ColumnRef) String() string    { return c.Name }

// Literal is a constant. Supported value types: int, int64, float64, string, bool.
type Literal struct {
	Value interface{}
}

func (l Literal) Columns() []string { return nil }

func (l Literal) String() string {
	switch v := l.Value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Compare is a binary comparison between two expressions.
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (c Compare) Columns() []string {
	return mergeColumns(c.Left.Columns(), c.Right.Columns())
}

func (c Compare) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

// Logical combines two or more predicates with AND or OR.
type Logical struct {
	Conj     bool // true = AND, false = OR
	Operands []Expr
}

func (l Logical) Columns() []string {
	var cols []string
	for _, op := range l.Operands {
		cols = mergeColumns(cols, op.Columns())
	}
	return cols
}

func (l Logical) String() string {
	word := " OR "
	if l.Conj {
		word = " AND "
	}
	parts := make([]string, len(l.Operands))
	for i, op := range l.Operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, word) + ")"
}

// Not negates a predicate.
type Not struct {
	Operand Expr
}

func (n Not) Columns() []string { return n.Operand.Columns() }
func (n Not) String() string    { return fmt.Sprintf("NOT %s", n.Operand) }

// Arith is binary arithmetic over two expressions.
type Arith struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (a Arith) Columns() []string {
	return mergeColumns(a.Left.Columns(), a.Right.Columns())
}

func (a Arith) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}

// In tests an expression for membership in a fixed value list. The value
// order given by the caller is preserved in translation.
type In struct {
	Operand Expr
	Values  []Literal
}

func (in In) Columns() []string { return in.Operand.Columns() }

func (in In) String() string {
	parts := make([]string, len(in.Values))
	for i, v := range in.Values {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s IN (%s)", in.Operand, strings.Join(parts, ", "))
}

// Expression builders. These read better at call sites than struct literals:
// plan.And(plan.Gt(plan.Col("bid"), plan.Lit(10)), ...).

func Col(name string) ColumnRef        { return ColumnRef{Name: name} }
func Lit(value interface{}) Literal    { return Literal{Value: value} }
func Eq(left, right Expr) Compare      { return Compare{Op: OpEq, Left: left, Right: right} }
func Ne(left, right Expr) Compare      { return Compare{Op: OpNe, Left: left, Right: right} }
func Lt(left, right Expr) Compare      { return Compare{Op: OpLt, Left: left, Right: right} }
func Le(left, right Expr) Compare      { return Compare{Op: OpLe, Left: left, Right: right} }
func Gt(left, right Expr) Compare      { return Compare{Op: OpGt, Left: left, Right: right} }
func Ge(left, right Expr) Compare      { return Compare{Op: OpGe, Left: left, Right: right} }
func And(operands ...Expr) Logical     { return Logical{Conj: true, Operands: operands} }
func Or(operands ...Expr) Logical      { return Logical{Conj: false, Operands: operands} }
func Neg(operand Expr) Not             { return Not{Operand: operand} }
func Add(left, right Expr) Arith       { return Arith{Op: OpAdd, Left: left, Right: right} }
func Sub(left, right Expr) Arith       { return Arith{Op: OpSub, Left: left, Right: right} }
func Mul(left, right Expr) Arith       { return Arith{Op: OpMul, Left: left, Right: right} }
func Div(left, right Expr) Arith       { return Arith{Op: OpDiv, Left: left, Right: right} }

// InList builds a membership test over plain Go values.
func InList(operand Expr, values ...interface{}) In {
	lits := make([]Literal, len(values))
	for i, v := range values {
		lits[i] = Literal{Value: v}
	}
	return In{Operand: operand, Values: lits}
}

// mergeColumns appends the columns of b to a, skipping names already present.
func mergeColumns(a, b []string) []string {
	for _, name := range b {
		seen := false
		for _, have := range a {
			if have == name {
				seen = true
				break
			}
		}
		if !seen {
			a = append(a, name)
		}
	}
	return a
}
