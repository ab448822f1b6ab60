package sqlgen

import (
	"strconv"
	"strings"

	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
	"github.com/kartikbazzad/lazyq/internal/plan"
)

// renderExpr renders a predicate or arithmetic expression to SQL. Every
// rendering decision depends only on the expression value, so equal
// expressions always produce equal text.
func renderExpr(e plan.Expr) (string, error) {
	switch ex := e.(type) {
	case plan.ColumnRef:
		return quoteIdent(ex.Name), nil

	case plan.Literal:
		return renderLiteral(ex)

	case plan.Compare:
		left, err := renderExpr(ex.Left)
		if err != nil {
			return "", err
		}
		right, err := renderExpr(ex.Right)
		if err != nil {
			return "", err
		}
		return "(" + left + " " + compareSQL(ex.Op) + " " + right + ")", nil

	case plan.Logical:
		if len(ex.Operands) == 0 {
			return "", lqerrors.NewTranslateError("filter", "boolean combinator with no operands")
		}
		word := " OR "
		if ex.Conj {
			word = " AND "
		}
		parts := make([]string, len(ex.Operands))
		for i, op := range ex.Operands {
			part, err := renderExpr(op)
			if err != nil {
				return "", err
			}
			parts[i] = part
		}
		return "(" + strings.Join(parts, word) + ")", nil

	case plan.Not:
		inner, err := renderExpr(ex.Operand)
		if err != nil {
			return "", err
		}
		return "(NOT " + inner + ")", nil

	case plan.Arith:
		left, err := renderExpr(ex.Left)
		if err != nil {
			return "", err
		}
		right, err := renderExpr(ex.Right)
		if err != nil {
			return "", err
		}
		return "(" + left + " " + ex.Op.String() + " " + right + ")", nil

	case plan.In:
		operand, err := renderExpr(ex.Operand)
		if err != nil {
			return "", err
		}
		if len(ex.Values) == 0 {
			return "", lqerrors.NewTranslateError("filter", "IN with empty value list")
		}
		parts := make([]string, len(ex.Values))
		for i, v := range ex.Values {
			part, err := renderLiteral(v)
			if err != nil {
				return "", err
			}
			parts[i] = part
		}
		return operand + " IN (" + strings.Join(parts, ", ") + ")", nil

	default:
		return "", lqerrors.NewTranslateError("filter", "unsupported expression %T", e)
	}
}

func compareSQL(op plan.CompareOp) string {
	if op == plan.OpNe {
		return "<>"
	}
	return op.String()
}

func renderLiteral(l plan.Literal) (string, error) {
	switch v := l.Value.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case nil:
		return "NULL", nil
	default:
		return "", lqerrors.NewTranslateError("filter", "unsupported literal type %T", l.Value)
	}
}

func renderAggregate(agg plan.AggregateSpec) (string, error) {
	var fn string
	switch agg.Func {
	case plan.AggMin:
		fn = "MIN"
	case plan.AggMax:
		fn = "MAX"
	case plan.AggSum:
		fn = "SUM"
	case plan.AggMean:
		fn = "AVG"
	case plan.AggCount:
		fn = "COUNT"
	default:
		return "", lqerrors.NewTranslateError("group-aggregate", "unknown aggregate %v", agg.Func)
	}
	if agg.Column == "" {
		// Validated at plan construction: only COUNT reaches here columnless.
		return fn + "(*)", nil
	}
	return fn + "(" + quoteIdent(agg.Column) + ")", nil
}
