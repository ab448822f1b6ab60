package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kartikbazzad/lazyq"
	"github.com/kartikbazzad/lazyq/cmd/lazyqsh/commands"
	"github.com/kartikbazzad/lazyq/cmd/lazyqsh/parser"
)

// Shell holds one engine handle plus the query being built. The query is a
// lazy frame: every building command swaps in a new frame, and nothing
// touches the store until .run or .preview.
type Shell struct {
	mu    sync.Mutex
	db    *lazyq.DB
	table string
	frame *lazyq.Frame
}

func NewShell(db *lazyq.DB) *Shell {
	return &Shell{db: db}
}

func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Shell) Execute(ctx context.Context, cmd *parser.Command) commands.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cmd.Name {
	case ".help":
		return commands.HelpResult{}
	case ".exit", ".quit":
		return commands.ExitResult{}
	case ".tables":
		return s.tables(ctx)
	case ".schema":
		return s.schema(ctx, cmd)
	case ".metrics":
		return commands.MetricsResult{Text: s.db.Metrics()}
	case ".use":
		return s.use(ctx, cmd)
	case ".project":
		return s.project(cmd)
	case ".filter":
		return s.filter(cmd)
	case ".sort":
		return s.sort(cmd)
	case ".agg":
		return s.agg(cmd)
	case ".distinct":
		return s.distinct()
	case ".limit":
		return s.limit(cmd)
	case ".reset":
		return s.reset(ctx)
	case ".sql":
		return s.sql()
	case ".preview":
		return s.preview(ctx, cmd)
	case ".run":
		return s.run(ctx)
	default:
		return commands.ErrorResult{Err: fmt.Sprintf("unknown command: %s", cmd.Name)}
	}
}

func (s *Shell) tables(ctx context.Context) commands.Result {
	tables, err := s.db.Tables(ctx)
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	return commands.TablesResult{Tables: tables}
}

func (s *Shell) schema(ctx context.Context, cmd *parser.Command) commands.Result {
	if len(cmd.Args) > 0 {
		f, err := s.db.Table(ctx, cmd.Args[0])
		if err != nil {
			return commands.ErrorResult{Err: err.Error()}
		}
		return commands.SchemaResult{Table: cmd.Args[0], Columns: f.Schema()}
	}
	if s.frame == nil {
		return commands.ErrorResult{Err: "no query started; .use <table> first"}
	}
	return commands.SchemaResult{Table: "(current query)", Columns: s.frame.Schema()}
}

func (s *Shell) use(ctx context.Context, cmd *parser.Command) commands.Result {
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	f, err := s.db.Table(ctx, cmd.Args[0])
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	s.table = cmd.Args[0]
	s.frame = f
	return commands.OKResult{Msg: fmt.Sprintf("table=%s", s.table)}
}

func (s *Shell) current() (*lazyq.Frame, commands.Result) {
	if s.frame == nil {
		return nil, commands.ErrorResult{Err: "no query started; .use <table> first"}
	}
	return s.frame, nil
}

func (s *Shell) project(cmd *parser.Command) commands.Result {
	f, errRes := s.current()
	if errRes != nil {
		return errRes
	}
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	cols := parser.SplitList(strings.Join(cmd.Args, ","))
	nf, err := f.Project(cols...)
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	s.frame = nf
	return commands.OKResult{}
}

func (s *Shell) filter(cmd *parser.Command) commands.Result {
	f, errRes := s.current()
	if errRes != nil {
		return errRes
	}
	if err := parser.ValidateArgs(cmd, 3); err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	pred, err := buildPredicate(cmd.Args[0], cmd.Args[1], strings.Join(cmd.Args[2:], " "))
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	nf, err := f.Filter(pred)
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	s.frame = nf
	return commands.OKResult{}
}

func (s *Shell) sort(cmd *parser.Command) commands.Result {
	f, errRes := s.current()
	if errRes != nil {
		return errRes
	}
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	var keys []lazyq.SortKey
	for _, spec := range parser.SplitList(strings.Join(cmd.Args, ",")) {
		col, dir, _ := strings.Cut(spec, ":")
		switch strings.ToLower(dir) {
		case "", "asc":
			keys = append(keys, lazyq.Asc(col))
		case "desc":
			keys = append(keys, lazyq.Desc(col))
		default:
			return commands.ErrorResult{Err: fmt.Sprintf("bad sort direction %q (asc|desc)", dir)}
		}
	}
	nf, err := f.Sort(keys...)
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	s.frame = nf
	return commands.OKResult{}
}

func (s *Shell) agg(cmd *parser.Command) commands.Result {
	f, errRes := s.current()
	if errRes != nil {
		return errRes
	}
	if err := parser.ValidateArgs(cmd, 2); err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	groups := parser.SplitList(cmd.Args[0])
	var specs []lazyq.AggregateSpec
	for _, arg := range cmd.Args[1:] {
		spec, err := parseAggSpec(arg)
		if err != nil {
			return commands.ErrorResult{Err: err.Error()}
		}
		specs = append(specs, spec)
	}
	nf, err := f.GroupAggregate(groups, specs...)
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	s.frame = nf
	return commands.OKResult{}
}

func (s *Shell) distinct() commands.Result {
	f, errRes := s.current()
	if errRes != nil {
		return errRes
	}
	s.frame = f.Distinct()
	return commands.OKResult{}
}

func (s *Shell) limit(cmd *parser.Command) commands.Result {
	f, errRes := s.current()
	if errRes != nil {
		return errRes
	}
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	n, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		return commands.ErrorResult{Err: fmt.Sprintf("bad limit %q", cmd.Args[0])}
	}
	nf, err := f.Limit(n)
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	s.frame = nf
	return commands.OKResult{}
}

func (s *Shell) reset(ctx context.Context) commands.Result {
	if s.table == "" {
		return commands.ErrorResult{Err: "no query started; .use <table> first"}
	}
	f, err := s.db.Table(ctx, s.table)
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	s.frame = f
	return commands.OKResult{Msg: fmt.Sprintf("table=%s", s.table)}
}

func (s *Shell) sql() commands.Result {
	f, errRes := s.current()
	if errRes != nil {
		return errRes
	}
	query, err := f.SQL()
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	return commands.SQLResult{SQL: query}
}

func (s *Shell) preview(ctx context.Context, cmd *parser.Command) commands.Result {
	f, errRes := s.current()
	if errRes != nil {
		return errRes
	}
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	n, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		return commands.ErrorResult{Err: fmt.Sprintf("bad row cap %q", cmd.Args[0])}
	}
	res, err := f.Preview(ctx, n)
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	return commands.RowsResult{Set: res}
}

func (s *Shell) run(ctx context.Context) commands.Result {
	f, errRes := s.current()
	if errRes != nil {
		return errRes
	}
	res, err := f.Materialize(ctx)
	if err != nil {
		return commands.ErrorResult{Err: err.Error()}
	}
	return commands.RowsResult{Set: res}
}

// buildPredicate turns "<col> <op> <value>" into an expression. For "in" the
// value is a comma-separated list.
func buildPredicate(col, op, value string) (lazyq.Expr, error) {
	c := lazyq.Col(col)
	if strings.EqualFold(op, "in") {
		parts := parser.SplitList(value)
		if len(parts) == 0 {
			return nil, fmt.Errorf("in: empty value list")
		}
		vals := make([]interface{}, len(parts))
		for i, p := range parts {
			vals[i] = parser.ParseValue(p)
		}
		return lazyq.In(c, vals...), nil
	}

	v := lazyq.Lit(parser.ParseValue(value))
	switch op {
	case "=", "==":
		return lazyq.Eq(c, v), nil
	case "!=", "<>":
		return lazyq.Ne(c, v), nil
	case "<":
		return lazyq.Lt(c, v), nil
	case "<=":
		return lazyq.Le(c, v), nil
	case ">":
		return lazyq.Gt(c, v), nil
	case ">=":
		return lazyq.Ge(c, v), nil
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}

// parseAggSpec parses "func(col):alias", e.g. "min(bid):smallestBid" or
// "count():n".
func parseAggSpec(s string) (lazyq.AggregateSpec, error) {
	var zero lazyq.AggregateSpec
	body, alias, ok := strings.Cut(s, ":")
	if !ok || alias == "" {
		return zero, fmt.Errorf("aggregate %q needs an alias, e.g. min(bid):smallest", s)
	}
	fn, rest, ok := strings.Cut(body, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return zero, fmt.Errorf("aggregate %q must look like func(col):alias", s)
	}
	col := strings.TrimSuffix(rest, ")")
	if col == "*" {
		col = ""
	}

	switch strings.ToLower(fn) {
	case "min":
		return lazyq.Min(col, alias), nil
	case "max":
		return lazyq.Max(col, alias), nil
	case "sum":
		return lazyq.Sum(col, alias), nil
	case "mean", "avg":
		return lazyq.Mean(col, alias), nil
	case "count":
		return lazyq.Count(col, alias), nil
	default:
		return zero, fmt.Errorf("unknown aggregate %q", fn)
	}
}
