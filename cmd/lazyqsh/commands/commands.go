package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/kartikbazzad/lazyq"
)

type Result interface {
	Print(w io.Writer)
	IsExit() bool
}

type ErrorResult struct {
	Err string
}

func (e ErrorResult) Print(w io.Writer) {
	fmt.Fprintln(w, "ERROR")
	fmt.Fprintln(w, e.Err)
}

func (e ErrorResult) IsExit() bool { return false }

type ExitResult struct{}

func (e ExitResult) Print(w io.Writer) {}
func (e ExitResult) IsExit() bool      { return true }

type OKResult struct {
	Msg string
}

func (o OKResult) Print(w io.Writer) {
	fmt.Fprintln(w, "OK")
	if o.Msg != "" {
		fmt.Fprintln(w, o.Msg)
	}
}

func (o OKResult) IsExit() bool { return false }

type HelpResult struct{}

func (h HelpResult) Print(w io.Writer) {
	fmt.Fprintln(w, "lazyq Shell Commands:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Meta Commands:")
	fmt.Fprintln(w, "  .help                 Show this help message")
	fmt.Fprintln(w, "  .exit                 Exit the shell")
	fmt.Fprintln(w, "  .tables               List backing tables")
	fmt.Fprintln(w, "  .schema [table]       Show a table's (or the query's) columns")
	fmt.Fprintln(w, "  .metrics              Print engine metrics")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Query Building (lazy; nothing runs until .run or .preview):")
	fmt.Fprintln(w, "  .use <table>            Start a new query over a table")
	fmt.Fprintln(w, "  .project <cols>         Keep columns, e.g. .project bid,bidderID")
	fmt.Fprintln(w, "  .filter <col> <op> <v>  Keep rows, op: = != < <= > >= in")
	fmt.Fprintln(w, "                          e.g. .filter bidderID in 1,4")
	fmt.Fprintln(w, "  .sort <keys>            Order rows, e.g. .sort bidderID,id:desc")
	fmt.Fprintln(w, "  .agg <groups> <specs>   Group and aggregate,")
	fmt.Fprintln(w, "                          e.g. .agg bidderID min(bid):smallestBid")
	fmt.Fprintln(w, "  .distinct               Remove duplicate rows")
	fmt.Fprintln(w, "  .limit <n>              Cap the result at n rows")
	fmt.Fprintln(w, "  .reset                  Drop the chain, keep the table")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Execution:")
	fmt.Fprintln(w, "  .sql                  Show the SQL the query would run")
	fmt.Fprintln(w, "  .preview <n>          Run with a row cap of n")
	fmt.Fprintln(w, "  .run                  Materialize the full result")
}

func (h HelpResult) IsExit() bool { return false }

type TablesResult struct {
	Tables []string
}

func (t TablesResult) Print(w io.Writer) {
	if len(t.Tables) == 0 {
		fmt.Fprintln(w, "(no tables)")
		return
	}
	for _, name := range t.Tables {
		fmt.Fprintln(w, name)
	}
}

func (t TablesResult) IsExit() bool { return false }

type SchemaResult struct {
	Table   string
	Columns []lazyq.Column
}

func (s SchemaResult) Print(w io.Writer) {
	fmt.Fprintf(w, "%s:\n", s.Table)
	for _, col := range s.Columns {
		fmt.Fprintf(w, "  %-20s %s\n", col.Name, typeName(col.Type))
	}
}

func (s SchemaResult) IsExit() bool { return false }

type SQLResult struct {
	SQL string
}

func (s SQLResult) Print(w io.Writer) {
	fmt.Fprintln(w, s.SQL)
}

func (s SQLResult) IsExit() bool { return false }

// RowsResult renders a materialized result as an aligned text table.
type RowsResult struct {
	Set *lazyq.ResultSet
}

func (r RowsResult) Print(w io.Writer) {
	cols := r.Set.Columns()
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = len(col)
	}

	cells := make([][]string, r.Set.Len())
	for i := 0; i < r.Set.Len(); i++ {
		row := r.Set.Row(i)
		cells[i] = make([]string, len(cols))
		for j, col := range cols {
			cell := fmt.Sprintf("%v", row[col])
			cells[i][j] = cell
			if len(cell) > widths[j] {
				widths[j] = len(cell)
			}
		}
	}

	printRow := func(vals []string) {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = fmt.Sprintf("%-*s", widths[i], v)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	printRow(cols)
	for _, row := range cells {
		printRow(row)
	}
	fmt.Fprintf(w, "(%d row(s))\n", r.Set.Len())
}

func (r RowsResult) IsExit() bool { return false }

type MetricsResult struct {
	Text string
}

func (m MetricsResult) Print(w io.Writer) {
	fmt.Fprint(w, m.Text)
}

func (m MetricsResult) IsExit() bool { return false }

func typeName(t lazyq.ColumnType) string {
	switch t {
	case lazyq.Numeric:
		return "numeric"
	case lazyq.Boolean:
		return "boolean"
	default:
		return "text"
	}
}
