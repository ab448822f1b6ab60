package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/kartikbazzad/lazyq/internal/schema"
)

// Seeding helpers. The engine itself is read-only; these exist so tests and
// the shell's demo mode can stand up tables in the same store.

// CreateTable creates a table matching the schema if it does not exist.
func (s *SQLite) CreateTable(ctx context.Context, table string, sch *schema.Schema) error {
	defs := make([]string, 0, sch.Len())
	for _, col := range sch.Columns() {
		defs = append(defs, quote(col.Name)+" "+sqliteType(col.Type))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return s.mapError(err)
	}
	return nil
}

// InsertRows inserts rows positionally; each row must match the table's
// column count.
func (s *SQLite) InsertRows(ctx context.Context, table string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(rows[0])), ", ") + ")"
	stmt := fmt.Sprintf("INSERT INTO %s VALUES %s", quote(table), placeholders)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.mapError(err)
	}
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, stmt, row...); err != nil {
			tx.Rollback()
			return s.mapError(err)
		}
	}
	return tx.Commit()
}

// DropTable removes a table; missing tables are not an error.
func (s *SQLite) DropTable(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table)); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Tables lists user tables in name order.
func (s *SQLite) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, s.mapError(err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteType(t schema.ColumnType) string {
	switch t {
	case schema.Numeric:
		return "NUMERIC"
	case schema.Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}
