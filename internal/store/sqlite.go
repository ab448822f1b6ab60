package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/kartikbazzad/lazyq/internal/config"
	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
	"github.com/kartikbazzad/lazyq/internal/logger"
	"github.com/kartikbazzad/lazyq/internal/schema"
)

// SQLite backs the engine with a SQLite database through database/sql.
// database/sql owns the connection pool; each query checks a connection out
// for its whole lifetime, so two concurrent queries never share one.
type SQLite struct {
	db     *sql.DB
	logger *logger.Logger
	closed atomic.Bool
}

// OpenSQLite opens (or creates) the database named by cfg.DSN and verifies
// the connection.
func OpenSQLite(cfg config.StoreConfig, log *logger.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", cfg.DSN, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", lqerrors.ErrConnectionFailure, err)
	}

	log.Debug("opened sqlite store dsn=%q", cfg.DSN)
	return &SQLite{db: db, logger: log}, nil
}

// Query runs one SELECT and materializes the full response. The connection
// is a scoped resource: checked out here, returned to the pool on every exit
// path. If the context expired while the query was in flight the connection
// is marked bad so the pool discards it instead of reusing it.
func (s *SQLite) Query(ctx context.Context, query string) (*Result, error) {
	if s.closed.Load() {
		return nil, lqerrors.ErrStoreClosed
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer func() {
		if ctx.Err() != nil {
			// A query may still be in flight on this connection. Force the
			// pool to drop it rather than hand it to the next caller.
			_ = conn.Raw(func(interface{}) error { return driver.ErrBadConn })
		}
		conn.Close()
	}()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, s.mapError(err)
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, s.mapError(err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapError(err)
	}
	return result, nil
}

// DescribeTable reads column names and declared types from sqlite's catalog.
func (s *SQLite) DescribeTable(ctx context.Context, table string) (*schema.Schema, error) {
	if s.closed.Load() {
		return nil, lqerrors.ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var name, declType string
		if err := rows.Scan(&name, &declType); err != nil {
			return nil, s.mapError(err)
		}
		cols = append(cols, schema.Column{Name: name, Type: mapDeclType(declType)})
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapError(err)
	}
	if len(cols) == 0 {
		return nil, &lqerrors.TableError{Table: table}
	}
	return schema.New(cols...)
}

func (s *SQLite) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// mapDeclType folds sqlite's declared column types onto the engine's three.
func mapDeclType(declType string) schema.ColumnType {
	t := strings.ToUpper(declType)
	switch {
	case strings.Contains(t, "BOOL"):
		return schema.Boolean
	case strings.Contains(t, "INT"),
		strings.Contains(t, "REAL"),
		strings.Contains(t, "FLOA"),
		strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUM"),
		strings.Contains(t, "DEC"):
		return schema.Numeric
	default:
		return schema.Text
	}
}

// mapError folds driver errors onto the engine taxonomy so the classifier
// and callers can test with errors.Is.
func (s *SQLite) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", lqerrors.ErrTimeout, err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", lqerrors.ErrConnectionFailure, err)
	}

	msg := err.Error()
	if name, ok := cutAfter(msg, "no such table: "); ok {
		return &lqerrors.TableError{Table: name}
	}
	if name, ok := cutAfter(msg, "no such column: "); ok {
		// Schema drift: the table changed between plan construction and
		// execution. Surfaced here because it cannot be caught earlier.
		return lqerrors.NewColumnError("execute", name)
	}
	return err
}

// cutAfter returns the remainder of msg after marker, trimmed to the first
// identifier-ish token.
func cutAfter(msg, marker string) (string, bool) {
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexAny(rest, " ()\n"); j >= 0 {
		rest = rest[:j]
	}
	return rest, rest != ""
}
