// Package store is the boundary to the backing system that actually holds
// the data. The engine only assumes a store accepts a SQL string and returns
// a tabular result or an error; everything else (transport, auth) is the
// store implementation's business.
package store

import (
	"context"

	"github.com/kartikbazzad/lazyq/internal/schema"
)

// Result is a finite tabular response, rows in the exact order the store
// returned them.
type Result struct {
	Columns []string
	Rows    [][]interface{}
}

// Store is the capability the executor needs from a backing store. An
// in-memory implementation can satisfy it without any shared machinery with
// the SQLite one.
type Store interface {
	// Query submits one query string and returns the full tabular result.
	// Implementations must not interleave two concurrent queries on one
	// physical connection.
	Query(ctx context.Context, query string) (*Result, error)

	// DescribeTable reads the table's column names and types from the
	// store's catalog. An unknown table reports ErrTableNotFound.
	DescribeTable(ctx context.Context, table string) (*schema.Schema, error)

	Close() error
}
