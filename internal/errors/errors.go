package errors

import (
	"errors"
	"fmt"
)

// Plan construction errors
var (
	// ErrColumnNotFound is returned when an operation references a column that
	// is not present in the schema reachable at that point of the plan. It is
	// raised when the operation is appended, never deferred to execution.
	ErrColumnNotFound = errors.New("column not found")

	// ErrDuplicateColumn is returned when an operation would produce two
	// output columns with the same name (aggregate aliases, join outputs).
	ErrDuplicateColumn = errors.New("duplicate output column")

	// ErrInvalidAggregate is returned when an aggregate spec is not
	// applicable to its input column (e.g. sum over a text column).
	ErrInvalidAggregate = errors.New("invalid aggregate")

	// ErrEmptyOperation is returned when an operation carries no arguments
	// (projection with no columns, sort with no keys).
	ErrEmptyOperation = errors.New("operation has no arguments")
)

// Translation and execution errors
var (
	// ErrTranslation is returned when a valid plan cannot be expressed in the
	// target query language. Not retryable.
	ErrTranslation = errors.New("plan cannot be translated")

	// ErrTableNotFound is returned when the backing table identifier does not
	// resolve in the store at call time.
	ErrTableNotFound = errors.New("table not found")

	// ErrConnectionFailure is returned when the backing store connection
	// fails. Transient; the executor retries with backoff up to a bound.
	ErrConnectionFailure = errors.New("backing store connection failure")

	// ErrTimeout is returned when a query exceeds its deadline. The
	// connection that carried it is discarded, never reused.
	ErrTimeout = errors.New("query timed out")

	// ErrStoreClosed is returned when querying a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrTooManyQueries is returned when the executor's concurrency bound is
	// reached and the query cannot be admitted.
	ErrTooManyQueries = errors.New("too many concurrent queries")
)

// ColumnError carries the operation and column that caused a lookup failure.
// It wraps ErrColumnNotFound so callers can test with errors.Is.
type ColumnError struct {
	Op     string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: column %q not found", e.Op, e.Column)
}

func (e *ColumnError) Unwrap() error { return ErrColumnNotFound }

// NewColumnError builds a ColumnError for the given operation and column.
func NewColumnError(op, column string) *ColumnError {
	return &ColumnError{Op: op, Column: column}
}

// TranslateError names the operation a plan could not express in SQL.
// It wraps ErrTranslation.
type TranslateError struct {
	Op     string
	Reason string
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("cannot translate %s: %s", e.Op, e.Reason)
}

func (e *TranslateError) Unwrap() error { return ErrTranslation }

// NewTranslateError builds a TranslateError for the given operation.
func NewTranslateError(op, format string, args ...interface{}) *TranslateError {
	return &TranslateError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// TableError names the table that failed to resolve. It wraps ErrTableNotFound.
type TableError struct {
	Table string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("table %q not found in backing store", e.Table)
}

func (e *TableError) Unwrap() error { return ErrTableNotFound }
