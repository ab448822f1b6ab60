package errors

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"syscall"
)

// ErrorCategory represents the category of an error for retry logic.
type ErrorCategory int

const (
	ErrorTransient  ErrorCategory = iota // Temporary errors - retry with backoff
	ErrorPermanent                       // Permanent errors - no retry
	ErrorValidation                      // Plan/data validation errors - no retry
	ErrorNetwork                         // Network-related - retry with backoff
	ErrorTimeout                         // Deadline exceeded - no retry, discard connection
)

// Classifier categorizes errors for retry logic. The engine is read-only, so
// retrying a transient failure never double-applies an operation.
type Classifier struct{}

// NewClassifier creates a new error classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify determines the category of an error.
func (c *Classifier) Classify(err error) ErrorCategory {
	if err == nil {
		return ErrorPermanent // Should not happen, but safe default
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return ErrorTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorPermanent
	}

	// Driver-level connection loss surfaces as ErrBadConn or a bare EOF.
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrorNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorNetwork
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.EAGAIN, syscall.ENOMEM, syscall.ETIMEDOUT:
			return ErrorTransient
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.EPIPE:
			return ErrorNetwork
		}
		return ErrorPermanent
	}

	switch {
	case errors.Is(err, ErrConnectionFailure):
		return ErrorNetwork
	case errors.Is(err, ErrColumnNotFound),
		errors.Is(err, ErrDuplicateColumn),
		errors.Is(err, ErrInvalidAggregate),
		errors.Is(err, ErrTranslation):
		return ErrorValidation
	case errors.Is(err, ErrTableNotFound),
		errors.Is(err, ErrStoreClosed),
		errors.Is(err, ErrTooManyQueries):
		return ErrorPermanent
	}

	// Default: treat as permanent (no retry)
	return ErrorPermanent
}

// ShouldRetry returns true if the error category indicates retry is appropriate.
func (c *Classifier) ShouldRetry(category ErrorCategory) bool {
	return category == ErrorTransient || category == ErrorNetwork
}
