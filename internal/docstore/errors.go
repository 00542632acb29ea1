package docstore

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/ducttape/internal/docsql"
)

// ConnectionError reports a failure to establish or configure a database
// connection. It is fatal to the calling operation and never retried.
type ConnectionError struct {
	// Path is the database location the connection was opened against.
	Path string

	// Mode is the observed journal mode when a requested WAL switch was
	// not confirmed by the engine. Empty otherwise.
	Mode string

	// Err is the underlying engine error, if any.
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Mode != "" {
		return fmt.Sprintf("connect %s: failed to enable WAL mode, journal mode is %q", e.Path, e.Mode)
	}
	return fmt.Sprintf("connect %s: %v", e.Path, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// WriteError reports a failed mutation. The enclosing transaction has
// been rolled back; no partial state is visible.
type WriteError struct {
	// Op is the mutation that failed: "upsert", "delete" or "bulk upsert".
	Op string

	// Table is the affected document table.
	Table string

	// ID is the affected document id, or zero for a document that had no
	// id assigned yet.
	ID int64

	// Err is the underlying engine error.
	Err error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	id := "new"
	if e.ID != 0 {
		id = strconv.FormatInt(e.ID, 10)
	}
	return fmt.Sprintf("%s document %s in %s: %v", e.Op, id, e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ValidationError reports a malformed call, rejected before any query is
// issued. It originates in docsql, which owns the operator and aggregate
// allow-lists.
type ValidationError = docsql.ValidationError

// IsConnectionError reports whether err is (or wraps) a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsWriteError reports whether err is (or wraps) a WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
