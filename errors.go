package dbfixture

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedDialect   = errors.New("unsupported dialect")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrSchemaConflict       = errors.New("schema conflict")
	ErrBackend              = errors.New("backend error")
	// ErrMigrationConsumed is returned when a terminal operation is called on
	// a migration that already ran one. Build a new migration instead.
	ErrMigrationConsumed = errors.New("migration already executed")
)

// DialectError reports a connection string whose dialect has no registered
// implementation.
type DialectError struct {
	Dialect string
	DSN     string
}

func (e *DialectError) Error() string {
	return fmt.Sprintf("not sure which migration to use for dialect %q (dsn %q)", e.Dialect, e.DSN)
}

func (e *DialectError) Unwrap() error { return ErrUnsupportedDialect }

// OperationError reports a schema operation the dialect cannot perform.
type OperationError struct {
	Dialect string
	Table   string
	Op      string
}

func (e *OperationError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s: %s is not supported", e.Dialect, e.Op)
	}
	return fmt.Sprintf("%s: %s on table %s is not supported", e.Dialect, e.Op, e.Table)
}

func (e *OperationError) Unwrap() error { return ErrUnsupportedOperation }

// BackendError wraps a failure from the database driver together with the
// statement that caused it.
type BackendError struct {
	SQL string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%v\nSQL: %s", e.Err, e.SQL)
}

func (e *BackendError) Unwrap() []error { return []error{ErrBackend, e.Err} }

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaConflict, fmt.Sprintf(format, args...))
}
