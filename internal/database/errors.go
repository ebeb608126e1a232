package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorKind is a stable taxonomy over opaque storage-engine errors.
type ErrorKind string

const (
	ErrKindConnectionFailed    ErrorKind = "connection_failed"
	ErrKindConnectionTimeout   ErrorKind = "connection_timeout"
	ErrKindQueryTimeout        ErrorKind = "query_timeout"
	ErrKindSyntax              ErrorKind = "syntax_error"
	ErrKindCheckViolation      ErrorKind = "check_violation"
	ErrKindForeignKeyViolation ErrorKind = "foreign_key_violation"
	ErrKindNotNullViolation    ErrorKind = "not_null_violation"
	ErrKindUniqueViolation     ErrorKind = "unique_violation"
	ErrKindLocked              ErrorKind = "locked"
	ErrKindDiskFull            ErrorKind = "disk_full"
	ErrKindReadonly            ErrorKind = "readonly"
	ErrKindPermission          ErrorKind = "permission_denied"
	ErrKindCorruption          ErrorKind = "corruption"
	ErrKindSchemaMismatch      ErrorKind = "schema_mismatch"
	ErrKindMigrationFailed     ErrorKind = "migration_failed"
	ErrKindValidationFailed    ErrorKind = "validation_failed"
	ErrKindUnknown             ErrorKind = "unknown"
)

// StoreError is a classified storage error. It keeps the original message
// and, when available, the raw engine code for diagnostics.
type StoreError struct {
	Kind    ErrorKind
	Code    int
	Message string
	cause   error
}

func (e *StoreError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.cause
}

// Retryable reports whether retrying can possibly succeed without changing
// the input. Constraint violations, corruption, and syntax errors never
// can.
func (e *StoreError) Retryable() bool {
	switch e.Kind {
	case ErrKindLocked, ErrKindQueryTimeout, ErrKindConnectionTimeout:
		return true
	default:
		return false
	}
}

// Classify converts a raw error into a StoreError. The engine-specific code
// is inspected first; message substrings are the fallback when no code is
// present.
func Classify(err error) *StoreError {
	if err == nil {
		return nil
	}

	var se *StoreError
	if errors.As(err, &se) {
		return se
	}

	classified := &StoreError{
		Kind:    ErrKindUnknown,
		Message: err.Error(),
		cause:   err,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		classified.Kind = ErrKindQueryTimeout
		return classified
	}

	var engineErr *sqlite.Error
	if errors.As(err, &engineErr) {
		classified.Code = engineErr.Code()
		classified.Kind = kindFromCode(engineErr.Code())
		return classified
	}

	classified.Kind = kindFromMessage(err.Error())
	return classified
}

func kindFromCode(code int) ErrorKind {
	// Extended result codes carry the primary code in the low byte.
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return ErrKindCheckViolation
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ErrKindForeignKeyViolation
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return ErrKindNotNullViolation
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ErrKindUniqueViolation
	}

	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return ErrKindLocked
	case sqlite3.SQLITE_CONSTRAINT:
		return ErrKindCheckViolation
	case sqlite3.SQLITE_FULL:
		return ErrKindDiskFull
	case sqlite3.SQLITE_READONLY:
		return ErrKindReadonly
	case sqlite3.SQLITE_PERM, sqlite3.SQLITE_AUTH:
		return ErrKindPermission
	case sqlite3.SQLITE_CORRUPT, sqlite3.SQLITE_NOTADB:
		return ErrKindCorruption
	case sqlite3.SQLITE_CANTOPEN:
		return ErrKindConnectionFailed
	case sqlite3.SQLITE_ERROR:
		return ErrKindSyntax
	default:
		return ErrKindUnknown
	}
}

func kindFromMessage(message string) ErrorKind {
	msg := strings.ToLower(message)

	switch {
	case strings.Contains(msg, "foreign key constraint"):
		return ErrKindForeignKeyViolation
	case strings.Contains(msg, "unique constraint") || strings.Contains(msg, "not unique"):
		return ErrKindUniqueViolation
	case strings.Contains(msg, "check constraint"):
		return ErrKindCheckViolation
	case strings.Contains(msg, "not null constraint") || strings.Contains(msg, "may not be null"):
		return ErrKindNotNullViolation
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return ErrKindQueryTimeout
	case strings.Contains(msg, "locked") || strings.Contains(msg, "busy"):
		return ErrKindLocked
	case strings.Contains(msg, "syntax"):
		return ErrKindSyntax
	case strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column"):
		return ErrKindSchemaMismatch
	case strings.Contains(msg, "disk is full") || strings.Contains(msg, "disk full"):
		return ErrKindDiskFull
	case strings.Contains(msg, "readonly") || strings.Contains(msg, "read-only"):
		return ErrKindReadonly
	case strings.Contains(msg, "permission denied") || strings.Contains(msg, "access denied"):
		return ErrKindPermission
	case strings.Contains(msg, "corrupt") || strings.Contains(msg, "malformed"):
		return ErrKindCorruption
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "unable to open"):
		return ErrKindConnectionFailed
	default:
		return ErrKindUnknown
	}
}
