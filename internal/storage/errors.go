// internal/storage/errors.go
package storage

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Sentinel errors surfaced by storage operations. The error-handling
// middleware maps these to HTTP status codes.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrTableNotFound  = errors.New("table not found")
	ErrLineNotFound   = errors.New("line not found")

	// Update request validation, in fail-fast order.
	ErrMissingTable     = errors.New("table name is required")
	ErrInvalidID        = errors.New("record id must be an integer")
	ErrMissingUpdates   = errors.New("updates object is required")
	ErrInvalidComment   = errors.New("comment must be a string or null")
	ErrInvalidFlag      = errors.New("needtosend must be 0 or 1")
	ErrNoFieldsProvided = errors.New("no updatable fields provided")
)

// MySQL server error numbers the browser cares about.
const (
	mysqlErrBadField = 1054 // Unknown column
	mysqlErrNoTable  = 1146 // Table doesn't exist
)

// isUnknownColumnErr reports whether err is the engine complaining about a
// column that does not exist in the target table. This is the only condition
// the fallback ladder recovers from.
func isUnknownColumnErr(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrBadField
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") || // sqlite
		strings.Contains(msg, "Unknown column") // mysql text fallback
}

// mapTableErr converts engine-specific "table does not exist" failures to
// ErrTableNotFound and leaves everything else untouched.
func mapTableErr(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrNoTable {
		return ErrTableNotFound
	}
	if strings.Contains(err.Error(), "no such table") { // sqlite
		return ErrTableNotFound
	}
	return err
}
