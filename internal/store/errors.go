package store

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when an insert would violate the unique
	// email constraint on users or admins.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateKey is returned when an insert would violate the unique
	// key_value constraint on api_keys.
	ErrDuplicateKey = errors.New("api key already exists")
)

// isUniqueViolation reports whether err is a unique-constraint violation from
// any of the supported drivers. Callers translate it to ErrDuplicateEmail or
// ErrDuplicateKey depending on which insert was running, so no error-string
// sniffing ever leaves this package.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062 // ER_DUP_ENTRY
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505" // unique_violation
	}

	return false
}
