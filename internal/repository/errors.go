// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories translate.
const (
	errDupEntry        = 1062
	errRowIsReferenced = 1451
)

// ErrNotFound is returned when the requested row does not exist.
// Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be applied because the
// row changed underneath it, e.g. an order whose status moved on
// between read and conditional update. Handlers translate this into
// an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering a taken email.
var ErrEmailExists = errors.New("email already exists")

// ErrOrderNumberTaken is returned when a generated order number
// collides with an existing one; callers regenerate and retry.
var ErrOrderNumberTaken = errors.New("order number taken")

// notFound maps sql.ErrNoRows onto ErrNotFound and passes every other
// error through untouched.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// mysqlErrNumber reports whether err wraps a server error with the
// given number.
func mysqlErrNumber(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}

// isDuplicate reports a duplicate-key violation.
func isDuplicate(err error) bool { return mysqlErrNumber(err, errDupEntry) }

// isReferenced reports a delete blocked by a foreign key.
func isReferenced(err error) bool { return mysqlErrNumber(err, errRowIsReferenced) }

// placeholders returns "?,?,?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
