// Package repository implements the storage contracts on MySQL.  The
// sentinel values below are shared with the in-memory store so services
// can tell failure scenarios apart without knowing the backend.  Mutating
// methods take the caller's account ID and verify existence before
// ownership: a missing row is ErrNotFound, a row owned by someone else is
// ErrForbidden.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// row owned by someone else.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when the row is not in the state the operation
// requires (a request already decided, a vehicle still used by rides).
var ErrConflict = errors.New("conflict")

// ErrRideClosed is returned when a request is accepted on a ride that was
// cancelled, finished or has already departed.  It wraps ErrConflict.
var ErrRideClosed = fmt.Errorf("%w: ride is no longer open", ErrConflict)

// ErrInsufficientSeats is returned when accepting a request would push a
// ride below zero free seats.
var ErrInsufficientSeats = errors.New("insufficient seats")

// DuplicateKeyError reports a unique constraint violation.  Field is the
// request field the constraint guards.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

// uniqueFields maps constraint names from schema.sql to request fields.
var uniqueFields = map[string]string{
	"uq_accounts_email":               "email",
	"uq_courses_name":                 "name",
	"uq_modules_course_position":      "position",
	"uq_lessons_module_position":      "position",
	"uq_enrollments_student_course":   "course_id",
	"uq_vehicles_plate":               "plate",
	"uq_ride_requests_ride_passenger": "ride_id",
	"uq_refresh_tokens_hash":          "token",
	"uq_ratings_ride_rater_rated":     "rated_id",
}

const (
	mysqlDuplicateEntry = 1062
	mysqlRowReferenced  = 1451
	mysqlNoParentRow    = 1452
)

// translate converts driver errors into the package sentinels.  Other
// errors pass through untouched.
func translate(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		return &DuplicateKeyError{Field: duplicateField(me.Message)}
	case mysqlRowReferenced:
		return ErrConflict
	case mysqlNoParentRow:
		return ErrNotFound
	}
	return err
}

// duplicateField extracts the key name from a message such as
// "Duplicate entry 'a@b.c' for key 'accounts.uq_accounts_email'".
func duplicateField(msg string) string {
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return "unknown"
	}
	key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	if f, ok := uniqueFields[key]; ok {
		return f
	}
	return key
}
