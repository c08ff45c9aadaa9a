package store

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound matches every "record does not exist" error.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a versioned update finds the row changed
	// since it was read.
	ErrConflict = errors.New("concurrent update")
)

// notFoundError carries the caller-facing message for a missing record.
type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string        { return e.msg }
func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFoundf builds an error that matches ErrNotFound and reads exactly as
// the formatted message.
func NotFoundf(format string, args ...any) error {
	return &notFoundError{msg: fmt.Sprintf(format, args...)}
}

// ConstraintError wraps a referential, uniqueness or check constraint
// failure reported by SQLite. Its message is the driver's, unchanged.
type ConstraintError struct {
	Err error
}

func (e *ConstraintError) Error() string { return e.Err.Error() }
func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraint reports whether err is, or wraps, a constraint failure.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// classify turns driver constraint failures into *ConstraintError and
// leaves every other error untouched.
func classify(err error) error {
	if err == nil || IsConstraint(err) {
		return err
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return &ConstraintError{Err: err}
	}
	if strings.Contains(err.Error(), "constraint failed") {
		return &ConstraintError{Err: err}
	}
	return err
}
