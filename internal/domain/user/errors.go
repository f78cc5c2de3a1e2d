package user

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// FieldEmail is the column name of the unique email constraint.
const FieldEmail = "email"

// UniqueViolationError is returned by repositories when a write is rejected
// by a uniqueness constraint of the store.
type UniqueViolationError struct {
	Field string // Field is the constrained column, empty when the store did not say
	Err   error  // Err is the driver error
}

func (e *UniqueViolationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unique constraint violated: %v", e.Err)
	}
	return fmt.Sprintf("unique constraint violated on %s: %v", e.Field, e.Err)
}

func (e *UniqueViolationError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err is a unique violation on field.
// An empty field matches any unique violation.
func IsUniqueViolation(err error, field string) bool {
	var uv *UniqueViolationError
	if !errors.As(err, &uv) {
		return false
	}
	return field == "" || uv.Field == field
}
