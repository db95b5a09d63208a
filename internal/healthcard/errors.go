package healthcard

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("health card not found")

// ValidationError reports missing or unacceptable input. Fields names the
// offending request fields.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PhotoTooLarge is the validation error for a photo over the upload cap,
// whether the store or the server body limit caught it.
func PhotoTooLarge() *ValidationError {
	return &ValidationError{Message: "File too large. Maximum size is 5 MB", Fields: []string{"photo"}}
}

// DuplicateKeyError reports a unique-constraint collision on Field, which is
// either "email" or "nationalId".
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("Duplicate %s. A record with this %s already exists.", e.Field, e.Field)
}
