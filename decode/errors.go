package decode

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingData is returned when a response carried no body at all.
	ErrMissingData = errors.New("decode: missing data")

	// ErrInvalidData is returned when the body is not parseable as JSON.
	ErrInvalidData = errors.New("decode: invalid data")

	// ErrInvalidShape is returned when the body is JSON but its top-level
	// value is not the expected object or array.
	ErrInvalidShape = errors.New("decode: invalid shape")
)

// FieldMissingError reports a required key absent from a JSON object.
type FieldMissingError struct {
	Key string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("decode: field %q missing", e.Key)
}

// FieldTypeMismatchError reports a key whose value could not be coerced
// into the schema's expected kind.
type FieldTypeMismatchError struct {
	Key      string
	Expected Kind
	Actual   string
}

func (e *FieldTypeMismatchError) Error() string {
	return fmt.Sprintf("decode: field %q: expected %s, got %s", e.Key, e.Expected, e.Actual)
}
