package fields

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaParse marks field text that could not be read as a field list.
	ErrSchemaParse = errors.New("invalid fields definition")
	// ErrNoFields is returned when a template is saved without fields.
	ErrNoFields = errors.New("add at least one field before saving")
	// ErrEmptyKey is returned when a field has no key at save time.
	ErrEmptyKey = errors.New("each field requires a key")
)

// SchemaParseError wraps the decoder failure behind ErrSchemaParse.
type SchemaParseError struct {
	Err error
}

func (e *SchemaParseError) Error() string {
	if e.Err == nil {
		return ErrSchemaParse.Error()
	}
	return fmt.Sprintf("%s: %v", ErrSchemaParse, e.Err)
}

func (e *SchemaParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSchemaParse}
	}
	return []error{ErrSchemaParse, e.Err}
}

// DuplicateKeyError reports a key used by more than one field.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate field key: %s", e.Key)
}
