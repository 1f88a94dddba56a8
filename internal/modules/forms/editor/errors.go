package editor

import (
	"errors"
	"fmt"
)

var (
	ErrLabelRequired  = errors.New("label is required")
	ErrKeyRequired    = errors.New("key is required")
	ErrMissingOptions = errors.New("provide at least one option")

	ErrInvalidTransition = errors.New("editor: invalid state transition")
	ErrIndexOutOfRange   = errors.New("editor: field index out of range")
	ErrNoPendingDelete   = errors.New("editor: no delete awaiting confirmation")

	ErrNameRequired       = errors.New("name and profession are required")
	ErrProfessionRequired = errors.New("choose a profession to load defaults")
	ErrNoBlueprint        = errors.New("no starter template is available for this profession yet")
	ErrSchemaInvalid      = errors.New("schema must be valid JSON")
)

// ReservedKeyError is returned when a field takes a key owned by booking
// capture.
type ReservedKeyError struct {
	Key string
}

func (e *ReservedKeyError) Error() string {
	return fmt.Sprintf("key %q is reserved", e.Key)
}

// Form input names used as ValidationErrors keys.
const (
	InputLabel   = "label"
	InputKey     = "key"
	InputOptions = "options"
)

// ValidationErrors maps a dialog input to the problem found with it.
type ValidationErrors map[string]error

func (v ValidationErrors) first() error {
	for _, name := range []string{InputLabel, InputKey, InputOptions} {
		if err, ok := v[name]; ok {
			return err
		}
	}
	return nil
}
