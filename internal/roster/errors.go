package roster

import (
	"errors"
	"fmt"
)

// Outcomes a caller is expected to turn into a user-visible message.
// Check them with errors.Is.
var (
	// ErrDuplicateEmail rejects an add whose email is already on the roster.
	ErrDuplicateEmail = errors.New("a student with this email already exists")

	// ErrNotFound is returned by lookups and edits of an unknown id.
	ErrNotFound = errors.New("student not found")

	// ErrEmptyExport is returned when a CSV export is asked for zero records.
	ErrEmptyExport = errors.New("no data to export")

	// ErrCorruptPersistedState means a stored value could not be decoded.
	ErrCorruptPersistedState = errors.New("corrupt persisted state")

	// ErrPersist means the key-value store refused a write. The in-memory
	// roster is left as it was before the operation.
	ErrPersist = errors.New("failed to persist roster")
)

// CorruptStateError reports which stored key failed to decode.
type CorruptStateError struct {
	Key string
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("%s: key %q: %v", ErrCorruptPersistedState, e.Key, e.Err)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

// Is matches ErrCorruptPersistedState.
func (e *CorruptStateError) Is(target error) bool {
	return target == ErrCorruptPersistedState
}
