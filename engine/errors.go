package engine

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record exists under the requested ID.
var ErrNotFound = errors.New("engine: record not found")

// DuplicateIDError is returned when an insert reuses a live record ID.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("engine: record %q already exists", e.ID)
}
