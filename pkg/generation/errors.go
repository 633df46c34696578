package generation

import (
	"errors"
	"fmt"
)

// ErrPersistence is matched by every *PersistenceError. It is logged, never returned to clients.
var ErrPersistence = errors.New("result persistence failed")

type PersistenceError struct {
	SourceURL string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.SourceURL, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
