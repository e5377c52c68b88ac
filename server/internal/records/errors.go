package records

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned by queries given an argument outside their domain.
var ErrInvalidArgument = errors.New("invalid argument")

// SourceReadError reports that the source file could not be opened or read.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("records: read %q: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }
