package surface

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate is wrapped by *DuplicateError.
	ErrDuplicate = errors.New("surface: id already live")

	// ErrInvalidSize is returned for non-positive resize dimensions.
	ErrInvalidSize = errors.New("surface: width and height must be positive")

	// ErrWindow wraps failures to resolve a host window handle.
	ErrWindow = errors.New("surface: cannot resolve window")

	// ErrClosed is returned by CreateSurface after Close.
	ErrClosed = errors.New("surface: manager closed")
)

// DuplicateError reports a CreateSurface call for a surface id that is
// already live or being created.
type DuplicateError struct {
	SurfaceID int64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("surface: id %d already live", e.SurfaceID)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }
