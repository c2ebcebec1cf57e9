package library

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetNotFound is returned when no file in the library has the requested id.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrCategoryNotFound is returned when a category directory does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrInvalidCategory is returned for names that are not a single safe path segment.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrUnsupportedExtension is returned for files outside the container allow-list.
	ErrUnsupportedExtension = errors.New("unsupported file extension")
)

// SynthesisError reports which step of metadata synthesis failed.
type SynthesisError struct {
	Path  string
	Stage string // "probe", "thumbnail" or "write"
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize %s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
