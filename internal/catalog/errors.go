package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCatalogLoad     = errors.New("catalog load failed")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrActionNotFound  = errors.New("action not found")
	ErrDeviceExists    = errors.New("device already exists")
	ErrInvalidIconName = errors.New("invalid icon name")
)

// LoadError is returned when a catalog document cannot become the active catalog.
// It unwraps to ErrCatalogLoad and, when present, to the underlying cause.
type LoadError struct {
	Path     string
	Problems []string
	Err      error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "catalog %s", e.Path)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Problems) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Problems, "; "))
	}
	return b.String()
}

func (e *LoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCatalogLoad, e.Err}
	}
	return []error{ErrCatalogLoad}
}
