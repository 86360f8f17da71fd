package renderer

import "errors"

var (
	// ErrCreate is returned by Autocreate when no registered renderer can
	// be created for the backend.
	ErrCreate = errors.New("renderer: unable to create a renderer")

	// ErrDestroyed is returned by operations on a renderer whose backend
	// has been destroyed.
	ErrDestroyed = errors.New("renderer: renderer destroyed")

	// ErrInitDisplay is returned when display integration fails.
	ErrInitDisplay = errors.New("renderer: unable to initialize renderer for display")

	// ErrDisplayInitialized is returned by a second InitDisplay call.
	ErrDisplayInitialized = errors.New("renderer: display already initialized")
)

// NotFoundError indicates a named renderer is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "renderer: not found: " + e.Name
}

// UnavailableError indicates a renderer exists but is not available.
type UnavailableError struct {
	Name string
}

func (e *UnavailableError) Error() string {
	return "renderer: unavailable: " + e.Name
}
