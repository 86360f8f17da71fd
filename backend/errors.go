package backend

import "errors"

// Common backend errors.
var (
	// ErrCreate is returned when a backend could not be constructed.
	ErrCreate = errors.New("backend: failed to create backend")

	// ErrUnknownStrategy is returned for a Strategy value New does not know.
	ErrUnknownStrategy = errors.New("backend: unknown strategy")

	// ErrUnknownBackend is returned when AutoConfig.Backends names a kind
	// that is not registered.
	ErrUnknownBackend = errors.New("backend: unknown backend kind")

	// ErrDestroyed is returned by operations on a destroyed backend.
	ErrDestroyed = errors.New("backend: destroyed")

	// ErrNoSession is returned by Session when the backend has none.
	ErrNoSession = errors.New("backend: backend does not have a session")

	// ErrStart is returned by Use when Start fails.
	ErrStart = errors.New("backend: unable to start backend")
)
