package backend

import (
	"slices"
	"sync"

	"github.com/gogpu/compositor/session"
)

// Factory creates a native implementation for one backend kind. sess is nil
// unless the kind's Entry sets NeedsSession.
type Factory func(loop EventLoop, sess *session.Session, cfg AutoConfig) (Impl, error)

// Entry describes a registered backend kind.
type Entry struct {
	// Factory creates the implementation.
	Factory Factory

	// NeedsSession makes AUTO open a session before calling Factory.
	NeedsSession bool
}

// Backend kind names, as accepted in AutoConfig.Backends (WLR_BACKENDS).
const (
	KindDRM      = "drm"
	KindLibinput = "libinput"
	KindWayland  = "wayland"
	KindX11      = "x11"
	KindHeadless = "headless"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Entry)
)

func init() {
	Register(KindHeadless, Entry{Factory: func(EventLoop, *session.Session, AutoConfig) (Impl, error) {
		return NewHeadless(), nil
	}})
}

// Register registers a backend kind. Backend packages call it from init:
//
//	func init() {
//	    backend.Register(backend.KindDRM, backend.Entry{Factory: create, NeedsSession: true})
//	}
//
// Registering an existing kind replaces it.
func Register(kind string, e Entry) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = e
}

// Unregister removes a kind. This is useful for testing.
func Unregister(kind string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, kind)
}

// IsRegistered checks if a kind is registered.
func IsRegistered(kind string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookup(kind string) (Entry, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[kind]
	return e, ok
}
