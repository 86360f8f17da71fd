// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package renderer

import (
	"sort"
	"sync"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/drmformat"
)

// Impl is a renderer implementation.
type Impl interface {
	// Name returns the registry name of the implementation.
	Name() string

	// TextureFormats returns the formats the renderer can sample from.
	TextureFormats() *drmformat.Set

	// DMABufFormats returns the formats importable as dma-bufs, or nil if
	// the renderer cannot import dma-bufs.
	DMABufFormats() *drmformat.Set

	// Destroy releases the implementation's resources.
	Destroy()
}

// Factory creates an implementation for b.
type Factory func(b *backend.Backend, opts Options) (Impl, error)

// Entry is a registered renderer implementation.
type Entry struct {
	// Name is the unique identifier, as accepted by WithName (WLR_RENDERER).
	Name string

	// Priority determines selection order (higher = preferred).
	//   - 100: GPU renderers
	//   - 10: software renderers
	Priority int

	Factory Factory

	// Available reports whether the implementation can work on this
	// system at all.
	Available func() bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Entry)
)

// Register adds an implementation. If available is nil the implementation
// is assumed always available. Registering an existing name replaces it.
//
//	func init() {
//	    renderer.Register("gpu", 100, create, probe)
//	}
func Register(name string, priority int, factory Factory, available func() bool) {
	if available == nil {
		available = func() bool { return true }
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = &Entry{Name: name, Priority: priority, Factory: factory, Available: available}
}

// Unregister removes an implementation.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// List returns every registered name, highest priority first.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedNames(false)
}

// Available returns the names of available implementations, highest
// priority first.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedNames(true)
}

// Get returns a copy of the entry registered under name.
func Get(name string) (*Entry, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := registry[name]
	if !ok {
		return nil, false
	}
	entryCopy := *e
	return &entryCopy, true
}

// sortedNames must be called with the lock held. Equal priorities sort by
// name so selection is deterministic.
func sortedNames(onlyAvailable bool) []string {
	entries := make([]*Entry, 0, len(registry))
	for _, e := range registry {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func createByName(name string, b *backend.Backend, opts Options) (Impl, error) {
	registryMu.RLock()
	e, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if !e.Available() {
		return nil, &UnavailableError{Name: name}
	}
	return e.Factory(b, opts)
}
