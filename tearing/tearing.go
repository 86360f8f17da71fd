// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package tearing tracks per-surface presentation hints: whether a client
// prefers tear-free (VSync) or low-latency (Async) presentation of its
// surface.
package tearing

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/signal"
)

// PresentationHint is a surface's presentation preference.
type PresentationHint uint8

const (
	// VSync presents on vertical blank. It is the default.
	VSync PresentationHint = iota

	// Async presents as soon as possible and may tear.
	Async
)

func (h PresentationHint) String() string {
	switch h {
	case VSync:
		return "vsync"
	case Async:
		return "async"
	default:
		return fmt.Sprintf("PresentationHint(%d)", uint8(h))
	}
}

var (
	// ErrUnknownHint is returned for a wire value outside the enumeration.
	ErrUnknownHint = errors.New("tearing: unknown presentation hint")

	// ErrUnsupportedVersion is returned by NewManager for a protocol
	// version it does not implement.
	ErrUnsupportedVersion = errors.New("tearing: unsupported protocol version")
)

// Wire values of wp_tearing_control_v1.presentation_hint.
const (
	wireVSync = 0
	wireAsync = 1
)

// HintFromWire converts a protocol enum value.
func HintFromWire(v uint32) (PresentationHint, error) {
	switch v {
	case wireVSync:
		return VSync, nil
	case wireAsync:
		return Async, nil
	default:
		return VSync, fmt.Errorf("%w: %d", ErrUnknownHint, v)
	}
}

// Wire returns the protocol enum value.
func (h PresentationHint) Wire() uint32 {
	if h == Async {
		return wireAsync
	}
	return wireVSync
}

// CurrentVersion is the highest protocol version the manager implements.
const CurrentVersion = 1

// Surface identifies a surface. It must be comparable; a pointer to the
// compositor's surface type is typical.
type Surface any

// Object is the tearing-control state of one surface.
type Object struct {
	surface Surface
	hint    PresentationHint

	// SetHint fires when the hint changes.
	SetHint signal.Signal[PresentationHint]

	// Destroy fires when the object goes away.
	Destroy signal.Signal[struct{}]
}

// Surface returns the surface the object controls.
func (o *Object) Surface() Surface { return o.surface }

// Hint returns the current hint.
func (o *Object) Hint() PresentationHint { return o.hint }

func (o *Object) destroy() {
	o.Destroy.Emit(struct{}{})
	o.Destroy.Close()
	o.SetHint.Close()
}

// Manager holds the tearing-control objects of a display.
type Manager struct {
	version uint32
	objects map[Surface]*Object

	// NewObject fires when a surface receives its first hint.
	NewObject signal.Signal[*Object]

	// Destroy fires when the manager is destroyed.
	Destroy signal.Signal[struct{}]
}

// NewManager creates a manager advertising version.
func NewManager(version uint32) (*Manager, error) {
	if version == 0 || version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return &Manager{version: version, objects: make(map[Surface]*Object)}, nil
}

// Version returns the advertised protocol version.
func (m *Manager) Version() uint32 { return m.version }

// SetHint records hint for surface, creating its object on first use.
func (m *Manager) SetHint(surface Surface, hint PresentationHint) (*Object, error) {
	if surface == nil {
		return nil, errors.New("tearing: nil surface")
	}
	if hint != VSync && hint != Async {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHint, hint)
	}

	o, ok := m.objects[surface]
	if !ok {
		o = &Object{surface: surface, hint: hint}
		m.objects[surface] = o
		compositor.Logger().Debug("tearing: new object", "hint", hint)
		m.NewObject.Emit(o)
		return o, nil
	}
	if o.hint != hint {
		o.hint = hint
		o.SetHint.Emit(hint)
	}
	return o, nil
}

// Forget drops the state of surface, e.g. when the client destroys its
// tearing-control object or the surface itself.
func (m *Manager) Forget(surface Surface) {
	o, ok := m.objects[surface]
	if !ok {
		return
	}
	delete(m.objects, surface)
	o.destroy()
}

// Objects returns the number of surfaces with a hint.
func (m *Manager) Objects() int { return len(m.objects) }

// SurfaceHintFromSurface returns the hint of surface. A nil surface, a
// surface that never set a hint, or a nil manager yield VSync. It never
// changes any state.
func (m *Manager) SurfaceHintFromSurface(surface Surface) PresentationHint {
	if m == nil || surface == nil {
		return VSync
	}
	if o, ok := m.objects[surface]; ok {
		return o.hint
	}
	return VSync
}

// Close destroys every object and the manager.
func (m *Manager) Close() {
	m.Destroy.Emit(struct{}{})
	for s, o := range m.objects {
		delete(m.objects, s)
		o.destroy()
	}
	m.Destroy.Close()
	m.NewObject.Close()
}
