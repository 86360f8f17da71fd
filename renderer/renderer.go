// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/drmformat"
	"github.com/gogpu/compositor/signal"
)

// Display is the display-protocol side of buffer sharing. CreateShm
// advertises the shared-memory formats clients may use.
type Display interface {
	CreateShm(formats []drmformat.Code) error
}

// DMABufDisplay is a Display that can also advertise dma-buf import.
type DMABufDisplay interface {
	Display
	CreateLinuxDMABuf(formats *drmformat.Set) error
}

// Renderer is a rendering context bound to a backend.
//
// The renderer does not own the backend and is outlived by it: it tears
// itself down when the backend's Destroy signal fires and must not be used
// afterwards.
type Renderer struct {
	impl     Impl
	backend  *backend.Backend
	listener *signal.Listener[struct{}]

	displayInitialized bool

	// Destroy fires once, when the backend takes the renderer down.
	Destroy signal.Signal[struct{}]
}

// Autocreate creates a renderer for b. Without WithName, the available
// implementations are tried from the highest priority down and the first
// one that succeeds is used.
func Autocreate(b *backend.Backend, opts ...Option) (*Renderer, error) {
	if b == nil || b.Destroyed() {
		return nil, fmt.Errorf("%w: backend is destroyed", ErrCreate)
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	impl, err := create(b, o)
	if err != nil {
		return nil, err
	}

	r := &Renderer{impl: impl, backend: b}
	r.listener = b.Events.Destroy.Subscribe(func(struct{}) { r.teardown() })
	compositor.Logger().Info("renderer: created", "name", impl.Name())
	return r, nil
}

func create(b *backend.Backend, o Options) (Impl, error) {
	if o.Name != "" {
		impl, err := createByName(o.Name, b, o)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCreate, err)
		}
		if impl == nil {
			return nil, ErrCreate
		}
		return impl, nil
	}

	var errs []error
	for _, name := range Available() {
		impl, err := createByName(name, b, o)
		if err == nil && impl != nil {
			return impl, nil
		}
		if err != nil {
			compositor.Logger().Debug("renderer: implementation unavailable", "name", name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) == 0 {
		return nil, ErrCreate
	}
	return nil, fmt.Errorf("%w: %w", ErrCreate, errors.Join(errs...))
}

// InitDisplay advertises the renderer's formats on d: shared-memory formats
// always, dma-buf formats when d implements DMABufDisplay and the renderer
// can import them. Call it exactly once; a second call returns
// ErrDisplayInitialized.
func (r *Renderer) InitDisplay(d Display) error {
	switch {
	case r.impl == nil:
		return ErrDestroyed
	case r.displayInitialized:
		return ErrDisplayInitialized
	case d == nil:
		return fmt.Errorf("%w: nil display", ErrInitDisplay)
	}

	if err := d.CreateShm(shmFormats(r.impl.TextureFormats())); err != nil {
		return fmt.Errorf("%w: shm: %w", ErrInitDisplay, err)
	}

	if dd, ok := d.(DMABufDisplay); ok {
		if formats := r.impl.DMABufFormats(); formats.Len() > 0 {
			if err := dd.CreateLinuxDMABuf(formats); err != nil {
				return fmt.Errorf("%w: linux-dmabuf: %w", ErrInitDisplay, err)
			}
		}
	}

	r.displayInitialized = true
	compositor.Logger().Debug("renderer: display initialized", "name", r.impl.Name())
	return nil
}

// shmFormats lists the linear formats of set. ARGB8888 and XRGB8888 are
// always included since every shm client may assume them.
func shmFormats(set *drmformat.Set) []drmformat.Code {
	codes := []drmformat.Code{drmformat.ARGB8888, drmformat.XRGB8888}
	for _, c := range set.Codes() {
		if c == drmformat.ARGB8888 || c == drmformat.XRGB8888 {
			continue
		}
		if f, ok := set.Get(c); ok && f.HasModifier(drmformat.ModLinear) {
			codes = append(codes, c)
		}
	}
	return codes
}

// DisplayInitialized reports whether InitDisplay has succeeded.
func (r *Renderer) DisplayInitialized() bool { return r.displayInitialized }

// Name returns the implementation name, or "" once destroyed.
func (r *Renderer) Name() string {
	if r.impl == nil {
		return ""
	}
	return r.impl.Name()
}

// Impl returns the implementation, or nil once destroyed.
func (r *Renderer) Impl() Impl { return r.impl }

// Backend returns the backend the renderer was created for.
func (r *Renderer) Backend() *backend.Backend { return r.backend }

// TextureFormats returns the formats the renderer can sample from. The set
// is owned by the renderer; it is nil once destroyed.
func (r *Renderer) TextureFormats() *drmformat.Set {
	if r.impl == nil {
		return nil
	}
	return r.impl.TextureFormats()
}

// Destroyed reports whether the backend has taken the renderer down.
func (r *Renderer) Destroyed() bool { return r.impl == nil }

func (r *Renderer) teardown() {
	if r.impl == nil {
		return
	}
	r.listener.Remove()
	r.Destroy.Emit(struct{}{})
	r.Destroy.Close()
	r.impl.Destroy()
	compositor.Logger().Debug("renderer: destroyed", "name", r.impl.Name())
	r.impl = nil
}
