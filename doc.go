// Package compositor is the backend subsystem of a Wayland compositor.
//
// # Overview
//
// A compositor needs somewhere to draw and something to read input from.
// The backend package abstracts both: it discovers displays (outputs) and
// input devices on a DRM/KMS seat, inside a parent Wayland or X11 session,
// or on nothing at all (headless), and announces them through signals.
// The renderer package picks a rendering implementation for a backend and
// advertises its buffer formats to clients.
//
// # Quick Start
//
//	loop := eventloop.New()
//	defer loop.Destroy()
//
//	b, err := backend.New(loop, backend.StrategyAuto, cfg.Backend)
//	if err != nil {
//	    return err
//	}
//	b.Events.NewOutput.Subscribe(func(o *backend.Output) { ... })
//
//	err = backend.Use(b, func(b *backend.Backend) error {
//	    r, err := renderer.Autocreate(b)
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	    return loop.Run(ctx)
//	})
//
// # Architecture
//
// The module is organized into:
//   - signal: typed synchronous publish/subscribe used for every event
//   - eventloop: fd and idle dispatch, owner of backend lifetimes
//   - session: seat and VT access, privileged device opening
//   - backend: the Backend wrapper, AUTO selection, headless and multi
//     implementations; backend/drm, backend/libinput and backend/nested
//     register the hardware and nested kinds from init
//   - renderer: renderer selection by priority; renderer/gpu adds a
//     wgpu-based implementation
//   - drmformat: DRM fourcc codes and format/modifier sets
//   - tearing: per-surface presentation hints
//   - config: file and environment configuration
//
// # Logging
//
// Nothing is logged by default. Call [SetLogger] to route the log output of
// every sub-package to a [log/slog] handler.
package compositor
