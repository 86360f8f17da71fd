// Package backend discovers, starts and tears down the hardware or display
// abstraction a compositor runs on.
//
// # Creating a backend
//
// A Backend is created against an event loop with one of two strategies:
//
//	loop := eventloop.New()
//	b, err := backend.New(loop, backend.StrategyHeadless, backend.AutoConfig{})
//
// StrategyAuto probes the environment described by an AutoConfig (see its
// documentation for the selection order) and always produces a Multi that
// aggregates the chosen kinds. Kinds other than headless live in their own
// packages and register themselves on import:
//
//	import (
//	    _ "github.com/gogpu/compositor/backend/drm"
//	    _ "github.com/gogpu/compositor/backend/libinput"
//	    _ "github.com/gogpu/compositor/backend/nested"
//	)
//
// # Signals
//
// Subscribe to Events before calling Start; devices that already exist may
// be announced from inside Start or on a later loop iteration:
//
//	b.Events.NewOutput.Subscribe(func(o *backend.Output) {
//	    log.Printf("new output %s", o.Name())
//	})
//
// # Teardown
//
// Destroy fires Events.Destroy before releasing anything. Destroying the
// event loop destroys every backend created against it; a later Destroy
// call on such a backend only drops the reference. Use wraps Start and
// Destroy so that no exit path leaks:
//
//	err := backend.Use(b, func(b *backend.Backend) error {
//	    return loop.Run(ctx)
//	})
package backend
