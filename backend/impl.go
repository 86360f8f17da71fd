// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"github.com/gogpu/compositor/drmformat"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/signal"
)

// EventLoop is the reactor a backend is created against. The backend only
// observes it: it never destroys the loop and checks Alive before releasing
// native resources, because destroying the loop already tears down every
// backend created against it.
//
// *eventloop.Loop implements EventLoop.
type EventLoop interface {
	// Alive reports whether the loop has not been torn down.
	Alive() bool

	// AddIdle schedules fn for the end of the next dispatch.
	AddIdle(fn func())

	// AddFD watches fd for readability.
	AddFD(fd int, handler eventloop.FDHandler) (*eventloop.Source, error)

	// OnDestroy fires while the loop is being torn down.
	OnDestroy() *signal.Signal[struct{}]
}

var _ EventLoop = (*eventloop.Loop)(nil)

// Impl is a native backend implementation: DRM, libinput, headless, nested
// or an aggregating Multi. The Backend wrapper owns exactly one Impl.
type Impl interface {
	// Start activates the backend. It may announce already-present devices
	// synchronously or on a later loop iteration. Start is not
	// transactional: after a failure the caller must Destroy.
	Start() bool

	// Destroy releases every native resource. It fires Events().Destroy
	// before releasing anything.
	Destroy()

	// Events returns the raw signals of this implementation.
	Events() *NativeEvents
}

// NativeEvents are the raw discovery signals an Impl publishes. The Backend
// wrapper converts descriptors into InputDevice and Output entities.
type NativeEvents struct {
	Destroy   signal.Signal[struct{}]
	NewInput  signal.Signal[*InputDescriptor]
	NewOutput signal.Signal[*OutputDescriptor]
}

// Close closes all three signals.
func (e *NativeEvents) Close() {
	e.Destroy.Close()
	e.NewInput.Close()
	e.NewOutput.Close()
}

// InputKind classifies an input device.
type InputKind int

const (
	InputKeyboard InputKind = iota
	InputPointer
	InputTouch
	InputTabletTool
	InputTabletPad
	InputSwitch
)

func (k InputKind) String() string {
	switch k {
	case InputKeyboard:
		return "keyboard"
	case InputPointer:
		return "pointer"
	case InputTouch:
		return "touch"
	case InputTabletTool:
		return "tablet-tool"
	case InputTabletPad:
		return "tablet-pad"
	case InputSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// InputDescriptor is the raw payload an Impl emits for a new input device.
// Identity is the pointer: an Impl emits each descriptor at most once.
type InputDescriptor struct {
	Name    string
	Kind    InputKind
	Vendor  uint32
	Product uint32

	// Removed fires when the device disappears before the backend does.
	Removed signal.Signal[struct{}]
}

// Mode is an output video mode.
type Mode struct {
	Width, Height int
	// Refresh is in mHz; 0 means unknown.
	Refresh   int
	Preferred bool
}

// OutputDescriptor is the raw payload an Impl emits for a new output.
type OutputDescriptor struct {
	Name  string
	Make  string
	Model string
	Modes []Mode

	// Formats are the primary-plane formats the output can scan out.
	Formats *drmformat.Set

	// Removed fires when the output disappears before the backend does.
	Removed signal.Signal[struct{}]
}

// DefaultRefresh is the refresh rate of synthetic outputs, in mHz.
const DefaultRefresh = 60000

// DefaultOutputFormats is what outputs without plane information advertise.
func DefaultOutputFormats() *drmformat.Set {
	return drmformat.NewSet(
		drmformat.NewFormat(drmformat.XRGB8888, drmformat.ModLinear, drmformat.ModInvalid),
		drmformat.NewFormat(drmformat.ARGB8888, drmformat.ModLinear, drmformat.ModInvalid),
	)
}
