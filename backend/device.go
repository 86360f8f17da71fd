// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"slices"

	"github.com/gogpu/compositor/drmformat"
	"github.com/gogpu/compositor/signal"
)

// InputDevice is an input device announced by a Backend. It is valid until
// its Destroy signal fires, at the latest when the Backend is destroyed.
type InputDevice struct {
	desc    *InputDescriptor
	backend *Backend
	removed *signal.Listener[struct{}]

	// Destroy fires once when the device goes away.
	Destroy signal.Signal[struct{}]
}

func (d *InputDevice) Name() string      { return d.desc.Name }
func (d *InputDevice) Kind() InputKind   { return d.desc.Kind }
func (d *InputDevice) Vendor() uint32    { return d.desc.Vendor }
func (d *InputDevice) Product() uint32   { return d.desc.Product }
func (d *InputDevice) Backend() *Backend { return d.backend }
func (d *InputDevice) String() string    { return d.desc.Kind.String() + " " + d.desc.Name }

func (d *InputDevice) destroy() {
	d.removed.Remove()
	d.Destroy.Emit(struct{}{})
	d.Destroy.Close()
}

// Output is a display output announced by a Backend. It is valid until its
// Destroy signal fires, at the latest when the Backend is destroyed.
type Output struct {
	desc    *OutputDescriptor
	backend *Backend
	removed *signal.Listener[struct{}]

	// Destroy fires once when the output goes away.
	Destroy signal.Signal[struct{}]
}

func (o *Output) Name() string      { return o.desc.Name }
func (o *Output) Make() string      { return o.desc.Make }
func (o *Output) Model() string     { return o.desc.Model }
func (o *Output) Backend() *Backend { return o.backend }

// Modes returns the output's modes.
func (o *Output) Modes() []Mode { return slices.Clone(o.desc.Modes) }

// PreferredMode returns the preferred mode, falling back to the first one.
func (o *Output) PreferredMode() (Mode, bool) {
	for _, m := range o.desc.Modes {
		if m.Preferred {
			return m, true
		}
	}
	if len(o.desc.Modes) > 0 {
		return o.desc.Modes[0], true
	}
	return Mode{}, false
}

// Formats returns the scan-out formats. The set is owned by the backend.
func (o *Output) Formats() *drmformat.Set { return o.desc.Formats }

func (o *Output) String() string { return o.desc.Name }

func (o *Output) destroy() {
	o.removed.Remove()
	o.Destroy.Emit(struct{}{})
	o.Destroy.Close()
}
