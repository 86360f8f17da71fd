package backend

import (
	"fmt"

	"github.com/gogpu/compositor"
)

// Headless is a backend without real hardware. Outputs and input devices are
// registered synthetically, which makes it the backend of choice for tests
// and offscreen compositors.
type Headless struct {
	events    NativeEvents
	started   bool
	destroyed bool

	inputs     []*InputDescriptor
	outputs    []*OutputDescriptor
	nextOutput int
	nextInput  int
}

// NewHeadless creates a headless implementation with no outputs.
func NewHeadless() *Headless {
	return &Headless{}
}

// Events returns the raw signals.
func (h *Headless) Events() *NativeEvents { return &h.events }

// Start announces every device registered so far. Starting twice is a no-op.
func (h *Headless) Start() bool {
	if h.destroyed {
		return false
	}
	if h.started {
		return true
	}
	h.started = true
	compositor.Logger().Debug("headless: starting", "outputs", len(h.outputs), "inputs", len(h.inputs))

	for _, d := range h.inputs {
		h.events.NewInput.Emit(d)
	}
	for _, d := range h.outputs {
		h.events.NewOutput.Emit(d)
	}
	return true
}

// AddOutput registers a synthetic output of the given size. Once started,
// the output is announced immediately; before that it is announced by Start.
// Returns nil if the backend is destroyed.
func (h *Headless) AddOutput(width, height int) *OutputDescriptor {
	if h.destroyed {
		return nil
	}
	h.nextOutput++
	d := &OutputDescriptor{
		Name:    fmt.Sprintf("HEADLESS-%d", h.nextOutput),
		Make:    "headless",
		Model:   "headless",
		Modes:   []Mode{{Width: width, Height: height, Refresh: DefaultRefresh, Preferred: true}},
		Formats: DefaultOutputFormats(),
	}
	h.outputs = append(h.outputs, d)
	if h.started {
		h.events.NewOutput.Emit(d)
	}
	return d
}

// AddInputDevice registers a synthetic input device of the given kind.
func (h *Headless) AddInputDevice(kind InputKind) *InputDescriptor {
	if h.destroyed {
		return nil
	}
	h.nextInput++
	d := &InputDescriptor{
		Name: fmt.Sprintf("headless-%s-%d", kind, h.nextInput),
		Kind: kind,
	}
	h.inputs = append(h.inputs, d)
	if h.started {
		h.events.NewInput.Emit(d)
	}
	return d
}

// Outputs returns the number of registered outputs.
func (h *Headless) Outputs() int { return len(h.outputs) }

// Destroy fires the destroy signal and drops every device.
func (h *Headless) Destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	h.events.Destroy.Emit(struct{}{})

	for _, d := range h.inputs {
		d.Removed.Close()
	}
	for _, d := range h.outputs {
		d.Removed.Close()
	}
	h.inputs, h.outputs = nil, nil
	h.events.Close()
}
