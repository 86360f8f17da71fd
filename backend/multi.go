package backend

import (
	"slices"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/signal"
)

// Multi aggregates any number of child implementations and republishes
// their discovery signals as its own. Events from one child keep their
// order; no order is guaranteed between children.
type Multi struct {
	events    NativeEvents
	children  []*multiChild
	started   bool
	destroyed bool
}

type multiChild struct {
	impl      Impl
	newInput  *signal.Listener[*InputDescriptor]
	newOutput *signal.Listener[*OutputDescriptor]
	destroy   *signal.Listener[struct{}]
}

func (c *multiChild) detach() {
	c.newInput.Remove()
	c.newOutput.Remove()
	c.destroy.Remove()
}

// NewMulti creates an empty multi-backend.
func NewMulti() *Multi {
	return &Multi{}
}

// Events returns the aggregated signals.
func (m *Multi) Events() *NativeEvents { return &m.events }

// Add attaches child. If the multi-backend is already started the child is
// started too; when that start fails the child is detached again and stays
// owned by the caller. Add reports false in that case and when child is
// already attached. A child that destroys itself is detached automatically.
func (m *Multi) Add(child Impl) bool {
	if m.destroyed || child == nil || m.index(child) >= 0 {
		return false
	}

	ev := child.Events()
	c := &multiChild{impl: child}
	c.newInput = signal.Relay(&ev.NewInput, &m.events.NewInput, identity[*InputDescriptor])
	c.newOutput = signal.Relay(&ev.NewOutput, &m.events.NewOutput, identity[*OutputDescriptor])
	c.destroy = ev.Destroy.Subscribe(func(struct{}) { m.handleChildDestroy(child) })
	m.children = append(m.children, c)

	if m.started && !child.Start() {
		compositor.Logger().Warn("multi: failed to start added backend")
		m.Remove(child)
		return false
	}
	return true
}

// handleChildDestroy detaches a child that destroyed itself. Losing the
// last child this way destroys the multi-backend too.
func (m *Multi) handleChildDestroy(child Impl) {
	m.Remove(child)
	if m.Empty() && !m.destroyed {
		compositor.Logger().Info("multi: last child backend destroyed")
		m.Destroy()
	}
}

// Remove detaches child without destroying it.
func (m *Multi) Remove(child Impl) {
	i := m.index(child)
	if i < 0 {
		return
	}
	m.children[i].detach()
	m.children = slices.Delete(m.children, i, i+1)
}

// Children returns the attached implementations in insertion order.
func (m *Multi) Children() []Impl {
	out := make([]Impl, len(m.children))
	for i, c := range m.children {
		out[i] = c.impl
	}
	return out
}

// Empty reports whether no child is attached.
func (m *Multi) Empty() bool { return len(m.children) == 0 }

// Start starts every child in order and fails if any of them fails. Children
// started before a failure stay started.
func (m *Multi) Start() bool {
	if m.destroyed {
		return false
	}
	m.started = true
	for _, c := range slices.Clone(m.children) {
		if !c.impl.Start() {
			compositor.Logger().Warn("multi: child backend failed to start")
			return false
		}
	}
	return true
}

// Destroy fires the destroy signal, then destroys the children in reverse
// order of insertion.
func (m *Multi) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.events.Destroy.Emit(struct{}{})

	children := slices.Clone(m.children)
	for i := len(children) - 1; i >= 0; i-- {
		children[i].detach()
		children[i].impl.Destroy()
	}
	m.children = nil
	m.events.Close()
}

func (m *Multi) index(child Impl) int {
	return slices.IndexFunc(m.children, func(c *multiChild) bool { return c.impl == child })
}

func identity[T any](v T) T { return v }
