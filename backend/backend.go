package backend

import (
	"fmt"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/session"
	"github.com/gogpu/compositor/signal"
)

// Strategy selects how New creates the native implementation.
type Strategy int

const (
	// StrategyAuto probes the environment described by AutoConfig.
	StrategyAuto Strategy = iota + 1

	// StrategyHeadless creates a headless backend. It never fails and never
	// opens a session.
	StrategyHeadless
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyHeadless:
		return "headless"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy parses "auto" or "headless".
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "auto", "":
		return StrategyAuto, nil
	case "headless":
		return StrategyHeadless, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Events are the signals a Backend publishes. Subscribe before Start:
// devices already present may be announced from inside Start.
type Events struct {
	// Destroy fires once, before any resource is released.
	Destroy signal.Signal[struct{}]

	// NewInput fires at most once per input device.
	NewInput signal.Signal[*InputDevice]

	// NewOutput fires at most once per output.
	NewOutput signal.Signal[*Output]
}

// Backend owns a native backend implementation and, for StrategyAuto, the
// session it runs in.
//
// Lifecycle: Created → Started → Destroyed, or Created → Destroyed. Once
// destroyed every operation fails fast except Destroy, which is idempotent.
//
// A Backend is driven from the event loop's goroutine and is not safe for
// concurrent use.
type Backend struct {
	impl     Impl
	strategy Strategy
	session  *session.Session
	loop     EventLoop
	started  bool

	// nativeFreed is set once the implementation has been released, either
	// by loop teardown or because it destroyed itself.
	nativeFreed bool
	tornDown    bool

	inputs  map[*InputDescriptor]*InputDevice
	outputs map[*OutputDescriptor]*Output

	implListeners []interface{ Remove() }
	loopListener  *signal.Listener[struct{}]

	Events Events
}

// New creates a backend against loop.
//
// StrategyAuto resolves backend kinds from cfg (see AutoConfig) and always
// yields a multi-backend plus a session. StrategyHeadless ignores cfg.
// Construction failures wrap ErrCreate; an unknown strategy or backend kind
// returns ErrUnknownStrategy or ErrUnknownBackend.
func New(loop EventLoop, strategy Strategy, cfg AutoConfig) (*Backend, error) {
	if loop == nil || !loop.Alive() {
		return nil, fmt.Errorf("%w: event loop is not alive", ErrCreate)
	}

	var (
		impl Impl
		sess *session.Session
		err  error
	)
	switch strategy {
	case StrategyAuto:
		impl, sess, err = autocreate(loop, cfg)
		if err != nil {
			return nil, err
		}
	case StrategyHeadless:
		impl = NewHeadless()
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, strategy)
	}

	return wrap(loop, strategy, impl, sess)
}

func wrap(loop EventLoop, strategy Strategy, impl Impl, sess *session.Session) (*Backend, error) {
	if impl == nil {
		if sess != nil {
			sess.Close()
		}
		return nil, ErrCreate
	}

	b := &Backend{
		impl:     impl,
		strategy: strategy,
		session:  sess,
		loop:     loop,
		inputs:   make(map[*InputDescriptor]*InputDevice),
		outputs:  make(map[*OutputDescriptor]*Output),
	}

	ev := impl.Events()
	b.implListeners = []interface{ Remove() }{
		signal.RelayFilter(&ev.NewInput, &b.Events.NewInput, b.wrapInput),
		signal.RelayFilter(&ev.NewOutput, &b.Events.NewOutput, b.wrapOutput),
		ev.Destroy.Subscribe(func(struct{}) { b.handleNativeDestroy() }),
	}
	b.loopListener = loop.OnDestroy().Subscribe(func(struct{}) { b.handleLoopDestroy() })

	compositor.Logger().Debug("backend: created", "strategy", strategy)
	return b, nil
}

// Start activates the backend. It reports false on failure, after which the
// caller must Destroy to release partially acquired resources.
func (b *Backend) Start() bool {
	if !b.live() {
		compositor.Logger().Warn("backend: start on destroyed backend")
		return false
	}
	if b.started {
		return true
	}
	if !b.impl.Start() {
		compositor.Logger().Warn("backend: start failed", "strategy", b.strategy)
		return false
	}
	b.started = true
	compositor.Logger().Info("backend: started", "strategy", b.strategy)
	return true
}

// Destroy releases the backend. It fires Events.Destroy, destroys every
// announced device, then releases the implementation and the session.
//
// If the event loop is already gone, the loop's teardown has released the
// implementation; Destroy then only drops its reference. Calling Destroy
// again is a logged no-op. Destroy never fails.
func (b *Backend) Destroy() {
	if b.impl == nil {
		compositor.Logger().Warn("backend: already destroyed, doing nothing")
		return
	}

	switch {
	case !b.loop.Alive():
		compositor.Logger().Warn("backend: event loop already cleaned up, dropping backend without destroying it")
		b.teardown(false)
	case b.nativeFreed:
		compositor.Logger().Debug("backend: already released natively, dropping reference")
		b.teardown(false)
	default:
		b.teardown(true)
	}
	b.impl = nil
}

// Destroyed reports whether the backend has been torn down, by Destroy, by
// its event loop going away or by the implementation destroying itself.
func (b *Backend) Destroyed() bool { return !b.live() }

// live reports whether the backend has not been torn down yet.
func (b *Backend) live() bool { return b.impl != nil && !b.tornDown }

// Started reports whether Start has succeeded.
func (b *Backend) Started() bool { return b.started && b.live() }

// Strategy returns the creation strategy.
func (b *Backend) Strategy() Strategy { return b.strategy }

// Impl returns the native implementation, or nil once destroyed.
func (b *Backend) Impl() Impl {
	if !b.live() {
		return nil
	}
	return b.impl
}

// IsHeadless reports whether the backend was created with StrategyHeadless.
func (b *Backend) IsHeadless() bool {
	return b.live() && b.strategy == StrategyHeadless
}

// IsMulti reports whether the implementation is a Multi aggregating other
// backends.
func (b *Backend) IsMulti() bool {
	_, ok := b.Impl().(*Multi)
	return ok
}

// Session returns the owned session. HEADLESS backends have none.
func (b *Backend) Session() (*session.Session, error) {
	if !b.live() {
		return nil, ErrDestroyed
	}
	if b.session == nil {
		return nil, ErrNoSession
	}
	return b.session, nil
}

// Inputs returns the live input devices.
func (b *Backend) Inputs() []*InputDevice {
	out := make([]*InputDevice, 0, len(b.inputs))
	for _, d := range b.inputs {
		out = append(out, d)
	}
	return out
}

// Outputs returns the live outputs.
func (b *Backend) Outputs() []*Output {
	out := make([]*Output, 0, len(b.outputs))
	for _, o := range b.outputs {
		out = append(out, o)
	}
	return out
}

func (b *Backend) wrapInput(desc *InputDescriptor) (*InputDevice, bool) {
	if desc == nil || b.tornDown {
		return nil, false
	}
	if _, seen := b.inputs[desc]; seen {
		compositor.Logger().Debug("backend: duplicate input announcement ignored", "name", desc.Name)
		return nil, false
	}
	d := &InputDevice{desc: desc, backend: b}
	d.removed = desc.Removed.Subscribe(func(struct{}) {
		delete(b.inputs, desc)
		d.destroy()
	})
	b.inputs[desc] = d
	compositor.Logger().Debug("backend: new input", "name", desc.Name, "kind", desc.Kind)
	return d, true
}

func (b *Backend) wrapOutput(desc *OutputDescriptor) (*Output, bool) {
	if desc == nil || b.tornDown {
		return nil, false
	}
	if _, seen := b.outputs[desc]; seen {
		compositor.Logger().Debug("backend: duplicate output announcement ignored", "name", desc.Name)
		return nil, false
	}
	o := &Output{desc: desc, backend: b}
	o.removed = desc.Removed.Subscribe(func(struct{}) {
		delete(b.outputs, desc)
		o.destroy()
	})
	b.outputs[desc] = o
	compositor.Logger().Debug("backend: new output", "name", desc.Name)
	return o, true
}

// handleLoopDestroy runs while the loop is being torn down: the loop takes
// every backend created against it down with it.
func (b *Backend) handleLoopDestroy() {
	if b.impl == nil || b.nativeFreed {
		return
	}
	compositor.Logger().Debug("backend: event loop destroyed, releasing backend")
	b.teardown(true)
	b.nativeFreed = true
}

// handleNativeDestroy runs when the implementation destroys itself, e.g. a
// nested backend losing its parent display.
func (b *Backend) handleNativeDestroy() {
	if b.tornDown {
		return
	}
	b.nativeFreed = true
	b.teardown(false)
	if b.session != nil {
		b.session.Close()
	}
}

// teardown fires Destroy, destroys devices and closes the signals. With
// release set it then destroys the implementation and closes the session.
func (b *Backend) teardown(release bool) {
	if b.tornDown {
		return
	}
	b.tornDown = true

	b.Events.Destroy.Emit(struct{}{})

	for desc, d := range b.inputs {
		delete(b.inputs, desc)
		d.destroy()
	}
	for desc, o := range b.outputs {
		delete(b.outputs, desc)
		o.destroy()
	}

	b.Events.Destroy.Close()
	b.Events.NewInput.Close()
	b.Events.NewOutput.Close()

	for _, l := range b.implListeners {
		l.Remove()
	}
	b.loopListener.Remove()

	if release {
		b.impl.Destroy()
		if b.session != nil {
			b.session.Close()
		}
		compositor.Logger().Info("backend: destroyed", "strategy", b.strategy)
	}
}

// Use starts b, runs fn and destroys b on every exit path. If Start fails,
// b is destroyed exactly once and Use returns ErrStart without calling fn.
//
//	err := backend.Use(b, func(b *backend.Backend) error {
//	    return loop.Run(ctx)
//	})
func Use(b *Backend, fn func(*Backend) error) error {
	if !b.Start() {
		b.Destroy()
		return ErrStart
	}
	defer b.Destroy()
	return fn(b)
}
