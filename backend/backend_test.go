package backend

import (
	"errors"
	"testing"

	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/session"
)

// fakeImpl counts lifecycle calls.
type fakeImpl struct {
	events   NativeEvents
	startOK  bool
	starts   int
	destroys int
}

func (f *fakeImpl) Events() *NativeEvents { return &f.events }

func (f *fakeImpl) Start() bool {
	f.starts++
	return f.startOK
}

func (f *fakeImpl) Destroy() {
	f.destroys++
	f.events.Destroy.Emit(struct{}{})
	f.events.Close()
}

// fakeLoop is a real loop whose liveness can be flipped without running
// teardown, as when the display was freed behind our back.
type fakeLoop struct {
	*eventloop.Loop
	dead bool
}

func (f *fakeLoop) Alive() bool { return !f.dead && f.Loop.Alive() }

func newFakeLoop() *fakeLoop { return &fakeLoop{Loop: eventloop.New()} }

func wrapFake(t *testing.T, loop EventLoop, impl *fakeImpl) *Backend {
	t.Helper()
	b, err := wrap(loop, StrategyAuto, impl, nil)
	if err != nil {
		t.Fatalf("wrap() error = %v", err)
	}
	return b
}

func TestNewHeadless(t *testing.T) {
	b, err := New(eventloop.New(), StrategyHeadless, AutoConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Destroy()

	if b.Impl() == nil {
		t.Fatal("New() returned a backend without an implementation")
	}
	if !b.IsHeadless() {
		t.Error("IsHeadless() = false for StrategyHeadless")
	}
	if b.IsMulti() {
		t.Error("IsMulti() = true for StrategyHeadless")
	}
	if _, err := b.Session(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Session() error = %v, want ErrNoSession", err)
	}
	if b.Strategy() != StrategyHeadless {
		t.Errorf("Strategy() = %v", b.Strategy())
	}
}

func TestNewAutoIsMultiWithSession(t *testing.T) {
	b, err := New(eventloop.New(), StrategyAuto, AutoConfig{Backends: []string{KindHeadless}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Destroy()

	if !b.IsMulti() {
		t.Error("IsMulti() = false for StrategyAuto")
	}
	if b.IsHeadless() {
		t.Error("IsHeadless() = true for a multi-backend")
	}
	sess, err := b.Session()
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if sess == nil {
		t.Fatal("Session() returned nil without error")
	}
	if !sess.Detached() {
		t.Error("headless-only AUTO should get a detached session")
	}
}

func TestNewErrors(t *testing.T) {
	Register("test-nil", Entry{Factory: func(EventLoop, *session.Session, AutoConfig) (Impl, error) {
		return nil, nil
	}})
	Register("test-fail", Entry{Factory: func(EventLoop, *session.Session, AutoConfig) (Impl, error) {
		return nil, errors.New("no device")
	}})
	t.Cleanup(func() {
		Unregister("test-nil")
		Unregister("test-fail")
	})

	deadLoop := eventloop.New()
	deadLoop.Destroy()

	tests := []struct {
		name     string
		loop     EventLoop
		strategy Strategy
		cfg      AutoConfig
		want     error
	}{
		{"unknown strategy", eventloop.New(), Strategy(42), AutoConfig{}, ErrUnknownStrategy},
		{"unknown kind", eventloop.New(), StrategyAuto, AutoConfig{Backends: []string{"fbdev"}}, ErrUnknownBackend},
		{"nil handle", eventloop.New(), StrategyAuto, AutoConfig{Backends: []string{"test-nil"}}, ErrCreate},
		{"factory error", eventloop.New(), StrategyAuto, AutoConfig{Backends: []string{KindHeadless, "test-fail"}}, ErrCreate},
		{"dead loop", deadLoop, StrategyHeadless, AutoConfig{}, ErrCreate},
		{"nil loop", nil, StrategyHeadless, AutoConfig{}, ErrCreate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.loop, tt.strategy, tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
			if b != nil {
				t.Error("New() returned a backend alongside an error")
			}
		})
	}
}

func TestWrapNilImpl(t *testing.T) {
	if _, err := wrap(eventloop.New(), StrategyAuto, nil, session.NewDetached()); !errors.Is(err, ErrCreate) {
		t.Errorf("wrap(nil) error = %v, want ErrCreate", err)
	}
}

func TestHeadlessNewOutputDelivery(t *testing.T) {
	b, err := New(eventloop.New(), StrategyHeadless, AutoConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Destroy()

	if !b.Start() {
		t.Fatal("Start() = false")
	}

	var got []*Output
	b.Events.NewOutput.Subscribe(func(o *Output) { got = append(got, o) })

	desc := b.Impl().(*Headless).AddOutput(1280, 720)

	if len(got) != 1 {
		t.Fatalf("NewOutput delivered %d times, want 1", len(got))
	}
	o := got[0]
	if o.Name() != desc.Name {
		t.Errorf("Name() = %q, want %q", o.Name(), desc.Name)
	}
	if o.Backend() != b {
		t.Error("Output.Backend() does not point at the announcing backend")
	}
	mode, ok := o.PreferredMode()
	if !ok || mode.Width != 1280 || mode.Height != 720 {
		t.Errorf("PreferredMode() = %+v, %v", mode, ok)
	}
	if len(b.Outputs()) != 1 {
		t.Errorf("Outputs() = %d, want 1", len(b.Outputs()))
	}
}

func TestStartAnnouncesExistingDevices(t *testing.T) {
	b, err := New(eventloop.New(), StrategyHeadless, AutoConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Destroy()

	h := b.Impl().(*Headless)
	h.AddOutput(800, 600)
	h.AddInputDevice(InputKeyboard)

	outputs, inputs := 0, 0
	b.Events.NewOutput.Subscribe(func(*Output) { outputs++ })
	b.Events.NewInput.Subscribe(func(d *InputDevice) {
		inputs++
		if d.Kind() != InputKeyboard {
			t.Errorf("Kind() = %v, want keyboard", d.Kind())
		}
	})

	if !b.Start() || !b.Start() {
		t.Fatal("Start() = false")
	}
	if outputs != 1 || inputs != 1 {
		t.Errorf("announced outputs=%d inputs=%d, want 1 and 1", outputs, inputs)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	impl := &fakeImpl{startOK: true}
	b := wrapFake(t, eventloop.New(), impl)

	fired := 0
	b.Events.Destroy.Subscribe(func(struct{}) { fired++ })

	b.Destroy()
	b.Destroy()

	if impl.destroys != 1 {
		t.Errorf("native destroy called %d times, want 1", impl.destroys)
	}
	if fired != 1 {
		t.Errorf("Destroy signal fired %d times, want 1", fired)
	}
	if !b.Destroyed() || b.Impl() != nil {
		t.Error("handle not cleared after Destroy")
	}
}

func TestDestroySignalPrecedesRelease(t *testing.T) {
	impl := &fakeImpl{startOK: true}
	b := wrapFake(t, eventloop.New(), impl)

	releasedBeforeSignal := true
	b.Events.Destroy.Subscribe(func(struct{}) { releasedBeforeSignal = impl.destroys > 0 })
	b.Destroy()

	if releasedBeforeSignal {
		t.Error("native resources were released before the destroy signal fired")
	}
}

func TestDestroyAfterLoopDeathSkipsNativeRelease(t *testing.T) {
	loop := newFakeLoop()
	impl := &fakeImpl{startOK: true}
	b := wrapFake(t, loop, impl)

	loop.dead = true
	b.Destroy()

	if impl.destroys != 0 {
		t.Errorf("native destroy called %d times after loop died, want 0", impl.destroys)
	}
	if !b.Destroyed() {
		t.Error("Destroyed() = false")
	}
	b.Destroy()
	if impl.destroys != 0 {
		t.Errorf("second Destroy released native resources")
	}
}

func TestLoopTeardownReleasesBackendOnce(t *testing.T) {
	loop := eventloop.New()
	impl := &fakeImpl{startOK: true}
	b := wrapFake(t, loop, impl)

	fired := 0
	b.Events.Destroy.Subscribe(func(struct{}) { fired++ })

	loop.Destroy()
	if impl.destroys != 1 {
		t.Fatalf("loop teardown released backend %d times, want 1", impl.destroys)
	}

	b.Destroy()
	if impl.destroys != 1 {
		t.Errorf("Destroy after loop teardown double-freed: %d", impl.destroys)
	}
	if fired != 1 {
		t.Errorf("Destroy signal fired %d times, want 1", fired)
	}
	if !b.Destroyed() {
		t.Error("Destroyed() = false")
	}
}

func TestLoopTeardownMarksBackendDestroyed(t *testing.T) {
	loop := eventloop.New()
	b, err := New(loop, StrategyHeadless, AutoConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !b.Start() {
		t.Fatal("Start() = false")
	}

	loop.Destroy()

	if !b.Destroyed() {
		t.Error("Destroyed() = false after loop teardown")
	}
	if b.Started() || b.IsHeadless() || b.IsMulti() || b.Impl() != nil {
		t.Error("queries report a live backend after loop teardown")
	}
	if b.Start() {
		t.Error("Start() = true after loop teardown")
	}
	if _, err := b.Session(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Session() error = %v, want ErrDestroyed", err)
	}

	b.Destroy()
	if !b.Destroyed() {
		t.Error("Destroyed() = false after Destroy")
	}
}

func TestNativeSelfDestroy(t *testing.T) {
	impl := &fakeImpl{startOK: true}
	b := wrapFake(t, eventloop.New(), impl)

	fired := 0
	b.Events.Destroy.Subscribe(func(struct{}) { fired++ })

	impl.Destroy()
	if fired != 1 {
		t.Errorf("Destroy signal fired %d times, want 1", fired)
	}
	if b.Start() {
		t.Error("Start() succeeded on a natively released backend")
	}

	b.Destroy()
	if impl.destroys != 1 {
		t.Errorf("native destroy called %d times, want 1", impl.destroys)
	}
}

func TestOperationsAfterDestroy(t *testing.T) {
	b, err := New(eventloop.New(), StrategyHeadless, AutoConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b.Destroy()

	if b.Start() {
		t.Error("Start() = true after Destroy")
	}
	if b.IsHeadless() || b.IsMulti() {
		t.Error("queries report an implementation after Destroy")
	}
	if _, err := b.Session(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Session() error = %v, want ErrDestroyed", err)
	}
}

func TestDevicesDestroyedWithBackend(t *testing.T) {
	b, err := New(eventloop.New(), StrategyHeadless, AutoConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var output *Output
	var input *InputDevice
	b.Events.NewOutput.Subscribe(func(o *Output) { output = o })
	b.Events.NewInput.Subscribe(func(d *InputDevice) { input = d })

	h := b.Impl().(*Headless)
	h.AddOutput(640, 480)
	h.AddInputDevice(InputPointer)
	b.Start()

	if output == nil || input == nil {
		t.Fatal("devices were not announced")
	}

	order := []string{}
	b.Events.Destroy.Subscribe(func(struct{}) { order = append(order, "backend") })
	output.Destroy.Subscribe(func(struct{}) { order = append(order, "output") })
	input.Destroy.Subscribe(func(struct{}) { order = append(order, "input") })

	b.Destroy()

	if len(order) != 3 || order[0] != "backend" {
		t.Errorf("destroy order = %v, want backend first then both devices", order)
	}
	if len(b.Outputs()) != 0 || len(b.Inputs()) != 0 {
		t.Error("devices still listed after Destroy")
	}
}

func TestDeviceRemovedBeforeBackend(t *testing.T) {
	impl := &fakeImpl{startOK: true}
	b := wrapFake(t, eventloop.New(), impl)
	defer b.Destroy()

	desc := &InputDescriptor{Name: "event3", Kind: InputTouch}
	var dev *InputDevice
	b.Events.NewInput.Subscribe(func(d *InputDevice) { dev = d })

	impl.events.NewInput.Emit(desc)
	impl.events.NewInput.Emit(desc)
	if len(b.Inputs()) != 1 {
		t.Fatalf("Inputs() = %d after duplicate announcement, want 1", len(b.Inputs()))
	}

	gone := 0
	dev.Destroy.Subscribe(func(struct{}) { gone++ })
	desc.Removed.Emit(struct{}{})

	if gone != 1 {
		t.Errorf("device Destroy fired %d times, want 1", gone)
	}
	if len(b.Inputs()) != 0 {
		t.Errorf("Inputs() = %d after removal, want 0", len(b.Inputs()))
	}
}

func TestUseStartFailure(t *testing.T) {
	impl := &fakeImpl{startOK: false}
	b := wrapFake(t, eventloop.New(), impl)

	called := false
	err := Use(b, func(*Backend) error {
		called = true
		return nil
	})

	if !errors.Is(err, ErrStart) {
		t.Errorf("Use() error = %v, want ErrStart", err)
	}
	if called {
		t.Error("Use() ran fn after a failed start")
	}
	if impl.destroys != 1 {
		t.Errorf("native destroy called %d times, want 1", impl.destroys)
	}
	if !b.Destroyed() {
		t.Error("backend handle not cleared after failed start")
	}
}

func TestUseDestroysOnEveryExit(t *testing.T) {
	fnErr := errors.New("compositor exited")

	tests := []struct {
		name string
		fn   func(*Backend) error
		want error
	}{
		{"success", func(*Backend) error { return nil }, nil},
		{"error", func(*Backend) error { return fnErr }, fnErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			impl := &fakeImpl{startOK: true}
			b := wrapFake(t, eventloop.New(), impl)

			if err := Use(b, tt.fn); !errors.Is(err, tt.want) {
				t.Errorf("Use() error = %v, want %v", err, tt.want)
			}
			if impl.starts != 1 || impl.destroys != 1 {
				t.Errorf("starts=%d destroys=%d, want 1 and 1", impl.starts, impl.destroys)
			}
		})
	}
}

func TestUseDestroysOnPanic(t *testing.T) {
	impl := &fakeImpl{startOK: true}
	b := wrapFake(t, eventloop.New(), impl)

	func() {
		defer func() { _ = recover() }()
		_ = Use(b, func(*Backend) error { panic("boom") })
	}()

	if impl.destroys != 1 {
		t.Errorf("native destroy called %d times after panic, want 1", impl.destroys)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"auto", StrategyAuto, false},
		{"", StrategyAuto, false},
		{"headless", StrategyHeadless, false},
		{"drm", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) error = %v", tt.in, err)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnknownStrategy) {
			t.Errorf("ParseStrategy(%q) error = %v, want ErrUnknownStrategy", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
