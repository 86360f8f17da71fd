// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package session manages the login/VT session a compositor runs in.
//
// A Session is owned by exactly one backend and lives as long as it does.
// It switches virtual terminals and hands out device file descriptors (DRM
// cards, evdev nodes) that backends must return before the session closes.
package session

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/signal"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session: closed")

	// ErrNoTerminal is returned when a detached session is asked about VTs.
	ErrNoTerminal = errors.New("session: no controlling terminal")

	// ErrUnknownDevice is returned when closing an fd the session did not open.
	ErrUnknownDevice = errors.New("session: unknown device fd")
)

// Terminal controls virtual terminal switching.
type Terminal interface {
	// Activate requests a switch to vt. It does not wait for the switch:
	// the VT currently holding the console may delay or refuse it.
	Activate(vt int) error

	// Active returns the currently active vt number.
	Active() (int, error)

	// Close releases the terminal.
	Close() error
}

// Config selects the terminal a session opens.
type Config struct {
	// TTY is the VT device path. Defaults to /dev/tty0 (the active console).
	TTY string `mapstructure:"tty"`
}

// DefaultTTY is the console device used when Config.TTY is empty.
const DefaultTTY = "/dev/tty0"

// Session is a login/VT session handle.
type Session struct {
	mu      sync.Mutex
	term    Terminal
	home    int
	onHome  bool
	devices map[int]string
	closed  bool

	// Active fires false when the console leaves the VT the session was
	// opened on and true when it returns to it. Transitions are observed by
	// ChangeVT and RefreshVT.
	Active signal.Signal[bool]
}

// Open opens the VT device named in cfg.
func Open(cfg Config) (*Session, error) {
	path := cfg.TTY
	if path == "" {
		path = DefaultTTY
	}
	term, err := openVT(path)
	if err != nil {
		return nil, err
	}
	compositor.Logger().Info("session: opened", "tty", path)
	return NewWithTerminal(term), nil
}

// NewWithTerminal creates a session driven by term.
func NewWithTerminal(term Terminal) *Session {
	s := &Session{term: term, devices: make(map[int]string)}
	if term != nil {
		s.home, _ = term.Active()
		s.onHome = true
	}
	return s
}

// NewDetached creates a session without a controlling terminal. VT switching
// always fails; device fds can still be opened.
func NewDetached() *Session {
	return NewWithTerminal(nil)
}

// Detached reports whether the session has no terminal.
func (s *Session) Detached() bool {
	return s.term == nil
}

// ChangeVT requests a switch to vt without waiting for it to complete. A
// rejected request is logged and reported as false; it never leaves the
// session unusable. A switch that completes later is picked up by
// RefreshVT.
func (s *Session) ChangeVT(vt int) bool {
	s.mu.Lock()
	closed, term := s.closed, s.term
	s.mu.Unlock()

	switch {
	case closed:
		compositor.Logger().Warn("session: change vt on closed session", "vt", vt)
		return false
	case term == nil:
		compositor.Logger().Warn("session: change vt without terminal", "vt", vt)
		return false
	case vt <= 0:
		compositor.Logger().Warn("session: invalid vt", "vt", vt)
		return false
	}

	previous, _ := term.Active()
	if err := term.Activate(vt); err != nil {
		compositor.Logger().Warn("session: change vt failed", "vt", vt, "err", err)
		return false
	}
	compositor.Logger().Info("session: requested vt switch", "from", previous, "to", vt)

	if _, err := s.RefreshVT(); err != nil {
		compositor.Logger().Debug("session: vt state query failed", "err", err)
	}
	return true
}

// RefreshVT queries the active VT and fires Active if the console entered
// or left the session's VT since the last observation.
func (s *Session) RefreshVT() (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	if s.term == nil {
		s.mu.Unlock()
		return 0, ErrNoTerminal
	}
	vt, err := s.term.Active()
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	onHome := vt == s.home
	changed := onHome != s.onHome
	s.onHome = onHome
	s.mu.Unlock()

	if changed {
		s.Active.Emit(onHome)
	}
	return vt, nil
}

// ActiveVT returns the currently active VT number.
func (s *Session) ActiveVT() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.term == nil {
		return 0, ErrNoTerminal
	}
	return s.term.Active()
}

// OpenDevice opens a device node for a backend. The returned fd belongs to
// the session until CloseDevice or Close.
func (s *Session) OpenDevice(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -1, ErrClosed
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC|unix.O_NONBLOCK|unix.O_NOCTTY, 0)
	if err != nil {
		return -1, fmt.Errorf("session: open %s: %w", path, err)
	}
	s.devices[fd] = path
	compositor.Logger().Debug("session: device opened", "path", path, "fd", fd)
	return fd, nil
}

// CloseDevice closes an fd previously returned by OpenDevice.
func (s *Session) CloseDevice(fd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.devices[fd]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDevice, fd)
	}
	delete(s.devices, fd)
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("session: close %s: %w", path, err)
	}
	return nil
}

// Devices returns the number of device fds currently open.
func (s *Session) Devices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

// Close releases every device fd and the terminal. Only the owning backend
// calls Close. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	devices := s.devices
	s.devices = make(map[int]string)
	term := s.term
	s.mu.Unlock()

	for fd, path := range devices {
		if err := unix.Close(fd); err != nil {
			compositor.Logger().Warn("session: device close failed", "path", path, "err", err)
		}
	}
	if term != nil {
		if err := term.Close(); err != nil {
			compositor.Logger().Warn("session: terminal close failed", "err", err)
		}
	}
	s.Active.Close()
	compositor.Logger().Debug("session: closed", "devices", len(devices))
}
