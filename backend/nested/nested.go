// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package nested implements the backend kinds that run a compositor as a
// client of a parent display server: "wayland" and "x11".
//
// A nested backend connects to the parent's socket on creation and
// announces a single output when started. When the parent closes the
// connection the backend destroys itself, which tears down the owning
// backend.Backend through its native destroy signal.
package nested

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/session"
)

var (
	// ErrNoDisplay is returned when no parent display is configured.
	ErrNoDisplay = errors.New("nested: no parent display configured")

	// ErrRemoteDisplay is returned for X11 displays on another host.
	ErrRemoteDisplay = errors.New("nested: remote X11 displays are not supported")
)

func init() {
	backend.Register(backend.KindWayland, backend.Entry{Factory: createWayland})
	backend.Register(backend.KindX11, backend.Entry{Factory: createX11})
}

func createWayland(loop backend.EventLoop, _ *session.Session, cfg backend.AutoConfig) (backend.Impl, error) {
	path, err := WaylandSocket(cfg.WaylandDisplay, cfg.RuntimeDir)
	if err != nil {
		return nil, err
	}
	return Dial(loop, Wayland, path)
}

func createX11(loop backend.EventLoop, _ *session.Session, cfg backend.AutoConfig) (backend.Impl, error) {
	path, err := X11Socket(cfg.X11Display, cfg.X11SocketDir)
	if err != nil {
		return nil, err
	}
	return Dial(loop, X11, path)
}

// Kind is a parent display protocol.
type Kind struct {
	name   string
	prefix string
	width  int
	height int
}

// Parent protocols. The output sizes match what wlroots uses for a fresh
// nested window.
var (
	Wayland = Kind{name: backend.KindWayland, prefix: "WL", width: 1280, height: 720}
	X11     = Kind{name: backend.KindX11, prefix: "X11", width: 1024, height: 768}
)

func (k Kind) String() string { return k.name }

// WaylandSocket resolves WAYLAND_DISPLAY: an absolute path is used as is,
// a name is looked up in runtimeDir.
func WaylandSocket(display, runtimeDir string) (string, error) {
	if display == "" {
		return "", fmt.Errorf("%w: WAYLAND_DISPLAY is empty", ErrNoDisplay)
	}
	if filepath.IsAbs(display) {
		return display, nil
	}
	if runtimeDir == "" {
		return "", fmt.Errorf("%w: XDG_RUNTIME_DIR is empty", ErrNoDisplay)
	}
	return filepath.Join(runtimeDir, display), nil
}

// X11Socket resolves a DISPLAY value such as ":0" or ":1.0" to the server's
// local socket in socketDir.
func X11Socket(display, socketDir string) (string, error) {
	if display == "" {
		return "", fmt.Errorf("%w: DISPLAY is empty", ErrNoDisplay)
	}
	host, rest, ok := strings.Cut(display, ":")
	if !ok {
		return "", fmt.Errorf("nested: malformed DISPLAY %q", display)
	}
	if host != "" && host != "unix" {
		return "", fmt.Errorf("%w: %q", ErrRemoteDisplay, display)
	}
	num, _, _ := strings.Cut(rest, ".")
	if _, err := strconv.ParseUint(num, 10, 16); err != nil {
		return "", fmt.Errorf("nested: malformed DISPLAY %q", display)
	}
	return filepath.Join(socketDir, "X"+num), nil
}

// Backend is a nested backend connected to a parent display.
type Backend struct {
	events backend.NativeEvents
	kind   Kind
	conn   *net.UnixConn
	source *eventloop.Source
	output *backend.OutputDescriptor

	started   bool
	destroyed bool
}

// Dial connects to the parent display at path and watches the connection on
// loop.
func Dial(loop backend.EventLoop, kind Kind, path string) (*Backend, error) {
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("nested: connect to %s display: %w", kind, err)
	}

	fd, err := connFD(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	b := &Backend{kind: kind, conn: conn}
	b.source, err = loop.AddFD(fd, b.handleParent)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nested: watch %s connection: %w", kind, err)
	}
	compositor.Logger().Info("nested: connected to parent display", "kind", kind, "socket", path)
	return b, nil
}

func connFD(conn *net.UnixConn) (int, error) {
	rc, err := conn.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("nested: raw connection: %w", err)
	}
	fd := -1
	if err := rc.Control(func(p uintptr) { fd = int(p) }); err != nil {
		return -1, fmt.Errorf("nested: raw connection: %w", err)
	}
	return fd, nil
}

// Events returns the raw signals.
func (b *Backend) Events() *backend.NativeEvents { return &b.events }

// Kind returns the parent protocol.
func (b *Backend) Kind() Kind { return b.kind }

// Start announces the nested window as an output.
func (b *Backend) Start() bool {
	if b.destroyed {
		return false
	}
	if b.started {
		return true
	}
	b.started = true
	b.output = &backend.OutputDescriptor{
		Name:    b.kind.prefix + "-1",
		Make:    b.kind.name,
		Model:   b.kind.name,
		Modes:   []backend.Mode{{Width: b.kind.width, Height: b.kind.height, Refresh: backend.DefaultRefresh, Preferred: true}},
		Formats: backend.DefaultOutputFormats(),
	}
	b.events.NewOutput.Emit(b.output)
	return true
}

// Destroy disconnects from the parent display.
func (b *Backend) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.events.Destroy.Emit(struct{}{})

	if b.output != nil {
		b.output.Removed.Close()
	}
	b.source.Remove()
	if err := b.conn.Close(); err != nil {
		compositor.Logger().Debug("nested: close parent connection", "kind", b.kind, "err", err)
	}
	b.events.Close()
	compositor.Logger().Debug("nested: destroyed", "kind", b.kind)
}

// handleParent drains the parent connection. EOF or a hard error means the
// parent display went away.
func (b *Backend) handleParent(fd int) error {
	var buf [4096]byte
	n, err := unix.Read(fd, buf[:])
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return nil
	case err == nil && n > 0:
		return nil
	}
	compositor.Logger().Warn("nested: parent display disconnected", "kind", b.kind, "err", err)
	b.Destroy()
	return nil
}
