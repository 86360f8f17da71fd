package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/session"
)

// AutoConfig carries the environment the AUTO strategy probes. It is passed
// in explicitly rather than read from the process environment so that
// selection is reproducible; package config builds one from the environment.
//
// Selection precedence:
//  1. Backends, if non-empty: exactly those kinds, in the listed order.
//  2. WaylandDisplay set: a nested Wayland backend.
//  3. X11Display set: a nested X11 backend.
//  4. Otherwise DRM followed by libinput, sharing one session.
//
// The chosen kinds are always wrapped in a Multi.
type AutoConfig struct {
	// Backends is the allow-list of kinds (WLR_BACKENDS).
	Backends []string `mapstructure:"backends"`

	// WaylandDisplay is the parent compositor's socket name or absolute
	// path (WAYLAND_DISPLAY).
	WaylandDisplay string `mapstructure:"wayland_display"`

	// X11Display is the parent X server display, e.g. ":0" (DISPLAY).
	X11Display string `mapstructure:"x11_display"`

	// RuntimeDir resolves relative Wayland socket names (XDG_RUNTIME_DIR).
	RuntimeDir string `mapstructure:"runtime_dir"`

	// X11SocketDir holds the X server sockets. Defaults to /tmp/.X11-unix.
	X11SocketDir string `mapstructure:"x11_socket_dir"`

	// SysRoot and DevRoot locate sysfs and device nodes. They default to
	// /sys and /dev and are overridden in tests.
	SysRoot string `mapstructure:"sys_root"`
	DevRoot string `mapstructure:"dev_root"`

	// HeadlessOutputs is the number of outputs a "headless" kind listed in
	// Backends starts with.
	HeadlessOutputs int `mapstructure:"headless_outputs"`

	// Session configures the session opened for kinds that need one.
	Session session.Config `mapstructure:"session"`

	// OpenSession overrides how that session is opened.
	OpenSession func(session.Config) (*session.Session, error) `mapstructure:"-"`
}

// Defaults used when the corresponding AutoConfig field is empty.
const (
	DefaultSysRoot      = "/sys"
	DefaultDevRoot      = "/dev"
	DefaultX11SocketDir = "/tmp/.X11-unix"
)

// WithDefaults returns a copy with empty paths filled in.
func (c AutoConfig) WithDefaults() AutoConfig {
	if c.SysRoot == "" {
		c.SysRoot = DefaultSysRoot
	}
	if c.DevRoot == "" {
		c.DevRoot = DefaultDevRoot
	}
	if c.X11SocketDir == "" {
		c.X11SocketDir = DefaultX11SocketDir
	}
	return c
}

// ResolveKinds applies the selection precedence and returns the kinds AUTO
// will create, in creation order.
func (c AutoConfig) ResolveKinds() ([]string, error) {
	if len(c.Backends) > 0 {
		kinds := make([]string, 0, len(c.Backends))
		for _, k := range c.Backends {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if !IsRegistered(k) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, k)
			}
			kinds = append(kinds, k)
		}
		if len(kinds) > 0 {
			return kinds, nil
		}
	}

	var kinds []string
	switch {
	case c.WaylandDisplay != "":
		kinds = []string{KindWayland}
	case c.X11Display != "":
		kinds = []string{KindX11}
	default:
		kinds = []string{KindDRM, KindLibinput}
	}
	for _, k := range kinds {
		if !IsRegistered(k) {
			return nil, fmt.Errorf("%w: %q (import its package to register it)", ErrUnknownBackend, k)
		}
	}
	return kinds, nil
}

// autocreate builds the AUTO implementation. The returned session is never
// nil: kinds that need a seat share an opened session, otherwise a detached
// one stands in.
func autocreate(loop EventLoop, cfg AutoConfig) (Impl, *session.Session, error) {
	cfg = cfg.WithDefaults()

	kinds, err := cfg.ResolveKinds()
	if err != nil {
		return nil, nil, err
	}

	entries := make([]Entry, len(kinds))
	needsSession := false
	for i, k := range kinds {
		entries[i], _ = lookup(k)
		needsSession = needsSession || entries[i].NeedsSession
	}

	var sess *session.Session
	if needsSession {
		open := cfg.OpenSession
		if open == nil {
			open = session.Open
		}
		sess, err = open(cfg.Session)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: session: %w", ErrCreate, err)
		}
	}

	multi := NewMulti()
	for i, k := range kinds {
		var childSession *session.Session
		if entries[i].NeedsSession {
			childSession = sess
		}
		child, err := entries[i].Factory(loop, childSession, cfg)
		if err == nil && child == nil {
			err = errors.New("factory returned no backend")
		}
		if err != nil {
			multi.Destroy()
			if sess != nil {
				sess.Close()
			}
			return nil, nil, fmt.Errorf("%w: %s: %w", ErrCreate, k, err)
		}
		if h, ok := child.(*Headless); ok {
			for range cfg.HeadlessOutputs {
				h.AddOutput(1920, 1080)
			}
		}
		multi.Add(child)
		compositor.Logger().Debug("backend: autocreate added child", "kind", k)
	}

	if sess == nil {
		sess = session.NewDetached()
	}
	compositor.Logger().Info("backend: autocreated", "kinds", kinds)
	return multi, sess, nil
}
