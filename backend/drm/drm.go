// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package drm implements the DRM/KMS backend kind.
//
// Connectors are discovered through sysfs (class/drm/cardN-*). Each card node
// is opened through the session and watched on the event loop for DRM
// events. Import the package for its side effect to make the "drm" kind
// available to the AUTO strategy:
//
//	import _ "github.com/gogpu/compositor/backend/drm"
package drm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/session"
)

var (
	// ErrNoGPU is returned when no DRM card could be opened.
	ErrNoGPU = errors.New("drm: no usable DRM card")

	// ErrNoSession is returned when the backend is created without a session.
	ErrNoSession = errors.New("drm: a session is required")
)

func init() {
	backend.Register(backend.KindDRM, backend.Entry{Factory: create, NeedsSession: true})
}

func create(loop backend.EventLoop, sess *session.Session, cfg backend.AutoConfig) (backend.Impl, error) {
	return New(loop, sess, cfg.SysRoot, cfg.DevRoot)
}

// DRM event types from drm.h.
const (
	eventVBlank       = 0x01
	eventFlipComplete = 0x02
	eventHeaderSize   = 8
)

type card struct {
	name   string
	fd     int
	source *eventloop.Source
	events uint64
}

// Backend drives the DRM cards of one seat.
type Backend struct {
	events  backend.NativeEvents
	loop    backend.EventLoop
	session *session.Session
	sysRoot string
	devRoot string

	cards   []*card
	outputs map[string]*backend.OutputDescriptor

	started   bool
	destroyed bool
}

// New opens every DRM card found under sysRoot through sess. Cards that fail
// to open are skipped; if none opens, New returns ErrNoGPU.
func New(loop backend.EventLoop, sess *session.Session, sysRoot, devRoot string) (*Backend, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	names, err := Cards(sysRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoGPU, err)
	}

	b := &Backend{
		loop:    loop,
		session: sess,
		sysRoot: sysRoot,
		devRoot: devRoot,
		outputs: make(map[string]*backend.OutputDescriptor),
	}
	for _, name := range names {
		path := filepath.Join(devRoot, "dri", name)
		fd, err := sess.OpenDevice(path)
		if err != nil {
			compositor.Logger().Warn("drm: skipping card", "card", name, "err", err)
			continue
		}
		c := &card{name: name, fd: fd}
		c.source, err = loop.AddFD(fd, b.cardHandler(c))
		if err != nil {
			_ = sess.CloseDevice(fd)
			compositor.Logger().Warn("drm: cannot watch card", "card", name, "err", err)
			continue
		}
		b.cards = append(b.cards, c)
		compositor.Logger().Debug("drm: opened card", "card", name, "path", path)
	}
	if len(b.cards) == 0 {
		return nil, ErrNoGPU
	}
	return b, nil
}

// Events returns the raw signals.
func (b *Backend) Events() *backend.NativeEvents { return &b.events }

// Start scans the connectors and announces the connected ones.
func (b *Backend) Start() bool {
	if b.destroyed {
		return false
	}
	if b.started {
		return true
	}
	b.started = true
	if err := b.Rescan(); err != nil {
		compositor.Logger().Warn("drm: connector scan failed", "err", err)
		return false
	}
	return true
}

// Rescan re-reads the connector state, announcing newly connected outputs
// and removing disconnected ones. Before Start it does nothing.
func (b *Backend) Rescan() error {
	if !b.started || b.destroyed {
		return nil
	}

	connected := make(map[string]bool)
	for _, c := range b.cards {
		conns, err := Connectors(b.sysRoot, c.name)
		if err != nil {
			return err
		}
		for _, conn := range conns {
			if !conn.Connected || len(conn.Modes) == 0 {
				continue
			}
			connected[conn.Name] = true
			if _, ok := b.outputs[conn.Name]; ok {
				continue
			}
			d := &backend.OutputDescriptor{
				Name:    conn.Name,
				Make:    conn.Make,
				Model:   conn.Model,
				Modes:   conn.Modes,
				Formats: backend.DefaultOutputFormats(),
			}
			b.outputs[conn.Name] = d
			compositor.Logger().Info("drm: connector connected", "card", c.name, "connector", conn.Name)
			b.events.NewOutput.Emit(d)
		}
	}

	for name, d := range b.outputs {
		if connected[name] {
			continue
		}
		delete(b.outputs, name)
		compositor.Logger().Info("drm: connector disconnected", "connector", name)
		d.Removed.Emit(struct{}{})
		d.Removed.Close()
	}
	return nil
}

// Outputs returns the number of connected outputs.
func (b *Backend) Outputs() int { return len(b.outputs) }

// Destroy stops watching the cards and returns their fds to the session.
func (b *Backend) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.events.Destroy.Emit(struct{}{})

	for _, d := range b.outputs {
		d.Removed.Close()
	}
	b.outputs = nil
	for _, c := range b.cards {
		c.source.Remove()
		if err := b.session.CloseDevice(c.fd); err != nil {
			compositor.Logger().Debug("drm: card close", "card", c.name, "err", err)
		}
	}
	b.cards = nil
	b.events.Close()
	compositor.Logger().Debug("drm: destroyed")
}

// cardHandler drains DRM events from a card fd. Page-flip and vblank
// completions are counted; presentation itself happens elsewhere.
func (b *Backend) cardHandler(c *card) eventloop.FDHandler {
	return func(fd int) error {
		buf := make([]byte, 1024)
		n, err := unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				return nil
			}
			return fmt.Errorf("drm: read %s: %w", c.name, err)
		}
		for off := 0; off+eventHeaderSize <= n; {
			typ := binary.NativeEndian.Uint32(buf[off:])
			length := int(binary.NativeEndian.Uint32(buf[off+4:]))
			if length < eventHeaderSize {
				break
			}
			switch typ {
			case eventVBlank, eventFlipComplete:
				c.events++
			default:
				compositor.Logger().Debug("drm: unhandled event", "card", c.name, "type", typ)
			}
			off += length
		}
		return nil
	}
}
