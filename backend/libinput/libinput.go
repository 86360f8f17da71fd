// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package libinput implements the evdev input backend kind.
//
// Devices are enumerated from sysfs (class/input/eventN) and classified by
// their capability bitmaps. Each device node is opened through the session;
// a device that cannot be opened is skipped with a warning. A read failing
// with ENODEV means the device was unplugged and removes it.
//
//	import _ "github.com/gogpu/compositor/backend/libinput"
package libinput

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/session"
)

// ErrNoSession is returned when the backend is created without a session.
var ErrNoSession = errors.New("libinput: a session is required")

func init() {
	backend.Register(backend.KindLibinput, backend.Entry{Factory: create, NeedsSession: true})
}

func create(loop backend.EventLoop, sess *session.Session, cfg backend.AutoConfig) (backend.Impl, error) {
	return New(loop, sess, cfg.SysRoot, cfg.DevRoot)
}

// Node describes an evdev node found in sysfs.
type Node struct {
	// Name is the node name, e.g. "event3".
	Name    string
	Device  string
	Vendor  uint32
	Product uint32
	Kind    backend.InputKind
}

// Scan lists the classifiable evdev nodes under sysRoot/class/input,
// ordered by node number.
func Scan(sysRoot string) ([]Node, error) {
	dir := filepath.Join(sysRoot, "class", "input")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var nodes []Node
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		dev := filepath.Join(dir, e.Name(), "device")
		caps := capabilities{
			ev:  parseBitmap(readSysfsString(filepath.Join(dev, "capabilities", "ev"))),
			key: parseBitmap(readSysfsString(filepath.Join(dev, "capabilities", "key"))),
			rel: parseBitmap(readSysfsString(filepath.Join(dev, "capabilities", "rel"))),
			abs: parseBitmap(readSysfsString(filepath.Join(dev, "capabilities", "abs"))),
		}
		kind, ok := classify(caps)
		if !ok {
			compositor.Logger().Debug("libinput: ignoring unclassified device", "node", e.Name())
			continue
		}
		nodes = append(nodes, Node{
			Name:    e.Name(),
			Device:  readSysfsString(filepath.Join(dev, "name")),
			Vendor:  readSysfsHex(filepath.Join(dev, "id", "vendor")),
			Product: readSysfsHex(filepath.Join(dev, "id", "product")),
			Kind:    kind,
		})
	}
	slices.SortFunc(nodes, func(a, b Node) int { return nodeIndex(a.Name) - nodeIndex(b.Name) })
	return nodes, nil
}

func nodeIndex(name string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(name, "event"))
	return n
}

type device struct {
	node   Node
	fd     int
	source *eventloop.Source
	desc   *backend.InputDescriptor
}

// Backend owns the evdev devices of one seat.
type Backend struct {
	events  backend.NativeEvents
	loop    backend.EventLoop
	session *session.Session
	sysRoot string
	devRoot string

	devices map[string]*device

	started   bool
	destroyed bool
}

// New creates an input backend. Devices are opened on Start.
func New(loop backend.EventLoop, sess *session.Session, sysRoot, devRoot string) (*Backend, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	return &Backend{
		loop:    loop,
		session: sess,
		sysRoot: sysRoot,
		devRoot: devRoot,
		devices: make(map[string]*device),
	}, nil
}

// Events returns the raw signals.
func (b *Backend) Events() *backend.NativeEvents { return &b.events }

// Start opens and announces every input device. A seat without input
// devices is not an error.
func (b *Backend) Start() bool {
	if b.destroyed {
		return false
	}
	if b.started {
		return true
	}
	b.started = true
	if err := b.Rescan(); err != nil {
		compositor.Logger().Warn("libinput: device scan failed", "err", err)
		return false
	}
	return true
}

// Rescan opens devices that appeared since the last scan. Before Start it
// does nothing.
func (b *Backend) Rescan() error {
	if !b.started || b.destroyed {
		return nil
	}
	nodes, err := Scan(b.sysRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			compositor.Logger().Info("libinput: no input class in sysfs")
			return nil
		}
		return err
	}
	for _, n := range nodes {
		if _, ok := b.devices[n.Name]; ok {
			continue
		}
		b.open(n)
	}
	return nil
}

func (b *Backend) open(n Node) {
	path := filepath.Join(b.devRoot, "input", n.Name)
	fd, err := b.session.OpenDevice(path)
	if err != nil {
		compositor.Logger().Warn("libinput: skipping device", "node", n.Name, "name", n.Device, "err", err)
		return
	}
	d := &device{node: n, fd: fd}
	d.source, err = b.loop.AddFD(fd, b.deviceHandler(d))
	if err != nil {
		_ = b.session.CloseDevice(fd)
		compositor.Logger().Warn("libinput: cannot watch device", "node", n.Name, "err", err)
		return
	}

	name := n.Device
	if name == "" {
		name = n.Name
	}
	d.desc = &backend.InputDescriptor{Name: name, Kind: n.Kind, Vendor: n.Vendor, Product: n.Product}
	b.devices[n.Name] = d
	compositor.Logger().Debug("libinput: device added", "node", n.Name, "name", name, "kind", n.Kind)
	b.events.NewInput.Emit(d.desc)
}

// Inputs returns the number of open devices.
func (b *Backend) Inputs() int { return len(b.devices) }

// Destroy closes every device.
func (b *Backend) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.events.Destroy.Emit(struct{}{})

	for _, d := range b.devices {
		d.desc.Removed.Close()
		b.release(d)
	}
	b.devices = nil
	b.events.Close()
	compositor.Logger().Debug("libinput: destroyed")
}

func (b *Backend) remove(d *device) {
	delete(b.devices, d.node.Name)
	compositor.Logger().Info("libinput: device removed", "node", d.node.Name)
	d.desc.Removed.Emit(struct{}{})
	d.desc.Removed.Close()
	b.release(d)
}

func (b *Backend) release(d *device) {
	d.source.Remove()
	if err := b.session.CloseDevice(d.fd); err != nil {
		compositor.Logger().Debug("libinput: device close", "node", d.node.Name, "err", err)
	}
}

// inputEventSize is sizeof(struct input_event) on 64-bit targets.
const inputEventSize = 24

// deviceHandler drains pending input events. Event translation belongs to
// the seat layer above the backend.
func (b *Backend) deviceHandler(d *device) eventloop.FDHandler {
	buf := make([]byte, 64*inputEventSize)
	return func(fd int) error {
		_, err := unix.Read(fd, buf)
		switch {
		case err == nil, errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			return nil
		case errors.Is(err, unix.ENODEV):
			b.remove(d)
			return nil
		default:
			return fmt.Errorf("libinput: read %s: %w", d.node.Name, err)
		}
	}
}

func readSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readSysfsHex(path string) uint32 {
	v, err := strconv.ParseUint(readSysfsString(path), 16, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
