// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package session

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// VT ioctl numbers from include/uapi/linux/vt.h. These are stable ABI.
const (
	vtGetState = 0x5603
	vtActivate = 0x5606
)

// vtStat mirrors struct vt_stat.
type vtStat struct {
	active uint16
	sig    uint16
	state  uint16
}

// vtTerminal drives a Linux virtual console through ioctls.
type vtTerminal struct {
	fd   int
	path string
}

func openVT(path string) (*vtTerminal, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	t := &vtTerminal{fd: fd, path: path}
	if _, err := t.Active(); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("session: %s is not a virtual terminal: %w", path, err)
	}
	return t, nil
}

func (t *vtTerminal) Activate(vt int) error {
	if err := unix.IoctlSetInt(t.fd, vtActivate, vt); err != nil {
		return fmt.Errorf("VT_ACTIVATE %d: %w", vt, err)
	}
	return nil
}

func (t *vtTerminal) Active() (int, error) {
	var st vtStat
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		uintptr(t.fd),
		uintptr(vtGetState),
		uintptr(unsafe.Pointer(&st)),
	)
	if errno != 0 {
		return 0, fmt.Errorf("VT_GETSTATE: %w", errno)
	}
	return int(st.active), nil
}

func (t *vtTerminal) Close() error {
	return unix.Close(t.fd)
}
