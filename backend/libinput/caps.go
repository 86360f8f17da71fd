// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package libinput

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/gogpu/compositor/backend"
)

// Event types and codes from linux/input-event-codes.h.
const (
	evKey = 0x01
	evRel = 0x02
	evAbs = 0x03
	evSw  = 0x05

	relX = 0x00
	relY = 0x01

	absX = 0x00
	absY = 0x01

	keyEsc        = 1
	keyA          = 30
	keySpace      = 57
	btn0          = 0x100
	btnLeft       = 0x110
	btnToolPen    = 0x140
	btnToolFinger = 0x145
	btnTouch      = 0x14a
)

// bitmap is a sysfs capability mask: space-separated hex words, most
// significant word first, each the width of a kernel long.
type bitmap []uint

func parseBitmap(s string) bitmap {
	fields := strings.Fields(s)
	bm := make(bitmap, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, bits.UintSize)
		if err != nil {
			return nil
		}
		bm[len(fields)-1-i] = uint(v)
	}
	return bm
}

func (bm bitmap) has(bit int) bool {
	word := bit / bits.UintSize
	if word >= len(bm) {
		return false
	}
	return bm[word]&(1<<(bit%bits.UintSize)) != 0
}

// capabilities mirrors the capabilities/ directory of an input device.
type capabilities struct {
	ev, key, rel, abs bitmap
}

// classify maps capabilities to a device kind the way udev's input_id
// builtin does. Devices that fit no kind report false.
func classify(c capabilities) (backend.InputKind, bool) {
	switch {
	case c.ev.has(evSw):
		return backend.InputSwitch, true
	case c.ev.has(evAbs) && c.abs.has(absX) && c.abs.has(absY):
		switch {
		case c.key.has(btnToolPen):
			return backend.InputTabletTool, true
		case c.key.has(btnToolFinger):
			// touchpad
			return backend.InputPointer, true
		case c.key.has(btnTouch):
			return backend.InputTouch, true
		case c.key.has(btnLeft):
			return backend.InputPointer, true
		case c.key.has(btn0):
			return backend.InputTabletPad, true
		}
	case c.ev.has(evAbs) && c.key.has(btn0):
		return backend.InputTabletPad, true
	case c.ev.has(evRel) && c.rel.has(relX) && c.rel.has(relY):
		return backend.InputPointer, true
	}
	if c.ev.has(evKey) && isKeyboard(c.key) {
		return backend.InputKeyboard, true
	}
	return 0, false
}

// isKeyboard requires Esc, the letter row and space, which rules out
// power buttons and lid switches that only report a handful of keys.
func isKeyboard(key bitmap) bool {
	if !key.has(keyEsc) || !key.has(keySpace) {
		return false
	}
	for code := keyA; code < keyA+9; code++ {
		if !key.has(code) {
			return false
		}
	}
	return true
}
