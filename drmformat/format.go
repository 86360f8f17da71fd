// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package drmformat describes DRM pixel formats and format sets.
//
// Formats are identified by their fourcc code as defined in drm_fourcc.h.
// A Set is an immutable lookup table from code to Format, the shape in which
// renderers and outputs advertise what they can scan out or sample from.
package drmformat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
)

// Code is a DRM fourcc format code.
type Code uint32

// Fourcc builds a Code from its four characters.
func Fourcc(a, b, c, d byte) Code {
	return Code(a) | Code(b)<<8 | Code(c)<<16 | Code(d)<<24
}

// Commonly used formats. Channel order is little-endian as in drm_fourcc.h.
const (
	ARGB8888    Code = 0x34325241 // AR24
	XRGB8888    Code = 0x34325258 // XR24
	ABGR8888    Code = 0x34324241 // AB24
	XBGR8888    Code = 0x34324258 // XB24
	RGB565      Code = 0x36314752 // RG16
	ARGB2101010 Code = 0x30335241 // AR30
	XRGB2101010 Code = 0x30335258 // XR30
	R8          Code = 0x20203852 // "R8  "
)

// Modifier is a DRM format modifier describing buffer tiling/compression.
type Modifier uint64

const (
	// ModLinear is the linear (untiled) layout.
	ModLinear Modifier = 0

	// ModInvalid means the layout is implicit and negotiated out of band.
	ModInvalid Modifier = 0x00ffffffffffffff
)

// String renders the fourcc characters, e.g. "XR24".
func (c Code) String() string {
	b := []byte{byte(c), byte(c >> 8), byte(c >> 16), byte(c >> 24)}
	for _, ch := range b {
		if ch < 0x20 || ch > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(c))
		}
	}
	return strings.TrimRight(string(b), " ")
}

// CodesFor returns the codes that sample as tf, alpha variant first.
func CodesFor(tf gputypes.TextureFormat) []Code {
	switch tf {
	case gputypes.TextureFormatBGRA8Unorm:
		return []Code{ARGB8888, XRGB8888}
	case gputypes.TextureFormatRGBA8Unorm:
		return []Code{ABGR8888, XBGR8888}
	case gputypes.TextureFormatR8Unorm:
		return []Code{R8}
	default:
		return nil
	}
}

// TextureFormat maps the code to the equivalent GPU texture format.
// Formats without an exact equivalent map to TextureFormatUndefined.
// X-formats map to their alpha counterpart; the alpha channel is ignored
// when sampling.
func (c Code) TextureFormat() gputypes.TextureFormat {
	switch c {
	case ARGB8888, XRGB8888:
		return gputypes.TextureFormatBGRA8Unorm
	case ABGR8888, XBGR8888:
		return gputypes.TextureFormatRGBA8Unorm
	case R8:
		return gputypes.TextureFormatR8Unorm
	default:
		return gputypes.TextureFormatUndefined
	}
}

// HasAlpha reports whether the format carries a meaningful alpha channel.
func (c Code) HasAlpha() bool {
	switch c {
	case ARGB8888, ABGR8888, ARGB2101010:
		return true
	}
	return false
}

// Format is a pixel format together with the modifiers it supports.
type Format struct {
	code      Code
	modifiers []Modifier
}

// NewFormat creates a format descriptor. Duplicate modifiers are dropped.
func NewFormat(code Code, modifiers ...Modifier) Format {
	mods := slices.Clone(modifiers)
	slices.Sort(mods)
	return Format{code: code, modifiers: slices.Compact(mods)}
}

// Code returns the fourcc code.
func (f *Format) Code() Code { return f.code }

// Modifiers returns a copy of the supported modifiers in ascending order.
func (f *Format) Modifiers() []Modifier { return slices.Clone(f.modifiers) }

// HasModifier reports whether mod is supported.
func (f *Format) HasModifier(mod Modifier) bool {
	_, ok := slices.BinarySearch(f.modifiers, mod)
	return ok
}

func (f *Format) String() string {
	return fmt.Sprintf("%s (%d modifiers)", f.code, len(f.modifiers))
}
