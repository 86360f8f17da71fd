// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package drmformat

import (
	"slices"
)

// Set is an immutable mapping from fourcc code to Format.
// The zero value and nil are valid empty sets.
type Set struct {
	formats map[Code]*Format
}

// NewSet builds a set. Formats sharing a code are merged.
func NewSet(formats ...Format) *Set {
	s := &Set{formats: make(map[Code]*Format, len(formats))}
	for _, f := range formats {
		if existing, ok := s.formats[f.code]; ok {
			merged := NewFormat(f.code, append(existing.Modifiers(), f.modifiers...)...)
			s.formats[f.code] = &merged
			continue
		}
		nf := NewFormat(f.code, f.modifiers...)
		s.formats[f.code] = &nf
	}
	return s
}

// Get looks up a format. A missing code is not an error: it returns nil and
// false.
func (s *Set) Get(code Code) (*Format, bool) {
	if s == nil {
		return nil, false
	}
	f, ok := s.formats[code]
	return f, ok
}

// Has reports whether code is in the set.
func (s *Set) Has(code Code) bool {
	_, ok := s.Get(code)
	return ok
}

// Len returns the number of formats.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.formats)
}

// Codes returns the codes in ascending order.
func (s *Set) Codes() []Code {
	if s == nil {
		return nil
	}
	codes := make([]Code, 0, len(s.formats))
	for c := range s.formats {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

// Intersect returns the formats present in both sets, each restricted to the
// modifiers both sides support. Formats left with no common modifier are
// dropped, except that two formats with no modifiers at all (implicit
// layout) intersect to themselves.
func Intersect(a, b *Set) *Set {
	out := &Set{formats: make(map[Code]*Format)}
	for _, code := range a.Codes() {
		fa, _ := a.Get(code)
		fb, ok := b.Get(code)
		if !ok {
			continue
		}
		if len(fa.modifiers) == 0 && len(fb.modifiers) == 0 {
			f := NewFormat(code)
			out.formats[code] = &f
			continue
		}
		var common []Modifier
		for _, m := range fa.modifiers {
			if fb.HasModifier(m) {
				common = append(common, m)
			}
		}
		if len(common) == 0 {
			continue
		}
		f := NewFormat(code, common...)
		out.formats[code] = &f
	}
	return out
}
