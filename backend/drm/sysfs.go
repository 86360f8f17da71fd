// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package drm

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/compositor/backend"
)

// IsCardDevice reports whether name is a DRM card node (card0, card1, ...),
// as opposed to a connector (card0-DP-1) or a render node (renderD128).
func IsCardDevice(name string) bool {
	suffix, ok := strings.CutPrefix(name, "card")
	if !ok || suffix == "" {
		return false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Cards lists the DRM card nodes under sysRoot/class/drm, ordered by index.
func Cards(sysRoot string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(sysRoot, "class", "drm"))
	if err != nil {
		return nil, err
	}
	var cards []string
	for _, e := range entries {
		if IsCardDevice(e.Name()) {
			cards = append(cards, e.Name())
		}
	}
	slices.SortFunc(cards, func(a, b string) int {
		return cardIndex(a) - cardIndex(b)
	})
	return cards, nil
}

func cardIndex(name string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(name, "card"))
	return n
}

// Connector is a connector as described by sysfs.
type Connector struct {
	// Name is the connector name without the card prefix, e.g. "HDMI-A-1".
	Name      string
	Connected bool
	Enabled   bool
	Modes     []backend.Mode
	Make      string
	Model     string
}

// Connectors lists the connectors of card, ordered by name.
func Connectors(sysRoot, card string) ([]Connector, error) {
	dir := filepath.Join(sysRoot, "class", "drm")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	prefix := card + "-"
	var conns []Connector
	for _, e := range entries {
		name, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		conns = append(conns, readConnector(filepath.Join(dir, e.Name()), name))
	}
	slices.SortFunc(conns, func(a, b Connector) int { return strings.Compare(a.Name, b.Name) })
	return conns, nil
}

func readConnector(path, name string) Connector {
	c := Connector{
		Name:      name,
		Connected: readSysfsString(filepath.Join(path, "status")) == "connected",
		Enabled:   readSysfsString(filepath.Join(path, "enabled")) == "enabled",
		Modes:     parseModes(readSysfsString(filepath.Join(path, "modes"))),
	}
	if edid, err := os.ReadFile(filepath.Join(path, "edid")); err == nil && len(edid) > 0 {
		c.Make, c.Model = parseEDID(edid)
	}
	return c
}

// parseModes parses the sysfs "modes" file: one WxH entry per line, the
// preferred mode first. Refresh rates are not exposed there.
func parseModes(s string) []backend.Mode {
	var modes []backend.Mode
	seen := make(map[[2]int]bool)
	for _, line := range strings.Split(s, "\n") {
		w, h, ok := strings.Cut(strings.TrimSpace(line), "x")
		if !ok {
			continue
		}
		// Interlaced modes carry an "i" suffix.
		h = strings.TrimSuffix(h, "i")
		width, err1 := strconv.Atoi(w)
		height, err2 := strconv.Atoi(h)
		if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
			continue
		}
		key := [2]int{width, height}
		if seen[key] {
			continue
		}
		seen[key] = true
		modes = append(modes, backend.Mode{Width: width, Height: height, Preferred: len(modes) == 0})
	}
	return modes
}

func readSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
