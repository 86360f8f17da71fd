// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package drm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	edidLength         = 128
	edidDescriptorBase = 54
	edidDescriptorSize = 18
	edidMonitorName    = 0xfc
)

var edidHeader = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}

// parseEDID extracts the manufacturer PNP ID and the monitor name from an
// EDID base block. Unparseable blocks yield empty strings.
func parseEDID(edid []byte) (vendor, model string) {
	if len(edid) < edidLength || string(edid[:8]) != string(edidHeader) {
		return "", ""
	}

	id := binary.BigEndian.Uint16(edid[8:10])
	letters := []byte{
		byte('A' - 1 + (id>>10)&0x1f),
		byte('A' - 1 + (id>>5)&0x1f),
		byte('A' - 1 + id&0x1f),
	}
	for _, l := range letters {
		if l < 'A' || l > 'Z' {
			letters = nil
			break
		}
	}
	vendor = string(letters)

	for i := range 4 {
		d := edid[edidDescriptorBase+i*edidDescriptorSize:][:edidDescriptorSize]
		// Display descriptors start with a zero pixel clock.
		if d[0] != 0 || d[1] != 0 || d[3] != edidMonitorName {
			continue
		}
		raw, _, _ := strings.Cut(string(d[5:]), "\n")
		// Descriptor text is code page 437.
		name, err := charmap.CodePage437.NewDecoder().String(raw)
		if err != nil {
			name = raw
		}
		model = strings.TrimSpace(name)
		break
	}
	if model == "" {
		model = fmt.Sprintf("0x%04X", binary.LittleEndian.Uint16(edid[10:12]))
	}
	return vendor, model
}
