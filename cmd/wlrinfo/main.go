// Command wlrinfo creates a compositor backend, reports the input devices
// and outputs it discovers and the renderer it would use, then tears
// everything down.
//
//	wlrinfo                          # AUTO, environment decides
//	wlrinfo --strategy headless --headless-outputs 2
//	WLR_BACKENDS=drm,libinput wlrinfo --dispatch 2s
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
