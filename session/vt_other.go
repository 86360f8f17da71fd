//go:build !linux

package session

import "errors"

func openVT(path string) (Terminal, error) {
	return nil, errors.New("session: virtual terminals are only supported on Linux")
}
