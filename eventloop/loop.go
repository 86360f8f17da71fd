// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package eventloop is a minimal single-threaded reactor for driving
// compositor backends.
//
// A Loop multiplexes file-descriptor sources with poll(2) and runs idle
// callbacks after each dispatch. Backends register their device fds and
// deferred work here; the loop owner calls Dispatch or Run. When the loop is
// destroyed it fires its destroy signal first, giving everything created
// against it the chance to tear down while the loop still reports itself
// alive, and only then flips Alive to false.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/signal"
)

var (
	// ErrDestroyed is returned when work is added to a destroyed loop.
	ErrDestroyed = errors.New("eventloop: loop destroyed")

	// ErrDuplicateFD is returned when an fd is already registered.
	ErrDuplicateFD = errors.New("eventloop: fd already registered")
)

// FDHandler is called when a registered fd becomes readable or reports a
// hangup. A non-nil error is logged; the source stays registered.
type FDHandler func(fd int) error

// Source is a registered file-descriptor source.
type Source struct {
	loop    *Loop
	fd      int
	handler FDHandler
}

// FD returns the watched file descriptor.
func (s *Source) FD() int { return s.fd }

// Remove unregisters the source. The fd itself is not closed.
func (s *Source) Remove() {
	if s == nil || s.loop == nil {
		return
	}
	l := s.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sources[s.fd] == s {
		delete(l.sources, s.fd)
	}
}

// Loop is a poll-based reactor. All callbacks run on the goroutine that calls
// Dispatch or Run.
type Loop struct {
	mu        sync.Mutex
	sources   map[int]*Source
	idle      []func()
	destroyed bool

	destroy signal.Signal[struct{}]
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{sources: make(map[int]*Source)}
}

// Alive reports whether the loop has not been destroyed.
func (l *Loop) Alive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.destroyed
}

// OnDestroy returns the signal fired when the loop is destroyed.
func (l *Loop) OnDestroy() *signal.Signal[struct{}] {
	return &l.destroy
}

// AddIdle schedules fn to run at the end of the next dispatch.
// Idle callbacks added to a destroyed loop are dropped.
func (l *Loop) AddIdle(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.destroyed {
		return
	}
	l.idle = append(l.idle, fn)
}

// AddFD watches fd for readability.
func (l *Loop) AddFD(fd int, handler FDHandler) (*Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.destroyed {
		return nil, ErrDestroyed
	}
	if _, ok := l.sources[fd]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateFD, fd)
	}
	s := &Source{loop: l, fd: fd, handler: handler}
	l.sources[fd] = s
	compositor.Logger().Debug("eventloop: fd registered", "fd", fd)
	return s, nil
}

// Dispatch runs pending idle callbacks, waits up to timeout for fd activity,
// runs the handlers of ready sources and then the idle callbacks they queued.
// A negative timeout blocks until an fd is ready; with no fd sources and
// nothing idle it returns immediately instead.
func (l *Loop) Dispatch(timeout time.Duration) error {
	if !l.Alive() {
		return ErrDestroyed
	}
	l.runIdle()

	l.mu.Lock()
	pending := len(l.idle) > 0
	fds := make([]unix.PollFd, 0, len(l.sources))
	for fd := range l.sources {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	l.mu.Unlock()

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	if pending {
		ms = 0
	}
	if len(fds) == 0 && ms < 0 {
		return nil
	}

	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("eventloop: poll: %w", err)
	}

	if n > 0 {
		for _, pfd := range fds {
			if pfd.Revents == 0 {
				continue
			}
			l.mu.Lock()
			s := l.sources[int(pfd.Fd)]
			l.mu.Unlock()
			if s == nil {
				// removed by an earlier handler in this dispatch
				continue
			}
			if err := s.handler(s.fd); err != nil {
				compositor.Logger().Warn("eventloop: fd handler failed", "fd", s.fd, "err", err)
			}
		}
	}

	l.runIdle()
	return nil
}

// Run dispatches until ctx is done or the loop is destroyed.
func (l *Loop) Run(ctx context.Context) error {
	const tick = 50 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := l.Dispatch(tick); err != nil {
			if errors.Is(err, ErrDestroyed) {
				return nil
			}
			return err
		}
	}
}

// Destroy fires the destroy signal, drops all sources and idle callbacks and
// marks the loop dead. Listeners see Alive() == true while they run.
// Destroying twice is a no-op.
func (l *Loop) Destroy() {
	if !l.Alive() {
		return
	}

	l.destroy.Emit(struct{}{})
	l.destroy.Close()

	l.mu.Lock()
	l.sources = make(map[int]*Source)
	l.idle = nil
	l.destroyed = true
	l.mu.Unlock()

	compositor.Logger().Debug("eventloop: destroyed")
}

func (l *Loop) runIdle() {
	l.mu.Lock()
	idle := l.idle
	l.idle = nil
	l.mu.Unlock()

	for _, fn := range idle {
		fn()
	}
}
