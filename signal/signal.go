// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package signal provides a typed one-to-many notification channel.
//
// Every lifecycle and discovery event in the compositor (backend destroy,
// new input device, new output, session activation) is published through a
// Signal. Delivery is synchronous: Emit calls each listener in subscription
// order on the caller's goroutine, which is the event loop's dispatch in
// practice. Nothing is queued across loop iterations.
//
// A publisher closes its signals when it is destroyed. After Close, Emit is a
// no-op and new subscriptions are inert, so a listener can never observe a
// publisher that no longer exists.
package signal

import (
	"sync"
)

// Signal is a publish/subscribe channel for payloads of type T.
// The zero value is ready to use.
type Signal[T any] struct {
	mu        sync.Mutex
	listeners []*Listener[T]
	closed    bool
}

// Listener is a single subscription to a Signal.
type Listener[T any] struct {
	signal  *Signal[T]
	fn      func(T)
	removed bool
}

// New returns an empty signal.
func New[T any]() *Signal[T] {
	return &Signal[T]{}
}

// Subscribe registers fn to be called on every Emit.
// Subscribing to a closed signal returns a listener that is never called.
func (s *Signal[T]) Subscribe(fn func(T)) *Listener[T] {
	l := &Listener[T]{signal: s, fn: fn}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		l.removed = true
		return l
	}
	s.listeners = append(s.listeners, l)
	return l
}

// Emit delivers v to every current listener in subscription order.
// Listeners added during emission are not called for v; listeners removed
// during emission are skipped if they have not run yet.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	snapshot := make([]*Listener[T], len(s.listeners))
	copy(snapshot, s.listeners)
	s.mu.Unlock()

	for _, l := range snapshot {
		if l.isRemoved() {
			continue
		}
		l.fn(v)
	}
}

// Close detaches every listener and stops further delivery.
// Closing twice is harmless.
func (s *Signal[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.listeners {
		l.removed = true
	}
	s.listeners = nil
	s.closed = true
}

// Closed reports whether Close has been called.
func (s *Signal[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Len returns the number of active listeners.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Remove unsubscribes the listener. It is safe to call from inside the
// listener's own callback and safe to call more than once.
func (l *Listener[T]) Remove() {
	if l == nil || l.signal == nil {
		return
	}
	s := l.signal
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.removed {
		return
	}
	l.removed = true
	for i, other := range s.listeners {
		if other == l {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			break
		}
	}
}

func (l *Listener[T]) isRemoved() bool {
	l.signal.mu.Lock()
	defer l.signal.mu.Unlock()
	return l.removed
}

// Relay forwards every payload emitted on src to dst after converting it
// with wrap. It is the data wrapper that turns a raw discovery payload into
// the typed entity subscribers receive.
//
// A nil wrap result is still delivered; wrappers that want to drop a payload
// should use RelayFilter. Remove the returned listener to stop relaying.
func Relay[R, T any](src *Signal[R], dst *Signal[T], wrap func(R) T) *Listener[R] {
	return src.Subscribe(func(r R) {
		dst.Emit(wrap(r))
	})
}

// RelayFilter is Relay with a wrapper that may reject a payload by
// returning false.
func RelayFilter[R, T any](src *Signal[R], dst *Signal[T], wrap func(R) (T, bool)) *Listener[R] {
	return src.Subscribe(func(r R) {
		if t, ok := wrap(r); ok {
			dst.Emit(t)
		}
	})
}
