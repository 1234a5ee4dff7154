// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package runloop provides a single-goroutine callback queue. Every function
// posted to a Loop runs on the loop goroutine, one at a time, in post order.
package runloop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("run loop stopped")

// Dispatcher schedules work onto a serial queue.
type Dispatcher interface {
	Post(fn func())
}

// Executor is a Dispatcher that can also run work synchronously.
type Executor interface {
	Dispatcher
	Do(ctx context.Context, fn func()) error
}

// Loop is an unbounded FIFO of callbacks executed serially by Run.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	stopped bool
}

// New returns an idle loop; call Run to start draining it.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn without blocking. It is safe to call from inside a callback.
// Work posted after the loop stopped is dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do posts fn and waits until it has run.
// Calling Do from the loop goroutine deadlocks; use Post there.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		fn()
	})
	select {
	case <-ran:
		return nil
	case <-l.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled. Pending work is discarded on exit.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			if ctx.Err() != nil {
				return
			}
			fn()
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

// Done is closed after Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Inline runs posted work immediately on the caller's goroutine. It is meant
// for tests and for hosts that already serialize their callbacks.
type Inline struct{}

// Post runs fn synchronously.
func (Inline) Post(fn func()) {
	if fn != nil {
		fn()
	}
}

// Do runs fn synchronously.
func (Inline) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fn != nil {
		fn()
	}
	return nil
}

var (
	_ Executor = (*Loop)(nil)
	_ Executor = Inline{}
)
