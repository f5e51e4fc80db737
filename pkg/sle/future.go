// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import (
	"context"
	"sync/atomic"
)

// Future is the pending result of an invocation. It completes exactly once,
// either with a value or with an error.
type Future[T any] struct {
	done      chan struct{}
	completed atomic.Bool

	value T
	err   error
}

// NewFuture creates a Future and the function completing it. Calling the
// complete function more than once panics.
func NewFuture[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.complete
}

// FailedFuture returns an already completed Future holding err.
func FailedFuture[T any](err error) *Future[T] {
	f, complete := NewFuture[T]()
	var zero T
	complete(zero, err)
	return f
}

func (f *Future[T]) complete(v T, err error) {
	if !f.completed.CompareAndSwap(false, true) {
		panic("sle: future completed twice")
	}

	f.value, f.err = v, err
	close(f.done)
}

// Done returns a channel which is closed after the Future has completed.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the Future has completed or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
