// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import (
	"fmt"
	"sort"
)

// InvokeID identifies a confirmed invocation on a session.
type InvokeID uint16

// InvokeIDs issues invoke identifiers in increasing order, wrapping after
// 65535. The zero value is ready to use.
type InvokeIDs struct {
	next InvokeID
}

// Issue returns the next identifier for which inUse reports false. It panics
// if every identifier is in use.
func (ids *InvokeIDs) Issue(inUse func(InvokeID) bool) InvokeID {
	for i := 0; i <= 0xFFFF; i++ {
		id := ids.next
		ids.next++

		if inUse == nil || !inUse(id) {
			return id
		}
	}
	panic("sle: all invoke ids are in use")
}

// Correlator maps the invoke identifiers of outstanding invocations to the
// function completing their Future. It is not safe for concurrent use and is
// meant to be owned by a single session goroutine.
type Correlator[T any] struct {
	pending map[InvokeID]func(T, error)
}

// NewCorrelator creates an empty Correlator.
func NewCorrelator[T any]() *Correlator[T] {
	return &Correlator[T]{pending: make(map[InvokeID]func(T, error))}
}

// Register a pending invocation. Registering an identifier twice panics.
func (c *Correlator[T]) Register(id InvokeID, complete func(T, error)) {
	if _, ok := c.pending[id]; ok {
		panic(fmt.Sprintf("sle: invoke id %d registered twice", id))
	}
	c.pending[id] = complete
}

// Pending reports whether an invocation with this identifier is outstanding.
func (c *Correlator[T]) Pending(id InvokeID) bool {
	_, ok := c.pending[id]
	return ok
}

// Len returns the number of outstanding invocations.
func (c *Correlator[T]) Len() int {
	return len(c.pending)
}

// Resolve completes and removes the invocation. ErrUnknownInvokeID is returned
// if no such invocation is outstanding.
func (c *Correlator[T]) Resolve(id InvokeID, v T, err error) error {
	complete, ok := c.pending[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownInvokeID, id)
	}

	delete(c.pending, id)
	complete(v, err)
	return nil
}

// FailAll completes every outstanding invocation with err, in the order of
// their identifiers, and leaves the Correlator empty.
func (c *Correlator[T]) FailAll(err error) {
	ids := make([]InvokeID, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var zero T
	for _, id := range ids {
		complete := c.pending[id]
		delete(c.pending, id)
		complete(zero, err)
	}
}
