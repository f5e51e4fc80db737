// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"sync"

	"github.com/creachadair/mds/queue"

	"github.com/dtn7/sle-go/pkg/sle"
)

// job is executed by the ServiceUser's goroutine. reject is called instead of
// run if the ServiceUser was closed before.
type job struct {
	run    func()
	reject func(error)
}

// mailbox is the unbounded queue of jobs for a ServiceUser. The wake channel
// signals that jobs are waiting.
type mailbox struct {
	mutex  sync.Mutex
	jobs   *queue.Queue[job]
	closed bool

	wake chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		jobs: queue.New[job](),
		wake: make(chan struct{}, 1),
	}
}

// post a job. False is returned if the mailbox was already closed.
func (m *mailbox) post(j job) bool {
	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		return false
	}
	m.jobs.Add(j)
	m.mutex.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// next job, if one is waiting.
func (m *mailbox) next() (job, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.jobs.Pop()
}

// close the mailbox and return all jobs which were not executed.
func (m *mailbox) close() (remaining []job) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.closed = true
	for {
		j, ok := m.jobs.Pop()
		if !ok {
			return
		}
		remaining = append(remaining, j)
	}
}

// submit an operation to the ServiceUser's goroutine. The operation must
// complete its Future, either directly or by registering it for a return.
func submit[T any](su *ServiceUser, op func(complete func(T, error))) *sle.Future[T] {
	f, complete := sle.NewFuture[T]()

	posted := su.mailbox.post(job{
		run: func() { op(complete) },
		reject: func(err error) {
			var zero T
			complete(zero, err)
		},
	})
	if !posted {
		var zero T
		complete(zero, ErrClosed)
	}

	return f
}

// do posts a job without a result, which is dropped after Close.
func (su *ServiceUser) do(f func()) {
	su.mailbox.post(job{run: f, reject: func(error) {}})
}
