// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tml

import (
	"bufio"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// MessageSwitch moves TML Messages between channels and an underlying connection.
type MessageSwitch interface {
	io.Closer

	// Exchange returns the channels of received and of queued Messages. errChan
	// carries at most one error, which ends the exchange.
	Exchange() (incoming <-chan Message, outgoing chan<- Message, errChan <-chan error)
}

// MessageSwitchReaderWriter reads Messages from an io.Reader and writes them to an io.Writer. The underlying
// connection must only be closed after the MessageSwitchReaderWriter was closed and flushed.
type MessageSwitchReaderWriter struct {
	in  io.Reader
	out io.Writer

	maxLength uint32

	inChan  chan Message
	outChan chan Message
	errChan chan error

	finished  atomic.Bool
	closeSyn  chan struct{}
	closeOnce sync.Once
	flushed   chan struct{}
}

// NewMessageSwitchReaderWriter for an io.Reader and io.Writer to exchange Messages to channels. Incoming messages with
// a body longer than maxLength result in an error.
func NewMessageSwitchReaderWriter(in io.Reader, out io.Writer, maxLength uint32) (ms *MessageSwitchReaderWriter) {
	ms = &MessageSwitchReaderWriter{
		in:  in,
		out: out,

		maxLength: maxLength,

		inChan:  make(chan Message, 32),
		outChan: make(chan Message, 32),
		errChan: make(chan error, 1),

		closeSyn: make(chan struct{}),
		flushed:  make(chan struct{}),
	}

	go ms.handleIn()
	go ms.handleOut()

	return
}

func (ms *MessageSwitchReaderWriter) sendErr(err error) {
	if ms.finished.CompareAndSwap(false, true) {
		ms.errChan <- err
	}
}

func (ms *MessageSwitchReaderWriter) handleIn() {
	in := bufio.NewReader(ms.in)

	for {
		msg, err := ReadMessage(in, ms.maxLength)
		if err != nil {
			ms.sendErr(err)
			return
		}

		select {
		case ms.inChan <- msg:
		case <-ms.closeSyn:
			return
		}
	}
}

func (ms *MessageSwitchReaderWriter) handleOut() {
	defer close(ms.flushed)

	out := bufio.NewWriter(ms.out)
	write := func(msg Message) bool {
		if err := msg.Marshal(out); err != nil {
			ms.sendErr(err)
			return false
		}
		if err := out.Flush(); err != nil {
			ms.sendErr(err)
			return false
		}
		return true
	}

	for {
		select {
		case msg := <-ms.outChan:
			if !write(msg) {
				return
			}

		case <-ms.closeSyn:
			// Write out everything queued before the close.
			for {
				select {
				case msg := <-ms.outChan:
					if !write(msg) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// Close the MessageSwitchReaderWriter. Already queued outgoing Messages are still written, which is signaled by the
// Flushed channel. An error is returned if it was already closed.
func (ms *MessageSwitchReaderWriter) Close() (err error) {
	err = errors.New("MessageSwitchReaderWriter has already been closed")
	ms.closeOnce.Do(func() {
		ms.finished.Store(true)
		close(ms.closeSyn)
		err = nil
	})
	return
}

// Flushed is closed after the writing side has finished.
func (ms *MessageSwitchReaderWriter) Flushed() <-chan struct{} {
	return ms.flushed
}

// Exchange channels of this MessageSwitch.
func (ms *MessageSwitchReaderWriter) Exchange() (incoming <-chan Message, outgoing chan<- Message, errChan <-chan error) {
	incoming = ms.inChan
	outgoing = ms.outChan
	errChan = ms.errChan
	return
}
