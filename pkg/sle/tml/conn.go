// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/creachadair/taskgroup"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrStalled is returned if nothing was received for the heartbeat interval times the dead factor.
	ErrStalled = errors.New("tml: stalled connection")

	// ErrUnexpectedContext is returned if the responder sends a context message.
	ErrUnexpectedContext = errors.New("tml: unexpected context message")
)

// Configuration of a TML connection.
type Configuration struct {
	// HeartbeatInterval is announced in the context message; zero disables heartbeats.
	HeartbeatInterval time.Duration

	// DeadFactor times the HeartbeatInterval is the longest accepted silence of the responder.
	DeadFactor int

	// MaxPduLength limits the size of received PDUs.
	MaxPduLength uint32

	// CloseTimeout limits how long queued PDUs are written out on Close.
	CloseTimeout time.Duration
}

// DefaultConfiguration returns the common TML settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		HeartbeatInterval: 30 * time.Second,
		DeadFactor:        5,
		MaxPduLength:      4 << 20,
		CloseTimeout:      2 * time.Second,
	}
}

// Validate the Configuration.
func (conf Configuration) Validate() error {
	switch {
	case conf.HeartbeatInterval < 0 || conf.HeartbeatInterval > 0xFFFF*time.Second:
		return fmt.Errorf("heartbeat interval %v out of range", conf.HeartbeatInterval)
	case conf.HeartbeatInterval > 0 && conf.HeartbeatInterval < time.Second:
		return fmt.Errorf("heartbeat interval %v is shorter than one second", conf.HeartbeatInterval)
	case conf.HeartbeatInterval > 0 && (conf.DeadFactor < 2 || conf.DeadFactor > 60):
		return fmt.Errorf("dead factor %d out of range [2, 60]", conf.DeadFactor)
	case conf.MaxPduLength == 0:
		return fmt.Errorf("maximum PDU length must be positive")
	case conf.CloseTimeout < 0:
		return fmt.Errorf("negative close timeout")
	}
	return nil
}

// Conn is the initiating side of a TML connection. It exchanges encoded SLE PDUs and handles the context message and
// heartbeats itself.
type Conn struct {
	conf Configuration
	peer string
	rwc  io.ReadWriteCloser
	ms   *MessageSwitchReaderWriter

	incoming chan []byte
	outgoing chan []byte
	errChan  chan error

	closeSyn  chan struct{}
	closeOnce sync.Once
	tasks     *taskgroup.Group

	lastReceive time.Time
	lastSend    time.Time
	heartbeat   *HeartbeatTicker
}

// Dial a TML responder over TCP.
func Dial(ctx context.Context, address string, conf Configuration) (*Conn, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	return NewConn(conn, address, conf)
}

// NewConn starts a TML connection on an established stream. The context message is sent first.
func NewConn(rwc io.ReadWriteCloser, peer string, conf Configuration) (*Conn, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	c := &Conn{
		conf: conf,
		peer: peer,
		rwc:  rwc,
		ms:   NewMessageSwitchReaderWriter(rwc, rwc, conf.MaxPduLength),

		incoming: make(chan []byte, 32),
		outgoing: make(chan []byte, 32),
		errChan:  make(chan error, 1),

		closeSyn: make(chan struct{}),
		tasks:    taskgroup.New(nil),
	}

	c.tasks.Go(c.handle)
	return c, nil
}

func (c *Conn) log() *log.Entry {
	return log.WithField("tml", c.peer)
}

func (c *Conn) String() string {
	return fmt.Sprintf("tml://%s", c.peer)
}

func (c *Conn) handle() error {
	defer c.shutdown()

	msIn, msOut, msErr := c.ms.Exchange()

	c.lastReceive = time.Now()
	c.lastSend = time.Now()

	interval := uint16(c.conf.HeartbeatInterval / time.Second)
	if err := c.messageOut(NewContextMessage(interval, uint16(c.conf.DeadFactor)), msOut, msErr); err != nil {
		c.reportErr(err)
		return err
	}

	c.heartbeat = NewHeartbeatTicker()
	if c.conf.HeartbeatInterval > 0 {
		c.heartbeat.Reschedule(c.conf.HeartbeatInterval)
	}
	defer c.heartbeat.Stop()

	var pending []byte
	var hasPending bool

	for {
		var err error

		// While a received PDU waits for its delivery, no further messages are read.
		// Outgoing PDUs and heartbeats are still served.
		in, deliver := msIn, (chan<- []byte)(nil)
		if hasPending {
			in, deliver = nil, c.incoming
		}

		select {
		case <-c.closeSyn:
			c.log().Debug("Closing TML connection")
			c.drainOutgoing(msOut, msErr)
			return nil

		case <-c.heartbeat.C:
			if hasPending {
				// Unread messages are queued behind the pending PDU.
				c.lastReceive = time.Now()
			}
			err = c.handleHeartbeat(msOut, msErr)

		case deliver <- pending:
			pending, hasPending = nil, false

		case msg := <-in:
			pending, hasPending, err = c.handleMsgIn(msg)

		case data := <-c.outgoing:
			err = c.messageOut(NewPduMessage(data), msOut, msErr)

		case err = <-msErr:
			if hasPending {
				c.deliver(pending)
			}
			c.drainIncoming(msIn)
		}

		if err != nil {
			c.log().WithError(err).Warn("TML connection failed")
			c.reportErr(err)
			return err
		}
	}
}

func (c *Conn) reportErr(err error) {
	select {
	case c.errChan <- err:
	default:
	}
}

// messageOut dispatches an outgoing message to the MessageSwitch and updates the lastSend field.
func (c *Conn) messageOut(msg Message, msOut chan<- Message, msErr <-chan error) error {
	select {
	case msOut <- msg:
		c.lastSend = time.Now()
		return nil

	case err := <-msErr:
		return err
	}
}

// drainOutgoing sends already queued PDUs before the connection is closed.
func (c *Conn) drainOutgoing(msOut chan<- Message, msErr <-chan error) {
	for {
		select {
		case data := <-c.outgoing:
			if err := c.messageOut(NewPduMessage(data), msOut, msErr); err != nil {
				return
			}
		default:
			return
		}
	}
}

// drainIncoming forwards the messages read before the MessageSwitch failed.
func (c *Conn) drainIncoming(msIn <-chan Message) {
	for {
		select {
		case msg := <-msIn:
			data, ok, err := c.handleMsgIn(msg)
			if err != nil {
				return
			} else if ok {
				c.deliver(data)
			}
		default:
			return
		}
	}
}

// handleHeartbeat is called from handle when the heartbeat ticker ticks.
//
// First, the last timestamp of a received message is checked against the heartbeat interval times the dead factor.
// Second, a heartbeat message is sent if nothing was sent for nearly a heartbeat interval.
func (c *Conn) handleHeartbeat(msOut chan<- Message, msErr <-chan error) error {
	interval := c.conf.HeartbeatInterval
	dead := interval * time.Duration(c.conf.DeadFactor)

	receiveDelta := time.Until(c.lastReceive.Add(dead))
	sendDelta := time.Until(c.lastSend.Add(interval))

	if receiveDelta < 0 {
		return fmt.Errorf("%w; last message at %v, dead interval of %v", ErrStalled, c.lastReceive, dead)
	}

	if sendDelta <= interval/8 {
		if err := c.messageOut(NewHeartbeatMessage(), msOut, msErr); err != nil {
			return err
		}
		sendDelta = interval
	}

	next := sendDelta
	if receiveDelta < next {
		next = receiveDelta
	}
	if next < 10*time.Millisecond {
		next = 10 * time.Millisecond
	}
	c.heartbeat.Reschedule(next)

	return nil
}

// handleMsgIn updates the lastReceive field and returns the PDU to be delivered, if msg carries one.
func (c *Conn) handleMsgIn(msg Message) (data []byte, ok bool, err error) {
	c.lastReceive = time.Now()

	switch msg := msg.(type) {
	case *ContextMessage:
		return nil, false, ErrUnexpectedContext

	case *HeartbeatMessage:
		return nil, false, nil

	case *PduMessage:
		return msg.Data, true, nil

	default:
		return nil, false, fmt.Errorf("unexpected TML message %T", msg)
	}
}

// deliver blocks until data was handed to incoming or the connection is closed.
func (c *Conn) deliver(data []byte) {
	select {
	case c.incoming <- data:
	case <-c.closeSyn:
	}
}

// shutdown closes the MessageSwitch, waits for queued messages to be written and closes the stream.
func (c *Conn) shutdown() {
	_ = c.ms.Close()

	select {
	case <-c.ms.Flushed():
	case <-time.After(c.conf.CloseTimeout):
		c.log().Warn("Closing TML connection with unwritten messages")
	}

	if err := c.rwc.Close(); err != nil {
		c.log().WithError(err).Debug("Closing stream errored")
	}
}

// Exchange channels of encoded SLE PDUs.
//
//   - incoming is a "receive only" channel for received PDUs.
//   - outgoing is a "send only" channel for PDUs to be sent.
//   - errChan is another "receive only" channel to propagate the error which ended the connection.
func (c *Conn) Exchange() (incoming <-chan []byte, outgoing chan<- []byte, errChan <-chan error) {
	return c.incoming, c.outgoing, c.errChan
}

// Close the connection after writing out already queued PDUs.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeSyn)
	})

	_ = c.tasks.Wait()
	return nil
}
