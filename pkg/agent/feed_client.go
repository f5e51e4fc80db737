// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"errors"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"
)

// feedClientQueue is the number of messages buffered for each client.
const feedClientQueue = 256

// feedWriteTimeout bounds writing one message to a client.
const feedWriteTimeout = 10 * time.Second

type feedClient struct {
	conn  *websocket.Conn
	queue chan []byte

	closed       chan struct{}
	shutdownOnce sync.Once
}

func newFeedClient(conn *websocket.Conn) *feedClient {
	return &feedClient{
		conn:   conn,
		queue:  make(chan []byte, feedClientQueue),
		closed: make(chan struct{}),
	}
}

func (client *feedClient) log() *log.Entry {
	return log.WithField("feed client", client.conn.RemoteAddr().String())
}

// offer a message without blocking. False is returned if the queue is full.
func (client *feedClient) offer(msg []byte) bool {
	select {
	case client.queue <- msg:
		return true
	default:
		return false
	}
}

func (client *feedClient) shutdown() {
	client.shutdownOnce.Do(func() {
		client.log().Debug("Reached shutdown")

		close(client.closed)
		_ = client.conn.Close()
	})
}

// handleQueue writes queued messages until the client is shut down.
func (client *feedClient) handleQueue() {
	defer client.shutdown()

	for {
		select {
		case <-client.closed:
			return

		case msg := <-client.queue:
			_ = client.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := client.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				client.log().WithError(err).Warn("Sending feed message errored")
				return
			}
		}
	}
}

// handleConn reads until the client disconnects. Clients are not expected to send anything.
func (client *feedClient) handleConn() {
	defer client.shutdown()

	for {
		if messageType, _, err := client.conn.NextReader(); err != nil {
			var netErr *net.OpError
			if errors.As(err, &netErr) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				client.log().WithError(err).Debug("Reader errored due to closed connection")
			} else {
				client.log().WithError(err).Warn("Opening next Websocket Reader errored")
			}
			return
		} else {
			client.log().WithField("message type", messageType).Debug("Ignoring message of feed client")
		}
	}
}
