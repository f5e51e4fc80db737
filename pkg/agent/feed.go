// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"bytes"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/creachadair/taskgroup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/raf"
)

var feedDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "sle",
	Subsystem: "agent",
	Name:      "feed_dropped_messages_total",
	Help:      "Feed messages dropped for slow WebSocket clients.",
})

// Feed broadcasts everything a RAF session delivers to WebSocket clients. It
// implements raf.FrameConsumer, raf.Monitor and raf.StateMonitor and never
// blocks the session: messages for clients whose queue is full are dropped.
//
// ServeHTTP must be bound to a HTTP endpoint, e.g., to /ws.
type Feed struct {
	mutex   sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
	tasks   *taskgroup.Group

	upgrader websocket.Upgrader

	frames        atomic.Uint64
	notifications atomic.Uint64
	dropped       atomic.Uint64

	reportMutex sync.Mutex
	lastReport  *raf.StatusReport
}

// NewFeed without clients.
func NewFeed() *Feed {
	return &Feed{
		clients: make(map[*feedClient]struct{}),
		tasks:   taskgroup.New(nil),
	}
}

// ServeHTTP upgrades the request to a WebSocket and registers it as a client.
func (f *Feed) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, connErr := f.upgrader.Upgrade(rw, r, nil)
	if connErr != nil {
		log.WithError(connErr).Warn("Upgrading HTTP request to WebSocket errored")
		return
	}

	client := newFeedClient(conn)

	f.mutex.Lock()
	if f.closed {
		f.mutex.Unlock()
		client.shutdown()
		return
	}
	f.clients[client] = struct{}{}
	f.tasks.Go(func() error {
		client.handleQueue()
		return nil
	})
	f.mutex.Unlock()

	client.log().Info("Feed client connected")
	client.handleConn()

	f.mutex.Lock()
	delete(f.clients, client)
	f.mutex.Unlock()
	client.log().Info("Feed client disconnected")
}

// Clients is the number of connected clients.
func (f *Feed) Clients() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return len(f.clients)
}

// broadcast a message to all clients.
func (f *Feed) broadcast(fm feedMessage) {
	var buf bytes.Buffer
	if err := marshalCbor(fm, &buf); err != nil {
		log.WithError(err).Warn("Marshalling feed message errored")
		return
	}
	msg := buf.Bytes()

	f.mutex.Lock()
	defer f.mutex.Unlock()

	for client := range f.clients {
		if !client.offer(msg) {
			f.dropped.Add(1)
			feedDropped.Inc()
			log.Warn("Dropping feed message for a slow client")
		}
	}
}

func (f *Feed) AcceptFrame(frame raf.Frame) {
	f.frames.Add(1)
	f.broadcast(newFrameMessage(frame))
}

func (f *Feed) OnLossFrameSync(t sle.Time, carrier, subcarrier, symbol raf.LockStatus) {
	f.notifications.Add(1)
	f.broadcast(&fmNotification{
		kind:  notificationLossFrameSync,
		time:  t,
		locks: [3]raf.LockStatus{carrier, subcarrier, symbol},
	})
}

func (f *Feed) OnProductionStatusChange(status raf.ProductionStatus) {
	f.notifications.Add(1)
	f.broadcast(&fmNotification{kind: notificationProductionStatus, status: status})
}

func (f *Feed) OnExcessiveDataBacklog() {
	f.notifications.Add(1)
	f.broadcast(&fmNotification{kind: notificationExcessiveDataBacklog})
}

func (f *Feed) OnEndOfData() {
	f.notifications.Add(1)
	f.broadcast(&fmNotification{kind: notificationEndOfData})
}

func (f *Feed) OnStatusReport(report raf.StatusReport) {
	f.reportMutex.Lock()
	f.lastReport = &report
	f.reportMutex.Unlock()

	f.broadcast(&fmStatusReport{report: report})
}

func (f *Feed) OnStateChange(state raf.State) {
	f.broadcast(&fmState{state: state})
}

// LastReport is the latest status report, or nil.
func (f *Feed) LastReport() *raf.StatusReport {
	f.reportMutex.Lock()
	defer f.reportMutex.Unlock()

	if f.lastReport == nil {
		return nil
	}
	report := *f.lastReport
	return &report
}

// Close disconnects all clients.
func (f *Feed) Close() error {
	f.mutex.Lock()
	f.closed = true
	for client := range f.clients {
		client.shutdown()
	}
	f.mutex.Unlock()

	return f.tasks.Wait()
}
