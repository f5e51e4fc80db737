// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/pdus"
)

const testTimeout = time.Second

// testProvider is the provider's end of an in-memory Transport.
type testProvider struct {
	incoming chan []byte
	outgoing chan []byte
	errChan  chan error

	closed    chan struct{}
	closeOnce sync.Once
}

func newTestProvider() *testProvider {
	return &testProvider{
		incoming: make(chan []byte, 64),
		outgoing: make(chan []byte, 64),
		errChan:  make(chan error, 1),
		closed:   make(chan struct{}),
	}
}

func (tp *testProvider) Exchange() (incoming <-chan []byte, outgoing chan<- []byte, errChan <-chan error) {
	return tp.incoming, tp.outgoing, tp.errChan
}

func (tp *testProvider) Close() error {
	tp.closeOnce.Do(func() { close(tp.closed) })
	return nil
}

// send a PDU to the user.
func (tp *testProvider) send(t *testing.T, pdu pdus.PDU) {
	t.Helper()

	data, err := pdus.Marshal(pdu)
	if err != nil {
		t.Fatal(err)
	}
	tp.incoming <- data
}

// receive the next PDU sent by the user.
func (tp *testProvider) receive(t *testing.T) pdus.PDU {
	t.Helper()

	select {
	case data := <-tp.outgoing:
		pdu, err := pdus.UserToProvider.Unmarshal(data)
		if err != nil {
			t.Fatal(err)
		}
		return pdu

	case <-time.After(testTimeout):
		t.Fatal("timeout while waiting for a PDU")
	}
	return nil
}

// silent checks that the user sends nothing for a moment.
func (tp *testProvider) silent(t *testing.T) {
	t.Helper()

	select {
	case data := <-tp.outgoing:
		pdu, _ := pdus.UserToProvider.Unmarshal(data)
		t.Fatalf("Unexpected PDU %v", pdu)
	case <-time.After(50 * time.Millisecond):
	}
}

// expectAbort receives a PEER-ABORT and waits for the transport's closing.
func (tp *testProvider) expectAbort(t *testing.T, diag sle.PeerAbortDiagnostic) {
	t.Helper()

	pdu := tp.receive(t)
	if abort, ok := pdu.(*pdus.PeerAbort); !ok {
		t.Fatalf("Expected PEER-ABORT, got %v", pdu)
	} else if sle.PeerAbortDiagnostic(abort.Diagnostic) != diag {
		t.Fatalf("Expected PEER-ABORT with %v, got %v", diag, sle.PeerAbortDiagnostic(abort.Diagnostic))
	}

	tp.waitClosed(t)
}

func (tp *testProvider) waitClosed(t *testing.T) {
	t.Helper()

	select {
	case <-tp.closed:
	case <-time.After(testTimeout):
		t.Fatal("timeout while waiting for the transport's closing")
	}
}

// testConsumer records all callbacks as strings.
type testConsumer struct {
	mutex  sync.Mutex
	events []string
}

func (tc *testConsumer) record(format string, a ...interface{}) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	tc.events = append(tc.events, fmt.Sprintf(format, a...))
}

func (tc *testConsumer) Events() []string {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	return append([]string(nil), tc.events...)
}

func (tc *testConsumer) AcceptFrame(f Frame) { tc.record("frame %s", f.Data) }

func (tc *testConsumer) OnLossFrameSync(t sle.Time, carrier, subcarrier, symbol LockStatus) {
	tc.record("loss %d %v %v %v", t.Days, carrier, subcarrier, symbol)
}

func (tc *testConsumer) OnProductionStatusChange(status ProductionStatus) {
	tc.record("production %v", status)
}

func (tc *testConsumer) OnExcessiveDataBacklog() { tc.record("backlog") }

func (tc *testConsumer) OnEndOfData() { tc.record("end") }

// testMonitor records status reports, states and disconnects.
type testMonitor struct {
	name  string
	panic bool

	mutex       sync.Mutex
	reports     []StatusReport
	states      []State
	disconnects []error
	log         *[]string
}

func (tm *testMonitor) OnStatusReport(report StatusReport) {
	tm.mutex.Lock()
	tm.reports = append(tm.reports, report)
	if tm.log != nil {
		*tm.log = append(*tm.log, tm.name)
	}
	tm.mutex.Unlock()

	if tm.panic {
		panic("misbehaving monitor")
	}
}

func (tm *testMonitor) OnStateChange(state State) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.states = append(tm.states, state)
}

func (tm *testMonitor) OnDisconnect(err error) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.disconnects = append(tm.disconnects, err)
}

func (tm *testMonitor) Reports() []StatusReport {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	return append([]StatusReport(nil), tm.reports...)
}

func testConfiguration() Configuration {
	return Configuration{
		InitiatorID:      "user",
		ResponderID:      "provider",
		ResponderPort:    "port-raf",
		ServiceAgreement: "1",
		ServicePackage:   "2",
		FunctionalGroup:  "3",
		Instance:         1,
		DeliveryMode:     TimelyOnline,
		AuthLevel:        sle.AuthNone,
	}
}

func newTestUser(t *testing.T, conf Configuration) (*ServiceUser, *testConsumer) {
	t.Helper()

	consumer := &testConsumer{}
	su, err := NewServiceUser(conf, consumer)
	if err != nil {
		t.Fatal(err)
	}
	return su, consumer
}

func wait[T any](t *testing.T, f *sle.Future[T]) (T, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	v, err := f.Wait(ctx)
	if err == context.DeadlineExceeded {
		t.Fatal("timeout while waiting for a future")
	}
	return v, err
}

func waitState(t *testing.T, su *ServiceUser, state State) {
	t.Helper()

	deadline := time.Now().Add(testTimeout)
	for su.State() != state {
		if time.Now().After(deadline) {
			t.Fatalf("Expected state %v, got %v", state, su.State())
		}
		time.Sleep(time.Millisecond)
	}
}

// bind the ServiceUser to a new testProvider.
func bind(t *testing.T, su *ServiceUser) *testProvider {
	t.Helper()

	tp := newTestProvider()
	f := su.Bind(tp)

	pdu := tp.receive(t)
	if _, ok := pdu.(*pdus.BindInvocation); !ok {
		t.Fatalf("Expected BIND, got %v", pdu)
	}
	tp.send(t, &pdus.BindReturn{ResponderIdentifier: "provider", Positive: true, VersionNumber: DefaultVersion})

	if _, err := wait(t, f); err != nil {
		t.Fatal(err)
	}
	if state := su.State(); state != StateReady {
		t.Fatalf("State after BIND is %v", state)
	}
	return tp
}

// start the delivery of a bound ServiceUser.
func start(t *testing.T, su *ServiceUser, tp *testProvider) {
	t.Helper()

	f := su.Start(nil, nil)

	pdu := tp.receive(t)
	inv, ok := pdu.(*pdus.RafStartInvocation)
	if !ok {
		t.Fatalf("Expected RAF-START, got %v", pdu)
	}
	tp.send(t, &pdus.RafStartReturn{InvokeID: inv.InvokeID, Positive: true})

	if _, err := wait(t, f); err != nil {
		t.Fatal(err)
	}
	if state := su.State(); state != StateActive {
		t.Fatalf("State after RAF-START is %v", state)
	}
}

func testFrame(data string) pdus.FrameOrNotification {
	return pdus.FrameOrNotification{Frame: &pdus.RafTransferDataInvocation{
		EarthReceiveTime:      sle.Time{Days: 23000},
		AntennaID:             pdus.AntennaID{Local: []byte("ant")},
		DataLinkContinuity:    0,
		DeliveredFrameQuality: int64(FrameGood),
		Data:                  []byte(data),
	}}
}

func testNotification(n pdus.Notification) pdus.FrameOrNotification {
	return pdus.FrameOrNotification{Notification: &pdus.RafSyncNotifyInvocation{Notification: n}}
}
