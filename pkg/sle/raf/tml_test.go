// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/pdus"
	"github.com/dtn7/sle-go/pkg/sle/tml"
)

// pipeProvider is a provider speaking TML on its end of a net.Pipe.
type pipeProvider struct {
	conn net.Conn
	pdus chan pdus.PDU
}

func newPipeProvider(conn net.Conn) *pipeProvider {
	pp := &pipeProvider{
		conn: conn,
		pdus: make(chan pdus.PDU, 256),
	}

	go func() {
		defer close(pp.pdus)
		for {
			msg, err := tml.ReadMessage(conn, 1<<16)
			if err != nil {
				return
			}
			pduMsg, ok := msg.(*tml.PduMessage)
			if !ok {
				continue
			}
			pdu, err := pdus.UserToProvider.Unmarshal(pduMsg.Data)
			if err != nil {
				return
			}
			pp.pdus <- pdu
		}
	}()

	return pp
}

func (pp *pipeProvider) write(pdu pdus.PDU) error {
	data, err := pdus.Marshal(pdu)
	if err != nil {
		return err
	}
	return tml.NewPduMessage(data).Marshal(pp.conn)
}

func (pp *pipeProvider) send(t *testing.T, pdu pdus.PDU) {
	t.Helper()

	if err := pp.write(pdu); err != nil {
		t.Fatal(err)
	}
}

func (pp *pipeProvider) receive(t *testing.T, timeout time.Duration) pdus.PDU {
	t.Helper()

	select {
	case pdu, ok := <-pp.pdus:
		if !ok {
			t.Fatal("provider's stream was closed")
		}
		return pdu
	case <-time.After(timeout):
		t.Fatal("timeout while waiting for a PDU")
	}
	return nil
}

func isBind(pdu pdus.PDU) bool {
	_, ok := pdu.(*pdus.BindInvocation)
	return ok
}

// slowConsumer takes its time for every frame.
type slowConsumer struct {
	*testConsumer
	delay time.Duration
}

func (sc slowConsumer) AcceptFrame(f Frame) {
	time.Sleep(sc.delay)
	sc.testConsumer.AcceptFrame(f)
}

func TestOperationsWhileFlooded(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	userEnd, providerEnd := net.Pipe()
	defer providerEnd.Close()
	pp := newPipeProvider(providerEnd)

	tmlConf := tml.DefaultConfiguration()
	tmlConf.HeartbeatInterval = 0
	tmlConf.DeadFactor = 0
	conn, err := tml.NewConn(userEnd, "pipe", tmlConf)
	if err != nil {
		t.Fatal(err)
	}

	consumer := slowConsumer{testConsumer: &testConsumer{}, delay: 2 * time.Millisecond}
	su, err := NewServiceUser(testConfiguration(), consumer)
	if err != nil {
		t.Fatal(err)
	}

	bindFuture := su.Bind(conn)
	if pdu := pp.receive(t, testTimeout); !isBind(pdu) {
		t.Fatalf("Expected BIND, got %v", pdu)
	}
	pp.send(t, &pdus.BindReturn{ResponderIdentifier: "provider", Positive: true, VersionNumber: DefaultVersion})
	if _, err := wait(t, bindFuture); err != nil {
		t.Fatal(err)
	}

	startFuture := su.Start(nil, nil)
	inv, ok := pp.receive(t, testTimeout).(*pdus.RafStartInvocation)
	if !ok {
		t.Fatal("Expected RAF-START")
	}
	pp.send(t, &pdus.RafStartReturn{InvokeID: inv.InvokeID, Positive: true})
	if _, err := wait(t, startFuture); err != nil {
		t.Fatal(err)
	}

	// The flood outlasts the operations below and ends with the closed pipe.
	go func() {
		for i := 0; i < 200; i++ {
			buf := &pdus.RafTransferBuffer{Units: []pdus.FrameOrNotification{testFrame(fmt.Sprintf("F%d", i))}}
			if err := pp.write(buf); err != nil {
				return
			}
		}
	}()

	const operations = 100
	for i := 0; i < operations; i++ {
		_ = su.GetParameter(sle.ParameterBufferSize)
	}

	deadline := time.After(5 * time.Second)
	for received := 0; received < operations; {
		select {
		case pdu, ok := <-pp.pdus:
			if !ok {
				t.Fatalf("Provider's stream was closed after %d RAF-GET-PARAMETER", received)
			}
			if _, ok := pdu.(*pdus.RafGetParameterInvocation); ok {
				received++
			}
		case <-deadline:
			t.Fatalf("Provider received only %d of %d RAF-GET-PARAMETER", received, operations)
		}
	}

	if err := su.Close(); err != nil {
		t.Fatal(err)
	}
	if state := su.State(); state != StateUnbound {
		t.Fatalf("State after Close is %v", state)
	}
}
