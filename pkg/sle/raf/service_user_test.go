// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"errors"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/pdus"
)

func TestConfigurationValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Configuration)
		valid  bool
	}{
		{"default", func(*Configuration) {}, true},
		{"no initiator", func(c *Configuration) { c.InitiatorID = "" }, false},
		{"no port", func(c *Configuration) { c.ResponderPort = "" }, false},
		{"no agreement", func(c *Configuration) { c.ServiceAgreement = "" }, false},
		{"zero instance", func(c *Configuration) { c.Instance = 0 }, false},
		{"bad mode", func(c *Configuration) { c.DeliveryMode = 3 }, false},
		{"bad quality", func(c *Configuration) { c.RequestedFrameQuality = 7 }, false},
		{"bad version", func(c *Configuration) { c.Version = 0x10000 }, false},
		{"auth without authenticator", func(c *Configuration) { c.AuthLevel = sle.AuthBind }, false},
		{"auth with authenticator", func(c *Configuration) {
			c.AuthLevel = sle.AuthAll
			c.Authenticator = sle.NoAuthentication{}
		}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := testConfiguration()
			test.modify(&conf)

			if err := conf.Validate(); (err == nil) != test.valid {
				t.Fatalf("Validate returned %v, expected valid: %t", err, test.valid)
			}
		})
	}
}

func TestServiceInstance(t *testing.T) {
	conf := testConfiguration()

	for mode, expected := range map[DeliveryMode]string{
		TimelyOnline:   "sagr=1.spack=2.rsl-fg=3.raf=onlt1",
		CompleteOnline: "sagr=1.spack=2.rsl-fg=3.raf=onlc1",
		Offline:        "sagr=1.spack=2.rsl-fg=3.raf=offl1",
	} {
		if sii := conf.serviceInstance(mode).String(); sii != expected {
			t.Fatalf("%v: expected %q, got %q", mode, expected, sii)
		}
	}
}

func TestNewServiceUserInvalid(t *testing.T) {
	conf := testConfiguration()
	conf.InitiatorID = ""

	if _, err := NewServiceUser(conf, &testConsumer{}); err == nil {
		t.Fatal("NewServiceUser accepted an invalid configuration")
	}
	if _, err := NewServiceUser(testConfiguration(), nil); err == nil {
		t.Fatal("NewServiceUser accepted no consumer")
	}
}

func TestBindUnbind(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	monitor := &testMonitor{}
	su.AddMonitor(monitor)

	tp := newTestProvider()
	f := su.Bind(tp)

	inv, ok := tp.receive(t).(*pdus.BindInvocation)
	if !ok {
		t.Fatal("Expected BIND")
	}
	if inv.InitiatorIdentifier != "user" || inv.ResponderPortIdentifier != "port-raf" {
		t.Fatalf("BIND has wrong identifiers: %v", inv)
	}
	if inv.ServiceType != int64(sle.ApplicationRtnAllFrames) || inv.VersionNumber != DefaultVersion {
		t.Fatalf("BIND has wrong service type or version: %v", inv)
	}
	if sii := inv.ServiceInstance.String(); sii != "sagr=1.spack=2.rsl-fg=3.raf=onlt1" {
		t.Fatalf("BIND has wrong service instance %q", sii)
	}
	if !su.IsConnected() {
		t.Fatal("ServiceUser is not connected while binding")
	}

	tp.send(t, &pdus.BindReturn{ResponderIdentifier: "provider", Positive: true, VersionNumber: DefaultVersion})
	if _, err := wait(t, f); err != nil {
		t.Fatal(err)
	}

	fu := su.Unbind(sle.UnbindEnd)
	if unbind, ok := tp.receive(t).(*pdus.UnbindInvocation); !ok {
		t.Fatal("Expected UNBIND")
	} else if unbind.Reason != int64(sle.UnbindEnd) {
		t.Fatalf("UNBIND has reason %d", unbind.Reason)
	}
	tp.send(t, &pdus.UnbindReturn{})

	if _, err := wait(t, fu); err != nil {
		t.Fatal(err)
	}
	tp.waitClosed(t)

	if su.State() != StateUnbound || su.IsConnected() {
		t.Fatalf("ServiceUser is %v, connected: %t", su.State(), su.IsConnected())
	}

	expected := []State{StateBindPending, StateReady, StateUnbindPending, StateUnbound}
	monitor.mutex.Lock()
	defer monitor.mutex.Unlock()
	if diff := cmp.Diff(expected, monitor.states); diff != "" {
		t.Fatalf("State changes differ (-want +got):\n%s", diff)
	}
	if len(monitor.disconnects) != 1 || monitor.disconnects[0] != nil {
		t.Fatalf("Expected one clean disconnect, got %v", monitor.disconnects)
	}
}

func TestBindRejected(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := newTestProvider()
	f := su.Bind(tp)
	tp.receive(t)
	tp.send(t, &pdus.BindReturn{ResponderIdentifier: "provider", Diagnostic: int64(sle.BindSiAlreadyBound)})

	_, err := wait(t, f)
	var nre *sle.NegativeResultError
	if !errors.As(err, &nre) {
		t.Fatalf("Expected NegativeResultError, got %v", err)
	}
	if nre.Diagnostic != sle.BindSiAlreadyBound {
		t.Fatalf("Expected siAlreadyBound, got %v", nre.Diagnostic)
	}

	tp.waitClosed(t)
	if su.State() != StateUnbound {
		t.Fatalf("State after rejected BIND is %v", su.State())
	}
}

func TestBindUnexpectedResponder(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := newTestProvider()
	f := su.Bind(tp)
	tp.receive(t)
	tp.send(t, &pdus.BindReturn{ResponderIdentifier: "mallory", Positive: true, VersionNumber: DefaultVersion})

	if _, err := wait(t, f); !errors.Is(err, sle.ErrConnectionAborted) {
		t.Fatalf("Expected an aborted connection, got %v", err)
	}
	tp.expectAbort(t, sle.PeerAbortUnexpectedResponderID)
}

func TestBindTwice(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	bind(t, su)

	other := newTestProvider()
	_, err := wait(t, su.Bind(other))

	var ise *sle.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}
	other.silent(t)
}

func TestStartInvalidState(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	_, err := wait(t, su.Start(nil, nil))
	var ise *sle.InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("Expected InvalidStateError while unbound, got %v", err)
	}

	tp := bind(t, su)
	start(t, su, tp)

	if _, err := wait(t, su.Start(nil, nil)); !errors.As(err, &ise) {
		t.Fatalf("Expected InvalidStateError while active, got %v", err)
	}
	tp.silent(t)

	if su.State() != StateActive {
		t.Fatalf("State changed to %v", su.State())
	}
}

func TestStartNegative(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := bind(t, su)

	if err := su.SetRequestedFrameQuality(AllFrames); err != nil {
		t.Fatal(err)
	}

	startTime := sle.Time{Days: 23000, Picos: 1e12}
	f := su.Start(&startTime, nil)

	inv, ok := tp.receive(t).(*pdus.RafStartInvocation)
	if !ok {
		t.Fatal("Expected RAF-START")
	}
	if inv.RequestedFrameQuality != int64(AllFrames) {
		t.Fatalf("RAF-START requested %d", inv.RequestedFrameQuality)
	}
	if inv.StartTime == nil || *inv.StartTime != startTime || inv.StopTime != nil {
		t.Fatalf("RAF-START has wrong times %v, %v", inv.StartTime, inv.StopTime)
	}

	tp.send(t, &pdus.RafStartReturn{
		InvokeID:   inv.InvokeID,
		Diagnostic: pdus.Diagnostic{Specific: true, Code: int64(StartUnableToComply)},
	})

	_, err := wait(t, f)
	var nre *sle.NegativeResultError
	if !errors.As(err, &nre) {
		t.Fatalf("Expected NegativeResultError, got %v", err)
	}
	if nre.Diagnostic != StartUnableToComply {
		t.Fatalf("Expected unableToComply, got %v", nre.Diagnostic)
	}
	if su.State() != StateReady {
		t.Fatalf("State after rejected RAF-START is %v", su.State())
	}
}

func TestStartReturnWhileActive(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := bind(t, su)
	start(t, su, tp)

	tp.send(t, &pdus.RafStartReturn{InvokeID: 1, Positive: true})
	tp.expectAbort(t, sle.PeerAbortProtocolError)

	waitState(t, su, StateUnbound)
}

func TestStop(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := bind(t, su)
	start(t, su, tp)

	f := su.Stop()
	inv, ok := tp.receive(t).(*pdus.StopInvocation)
	if !ok {
		t.Fatal("Expected STOP")
	}
	if su.State() != StateStopPending {
		t.Fatalf("State while stopping is %v", su.State())
	}
	tp.send(t, &pdus.StopReturn{InvokeID: inv.InvokeID, Diagnostic: int64(sle.DiagnosticOtherReason)})

	_, err := wait(t, f)
	var nre *sle.NegativeResultError
	if !errors.As(err, &nre) || nre.Diagnostic != sle.DiagnosticOtherReason {
		t.Fatalf("Expected NegativeResultError with otherReason, got %v", err)
	}
	if su.State() != StateActive {
		t.Fatalf("State after rejected STOP is %v", su.State())
	}

	f = su.Stop()
	inv = tp.receive(t).(*pdus.StopInvocation)
	tp.send(t, &pdus.StopReturn{InvokeID: inv.InvokeID, Positive: true})

	if _, err := wait(t, f); err != nil {
		t.Fatal(err)
	}
	if su.State() != StateReady {
		t.Fatalf("State after STOP is %v", su.State())
	}
}

func TestGetParameterOutOfOrder(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := bind(t, su)

	f1 := su.GetParameter(sle.ParameterBufferSize)
	inv1 := tp.receive(t).(*pdus.RafGetParameterInvocation)
	f2 := su.GetParameter(sle.ParameterDeliveryMode)
	inv2 := tp.receive(t).(*pdus.RafGetParameterInvocation)

	if inv1.InvokeID == inv2.InvokeID {
		t.Fatalf("Both invocations use invoke id %d", inv1.InvokeID)
	}

	tp.send(t, &pdus.RafGetParameterReturn{
		InvokeID:  inv2.InvokeID,
		Positive:  true,
		Parameter: pdus.RafGetParameter{Choice: pdus.ParDeliveryMode, Name: int64(sle.ParameterDeliveryMode), Value: 1},
	})
	tp.send(t, &pdus.RafGetParameterReturn{
		InvokeID:  inv1.InvokeID,
		Positive:  true,
		Parameter: pdus.RafGetParameter{Choice: pdus.ParBufferSize, Name: int64(sle.ParameterBufferSize), Value: 20},
	})

	if par, err := wait(t, f2); err != nil {
		t.Fatal(err)
	} else if par != (DeliveryModeParameter{Mode: CompleteOnline}) {
		t.Fatalf("Expected complete online delivery, got %v", par)
	}
	if par, err := wait(t, f1); err != nil {
		t.Fatal(err)
	} else if par != (BufferSize{Frames: 20}) {
		t.Fatalf("Expected a buffer size of 20, got %v", par)
	}
}

func TestGetParameterNegative(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := bind(t, su)

	f := su.GetParameter(sle.ParameterLatencyLimit)
	inv := tp.receive(t).(*pdus.RafGetParameterInvocation)
	tp.send(t, &pdus.RafGetParameterReturn{
		InvokeID:   inv.InvokeID,
		Diagnostic: pdus.Diagnostic{Specific: true, Code: int64(GetParameterUnknownParameter)},
	})

	_, err := wait(t, f)
	var nre *sle.NegativeResultError
	if !errors.As(err, &nre) || nre.Diagnostic != GetParameterUnknownParameter {
		t.Fatalf("Expected NegativeResultError with unknownParameter, got %v", err)
	}

	if _, err := wait(t, su.GetParameter(sle.ParameterName(12345))); err == nil {
		t.Fatal("Querying an unknown parameter succeeded")
	}
	tp.silent(t)
}

func TestUnknownInvokeID(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := bind(t, su)

	f1 := su.GetParameter(sle.ParameterBufferSize)
	inv1 := tp.receive(t).(*pdus.RafGetParameterInvocation)
	f2 := su.ScheduleStatusReport(ReportImmediately, 0)
	inv2 := tp.receive(t).(*pdus.ScheduleStatusReportInvocation)

	unknown := inv1.InvokeID + inv2.InvokeID + 1
	tp.send(t, &pdus.RafGetParameterReturn{
		InvokeID:  unknown,
		Positive:  true,
		Parameter: pdus.RafGetParameter{Choice: pdus.ParBufferSize, Name: int64(sle.ParameterBufferSize), Value: 1},
	})
	tp.expectAbort(t, sle.PeerAbortUnsolicitedInvokeID)

	for _, err := range []error{errOf(wait(t, f1)), errOf(wait(t, f2))} {
		var ae *sle.AbortError
		if !errors.Is(err, sle.ErrConnectionAborted) || !errors.As(err, &ae) {
			t.Fatalf("Expected an aborted connection, got %v", err)
		}
		if ae.Remote || ae.Diagnostic != sle.PeerAbortUnsolicitedInvokeID {
			t.Fatalf("Unexpected abort %v", ae)
		}
	}
	waitState(t, su, StateUnbound)
}

func errOf[T any](_ T, err error) error {
	return err
}

func TestScheduleStatusReport(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := bind(t, su)

	f := su.ScheduleStatusReport(ReportPeriodically, 10)
	inv := tp.receive(t).(*pdus.ScheduleStatusReportInvocation)
	if inv.RequestType != pdus.ReportPeriodically || inv.ReportingCycle != 10 {
		t.Fatalf("Unexpected invocation %v", inv)
	}
	tp.send(t, &pdus.ScheduleStatusReportReturn{InvokeID: inv.InvokeID, Positive: true})
	if _, err := wait(t, f); err != nil {
		t.Fatal(err)
	}

	f = su.ScheduleStatusReport(ReportStop, 0)
	inv = tp.receive(t).(*pdus.ScheduleStatusReportInvocation)
	tp.send(t, &pdus.ScheduleStatusReportReturn{
		InvokeID:   inv.InvokeID,
		Diagnostic: pdus.Diagnostic{Specific: true, Code: int64(ScheduleAlreadyStopped)},
	})

	_, err := wait(t, f)
	var nre *sle.NegativeResultError
	if !errors.As(err, &nre) || nre.Diagnostic != ScheduleAlreadyStopped {
		t.Fatalf("Expected NegativeResultError with alreadyStopped, got %v", err)
	}
}

func TestStatusReport(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	var order []string
	m1 := &testMonitor{name: "first", panic: true, log: &order}
	m2 := &testMonitor{name: "second", log: &order}
	su.AddMonitor(m1)
	su.AddMonitor(m2)

	tp := bind(t, su)
	tp.send(t, &pdus.RafStatusReportInvocation{
		ErrorFreeFrameNumber: 100,
		DeliveredFrameNumber: 98,
		FrameSyncLock:        int64(InLock),
		SymbolSyncLock:       int64(InLock),
		SubcarrierLock:       int64(NotInUse),
		CarrierLock:          int64(OutOfLock),
		ProductionStatus:     int64(ProductionRunning),
	})

	deadline := time.Now().Add(testTimeout)
	for len(m2.Reports()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Second monitor received no status report")
		}
		time.Sleep(time.Millisecond)
	}

	expected := StatusReport{
		ErrorFreeFrames:  100,
		DeliveredFrames:  98,
		FrameSyncLock:    InLock,
		SymbolSyncLock:   InLock,
		SubcarrierLock:   NotInUse,
		CarrierLock:      OutOfLock,
		ProductionStatus: ProductionRunning,
	}
	if diff := cmp.Diff([]StatusReport{expected}, m2.Reports()); diff != "" {
		t.Fatalf("Status reports differ (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"first", "second"}, order); diff != "" {
		t.Fatalf("Monitor order differs (-want +got):\n%s", diff)
	}

	su.RemoveMonitor(m1)
	tp.send(t, &pdus.RafStatusReportInvocation{ProductionStatus: int64(ProductionHalted)})

	deadline = time.Now().Add(testTimeout)
	for len(m2.Reports()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("Second monitor received no second status report")
		}
		time.Sleep(time.Millisecond)
	}
	if n := len(m1.Reports()); n != 1 {
		t.Fatalf("Removed monitor received %d reports", n)
	}
	if su.State() != StateReady {
		t.Fatalf("State after status reports is %v", su.State())
	}
}

func TestStatusReportInvalidCodes(t *testing.T) {
	valid := func() *pdus.RafStatusReportInvocation {
		return &pdus.RafStatusReportInvocation{
			FrameSyncLock:    int64(InLock),
			SymbolSyncLock:   int64(InLock),
			SubcarrierLock:   int64(InLock),
			CarrierLock:      int64(InLock),
			ProductionStatus: int64(ProductionRunning),
		}
	}

	tests := []struct {
		name   string
		modify func(*pdus.RafStatusReportInvocation)
	}{
		{"frame sync lock", func(r *pdus.RafStatusReportInvocation) { r.FrameSyncLock = 5 }},
		{"frame sync not in use", func(r *pdus.RafStatusReportInvocation) { r.FrameSyncLock = int64(NotInUse) }},
		{"symbol sync not in use", func(r *pdus.RafStatusReportInvocation) { r.SymbolSyncLock = int64(NotInUse) }},
		{"carrier not in use", func(r *pdus.RafStatusReportInvocation) { r.CarrierLock = int64(NotInUse) }},
		{"subcarrier lock", func(r *pdus.RafStatusReportInvocation) { r.SubcarrierLock = 4 }},
		{"production status", func(r *pdus.RafStatusReportInvocation) { r.ProductionStatus = 3 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer leaktest.Check(t)()

			su, _ := newTestUser(t, testConfiguration())
			defer su.Close()

			monitor := &testMonitor{}
			su.AddMonitor(monitor)

			tp := bind(t, su)
			report := valid()
			test.modify(report)
			tp.send(t, report)

			tp.expectAbort(t, sle.PeerAbortEncodingError)
			waitState(t, su, StateUnbound)

			if reports := monitor.Reports(); len(reports) != 0 {
				t.Fatalf("Monitor received %v", reports)
			}
		})
	}
}

func TestRemotePeerAbort(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	monitor := &testMonitor{}
	su.AddMonitor(monitor)

	tp := bind(t, su)
	f := su.GetParameter(sle.ParameterReturnTimeoutPeriod)
	tp.receive(t)

	tp.send(t, &pdus.PeerAbort{Diagnostic: int64(sle.PeerAbortEndOfServiceProvisionPeriod)})

	_, err := wait(t, f)
	var ae *sle.AbortError
	if !errors.As(err, &ae) {
		t.Fatalf("Expected AbortError, got %v", err)
	}
	if !ae.Remote || ae.Diagnostic != sle.PeerAbortEndOfServiceProvisionPeriod {
		t.Fatalf("Unexpected abort %v", ae)
	}

	tp.waitClosed(t)
	tp.silent(t)
	waitState(t, su, StateUnbound)

	monitor.mutex.Lock()
	defer monitor.mutex.Unlock()
	if len(monitor.disconnects) != 1 || !errors.Is(monitor.disconnects[0], sle.ErrConnectionAborted) {
		t.Fatalf("Unexpected disconnects %v", monitor.disconnects)
	}
}

func TestTransportFailure(t *testing.T) {
	defer leaktest.Check(t)()

	su, consumer := newTestUser(t, testConfiguration())
	defer su.Close()

	monitor := &testMonitor{}
	su.AddMonitor(monitor)

	tp := bind(t, su)
	start(t, su, tp)

	tp.send(t, &pdus.RafTransferBuffer{Units: []pdus.FrameOrNotification{testFrame("last")}})
	tp.errChan <- errors.New("connection reset")

	tp.waitClosed(t)
	tp.silent(t)
	waitState(t, su, StateUnbound)

	if diff := cmp.Diff([]string{"frame last"}, consumer.Events()); diff != "" {
		t.Fatalf("Events differ (-want +got):\n%s", diff)
	}

	monitor.mutex.Lock()
	defer monitor.mutex.Unlock()

	var ae *sle.AbortError
	if len(monitor.disconnects) != 1 || !errors.As(monitor.disconnects[0], &ae) {
		t.Fatalf("Unexpected disconnects %v", monitor.disconnects)
	}
	if ae.Diagnostic != sle.PeerAbortCommunicationsFailure {
		t.Fatalf("Unexpected abort diagnostic %v", ae.Diagnostic)
	}
}

func TestUnexpectedPduWhileBinding(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := newTestProvider()
	f := su.Bind(tp)
	tp.receive(t)

	tp.send(t, &pdus.RafStatusReportInvocation{})
	tp.expectAbort(t, sle.PeerAbortProtocolError)

	if _, err := wait(t, f); !errors.Is(err, sle.ErrConnectionAborted) {
		t.Fatalf("Expected an aborted connection, got %v", err)
	}
}

func TestUndecodablePdu(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	tp := bind(t, su)
	tp.incoming <- []byte{0xBF, 0x32, 0x00}
	tp.expectAbort(t, sle.PeerAbortEncodingError)
}

func testAuthenticators() (user, provider *sle.Isp1Authentication) {
	user = &sle.Isp1Authentication{
		LocalID:       "user",
		LocalPassword: []byte("user-secret"),
		PeerID:        "provider",
		PeerPassword:  []byte("provider-secret"),
	}
	provider = &sle.Isp1Authentication{
		LocalID:       "provider",
		LocalPassword: []byte("provider-secret"),
		PeerID:        "user",
		PeerPassword:  []byte("user-secret"),
	}
	return
}

func TestAuthentication(t *testing.T) {
	defer leaktest.Check(t)()

	userAuth, providerAuth := testAuthenticators()

	conf := testConfiguration()
	conf.AuthLevel = sle.AuthAll
	conf.Authenticator = userAuth

	su, consumer := newTestUser(t, conf)
	defer su.Close()

	tp := newTestProvider()
	f := su.Bind(tp)

	inv := tp.receive(t).(*pdus.BindInvocation)
	if err := providerAuth.Verify(inv.InvokerCredentials); err != nil {
		t.Fatalf("BIND credentials are invalid: %v", err)
	}

	creds, err := providerAuth.Issue()
	if err != nil {
		t.Fatal(err)
	}
	tp.send(t, &pdus.BindReturn{
		PerformerCredentials: creds,
		ResponderIdentifier:  "provider",
		Positive:             true,
		VersionNumber:        DefaultVersion,
	})
	if _, err := wait(t, f); err != nil {
		t.Fatal(err)
	}

	frame := testFrame("authentic")
	if frame.Frame.InvokerCredentials, err = providerAuth.Issue(); err != nil {
		t.Fatal(err)
	}
	tp.send(t, &pdus.RafTransferBuffer{Units: []pdus.FrameOrNotification{frame}})

	forged := &sle.Isp1Authentication{
		LocalID:       "provider",
		LocalPassword: []byte("guessed"),
		PeerID:        "user",
		PeerPassword:  []byte("user-secret"),
	}
	frame = testFrame("forged")
	if frame.Frame.InvokerCredentials, err = forged.Issue(); err != nil {
		t.Fatal(err)
	}
	tp.send(t, &pdus.RafTransferBuffer{Units: []pdus.FrameOrNotification{frame}})

	tp.expectAbort(t, sle.PeerAbortAccessDenied)
	if diff := cmp.Diff([]string{"frame authentic"}, consumer.Events()); diff != "" {
		t.Fatalf("Events differ (-want +got):\n%s", diff)
	}
}

func TestMissingCredentials(t *testing.T) {
	defer leaktest.Check(t)()

	userAuth, _ := testAuthenticators()

	conf := testConfiguration()
	conf.AuthLevel = sle.AuthBind
	conf.Authenticator = userAuth

	su, _ := newTestUser(t, conf)
	defer su.Close()

	tp := newTestProvider()
	f := su.Bind(tp)
	tp.receive(t)
	tp.send(t, &pdus.BindReturn{ResponderIdentifier: "provider", Positive: true, VersionNumber: DefaultVersion})

	if _, err := wait(t, f); !errors.Is(err, sle.ErrConnectionAborted) {
		t.Fatalf("Expected an aborted connection, got %v", err)
	}
	tp.expectAbort(t, sle.PeerAbortAccessDenied)
}

func TestSetDeliveryMode(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())
	defer su.Close()

	if err := su.SetDeliveryMode(DeliveryMode(9)); err == nil {
		t.Fatal("Invalid delivery mode was accepted")
	}
	if err := su.SetDeliveryMode(CompleteOnline); err != nil {
		t.Fatal(err)
	}

	tp := newTestProvider()
	f := su.Bind(tp)

	inv := tp.receive(t).(*pdus.BindInvocation)
	if sii := inv.ServiceInstance.String(); sii != "sagr=1.spack=2.rsl-fg=3.raf=onlc1" {
		t.Fatalf("BIND has wrong service instance %q", sii)
	}
	tp.send(t, &pdus.BindReturn{ResponderIdentifier: "provider", Positive: true, VersionNumber: DefaultVersion})
	if _, err := wait(t, f); err != nil {
		t.Fatal(err)
	}

	var ise *sle.InvalidStateError
	if err := su.SetDeliveryMode(Offline); !errors.As(err, &ise) {
		t.Fatalf("Expected InvalidStateError, got %v", err)
	}

	fu := su.Unbind(sle.UnbindEnd)
	if _, ok := tp.receive(t).(*pdus.UnbindInvocation); !ok {
		t.Fatal("Expected UNBIND")
	}
	tp.send(t, &pdus.UnbindReturn{})
	if _, err := wait(t, fu); err != nil {
		t.Fatal(err)
	}
	tp.waitClosed(t)

	// The rejected mode did not replace the previous one.
	tp = newTestProvider()
	f = su.Bind(tp)

	inv = tp.receive(t).(*pdus.BindInvocation)
	if sii := inv.ServiceInstance.String(); sii != "sagr=1.spack=2.rsl-fg=3.raf=onlc1" {
		t.Fatalf("BIND after rejected change has service instance %q", sii)
	}
	tp.send(t, &pdus.BindReturn{ResponderIdentifier: "provider", Positive: true, VersionNumber: DefaultVersion})
	if _, err := wait(t, f); err != nil {
		t.Fatal(err)
	}
}

// closingConsumer closes its ServiceUser on the first frame.
type closingConsumer struct {
	*testConsumer
	su *ServiceUser
}

func (cc *closingConsumer) AcceptFrame(f Frame) {
	cc.testConsumer.AcceptFrame(f)
	if err := cc.su.Close(); err != nil {
		panic(err)
	}
}

func TestCloseFromCallback(t *testing.T) {
	defer leaktest.Check(t)()

	consumer := &closingConsumer{testConsumer: &testConsumer{}}
	su, err := NewServiceUser(testConfiguration(), consumer)
	if err != nil {
		t.Fatal(err)
	}
	consumer.su = su

	tp := bind(t, su)
	start(t, su, tp)

	tp.send(t, &pdus.RafTransferBuffer{Units: []pdus.FrameOrNotification{testFrame("F1"), testFrame("F2")}})
	tp.expectAbort(t, sle.PeerAbortOperationalRequirement)

	done := make(chan error)
	go func() { done <- su.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(testTimeout):
		t.Fatal("Close blocked")
	}

	if diff := cmp.Diff([]string{"frame F1"}, consumer.Events()); diff != "" {
		t.Fatalf("Events differ (-want +got):\n%s", diff)
	}
	if su.State() != StateUnbound {
		t.Fatalf("State after Close is %v", su.State())
	}
}

func TestClose(t *testing.T) {
	defer leaktest.Check(t)()

	su, _ := newTestUser(t, testConfiguration())

	tp := bind(t, su)
	f := su.GetParameter(sle.ParameterBufferSize)
	tp.receive(t)

	if err := su.Close(); err != nil {
		t.Fatal(err)
	}
	tp.expectAbort(t, sle.PeerAbortOperationalRequirement)

	if _, err := wait(t, f); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed as the cause, got %v", err)
	}
	if _, err := wait(t, su.Start(nil, nil)); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
	if err := su.SetDeliveryMode(Offline); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed, got %v", err)
	}
	if su.State() != StateUnbound {
		t.Fatalf("State after Close is %v", su.State())
	}

	if err := su.Close(); err != nil {
		t.Fatal(err)
	}
}
