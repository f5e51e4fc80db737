// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/creachadair/taskgroup"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/pdus"
)

// ErrClosed is returned for operations on a closed ServiceUser.
var ErrClosed = errors.New("raf: service user closed")

// ReportRequest is the kind of a SCHEDULE-STATUS-REPORT invocation.
type ReportRequest int

const (
	ReportImmediately  ReportRequest = pdus.ReportImmediately
	ReportPeriodically ReportRequest = pdus.ReportPeriodically
	ReportStop         ReportRequest = pdus.ReportStop
)

func (r ReportRequest) String() string {
	switch r {
	case ReportImmediately:
		return "immediately"
	case ReportPeriodically:
		return "periodically"
	case ReportStop:
		return "stop"
	default:
		return fmt.Sprintf("unknown report request (%d)", int(r))
	}
}

// ServiceUser is the user side of one RAF service instance.
type ServiceUser struct {
	conf     Configuration
	consumer FrameConsumer

	mailbox   *mailbox
	closeSyn  chan struct{}
	closeOnce sync.Once
	tasks     *taskgroup.Group

	stateSnapshot atomic.Int32
	connected     atomic.Bool
	callbacks     atomic.Int32

	// The following fields are owned by the run goroutine.

	state        State
	deliveryMode DeliveryMode
	frameQuality RequestedFrameQuality
	monitors     []Monitor

	transport    Transport
	incoming     <-chan []byte
	outgoing     chan<- []byte
	transportErr <-chan error

	invokeIDs  sle.InvokeIDs
	starts     *sle.Correlator[struct{}]
	stops      *sle.Correlator[struct{}]
	schedules  *sle.Correlator[struct{}]
	parameters *sle.Correlator[Parameter]

	bindResult   func(struct{}, error)
	unbindResult func(struct{}, error)
}

// NewServiceUser for the Configuration, delivering frames and notifications
// to the FrameConsumer. The ServiceUser starts unbound and must be released
// by Close.
func NewServiceUser(conf Configuration, consumer FrameConsumer) (*ServiceUser, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if consumer == nil {
		return nil, fmt.Errorf("missing frame consumer")
	}

	su := &ServiceUser{
		conf:     conf,
		consumer: consumer,

		mailbox:  newMailbox(),
		closeSyn: make(chan struct{}),
		tasks:    taskgroup.New(nil),

		state:        StateUnbound,
		deliveryMode: conf.DeliveryMode,
		frameQuality: conf.RequestedFrameQuality,

		starts:     sle.NewCorrelator[struct{}](),
		stops:      sle.NewCorrelator[struct{}](),
		schedules:  sle.NewCorrelator[struct{}](),
		parameters: sle.NewCorrelator[Parameter](),
	}
	su.stateSnapshot.Store(int32(StateUnbound))

	su.tasks.Go(su.run)
	return su, nil
}

func (su *ServiceUser) log() *log.Entry {
	return log.WithFields(log.Fields{
		"service":  "raf",
		"instance": su.conf.Instance,
		"state":    su.State(),
	})
}

// State of the session. It may already be outdated when returned.
func (su *ServiceUser) State() State {
	return State(su.stateSnapshot.Load())
}

// IsConnected reports whether a transport is attached.
func (su *ServiceUser) IsConnected() bool {
	return su.connected.Load()
}

// Bind the service instance over the Transport. The ServiceUser owns the
// Transport from now on and closes it after UNBIND or an abort. If the
// ServiceUser is not unbound, the Future fails with a *sle.InvalidStateError
// and the Transport is left untouched.
func (su *ServiceUser) Bind(transport Transport) *sle.Future[struct{}] {
	return submit(su, func(complete func(struct{}, error)) {
		if su.state != StateUnbound {
			complete(struct{}{}, su.invalidState("BIND"))
			return
		}

		creds, err := su.issue(sle.AuthBind)
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		data, err := pdus.Marshal(&pdus.BindInvocation{
			InvokerCredentials:      creds,
			InitiatorIdentifier:     su.conf.InitiatorID,
			ResponderPortIdentifier: su.conf.ResponderPort,
			ServiceType:             int64(sle.ApplicationRtnAllFrames),
			VersionNumber:           int64(su.conf.version()),
			ServiceInstance:         su.conf.serviceInstance(su.deliveryMode),
		})
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		su.attach(transport)
		su.bindResult = complete
		su.setState(StateBindPending)
		su.transmit("BIND", data)
	})
}

// Unbind a ready session. The Transport is closed after the provider's return.
func (su *ServiceUser) Unbind(reason sle.UnbindReason) *sle.Future[struct{}] {
	return submit(su, func(complete func(struct{}, error)) {
		if su.state != StateReady {
			complete(struct{}{}, su.invalidState("UNBIND"))
			return
		}
		if !reason.IsValid() {
			complete(struct{}{}, fmt.Errorf("invalid unbind reason %d", reason))
			return
		}

		creds, err := su.issue(sle.AuthBind)
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		data, err := pdus.Marshal(&pdus.UnbindInvocation{InvokerCredentials: creds, Reason: int64(reason)})
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		su.unbindResult = complete
		su.setState(StateUnbindPending)
		su.transmit("UNBIND", data)
	})
}

// Start the delivery of frames with the current requested frame quality. Nil
// times are sent as undefined. START is only permitted while ready.
func (su *ServiceUser) Start(startTime, stopTime *sle.Time) *sle.Future[struct{}] {
	return submit(su, func(complete func(struct{}, error)) {
		if su.state != StateReady {
			complete(struct{}{}, su.invalidState("RAF-START"))
			return
		}

		creds, err := su.issue(sle.AuthAll)
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		id := su.invokeIDs.Issue(su.invokeIDInUse)
		data, err := pdus.Marshal(&pdus.RafStartInvocation{
			InvokerCredentials:    creds,
			InvokeID:              int64(id),
			StartTime:             startTime,
			StopTime:              stopTime,
			RequestedFrameQuality: int64(su.frameQuality),
		})
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		su.starts.Register(id, complete)
		su.setState(StateStarting)
		su.transmit("RAF-START", data)
	})
}

// Stop the delivery of frames of an active session.
func (su *ServiceUser) Stop() *sle.Future[struct{}] {
	return submit(su, func(complete func(struct{}, error)) {
		if su.state != StateActive {
			complete(struct{}{}, su.invalidState("STOP"))
			return
		}

		creds, err := su.issue(sle.AuthAll)
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		id := su.invokeIDs.Issue(su.invokeIDInUse)
		data, err := pdus.Marshal(&pdus.StopInvocation{InvokerCredentials: creds, InvokeID: int64(id)})
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		su.stops.Register(id, complete)
		su.setState(StateStopPending)
		su.transmit("STOP", data)
	})
}

// GetParameter queries a RAF parameter in any bound state.
func (su *ServiceUser) GetParameter(name sle.ParameterName) *sle.Future[Parameter] {
	return submit(su, func(complete func(Parameter, error)) {
		if !su.state.IsBound() {
			complete(nil, su.invalidState("RAF-GET-PARAMETER"))
			return
		}
		if _, ok := parameterChoices[name]; !ok {
			complete(nil, fmt.Errorf("%v is no RAF parameter", name))
			return
		}

		creds, err := su.issue(sle.AuthAll)
		if err != nil {
			complete(nil, err)
			return
		}

		id := su.invokeIDs.Issue(su.invokeIDInUse)
		data, err := pdus.Marshal(&pdus.RafGetParameterInvocation{
			InvokerCredentials: creds,
			InvokeID:           int64(id),
			Parameter:          int64(name),
		})
		if err != nil {
			complete(nil, err)
			return
		}

		su.parameters.Register(id, complete)
		su.transmit("RAF-GET-PARAMETER", data)
	})
}

// ScheduleStatusReport requests status reports in any bound state. The
// reporting cycle in seconds is only used for ReportPeriodically.
func (su *ServiceUser) ScheduleStatusReport(request ReportRequest, cycle int) *sle.Future[struct{}] {
	return submit(su, func(complete func(struct{}, error)) {
		if !su.state.IsBound() {
			complete(struct{}{}, su.invalidState("SCHEDULE-STATUS-REPORT"))
			return
		}
		if request < ReportImmediately || request > ReportStop {
			complete(struct{}{}, fmt.Errorf("invalid report request %d", request))
			return
		}

		creds, err := su.issue(sle.AuthAll)
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		id := su.invokeIDs.Issue(su.invokeIDInUse)
		data, err := pdus.Marshal(&pdus.ScheduleStatusReportInvocation{
			InvokerCredentials: creds,
			InvokeID:           int64(id),
			RequestType:        int(request),
			ReportingCycle:     int64(cycle),
		})
		if err != nil {
			complete(struct{}{}, err)
			return
		}

		su.schedules.Register(id, complete)
		su.transmit("SCHEDULE-STATUS-REPORT", data)
	})
}

// SetDeliveryMode changes the delivery mode, which selects the service
// instance at BIND. This is only permitted while unbound; otherwise a
// *sle.InvalidStateError is returned and the mode is unchanged.
//
// SetDeliveryMode waits for the ServiceUser's goroutine and must not be called
// from a callback.
func (su *ServiceUser) SetDeliveryMode(mode DeliveryMode) error {
	if !mode.isValid() {
		return fmt.Errorf("invalid delivery mode %d", mode)
	}

	f := submit(su, func(complete func(struct{}, error)) {
		if su.state != StateUnbound {
			complete(struct{}{}, su.invalidState("set delivery mode"))
			return
		}

		su.deliveryMode = mode
		complete(struct{}{}, nil)
	})

	_, err := f.Wait(context.Background())
	return err
}

// SetRequestedFrameQuality for the next START. A running delivery is not
// affected.
func (su *ServiceUser) SetRequestedFrameQuality(q RequestedFrameQuality) error {
	if !q.isValid() {
		return fmt.Errorf("invalid frame quality %d", q)
	}

	su.do(func() { su.frameQuality = q })
	return nil
}

// AddMonitor registers a Monitor. Monitors are called in the order of their
// registration.
func (su *ServiceUser) AddMonitor(m Monitor) {
	su.do(func() { su.monitors = append(su.monitors, m) })
}

// RemoveMonitor removes the first registration of a Monitor.
func (su *ServiceUser) RemoveMonitor(m Monitor) {
	su.do(func() {
		for i, registered := range su.monitors {
			if registered == m {
				su.monitors = append(su.monitors[:i:i], su.monitors[i+1:]...)
				return
			}
		}
	})
}

// Close the ServiceUser. A bound session is aborted with the diagnostic
// operationalRequirement, already queued operations fail with ErrClosed.
//
// Close waits until the session has ended. While a FrameConsumer or Monitor
// callback is running, for example when Close is called from one, Close only
// initiates the end and returns. A later Close waits again.
func (su *ServiceUser) Close() error {
	su.closeOnce.Do(func() {
		close(su.closeSyn)
	})

	if su.callbacks.Load() > 0 {
		return nil
	}
	return su.tasks.Wait()
}

func (su *ServiceUser) run() error {
	for {
		select {
		case <-su.closeSyn:
			su.shutdown()
			return nil

		case <-su.mailbox.wake:
			su.runJobs()

		case data := <-su.incoming:
			su.handlePdu(data)

		case err := <-su.transportErr:
			su.transportFailed(err)
		}
	}
}

func (su *ServiceUser) runJobs() {
	for {
		j, ok := su.mailbox.next()
		if !ok {
			return
		}

		select {
		case <-su.closeSyn:
			j.reject(ErrClosed)
		default:
			j.run()
		}
	}
}

func (su *ServiceUser) shutdown() {
	if su.state != StateUnbound {
		su.abort(&sle.AbortError{Diagnostic: sle.PeerAbortOperationalRequirement, Err: ErrClosed}, true)
	}

	for _, j := range su.mailbox.close() {
		j.reject(ErrClosed)
	}
	su.log().Debug("Service user closed")
}

func (su *ServiceUser) invalidState(operation string) error {
	return &sle.InvalidStateError{Operation: operation, State: su.state.String()}
}

func (su *ServiceUser) invokeIDInUse(id sle.InvokeID) bool {
	return su.starts.Pending(id) || su.stops.Pending(id) || su.schedules.Pending(id) || su.parameters.Pending(id)
}

// setState changes the state and informs each StateMonitor.
func (su *ServiceUser) setState(state State) {
	if su.state == state {
		return
	}

	su.log().WithField("new state", state).Debug("Changing state")
	su.state = state
	su.stateSnapshot.Store(int32(state))

	for _, m := range su.monitors {
		if sm, ok := m.(StateMonitor); ok {
			su.callMonitor(m, func() { sm.OnStateChange(state) })
		}
	}
}

// callback runs a FrameConsumer or Monitor method on the run goroutine.
func (su *ServiceUser) callback(f func()) {
	su.callbacks.Add(1)
	defer su.callbacks.Add(-1)

	f()
}

// callMonitor isolates the session from a panicking Monitor.
func (su *ServiceUser) callMonitor(m Monitor, f func()) {
	defer func() {
		if r := recover(); r != nil {
			su.log().WithField("monitor", fmt.Sprintf("%T", m)).Errorf("Monitor panicked: %v", r)
		}
	}()

	su.callback(f)
}

// issue credentials for an outgoing PDU of the given authentication level.
func (su *ServiceUser) issue(level sle.AuthLevel) (sle.Credentials, error) {
	if su.conf.AuthLevel < level {
		return nil, nil
	}

	creds, err := su.conf.Authenticator.Issue()
	if err != nil {
		return nil, fmt.Errorf("issuing credentials: %w", err)
	}
	return creds, nil
}

// verify the credentials of an incoming PDU of the given authentication level.
func (su *ServiceUser) verify(level sle.AuthLevel, creds sle.Credentials) error {
	if su.conf.AuthLevel < level {
		return nil
	}

	if err := su.conf.Authenticator.Verify(creds); err != nil {
		return &sle.ProtocolError{Diagnostic: sle.PeerAbortAccessDenied, Err: err}
	}
	return nil
}

func (su *ServiceUser) attach(transport Transport) {
	su.transport = transport
	su.incoming, su.outgoing, su.transportErr = transport.Exchange()
	su.connected.Store(true)
}

// release closes the Transport, moves to unbound and informs each ConnectionMonitor.
func (su *ServiceUser) release(cause error) {
	if su.transport != nil {
		if err := su.transport.Close(); err != nil {
			su.log().WithError(err).Debug("Closing transport errored")
		}
	}

	su.transport = nil
	su.incoming, su.outgoing, su.transportErr = nil, nil, nil
	su.connected.Store(false)
	su.setState(StateUnbound)

	for _, m := range su.monitors {
		if cm, ok := m.(ConnectionMonitor); ok {
			su.callMonitor(m, func() { cm.OnDisconnect(cause) })
		}
	}
}

// transmit an encoded PDU. If the transport has already failed, the session is
// aborted and false is returned.
func (su *ServiceUser) transmit(name string, data []byte) bool {
	select {
	case su.outgoing <- data:
		pdusSent.WithLabelValues(name).Inc()
		su.log().WithField("pdu", name).Debug("Sent PDU")
		return true

	case err := <-su.transportErr:
		su.transportFailed(err)
		return false

	case <-su.closeSyn:
		return false
	}
}

func (su *ServiceUser) transportFailed(err error) {
	// The transport delivers the PDUs read before it failed first.
	for more := true; more && su.incoming != nil; {
		select {
		case data := <-su.incoming:
			su.handlePdu(data)
		default:
			more = false
		}
	}
	if su.transport == nil {
		return
	}

	su.log().WithError(err).Error("Transport failed")
	su.abort(&sle.AbortError{Diagnostic: sle.PeerAbortCommunicationsFailure, Err: err}, false)
}

// abort the session. Each outstanding invocation fails with cause; a PEER-ABORT
// is sent to the provider if send is true. Aborting an unbound session is a no-op.
func (su *ServiceUser) abort(cause *sle.AbortError, send bool) {
	if su.transport == nil {
		return
	}

	origin := "local"
	if cause.Remote {
		origin = "remote"
	}
	peerAborts.WithLabelValues(cause.Diagnostic.String(), origin).Inc()
	su.log().WithError(cause).Warn("Aborting session")

	if send {
		if data, err := pdus.Marshal(&pdus.PeerAbort{Diagnostic: int64(cause.Diagnostic)}); err == nil {
			select {
			case su.outgoing <- data:
				pdusSent.WithLabelValues("PEER-ABORT").Inc()
			default:
				su.log().Warn("Dropping PEER-ABORT for a congested transport")
			}
		}
	}

	su.starts.FailAll(cause)
	su.stops.FailAll(cause)
	su.schedules.FailAll(cause)
	su.parameters.FailAll(cause)

	if su.bindResult != nil {
		su.bindResult(struct{}{}, cause)
		su.bindResult = nil
	}
	if su.unbindResult != nil {
		su.unbindResult(struct{}{}, cause)
		su.unbindResult = nil
	}

	su.release(cause)
}

// protocolViolation aborts the session after an error by the provider.
func (su *ServiceUser) protocolViolation(err error) {
	diag := sle.PeerAbortProtocolError
	var pe *sle.ProtocolError
	if errors.As(err, &pe) {
		diag = pe.Diagnostic
	}

	su.abort(&sle.AbortError{Diagnostic: diag, Err: err}, true)
}
