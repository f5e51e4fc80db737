// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"fmt"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/pdus"
)

// handlePdu decodes and dispatches one PDU of the provider. Each error aborts the session.
func (su *ServiceUser) handlePdu(data []byte) {
	pdu, err := pdus.ProviderToUser.Unmarshal(data)
	if err != nil {
		su.log().WithError(err).Warn("Received an undecodable PDU")
		su.protocolViolation(&sle.ProtocolError{Diagnostic: sle.PeerAbortEncodingError, Err: err})
		return
	}

	pdusReceived.WithLabelValues(pduName(pdu)).Inc()
	su.log().WithField("pdu", pdu).Debug("Received PDU")

	if err := su.dispatch(pdu); err != nil {
		su.protocolViolation(err)
	}
}

// pduName is the metric label of a received PDU.
func pduName(pdu pdus.PDU) string {
	switch pdu.(type) {
	case *pdus.BindReturn:
		return "BIND-RETURN"
	case *pdus.UnbindReturn:
		return "UNBIND-RETURN"
	case *pdus.PeerAbort:
		return "PEER-ABORT"
	case *pdus.RafStartReturn:
		return "RAF-START-RETURN"
	case *pdus.StopReturn:
		return "STOP-RETURN"
	case *pdus.ScheduleStatusReportReturn:
		return "SCHEDULE-STATUS-REPORT-RETURN"
	case *pdus.RafGetParameterReturn:
		return "RAF-GET-PARAMETER-RETURN"
	case *pdus.RafTransferBuffer:
		return "RAF-TRANSFER-BUFFER"
	case *pdus.RafStatusReportInvocation:
		return "RAF-STATUS-REPORT"
	default:
		return "unknown"
	}
}

func (su *ServiceUser) dispatch(pdu pdus.PDU) error {
	if su.state == StateUnbound {
		return sle.ProtocolErrorf(sle.PeerAbortProtocolError, "%v while unbound", pdu)
	}

	switch pdu := pdu.(type) {
	case *pdus.PeerAbort:
		su.processPeerAbort(pdu)
		return nil
	case *pdus.BindReturn:
		return su.processBindReturn(pdu)
	}

	if su.state == StateBindPending {
		return sle.ProtocolErrorf(sle.PeerAbortProtocolError, "%v before the BIND return", pdu)
	}

	switch pdu := pdu.(type) {
	case *pdus.RafTransferBuffer:
		return su.processTransferBuffer(pdu)
	case *pdus.RafStartReturn:
		return su.processStartReturn(pdu)
	case *pdus.RafStatusReportInvocation:
		return su.processStatusReport(pdu)
	case *pdus.RafGetParameterReturn:
		return su.processGetParameterReturn(pdu)
	case *pdus.StopReturn:
		return su.processStopReturn(pdu)
	case *pdus.ScheduleStatusReportReturn:
		return su.processScheduleStatusReportReturn(pdu)
	case *pdus.UnbindReturn:
		return su.processUnbindReturn(pdu)
	default:
		return sle.ProtocolErrorf(sle.PeerAbortProtocolError, "unexpected %v", pdu)
	}
}

func unsolicited(operation string, id sle.InvokeID) error {
	return &sle.ProtocolError{
		Diagnostic: sle.PeerAbortUnsolicitedInvokeID,
		Err:        fmt.Errorf("%s return: %w: %d", operation, sle.ErrUnknownInvokeID, id),
	}
}

func (su *ServiceUser) processPeerAbort(pdu *pdus.PeerAbort) {
	su.abort(&sle.AbortError{Diagnostic: sle.PeerAbortDiagnostic(pdu.Diagnostic), Remote: true}, false)
}

func (su *ServiceUser) processBindReturn(pdu *pdus.BindReturn) error {
	if su.state != StateBindPending {
		return sle.ProtocolErrorf(sle.PeerAbortProtocolError, "BIND return in state %v", su.state)
	}
	if err := su.verify(sle.AuthBind, pdu.PerformerCredentials); err != nil {
		return err
	}
	if su.conf.ResponderID != "" && pdu.ResponderIdentifier != su.conf.ResponderID {
		return sle.ProtocolErrorf(sle.PeerAbortUnexpectedResponderID,
			"responder %q instead of %q", pdu.ResponderIdentifier, su.conf.ResponderID)
	}

	countResult("BIND", pdu.Positive)
	complete := su.bindResult
	su.bindResult = nil

	if !pdu.Positive {
		err := &sle.NegativeResultError{Operation: "BIND", Diagnostic: sle.BindDiagnostic(pdu.Diagnostic)}
		su.log().WithError(err).Warn("BIND was rejected")
		su.release(err)
		complete(struct{}{}, err)
		return nil
	}

	if pdu.VersionNumber != int64(su.conf.version()) {
		su.log().WithField("version", pdu.VersionNumber).Warn("Provider negotiated another version")
	}

	su.setState(StateReady)
	su.log().WithField("responder", pdu.ResponderIdentifier).Info("Bound to provider")
	complete(struct{}{}, nil)
	return nil
}

func (su *ServiceUser) processUnbindReturn(pdu *pdus.UnbindReturn) error {
	if su.state != StateUnbindPending {
		return sle.ProtocolErrorf(sle.PeerAbortProtocolError, "UNBIND return in state %v", su.state)
	}
	if err := su.verify(sle.AuthBind, pdu.ResponderCredentials); err != nil {
		return err
	}

	countResult("UNBIND", true)
	complete := su.unbindResult
	su.unbindResult = nil

	su.release(nil)
	su.log().Info("Unbound from provider")
	complete(struct{}{}, nil)
	return nil
}

func (su *ServiceUser) processStartReturn(pdu *pdus.RafStartReturn) error {
	if err := su.verify(sle.AuthAll, pdu.PerformerCredentials); err != nil {
		return err
	}
	if su.state != StateStarting {
		return sle.ProtocolErrorf(sle.PeerAbortProtocolError, "RAF-START return in state %v", su.state)
	}

	id := sle.InvokeID(pdu.InvokeID)
	if !su.starts.Pending(id) {
		return unsolicited("RAF-START", id)
	}

	countResult("RAF-START", pdu.Positive)
	if !pdu.Positive {
		err := &sle.NegativeResultError{Operation: "RAF-START", Diagnostic: diagnostic(pdu.Diagnostic, startDiagnostic)}
		su.log().WithError(err).Warn("RAF-START was rejected")
		su.setState(StateReady)
		return su.starts.Resolve(id, struct{}{}, err)
	}

	su.setState(StateActive)
	su.log().Info("Started frame delivery")
	return su.starts.Resolve(id, struct{}{}, nil)
}

func (su *ServiceUser) processStopReturn(pdu *pdus.StopReturn) error {
	if err := su.verify(sle.AuthAll, pdu.PerformerCredentials); err != nil {
		return err
	}
	if su.state != StateStopPending {
		return sle.ProtocolErrorf(sle.PeerAbortProtocolError, "STOP return in state %v", su.state)
	}

	id := sle.InvokeID(pdu.InvokeID)
	if !su.stops.Pending(id) {
		return unsolicited("STOP", id)
	}

	countResult("STOP", pdu.Positive)
	if !pdu.Positive {
		err := &sle.NegativeResultError{Operation: "STOP", Diagnostic: sle.CommonDiagnostic(pdu.Diagnostic)}
		su.log().WithError(err).Warn("STOP was rejected")
		su.setState(StateActive)
		return su.stops.Resolve(id, struct{}{}, err)
	}

	su.setState(StateReady)
	su.log().Info("Stopped frame delivery")
	return su.stops.Resolve(id, struct{}{}, nil)
}

func (su *ServiceUser) processScheduleStatusReportReturn(pdu *pdus.ScheduleStatusReportReturn) error {
	if err := su.verify(sle.AuthAll, pdu.PerformerCredentials); err != nil {
		return err
	}

	id := sle.InvokeID(pdu.InvokeID)
	if !su.schedules.Pending(id) {
		return unsolicited("SCHEDULE-STATUS-REPORT", id)
	}

	countResult("SCHEDULE-STATUS-REPORT", pdu.Positive)
	if !pdu.Positive {
		err := &sle.NegativeResultError{
			Operation:  "SCHEDULE-STATUS-REPORT",
			Diagnostic: diagnostic(pdu.Diagnostic, scheduleDiagnostic),
		}
		return su.schedules.Resolve(id, struct{}{}, err)
	}
	return su.schedules.Resolve(id, struct{}{}, nil)
}

func (su *ServiceUser) processGetParameterReturn(pdu *pdus.RafGetParameterReturn) error {
	if err := su.verify(sle.AuthAll, pdu.PerformerCredentials); err != nil {
		return err
	}

	id := sle.InvokeID(pdu.InvokeID)
	if !su.parameters.Pending(id) {
		return unsolicited("RAF-GET-PARAMETER", id)
	}

	countResult("RAF-GET-PARAMETER", pdu.Positive)
	if !pdu.Positive {
		err := &sle.NegativeResultError{
			Operation:  "RAF-GET-PARAMETER",
			Diagnostic: diagnostic(pdu.Diagnostic, getParameterDiagnostic),
		}
		return su.parameters.Resolve(id, nil, err)
	}

	par, err := parameterFromPdu(pdu.Parameter)
	if err != nil {
		return err
	}
	return su.parameters.Resolve(id, par, nil)
}

func (su *ServiceUser) processStatusReport(pdu *pdus.RafStatusReportInvocation) error {
	if err := su.verify(sle.AuthAll, pdu.InvokerCredentials); err != nil {
		return err
	}

	report := StatusReport{
		ErrorFreeFrames: pdu.ErrorFreeFrameNumber,
		DeliveredFrames: pdu.DeliveredFrameNumber,
	}

	locks := []struct {
		code       int64
		subcarrier bool
		status     *LockStatus
	}{
		{pdu.FrameSyncLock, false, &report.FrameSyncLock},
		{pdu.SymbolSyncLock, false, &report.SymbolSyncLock},
		{pdu.SubcarrierLock, true, &report.SubcarrierLock},
		{pdu.CarrierLock, false, &report.CarrierLock},
	}
	for _, lock := range locks {
		status, err := lockStatusByCode(lock.code, lock.subcarrier)
		if err != nil {
			return err
		}
		*lock.status = status
	}

	production, err := productionStatusByCode(pdu.ProductionStatus)
	if err != nil {
		return err
	}
	report.ProductionStatus = production

	su.log().WithField("report", report).Trace("Received status report")
	for _, m := range su.monitors {
		su.callMonitor(m, func() { m.OnStatusReport(report) })
	}
	return nil
}
