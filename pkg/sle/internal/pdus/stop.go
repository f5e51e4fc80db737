// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdus

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/asn"
)

// StopInvocation is the SleStopInvocation.
type StopInvocation struct {
	InvokerCredentials sle.Credentials
	InvokeID           int64
}

func (pdu *StopInvocation) Tag() ber.Tag { return TagStopInvocation }

func (pdu *StopInvocation) String() string { return fmt.Sprintf("STOP(%d)", pdu.InvokeID) }

func (pdu *StopInvocation) Encode() (*ber.Packet, error) {
	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.InvokerCredentials),
		asn.Integer(pdu.InvokeID)), nil
}

func (pdu *StopInvocation) Decode(p *ber.Packet) (err error) {
	r, err := sequenceReader(pdu, p)
	if err != nil {
		return
	}

	if pdu.InvokerCredentials, err = readCredentials(r); err != nil {
		return
	}
	if pdu.InvokeID, err = readInvokeID(r); err != nil {
		return
	}

	return r.Done()
}

// StopReturn is the SleAcknowledgement of a StopInvocation. Its negative
// result carries a common Diagnostics value without a choice:
//
//	CHOICE { positiveResult [0] NULL, negativeResult [1] Diagnostics }
type StopReturn struct {
	PerformerCredentials sle.Credentials
	InvokeID             int64
	Positive             bool
	Diagnostic           int64
}

func (pdu *StopReturn) Tag() ber.Tag { return TagStopReturn }

func (pdu *StopReturn) String() string {
	return fmt.Sprintf("STOP-RETURN(%d, positive %t)", pdu.InvokeID, pdu.Positive)
}

func (pdu *StopReturn) Encode() (*ber.Packet, error) {
	var result *ber.Packet
	if pdu.Positive {
		result = asn.Null(0)
	} else {
		result = asn.TaggedInteger(1, pdu.Diagnostic)
	}

	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.PerformerCredentials),
		asn.Integer(pdu.InvokeID),
		result), nil
}

func (pdu *StopReturn) Decode(p *ber.Packet) (err error) {
	r, err := sequenceReader(pdu, p)
	if err != nil {
		return
	}

	if pdu.PerformerCredentials, err = readCredentials(r); err != nil {
		return
	}
	if pdu.InvokeID, err = readInvokeID(r); err != nil {
		return
	}

	result, err := r.Next()
	if err != nil {
		return
	}
	switch {
	case asn.IsTagged(result, ber.TypePrimitive, 0):
		pdu.Positive = true
	case asn.IsTagged(result, ber.TypePrimitive, 1):
		pdu.Diagnostic, err = asn.Int(result)
	default:
		err = fmt.Errorf("stop result: unexpected %s", asn.Describe(result))
	}
	if err != nil {
		return
	}

	return r.Done()
}

// Report request types of a ScheduleStatusReportInvocation.
const (
	ReportImmediately  = 0
	ReportPeriodically = 1
	ReportStop         = 2
)

// ScheduleStatusReportInvocation is the SleScheduleStatusReportInvocation:
//
//	reportRequestType CHOICE { immediately [0] NULL, periodically [1] ReportingCycle, stop [2] NULL }
type ScheduleStatusReportInvocation struct {
	InvokerCredentials sle.Credentials
	InvokeID           int64
	RequestType        int
	ReportingCycle     int64
}

func (pdu *ScheduleStatusReportInvocation) Tag() ber.Tag { return TagScheduleStatusReportInvocation }

func (pdu *ScheduleStatusReportInvocation) String() string {
	return fmt.Sprintf("SCHEDULE-STATUS-REPORT(%d, type %d)", pdu.InvokeID, pdu.RequestType)
}

func (pdu *ScheduleStatusReportInvocation) Encode() (*ber.Packet, error) {
	var request *ber.Packet
	switch pdu.RequestType {
	case ReportImmediately:
		request = asn.Null(0)
	case ReportPeriodically:
		request = asn.TaggedInteger(1, pdu.ReportingCycle)
	case ReportStop:
		request = asn.Null(2)
	default:
		return nil, fmt.Errorf("unknown report request type %d", pdu.RequestType)
	}

	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.InvokerCredentials),
		asn.Integer(pdu.InvokeID),
		request), nil
}

func (pdu *ScheduleStatusReportInvocation) Decode(p *ber.Packet) (err error) {
	r, err := sequenceReader(pdu, p)
	if err != nil {
		return
	}

	if pdu.InvokerCredentials, err = readCredentials(r); err != nil {
		return
	}
	if pdu.InvokeID, err = readInvokeID(r); err != nil {
		return
	}

	request, err := r.Next()
	if err != nil {
		return
	}
	switch {
	case asn.IsTagged(request, ber.TypePrimitive, 0):
		pdu.RequestType = ReportImmediately
	case asn.IsTagged(request, ber.TypePrimitive, 1):
		pdu.RequestType = ReportPeriodically
		pdu.ReportingCycle, err = asn.Int(request)
	case asn.IsTagged(request, ber.TypePrimitive, 2):
		pdu.RequestType = ReportStop
	default:
		err = fmt.Errorf("report request type: unexpected %s", asn.Describe(request))
	}
	if err != nil {
		return
	}

	return r.Done()
}

// ScheduleStatusReportReturn answers a ScheduleStatusReportInvocation.
// Negative results carry a DiagnosticScheduleStatusReport.
type ScheduleStatusReportReturn struct {
	PerformerCredentials sle.Credentials
	InvokeID             int64
	Positive             bool
	Diagnostic           Diagnostic
}

func (pdu *ScheduleStatusReportReturn) Tag() ber.Tag { return TagScheduleStatusReportReturn }

func (pdu *ScheduleStatusReportReturn) String() string {
	return fmt.Sprintf("SCHEDULE-STATUS-REPORT-RETURN(%d, positive %t)", pdu.InvokeID, pdu.Positive)
}

func (pdu *ScheduleStatusReportReturn) Encode() (*ber.Packet, error) {
	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.PerformerCredentials),
		asn.Integer(pdu.InvokeID),
		encodeResult(pdu.Positive, pdu.Diagnostic)), nil
}

func (pdu *ScheduleStatusReportReturn) Decode(p *ber.Packet) (err error) {
	pdu.PerformerCredentials, pdu.InvokeID, pdu.Positive, pdu.Diagnostic, err = decodeConfirmedReturn(pdu, p)
	return
}
