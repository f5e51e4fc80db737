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

// RafStartInvocation requests the delivery of frames. Nil times are sent as
// undefined.
type RafStartInvocation struct {
	InvokerCredentials    sle.Credentials
	InvokeID              int64
	StartTime             *sle.Time
	StopTime              *sle.Time
	RequestedFrameQuality int64
}

func (pdu *RafStartInvocation) Tag() ber.Tag { return TagStartInvocation }

func (pdu *RafStartInvocation) String() string {
	return fmt.Sprintf("RAF-START(%d, quality %d)", pdu.InvokeID, pdu.RequestedFrameQuality)
}

func (pdu *RafStartInvocation) Encode() (*ber.Packet, error) {
	start, err := encodeConditionalTime(pdu.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}
	stop, err := encodeConditionalTime(pdu.StopTime)
	if err != nil {
		return nil, fmt.Errorf("stop time: %w", err)
	}

	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.InvokerCredentials),
		asn.Integer(pdu.InvokeID),
		start,
		stop,
		asn.Integer(pdu.RequestedFrameQuality)), nil
}

func (pdu *RafStartInvocation) Decode(p *ber.Packet) (err error) {
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

	for _, t := range []**sle.Time{&pdu.StartTime, &pdu.StopTime} {
		var tp *ber.Packet
		if tp, err = r.Next(); err != nil {
			return
		}
		if *t, err = decodeConditionalTime(tp); err != nil {
			return
		}
	}

	if pdu.RequestedFrameQuality, err = r.Integer(); err != nil {
		return
	}

	return r.Done()
}

// RafStartReturn answers a RafStartInvocation. Negative results carry a
// DiagnosticRafStart.
type RafStartReturn struct {
	PerformerCredentials sle.Credentials
	InvokeID             int64
	Positive             bool
	Diagnostic           Diagnostic
}

func (pdu *RafStartReturn) Tag() ber.Tag { return TagStartReturn }

func (pdu *RafStartReturn) String() string {
	return fmt.Sprintf("RAF-START-RETURN(%d, positive %t)", pdu.InvokeID, pdu.Positive)
}

func (pdu *RafStartReturn) Encode() (*ber.Packet, error) {
	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.PerformerCredentials),
		asn.Integer(pdu.InvokeID),
		encodeResult(pdu.Positive, pdu.Diagnostic)), nil
}

func (pdu *RafStartReturn) Decode(p *ber.Packet) (err error) {
	pdu.PerformerCredentials, pdu.InvokeID, pdu.Positive, pdu.Diagnostic, err = decodeConfirmedReturn(pdu, p)
	return
}

// decodeConfirmedReturn reads the components shared by all returns of
// confirmed operations: credentials, invoke id and a result.
func decodeConfirmedReturn(pdu PDU, p *ber.Packet) (creds sle.Credentials, id int64, positive bool, diag Diagnostic, err error) {
	r, err := sequenceReader(pdu, p)
	if err != nil {
		return
	}

	if creds, err = readCredentials(r); err != nil {
		return
	}
	if id, err = readInvokeID(r); err != nil {
		return
	}

	result, err := r.Next()
	if err != nil {
		return
	}
	if positive, diag, err = decodeResult(result); err != nil {
		return
	}

	err = r.Done()
	return
}
