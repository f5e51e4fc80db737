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

// RafStatusReportInvocation is the periodic or immediate status report.
type RafStatusReportInvocation struct {
	InvokerCredentials   sle.Credentials
	ErrorFreeFrameNumber int64
	DeliveredFrameNumber int64
	FrameSyncLock        int64
	SymbolSyncLock       int64
	SubcarrierLock       int64
	CarrierLock          int64
	ProductionStatus     int64
}

func (pdu *RafStatusReportInvocation) Tag() ber.Tag { return TagStatusReportInvocation }

func (pdu *RafStatusReportInvocation) String() string {
	return fmt.Sprintf("RAF-STATUS-REPORT(%d/%d frames)", pdu.ErrorFreeFrameNumber, pdu.DeliveredFrameNumber)
}

func (pdu *RafStatusReportInvocation) Encode() (*ber.Packet, error) {
	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.InvokerCredentials),
		asn.Integer(pdu.ErrorFreeFrameNumber),
		asn.Integer(pdu.DeliveredFrameNumber),
		asn.Integer(pdu.FrameSyncLock),
		asn.Integer(pdu.SymbolSyncLock),
		asn.Integer(pdu.SubcarrierLock),
		asn.Integer(pdu.CarrierLock),
		asn.Integer(pdu.ProductionStatus)), nil
}

func (pdu *RafStatusReportInvocation) Decode(p *ber.Packet) (err error) {
	r, err := sequenceReader(pdu, p)
	if err != nil {
		return
	}

	if pdu.InvokerCredentials, err = readCredentials(r); err != nil {
		return
	}

	for _, field := range []*int64{&pdu.ErrorFreeFrameNumber, &pdu.DeliveredFrameNumber} {
		if *field, err = r.IntegerIn(0, maxIntUnsignedLong); err != nil {
			return
		}
	}

	for _, field := range []*int64{
		&pdu.FrameSyncLock, &pdu.SymbolSyncLock, &pdu.SubcarrierLock, &pdu.CarrierLock, &pdu.ProductionStatus,
	} {
		if *field, err = r.Integer(); err != nil {
			return
		}
	}

	return r.Done()
}
