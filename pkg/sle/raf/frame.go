// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"encoding/asn1"
	"encoding/hex"
	"fmt"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/pdus"
)

// AntennaID names the receiving antenna, either globally by an object
// identifier or locally by an octet string.
type AntennaID struct {
	Global asn1.ObjectIdentifier
	Local  []byte
}

func (a AntennaID) String() string {
	if a.Global != nil {
		return a.Global.String()
	}
	return hex.EncodeToString(a.Local)
}

// Frame is one annotated telemetry frame of a RAF-TRANSFER-DATA invocation.
type Frame struct {
	EarthReceiveTime sle.Time
	AntennaID        AntennaID

	// DataLinkContinuity is the number of frames missing before this one, or
	// -1 if it is unknown.
	DataLinkContinuity int
	Quality            FrameQuality

	// PrivateAnnotation is nil if the provider sent none.
	PrivateAnnotation []byte
	Data              []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame(%v, %v, %d octets, %v)", f.EarthReceiveTime, f.AntennaID, len(f.Data), f.Quality)
}

func frameFromPdu(inv *pdus.RafTransferDataInvocation) (f Frame, err error) {
	if inv.DeliveredFrameQuality < int64(FrameGood) || inv.DeliveredFrameQuality > int64(FrameUndetermined) {
		err = sle.ProtocolErrorf(sle.PeerAbortEncodingError, "invalid frame quality %d", inv.DeliveredFrameQuality)
		return
	}

	f = Frame{
		EarthReceiveTime:   inv.EarthReceiveTime,
		AntennaID:          AntennaID{Global: inv.AntennaID.Global, Local: inv.AntennaID.Local},
		DataLinkContinuity: int(inv.DataLinkContinuity),
		Quality:            FrameQuality(inv.DeliveredFrameQuality),
		PrivateAnnotation:  inv.PrivateAnnotation,
		Data:               inv.Data,
	}
	return
}
