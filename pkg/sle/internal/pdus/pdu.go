// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pdus implements the BER encoding of the SLE return-all-frames
// protocol data units, exchanged between user and provider. Enumerated values
// are kept as their wire integers; their meaning is checked by the caller.
package pdus

import (
	"fmt"
	"reflect"

	ber "github.com/go-asn1-ber/asn1-ber"

	"github.com/dtn7/sle-go/pkg/sle/internal/asn"
)

// Outer tags of the RAF PDU choices, user to provider and provider to user.
const (
	TagStartInvocation                ber.Tag = 0
	TagStartReturn                    ber.Tag = 1
	TagStopInvocation                 ber.Tag = 2
	TagStopReturn                     ber.Tag = 3
	TagScheduleStatusReportInvocation ber.Tag = 4
	TagScheduleStatusReportReturn     ber.Tag = 5
	TagGetParameterInvocation         ber.Tag = 6
	TagGetParameterReturn             ber.Tag = 7
	TagTransferBuffer                 ber.Tag = 8
	TagStatusReportInvocation         ber.Tag = 9
	TagBindInvocation                 ber.Tag = 100
	TagBindReturn                     ber.Tag = 101
	TagUnbindInvocation               ber.Tag = 102
	TagUnbindReturn                   ber.Tag = 103
	TagPeerAbort                      ber.Tag = 104
)

// PDU describes all RAF protocol data units, which share their BER
// serialization and deserialization.
type PDU interface {
	fmt.Stringer

	// Tag of the PDU within the RAF PDU choice.
	Tag() ber.Tag

	// Encode the PDU into its BER element.
	Encode() (*ber.Packet, error)

	// Decode the PDU from its BER element.
	Decode(p *ber.Packet) error
}

// Registry maps the tags of one PDU direction to an example instance of their
// type.
type Registry map[ber.Tag]PDU

// ProviderToUser are the PDUs a RAF user receives.
var ProviderToUser = Registry{
	TagStartReturn:                &RafStartReturn{},
	TagStopReturn:                 &StopReturn{},
	TagScheduleStatusReportReturn: &ScheduleStatusReportReturn{},
	TagGetParameterReturn:         &RafGetParameterReturn{},
	TagTransferBuffer:             &RafTransferBuffer{},
	TagStatusReportInvocation:     &RafStatusReportInvocation{},
	TagBindReturn:                 &BindReturn{},
	TagUnbindReturn:               &UnbindReturn{},
	TagPeerAbort:                  &PeerAbort{},
}

// UserToProvider are the PDUs a RAF user sends.
var UserToProvider = Registry{
	TagStartInvocation:                &RafStartInvocation{},
	TagStopInvocation:                 &StopInvocation{},
	TagScheduleStatusReportInvocation: &ScheduleStatusReportInvocation{},
	TagGetParameterInvocation:         &RafGetParameterInvocation{},
	TagBindInvocation:                 &BindInvocation{},
	TagUnbindInvocation:               &UnbindInvocation{},
	TagPeerAbort:                      &PeerAbort{},
}

// New creates a new PDU for a given tag.
func (r Registry) New(tag ber.Tag) (pdu PDU, err error) {
	pduType, exists := r[tag]
	if !exists {
		err = fmt.Errorf("no PDU registered for tag [%d]", tag)
		return
	}

	pduElem := reflect.TypeOf(pduType).Elem()
	pdu = reflect.New(pduElem).Interface().(PDU)
	return
}

// Unmarshal parses a PDU of this direction from its BER encoding.
func (r Registry) Unmarshal(data []byte) (PDU, error) {
	p, err := asn.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding PDU: %w", err)
	}

	if p.ClassType != ber.ClassContext {
		return nil, fmt.Errorf("PDU with non context specific identifier %s", asn.Describe(p))
	}

	pdu, err := r.New(p.Tag)
	if err != nil {
		return nil, err
	}

	if err := pdu.Decode(p); err != nil {
		return nil, fmt.Errorf("decoding %v: %w", pdu, err)
	}
	return pdu, nil
}

// Marshal returns the BER encoding of a PDU.
func Marshal(pdu PDU) ([]byte, error) {
	p, err := pdu.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding %v: %w", pdu, err)
	}
	return p.Bytes(), nil
}

// sequenceReader checks a PDU's outer element and returns a Reader for its
// components.
func sequenceReader(pdu PDU, p *ber.Packet) (*asn.Reader, error) {
	if !asn.IsTagged(p, ber.TypeConstructed, pdu.Tag()) {
		return nil, fmt.Errorf("unexpected identifier %s", asn.Describe(p))
	}
	return asn.NewReader(pdu.String(), p)
}
