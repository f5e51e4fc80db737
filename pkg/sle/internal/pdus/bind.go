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

// BindInvocation is the SleBindInvocation, sent by the RAF user.
type BindInvocation struct {
	InvokerCredentials      sle.Credentials
	InitiatorIdentifier     string
	ResponderPortIdentifier string
	ServiceType             int64
	VersionNumber           int64
	ServiceInstance         sle.ServiceInstanceIdentifier
}

func (pdu *BindInvocation) Tag() ber.Tag { return TagBindInvocation }

func (pdu *BindInvocation) String() string {
	return fmt.Sprintf("BIND(%s -> %s, %v, v%d)",
		pdu.InitiatorIdentifier, pdu.ResponderPortIdentifier, pdu.ServiceInstance, pdu.VersionNumber)
}

// encodeServiceInstance writes the ServiceInstanceIdentifier:
//
//	SEQUENCE OF SET SIZE (1) OF SEQUENCE { identifier OBJECT IDENTIFIER, siAttributeValue VisibleString }
func encodeServiceInstance(sii sle.ServiceInstanceIdentifier) (*ber.Packet, error) {
	seq := asn.Sequence()
	for _, attr := range sii {
		oid, ok := sle.AttributeOid(attr.Name)
		if !ok {
			return nil, fmt.Errorf("unknown service instance attribute %q", attr.Name)
		}

		oidPacket, err := asn.ObjectIdentifier(oid)
		if err != nil {
			return nil, err
		}

		seq.AppendChild(asn.Set(asn.Sequence(oidPacket, asn.VisibleString(attr.Value))))
	}
	return seq, nil
}

func decodeServiceInstance(p *ber.Packet) (sle.ServiceInstanceIdentifier, error) {
	if !asn.Is(p, ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence) {
		return nil, fmt.Errorf("service instance identifier: unexpected %s", asn.Describe(p))
	}

	var sii sle.ServiceInstanceIdentifier
	for _, set := range p.Children {
		if !asn.Is(set, ber.ClassUniversal, ber.TypeConstructed, ber.TagSet) || len(set.Children) != 1 {
			return nil, fmt.Errorf("service instance attribute: unexpected %s", asn.Describe(set))
		}

		r, err := asn.NewReader("service instance attribute", set.Children[0])
		if err != nil {
			return nil, err
		}

		oidPacket, err := r.Expect(ber.ClassUniversal, ber.TypePrimitive, ber.TagObjectIdentifier)
		if err != nil {
			return nil, err
		}
		oid, err := asn.Oid(oidPacket)
		if err != nil {
			return nil, err
		}
		name, ok := sle.AttributeName(oid)
		if !ok {
			return nil, fmt.Errorf("unknown service instance attribute %v", oid)
		}

		value, err := r.VisibleString()
		if err != nil {
			return nil, err
		}
		if err := r.Done(); err != nil {
			return nil, err
		}

		sii = append(sii, sle.ServiceInstanceAttribute{Name: name, Value: value})
	}
	return sii, nil
}

func (pdu *BindInvocation) Encode() (*ber.Packet, error) {
	sii, err := encodeServiceInstance(pdu.ServiceInstance)
	if err != nil {
		return nil, err
	}

	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.InvokerCredentials),
		asn.VisibleString(pdu.InitiatorIdentifier),
		asn.VisibleString(pdu.ResponderPortIdentifier),
		asn.Integer(pdu.ServiceType),
		asn.Integer(pdu.VersionNumber),
		sii), nil
}

func (pdu *BindInvocation) Decode(p *ber.Packet) (err error) {
	r, err := sequenceReader(pdu, p)
	if err != nil {
		return
	}

	if pdu.InvokerCredentials, err = readCredentials(r); err != nil {
		return
	}
	if pdu.InitiatorIdentifier, err = r.VisibleString(); err != nil {
		return
	}
	if pdu.ResponderPortIdentifier, err = r.VisibleString(); err != nil {
		return
	}
	if pdu.ServiceType, err = r.Integer(); err != nil {
		return
	}
	if pdu.VersionNumber, err = r.IntegerIn(1, 0xFFFF); err != nil {
		return
	}

	siiPacket, err := r.Next()
	if err != nil {
		return
	}
	if pdu.ServiceInstance, err = decodeServiceInstance(siiPacket); err != nil {
		return
	}

	return r.Done()
}

// BindReturn is the SleBindReturn, sent by the provider.
type BindReturn struct {
	PerformerCredentials sle.Credentials
	ResponderIdentifier  string

	// Positive results carry the negotiated VersionNumber, negative ones a
	// BindDiagnostic.
	Positive      bool
	VersionNumber int64
	Diagnostic    int64
}

func (pdu *BindReturn) Tag() ber.Tag { return TagBindReturn }

func (pdu *BindReturn) String() string {
	if pdu.Positive {
		return fmt.Sprintf("BIND-RETURN(%s, v%d)", pdu.ResponderIdentifier, pdu.VersionNumber)
	}
	return fmt.Sprintf("BIND-RETURN(%s, %v)", pdu.ResponderIdentifier, sle.BindDiagnostic(pdu.Diagnostic))
}

func (pdu *BindReturn) Encode() (*ber.Packet, error) {
	var result *ber.Packet
	if pdu.Positive {
		result = asn.TaggedInteger(0, pdu.VersionNumber)
	} else {
		result = asn.TaggedInteger(1, pdu.Diagnostic)
	}

	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.PerformerCredentials),
		asn.VisibleString(pdu.ResponderIdentifier),
		result), nil
}

func (pdu *BindReturn) Decode(p *ber.Packet) (err error) {
	r, err := sequenceReader(pdu, p)
	if err != nil {
		return
	}

	if pdu.PerformerCredentials, err = readCredentials(r); err != nil {
		return
	}
	if pdu.ResponderIdentifier, err = r.VisibleString(); err != nil {
		return
	}

	result, err := r.Next()
	if err != nil {
		return
	}
	switch {
	case asn.IsTagged(result, ber.TypePrimitive, 0):
		pdu.Positive = true
		pdu.VersionNumber, err = asn.Int(result)
	case asn.IsTagged(result, ber.TypePrimitive, 1):
		pdu.Diagnostic, err = asn.Int(result)
	default:
		err = fmt.Errorf("bind result: unexpected %s", asn.Describe(result))
	}
	if err != nil {
		return
	}

	return r.Done()
}

// UnbindInvocation is the SleUnbindInvocation, sent by the RAF user.
type UnbindInvocation struct {
	InvokerCredentials sle.Credentials
	Reason             int64
}

func (pdu *UnbindInvocation) Tag() ber.Tag { return TagUnbindInvocation }

func (pdu *UnbindInvocation) String() string {
	return fmt.Sprintf("UNBIND(%v)", sle.UnbindReason(pdu.Reason))
}

func (pdu *UnbindInvocation) Encode() (*ber.Packet, error) {
	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.InvokerCredentials),
		asn.Integer(pdu.Reason)), nil
}

func (pdu *UnbindInvocation) Decode(p *ber.Packet) (err error) {
	r, err := sequenceReader(pdu, p)
	if err != nil {
		return
	}

	if pdu.InvokerCredentials, err = readCredentials(r); err != nil {
		return
	}
	if pdu.Reason, err = r.Integer(); err != nil {
		return
	}

	return r.Done()
}

// UnbindReturn is the SleUnbindReturn, sent by the provider. Its result is
// always positive.
type UnbindReturn struct {
	ResponderCredentials sle.Credentials
}

func (pdu *UnbindReturn) Tag() ber.Tag { return TagUnbindReturn }

func (pdu *UnbindReturn) String() string { return "UNBIND-RETURN" }

func (pdu *UnbindReturn) Encode() (*ber.Packet, error) {
	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.ResponderCredentials),
		asn.Null(0)), nil
}

func (pdu *UnbindReturn) Decode(p *ber.Packet) (err error) {
	r, err := sequenceReader(pdu, p)
	if err != nil {
		return
	}

	if pdu.ResponderCredentials, err = readCredentials(r); err != nil {
		return
	}
	if _, err = r.Expect(ber.ClassContext, ber.TypePrimitive, 0); err != nil {
		return
	}

	return r.Done()
}

// PeerAbort is the SlePeerAbort, sent by either side:
//
//	[104] IMPLICIT PeerAbortDiagnostic
type PeerAbort struct {
	Diagnostic int64
}

func (pdu *PeerAbort) Tag() ber.Tag { return TagPeerAbort }

func (pdu *PeerAbort) String() string {
	return fmt.Sprintf("PEER-ABORT(%v)", sle.PeerAbortDiagnostic(pdu.Diagnostic))
}

func (pdu *PeerAbort) Encode() (*ber.Packet, error) {
	return asn.TaggedInteger(pdu.Tag(), pdu.Diagnostic), nil
}

func (pdu *PeerAbort) Decode(p *ber.Packet) (err error) {
	if !asn.IsTagged(p, ber.TypePrimitive, pdu.Tag()) {
		return fmt.Errorf("unexpected identifier %s", asn.Describe(p))
	}

	pdu.Diagnostic, err = asn.IntIn(p, 0, 127)
	return
}
