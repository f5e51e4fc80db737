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

const (
	maxInvokeID        = 0xFFFF
	maxIntUnsignedLong = 0xFFFFFFFF
)

// Credentials ::= CHOICE { unused [0] NULL, used [1] OCTET STRING }
func encodeCredentials(c sle.Credentials) *ber.Packet {
	if !c.Used() {
		return asn.Null(0)
	}
	return asn.TaggedOctetString(1, c)
}

func decodeCredentials(p *ber.Packet) (sle.Credentials, error) {
	switch {
	case asn.IsTagged(p, ber.TypePrimitive, 0):
		return nil, nil
	case asn.IsTagged(p, ber.TypePrimitive, 1):
		content, err := asn.Content(p)
		if err != nil {
			return nil, err
		}
		return append(sle.Credentials(nil), content...), nil
	default:
		return nil, fmt.Errorf("credentials: unexpected %s", asn.Describe(p))
	}
}

func readCredentials(r *asn.Reader) (sle.Credentials, error) {
	p, err := r.Next()
	if err != nil {
		return nil, err
	}
	return decodeCredentials(p)
}

func readInvokeID(r *asn.Reader) (int64, error) {
	return r.IntegerIn(0, maxInvokeID)
}

// Time ::= CHOICE { ccsdsFormat [0] OCTET STRING (8), ccsdsPicoFormat [1] OCTET STRING (10) }
func encodeTime(t sle.Time) (*ber.Packet, error) {
	cds, err := t.MarshalCds()
	if err != nil {
		return nil, err
	}
	return asn.TaggedOctetString(0, cds), nil
}

func decodeTime(p *ber.Packet) (sle.Time, error) {
	var length int
	switch {
	case asn.IsTagged(p, ber.TypePrimitive, 0):
		length = sle.CdsLength
	case asn.IsTagged(p, ber.TypePrimitive, 1):
		length = sle.CdsPicoLength
	default:
		return sle.Time{}, fmt.Errorf("time: unexpected %s", asn.Describe(p))
	}

	content, err := asn.Content(p)
	if err != nil {
		return sle.Time{}, err
	}
	if len(content) != length {
		return sle.Time{}, fmt.Errorf("time: %s with %d octets", asn.Describe(p), len(content))
	}
	return sle.TimeFromCds(content)
}

// ConditionalTime ::= CHOICE { undefined [0] NULL, known [1] Time }
func encodeConditionalTime(t *sle.Time) (*ber.Packet, error) {
	if t == nil {
		return asn.Null(0), nil
	}

	known, err := encodeTime(*t)
	if err != nil {
		return nil, err
	}
	return asn.Tagged(1, known), nil
}

func decodeConditionalTime(p *ber.Packet) (*sle.Time, error) {
	switch {
	case asn.IsTagged(p, ber.TypePrimitive, 0):
		return nil, nil
	case asn.IsTagged(p, ber.TypeConstructed, 1) && len(p.Children) == 1:
		t, err := decodeTime(p.Children[0])
		if err != nil {
			return nil, err
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("conditional time: unexpected %s", asn.Describe(p))
	}
}

// Diagnostic of a negative result with common and operation specific values:
//
//	CHOICE { common [100] Diagnostics, specific [101] INTEGER }
type Diagnostic struct {
	Specific bool
	Code     int64
}

func (d Diagnostic) encode() *ber.Packet {
	if d.Specific {
		return asn.TaggedInteger(101, d.Code)
	}
	return asn.TaggedInteger(100, d.Code)
}

func decodeDiagnostic(p *ber.Packet) (d Diagnostic, err error) {
	switch {
	case asn.IsTagged(p, ber.TypePrimitive, 100):
	case asn.IsTagged(p, ber.TypePrimitive, 101):
		d.Specific = true
	default:
		err = fmt.Errorf("diagnostic: unexpected %s", asn.Describe(p))
		return
	}

	d.Code, err = asn.Int(p)
	return
}

// Result ::= CHOICE { positiveResult [0] NULL, negativeResult [1] <diagnostic choice> }
func encodeResult(positive bool, d Diagnostic) *ber.Packet {
	if positive {
		return asn.Null(0)
	}
	return asn.Tagged(1, d.encode())
}

func decodeResult(p *ber.Packet) (positive bool, d Diagnostic, err error) {
	switch {
	case asn.IsTagged(p, ber.TypePrimitive, 0):
		positive = true
	case asn.IsTagged(p, ber.TypeConstructed, 1) && len(p.Children) == 1:
		d, err = decodeDiagnostic(p.Children[0])
	default:
		err = fmt.Errorf("result: unexpected %s", asn.Describe(p))
	}
	return
}
