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

// RafGetParameterInvocation queries one service parameter.
type RafGetParameterInvocation struct {
	InvokerCredentials sle.Credentials
	InvokeID           int64
	Parameter          int64
}

func (pdu *RafGetParameterInvocation) Tag() ber.Tag { return TagGetParameterInvocation }

func (pdu *RafGetParameterInvocation) String() string {
	return fmt.Sprintf("RAF-GET-PARAMETER(%d, %v)", pdu.InvokeID, sle.ParameterName(pdu.Parameter))
}

func (pdu *RafGetParameterInvocation) Encode() (*ber.Packet, error) {
	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.InvokerCredentials),
		asn.Integer(pdu.InvokeID),
		asn.Integer(pdu.Parameter)), nil
}

func (pdu *RafGetParameterInvocation) Decode(p *ber.Packet) (err error) {
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
	if pdu.Parameter, err = r.Integer(); err != nil {
		return
	}

	return r.Done()
}

// Alternatives of the RafGetParameter choice.
const (
	ParBufferSize = iota
	ParDeliveryMode
	ParLatencyLimit
	ParReportingCycle
	ParReqFrameQuality
	ParReturnTimeout
	ParPermittedFrameQuality
	ParMinReportingCycle
)

// RafGetParameter is the positive result of a RafGetParameterReturn. Each
// alternative is an implicitly tagged SEQUENCE { parameterName, parameterValue }.
//
// For ParLatencyLimit, Enabled distinguishes online [0] with a Value from
// offline [1]; for ParReportingCycle it distinguishes on [1] with a Value from
// off [0]. ParPermittedFrameQuality uses Values.
type RafGetParameter struct {
	Choice  int
	Name    int64
	Value   int64
	Enabled bool
	Values  []int64
}

func (par RafGetParameter) encode() (*ber.Packet, error) {
	var value *ber.Packet
	switch par.Choice {
	case ParBufferSize, ParDeliveryMode, ParReqFrameQuality, ParReturnTimeout, ParMinReportingCycle:
		value = asn.Integer(par.Value)

	case ParLatencyLimit:
		if par.Enabled {
			value = asn.TaggedInteger(0, par.Value)
		} else {
			value = asn.Null(1)
		}

	case ParReportingCycle:
		if par.Enabled {
			value = asn.TaggedInteger(1, par.Value)
		} else {
			value = asn.Null(0)
		}

	case ParPermittedFrameQuality:
		value = asn.Set()
		for _, v := range par.Values {
			value.AppendChild(asn.Integer(v))
		}

	default:
		return nil, fmt.Errorf("unknown parameter choice %d", par.Choice)
	}

	return asn.Tagged(ber.Tag(par.Choice), asn.Integer(par.Name), value), nil
}

func decodeRafGetParameter(p *ber.Packet) (par RafGetParameter, err error) {
	if p.ClassType != ber.ClassContext || p.TagType != ber.TypeConstructed || p.Tag > ParMinReportingCycle {
		err = fmt.Errorf("parameter: unexpected %s", asn.Describe(p))
		return
	}
	par.Choice = int(p.Tag)

	r, err := asn.NewReader("parameter", p)
	if err != nil {
		return
	}
	if par.Name, err = r.Integer(); err != nil {
		return
	}

	value, err := r.Next()
	if err != nil {
		return
	}

	switch par.Choice {
	case ParBufferSize, ParDeliveryMode, ParReqFrameQuality, ParReturnTimeout, ParMinReportingCycle:
		if !asn.Is(value, ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger) {
			err = fmt.Errorf("parameter value: unexpected %s", asn.Describe(value))
			return
		}
		par.Value, err = asn.Int(value)

	case ParLatencyLimit:
		switch {
		case asn.IsTagged(value, ber.TypePrimitive, 0):
			par.Enabled = true
			par.Value, err = asn.Int(value)
		case asn.IsTagged(value, ber.TypePrimitive, 1):
		default:
			err = fmt.Errorf("latency limit: unexpected %s", asn.Describe(value))
		}

	case ParReportingCycle:
		switch {
		case asn.IsTagged(value, ber.TypePrimitive, 0):
		case asn.IsTagged(value, ber.TypePrimitive, 1):
			par.Enabled = true
			par.Value, err = asn.Int(value)
		default:
			err = fmt.Errorf("reporting cycle: unexpected %s", asn.Describe(value))
		}

	case ParPermittedFrameQuality:
		if !asn.Is(value, ber.ClassUniversal, ber.TypeConstructed, ber.TagSet) {
			err = fmt.Errorf("permitted frame quality: unexpected %s", asn.Describe(value))
			return
		}
		for _, child := range value.Children {
			var v int64
			if v, err = asn.Int(child); err != nil {
				return
			}
			par.Values = append(par.Values, v)
		}
	}
	if err != nil {
		return
	}

	err = r.Done()
	return
}

// RafGetParameterReturn answers a RafGetParameterInvocation. Negative results
// carry a DiagnosticRafGet.
type RafGetParameterReturn struct {
	PerformerCredentials sle.Credentials
	InvokeID             int64
	Positive             bool
	Parameter            RafGetParameter
	Diagnostic           Diagnostic
}

func (pdu *RafGetParameterReturn) Tag() ber.Tag { return TagGetParameterReturn }

func (pdu *RafGetParameterReturn) String() string {
	return fmt.Sprintf("RAF-GET-PARAMETER-RETURN(%d, positive %t)", pdu.InvokeID, pdu.Positive)
}

func (pdu *RafGetParameterReturn) Encode() (*ber.Packet, error) {
	var result *ber.Packet
	if pdu.Positive {
		par, err := pdu.Parameter.encode()
		if err != nil {
			return nil, err
		}
		result = asn.Tagged(0, par)
	} else {
		result = asn.Tagged(1, pdu.Diagnostic.encode())
	}

	return asn.Tagged(pdu.Tag(),
		encodeCredentials(pdu.PerformerCredentials),
		asn.Integer(pdu.InvokeID),
		result), nil
}

func (pdu *RafGetParameterReturn) Decode(p *ber.Packet) (err error) {
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
	case asn.IsTagged(result, ber.TypeConstructed, 0) && len(result.Children) == 1:
		pdu.Positive = true
		pdu.Parameter, err = decodeRafGetParameter(result.Children[0])
	case asn.IsTagged(result, ber.TypeConstructed, 1) && len(result.Children) == 1:
		pdu.Diagnostic, err = decodeDiagnostic(result.Children[0])
	default:
		err = fmt.Errorf("get parameter result: unexpected %s", asn.Describe(result))
	}
	if err != nil {
		return
	}

	return r.Done()
}
