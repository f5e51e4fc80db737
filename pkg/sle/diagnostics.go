// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import "fmt"

// Diagnostic is the diagnostic code of a negative result. Each operation
// defines its own set of specific diagnostics besides the CommonDiagnostic.
type Diagnostic interface {
	fmt.Stringer

	// Code returns the numeric diagnostic as sent on the wire.
	Code() int
}

// CommonDiagnostic is the SLE diagnostic shared by all confirmed operations.
type CommonDiagnostic int

const (
	DiagnosticDuplicateInvokeID CommonDiagnostic = 100
	DiagnosticOtherReason       CommonDiagnostic = 127
)

func (d CommonDiagnostic) Code() int { return int(d) }

func (d CommonDiagnostic) String() string {
	switch d {
	case DiagnosticDuplicateInvokeID:
		return "duplicateInvokeId"
	case DiagnosticOtherReason:
		return "otherReason"
	default:
		return fmt.Sprintf("unknown common diagnostic (%d)", int(d))
	}
}

// PeerAbortDiagnostic is the reason code of a PEER-ABORT.
type PeerAbortDiagnostic int

const (
	PeerAbortAccessDenied                PeerAbortDiagnostic = 0
	PeerAbortUnexpectedResponderID       PeerAbortDiagnostic = 1
	PeerAbortOperationalRequirement      PeerAbortDiagnostic = 2
	PeerAbortProtocolError               PeerAbortDiagnostic = 3
	PeerAbortCommunicationsFailure       PeerAbortDiagnostic = 4
	PeerAbortEncodingError               PeerAbortDiagnostic = 5
	PeerAbortReturnTimeout               PeerAbortDiagnostic = 6
	PeerAbortEndOfServiceProvisionPeriod PeerAbortDiagnostic = 7
	PeerAbortUnsolicitedInvokeID         PeerAbortDiagnostic = 8
	PeerAbortOtherReason                 PeerAbortDiagnostic = 127
)

func (d PeerAbortDiagnostic) Code() int { return int(d) }

func (d PeerAbortDiagnostic) String() string {
	switch d {
	case PeerAbortAccessDenied:
		return "accessDenied"
	case PeerAbortUnexpectedResponderID:
		return "unexpectedResponderId"
	case PeerAbortOperationalRequirement:
		return "operationalRequirement"
	case PeerAbortProtocolError:
		return "protocolError"
	case PeerAbortCommunicationsFailure:
		return "communicationsFailure"
	case PeerAbortEncodingError:
		return "encodingError"
	case PeerAbortReturnTimeout:
		return "returnTimeout"
	case PeerAbortEndOfServiceProvisionPeriod:
		return "endOfServiceProvisionPeriod"
	case PeerAbortUnsolicitedInvokeID:
		return "unsolicitedInvokeId"
	case PeerAbortOtherReason:
		return "otherReason"
	default:
		return fmt.Sprintf("unknown peer-abort diagnostic (%d)", int(d))
	}
}

// BindDiagnostic is the diagnostic of a negative BIND return.
type BindDiagnostic int

const (
	BindAccessDenied                   BindDiagnostic = 0
	BindServiceTypeNotSupported        BindDiagnostic = 1
	BindVersionNotSupported            BindDiagnostic = 2
	BindNoSuchServiceInstance          BindDiagnostic = 3
	BindOutOfService                   BindDiagnostic = 4
	BindSiAlreadyBound                 BindDiagnostic = 5
	BindSiNotAccessibleToThisInitiator BindDiagnostic = 6
	BindInconsistentServiceType        BindDiagnostic = 7
	BindInvalidTime                    BindDiagnostic = 8
	BindOutOfProvisionPeriod           BindDiagnostic = 9
	BindOtherReason                    BindDiagnostic = 127
)

func (d BindDiagnostic) Code() int { return int(d) }

func (d BindDiagnostic) String() string {
	switch d {
	case BindAccessDenied:
		return "accessDenied"
	case BindServiceTypeNotSupported:
		return "serviceTypeNotSupported"
	case BindVersionNotSupported:
		return "versionNotSupported"
	case BindNoSuchServiceInstance:
		return "noSuchServiceInstance"
	case BindOutOfService:
		return "outOfService"
	case BindSiAlreadyBound:
		return "siAlreadyBound"
	case BindSiNotAccessibleToThisInitiator:
		return "siNotAccessibleToThisInitiator"
	case BindInconsistentServiceType:
		return "inconsistentServiceType"
	case BindInvalidTime:
		return "invalidTime"
	case BindOutOfProvisionPeriod:
		return "outOfProvisionPeriod"
	case BindOtherReason:
		return "otherReason"
	default:
		return fmt.Sprintf("unknown bind diagnostic (%d)", int(d))
	}
}

// UnbindReason is the reason code of an UNBIND invocation.
type UnbindReason int

const (
	UnbindEnd                 UnbindReason = 0
	UnbindSuspend             UnbindReason = 1
	UnbindVersionNotSupported UnbindReason = 2
	UnbindOther               UnbindReason = 127
)

// IsValid checks if this UnbindReason may be sent by a user.
func (r UnbindReason) IsValid() bool {
	switch r {
	case UnbindEnd, UnbindSuspend, UnbindVersionNotSupported, UnbindOther:
		return true
	default:
		return false
	}
}

func (r UnbindReason) String() string {
	switch r {
	case UnbindEnd:
		return "end"
	case UnbindSuspend:
		return "suspend"
	case UnbindVersionNotSupported:
		return "versionNotSupported"
	case UnbindOther:
		return "other"
	default:
		return fmt.Sprintf("unknown unbind reason (%d)", int(r))
	}
}

// ApplicationIdentifier names the SLE service type requested at BIND.
type ApplicationIdentifier int

const (
	ApplicationRtnAllFrames   ApplicationIdentifier = 0
	ApplicationRtnInsert      ApplicationIdentifier = 1
	ApplicationRtnChFrames    ApplicationIdentifier = 2
	ApplicationRtnChFsh       ApplicationIdentifier = 3
	ApplicationRtnChOcf       ApplicationIdentifier = 4
	ApplicationRtnBitstr      ApplicationIdentifier = 5
	ApplicationRtnSpacePkt    ApplicationIdentifier = 6
	ApplicationFwdAosSpacePkt ApplicationIdentifier = 7
	ApplicationFwdAosVca      ApplicationIdentifier = 8
	ApplicationFwdBitstr      ApplicationIdentifier = 9
	ApplicationFwdProtoVcdu   ApplicationIdentifier = 10
	ApplicationFwdInsert      ApplicationIdentifier = 11
	ApplicationFwdCVcdu       ApplicationIdentifier = 12
	ApplicationFwdTcSpacePkt  ApplicationIdentifier = 13
	ApplicationFwdTcVca       ApplicationIdentifier = 14
	ApplicationFwdTcFrame     ApplicationIdentifier = 15
	ApplicationFwdCltu        ApplicationIdentifier = 16
)

func (a ApplicationIdentifier) String() string {
	switch a {
	case ApplicationRtnAllFrames:
		return "rtnAllFrames"
	case ApplicationRtnChFrames:
		return "rtnChFrames"
	case ApplicationRtnChOcf:
		return "rtnChOcf"
	case ApplicationFwdCltu:
		return "fwdCltu"
	default:
		return fmt.Sprintf("application(%d)", int(a))
	}
}

// ParameterName is the SLE parameter name used by GET-PARAMETER.
type ParameterName int

const (
	ParameterBufferSize            ParameterName = 4
	ParameterDeliveryMode          ParameterName = 6
	ParameterLatencyLimit          ParameterName = 15
	ParameterReportingCycle        ParameterName = 26
	ParameterRequestedFrameQuality ParameterName = 27
	ParameterReturnTimeoutPeriod   ParameterName = 29
	ParameterMinReportingCycle     ParameterName = 301
	ParameterPermittedFrameQuality ParameterName = 302
)

var parameterNames = map[ParameterName]string{
	ParameterBufferSize:            "bufferSize",
	ParameterDeliveryMode:          "deliveryMode",
	ParameterLatencyLimit:          "latencyLimit",
	ParameterReportingCycle:        "reportingCycle",
	ParameterRequestedFrameQuality: "requestedFrameQuality",
	ParameterReturnTimeoutPeriod:   "returnTimeoutPeriod",
	ParameterMinReportingCycle:     "minReportingCycle",
	ParameterPermittedFrameQuality: "permittedFrameQuality",
}

func (p ParameterName) String() string {
	if s, ok := parameterNames[p]; ok {
		return s
	}
	return fmt.Sprintf("parameter(%d)", int(p))
}

// ParseParameterName returns the ParameterName for its ASN.1 identifier,
// e.g., "bufferSize".
func ParseParameterName(s string) (ParameterName, error) {
	for p, name := range parameterNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown parameter name %q", s)
}
