// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"fmt"
	"strings"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/pdus"
)

// Parameter is the value of a RAF-GET-PARAMETER return. It is one of
// BufferSize, DeliveryModeParameter, LatencyLimit, ReportingCycle,
// RequestedFrameQualityParameter, ReturnTimeoutPeriod, PermittedFrameQuality
// and MinReportingCycle.
type Parameter interface {
	fmt.Stringer

	// Name of this parameter.
	Name() sle.ParameterName

	isParameter()
}

// BufferSize is the number of frames in one transfer buffer.
type BufferSize struct{ Frames int }

// DeliveryModeParameter is the service instance's delivery mode.
type DeliveryModeParameter struct{ Mode DeliveryMode }

// LatencyLimit is the maximum time a transfer buffer is held for online delivery.
type LatencyLimit struct {
	Online  bool
	Seconds int
}

// ReportingCycle of periodic status reports.
type ReportingCycle struct {
	On      bool
	Seconds int
}

// RequestedFrameQualityParameter is the requested frame quality of the last START.
type RequestedFrameQualityParameter struct{ Quality RequestedFrameQuality }

// ReturnTimeoutPeriod is the time the provider waits for returns.
type ReturnTimeoutPeriod struct{ Seconds int }

// PermittedFrameQuality lists the frame qualities a START may request.
type PermittedFrameQuality struct{ Qualities []RequestedFrameQuality }

// MinReportingCycle is the shortest accepted reporting cycle.
type MinReportingCycle struct{ Seconds int }

func (BufferSize) Name() sle.ParameterName { return sle.ParameterBufferSize }
func (DeliveryModeParameter) Name() sle.ParameterName { return sle.ParameterDeliveryMode }
func (LatencyLimit) Name() sle.ParameterName { return sle.ParameterLatencyLimit }
func (ReportingCycle) Name() sle.ParameterName { return sle.ParameterReportingCycle }
func (RequestedFrameQualityParameter) Name() sle.ParameterName { return sle.ParameterRequestedFrameQuality }
func (ReturnTimeoutPeriod) Name() sle.ParameterName { return sle.ParameterReturnTimeoutPeriod }
func (PermittedFrameQuality) Name() sle.ParameterName { return sle.ParameterPermittedFrameQuality }
func (MinReportingCycle) Name() sle.ParameterName { return sle.ParameterMinReportingCycle }

func (BufferSize) isParameter() {}
func (DeliveryModeParameter) isParameter() {}
func (LatencyLimit) isParameter() {}
func (ReportingCycle) isParameter() {}
func (RequestedFrameQualityParameter) isParameter() {}
func (ReturnTimeoutPeriod) isParameter() {}
func (PermittedFrameQuality) isParameter() {}
func (MinReportingCycle) isParameter() {}

func (p BufferSize) String() string { return fmt.Sprintf("bufferSize=%d", p.Frames) }

func (p DeliveryModeParameter) String() string { return fmt.Sprintf("deliveryMode=%v", p.Mode) }

func (p LatencyLimit) String() string {
	if !p.Online {
		return "latencyLimit=offline"
	}
	return fmt.Sprintf("latencyLimit=%ds", p.Seconds)
}

func (p ReportingCycle) String() string {
	if !p.On {
		return "reportingCycle=off"
	}
	return fmt.Sprintf("reportingCycle=%ds", p.Seconds)
}

func (p RequestedFrameQualityParameter) String() string {
	return fmt.Sprintf("requestedFrameQuality=%v", p.Quality)
}

func (p ReturnTimeoutPeriod) String() string { return fmt.Sprintf("returnTimeoutPeriod=%ds", p.Seconds) }

func (p PermittedFrameQuality) String() string {
	qualities := make([]string, len(p.Qualities))
	for i, q := range p.Qualities {
		qualities[i] = q.String()
	}
	return fmt.Sprintf("permittedFrameQuality=%s", strings.Join(qualities, ","))
}

func (p MinReportingCycle) String() string { return fmt.Sprintf("minReportingCycle=%ds", p.Seconds) }

// parameterChoices are the RAF parameters which may be queried.
var parameterChoices = map[sle.ParameterName]int{
	sle.ParameterBufferSize:            pdus.ParBufferSize,
	sle.ParameterDeliveryMode:          pdus.ParDeliveryMode,
	sle.ParameterLatencyLimit:          pdus.ParLatencyLimit,
	sle.ParameterReportingCycle:        pdus.ParReportingCycle,
	sle.ParameterRequestedFrameQuality: pdus.ParReqFrameQuality,
	sle.ParameterReturnTimeoutPeriod:   pdus.ParReturnTimeout,
	sle.ParameterPermittedFrameQuality: pdus.ParPermittedFrameQuality,
	sle.ParameterMinReportingCycle:     pdus.ParMinReportingCycle,
}

func parameterFromPdu(par pdus.RafGetParameter) (Parameter, error) {
	switch par.Choice {
	case pdus.ParBufferSize:
		return BufferSize{Frames: int(par.Value)}, nil

	case pdus.ParDeliveryMode:
		mode := DeliveryMode(par.Value)
		if !mode.isValid() {
			return nil, sle.ProtocolErrorf(sle.PeerAbortEncodingError, "invalid delivery mode %d", par.Value)
		}
		return DeliveryModeParameter{Mode: mode}, nil

	case pdus.ParLatencyLimit:
		return LatencyLimit{Online: par.Enabled, Seconds: int(par.Value)}, nil

	case pdus.ParReportingCycle:
		return ReportingCycle{On: par.Enabled, Seconds: int(par.Value)}, nil

	case pdus.ParReqFrameQuality:
		q := RequestedFrameQuality(par.Value)
		if !q.isValid() {
			return nil, sle.ProtocolErrorf(sle.PeerAbortEncodingError, "invalid frame quality %d", par.Value)
		}
		return RequestedFrameQualityParameter{Quality: q}, nil

	case pdus.ParReturnTimeout:
		return ReturnTimeoutPeriod{Seconds: int(par.Value)}, nil

	case pdus.ParPermittedFrameQuality:
		qualities := make([]RequestedFrameQuality, len(par.Values))
		for i, v := range par.Values {
			if qualities[i] = RequestedFrameQuality(v); !qualities[i].isValid() {
				return nil, sle.ProtocolErrorf(sle.PeerAbortEncodingError, "invalid frame quality %d", v)
			}
		}
		return PermittedFrameQuality{Qualities: qualities}, nil

	case pdus.ParMinReportingCycle:
		return MinReportingCycle{Seconds: int(par.Value)}, nil

	default:
		return nil, sle.ProtocolErrorf(sle.PeerAbortEncodingError, "unknown parameter choice %d", par.Choice)
	}
}
