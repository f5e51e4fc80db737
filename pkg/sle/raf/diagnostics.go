// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"fmt"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/pdus"
)

// StartDiagnostic is the specific diagnostic of a negative RAF-START return.
type StartDiagnostic int

const (
	StartOutOfService     StartDiagnostic = 0
	StartUnableToComply   StartDiagnostic = 1
	StartInvalidStartTime StartDiagnostic = 2
	StartInvalidStopTime  StartDiagnostic = 3
	StartMissingTimeValue StartDiagnostic = 4
)

func (d StartDiagnostic) Code() int { return int(d) }

func (d StartDiagnostic) String() string {
	switch d {
	case StartOutOfService:
		return "outOfService"
	case StartUnableToComply:
		return "unableToComply"
	case StartInvalidStartTime:
		return "invalidStartTime"
	case StartInvalidStopTime:
		return "invalidStopTime"
	case StartMissingTimeValue:
		return "missingTimeValue"
	default:
		return fmt.Sprintf("unknown start diagnostic (%d)", int(d))
	}
}

// GetParameterDiagnostic is the specific diagnostic of a negative RAF-GET-PARAMETER return.
type GetParameterDiagnostic int

const GetParameterUnknownParameter GetParameterDiagnostic = 0

func (d GetParameterDiagnostic) Code() int { return int(d) }

func (d GetParameterDiagnostic) String() string {
	if d == GetParameterUnknownParameter {
		return "unknownParameter"
	}
	return fmt.Sprintf("unknown get parameter diagnostic (%d)", int(d))
}

// ScheduleStatusReportDiagnostic is the specific diagnostic of a negative SCHEDULE-STATUS-REPORT return.
type ScheduleStatusReportDiagnostic int

const (
	ScheduleNotSupportedInThisDeliveryMode ScheduleStatusReportDiagnostic = 0
	ScheduleAlreadyStopped                 ScheduleStatusReportDiagnostic = 1
	ScheduleInvalidReportingCycle          ScheduleStatusReportDiagnostic = 2
)

func (d ScheduleStatusReportDiagnostic) Code() int { return int(d) }

func (d ScheduleStatusReportDiagnostic) String() string {
	switch d {
	case ScheduleNotSupportedInThisDeliveryMode:
		return "notSupportedInThisDeliveryMode"
	case ScheduleAlreadyStopped:
		return "alreadyStopped"
	case ScheduleInvalidReportingCycle:
		return "invalidReportingCycle"
	default:
		return fmt.Sprintf("unknown schedule status report diagnostic (%d)", int(d))
	}
}

// diagnostic converts a received diagnostic choice, using specific for the specific alternative.
func diagnostic(d pdus.Diagnostic, specific func(int) sle.Diagnostic) sle.Diagnostic {
	if d.Specific {
		return specific(int(d.Code))
	}
	return sle.CommonDiagnostic(d.Code)
}

func startDiagnostic(code int) sle.Diagnostic { return StartDiagnostic(code) }

func getParameterDiagnostic(code int) sle.Diagnostic { return GetParameterDiagnostic(code) }

func scheduleDiagnostic(code int) sle.Diagnostic { return ScheduleStatusReportDiagnostic(code) }
