// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"fmt"

	"github.com/dtn7/sle-go/pkg/sle"
)

// FrameConsumer receives the content of the transfer buffers, in order.
//
// All methods are called from the ServiceUser's goroutine and should return
// quickly; no further PDU is processed meanwhile.
type FrameConsumer interface {
	// AcceptFrame is called for each frame with verified credentials.
	AcceptFrame(f Frame)

	// OnLossFrameSync is called when the provider lost the frame synchronization.
	OnLossFrameSync(t sle.Time, carrier, subcarrier, symbol LockStatus)

	// OnProductionStatusChange is called with the provider's new production status.
	OnProductionStatusChange(status ProductionStatus)

	// OnExcessiveDataBacklog is called if the provider had to discard data.
	OnExcessiveDataBacklog()

	// OnEndOfData is called after the last frame of an offline delivery or a stop time.
	OnEndOfData()
}

// StatusReport of a RAF-STATUS-REPORT invocation.
type StatusReport struct {
	ErrorFreeFrames  int64
	DeliveredFrames  int64
	FrameSyncLock    LockStatus
	SymbolSyncLock   LockStatus
	SubcarrierLock   LockStatus
	CarrierLock      LockStatus
	ProductionStatus ProductionStatus
}

func (sr StatusReport) String() string {
	return fmt.Sprintf("StatusReport(error free %d, delivered %d, frame %v, symbol %v, subcarrier %v, carrier %v, %v)",
		sr.ErrorFreeFrames, sr.DeliveredFrames,
		sr.FrameSyncLock, sr.SymbolSyncLock, sr.SubcarrierLock, sr.CarrierLock, sr.ProductionStatus)
}

// Monitor receives status reports. A Monitor may additionally implement
// StateMonitor or ConnectionMonitor.
type Monitor interface {
	OnStatusReport(report StatusReport)
}

// StateMonitor is notified about each state change of a ServiceUser.
type StateMonitor interface {
	OnStateChange(state State)
}

// ConnectionMonitor is notified when the transport of a ServiceUser was
// closed. The error is nil after a regular UNBIND.
type ConnectionMonitor interface {
	OnDisconnect(err error)
}
