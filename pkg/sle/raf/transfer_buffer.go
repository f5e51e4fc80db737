// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/pdus"
)

// processTransferBuffer passes each unit to the FrameConsumer, in order. A
// unit is verified and mapped completely before it is delivered; processing
// ends at the first invalid unit or when the ServiceUser was closed.
func (su *ServiceUser) processTransferBuffer(buf *pdus.RafTransferBuffer) error {
	for i, unit := range buf.Units {
		select {
		case <-su.closeSyn:
			return nil
		default:
		}

		var err error
		switch {
		case unit.Frame != nil:
			err = su.processFrame(unit.Frame)
		case unit.Notification != nil:
			err = su.processNotification(unit.Notification)
		default:
			err = sle.ProtocolErrorf(sle.PeerAbortEncodingError, "empty unit")
		}

		if err != nil {
			return fmt.Errorf("transfer buffer unit %d: %w", i, err)
		}
	}
	return nil
}

func (su *ServiceUser) processFrame(inv *pdus.RafTransferDataInvocation) error {
	if err := su.verify(sle.AuthAll, inv.InvokerCredentials); err != nil {
		return err
	}

	frame, err := frameFromPdu(inv)
	if err != nil {
		return err
	}

	framesDelivered.Inc()
	su.callback(func() { su.consumer.AcceptFrame(frame) })
	return nil
}

func (su *ServiceUser) processNotification(inv *pdus.RafSyncNotifyInvocation) error {
	if err := su.verify(sle.AuthAll, inv.InvokerCredentials); err != nil {
		return err
	}

	n := inv.Notification
	switch n.Type {
	case pdus.NotifyLossFrameSync:
		carrier, err := lockStatusByCode(n.CarrierLock, false)
		if err != nil {
			return err
		}
		subcarrier, err := lockStatusByCode(n.SubcarrierLock, true)
		if err != nil {
			return err
		}
		symbol, err := lockStatusByCode(n.SymbolSyncLock, false)
		if err != nil {
			return err
		}

		notificationsDelivered.WithLabelValues("loss-frame-sync").Inc()
		su.log().WithFields(log.Fields{
			"carrier":    carrier,
			"subcarrier": subcarrier,
			"symbol":     symbol,
		}).Debug("Provider lost frame synchronization")
		su.callback(func() { su.consumer.OnLossFrameSync(n.Time, carrier, subcarrier, symbol) })

	case pdus.NotifyProductionStatusChange:
		status, err := productionStatusByCode(n.ProductionStatus)
		if err != nil {
			return err
		}

		notificationsDelivered.WithLabelValues("production-status-change").Inc()
		su.log().WithField("production status", status).Debug("Provider changed production status")
		su.callback(func() { su.consumer.OnProductionStatusChange(status) })

	case pdus.NotifyExcessiveDataBacklog:
		notificationsDelivered.WithLabelValues("excessive-data-backlog").Inc()
		su.log().Warn("Provider reported an excessive data backlog")
		su.callback(func() { su.consumer.OnExcessiveDataBacklog() })

	case pdus.NotifyEndOfData:
		notificationsDelivered.WithLabelValues("end-of-data").Inc()
		su.log().Info("Provider reported the end of data")
		su.callback(func() { su.consumer.OnEndOfData() })

	default:
		return sle.ProtocolErrorf(sle.PeerAbortEncodingError, "unknown notification %d", n.Type)
	}

	return nil
}
