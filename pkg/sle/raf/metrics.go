// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pdusReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sle",
		Subsystem: "raf",
		Name:      "pdus_received_total",
		Help:      "PDUs received from providers, by PDU.",
	}, []string{"pdu"})

	pdusSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sle",
		Subsystem: "raf",
		Name:      "pdus_sent_total",
		Help:      "PDUs sent to providers, by PDU.",
	}, []string{"pdu"})

	framesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sle",
		Subsystem: "raf",
		Name:      "frames_delivered_total",
		Help:      "Frames passed to frame consumers.",
	})

	notificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sle",
		Subsystem: "raf",
		Name:      "notifications_delivered_total",
		Help:      "Notifications passed to frame consumers, by notification.",
	}, []string{"notification"})

	peerAborts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sle",
		Subsystem: "raf",
		Name:      "peer_aborts_total",
		Help:      "Aborted sessions, by diagnostic and origin.",
	}, []string{"diagnostic", "origin"})

	invocationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sle",
		Subsystem: "raf",
		Name:      "invocation_results_total",
		Help:      "Returns of confirmed operations, by operation and result.",
	}, []string{"operation", "result"})
)

func countResult(operation string, positive bool) {
	result := "negative"
	if positive {
		result = "positive"
	}
	invocationResults.WithLabelValues(operation, result).Inc()
}
