// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package raf implements the user side of the SLE Return All Frames service,
// CCSDS 911.1-B-4.
//
// A ServiceUser binds to a provider over a Transport, e.g., a tml.Conn, and
// requests the delivery of telemetry frames by START. Received frames and
// notifications are passed to a FrameConsumer, status reports to the
// registered Monitors.
//
// Every ServiceUser is driven by one goroutine which owns the whole session
// state. Operations are posted to this goroutine and report their outcome
// through a sle.Future. Callbacks are invoked from this goroutine as well and
// must not call the blocking methods of their ServiceUser.
//
// Each violation of the protocol by the provider, e.g., an unexpected PDU or
// invalid credentials, results in a PEER-ABORT. All outstanding invocations
// fail with an error matching sle.ErrConnectionAborted afterwards.
package raf
