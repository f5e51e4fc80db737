// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package agent exposes a RAF session to other programs.
//
// The Feed is registered as the session's FrameConsumer and Monitor. It
// broadcasts each frame, notification, status report and state change as a
// CBOR message to all connected WebSocket clients. The router created by
// NewRouter serves the Feed next to a small JSON interface for the session's
// status and parameters and the Prometheus metrics.
package agent
