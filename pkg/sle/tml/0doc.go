// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tml implements the initiating side of the SLE Transport Mapping
// Layer, CCSDS 913.1-B-2, which carries SLE PDUs over TCP.
//
// Each TML message starts with an eight octet header: the message type, three
// zero octets and the body length as a 32 bit big-endian integer. After the
// TCP connection is established, the initiator sends a context message with
// its heartbeat interval and dead factor. Afterwards, SLE PDUs are exchanged
// and heartbeat messages are sent when the connection is idle.
package tml
