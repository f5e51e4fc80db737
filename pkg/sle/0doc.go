// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sle contains the types shared by all Space Link Extension (SLE)
// services, as defined by CCSDS 911.1-B-4 and the related SLE blue books.
//
// Besides the CCSDS time representation, service instance identifiers and the
// standard diagnostic codes, this package provides the ISP1 credential
// handling and the one-shot Future and Correlator types used to match an
// invocation with its return on a session.
//
// The return-all-frames service user lives in the subpackage raf, the
// transport mapping layer in tml.
package sle
