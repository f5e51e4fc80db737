// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionAborted is matched by every error resulting from a
	// PEER-ABORT or the loss of the connection, using errors.Is.
	ErrConnectionAborted = errors.New("sle: connection aborted")

	// ErrAuthentication is wrapped by credentials which failed verification.
	ErrAuthentication = errors.New("sle: authentication failed")

	// ErrUnknownInvokeID is returned when a return matches no pending invocation.
	ErrUnknownInvokeID = errors.New("sle: unknown invoke id")
)

// InvalidStateError is returned if an operation is requested in a state which
// does not permit it. Nothing was sent to the provider.
type InvalidStateError struct {
	Operation string
	State     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("sle: %s not permitted in state %s", e.Operation, e.State)
}

// NegativeResultError is returned if the provider rejected an invocation. The
// Diagnostic is the one sent by the provider.
type NegativeResultError struct {
	Operation  string
	Diagnostic Diagnostic
}

func (e *NegativeResultError) Error() string {
	return fmt.Sprintf("sle: %s rejected by provider: %v", e.Operation, e.Diagnostic)
}

// ProtocolError describes a violation by the peer which forces a PEER-ABORT
// with the given diagnostic.
type ProtocolError struct {
	Diagnostic PeerAbortDiagnostic
	Err        error
}

// ProtocolErrorf creates a ProtocolError with a formatted cause.
func ProtocolErrorf(diag PeerAbortDiagnostic, format string, a ...interface{}) *ProtocolError {
	return &ProtocolError{Diagnostic: diag, Err: fmt.Errorf(format, a...)}
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("sle: protocol error (%v): %v", e.Diagnostic, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// AbortError is the reason an outstanding invocation failed after the
// connection was aborted, either locally or by the provider.
type AbortError struct {
	Diagnostic PeerAbortDiagnostic
	// Remote is true if the provider sent the PEER-ABORT.
	Remote bool
	Err    error
}

func (e *AbortError) Error() string {
	origin := "locally"
	if e.Remote {
		origin = "by provider"
	}

	if e.Err != nil {
		return fmt.Sprintf("sle: connection aborted %s (%v): %v", origin, e.Diagnostic, e.Err)
	}
	return fmt.Sprintf("sle: connection aborted %s (%v)", origin, e.Diagnostic)
}

func (e *AbortError) Is(target error) bool {
	return target == ErrConnectionAborted
}

func (e *AbortError) Unwrap() error {
	return e.Err
}
