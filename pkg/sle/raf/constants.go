// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"fmt"

	"github.com/dtn7/sle-go/pkg/sle"
)

// DeliveryMode of a RAF service instance.
type DeliveryMode int

const (
	TimelyOnline   DeliveryMode = 0
	CompleteOnline DeliveryMode = 1
	Offline        DeliveryMode = 2
)

func (mode DeliveryMode) String() string {
	switch mode {
	case TimelyOnline:
		return "timely"
	case CompleteOnline:
		return "complete"
	case Offline:
		return "offline"
	default:
		return fmt.Sprintf("unknown delivery mode (%d)", int(mode))
	}
}

// instancePrefix is the prefix of the "raf" service instance attribute.
func (mode DeliveryMode) instancePrefix() string {
	switch mode {
	case TimelyOnline:
		return "onlt"
	case CompleteOnline:
		return "onlc"
	default:
		return "offl"
	}
}

func (mode DeliveryMode) isValid() bool {
	return mode >= TimelyOnline && mode <= Offline
}

// ParseDeliveryMode parses "timely", "complete" or "offline".
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	for _, mode := range []DeliveryMode{TimelyOnline, CompleteOnline, Offline} {
		if mode.String() == s {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown delivery mode %q", s)
}

// RequestedFrameQuality selects the frames delivered after START.
type RequestedFrameQuality int

const (
	GoodFramesOnly  RequestedFrameQuality = 0
	ErredFramesOnly RequestedFrameQuality = 1
	AllFrames       RequestedFrameQuality = 2
)

func (q RequestedFrameQuality) String() string {
	switch q {
	case GoodFramesOnly:
		return "good"
	case ErredFramesOnly:
		return "erred"
	case AllFrames:
		return "all"
	default:
		return fmt.Sprintf("unknown frame quality (%d)", int(q))
	}
}

func (q RequestedFrameQuality) isValid() bool {
	return q >= GoodFramesOnly && q <= AllFrames
}

// ParseRequestedFrameQuality parses "good", "erred" or "all".
func ParseRequestedFrameQuality(s string) (RequestedFrameQuality, error) {
	for _, q := range []RequestedFrameQuality{GoodFramesOnly, ErredFramesOnly, AllFrames} {
		if q.String() == s {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown frame quality %q", s)
}

// FrameQuality is the quality of a delivered frame.
type FrameQuality int

const (
	FrameGood         FrameQuality = 0
	FrameErred        FrameQuality = 1
	FrameUndetermined FrameQuality = 2
)

func (q FrameQuality) String() string {
	switch q {
	case FrameGood:
		return "good"
	case FrameErred:
		return "erred"
	case FrameUndetermined:
		return "undetermined"
	default:
		return fmt.Sprintf("unknown frame quality (%d)", int(q))
	}
}

// LockStatus of the carrier, subcarrier, symbol or frame synchronization.
type LockStatus int

const (
	InLock      LockStatus = 0
	OutOfLock   LockStatus = 1
	NotInUse    LockStatus = 2
	LockUnknown LockStatus = 3
)

var lockStatusNames = map[LockStatus]string{
	InLock:      "inLock",
	OutOfLock:   "outOfLock",
	NotInUse:    "notInUse",
	LockUnknown: "unknown",
}

func (ls LockStatus) String() string {
	if s, ok := lockStatusNames[ls]; ok {
		return s
	}
	return fmt.Sprintf("invalid lock status (%d)", int(ls))
}

// lockStatusByCode maps a received code. Only a subcarrier lock may be
// notInUse. Each other value is an encoding error.
func lockStatusByCode(code int64, subcarrier bool) (LockStatus, error) {
	ls := LockStatus(code)
	if _, ok := lockStatusNames[ls]; !ok || code != int64(ls) || (ls == NotInUse && !subcarrier) {
		return 0, sle.ProtocolErrorf(sle.PeerAbortEncodingError, "invalid lock status %d", code)
	}
	return ls, nil
}

// ProductionStatus of the provider's frame production.
type ProductionStatus int

const (
	ProductionRunning     ProductionStatus = 0
	ProductionInterrupted ProductionStatus = 1
	ProductionHalted      ProductionStatus = 2
)

var productionStatusNames = map[ProductionStatus]string{
	ProductionRunning:     "running",
	ProductionInterrupted: "interrupted",
	ProductionHalted:      "halted",
}

func (ps ProductionStatus) String() string {
	if s, ok := productionStatusNames[ps]; ok {
		return s
	}
	return fmt.Sprintf("invalid production status (%d)", int(ps))
}

func productionStatusByCode(code int64) (ProductionStatus, error) {
	if _, ok := productionStatusNames[ProductionStatus(code)]; !ok || code != int64(ProductionStatus(code)) {
		return 0, sle.ProtocolErrorf(sle.PeerAbortEncodingError, "invalid production status %d", code)
	}
	return ProductionStatus(code), nil
}

// State of a ServiceUser.
type State int32

const (
	StateUnbound State = iota
	StateBindPending
	StateReady
	StateStarting
	StateActive
	StateStopPending
	StateUnbindPending
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBindPending:
		return "bind pending"
	case StateReady:
		return "ready"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopPending:
		return "stop pending"
	case StateUnbindPending:
		return "unbind pending"
	default:
		return fmt.Sprintf("unknown state (%d)", int(s))
	}
}

// IsBound reports whether a BIND was confirmed and no UNBIND requested yet.
func (s State) IsBound() bool {
	return s >= StateReady && s <= StateStopPending
}
