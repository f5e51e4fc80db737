// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tml

import (
	"sync"
	"time"
)

// HeartbeatTicker is a variant of the time.Ticker which works like a wind-up clock.
//
// The next tick of its channel C is programmed by calling Reschedule, replacing a pending tick. The channel C will
// NOT be closed to prevent reading the closing as an erroneous tick.
type HeartbeatTicker struct {
	// c is the internal channel. External calls should use C, which is the same just with directions.
	c chan time.Time

	// C sends ticks with the current time.
	C <-chan time.Time

	mutex   sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewHeartbeatTicker which needs to be scheduled by calling Reschedule.
func NewHeartbeatTicker() *HeartbeatTicker {
	c := make(chan time.Time, 1)
	return &HeartbeatTicker{
		c: c,
		C: c,
	}
}

// Reschedule the next tick for this ticker's channel C.
func (ticker *HeartbeatTicker) Reschedule(delay time.Duration) {
	ticker.mutex.Lock()
	defer ticker.mutex.Unlock()

	if ticker.stopped {
		return
	}

	if ticker.timer != nil {
		ticker.timer.Stop()
	}
	ticker.timer = time.AfterFunc(delay, func() {
		select {
		case ticker.c <- time.Now():
		default:
		}
	})
}

// Stop this ticker.
//
// The internal channel C will NOT be closed to prevent reading the closing as an erroneous tick.
func (ticker *HeartbeatTicker) Stop() {
	ticker.mutex.Lock()
	defer ticker.mutex.Unlock()

	ticker.stopped = true
	if ticker.timer != nil {
		ticker.timer.Stop()
	}
}
