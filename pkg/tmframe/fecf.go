// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tmframe

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/howeyc/crc16"
)

// fecfLength of the frame error control field, trailing each frame if present.
const fecfLength = 2

// ErrFecfMismatch is returned for frames whose error control field does not match.
var ErrFecfMismatch = errors.New("frame error control field mismatch")

// Fecf calculates the CRC-16-CCITT-FALSE over the data.
func Fecf(data []byte) uint16 {
	return crc16.ChecksumCCITTFalse(data)
}

// CheckFecf compares the frame's trailing error control field against the
// checksum of the preceding octets.
func CheckFecf(frame []byte) error {
	if len(frame) <= fecfLength {
		return fmt.Errorf("frame of %d octets has no room for an error control field", len(frame))
	}

	payload, field := frame[:len(frame)-fecfLength], frame[len(frame)-fecfLength:]
	if expected, actual := Fecf(payload), binary.BigEndian.Uint16(field); expected != actual {
		return fmt.Errorf("%w: expected %04x, got %04x", ErrFecfMismatch, expected, actual)
	}
	return nil
}

// AppendFecf appends the error control field for the frame.
func AppendFecf(frame []byte) []byte {
	return binary.BigEndian.AppendUint16(frame, Fecf(frame))
}
