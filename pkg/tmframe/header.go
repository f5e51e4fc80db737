// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tmframe

import (
	"encoding/binary"
	"fmt"
)

// Version is the transfer frame version number of the first two bits.
type Version uint8

const (
	// VersionTM identifies a TM transfer frame.
	VersionTM Version = 0

	// VersionAOS identifies an AOS transfer frame.
	VersionAOS Version = 1
)

func (v Version) String() string {
	switch v {
	case VersionTM:
		return "TM"
	case VersionAOS:
		return "AOS"
	default:
		return fmt.Sprintf("unknown version (%d)", uint8(v))
	}
}

const (
	tmHeaderLength  = 6
	aosHeaderLength = 6
)

// Header is the decoded primary header of a TM or AOS transfer frame. Fields
// which are not defined for a version are left zero.
type Header struct {
	Version          Version
	SpacecraftID     uint16
	VirtualChannelID uint8

	// VirtualChannelFrameCount is 8 bit for TM and 24 bit for AOS.
	VirtualChannelFrameCount uint32

	// TM only.
	MasterChannelFrameCount uint8
	OcfFlag                 bool
	DataFieldStatus         uint16

	// AOS only.
	ReplayFlag bool
}

func (h Header) String() string {
	return fmt.Sprintf("%v(scid=%d, vcid=%d, vcfc=%d)",
		h.Version, h.SpacecraftID, h.VirtualChannelID, h.VirtualChannelFrameCount)
}

// FirstHeaderPointer of a TM frame's data field status.
func (h Header) FirstHeaderPointer() uint16 {
	return h.DataFieldStatus & 0x07FF
}

// ParseHeader decodes the primary header at the frame's start.
func ParseHeader(frame []byte) (h Header, err error) {
	if len(frame) < 1 {
		err = fmt.Errorf("empty frame")
		return
	}

	switch v := Version(frame[0] >> 6); v {
	case VersionTM:
		if len(frame) < tmHeaderLength {
			err = fmt.Errorf("TM frame of %d octets is shorter than its primary header", len(frame))
			return
		}

		id := binary.BigEndian.Uint16(frame[0:2])
		h = Header{
			Version:                  VersionTM,
			SpacecraftID:             (id >> 4) & 0x03FF,
			VirtualChannelID:         uint8(id>>1) & 0x07,
			OcfFlag:                  id&0x01 == 1,
			MasterChannelFrameCount:  frame[2],
			VirtualChannelFrameCount: uint32(frame[3]),
			DataFieldStatus:          binary.BigEndian.Uint16(frame[4:6]),
		}

	case VersionAOS:
		if len(frame) < aosHeaderLength {
			err = fmt.Errorf("AOS frame of %d octets is shorter than its primary header", len(frame))
			return
		}

		id := binary.BigEndian.Uint16(frame[0:2])
		h = Header{
			Version:                  VersionAOS,
			SpacecraftID:             (id >> 6) & 0x00FF,
			VirtualChannelID:         uint8(id) & 0x3F,
			VirtualChannelFrameCount: uint32(frame[2])<<16 | uint32(frame[3])<<8 | uint32(frame[4]),
			ReplayFlag:               frame[5]&0x80 != 0,
		}

	default:
		err = fmt.Errorf("unsupported transfer frame %v", v)
	}
	return
}
