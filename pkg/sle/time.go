// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	picosPerNano  int64 = 1000
	picosPerMicro int64 = 1000 * picosPerNano
	picosPerMilli int64 = 1000 * picosPerMicro
	picosPerDay   int64 = 86400 * 1000 * picosPerMilli

	// CdsLength is the length of the CCSDS day segmented time code with a
	// 16 bit day and a 16 bit microsecond field.
	CdsLength = 8
	// CdsPicoLength is the length of the CCSDS day segmented time code with a
	// 16 bit day and a 32 bit picosecond field.
	CdsPicoLength = 10
)

// cdsEpoch is the CCSDS recommended epoch for the day segmented time code.
var cdsEpoch = time.Date(1958, time.January, 1, 0, 0, 0, 0, time.UTC)

// Time is a CCSDS day segmented time, counted in days since 1958-01-01 UTC and
// picoseconds of the day. Leap seconds are not represented.
type Time struct {
	Days  int
	Picos int64
}

// TimeFromTime returns the Time for the time.Time, truncated to nanoseconds.
func TimeFromTime(t time.Time) Time {
	d := t.UTC().Sub(cdsEpoch)
	days := int(d / (24 * time.Hour))
	rest := d - time.Duration(days)*24*time.Hour

	if rest < 0 {
		days--
		rest += 24 * time.Hour
	}

	return Time{Days: days, Picos: int64(rest) * picosPerNano}
}

// TimeNow returns the current time as a Time.
func TimeNow() Time {
	return TimeFromTime(time.Now())
}

// Time returns a UTC-based time.Time for this Time. Sub-nanosecond precision
// is lost.
func (t Time) Time() time.Time {
	return cdsEpoch.AddDate(0, 0, t.Days).Add(time.Duration(t.Picos / picosPerNano))
}

// IsZero reports whether this Time is the CCSDS epoch.
func (t Time) IsZero() bool {
	return t.Days == 0 && t.Picos == 0
}

// String returns this Time's string representation.
func (t Time) String() string {
	return t.Time().Format("2006-01-02T15:04:05.000000Z")
}

// validate checks that t can be written in a day segmented time code.
func (t Time) validate() error {
	if t.Days < 0 || t.Days > 0xFFFF {
		return fmt.Errorf("day %d out of range for CDS time", t.Days)
	}
	if t.Picos < 0 || t.Picos >= picosPerDay {
		return fmt.Errorf("picoseconds %d out of range for CDS time", t.Picos)
	}
	return nil
}

// MarshalCds returns the 8 octets CDS representation: day count, milliseconds
// of day and microseconds of millisecond.
func (t Time) MarshalCds() ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, CdsLength)
	binary.BigEndian.PutUint16(buf[0:2], uint16(t.Days))
	binary.BigEndian.PutUint32(buf[2:6], uint32(t.Picos/picosPerMilli))
	binary.BigEndian.PutUint16(buf[6:8], uint16((t.Picos%picosPerMilli)/picosPerMicro))
	return buf, nil
}

// MarshalCdsPico returns the 10 octets CDS representation: day count,
// milliseconds of day and picoseconds of millisecond.
func (t Time) MarshalCdsPico() ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, CdsPicoLength)
	binary.BigEndian.PutUint16(buf[0:2], uint16(t.Days))
	binary.BigEndian.PutUint32(buf[2:6], uint32(t.Picos/picosPerMilli))
	binary.BigEndian.PutUint32(buf[6:10], uint32(t.Picos%picosPerMilli))
	return buf, nil
}

// TimeFromCds parses either the 8 or the 10 octets CDS representation.
func TimeFromCds(data []byte) (Time, error) {
	if len(data) != CdsLength && len(data) != CdsPicoLength {
		return Time{}, fmt.Errorf("CDS time must have %d or %d octets, got %d", CdsLength, CdsPicoLength, len(data))
	}

	days := int(binary.BigEndian.Uint16(data[0:2]))
	millis := int64(binary.BigEndian.Uint32(data[2:6]))
	if millis >= picosPerDay/picosPerMilli {
		return Time{}, fmt.Errorf("CDS milliseconds of day %d out of range", millis)
	}

	var sub int64
	if len(data) == CdsLength {
		micros := int64(binary.BigEndian.Uint16(data[6:8]))
		if micros >= 1000 {
			return Time{}, fmt.Errorf("CDS microseconds of millisecond %d out of range", micros)
		}
		sub = micros * picosPerMicro
	} else {
		sub = int64(binary.BigEndian.Uint32(data[6:10]))
		if sub >= picosPerMilli {
			return Time{}, fmt.Errorf("CDS picoseconds of millisecond %d out of range", sub)
		}
	}

	return Time{Days: days, Picos: millis*picosPerMilli + sub}, nil
}
