// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import (
	"bytes"
	"testing"
	"time"
)

func TestTimeEpoch(t *testing.T) {
	var epoch Time
	if ttime := epoch.Time(); !ttime.Equal(time.Date(1958, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("Time does not represent 1958-01-01, instead: %v", ttime)
	}

	if !TimeFromTime(epoch.Time()).IsZero() {
		t.Fatalf("Converting the epoch back diverges: %v", TimeFromTime(epoch.Time()))
	}
}

func TestTimeFromTime(t *testing.T) {
	tests := []struct {
		in   time.Time
		want Time
	}{
		{time.Date(1958, 1, 2, 0, 0, 0, 0, time.UTC), Time{Days: 1}},
		{time.Date(2000, 1, 1, 0, 0, 0, 1002000, time.UTC), Time{Days: 15340, Picos: 1002000000}},
		{time.Date(1957, 12, 31, 12, 0, 0, 0, time.UTC), Time{Days: -1, Picos: 12 * 3600 * picosPerMilli * 1000}},
	}

	for _, test := range tests {
		if got := TimeFromTime(test.in); got != test.want {
			t.Fatalf("TimeFromTime(%v): expected %+v, got %+v", test.in, test.want, got)
		}
	}
}

func TestTimeCds(t *testing.T) {
	ct := TimeFromTime(time.Date(2000, 1, 1, 0, 0, 0, 1002000, time.UTC))

	tests := []struct {
		marshal func() ([]byte, error)
		data    []byte
	}{
		{ct.MarshalCds, []byte{
			0x3B, 0xEC,             // days
			0x00, 0x00, 0x00, 0x01, // milliseconds of day
			0x00, 0x02,             // microseconds of millisecond
		}},
		{ct.MarshalCdsPico, []byte{
			0x3B, 0xEC,             // days
			0x00, 0x00, 0x00, 0x01, // milliseconds of day
			0x00, 0x1E, 0x84, 0x80, // picoseconds of millisecond
		}},
	}

	for _, test := range tests {
		data, err := test.marshal()
		if err != nil {
			t.Fatal(err)
		} else if !bytes.Equal(data, test.data) {
			t.Fatalf("Expected %x, got %x", test.data, data)
		}

		if ct2, err := TimeFromCds(data); err != nil {
			t.Fatal(err)
		} else if ct2 != ct {
			t.Fatalf("Parsed time diverges: expected %v, got %v", ct, ct2)
		}
	}
}

func TestTimeCdsInvalid(t *testing.T) {
	tests := [][]byte{
		{},
		{0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00},
		{0x00, 0x01, 0x05, 0x26, 0x5C, 0x00, 0x00, 0x00},
		{0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x03, 0xE8},
		{0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x3B, 0x9A, 0xCA, 0x00},
	}

	for _, data := range tests {
		if _, err := TimeFromCds(data); err == nil {
			t.Fatalf("Parsing %x succeeded", data)
		}
	}

	if _, err := (Time{Days: 0x10000}).MarshalCds(); err == nil {
		t.Fatal("Marshalling a day beyond 16 bit succeeded")
	}
}
