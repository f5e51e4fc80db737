// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/raf"
)

const testConfig = `
[logging]
level = "debug"
report-caller = false
format = "text"

[sle]
address = "provider.example:5008"
initiator-id = "mcc"
responder-id = "station"
responder-port = "RAF_PORT"
local-password = "0123456789abcdef"
peer-password = "fedcba9876543210"
auth-level = "bind"
hash = "sha256"
acceptable-delay = "2m"
heartbeat = "20s"
dead-factor = 3
sagr = "3"
spack = "facility-PASS1"
rsl-fg = "1"
raf-instance = 2

[raf]
delivery-mode = "complete"
frame-quality = "good"
start = "2026-10-14T10:00:00Z"
report-cycle = 30

[archive]
dir = "/var/lib/rafd"
retention = "72h"

[agent]
listen = "localhost:8080"
`

func TestParseSession(t *testing.T) {
	conf, err := decodeConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatal(err)
	}

	if conf.Logging.Level != "debug" || conf.Logging.Format != "text" {
		t.Fatalf("Logging block differs: %v", conf.Logging)
	}

	s, err := parseSession(conf)
	if err != nil {
		t.Fatal(err)
	}

	if s.Address != "provider.example:5008" {
		t.Fatalf("Address is %q", s.Address)
	}

	if s.Raf.DeliveryMode != raf.CompleteOnline || s.Raf.RequestedFrameQuality != raf.GoodFramesOnly {
		t.Fatalf("RAF settings differ: %v, %v", s.Raf.DeliveryMode, s.Raf.RequestedFrameQuality)
	}
	if s.Raf.Instance != 2 || s.Raf.ServicePackage != "facility-PASS1" {
		t.Fatalf("Service instance differs: %v", s.Raf)
	}

	auth, ok := s.Raf.Authenticator.(*sle.Isp1Authentication)
	if !ok {
		t.Fatalf("Authenticator is %T", s.Raf.Authenticator)
	}
	expectedAuth := &sle.Isp1Authentication{
		LocalID:         "mcc",
		LocalPassword:   []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef},
		PeerID:          "station",
		PeerPassword:    []byte{0xfe, 0xdc, 0xba, 0x98, 0x76, 0x54, 0x32, 0x10},
		Hash:            sle.HashSHA256,
		AcceptableDelay: 2 * time.Minute,
	}
	if diff := cmp.Diff(expectedAuth, auth); diff != "" {
		t.Fatalf("Authenticator differs (-want +got):\n%s", diff)
	}

	if s.Tml.HeartbeatInterval != 20*time.Second || s.Tml.DeadFactor != 3 {
		t.Fatalf("TML settings differ: %v", s.Tml)
	}

	if s.Start == nil || !s.Start.Time().Equal(time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("Start time is %v", s.Start)
	}
	if s.Stop != nil {
		t.Fatalf("Stop time is %v", s.Stop)
	}
	if s.ReportCycle != 30 {
		t.Fatalf("Report cycle is %d", s.ReportCycle)
	}

	if s.ArchiveDir != "/var/lib/rafd" || s.Retention != 72*time.Hour {
		t.Fatalf("Archive settings differ: %q, %v", s.ArchiveDir, s.Retention)
	}
	if s.AgentListen != "localhost:8080" {
		t.Fatalf("Agent listens on %q", s.AgentListen)
	}
}

func TestParseSessionDefaults(t *testing.T) {
	conf, err := decodeConfig(strings.NewReader(`
[sle]
address = "localhost:5008"
initiator-id = "mcc"
responder-port = "RAF_PORT"
sagr = "1"
spack = "2"
rsl-fg = "3"
raf-instance = 1
`))
	if err != nil {
		t.Fatal(err)
	}

	s, err := parseSession(conf)
	if err != nil {
		t.Fatal(err)
	}

	if s.Raf.DeliveryMode != raf.TimelyOnline || s.Raf.RequestedFrameQuality != raf.AllFrames {
		t.Fatalf("Default RAF settings differ: %v, %v", s.Raf.DeliveryMode, s.Raf.RequestedFrameQuality)
	}
	if s.Raf.AuthLevel != sle.AuthNone || s.Raf.Authenticator != nil {
		t.Fatalf("Unexpected authentication: %v, %v", s.Raf.AuthLevel, s.Raf.Authenticator)
	}
	if s.Tml.HeartbeatInterval != 30*time.Second {
		t.Fatalf("Default heartbeat is %v", s.Tml.HeartbeatInterval)
	}
	if s.ArchiveDir != "" || s.AgentListen != "" {
		t.Fatalf("Unexpected archive %q or agent %q", s.ArchiveDir, s.AgentListen)
	}
}

func TestParseSessionInvalid(t *testing.T) {
	conf, err := decodeConfig(strings.NewReader(`
[sle]
initiator-id = "mcc"
responder-port = "RAF_PORT"
auth-level = "all"
local-password = "not hex"
heartbeat = "500ms"
sagr = "1"
spack = "2"
rsl-fg = "3"
raf-instance = 1

[raf]
delivery-mode = "sometimes"
stop = "tomorrow"

[archive]
retention = "1h"
`))
	if err != nil {
		t.Fatal(err)
	}

	_, err = parseSession(conf)
	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("Expected a multierror, got %v", err)
	}

	// address, local-password, raf.Configuration (delivery mode, authenticator),
	// heartbeat, stop and retention
	if n := len(merr.Errors); n < 6 {
		t.Fatalf("Expected at least six errors, got %d: %v", n, merr)
	}
}
