// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/raf"
	"github.com/dtn7/sle-go/pkg/sle/tml"
	"github.com/dtn7/sle-go/pkg/storage"
)

// closedAddress returns an address on which nobody listens.
func closedAddress(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestStartDaemonUnreachable(t *testing.T) {
	dir := t.TempDir()

	s := session{
		Address: closedAddress(t),
		Raf: raf.Configuration{
			InitiatorID:      "mcc",
			ResponderPort:    "RAF_PORT",
			ServiceAgreement: "1",
			ServicePackage:   "2",
			FunctionalGroup:  "3",
			Instance:         1,
			AuthLevel:        sle.AuthNone,
		},
		Tml:         tml.DefaultConfiguration(),
		ArchiveDir:  dir,
		Retention:   time.Hour,
		AgentListen: "127.0.0.1:0",
	}

	if d, err := startDaemon(s); err == nil {
		_ = d.Close()
		t.Fatal("Starting without a provider succeeded")
	}

	// The archive must have been closed again.
	store, err := storage.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConfigWatcher(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	log.SetLevel(log.InfoLevel)

	filename := filepath.Join(t.TempDir(), "rafd.toml")
	if err := os.WriteFile(filename, []byte("[logging]\nlevel = \"info\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cw, err := watchConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer cw.Close()

	if err := os.WriteFile(filename, []byte("[logging]\nlevel = \"trace\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for log.GetLevel() != log.TraceLevel {
		if time.Now().After(deadline) {
			t.Fatalf("Log level is still %v", log.GetLevel())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
