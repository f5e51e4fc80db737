// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// rafd receives all frames of one CCSDS SLE RAF service instance, archives
// them and serves them to WebSocket clients.
package main

import (
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
)

// waitSigint blocks the current thread until a SIGINT appears.
func waitSigint() {
	signalSyn := make(chan os.Signal, 1)
	signalAck := make(chan struct{})

	signal.Notify(signalSyn, os.Interrupt)

	go func() {
		<-signalSyn
		close(signalAck)
	}()

	<-signalAck
}

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("Usage: %s configuration.toml", os.Args[0])
	}

	conf, err := loadConfig(os.Args[1])
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Failed to parse config")
	}
	conf.Logging.apply()

	s, err := parseSession(conf)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Invalid config")
	}

	watcher, err := watchConfig(os.Args[1])
	if err != nil {
		log.WithError(err).Warn("Failed to watch config, changes require a restart")
	}

	d, err := startDaemon(s)
	if err != nil {
		log.WithError(err).Fatal("Failed to start RAF session")
	}

	waitSigint()
	log.Info("Shutting down..")

	if err := d.Close(); err != nil {
		log.WithError(err).Warn("Shutting down errored")
	}

	if watcher != nil {
		_ = watcher.Close()
	}
}
