// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/raf"
	"github.com/dtn7/sle-go/pkg/sle/tml"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Logging logConf
	Sle     sleConf
	Raf     rafConf
	Archive archiveConf
	Agent   agentConf
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// sleConf describes the SLE-configuration block: the provider, the identities
// and the service instance.
type sleConf struct {
	Address string

	InitiatorID   string `toml:"initiator-id"`
	ResponderID   string `toml:"responder-id"`
	ResponderPort string `toml:"responder-port"`

	LocalPassword   string `toml:"local-password"`
	PeerPassword    string `toml:"peer-password"`
	AuthLevel       string `toml:"auth-level"`
	Hash            string
	AcceptableDelay string `toml:"acceptable-delay"`

	Version    int
	Heartbeat  string
	DeadFactor int `toml:"dead-factor"`

	ServiceAgreement string `toml:"sagr"`
	ServicePackage   string `toml:"spack"`
	FunctionalGroup  string `toml:"rsl-fg"`
	Instance         int    `toml:"raf-instance"`
}

// rafConf describes the RAF-configuration block.
type rafConf struct {
	DeliveryMode string `toml:"delivery-mode"`
	FrameQuality string `toml:"frame-quality"`
	Start        string
	Stop         string
	ReportCycle  int `toml:"report-cycle"`
}

// archiveConf describes the Archive-configuration block.
type archiveConf struct {
	Dir       string
	Retention string
}

// agentConf describes the Agent-configuration block.
type agentConf struct {
	Listen string
}

// session is everything parsed from the configuration to run a RAF session.
type session struct {
	Address string

	Raf raf.Configuration
	Tml tml.Configuration

	Start       *sle.Time
	Stop        *sle.Time
	ReportCycle int

	ArchiveDir string
	Retention  time.Duration

	AgentListen string
}

// decodeConfig reads a TOML configuration.
func decodeConfig(r io.Reader) (conf tomlConfig, err error) {
	_, err = toml.NewDecoder(r).Decode(&conf)
	return
}

// loadConfig reads the TOML configuration file.
func loadConfig(filename string) (conf tomlConfig, err error) {
	_, err = toml.DecodeFile(filename, &conf)
	return
}

// apply the logging configuration to the standard logger.
func (conf logConf) apply() {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}
}

// parseDuration of an optional field.
func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// parseTime of an optional RFC 3339 field.
func parseTime(field, s string) (*sle.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	st := sle.TimeFromTime(t)
	return &st, nil
}

// authenticator for the configured identities, or nil without authentication.
func (conf sleConf) authenticator(level sle.AuthLevel) (sle.Authenticator, error) {
	if level == sle.AuthNone {
		return nil, nil
	}

	var err error
	auth := &sle.Isp1Authentication{
		LocalID: conf.InitiatorID,
		PeerID:  conf.ResponderID,
	}

	if auth.LocalPassword, err = hex.DecodeString(conf.LocalPassword); err != nil {
		return nil, fmt.Errorf("sle.local-password: %w", err)
	}
	if auth.PeerPassword, err = hex.DecodeString(conf.PeerPassword); err != nil {
		return nil, fmt.Errorf("sle.peer-password: %w", err)
	}
	if auth.Hash, err = sle.ParseHashAlgorithm(conf.Hash); err != nil {
		return nil, fmt.Errorf("sle.hash: %w", err)
	}
	if auth.AcceptableDelay, err = parseDuration("sle.acceptable-delay", conf.AcceptableDelay); err != nil {
		return nil, err
	}

	if err := auth.Validate(); err != nil {
		return nil, err
	}
	return auth, nil
}

// parseSession creates the session based on the given TOML configuration.
// All problems are reported together.
func parseSession(conf tomlConfig) (s session, err error) {
	appendErr := func(e error) {
		if e != nil {
			err = multierror.Append(err, e)
		}
	}

	if conf.Sle.Address == "" {
		appendErr(fmt.Errorf("sle.address is empty"))
	}
	s.Address = conf.Sle.Address

	s.Raf = raf.Configuration{
		InitiatorID:      conf.Sle.InitiatorID,
		ResponderID:      conf.Sle.ResponderID,
		ResponderPort:    conf.Sle.ResponderPort,
		Version:          conf.Sle.Version,
		ServiceAgreement: conf.Sle.ServiceAgreement,
		ServicePackage:   conf.Sle.ServicePackage,
		FunctionalGroup:  conf.Sle.FunctionalGroup,
		Instance:         conf.Sle.Instance,
	}

	var e error
	if s.Raf.AuthLevel, e = sle.ParseAuthLevel(conf.Sle.AuthLevel); e != nil {
		appendErr(fmt.Errorf("sle.auth-level: %w", e))
	} else if s.Raf.Authenticator, e = conf.Sle.authenticator(s.Raf.AuthLevel); e != nil {
		appendErr(e)
	}

	if conf.Raf.DeliveryMode == "" {
		conf.Raf.DeliveryMode = raf.TimelyOnline.String()
	}
	if s.Raf.DeliveryMode, e = raf.ParseDeliveryMode(conf.Raf.DeliveryMode); e != nil {
		appendErr(fmt.Errorf("raf.delivery-mode: %w", e))
	}

	if conf.Raf.FrameQuality == "" {
		conf.Raf.FrameQuality = raf.AllFrames.String()
	}
	if s.Raf.RequestedFrameQuality, e = raf.ParseRequestedFrameQuality(conf.Raf.FrameQuality); e != nil {
		appendErr(fmt.Errorf("raf.frame-quality: %w", e))
	}

	if e := s.Raf.Validate(); e != nil {
		appendErr(e)
	}

	s.Tml = tml.DefaultConfiguration()
	if heartbeat, e := parseDuration("sle.heartbeat", conf.Sle.Heartbeat); e != nil {
		appendErr(e)
	} else if conf.Sle.Heartbeat != "" {
		s.Tml.HeartbeatInterval = heartbeat
	}
	if conf.Sle.DeadFactor != 0 {
		s.Tml.DeadFactor = conf.Sle.DeadFactor
	}
	appendErr(s.Tml.Validate())

	if s.Start, e = parseTime("raf.start", conf.Raf.Start); e != nil {
		appendErr(e)
	}
	if s.Stop, e = parseTime("raf.stop", conf.Raf.Stop); e != nil {
		appendErr(e)
	}
	if conf.Raf.ReportCycle < 0 {
		appendErr(fmt.Errorf("raf.report-cycle is negative"))
	}
	s.ReportCycle = conf.Raf.ReportCycle

	s.ArchiveDir = conf.Archive.Dir
	if s.Retention, e = parseDuration("archive.retention", conf.Archive.Retention); e != nil {
		appendErr(e)
	} else if s.Retention != 0 && s.ArchiveDir == "" {
		appendErr(fmt.Errorf("archive.retention requires archive.dir"))
	}

	s.AgentListen = conf.Agent.Listen
	return
}
