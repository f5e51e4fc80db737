// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/sle-go/pkg/agent"
	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/raf"
	"github.com/dtn7/sle-go/pkg/sle/tml"
	"github.com/dtn7/sle-go/pkg/storage"
	"github.com/dtn7/sle-go/pkg/tmframe"
)

const (
	// operationTimeout bounds connecting and each confirmed operation.
	operationTimeout = 30 * time.Second

	// retentionInterval between two cleanups of the archive.
	retentionInterval = 10 * time.Minute
)

// daemon owns one RAF session together with its optional archive and agent.
type daemon struct {
	session session

	store    *storage.Store
	feed     *agent.Feed
	listener net.Listener
	server   *http.Server
	user     *raf.ServiceUser

	tasks   *taskgroup.Group
	stopSyn chan struct{}
}

// startDaemon opens all configured resources, binds to the provider and
// starts the frame delivery. On error, everything opened so far is closed.
func startDaemon(s session) (d *daemon, err error) {
	d = &daemon{
		session: s,
		tasks:   taskgroup.New(nil),
		stopSyn: make(chan struct{}),
	}

	defer func() {
		if err != nil {
			if closeErr := d.Close(); closeErr != nil {
				log.WithError(closeErr).Warn("Closing after a failed start errored")
			}
			d = nil
		}
	}()

	var consumer raf.FrameConsumer = logConsumer{}
	if s.AgentListen != "" {
		d.feed = agent.NewFeed()
		consumer = d.feed
	}

	if s.ArchiveDir != "" {
		if d.store, err = storage.NewStore(s.ArchiveDir); err != nil {
			return
		}
		consumer = storage.Consumer{Store: d.store, Next: consumer}

		if s.Retention > 0 {
			d.tasks.Go(d.handleRetention)
		}
	}

	if d.user, err = raf.NewServiceUser(s.Raf, consumer); err != nil {
		return
	}
	d.user.AddMonitor(logMonitor{})

	if d.feed != nil {
		d.user.AddMonitor(d.feed)
		if err = d.startAgent(); err != nil {
			return
		}
	}

	err = d.connect()
	return
}

func (d *daemon) startAgent() (err error) {
	if d.listener, err = net.Listen("tcp", d.session.AgentListen); err != nil {
		return
	}

	d.server = &http.Server{
		Handler:           agent.NewRouter(d.feed, d.user, agent.DefaultRequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}
	d.tasks.Go(func() error {
		if err := d.server.Serve(d.listener); !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Agent's HTTP server errored")
			return err
		}
		return nil
	})

	log.WithField("listen", d.listener.Addr()).Info("Started agent")
	return
}

// connect to the provider, bind, schedule the status reports and start.
func (d *daemon) connect() error {
	s := d.session

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	conn, err := tml.Dial(ctx, s.Address, s.Tml)
	if err != nil {
		return err
	}

	if _, err := d.user.Bind(conn).Wait(ctx); err != nil {
		return err
	}

	if s.ReportCycle > 0 {
		report := d.user.ScheduleStatusReport(raf.ReportPeriodically, s.ReportCycle)
		if _, err := report.Wait(ctx); err != nil {
			return err
		}
	}

	if _, err := d.user.Start(s.Start, s.Stop).Wait(ctx); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"provider": s.Address,
		"mode":     s.Raf.DeliveryMode,
		"quality":  s.Raf.RequestedFrameQuality,
	}).Info("RAF session started")
	return nil
}

func (d *daemon) handleRetention() error {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		d.cleanupArchive()

		select {
		case <-d.stopSyn:
			return nil
		case <-ticker.C:
		}
	}
}

func (d *daemon) cleanupArchive() {
	before := time.Now().Add(-d.session.Retention)
	if n, err := d.store.DeleteBefore(before); err != nil {
		log.WithError(err).Warn("Cleaning up the archive errored")
	} else if n > 0 {
		log.WithFields(log.Fields{
			"frames": n,
			"before": before,
		}).Info("Removed frames from the archive")
	}
}

// Close stops the frame delivery, unbinds and closes all resources.
func (d *daemon) Close() (err error) {
	if d.user != nil {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()

		if d.user.State() == raf.StateActive {
			if _, stopErr := d.user.Stop().Wait(ctx); stopErr != nil {
				err = multierror.Append(err, stopErr)
			}
		}
		if d.user.State() == raf.StateReady {
			if _, unbindErr := d.user.Unbind(sle.UnbindEnd).Wait(ctx); unbindErr != nil {
				err = multierror.Append(err, unbindErr)
			}
		}
		if closeErr := d.user.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}

	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()

		if shutdownErr := d.server.Shutdown(ctx); shutdownErr != nil {
			err = multierror.Append(err, shutdownErr)
		}
	} else if d.listener != nil {
		_ = d.listener.Close()
	}

	if d.feed != nil {
		if feedErr := d.feed.Close(); feedErr != nil {
			err = multierror.Append(err, feedErr)
		}
	}

	close(d.stopSyn)
	if tasksErr := d.tasks.Wait(); tasksErr != nil {
		err = multierror.Append(err, tasksErr)
	}

	if d.store != nil {
		if storeErr := d.store.Close(); storeErr != nil {
			err = multierror.Append(err, storeErr)
		}
	}
	return
}

// logConsumer logs all deliveries if no agent is configured.
type logConsumer struct{}

func (logConsumer) AcceptFrame(f raf.Frame) {
	entry := log.WithFields(log.Fields{
		"ert":     f.EarthReceiveTime,
		"antenna": f.AntennaID,
		"quality": f.Quality,
		"length":  len(f.Data),
	})
	if header, err := tmframe.ParseHeader(f.Data); err == nil {
		entry = entry.WithField("header", header)
	}
	entry.Debug("Received frame")
}

func (logConsumer) OnLossFrameSync(t sle.Time, carrier, subcarrier, symbol raf.LockStatus) {
	log.WithFields(log.Fields{
		"time":       t,
		"carrier":    carrier,
		"subcarrier": subcarrier,
		"symbol":     symbol,
	}).Warn("Loss of frame synchronization")
}

func (logConsumer) OnProductionStatusChange(status raf.ProductionStatus) {
	log.WithField("status", status).Info("Production status changed")
}

func (logConsumer) OnExcessiveDataBacklog() {
	log.Warn("Excessive data backlog")
}

func (logConsumer) OnEndOfData() {
	log.Info("End of data")
}

// logMonitor logs status reports and disconnects.
type logMonitor struct{}

func (logMonitor) OnStatusReport(report raf.StatusReport) {
	log.WithField("report", report).Info("Received status report")
}

func (logMonitor) OnDisconnect(err error) {
	if err != nil {
		log.WithError(err).Error("RAF session disconnected")
	} else {
		log.Info("RAF session unbound")
	}
}
