// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/fsnotify/fsnotify"
)

// configWatcher re-applies the logging configuration whenever the
// configuration file is written. Other changes require a restart.
type configWatcher struct {
	filename string
	watcher  *fsnotify.Watcher

	stopSyn chan struct{}
	stopAck chan struct{}
}

// watchConfig starts a configWatcher for the given file. The file's directory
// is watched since editors often replace a file instead of writing it.
func watchConfig(filename string) (cw *configWatcher, err error) {
	cw = &configWatcher{
		filename: filepath.Clean(filename),
		stopSyn:  make(chan struct{}),
		stopAck:  make(chan struct{}),
	}

	if cw.watcher, err = fsnotify.NewWatcher(); err != nil {
		return
	}
	if err = cw.watcher.Add(filepath.Dir(cw.filename)); err != nil {
		_ = cw.watcher.Close()
		return
	}

	go cw.handler()
	return
}

func (cw *configWatcher) handler() {
	defer close(cw.stopAck)

	for {
		select {
		case <-cw.stopSyn:
			return

		case e, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != cw.filename || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cw.reload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("Configuration watcher errored")
		}
	}
}

func (cw *configWatcher) reload() {
	conf, err := loadConfig(cw.filename)
	if err != nil {
		log.WithField("file", cw.filename).WithError(err).Warn("Failed to reload configuration")
		return
	}

	conf.Logging.apply()
	log.WithField("file", cw.filename).Info("Reloaded logging configuration")
}

// Close the configWatcher.
func (cw *configWatcher) Close() error {
	close(cw.stopSyn)
	err := cw.watcher.Close()
	<-cw.stopAck
	return err
}
