// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"os"
	"path"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/timshannon/badgerhold"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/raf"
)

const dirBadger string = "db"

// Store archives received frames, indexed by their earth receive time.
type Store struct {
	bh *badgerhold.Store

	badgerDir string
}

// NewStore creates a new Store or opens an existing Store from the given path.
func NewStore(dir string) (s *Store, err error) {
	badgerDir := path.Join(dir, dirBadger)

	opts := badgerhold.DefaultOptions
	opts.Dir = badgerDir
	opts.ValueDir = badgerDir
	opts.Logger = log.StandardLogger()
	opts.Options.ValueLogFileSize = 1<<28 - 1

	if dirErr := os.MkdirAll(badgerDir, 0700); dirErr != nil {
		err = dirErr
		return
	}

	if bh, bhErr := badgerhold.Open(opts); bhErr != nil {
		err = bhErr
	} else {
		s = &Store{
			bh: bh,

			badgerDir: badgerDir,
		}
	}
	return
}

// Close the Store. It must not be used afterwards.
func (s *Store) Close() error {
	return s.bh.Close()
}

// Push a received frame to the Store. A frame with the same earth receive time
// and data is only stored once.
func (s *Store) Push(f raf.Frame) error {
	fi := NewFrameItem(f)

	if _, err := s.QueryID(fi.ID); err == nil {
		log.WithField("frame", fi.ID).Debug("Frame is known, ignoring push")
		return nil
	} else if err != badgerhold.ErrNotFound {
		return err
	}

	log.WithField("frame", fi.ID).Trace("Inserting FrameItem")
	return s.bh.Insert(fi.ID, fi)
}

// QueryID fetches the FrameItem of the identifier.
func (s *Store) QueryID(id string) (fi FrameItem, err error) {
	err = s.bh.Get(id, &fi)
	return
}

// QueryRange fetches all FrameItems received within [from, to), ordered by
// their earth receive time.
func (s *Store) QueryRange(from, to time.Time) (fis []FrameItem, err error) {
	query := badgerhold.Where("EarthReceiveTime").Ge(from).And("EarthReceiveTime").Lt(to)
	if err = s.bh.Find(&fis, query); err != nil {
		return
	}

	sort.SliceStable(fis, func(i, j int) bool {
		return fis[i].EarthReceiveTime.Before(fis[j].EarthReceiveTime)
	})
	return
}

// DeleteBefore removes all FrameItems received before t and returns their number.
func (s *Store) DeleteBefore(t time.Time) (n int, err error) {
	var fis []FrameItem
	if err = s.bh.Find(&fis, badgerhold.Where("EarthReceiveTime").Lt(t)); err != nil {
		return
	}

	for _, fi := range fis {
		if err = s.bh.Delete(fi.ID, FrameItem{}); err != nil {
			log.WithField("frame", fi.ID).WithError(err).Warn("Failed to delete FrameItem")
			return
		}
		n++
	}

	if n > 0 {
		log.WithFields(log.Fields{
			"frames": n,
			"before": t,
		}).Info("Store deleted old frames")
	}
	return
}

// Consumer archives all frames delivered to it and passes every callback to
// the next raf.FrameConsumer, if one is set.
type Consumer struct {
	Store *Store
	Next  raf.FrameConsumer
}

func (c Consumer) AcceptFrame(f raf.Frame) {
	if err := c.Store.Push(f); err != nil {
		log.WithField("frame", f).WithError(err).Warn("Failed to archive frame")
	}
	if c.Next != nil {
		c.Next.AcceptFrame(f)
	}
}

func (c Consumer) OnLossFrameSync(t sle.Time, carrier, subcarrier, symbol raf.LockStatus) {
	if c.Next != nil {
		c.Next.OnLossFrameSync(t, carrier, subcarrier, symbol)
	}
}

func (c Consumer) OnProductionStatusChange(status raf.ProductionStatus) {
	if c.Next != nil {
		c.Next.OnProductionStatusChange(status)
	}
}

func (c Consumer) OnExcessiveDataBacklog() {
	if c.Next != nil {
		c.Next.OnExcessiveDataBacklog()
	}
}

func (c Consumer) OnEndOfData() {
	if c.Next != nil {
		c.Next.OnEndOfData()
	}
}
