// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"crypto/sha256"
	"encoding/asn1"
	"fmt"
	"io"
	"time"

	"github.com/dtn7/cboring"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/raf"
)

// FrameItem is an archived frame. The Store operates on FrameItems instead of
// raf.Frames, indexed by their earth receive time.
type FrameItem struct {
	ID string `badgerhold:"key"`

	EarthReceiveTime time.Time `badgerholdIndex:"EarthReceiveTime"`
	Ert              sle.Time

	AntennaGlobal asn1.ObjectIdentifier
	AntennaLocal  []byte

	DataLinkContinuity int
	Quality            raf.FrameQuality

	PrivateAnnotation []byte
	Data              []byte
}

// frameItemID identifies a frame by its receive time and a digest of its data.
func frameItemID(f raf.Frame) string {
	digest := sha256.Sum256(f.Data)
	return fmt.Sprintf("%05d.%016d-%x", f.EarthReceiveTime.Days, f.EarthReceiveTime.Picos, digest[:8])
}

// NewFrameItem for a received raf.Frame.
func NewFrameItem(f raf.Frame) FrameItem {
	return FrameItem{
		ID: frameItemID(f),

		EarthReceiveTime: f.EarthReceiveTime.Time(),
		Ert:              f.EarthReceiveTime,

		AntennaGlobal: f.AntennaID.Global,
		AntennaLocal:  f.AntennaID.Local,

		DataLinkContinuity: f.DataLinkContinuity,
		Quality:            f.Quality,

		PrivateAnnotation: f.PrivateAnnotation,
		Data:              f.Data,
	}
}

// Frame restores the raf.Frame.
func (fi FrameItem) Frame() raf.Frame {
	return raf.Frame{
		EarthReceiveTime:   fi.Ert,
		AntennaID:          raf.AntennaID{Global: fi.AntennaGlobal, Local: fi.AntennaLocal},
		DataLinkContinuity: fi.DataLinkContinuity,
		Quality:            fi.Quality,
		PrivateAnnotation:  fi.PrivateAnnotation,
		Data:               fi.Data,
	}
}

const (
	frameItemFields = 8

	antennaLocal  = 0
	antennaGlobal = 1
)

// MarshalCbor writes the FrameItem's CBOR representation:
//
//	[days, picos, antenna kind, antenna, continuity + 1, quality, annotation, data]
//
// A local antenna is a byte string, a global antenna an array of OID arcs.
func (fi *FrameItem) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(frameItemFields, w); err != nil {
		return err
	}

	for _, n := range []uint64{uint64(fi.Ert.Days), uint64(fi.Ert.Picos)} {
		if err := cboring.WriteUInt(n, w); err != nil {
			return err
		}
	}

	if fi.AntennaGlobal != nil {
		if err := cboring.WriteUInt(antennaGlobal, w); err != nil {
			return err
		}
		if err := cboring.WriteArrayLength(uint64(len(fi.AntennaGlobal)), w); err != nil {
			return err
		}
		for _, arc := range fi.AntennaGlobal {
			if err := cboring.WriteUInt(uint64(arc), w); err != nil {
				return err
			}
		}
	} else {
		if err := cboring.WriteUInt(antennaLocal, w); err != nil {
			return err
		}
		if err := cboring.WriteByteString(fi.AntennaLocal, w); err != nil {
			return err
		}
	}

	if fi.DataLinkContinuity < -1 {
		return fmt.Errorf("invalid data link continuity %d", fi.DataLinkContinuity)
	}
	for _, n := range []uint64{uint64(fi.DataLinkContinuity + 1), uint64(fi.Quality)} {
		if err := cboring.WriteUInt(n, w); err != nil {
			return err
		}
	}

	for _, b := range [][]byte{fi.PrivateAnnotation, fi.Data} {
		if err := cboring.WriteByteString(b, w); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalCbor creates this FrameItem based on a CBOR representation.
func (fi *FrameItem) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != frameItemFields {
		return fmt.Errorf("expected array with length %d, got %d", frameItemFields, l)
	}

	var f raf.Frame

	if days, err := cboring.ReadUInt(r); err != nil {
		return fmt.Errorf("unmarshalling days failed: %v", err)
	} else {
		f.EarthReceiveTime.Days = int(days)
	}
	if picos, err := cboring.ReadUInt(r); err != nil {
		return fmt.Errorf("unmarshalling picoseconds failed: %v", err)
	} else {
		f.EarthReceiveTime.Picos = int64(picos)
	}

	kind, err := cboring.ReadUInt(r)
	if err != nil {
		return fmt.Errorf("unmarshalling antenna kind failed: %v", err)
	}
	switch kind {
	case antennaLocal:
		if f.AntennaID.Local, err = cboring.ReadByteString(r); err != nil {
			return fmt.Errorf("unmarshalling local antenna failed: %v", err)
		}

	case antennaGlobal:
		arcs, err := cboring.ReadArrayLength(r)
		if err != nil {
			return fmt.Errorf("unmarshalling global antenna failed: %v", err)
		}
		f.AntennaID.Global = make(asn1.ObjectIdentifier, arcs)
		for i := range f.AntennaID.Global {
			if arc, err := cboring.ReadUInt(r); err != nil {
				return fmt.Errorf("unmarshalling global antenna failed: %v", err)
			} else {
				f.AntennaID.Global[i] = int(arc)
			}
		}

	default:
		return fmt.Errorf("unknown antenna kind %d", kind)
	}

	if continuity, err := cboring.ReadUInt(r); err != nil {
		return fmt.Errorf("unmarshalling data link continuity failed: %v", err)
	} else {
		f.DataLinkContinuity = int(continuity) - 1
	}
	if quality, err := cboring.ReadUInt(r); err != nil {
		return fmt.Errorf("unmarshalling frame quality failed: %v", err)
	} else if quality > uint64(raf.FrameUndetermined) {
		return fmt.Errorf("invalid frame quality %d", quality)
	} else {
		f.Quality = raf.FrameQuality(quality)
	}

	if f.PrivateAnnotation, err = cboring.ReadByteString(r); err != nil {
		return fmt.Errorf("unmarshalling private annotation failed: %v", err)
	}
	if f.Data, err = cboring.ReadByteString(r); err != nil {
		return fmt.Errorf("unmarshalling data failed: %v", err)
	}

	if len(f.AntennaID.Local) == 0 {
		f.AntennaID.Local = nil
	}
	if len(f.PrivateAnnotation) == 0 {
		f.PrivateAnnotation = nil
	}

	*fi = NewFrameItem(f)
	return nil
}
