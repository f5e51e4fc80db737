// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"fmt"
	"io"
	"reflect"

	"github.com/dtn7/cboring"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/raf"
	"github.com/dtn7/sle-go/pkg/storage"
)

// feedMessage describes a message which is broadcast to the Feed's clients.
type feedMessage interface {
	// typeCode is an unique identifier for each message type.
	typeCode() uint64

	// CborMarshaler must only be implemented for the type's logic.
	// A generic wrapper for the typeCode is available in the marshalCbor and unmarshalCbor functions.
	cboring.CborMarshaler
}

const (
	fmFrameCode        uint64 = 0
	fmNotificationCode uint64 = 1
	fmStatusReportCode uint64 = 2
	fmStateCode        uint64 = 3
)

var fmMapping = map[uint64]reflect.Type{
	fmFrameCode:        reflect.TypeOf(fmFrame{}),
	fmNotificationCode: reflect.TypeOf(fmNotification{}),
	fmStatusReportCode: reflect.TypeOf(fmStatusReport{}),
	fmStateCode:        reflect.TypeOf(fmState{}),
}

// marshalCbor writes a feedMessage wrapped with its type code as CBOR.
func marshalCbor(fm feedMessage, w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	if err := cboring.WriteUInt(fm.typeCode(), w); err != nil {
		return err
	}

	return cboring.Marshal(fm, w)
}

// unmarshalCbor reads a new feedMessage based on its type code from CBOR.
func unmarshalCbor(r io.Reader) (fm feedMessage, err error) {
	if n, arrErr := cboring.ReadArrayLength(r); arrErr != nil {
		err = arrErr
		return
	} else if n != 2 {
		err = fmt.Errorf("expected array of two elements, got %d", n)
		return
	}

	if n, typeErr := cboring.ReadUInt(r); typeErr != nil {
		err = typeErr
		return
	} else if t, ok := fmMapping[n]; !ok {
		err = fmt.Errorf("no known feed message type code %d", n)
		return
	} else {
		fm = reflect.New(t).Interface().(feedMessage)
	}

	err = cboring.Unmarshal(fm, r)
	return
}

// writeUInts writes each number as a CBOR unsigned integer.
func writeUInts(w io.Writer, ns ...uint64) error {
	for _, n := range ns {
		if err := cboring.WriteUInt(n, w); err != nil {
			return err
		}
	}
	return nil
}

// readUInts reads CBOR unsigned integers into the pointers.
func readUInts(r io.Reader, ns ...*uint64) error {
	for _, n := range ns {
		if v, err := cboring.ReadUInt(r); err != nil {
			return err
		} else {
			*n = v
		}
	}
	return nil
}

// fmFrame is an annotated frame, encoded as its archive record.
type fmFrame struct {
	item storage.FrameItem
}

func newFrameMessage(f raf.Frame) *fmFrame {
	return &fmFrame{item: storage.NewFrameItem(f)}
}

func (_ *fmFrame) typeCode() uint64 {
	return fmFrameCode
}

func (fm *fmFrame) MarshalCbor(w io.Writer) error {
	return cboring.Marshal(&fm.item, w)
}

func (fm *fmFrame) UnmarshalCbor(r io.Reader) error {
	return cboring.Unmarshal(&fm.item, r)
}

// fmNotification is a notification of a transfer buffer:
//
//	[kind, days, picos, carrier, subcarrier, symbol, production status]
//
// The fields not belonging to the kind are zero.
type fmNotification struct {
	kind   uint64
	time   sle.Time
	locks  [3]raf.LockStatus
	status raf.ProductionStatus
}

const (
	notificationLossFrameSync uint64 = iota
	notificationProductionStatus
	notificationExcessiveDataBacklog
	notificationEndOfData
)

func (_ *fmNotification) typeCode() uint64 {
	return fmNotificationCode
}

func (fm *fmNotification) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(7, w); err != nil {
		return err
	}
	return writeUInts(w, fm.kind, uint64(fm.time.Days), uint64(fm.time.Picos),
		uint64(fm.locks[0]), uint64(fm.locks[1]), uint64(fm.locks[2]), uint64(fm.status))
}

func (fm *fmNotification) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 7 {
		return fmt.Errorf("expected array of seven elements, got %d", n)
	}

	var days, picos, carrier, subcarrier, symbol, status uint64
	if err := readUInts(r, &fm.kind, &days, &picos, &carrier, &subcarrier, &symbol, &status); err != nil {
		return err
	}

	fm.time = sle.Time{Days: int(days), Picos: int64(picos)}
	fm.locks = [3]raf.LockStatus{raf.LockStatus(carrier), raf.LockStatus(subcarrier), raf.LockStatus(symbol)}
	fm.status = raf.ProductionStatus(status)
	return nil
}

// fmStatusReport is a RAF-STATUS-REPORT:
//
//	[error free frames, delivered frames, frame sync, symbol sync, subcarrier, carrier, production status]
type fmStatusReport struct {
	report raf.StatusReport
}

func (_ *fmStatusReport) typeCode() uint64 {
	return fmStatusReportCode
}

func (fm *fmStatusReport) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(7, w); err != nil {
		return err
	}

	sr := fm.report
	return writeUInts(w, uint64(sr.ErrorFreeFrames), uint64(sr.DeliveredFrames),
		uint64(sr.FrameSyncLock), uint64(sr.SymbolSyncLock), uint64(sr.SubcarrierLock), uint64(sr.CarrierLock),
		uint64(sr.ProductionStatus))
}

func (fm *fmStatusReport) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 7 {
		return fmt.Errorf("expected array of seven elements, got %d", n)
	}

	var errorFree, delivered, frameSync, symbolSync, subcarrier, carrier, status uint64
	if err := readUInts(r, &errorFree, &delivered, &frameSync, &symbolSync, &subcarrier, &carrier, &status); err != nil {
		return err
	}

	fm.report = raf.StatusReport{
		ErrorFreeFrames:  int64(errorFree),
		DeliveredFrames:  int64(delivered),
		FrameSyncLock:    raf.LockStatus(frameSync),
		SymbolSyncLock:   raf.LockStatus(symbolSync),
		SubcarrierLock:   raf.LockStatus(subcarrier),
		CarrierLock:      raf.LockStatus(carrier),
		ProductionStatus: raf.ProductionStatus(status),
	}
	return nil
}

// fmState is the session's new state.
type fmState struct {
	state raf.State
}

func (_ *fmState) typeCode() uint64 {
	return fmStateCode
}

func (fm *fmState) MarshalCbor(w io.Writer) error {
	return cboring.WriteUInt(uint64(fm.state), w)
}

func (fm *fmState) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		fm.state = raf.State(n)
	}
	return nil
}
