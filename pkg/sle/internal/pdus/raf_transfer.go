// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdus

import (
	encasn1 "encoding/asn1"
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"

	"github.com/dtn7/sle-go/pkg/sle"
	"github.com/dtn7/sle-go/pkg/sle/internal/asn"
)

// AntennaID ::= CHOICE { globalForm [0] OBJECT IDENTIFIER, localForm [1] OCTET STRING }
type AntennaID struct {
	Global encasn1.ObjectIdentifier
	Local  []byte
}

func (a AntennaID) encode() (*ber.Packet, error) {
	if a.Global != nil {
		return asn.TaggedObjectIdentifier(ber.ClassContext, 0, a.Global)
	}
	return asn.TaggedOctetString(1, a.Local), nil
}

func decodeAntennaID(p *ber.Packet) (a AntennaID, err error) {
	switch {
	case asn.IsTagged(p, ber.TypePrimitive, 0):
		a.Global, err = asn.Oid(p)
	case asn.IsTagged(p, ber.TypePrimitive, 1):
		var content []byte
		if content, err = asn.Content(p); err == nil {
			a.Local = append([]byte(nil), content...)
		}
	default:
		err = fmt.Errorf("antenna id: unexpected %s", asn.Describe(p))
	}
	return
}

// RafTransferDataInvocation is one annotated frame. A nil PrivateAnnotation is
// sent as null.
type RafTransferDataInvocation struct {
	InvokerCredentials    sle.Credentials
	EarthReceiveTime      sle.Time
	AntennaID             AntennaID
	DataLinkContinuity    int64
	DeliveredFrameQuality int64
	PrivateAnnotation     []byte
	Data                  []byte
}

func (inv *RafTransferDataInvocation) children() ([]*ber.Packet, error) {
	ert, err := encodeTime(inv.EarthReceiveTime)
	if err != nil {
		return nil, err
	}
	antenna, err := inv.AntennaID.encode()
	if err != nil {
		return nil, err
	}

	annotation := asn.Null(0)
	if inv.PrivateAnnotation != nil {
		annotation = asn.TaggedOctetString(1, inv.PrivateAnnotation)
	}

	return []*ber.Packet{
		encodeCredentials(inv.InvokerCredentials),
		ert,
		antenna,
		asn.Integer(inv.DataLinkContinuity),
		asn.Integer(inv.DeliveredFrameQuality),
		annotation,
		asn.OctetString(inv.Data),
	}, nil
}

func (inv *RafTransferDataInvocation) decode(r *asn.Reader) (err error) {
	if inv.InvokerCredentials, err = readCredentials(r); err != nil {
		return
	}

	var p *ber.Packet
	if p, err = r.Next(); err != nil {
		return
	}
	if inv.EarthReceiveTime, err = decodeTime(p); err != nil {
		return
	}

	if p, err = r.Next(); err != nil {
		return
	}
	if inv.AntennaID, err = decodeAntennaID(p); err != nil {
		return
	}

	if inv.DataLinkContinuity, err = r.IntegerIn(-1, 16777215); err != nil {
		return
	}
	if inv.DeliveredFrameQuality, err = r.Integer(); err != nil {
		return
	}

	if p, err = r.Next(); err != nil {
		return
	}
	switch {
	case asn.IsTagged(p, ber.TypePrimitive, 0):
	case asn.IsTagged(p, ber.TypePrimitive, 1):
		var content []byte
		if content, err = asn.Content(p); err != nil {
			return
		}
		inv.PrivateAnnotation = append([]byte{}, content...)
	default:
		return fmt.Errorf("private annotation: unexpected %s", asn.Describe(p))
	}

	var data []byte
	if data, err = r.OctetString(); err != nil {
		return
	}
	inv.Data = append([]byte(nil), data...)

	return r.Done()
}

// Alternatives of the RAF Notification choice.
const (
	NotifyLossFrameSync = iota
	NotifyProductionStatusChange
	NotifyExcessiveDataBacklog
	NotifyEndOfData
)

// Notification of a RafSyncNotifyInvocation. Time and the lock states belong
// to NotifyLossFrameSync, ProductionStatus to NotifyProductionStatusChange.
//
//	lossFrameSync [0] SEQUENCE { time, carrierLockStatus, subcarrierLockStatus, symbolSyncLockStatus }
type Notification struct {
	Type             int
	Time             sle.Time
	CarrierLock      int64
	SubcarrierLock   int64
	SymbolSyncLock   int64
	ProductionStatus int64
}

func (n Notification) encode() (*ber.Packet, error) {
	switch n.Type {
	case NotifyLossFrameSync:
		t, err := encodeTime(n.Time)
		if err != nil {
			return nil, err
		}
		return asn.Tagged(NotifyLossFrameSync, t,
			asn.Integer(n.CarrierLock),
			asn.Integer(n.SubcarrierLock),
			asn.Integer(n.SymbolSyncLock)), nil
	case NotifyProductionStatusChange:
		return asn.TaggedInteger(NotifyProductionStatusChange, n.ProductionStatus), nil
	case NotifyExcessiveDataBacklog, NotifyEndOfData:
		return asn.Null(ber.Tag(n.Type)), nil
	default:
		return nil, fmt.Errorf("unknown notification type %d", n.Type)
	}
}

func decodeNotification(p *ber.Packet) (n Notification, err error) {
	switch {
	case asn.IsTagged(p, ber.TypeConstructed, NotifyLossFrameSync):
		n.Type = NotifyLossFrameSync

		var r *asn.Reader
		if r, err = asn.NewReader("loss frame sync", p); err != nil {
			return
		}

		var t *ber.Packet
		if t, err = r.Next(); err != nil {
			return
		}
		if n.Time, err = decodeTime(t); err != nil {
			return
		}
		if n.CarrierLock, err = r.Integer(); err != nil {
			return
		}
		if n.SubcarrierLock, err = r.Integer(); err != nil {
			return
		}
		if n.SymbolSyncLock, err = r.Integer(); err != nil {
			return
		}
		err = r.Done()

	case asn.IsTagged(p, ber.TypePrimitive, NotifyProductionStatusChange):
		n.Type = NotifyProductionStatusChange
		n.ProductionStatus, err = asn.Int(p)

	case asn.IsTagged(p, ber.TypePrimitive, NotifyExcessiveDataBacklog):
		n.Type = NotifyExcessiveDataBacklog

	case asn.IsTagged(p, ber.TypePrimitive, NotifyEndOfData):
		n.Type = NotifyEndOfData

	default:
		err = fmt.Errorf("notification: unexpected %s", asn.Describe(p))
	}
	return
}

// RafSyncNotifyInvocation is one notification within a transfer buffer.
type RafSyncNotifyInvocation struct {
	InvokerCredentials sle.Credentials
	Notification       Notification
}

// FrameOrNotification is one unit of a RafTransferBuffer; exactly one of the
// pointers is set.
//
//	CHOICE { annotatedFrame [0] RafTransferDataInvocation, syncNotification [1] RafSyncNotifyInvocation }
type FrameOrNotification struct {
	Frame        *RafTransferDataInvocation
	Notification *RafSyncNotifyInvocation
}

// RafTransferBuffer is the SEQUENCE OF FrameOrNotification, delivered in order.
type RafTransferBuffer struct {
	Units []FrameOrNotification
}

func (pdu *RafTransferBuffer) Tag() ber.Tag { return TagTransferBuffer }

func (pdu *RafTransferBuffer) String() string {
	return fmt.Sprintf("RAF-TRANSFER-BUFFER(%d units)", len(pdu.Units))
}

func (pdu *RafTransferBuffer) Encode() (*ber.Packet, error) {
	buffer := asn.Tagged(pdu.Tag())

	for i, unit := range pdu.Units {
		switch {
		case unit.Frame != nil:
			children, err := unit.Frame.children()
			if err != nil {
				return nil, fmt.Errorf("unit %d: %w", i, err)
			}
			buffer.AppendChild(asn.Tagged(0, children...))

		case unit.Notification != nil:
			n, err := unit.Notification.Notification.encode()
			if err != nil {
				return nil, fmt.Errorf("unit %d: %w", i, err)
			}
			buffer.AppendChild(asn.Tagged(1, encodeCredentials(unit.Notification.InvokerCredentials), n))

		default:
			return nil, fmt.Errorf("unit %d is empty", i)
		}
	}

	return buffer, nil
}

func (pdu *RafTransferBuffer) Decode(p *ber.Packet) error {
	if !asn.IsTagged(p, ber.TypeConstructed, pdu.Tag()) {
		return fmt.Errorf("unexpected identifier %s", asn.Describe(p))
	}

	pdu.Units = make([]FrameOrNotification, 0, len(p.Children))
	for i, child := range p.Children {
		switch {
		case asn.IsTagged(child, ber.TypeConstructed, 0):
			r, err := asn.NewReader("annotated frame", child)
			if err != nil {
				return err
			}

			frame := &RafTransferDataInvocation{}
			if err := frame.decode(r); err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
			pdu.Units = append(pdu.Units, FrameOrNotification{Frame: frame})

		case asn.IsTagged(child, ber.TypeConstructed, 1):
			r, err := asn.NewReader("sync notification", child)
			if err != nil {
				return err
			}

			notify := &RafSyncNotifyInvocation{}
			if notify.InvokerCredentials, err = readCredentials(r); err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}

			n, err := r.Next()
			if err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
			if notify.Notification, err = decodeNotification(n); err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
			if err := r.Done(); err != nil {
				return fmt.Errorf("unit %d: %w", i, err)
			}
			pdu.Units = append(pdu.Units, FrameOrNotification{Notification: notify})

		default:
			return fmt.Errorf("unit %d: unexpected %s", i, asn.Describe(child))
		}
	}

	return nil
}
