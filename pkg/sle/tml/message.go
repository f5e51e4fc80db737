// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tml

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// TML message type codes.
const (
	TypePdu       uint8 = 0x01
	TypeContext   uint8 = 0x02
	TypeHeartbeat uint8 = 0x03
)

const (
	headerLength  = 8
	contextLength = 12
)

// Message describes all kind of TML messages, which have their serialization and deserialization in common.
type Message interface {
	Marshal(w io.Writer) error
	Unmarshal(r io.Reader) error
}

// messages maps the different TML message type codes to an example instance of their type.
var messages = map[uint8]Message{
	TypePdu:       &PduMessage{},
	TypeContext:   &ContextMessage{},
	TypeHeartbeat: &HeartbeatMessage{},
}

// NewMessage creates a new Message type for a given type code.
func NewMessage(typeCode uint8) (msg Message, err error) {
	msgType, exists := messages[typeCode]
	if !exists {
		err = fmt.Errorf("no TML Message registered for type code %x", typeCode)
		return
	}

	msgElem := reflect.TypeOf(msgType).Elem()
	msg = reflect.New(msgElem).Interface().(Message)
	return
}

// ReadMessage parses the next TML message from the Reader. Messages with a body
// longer than maxLength are refused.
func ReadMessage(r io.Reader, maxLength uint32) (msg Message, err error) {
	header := make([]byte, headerLength)
	if _, err = io.ReadFull(r, header); err != nil {
		return
	}

	if length := binary.BigEndian.Uint32(header[4:]); length > maxLength {
		err = fmt.Errorf("TML message of %d octets exceeds the maximum of %d", length, maxLength)
		return
	}

	if msg, err = NewMessage(header[0]); err != nil {
		return
	}

	mr := io.MultiReader(bytes.NewBuffer(header), r)

	err = msg.Unmarshal(mr)
	return
}

func writeHeader(w io.Writer, typeCode uint8, length int) error {
	header := make([]byte, headerLength)
	header[0] = typeCode
	binary.BigEndian.PutUint32(header[4:], uint32(length))

	_, err := w.Write(header)
	return err
}

func readHeader(r io.Reader, typeCode uint8) (length uint32, err error) {
	header := make([]byte, headerLength)
	if _, err = io.ReadFull(r, header); err != nil {
		return
	}

	if header[0] != typeCode {
		err = fmt.Errorf("TML header has type %x instead of %x", header[0], typeCode)
		return
	}
	if header[1] != 0 || header[2] != 0 || header[3] != 0 {
		err = fmt.Errorf("TML header has non-zero reserved octets %x", header[1:4])
		return
	}

	length = binary.BigEndian.Uint32(header[4:])
	return
}

// PduMessage carries one BER encoded SLE PDU.
type PduMessage struct {
	Data []byte
}

// NewPduMessage for the encoded PDU.
func NewPduMessage(data []byte) *PduMessage {
	return &PduMessage{Data: data}
}

func (pm PduMessage) String() string {
	return fmt.Sprintf("PDU(%d octets)", len(pm.Data))
}

// Marshal a PduMessage into its binary form.
func (pm PduMessage) Marshal(w io.Writer) error {
	if len(pm.Data) == 0 {
		return fmt.Errorf("empty PDU message")
	}
	if err := writeHeader(w, TypePdu, len(pm.Data)); err != nil {
		return err
	}

	_, err := w.Write(pm.Data)
	return err
}

// Unmarshal a PduMessage from its binary form.
func (pm *PduMessage) Unmarshal(r io.Reader) error {
	length, err := readHeader(r, TypePdu)
	if err != nil {
		return err
	}
	if length == 0 {
		return fmt.Errorf("empty PDU message")
	}

	pm.Data = make([]byte, length)
	_, err = io.ReadFull(r, pm.Data)
	return err
}

// ContextMessage is the first message sent by the initiator.
type ContextMessage struct {
	// HeartbeatInterval in seconds; zero disables heartbeats.
	HeartbeatInterval uint16
	DeadFactor        uint16
}

// NewContextMessage with the heartbeat parameters.
func NewContextMessage(heartbeatInterval, deadFactor uint16) *ContextMessage {
	return &ContextMessage{
		HeartbeatInterval: heartbeatInterval,
		DeadFactor:        deadFactor,
	}
}

func (cm ContextMessage) String() string {
	return fmt.Sprintf("CONTEXT(heartbeat=%ds, dead factor=%d)", cm.HeartbeatInterval, cm.DeadFactor)
}

// Marshal a ContextMessage into its binary form.
func (cm ContextMessage) Marshal(w io.Writer) error {
	if err := writeHeader(w, TypeContext, contextLength); err != nil {
		return err
	}

	body := make([]byte, contextLength)
	copy(body, "ISP1")
	body[7] = 1 // version
	binary.BigEndian.PutUint16(body[8:10], cm.HeartbeatInterval)
	binary.BigEndian.PutUint16(body[10:12], cm.DeadFactor)

	_, err := w.Write(body)
	return err
}

// Unmarshal a ContextMessage from its binary form.
func (cm *ContextMessage) Unmarshal(r io.Reader) error {
	length, err := readHeader(r, TypeContext)
	if err != nil {
		return err
	}
	if length != contextLength {
		return fmt.Errorf("context message has length %d instead of %d", length, contextLength)
	}

	body := make([]byte, contextLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}

	if !bytes.Equal(body[0:4], []byte("ISP1")) {
		return fmt.Errorf("context message has protocol id %q", body[0:4])
	}
	if !bytes.Equal(body[4:8], []byte{0, 0, 0, 1}) {
		return fmt.Errorf("context message has unsupported version %x", body[4:8])
	}

	cm.HeartbeatInterval = binary.BigEndian.Uint16(body[8:10])
	cm.DeadFactor = binary.BigEndian.Uint16(body[10:12])
	return nil
}

// HeartbeatMessage is sent on an idle connection.
type HeartbeatMessage struct{}

// NewHeartbeatMessage creates a new HeartbeatMessage.
func NewHeartbeatMessage() *HeartbeatMessage {
	return &HeartbeatMessage{}
}

func (HeartbeatMessage) String() string {
	return "HEARTBEAT"
}

// Marshal a HeartbeatMessage into its binary form.
func (HeartbeatMessage) Marshal(w io.Writer) error {
	return writeHeader(w, TypeHeartbeat, 0)
}

// Unmarshal a HeartbeatMessage from its binary form.
func (*HeartbeatMessage) Unmarshal(r io.Reader) error {
	length, err := readHeader(r, TypeHeartbeat)
	if err != nil {
		return err
	}
	if length != 0 {
		return fmt.Errorf("heartbeat message has length %d", length)
	}
	return nil
}
