// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package asn provides the BER building blocks of the SLE ASN.1 modules on top
// of go-asn1-ber: constructors for the used element types and a Reader to walk
// the components of a SEQUENCE.
//
// All SLE modules use IMPLICIT tagging, so most context specific elements are
// primitive INTEGER, NULL or OCTET STRING values carrying a different tag.
package asn

import (
	encasn1 "encoding/asn1"
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// Integer returns a universal INTEGER.
func Integer(v int64) *ber.Packet {
	return ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, v, "")
}

// TaggedInteger returns an INTEGER with a context specific tag.
func TaggedInteger(tag ber.Tag, v int64) *ber.Packet {
	return ber.NewInteger(ber.ClassContext, ber.TypePrimitive, tag, v, "")
}

// Null returns a NULL with a context specific tag.
func Null(tag ber.Tag) *ber.Packet {
	return ber.Encode(ber.ClassContext, ber.TypePrimitive, tag, nil, "")
}

// OctetString returns a universal OCTET STRING.
func OctetString(data []byte) *ber.Packet {
	p := ber.Encode(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, nil, "")
	p.Data.Write(data)
	return p
}

// TaggedOctetString returns an OCTET STRING with a context specific tag.
func TaggedOctetString(tag ber.Tag, data []byte) *ber.Packet {
	p := ber.Encode(ber.ClassContext, ber.TypePrimitive, tag, nil, "")
	p.Data.Write(data)
	return p
}

// VisibleString returns a universal VisibleString.
func VisibleString(s string) *ber.Packet {
	return ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagVisibleString, s, "")
}

// Sequence returns a universal SEQUENCE of the children.
func Sequence(children ...*ber.Packet) *ber.Packet {
	return appendChildren(ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, ""), children)
}

// Set returns a universal SET of the children.
func Set(children ...*ber.Packet) *ber.Packet {
	return appendChildren(ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSet, nil, ""), children)
}

// Tagged returns a constructed element with a context specific tag. Used both
// for implicitly tagged SEQUENCEs and for explicit tags around a CHOICE.
func Tagged(tag ber.Tag, children ...*ber.Packet) *ber.Packet {
	return appendChildren(ber.Encode(ber.ClassContext, ber.TypeConstructed, tag, nil, ""), children)
}

func appendChildren(p *ber.Packet, children []*ber.Packet) *ber.Packet {
	for _, child := range children {
		p.AppendChild(child)
	}
	return p
}

// ObjectIdentifier returns a universal OBJECT IDENTIFIER.
func ObjectIdentifier(oid encasn1.ObjectIdentifier) (*ber.Packet, error) {
	return TaggedObjectIdentifier(ber.ClassUniversal, ber.TagObjectIdentifier, oid)
}

// TaggedObjectIdentifier returns an OBJECT IDENTIFIER with any tag.
func TaggedObjectIdentifier(class ber.Class, tag ber.Tag, oid encasn1.ObjectIdentifier) (*ber.Packet, error) {
	var b cryptobyte.Builder
	b.AddASN1ObjectIdentifier(oid)
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("object identifier %v: %w", oid, err)
	}

	var content cryptobyte.String
	input := cryptobyte.String(der)
	if !input.ReadASN1(&content, asn1.OBJECT_IDENTIFIER) {
		return nil, fmt.Errorf("object identifier %v: invalid encoding", oid)
	}

	p := ber.Encode(class, ber.TypePrimitive, tag, nil, "")
	p.Data.Write(content)
	return p, nil
}

// Decode parses a single BER element.
func Decode(data []byte) (*ber.Packet, error) {
	p, err := ber.DecodePacketErr(data)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Is checks an element's identifier.
func Is(p *ber.Packet, class ber.Class, typ ber.Type, tag ber.Tag) bool {
	return p.ClassType == class && p.TagType == typ && p.Tag == tag
}

// IsTagged checks for a context specific element.
func IsTagged(p *ber.Packet, typ ber.Type, tag ber.Tag) bool {
	return Is(p, ber.ClassContext, typ, tag)
}

// Describe an element's identifier for error messages, e.g., "[1] constructed".
func Describe(p *ber.Packet) string {
	typ := "primitive"
	if p.TagType == ber.TypeConstructed {
		typ = "constructed"
	}

	switch p.ClassType {
	case ber.ClassUniversal:
		return fmt.Sprintf("universal %d %s", p.Tag, typ)
	case ber.ClassContext:
		return fmt.Sprintf("[%d] %s", p.Tag, typ)
	case ber.ClassApplication:
		return fmt.Sprintf("[APPLICATION %d] %s", p.Tag, typ)
	default:
		return fmt.Sprintf("[PRIVATE %d] %s", p.Tag, typ)
	}
}

// Content returns the content octets of a primitive element.
func Content(p *ber.Packet) ([]byte, error) {
	if p.TagType != ber.TypePrimitive {
		return nil, fmt.Errorf("%s: expected primitive element", Describe(p))
	}
	if p.Data == nil {
		return nil, nil
	}
	return p.Data.Bytes(), nil
}

// Int returns the value of a primitive INTEGER element, regardless of its tag.
func Int(p *ber.Packet) (int64, error) {
	content, err := Content(p)
	if err != nil {
		return 0, err
	}

	if len(content) == 0 || len(content) > 8 {
		return 0, fmt.Errorf("%s: integer of %d octets", Describe(p), len(content))
	}

	v := int64(int8(content[0]))
	for _, c := range content[1:] {
		v = v<<8 | int64(c)
	}
	return v, nil
}

// Oid returns the value of a primitive OBJECT IDENTIFIER element, regardless
// of its tag.
func Oid(p *ber.Packet) (encasn1.ObjectIdentifier, error) {
	content, err := Content(p)
	if err != nil {
		return nil, err
	}

	var b cryptobyte.Builder
	b.AddASN1(asn1.OBJECT_IDENTIFIER, func(b *cryptobyte.Builder) {
		b.AddBytes(content)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, err
	}

	var oid encasn1.ObjectIdentifier
	input := cryptobyte.String(der)
	if !input.ReadASN1ObjectIdentifier(&oid) {
		return nil, fmt.Errorf("%s: invalid object identifier", Describe(p))
	}
	return oid, nil
}

// IntIn checks an INTEGER's value range.
func IntIn(p *ber.Packet, lo, hi int64) (int64, error) {
	v, err := Int(p)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s: value %d out of range [%d, %d]", Describe(p), v, lo, hi)
	}
	return v, nil
}
