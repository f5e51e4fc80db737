// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package asn

import (
	"fmt"

	ber "github.com/go-asn1-ber/asn1-ber"
)

// Reader walks the components of a constructed element in order.
type Reader struct {
	name     string
	children []*ber.Packet
}

// NewReader for the components of p. The name is used in error messages.
func NewReader(name string, p *ber.Packet) (*Reader, error) {
	if p.TagType != ber.TypeConstructed {
		return nil, fmt.Errorf("%s: %s is not constructed", name, Describe(p))
	}
	return &Reader{name: name, children: p.Children}, nil
}

// Next returns the next component, whatever its tag.
func (r *Reader) Next() (*ber.Packet, error) {
	if len(r.children) == 0 {
		return nil, fmt.Errorf("%s: missing component", r.name)
	}

	p := r.children[0]
	r.children = r.children[1:]
	return p, nil
}

// Expect returns the next component if it has the given identifier.
func (r *Reader) Expect(class ber.Class, typ ber.Type, tag ber.Tag) (*ber.Packet, error) {
	p, err := r.Next()
	if err != nil {
		return nil, err
	}
	if !Is(p, class, typ, tag) {
		return nil, fmt.Errorf("%s: unexpected component %s", r.name, Describe(p))
	}
	return p, nil
}

// Integer reads a universal INTEGER.
func (r *Reader) Integer() (int64, error) {
	p, err := r.Expect(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger)
	if err != nil {
		return 0, err
	}
	return Int(p)
}

// IntegerIn reads a universal INTEGER within [lo, hi].
func (r *Reader) IntegerIn(lo, hi int64) (int64, error) {
	p, err := r.Expect(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger)
	if err != nil {
		return 0, err
	}
	return IntIn(p, lo, hi)
}

// OctetString reads a universal OCTET STRING.
func (r *Reader) OctetString() ([]byte, error) {
	p, err := r.Expect(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString)
	if err != nil {
		return nil, err
	}
	return Content(p)
}

// VisibleString reads a universal VisibleString.
func (r *Reader) VisibleString() (string, error) {
	p, err := r.Expect(ber.ClassUniversal, ber.TypePrimitive, ber.TagVisibleString)
	if err != nil {
		return "", err
	}
	content, err := Content(p)
	return string(content), err
}

// Done fails if there are unread components left.
func (r *Reader) Done() error {
	if len(r.children) > 0 {
		return fmt.Errorf("%s: %d unexpected trailing components", r.name, len(r.children))
	}
	return nil
}
