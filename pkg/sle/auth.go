// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// tagVisibleString is the universal ASN.1 tag of a VisibleString.
const tagVisibleString = asn1.Tag(26)

// AuthLevel selects which PDUs carry credentials.
type AuthLevel int

const (
	// AuthNone sends and checks no credentials at all.
	AuthNone AuthLevel = iota
	// AuthBind only authenticates BIND and its return.
	AuthBind
	// AuthAll authenticates every PDU which carries a credentials field.
	AuthAll
)

// ParseAuthLevel parses "none", "bind" or "all".
func ParseAuthLevel(s string) (AuthLevel, error) {
	switch s {
	case "none", "":
		return AuthNone, nil
	case "bind":
		return AuthBind, nil
	case "all":
		return AuthAll, nil
	default:
		return AuthNone, fmt.Errorf("unknown authentication level %q", s)
	}
}

func (l AuthLevel) String() string {
	switch l {
	case AuthNone:
		return "none"
	case AuthBind:
		return "bind"
	case AuthAll:
		return "all"
	default:
		return fmt.Sprintf("unknown authentication level (%d)", int(l))
	}
}

// Credentials are the encoded ISP1 credentials of a PDU. Empty Credentials
// are sent as "unused".
type Credentials []byte

// Used reports whether these Credentials are present.
func (c Credentials) Used() bool {
	return len(c) > 0
}

// Authenticator issues the credentials for outgoing PDUs and verifies the
// credentials of incoming PDUs.
type Authenticator interface {
	// Issue fresh credentials for an outgoing PDU.
	Issue() (Credentials, error)

	// Verify the credentials of an incoming PDU. Errors wrap ErrAuthentication.
	Verify(Credentials) error
}

// NoAuthentication issues unused credentials and accepts every PDU.
type NoAuthentication struct{}

func (NoAuthentication) Issue() (Credentials, error) { return nil, nil }

func (NoAuthentication) Verify(Credentials) error { return nil }

// HashAlgorithm of the ISP1 protected field.
type HashAlgorithm int

const (
	HashSHA1 HashAlgorithm = iota
	HashSHA256
)

// ParseHashAlgorithm parses "sha1" or "sha256".
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch s {
	case "sha1", "":
		return HashSHA1, nil
	case "sha256":
		return HashSHA256, nil
	default:
		return HashSHA1, fmt.Errorf("unknown hash algorithm %q", s)
	}
}

func (h HashAlgorithm) String() string {
	if h == HashSHA256 {
		return "sha256"
	}
	return "sha1"
}

func (h HashAlgorithm) sum(data []byte) []byte {
	if h == HashSHA256 {
		sum := sha256.Sum256(data)
		return sum[:]
	}
	sum := sha1.Sum(data)
	return sum[:]
}

// Isp1Authentication implements the ISP1 simple authentication: the protected
// field is a hash over the time, a random number, the user name and the
// password, all encoded in DER.
type Isp1Authentication struct {
	LocalID       string
	LocalPassword []byte

	PeerID       string
	PeerPassword []byte

	Hash HashAlgorithm

	// AcceptableDelay bounds the age of received credentials. Zero disables
	// the check.
	AcceptableDelay time.Duration

	// Now and Rand default to time.Now and crypto/rand.Reader.
	Now  func() time.Time
	Rand io.Reader
}

// Validate checks the identities and passwords.
func (a *Isp1Authentication) Validate() error {
	switch {
	case a.LocalID == "":
		return errors.New("missing local authority identifier")
	case a.PeerID == "":
		return errors.New("missing peer authority identifier")
	case len(a.LocalPassword) == 0:
		return errors.New("missing local password")
	case len(a.PeerPassword) == 0:
		return errors.New("missing peer password")
	case a.AcceptableDelay < 0:
		return errors.New("negative acceptable delay")
	}
	return nil
}

func (a *Isp1Authentication) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Isp1Authentication) random() (int64, error) {
	r := a.Rand
	if r == nil {
		r = rand.Reader
	}

	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint32(buf[:]) & 0x7FFFFFFF), nil
}

// isp1Credentials encodes ISP1Credentials, the time, random number and
// protected field sent on the wire.
func isp1Credentials(cds []byte, random int64, protected []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1OctetString(cds)
		b.AddASN1Int64(random)
		b.AddASN1OctetString(protected)
	})
	return b.Bytes()
}

// isp1HashInput encodes HashInput, the DER SEQUENCE the protected field is
// computed over. It is never sent.
func isp1HashInput(cds []byte, random int64, user string, password []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1OctetString(cds)
		b.AddASN1Int64(random)
		b.AddASN1(tagVisibleString, func(b *cryptobyte.Builder) {
			b.AddBytes([]byte(user))
		})
		b.AddASN1OctetString(password)
	})
	return b.Bytes()
}

func isp1Decode(data []byte) (cds []byte, random int64, protected []byte, err error) {
	input := cryptobyte.String(data)

	var seq cryptobyte.String
	if !input.ReadASN1(&seq, asn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadASN1Bytes(&cds, asn1.OCTET_STRING) ||
		!seq.ReadASN1Integer(&random) ||
		!seq.ReadASN1Bytes(&protected, asn1.OCTET_STRING) ||
		!seq.Empty() {
		err = fmt.Errorf("%w: malformed ISP1 credentials", ErrAuthentication)
	}
	return
}

func (a *Isp1Authentication) protect(cds []byte, random int64, user string, password []byte) ([]byte, error) {
	input, err := isp1HashInput(cds, random, user, password)
	if err != nil {
		return nil, err
	}
	return a.Hash.sum(input), nil
}

// Issue fresh ISP1 credentials for the local identity.
func (a *Isp1Authentication) Issue() (Credentials, error) {
	cds, err := TimeFromTime(a.now()).MarshalCds()
	if err != nil {
		return nil, err
	}

	random, err := a.random()
	if err != nil {
		return nil, fmt.Errorf("random number: %w", err)
	}

	protected, err := a.protect(cds, random, a.LocalID, a.LocalPassword)
	if err != nil {
		return nil, err
	}

	return isp1Credentials(cds, random, protected)
}

// Verify ISP1 credentials issued by the peer identity.
func (a *Isp1Authentication) Verify(c Credentials) error {
	if !c.Used() {
		return fmt.Errorf("%w: no credentials", ErrAuthentication)
	}

	cds, random, protected, err := isp1Decode(c)
	if err != nil {
		return err
	}

	user := a.PeerID
	expected, err := a.protect(cds, random, user, a.PeerPassword)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(expected, protected) != 1 {
		return fmt.Errorf("%w: protected field of %q does not match", ErrAuthentication, user)
	}

	if a.AcceptableDelay > 0 {
		t, err := TimeFromCds(cds)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		}

		delay := a.now().Sub(t.Time())
		if delay < 0 {
			delay = -delay
		}
		if delay > a.AcceptableDelay {
			return fmt.Errorf("%w: credentials of %q are %v off", ErrAuthentication, user, delay)
		}
	}

	return nil
}
