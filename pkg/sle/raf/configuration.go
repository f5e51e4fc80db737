// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package raf

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/sle-go/pkg/sle"
)

// DefaultVersion of the RAF service requested at BIND.
const DefaultVersion = 5

// Transport exchanges encoded PDUs with the provider, e.g., a tml.Conn.
type Transport interface {
	io.Closer

	// Exchange channels of encoded PDUs.
	//
	//	* incoming is a "receive only" channel for PDUs sent by the provider.
	//	* outgoing is a "send only" channel for PDUs to be sent.
	//	* errChan is another "receive only" channel to propagate the error which ended the transport.
	Exchange() (incoming <-chan []byte, outgoing chan<- []byte, errChan <-chan error)
}

// Configuration of a ServiceUser.
type Configuration struct {
	// InitiatorID is the user's authority identifier sent at BIND.
	InitiatorID string

	// ResponderID is the provider's expected authority identifier. An empty
	// value accepts each identifier.
	ResponderID string

	// ResponderPort is the provider's logical port.
	ResponderPort string

	// Version of the RAF service; DefaultVersion if zero.
	Version int

	// ServiceAgreement, ServicePackage and FunctionalGroup are the "sagr",
	// "spack" and "rsl-fg" attributes of the service instance identifier.
	ServiceAgreement string
	ServicePackage   string
	FunctionalGroup  string

	// Instance is the number of the "raf" attribute, prefixed by the delivery mode.
	Instance int

	DeliveryMode          DeliveryMode
	RequestedFrameQuality RequestedFrameQuality

	AuthLevel sle.AuthLevel

	// Authenticator for credentials; required unless AuthLevel is sle.AuthNone.
	Authenticator sle.Authenticator
}

// Validate the Configuration. All problems are reported together.
func (conf Configuration) Validate() (err error) {
	if conf.InitiatorID == "" {
		err = multierror.Append(err, fmt.Errorf("missing initiator identifier"))
	}
	if conf.ResponderPort == "" {
		err = multierror.Append(err, fmt.Errorf("missing responder port"))
	}
	if conf.Version < 0 || conf.Version > 0xFFFF {
		err = multierror.Append(err, fmt.Errorf("version %d out of range", conf.Version))
	}
	if conf.ServiceAgreement == "" || conf.ServicePackage == "" || conf.FunctionalGroup == "" {
		err = multierror.Append(err, fmt.Errorf("incomplete service instance identifier"))
	}
	if conf.Instance < 1 {
		err = multierror.Append(err, fmt.Errorf("raf instance number must be positive"))
	}
	if !conf.DeliveryMode.isValid() {
		err = multierror.Append(err, fmt.Errorf("invalid delivery mode %d", conf.DeliveryMode))
	}
	if !conf.RequestedFrameQuality.isValid() {
		err = multierror.Append(err, fmt.Errorf("invalid frame quality %d", conf.RequestedFrameQuality))
	}
	if conf.AuthLevel < sle.AuthNone || conf.AuthLevel > sle.AuthAll {
		err = multierror.Append(err, fmt.Errorf("invalid authentication level %d", conf.AuthLevel))
	} else if conf.AuthLevel != sle.AuthNone && conf.Authenticator == nil {
		err = multierror.Append(err, fmt.Errorf("authentication level %v requires an authenticator", conf.AuthLevel))
	}
	return
}

func (conf Configuration) version() int {
	if conf.Version == 0 {
		return DefaultVersion
	}
	return conf.Version
}

// serviceInstance for the delivery mode, e.g., "sagr=1.spack=2.rsl-fg=3.raf=onlt1".
func (conf Configuration) serviceInstance(mode DeliveryMode) sle.ServiceInstanceIdentifier {
	return sle.ServiceInstanceIdentifier{
		{Name: "sagr", Value: conf.ServiceAgreement},
		{Name: "spack", Value: conf.ServicePackage},
		{Name: "rsl-fg", Value: conf.FunctionalGroup},
		{Name: "raf", Value: fmt.Sprintf("%s%d", mode.instancePrefix(), conf.Instance)},
	}
}
