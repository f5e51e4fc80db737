// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import (
	"encoding/asn1"
	"fmt"
	"strings"
)

// serviceInstanceOids maps the attribute names of a service instance
// identifier to their object identifiers below 1.3.112.4.3.1.2.
var serviceInstanceOids = map[string]int{
	"cltu":   7,
	"fsp":    10,
	"tcf":    12,
	"fsl-fg": 14,
	"tcva":   16,
	"raf":    22,
	"rsl-fg": 38,
	"rsp":    40,
	"rcfsh":  44,
	"rcf":    46,
	"rocf":   49,
	"sagr":   52,
	"spack":  53,
}

// AttributeOid returns the object identifier of a service instance attribute.
func AttributeOid(name string) (asn1.ObjectIdentifier, bool) {
	n, ok := serviceInstanceOids[name]
	if !ok {
		return nil, false
	}
	return asn1.ObjectIdentifier{1, 3, 112, 4, 3, 1, 2, n}, true
}

// AttributeName returns the name of a service instance attribute's object
// identifier.
func AttributeName(oid asn1.ObjectIdentifier) (string, bool) {
	prefix := asn1.ObjectIdentifier{1, 3, 112, 4, 3, 1, 2}
	if len(oid) != len(prefix)+1 || !oid[:len(prefix)].Equal(prefix) {
		return "", false
	}

	for name, n := range serviceInstanceOids {
		if oid[len(prefix)] == n {
			return name, true
		}
	}
	return "", false
}

// ServiceInstanceAttribute is one "name=value" element of a service instance
// identifier.
type ServiceInstanceAttribute struct {
	Name  string
	Value string
}

func (a ServiceInstanceAttribute) String() string {
	return a.Name + "=" + a.Value
}

// ServiceInstanceIdentifier names a service instance at the provider, e.g.,
// "sagr=3.spack=facility-PASS1.rsl-fg=1.raf=onlc1".
type ServiceInstanceIdentifier []ServiceInstanceAttribute

// ParseServiceInstanceIdentifier parses the dotted textual form.
func ParseServiceInstanceIdentifier(s string) (ServiceInstanceIdentifier, error) {
	if s == "" {
		return nil, fmt.Errorf("empty service instance identifier")
	}

	var sii ServiceInstanceIdentifier
	for _, part := range strings.Split(s, ".") {
		name, value, ok := strings.Cut(part, "=")
		if !ok || value == "" {
			return nil, fmt.Errorf("service instance attribute %q is not name=value", part)
		}
		if _, known := serviceInstanceOids[name]; !known {
			return nil, fmt.Errorf("unknown service instance attribute %q", name)
		}

		sii = append(sii, ServiceInstanceAttribute{Name: name, Value: value})
	}
	return sii, nil
}

func (sii ServiceInstanceIdentifier) String() string {
	parts := make([]string, len(sii))
	for i, a := range sii {
		parts[i] = a.String()
	}
	return strings.Join(parts, ".")
}
