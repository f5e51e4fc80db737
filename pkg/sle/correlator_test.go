// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import (
	"errors"
	"testing"

	"github.com/creachadair/mds/mtest"
	"github.com/google/go-cmp/cmp"
)

func TestCorrelatorResolve(t *testing.T) {
	c := NewCorrelator[string]()

	var results []string
	for _, id := range []InvokeID{1, 2, 3} {
		id := id
		c.Register(id, func(s string, err error) {
			results = append(results, s)
		})
	}

	if err := c.Resolve(2, "two", nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Resolve(2, "again", nil); !errors.Is(err, ErrUnknownInvokeID) {
		t.Fatalf("Resolving a resolved id: expected ErrUnknownInvokeID, got %v", err)
	}
	if err := c.Resolve(42, "unknown", nil); !errors.Is(err, ErrUnknownInvokeID) {
		t.Fatalf("Resolving an unknown id: expected ErrUnknownInvokeID, got %v", err)
	}

	if c.Len() != 2 || !c.Pending(1) || c.Pending(2) {
		t.Fatalf("Unexpected pending set after resolving: %d", c.Len())
	}

	if diff := cmp.Diff([]string{"two"}, results); diff != "" {
		t.Fatalf("Unexpected results (-want +got):\n%s", diff)
	}
}

func TestCorrelatorFailAll(t *testing.T) {
	c := NewCorrelator[int]()
	errTest := errors.New("aborted")

	var failed []InvokeID
	for _, id := range []InvokeID{7, 3, 5} {
		id := id
		c.Register(id, func(_ int, err error) {
			if err != errTest {
				t.Errorf("Invocation %d: expected %v, got %v", id, errTest, err)
			}
			failed = append(failed, id)
		})
	}

	c.FailAll(errTest)

	if diff := cmp.Diff([]InvokeID{3, 5, 7}, failed); diff != "" {
		t.Fatalf("Unexpected failures (-want +got):\n%s", diff)
	}
	if c.Len() != 0 {
		t.Fatalf("Correlator still holds %d invocations", c.Len())
	}
}

func TestCorrelatorRegisterTwice(t *testing.T) {
	c := NewCorrelator[int]()
	c.Register(1, func(int, error) {})

	mtest.MustPanic(t, func() { c.Register(1, func(int, error) {}) })
}

func TestInvokeIDsSkipInUse(t *testing.T) {
	var ids InvokeIDs
	inUse := map[InvokeID]bool{1: true, 2: true}

	if id := ids.Issue(nil); id != 0 {
		t.Fatalf("Expected 0, got %d", id)
	}
	if id := ids.Issue(func(id InvokeID) bool { return inUse[id] }); id != 3 {
		t.Fatalf("Expected 3, got %d", id)
	}

	ids.next = 0xFFFF
	if id := ids.Issue(nil); id != 0xFFFF {
		t.Fatalf("Expected 65535, got %d", id)
	}
	if id := ids.Issue(nil); id != 0 {
		t.Fatalf("Expected wrap to 0, got %d", id)
	}
}
