// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creachadair/mds/mtest"
)

func TestFutureComplete(t *testing.T) {
	f, complete := NewFuture[int]()

	select {
	case <-f.Done():
		t.Fatal("Future is done before completion")
	default:
	}

	go complete(23, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if v, err := f.Wait(ctx); err != nil {
		t.Fatal(err)
	} else if v != 23 {
		t.Fatalf("Expected 23, got %d", v)
	}
}

func TestFutureWaitCanceled(t *testing.T) {
	f, _ := NewFuture[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestFutureCompleteTwice(t *testing.T) {
	_, complete := NewFuture[int]()
	complete(1, nil)

	mtest.MustPanic(t, func() { complete(2, nil) })
}

func TestFailedFuture(t *testing.T) {
	errTest := errors.New("test")
	f := FailedFuture[string](errTest)

	select {
	case <-f.Done():
	default:
		t.Fatal("FailedFuture is not done")
	}

	if _, err := f.Wait(context.Background()); err != errTest {
		t.Fatalf("Expected %v, got %v", errTest, err)
	}
}
