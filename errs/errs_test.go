// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/htreedb/htree/errs"
)

func TestIsMatchesKind(t *testing.T) {
	err := errs.NewExhausted()
	if !errs.Is(err, errs.KindExhausted) {
		t.Fatalf("expected KindExhausted, got %v", err)
	}
	if errs.Is(err, errs.KindNoCurrent) {
		t.Fatalf("did not expect KindNoCurrent for %v", err)
	}
}

func TestIsThroughWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := errs.NewIO("insert", cause)
	wrapped := fmt.Errorf("operation failed: %w", err)

	if !errs.Is(wrapped, errs.KindIO) {
		t.Fatalf("expected KindIO through a wrapping error, got %v", wrapped)
	}
	if !errors.Is(err, err) {
		t.Fatalf("errors.Is should be reflexive")
	}
	if !errors.Is(err.Err, cause) {
		t.Fatalf("expected Err field to hold the original cause")
	}
	if !errs.Is(err, errs.KindIO) {
		t.Fatalf("expected KindIO for %v", err)
	}
}

func TestConcurrentModificationMessage(t *testing.T) {
	err := errs.NewConcurrentModification(3, 4)
	if err.Kind != errs.KindConcurrentModification {
		t.Fatalf("wrong kind: %v", err.Kind)
	}
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}
