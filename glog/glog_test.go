// Copyright (c) 2024 Arista Networks, Inc.  All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package glog

import (
	"bytes"
	"strings"
	"testing"

	aglog "github.com/aristanetworks/glog"

	"github.com/htreedb/htree/logger"
)

var _ logger.Logger = (*Glog)(nil)

func TestGlogImplementsLogger(t *testing.T) {
	b := &bytes.Buffer{}
	aglog.SetOutput(b)

	g := &Glog{}
	g.Info("hello from htree")
	g.Errorf("bad thing: %d", 42)

	out := b.String()
	if !strings.Contains(out, "hello from htree") {
		t.Fatalf("expected Info output, got %q", out)
	}
	if !strings.Contains(out, "bad thing: 42") {
		t.Fatalf("expected Errorf output, got %q", out)
	}
}
