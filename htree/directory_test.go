// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package htree

import (
	"bytes"
	"testing"

	"github.com/htreedb/htree/recstore"
)

func TestSlotRouting(t *testing.T) {
	tests := []struct {
		h     uint32
		depth uint8
		want  int
	}{
		{h: 0x12345678, depth: 0, want: 0x12},
		{h: 0x12345678, depth: 1, want: 0x34},
		{h: 0x12345678, depth: 2, want: 0x56},
		{h: 0x12345678, depth: 3, want: 0x78},
	}
	for _, tc := range tests {
		if got := slot(tc.h, tc.depth); got != tc.want {
			t.Errorf("slot(%#x, %d) = %#x, want %#x", tc.h, tc.depth, got, tc.want)
		}
	}
}

func TestDirectoryEmptyEncoding(t *testing.T) {
	d := newDirectory[string, string](2, testConfig())
	var buf bytes.Buffer
	if err := d.EncodeTo(&buf); err != nil {
		t.Fatal(err)
	}
	// Testable Property 9: an entirely empty directory encodes as
	// exactly depth || 0x00, ignoring the tag prefix.
	want := []byte{tagDirectory, 2, 0}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x, want % x", buf.Bytes(), want)
	}
}

func TestDirectoryIsEmpty(t *testing.T) {
	d := newDirectory[string, string](0, testConfig())
	if !d.isEmpty() {
		t.Fatal("a fresh directory should be empty")
	}
	d.children[5] = recstore.RecordID(42)
	if d.isEmpty() {
		t.Fatal("a directory with a non-zero slot should not be empty")
	}
}

func TestDirectoryEncodeDecodeRoundTrip(t *testing.T) {
	d := newDirectory[string, string](1, testConfig())
	d.children[0] = 7
	d.children[3] = 0 // a zero gap inside [zeroStart, zeroEnd]
	d.children[5] = 11
	d.children[200] = 99

	var buf bytes.Buffer
	if err := d.EncodeTo(&buf); err != nil {
		t.Fatal(err)
	}
	tag, err := readByte(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if tag != tagDirectory {
		t.Fatalf("got tag %d, want %d", tag, tagDirectory)
	}
	depth, err := readByte(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeDirectoryBody[string, string](&buf, depth)
	if err != nil {
		t.Fatal(err)
	}
	if got.depth != d.depth {
		t.Fatalf("depth mismatch: got %d, want %d", got.depth, d.depth)
	}
	if got.children != d.children {
		t.Fatalf("round trip mismatch: got %v, want %v", got.children, d.children)
	}
}

func TestDirectorySingleSlotZero(t *testing.T) {
	// zeroStart == 0 here is a legitimate "slot 0 is populated", not the
	// all-zero sentinel; the decoder must disambiguate by stream length,
	// not by the byte value (§9 Open Question 3).
	d := newDirectory[string, string](3, testConfig())
	d.children[0] = 1

	var buf bytes.Buffer
	if err := d.EncodeTo(&buf); err != nil {
		t.Fatal(err)
	}
	if _, err := readByte(&buf); err != nil { // tag
		t.Fatal(err)
	}
	depth, err := readByte(&buf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeDirectoryBody[string, string](&buf, depth)
	if err != nil {
		t.Fatal(err)
	}
	if got.children[0] != 1 {
		t.Fatalf("expected slot 0 to decode to record 1, got %d", got.children[0])
	}
	if got.isEmpty() {
		t.Fatal("directory should not be considered empty")
	}
}
