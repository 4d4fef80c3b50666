// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package htreedebug_test

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"testing"

	"github.com/htreedb/htree/hcodec"
	"github.com/htreedb/htree/htree"
	"github.com/htreedb/htree/internal/htreedebug"
	"github.com/htreedb/htree/recstore"
	"github.com/htreedb/htree/recstore/memstore"
)

func fnv32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func topCollideHash(s string) uint32 { return fnv32(s) & 0x00ffffff }

// S9 — defrag byte-identity: every record-id's raw bytes are identical
// between source and destination after Defrag, a stronger check than
// "keys still retrievable".
func TestDefragByteIdentical(t *testing.T) {
	src := memstore.New()
	tr, err := htree.New(src, htree.Options[string, string]{
		Hash:   topCollideHash,
		Keys:   hcodec.String{},
		Values: hcodec.String{},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		k := fmt.Sprintf("k%02d", i)
		if _, _, err := tr.Put(k, k); err != nil {
			t.Fatalf("put %q: %v", k, err)
		}
	}

	dst := memstore.New()
	if err := htreedebug.Defrag(src, dst, tr.RootID()); err != nil {
		t.Fatalf("defrag: %v", err)
	}

	srcRecords := map[recstore.RecordID][]byte{}
	src.Range(func(id recstore.RecordID, raw []byte) bool {
		srcRecords[id] = append([]byte(nil), raw...)
		return true
	})
	dstRecords := map[recstore.RecordID][]byte{}
	dst.Range(func(id recstore.RecordID, raw []byte) bool {
		dstRecords[id] = append([]byte(nil), raw...)
		return true
	})
	for id, raw := range srcRecords {
		got, ok := dstRecords[id]
		if !ok {
			t.Fatalf("record %d missing from destination after defrag", id)
		}
		if !bytes.Equal(got, raw) {
			t.Fatalf("record %d differs after defrag: got % x, want % x", id, got, raw)
		}
	}
}

func TestDumpReportsStats(t *testing.T) {
	store := memstore.New()
	tr, err := htree.New(store, htree.Options[string, string]{
		Hash:   topCollideHash,
		Keys:   hcodec.String{},
		Values: hcodec.String{},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 9; i++ {
		k := fmt.Sprintf("k%02d", i)
		if _, _, err := tr.Put(k, k); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	stats, err := htreedebug.Dump(&buf, store, tr.RootID())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 9 {
		t.Fatalf("got %d entries, want 9", stats.Entries)
	}
	if stats.Directories < 2 {
		t.Fatal("expected the split to have created at least one sub-directory")
	}
	if buf.Len() == 0 {
		t.Fatal("expected Dump to write a non-empty report")
	}
}
