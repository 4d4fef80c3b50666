// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package htreedebug

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/htreedb/htree/recstore"
)

// Stats summarizes a tree's structure, gathered by Dump.
type Stats struct {
	Directories int
	Buckets     int
	Entries     int
	MaxDepth    int
}

// Dump writes a human-readable, indented structural dump of the subtree
// rooted at rootID to w (one line per directory/bucket, tag and depth
// annotated), and returns aggregate Stats. It is a read-only operational
// tool, analogous to badgerstore.VerifyAll: it walks raw bytes directly
// rather than going through a htree.Tree, so it is not subject to the
// tree's single-reader assumption (§5).
func Dump(w io.Writer, store recstore.Store, rootID recstore.RecordID) (Stats, error) {
	var stats Stats
	if err := dumpNode(w, store, rootID, 0, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func dumpNode(w io.Writer, store recstore.Store, id recstore.RecordID, indent int, stats *Stats) error {
	raw, err := store.FetchRaw(id)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("htreedebug: record %d is empty", id)
	}
	pad := strings.Repeat("  ", indent)
	depth := int(raw[1])
	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}
	switch raw[0] {
	case tagDirectory:
		stats.Directories++
		children, err := parseChildren(raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%sdirectory id=%d depth=%d children=%d\n", pad, id, depth, len(children))
		for _, cid := range children {
			if err := dumpNode(w, store, cid, indent+1, stats); err != nil {
				return err
			}
		}
	case tagBucket:
		stats.Buckets++
		n, err := bucketEntryCount(raw)
		if err != nil {
			return err
		}
		stats.Entries += n
		fmt.Fprintf(w, "%sbucket id=%d depth=%d entries=%d\n", pad, id, depth, n)
	default:
		return fmt.Errorf("htreedebug: record %d has unknown tag %#x", id, raw[0])
	}
	return nil
}

// bucketEntryCount reads just the entry count prefix of a bucket's raw
// bytes (tag, depth, varint count), without decoding the entries
// themselves, which require the tree's key/value codecs.
func bucketEntryCount(raw []byte) (int, error) {
	r := bytes.NewReader(raw[2:])
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
