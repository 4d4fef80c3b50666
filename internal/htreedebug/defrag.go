// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package htreedebug implements defragmentation and a structural dump
// for a htree.Tree, operating on raw record bytes so it never needs to
// know a tree's key or value types. Dump backs cmd/htreedb's "dump"
// subcommand; the CLI has no defrag subcommand.
package htreedebug

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/htreedb/htree/errs"
	"github.com/htreedb/htree/recstore"
)

// Wire tags, duplicated from htree/codec.go: defrag works purely at the
// byte level (§4.2's "copy the serialized bytes verbatim" contract) and
// so never imports htree's generic, codec-bound decoder.
const (
	tagDirectory byte = 1
	tagBucket    byte = 2
)

// Defrag copies the subtree rooted at rootID from src to dst, preserving
// record-ids exactly: every directory's raw bytes are copied verbatim
// under the same id via ForceInsert, then its non-zero children are
// visited recursively (directories) or copied verbatim (buckets). This
// is §4.2's defragmentation contract; it is what backs Testable
// Property / scenario S6 and S9.
func Defrag(src, dst recstore.Store, rootID recstore.RecordID) error {
	raw, err := src.FetchRaw(rootID)
	if err != nil {
		return err
	}
	if len(raw) == 0 || raw[0] != tagDirectory {
		return errs.NewBadEncoding("root", fmt.Errorf("record %d is not a directory", rootID))
	}
	return defragDirectory(src, dst, rootID, raw)
}

func defragDirectory(src, dst recstore.Store, id recstore.RecordID, raw []byte) error {
	if err := dst.ForceInsert(id, raw); err != nil {
		return err
	}
	children, err := parseChildren(raw)
	if err != nil {
		return err
	}
	for _, cid := range children {
		craw, err := src.FetchRaw(cid)
		if err != nil {
			return err
		}
		if len(craw) == 0 {
			return errs.NewBadEncoding("child", fmt.Errorf("record %d is empty", cid))
		}
		switch craw[0] {
		case tagDirectory:
			if err := defragDirectory(src, dst, cid, craw); err != nil {
				return err
			}
		case tagBucket:
			if err := dst.ForceInsert(cid, craw); err != nil {
				return err
			}
		default:
			return errs.NewBadEncoding("child", fmt.Errorf("record %d has unknown tag %#x", cid, craw[0]))
		}
	}
	return nil
}

// parseChildren recovers the non-zero child record-ids from a directory's
// raw bytes, mirroring htree/directory.go's decodeDirectoryBody without
// needing its key/value type parameters: tag, depth, zeroStart, then
// (unless the directory is entirely empty) zeroEnd followed by a varint
// per slot in range.
func parseChildren(raw []byte) ([]recstore.RecordID, error) {
	r := bytes.NewReader(raw)
	if _, err := r.ReadByte(); err != nil { // tag
		return nil, err
	}
	if _, err := r.ReadByte(); err != nil { // depth
		return nil, err
	}
	zeroStart, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	zeroEnd, err := r.ReadByte()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []recstore.RecordID
	for i := int(zeroStart); i <= int(zeroEnd); i++ {
		v, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		if id := recstore.RecordID(v); id != recstore.NoRecord {
			out = append(out, id)
		}
	}
	return out, nil
}
