// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package recstore defines the record-store contract the htree package
// builds on: fetch/insert/update/delete of opaque byte-addressable
// records by a 64-bit record-id, plus the raw-bytes operations that make
// defragmentation possible.
package recstore

import "io"

// RecordID identifies a stored record. The zero value, NoRecord, means
// "no record" and is never a valid id returned by Insert.
type RecordID uint64

// NoRecord is the reserved "absent" record-id.
const NoRecord RecordID = 0

// Encoder writes a record's wire representation. htree's directory and
// bucket types implement Encoder directly; the first byte they write is
// always a tag distinguishing the two (see htree/codec.go).
type Encoder interface {
	EncodeTo(w io.Writer) error
}

// Decoder turns a byte stream back into one of the variants a Store can
// hold. It inspects the leading tag byte and returns the right concrete
// type; the returned value's dynamic type is what Fetch hands back.
type Decoder interface {
	DecodeFrom(r io.Reader) (any, error)
}

// Store is the narrow interface htree consumes. Implementations are
// expected to be used by a single writer at a time; see recstore/memstore
// and recstore/badgerstore for the two implementations this module ships.
type Store interface {
	// Fetch reads and decodes the record at id using dec.
	Fetch(id RecordID, dec Decoder) (any, error)
	// FetchRaw reads the raw, still-encoded bytes of the record at id.
	// Used by defragmentation, which never needs to understand the
	// record's structure.
	FetchRaw(id RecordID) ([]byte, error)
	// Insert allocates a new record-id and stores v under it.
	Insert(v Encoder) (RecordID, error)
	// ForceInsert writes raw at exactly id, allocating id if the store
	// tracks a high-water mark. Used by defragmentation to preserve
	// record-ids across a copy.
	ForceInsert(id RecordID, raw []byte) error
	// Update overwrites the record at id, which must already exist.
	Update(id RecordID, v Encoder) error
	// Delete frees the record at id.
	Delete(id RecordID) error
	// Close releases any resources held by the store.
	Close() error
}
