// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package memstore is a volatile, in-process recstore.Store. It backs unit
// tests and callers that want a htree.Tree without persistence.
package memstore

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/htreedb/htree/errs"
	"github.com/htreedb/htree/hashmap"
	"github.com/htreedb/htree/recstore"
)

// ErrNotFound is the cause wrapped by an *errs.Error of kind KindIO when a
// record-id has no entry.
var ErrNotFound = errors.New("memstore: no such record")

func equalRecordID(a, b recstore.RecordID) bool { return a == b }
func hashRecordID(id recstore.RecordID) uint64   { return uint64(id) }

// Store is a mutex-guarded map of record-id to raw bytes. It is safe for
// use by multiple goroutines, which is a property of this particular
// backing, not a guarantee the htree package itself relies on: htree still
// assumes a single logical writer per operation (see §5 of the design).
type Store struct {
	mu     sync.Mutex
	recs   *hashmap.Hashmap[recstore.RecordID, []byte]
	nextID recstore.RecordID
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		recs:   hashmap.New[recstore.RecordID, []byte](0, hashRecordID, equalRecordID),
		nextID: 1,
	}
}

func (s *Store) Fetch(id recstore.RecordID, dec recstore.Decoder) (any, error) {
	s.mu.Lock()
	raw, ok := s.recs.Get(id)
	s.mu.Unlock()
	if !ok {
		return nil, errs.NewIO("fetch", ErrNotFound)
	}
	v, err := dec.DecodeFrom(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.NewBadEncoding("record", err)
	}
	return v, nil
}

func (s *Store) FetchRaw(id recstore.RecordID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.recs.Get(id)
	if !ok {
		return nil, errs.NewIO("fetchRaw", ErrNotFound)
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, nil
}

func (s *Store) Insert(v recstore.Encoder) (recstore.RecordID, error) {
	var buf bytes.Buffer
	if err := v.EncodeTo(&buf); err != nil {
		return recstore.NoRecord, errs.NewIO("insert", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.recs.Set(id, buf.Bytes())
	return id, nil
}

func (s *Store) ForceInsert(id recstore.RecordID, raw []byte) error {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs.Set(id, cp)
	if id >= s.nextID {
		s.nextID = id + 1
	}
	return nil
}

func (s *Store) Update(id recstore.RecordID, v recstore.Encoder) error {
	var buf bytes.Buffer
	if err := v.EncodeTo(&buf); err != nil {
		return errs.NewIO("update", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs.Get(id); !ok {
		return errs.NewIO("update", ErrNotFound)
	}
	s.recs.Set(id, buf.Bytes())
	return nil
}

func (s *Store) Delete(id recstore.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs.Delete(id)
	return nil
}

func (s *Store) Close() error { return nil }

// Range calls f for every record currently stored, in unspecified order.
// It is used by tests; it is not part of the recstore.Store contract.
func (s *Store) Range(f func(id recstore.RecordID, raw []byte) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs.Range(func(id recstore.RecordID, raw []byte) bool {
		return f(id, raw)
	})
}

var _ io.Closer = (*Store)(nil)
