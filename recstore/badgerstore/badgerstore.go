// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package badgerstore is the disk-resident recstore.Store, backed by
// github.com/dgraph-io/badger/v3. Record-ids are encoded as big-endian
// uint64 keys so ForceInsert/FetchRaw can address exact keys byte for
// byte, which is what makes defragmentation (§4.2) possible.
package badgerstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/htreedb/htree/errs"
	"github.com/htreedb/htree/logger"
	"github.com/htreedb/htree/recstore"
	"github.com/htreedb/htree/sync/semaphore"
)

var seqKey = []byte("htree:__record_id_sequence__")

// seqBandwidth is how many ids badger's Sequence hands out per round-trip
// to its own write-ahead log before it needs to persist a new high-water
// mark; see badger.DB.GetSequence.
const seqBandwidth = 1000

// Store is a recstore.Store backed by an on-disk badger database.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
	log logger.Logger
}

// Options configures Open.
type Options struct {
	// Dir is the badger data directory. It is created if it does not
	// exist.
	Dir string
	// Logger receives an Info log for each record write that takes longer
	// than 50ms; failed operations are returned, not logged. If nil, a
	// logger.Nop is used.
	Logger logger.Logger
}

// Open opens (or creates) a badger-backed Store at opts.Dir.
func Open(opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Nop{}
	}
	bopts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errs.NewIO("open", err)
	}
	seq, err := db.GetSequence(seqKey, seqBandwidth)
	if err != nil {
		db.Close()
		return nil, errs.NewIO("open", err)
	}
	return &Store{db: db, seq: seq, log: opts.Logger}, nil
}

func encodeKey(id recstore.RecordID) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func (s *Store) nextID() (recstore.RecordID, error) {
	for {
		n, err := s.seq.Next()
		if err != nil {
			return recstore.NoRecord, errs.NewIO("insert", err)
		}
		id := recstore.RecordID(n + 1) // badger sequences start at 0; 0 means "no record"
		if id != recstore.NoRecord {
			return id, nil
		}
	}
}

func (s *Store) Fetch(id recstore.RecordID, dec recstore.Decoder) (any, error) {
	raw, err := s.FetchRaw(id)
	if err != nil {
		return nil, err
	}
	v, err := dec.DecodeFrom(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.NewBadEncoding("record", err)
	}
	return v, nil
}

func (s *Store) FetchRaw(id recstore.RecordID) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(id))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, errs.NewIO("fetchRaw", err)
	}
	return raw, nil
}

func (s *Store) Insert(v recstore.Encoder) (recstore.RecordID, error) {
	id, err := s.nextID()
	if err != nil {
		return recstore.NoRecord, err
	}
	if err := s.writeAt(id, v); err != nil {
		return recstore.NoRecord, err
	}
	return id, nil
}

func (s *Store) Update(id recstore.RecordID, v recstore.Encoder) error {
	return s.writeAt(id, v)
}

func (s *Store) writeAt(id recstore.RecordID, v recstore.Encoder) error {
	start := time.Now()
	var buf bytes.Buffer
	if err := v.EncodeTo(&buf); err != nil {
		return errs.NewIO("write", err)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(id), buf.Bytes())
	})
	if err != nil {
		return errs.NewIO("write", err)
	}
	if d := time.Since(start); d > 50*time.Millisecond {
		s.log.Infof("badgerstore: slow write to record %d took %s", id, d)
	}
	return nil
}

func (s *Store) ForceInsert(id recstore.RecordID, raw []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(id), raw)
	})
	if err != nil {
		return errs.NewIO("forceInsert", err)
	}
	return nil
}

func (s *Store) Delete(id recstore.RecordID) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(encodeKey(id))
	})
	if err != nil {
		return errs.NewIO("delete", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.seq.Release()
	return s.db.Close()
}

// VerifyAll scans every record in the store and calls check with its raw
// bytes. Each check holds one unit of a semaphore of size concurrency, but
// checks run on the calling goroutine, one after another, so no two checks
// overlap whatever concurrency is. It is an
// operational tool used by cmd/htreedb's "verify" subcommand, and operates
// directly on the record store rather than through a htree.Tree, so it is
// not subject to the tree's single-reader assumption (§5).
func (s *Store) VerifyAll(ctx context.Context, concurrency int64, check func(id recstore.RecordID, raw []byte) error) error {
	sem := semaphore.NewWeighted(concurrency)
	var firstErr error
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if bytes.Equal(item.Key(), seqKey) {
				continue
			}
			if len(item.Key()) != 8 {
				continue
			}
			id := recstore.RecordID(binary.BigEndian.Uint64(item.Key()))
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			if err := check(id, raw); err != nil && firstErr == nil {
				firstErr = err
			}
			sem.Release(1)
		}
		return nil
	})
	if err != nil {
		return errs.NewIO("verify", err)
	}
	return firstErr
}
