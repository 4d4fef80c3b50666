// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package htree implements a persistent extendible hash index: a
// disk-backed associative map from arbitrary keys to arbitrary values,
// stored as a tree of fixed-fanout directory pages whose leaves are
// buckets of entries. It is the core described by §§2-4 of the design:
// bucket overflow drives directory growth one 8-bit hash slice at a
// time, up to a maximum depth of four levels.
package htree

import (
	"fmt"

	"github.com/htreedb/htree/errs"
	"github.com/htreedb/htree/hcodec"
	"github.com/htreedb/htree/hkey"
	"github.com/htreedb/htree/logger"
	"github.com/htreedb/htree/recstore"
)

// Tree is the top-level map handle: it owns the record-id of the root
// directory and a modification counter that fail-fast cursors snapshot
// and compare against on every step (§4.3, §5).
//
// A Tree is single-writer, single-reader: it performs no locking of its
// own and assumes the caller serializes access to the underlying Store
// for the duration of any one operation.
type Tree[K comparable, V any] struct {
	store  recstore.Store
	config *config[K, V]
	log    logger.Logger

	rootID   recstore.RecordID
	modCount uint64
	size     int64
}

// Options configures a new Tree. Hash, Keys and Values have no useful
// zero value and must be supplied.
type Options[K comparable, V any] struct {
	// Hash reduces a key to the 32-bit value directories route on.
	Hash hkey.Hasher[K]
	// Keys and Values (de)serialize bucket entries; see hcodec.
	Keys   hcodec.Codec[K]
	Values hcodec.Codec[V]
	// Logger receives Error-level logs for unexpected conditions (e.g.
	// a bad-encoding surfaced mid-traversal). Defaults to a no-op
	// logger.
	Logger logger.Logger
}

// New creates a fresh, empty Tree backed by store: it allocates a root
// directory record and returns a handle bound to it. The returned
// Tree.RootID should be persisted by the caller (e.g. alongside the
// store's own metadata) so a later process can reattach via Open.
func New[K comparable, V any](store recstore.Store, opts Options[K, V]) (*Tree[K, V], error) {
	cfg, log, err := validateOptions(opts)
	if err != nil {
		return nil, err
	}
	root := newDirectory[K, V](0, cfg)
	rootID, err := store.Insert(root)
	if err != nil {
		return nil, err
	}
	return &Tree[K, V]{store: store, config: cfg, log: log, rootID: rootID}, nil
}

// Open attaches a Tree to a root directory record created by an earlier
// call to New, e.g. after reopening a badgerstore database.
func Open[K comparable, V any](store recstore.Store, rootID recstore.RecordID, opts Options[K, V]) (*Tree[K, V], error) {
	cfg, log, err := validateOptions(opts)
	if err != nil {
		return nil, err
	}
	t := &Tree[K, V]{store: store, config: cfg, log: log, rootID: rootID}
	if _, err := t.fetchRoot(); err != nil {
		return nil, err
	}
	return t, nil
}

func validateOptions[K comparable, V any](opts Options[K, V]) (*config[K, V], logger.Logger, error) {
	if opts.Hash == nil {
		return nil, nil, fmt.Errorf("htree: Options.Hash is required")
	}
	if opts.Keys == nil || opts.Values == nil {
		return nil, nil, fmt.Errorf("htree: Options.Keys and Options.Values codecs are required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop{}
	}
	return &config[K, V]{hash: opts.Hash, keys: opts.Keys, vals: opts.Values}, log, nil
}

// RootID is the record-id of the root directory, for callers that need
// to persist it (e.g. cmd/htreedb writes it into a small header record).
func (t *Tree[K, V]) RootID() recstore.RecordID { return t.rootID }

// Len returns the number of entries currently in the tree. It is
// maintained internally as a plain counter alongside the modification
// counter, rather than computed by traversal, so it is O(1).
func (t *Tree[K, V]) Len() int64 { return t.size }

func (t *Tree[K, V]) fetchRoot() (*directory[K, V], error) {
	v, err := t.store.Fetch(t.rootID, t.config)
	if err != nil {
		return nil, err
	}
	root, ok := v.(*directory[K, V])
	if !ok {
		err := errs.NewBadEncoding("root", fmt.Errorf("record %d is not a directory", t.rootID))
		t.log.Error(err)
		return nil, err
	}
	root.store, root.recID = t.store, t.rootID
	return root, nil
}

// Get returns the value stored under k, and whether it was present.
func (t *Tree[K, V]) Get(k K) (V, bool, error) {
	var zero V
	root, err := t.fetchRoot()
	if err != nil {
		return zero, false, err
	}
	return root.get(k, t.config.hash(k))
}

// Put associates k with v, returning the prior value (and whether there
// was one). On success the modification counter is incremented,
// invalidating any live cursor.
func (t *Tree[K, V]) Put(k K, v V) (V, bool, error) {
	var zero V
	root, err := t.fetchRoot()
	if err != nil {
		return zero, false, err
	}
	prior, had, err := root.put(k, v, t.config.hash(k))
	if err != nil {
		return prior, had, err
	}
	t.modCount++
	if !had {
		t.size++
	}
	return prior, had, nil
}

// Remove deletes k, returning the prior value (and whether there was
// one). On success the modification counter is incremented; on a miss
// it is left untouched, matching §3's "never on reads" invariant for a
// remove that had nothing to do.
func (t *Tree[K, V]) Remove(k K) (V, bool, error) {
	var zero V
	root, err := t.fetchRoot()
	if err != nil {
		return zero, false, err
	}
	prior, had, err := root.remove(k, t.config.hash(k))
	if err != nil {
		return prior, had, err
	}
	if had {
		t.modCount++
		t.size--
	}
	return prior, had, nil
}

// Clear empties the tree: every reachable record is deleted and the root
// is reinitialized to a fresh, empty directory at depth 0. RootID is
// unchanged.
func (t *Tree[K, V]) Clear() error {
	root, err := t.fetchRoot()
	if err != nil {
		return err
	}
	if err := root.deleteAllChildren(); err != nil {
		return err
	}
	if err := t.store.Update(t.rootID, root); err != nil {
		return err
	}
	t.modCount++
	t.size = 0
	return nil
}

// Keys returns a depth-first cursor over the tree's keys. The cursor is
// fail-fast: any mutation through t after the cursor is created (or
// after its last successful step) invalidates it (§4.3, §5).
func (t *Tree[K, V]) Keys() (*KeyCursor[K, V], error) {
	core, err := t.newCursorCore()
	if err != nil {
		return nil, err
	}
	return &KeyCursor[K, V]{core: core}, nil
}

// Values returns a depth-first cursor over the tree's values, sharing
// the same fail-fast contract as Keys.
func (t *Tree[K, V]) Values() (*ValueCursor[K, V], error) {
	core, err := t.newCursorCore()
	if err != nil {
		return nil, err
	}
	return &ValueCursor[K, V]{core: core}, nil
}
