// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package hset implements a persistent set on top of htree.Tree, the way
// §1 describes the set-over-map wrapper as an external collaborator of
// the index: a Set[K] is nothing more than a Tree[K, struct{}] whose
// values are never inspected.
package hset

import (
	"io"

	"github.com/htreedb/htree/hcodec"
	"github.com/htreedb/htree/hkey"
	"github.com/htreedb/htree/htree"
	"github.com/htreedb/htree/logger"
	"github.com/htreedb/htree/recstore"
)

// member is the codec for the set's struct{} values: there is nothing to
// encode or decode, since a slot's mere presence in the underlying tree
// is the only information a set needs.
type member struct{}

func (member) Encode(_ io.Writer, _ struct{}) error { return nil }
func (member) Decode(_ io.Reader) (struct{}, error) { return struct{}{}, nil }

// Set is a persistent, unordered collection of distinct keys.
type Set[K comparable] struct {
	tree *htree.Tree[K, struct{}]
}

// Options configures a new Set.
type Options[K comparable] struct {
	Hash   hkey.Hasher[K]
	Keys   hcodec.Codec[K]
	Logger logger.Logger
}

// New creates a fresh, empty Set backed by store.
func New[K comparable](store recstore.Store, opts Options[K]) (*Set[K], error) {
	t, err := htree.New(store, htree.Options[K, struct{}]{
		Hash:   opts.Hash,
		Keys:   opts.Keys,
		Values: member{},
		Logger: opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Set[K]{tree: t}, nil
}

// Open attaches a Set to a root directory record created by an earlier
// call to New.
func Open[K comparable](store recstore.Store, rootID recstore.RecordID, opts Options[K]) (*Set[K], error) {
	t, err := htree.Open(store, rootID, htree.Options[K, struct{}]{
		Hash:   opts.Hash,
		Keys:   opts.Keys,
		Values: member{},
		Logger: opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Set[K]{tree: t}, nil
}

// RootID is the record-id of the set's backing tree's root directory.
func (s *Set[K]) RootID() recstore.RecordID { return s.tree.RootID() }

// Len returns the number of members in the set.
func (s *Set[K]) Len() int64 { return s.tree.Len() }

// Contains reports whether k is a member of the set.
func (s *Set[K]) Contains(k K) (bool, error) {
	_, ok, err := s.tree.Get(k)
	return ok, err
}

// Add inserts k into the set, reporting whether it was already present.
func (s *Set[K]) Add(k K) (bool, error) {
	_, had, err := s.tree.Put(k, struct{}{})
	return had, err
}

// Remove deletes k from the set, reporting whether it was present.
func (s *Set[K]) Remove(k K) (bool, error) {
	_, had, err := s.tree.Remove(k)
	return had, err
}

// Clear empties the set.
func (s *Set[K]) Clear() error { return s.tree.Clear() }

// Cursor is a depth-first traversal cursor over the set's members.
type Cursor[K comparable] struct {
	keys *htree.KeyCursor[K, struct{}]
}

// Iterate returns a traversal cursor over the set's members.
func (s *Set[K]) Iterate() (*Cursor[K], error) {
	keys, err := s.tree.Keys()
	if err != nil {
		return nil, err
	}
	return &Cursor[K]{keys: keys}, nil
}

// Next returns the next member in the traversal.
func (c *Cursor[K]) Next() (K, error) { return c.keys.Next() }

// Remove deletes the member last returned by Next from the underlying
// set.
func (c *Cursor[K]) Remove() error { return c.keys.Remove() }
