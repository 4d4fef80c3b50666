// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package htree

import (
	"encoding/binary"
	"io"
)

// bucket is a leaf node: an unordered collection of entries sharing a
// hash prefix. Below the maximum depth it holds at most capacity
// entries; at the maximum depth it is allowed to grow without bound,
// since there is nowhere left to split a colliding key to (§4.1, Open
// Question 1).
type bucket[K comparable, V any] struct {
	depth  uint8
	keys   []K
	values []V

	// config is injected by the decoder (or by newBucket) and is never
	// serialized; see the persistence-context-as-injection design note.
	config *config[K, V]
}

func newBucket[K comparable, V any](depth uint8, cfg *config[K, V]) *bucket[K, V] {
	return &bucket[K, V]{depth: depth, config: cfg}
}

func (b *bucket[K, V]) get(k K) (V, bool) {
	for i, kk := range b.keys {
		if kk == k {
			return b.values[i], true
		}
	}
	var zero V
	return zero, false
}

// add inserts (k, v), or replaces v if k is already present, returning
// the prior value. Capacity is not checked here; callers must consult
// hasRoom first (§4.1).
func (b *bucket[K, V]) add(k K, v V) (V, bool) {
	for i, kk := range b.keys {
		if kk == k {
			prior := b.values[i]
			b.values[i] = v
			return prior, true
		}
	}
	b.keys = append(b.keys, k)
	b.values = append(b.values, v)
	var zero V
	return zero, false
}

// remove deletes k, if present, swapping the last entry into its slot.
// No order is guaranteed across any bucket operation.
func (b *bucket[K, V]) remove(k K) (V, bool) {
	for i, kk := range b.keys {
		if kk == k {
			prior := b.values[i]
			last := len(b.keys) - 1
			b.keys[i] = b.keys[last]
			b.values[i] = b.values[last]
			var zk K
			var zv V
			b.keys[last] = zk
			b.values[last] = zv
			b.keys = b.keys[:last]
			b.values = b.values[:last]
			return prior, true
		}
	}
	var zero V
	return zero, false
}

func (b *bucket[K, V]) isEmpty() bool { return len(b.keys) == 0 }

// hasRoom reports whether the bucket can accept another entry without a
// directory split. At depth maxDepth+1 (the deepest possible bucket) it
// always reports true: a bucket that deep has no sibling directory to
// split into.
func (b *bucket[K, V]) hasRoom() bool {
	if int(b.depth) >= maxDepth+1 {
		return true
	}
	return len(b.keys) < capacity
}

func (b *bucket[K, V]) keysSnapshot() []K {
	out := make([]K, len(b.keys))
	copy(out, b.keys)
	return out
}

func (b *bucket[K, V]) valuesSnapshot() []V {
	out := make([]V, len(b.values))
	copy(out, b.values)
	return out
}

// EncodeTo writes the tag byte, depth, entry count, and entries in turn
// (§4.1).
func (b *bucket[K, V]) EncodeTo(w io.Writer) error {
	if _, err := w.Write([]byte{tagBucket, byte(b.depth)}); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(len(b.keys))); err != nil {
		return err
	}
	for i := range b.keys {
		if err := b.config.keys.Encode(w, b.keys[i]); err != nil {
			return err
		}
		if err := b.config.vals.Encode(w, b.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func decodeBucketBody[K comparable, V any](r io.Reader, depth byte, cfg *config[K, V]) (*bucket[K, V], error) {
	br := asByteReader(r)
	n, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, err
	}
	b := &bucket[K, V]{depth: depth}
	if n == 0 {
		return b, nil
	}
	b.keys = make([]K, 0, n)
	b.values = make([]V, 0, n)
	for i := uint64(0); i < n; i++ {
		k, err := cfg.keys.Decode(br)
		if err != nil {
			return nil, err
		}
		v, err := cfg.vals.Decode(br)
		if err != nil {
			return nil, err
		}
		b.keys = append(b.keys, k)
		b.values = append(b.values, v)
	}
	return b, nil
}
