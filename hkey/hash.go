// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package hkey provides default 32-bit hash functions for the key types a
// htree.Tree is commonly indexed by. A htree.Tree never picks a hash
// function on its own; callers always supply one, but most callers are
// hashing a string, a byte slice or a fixed-width integer, so hand-writing
// the same maphash boilerplate for each instantiation would be pure
// friction.
package hkey

import "hash/maphash"

// Hasher reduces a key to the 32-bit hash slice value the tree's directory
// pages route on. Two equal keys MUST produce the same hash; unequal keys
// SHOULD produce different hashes, but collisions are expected and handled
// by bucket linear probing.
type Hasher[K any] func(k K) uint32

// fold mixes a 64-bit maphash digest down to 32 bits instead of simply
// truncating it, so both hash halves still contribute to the hash slice at
// the top and bottom tree levels.
func fold(h uint64) uint32 {
	return uint32(h>>32) ^ uint32(h)
}

// NewStringHasher returns a Hasher[string] seeded with seed. Reuse one seed
// per tree (e.g. generated once with maphash.MakeSeed()); changing it
// makes the same keys route to different slots, so a persisted tree
// reopened with a different seed no longer finds the keys already in it.
func NewStringHasher(seed maphash.Seed) Hasher[string] {
	return func(k string) uint32 {
		return fold(maphash.String(seed, k))
	}
}

// NewBytesHasher returns a Hasher[[]byte] seeded with seed.
func NewBytesHasher(seed maphash.Seed) Hasher[[]byte] {
	return func(k []byte) uint32 {
		return fold(maphash.Bytes(seed, k))
	}
}

// NewUint64Hasher returns a Hasher[uint64] seeded with seed. Unlike the
// string/bytes hashers this does not need to go through maphash.Bytes: the
// key is already fixed-width, so it is hashed directly via a multiplicative
// mix with an odd multiplier derived from seed.
func NewUint64Hasher(seed maphash.Seed) Hasher[uint64] {
	var h maphash.Hash
	h.SetSeed(seed)
	mix := h.Sum64() | 1 // avoid a zero multiplier
	return func(k uint64) uint32 {
		return fold(k * mix)
	}
}

// NewInt64Hasher returns a Hasher[int64] seeded with seed.
func NewInt64Hasher(seed maphash.Seed) Hasher[int64] {
	u := NewUint64Hasher(seed)
	return func(k int64) uint32 {
		return u(uint64(k))
	}
}
