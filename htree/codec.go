// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package htree

import (
	"fmt"
	"io"

	"github.com/htreedb/htree/hcodec"
	"github.com/htreedb/htree/hkey"
)

// Record tags discriminating the two record variants a Tree's record
// store can hold. §6 requires only that the decoded result's dynamic
// type be discriminable; a leading tag byte is the mechanism.
const (
	tagDirectory byte = 1
	tagBucket    byte = 2
)

// config bundles the per-Tree behaviour every directory and bucket needs
// but neither owns outright: the Hasher that routes keys to slots, and
// the key/value codecs that frame bucket entries. It also implements
// recstore.Decoder, dispatching on the leading tag byte to produce either
// a *directory or a *bucket. This is the "tagged sum type, not a base
// class" design note: the polymorphic child is a discriminated variant
// recovered by a type switch, not an interface with per-variant methods.
type config[K comparable, V any] struct {
	hash hkey.Hasher[K]
	keys hcodec.Codec[K]
	vals hcodec.Codec[V]
}

// DecodeFrom implements recstore.Decoder.
func (c *config[K, V]) DecodeFrom(r io.Reader) (any, error) {
	tag, err := readByte(r)
	if err != nil {
		return nil, err
	}
	depth, err := readByte(r)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagDirectory:
		d, err := decodeDirectoryBody[K, V](r, depth)
		if err != nil {
			return nil, err
		}
		d.config = c
		return d, nil
	case tagBucket:
		b, err := decodeBucketBody(r, depth, c)
		if err != nil {
			return nil, err
		}
		b.config = c
		return b, nil
	default:
		return nil, fmt.Errorf("htree: unknown record tag %#x", tag)
	}
}
