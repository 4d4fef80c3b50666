// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package htree

import (
	"encoding/binary"
	"io"

	"github.com/htreedb/htree/errs"
	"github.com/htreedb/htree/recstore"
)

const (
	// maxDepth is the deepest directory depth (0-based); a bucket one
	// level below it, at depth maxDepth+1, is the deepest a bucket can
	// be and never splits further (§3, §4.1).
	maxDepth = 3
	// maxChildren is the directory fanout: one slot per possible value
	// of an 8-bit hash slice. Format-defining; see §4.2 and §9.
	maxChildren = 256
	// capacity is the maximum entry count of a bucket below maxDepth+1.
	capacity = 8
)

// directory is an internal routing node: a fixed maxChildren-wide array
// of child record-ids, one per possible value of the hash slice consumed
// at this depth.
type directory[K comparable, V any] struct {
	depth    uint8
	children [maxChildren]recstore.RecordID

	config *config[K, V]

	// store and recID are this directory's persistence context: who to
	// ask for children, and where this directory itself lives. The
	// caller sets both immediately after every fetch (the
	// persistence-context-as-injection design note); neither is
	// serialized.
	store recstore.Store
	recID recstore.RecordID
}

func newDirectory[K comparable, V any](depth uint8, cfg *config[K, V]) *directory[K, V] {
	return &directory[K, V]{depth: depth, config: cfg}
}

// slot extracts the 8-bit hash slice a directory at depth routes on.
// Depth 0 consumes the most-significant byte of h; depth maxDepth the
// least-significant (§4.2).
func slot(h uint32, depth uint8) int {
	shift := uint(maxDepth-int(depth)) * 8
	return int((h >> shift) & 0xFF)
}

func (d *directory[K, V]) fetchChild(id recstore.RecordID) (any, error) {
	return d.store.Fetch(id, d.config)
}

func (d *directory[K, V]) persist() error {
	return d.store.Update(d.recID, d)
}

func (d *directory[K, V]) isEmpty() bool {
	for _, id := range d.children {
		if id != recstore.NoRecord {
			return false
		}
	}
	return true
}

// singleChild returns the record-id of this directory's only non-empty
// child slot, and true, if it has exactly one.
func (d *directory[K, V]) singleChild() (recstore.RecordID, bool) {
	found := recstore.NoRecord
	count := 0
	for _, id := range d.children {
		if id != recstore.NoRecord {
			count++
			if count > 1 {
				return recstore.NoRecord, false
			}
			found = id
		}
	}
	return found, count == 1
}

func (d *directory[K, V]) get(k K, h uint32) (V, bool, error) {
	var zero V
	id := d.children[slot(h, d.depth)]
	if id == recstore.NoRecord {
		return zero, false, nil
	}
	child, err := d.fetchChild(id)
	if err != nil {
		return zero, false, err
	}
	switch c := child.(type) {
	case *directory[K, V]:
		c.store, c.recID = d.store, id
		return c.get(k, h)
	case *bucket[K, V]:
		v, ok := c.get(k)
		return v, ok, nil
	default:
		return zero, false, errs.NewBadEncoding("child", nil)
	}
}

func (d *directory[K, V]) put(k K, v V, h uint32) (V, bool, error) {
	var zero V
	s := slot(h, d.depth)
	id := d.children[s]
	if id == recstore.NoRecord {
		b := newBucket[K, V](d.depth+1, d.config)
		b.add(k, v)
		newID, err := d.store.Insert(b)
		if err != nil {
			return zero, false, err
		}
		d.children[s] = newID
		if err := d.persist(); err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}

	child, err := d.fetchChild(id)
	if err != nil {
		return zero, false, err
	}
	switch c := child.(type) {
	case *directory[K, V]:
		c.store, c.recID = d.store, id
		return c.put(k, v, h)
	case *bucket[K, V]:
		if c.hasRoom() {
			prior, had := c.add(k, v)
			if err := d.store.Update(id, c); err != nil {
				return prior, had, err
			}
			return prior, had, nil
		}
		if int(d.depth) < maxDepth {
			return d.split(s, id, c, k, v, h)
		}
		// depth == maxDepth means the child bucket's own depth is
		// maxDepth+1, at which hasRoom always reports true (§4.1,
		// Open Question 1: unbounded growth preserved). This branch
		// is therefore reference-unreachable; it is kept only as a
		// defensive fallback that keeps appending rather than
		// silently dropping the entry if that invariant ever slips.
		prior, had := c.add(k, v)
		if err := d.store.Update(id, c); err != nil {
			return prior, had, err
		}
		return prior, had, nil
	default:
		return zero, false, errs.NewBadEncoding("child", nil)
	}
}

// split replaces the overflowing bucket at slot s with a fresh
// directory one level deeper, migrates the bucket's entries into it, and
// finally inserts (k, v).
func (d *directory[K, V]) split(s int, oldID recstore.RecordID, old *bucket[K, V], k K, v V, h uint32) (V, bool, error) {
	var zero V
	if int(d.depth) >= maxDepth {
		return zero, false, errs.NewDepthOverflow(int(d.depth))
	}
	nd := newDirectory[K, V](d.depth+1, d.config)
	newID, err := d.store.Insert(nd)
	if err != nil {
		return zero, false, err
	}
	nd.store, nd.recID = d.store, newID

	d.children[s] = newID
	if err := d.persist(); err != nil {
		return zero, false, err
	}
	if err := d.store.Delete(oldID); err != nil {
		return zero, false, err
	}

	keys, values := old.keysSnapshot(), old.valuesSnapshot()
	for i := range keys {
		if _, _, err := nd.put(keys[i], values[i], d.config.hash(keys[i])); err != nil {
			return zero, false, err
		}
	}
	return nd.put(k, v, h)
}

func (d *directory[K, V]) remove(k K, h uint32) (V, bool, error) {
	var zero V
	s := slot(h, d.depth)
	id := d.children[s]
	if id == recstore.NoRecord {
		return zero, false, nil
	}
	child, err := d.fetchChild(id)
	if err != nil {
		return zero, false, err
	}
	switch c := child.(type) {
	case *directory[K, V]:
		c.store, c.recID = d.store, id
		prior, had, err := c.remove(k, h)
		if err != nil || !had {
			return prior, had, err
		}
		if c.isEmpty() {
			if err := d.store.Delete(id); err != nil {
				return prior, had, err
			}
			d.children[s] = recstore.NoRecord
			if err := d.persist(); err != nil {
				return prior, had, err
			}
			return prior, had, nil
		}
		// If removal shrank c to a single bucket, collapse it: the
		// bucket moves up to replace c directly under this slot,
		// and c's own directory record is deleted (S4).
		if soleID, ok := c.singleChild(); ok {
			grandchild, err := c.fetchChild(soleID)
			if err != nil {
				return prior, had, err
			}
			if b, ok := grandchild.(*bucket[K, V]); ok {
				b.depth = d.depth + 1
				if err := c.store.Update(soleID, b); err != nil {
					return prior, had, err
				}
				if err := d.store.Delete(id); err != nil {
					return prior, had, err
				}
				d.children[s] = soleID
				if err := d.persist(); err != nil {
					return prior, had, err
				}
			}
		}
		return prior, had, nil
	case *bucket[K, V]:
		prior, had := c.remove(k)
		if !had {
			return prior, had, nil
		}
		if c.isEmpty() {
			if err := d.store.Delete(id); err != nil {
				return prior, had, err
			}
			d.children[s] = recstore.NoRecord
			if err := d.persist(); err != nil {
				return prior, had, err
			}
		} else if err := d.store.Update(id, c); err != nil {
			return prior, had, err
		}
		return prior, had, nil
	default:
		return zero, false, errs.NewBadEncoding("child", nil)
	}
}

// deleteAllChildren recursively deletes every record reachable from this
// directory (but not the directory's own record) and zeroes its children
// array. Used by Tree.Clear.
func (d *directory[K, V]) deleteAllChildren() error {
	for i, id := range d.children {
		if id == recstore.NoRecord {
			continue
		}
		child, err := d.fetchChild(id)
		if err != nil {
			return err
		}
		if cd, ok := child.(*directory[K, V]); ok {
			cd.store, cd.recID = d.store, id
			if err := cd.deleteAllChildren(); err != nil {
				return err
			}
		}
		if err := d.store.Delete(id); err != nil {
			return err
		}
		d.children[i] = recstore.NoRecord
	}
	return nil
}

// EncodeTo writes the sparse encoding described in §4.2: tag, depth,
// zeroStart, and — unless the directory is entirely empty — zeroEnd
// followed by a varint per slot in [zeroStart, zeroEnd]. An entirely
// empty directory is written as exactly tag, depth, 0x00 (Testable
// Property 9, ignoring the tag prefix).
func (d *directory[K, V]) EncodeTo(w io.Writer) error {
	if _, err := w.Write([]byte{tagDirectory, byte(d.depth)}); err != nil {
		return err
	}
	zeroStart, zeroEnd := -1, -1
	for i, id := range d.children {
		if id != recstore.NoRecord {
			if zeroStart == -1 {
				zeroStart = i
			}
			zeroEnd = i
		}
	}
	if zeroStart == -1 {
		_, err := w.Write([]byte{0})
		return err
	}
	if _, err := w.Write([]byte{byte(zeroStart), byte(zeroEnd)}); err != nil {
		return err
	}
	for i := zeroStart; i <= zeroEnd; i++ {
		if err := writeUvarint(w, uint64(d.children[i])); err != nil {
			return err
		}
	}
	return nil
}

// decodeDirectoryBody reads everything after the tag+depth prefix
// (already consumed by config.DecodeFrom). It disambiguates the
// "entirely empty" encoding from a legitimate zeroStart of 0 purely by
// whether a zeroEnd byte follows: an empty directory's stream ends right
// after the single zero byte, matching the writer side exactly (§9 Open
// Question 3).
func decodeDirectoryBody[K comparable, V any](r io.Reader, depth byte) (*directory[K, V], error) {
	br := asByteReader(r)
	zeroStart, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	d := &directory[K, V]{depth: depth}
	zeroEnd, err := br.ReadByte()
	if err == io.EOF {
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	for i := int(zeroStart); i <= int(zeroEnd); i++ {
		v, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, err
		}
		d.children[i] = recstore.RecordID(v)
	}
	return d, nil
}
