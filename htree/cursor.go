// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package htree

import (
	"github.com/htreedb/htree/errs"
	"github.com/htreedb/htree/recstore"
)

// frame records an ancestor directory and the child index last visited
// within it, so cursorCore can resume scanning siblings after a pop.
// Directories carry no parent pointers of their own (the
// back-pointer-free-tree design note); the cursor rematerializes
// ancestry in its own stack instead.
type frame[K comparable, V any] struct {
	dir   *directory[K, V]
	child int
}

// cursorCore implements the depth-first, left-to-right traversal shared
// by KeyCursor and ValueCursor (§4.3): a stack of ancestor frames, the
// current directory and child index, a one-element lookahead, and the
// modification counter snapshot that makes the cursor fail-fast.
type cursorCore[K comparable, V any] struct {
	tree     *Tree[K, V]
	expected uint64

	stack []frame[K, V]
	dir   *directory[K, V]
	child int

	bkeys []K
	bvals []V
	bidx  int

	hasNext bool
	nextKey K
	nextVal V

	hasLast bool
	lastKey K
}

func (t *Tree[K, V]) newCursorCore() (*cursorCore[K, V], error) {
	root, err := t.fetchRoot()
	if err != nil {
		return nil, err
	}
	c := &cursorCore[K, V]{tree: t, expected: t.modCount, dir: root, child: -1}
	if err := c.advance(); err != nil {
		return nil, err
	}
	return c, nil
}

// advance fills the one-element lookahead, or clears hasNext when the
// traversal is exhausted. It follows the algorithm of §4.3 verbatim:
// drain the current bucket iterator first; otherwise step to the next
// child slot, popping frames while off the end of a directory's children
// and descending into whichever directory or bucket is found next.
func (c *cursorCore[K, V]) advance() error {
	for {
		if c.bidx < len(c.bkeys) {
			c.nextKey = c.bkeys[c.bidx]
			c.nextVal = c.bvals[c.bidx]
			c.bidx++
			c.hasNext = true
			return nil
		}
		c.bkeys, c.bvals = nil, nil

		c.child++
		for c.child >= maxChildren {
			if len(c.stack) == 0 {
				c.hasNext = false
				return nil
			}
			top := c.stack[len(c.stack)-1]
			c.stack = c.stack[:len(c.stack)-1]
			c.dir = top.dir
			c.child = top.child + 1
		}

		id := c.dir.children[c.child]
		if id == recstore.NoRecord {
			continue
		}
		child, err := c.dir.fetchChild(id)
		if err != nil {
			if errs.Is(err, errs.KindBadEncoding) {
				c.tree.log.Error(err)
			}
			return err
		}
		switch cc := child.(type) {
		case *directory[K, V]:
			cc.store, cc.recID = c.dir.store, id
			c.stack = append(c.stack, frame[K, V]{dir: c.dir, child: c.child})
			c.dir = cc
			c.child = -1
		case *bucket[K, V]:
			c.bkeys, c.bvals = cc.keys, cc.values
			c.bidx = 0
		default:
			err := errs.NewBadEncoding("child", nil)
			c.tree.log.Error(err)
			return err
		}
	}
}

func (c *cursorCore[K, V]) checkModCount() error {
	if c.expected != c.tree.modCount {
		return errs.NewConcurrentModification(c.expected, c.tree.modCount)
	}
	return nil
}

// next returns the element at the lookahead and refills it. The element
// is returned alongside any error refilling the lookahead raised: a
// caller that gets a non-nil error should treat the traversal as
// unusable regardless of the returned key/value, matching the
// no-rollback-on-io-failure propagation policy (§7).
func (c *cursorCore[K, V]) next() (K, V, error) {
	var zk K
	var zv V
	if err := c.checkModCount(); err != nil {
		return zk, zv, err
	}
	if !c.hasNext {
		return zk, zv, errs.NewExhausted()
	}
	k, v := c.nextKey, c.nextVal
	c.lastKey = k
	c.hasLast = true
	if err := c.advance(); err != nil {
		return k, v, err
	}
	return k, v, nil
}

// remove deletes the element last returned by next, then re-synchronizes
// the cursor's expected modification counter so it can keep advancing
// past its own removal (§4.3). Position after a self-removal is
// otherwise undefined, matching the reference (§9 Open Question 2).
func (c *cursorCore[K, V]) remove() error {
	if err := c.checkModCount(); err != nil {
		return err
	}
	if !c.hasLast {
		return errs.NewNoCurrent()
	}
	if _, _, err := c.tree.Remove(c.lastKey); err != nil {
		return err
	}
	c.hasLast = false
	c.expected = c.tree.modCount
	return nil
}

// KeyCursor is a depth-first traversal cursor yielding keys.
type KeyCursor[K comparable, V any] struct {
	core *cursorCore[K, V]
}

// Next returns the next key in the traversal.
func (c *KeyCursor[K, V]) Next() (K, error) {
	k, _, err := c.core.next()
	return k, err
}

// Remove deletes the entry last returned by Next from the underlying
// tree. It fails with errs.KindNoCurrent if Next was never called, or
// was already followed by a Remove.
func (c *KeyCursor[K, V]) Remove() error { return c.core.remove() }

// ValueCursor is a depth-first traversal cursor yielding values.
type ValueCursor[K comparable, V any] struct {
	core *cursorCore[K, V]
}

// Next returns the next value in the traversal.
func (c *ValueCursor[K, V]) Next() (V, error) {
	_, v, err := c.core.next()
	return v, err
}

// Remove deletes the entry last returned by Next from the underlying
// tree, under the same contract as KeyCursor.Remove.
func (c *ValueCursor[K, V]) Remove() error { return c.core.remove() }
