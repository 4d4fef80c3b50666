// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Command htreedb is a small operator CLI onto a badger-backed
// htree.Tree[string, string], in the teacher's cmd/<tool>/main.go +
// stdlib-flag idiom: a package-level flag.String var block parsed
// directly in main, no third-party CLI framework.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/htreedb/htree/errs"
	"github.com/htreedb/htree/glog"
	"github.com/htreedb/htree/hcodec"
	"github.com/htreedb/htree/htree"
	"github.com/htreedb/htree/internal/htreedebug"
	"github.com/htreedb/htree/logger"
	"github.com/htreedb/htree/recstore"
	"github.com/htreedb/htree/recstore/badgerstore"
	"github.com/htreedb/htree/sliceutils"
)

var dbDir = flag.String("db", "", "badger data directory (required)")
var verifyConcurrency = flag.Int64("verify-concurrency", 4, "semaphore size passed to verify (records are checked one at a time)")

// log is the CLI's logger, backed by the teacher's own aristanetworks/glog
// rather than logger.Nop, since a standalone binary should surface its own
// diagnostics instead of discarding them.
var log logger.Logger = &glog.Glog{}

// headerID is a record-id reserved for this CLI's own bookkeeping: the
// root directory's record-id, so a second invocation can reattach to the
// same tree. It is chosen well above anything badgerstore's sequence
// will ever allocate.
const headerID = recstore.RecordID(1 << 63)

// fnvHash is the CLI's key hasher. htree never picks a hash function on
// its own (hkey.Hasher is always supplied by the caller); this CLI uses
// a plain FNV-1a instead of one of hkey's seeded hashers because a
// maphash.Seed cannot be persisted across process restarts, and the
// whole point of a CLI over a disk-backed tree is surviving them.
func fnvHash(k string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(k))
	return h.Sum32()
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: htreedb -db <dir> <command> [args]

commands:
  get <key>
  put <key> <value>
  rm <key>
  keys
  values
  dump
  verify
`)
	os.Exit(2)
}

func main() {
	flag.Parse()
	args := flag.Args()
	if *dbDir == "" || len(args) == 0 {
		usage()
	}

	store, err := badgerstore.Open(badgerstore.Options{Dir: *dbDir, Logger: log})
	if err != nil {
		fmt.Fprintln(os.Stderr, "htreedb:", err)
		os.Exit(1)
	}
	defer store.Close()

	t, err := attach(store)
	if err != nil {
		fmt.Fprintln(os.Stderr, "htreedb:", err)
		os.Exit(1)
	}

	if err := run(t, store, args); err != nil {
		fmt.Fprintln(os.Stderr, "htreedb:", err)
		os.Exit(1)
	}
}

func run(t *htree.Tree[string, string], store recstore.Store, args []string) error {
	switch args[0] {
	case "get":
		if len(args) != 2 {
			usage()
		}
		v, ok, err := t.Get(args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("key %q not found", args[1])
		}
		fmt.Println(v)
	case "put":
		if len(args) != 3 {
			usage()
		}
		if _, _, err := t.Put(args[1], args[2]); err != nil {
			return err
		}
	case "rm":
		if len(args) != 2 {
			usage()
		}
		_, had, err := t.Remove(args[1])
		if err != nil {
			return err
		}
		if !had {
			return fmt.Errorf("key %q not found", args[1])
		}
	case "keys":
		return printCursor(t, true)
	case "values":
		return printCursor(t, false)
	case "dump":
		stats, err := htreedebug.Dump(os.Stdout, store, t.RootID())
		if err != nil {
			return err
		}
		fmt.Printf("directories=%d buckets=%d entries=%d maxDepth=%d\n",
			stats.Directories, stats.Buckets, stats.Entries, stats.MaxDepth)
	case "verify":
		bstore, ok := store.(*badgerstore.Store)
		if !ok {
			return fmt.Errorf("verify requires a badger-backed store")
		}
		var bad []recstore.RecordID
		err := bstore.VerifyAll(context.Background(), *verifyConcurrency,
			func(id recstore.RecordID, raw []byte) error {
				if len(raw) == 0 {
					bad = append(bad, id)
					return fmt.Errorf("record %d is empty", id)
				}
				return nil
			})
		if len(bad) > 0 {
			log.Errorf("verify found %d damaged record(s): %v", len(bad), sliceutils.ToAnySlice(bad))
		} else {
			log.Infof("verify: all records scanned clean")
		}
		return err
	default:
		usage()
	}
	return nil
}

func printCursor(t *htree.Tree[string, string], keys bool) error {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	if keys {
		c, err := t.Keys()
		if err != nil {
			return err
		}
		for {
			k, err := c.Next()
			if errs.Is(err, errs.KindExhausted) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(w, k)
		}
	}
	c, err := t.Values()
	if err != nil {
		return err
	}
	for {
		v, err := c.Next()
		if errs.Is(err, errs.KindExhausted) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, v)
	}
}

// attach reattaches to the tree whose root record-id was saved at
// headerID by a prior run, or creates a fresh one (and saves its
// root record-id) if this is the first run against dir.
func attach(store *badgerstore.Store) (*htree.Tree[string, string], error) {
	opts := htree.Options[string, string]{
		Hash:   fnvHash,
		Keys:   hcodec.String{},
		Values: hcodec.String{},
		Logger: log,
	}
	raw, err := store.FetchRaw(headerID)
	if err != nil {
		if !errs.Is(err, errs.KindIO) {
			return nil, err
		}
		t, err := htree.New(store, opts)
		if err != nil {
			return nil, err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(t.RootID()))
		if err := store.ForceInsert(headerID, buf[:]); err != nil {
			return nil, err
		}
		return t, nil
	}
	if len(raw) != 8 {
		return nil, fmt.Errorf("htreedb: corrupt header record (%d bytes)", len(raw))
	}
	rootID := recstore.RecordID(binary.BigEndian.Uint64(raw))
	return htree.Open(store, rootID, opts)
}
