// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package hcodec provides the entry-serializer contract a htree.Tree uses
// to turn the keys and values it stores into bytes, plus codecs for the
// common cases so most callers never have to write their own.
package hcodec

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"io"
)

// Codec encodes and decodes a single key or value of type T to/from a byte
// stream. A htree.Tree holds one Codec[K] and one Codec[V]; bucket and
// directory framing is handled internally by the htree package and is not
// pluggable (see §4.1/§4.2 of the design).
type Codec[T any] interface {
	Encode(w io.Writer, v T) error
	Decode(r io.Reader) (T, error)
}

// String is a Codec[string] using a length-prefixed encoding.
type String struct{}

func (String) Encode(w io.Writer, v string) error {
	return writeBytes(w, []byte(v))
}

func (String) Decode(r io.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

// Bytes is a Codec[[]byte] using a length-prefixed encoding.
type Bytes struct{}

func (Bytes) Encode(w io.Writer, v []byte) error {
	return writeBytes(w, v)
}

func (Bytes) Decode(r io.Reader) ([]byte, error) {
	return readBytes(r)
}

// Uint64 is a Codec[uint64] using a fixed 8-byte big-endian encoding.
type Uint64 struct{}

func (Uint64) Encode(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func (Uint64) Decode(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Gob is a Codec[T] backed by encoding/gob, for value types that don't
// warrant a hand-written codec: struct values callers want stored whole
// rather than projected field-by-field into a String/Bytes/Uint64 codec.
type Gob[T any] struct{}

func (Gob[T]) Encode(w io.Writer, v T) error {
	return gob.NewEncoder(w).Encode(v)
}

// Decode reads directly off r rather than through a buffering wrapper:
// gob frames each Encode call as a length-prefixed message and reads
// exactly that many bytes, so buffering here would read ahead into
// whatever follows in the stream (e.g. a sibling bucket entry) and
// discard it once the decoder is dropped.
func (Gob[T]) Decode(r io.Reader) (T, error) {
	var v T
	err := gob.NewDecoder(r).Decode(&v)
	return v, err
}

func writeBytes(w io.Writer, b []byte) error {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(b)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	br := asByteReader(r)
	n, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// byteReader is the minimal interface readBytes needs: both ReadUvarint
// and ReadFull can work off it.
type byteReader interface {
	io.Reader
	io.ByteReader
}

// asByteReader adapts r to byteReader, wrapping it in a bufio.Reader only
// when it doesn't already implement ReadByte (avoiding a double-buffering
// allocation when the caller already passed one in, e.g. the decoder used
// by htree's own directory/bucket framing).
func asByteReader(r io.Reader) byteReader {
	if br, ok := r.(byteReader); ok {
		return br
	}
	return bufio.NewReader(r)
}
