// Copyright (c) 2022 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package htree

import (
	"bufio"
	"encoding/binary"
	"io"
)

// byteReader is the minimal interface binary.ReadUvarint needs. Most
// readers passed to the directory/bucket decoders already come from a
// bytes.Reader wrapping a whole record's bytes, which already implements
// it; asByteReader only allocates a bufio.Reader for the rare case where
// it doesn't.
type byteReader interface {
	io.Reader
	io.ByteReader
}

func asByteReader(r io.Reader) byteReader {
	if br, ok := r.(byteReader); ok {
		return br
	}
	return bufio.NewReader(r)
}

// writeUvarint writes v using the 7-bit-per-byte, MSB-continuation scheme
// spelled out for directory child record-ids (§4.2 item 5); bucket entry
// counts use the same encoding.
func writeUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
