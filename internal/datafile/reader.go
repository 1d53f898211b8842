// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"fmt"

	"github.com/dgryski/go-farm"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/encrypted-traffic/tfdata/compress"
	"github.com/encrypted-traffic/tfdata/errs"
	"github.com/encrypted-traffic/tfdata/internal/mmap"
)

// Reader gives sequential access to the records of a capture table.
type Reader struct {
	h     fileHeader
	data  []byte
	codec compress.Codec
	mmap  *mmap.ReaderAt
}

// Open maps the table at path read-only.
func Open(path string) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap.Open(%s): %w", path, err)
	}

	// tables are always consumed front to back
	if err := m.Advise(unix.MADV_SEQUENTIAL); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("madvise: %w", err)
	}

	r, err := NewBytesReader(m.Data())
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.mmap = m
	return r, nil
}

// NewBytesReader reads a table that is already in memory.
func NewBytesReader(data []byte) (*Reader, error) {
	if len(data) < fileHeaderSize {
		return nil, fmt.Errorf("data file too short: %d < %d: %w", len(data), fileHeaderSize, errs.ErrCorrupt)
	}

	var header fileHeader
	if err := header.UnmarshalBytes(data); err != nil {
		return nil, fmt.Errorf("fileHeader.UnmarshalBytes: %v: %w", err, errs.ErrCorrupt)
	}

	// every record needs at least its header, so the count is bounded by
	// the file size
	if maxRecords := uint64(len(data)-fileHeaderSize) / recordHeaderSize; header.recordCount > maxRecords {
		return nil, fmt.Errorf("header claims %d records, file holds at most %d: %w", header.recordCount, maxRecords, errs.ErrCorrupt)
	}

	codec, err := compress.ForType(header.codec)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, errs.ErrCorrupt)
	}

	return &Reader{
		h:     header,
		data:  data,
		codec: codec,
	}, nil
}

func (r *Reader) Len() int64 {
	return int64(r.h.recordCount)
}

func (r *Reader) Codec() compress.Type {
	return r.h.codec
}

func (r *Reader) ID() uuid.UUID {
	return r.h.id
}

func (r *Reader) Source() [32]byte {
	return r.h.source
}

// Iter returns an iterator positioned before the first record.
func (r *Reader) Iter() *Iter {
	return &Iter{
		r:         r,
		off:       fileHeaderSize,
		remaining: r.h.recordCount,
	}
}

// Close releases the mapping. Keys and values returned by iterators must not
// be used afterwards.
func (r *Reader) Close() error {
	if r.mmap == nil {
		return nil
	}
	r.data = nil
	return r.mmap.Close()
}

func readRecordHeader(header []byte) (expectedChecksum uint32, keyLen, valueLen int64) {
	_ = header[recordHeaderSize-1]

	expectedChecksum = binary.LittleEndian.Uint32(header[:4])
	keyLen = int64(header[headerKeyLenOff])
	valueLen = int64(binary.LittleEndian.Uint32(header[headerValueLenOff : headerValueLenOff+4]))
	return
}

// Iter walks a table's records in the order they were written.
//
//	it := r.Iter()
//	for it.Next() {
//		use(it.Key(), it.Value())
//	}
//	if err := it.Err(); err != nil { ... }
type Iter struct {
	r         *Reader
	off       int64
	remaining uint64
	key       []byte
	value     []byte
	err       error
}

func (i *Iter) Next() bool {
	if i.err != nil || i.remaining == 0 {
		return false
	}

	m := i.r.data
	mLen := int64(len(m))
	off := i.off
	if off+recordHeaderSize > mLen {
		i.err = fmt.Errorf("off %d beyond bounds (%d) with %d records left: %w", off, mLen, i.remaining, errs.ErrCorrupt)
		return false
	}
	expectedChecksum, keyLen, valueLen := readRecordHeader(m[off : off+recordHeaderSize])
	if keyLen == 0 {
		i.err = fmt.Errorf("off %d: zero-length key: %w", off, errs.ErrCorrupt)
		return false
	}
	if off+recordHeaderSize+keyLen+valueLen > mLen {
		i.err = fmt.Errorf("off %d + keyLen %d + valueLen %d beyond bounds (%d): %w", off, keyLen, valueLen, mLen, errs.ErrCorrupt)
		return false
	}

	key := m[off+recordHeaderSize : off+recordHeaderSize+keyLen]
	stored := m[off+recordHeaderSize+keyLen : off+recordHeaderSize+keyLen+valueLen]
	if checksum := uint32(farm.Hash64(stored)); checksum != expectedChecksum {
		i.err = fmt.Errorf("off %d checksum failed (%d != %d): %w", off, expectedChecksum, checksum, errs.ErrCorrupt)
		return false
	}

	value, err := i.r.codec.Decompress(stored)
	if err != nil {
		i.err = fmt.Errorf("off %d: %v: %w", off, err, errs.ErrCorrupt)
		return false
	}

	i.key = key
	i.value = value
	i.off = off + recordHeaderSize + keyLen + valueLen
	i.remaining--
	return true
}

// Key returns the current record's key. It aliases the table's memory.
func (i *Iter) Key() []byte {
	return i.key
}

// Value returns the current record's decompressed value. For uncompressed
// tables it aliases the table's memory.
func (i *Iter) Value() []byte {
	return i.value
}

func (i *Iter) Err() error {
	return i.err
}
