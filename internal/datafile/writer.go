// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package datafile reads and writes the on-disk capture table format: a
// fixed header followed by checksummed {key, value} records, where the key
// is a record's label and the value its (possibly compressed) payload.
package datafile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dgryski/go-farm"

	"github.com/encrypted-traffic/tfdata/compress"
)

const (
	defaultBufferSize = 4 * 1024 * 1024
	recordHeaderSize  = 4 + 1 + 4 // 32-bit checksum of the value + 8-bit key length + 32-bit value length

	MaxKeyLen   = (1 << 8) - 1
	MaxValueLen = 1 << 24

	headerKeyLenOff   = 4
	headerValueLenOff = 5
)

type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

// FileWriter is usually an *os.File, but specified as an interface for easier testing.
type FileWriter interface {
	io.Writer
	io.WriterAt
}

// Options configure a new Writer.
type Options struct {
	Codec compress.Type
	// Source is a digest of the capture the table was extracted from.
	Source [32]byte
}

type Writer struct {
	f        FileWriter
	h        *fileHeader
	w        *bufio.Writer
	codec    compress.Codec
	off      uint64
	count    uint64
	finished atomic.Bool
}

func NewWriter(f FileWriter, opts Options) (*Writer, error) {
	codec, err := compress.ForType(opts.Codec)
	if err != nil {
		return nil, err
	}
	h, err := newFileHeader(opts.Codec, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("newFileHeader: %w", err)
	}
	w := &Writer{
		f:     f,
		h:     h,
		w:     bufio.NewWriterSize(f, defaultBufferSize),
		codec: codec,
	}

	headerLen, err := w.h.WriteTo(w.w)
	if err != nil {
		return nil, fmt.Errorf("fileHeader.WriteTo: %w", err)
	}
	w.off = uint64(headerLen)

	// try to expose errors when writing to the backing file early
	if err := w.w.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}

	return w, nil
}

func (w *Writer) writeRecordHeader(key, value []byte) (int, error) {
	var header [recordHeaderSize]byte

	checksum := uint32(farm.Hash64(value))
	binary.LittleEndian.PutUint32(header[:4], checksum)
	header[headerKeyLenOff] = uint8(len(key))
	binary.LittleEndian.PutUint32(header[headerValueLenOff:headerValueLenOff+4], uint32(len(value)))

	return w.w.Write(header[:])
}

// Write appends a record and returns its offset in the file. The value is
// compressed with the table's codec before it is checksummed.
func (w *Writer) Write(key, value []byte) (off uint64, err error) {
	if w.finished.Load() {
		return 0, errors.New("write after Finish")
	}
	off = w.off
	if off == 0 {
		return 0, errors.New("invariant broken: always expect *Writer.off to be > 0")
	}
	if len(key) == 0 {
		return 0, errors.New("empty label not supported")
	}
	if len(key) > MaxKeyLen {
		return 0, fmt.Errorf("label %q longer than %d bytes", string(key), MaxKeyLen)
	}
	if len(value) > MaxValueLen {
		return 0, fmt.Errorf("value of %d bytes too long (max %d)", len(value), MaxValueLen)
	}

	stored, err := w.codec.Compress(value)
	if err != nil {
		return 0, fmt.Errorf("%s compress: %w", w.h.codec, err)
	}

	headerWritten, err := w.writeRecordHeader(key, stored)
	if err != nil {
		return 0, fmt.Errorf("bufio.Write 1: %w", err)
	}
	keyWritten, err := w.w.Write(key)
	if err != nil {
		return 0, fmt.Errorf("bufio.Write 2: %w", err)
	}
	valueWritten, err := w.w.Write(stored)
	if err != nil {
		return 0, fmt.Errorf("bufio.Write 3: %w", err)
	}

	w.off += uint64(headerWritten + keyWritten + valueWritten)
	w.count += 1

	return off, nil
}

// Count returns the number of records written so far.
func (w *Writer) Count() uint64 {
	return w.count
}

// Finish flushes buffered records and stamps the record count into the
// header. It does not close the underlying file.
func (w *Writer) Finish() error {
	if alreadyFinished := w.finished.Swap(true); alreadyFinished {
		// nothing to do - already cleaned up
		return nil
	}

	defer func() {
		w.w.Reset(nopWriter{})
	}()

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("bufio.Flush: %w", err)
	}

	return w.h.UpdateRecordCount(w.count, w.f)
}
