// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/encrypted-traffic/tfdata/compress"
)

const (
	magicDataHeader   = 0xCA97AB1E
	fileFormatVersion = 1
	// make the header the minimum cache-width we expect to see
	fileHeaderSize = 128

	headerMagicOff       = 0
	headerVersionOff     = 4
	headerRecordCountOff = 8
	headerCodecOff       = 16
	headerIDOff          = 24
	headerSourceOff      = 40
)

// fileHeader layout (little endian):
//
//	[0:4)    magic
//	[4:8)    format version
//	[8:16)   record count, written by Finish
//	[16]     value codec
//	[24:40)  table id
//	[40:72)  source digest (zero if the table has no source capture)
type fileHeader struct {
	magic         uint32
	formatVersion uint32
	recordCount   uint64
	codec         compress.Type
	id            uuid.UUID
	source        [32]byte
}

func newFileHeader(codec compress.Type, source [32]byte) (*fileHeader, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("uuid.NewRandom: %w", err)
	}
	return &fileHeader{
		magic:         magicDataHeader,
		formatVersion: fileFormatVersion,
		codec:         codec,
		id:            id,
		source:        source,
	}, nil
}

func (h *fileHeader) MarshalTo(headerBuf []byte) error {
	if len(headerBuf) < fileHeaderSize {
		return fmt.Errorf("headerBuf too short: %d < %d", len(headerBuf), fileHeaderSize)
	}
	headerBuf = headerBuf[:fileHeaderSize]
	for i := range headerBuf {
		headerBuf[i] = 0
	}

	binary.LittleEndian.PutUint32(headerBuf[headerMagicOff:], h.magic)
	binary.LittleEndian.PutUint32(headerBuf[headerVersionOff:], h.formatVersion)
	binary.LittleEndian.PutUint64(headerBuf[headerRecordCountOff:], h.recordCount)
	headerBuf[headerCodecOff] = byte(h.codec)
	copy(headerBuf[headerIDOff:headerIDOff+16], h.id[:])
	copy(headerBuf[headerSourceOff:headerSourceOff+32], h.source[:])

	return nil
}

func (h *fileHeader) WriteTo(w io.Writer) (n int64, err error) {
	var headerBuf [fileHeaderSize]byte
	if err = h.MarshalTo(headerBuf[:]); err != nil {
		return 0, err
	}
	if _, err = w.Write(headerBuf[:]); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	return int64(fileHeaderSize), nil
}

func (h *fileHeader) UpdateRecordCount(n uint64, w io.WriterAt) error {
	h.recordCount = n

	var recordCountBuf [8]byte
	binary.LittleEndian.PutUint64(recordCountBuf[:], h.recordCount)
	if _, err := w.WriteAt(recordCountBuf[:], headerRecordCountOff); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}

	return nil
}

func (h *fileHeader) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return fmt.Errorf("headerBytes too short: %d < %d", len(headerBytes), fileHeaderSize)
	}
	headerBytes = headerBytes[:fileHeaderSize]

	h.magic = binary.LittleEndian.Uint32(headerBytes[headerMagicOff:])
	if h.magic != magicDataHeader {
		return fmt.Errorf("bad magic number on data file (%x) -- not a capture table or corrupted", h.magic)
	}

	h.formatVersion = binary.LittleEndian.Uint32(headerBytes[headerVersionOff:])
	if h.formatVersion != fileFormatVersion {
		return fmt.Errorf("this version of tfdata can only read v%d capture tables; found v%d", fileFormatVersion, h.formatVersion)
	}

	h.recordCount = binary.LittleEndian.Uint64(headerBytes[headerRecordCountOff:])
	h.codec = compress.Type(headerBytes[headerCodecOff])
	copy(h.id[:], headerBytes[headerIDOff:headerIDOff+16])
	copy(h.source[:], headerBytes[headerSourceOff:headerSourceOff+32])

	return nil
}
