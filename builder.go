// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tfdata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/encrypted-traffic/tfdata/compress"
	"github.com/encrypted-traffic/tfdata/internal/datafile"
	"github.com/encrypted-traffic/tfdata/internal/unsafestring"
)

// TableBuilder writes the records of one capture into a new capture table.
// Records are written to a temporary file next to the destination, which is
// renamed into place by Finalize.
type TableBuilder struct {
	resultPath string
	dataFile   *os.File
	w          *datafile.Writer
}

type builderOptions struct {
	codec  compress.Type
	source [32]byte
}

// BuilderOption configures a TableBuilder.
type BuilderOption func(*builderOptions)

// WithCodec compresses payloads with the given codec.
func WithCodec(codec compress.Type) BuilderOption {
	return func(o *builderOptions) {
		o.codec = codec
	}
}

// WithSource records the digest of the capture file the table was built from.
func WithSource(digest [32]byte) BuilderOption {
	return func(o *builderOptions) {
		o.source = digest
	}
}

func NewTableBuilder(tablePath string, opts ...BuilderOption) (*TableBuilder, error) {
	var o builderOptions
	for _, opt := range opts {
		opt(&o)
	}

	// we want to write to a new file and do an atomic rename when we're done on disk
	tablePath, err := filepath.Abs(tablePath)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}
	dir := filepath.Dir(tablePath)
	dataFile, err := os.CreateTemp(dir, "tfdata-builder.*.tmp")
	if err != nil {
		return nil, fmt.Errorf("CreateTemp failed (may need permissions for dir containing table): %w", err)
	}
	w, err := datafile.NewWriter(dataFile, datafile.Options{Codec: o.codec, Source: o.source})
	if err != nil {
		_ = dataFile.Close()
		_ = os.Remove(dataFile.Name())
		return nil, fmt.Errorf("datafile.NewWriter: %w", err)
	}
	return &TableBuilder{
		resultPath: tablePath,
		dataFile:   dataFile,
		w:          w,
	}, nil
}

// Put appends rec to the table.
func (b *TableBuilder) Put(rec CaptureRecord) error {
	if b.dataFile == nil {
		return errors.New("builder already finalized or discarded")
	}
	// the writer rejects empty and over-long labels
	if _, err := b.w.Write(unsafestring.ToBytes(rec.Label), rec.Bytes); err != nil {
		return err
	}
	return nil
}

// Len returns the number of records put so far.
func (b *TableBuilder) Len() int {
	return int(b.w.Count())
}

// Finalize flushes the table, moves it into place read-only and opens it.
func (b *TableBuilder) Finalize() (*Table, error) {
	if b.dataFile == nil {
		return nil, errors.New("builder already finalized or discarded")
	}
	f := b.dataFile
	b.dataFile = nil

	if err := b.w.Finish(); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("datafile.Finish: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("f.Sync: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("f.Close: %w", err)
	}
	// make the file read-only
	if err := os.Chmod(f.Name(), 0444); err != nil {
		return nil, fmt.Errorf("os.Chmod(0444): %w", err)
	}
	if err := os.Rename(f.Name(), b.resultPath); err != nil {
		return nil, fmt.Errorf("os.Rename: %w", err)
	}

	return OpenTable(b.resultPath)
}

// Discard abandons the table and removes the temporary file.
func (b *TableBuilder) Discard() error {
	if b.dataFile == nil {
		return nil
	}
	f := b.dataFile
	b.dataFile = nil
	_ = b.w.Finish()
	_ = f.Close()
	return os.Remove(f.Name())
}
