// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tfdata

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/encrypted-traffic/tfdata/compress"
	"github.com/encrypted-traffic/tfdata/internal/datafile"
)

// CaptureRecord is one row of a capture table: the bytes of a single packet
// and the traffic class it was captured under.
type CaptureRecord struct {
	Bytes []byte
	Label string
}

// Table is an open, read-only capture table.
type Table struct {
	path string
	r    *datafile.Reader
}

func OpenTable(path string) (*Table, error) {
	r, err := datafile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("datafile.Open: %w", err)
	}
	return &Table{
		path: path,
		r:    r,
	}, nil
}

func (t *Table) Path() string {
	return t.path
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	return int(t.r.Len())
}

func (t *Table) ID() uuid.UUID {
	return t.r.ID()
}

// Source returns the digest of the capture the table was built from, or the
// zero digest for synthetic tables.
func (t *Table) Source() [32]byte {
	return t.r.Source()
}

func (t *Table) Codec() compress.Type {
	return t.r.Codec()
}

// Records reads every record. The result does not alias the table's memory
// and stays valid after Close.
func (t *Table) Records() ([]CaptureRecord, error) {
	records := make([]CaptureRecord, 0, t.Len())
	// labels repeat heavily within a capture; share one string per label
	labels := make(map[string]string)

	it := t.r.Iter()
	for it.Next() {
		key := it.Key()
		l, ok := labels[string(key)]
		if !ok {
			l = string(key)
			labels[l] = l
		}
		records = append(records, CaptureRecord{
			Bytes: append([]byte(nil), it.Value()...),
			Label: l,
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", t.path, err)
	}
	return records, nil
}

func (t *Table) Close() error {
	return t.r.Close()
}
