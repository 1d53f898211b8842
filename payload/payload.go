// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package payload turns variable-length packet bytes into fixed-width rows.
//
// Normalization only fixes the shape: a sequence shorter than the target
// length is zero-padded on the right, a longer one is truncated to its first
// length bytes, and the bytes themselves are never reordered or rewritten.
package payload

import (
	"fmt"

	"github.com/encrypted-traffic/tfdata/errs"
	"github.com/encrypted-traffic/tfdata/internal/zero"
)

// Matrix is a row-major Rows x Cols byte matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []byte
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) (*Matrix, error) {
	if cols <= 0 {
		return nil, fmt.Errorf("payload length %d must be positive: %w", cols, errs.ErrConfig)
	}
	if rows < 0 {
		return nil, fmt.Errorf("row count %d is negative: %w", rows, errs.ErrConfig)
	}
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]byte, rows*cols),
	}, nil
}

// Row returns row i as a view into m.Data.
func (m *Matrix) Row(i int) []byte {
	return m.Data[i*m.Cols : (i+1)*m.Cols : (i+1)*m.Cols]
}

// SetRow copies at most m.Cols bytes of seq into row i and zeroes the rest of
// the row. It returns the number of bytes copied from seq.
func (m *Matrix) SetRow(i int, seq []byte) int {
	row := m.Row(i)
	n := copy(row, seq)
	zero.Bytes(row[n:])
	return n
}

// Slice returns rows [start, end) as a matrix sharing m's storage.
func (m *Matrix) Slice(start, end int) *Matrix {
	return &Matrix{
		Rows: end - start,
		Cols: m.Cols,
		Data: m.Data[start*m.Cols : end*m.Cols : end*m.Cols],
	}
}

// Normalize pads or truncates every sequence to length bytes. The input
// slices are not modified.
func Normalize(seqs [][]byte, length int) (*Matrix, error) {
	m, err := NewMatrix(len(seqs), length)
	if err != nil {
		return nil, err
	}
	for i, seq := range seqs {
		m.SetRow(i, seq)
	}
	return m, nil
}

// Rescale maps every byte of m from [0, 255] into [0.0, 1.0].
func Rescale(m *Matrix) []float32 {
	out := make([]float32, len(m.Data))
	for i, b := range m.Data {
		out[i] = float32(b) * (1.0 / 255.0)
	}
	return out
}
