// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tfdata

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encrypted-traffic/tfdata/errs"
	"github.com/encrypted-traffic/tfdata/label"
	"github.com/encrypted-traffic/tfdata/payload"
)

// rowDataSet returns a DataSet of n rows where row i's payload starts with
// byte i and its label code is i, so rows can be identified in batches.
func rowDataSet(t *testing.T, n int, opts ...DataSetOption) *DataSet {
	t.Helper()

	seqs := make([][]byte, n)
	codes := make([]int, n)
	for i := range seqs {
		seqs[i] = []byte{byte(i), byte(i)}
		codes[i] = i
	}
	m, err := payload.Normalize(seqs, 3)
	require.NoError(t, err)

	d, err := NewDataSet(m, DenseLabels(codes), append([]DataSetOption{WithDType(Uint8)}, opts...)...)
	require.NoError(t, err)
	return d
}

// batchRows returns the row ids in b, read from the payloads.
func batchRows(t *testing.T, b *Batch) []int {
	t.Helper()

	rows := make([]int, b.Rows)
	for i := range rows {
		rows[i] = int(b.Uint8[i*b.Cols])
		// labels travel with their payloads
		require.Equal(t, rows[i], b.Labels.Code(i))
	}
	return rows
}

func TestNextBatch_WrapsAtEpochBoundary(t *testing.T) {
	d := rowDataSet(t, 5)

	b, err := d.NextBatch(3, false)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, batchRows(t, b))
	require.Equal(t, 3, d.Offset())
	require.Equal(t, 0, d.EpochsCompleted())

	b, err = d.NextBatch(3, false)
	require.NoError(t, err)
	require.Equal(t, []int{3, 4, 0}, batchRows(t, b))
	require.Equal(t, 1, d.Offset())
	require.Equal(t, 1, d.EpochsCompleted())
}

func TestNextBatch_ExactFitDefersEpochIncrement(t *testing.T) {
	d := rowDataSet(t, 4)

	b, err := d.NextBatch(4, false)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, batchRows(t, b))
	require.Equal(t, 0, d.EpochsCompleted())
	require.Equal(t, 4, d.Offset())

	b, err = d.NextBatch(2, false)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, batchRows(t, b))
	require.Equal(t, 1, d.EpochsCompleted())
}

func TestNextBatch_EveryRowOncePerEpoch(t *testing.T) {
	for _, shuffle := range []bool{false, true} {
		const n = 7
		const batchSize = 3
		d := rowDataSet(t, n, WithSeed(3))

		var served []int
		for i := 0; i < (n+batchSize-1)/batchSize; i++ {
			b, err := d.NextBatch(batchSize, shuffle)
			require.NoError(t, err)
			served = append(served, batchRows(t, b)...)
		}
		require.Equal(t, 1, d.EpochsCompleted())

		firstEpoch := append([]int(nil), served[:n]...)
		sort.Ints(firstEpoch)
		require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, firstEpoch)
		if !shuffle {
			require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 0, 1}, served)
		}
	}
}

func TestNextBatch_ShufflesEachEpoch(t *testing.T) {
	const n = 50
	d := rowDataSet(t, n, WithSeed(11))

	var epochs [][]int
	for e := 0; e < 3; e++ {
		b, err := d.NextBatch(n, true)
		require.NoError(t, err)
		epochs = append(epochs, batchRows(t, b))
	}
	// exact fits defer the boundary to the following call
	require.Equal(t, 2, d.EpochsCompleted())

	for _, rows := range epochs {
		sorted := append([]int(nil), rows...)
		sort.Ints(sorted)
		for i, r := range sorted {
			require.Equal(t, i, r)
		}
	}
	require.NotEqual(t, epochs[0], epochs[1])
}

func TestNextBatch_LargerThanPartition(t *testing.T) {
	d := rowDataSet(t, 3)

	b, err := d.NextBatch(7, false)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, batchRows(t, b))
	require.Equal(t, 2, d.EpochsCompleted())
	require.Equal(t, 1, d.Offset())
}

func TestNextBatch_Errors(t *testing.T) {
	d := rowDataSet(t, 3)
	for _, size := range []int{0, -2} {
		_, err := d.NextBatch(size, true)
		require.ErrorIs(t, err, errs.ErrConfig)
	}

	empty := rowDataSet(t, 0)
	_, err := empty.NextBatch(1, true)
	require.ErrorIs(t, err, errs.ErrInsufficientData)
}

func TestNewDataSet_Errors(t *testing.T) {
	m, err := payload.Normalize([][]byte{{1}, {2}}, 2)
	require.NoError(t, err)

	_, err = NewDataSet(m, DenseLabels([]int{0}))
	require.ErrorIs(t, err, errs.ErrShapeMismatch)

	_, err = NewDataSet(m, DenseLabels([]int{0, 1}), WithDType(DType(9)))
	require.ErrorIs(t, err, errs.ErrConfig)

	_, err = NewDataSet(nil, DenseLabels(nil))
	require.ErrorIs(t, err, errs.ErrConfig)
}

func TestNewDataSet_Float32Rescale(t *testing.T) {
	m, err := payload.Normalize([][]byte{{0, 255}, {51}}, 2)
	require.NoError(t, err)

	d, err := NewDataSet(m, DenseLabels([]int{0, 1}))
	require.NoError(t, err)
	require.Equal(t, Float32, d.DType())
	require.Equal(t, 2, d.PayloadLength())

	all := d.All()
	require.Nil(t, all.Uint8)
	require.Equal(t, []float32{0, 1, 0.2, 0}, roundAll(all.Float32))

	b, err := d.NextBatch(3, false)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 1, 0.2, 0, 0, 1}, roundAll(b.Float32))
}

func roundAll(vs []float32) []float32 {
	out := make([]float32, len(vs))
	for i, v := range vs {
		out[i] = float32(int(v*1000+0.5)) / 1000
	}
	return out
}

func TestNextBatch_CopyOnShuffle(t *testing.T) {
	seqs := [][]byte{{1}, {2}, {3}, {4}}
	m, err := payload.Normalize(seqs, 1)
	require.NoError(t, err)
	codes := []int{1, 2, 3, 4}

	d, err := NewDataSet(m, DenseLabels(codes), WithDType(Uint8), WithSeed(5))
	require.NoError(t, err)

	first, err := d.NextBatch(3, true)
	require.NoError(t, err)
	firstPayloads := append([]uint8(nil), first.Uint8...)
	firstCodes := append([]int(nil), first.Labels.Codes...)

	// crossing the boundary reshuffles
	_, err = d.NextBatch(3, true)
	require.NoError(t, err)

	require.Equal(t, firstPayloads, first.Uint8)
	require.Equal(t, firstCodes, first.Labels.Codes)
	require.Equal(t, []byte{1, 2, 3, 4}, m.Data)
	require.Equal(t, []int{1, 2, 3, 4}, codes)
}

func TestNextBatch_SeededIsDeterministic(t *testing.T) {
	a := rowDataSet(t, 20, WithSeed(42))
	b := rowDataSet(t, 20, WithSeed(42))
	for i := 0; i < 10; i++ {
		ba, err := a.NextBatch(6, true)
		require.NoError(t, err)
		bb, err := b.NextBatch(6, true)
		require.NoError(t, err)
		require.Equal(t, batchRows(t, ba), batchRows(t, bb))
	}
}

func TestNextBatch_OneHotLabels(t *testing.T) {
	m, err := payload.Normalize([][]byte{{0}, {1}, {2}}, 1)
	require.NoError(t, err)
	oh, err := label.ToOneHot([]int{0, 1, 2}, 3)
	require.NoError(t, err)

	d, err := NewDataSet(m, OneHotLabels(oh), WithDType(Uint8))
	require.NoError(t, err)

	_, err = d.NextBatch(2, false)
	require.NoError(t, err)
	b, err := d.NextBatch(2, false)
	require.NoError(t, err)

	require.Equal(t, 2, b.Labels.Len())
	require.Equal(t, 2, b.Labels.OneHot.Rows)
	require.Equal(t, []uint8{0, 0, 1, 1, 0, 0}, b.Labels.OneHot.Data)
	require.Equal(t, []uint8{2, 0}, b.Uint8)
}
