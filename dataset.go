// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tfdata

import (
	"fmt"
	"math/rand/v2"

	"github.com/encrypted-traffic/tfdata/errs"
	"github.com/encrypted-traffic/tfdata/label"
	"github.com/encrypted-traffic/tfdata/payload"
)

// Labels is a partition's label column: dense codes, or one-hot rows when
// OneHot is set.
type Labels struct {
	Codes  []int
	OneHot *label.OneHot
}

// DenseLabels wraps dense class codes.
func DenseLabels(codes []int) Labels {
	return Labels{Codes: codes}
}

// OneHotLabels wraps one-hot rows.
func OneHotLabels(oh *label.OneHot) Labels {
	return Labels{OneHot: oh}
}

// Len returns the number of label rows.
func (l Labels) Len() int {
	if l.OneHot != nil {
		return l.OneHot.Rows
	}
	return len(l.Codes)
}

// Code returns the class code of row i.
func (l Labels) Code(i int) int {
	if l.OneHot != nil {
		return l.OneHot.Code(i)
	}
	return l.Codes[i]
}

func (l Labels) slice(start, end int) Labels {
	if l.OneHot != nil {
		cols := l.OneHot.Cols
		return Labels{OneHot: &label.OneHot{
			Rows: end - start,
			Cols: cols,
			Data: l.OneHot.Data[start*cols : end*cols : end*cols],
		}}
	}
	return Labels{Codes: l.Codes[start:end:end]}
}

func (l Labels) clone() Labels {
	if l.OneHot != nil {
		return Labels{OneHot: &label.OneHot{
			Rows: l.OneHot.Rows,
			Cols: l.OneHot.Cols,
			Data: append([]uint8(nil), l.OneHot.Data...),
		}}
	}
	return Labels{Codes: append([]int(nil), l.Codes...)}
}

func (l Labels) permute(perm []int) Labels {
	if l.OneHot != nil {
		cols := l.OneHot.Cols
		data := make([]uint8, len(l.OneHot.Data))
		for i, p := range perm {
			copy(data[i*cols:(i+1)*cols], l.OneHot.Data[p*cols:(p+1)*cols])
		}
		return Labels{OneHot: &label.OneHot{Rows: l.OneHot.Rows, Cols: cols, Data: data}}
	}
	codes := make([]int, len(l.Codes))
	for i, p := range perm {
		codes[i] = l.Codes[p]
	}
	return Labels{Codes: codes}
}

// appendRows appends rows [start, end) of src to l.
func (l *Labels) appendRows(src Labels, start, end int) {
	if src.OneHot != nil {
		cols := src.OneHot.Cols
		if l.OneHot == nil {
			l.OneHot = &label.OneHot{Cols: cols}
		}
		l.OneHot.Data = append(l.OneHot.Data, src.OneHot.Data[start*cols:end*cols]...)
		l.OneHot.Rows += end - start
		return
	}
	l.Codes = append(l.Codes, src.Codes[start:end]...)
}

// Batch is one mini-batch. Exactly one of Uint8 and Float32 is populated,
// according to the DataSet's DType, holding Rows x Cols values row-major.
//
// A batch that fits inside the current epoch is a view into the DataSet's
// storage. The DataSet never writes to storage it has handed out (shuffles
// allocate), but callers must not write to a batch either.
type Batch struct {
	Rows    int
	Cols    int
	Uint8   []uint8
	Float32 []float32
	Labels  Labels
}

// DataSet serves shuffled mini-batches from one partition and counts the
// epochs it has completed.
//
// A DataSet is not safe for concurrent use: NextBatch mutates its cursor.
// Distinct DataSets share no mutable state and can be iterated concurrently.
type DataSet struct {
	name  string
	dtype DType
	rows  int
	cols  int

	u8     []uint8
	f32    []float32
	labels Labels

	epochsCompleted int
	offset          int
	rng             *rand.Rand
}

type dataSetOptions struct {
	name  string
	dtype DType
	seed  *int64
	rng   *rand.Rand
}

// DataSetOption configures NewDataSet.
type DataSetOption func(*dataSetOptions)

// WithDType selects payload storage. The default is Float32.
func WithDType(dtype DType) DataSetOption {
	return func(o *dataSetOptions) {
		o.dtype = dtype
	}
}

// WithName names the partition in errors and selects its random stream.
func WithName(name string) DataSetOption {
	return func(o *dataSetOptions) {
		o.name = name
	}
}

// WithSeed makes the DataSet's shuffles deterministic.
func WithSeed(seed int64) DataSetOption {
	return func(o *dataSetOptions) {
		o.seed = &seed
	}
}

// withRand injects an already derived random stream.
func withRand(rng *rand.Rand) DataSetOption {
	return func(o *dataSetOptions) {
		o.rng = rng
	}
}

// NewDataSet copies payloads and labels into a new DataSet. With Float32 the
// payloads are rescaled into [0, 1] once, here.
func NewDataSet(payloads *payload.Matrix, labels Labels, opts ...DataSetOption) (*DataSet, error) {
	o := dataSetOptions{
		name:  "dataset",
		dtype: Float32,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if !o.dtype.valid() {
		return nil, fmt.Errorf("invalid payload dtype %s, expected uint8 or float32: %w", o.dtype, errs.ErrConfig)
	}
	if payloads == nil {
		return nil, fmt.Errorf("%s: nil payloads: %w", o.name, errs.ErrConfig)
	}
	if payloads.Rows != labels.Len() {
		return nil, fmt.Errorf("%s: payloads have %d rows, labels have %d: %w", o.name, payloads.Rows, labels.Len(), errs.ErrShapeMismatch)
	}

	rng := o.rng
	if rng == nil {
		rng = newRand(o.seed, o.name)
	}

	d := &DataSet{
		name:   o.name,
		dtype:  o.dtype,
		rows:   payloads.Rows,
		cols:   payloads.Cols,
		labels: labels.clone(),
		rng:    rng,
	}
	switch o.dtype {
	case Uint8:
		d.u8 = append([]uint8(nil), payloads.Data...)
	case Float32:
		d.f32 = payload.Rescale(payloads)
	}
	return d, nil
}

func (d *DataSet) Name() string {
	return d.name
}

func (d *DataSet) NumExamples() int {
	return d.rows
}

// PayloadLength returns the width of every payload row.
func (d *DataSet) PayloadLength() int {
	return d.cols
}

func (d *DataSet) DType() DType {
	return d.dtype
}

func (d *DataSet) EpochsCompleted() int {
	return d.epochsCompleted
}

// Offset returns how many rows of the current epoch have been served.
func (d *DataSet) Offset() int {
	return d.offset
}

// All returns the whole partition, in its current order, as one batch.
func (d *DataSet) All() *Batch {
	return d.slice(0, d.rows)
}

// NextBatch returns the next batchSize examples.
//
// The first call on a fresh DataSet shuffles the partition when shuffle is
// set. When fewer than batchSize rows remain in the epoch, the batch is the
// rest of the old epoch followed by the head of the next one, reshuffled
// first when shuffle is set; EpochsCompleted grows by one per boundary
// crossed. A batchSize larger than the partition wraps as often as needed.
func (d *DataSet) NextBatch(batchSize int, shuffle bool) (*Batch, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size %d must be positive: %w", batchSize, errs.ErrConfig)
	}
	if d.rows == 0 {
		return nil, fmt.Errorf("%s partition is empty: %w", d.name, errs.ErrInsufficientData)
	}

	start := d.offset
	// shuffle for the first epoch
	if d.epochsCompleted == 0 && start == 0 && shuffle {
		d.shuffle()
	}

	if start+batchSize <= d.rows {
		d.offset += batchSize
		return d.slice(start, d.offset), nil
	}

	b := d.newBatch(batchSize)
	need := batchSize
	for start+need > d.rows {
		// finished epoch: take the rest of it
		b.appendRows(d, start, d.rows)
		need -= d.rows - start
		d.epochsCompleted++
		if shuffle {
			d.shuffle()
		}
		start = 0
	}
	b.appendRows(d, 0, need)
	d.offset = need

	return b, nil
}

// shuffle reorders the partition into freshly allocated arrays, so batches
// already handed out keep their contents.
func (d *DataSet) shuffle() {
	perm := d.rng.Perm(d.rows)
	cols := d.cols
	switch d.dtype {
	case Uint8:
		u8 := make([]uint8, len(d.u8))
		for i, p := range perm {
			copy(u8[i*cols:(i+1)*cols], d.u8[p*cols:(p+1)*cols])
		}
		d.u8 = u8
	case Float32:
		f32 := make([]float32, len(d.f32))
		for i, p := range perm {
			copy(f32[i*cols:(i+1)*cols], d.f32[p*cols:(p+1)*cols])
		}
		d.f32 = f32
	}
	d.labels = d.labels.permute(perm)
}

func (d *DataSet) slice(start, end int) *Batch {
	b := &Batch{
		Rows:   end - start,
		Cols:   d.cols,
		Labels: d.labels.slice(start, end),
	}
	switch d.dtype {
	case Uint8:
		b.Uint8 = d.u8[start*d.cols : end*d.cols : end*d.cols]
	case Float32:
		b.Float32 = d.f32[start*d.cols : end*d.cols : end*d.cols]
	}
	return b
}

func (d *DataSet) newBatch(rows int) *Batch {
	b := &Batch{Cols: d.cols}
	switch d.dtype {
	case Uint8:
		b.Uint8 = make([]uint8, 0, rows*d.cols)
	case Float32:
		b.Float32 = make([]float32, 0, rows*d.cols)
	}
	if d.labels.OneHot != nil {
		b.Labels.OneHot = &label.OneHot{
			Cols: d.labels.OneHot.Cols,
			Data: make([]uint8, 0, rows*d.labels.OneHot.Cols),
		}
	} else {
		b.Labels.Codes = make([]int, 0, rows)
	}
	return b
}

func (b *Batch) appendRows(d *DataSet, start, end int) {
	switch d.dtype {
	case Uint8:
		b.Uint8 = append(b.Uint8, d.u8[start*d.cols:end*d.cols]...)
	case Float32:
		b.Float32 = append(b.Float32, d.f32[start*d.cols:end*d.cols]...)
	}
	b.Labels.appendRows(d.labels, start, end)
	b.Rows += end - start
}
