// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tfdata

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/encrypted-traffic/tfdata/errs"
	"github.com/encrypted-traffic/tfdata/internal/bitset"
	"github.com/encrypted-traffic/tfdata/label"
	"github.com/encrypted-traffic/tfdata/payload"
)

// Partition names. They also name each DataSet's random stream.
const (
	TrainPartition      = "train"
	ValidationPartition = "validation"
	TestPartition       = "test"
)

// DataSets is the result of one pipeline run.
type DataSets struct {
	Train      *DataSet
	Validation *DataSet
	Test       *DataSet

	// Encoder is the run's label encoder; use it to decode predicted codes.
	Encoder    *label.Encoder
	NumClasses int
}

// ReadDataSets loads the capture tables named by cfg and splits them into
// train, validation and test partitions.
//
// The train pool is balanced (if configured), shuffled, normalized and its
// labels encoded by an encoder fit exactly once. With MergeData the test
// partition is carved first from the head of the pool, then validation from
// what follows, and train gets the remainder. Without it only validation is
// carved and the separate test pool, if any, is encoded with the same
// encoder. Any error aborts the run; no partial result is returned.
func ReadDataSets(cfg *Config) (*DataSets, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.logger().With("component", "assembler")
	loader := cfg.loader()

	trainPool, err := loadPool(cfg.TrainDirs, loader, log)
	if err != nil {
		return nil, err
	}
	var testPool []CaptureRecord
	separateTest := cfg.separateTestPool()
	if separateTest {
		if testPool, err = loadPool(cfg.TestDirs, loader, log); err != nil {
			return nil, err
		}
	}

	if cfg.MergeData {
		merged := make([]CaptureRecord, 0, len(testPool)+len(trainPool))
		merged = append(merged, testPool...)
		trainPool = append(merged, trainPool...)
		testPool = nil
	}
	if len(trainPool) == 0 {
		return nil, fmt.Errorf("train pool has no records: %w", errs.ErrInsufficientData)
	}

	counts := countLabels(trainPool)
	numClasses := len(counts)
	log.Info("counted classes", "classes", numClasses, "records", len(trainPool))

	if cfg.BalanceClasses {
		if trainPool, err = balanceClasses(trainPool, counts, newRand(cfg.Seed, "balance")); err != nil {
			return nil, err
		}
		log.Info("balanced classes", "records", len(trainPool), "per_class", len(trainPool)/numClasses)
	}

	shufflePool(trainPool, newRand(cfg.Seed, "pool"))

	enc := label.NewEncoder()
	trainX, trainY, err := encodePool(trainPool, enc, numClasses, cfg, true)
	if err != nil {
		return nil, err
	}

	var testX *payload.Matrix
	var testY Labels
	if !cfg.MergeData && separateTest {
		shufflePool(testPool, newRand(cfg.Seed, "test-pool"))
		if testX, testY, err = encodePool(testPool, enc, numClasses, cfg, false); err != nil {
			return nil, fmt.Errorf("test pool: %w", err)
		}
	}

	total := trainX.Rows
	validationAmount := int(float64(total) * cfg.ValidationSize)
	var valX, partTrainX *payload.Matrix
	var valY, partTrainY Labels
	if cfg.MergeData {
		testAmount := int(float64(total) * cfg.TestSize)
		testEnd := min(testAmount, total)
		valEnd := min(testAmount+validationAmount, total)
		testX, testY = trainX.Slice(0, testEnd), trainY.slice(0, testEnd)
		valX, valY = trainX.Slice(testEnd, valEnd), trainY.slice(testEnd, valEnd)
		partTrainX, partTrainY = trainX.Slice(valEnd, total), trainY.slice(valEnd, total)
	} else {
		valX, valY = trainX.Slice(0, validationAmount), trainY.slice(0, validationAmount)
		partTrainX, partTrainY = trainX.Slice(validationAmount, total), trainY.slice(validationAmount, total)
		if testX == nil {
			// no separate test pool and nothing carved: the test partition is empty
			testX = trainX.Slice(0, 0)
			testY = trainY.slice(0, 0)
		}
	}

	ds := &DataSets{
		Encoder:    enc,
		NumClasses: numClasses,
	}
	if ds.Train, err = newPartition(TrainPartition, partTrainX, partTrainY, cfg); err != nil {
		return nil, err
	}
	if ds.Validation, err = newPartition(ValidationPartition, valX, valY, cfg); err != nil {
		return nil, err
	}
	if ds.Test, err = newPartition(TestPartition, testX, testY, cfg); err != nil {
		return nil, err
	}

	log.Info("assembled partitions",
		"train", ds.Train.NumExamples(),
		"validation", ds.Validation.NumExamples(),
		"test", ds.Test.NumExamples(),
		"classes", enc.Classes(),
	)
	if log.Enabled(context.Background(), slog.LevelDebug) {
		for _, d := range []*DataSet{ds.Train, ds.Validation, ds.Test} {
			logPartition(log, d, enc)
		}
	}
	if ds.Train.NumExamples() == 0 {
		log.Warn("training partition is empty", "validation_size", cfg.ValidationSize, "test_size", cfg.TestSize)
	}
	return ds, nil
}

func newPartition(name string, x *payload.Matrix, y Labels, cfg *Config) (*DataSet, error) {
	return NewDataSet(x, y,
		WithName(name),
		WithDType(cfg.DType),
		withRand(newRand(cfg.Seed, name)),
	)
}

// countLabels returns the number of records per label.
func countLabels(pool []CaptureRecord) map[string]int {
	counts := make(map[string]int)
	for _, rec := range pool {
		counts[rec.Label]++
	}
	return counts
}

// balanceClasses undersamples every class, uniformly and without replacement,
// to the size of the smallest class. Surviving records keep their pool order.
func balanceClasses(pool []CaptureRecord, counts map[string]int, rng *rand.Rand) ([]CaptureRecord, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("no classes to balance: %w", errs.ErrInsufficientData)
	}

	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	amount := -1
	for _, class := range classes {
		if amount < 0 || counts[class] < amount {
			amount = counts[class]
		}
	}
	if amount < 1 {
		return nil, fmt.Errorf("smallest class has %d examples: %w", amount, errs.ErrInsufficientData)
	}

	byClass := make(map[string][]int, len(classes))
	for i, rec := range pool {
		byClass[rec.Label] = append(byClass[rec.Label], i)
	}

	keep := bitset.New(len(pool))
	for _, class := range classes {
		idx := byClass[class]
		for _, j := range rng.Perm(len(idx))[:amount] {
			keep.Set(idx[j])
		}
	}

	balanced := make([]CaptureRecord, 0, keep.Count())
	keep.Each(func(off int) {
		balanced = append(balanced, pool[off])
	})
	return balanced, nil
}

func shufflePool(pool []CaptureRecord, rng *rand.Rand) {
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
}

// encodePool normalizes payloads and encodes labels. The encoder is fit on
// this pool when fit is set and reused as-is otherwise.
func encodePool(pool []CaptureRecord, enc *label.Encoder, numClasses int, cfg *Config, fit bool) (*payload.Matrix, Labels, error) {
	seqs := make([][]byte, len(pool))
	names := make([]string, len(pool))
	for i, rec := range pool {
		seqs[i] = rec.Bytes
		names[i] = rec.Label
	}

	x, err := payload.Normalize(seqs, cfg.PayloadLength)
	if err != nil {
		return nil, Labels{}, err
	}

	var codes []int
	if fit {
		codes, err = enc.FitTransform(names)
	} else {
		codes, err = enc.Transform(names)
	}
	if err != nil {
		return nil, Labels{}, err
	}

	if !cfg.OneHot {
		return x, DenseLabels(codes), nil
	}
	oh, err := label.ToOneHot(codes, numClasses)
	if err != nil {
		return nil, Labels{}, err
	}
	return x, OneHotLabels(oh), nil
}

// logPartition logs how many examples of each class d holds.
func logPartition(log *slog.Logger, d *DataSet, enc *label.Encoder) {
	perClass := make(map[string]int)
	all := d.All()
	for i := 0; i < all.Rows; i++ {
		name, err := enc.Decode(all.Labels.Code(i))
		if err != nil {
			continue
		}
		perClass[name]++
	}
	log.Debug("partition classes", "partition", d.Name(), "counts", perClass)
}
