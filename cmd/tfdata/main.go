// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command tfdata assembles train, validation and test partitions from
// directories of capture tables and reports what it built.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/encrypted-traffic/tfdata"
	"github.com/encrypted-traffic/tfdata/internal/logging"
)

func splitDirs(s string) []string {
	var dirs []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// seedFlag holds an optional int64 seed; left unset, shuffles are random.
type seedFlag struct {
	seed *int64
}

func (f *seedFlag) String() string {
	if f.seed == nil {
		return ""
	}
	return strconv.FormatInt(*f.seed, 10)
}

func (f *seedFlag) Set(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	f.seed = &v
	return nil
}

func main() {
	defaults := tfdata.DefaultConfig()

	trainDirs := flag.String("train-dirs", "", "comma-separated directories of training capture tables")
	testDirs := flag.String("test-dirs", "", "comma-separated directories of test capture tables (default: same as train)")
	merge := flag.Bool("merge", defaults.MergeData, "merge the test pool into the train pool before carving")
	oneHot := flag.Bool("one-hot", defaults.OneHot, "one-hot encode labels")
	dtype := flag.String("dtype", defaults.DType.String(), "payload dtype: uint8 or float32")
	validationSize := flag.Float64("validation-size", defaults.ValidationSize, "fraction of the pool held out for validation")
	testSize := flag.Float64("test-size", defaults.TestSize, "fraction of the merged pool held out for test")
	var seed seedFlag
	flag.Var(&seed, "seed", "shuffle seed, any int64 (default: random)")
	balance := flag.Bool("balance", defaults.BalanceClasses, "undersample classes to the smallest class")
	payloadLength := flag.Int("payload-length", defaults.PayloadLength, "bytes kept per packet")
	batchSize := flag.Int("batch-size", 64, "training batch size for the smoke run")
	batches := flag.Int("batches", 0, "training batches to draw after assembly")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tfdata: %s\n", err)
		os.Exit(2)
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = *logFormat
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tfdata: %s\n", err)
		os.Exit(2)
	}
	logger = logger.With("run", uuid.NewString())

	cfg := defaults
	cfg.TrainDirs = splitDirs(*trainDirs)
	cfg.TestDirs = splitDirs(*testDirs)
	cfg.MergeData = *merge
	cfg.OneHot = *oneHot
	cfg.ValidationSize = *validationSize
	cfg.TestSize = *testSize
	cfg.BalanceClasses = *balance
	cfg.PayloadLength = *payloadLength
	cfg.Logger = logger
	cfg.Seed = seed.seed
	if cfg.DType, err = tfdata.ParseDType(*dtype); err != nil {
		logger.Error("bad flag", "err", err)
		os.Exit(2)
	}

	if err := run(cfg, *batchSize, *batches, logger); err != nil {
		logger.Error("tfdata failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *tfdata.Config, batchSize, batches int, logger *slog.Logger) error {
	ds, err := tfdata.ReadDataSets(cfg)
	if err != nil {
		return err
	}

	for code, class := range ds.Encoder.Classes() {
		logger.Info("class", "code", code, "label", class)
	}
	logger.Info("training set size", "examples", ds.Train.NumExamples())
	logger.Info("validation set size", "examples", ds.Validation.NumExamples())
	logger.Info("test set size", "examples", ds.Test.NumExamples())

	for i := 0; i < batches; i++ {
		b, err := ds.Train.NextBatch(batchSize, true)
		if err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
		logger.Debug("batch", "n", i, "rows", b.Rows, "epochs", ds.Train.EpochsCompleted(), "offset", ds.Train.Offset())
	}
	if batches > 0 {
		logger.Info("drew training batches", "batches", batches, "epochs", ds.Train.EpochsCompleted())
	}
	return nil
}
