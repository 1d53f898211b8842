// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tfdata

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/encrypted-traffic/tfdata/errs"
)

// DType selects how a DataSet stores payload values.
type DType int

const (
	// Uint8 keeps payload bytes as-is, in [0, 255].
	Uint8 DType = iota + 1
	// Float32 rescales payload bytes into [0.0, 1.0].
	Float32
)

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uint8":
		return Uint8, nil
	case "float32":
		return Float32, nil
	default:
		return 0, fmt.Errorf("invalid payload dtype %q, expected uint8 or float32: %w", s, errs.ErrConfig)
	}
}

func (d DType) valid() bool {
	return d == Uint8 || d == Float32
}

const (
	DefaultValidationSize = 0.2
	DefaultTestSize       = 0.2
	DefaultPayloadLength  = 810
)

// Config controls how ReadDataSets assembles the train, validation and test
// partitions.
type Config struct {
	// TrainDirs are scanned for capture tables. At least one is required.
	TrainDirs []string
	// TestDirs hold a separately captured test pool. Empty, or equal to
	// TrainDirs, means there is no separate test pool.
	TestDirs []string

	// MergeData folds the test pool into the train pool and carves the test
	// partition out of the merged, shuffled pool.
	MergeData bool
	// OneHot encodes labels as one-hot rows instead of dense codes.
	OneHot bool
	DType  DType

	// ValidationSize and TestSize are fractions in [0, 1] of the pool.
	ValidationSize float64
	TestSize       float64

	// Seed makes shuffling and balancing deterministic. Nil means random.
	Seed *int64

	// BalanceClasses undersamples every class to the size of the smallest.
	BalanceClasses bool
	// PayloadLength is the fixed width every payload is padded or truncated to.
	PayloadLength int

	Loader TableLoader
	Logger *slog.Logger
}

// DefaultConfig returns the settings the classifier is usually trained with.
func DefaultConfig() *Config {
	return &Config{
		MergeData:      true,
		OneHot:         false,
		DType:          Float32,
		ValidationSize: DefaultValidationSize,
		TestSize:       DefaultTestSize,
		BalanceClasses: false,
		PayloadLength:  DefaultPayloadLength,
		Loader:         FileLoader{},
	}
}

// Seed returns a pointer to seed, for Config.Seed.
func Seed(seed int64) *int64 {
	return &seed
}

func (c *Config) Validate() error {
	if len(c.TrainDirs) == 0 {
		return fmt.Errorf("no train dirs: %w", errs.ErrConfig)
	}
	if c.PayloadLength <= 0 {
		return fmt.Errorf("payload length %d must be positive: %w", c.PayloadLength, errs.ErrConfig)
	}
	if !c.DType.valid() {
		return fmt.Errorf("invalid payload dtype %s, expected uint8 or float32: %w", c.DType, errs.ErrConfig)
	}
	if c.ValidationSize < 0 || c.ValidationSize > 1 {
		return fmt.Errorf("validation size %v not in [0, 1]: %w", c.ValidationSize, errs.ErrConfig)
	}
	if c.TestSize < 0 || c.TestSize > 1 {
		return fmt.Errorf("test size %v not in [0, 1]: %w", c.TestSize, errs.ErrConfig)
	}
	return nil
}

// separateTestPool reports whether TestDirs name a pool other than TrainDirs.
func (c *Config) separateTestPool() bool {
	if len(c.TestDirs) == 0 {
		return false
	}
	if len(c.TestDirs) != len(c.TrainDirs) {
		return true
	}
	for i := range c.TestDirs {
		if filepath.Clean(c.TestDirs[i]) != filepath.Clean(c.TrainDirs[i]) {
			return true
		}
	}
	return false
}

func (c *Config) loader() TableLoader {
	if c.Loader == nil {
		return FileLoader{}
	}
	return c.Loader
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
