// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tfdata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/encrypted-traffic/tfdata/errs"
)

func TestParseDType(t *testing.T) {
	for s, want := range map[string]DType{
		"uint8":     Uint8,
		"Float32":   Float32,
		" float32 ": Float32,
	} {
		got, err := ParseDType(s)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, want, must(ParseDType(got.String())))
	}

	_, err := ParseDType("float64")
	require.ErrorIs(t, err, errs.ErrConfig)
	require.Equal(t, "DType(7)", DType(7).String())
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	require.True(t, cfg.MergeData)
	require.False(t, cfg.OneHot)
	require.False(t, cfg.BalanceClasses)
	require.Equal(t, Float32, cfg.DType)
	require.Equal(t, 0.2, cfg.ValidationSize)
	require.Equal(t, 0.2, cfg.TestSize)
	require.Equal(t, 810, cfg.PayloadLength)
	require.Nil(t, cfg.Seed)

	// valid apart from the missing train dirs
	require.ErrorIs(t, cfg.Validate(), errs.ErrConfig)
	cfg.TrainDirs = []string{"captures"}
	require.NoError(t, cfg.Validate())
}

func TestConfig_SeparateTestPool(t *testing.T) {
	for _, tc := range []struct {
		train, test []string
		separate    bool
	}{
		{[]string{"a"}, nil, false},
		{[]string{"a"}, []string{"a/"}, false},
		{[]string{"a", "b"}, []string{"a", "./b"}, false},
		{[]string{"a"}, []string{"b"}, true},
		{[]string{"a"}, []string{"a", "b"}, true},
		{[]string{"a", "b"}, []string{"b", "a"}, true},
	} {
		cfg := &Config{TrainDirs: tc.train, TestDirs: tc.test}
		require.Equal(t, tc.separate, cfg.separateTestPool(), "train=%v test=%v", tc.train, tc.test)
	}
}

func TestNewRand_Streams(t *testing.T) {
	draw := func(seed *int64, stream string) []int {
		return newRand(seed, stream).Perm(16)
	}
	require.Equal(t, draw(Seed(7), TrainPartition), draw(Seed(7), TrainPartition))
	require.NotEqual(t, draw(Seed(7), TrainPartition), draw(Seed(7), TestPartition))
	require.NotEqual(t, draw(Seed(7), TrainPartition), draw(Seed(8), TrainPartition))
}
