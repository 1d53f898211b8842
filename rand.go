// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tfdata

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// newRand returns the random stream named stream. With a seed, every stream
// is reproducible and independent of the others; without one it is random.
func newRand(seed *int64, stream string) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(*seed), xxhash.Sum64String(stream)))
}
