// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4 blocks don't record their decompressed size, so values are framed as
// a one-byte mode followed by either the raw bytes or a uvarint length and
// the compressed block.
const (
	lz4ModeRaw   = 0
	lz4ModeBlock = 1

	maxLZ4ValueLen = 1 << 24
)

var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

type lz4Codec struct{}

func (lz4Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, 1+binary.MaxVarintLen64+lz4.CompressBlockBound(len(data)))
	dst[0] = lz4ModeBlock
	hdrLen := 1 + binary.PutUvarint(dst[1:], uint64(len(data)))

	lc := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[hdrLen:])
	if err != nil {
		return nil, fmt.Errorf("lz4.CompressBlock: %w", err)
	}
	if n == 0 || hdrLen+n >= 1+len(data) {
		// incompressible
		raw := make([]byte, 1+len(data))
		raw[0] = lz4ModeRaw
		copy(raw[1:], data)
		return raw, nil
	}
	return dst[:hdrLen+n], nil
}

func (lz4Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	switch data[0] {
	case lz4ModeRaw:
		return data[1:], nil
	case lz4ModeBlock:
		size, n := binary.Uvarint(data[1:])
		if n <= 0 || size > maxLZ4ValueLen {
			return nil, errors.New("lz4: bad block length")
		}
		out := make([]byte, size)
		written, err := lz4.UncompressBlock(data[1+n:], out)
		if err != nil {
			return nil, fmt.Errorf("lz4.UncompressBlock: %w", err)
		}
		if uint64(written) != size {
			return nil, fmt.Errorf("lz4: short block (%d != %d)", written, size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("lz4: unknown mode %d", data[0])
	}
}
