// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command gen-captures writes synthetic capture tables, one per class, for
// exercising the dataset pipeline without real captures.
package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/encrypted-traffic/tfdata"
	"github.com/encrypted-traffic/tfdata/compress"
	"github.com/encrypted-traffic/tfdata/internal/logging"
)

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		var seedBytes [8]byte
		if _, err := crand.Read(seedBytes[:]); err != nil {
			panic(err)
		}
		seed = int64(binary.LittleEndian.Uint64(seedBytes[:]))
	}
	return rand.New(rand.NewPCG(uint64(seed), 0))
}

// genRecord returns a packet-like payload: a class-specific prefix the model
// can learn from, followed by random bytes.
func genRecord(rng *rand.Rand, class string, classID, maxLen int) []byte {
	n := 1 + rng.IntN(maxLen)
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Uint32())
	}
	b[0] = byte(classID)
	copy(b[1:], class)
	return b
}

func main() {
	out := flag.String("out", ".", "directory to write capture tables to")
	classes := flag.String("classes", "netflix,youtube,hbo", "comma-separated class labels")
	records := flag.Int("records", 1000, "records per class")
	maxLen := flag.Int("max-len", 1500, "maximum payload length")
	seed := flag.Int64("seed", -1, "generator seed; negative for a random seed")
	codec := flag.String("codec", compress.Zstd.String(), "record compression: none, zstd, s2 or lz4")
	flag.Parse()

	l, err := logging.New(logging.DefaultConfig())
	if err != nil {
		panic(err)
	}
	logger := logging.WithComponent(l, "gen-captures")

	ct, err := compress.ParseType(*codec)
	if err != nil {
		logger.Error("bad flag", "err", err)
		os.Exit(2)
	}
	if *maxLen < 1 || *records < 0 {
		logger.Error("bad flag", "max_len", *maxLen, "records", *records)
		os.Exit(2)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Error("create output dir", "err", err)
		os.Exit(1)
	}

	rng := newRand(*seed)
	stamp := time.Now().Format("0201_150405")
	for id, class := range strings.Split(*classes, ",") {
		class = strings.TrimSpace(class)
		if class == "" {
			continue
		}
		path := filepath.Join(*out, fmt.Sprintf("%s-%s%s", class, stamp, tfdata.TableExt))
		if err := writeClass(logger, path, class, id, *records, *maxLen, ct, rng); err != nil {
			logger.Error("write table", "class", class, "err", err)
			os.Exit(1)
		}
	}
}

func writeClass(logger *slog.Logger, path, class string, id, n, maxLen int, ct compress.Type, rng *rand.Rand) error {
	b, err := tfdata.NewTableBuilder(path, tfdata.WithCodec(ct))
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		rec := tfdata.CaptureRecord{Label: class, Bytes: genRecord(rng, class, id, maxLen)}
		if err := b.Put(rec); err != nil {
			_ = b.Discard()
			return err
		}
	}
	t, err := b.Finalize()
	if err != nil {
		return err
	}
	logger.Info("wrote table", "class", class, "table", path, "records", t.Len(), "id", t.ID())
	return t.Close()
}
