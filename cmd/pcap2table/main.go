// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command pcap2table converts pcap and pcapng captures into capture tables,
// one table per capture, labeled from the capture's file name.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/encrypted-traffic/tfdata"
	"github.com/encrypted-traffic/tfdata/compress"
	"github.com/encrypted-traffic/tfdata/extract"
	"github.com/encrypted-traffic/tfdata/internal/logging"
)

func main() {
	out := flag.String("out", ".", "directory to write capture tables to")
	codec := flag.String("codec", compress.Zstd.String(), "record compression: none, zstd, s2 or lz4")
	networkLayer := flag.Bool("network-layer", false, "keep bytes from the network header on")
	minLength := flag.Int("min-length", 0, "skip packets shorter than this")
	maxPackets := flag.Int("max-packets", 0, "stop after this many packets per capture; 0 keeps all")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] capture.pcap...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logging.WithComponent(mustLogger(), "pcap2table")

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	ct, err := compress.ParseType(*codec)
	if err != nil {
		logger.Error("bad flag", "err", err)
		os.Exit(2)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Error("create output dir", "err", err)
		os.Exit(1)
	}

	opts := extract.Options{
		NetworkLayer: *networkLayer,
		MinLength:    *minLength,
		MaxPackets:   *maxPackets,
	}
	failed := false
	for _, src := range flag.Args() {
		dst, n, err := extract.WriteTable(src, *out, opts, tfdata.WithCodec(ct))
		if err != nil {
			logger.Error("convert capture", "capture", src, "err", err)
			failed = true
			continue
		}
		logger.Info("wrote table", "capture", src, "table", dst, "records", n)
	}
	if failed {
		os.Exit(1)
	}
}

func mustLogger() *slog.Logger {
	l, err := logging.New(logging.DefaultConfig())
	if err != nil {
		panic(err)
	}
	return l
}
