// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package extract turns packet captures into capture tables.
//
// Every packet in a pcap or pcapng file becomes one record. The record's
// label comes from the capture's file name: the traffic generator names
// captures "<label>-DDMM_HHMMSS.pcap".
package extract

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
	"github.com/zeebo/blake3"

	"github.com/encrypted-traffic/tfdata"
)

// Options control which packets are kept and which of their bytes.
type Options struct {
	// NetworkLayer keeps bytes from the network header on, dropping the
	// link-layer header. Packets without a network layer are skipped.
	NetworkLayer bool
	// MinLength skips packets with fewer bytes than this.
	MinLength int
	// MaxPackets stops after this many kept packets; 0 keeps all.
	MaxPackets int
}

const pcapngMagic = 0x0A0D0D0A

var errNoLabel = errors.New("capture name has no label prefix")

// LabelFromFilename returns the label encoded in a capture file name: the
// part of the base name before the first '-', or before the extension if
// there is no '-'.
func LabelFromFilename(name string) (string, error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.IndexByte(base, '-'); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "." {
		return "", fmt.Errorf("%q: %w", name, errNoLabel)
	}
	return base, nil
}

type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

func newPacketSource(r io.Reader) (packetSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture magic: %w", err)
	}
	if binary.LittleEndian.Uint32(magic) == pcapngMagic {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("pcapgo.NewNgReader: %w", err)
		}
		return ng, nil
	}
	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("pcapgo.NewReader: %w", err)
	}
	return pr, nil
}

// Packets reads the packets of a pcap or pcapng stream and returns the bytes
// selected by opts, in capture order.
func Packets(r io.Reader, opts Options) ([][]byte, error) {
	src, err := newPacketSource(r)
	if err != nil {
		return nil, err
	}
	linkType := src.LinkType()

	var packets [][]byte
	for opts.MaxPackets == 0 || len(packets) < opts.MaxPackets {
		data, _, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("packet %d: %w", len(packets), err)
		}

		b := data
		if opts.NetworkLayer {
			pkt := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
			nl := pkt.NetworkLayer()
			if nl == nil {
				continue
			}
			header, rest := nl.LayerContents(), nl.LayerPayload()
			b = make([]byte, 0, len(header)+len(rest))
			b = append(append(b, header...), rest...)
		}
		if len(b) < opts.MinLength {
			continue
		}
		packets = append(packets, bytes.Clone(b))
	}
	return packets, nil
}

// File reads the capture at path and returns one record per kept packet,
// labeled from the file name, along with the blake3 digest of the file.
func File(path string, opts Options) ([]tfdata.CaptureRecord, [32]byte, error) {
	var digest [32]byte

	l, err := LabelFromFilename(path)
	if err != nil {
		return nil, digest, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, digest, err
	}
	defer func() {
		_ = f.Close()
	}()

	h := blake3.New()
	packets, err := Packets(io.TeeReader(f, h), opts)
	if err != nil {
		return nil, digest, fmt.Errorf("%s: %w", path, err)
	}
	// hash whatever the packet reader did not consume
	if _, err := io.Copy(h, f); err != nil {
		return nil, digest, fmt.Errorf("%s: %w", path, err)
	}
	copy(digest[:], h.Sum(nil))

	records := make([]tfdata.CaptureRecord, len(packets))
	for i, p := range packets {
		records[i] = tfdata.CaptureRecord{Bytes: p, Label: l}
	}
	return records, digest, nil
}

// WriteTable extracts the capture at src into a capture table in dstDir
// named after the capture, and returns the table's path and record count.
func WriteTable(src, dstDir string, opts Options, tableOpts ...tfdata.BuilderOption) (string, int, error) {
	records, digest, err := File(src, opts)
	if err != nil {
		return "", 0, err
	}

	base := filepath.Base(src)
	dst := filepath.Join(dstDir, strings.TrimSuffix(base, filepath.Ext(base))+tfdata.TableExt)

	builder, err := tfdata.NewTableBuilder(dst, append([]tfdata.BuilderOption{tfdata.WithSource(digest)}, tableOpts...)...)
	if err != nil {
		return "", 0, err
	}
	for _, rec := range records {
		if err := builder.Put(rec); err != nil {
			_ = builder.Discard()
			return "", 0, fmt.Errorf("%s: %w", dst, err)
		}
	}
	table, err := builder.Finalize()
	if err != nil {
		return "", 0, err
	}
	n := table.Len()
	if err := table.Close(); err != nil {
		return "", 0, err
	}
	return dst, n, nil
}
