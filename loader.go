// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package tfdata

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/encrypted-traffic/tfdata/errs"
)

// TableExt is the file extension of capture tables; ReadDataSets loads every
// file in a directory that carries it.
const TableExt = ".ctbl"

// TableLoader loads the records of one capture table.
type TableLoader interface {
	LoadTable(dir, filename string) ([]CaptureRecord, error)
}

// FileLoader loads capture tables written by TableBuilder.
type FileLoader struct{}

func (FileLoader) LoadTable(dir, filename string) ([]CaptureRecord, error) {
	t, err := OpenTable(filepath.Join(dir, filename))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = t.Close()
	}()
	return t.Records()
}

var _ TableLoader = FileLoader{}

// discoverTables returns the base names of the capture tables in dir, sorted.
func discoverTables(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+TableExt))
	if err != nil {
		return nil, fmt.Errorf("filepath.Glob(%s): %w", dir, err)
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = filepath.Base(m)
	}
	return names, nil
}

// loadPool concatenates every table found under dirs, in directory order and
// then file name order.
func loadPool(dirs []string, loader TableLoader, log *slog.Logger) ([]CaptureRecord, error) {
	var pool []CaptureRecord
	tables := 0
	for _, dir := range dirs {
		names, err := discoverTables(dir)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			records, err := loader.LoadTable(dir, name)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", filepath.Join(dir, name), err)
			}
			log.Debug("loaded capture table", "dir", dir, "table", name, "records", len(records))
			pool = append(pool, records...)
			tables++
		}
	}
	if tables == 0 {
		return nil, fmt.Errorf("no %s tables under %v: %w", TableExt, dirs, errs.ErrInsufficientData)
	}
	log.Info("loaded capture pool", "dirs", len(dirs), "tables", tables, "records", len(pool))
	return pool, nil
}
