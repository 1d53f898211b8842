// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package label

import (
	"fmt"

	"github.com/encrypted-traffic/tfdata/errs"
)

// OneHot is a row-major Rows x Cols matrix with a single 1 per row.
type OneHot struct {
	Rows int
	Cols int
	Data []uint8
}

// ToOneHot converts dense codes into one-hot rows of width numClasses.
func ToOneHot(codes []int, numClasses int) (*OneHot, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("num classes %d must be positive: %w", numClasses, errs.ErrConfig)
	}
	oh := &OneHot{
		Rows: len(codes),
		Cols: numClasses,
		Data: make([]uint8, len(codes)*numClasses),
	}
	for i, code := range codes {
		if code < 0 || code >= numClasses {
			return nil, fmt.Errorf("row %d: code %d not in [0, %d): %w", i, code, numClasses, errs.ErrIndex)
		}
		oh.Data[i*numClasses+code] = 1
	}
	return oh, nil
}

// Row returns row i as a view into oh.Data.
func (oh *OneHot) Row(i int) []uint8 {
	return oh.Data[i*oh.Cols : (i+1)*oh.Cols : (i+1)*oh.Cols]
}

// Code returns the column holding row i's 1, or -1 if the row is all zeros.
func (oh *OneHot) Code(i int) int {
	for j, v := range oh.Row(i) {
		if v != 0 {
			return j
		}
	}
	return -1
}
