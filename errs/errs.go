// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package errs defines the sentinel errors shared by the tfdata packages.
// Call sites wrap them with context; callers match them with errors.Is.
package errs

import "errors"

var (
	// ErrConfig reports an invalid length, batch size, dtype or fraction.
	ErrConfig = errors.New("invalid configuration")
	// ErrShapeMismatch reports payload and label row counts that disagree.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrInsufficientData reports an empty pool, class or partition.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrIndex reports a class code outside [0, numClasses).
	ErrIndex = errors.New("index out of range")
	// ErrUnknownLabel reports a label the fitted encoder has never seen.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrAlreadyFitted reports a second fit of a label encoder.
	ErrAlreadyFitted = errors.New("encoder already fitted")
	// ErrCorrupt reports a capture table that fails structural or checksum validation.
	ErrCorrupt = errors.New("capture table corrupted")
)
