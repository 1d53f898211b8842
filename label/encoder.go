// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package label maps categorical traffic labels to dense integer codes.
//
// Codes are assigned by the lexicographic order of the distinct labels seen
// at fit time, so two runs over the same label set always agree on codes
// regardless of the order records were loaded in. An Encoder is fit exactly
// once per pipeline run and then shared by every partition.
package label

import (
	"fmt"

	"github.com/encrypted-traffic/tfdata/errs"
)

// Encoder holds the label-to-code mapping for one pipeline run.
// The zero value is an unfitted encoder.
type Encoder struct {
	classes []string
	codes   map[string]int
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// Fitted reports whether the mapping has been established.
func (e *Encoder) Fitted() bool {
	return e.codes != nil
}

// Fit establishes the mapping from the distinct values of labels.
func (e *Encoder) Fit(labels []string) error {
	if e.Fitted() {
		return errs.ErrAlreadyFitted
	}
	if len(labels) == 0 {
		return fmt.Errorf("no labels to fit: %w", errs.ErrInsufficientData)
	}

	distinct := make(stringSet)
	for _, l := range labels {
		distinct.Add(l)
	}

	e.classes = distinct.Sorted()
	e.codes = make(map[string]int, len(e.classes))
	for code, class := range e.classes {
		e.codes[class] = code
	}
	return nil
}

// FitTransform fits the encoder on labels and returns their codes.
func (e *Encoder) FitTransform(labels []string) ([]int, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// Transform returns the code of every label using the fitted mapping.
func (e *Encoder) Transform(labels []string) ([]int, error) {
	if !e.Fitted() {
		return nil, fmt.Errorf("transform before fit: %w", errs.ErrConfig)
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		code, ok := e.codes[l]
		if !ok {
			return nil, fmt.Errorf("label %q: %w", l, errs.ErrUnknownLabel)
		}
		out[i] = code
	}
	return out, nil
}

// Decode returns the label for code.
func (e *Encoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", fmt.Errorf("code %d not in [0, %d): %w", code, len(e.classes), errs.ErrIndex)
	}
	return e.classes[code], nil
}

// Classes returns the fitted labels ordered by code.
func (e *Encoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

func (e *Encoder) NumClasses() int {
	return len(e.classes)
}
