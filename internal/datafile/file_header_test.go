// Copyright 2026 The tfdata Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encrypted-traffic/tfdata/compress"
)

func TestFileHeader_RoundTrip(t *testing.T) {
	source := [32]byte{0xde, 0xad, 0xbe, 0xef}
	origH, err := newFileHeader(compress.S2, source)
	require.NoError(t, err)
	require.Equal(t, uint32(magicDataHeader), origH.magic)
	require.Equal(t, uint32(fileFormatVersion), origH.formatVersion)
	require.NotEqual(t, uuid.Nil, origH.id)
	origH.recordCount = 3

	// this should be an error
	err = origH.MarshalTo(nil)
	assert.Error(t, err)

	var newH fileHeader
	headerBytes := make([]byte, fileHeaderSize)
	// this should be an error -- missing magic number
	err = newH.UnmarshalBytes(headerBytes)
	assert.Error(t, err)

	err = origH.MarshalTo(headerBytes)
	require.NoError(t, err)

	// this should be an error
	err = newH.UnmarshalBytes(nil)
	assert.Error(t, err)

	err = newH.UnmarshalBytes(headerBytes)
	require.NoError(t, err)

	assert.Equal(t, origH, &newH)

	// test that deserializing an unknown version is broken
	origH.formatVersion = 666
	err = origH.MarshalTo(headerBytes)
	require.NoError(t, err)
	// this should be an error
	err = newH.UnmarshalBytes(headerBytes)
	assert.Error(t, err)
}

func TestFileHeader_UpdateRecordCount(t *testing.T) {
	var fileBytes safeBuffer
	h, err := newFileHeader(compress.None, [32]byte{})
	require.NoError(t, err)
	_, err = h.WriteTo(&fileBytes)
	require.NoError(t, err)

	require.NoError(t, h.UpdateRecordCount(42, &fileBytes))

	var newH fileHeader
	require.NoError(t, newH.UnmarshalBytes(fileBytes.Bytes()))
	require.Equal(t, uint64(42), newH.recordCount)
	require.Equal(t, h.id, newH.id)
}
