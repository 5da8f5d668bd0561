// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package chunkio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/changecodec/chunkio"
)

func TestFrameAndParseRoundTrip(t *testing.T) {
	body := []byte("hello world")
	framed, hash := chunkio.Frame(chunkio.ChunkTypeChange, body)

	chunks, err := chunkio.ParseChunks(framed)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, chunkio.ChunkTypeChange, chunks[0].Type)
	require.Equal(t, body, chunks[0].Body)
	require.Equal(t, hash, chunks[0].Hash)
	require.True(t, chunks[0].VerifyPrefix())
}

func TestParseMultipleChunks(t *testing.T) {
	a, _ := chunkio.Frame(chunkio.ChunkTypeChange, []byte("a"))
	b, _ := chunkio.Frame(chunkio.ChunkTypeDocument, []byte("bb"))
	chunks, err := chunkio.ParseChunks(append(a, b...))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, chunkio.ChunkTypeChange, chunks[0].Type)
	require.Equal(t, chunkio.ChunkTypeDocument, chunks[1].Type)
}

func TestBadMagicByte(t *testing.T) {
	framed, _ := chunkio.Frame(chunkio.ChunkTypeChange, []byte("x"))
	framed[0] = 0x00
	_, err := chunkio.ParseChunks(framed)
	require.Error(t, err)
	var encErr *chunkio.EncodingError
	require.ErrorAs(t, err, &encErr)
}

func TestTruncatedChunk(t *testing.T) {
	framed, _ := chunkio.Frame(chunkio.ChunkTypeChange, []byte("hello"))
	_, err := chunkio.ParseChunks(framed[:len(framed)-1])
	require.Error(t, err)
}

func TestHashPrefixMismatchDetected(t *testing.T) {
	framed, _ := chunkio.Frame(chunkio.ChunkTypeChange, []byte("hello"))
	framed[4] ^= 0xff
	chunks, err := chunkio.ParseChunks(framed)
	require.NoError(t, err)
	require.False(t, chunks[0].VerifyPrefix())
}
