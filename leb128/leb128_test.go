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

package leb128_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erigontech/changecodec/leb128"
)

func TestUvarintRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64().Draw(t, "v")
		buf := leb128.AppendUvarint(nil, v)
		require.Equal(t, leb128.SizeUvarint(v), len(buf))
		r := leb128.NewReader(buf)
		got, err := r.ReadUvarint()
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), r.LastRead())
		require.Equal(t, 0, r.Len())
	})
}

func TestVarintRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Int64().Draw(t, "v")
		buf := leb128.AppendVarint(nil, v)
		r := leb128.NewReader(buf)
		got, err := r.ReadVarint()
		require.NoError(t, err)
		require.Equal(t, v, got)
	})
}

func TestEmptyBytesIsOneZeroByte(t *testing.T) {
	buf := leb128.AppendBytes(nil, nil)
	require.Equal(t, []byte{0x00}, buf)

	r := leb128.NewReader(buf)
	got, err := r.ReadBytes()
	require.NoError(t, err)
	require.Len(t, got, 0)
}

func TestBytesRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.SliceOf(rapid.Byte()).Draw(t, "p")
		buf := leb128.AppendBytes(nil, p)
		r := leb128.NewReader(buf)
		got, err := r.ReadBytes()
		require.NoError(t, err)
		require.Equal(t, p, got)
	})
}

func TestFloatRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f32 := rapid.Float32().Draw(t, "f32")
		buf := leb128.AppendFloat32(nil, f32)
		r := leb128.NewReader(buf)
		got, err := r.ReadFloat32()
		require.NoError(t, err)
		require.Equal(t, f32, got)
		require.Equal(t, 4, r.LastRead())

		f64 := rapid.Float64().Draw(t, "f64")
		buf = leb128.AppendFloat64(nil, f64)
		r = leb128.NewReader(buf)
		got64, err := r.ReadFloat64()
		require.NoError(t, err)
		require.Equal(t, f64, got64)
		require.Equal(t, 8, r.LastRead())
	})
}

func TestTruncatedVarint(t *testing.T) {
	r := leb128.NewReader([]byte{0x80, 0x80})
	_, err := r.ReadUvarint()
	require.ErrorIs(t, err, leb128.ErrTruncated)
}

func TestSignedNegativeOne(t *testing.T) {
	buf := leb128.AppendVarint(nil, -1)
	require.Equal(t, []byte{0x7f}, buf)
}
