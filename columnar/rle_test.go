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

package columnar_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erigontech/changecodec/columnar"
)

type rleRow struct {
	null bool
	v    uint64
}

func TestRLEUintRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.SliceOf(rapid.Custom(func(t *rapid.T) rleRow {
			return rleRow{
				null: rapid.Bool().Draw(t, "null"),
				v:    rapid.Uint64Range(0, 5).Draw(t, "v"),
			}
		})).Draw(t, "rows")

		enc := columnar.NewRLEEncoder(false)
		for _, r := range rows {
			if r.null {
				enc.AppendNull()
			} else {
				enc.Append(columnar.UintElem(r.v))
			}
		}
		buf := enc.Finish()

		dec := columnar.NewRLEDecoder(buf, false)
		for _, want := range rows {
			elem, isNull, done, err := dec.Next()
			require.NoError(t, err)
			require.False(t, done)
			require.Equal(t, want.null, isNull)
			if !want.null {
				require.Equal(t, want.v, elem.U)
			}
		}
		_, _, done, err := dec.Next()
		require.NoError(t, err)
		require.True(t, done)
	})
}

func TestRLEStringRoundTrip(t *testing.T) {
	values := []string{"a", "a", "a", "b", "", "", "c"}
	enc := columnar.NewRLEEncoder(true)
	for _, v := range values {
		enc.Append(columnar.StringElem(v))
	}
	buf := enc.Finish()

	dec := columnar.NewRLEDecoder(buf, true)
	for _, want := range values {
		elem, isNull, done, err := dec.Next()
		require.NoError(t, err)
		require.False(t, done)
		require.False(t, isNull)
		require.Equal(t, want, elem.S)
	}
	_, _, done, err := dec.Next()
	require.NoError(t, err)
	require.True(t, done)
}

func TestRLEEmptyColumn(t *testing.T) {
	enc := columnar.NewRLEEncoder(false)
	buf := enc.Finish()
	require.Empty(t, buf)

	dec := columnar.NewRLEDecoder(buf, false)
	_, _, done, err := dec.Next()
	require.NoError(t, err)
	require.True(t, done)
}

func TestRLELiteralSpanDecoding(t *testing.T) {
	// Hand-construct a literal-span encoded stream (count<0), which this
	// package's own encoder never emits but the decoder must still accept.
	var buf []byte
	buf = appendVarint(buf, -3)
	buf = appendUvarint(buf, 1)
	buf = appendUvarint(buf, 2)
	buf = appendUvarint(buf, 3)

	dec := columnar.NewRLEDecoder(buf, false)
	for _, want := range []uint64{1, 2, 3} {
		elem, isNull, done, err := dec.Next()
		require.NoError(t, err)
		require.False(t, done)
		require.False(t, isNull)
		require.Equal(t, want, elem.U)
	}
}

func appendVarint(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

func appendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}
