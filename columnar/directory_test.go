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

	"github.com/erigontech/changecodec/columnar"
	"github.com/erigontech/changecodec/leb128"
)

func TestDirectoryRoundTrip(t *testing.T) {
	cols := []columnar.ColData{
		{ColID: columnar.ColAction, Bytes: []byte{1, 2, 3}},
		{ColID: columnar.ColObjActor, Bytes: []byte{9}},
		{ColID: columnar.ColInsert, Bytes: nil}, // empty: omitted from directory
	}
	columnar.Sort(cols)

	buf := columnar.WriteDirectory(nil, cols)
	r := leb128.NewReader(buf)
	dir, err := columnar.ReadDirectory(r)
	require.NoError(t, err)
	require.Equal(t, 0, r.Len())

	require.Equal(t, []byte{9}, dir.Slice(columnar.ColObjActor))
	require.Equal(t, []byte{1, 2, 3}, dir.Slice(columnar.ColAction))
	require.Nil(t, dir.Slice(columnar.ColInsert))
	require.Equal(t, []uint32{columnar.ColObjActor, columnar.ColAction}, dir.IDs())
}

func TestDirectoryRejectsDescendingIDs(t *testing.T) {
	var buf []byte
	buf = leb128.AppendUvarint(buf, 2)
	buf = leb128.AppendUvarint(buf, uint64(columnar.ColAction))
	buf = leb128.AppendUvarint(buf, 1)
	buf = leb128.AppendUvarint(buf, uint64(columnar.ColObjActor))
	buf = leb128.AppendUvarint(buf, 1)
	buf = append(buf, 0, 0)

	r := leb128.NewReader(buf)
	_, err := columnar.ReadDirectory(r)
	require.ErrorIs(t, err, columnar.ErrColumnOrder)
}

func TestDirectoryRejectsDuplicateIDs(t *testing.T) {
	var buf []byte
	buf = leb128.AppendUvarint(buf, 2)
	buf = leb128.AppendUvarint(buf, uint64(columnar.ColAction))
	buf = leb128.AppendUvarint(buf, 1)
	buf = leb128.AppendUvarint(buf, uint64(columnar.ColAction))
	buf = leb128.AppendUvarint(buf, 1)
	buf = append(buf, 0, 0)

	r := leb128.NewReader(buf)
	_, err := columnar.ReadDirectory(r)
	require.ErrorIs(t, err, columnar.ErrColumnOrder)
}
