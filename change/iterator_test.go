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

package change_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erigontech/changecodec/change"
)

func drain(t *testing.T, d *change.Decoded) []change.Op {
	t.Helper()
	it := d.Iterator()
	var ops []change.Op
	for {
		op, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		ops = append(ops, op)
	}
	return ops
}

func TestIteratorAssemblesListOps(t *testing.T) {
	a := actor(9)
	listID := change.OpID{Counter: 1, Actor: a}
	elemID := change.OpID{Counter: 2, Actor: a}
	c := &change.Change{
		Actor: a, Seq: 1, StartOp: 1,
		Operations: []change.Op{
			{Action: change.ActionMakeList, Obj: change.Obj{Root: true}, Key: change.Key{Kind: change.KeyMap, MapKey: "items"}},
			{Action: change.ActionSet, Obj: change.Obj{ID: listID}, Key: change.Key{Kind: change.KeyListHead}, Insert: true, Value: &change.Scalar{Kind: change.ScalarString, Str: "first"}},
			{Action: change.ActionSet, Obj: change.Obj{ID: listID}, Key: change.Key{Kind: change.KeyElem, Elem: elemID}, Insert: true, Value: &change.Scalar{Kind: change.ScalarString, Str: "second"}, Pred: []change.OpID{elemID}},
		},
	}
	framed, _, err := change.Encode(c)
	require.NoError(t, err)
	decoded, err := change.Decode(framed)
	require.NoError(t, err)

	ops := drain(t, decoded)
	require.Len(t, ops, 3)
	require.True(t, ops[1].Key.Kind == change.KeyListHead)
	require.True(t, ops[2].Key.Kind == change.KeyElem)
	require.Equal(t, elemID, ops[2].Key.Elem)
	require.Equal(t, []change.OpID{elemID}, ops[2].Pred)
}

func TestIteratorAssemblesCursorValue(t *testing.T) {
	a := actor(3)
	target := change.OpID{Counter: 4, Actor: a}
	c := &change.Change{
		Actor: a, Seq: 1, StartOp: 1,
		Operations: []change.Op{
			{Action: change.ActionSet, Obj: change.Obj{Root: true}, Key: change.Key{Kind: change.KeyMap, MapKey: "cur"}, Value: &change.Scalar{Kind: change.ScalarCursor, Cursor: target}},
		},
	}
	framed, _, err := change.Encode(c)
	require.NoError(t, err)
	decoded, err := change.Decode(framed)
	require.NoError(t, err)

	ops := drain(t, decoded)
	require.Len(t, ops, 1)
	require.Equal(t, change.ScalarCursor, ops[0].Value.Kind)
	require.Equal(t, target, ops[0].Value.Cursor)
}

func TestIteratorAssemblesIncAndIncHasNoRef(t *testing.T) {
	a := actor(5)
	c := &change.Change{
		Actor: a, Seq: 1, StartOp: 1,
		Operations: []change.Op{
			{Action: change.ActionInc, Obj: change.Obj{Root: true}, Key: change.Key{Kind: change.KeyMap, MapKey: "counter"}, Value: &change.Scalar{Kind: change.ScalarInt, Int: -3}},
		},
	}
	framed, _, err := change.Encode(c)
	require.NoError(t, err)
	decoded, err := change.Decode(framed)
	require.NoError(t, err)

	ops := drain(t, decoded)
	require.Len(t, ops, 1)
	require.Equal(t, int64(-3), ops[0].Value.Int)
}

func TestIteratorPassesThroughReservedUnknownValue(t *testing.T) {
	a := actor(6)
	c := &change.Change{
		Actor: a, Seq: 1, StartOp: 1,
		Operations: []change.Op{
			{Action: change.ActionSet, Obj: change.Obj{Root: true}, Key: change.Key{Kind: change.KeyMap, MapKey: "future"},
				Value: &change.Scalar{Kind: change.ScalarUnknown, UnknownTag: 12, UnknownRaw: []byte{1, 2, 3}}},
		},
	}
	framed, _, err := change.Encode(c)
	require.NoError(t, err)
	decoded, err := change.Decode(framed)
	require.NoError(t, err)

	ops := drain(t, decoded)
	require.Len(t, ops, 1)
	require.Equal(t, change.ScalarUnknown, ops[0].Value.Kind)
	require.Equal(t, byte(12), ops[0].Value.UnknownTag)
	require.Equal(t, []byte{1, 2, 3}, ops[0].Value.UnknownRaw)
}

func TestIteratorPredCountersDeltaAcrossWholeStream(t *testing.T) {
	a := actor(7)
	ids := []change.OpID{{Counter: 10, Actor: a}, {Counter: 20, Actor: a}, {Counter: 5, Actor: a}}
	c := &change.Change{
		Actor: a, Seq: 1, StartOp: 1,
		Operations: []change.Op{
			{Action: change.ActionSet, Obj: change.Obj{Root: true}, Key: change.Key{Kind: change.KeyMap, MapKey: "a"}, Value: &change.Scalar{Kind: change.ScalarUint, Uint: 1}, Pred: []change.OpID{ids[0]}},
			{Action: change.ActionSet, Obj: change.Obj{Root: true}, Key: change.Key{Kind: change.KeyMap, MapKey: "b"}, Value: &change.Scalar{Kind: change.ScalarUint, Uint: 2}, Pred: []change.OpID{ids[1], ids[2]}},
		},
	}
	framed, _, err := change.Encode(c)
	require.NoError(t, err)
	decoded, err := change.Decode(framed)
	require.NoError(t, err)

	ops := drain(t, decoded)
	require.Equal(t, []change.OpID{ids[0]}, ops[0].Pred)
	require.Equal(t, []change.OpID{ids[1], ids[2]}, ops[1].Pred)
}
