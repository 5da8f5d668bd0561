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

package docstore_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/changecodec/change"
	"github.com/erigontech/changecodec/docstore"
)

func actorOf(b byte) change.ActorID { return change.ActorID{b} }

func strPtr(s string) *string { return &s }

func exampleChanges(t *testing.T) []*change.Change {
	actor1, actor2 := actorOf(1), actorOf(2)

	c1 := &change.Change{
		Actor:   actor1,
		Seq:     1,
		StartOp: 1,
		Time:    100,
		Message: strPtr("init"),
		Operations: []change.Op{
			{Action: change.ActionMakeMap, Obj: change.Obj{Root: true}, Key: change.Key{Kind: change.KeyMap, MapKey: "todos"}},
		},
	}
	h1, err := change.ComputeHash(c1)
	require.NoError(t, err)

	c2 := &change.Change{
		Actor:   actor2,
		Seq:     1,
		StartOp: 1,
		Time:    101,
		Deps:    []change.Hash{h1},
		Operations: []change.Op{
			{
				Action: change.ActionSet,
				Obj:    change.Obj{ID: change.OpID{Counter: 1, Actor: actor1}},
				Key:    change.Key{Kind: change.KeyMap, MapKey: "title"},
				Value:  &change.Scalar{Kind: change.ScalarString, Str: "groceries"},
			},
		},
	}
	return []*change.Change{c1, c2}
}

func TestArchiveRoundTripInMemory(t *testing.T) {
	fs := afero.NewMemMapFs()
	a, err := docstore.New(fs, "/docs", nil)
	require.NoError(t, err)

	changes := exampleChanges(t)
	require.NoError(t, a.Put("doc-1", changes))

	pending, err := a.Pending("doc-1")
	require.NoError(t, err)
	require.False(t, pending)

	got, err := a.Get("doc-1")
	require.NoError(t, err)
	if diff := cmp.Diff(changes, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("Get mismatch (-want +got):\n%s", diff)
	}

	exists, err := afero.Exists(fs, "/docs/doc-1.doc.zst")
	require.NoError(t, err)
	require.True(t, exists)

	journalExists, err := afero.Exists(fs, "/docs/doc-1.journal")
	require.NoError(t, err)
	require.False(t, journalExists, "journal should be cleared after a successful commit")
}

func TestArchiveGetMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	a, err := docstore.New(fs, "/docs", nil)
	require.NoError(t, err)

	_, err = a.Get("nope")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestArchivePendingDetectsInterruptedWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	a, err := docstore.New(fs, "/docs", nil)
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/docs/partial.journal", []byte("stale"), 0o644))

	pending, err := a.Pending("partial")
	require.NoError(t, err)
	require.True(t, pending)
}
