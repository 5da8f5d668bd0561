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

package document_test

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/erigontech/changecodec/change"
	"github.com/erigontech/changecodec/document"
)

func actorOf(b byte) change.ActorID { return change.ActorID{b} }

func strPtr(s string) *string { return &s }

// buildCausalExample constructs spec's S3 scenario: c1 (no deps), c2
// (deps=[h1]), c3 (deps=[h1,h2]), with ops chained by Pred across changes.
func buildCausalExample(t *testing.T) []*change.Change {
	actor1, actor2 := actorOf(1), actorOf(2)

	c1 := &change.Change{
		Actor:   actor1,
		Seq:     1,
		StartOp: 1,
		Time:    100,
		Message: strPtr("init"),
		Operations: []change.Op{
			{
				Action: change.ActionMakeMap,
				Obj:    change.Obj{Root: true},
				Key:    change.Key{Kind: change.KeyMap, MapKey: "todos"},
			},
		},
	}
	h1, err := change.ComputeHash(c1)
	require.NoError(t, err)
	obj1 := change.OpID{Counter: 1, Actor: actor1}

	c2 := &change.Change{
		Actor:   actor2,
		Seq:     1,
		StartOp: 1,
		Time:    101,
		Deps:    []change.Hash{h1},
		Operations: []change.Op{
			{
				Action: change.ActionSet,
				Obj:    change.Obj{ID: obj1},
				Key:    change.Key{Kind: change.KeyMap, MapKey: "title"},
				Value:  &change.Scalar{Kind: change.ScalarString, Str: "groceries"},
			},
		},
	}
	h2, err := change.ComputeHash(c2)
	require.NoError(t, err)
	titleOp := change.OpID{Counter: 1, Actor: actor2}

	c3 := &change.Change{
		Actor:   actor1,
		Seq:     2,
		StartOp: 2,
		Time:    102,
		Deps:    []change.Hash{h1, h2},
		Operations: []change.Op{
			{
				Action: change.ActionSet,
				Obj:    change.Obj{ID: obj1},
				Key:    change.Key{Kind: change.KeyMap, MapKey: "title"},
				Value:  &change.Scalar{Kind: change.ScalarString, Str: "shopping list"},
				Pred:   []change.OpID{titleOp},
			},
		},
	}
	return []*change.Change{c1, c2, c3}
}

func normalizeForCompare(changes []*change.Change) []*change.Change {
	out := make([]*change.Change, len(changes))
	for i, c := range changes {
		cp := *c
		cp.Deps = change.Deps(c)
		ops := make([]change.Op, len(c.Operations))
		copy(ops, c.Operations)
		for j, op := range ops {
			pred := append([]change.OpID(nil), op.Pred...)
			sort.Slice(pred, func(a, b int) bool {
				if pred[a].Counter != pred[b].Counter {
					return pred[a].Counter < pred[b].Counter
				}
				return string(pred[a].Actor) < string(pred[b].Actor)
			})
			ops[j].Pred = pred
		}
		cp.Operations = ops
		out[i] = &cp
	}
	return out
}

func TestDocumentRoundTripCausalExample(t *testing.T) {
	changes := buildCausalExample(t)

	body, hash, err := document.Encode(changes)
	require.NoError(t, err)
	require.NotZero(t, hash)

	decoded, err := document.Decode(body)
	require.NoError(t, err)
	require.Len(t, decoded.Meta, 3)
	require.Len(t, decoded.Ops, 3)

	got, err := decoded.ToChanges()
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := normalizeForCompare(changes)
	gotNorm := normalizeForCompare(got)
	for i := range gotNorm {
		gotNorm[i].ExtraBytes = nil
	}
	for i := range want {
		want[i].ExtraBytes = nil
	}
	if diff := cmp.Diff(want, gotNorm, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("ToChanges mismatch (-want +got):\n%s", diff)
	}

	// seq 2's operation set a value that has a causal predecessor in seq 1.
	require.Len(t, got[2].Operations[0].Pred, 1)
	require.Equal(t, uint64(1), got[2].Operations[0].Pred[0].Counter)
}

func TestDocumentEncodeRejectsUnresolvedDeps(t *testing.T) {
	orphan := change.Hash{1, 2, 3}
	c := &change.Change{
		Actor:   actorOf(9),
		Seq:     1,
		StartOp: 1,
		Deps:    []change.Hash{orphan},
	}
	_, _, err := document.Encode([]*change.Change{c})
	require.Error(t, err)
}

func randDocActor(t *rapid.T, n int) change.ActorID {
	return change.ActorID{byte(n)}
}

func randDocValue(t *rapid.T) change.Scalar {
	switch rapid.IntRange(0, 3).Draw(t, "val_kind") {
	case 0:
		return change.Scalar{Kind: change.ScalarString, Str: rapid.StringN(0, 6, -1).Draw(t, "s")}
	case 1:
		return change.Scalar{Kind: change.ScalarInt, Int: rapid.Int64().Draw(t, "i")}
	case 2:
		return change.Scalar{Kind: change.ScalarBool, Bool: rapid.Bool().Draw(t, "b")}
	default:
		return change.Scalar{Kind: change.ScalarUint, Uint: rapid.Uint64().Draw(t, "u")}
	}
}

func randDocBatch(t *rapid.T) []*change.Change {
	numActors := rapid.IntRange(1, 3).Draw(t, "num_actors")
	actors := make([]change.ActorID, numActors)
	for i := range actors {
		actors[i] = randDocActor(t, i+1)
	}
	seqs := make([]uint64, numActors)
	nextStart := make([]uint64, numActors)
	for i := range nextStart {
		nextStart[i] = 1
	}

	var allOpIDs []change.OpID
	var hashes []change.Hash
	var changes []*change.Change

	numChanges := rapid.IntRange(1, 6).Draw(t, "num_changes")
	for c := 0; c < numChanges; c++ {
		ai := rapid.IntRange(0, numActors-1).Draw(t, "actor_idx")
		actor := actors[ai]
		seqs[ai]++
		startOp := nextStart[ai]

		numOps := rapid.IntRange(0, 4).Draw(t, "num_ops")
		ops := make([]change.Op, numOps)
		for j := 0; j < numOps; j++ {
			id := change.OpID{Counter: startOp + uint64(j), Actor: actor}

			predN := 0
			if len(allOpIDs) > 0 {
				predN = rapid.IntRange(0, min(2, len(allOpIDs))).Draw(t, "pred_n")
			}
			pred := make([]change.OpID, predN)
			for k := 0; k < predN; k++ {
				pred[k] = allOpIDs[rapid.IntRange(0, len(allOpIDs)-1).Draw(t, "pred_idx")]
			}

			action := rapid.SampledFrom([]change.Action{
				change.ActionSet, change.ActionMakeMap, change.ActionDel,
			}).Draw(t, "action")
			op := change.Op{
				Action: action,
				Obj:    change.Obj{Root: true},
				Key:    change.Key{Kind: change.KeyMap, MapKey: rapid.StringN(1, 4, -1).Draw(t, "key")},
				Pred:   pred,
			}
			if action == change.ActionSet {
				v := randDocValue(t)
				op.Value = &v
			}
			ops[j] = op
			allOpIDs = append(allOpIDs, id)
		}
		nextStart[ai] = startOp + uint64(numOps)

		var deps []change.Hash
		if len(hashes) > 0 && rapid.Bool().Draw(t, "has_deps") {
			k := rapid.IntRange(1, len(hashes)).Draw(t, "deps_k")
			idxs := make([]int, len(hashes))
			for i := range idxs {
				idxs[i] = i
			}
			for i := len(idxs) - 1; i > 0; i-- {
				j := rapid.IntRange(0, i).Draw(t, "deps_shuffle")
				idxs[i], idxs[j] = idxs[j], idxs[i]
			}
			for _, idx := range idxs[:k] {
				deps = append(deps, hashes[idx])
			}
		}

		var message *string
		if rapid.Bool().Draw(t, "has_msg") {
			s := rapid.StringN(0, 8, -1).Draw(t, "msg")
			message = &s
		}

		ch := &change.Change{
			Actor:      actor,
			Seq:        seqs[ai],
			StartOp:    startOp,
			Time:       rapid.Int64Range(0, 1<<40).Draw(t, "time"),
			Message:    message,
			Deps:       deps,
			Operations: ops,
		}
		h, err := change.ComputeHash(ch)
		if err != nil {
			t.Fatalf("computing hash of generated change: %v", err)
		}
		hashes = append(hashes, h)
		changes = append(changes, ch)
	}
	return changes
}

func TestDocumentRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		changes := randDocBatch(t)

		body, _, err := document.Encode(changes)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		decoded, err := document.Decode(body)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		got, err := decoded.ToChanges()
		if err != nil {
			t.Fatalf("ToChanges: %v", err)
		}

		want := normalizeForCompare(changes)
		gotNorm := normalizeForCompare(got)
		for i := range want {
			want[i].ExtraBytes = nil
		}
		for i := range gotNorm {
			gotNorm[i].ExtraBytes = nil
		}
		if diff := cmp.Diff(want, gotNorm, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("document round trip mismatch (-want +got):\n%s", diff)
		}
	})
}
