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

package document

import (
	"sort"

	"github.com/erigontech/changecodec/change"
	"github.com/erigontech/changecodec/chunkio"
	"github.com/erigontech/changecodec/columnar"
	"github.com/erigontech/changecodec/leb128"
)

// opEntry is one change's operation plus the OpID the change encoder
// would have assigned it (start_op + its position within the change).
type opEntry struct {
	id change.OpID
	op change.Op
}

// actorRange is one change's (seq, start_op, max_op) triple, used only to
// validate that an actor's changes form a contiguous op-counter sequence
// (required for Decoded.ToChanges to derive start_op correctly).
type actorRange struct {
	seq, startOp, maxOp uint64
}

// Encode packs changes into a single document chunk (§4.10). changes must
// already be topologically sorted with respect to their deps: a change's
// deps must each equal the hash of a change earlier in the slice.
func Encode(changes []*change.Change) ([]byte, chunkio.Hash, error) {
	actors := change.NewEmptyActorTable()
	hashIndex := make(map[change.Hash]int, len(changes))
	succOf := make(map[string][]change.OpID)
	ranges := make(map[string][]actorRange)
	var entries []opEntry

	actorCol := columnar.NewRLEEncoder(false)
	seqCol := columnar.NewDeltaEncoder()
	maxOpCol := columnar.NewDeltaEncoder()
	timeCol := columnar.NewDeltaEncoder()
	msgCol := columnar.NewRLEEncoder(true)
	depsNumCol := columnar.NewRLEEncoder(false)
	depsIdxCol := columnar.NewDeltaEncoder()
	extraCol := columnar.NewValueEncoder()

	for i, c := range changes {
		if len(c.Actor) == 0 {
			return nil, chunkio.Hash{}, invalidChange("change actor id must not be empty")
		}
		h, err := change.ComputeHash(c)
		if err != nil {
			return nil, chunkio.Hash{}, err
		}
		if _, dup := hashIndex[h]; dup {
			return nil, chunkio.Hash{}, invalidChange("duplicate change in document")
		}
		hashIndex[h] = i

		actorCol.Append(columnar.UintElem(uint64(actors.Index(c.Actor))))
		seqCol.Append(int64(c.Seq))
		maxOpCol.Append(int64(c.MaxOp()))
		timeCol.Append(c.Time)
		if c.Message != nil {
			msgCol.Append(columnar.StringElem(*c.Message))
		} else {
			msgCol.AppendNull()
		}

		deps := change.Deps(c)
		depsNumCol.Append(columnar.UintElem(uint64(len(deps))))
		for _, dep := range deps {
			idx, ok := hashIndex[dep]
			if !ok {
				return nil, chunkio.Hash{}, invalidChange("change dependency not found earlier in document")
			}
			depsIdxCol.Append(int64(idx))
		}
		extraCol.Append(columnar.EncodeBytes(c.ExtraBytes))

		actorKey := string(c.Actor)
		ranges[actorKey] = append(ranges[actorKey], actorRange{seq: c.Seq, startOp: c.StartOp, maxOp: c.MaxOp()})

		for j, op := range c.Operations {
			id := change.OpID{Counter: c.StartOp + uint64(j), Actor: c.Actor}
			entries = append(entries, opEntry{id: id, op: op})
			for _, p := range op.Pred {
				k := opIDKey(p)
				succOf[k] = append(succOf[k], id)
			}
		}
	}

	for _, rs := range ranges {
		sort.Slice(rs, func(i, j int) bool { return rs[i].seq < rs[j].seq })
		var prevMax uint64
		for _, r := range rs {
			if r.startOp != prevMax+1 {
				return nil, chunkio.Hash{}, invalidChange("change start_op is not contiguous with the actor's previous change")
			}
			prevMax = r.maxOp
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return compareEntries(entries[i], entries[j], actors) < 0
	})

	idActorCol := columnar.NewRLEEncoder(false)
	idCtrCol := columnar.NewDeltaEncoder()
	opCols := change.NewOpColumnSet()
	succCols := change.NewOpIDListColumns()

	for _, e := range entries {
		idActorCol.Append(columnar.UintElem(uint64(actors.Index(e.id.Actor))))
		idCtrCol.Append(int64(e.id.Counter))
		if err := opCols.Append(e.op, actors); err != nil {
			return nil, chunkio.Hash{}, err
		}
		succ := succOf[opIDKey(e.id)]
		sort.Slice(succ, func(i, j int) bool { return compareOpID(succ[i], succ[j], actors) < 0 })
		succCols.Append(succ, actors)
	}

	metaCols := []columnar.ColData{
		{ColID: columnar.ColDocActor, Bytes: actorCol.Finish()},
		{ColID: columnar.ColDocSeq, Bytes: seqCol.Finish()},
		{ColID: columnar.ColDocMaxOp, Bytes: maxOpCol.Finish()},
		{ColID: columnar.ColDocTime, Bytes: timeCol.Finish()},
		{ColID: columnar.ColDocMessage, Bytes: msgCol.Finish()},
		{ColID: columnar.ColDocDepsNum, Bytes: depsNumCol.Finish()},
		{ColID: columnar.ColDocDepsIdx, Bytes: depsIdxCol.Finish()},
	}
	extraLen, extraRaw := extraCol.Finish()
	metaCols = append(metaCols,
		columnar.ColData{ColID: columnar.ColDocExtraLen, Bytes: extraLen},
		columnar.ColData{ColID: columnar.ColDocExtraRaw, Bytes: extraRaw},
	)
	columnar.Sort(metaCols)

	opColData := opCols.Finish()
	succNum, succActor, succCtr := succCols.Finish()
	opColData = append(opColData,
		columnar.ColData{ColID: columnar.ColIDActor, Bytes: idActorCol.Finish()},
		columnar.ColData{ColID: columnar.ColIDCtr, Bytes: idCtrCol.Finish()},
		columnar.ColData{ColID: columnar.ColSuccNum, Bytes: succNum},
		columnar.ColData{ColID: columnar.ColSuccActor, Bytes: succActor},
		columnar.ColData{ColID: columnar.ColSuccCtr, Bytes: succCtr},
	)
	columnar.Sort(opColData)

	all := actors.All()
	var body []byte
	body = leb128.AppendUvarint(body, uint64(len(all)))
	for _, a := range all {
		body = leb128.AppendBytes(body, a)
	}
	body = columnar.WriteDirectory(body, metaCols)
	body = columnar.WriteDirectory(body, opColData)

	framed, hash := chunkio.Frame(chunkio.ChunkTypeDocument, body)
	return framed, hash, nil
}

// opIDKey builds a map key uniquely identifying an OpID, used to invert
// predecessor sets into successor sets while encoding.
func opIDKey(id change.OpID) string {
	buf := leb128.AppendUvarint(nil, id.Counter)
	buf = leb128.AppendBytes(buf, id.Actor)
	return string(buf)
}

// compareOpID orders OpIDs by counter then actor index, per §4.10.
func compareOpID(a, b change.OpID, actors *change.ActorTable) int {
	if a.Counter != b.Counter {
		if a.Counter < b.Counter {
			return -1
		}
		return 1
	}
	ai, bi := actors.Index(a.Actor), actors.Index(b.Actor)
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

func compareObj(a, b change.Obj, actors *change.ActorTable) int {
	if a.Root && b.Root {
		return 0
	}
	if a.Root {
		return -1
	}
	if b.Root {
		return 1
	}
	return compareOpID(a.ID, b.ID, actors)
}

func compareKey(a, b change.Key, actors *change.ActorTable) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	switch a.Kind {
	case change.KeyMap:
		switch {
		case a.MapKey < b.MapKey:
			return -1
		case a.MapKey > b.MapKey:
			return 1
		default:
			return 0
		}
	case change.KeyElem:
		return compareOpID(a.Elem, b.Elem, actors)
	default: // KeyListHead
		return 0
	}
}

// compareEntries implements the canonical (obj, key, id) ascending order
// §4.10 requires for a document's op list.
func compareEntries(a, b opEntry, actors *change.ActorTable) int {
	if c := compareObj(a.op.Obj, b.op.Obj, actors); c != 0 {
		return c
	}
	if c := compareKey(a.op.Key, b.op.Key, actors); c != 0 {
		return c
	}
	return compareOpID(a.id, b.id, actors)
}
