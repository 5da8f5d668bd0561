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

// Decoded is a parsed document chunk, holding the change-metadata group
// and the flattened doc-op list in their on-wire (already canonical)
// order. Call ToChanges to reconstruct the logical changes it packs.
type Decoded struct {
	Actors *change.DecodedActorTable
	Meta   []ChangeMeta
	Ops    []DocOp

	// depsIdx holds, for each entry of Meta, the document positions its
	// deps_index column referenced. ChangeMeta has no Deps field;
	// ToChanges resolves positions into hashes of the fully reconstructed
	// changes (a change's hash depends on its operations, which are not
	// yet attributed to it at metadata-decode time).
	depsIdx [][]int
}

// Decode parses a single framed document chunk.
func Decode(raw []byte) (*Decoded, error) {
	chunks, err := chunkio.ParseChunks(raw)
	if err != nil {
		return nil, err
	}
	if len(chunks) != 1 {
		return nil, encodingErr("expected exactly one chunk")
	}
	rc := chunks[0]
	if rc.Type != chunkio.ChunkTypeDocument {
		return nil, encodingErr("chunk is not a document")
	}
	return DecodeBody(rc.Body)
}

// DecodeBody parses a document chunk's body (post chunk-type, post length
// prefix).
func DecodeBody(body []byte) (*Decoded, error) {
	r := leb128.NewReader(body)

	numActors, err := r.ReadUvarint()
	if err != nil {
		return nil, encodingErrWrap("reading actor count", err)
	}
	actorList := make([]change.ActorID, numActors)
	for i := range actorList {
		a, err := r.ReadBytes()
		if err != nil {
			return nil, encodingErrWrap("reading actor id", err)
		}
		actorList[i] = append(change.ActorID(nil), a...)
	}
	actors := change.NewDecodedActorTableFrom(actorList)
	if actors.HasDuplicates() {
		return nil, encodingErr("actor table contains duplicate entries")
	}

	metaDir, err := columnar.ReadDirectory(r)
	if err != nil {
		return nil, encodingErrWrap("reading change-metadata column directory", err)
	}
	meta, depsIdx, err := decodeMeta(metaDir, actors)
	if err != nil {
		return nil, err
	}

	opDir, err := columnar.ReadDirectory(r)
	if err != nil {
		return nil, encodingErrWrap("reading doc-op column directory", err)
	}
	ops, err := decodeOps(opDir, actors)
	if err != nil {
		return nil, err
	}

	return &Decoded{Actors: actors, Meta: meta, Ops: ops, depsIdx: depsIdx}, nil
}

func decodeMeta(dir *columnar.Directory, actors *change.DecodedActorTable) ([]ChangeMeta, [][]int, error) {
	actorCol := columnar.NewRLEDecoder(dir.Slice(columnar.ColDocActor), false)
	seqCol := columnar.NewDeltaDecoder(dir.Slice(columnar.ColDocSeq))
	maxOpCol := columnar.NewDeltaDecoder(dir.Slice(columnar.ColDocMaxOp))
	timeCol := columnar.NewDeltaDecoder(dir.Slice(columnar.ColDocTime))
	msgCol := columnar.NewRLEDecoder(dir.Slice(columnar.ColDocMessage), true)
	depsNumCol := columnar.NewRLEDecoder(dir.Slice(columnar.ColDocDepsNum), false)
	depsIdxCol := columnar.NewDeltaDecoder(dir.Slice(columnar.ColDocDepsIdx))
	extraCol := columnar.NewValueDecoder(dir.Slice(columnar.ColDocExtraLen), dir.Slice(columnar.ColDocExtraRaw))

	var out []ChangeMeta
	var depsIdx [][]int
	for pos := 0; ; pos++ {
		actorElem, actorNull, done, err := actorCol.Next()
		if err != nil {
			return nil, nil, encodingErrWrap("reading change actor", err)
		}
		if done {
			break
		}
		if actorNull {
			return nil, nil, encodingErr("change actor must not be null")
		}
		a, ok := actors.At(int(actorElem.U))
		if !ok {
			return nil, nil, encodingErr("change actor index out of range")
		}

		seq, seqNull, seqDone, err := seqCol.Next()
		if err != nil {
			return nil, nil, encodingErrWrap("reading change seq", err)
		}
		maxOp, maxOpNull, maxOpDone, err := maxOpCol.Next()
		if err != nil {
			return nil, nil, encodingErrWrap("reading change max_op", err)
		}
		t, tNull, tDone, err := timeCol.Next()
		if err != nil {
			return nil, nil, encodingErrWrap("reading change time", err)
		}
		msgElem, msgNull, msgDone, err := msgCol.Next()
		if err != nil {
			return nil, nil, encodingErrWrap("reading change message", err)
		}
		depsNumElem, depsNumNull, depsNumDone, err := depsNumCol.Next()
		if err != nil {
			return nil, nil, encodingErrWrap("reading change deps count", err)
		}
		extraVal, extraNull, extraDone, err := extraCol.Next()
		if err != nil {
			return nil, nil, encodingErrWrap("reading change extra bytes", err)
		}
		if seqDone || maxOpDone || tDone || msgDone || depsNumDone || extraDone {
			return nil, nil, encodingErr("change-metadata column shorter than actor column")
		}
		if seqNull || maxOpNull || tNull || depsNumNull {
			return nil, nil, encodingErr("change-metadata column entry must not be null")
		}

		var message *string
		if !msgNull {
			s := msgElem.S
			message = &s
		}

		if extraNull || extraVal.Type != columnar.ValueBytes {
			return nil, nil, encodingErr("change extra bytes column entry has the wrong value type")
		}
		extraBytes := append([]byte(nil), extraVal.Raw...)

		n := int(depsNumElem.U)
		idxs := make([]int, n)
		for i := 0; i < n; i++ {
			idxVal, idxNull, idxDone, err := depsIdxCol.Next()
			if err != nil {
				return nil, nil, encodingErrWrap("reading change dep index", err)
			}
			if idxDone || idxNull {
				return nil, nil, encodingErr("deps_index column shorter than declared count")
			}
			idx := int(idxVal)
			if idx < 0 || idx >= pos {
				return nil, nil, encodingErr("deps_index does not reference an earlier change")
			}
			idxs[i] = idx
		}

		out = append(out, ChangeMeta{
			Actor:      a,
			Seq:        uint64(seq),
			MaxOp:      uint64(maxOp),
			Time:       t,
			Message:    message,
			ExtraBytes: extraBytes,
		})
		depsIdx = append(depsIdx, idxs)
	}
	return out, depsIdx, nil
}

func decodeOps(dir *columnar.Directory, actors *change.DecodedActorTable) ([]DocOp, error) {
	idActor := columnar.NewRLEDecoder(dir.Slice(columnar.ColIDActor), false)
	idCtr := columnar.NewDeltaDecoder(dir.Slice(columnar.ColIDCtr))
	objActor := columnar.NewRLEDecoder(dir.Slice(columnar.ColObjActor), false)
	objCtr := columnar.NewRLEDecoder(dir.Slice(columnar.ColObjCtr), false)
	keyActor := columnar.NewRLEDecoder(dir.Slice(columnar.ColKeyActor), false)
	keyCtr := columnar.NewDeltaDecoder(dir.Slice(columnar.ColKeyCtr))
	keyStr := columnar.NewRLEDecoder(dir.Slice(columnar.ColKeyStr), true)
	insertCol := columnar.NewBooleanDecoder(dir.Slice(columnar.ColInsert))
	actionCol := columnar.NewRLEDecoder(dir.Slice(columnar.ColAction), false)
	valCol := columnar.NewValueDecoder(dir.Slice(columnar.ColValLen), dir.Slice(columnar.ColValRaw))
	refActor := columnar.NewRLEDecoder(dir.Slice(columnar.ColRefActor), false)
	refCtr := columnar.NewRLEDecoder(dir.Slice(columnar.ColRefCtr), false)
	succList := change.NewOpIDListDecoder(
		dir.Slice(columnar.ColSuccNum), dir.Slice(columnar.ColSuccActor), dir.Slice(columnar.ColSuccCtr),
	)

	var out []DocOp
	for {
		idActorElem, idActorNull, idDone, err := idActor.Next()
		if err != nil {
			return nil, encodingErrWrap("reading op id actor", err)
		}
		if idDone {
			break
		}
		if idActorNull {
			return nil, encodingErr("op id actor must not be null")
		}
		idCtrVal, idCtrNull, idCtrDone, err := idCtr.Next()
		if err != nil {
			return nil, encodingErrWrap("reading op id ctr", err)
		}
		if idCtrDone || idCtrNull {
			return nil, encodingErr("op id ctr column shorter than op id actor column")
		}
		a, ok := actors.At(int(idActorElem.U))
		if !ok {
			return nil, encodingErr("op id actor index out of range")
		}
		id := change.OpID{Counter: uint64(idCtrVal), Actor: a}

		actionElem, actionNull, aDone, err := actionCol.Next()
		if err != nil {
			return nil, encodingErrWrap("reading action", err)
		}
		if aDone || actionNull {
			return nil, encodingErr("action column shorter than op id column")
		}
		action := change.Action(actionElem.U)

		insertVal, insertDone, err := insertCol.Next()
		if err != nil {
			return nil, encodingErrWrap("reading insert", err)
		}
		if insertDone {
			return nil, encodingErr("insert column shorter than op id column")
		}

		obj, err := readObj(objActor, objCtr, actors)
		if err != nil {
			return nil, err
		}
		key, err := readKey(keyActor, keyCtr, keyStr, actors)
		if err != nil {
			return nil, err
		}

		raw, valNull, valDone, err := valCol.Next()
		if err != nil {
			return nil, encodingErrWrap("reading value", err)
		}
		if valDone {
			return nil, encodingErr("value column shorter than op id column")
		}
		if valNull {
			raw = columnar.RawValue{Type: columnar.ValueNull}
		}

		refActorElem, refActorNull, refDone, err := refActor.Next()
		if err != nil {
			return nil, encodingErrWrap("reading ref actor", err)
		}
		refCtrElem, refCtrNull, refCtrDone, err := refCtr.Next()
		if err != nil {
			return nil, encodingErrWrap("reading ref ctr", err)
		}
		if refDone || refCtrDone {
			return nil, encodingErr("ref column shorter than op id column")
		}
		if refActorNull != refCtrNull {
			return nil, encodingErr("ref actor/ctr nullness mismatch")
		}
		var ref *change.OpID
		if !refActorNull {
			ra, ok := actors.At(int(refActorElem.U))
			if !ok {
				return nil, encodingErr("ref actor index out of range")
			}
			ref = &change.OpID{Counter: refCtrElem.U, Actor: ra}
		}

		value, err := change.AssembleValue(action, raw, ref)
		if err != nil {
			return nil, err
		}

		succ, succDone, err := succList.Next(actors)
		if err != nil {
			return nil, err
		}
		if succDone {
			return nil, encodingErr("succ column shorter than op id column")
		}

		out = append(out, DocOp{
			ID:     id,
			Action: action,
			Obj:    obj,
			Key:    key,
			Insert: insertVal,
			Value:  value,
			Succ:   succ,
		})
	}
	return out, nil
}

func readObj(actorCol, ctrCol *columnar.RLEDecoder, actors *change.DecodedActorTable) (change.Obj, error) {
	actorElem, actorNull, aDone, err := actorCol.Next()
	if err != nil {
		return change.Obj{}, encodingErrWrap("reading obj actor", err)
	}
	ctrElem, ctrNull, cDone, err := ctrCol.Next()
	if err != nil {
		return change.Obj{}, encodingErrWrap("reading obj ctr", err)
	}
	if aDone || cDone {
		return change.Obj{}, encodingErr("obj column shorter than op id column")
	}
	if actorNull && ctrNull {
		return change.Obj{Root: true}, nil
	}
	if actorNull != ctrNull {
		return change.Obj{}, encodingErr("obj actor/ctr nullness mismatch")
	}
	a, ok := actors.At(int(actorElem.U))
	if !ok {
		return change.Obj{}, encodingErr("obj actor index out of range")
	}
	return change.Obj{ID: change.OpID{Counter: ctrElem.U, Actor: a}}, nil
}

func readKey(actorCol *columnar.RLEDecoder, ctrCol *columnar.DeltaDecoder, strCol *columnar.RLEDecoder, actors *change.DecodedActorTable) (change.Key, error) {
	actorElem, actorNull, aDone, err := actorCol.Next()
	if err != nil {
		return change.Key{}, encodingErrWrap("reading key actor", err)
	}
	ctrVal, ctrNull, cDone, err := ctrCol.Next()
	if err != nil {
		return change.Key{}, encodingErrWrap("reading key ctr", err)
	}
	strElem, strNull, sDone, err := strCol.Next()
	if err != nil {
		return change.Key{}, encodingErrWrap("reading key str", err)
	}
	if aDone || cDone || sDone {
		return change.Key{}, encodingErr("key column shorter than op id column")
	}
	switch {
	case actorNull && ctrNull && !strNull:
		return change.Key{Kind: change.KeyMap, MapKey: strElem.S}, nil
	case actorNull && !ctrNull && ctrVal == 0 && strNull:
		return change.Key{Kind: change.KeyListHead}, nil
	case !actorNull && !ctrNull && strNull:
		a, ok := actors.At(int(actorElem.U))
		if !ok {
			return change.Key{}, encodingErr("key actor index out of range")
		}
		return change.Key{Kind: change.KeyElem, Elem: change.OpID{Counter: uint64(ctrVal), Actor: a}}, nil
	default:
		return change.Key{}, encodingErr("key has an unrecognized shape")
	}
}

// ToChanges reconstructs the logical changes packed into the document, in
// document order. StartOp is derived per actor (MaxOp is the only op-range
// bound stored on the wire, §4.10); operations are reattributed to their
// change by matching (actor, counter) against that derived [StartOp,
// MaxOp] range, and each op's Pred is recovered by inverting every other
// op's Succ list.
func (d *Decoded) ToChanges() ([]*change.Change, error) {
	predMap := make(map[string][]change.OpID)
	for _, op := range d.Ops {
		for _, s := range op.Succ {
			k := opIDKey(s)
			predMap[k] = append(predMap[k], op.ID)
		}
	}
	for k, preds := range predMap {
		sort.Slice(preds, func(i, j int) bool {
			if preds[i].Counter != preds[j].Counter {
				return preds[i].Counter < preds[j].Counter
			}
			return string(preds[i].Actor) < string(preds[j].Actor)
		})
		predMap[k] = preds
	}

	opsByActor := make(map[string][]*DocOp)
	for i := range d.Ops {
		op := &d.Ops[i]
		k := string(op.ID.Actor)
		opsByActor[k] = append(opsByActor[k], op)
	}
	for _, ops := range opsByActor {
		sort.Slice(ops, func(i, j int) bool { return ops[i].ID.Counter < ops[j].ID.Counter })
	}

	changesByActor := make(map[string][]int)
	for i, cm := range d.Meta {
		k := string(cm.Actor)
		changesByActor[k] = append(changesByActor[k], i)
	}
	for _, idxs := range changesByActor {
		sort.Slice(idxs, func(i, j int) bool { return d.Meta[idxs[i]].Seq < d.Meta[idxs[j]].Seq })
	}

	startOp := make([]uint64, len(d.Meta))
	opsForChange := make([][]change.Op, len(d.Meta))
	for actorKey, idxs := range changesByActor {
		ops := opsByActor[actorKey]
		next := 0
		prevMax := uint64(0)
		for _, mi := range idxs {
			cm := d.Meta[mi]
			so := prevMax + 1
			startOp[mi] = so
			expected := int64(cm.MaxOp) - int64(so) + 1
			if expected < 0 {
				return nil, encodingErr("change max_op precedes its derived start_op")
			}
			var built []change.Op
			for next < len(ops) && ops[next].ID.Counter <= cm.MaxOp {
				docOp := ops[next]
				built = append(built, change.Op{
					Action: docOp.Action,
					Obj:    docOp.Obj,
					Key:    docOp.Key,
					Insert: docOp.Insert,
					Value:  docOp.Value,
					Pred:   predMap[opIDKey(docOp.ID)],
				})
				next++
			}
			if int64(len(built)) != expected {
				return nil, encodingErr("document op assignment inconsistent with change max_op")
			}
			opsForChange[mi] = built
			prevMax = cm.MaxOp
		}
	}

	changes := make([]*change.Change, len(d.Meta))
	hashes := make([]change.Hash, len(d.Meta))
	for i, cm := range d.Meta {
		deps := make([]change.Hash, len(d.depsIdx[i]))
		for j, idx := range d.depsIdx[i] {
			deps[j] = hashes[idx]
		}
		c := &change.Change{
			Actor:      cm.Actor,
			Seq:        cm.Seq,
			StartOp:    startOp[i],
			Time:       cm.Time,
			Message:    cm.Message,
			Deps:       deps,
			Operations: opsForChange[i],
			ExtraBytes: cm.ExtraBytes,
		}
		h, err := change.ComputeHash(c)
		if err != nil {
			return nil, err
		}
		changes[i] = c
		hashes[i] = h
	}
	return changes, nil
}
