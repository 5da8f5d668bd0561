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

package change

import "github.com/erigontech/changecodec/columnar"

// OpColumnSet bundles the column encoders every operation contributes to
// regardless of whether it lives in a change (which pairs it with Pred)
// or a document (which pairs it with Succ and an explicit id): action,
// insert, obj, key and value/ref (§4.3, §4.7). It is exported so the
// document codec can reuse the exact same per-op field encoding instead
// of duplicating it.
type OpColumnSet struct {
	objActor *columnar.RLEEncoder
	objCtr   *columnar.RLEEncoder
	keyActor *columnar.RLEEncoder
	keyCtr   *columnar.DeltaEncoder
	keyStr   *columnar.RLEEncoder
	insert   *columnar.BooleanEncoder
	action   *columnar.RLEEncoder
	val      *columnar.ValueEncoder
	refActor *columnar.RLEEncoder
	refCtr   *columnar.RLEEncoder
}

// NewOpColumnSet starts a fresh, empty set of op columns.
func NewOpColumnSet() *OpColumnSet {
	return &OpColumnSet{
		objActor: columnar.NewRLEEncoder(false),
		objCtr:   columnar.NewRLEEncoder(false),
		keyActor: columnar.NewRLEEncoder(false),
		keyCtr:   columnar.NewDeltaEncoder(),
		keyStr:   columnar.NewRLEEncoder(true),
		insert:   columnar.NewBooleanEncoder(),
		action:   columnar.NewRLEEncoder(false),
		val:      columnar.NewValueEncoder(),
		refActor: columnar.NewRLEEncoder(false),
		refCtr:   columnar.NewRLEEncoder(false),
	}
}

// Append encodes one operation's common fields, resolving actor
// references against actors (which may grow as a result, §4.7 step 4).
func (s *OpColumnSet) Append(op Op, actors *ActorTable) error {
	s.action.Append(columnar.UintElem(uint64(op.Action)))
	s.insert.Append(op.Insert)

	if op.Obj.Root {
		s.objActor.AppendNull()
		s.objCtr.AppendNull()
	} else {
		s.objActor.Append(columnar.UintElem(uint64(actors.Index(op.Obj.ID.Actor))))
		s.objCtr.Append(columnar.UintElem(op.Obj.ID.Counter))
	}

	switch op.Key.Kind {
	case KeyMap:
		s.keyActor.AppendNull()
		s.keyCtr.AppendNull()
		s.keyStr.Append(columnar.StringElem(op.Key.MapKey))
	case KeyListHead:
		s.keyActor.AppendNull()
		s.keyCtr.Append(0)
		s.keyStr.AppendNull()
	case KeyElem:
		s.keyActor.Append(columnar.UintElem(uint64(actors.Index(op.Key.Elem.Actor))))
		s.keyCtr.Append(int64(op.Key.Elem.Counter))
		s.keyStr.AppendNull()
	default:
		return invalidChange("operation key has an unrecognized shape")
	}

	raw, ref, err := encodeOpValue(op)
	if err != nil {
		return err
	}
	s.val.Append(raw)
	if ref != nil {
		s.refActor.Append(columnar.UintElem(uint64(actors.Index(ref.Actor))))
		s.refCtr.Append(columnar.UintElem(ref.Counter))
	} else {
		s.refActor.AppendNull()
		s.refCtr.AppendNull()
	}
	return nil
}

// Finish returns the finished obj/key/insert/action/value/ref columns,
// tagged with their wire ids. Pred/Succ/Id are the caller's concern since
// their column groups (and presence) differ between a change and a
// document.
func (s *OpColumnSet) Finish() []columnar.ColData {
	valLen, valRaw := s.val.Finish()
	return []columnar.ColData{
		{ColID: columnar.ColObjActor, Bytes: s.objActor.Finish()},
		{ColID: columnar.ColObjCtr, Bytes: s.objCtr.Finish()},
		{ColID: columnar.ColKeyActor, Bytes: s.keyActor.Finish()},
		{ColID: columnar.ColKeyCtr, Bytes: s.keyCtr.Finish()},
		{ColID: columnar.ColKeyStr, Bytes: s.keyStr.Finish()},
		{ColID: columnar.ColInsert, Bytes: s.insert.Finish()},
		{ColID: columnar.ColAction, Bytes: s.action.Finish()},
		{ColID: columnar.ColValLen, Bytes: valLen},
		{ColID: columnar.ColValRaw, Bytes: valRaw},
		{ColID: columnar.ColRefActor, Bytes: s.refActor.Finish()},
		{ColID: columnar.ColRefCtr, Bytes: s.refCtr.Finish()},
	}
}

func encodeOpValue(op Op) (columnar.RawValue, *OpID, error) {
	switch op.Action {
	case ActionDel, ActionMakeMap, ActionMakeList, ActionMakeText, ActionMakeTable:
		if op.Value != nil && op.Value.Kind != ScalarNull {
			return columnar.RawValue{}, nil, invalidChange(op.Action.String() + " must not carry a value")
		}
		return columnar.RawValue{Type: columnar.ValueNull}, nil, nil
	case ActionInc:
		if op.Value == nil || op.Value.Kind != ScalarInt {
			return columnar.RawValue{}, nil, invalidChange("inc requires an integer value")
		}
		return columnar.EncodeInt(op.Value.Int), nil, nil
	case ActionSet:
		if op.Value == nil {
			return columnar.RawValue{}, nil, invalidChange("set requires a value")
		}
		return scalarToRaw(*op.Value)
	default:
		return columnar.RawValue{}, nil, invalidChange("unrecognized action")
	}
}

func scalarToRaw(v Scalar) (columnar.RawValue, *OpID, error) {
	switch v.Kind {
	case ScalarNull:
		return columnar.RawValue{Type: columnar.ValueNull}, nil, nil
	case ScalarBool:
		if v.Bool {
			return columnar.RawValue{Type: columnar.ValueTrue}, nil, nil
		}
		return columnar.RawValue{Type: columnar.ValueFalse}, nil, nil
	case ScalarUint:
		return columnar.EncodeUint(v.Uint), nil, nil
	case ScalarInt:
		return columnar.EncodeInt(v.Int), nil, nil
	case ScalarF32:
		return columnar.EncodeFloat32(v.F32), nil, nil
	case ScalarF64:
		return columnar.EncodeFloat64(v.F64), nil, nil
	case ScalarCounter:
		return columnar.EncodeCounter(v.Int), nil, nil
	case ScalarTimestamp:
		return columnar.EncodeTimestamp(v.Int), nil, nil
	case ScalarString:
		return columnar.EncodeString(v.Str), nil, nil
	case ScalarBytes:
		return columnar.EncodeBytes(v.Bytes), nil, nil
	case ScalarCursor:
		id := v.Cursor
		return columnar.RawValue{Type: columnar.ValueCursor}, &id, nil
	case ScalarUnknown:
		return columnar.RawValue{Type: columnar.ValueType(v.UnknownTag), Raw: v.UnknownRaw}, nil, nil
	default:
		return columnar.RawValue{}, nil, invalidChange("unrecognized scalar kind")
	}
}

// OpIDListColumns encodes a per-op list of OpIDs (Pred in a change, Succ
// in a document): a cardinality column plus actor/counter columns whose
// counters are delta-encoded across the whole stream, not reset per
// operation (§4.6 rule 5).
type OpIDListColumns struct {
	num   *columnar.RLEEncoder
	actor *columnar.RLEEncoder
	ctr   *columnar.DeltaEncoder
}

// NewOpIDListColumns starts a fresh, empty set of columns.
func NewOpIDListColumns() *OpIDListColumns {
	return &OpIDListColumns{
		num:   columnar.NewRLEEncoder(false),
		actor: columnar.NewRLEEncoder(false),
		ctr:   columnar.NewDeltaEncoder(),
	}
}

// Append encodes one operation's OpID list.
func (c *OpIDListColumns) Append(ids []OpID, actors *ActorTable) {
	c.num.Append(columnar.UintElem(uint64(len(ids))))
	for _, id := range ids {
		c.actor.Append(columnar.UintElem(uint64(actors.Index(id.Actor))))
		c.ctr.Append(int64(id.Counter))
	}
}

// Finish returns the finished (num, actor, ctr) column triple.
func (c *OpIDListColumns) Finish() (num, actor, ctr []byte) {
	return c.num.Finish(), c.actor.Finish(), c.ctr.Finish()
}

// OpIDListDecoder reads a per-op OpID list column triple written by
// OpIDListColumns: a change's Pred list or a document's Succ list.
type OpIDListDecoder struct {
	num   *columnar.RLEDecoder
	actor *columnar.RLEDecoder
	ctr   *columnar.DeltaDecoder
}

// NewOpIDListDecoder constructs a decoder over a column triple's raw bytes.
func NewOpIDListDecoder(num, actor, ctr []byte) *OpIDListDecoder {
	return &OpIDListDecoder{
		num:   columnar.NewRLEDecoder(num, false),
		actor: columnar.NewRLEDecoder(actor, false),
		ctr:   columnar.NewDeltaDecoder(ctr),
	}
}

// Next reads the next operation's OpID list, resolving actor indices
// against actors. done reports whether the cardinality column itself was
// already exhausted (the caller decides whether that is expected).
func (d *OpIDListDecoder) Next(actors *DecodedActorTable) (ids []OpID, done bool, err error) {
	numElem, numNull, numDone, err := d.num.Next()
	if err != nil {
		return nil, false, encodingErrWrap("reading opid list count", err)
	}
	if numDone {
		return nil, true, nil
	}
	if numNull {
		return nil, false, encodingErr("opid list count must not be null")
	}
	n := int(numElem.U)
	if n == 0 {
		return nil, false, nil
	}
	out := make([]OpID, n)
	for i := 0; i < n; i++ {
		actorElem, actorNull, aDone, err := d.actor.Next()
		if err != nil {
			return nil, false, encodingErrWrap("reading opid list actor", err)
		}
		ctrVal, ctrNull, cDone, err := d.ctr.Next()
		if err != nil {
			return nil, false, encodingErrWrap("reading opid list ctr", err)
		}
		if aDone || cDone || actorNull || ctrNull {
			return nil, false, encodingErr("opid list actor/ctr column shorter than declared count")
		}
		a, ok := actors.At(int(actorElem.U))
		if !ok {
			return nil, false, encodingErr("opid list actor index out of range")
		}
		out[i] = OpID{Counter: uint64(ctrVal), Actor: a}
	}
	return out, false, nil
}
