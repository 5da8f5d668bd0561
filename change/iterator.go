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

// OperationIterator fuses the per-op column decoders into assembled Op
// values, one per next() call (§4.6). It is single-pass and forward-only;
// call Decoded.Iterator again to restart from the beginning.
type OperationIterator struct {
	actors *DecodedActorTable

	objActor *columnar.RLEDecoder
	objCtr   *columnar.RLEDecoder
	keyActor *columnar.RLEDecoder
	keyCtr   *columnar.DeltaDecoder
	keyStr   *columnar.RLEDecoder
	insert   *columnar.BooleanDecoder
	action   *columnar.RLEDecoder
	val      *columnar.ValueDecoder
	refActor *columnar.RLEDecoder
	refCtr   *columnar.RLEDecoder
	predList *OpIDListDecoder
}

// Iterator builds an OperationIterator over d's column directory.
func (d *Decoded) Iterator() *OperationIterator {
	dir := d.Directory
	valLen, valRaw := dir.Slice(columnar.ColValLen), dir.Slice(columnar.ColValRaw)
	return &OperationIterator{
		actors:   d.Actors,
		objActor: columnar.NewRLEDecoder(dir.Slice(columnar.ColObjActor), false),
		objCtr:   columnar.NewRLEDecoder(dir.Slice(columnar.ColObjCtr), false),
		keyActor: columnar.NewRLEDecoder(dir.Slice(columnar.ColKeyActor), false),
		keyCtr:   columnar.NewDeltaDecoder(dir.Slice(columnar.ColKeyCtr)),
		keyStr:   columnar.NewRLEDecoder(dir.Slice(columnar.ColKeyStr), true),
		insert:   columnar.NewBooleanDecoder(dir.Slice(columnar.ColInsert)),
		action:   columnar.NewRLEDecoder(dir.Slice(columnar.ColAction), false),
		val:      columnar.NewValueDecoder(valLen, valRaw),
		refActor: columnar.NewRLEDecoder(dir.Slice(columnar.ColRefActor), false),
		refCtr:   columnar.NewRLEDecoder(dir.Slice(columnar.ColRefCtr), false),
		predList: NewOpIDListDecoder(
			dir.Slice(columnar.ColPredNum), dir.Slice(columnar.ColPredActor), dir.Slice(columnar.ColPredCtr),
		),
	}
}

// Next assembles the next operation, or ok=false once the action column
// (the column that defines change-of-change-end, §4.6 rule 1) is
// exhausted.
func (it *OperationIterator) Next() (Op, bool, error) {
	actionElem, actionNull, done, err := it.action.Next()
	if err != nil {
		return Op{}, false, encodingErrWrap("reading action", err)
	}
	if done {
		return Op{}, false, nil
	}
	if actionNull {
		return Op{}, false, encodingErr("action column entry must not be null")
	}
	action := Action(actionElem.U)

	insertVal, insertDone, err := it.insert.Next()
	if err != nil {
		return Op{}, false, encodingErrWrap("reading insert", err)
	}
	if insertDone {
		return Op{}, false, encodingErr("insert column shorter than action column")
	}

	obj, err := it.readObj()
	if err != nil {
		return Op{}, false, err
	}
	key, err := it.readKey()
	if err != nil {
		return Op{}, false, err
	}
	pred, err := it.readPred()
	if err != nil {
		return Op{}, false, err
	}

	raw, valNull, valDone, err := it.val.Next()
	if err != nil {
		return Op{}, false, encodingErrWrap("reading value", err)
	}
	if valDone {
		return Op{}, false, encodingErr("value column shorter than action column")
	}
	if valNull {
		raw = columnar.RawValue{Type: columnar.ValueNull}
	}

	refActorElem, refActorNull, refDone, err := it.refActor.Next()
	if err != nil {
		return Op{}, false, encodingErrWrap("reading ref actor", err)
	}
	refCtrElem, refCtrNull, refCtrDone, err := it.refCtr.Next()
	if err != nil {
		return Op{}, false, encodingErrWrap("reading ref ctr", err)
	}
	if refDone || refCtrDone {
		return Op{}, false, encodingErr("ref column shorter than action column")
	}
	var ref *OpID
	if refActorNull != refCtrNull {
		return Op{}, false, encodingErr("ref actor/ctr nullness mismatch")
	}
	if !refActorNull {
		a, ok := it.actors.At(int(refActorElem.U))
		if !ok {
			return Op{}, false, encodingErr("ref actor index out of range")
		}
		ref = &OpID{Counter: refCtrElem.U, Actor: a}
	}

	value, err := AssembleValue(action, raw, ref)
	if err != nil {
		return Op{}, false, err
	}

	return Op{
		Action: action,
		Obj:    obj,
		Key:    key,
		Insert: insertVal,
		Value:  value,
		Pred:   pred,
	}, true, nil
}

func (it *OperationIterator) readObj() (Obj, error) {
	actorElem, actorNull, aDone, err := it.objActor.Next()
	if err != nil {
		return Obj{}, encodingErrWrap("reading obj actor", err)
	}
	ctrElem, ctrNull, cDone, err := it.objCtr.Next()
	if err != nil {
		return Obj{}, encodingErrWrap("reading obj ctr", err)
	}
	if aDone || cDone {
		return Obj{}, encodingErr("obj column shorter than action column")
	}
	if actorNull && ctrNull {
		return Obj{Root: true}, nil
	}
	if actorNull != ctrNull {
		return Obj{}, encodingErr("obj actor/ctr nullness mismatch")
	}
	a, ok := it.actors.At(int(actorElem.U))
	if !ok {
		return Obj{}, encodingErr("obj actor index out of range")
	}
	return Obj{ID: OpID{Counter: ctrElem.U, Actor: a}}, nil
}

func (it *OperationIterator) readKey() (Key, error) {
	actorElem, actorNull, aDone, err := it.keyActor.Next()
	if err != nil {
		return Key{}, encodingErrWrap("reading key actor", err)
	}
	ctrVal, ctrNull, cDone, err := it.keyCtr.Next()
	if err != nil {
		return Key{}, encodingErrWrap("reading key ctr", err)
	}
	strElem, strNull, sDone, err := it.keyStr.Next()
	if err != nil {
		return Key{}, encodingErrWrap("reading key str", err)
	}
	if aDone || cDone || sDone {
		return Key{}, encodingErr("key column shorter than action column")
	}
	switch {
	case actorNull && ctrNull && !strNull:
		return Key{Kind: KeyMap, MapKey: strElem.S}, nil
	case actorNull && !ctrNull && ctrVal == 0 && strNull:
		return Key{Kind: KeyListHead}, nil
	case !actorNull && !ctrNull && strNull:
		a, ok := it.actors.At(int(actorElem.U))
		if !ok {
			return Key{}, encodingErr("key actor index out of range")
		}
		return Key{Kind: KeyElem, Elem: OpID{Counter: uint64(ctrVal), Actor: a}}, nil
	default:
		return Key{}, encodingErr("key has an unrecognized shape")
	}
}

func (it *OperationIterator) readPred() ([]OpID, error) {
	pred, done, err := it.predList.Next(it.actors)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, encodingErr("pred column shorter than action column")
	}
	return pred, nil
}

// AssembleValue applies the §4.6 assembly rules for the (value, ref) pair
// given the operation's action. Exported so the document codec, which
// decodes the same value/ref column shapes for its doc-op group, does not
// have to reimplement the per-action rules.
func AssembleValue(action Action, raw columnar.RawValue, ref *OpID) (*Scalar, error) {
	switch action {
	case ActionDel, ActionMakeMap, ActionMakeList, ActionMakeText, ActionMakeTable:
		if raw.Type != columnar.ValueNull || ref != nil {
			return nil, encodingErr(action.String() + " must carry a null value and no ref")
		}
		return nil, nil
	case ActionInc:
		if ref != nil {
			return nil, encodingErr("inc must not carry a ref")
		}
		n, err := raw.DecodeInt()
		if err != nil {
			return nil, encodingErrWrap("inc value is not a signed integer", err)
		}
		return &Scalar{Kind: ScalarInt, Int: n}, nil
	case ActionSet:
		return RawToScalar(raw, ref)
	default:
		return nil, encodingErr("unrecognized action")
	}
}

// RawToScalar inverts scalarToRaw, reassembling a Set operation's value
// from its decoded (value, ref) column pair. Exported for the same reason
// as AssembleValue.
func RawToScalar(raw columnar.RawValue, ref *OpID) (*Scalar, error) {
	switch raw.Type {
	case columnar.ValueCursor:
		if ref == nil {
			return nil, encodingErr("cursor value without a ref")
		}
		return &Scalar{Kind: ScalarCursor, Cursor: *ref}, nil
	case columnar.ValueNull:
		if ref != nil {
			return nil, encodingErr("null value must not carry a ref")
		}
		return &Scalar{Kind: ScalarNull}, nil
	case columnar.ValueFalse, columnar.ValueTrue:
		if ref != nil {
			return nil, encodingErr("bool value must not carry a ref")
		}
		return &Scalar{Kind: ScalarBool, Bool: raw.Type == columnar.ValueTrue}, nil
	case columnar.ValueUint:
		if ref != nil {
			return nil, encodingErr("uint value must not carry a ref")
		}
		n, err := raw.DecodeUint()
		if err != nil {
			return nil, encodingErrWrap("decoding uint value", err)
		}
		return &Scalar{Kind: ScalarUint, Uint: n}, nil
	case columnar.ValueInt:
		if ref != nil {
			return nil, encodingErr("int value must not carry a ref")
		}
		n, err := raw.DecodeInt()
		if err != nil {
			return nil, encodingErrWrap("decoding int value", err)
		}
		return &Scalar{Kind: ScalarInt, Int: n}, nil
	case columnar.ValueCounter:
		if ref != nil {
			return nil, encodingErr("counter value must not carry a ref")
		}
		n, err := raw.DecodeInt()
		if err != nil {
			return nil, encodingErrWrap("decoding counter value", err)
		}
		return &Scalar{Kind: ScalarCounter, Int: n}, nil
	case columnar.ValueTimestamp:
		if ref != nil {
			return nil, encodingErr("timestamp value must not carry a ref")
		}
		n, err := raw.DecodeInt()
		if err != nil {
			return nil, encodingErrWrap("decoding timestamp value", err)
		}
		return &Scalar{Kind: ScalarTimestamp, Int: n}, nil
	case columnar.ValueFloat:
		if ref != nil {
			return nil, encodingErr("float value must not carry a ref")
		}
		f, is32, err := raw.DecodeFloat()
		if err != nil {
			return nil, encodingErrWrap("decoding float value", err)
		}
		if is32 {
			return &Scalar{Kind: ScalarF32, F32: float32(f)}, nil
		}
		return &Scalar{Kind: ScalarF64, F64: f}, nil
	case columnar.ValueString:
		if ref != nil {
			return nil, encodingErr("string value must not carry a ref")
		}
		return &Scalar{Kind: ScalarString, Str: string(raw.Raw)}, nil
	case columnar.ValueBytes:
		if ref != nil {
			return nil, encodingErr("bytes value must not carry a ref")
		}
		return &Scalar{Kind: ScalarBytes, Bytes: append([]byte(nil), raw.Raw...)}, nil
	default:
		if !raw.Type.IsReservedUnknown() {
			return nil, encodingErr("unrecognized value type")
		}
		if ref != nil {
			return nil, encodingErr("reserved-unknown value must not carry a ref")
		}
		return &Scalar{Kind: ScalarUnknown, UnknownTag: byte(raw.Type), UnknownRaw: append([]byte(nil), raw.Raw...)}, nil
	}
}
