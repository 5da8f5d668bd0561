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

package columnar

import (
	"github.com/pkg/errors"

	"github.com/erigontech/changecodec/leb128"
)

// ValueType is the 4-bit tag of a value column entry (§4.2).
type ValueType byte

const (
	ValueNull      ValueType = 0
	ValueFalse     ValueType = 1
	ValueTrue      ValueType = 2
	ValueUint      ValueType = 3
	ValueInt       ValueType = 4
	ValueFloat     ValueType = 5
	ValueString    ValueType = 6
	ValueBytes     ValueType = 7
	ValueCounter   ValueType = 8
	ValueTimestamp ValueType = 9
	ValueCursor    ValueType = 10
	// 11-15 reserved-unknown, passed through opaquely.
)

// IsReservedUnknown reports whether t is in the forward-compatible range.
func (t ValueType) IsReservedUnknown() bool { return t >= 11 && t <= 15 }

// RawValue is the decoded contents of one value-column entry: a type tag
// plus the raw payload bytes exactly as they appeared on the wire (empty
// for the payload-less types). Reserved-unknown entries surface here
// rather than being rejected, so a chunk carrying them can still be
// re-encoded losslessly (§4.2's pass-through requirement).
type RawValue struct {
	Type ValueType
	Raw  []byte // for ValueFloat, length is 4 or 8.
}

// ErrValueLength is returned when a value entry's declared length does not
// match what its type requires (e.g. a float whose length is not 4 or 8).
var ErrValueLength = errors.New("columnar: value length mismatch")

// ValueEncoder writes the paired VAL_LEN/VAL_RAW columns.
type ValueEncoder struct {
	lenCol *RLEEncoder
	raw    []byte
}

// NewValueEncoder starts an empty encoder.
func NewValueEncoder() *ValueEncoder {
	return &ValueEncoder{lenCol: NewRLEEncoder(false)}
}

// Append appends one value entry.
func (e *ValueEncoder) Append(v RawValue) {
	lenField := (uint64(len(v.Raw)) << 4) | uint64(v.Type&0xf)
	e.lenCol.Append(UintElem(lenField))
	e.raw = append(e.raw, v.Raw...)
}

// Finish returns the finished (lenColumn, rawColumn) pair.
func (e *ValueEncoder) Finish() (lenCol []byte, rawCol []byte) {
	return e.lenCol.Finish(), e.raw
}

// ValueDecoder reads the paired VAL_LEN/VAL_RAW columns.
type ValueDecoder struct {
	lenCol *RLEDecoder
	raw    *leb128.Reader
}

// NewValueDecoder constructs a decoder over a column pair's raw bytes.
func NewValueDecoder(lenCol, rawCol []byte) *ValueDecoder {
	return &ValueDecoder{lenCol: NewRLEDecoder(lenCol, false), raw: leb128.NewReader(rawCol)}
}

// Next returns the next value entry, whether the stream is exhausted, and
// decode errors (truncated raw payload, etc).
func (d *ValueDecoder) Next() (val RawValue, isNull bool, done bool, err error) {
	elem, isNull, done, err := d.lenCol.Next()
	if err != nil || done || isNull {
		return RawValue{}, isNull, done, err
	}
	lenField := elem.U
	typ := ValueType(lenField & 0xf)
	length := int(lenField >> 4)
	switch typ {
	case ValueNull, ValueFalse, ValueTrue, ValueCursor:
		if length != 0 {
			return RawValue{}, false, false, ErrValueLength
		}
		return RawValue{Type: typ}, false, false, nil
	case ValueFloat:
		if length != 4 && length != 8 {
			return RawValue{}, false, false, ErrValueLength
		}
	}
	raw, err := d.raw.ReadFixed(length)
	if err != nil {
		return RawValue{}, false, false, errors.Wrap(err, "columnar: value raw payload")
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return RawValue{Type: typ, Raw: cp}, false, false, nil
}

// EncodeUint builds a RawValue for an unsigned integer.
func EncodeUint(v uint64) RawValue {
	return RawValue{Type: ValueUint, Raw: leb128.AppendUvarint(nil, v)}
}

// EncodeInt builds a RawValue for a signed integer.
func EncodeInt(v int64) RawValue {
	return RawValue{Type: ValueInt, Raw: leb128.AppendVarint(nil, v)}
}

// EncodeCounter builds a RawValue for a Counter scalar.
func EncodeCounter(v int64) RawValue {
	return RawValue{Type: ValueCounter, Raw: leb128.AppendVarint(nil, v)}
}

// EncodeTimestamp builds a RawValue for a Timestamp scalar.
func EncodeTimestamp(v int64) RawValue {
	return RawValue{Type: ValueTimestamp, Raw: leb128.AppendVarint(nil, v)}
}

// EncodeFloat32 builds a RawValue for an IEEE-754 single.
func EncodeFloat32(v float32) RawValue {
	return RawValue{Type: ValueFloat, Raw: leb128.AppendFloat32(nil, v)}
}

// EncodeFloat64 builds a RawValue for an IEEE-754 double.
func EncodeFloat64(v float64) RawValue {
	return RawValue{Type: ValueFloat, Raw: leb128.AppendFloat64(nil, v)}
}

// EncodeString builds a RawValue for a UTF-8 string.
func EncodeString(v string) RawValue {
	return RawValue{Type: ValueString, Raw: []byte(v)}
}

// EncodeBytes builds a RawValue for opaque bytes.
func EncodeBytes(v []byte) RawValue {
	return RawValue{Type: ValueBytes, Raw: append([]byte(nil), v...)}
}

// DecodeInt reinterprets a RawValue of type ValueInt/ValueCounter/
// ValueTimestamp as a signed integer.
func (v RawValue) DecodeInt() (int64, error) {
	r := leb128.NewReader(v.Raw)
	n, err := r.ReadVarint()
	if err != nil {
		return 0, errors.Wrap(err, "columnar: decoding signed value payload")
	}
	return n, nil
}

// DecodeUint reinterprets a RawValue of type ValueUint as an unsigned
// integer.
func (v RawValue) DecodeUint() (uint64, error) {
	r := leb128.NewReader(v.Raw)
	n, err := r.ReadUvarint()
	if err != nil {
		return 0, errors.Wrap(err, "columnar: decoding unsigned value payload")
	}
	return n, nil
}

// DecodeFloat reinterprets a RawValue of type ValueFloat, dispatching on
// the payload length (4 => float32 widened to float64, 8 => float64).
func (v RawValue) DecodeFloat() (float64, bool, error) {
	switch len(v.Raw) {
	case 4:
		r := leb128.NewReader(v.Raw)
		f, err := r.ReadFloat32()
		if err != nil {
			return 0, true, err
		}
		return float64(f), true, nil
	case 8:
		r := leb128.NewReader(v.Raw)
		f, err := r.ReadFloat64()
		if err != nil {
			return 0, false, err
		}
		return f, false, nil
	default:
		return 0, false, ErrValueLength
	}
}
