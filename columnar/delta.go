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

// DeltaEncoder stores successive first differences of a signed integer
// sequence as RLE (§4.2). A null does not disturb the running reference:
// the next non-null value is still stored as a delta from the last real
// value seen, per the chosen resolution of the spec's open question on
// null handling (documented in DESIGN.md).
type DeltaEncoder struct {
	rle     *RLEEncoder
	last    int64
	started bool
}

// NewDeltaEncoder starts an empty encoder.
func NewDeltaEncoder() *DeltaEncoder {
	return &DeltaEncoder{rle: NewRLEEncoder(false)}
}

// Append appends a non-null signed value.
func (e *DeltaEncoder) Append(v int64) {
	var delta int64
	if e.started {
		delta = v - e.last
	} else {
		delta = v
	}
	e.last = v
	e.started = true
	e.rle.Append(UintElem(zigzagEncode(delta)))
}

// AppendNull appends a null; the running reference is unaffected.
func (e *DeltaEncoder) AppendNull() {
	e.rle.AppendNull()
}

// Finish returns the finished column bytes.
func (e *DeltaEncoder) Finish() []byte {
	return e.rle.Finish()
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// DeltaDecoder reads a column written by DeltaEncoder.
type DeltaDecoder struct {
	rle     *RLEDecoder
	last    int64
	started bool
}

// NewDeltaDecoder constructs a decoder over a column's raw bytes.
func NewDeltaDecoder(b []byte) *DeltaDecoder {
	return &DeltaDecoder{rle: NewRLEDecoder(b, false)}
}

// Next returns the next absolute value, whether it is null, and whether
// the stream is exhausted.
func (d *DeltaDecoder) Next() (val int64, isNull bool, done bool, err error) {
	elem, isNull, done, err := d.rle.Next()
	if err != nil || done || isNull {
		return 0, isNull, done, err
	}
	delta := zigzagDecode(elem.U)
	if d.started {
		d.last += delta
	} else {
		d.last = delta
		d.started = true
	}
	return d.last, false, false, nil
}
