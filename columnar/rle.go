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

// Elem is a self-describing element type an RLE column can carry: either a
// uint64 (actor indices, action codes) or a string (map keys).
type Elem struct {
	IsString bool
	U        uint64
	S        string
}

func UintElem(v uint64) Elem   { return Elem{U: v} }
func StringElem(v string) Elem { return Elem{IsString: true, S: v} }

func (e Elem) equal(o Elem) bool {
	if e.IsString != o.IsString {
		return false
	}
	if e.IsString {
		return e.S == o.S
	}
	return e.U == o.U
}

// RLEEncoder builds a run-length-encoded column as described in §4.2. This
// implementation always flushes a value change as a new run (never the
// distinct-literal span form); literal spans are a pure wire-size
// optimization the format allows but does not require, and the decoder
// below accepts both forms.
type RLEEncoder struct {
	buf        []byte
	runVal     Elem
	runLen     int
	haveRun    bool
	nullRun    int
	stringMode bool
}

// NewRLEEncoder starts an empty encoder. stringMode selects whether
// elements are written as length-prefixed strings or as uvarints.
func NewRLEEncoder(stringMode bool) *RLEEncoder {
	return &RLEEncoder{stringMode: stringMode}
}

// AppendNull appends a null element.
func (e *RLEEncoder) AppendNull() {
	if e.haveRun {
		e.flushRun()
	}
	e.nullRun++
}

// Append appends a non-null element.
func (e *RLEEncoder) Append(v Elem) {
	if e.nullRun > 0 {
		e.flushNulls()
	}
	if e.haveRun && e.runVal.equal(v) {
		e.runLen++
		return
	}
	if e.haveRun {
		e.flushRun()
	}
	e.runVal = v
	e.runLen = 1
	e.haveRun = true
}

func (e *RLEEncoder) flushRun() {
	e.buf = leb128.AppendVarint(e.buf, int64(e.runLen))
	e.buf = e.appendElem(e.runVal)
	e.haveRun = false
	e.runLen = 0
}

func (e *RLEEncoder) flushNulls() {
	e.buf = leb128.AppendVarint(e.buf, 0)
	e.buf = leb128.AppendUvarint(e.buf, uint64(e.nullRun))
	e.nullRun = 0
}

func (e *RLEEncoder) appendElem(v Elem) []byte {
	if e.stringMode {
		return leb128.AppendBytes(e.buf, []byte(v.S))
	}
	return leb128.AppendUvarint(e.buf, v.U)
}

// Finish flushes any pending run/null span and returns the finished column
// bytes. The encoder must not be used afterwards.
func (e *RLEEncoder) Finish() []byte {
	if e.haveRun {
		e.flushRun()
	}
	if e.nullRun > 0 {
		e.flushNulls()
	}
	return e.buf
}

// RLEDecoder reads elements written by RLEEncoder, or by any encoder using
// the literal-span form of the format.
type RLEDecoder struct {
	r          *leb128.Reader
	stringMode bool

	runRemaining  int
	runVal        Elem
	litRemaining  int
	nullRemaining int
}

// NewRLEDecoder constructs a decoder over a column's raw bytes.
func NewRLEDecoder(b []byte, stringMode bool) *RLEDecoder {
	return &RLEDecoder{r: leb128.NewReader(b), stringMode: stringMode}
}

// Next returns the next element, whether it is null, and whether the
// stream is exhausted (done==true means no element was produced).
func (d *RLEDecoder) Next() (val Elem, isNull bool, done bool, err error) {
	for d.nullRemaining == 0 && d.runRemaining == 0 && d.litRemaining == 0 {
		if d.r.Len() == 0 {
			return Elem{}, false, true, nil
		}
		count, err := d.r.ReadVarint()
		if err != nil {
			return Elem{}, false, false, errors.Wrap(err, "columnar: rle count")
		}
		switch {
		case count > 0:
			v, err := d.readElem()
			if err != nil {
				return Elem{}, false, false, err
			}
			d.runVal = v
			d.runRemaining = int(count)
		case count < 0:
			d.litRemaining = int(-count)
		default:
			n, err := d.r.ReadUvarint()
			if err != nil {
				return Elem{}, false, false, errors.Wrap(err, "columnar: rle null count")
			}
			d.nullRemaining = int(n)
		}
	}
	if d.nullRemaining > 0 {
		d.nullRemaining--
		return Elem{}, true, false, nil
	}
	if d.runRemaining > 0 {
		d.runRemaining--
		return d.runVal, false, false, nil
	}
	v, err := d.readElem()
	if err != nil {
		return Elem{}, false, false, err
	}
	d.litRemaining--
	return v, false, false, nil
}

func (d *RLEDecoder) readElem() (Elem, error) {
	if d.stringMode {
		b, err := d.r.ReadBytes()
		if err != nil {
			return Elem{}, errors.Wrap(err, "columnar: rle string elem")
		}
		return StringElem(string(b)), nil
	}
	v, err := d.r.ReadUvarint()
	if err != nil {
		return Elem{}, errors.Wrap(err, "columnar: rle uint elem")
	}
	return UintElem(v), nil
}
