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
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"

	"github.com/erigontech/changecodec/leb128"
)

// BooleanEncoder writes a boolean column as alternating run lengths,
// starting with the (possibly zero-length) run of false (§4.2).
type BooleanEncoder struct {
	buf     []byte
	runVal  bool
	runLen  uint64
	started bool
}

// NewBooleanEncoder starts an empty encoder.
func NewBooleanEncoder() *BooleanEncoder {
	return &BooleanEncoder{}
}

// Append appends one boolean value.
func (e *BooleanEncoder) Append(v bool) {
	if !e.started {
		e.started = true
		if v {
			// The wire format always opens with a false run; emit the
			// mandatory zero-length one before starting the true run.
			e.buf = leb128.AppendUvarint(e.buf, 0)
		}
		e.runVal = v
		e.runLen = 1
		return
	}
	if v == e.runVal {
		e.runLen++
		return
	}
	e.buf = leb128.AppendUvarint(e.buf, e.runLen)
	e.runVal = v
	e.runLen = 1
}

// Finish flushes the pending run and returns the finished column bytes.
func (e *BooleanEncoder) Finish() []byte {
	if !e.started {
		// No values at all: an empty column is a valid, entirely absent
		// stream per §4.4 (the directory simply omits it).
		return e.buf
	}
	e.buf = leb128.AppendUvarint(e.buf, e.runLen)
	return e.buf
}

// BooleanDecoder reads a column written by BooleanEncoder.
type BooleanDecoder struct {
	r         *leb128.Reader
	remaining uint64
	cur       bool
	primed    bool
}

// NewBooleanDecoder constructs a decoder over a column's raw bytes.
func NewBooleanDecoder(b []byte) *BooleanDecoder {
	return &BooleanDecoder{r: leb128.NewReader(b), cur: false}
}

// Next returns the next boolean and whether the stream is exhausted.
func (d *BooleanDecoder) Next() (val bool, done bool, err error) {
	for d.remaining == 0 {
		if d.r.Len() == 0 {
			return false, true, nil
		}
		n, err := d.r.ReadUvarint()
		if err != nil {
			return false, false, errors.Wrap(err, "columnar: boolean run length")
		}
		d.remaining = n
		if d.primed {
			d.cur = !d.cur
		}
		d.primed = true
	}
	d.remaining--
	return d.cur, false, nil
}

// Bitmap drains every remaining element of d and returns a roaring bitmap
// of the positions (0-based, relative to the first element read by this
// call) that were true. It is a derived convenience for collaborators that
// want set algebra over a boolean column without re-implementing the run
// walk (see SPEC_FULL.md's domain stack).
func (d *BooleanDecoder) Bitmap() (*roaring.Bitmap, error) {
	bm := roaring.New()
	var i uint32
	for {
		v, done, err := d.Next()
		if err != nil {
			return nil, err
		}
		if done {
			return bm, nil
		}
		if v {
			bm.Add(i)
		}
		i++
	}
}
