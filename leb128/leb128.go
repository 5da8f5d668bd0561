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

// Package leb128 implements the scalar wire primitives the change codec
// builds on: unsigned and signed LEB128 varints, little-endian IEEE-754
// floats, and length-prefixed byte strings.
package leb128

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ErrTruncated is returned when a reader runs out of input mid-value.
var ErrTruncated = errors.New("leb128: truncated input")

// ErrOverflow is returned when a varint would not fit in 64 bits.
var ErrOverflow = errors.New("leb128: varint overflows 64 bits")

// Reader walks an in-memory buffer, tracking how many bytes the last
// primitive consumed so column decoders can verify declared lengths.
type Reader struct {
	buf      []byte
	pos      int
	lastRead int
}

// NewReader wraps buf for sequential decoding. The slice is not copied.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// LastRead returns the number of bytes consumed by the most recent Read*
// call, so a caller (e.g. the value column) can cross-check a declared
// length against what was actually decoded.
func (r *Reader) LastRead() int { return r.lastRead }

// Bytes returns the unread tail of the buffer without consuming it.
func (r *Reader) Bytes() []byte { return r.buf[r.pos:] }

func (r *Reader) readByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, ErrTruncated
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadUvarint reads an unsigned LEB128 integer.
func (r *Reader) ReadUvarint() (uint64, error) {
	start := r.pos
	var result uint64
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			r.pos = start
			return 0, err
		}
		if shift >= 64 {
			return 0, ErrOverflow
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			r.lastRead = r.pos - start
			return result, nil
		}
		shift += 7
	}
}

// ReadVarint reads a signed LEB128 integer, sign-extending from the final
// group's bit 6.
func (r *Reader) ReadVarint() (int64, error) {
	start := r.pos
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.readByte()
		if err != nil {
			r.pos = start
			return 0, err
		}
		if shift >= 64 {
			return 0, ErrOverflow
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	r.lastRead = r.pos - start
	return result, nil
}

// ReadBytes reads a LEB128 length prefix followed by that many raw bytes.
// The returned slice aliases the reader's backing array.
func (r *Reader) ReadBytes() ([]byte, error) {
	start := r.pos
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Len()) {
		return nil, ErrTruncated
	}
	out := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	r.lastRead = r.pos - start
	return out, nil
}

// ReadFixed reads exactly n raw bytes without any length prefix.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, ErrTruncated
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	r.lastRead = n
	return out, nil
}

// ReadFloat32 reads 4 little-endian bytes as an IEEE-754 single.
func (r *Reader) ReadFloat32() (float32, error) {
	b, err := r.ReadFixed(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadFloat64 reads 8 little-endian bytes as an IEEE-754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	b, err := r.ReadFixed(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// AppendUvarint appends an unsigned LEB128 encoding of v to buf.
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// AppendVarint appends a signed LEB128 encoding of v to buf.
func AppendVarint(buf []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// AppendBytes appends a LEB128 length prefix followed by p itself. An empty
// slice encodes to the single byte 0x00.
func AppendBytes(buf []byte, p []byte) []byte {
	buf = AppendUvarint(buf, uint64(len(p)))
	return append(buf, p...)
}

// AppendFloat32 appends the little-endian IEEE-754 encoding of v.
func AppendFloat32(buf []byte, v float32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	return append(buf, tmp[:]...)
}

// AppendFloat64 appends the little-endian IEEE-754 encoding of v.
func AppendFloat64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

// SizeUvarint returns the number of bytes AppendUvarint would emit for v.
func SizeUvarint(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
