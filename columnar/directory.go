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
	"sort"

	"github.com/pkg/errors"

	"github.com/erigontech/changecodec/leb128"
)

// ErrColumnOrder is returned when a column directory is not strictly
// ascending by id.
var ErrColumnOrder = errors.New("columnar: column ids out of order")

// ColData is one column's finished payload, tagged with its wire id.
type ColData struct {
	ColID uint32
	Bytes []byte
}

// Sort orders cols ascending by ColID, as the directory requires.
func Sort(cols []ColData) {
	sort.Slice(cols, func(i, j int) bool { return cols[i].ColID < cols[j].ColID })
}

// WriteDirectory appends the column directory and then the concatenated
// column payloads (in directory order) to buf. Empty columns are omitted,
// per §4.4. cols must already be sorted by ColID (see Sort).
func WriteDirectory(buf []byte, cols []ColData) []byte {
	nonEmpty := make([]ColData, 0, len(cols))
	for _, c := range cols {
		if len(c.Bytes) > 0 {
			nonEmpty = append(nonEmpty, c)
		}
	}
	buf = leb128.AppendUvarint(buf, uint64(len(nonEmpty)))
	for _, c := range nonEmpty {
		buf = leb128.AppendUvarint(buf, uint64(c.ColID))
		buf = leb128.AppendUvarint(buf, uint64(len(c.Bytes)))
	}
	for _, c := range nonEmpty {
		buf = append(buf, c.Bytes...)
	}
	return buf
}

// Directory maps a column id to its byte range within the chunk body that
// follows the directory itself (i.e. offsets are relative to the start of
// the payload region, not the start of the body).
type Directory struct {
	ranges  map[uint32][2]int
	order   []uint32
	payload []byte
}

// ReadDirectory parses a column directory from r and consumes the column
// payload region that follows it, returning a Directory whose Slice method
// addresses each column's bytes. r's position ends just past the whole
// column block (directory + payloads).
func ReadDirectory(r *leb128.Reader) (*Directory, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, errors.Wrap(err, "columnar: reading column count")
	}
	d := &Directory{ranges: make(map[uint32][2]int, n), order: make([]uint32, 0, n)}
	var lastID uint32
	var haveLast bool
	offset := 0
	type entry struct {
		id  uint32
		len int
	}
	entries := make([]entry, 0, n)
	for i := uint64(0); i < n; i++ {
		idv, err := r.ReadUvarint()
		if err != nil {
			return nil, errors.Wrap(err, "columnar: reading column id")
		}
		id := uint32(idv)
		if haveLast && id <= lastID {
			return nil, ErrColumnOrder
		}
		lastID = id
		haveLast = true
		lenv, err := r.ReadUvarint()
		if err != nil {
			return nil, errors.Wrap(err, "columnar: reading column length")
		}
		entries = append(entries, entry{id: id, len: int(lenv)})
	}
	for _, e := range entries {
		d.ranges[e.id] = [2]int{offset, offset + e.len}
		d.order = append(d.order, e.id)
		offset += e.len
	}
	// Consume the payload region itself so the caller's reader advances
	// past the whole column block.
	payload, err := r.ReadFixed(offset)
	if err != nil {
		return nil, errors.Wrap(err, "columnar: truncated column payload region")
	}
	d.payload = payload
	return d, nil
}

// Slice returns the payload bytes for id, or a nil slice if id was not
// present (an implicitly empty column, per §4.4).
func (d *Directory) Slice(id uint32) []byte {
	r, ok := d.ranges[id]
	if !ok {
		return nil
	}
	return d.payload[r[0]:r[1]]
}

// IDs returns the column ids present in the directory, in ascending order.
func (d *Directory) IDs() []uint32 { return d.order }
