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

import (
	"github.com/erigontech/changecodec/chunkio"
	"github.com/erigontech/changecodec/columnar"
	"github.com/erigontech/changecodec/leb128"
)

// Decoded is a parsed change chunk: the logical header fields plus the
// column directory needed to iterate its operations (§4.6) without
// materializing them all up front.
type Decoded struct {
	Hash    Hash
	Actor   ActorID
	Seq     uint64
	StartOp uint64
	Time    int64
	Message *string
	Deps    []Hash

	Actors     *DecodedActorTable
	Directory  *columnar.Directory
	ExtraBytes []byte
}

// Decode parses a single framed change chunk. raw must hold exactly one
// chunk (use chunkio.ParseChunks to split a multi-chunk buffer first).
func Decode(raw []byte) (*Decoded, error) {
	chunks, err := chunkio.ParseChunks(raw)
	if err != nil {
		return nil, err
	}
	if len(chunks) != 1 {
		return nil, encodingErr("expected exactly one chunk")
	}
	rc := chunks[0]
	if rc.Type != chunkio.ChunkTypeChange {
		return nil, encodingErr("chunk is not a change")
	}
	return DecodeBody(rc.Body, rc.Hash)
}

// DecodeBody parses a change chunk's body (post chunk-type, post length
// prefix) given the hash already computed by the framer (§4.8).
func DecodeBody(body []byte, hash Hash) (*Decoded, error) {
	r := leb128.NewReader(body)

	numDeps, err := r.ReadUvarint()
	if err != nil {
		return nil, encodingErrWrap("reading dep count", err)
	}
	deps := make([]Hash, numDeps)
	var prev Hash
	for i := range deps {
		raw, err := r.ReadFixed(32)
		if err != nil {
			return nil, encodingErrWrap("reading dep hash", err)
		}
		copy(deps[i][:], raw)
		if i > 0 && !hashLess(prev, deps[i]) {
			return nil, encodingErr("change deps are not strictly sorted")
		}
		prev = deps[i]
	}

	actor, err := r.ReadBytes()
	if err != nil {
		return nil, encodingErrWrap("reading actor id", err)
	}
	actorCopy := append(ActorID(nil), actor...)

	seq, err := r.ReadUvarint()
	if err != nil {
		return nil, encodingErrWrap("reading seq", err)
	}
	startOp, err := r.ReadUvarint()
	if err != nil {
		return nil, encodingErrWrap("reading start_op", err)
	}
	t, err := r.ReadVarint()
	if err != nil {
		return nil, encodingErrWrap("reading time", err)
	}
	msgBytes, err := r.ReadBytes()
	if err != nil {
		return nil, encodingErrWrap("reading message", err)
	}
	var message *string
	if len(msgBytes) > 0 {
		s := string(msgBytes)
		message = &s
	}

	numExtra, err := r.ReadUvarint()
	if err != nil {
		return nil, encodingErrWrap("reading extra actor count", err)
	}
	extraActors := make([]ActorID, numExtra)
	for i := range extraActors {
		a, err := r.ReadBytes()
		if err != nil {
			return nil, encodingErrWrap("reading extra actor id", err)
		}
		extraActors[i] = append(ActorID(nil), a...)
	}
	actors := NewDecodedActorTable(actorCopy, extraActors)
	if actors.HasDuplicates() {
		return nil, encodingErr("actor table contains duplicate entries")
	}

	dir, err := columnar.ReadDirectory(r)
	if err != nil {
		return nil, encodingErrWrap("reading column directory", err)
	}

	return &Decoded{
		Hash:       hash,
		Actor:      actorCopy,
		Seq:        seq,
		StartOp:    startOp,
		Time:       t,
		Message:    message,
		Deps:       deps,
		Actors:     actors,
		Directory:  dir,
		ExtraBytes: append([]byte(nil), r.Bytes()...),
	}, nil
}

func hashLess(a, b Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// ToChange materializes d into a logical Change by fully draining its
// operation iterator. Prefer Iterator for large changes that don't need
// every op resident at once.
func (d *Decoded) ToChange() (*Change, error) {
	it := d.Iterator()
	var ops []Op
	for {
		op, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		ops = append(ops, op)
	}
	return &Change{
		Actor:      d.Actor,
		Seq:        d.Seq,
		StartOp:    d.StartOp,
		Time:       d.Time,
		Message:    d.Message,
		Deps:       d.Deps,
		Operations: ops,
		ExtraBytes: d.ExtraBytes,
	}, nil
}
