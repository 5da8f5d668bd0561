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

// Package document implements the document codec (§4.10): packing a
// topologically-sorted batch of changes into a single chunk whose ops are
// stored once, in canonical (obj, key, id) order, with each op's
// predecessor set inverted into a successor set.
package document

import "github.com/erigontech/changecodec/change"

// ChangeMeta is one packed change's header data as stored on the wire.
// Its operations are not stored here; they live in the document's shared
// DocOp list and are recovered by matching each op's (actor, counter)
// against this change's actor and [StartOp, MaxOp] range (§4.10; StartOp
// is not itself part of the wire format and is derived on decode, see
// Decoded.ToChanges). Deps are likewise not resolvable to hashes until
// every earlier change's operations are attributed and hashed, so
// ChangeMeta carries no Deps field; Decoded.ToChanges resolves them.
type ChangeMeta struct {
	Actor      change.ActorID
	Seq        uint64
	MaxOp      uint64
	Time       int64
	Message    *string
	ExtraBytes []byte
}

// DocOp is one operation as it appears inside a document chunk: unlike a
// change chunk's Op, it carries its own globally unique ID and a successor
// set in place of a predecessor set (§4.10).
type DocOp struct {
	ID     change.OpID
	Action change.Action
	Obj    change.Obj
	Key    change.Key
	Insert bool
	Value  *change.Scalar
	Succ   []change.OpID
}

// Document is the packed form of spec.md's document codec: the ordered
// list of changes it contains, and the flattened, canonically-ordered op
// list shared by all of them.
type Document struct {
	Changes []ChangeMeta
	Ops     []DocOp
}
