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

// Package columnar implements the column-stream layer of the change codec:
// the four stream kinds (run-length, delta, boolean, length+raw value), the
// column id scheme that gives each logical field a stable identity on the
// wire, and the directory that frames a set of columns inside a chunk body.
package columnar

// StreamKind is the low 3 bits of a column id.
type StreamKind uint32

const (
	KindGroupCard StreamKind = 0
	KindActorID   StreamKind = 1
	KindIntRLE    StreamKind = 2
	KindIntDelta  StreamKind = 3
	KindBoolean   StreamKind = 4
	KindStringRLE StreamKind = 5
	KindValueLen  StreamKind = 6
	KindValueRaw  StreamKind = 7
)

// ColumnID returns the 32-bit identifier for a column group (the field's
// ordinal position among sibling fields) and stream kind.
func ColumnID(group uint32, kind StreamKind) uint32 {
	return group<<3 | uint32(kind)
}

// Column groups for the per-operation columns of a change chunk (§4.3).
const (
	GroupObj    uint32 = 0
	GroupKey    uint32 = 1
	GroupID     uint32 = 2 // document-only
	GroupInsert uint32 = 3
	GroupAction uint32 = 4
	GroupVal    uint32 = 5
	GroupRef    uint32 = 6
	GroupPred   uint32 = 7
	GroupSucc   uint32 = 8 // document-only
)

// Operation column ids, bit-exact per spec §4.3.
const (
	ColObjActor = uint32(GroupObj)<<3 | uint32(KindActorID)
	ColObjCtr   = uint32(GroupObj)<<3 | uint32(KindIntRLE)

	ColKeyActor = uint32(GroupKey)<<3 | uint32(KindActorID)
	ColKeyCtr   = uint32(GroupKey)<<3 | uint32(KindIntDelta)
	ColKeyStr   = uint32(GroupKey)<<3 | uint32(KindStringRLE)

	ColIDActor = uint32(GroupID)<<3 | uint32(KindActorID)
	ColIDCtr   = uint32(GroupID)<<3 | uint32(KindIntDelta)

	ColInsert = uint32(GroupInsert)<<3 | uint32(KindBoolean)

	ColAction = uint32(GroupAction)<<3 | uint32(KindIntRLE)

	ColValLen = uint32(GroupVal)<<3 | uint32(KindValueLen)
	ColValRaw = uint32(GroupVal)<<3 | uint32(KindValueRaw)

	ColRefActor = uint32(GroupRef)<<3 | uint32(KindActorID)
	ColRefCtr   = uint32(GroupRef)<<3 | uint32(KindIntRLE)

	ColPredNum   = uint32(GroupPred)<<3 | uint32(KindGroupCard)
	ColPredActor = uint32(GroupPred)<<3 | uint32(KindActorID)
	ColPredCtr   = uint32(GroupPred)<<3 | uint32(KindIntDelta)

	ColSuccNum   = uint32(GroupSucc)<<3 | uint32(KindGroupCard)
	ColSuccActor = uint32(GroupSucc)<<3 | uint32(KindActorID)
	ColSuccCtr   = uint32(GroupSucc)<<3 | uint32(KindIntDelta)
)

// Document-metadata column groups live in a separate namespace (§4.3) from
// the per-op columns above; a document chunk's two column groups never
// collide because they occupy distinct byte ranges in the body. The group
// numbers reuse the same 0-7 range as the per-op groups, so numeric column
// ids coincide across the two namespaces (ColDocActor == ColObjActor); only
// the separate directories tell them apart.
const (
	DocGroupActor    uint32 = 0
	DocGroupSeq      uint32 = 1
	DocGroupMaxOp    uint32 = 2
	DocGroupTime     uint32 = 3
	DocGroupMessage  uint32 = 4
	DocGroupDepsNum  uint32 = 5
	DocGroupDepsIdx  uint32 = 6
	DocGroupExtraLen uint32 = 7
	DocGroupExtraRaw uint32 = 7
)

const (
	ColDocActor    = uint32(DocGroupActor)<<3 | uint32(KindActorID)
	ColDocSeq      = uint32(DocGroupSeq)<<3 | uint32(KindIntDelta)
	ColDocMaxOp    = uint32(DocGroupMaxOp)<<3 | uint32(KindIntDelta)
	ColDocTime     = uint32(DocGroupTime)<<3 | uint32(KindIntDelta)
	ColDocMessage  = uint32(DocGroupMessage)<<3 | uint32(KindStringRLE)
	ColDocDepsNum  = uint32(DocGroupDepsNum)<<3 | uint32(KindGroupCard)
	ColDocDepsIdx  = uint32(DocGroupDepsIdx)<<3 | uint32(KindIntDelta)
	ColDocExtraLen = uint32(DocGroupExtraLen)<<3 | uint32(KindValueLen)
	ColDocExtraRaw = uint32(DocGroupExtraRaw)<<3 | uint32(KindValueRaw)
)
