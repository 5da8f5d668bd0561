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

// Package change implements the logical data model, encoder, decoder and
// operation iterator for a single change chunk (§3, §4.5-§4.9).
package change

import (
	"bytes"
	"sort"

	"github.com/erigontech/changecodec/chunkio"
)

// ActorID is an opaque writer identifier, 1-255 bytes (§3).
type ActorID []byte

// Equal reports byte-for-byte equality.
func (a ActorID) Equal(o ActorID) bool { return bytes.Equal(a, o) }

// Hash is the full 32-byte change hash (§3, §4.8).
type Hash = chunkio.Hash

// SortHashes sorts hashes ascending, the order deps are written in (§3).
func SortHashes(hs []Hash) {
	sort.Slice(hs, func(i, j int) bool { return bytes.Compare(hs[i][:], hs[j][:]) < 0 })
}

// OpID names an operation globally by the counter its actor assigned it
// plus that actor's identity (§3).
type OpID struct {
	Counter uint64
	Actor   ActorID
}

// Action is the operation kind (§3).
type Action int

const (
	ActionMakeMap Action = iota
	ActionSet
	ActionMakeList
	ActionDel
	ActionMakeText
	ActionInc
	ActionMakeTable
)

func (a Action) String() string {
	switch a {
	case ActionMakeMap:
		return "makeMap"
	case ActionSet:
		return "set"
	case ActionMakeList:
		return "makeList"
	case ActionDel:
		return "del"
	case ActionMakeText:
		return "makeText"
	case ActionInc:
		return "inc"
	case ActionMakeTable:
		return "makeTable"
	default:
		return "unknown"
	}
}

// ScalarKind tags the variant held by a Scalar (§3).
type ScalarKind int

const (
	ScalarNull ScalarKind = iota
	ScalarBool
	ScalarUint
	ScalarInt
	ScalarF32
	ScalarF64
	ScalarCounter
	ScalarTimestamp
	ScalarString
	ScalarBytes
	ScalarCursor
	ScalarUnknown
)

// Scalar is the tagged-union value an operation may carry (§3). Only the
// field matching Kind is meaningful; Unknown* preserve an unrecognized
// value-type entry for lossless re-encoding (§4.2, §9).
type Scalar struct {
	Kind ScalarKind

	Bool   bool
	Uint   uint64
	Int    int64
	F32    float32
	F64    float64
	Str    string
	Bytes  []byte
	Cursor OpID

	UnknownTag byte
	UnknownRaw []byte
}

// KeyKind tags the shape of an operation's Key (§4.6).
type KeyKind int

const (
	KeyMap KeyKind = iota
	KeyListHead
	KeyElem
)

// Key identifies the target within a container: a map key, the list-head
// sentinel, or a previously-inserted element's OpID.
type Key struct {
	Kind   KeyKind
	MapKey string
	Elem   OpID
}

// Obj identifies an operation's target container: either the implicit
// document root, or an object created by a prior MakeMap/MakeList/
// MakeText/MakeTable operation.
type Obj struct {
	Root bool
	ID   OpID
}

// Op is one operation within a change (encoded form, carrying Pred). A
// Cursor value's OpID lives in Value.Cursor; the wire format's separate
// ref columns (§3, §4.6) are an encoding detail derived from Value, not a
// second field a caller must keep in sync.
type Op struct {
	Action Action
	Obj    Obj
	Key    Key
	Insert bool
	Value  *Scalar // nil for Del/Make*
	Pred   []OpID
}

// Change is the logical, in-memory view of a causally-ordered batch of
// operations produced by one actor (§3).
type Change struct {
	Actor      ActorID
	Seq        uint64
	StartOp    uint64
	Time       int64
	Message    *string
	Deps       []Hash
	Operations []Op
	ExtraBytes []byte
}

// MaxOp returns the operation counter of the last op in this change.
func (c *Change) MaxOp() uint64 {
	return c.StartOp + uint64(len(c.Operations)) - 1
}
