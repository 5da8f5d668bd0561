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

// ActorTable is the arena + index structure described in DESIGN NOTES §9:
// a single owned list of actors addressed by small integer index, grown
// on demand while encoding. A change's table is seeded with its own actor
// at index 0 (§4.7); a document's table (package document) starts empty
// and grows purely in first-referenced order.
type ActorTable struct {
	actors []ActorID
}

// NewActorTable seeds the table with own as index 0.
func NewActorTable(own ActorID) *ActorTable {
	return &ActorTable{actors: []ActorID{own}}
}

// NewEmptyActorTable starts a table with no seeded entries, for contexts
// (the document codec) that have no single "owning" actor.
func NewEmptyActorTable() *ActorTable {
	return &ActorTable{}
}

// Index returns a's index, adding it to the table (by content equality,
// matching the reference implementation's map_actor) if not already
// present.
func (t *ActorTable) Index(a ActorID) int {
	for i, existing := range t.actors {
		if existing.Equal(a) {
			return i
		}
	}
	t.actors = append(t.actors, a)
	return len(t.actors) - 1
}

// Extra returns the actors after index 0, in first-referenced order, for
// the length-prefixed actor list a change writes after its headers
// (§4.5, §4.7).
func (t *ActorTable) Extra() []ActorID {
	if len(t.actors) <= 1 {
		return nil
	}
	return t.actors[1:]
}

// All returns every actor in table order, for contexts (the document
// codec) that have no reserved index-0 slot.
func (t *ActorTable) All() []ActorID { return t.actors }

// DecodedActorTable is the read-only table a decoded change borrows from;
// safe for concurrent use by multiple iterators (§5).
type DecodedActorTable struct {
	actors []ActorID
}

// NewDecodedActorTable builds a read-only table from own (index 0, may be
// empty for a document's table which has no privileged actor) plus the
// actors that followed it on the wire.
func NewDecodedActorTable(own ActorID, extra []ActorID) *DecodedActorTable {
	actors := make([]ActorID, 0, 1+len(extra))
	if own != nil {
		actors = append(actors, own)
	}
	actors = append(actors, extra...)
	return &DecodedActorTable{actors: actors}
}

// NewDecodedActorTableFrom builds a read-only table directly from a
// complete, already-ordered actor list (used by the document decoder,
// which has no single reserved "own actor" slot).
func NewDecodedActorTableFrom(all []ActorID) *DecodedActorTable {
	return &DecodedActorTable{actors: all}
}

// At returns the actor at idx, or ok=false if idx is out of range.
func (t *DecodedActorTable) At(idx int) (ActorID, bool) {
	if idx < 0 || idx >= len(t.actors) {
		return nil, false
	}
	return t.actors[idx], true
}

func (t *DecodedActorTable) Len() int { return len(t.actors) }

// HasDuplicates reports whether any two actors in the table are equal,
// used to enforce the §3 invariant on decode.
func (t *DecodedActorTable) HasDuplicates() bool {
	for i := 0; i < len(t.actors); i++ {
		for j := i + 1; j < len(t.actors); j++ {
			if t.actors[i].Equal(t.actors[j]) {
				return true
			}
		}
	}
	return false
}
