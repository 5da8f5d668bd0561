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

// Encode builds the framed chunk bytes and hash for c (§4.5, §4.7, §4.8).
// It returns an *InvalidChangeError when c's operations violate the
// encode-time shape rules of §7 (a Set without exactly a value or a
// Cursor ref, an Inc without an integer value, a Del/Make* carrying a
// value).
func Encode(c *Change) ([]byte, Hash, error) {
	if len(c.Actor) == 0 {
		return nil, Hash{}, invalidChange("change actor id must not be empty")
	}

	deps := append([]Hash(nil), c.Deps...)
	SortHashes(deps)

	actors := NewActorTable(c.Actor)

	opCols := NewOpColumnSet()
	pred := NewOpIDListColumns()
	for _, op := range c.Operations {
		if err := opCols.Append(op, actors); err != nil {
			return nil, Hash{}, err
		}
		pred.Append(op.Pred, actors)
	}
	predNum, predActor, predCtr := pred.Finish()

	cols := opCols.Finish()
	cols = append(cols,
		columnar.ColData{ColID: columnar.ColPredNum, Bytes: predNum},
		columnar.ColData{ColID: columnar.ColPredActor, Bytes: predActor},
		columnar.ColData{ColID: columnar.ColPredCtr, Bytes: predCtr},
	)
	columnar.Sort(cols)

	var body []byte
	body = leb128.AppendUvarint(body, uint64(len(deps)))
	for _, h := range deps {
		body = append(body, h[:]...)
	}
	body = leb128.AppendBytes(body, c.Actor)
	body = leb128.AppendUvarint(body, c.Seq)
	body = leb128.AppendUvarint(body, c.StartOp)
	body = leb128.AppendVarint(body, c.Time)
	if c.Message != nil {
		body = leb128.AppendBytes(body, []byte(*c.Message))
	} else {
		body = leb128.AppendBytes(body, nil)
	}

	extra := actors.Extra()
	body = leb128.AppendUvarint(body, uint64(len(extra)))
	for _, a := range extra {
		body = leb128.AppendBytes(body, a)
	}

	body = columnar.WriteDirectory(body, cols)
	body = append(body, c.ExtraBytes...)

	framed, hash := chunkio.Frame(chunkio.ChunkTypeChange, body)
	return framed, hash, nil
}
