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

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erigontech/changecodec/change"
	"github.com/erigontech/changecodec/chunkio"
)

func newDumpOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump-ops <file>",
		Short: "Print every operation of each change chunk in a file, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			chunks, err := chunkio.ParseChunks(data)
			if err != nil {
				return err
			}
			for i, rc := range chunks {
				if rc.Type != chunkio.ChunkTypeChange {
					continue
				}
				decoded, err := change.DecodeBody(rc.Body, rc.Hash)
				if err != nil {
					return fmt.Errorf("chunk %d: %w", i, err)
				}
				it := decoded.Iterator()
				for {
					op, ok, err := it.Next()
					if err != nil {
						return fmt.Errorf("chunk %d: %w", i, err)
					}
					if !ok {
						break
					}
					fmt.Println(formatOp(op))
				}
			}
			return nil
		},
	}
}

func formatOp(op change.Op) string {
	var sb strings.Builder
	sb.WriteString(op.Action.String())
	sb.WriteString(" obj=")
	sb.WriteString(formatObj(op.Obj))
	sb.WriteString(" key=")
	sb.WriteString(formatKey(op.Key))
	if op.Insert {
		sb.WriteString(" insert")
	}
	if op.Value != nil {
		sb.WriteString(" value=")
		sb.WriteString(formatScalar(*op.Value))
	}
	if len(op.Pred) > 0 {
		preds := make([]string, len(op.Pred))
		for i, p := range op.Pred {
			preds[i] = formatOpID(p)
		}
		sb.WriteString(" pred=[")
		sb.WriteString(strings.Join(preds, ","))
		sb.WriteString("]")
	}
	return sb.String()
}

func formatOpID(id change.OpID) string {
	return fmt.Sprintf("%d@%x", id.Counter, []byte(id.Actor))
}

func formatObj(o change.Obj) string {
	if o.Root {
		return "_root"
	}
	return formatOpID(o.ID)
}

func formatKey(k change.Key) string {
	switch k.Kind {
	case change.KeyMap:
		return k.MapKey
	case change.KeyListHead:
		return "_head"
	default:
		return formatOpID(k.Elem)
	}
}

func formatScalar(s change.Scalar) string {
	switch s.Kind {
	case change.ScalarString:
		return fmt.Sprintf("%q", s.Str)
	case change.ScalarBytes:
		return fmt.Sprintf("0x%x", s.Bytes)
	case change.ScalarBool:
		return fmt.Sprintf("%t", s.Bool)
	case change.ScalarUint:
		return fmt.Sprintf("%d", s.Uint)
	case change.ScalarInt, change.ScalarCounter, change.ScalarTimestamp:
		return fmt.Sprintf("%d", s.Int)
	case change.ScalarF32:
		return fmt.Sprintf("%g", s.F32)
	case change.ScalarF64:
		return fmt.Sprintf("%g", s.F64)
	case change.ScalarCursor:
		return "cursor:" + formatOpID(s.Cursor)
	case change.ScalarNull:
		return "null"
	default:
		return fmt.Sprintf("unknown(tag=%d,%d bytes)", s.UnknownTag, len(s.UnknownRaw))
	}
}
