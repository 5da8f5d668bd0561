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

	"github.com/spf13/cobra"

	"github.com/erigontech/changecodec/change"
	"github.com/erigontech/changecodec/chunkio"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the chunk type, hash prefix, and header fields of each chunk in a file",
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
				if err := inspectChunk(i, rc); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func inspectChunk(i int, rc chunkio.RawChunk) error {
	typeName := chunkTypeName(rc.Type)
	fmt.Printf("[%d] type=%s prefix=%x bytes=%d\n", i, typeName, rc.HashPrefix, len(rc.Body))

	if rc.Type != chunkio.ChunkTypeChange {
		return nil
	}
	decoded, err := change.DecodeBody(rc.Body, rc.Hash)
	if err != nil {
		return fmt.Errorf("chunk %d: %w", i, err)
	}
	msg := "<none>"
	if decoded.Message != nil {
		msg = *decoded.Message
	}
	fmt.Printf("      actor=%x seq=%d start_op=%d time=%d deps=%d message=%q\n",
		[]byte(decoded.Actor), decoded.Seq, decoded.StartOp, decoded.Time, len(decoded.Deps), msg)

	n := 0
	it := decoded.Iterator()
	for {
		_, ok, err := it.Next()
		if err != nil {
			return fmt.Errorf("chunk %d: counting ops: %w", i, err)
		}
		if !ok {
			break
		}
		n++
	}
	fmt.Printf("      ops=%d\n", n)
	return nil
}

func chunkTypeName(t byte) string {
	switch t {
	case chunkio.ChunkTypeChange:
		return "change"
	case chunkio.ChunkTypeDocument:
		return "document"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}
