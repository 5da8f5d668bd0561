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
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erigontech/changecodec/change"
	"github.com/erigontech/changecodec/document"
)

func newUnpackCmd() *cobra.Command {
	var output string
	maxSize := &byteSizeFlag{}
	cmd := &cobra.Command{
		Use:   "unpack <doc>",
		Short: "Unpack a document chunk into one change chunk file per change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("-o/--output is required")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if maxSize.Bytes() > 0 && uint64(len(data)) > maxSize.Bytes() {
				if logger != nil {
					logger.Warn("input exceeds max-chunk-size, refusing to decode", zap.Int("bytes", len(data)), zap.Stringer("limit", maxSize))
				}
				return fmt.Errorf("input is %d bytes, exceeds --max-chunk-size=%s", len(data), maxSize)
			}
			decoded, err := document.Decode(data)
			if err != nil {
				return err
			}
			changes, err := decoded.ToChanges()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(output, 0o755); err != nil {
				return err
			}
			for _, c := range changes {
				framed, h, err := change.Encode(c)
				if err != nil {
					return err
				}
				path := filepath.Join(output, fmt.Sprintf("%x.chg", h))
				if err := os.WriteFile(path, framed, 0o644); err != nil {
					return err
				}
			}
			fmt.Printf("wrote %d change chunks to %s\n", len(changes), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")
	cmd.Flags().Var(maxSize, "max-chunk-size", "refuse to decode an input larger than this (e.g. 4GiB); 0 disables the check")
	return cmd
}
