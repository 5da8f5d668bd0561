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
	"sort"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erigontech/changecodec/change"
	"github.com/erigontech/changecodec/document"
)

func newPackCmd() *cobra.Command {
	var output string
	maxSize := &byteSizeFlag{}
	cmd := &cobra.Command{
		Use:   "pack <dir>",
		Short: "Pack a directory of change chunk files into a single document chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("-o/--output is required")
			}
			changes, err := readChangeDir(args[0])
			if err != nil {
				return err
			}
			ordered, err := topoSort(changes)
			if err != nil {
				return err
			}
			framed, _, err := document.Encode(ordered)
			if err != nil {
				return err
			}
			if maxSize.Bytes() > 0 && uint64(len(framed)) > maxSize.Bytes() {
				if logger != nil {
					logger.Warn("packed document exceeds max-chunk-size", zap.Int("bytes", len(framed)), zap.Stringer("limit", maxSize))
				}
				return fmt.Errorf("packed document is %s, exceeds --max-chunk-size=%s", datasize.ByteSize(len(framed)), maxSize)
			}
			return os.WriteFile(output, framed, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output document chunk path")
	cmd.Flags().Var(maxSize, "max-chunk-size", "reject a packed document larger than this (e.g. 4GiB); 0 disables the check")
	return cmd
}

func readChangeDir(dir string) ([]*change.Change, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var changes []*change.Change
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		decoded, err := change.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		c, err := decoded.ToChange()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		changes = append(changes, c)
	}
	return changes, nil
}

// topoSort orders changes so each appears after every change whose hash it
// lists as a dependency, the order document.Encode requires.
func topoSort(changes []*change.Change) ([]*change.Change, error) {
	hashOf := make(map[*change.Change]change.Hash, len(changes))
	byHash := make(map[change.Hash]*change.Change, len(changes))
	indegree := make(map[*change.Change]int, len(changes))
	dependents := make(map[change.Hash][]*change.Change)

	for _, c := range changes {
		h, err := change.ComputeHash(c)
		if err != nil {
			return nil, err
		}
		hashOf[c] = h
		byHash[h] = c
	}
	for _, c := range changes {
		deps := change.Deps(c)
		for _, d := range deps {
			if _, ok := byHash[d]; ok {
				indegree[c]++
				dependents[d] = append(dependents[d], c)
			}
		}
	}

	var ready []*change.Change
	for _, c := range changes {
		if indegree[c] == 0 {
			ready = append(ready, c)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return less(hashOf[ready[i]], hashOf[ready[j]]) })

	var out []*change.Change
	for len(ready) > 0 {
		c := ready[0]
		ready = ready[1:]
		out = append(out, c)

		var freed []*change.Change
		for _, dep := range dependents[hashOf[c]] {
			indegree[dep]--
			if indegree[dep] == 0 {
				freed = append(freed, dep)
			}
		}
		sort.Slice(freed, func(i, j int) bool { return less(hashOf[freed[i]], hashOf[freed[j]]) })
		ready = append(ready, freed...)
		sort.Slice(ready, func(i, j int) bool { return less(hashOf[ready[i]], hashOf[ready[j]]) })
	}

	if len(out) != len(changes) {
		return nil, fmt.Errorf("dependency cycle or missing dependency among %d changes", len(changes))
	}
	return out, nil
}

func less(a, b change.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
