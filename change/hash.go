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

// ComputeHash returns c's change hash without retaining the framed bytes,
// for callers (e.g. the change store) that only need the 32-byte digest
// used in a later change's deps (§3, §4.8).
func ComputeHash(c *Change) (Hash, error) {
	_, h, err := Encode(c)
	return h, err
}

// Deps returns c.Deps sorted ascending, the order a later change's deps
// list must name it in.
func Deps(c *Change) []Hash {
	deps := append([]Hash(nil), c.Deps...)
	SortHashes(deps)
	return deps
}
