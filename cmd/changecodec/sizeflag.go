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

import "github.com/c2h5oh/datasize"

// byteSizeFlag adapts datasize.ByteSize to pflag.Value so chunk-size
// limits can be given on the command line as "4GiB" rather than a raw
// byte count.
type byteSizeFlag struct {
	datasize.ByteSize
}

func (f *byteSizeFlag) String() string { return f.ByteSize.String() }

func (f *byteSizeFlag) Set(s string) error { return f.ByteSize.UnmarshalText([]byte(s)) }

func (f *byteSizeFlag) Type() string { return "size" }
