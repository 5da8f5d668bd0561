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

import "github.com/erigontech/changecodec/chunkio"

// InvalidChangeError and EncodingError are the two error kinds spec.md §7
// defines; this package re-exports chunkio's types so callers never need
// to import chunkio directly just to do an errors.As check.
type InvalidChangeError = chunkio.InvalidChangeError
type EncodingError = chunkio.EncodingError

// ErrInvalidChange and ErrEncoding are the sentinels to use with errors.Is.
var (
	ErrInvalidChange = chunkio.ErrInvalidChange
	ErrEncoding      = chunkio.ErrEncoding
)

func invalidChange(reason string) error {
	return chunkio.NewInvalidChangeError(reason, nil)
}

func invalidChangeWrap(reason string, cause error) error {
	return chunkio.NewInvalidChangeError(reason, cause)
}

func encodingErr(reason string) error {
	return chunkio.NewEncodingError(reason, nil)
}

func encodingErrWrap(reason string, cause error) error {
	return chunkio.NewEncodingError(reason, cause)
}
