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

package document

import "github.com/erigontech/changecodec/chunkio"

// InvalidChangeError and EncodingError re-export chunkio's two error
// kinds (spec.md §7) so callers need not import chunkio directly.
type InvalidChangeError = chunkio.InvalidChangeError
type EncodingError = chunkio.EncodingError

var (
	ErrInvalidChange = chunkio.ErrInvalidChange
	ErrEncoding      = chunkio.ErrEncoding
)

func invalidChange(reason string) error {
	return chunkio.NewInvalidChangeError(reason, nil)
}

func encodingErr(reason string) error {
	return chunkio.NewEncodingError(reason, nil)
}

func encodingErrWrap(reason string, cause error) error {
	return chunkio.NewEncodingError(reason, cause)
}
