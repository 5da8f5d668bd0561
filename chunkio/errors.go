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

package chunkio

import (
	stderrors "errors"
	"fmt"
)

// ErrInvalidChange is the sentinel every *InvalidChangeError wraps, so
// callers can branch with errors.Is(err, chunkio.ErrInvalidChange) without
// needing the concrete type (§7).
var ErrInvalidChange = stderrors.New("invalid change")

// ErrEncoding is the sentinel every *EncodingError wraps.
var ErrEncoding = stderrors.New("encoding error")

// InvalidChangeError reports an operand-level problem detected while
// encoding a logical change.
type InvalidChangeError struct {
	Reason string
	Cause  error
}

func NewInvalidChangeError(reason string, cause error) *InvalidChangeError {
	return &InvalidChangeError{Reason: reason, Cause: cause}
}

func (e *InvalidChangeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid change: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("invalid change: %s", e.Reason)
}

func (e *InvalidChangeError) Unwrap() error { return ErrInvalidChange }

// EncodingError reports a framing or column-directory violation detected
// while decoding a chunk. All decode errors are fatal for the containing
// chunk (§7): there is no skip-and-continue.
type EncodingError struct {
	Reason string
	Cause  error
}

func NewEncodingError(reason string, cause error) *EncodingError {
	return &EncodingError{Reason: reason, Cause: cause}
}

func (e *EncodingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("encoding error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("encoding error: %s", e.Reason)
}

func (e *EncodingError) Unwrap() error { return ErrEncoding }
