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

// Package changemetrics holds the prometheus collectors shared by the
// change store and the CLI, so both report to the same registry under the
// same names regardless of which one is driving a given process.
package changemetrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/erigontech/changecodec/chunkio"
)

var (
	ChunksEncoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "changecodec_chunks_encoded_total",
		Help: "Chunks successfully encoded, by chunk type.",
	}, []string{"type"})

	ChunksDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "changecodec_chunks_decoded_total",
		Help: "Chunks successfully decoded, by chunk type.",
	}, []string{"type"})

	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "changecodec_decode_errors_total",
		Help: "Chunk decode failures, by chunk type and error kind.",
	}, []string{"type", "kind"})

	ChunkBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "changecodec_chunk_bytes",
		Help:    "Framed chunk size in bytes, by chunk type.",
		Buckets: prometheus.ExponentialBuckets(64, 2, 16),
	}, []string{"type"})
)

// Chunk type label values, shared between changestore and the CLI so the
// two never drift into reporting different label strings for the same
// chunk kind.
const (
	TypeChange   = "change"
	TypeDocument = "document"
)

// ErrKind classifies a decode failure for the decode_errors_total label,
// distinguishing the two error kinds spec.md §7 defines.
func ErrKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, chunkio.ErrInvalidChange):
		return "invalid_change"
	default:
		return "encoding"
	}
}
