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

// Package chunkio implements the outermost framing of the change codec:
// the magic preamble, the truncated hash prefix, chunk-type dispatch, and
// the sequential chunk parser (§4.8, §4.9). It knows nothing about the
// column layout or change semantics above it.
package chunkio

import (
	"crypto/sha256"

	"github.com/erigontech/changecodec/leb128"
)

// Magic is the 4-byte preamble every chunk begins with.
var Magic = [4]byte{0x85, 0x6f, 0x4a, 0x83}

// Chunk types (§3).
const (
	ChunkTypeDocument byte = 0
	ChunkTypeChange   byte = 1
)

// HeaderLen is the minimum number of bytes (magic + hash prefix + chunk-type
// byte) that must be present before the length varint.
const HeaderLen = 9

// Hash is a full 32-byte SHA-256 digest, used both as the change hash and
// as the hashing preimage's result before truncation to the wire prefix.
type Hash [32]byte

// Frame computes the hash of chunkType||LEB128(len(body))||body and
// returns the complete framed chunk (magic || prefix || that preimage)
// together with the full 32-byte digest (§4.8).
func Frame(chunkType byte, body []byte) (framed []byte, hash Hash) {
	preimage := make([]byte, 0, 1+leb128.SizeUvarint(uint64(len(body)))+len(body))
	preimage = append(preimage, chunkType)
	preimage = leb128.AppendUvarint(preimage, uint64(len(body)))
	preimage = append(preimage, body...)

	hash = sha256.Sum256(preimage)

	framed = make([]byte, 0, len(Magic)+4+len(preimage))
	framed = append(framed, Magic[:]...)
	framed = append(framed, hash[:4]...)
	framed = append(framed, preimage...)
	return framed, hash
}

// RawChunk is one parsed, but not yet semantically decoded, chunk.
type RawChunk struct {
	Type       byte
	Body       []byte
	HashPrefix [4]byte
	Hash       Hash
}

// VerifyPrefix reports whether c's 4-byte wire prefix matches its
// recomputed full digest. The prefix is informational by default (§4.8,
// §7); callers that want strict verification call this explicitly.
func (c RawChunk) VerifyPrefix() bool {
	for i := 0; i < 4; i++ {
		if c.HashPrefix[i] != c.Hash[i] {
			return false
		}
	}
	return true
}

// ParseChunks splits data into a sequence of framed chunks, recursing on
// the tail until the buffer is exhausted (§4.9). A malformed chunk
// anywhere in the stream halts parsing and returns the error; chunks
// already parsed are not returned.
func ParseChunks(data []byte) ([]RawChunk, error) {
	var out []RawChunk
	for len(data) > 0 {
		chunk, rest, err := parseOne(data)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk)
		data = rest
	}
	return out, nil
}

func parseOne(data []byte) (RawChunk, []byte, error) {
	if len(data) < HeaderLen {
		return RawChunk{}, nil, NewEncodingError("chunk shorter than header", nil)
	}
	var magic [4]byte
	copy(magic[:], data[:4])
	if magic != Magic {
		return RawChunk{}, nil, NewEncodingError("bad magic bytes", nil)
	}
	var prefix [4]byte
	copy(prefix[:], data[4:8])
	chunkType := data[8]

	r := leb128.NewReader(data[9:])
	bodyLen, err := r.ReadUvarint()
	if err != nil {
		return RawChunk{}, nil, NewEncodingError("reading chunk body length", err)
	}
	lenFieldSize := r.LastRead()
	bodyStart := 9 + lenFieldSize
	bodyEnd := bodyStart + int(bodyLen)
	if bodyEnd < bodyStart || bodyEnd > len(data) {
		return RawChunk{}, nil, NewEncodingError("chunk body truncated", nil)
	}
	body := data[bodyStart:bodyEnd]

	preimage := make([]byte, 0, 1+lenFieldSize+len(body))
	preimage = append(preimage, chunkType)
	preimage = append(preimage, data[9:bodyStart]...)
	preimage = append(preimage, body...)
	hash := sha256.Sum256(preimage)

	chunk := RawChunk{Type: chunkType, Body: body, HashPrefix: prefix, Hash: hash}
	return chunk, data[bodyEnd:], nil
}
