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

// Package docstore is a directory-of-files archive of document chunks
// (§4.10), addressed by a caller-chosen document id. Writes go through a
// snappy-compressed write-ahead journal entry before the zstd-compressed
// document body is committed, the way erigon's downloader separates a
// light, latency-sensitive path from its cold-storage compression.
package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/erigontech/changecodec/change"
	"github.com/erigontech/changecodec/changemetrics"
	"github.com/erigontech/changecodec/document"
)

// Archive stores document chunks under a directory, one pair of files per
// document id: "<id>.journal" (the write-ahead record, snappy-compressed)
// and "<id>.doc.zst" (the committed body, zstd-compressed).
type Archive struct {
	fs  afero.Fs
	dir string

	// lockDir is the real filesystem directory flock should guard, or ""
	// when fs is not backed by the OS (e.g. an in-memory test fs) and
	// there is nothing for an advisory file lock to protect.
	lockDir string

	logger *zap.Logger
}

// New returns an archive rooted at dir on fs. dir is created if absent.
// A nil logger disables logging.
func New(fs afero.Fs, dir string, logger *zap.Logger) (*Archive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	a := &Archive{fs: fs, dir: dir, logger: logger}
	if fs.Name() == "OsFs" {
		a.lockDir = dir
	}
	return a, nil
}

func (a *Archive) journalPath(id string) string { return filepath.Join(a.dir, id+".journal") }
func (a *Archive) docPath(id string) string     { return filepath.Join(a.dir, id+".doc.zst") }

// journalRecord is the write-ahead record for Put, written (snappy
// compressed) before the document body so a crash mid-write leaves
// evidence of the attempted commit behind for a recovery pass to find.
type journalRecord struct {
	id        string
	bodyLen   int
	startedAt int64
}

func encodeJournal(r journalRecord) []byte {
	raw := fmt.Appendf(nil, "%s\n%d\n%d\n", r.id, r.bodyLen, r.startedAt)
	return snappy.Encode(nil, raw)
}

// Put encodes changes into a document chunk and persists it under id.
// Ordering: acquire the id's lock, write the journal entry, write the
// compressed document body, then drop the journal (a present journal file
// with no matching doc file marks an interrupted write, which Pending
// reports). The journal's bodyLen is the uncompressed framed length; nothing
// compares it against the compressed doc file.
func (a *Archive) Put(id string, changes []*change.Change) error {
	unlock, err := a.lock(id)
	if err != nil {
		return err
	}
	defer unlock()

	framed, _, err := document.Encode(changes)
	if err != nil {
		changemetrics.DecodeErrors.WithLabelValues(changemetrics.TypeDocument, changemetrics.ErrKind(err)).Inc()
		a.logger.Warn("document encode rejected", zap.String("id", id), zap.Error(err))
		return err
	}
	a.logger.Debug("document packed", zap.String("id", id), zap.Int("changes", len(changes)), zap.Int("actors", len(distinctActors(changes))))

	journal := encodeJournal(journalRecord{id: id, bodyLen: len(framed), startedAt: time.Now().UnixNano()})
	if err := afero.WriteFile(a.fs, a.journalPath(id), journal, 0o644); err != nil {
		return fmt.Errorf("writing journal for %q: %w", id, err)
	}

	compressed, err := compressZstd(framed)
	if err != nil {
		return fmt.Errorf("compressing document %q: %w", id, err)
	}
	if err := afero.WriteFile(a.fs, a.docPath(id), compressed, 0o644); err != nil {
		return fmt.Errorf("writing document %q: %w", id, err)
	}

	changemetrics.ChunksEncoded.WithLabelValues(changemetrics.TypeDocument).Inc()
	changemetrics.ChunkBytes.WithLabelValues(changemetrics.TypeDocument).Observe(float64(len(framed)))

	if err := a.fs.Remove(a.journalPath(id)); err != nil {
		return fmt.Errorf("clearing journal for %q: %w", id, err)
	}
	return nil
}

// Get reads and decodes the document stored under id back into changes,
// in document order.
func (a *Archive) Get(id string) ([]*change.Change, error) {
	unlock, err := a.lock(id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	compressed, err := afero.ReadFile(a.fs, a.docPath(id))
	if err != nil {
		if isNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading document %q: %w", id, err)
	}

	framed, err := decompressZstd(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing document %q: %w", id, err)
	}

	decoded, err := document.Decode(framed)
	if err != nil {
		changemetrics.DecodeErrors.WithLabelValues(changemetrics.TypeDocument, changemetrics.ErrKind(err)).Inc()
		a.logger.Warn("document decode rejected", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	changemetrics.ChunksDecoded.WithLabelValues(changemetrics.TypeDocument).Inc()

	return decoded.ToChanges()
}

// distinctActors reports the set of actor ids appearing across changes, a
// proxy for how much an actor table grows by packing them into one document.
func distinctActors(changes []*change.Change) map[string]struct{} {
	seen := make(map[string]struct{})
	for _, c := range changes {
		seen[string(c.Actor)] = struct{}{}
	}
	return seen
}

// Pending reports whether id has a leftover journal entry with no
// completed write to match it, the signature of a crash between Put's
// journal write and its document write.
func (a *Archive) Pending(id string) (bool, error) {
	journalExists, err := afero.Exists(a.fs, a.journalPath(id))
	if err != nil {
		return false, err
	}
	if !journalExists {
		return false, nil
	}
	docExists, err := afero.Exists(a.fs, a.docPath(id))
	if err != nil {
		return false, err
	}
	return !docExists, nil
}

func (a *Archive) lock(id string) (unlock func(), err error) {
	if a.lockDir == "" {
		return func() {}, nil
	}
	fl := flock.New(filepath.Join(a.lockDir, id+".lock"))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("locking document %q: %w", id, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

func compressZstd(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}
