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

// Package changestore is a persistent, content-addressed store of encoded
// changes (§4.5-§4.9), keyed by their 32-byte hash, backed by a single
// bbolt file the way erigon keeps chain data in a single embedded KV
// store (erigon-lib/kv).
package changestore

import (
	"fmt"
	"time"

	"github.com/c2h5oh/datasize"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/erigontech/changecodec/change"
	"github.com/erigontech/changecodec/changemetrics"
)

// Changes holds framed change chunks, key is the 32-byte hash.
// value is the framed chunk bytes as returned by change.Encode.
const bucketChanges = "Changes"

// Hash is the content address a change is stored and looked up under.
type Hash = change.Hash

// avgChangeSize approximates a resident decoded change's footprint,
// used to turn a human-readable cache budget into an LRU item count.
const avgChangeSize = 2 * datasize.KB

// Store is a bbolt-backed change store with an in-process LRU cache for
// hot reads (e.g. a sync replaying the same changes repeatedly).
type Store struct {
	db     *bbolt.DB
	cache  *lru.Cache[Hash, *change.Change]
	logger *zap.Logger
}

// Open opens (creating if necessary) a bbolt file at path and prepares its
// bucket layout. cacheSize is a human-readable budget (e.g. "64MiB") for
// the resident decoded-change cache; a budget smaller than avgChangeSize
// disables caching. A nil logger disables logging.
func Open(path string, cacheSize datasize.ByteSize, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening change store: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketChanges))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing change store schema: %w", err)
	}

	items := int(cacheSize / avgChangeSize)
	var cache *lru.Cache[Hash, *change.Change]
	if items > 0 {
		cache, err = lru.New[Hash, *change.Change](items)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating change cache: %w", err)
		}
	}
	logger.Debug("change store opened", zap.String("path", path), zap.Int("cache_items", items))
	return &Store{db: db, cache: cache, logger: logger}, nil
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error { return s.db.Close() }

// Put encodes, hashes, and persists c, returning its hash. Putting an
// already-stored change is a no-op beyond recomputing its hash.
func (s *Store) Put(c *change.Change) (Hash, error) {
	framed, hash, err := change.Encode(c)
	if err != nil {
		changemetrics.DecodeErrors.WithLabelValues(changemetrics.TypeChange, changemetrics.ErrKind(err)).Inc()
		s.logger.Warn("change encode rejected", zap.Error(err))
		return Hash{}, err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketChanges))
		return b.Put(hash[:], framed)
	})
	if err != nil {
		return Hash{}, fmt.Errorf("persisting change %x: %w", hash, err)
	}

	changemetrics.ChunksEncoded.WithLabelValues(changemetrics.TypeChange).Inc()
	changemetrics.ChunkBytes.WithLabelValues(changemetrics.TypeChange).Observe(float64(len(framed)))
	s.logger.Debug("change stored", zap.Binary("hash", hash[:]), zap.Int("actors", len(actorsOf(c))))

	if s.cache != nil {
		s.cache.Add(hash, c)
	}
	return hash, nil
}

// actorsOf reports the distinct actor ids an encoded change's operations
// reference, a proxy for how much an actor table would grow by absorbing
// it.
func actorsOf(c *change.Change) map[string]struct{} {
	seen := map[string]struct{}{string(c.Actor): {}}
	for _, op := range c.Operations {
		if !op.Obj.Root {
			seen[string(op.Obj.ID.Actor)] = struct{}{}
		}
		if op.Key.Kind == change.KeyElem {
			seen[string(op.Key.Elem.Actor)] = struct{}{}
		}
		for _, p := range op.Pred {
			seen[string(p.Actor)] = struct{}{}
		}
	}
	return seen
}

// Get fetches and decodes the change stored under h, consulting the cache
// before touching bbolt.
func (s *Store) Get(h Hash) (*change.Change, error) {
	if s.cache != nil {
		if c, ok := s.cache.Get(h); ok {
			s.logger.Debug("change cache hit", zap.Binary("hash", h[:]))
			return c, nil
		}
	}

	var framed []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketChanges))
		v := b.Get(h[:])
		if v == nil {
			return ErrNotFound
		}
		framed = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	decoded, err := change.Decode(framed)
	if err != nil {
		changemetrics.DecodeErrors.WithLabelValues(changemetrics.TypeChange, changemetrics.ErrKind(err)).Inc()
		s.logger.Warn("change decode rejected", zap.Binary("hash", h[:]), zap.Error(err))
		return nil, err
	}
	c, err := decoded.ToChange()
	if err != nil {
		return nil, err
	}
	changemetrics.ChunksDecoded.WithLabelValues(changemetrics.TypeChange).Inc()

	if s.cache != nil {
		s.cache.Add(h, c)
	}
	return c, nil
}

// Has reports whether h is present without decoding it.
func (s *Store) Has(h Hash) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketChanges))
		found = b.Get(h[:]) != nil
		return nil
	})
	return found, err
}

// Heads returns the hashes of stored changes that no other stored change
// lists as a dependency: the causal frontier of everything the store
// currently holds.
func (s *Store) Heads() ([]Hash, error) {
	referenced := make(map[Hash]struct{})
	var all []Hash

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketChanges))
		return b.ForEach(func(k, v []byte) error {
			var h Hash
			copy(h[:], k)
			all = append(all, h)

			decoded, err := change.Decode(append([]byte(nil), v...))
			if err != nil {
				s.logger.Warn("change decode rejected", zap.Binary("hash", h[:]), zap.Error(err))
				return fmt.Errorf("decoding stored change %x: %w", h, err)
			}
			for _, dep := range decoded.Deps {
				referenced[dep] = struct{}{}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	heads := make([]Hash, 0, len(all))
	for _, h := range all {
		if _, ok := referenced[h]; !ok {
			heads = append(heads, h)
		}
	}
	return heads, nil
}

// MissingDeps returns the deps of the change stored under h that are not
// themselves present in the store, e.g. to drive fetching during a sync.
func (s *Store) MissingDeps(h Hash) ([]Hash, error) {
	var deps []Hash
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketChanges))
		v := b.Get(h[:])
		if v == nil {
			return ErrNotFound
		}
		decoded, err := change.Decode(append([]byte(nil), v...))
		if err != nil {
			return err
		}
		deps = decoded.Deps
		return nil
	})
	if err != nil {
		return nil, err
	}

	var missing []Hash
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketChanges))
		for _, dep := range deps {
			if b.Get(dep[:]) == nil {
				missing = append(missing, dep)
			}
		}
		return nil
	})
	return missing, err
}
