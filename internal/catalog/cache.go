// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tracksim/internal/models"
)

// linkKeyPrefix namespaces link entries in BadgerDB.
const linkKeyPrefix = "link:"

// cachedLink is the stored form of a lookup. Missing records that the catalog
// has no such track, so the id is not requested again until the entry expires.
type cachedLink struct {
	Link    models.Link `json:"link"`
	Missing bool        `json:"missing,omitempty"`
}

// LinkCache is a BadgerDB-backed cache of catalog links with per-entry TTL.
type LinkCache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenLinkCache opens (or creates) a cache under path. An empty path keeps
// the cache in memory.
func OpenLinkCache(path string, ttl time.Duration) (*LinkCache, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for link cache: %w", err)
	}
	return &LinkCache{db: db, ttl: ttl}, nil
}

// Close closes the underlying database.
func (c *LinkCache) Close() error {
	return c.db.Close()
}

// Get returns cached links for ids. Ids cached as missing are reported in
// neither result; ids not cached at all are returned in misses.
func (c *LinkCache) Get(ids []string) (links map[string]models.Link, misses []string, err error) {
	links = make(map[string]models.Link, len(ids))

	err = c.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get([]byte(linkKeyPrefix + id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				misses = append(misses, id)
				continue
			}
			if err != nil {
				return fmt.Errorf("get link %s: %w", id, err)
			}

			var entry cachedLink
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("decode link %s: %w", id, err)
			}
			if !entry.Missing {
				links[id] = entry.Link
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return links, misses, nil
}

// Put stores links and records every id in missing as absent.
func (c *LinkCache) Put(links map[string]models.Link, missing []string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		set := func(id string, entry cachedLink) error {
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal link: %w", err)
			}
			e := badger.NewEntry([]byte(linkKeyPrefix+id), data)
			if c.ttl > 0 {
				e = e.WithTTL(c.ttl)
			}
			return txn.SetEntry(e)
		}

		for id, link := range links {
			if err := set(id, cachedLink{Link: link}); err != nil {
				return err
			}
		}
		for _, id := range missing {
			if err := set(id, cachedLink{Missing: true}); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunGC reclaims value log space. It reports nothing to do as success.
func (c *LinkCache) RunGC() error {
	err := c.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}
