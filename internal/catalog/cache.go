// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package catalog

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/westerndigitalcorporation/gbx/gbx"
)

// CachedStore caches Get results of another Store. Misses are cached too, so
// that repeated lookups of unindexed paths don't hit the disk.
type CachedStore struct {
	Store

	lock  sync.Mutex
	cache *lru.Cache // path -> cachedEntry

	hits, misses int
}

type cachedEntry struct {
	e  Entry
	ok bool
}

// NewCachedStore wraps 's' with a cache of up to 'maxEntries' paths.
func NewCachedStore(s Store, maxEntries int) *CachedStore {
	return &CachedStore{Store: s, cache: lru.New(maxEntries)}
}

// Put implements Store.
func (c *CachedStore) Put(e Entry) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	// Remove first so that a failed write doesn't leave a stale entry.
	c.cache.Remove(e.Path)
	if err := c.Store.Put(e); err != nil {
		return err
	}
	c.cache.Add(e.Path, cachedEntry{e: e, ok: true})
	return nil
}

// Get implements Store.
func (c *CachedStore) Get(path string) (Entry, bool, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if v, ok := c.cache.Get(path); ok {
		c.hits++
		ce := v.(cachedEntry)
		return ce.e, ce.ok, nil
	}
	c.misses++
	e, ok, err := c.Store.Get(path)
	if err != nil {
		return e, ok, err
	}
	c.cache.Add(path, cachedEntry{e: e, ok: ok})
	return e, ok, nil
}

// Delete implements Store.
func (c *CachedStore) Delete(path string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.cache.Remove(path)
	return c.Store.Delete(path)
}

// FindClass implements Store. Results are not cached, but they refresh the
// cached entries.
func (c *CachedStore) FindClass(class gbx.ClassID) ([]Entry, error) {
	out, err := c.Store.FindClass(class)
	if err != nil {
		return nil, err
	}
	c.lock.Lock()
	for _, e := range out {
		c.cache.Add(e.Path, cachedEntry{e: e, ok: true})
	}
	c.lock.Unlock()
	return out, nil
}

// Stats returns the number of cache hits and misses of Get.
func (c *CachedStore) Stats() (hits, misses int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.hits, c.misses
}
