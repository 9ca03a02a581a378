// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package catalog

import (
	"fmt"

	"github.com/westerndigitalcorporation/gbx/gbx"
)

// Store persists catalog entries keyed by path.
type Store interface {
	// Put adds or replaces the entry for e.Path.
	Put(e Entry) error

	// Get returns the entry for 'path'. 'ok' is false if there is none.
	Get(path string) (e Entry, ok bool, err error)

	// Delete removes the entry for 'path', if any.
	Delete(path string) error

	// List returns every entry, sorted by path.
	List() ([]Entry, error)

	// FindClass returns the entries of class 'class', sorted by path.
	FindClass(class gbx.ClassID) ([]Entry, error)

	// Close releases the store.
	Close() error
}

// Open opens a store of the given kind ("bolt" or "sqlite") backed by the
// file at 'path'. If cacheSize is positive, lookups go through an LRU cache
// of that many entries.
func Open(kind, path string, cacheSize int) (Store, error) {
	var s Store
	var err error
	switch kind {
	case "bolt":
		s, err = OpenBoltStore(path)
	case "sqlite":
		s, err = OpenSqliteStore(path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	if cacheSize > 0 {
		s = NewCachedStore(s, cacheSize)
	}
	return s, nil
}
