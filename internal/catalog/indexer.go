// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/westerndigitalcorporation/gbx/gbx"
	"github.com/westerndigitalcorporation/gbx/pkg/tokenbucket"
)

// IndexStats summarizes an IndexDir run.
type IndexStats struct {
	Indexed   int // Files whose header was parsed and stored.
	Unchanged int // Files skipped because their entry is current.
	Failed    int // Files that could not be parsed.
}

// Indexer parses container headers and stores them in a Store.
type Indexer struct {
	c     *gbx.Container
	store Store

	// Workers bounds how many files are parsed at once.
	Workers int

	// Limit, if set, bounds how many bytes per second are read from disk.
	Limit *tokenbucket.TokenBucket
}

// NewIndexer returns an Indexer parsing files with 'c' into 'store'.
func NewIndexer(c *gbx.Container, store Store) *Indexer {
	return &Indexer{c: c, store: store, Workers: 4}
}

// IsGbx returns true if the file name looks like a container, such as
// "A01.Challenge.Gbx".
func IsGbx(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gbx")
}

// IndexFile parses the header of the file at 'path' and stores its entry.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return Entry{}, err
	}
	// Only the header is read from a file, and only that is paid for.
	doc, err := ix.c.ReadHeader(f)
	if err != nil {
		return Entry{}, err
	}
	if ix.Limit != nil {
		read, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return Entry{}, err
		}
		if err := ix.Limit.Wait(ctx, read); err != nil {
			return Entry{}, err
		}
	}
	e := NewEntry(path, fi.Size(), fi.ModTime(), doc)
	if err := ix.store.Put(e); err != nil {
		return Entry{}, err
	}
	log.V(2).Infof("indexed %s", e)
	return e, nil
}

// IndexDir indexes every container file under 'root'. Files whose entry has
// the same size and modification time are skipped. A file that can't be
// parsed is logged and counted, and doesn't stop the walk; failing to store
// an entry does.
func (ix *Indexer) IndexDir(ctx context.Context, root string) (IndexStats, error) {
	var stats IndexStats
	var lock sync.Mutex
	count := func(p *int) {
		lock.Lock()
		*p++
		lock.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := ix.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	walkErr := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			log.Warningf("skipping %s: %s", path, err)
			return nil
		}
		if gctx.Err() != nil {
			return gctx.Err()
		}
		if fi.IsDir() || !IsGbx(fi.Name()) {
			return nil
		}
		if old, ok, err := ix.store.Get(path); err != nil {
			return err
		} else if ok && old.Unchanged(fi.Size(), fi.ModTime()) {
			count(&stats.Unchanged)
			return nil
		}
		g.Go(func() error {
			if _, err := ix.IndexFile(gctx, path); err != nil {
				if _, ok := gbx.GbxError(err); !ok && !os.IsNotExist(err) && !os.IsPermission(err) {
					// Not a parse failure: the store is broken.
					return err
				}
				log.Warningf("failed to index %s: %s", path, err)
				count(&stats.Failed)
				return nil
			}
			count(&stats.Indexed)
			return nil
		})
		return nil
	})
	err := g.Wait()
	if walkErr != nil {
		err = walkErr
	}
	return stats, err
}

// Prune removes the entries of files that no longer exist and returns how
// many were removed.
func (ix *Indexer) Prune() (int, error) {
	entries, err := ix.store.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if _, err := os.Stat(e.Path); os.IsNotExist(err) {
			if err := ix.store.Delete(e.Path); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
