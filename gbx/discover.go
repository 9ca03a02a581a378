// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// DiscoveryErrors collects the chunks that failed to discover. Each entry is
// a *ChunkError.
type DiscoveryErrors []error

func (e DiscoveryErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d chunks failed to discover: %s", len(e), strings.Join(msgs, "; "))
}

// DiscoverAll discovers every lazy chunk of every node of the document,
// including nodes that only appear while discovering. Chunks are discovered
// in parallel: each one decodes against its own fork of the tables it was
// captured with, so they don't depend on each other.
//
// A chunk failing doesn't stop the others. Failures are returned together as
// DiscoveryErrors, and stay recorded on their chunks. Cancelling 'ctx' stops
// the pass between chunks and returns an ErrCanceled error.
func (d *Document) DiscoverAll(ctx context.Context) error {
	workers := d.workers
	if workers <= 0 {
		workers = DefaultOptions.DiscoverWorkers
	}

	var lock sync.Mutex
	var errs DiscoveryErrors
	seen := make(map[*Chunk]bool)

	// Discovering a chunk can add nodes, which can have lazy chunks of their
	// own. Go in rounds until a round finds nothing new.
	for round := 0; ; round++ {
		var pending []*Chunk
		for _, n := range d.Nodes() {
			for _, ch := range n.chunks {
				if ch.Kind == ChunkLazy && !seen[ch] {
					seen[ch] = true
					pending = append(pending, ch)
				}
			}
		}
		if len(pending) == 0 {
			break
		}
		log.V(1).Infof("discovery round %d: %d chunks", round, len(pending))

		var g errgroup.Group
		g.SetLimit(workers)
		for _, ch := range pending {
			if ctx.Err() != nil {
				break
			}
			ch := ch
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				if err := ch.Discover(); err != nil {
					lock.Lock()
					errs = append(errs, err)
					lock.Unlock()
				}
				return nil
			})
		}
		g.Wait()

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCanceled.Error(), err)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
