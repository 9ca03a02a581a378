// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"fmt"
	"sort"

	log "github.com/golang/glog"
)

// ChunkFlags describe how a chunk is dispatched.
type ChunkFlags uint8

const (
	// Lazy chunks are length-prefixed ("skippable"). Their payload is captured
	// on load and only decoded when first accessed.
	Lazy ChunkFlags = 1 << iota

	// DiscoverOnLoad forces a lazy chunk to be decoded as soon as it's read,
	// against the live session tables. Use it for chunks that introduce Ids
	// or nodes that later chunks refer back to.
	DiscoverOnLoad
)

// ChunkData holds the decoded fields of one chunk. ReadWrite either fills the
// fields from rw or writes them to it, so a single function describes both
// directions of the layout.
type ChunkData interface {
	ReadWrite(n *Node, rw *ReadWriter)
}

// ChunkInfo describes one chunk id of a class.
type ChunkInfo struct {
	ID    uint32
	Flags ChunkFlags

	// New returns zeroed field state for the chunk.
	New func() ChunkData
}

// Lazy returns true for length-prefixed chunks.
func (c *ChunkInfo) Lazy() bool {
	return c.Flags&Lazy != 0
}

// DiscoverOnLoad returns true if the chunk must be decoded while loading.
func (c *ChunkInfo) DiscoverOnLoad() bool {
	return c.Flags&DiscoverOnLoad != 0
}

// ClassInfo is what a dialect registers for each class.
type ClassInfo struct {
	ID     ClassID
	Name   string
	Parent ClassID // zero for a root class

	// Abstract classes can't be instantiated from a node reference.
	Abstract bool

	// Body chunks and header (user data) chunks. Chunk ids must belong to ID.
	Chunks       []ChunkInfo
	HeaderChunks []ChunkInfo
}

type classEntry struct {
	info      ClassInfo
	chunks    map[uint32]*ChunkInfo
	header    map[uint32]*ChunkInfo
	ancestors []ClassID
	lineage   map[ClassID]bool // self and ancestors
}

// Registry maps class ids to their chunk tables. A Registry is immutable once
// built and safe for concurrent use by any number of sessions.
type Registry struct {
	classes map[ClassID]*classEntry
	remaps  map[ClassID]ClassID
}

// RegistryBuilder collects class registrations. It is not thread safe, and is
// meant to be used once during initialization.
type RegistryBuilder struct {
	classes map[ClassID]ClassInfo
	order   []ClassID
	remaps  map[ClassID]ClassID
	err     error
}

// NewRegistryBuilder returns an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		classes: make(map[ClassID]ClassInfo),
		remaps:  make(map[ClassID]ClassID),
	}
}

func (b *RegistryBuilder) fail(format string, args ...interface{}) {
	if b.err == nil {
		b.err = newError(ErrInvalidArgument, format, args...)
	}
}

// Register adds a class. Errors are reported by Build.
func (b *RegistryBuilder) Register(info ClassInfo) *RegistryBuilder {
	if !info.ID.Valid() {
		b.fail("invalid class id %s", info.ID)
		return b
	}
	if _, ok := b.classes[info.ID]; ok {
		b.fail("class %s registered twice", info.ID)
		return b
	}
	b.classes[info.ID] = info
	b.order = append(b.order, info.ID)
	return b
}

// Remap makes the deprecated class id 'from' resolve to 'to'. Chunk ids of
// 'from' are remapped to the same local id of 'to'.
func (b *RegistryBuilder) Remap(from, to ClassID) *RegistryBuilder {
	if !from.Valid() || !to.Valid() {
		b.fail("invalid remap %s -> %s", from, to)
		return b
	}
	if _, ok := b.remaps[from]; ok {
		b.fail("class %s remapped twice", from)
		return b
	}
	b.remaps[from] = to
	return b
}

// Build validates the registrations and returns the immutable Registry.
func (b *RegistryBuilder) Build() (*Registry, error) {
	r, err := b.build()
	if err != nil {
		log.Errorf("invalid class registry: %s", err)
		return nil, err
	}
	log.V(1).Infof("class registry with %d classes and %d remaps", len(r.classes), len(r.remaps))
	return r, nil
}

func (b *RegistryBuilder) build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	r := &Registry{
		classes: make(map[ClassID]*classEntry, len(b.classes)),
		remaps:  make(map[ClassID]ClassID, len(b.remaps)),
	}

	for _, id := range b.order {
		info := b.classes[id]
		e := &classEntry{
			info:    info,
			chunks:  make(map[uint32]*ChunkInfo, len(info.Chunks)),
			header:  make(map[uint32]*ChunkInfo, len(info.HeaderChunks)),
			lineage: map[ClassID]bool{id: true},
		}
		if err := fillChunks(id, info.Chunks, e.chunks); err != nil {
			return nil, err
		}
		if err := fillChunks(id, info.HeaderChunks, e.header); err != nil {
			return nil, err
		}

		// Walk up the parents. A chain longer than the number of classes
		// means there is a cycle.
		for p := info.Parent; p != 0; p = b.classes[p].Parent {
			if _, ok := b.classes[p]; !ok {
				return nil, newError(ErrInvalidArgument, "class %s has unknown ancestor %s", id, p)
			}
			if e.lineage[p] || len(e.ancestors) > len(b.classes) {
				return nil, newError(ErrInvalidArgument, "class %s has a cyclic ancestry", id)
			}
			e.ancestors = append(e.ancestors, p)
			e.lineage[p] = true
		}
		r.classes[id] = e
	}

	// Resolve remap chains so that lookups are a single step.
	for from, to := range b.remaps {
		if _, ok := b.classes[from]; ok {
			return nil, newError(ErrInvalidArgument, "remapped class %s is also registered", from)
		}
		seen := map[ClassID]bool{from: true}
		for {
			next, ok := b.remaps[to]
			if !ok {
				break
			}
			if seen[next] {
				return nil, newError(ErrInvalidArgument, "remap cycle through %s", from)
			}
			seen[to] = true
			to = next
		}
		if _, ok := b.classes[to]; !ok {
			return nil, newError(ErrInvalidArgument, "class %s remapped to unknown class %s", from, to)
		}
		r.remaps[from] = to
	}
	return r, nil
}

func fillChunks(class ClassID, infos []ChunkInfo, into map[uint32]*ChunkInfo) error {
	for i := range infos {
		ci := &infos[i]
		if ChunkClass(ci.ID) != class {
			return newError(ErrInvalidArgument, "chunk %08X registered on class %s", ci.ID, class)
		}
		if ci.New == nil {
			return newError(ErrInvalidArgument, "chunk %08X has no constructor", ci.ID)
		}
		if _, ok := into[ci.ID]; ok {
			return newError(ErrInvalidArgument, "chunk %08X registered twice", ci.ID)
		}
		into[ci.ID] = ci
	}
	return nil
}

// Remap returns the current id of a possibly deprecated class id.
func (r *Registry) Remap(id ClassID) ClassID {
	if to, ok := r.remaps[id]; ok {
		return to
	}
	return id
}

// RemapChunk returns the current id of a chunk whose class part may be
// deprecated.
func (r *Registry) RemapChunk(id uint32) uint32 {
	return uint32(r.Remap(ChunkClass(id))) | ChunkLocal(id)
}

// Class returns the registration of a class, or nil.
func (r *Registry) Class(id ClassID) *ClassInfo {
	if e, ok := r.classes[id]; ok {
		return &e.info
	}
	return nil
}

// Ancestors returns the ancestors of a class, nearest first.
func (r *Registry) Ancestors(id ClassID) []ClassID {
	if e, ok := r.classes[id]; ok {
		return append([]ClassID(nil), e.ancestors...)
	}
	return nil
}

// Inherits returns true if 'id' is 'base' or derives from it.
func (r *Registry) Inherits(id, base ClassID) bool {
	e, ok := r.classes[id]
	return ok && e.lineage[base]
}

// Chunk returns the body chunk 'chunkID' as seen from a node of class 'class',
// or nil. The chunk must belong to the class or one of its ancestors.
func (r *Registry) Chunk(class ClassID, chunkID uint32) *ChunkInfo {
	return r.find(class, chunkID, false)
}

// HeaderChunk is like Chunk for header user data chunks.
func (r *Registry) HeaderChunk(class ClassID, chunkID uint32) *ChunkInfo {
	return r.find(class, chunkID, true)
}

func (r *Registry) find(class ClassID, chunkID uint32, header bool) *ChunkInfo {
	e, ok := r.classes[class]
	if !ok {
		return nil
	}
	owner := ChunkClass(chunkID)
	if !e.lineage[owner] {
		return nil
	}
	oe := r.classes[owner]
	if header {
		return oe.header[chunkID]
	}
	return oe.chunks[chunkID]
}

// Classes returns all registered class ids in ascending order.
func (r *Registry) Classes() []ClassID {
	ids := make([]ClassID, 0, len(r.classes))
	for id := range r.classes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Name returns the registered name of a class, or its hex id.
func (r *Registry) Name(id ClassID) string {
	if e, ok := r.classes[id]; ok && e.info.Name != "" {
		return e.info.Name
	}
	return fmt.Sprintf("class %s", id)
}
