// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// One broken chunk doesn't keep the others from being discovered.
func TestDiscoverAllPartialFailure(t *testing.T) {
	reg := newTestRegistry(t)
	c := newTestContainer(t, reg, func(o *Options) { o.DiscoverWorkers = 2 })

	good := newBodyWriter().u32(2, 5, 6).str("ok").bytes()
	bad := newBodyWriter().u32(1000).bytes()

	// Neither the refs payload nor the nested note have seen an Id yet, so
	// both start with the Id version word.
	note := newBodyWriter().str("n").u32(uint32(IdVersion), idWordEmpty).bytes()
	refs := newBodyWriter().
		u32(1, uint32(testChild)).
		lazy(chunkChildNote, note).
		u32(Terminator).
		u32(1, uint32(IdVersion), idWordEmpty).
		bytes()

	body := newBodyWriter().
		lazy(chunkRootBlob, good).
		lazy(chunkRootBlob, bad).
		lazy(chunkRootRefs, refs).
		u32(Terminator).
		bytes()
	orig := rawContainer(uint32(testRoot), body)
	doc := readDoc(t, c, orig)

	err := doc.DiscoverAll(context.Background())
	var errs DiscoveryErrors
	if !errors.As(err, &errs) || len(errs) != 1 {
		t.Fatalf("expected one discovery error, got %v", err)
	}
	if !ErrIntegrity.Is(errs[0]) {
		t.Fatalf("expected an integrity error, got %v", errs[0])
	}

	chunks := doc.Root.Chunks()
	if !chunks[0].Discovered() || chunks[1].Discovered() || chunks[1].Err() == nil || !chunks[2].Discovered() {
		t.Fatalf("bad chunk states")
	}

	// The node found in the second round got its lazy chunk discovered too.
	nodes := doc.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if ch := nodes[1].Chunk(chunkChildNote); ch == nil || !ch.Discovered() {
		t.Fatalf("nested lazy chunk not discovered")
	}

	diff(t, "round trip", writeDoc(t, c, doc), orig)
}

func TestDiscoverAllCanceled(t *testing.T) {
	reg := newTestRegistry(t)
	c := newTestContainer(t, reg, nil)
	doc := readDoc(t, c, writeDoc(t, c, buildTestDoc(t, reg, false)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := doc.DiscoverAll(ctx); !ErrCanceled.Is(err) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if doc.Root.Chunk(chunkRootBlob).Discovered() {
		t.Fatalf("discovered after cancel")
	}
}

// Concurrent discovery of chunks that share tables gives the same result as
// sequential discovery.
func TestDiscoverAllConcurrent(t *testing.T) {
	reg := newTestRegistry(t)
	c := newTestContainer(t, reg, func(o *Options) { o.DiscoverWorkers = 8 })

	doc := NewDocument(testRoot)
	mustAdd(t, doc.Root, reg, chunkRootInfo, &rootInfo{Version: 1, Name: NewId("shared")})
	for i := 0; i < 50; i++ {
		child := NewNode(testChild)
		mustAdd(t, child, reg, chunkChildNote, &childNote{Note: "x", Owner: NewId("shared")})
		mustAdd(t, doc.Root, reg, chunkRootRefs, &rootRefs{A: child, Tag: NewId("shared")})
	}
	orig := writeDoc(t, c, doc)

	back := readDoc(t, c, orig)
	if err := back.DiscoverAll(context.Background()); err != nil {
		t.Fatalf("failed to discover: %s", err)
	}
	for _, ch := range back.Root.Chunks() {
		if ch.ID != chunkRootRefs {
			continue
		}
		data, _ := ch.Data()
		refs := data.(*rootRefs)
		if refs.A == nil || refs.B != nil || refs.Tag != NewId("shared") {
			t.Fatalf("bad refs %+v", refs)
		}
		note, err := refs.A.Data(chunkChildNote)
		if err != nil || note.(*childNote).Owner != NewId("shared") {
			t.Fatalf("bad note %v %v", note, err)
		}
	}
	var buf bytes.Buffer
	if err := c.Write(&buf, back); err != nil {
		t.Fatalf("failed to write: %s", err)
	}
	diff(t, "round trip", buf.Bytes(), orig)
}

// Nodes decoded by a discovery that fails don't join the document.
func TestFailedDiscoveryAddsNoNodes(t *testing.T) {
	reg := newTestRegistry(t)
	c := newTestContainer(t, reg, nil)

	refs := newBodyWriter().
		u32(1, uint32(testChild), chunkChildVal, 5, Terminator).
		u32(1, uint32(IdVersion), idWordEmpty).
		u32(0xDEADBEEF). // left over
		bytes()
	body := newBodyWriter().
		lazy(chunkRootRefs, refs).
		u32(Terminator).
		bytes()
	orig := rawContainer(uint32(testRoot), body)
	doc := readDoc(t, c, orig)

	if err := doc.DiscoverAll(context.Background()); err == nil {
		t.Fatalf("expected the refs chunk to fail")
	}
	if ch := doc.Root.Chunk(chunkRootRefs); ch.Discovered() || ch.Err() == nil {
		t.Fatalf("refs chunk should have failed")
	}
	if n := len(doc.Nodes()); n != 1 {
		t.Fatalf("expected only the root, got %d nodes", n)
	}
	diff(t, "round trip", writeDoc(t, c, doc), orig)

	// The same payload without the extra word adds the child.
	good := readDoc(t, c, rawContainer(uint32(testRoot), newBodyWriter().
		lazy(chunkRootRefs, refs[:len(refs)-4]).
		u32(Terminator).
		bytes()))
	if err := good.DiscoverAll(context.Background()); err != nil {
		t.Fatalf("failed to discover: %s", err)
	}
	if n := len(good.Nodes()); n != 2 {
		t.Fatalf("expected root and child, got %d nodes", n)
	}
}

// A discover-on-load chunk that fails while reading leaves no nodes behind.
func TestFailedDiscoverOnLoadAddsNoNodes(t *testing.T) {
	reg := NewRegistryBuilder().
		Register(ClassInfo{
			ID:   testRoot,
			Name: "Root",
			Chunks: []ChunkInfo{
				{ID: chunkRootRefs, Flags: Lazy | DiscoverOnLoad, New: func() ChunkData { return &rootRefs{} }},
			},
		}).
		Register(ClassInfo{
			ID:   testChild,
			Name: "Child",
			Chunks: []ChunkInfo{
				{ID: chunkChildVal, New: func() ChunkData { return &childValue{} }},
			},
		})
	r, err := reg.Build()
	if err != nil {
		t.Fatalf("failed to build registry: %s", err)
	}
	c := newTestContainer(t, r, nil)

	refs := newBodyWriter().
		u32(1, uint32(testChild), chunkChildVal, 5, Terminator).
		u32(1, uint32(IdVersion), idWordEmpty, 0).
		bytes()
	doc := readDoc(t, c, rawContainer(uint32(testRoot), newBodyWriter().
		lazy(chunkRootRefs, refs).
		u32(Terminator).
		bytes()))
	if ch := doc.Root.Chunk(chunkRootRefs); ch.Discovered() || ch.Err() == nil {
		t.Fatalf("refs chunk should have failed")
	}
	if n := len(doc.Nodes()); n != 1 {
		t.Fatalf("expected only the root, got %d nodes", n)
	}
}
