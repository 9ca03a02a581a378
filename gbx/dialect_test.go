// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"bytes"
	"testing"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
	"github.com/westerndigitalcorporation/gbx/pkg/testutil"
)

// A small dialect exercising every dispatch path.

const (
	testBase       ClassID = 0x0A000000
	testRoot       ClassID = 0x0A001000
	testChild      ClassID = 0x0A002000
	testLegacyRoot ClassID = 0x0B001000

	chunkBaseName  uint32 = 0x0A000001 // eager, on the ancestor
	chunkRootInfo  uint32 = 0x0A001000 // eager
	chunkRootRefs  uint32 = 0x0A001001 // lazy
	chunkRootBlob  uint32 = 0x0A001002 // lazy
	chunkRootDict  uint32 = 0x0A001003 // lazy, discover on load
	chunkRootPair  uint32 = 0x0A001004 // eager, two node refs
	chunkChildVal  uint32 = 0x0A002000 // eager
	chunkChildNote uint32 = 0x0A002001 // lazy
	headerRootDesc uint32 = 0x0A001000
)

type baseName struct{ Name string }

func (c *baseName) ReadWrite(n *Node, rw *ReadWriter) { rw.String(&c.Name) }

type rootInfo struct {
	Version int32
	Name    Id
}

func (c *rootInfo) ReadWrite(n *Node, rw *ReadWriter) {
	rw.Int32(&c.Version)
	rw.Id(&c.Name)
}

type rootRefs struct {
	A, B *Node
	Tag  Id
}

func (c *rootRefs) ReadWrite(n *Node, rw *ReadWriter) {
	rw.NodeRef(&c.A)
	rw.NodeRef(&c.B)
	rw.Id(&c.Tag)
}

func (c *rootRefs) Refs() []*Node { return []*Node{c.A, c.B} }

type rootBlob struct {
	Values  []int32
	Comment string
}

func (c *rootBlob) ReadWrite(n *Node, rw *ReadWriter) {
	rw.Int32s(&c.Values)
	rw.String(&c.Comment)
}

type rootDict struct{ Key Id }

func (c *rootDict) ReadWrite(n *Node, rw *ReadWriter) { rw.Id(&c.Key) }

type rootPair struct{ A, B *Node }

func (c *rootPair) ReadWrite(n *Node, rw *ReadWriter) {
	rw.NodeRef(&c.A)
	rw.NodeRef(&c.B)
}

type childValue struct{ Value int32 }

func (c *childValue) ReadWrite(n *Node, rw *ReadWriter) { rw.Int32(&c.Value) }

type childNote struct {
	Note  string
	Owner Id
}

func (c *childNote) ReadWrite(n *Node, rw *ReadWriter) {
	rw.String(&c.Note)
	rw.Id(&c.Owner)
}

type headerDescData struct {
	Version int32
	Name    Id
	Author  Id
}

func (c *headerDescData) ReadWrite(n *Node, rw *ReadWriter) {
	rw.Int32(&c.Version)
	rw.Id(&c.Name)
	rw.Id(&c.Author)
}

func newTestRegistry(t *testing.T) *Registry {
	b := NewRegistryBuilder()
	b.Register(ClassInfo{
		ID:       testBase,
		Name:     "Base",
		Abstract: true,
		Chunks: []ChunkInfo{
			{ID: chunkBaseName, New: func() ChunkData { return &baseName{} }},
		},
	})
	b.Register(ClassInfo{
		ID:     testRoot,
		Name:   "Root",
		Parent: testBase,
		Chunks: []ChunkInfo{
			{ID: chunkRootInfo, New: func() ChunkData { return &rootInfo{} }},
			{ID: chunkRootRefs, Flags: Lazy, New: func() ChunkData { return &rootRefs{} }},
			{ID: chunkRootBlob, Flags: Lazy, New: func() ChunkData { return &rootBlob{} }},
			{ID: chunkRootDict, Flags: Lazy | DiscoverOnLoad, New: func() ChunkData { return &rootDict{} }},
			{ID: chunkRootPair, New: func() ChunkData { return &rootPair{} }},
		},
		HeaderChunks: []ChunkInfo{
			{ID: headerRootDesc, New: func() ChunkData { return &headerDescData{} }},
		},
	})
	b.Register(ClassInfo{
		ID:     testChild,
		Name:   "Child",
		Parent: testBase,
		Chunks: []ChunkInfo{
			{ID: chunkChildVal, New: func() ChunkData { return &childValue{} }},
			{ID: chunkChildNote, Flags: Lazy, New: func() ChunkData { return &childNote{} }},
		},
	})
	b.Remap(testLegacyRoot, testRoot)
	reg, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build test registry: %s", err)
	}
	return reg
}

func newTestContainer(t *testing.T, reg *Registry, mod func(*Options)) *Container {
	opts := DefaultOptions
	if mod != nil {
		mod(&opts)
	}
	c, err := NewContainer(reg, opts)
	if err != nil {
		t.Fatalf("failed to create container: %s", err)
	}
	return c
}

func mustAdd(t *testing.T, n *Node, reg *Registry, id uint32, data ChunkData) {
	if _, err := n.AddChunk(reg, id, data); err != nil {
		t.Fatalf("failed to add chunk %08X: %s", id, err)
	}
}

// buildTestDoc returns a document touching Ids in eager, lazy and
// discover-on-load chunks, and sharing one child node between two fields.
func buildTestDoc(t *testing.T, reg *Registry, header bool) *Document {
	doc := NewDocument(testRoot)
	if header {
		if _, err := doc.AddHeaderChunk(reg, headerRootDesc, &headerDescData{
			Version: 2, Name: NewId("Stadium"), Author: NewId("Nadeo"),
		}, true); err != nil {
			t.Fatalf("failed to add header chunk: %s", err)
		}
	}

	shared := NewNode(testChild)
	mustAdd(t, shared, reg, chunkChildVal, &childValue{Value: 7})
	mustAdd(t, shared, reg, chunkChildNote, &childNote{Note: "shared", Owner: NewId("Stadium")})

	root := doc.Root
	mustAdd(t, root, reg, chunkBaseName, &baseName{Name: "base"})
	mustAdd(t, root, reg, chunkRootInfo, &rootInfo{Version: 1, Name: NewId("Stadium")})
	mustAdd(t, root, reg, chunkRootDict, &rootDict{Key: NewId("Nadeo")})
	mustAdd(t, root, reg, chunkRootRefs, &rootRefs{A: shared, B: shared, Tag: NewId("Nadeo")})
	mustAdd(t, root, reg, chunkRootBlob, &rootBlob{Values: []int32{1, 2, 3}, Comment: "hi"})
	return doc
}

func writeDoc(t *testing.T, c *Container, doc *Document) []byte {
	var buf bytes.Buffer
	if err := c.Write(&buf, doc); err != nil {
		t.Fatalf("failed to write document: %s", err)
	}
	return buf.Bytes()
}

func readDoc(t *testing.T, c *Container, b []byte) *Document {
	doc, err := c.Read(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("failed to read document: %s", err)
	}
	return doc
}

// rawContainer wraps a hand-made body into a version 6 uncompressed
// container without user data or references.
func rawContainer(class uint32, body []byte) []byte {
	var buf bytes.Buffer
	w := cursor.NewWriter(&buf)
	w.Bytes([]byte("GBX"))
	w.Int16(6)
	w.Bytes([]byte("BUUR"))
	w.UInt32(class)
	w.Int32(0) // user data
	w.Int32(1) // node count
	w.Int32(0) // references
	w.Bytes(body)
	return buf.Bytes()
}

// bodyWriter builds chunk streams by hand.
type bodyWriter struct {
	buf bytes.Buffer
	w   *cursor.Writer
}

func newBodyWriter() *bodyWriter {
	b := &bodyWriter{}
	b.w = cursor.NewWriter(&b.buf)
	return b
}

func (b *bodyWriter) u32(vs ...uint32) *bodyWriter {
	for _, v := range vs {
		b.w.UInt32(v)
	}
	return b
}

func (b *bodyWriter) str(s string) *bodyWriter {
	b.w.String(s)
	return b
}

func (b *bodyWriter) raw(p []byte) *bodyWriter {
	b.w.Bytes(p)
	return b
}

func (b *bodyWriter) lazy(id uint32, payload []byte) *bodyWriter {
	return b.u32(id, SkipMarker, uint32(len(payload))).raw(payload)
}

func (b *bodyWriter) bytes() []byte {
	return b.buf.Bytes()
}

func diff(t *testing.T, what string, got, want []byte) {
	if d := testutil.DiffBytes(got, want); d != "" {
		t.Fatalf("%s: %s", what, d)
	}
}
