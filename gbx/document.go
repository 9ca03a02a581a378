// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"sync"
)

// Compression and format bytes of the container header.
const (
	FormatBinary byte = 'B'
	FormatText   byte = 'T'

	Compressed   byte = 'C'
	Uncompressed byte = 'U'
)

// Document is a parsed container. Everything needed to write it back byte
// for byte is kept, including data we could not interpret.
type Document struct {
	Version         int16
	Format          byte // Only FormatBinary is supported.
	RefCompression  byte
	BodyCompression byte
	Reserved        byte // Stored from version 4 on.

	// HeaderChunks are the user data chunks, stored from version 6 on.
	HeaderChunks []*Chunk

	// NodeCount is written back as is. If it's zero, the number of
	// auxiliary nodes plus one is written instead.
	NodeCount int32

	RefTable *RefTable

	// Root is the node the body decodes into. If the body could not be
	// decoded (unknown class), Body holds it instead.
	Root *Node
	Body []byte

	// BodyTrailing are bytes found after the root terminator.
	BodyTrailing []byte

	class    ClassID
	rawClass uint32

	// Whether the user data section was present (non-zero length).
	userData       bool
	headerTrailing []byte

	// Everything after the reference table, for header-only documents.
	rawBody []byte
	bodySkipped bool

	// The decompressed and compressed body as read, to write the original
	// compressed bytes back if the body didn't change.
	origBody       []byte
	origCompressed []byte

	// Bytes after a compressed body.
	fileTrailing []byte

	workers int

	lock  sync.Mutex
	nodes []*Node
}

// NewDocument returns an empty document of class 'class' with the layout of
// current containers.
func NewDocument(class ClassID) *Document {
	d := &Document{
		Version:         6,
		Format:          FormatBinary,
		RefCompression:  Uncompressed,
		BodyCompression: Uncompressed,
		Reserved:        'R',
		Root:            NewNode(class),
		class:           class,
		rawClass:        uint32(class),
		workers:         DefaultOptions.DiscoverWorkers,
	}
	d.nodes = []*Node{d.Root}
	return d
}

// Class returns the root class id, after remapping.
func (d *Document) Class() ClassID {
	return d.class
}

// RawClass returns the root class id as stored.
func (d *Document) RawClass() uint32 {
	return d.rawClass
}

// Opaque returns true if the body was not decoded, either because the class
// is unknown or because only the header was read.
func (d *Document) Opaque() bool {
	return d.Body != nil || d.rawBody != nil || d.bodySkipped
}

// HeaderOnly returns true for documents returned by Container.ReadHeader.
func (d *Document) HeaderOnly() bool {
	return d.rawBody != nil || d.bodySkipped
}

// HeaderChunk returns the header chunk with the given id, or nil.
func (d *Document) HeaderChunk(id uint32) *Chunk {
	for _, c := range d.HeaderChunks {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// AddHeaderChunk appends a header chunk built from 'data'.
func (d *Document) AddHeaderChunk(reg *Registry, id uint32, data ChunkData, heavy bool) (*Chunk, error) {
	info := reg.HeaderChunk(d.class, id)
	if info == nil {
		return nil, newError(ErrUnknownChunk, "class %s has no header chunk %08X", d.class, id)
	}
	if data == nil {
		return nil, newError(ErrInvalidArgument, "nil data for header chunk %08X", id)
	}
	c := &Chunk{
		ID:         id,
		Kind:       ChunkHeader,
		Heavy:      heavy,
		rawID:      id,
		info:       info,
		node:       d.Root,
		data:       data,
		discovered: true,
	}
	d.HeaderChunks = append(d.HeaderChunks, c)
	return c, nil
}

// Nodes returns the root and every auxiliary node read so far, including the
// ones created by discovering lazy chunks, in the order they were created.
func (d *Document) Nodes() []*Node {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]*Node(nil), d.nodes...)
}

func (d *Document) track(n *Node) {
	d.lock.Lock()
	d.nodes = append(d.nodes, n)
	d.lock.Unlock()
}
