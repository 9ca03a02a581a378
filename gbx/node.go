// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

// Node is an instance of a registered class. Its chunks are kept in stream
// order, which is also the order they're written in.
type Node struct {
	// Class is the class id after remapping.
	Class ClassID

	rawClass uint32
	chunks   []*Chunk
}

// NewNode returns an empty node of class 'class'.
func NewNode(class ClassID) *Node {
	return &Node{Class: class, rawClass: uint32(class)}
}

// RawClass returns the class id the node had in the stream.
func (n *Node) RawClass() uint32 {
	return n.rawClass
}

// Chunks returns the chunks of the node in order.
func (n *Node) Chunks() []*Chunk {
	return n.chunks
}

// Chunk returns the first chunk with the given (remapped) id, or nil.
func (n *Node) Chunk(id uint32) *Chunk {
	for _, c := range n.chunks {
		if c.ID == id && c.Kind != ChunkZero && c.Kind != ChunkRecovery {
			return c
		}
	}
	return nil
}

// Data returns the fields of chunk 'id', discovering it if needed. It returns
// nil and no error if the node has no such chunk.
func (n *Node) Data(id uint32) (ChunkData, error) {
	c := n.Chunk(id)
	if c == nil {
		return nil, nil
	}
	return c.Data()
}

// AddChunk appends a chunk built from 'data'. The chunk must be registered
// for the node's class or one of its ancestors, and is written lazily or
// eagerly according to its registration. A recovered blob stays last, as it
// runs up to the terminator.
func (n *Node) AddChunk(reg *Registry, id uint32, data ChunkData) (*Chunk, error) {
	info := reg.Chunk(n.Class, id)
	if info == nil {
		return nil, newError(ErrUnknownChunk, "class %s has no chunk %08X", n.Class, id)
	}
	if data == nil {
		return nil, newError(ErrInvalidArgument, "nil data for chunk %08X", id)
	}
	kind := ChunkEager
	if info.Lazy() {
		kind = ChunkLazy
	}
	c := &Chunk{
		ID:         id,
		Kind:       kind,
		rawID:      id,
		info:       info,
		node:       n,
		data:       data,
		discovered: true,
	}
	if last := len(n.chunks) - 1; last >= 0 && n.chunks[last].Kind == ChunkRecovery {
		n.chunks = append(n.chunks[:last], c, n.chunks[last])
	} else {
		n.chunks = append(n.chunks, c)
	}
	return c, nil
}

// RemoveChunk removes every chunk with the given id and returns how many
// were removed.
func (n *Node) RemoveChunk(id uint32) int {
	kept := n.chunks[:0]
	removed := 0
	for _, c := range n.chunks {
		if c.ID == id && c.Kind != ChunkZero && c.Kind != ChunkRecovery {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(n.chunks); i++ {
		n.chunks[i] = nil
	}
	n.chunks = kept
	return removed
}

// Refs is implemented by chunk data holding node references, so that the
// graph reachable from a node can be walked without decoding anything.
type Refs interface {
	Refs() []*Node
}

// Walk calls 'fn' for 'n' and every node reachable from it through
// discovered chunks, each node once, depth first. Walk stops if 'fn' returns
// false.
func (n *Node) Walk(fn func(*Node) bool) {
	seen := make(map[*Node]bool)
	var visit func(*Node) bool
	visit = func(x *Node) bool {
		if x == nil || seen[x] {
			return true
		}
		seen[x] = true
		if !fn(x) {
			return false
		}
		for _, c := range x.chunks {
			data, _, discovered := c.snapshot()
			if !discovered {
				continue
			}
			if r, ok := data.(Refs); ok {
				for _, child := range r.Refs() {
					if !visit(child) {
						return false
					}
				}
			}
		}
		return true
	}
	visit(n)
}
