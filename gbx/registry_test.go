// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"testing"
)

func newData() ChunkData { return &baseName{} }

func TestRegistryLookups(t *testing.T) {
	reg := newTestRegistry(t)

	if info := reg.Class(testRoot); info == nil || info.Name != "Root" {
		t.Fatalf("Root not found: %+v", info)
	}
	if reg.Class(0x0C000000) != nil {
		t.Fatalf("found an unregistered class")
	}
	if a := reg.Ancestors(testRoot); len(a) != 1 || a[0] != testBase {
		t.Fatalf("bad ancestors %v", a)
	}
	if !reg.Inherits(testChild, testBase) || reg.Inherits(testChild, testRoot) {
		t.Fatalf("bad inheritance")
	}

	// Chunks of ancestors are visible, chunks of siblings are not.
	if reg.Chunk(testRoot, chunkBaseName) == nil {
		t.Fatalf("ancestor chunk not visible")
	}
	if reg.Chunk(testRoot, chunkChildVal) != nil {
		t.Fatalf("sibling chunk visible")
	}
	if info := reg.Chunk(testRoot, chunkRootDict); info == nil || !info.Lazy() || !info.DiscoverOnLoad() {
		t.Fatalf("bad flags for %08X: %+v", chunkRootDict, info)
	}
	if reg.HeaderChunk(testRoot, headerRootDesc) == nil || reg.HeaderChunk(testChild, headerRootDesc) != nil {
		t.Fatalf("bad header chunk lookup")
	}

	if got := reg.Classes(); len(got) != 3 || got[0] != testBase || got[2] != testChild {
		t.Fatalf("bad class list %v", got)
	}
	if reg.Name(testChild) != "Child" || reg.Name(0x0C000000) != "class 0C000000" {
		t.Fatalf("bad names")
	}
}

func TestRegistryRemap(t *testing.T) {
	b := NewRegistryBuilder().
		Register(ClassInfo{ID: 0x03043000, Chunks: []ChunkInfo{{ID: 0x03043002, New: newData}}}).
		Remap(0x24003000, 0x03043000).
		Remap(0x21080000, 0x24003000) // chain
	reg, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build: %s", err)
	}
	if got := reg.Remap(0x21080000); got != 0x03043000 {
		t.Fatalf("chain resolved to %s", got)
	}
	if got := reg.Remap(0x03043000); got != 0x03043000 {
		t.Fatalf("current id remapped to %s", got)
	}
	if got := reg.RemapChunk(0x24003002); got != 0x03043002 {
		t.Fatalf("chunk remapped to %08X", got)
	}
}

// Two registries with different remaps live side by side.
func TestRegistryDialects(t *testing.T) {
	one, err := NewRegistryBuilder().
		Register(ClassInfo{ID: 0x03043000}).
		Remap(0x24003000, 0x03043000).
		Build()
	if err != nil {
		t.Fatalf("failed to build: %s", err)
	}
	two, err := NewRegistryBuilder().
		Register(ClassInfo{ID: 0x24003000}).
		Build()
	if err != nil {
		t.Fatalf("failed to build: %s", err)
	}
	if one.Remap(0x24003000) != 0x03043000 || two.Remap(0x24003000) != 0x24003000 {
		t.Fatalf("dialects interfere")
	}
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name string
		b    *RegistryBuilder
	}{
		{"invalid id", NewRegistryBuilder().Register(ClassInfo{ID: 0x01001001})},
		{"duplicate", NewRegistryBuilder().Register(ClassInfo{ID: 0x01001000}).Register(ClassInfo{ID: 0x01001000})},
		{"unknown parent", NewRegistryBuilder().Register(ClassInfo{ID: 0x01001000, Parent: 0x01002000})},
		{"cycle", NewRegistryBuilder().
			Register(ClassInfo{ID: 0x01001000, Parent: 0x01002000}).
			Register(ClassInfo{ID: 0x01002000, Parent: 0x01001000})},
		{"foreign chunk", NewRegistryBuilder().
			Register(ClassInfo{ID: 0x01001000, Chunks: []ChunkInfo{{ID: 0x01002001, New: newData}}})},
		{"no constructor", NewRegistryBuilder().
			Register(ClassInfo{ID: 0x01001000, Chunks: []ChunkInfo{{ID: 0x01001001}}})},
		{"duplicate chunk", NewRegistryBuilder().
			Register(ClassInfo{ID: 0x01001000, Chunks: []ChunkInfo{{ID: 0x01001001, New: newData}, {ID: 0x01001001, New: newData}}})},
		{"remap to unknown", NewRegistryBuilder().Remap(0x01001000, 0x01002000)},
		{"remap of registered", NewRegistryBuilder().
			Register(ClassInfo{ID: 0x01001000}).
			Register(ClassInfo{ID: 0x01002000}).
			Remap(0x01001000, 0x01002000)},
		{"remap cycle", NewRegistryBuilder().
			Register(ClassInfo{ID: 0x01003000}).
			Remap(0x01001000, 0x01002000).
			Remap(0x01002000, 0x01001000)},
	}
	for _, test := range tests {
		if _, err := test.b.Build(); !ErrInvalidArgument.Is(err) {
			t.Errorf("%s: expected invalid argument, got %v", test.name, err)
		}
	}
}
