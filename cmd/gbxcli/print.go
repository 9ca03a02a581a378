// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/westerndigitalcorporation/gbx/gbx"
)

func printHeader(w io.Writer, reg *gbx.Registry, path string, doc *gbx.Document) {
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  version %d, format %c, refs %c, body %c\n", doc.Version, doc.Format, doc.RefCompression, doc.BodyCompression)
	class := reg.Name(doc.Class())
	if uint32(doc.Class()) != doc.RawClass() {
		class += fmt.Sprintf(" (stored as %08X)", doc.RawClass())
	}
	fmt.Fprintf(w, "  class %s, %d nodes\n", class, doc.NodeCount)
	for _, c := range doc.HeaderChunks {
		fmt.Fprintf(w, "  header chunk %s\n", chunkLine(c))
	}
	if t := doc.RefTable; t != nil {
		fmt.Fprintf(w, "  %d external files, ancestor level %d\n", len(t.Files), t.AncestorLevel)
		for _, f := range t.Files {
			name := f.Name
			if f.IsResource() {
				name = fmt.Sprintf("resource %d", f.ResourceIndex)
			} else if f.Folder != nil {
				name = f.Folder.Name + "/" + name
			}
			fmt.Fprintf(w, "    node %d: %s\n", f.NodeIndex, name)
		}
	}
}

func chunkLine(c *gbx.Chunk) string {
	s := fmt.Sprintf("%08X %s", c.ID, c.Kind)
	if c.RawID() != c.ID {
		s += fmt.Sprintf(" (stored as %08X)", c.RawID())
	}
	if c.Heavy {
		s += " heavy"
	}
	switch {
	case c.Err() != nil:
		s += fmt.Sprintf(" failed: %s", c.Err())
	case c.Discovered():
		if data, err := c.Data(); err == nil && data != nil {
			s += fmt.Sprintf(" %T", data)
		}
	case len(c.Raw()) > 0:
		s += fmt.Sprintf(" %d bytes", len(c.Raw()))
	}
	return s
}

// printTree prints every node read so far and its chunks.
func printTree(w io.Writer, reg *gbx.Registry, doc *gbx.Document) {
	if doc.Opaque() {
		fmt.Fprintf(w, "%s: opaque body of %d bytes\n", reg.Name(doc.Class()), len(doc.Body))
		return
	}
	index := make(map[*gbx.Node]int)
	for i, n := range doc.Nodes() {
		index[n] = i
	}
	for i, n := range doc.Nodes() {
		fmt.Fprintf(w, "node %d: %s\n", i, reg.Name(n.Class))
		for _, c := range n.Chunks() {
			fmt.Fprintf(w, "  %s\n", chunkLine(c))
			if !c.Discovered() {
				continue
			}
			data, _ := c.Data()
			if refs, ok := data.(gbx.Refs); ok {
				var out []string
				for _, r := range refs.Refs() {
					out = append(out, fmt.Sprintf("node %d", index[r]))
				}
				fmt.Fprintf(w, "    -> %s\n", strings.Join(out, ", "))
			}
		}
	}
	if len(doc.BodyTrailing) > 0 {
		fmt.Fprintf(w, "%d bytes after the body\n", len(doc.BodyTrailing))
	}
}

// completeFile completes the last word of 'input' as a file name.
func completeFile(input string) (out []string) {
	i := strings.LastIndex(input, " ")
	prefix, word := input[:i+1], input[i+1:]
	matches, _ := filepath.Glob(word + "*")
	for _, m := range matches {
		out = append(out, prefix+m)
	}
	return
}
