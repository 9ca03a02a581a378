// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"bytes"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

// writeSession mirrors session for writing: the Id scope registers strings
// in the order they're written, and the node table assigns indices in the
// order nodes are first referenced.
type writeSession struct {
	reg   *Registry
	opts  *Options
	ids   *idScope
	nodes *nodeTable
}

func newWriteSession(reg *Registry, opts *Options) *writeSession {
	return &writeSession{
		reg:   reg,
		opts:  opts,
		ids:   newIdScope(),
		nodes: newNodeTable(),
	}
}

func (s *writeSession) fork() *writeSession {
	return &writeSession{
		reg:   s.reg,
		opts:  s.opts,
		ids:   s.ids.fork(),
		nodes: s.nodes.fork(),
	}
}

// writeNode writes the chunks of 'n' followed by the terminator.
func (s *writeSession) writeNode(w *cursor.Writer, n *Node) error {
	for i, ch := range n.chunks {
		if ch.Kind == ChunkRecovery {
			if i != len(n.chunks)-1 {
				log.Errorf("%d chunks follow the recovered blob of a %s node", len(n.chunks)-1-i, n.Class)
				return newError(ErrInvalidArgument, "%d chunks after the recovered blob of %s", len(n.chunks)-1-i, n.Class)
			}
			// A recovery blob runs up to and includes the terminator.
			if err := w.UInt32(ch.rawID); err != nil {
				return err
			}
			if err := w.Bytes(ch.raw); err != nil {
				return err
			}
			return w.UInt32(Terminator)
		}
		if err := s.writeChunk(w, n, ch); err != nil {
			return err
		}
	}
	return w.UInt32(Terminator)
}

func (s *writeSession) writeChunk(w *cursor.Writer, n *Node, ch *Chunk) error {
	if ch.Kind == ChunkZero {
		return w.UInt32(0)
	}
	data, raw, discovered := ch.snapshot()

	if ch.Kind == ChunkEager {
		if err := w.UInt32(ch.rawID); err != nil {
			return err
		}
		rw := &ReadWriter{w: w, ws: s}
		data.ReadWrite(n, rw)
		if err := rw.Err(); err != nil {
			log.Errorf("eager chunk %08X at %d: %s", ch.rawID, w.Written(), err)
			return &ChunkError{ChunkID: ch.rawID, Offset: w.Written(), Err: err}
		}
		return nil
	}

	payload := raw
	if discovered {
		// Discover-on-load chunks were read against the live tables, others
		// against a snapshot of them. Do the same here.
		ws := s
		if ch.info != nil && !ch.info.DiscoverOnLoad() {
			ws = s.fork()
		}
		var buf bytes.Buffer
		rw := &ReadWriter{w: cursor.NewWriter(&buf), ws: ws}
		data.ReadWrite(n, rw)
		if err := rw.Err(); err != nil {
			log.Errorf("lazy chunk %08X at %d: %s", ch.rawID, w.Written(), err)
			return &ChunkError{ChunkID: ch.rawID, Offset: w.Written(), Err: err}
		}
		payload = buf.Bytes()
	}

	if err := w.UInt32(ch.rawID); err != nil {
		return err
	}
	if err := w.UInt32(SkipMarker); err != nil {
		return err
	}
	if err := w.Int32(int32(len(payload))); err != nil {
		return err
	}
	return w.Bytes(payload)
}

// writeNodeRef writes a reference, and the node itself the first time it's
// referenced. A nil node is written as -1.
func (s *writeSession) writeNodeRef(w *cursor.Writer, n *Node) error {
	if n == nil {
		return w.Int32(-1)
	}
	if idx, ok := s.nodes.indexOf(n); ok {
		return w.Int32(idx)
	}
	idx := s.nodes.assign(n)
	if err := w.Int32(idx); err != nil {
		return err
	}
	raw := n.rawClass
	if raw == 0 {
		raw = uint32(n.Class)
	}
	if err := w.UInt32(raw); err != nil {
		return err
	}
	return s.writeNode(w, n)
}
