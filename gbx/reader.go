// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"bytes"
	"encoding/binary"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

var terminatorBytes = func() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, Terminator)
	return b
}()

// session is the state of one read: the header or the body of a container,
// or a lazy chunk being discovered. Chunks inside one session depend on each
// other through the Id and node tables, so a session is strictly sequential.
type session struct {
	reg   *Registry
	opts  *Options
	doc   *Document
	ids   *idScope
	nodes *nodeTable

	// A fork holds the nodes it creates until its decode succeeds, so a
	// failed decode adds nothing to the document.
	parent  *session
	created []*Node
}

func newSession(reg *Registry, opts *Options, doc *Document) *session {
	return &session{
		reg:   reg,
		opts:  opts,
		doc:   doc,
		ids:   newIdScope(),
		nodes: newNodeTable(),
	}
}

// mark captures the visible table state.
func (s *session) mark() tableMark {
	return tableMark{
		ids:       s.ids,
		idLen:     len(s.ids.strings),
		idVersion: s.ids.version,
		nodes:     s.nodes,
		nodeLen:   s.nodes.count(),
	}
}

// forkAt returns a session whose tables see what was visible at 'm' and
// nothing added later.
func (s *session) forkAt(m tableMark) *session {
	return &session{
		reg:   s.reg,
		opts:  s.opts,
		doc:   s.doc,
		ids:    m.ids.forkAt(m.idLen, m.idVersion),
		nodes:  m.nodes.forkAt(m.nodeLen),
		parent: s,
	}
}

func (s *session) fork() *session {
	return s.forkAt(s.mark())
}

// commit publishes a fork's table additions and nodes into the session it
// was forked from.
func (s *session) commit() {
	s.ids.commit()
	s.nodes.commit()
	for _, n := range s.created {
		s.parent.track(n)
	}
	s.created = nil
}

// publish adds the nodes a fork created to the document without touching
// the tables it was forked from.
func (s *session) publish() {
	for _, n := range s.created {
		s.doc.track(n)
	}
	s.created = nil
}

func (s *session) track(n *Node) {
	if s.parent == nil {
		s.doc.track(n)
		return
	}
	s.created = append(s.created, n)
}

// readNode runs the chunk loop of 'n' until its terminator.
func (s *session) readNode(c *cursor.Reader, n *Node) error {
	for {
		off := c.Position()
		raw, err := c.UInt32()
		if err != nil {
			return classify(err)
		}
		if raw == Terminator {
			return nil
		}
		if raw == 0 {
			// Some writers leave a zero word behind certain node references.
			n.chunks = append(n.chunks, &Chunk{Kind: ChunkZero, offset: off, node: n})
			chunkCounter.WithLabelValues(ChunkZero.String()).Inc()
			continue
		}

		id := s.reg.RemapChunk(raw)
		info := s.reg.Chunk(n.Class, id)
		marker, perr := c.Peek32()
		hasMarker := perr == nil && marker == SkipMarker

		switch {
		case info != nil && info.Lazy():
			if !hasMarker {
				log.Warningf("lazy chunk %08X at %d has no skip marker", raw, off)
				return s.recoverNode(c, n, raw, id, off)
			}
			ch, err := s.capture(c, n, raw, id, off, info)
			if err != nil {
				return err
			}
			if info.DiscoverOnLoad() {
				s.discoverOnLoad(ch)
			}

		case info != nil:
			log.V(2).Infof("eager chunk %08X at %d", raw, off)
			data := info.New()
			rw := &ReadWriter{r: c, rs: s}
			data.ReadWrite(n, rw)
			if err := rw.Err(); err != nil {
				log.Errorf("eager chunk %08X at %d: %s", raw, off, err)
				return &ChunkError{ChunkID: raw, Offset: off, Err: classify(err)}
			}
			n.chunks = append(n.chunks, &Chunk{
				ID:         id,
				Kind:       ChunkEager,
				rawID:      raw,
				offset:     off,
				info:       info,
				node:       n,
				data:       data,
				discovered: true,
			})
			chunkCounter.WithLabelValues(ChunkEager.String()).Inc()

		case hasMarker:
			if _, err := s.capture(c, n, raw, id, off, nil); err != nil {
				return err
			}

		default:
			return s.recoverNode(c, n, raw, id, off)
		}
	}
}

// capture reads the skip marker, length and payload of a lazy chunk.
func (s *session) capture(c *cursor.Reader, n *Node, raw, id uint32, off int64, info *ChunkInfo) (*Chunk, error) {
	if _, err := c.UInt32(); err != nil {
		return nil, classify(err)
	}
	size, err := c.Int32()
	if err != nil {
		return nil, classify(err)
	}
	if size < 0 || int64(size) > c.Remaining() || int64(size) > s.opts.MaxChunkSize {
		log.Errorf("lazy chunk %08X at %d: size %d with %d bytes left", raw, off, size, c.Remaining())
		return nil, &ChunkError{ChunkID: raw, Offset: off, Err: newError(ErrIntegrity, "lazy chunk size %d", size)}
	}
	payload, err := c.Bytes(int(size))
	if err != nil {
		return nil, &ChunkError{ChunkID: raw, Offset: off, Err: classify(err)}
	}

	kind := ChunkLazy
	if info == nil {
		kind = ChunkLazyUnknown
	}
	log.V(2).Infof("%s chunk %08X at %d, %d bytes", kind, raw, off, size)
	ch := &Chunk{
		ID:     id,
		Kind:   kind,
		rawID:  raw,
		offset: off,
		info:   info,
		node:   n,
		raw:    payload,
	}
	if info != nil {
		ch.src = s
		ch.mark = s.mark()
	}
	n.chunks = append(n.chunks, ch)
	chunkCounter.WithLabelValues(kind.String()).Inc()
	return ch, nil
}

// discoverOnLoad decodes a lazy chunk right away against the live tables.
// The chunk is decoded in a fork that is only committed if it succeeds, so a
// failure leaves the tables as if the chunk had not been decoded.
func (s *session) discoverOnLoad(ch *Chunk) {
	f := s.fork()
	ch.lock.Lock()
	defer ch.lock.Unlock()
	if err := ch.decodeLocked(f); err != nil {
		log.Warningf("discover-on-load chunk %08X at %d failed: %s", ch.rawID, ch.offset, err)
		ch.err = err
		return
	}
	f.commit()
}

// recoverNode handles a chunk we can't skip over. Everything up to the next
// terminator is kept as an opaque blob and ends the node.
func (s *session) recoverNode(c *cursor.Reader, n *Node, raw, id uint32, off int64) error {
	start := c.Position()
	rest, err := c.Rest()
	if err != nil {
		return classify(err)
	}
	i := bytes.Index(rest, terminatorBytes)
	if i < 0 {
		log.Errorf("no terminator after unknown chunk %08X at %d", raw, off)
		return &ChunkError{ChunkID: raw, Offset: off, Err: newError(ErrIntegrity, "no terminator after unknown chunk")}
	}
	if err := c.Seek(start + int64(i) + 4); err != nil {
		return classify(err)
	}
	log.Warningf("unknown chunk %08X at %d in class %s, kept %d bytes up to the terminator", raw, off, n.Class, i)
	n.chunks = append(n.chunks, &Chunk{
		ID:     id,
		Kind:   ChunkRecovery,
		rawID:  raw,
		offset: off,
		node:   n,
		raw:    rest[:i:i],
	})
	chunkCounter.WithLabelValues(ChunkRecovery.String()).Inc()
	return nil
}

// readNodeRef reads a node reference, decoding the node inline if the index
// wasn't seen before.
func (s *session) readNodeRef(c *cursor.Reader) (*Node, error) {
	idx, err := c.Int32()
	if err != nil {
		return nil, err
	}
	if idx <= 0 {
		return nil, nil
	}
	if n, ok := s.nodes.get(idx); ok {
		return n, nil
	}

	raw, err := c.Peek32()
	if err != nil {
		return nil, err
	}
	class := s.reg.Remap(ClassID(raw))
	info := s.reg.Class(class)
	if info == nil {
		if s.opts.SubstituteMissingNodes {
			if last := s.nodes.last(); last != nil {
				log.Warningf("node %d has unknown class %08X, substituting the last node of class %s", idx, raw, last.Class)
				return last, nil
			}
		}
		return nil, newError(ErrUnknownClass, "node %d has class %08X", idx, raw)
	}
	if info.Abstract {
		return nil, newError(ErrAbstractClass, "node %d has class %s", idx, class)
	}
	if _, err := c.UInt32(); err != nil {
		return nil, err
	}

	n := &Node{Class: class, rawClass: raw}
	s.nodes.put(idx, n)
	s.track(n)
	if err := s.readNode(c, n); err != nil {
		return nil, err
	}
	return n, nil
}
