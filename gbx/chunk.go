// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"sync"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

// ChunkKind says how a chunk was found in the stream, and therefore how it
// is written back.
type ChunkKind uint8

const (
	// ChunkEager is a known chunk without a length prefix. It is always
	// decoded.
	ChunkEager ChunkKind = iota

	// ChunkLazy is a known length-prefixed chunk. It keeps its payload until
	// discovered.
	ChunkLazy

	// ChunkLazyUnknown is a length-prefixed chunk no class knows about. It is
	// never decoded and always written back verbatim.
	ChunkLazyUnknown

	// ChunkRecovery holds everything from an unknown unprefixed chunk up to
	// the terminator of its node. It is always the last chunk of a node.
	ChunkRecovery

	// ChunkZero is a zero word found where a chunk id was expected.
	ChunkZero

	// ChunkHeader is a header user data chunk.
	ChunkHeader
)

var kindNames = [...]string{
	ChunkEager:       "eager",
	ChunkLazy:        "lazy",
	ChunkLazyUnknown: "lazy_unknown",
	ChunkRecovery:    "recovery",
	ChunkZero:        "zero",
	ChunkHeader:      "header",
}

func (k ChunkKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// tableMark remembers the session tables as they were when a lazy chunk was
// captured.
type tableMark struct {
	ids       *idScope
	idLen     int
	idVersion int32
	nodes     *nodeTable
	nodeLen   int
}

// Chunk is one chunk of a node, or one header user data chunk.
type Chunk struct {
	// ID is the chunk id after remapping.
	ID   uint32
	Kind ChunkKind

	// Heavy is the header descriptor flag. Only meaningful for header chunks.
	Heavy bool

	rawID  uint32
	offset int64
	info   *ChunkInfo
	node   *Node

	lock       sync.Mutex
	data       ChunkData
	raw        []byte
	discovered bool
	err        error

	// Needed to discover a captured chunk. Dropped once discovered.
	src  *session
	mark tableMark
}

// RawID returns the id the chunk had in the stream, before remapping. It's
// what gets written back.
func (c *Chunk) RawID() uint32 {
	return c.rawID
}

// Offset returns where the chunk id was found, relative to the section it was
// read from (header user data or body).
func (c *Chunk) Offset() int64 {
	return c.offset
}

// Known returns true if a registered class can decode this chunk.
func (c *Chunk) Known() bool {
	return c.info != nil
}

// Discovered returns true once the chunk's fields are available.
func (c *Chunk) Discovered() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.discovered
}

// Err returns the error recorded by a failed discovery.
func (c *Chunk) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.err
}

// Raw returns the captured bytes of an undiscovered chunk. For a recovery
// chunk it's everything between the chunk id and the terminator.
func (c *Chunk) Raw() []byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.raw
}

// Data returns the chunk fields, discovering the chunk first if needed.
func (c *Chunk) Data() (ChunkData, error) {
	if err := c.Discover(); err != nil {
		return nil, err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.data, nil
}

// Discover decodes a captured chunk. A chunk is discovered at most once; once
// discovery failed, the same error is returned every time and the captured
// bytes are kept for writing.
//
// Discover is safe to call concurrently on different chunks of a document.
func (c *Chunk) Discover() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.discovered {
		return nil
	}
	if c.err != nil {
		return c.err
	}
	if c.info == nil {
		c.err = &ChunkError{ChunkID: c.rawID, Offset: c.offset, Err: newError(ErrUnknownChunk, "no codec for %08X", c.ID)}
		return c.err
	}
	if c.src == nil {
		c.err = &ChunkError{ChunkID: c.rawID, Offset: c.offset, Err: newError(ErrInvalidArgument, "chunk has no session to be discovered in")}
		return c.err
	}

	s := c.src.forkAt(c.mark)
	if err := c.decodeLocked(s); err != nil {
		log.Warningf("discovery of chunk %08X at %d failed: %s", c.rawID, c.offset, err)
		c.err = err
		return err
	}
	s.publish()
	return nil
}

// decodeLocked runs the chunk codec over the captured bytes in session 's'.
// The codec has to consume every captured byte.
func (c *Chunk) decodeLocked(s *session) error {
	op := opMetric.Start("discover")
	defer op.End()

	data := c.info.New()
	rd := cursor.NewBytesReader(c.raw)
	rw := &ReadWriter{r: rd, rs: s}
	data.ReadWrite(c.node, rw)
	err := rw.Err()
	if err == nil && rd.Remaining() != 0 {
		err = newError(ErrIntegrity, "%d captured bytes left after decoding", rd.Remaining())
	}
	if err != nil {
		op.Failed()
		return &ChunkError{ChunkID: c.rawID, Offset: c.offset, Err: classify(err)}
	}

	c.data = data
	c.discovered = true
	c.raw = nil
	c.src = nil
	c.mark = tableMark{}
	return nil
}

// snapshot returns what the writer needs without holding the lock while
// encoding.
func (c *Chunk) snapshot() (ChunkData, []byte, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.data, c.raw, c.discovered
}
