// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"bytes"
	"io"
	"io/ioutil"

	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

/*

Container layout, all integers little-endian:

     "GBX"                    magic
     int16                    version, 1 to 6
     byte x3                  (>= 3) format 'B', ref table and body compression 'C'/'U'
     byte                     (>= 4) reserved
     uint32                   class id
     int32 + chunk catalog    (>= 6) user data
     int32                    node count
     reference table          see reftable.go
     body                     'C': int32 size, int32 compressed size, bytes
                              'U': the rest of the file

*/

const (
	minVersion = 1
	maxVersion = 6
)

var magic = []byte("GBX")

// Container reads and writes documents. A Container holds no per-document
// state and can be used by several goroutines at once.
type Container struct {
	reg  *Registry
	opts Options
}

// NewContainer returns a container reading and writing the classes of 'reg'.
func NewContainer(reg *Registry, opts Options) (*Container, error) {
	if reg == nil {
		return nil, newError(ErrInvalidArgument, "nil registry")
	}
	if err := opts.Validate(); err != nil {
		return nil, newError(ErrInvalidArgument, "%s", err)
	}
	return &Container{reg: reg, opts: opts}, nil
}

// Registry returns the registry the container was built with.
func (c *Container) Registry() *Registry {
	return c.reg
}

// Read parses a complete container. Lazy chunks are captured but not
// decoded; use Chunk.Data or Document.DiscoverAll for that.
func (c *Container) Read(r io.Reader) (doc *Document, err error) {
	op := opMetric.Start("read")
	defer op.EndWithError(&err)
	return c.read(r, false)
}

// ReadHeader parses everything up to and including the reference table. The
// body is neither decompressed nor decoded, but is kept so that the document
// can be written back.
//
// If 'r' is a seekable stream other than a *bytes.Reader, such as an
// *os.File, only the header is read from it and the body is skipped. The
// document then describes the file but can't be written.
func (c *Container) ReadHeader(r io.Reader) (doc *Document, err error) {
	op := opMetric.Start("read_header")
	defer op.EndWithError(&err)
	return c.read(r, true)
}

// newReader reads files into memory up front: the chunk loop reads a few
// bytes at a time and needs to peek and seek.
func newReader(r io.Reader) (*cursor.Reader, error) {
	if br, ok := r.(*bytes.Reader); ok {
		return cursor.NewReader(br), nil
	}
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return cursor.NewBytesReader(b), nil
}

func (c *Container) read(r io.Reader, headerOnly bool) (*Document, error) {
	var cr *cursor.Reader
	_, inMemory := r.(*bytes.Reader)
	rs, seekable := r.(io.ReadSeeker)
	skipBody := headerOnly && seekable && !inMemory
	if skipBody {
		cr = cursor.NewReader(rs)
	} else {
		var err error
		if cr, err = newReader(r); err != nil {
			return nil, err
		}
	}
	doc, info, err := c.readHeader(cr)
	if err != nil {
		return nil, classify(err)
	}

	if skipBody {
		doc.bodySkipped = true
		log.V(2).Infof("read %d header bytes, skipped %d body bytes", cr.Position(), cr.Remaining())
		return doc, nil
	}
	if headerOnly {
		if doc.rawBody, err = cr.Rest(); err != nil {
			return nil, classify(err)
		}
		return doc, nil
	}

	body, err := c.readBody(cr, doc)
	if err != nil {
		return nil, classify(err)
	}
	if info == nil {
		doc.Body = body
		return doc, nil
	}

	br := cursor.NewBytesReader(body)
	s := newSession(c.reg, &c.opts, doc)
	if err := s.readNode(br, doc.Root); err != nil {
		log.Errorf("reading body of %s: %s", c.reg.Name(doc.class), err)
		return nil, classify(err)
	}
	if br.Remaining() > 0 {
		doc.BodyTrailing, _ = br.Rest()
		log.V(1).Infof("%d bytes after the root terminator", len(doc.BodyTrailing))
	}
	return doc, nil
}

// readHeader reads up to the body. The returned class info is nil if the
// class isn't registered.
func (c *Container) readHeader(cr *cursor.Reader) (*Document, *ClassInfo, error) {
	m, err := cr.Bytes(len(magic))
	if err != nil || !bytes.Equal(m, magic) {
		return nil, nil, newError(ErrFormat, "bad magic")
	}
	doc := &Document{
		Format:          FormatBinary,
		RefCompression:  Uncompressed,
		BodyCompression: Uncompressed,
		workers:         c.opts.DiscoverWorkers,
	}
	if doc.Version, err = cr.Int16(); err != nil {
		return nil, nil, err
	}
	if doc.Version < minVersion || doc.Version > maxVersion {
		return nil, nil, newError(ErrUnsupportedVersion, "container version %d", doc.Version)
	}

	if doc.Version >= 3 {
		if doc.Format, err = cr.Byte(); err != nil {
			return nil, nil, err
		}
		switch doc.Format {
		case FormatBinary:
		case FormatText:
			return nil, nil, newError(ErrFormat, "text containers are not supported")
		default:
			return nil, nil, newError(ErrFormat, "format byte %q", doc.Format)
		}
		if doc.RefCompression, err = compressionByte(cr); err != nil {
			return nil, nil, err
		}
		if doc.BodyCompression, err = compressionByte(cr); err != nil {
			return nil, nil, err
		}
	}
	if doc.Version >= 4 {
		if doc.Reserved, err = cr.Byte(); err != nil {
			return nil, nil, err
		}
	}

	if doc.rawClass, err = cr.UInt32(); err != nil {
		return nil, nil, err
	}
	doc.class = c.reg.Remap(ClassID(doc.rawClass))
	info := c.reg.Class(doc.class)
	if info == nil {
		if c.opts.UnknownClass == UnknownClassFail {
			return nil, nil, newError(ErrUnknownClass, "root class %08X", doc.rawClass)
		}
		log.Warningf("unknown root class %08X, keeping the document opaque", doc.rawClass)
	} else if info.Abstract {
		return nil, nil, newError(ErrAbstractClass, "root class %s", doc.class)
	}
	doc.Root = &Node{Class: doc.class, rawClass: doc.rawClass}
	doc.nodes = []*Node{doc.Root}

	if doc.Version >= 6 {
		if err := c.readUserData(cr, doc, info != nil); err != nil {
			return nil, nil, err
		}
	}

	if doc.NodeCount, err = cr.Int32(); err != nil {
		return nil, nil, err
	}
	if doc.RefTable, err = readRefTable(cr, doc.Version); err != nil {
		return nil, nil, err
	}
	return doc, info, nil
}

func compressionByte(cr *cursor.Reader) (byte, error) {
	b, err := cr.Byte()
	if err != nil {
		return 0, err
	}
	if b != Compressed && b != Uncompressed {
		return 0, newError(ErrFormat, "compression byte %q", b)
	}
	return b, nil
}

type headerDesc struct {
	id    uint32
	size  int64
	heavy bool
}

// readUserData reads the header chunk catalog and its payloads. Known
// chunks are decoded in order; a chunk failing to decode is kept opaque.
func (c *Container) readUserData(cr *cursor.Reader, doc *Document, known bool) error {
	length, err := cr.Int32()
	if err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	if length < 0 || int64(length) > cr.Remaining() {
		return newError(ErrIntegrity, "user data length %d with %d bytes left", length, cr.Remaining())
	}
	doc.userData = true
	if err := cr.PushLimit(int64(length)); err != nil {
		return err
	}

	count, err := cr.Int32()
	if err != nil {
		return err
	}
	if count < 0 || int64(count)*8 > cr.Remaining() {
		return newError(ErrIntegrity, "%d header chunks in %d bytes", count, length)
	}
	descs := make([]headerDesc, count)
	for i := range descs {
		if descs[i].id, err = cr.UInt32(); err != nil {
			return err
		}
		size, err := cr.UInt32()
		if err != nil {
			return err
		}
		descs[i].heavy = size&heavyFlag != 0
		descs[i].size = int64(size &^ heavyFlag)
	}

	s := newSession(c.reg, &c.opts, doc)
	for _, d := range descs {
		off := cr.Position()
		if d.size > cr.Remaining() || d.size > c.opts.MaxChunkSize {
			log.Errorf("header chunk %08X: size %d with %d user data bytes left", d.id, d.size, cr.Remaining())
			return &ChunkError{ChunkID: d.id, Offset: off, Err: newError(ErrIntegrity, "header chunk exceeds user data")}
		}
		payload, err := cr.Bytes(int(d.size))
		if err != nil {
			return err
		}
		id := c.reg.RemapChunk(d.id)
		ch := &Chunk{
			ID:     id,
			Kind:   ChunkHeader,
			Heavy:  d.heavy,
			rawID:  d.id,
			offset: off,
			node:   doc.Root,
			raw:    payload,
		}
		if known {
			ch.info = c.reg.HeaderChunk(doc.class, id)
		}
		if ch.info != nil {
			f := s.fork()
			ch.lock.Lock()
			if err := ch.decodeLocked(f); err != nil {
				log.Warningf("header chunk %08X failed to decode, keeping it opaque: %s", d.id, err)
				ch.err = err
			} else {
				f.commit()
			}
			ch.lock.Unlock()
		}
		doc.HeaderChunks = append(doc.HeaderChunks, ch)
		chunkCounter.WithLabelValues(ChunkHeader.String()).Inc()
	}

	if cr.Remaining() > 0 {
		if doc.headerTrailing, err = cr.Rest(); err != nil {
			return err
		}
		log.V(1).Infof("%d bytes after the last header chunk", len(doc.headerTrailing))
	}
	cr.PopLimit()
	return nil
}

// readBody returns the uncompressed body.
func (c *Container) readBody(cr *cursor.Reader, doc *Document) ([]byte, error) {
	if doc.BodyCompression != Compressed {
		body, err := cr.Rest()
		if err != nil {
			return nil, err
		}
		if int64(len(body)) > c.opts.MaxBodySize {
			return nil, newError(ErrIntegrity, "body of %d bytes", len(body))
		}
		return body, nil
	}

	size, err := cr.Int32()
	if err != nil {
		return nil, err
	}
	csize, err := cr.Int32()
	if err != nil {
		return nil, err
	}
	if size < 0 || int64(size) > c.opts.MaxBodySize {
		return nil, newError(ErrIntegrity, "uncompressed body size %d", size)
	}
	if csize < 0 || int64(csize) > cr.Remaining() {
		return nil, newError(ErrIntegrity, "compressed body size %d with %d bytes left", csize, cr.Remaining())
	}
	comp, err := cr.Bytes(int(csize))
	if err != nil {
		return nil, err
	}
	body, err := decompressBody(c.opts.Compressor, comp, int(size))
	if err != nil {
		return nil, err
	}
	if body == nil {
		body = []byte{}
	}
	doc.origBody = body
	doc.origCompressed = comp
	if cr.Remaining() > 0 {
		if doc.fileTrailing, err = cr.Rest(); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// Write serializes 'doc'. Undiscovered chunks are written from their
// captured bytes, everything else is encoded from its fields.
func (c *Container) Write(w io.Writer, doc *Document) (err error) {
	op := opMetric.Start("write")
	defer op.EndWithError(&err)

	if doc == nil || doc.Root == nil {
		return newError(ErrInvalidArgument, "nil document or root")
	}
	if doc.bodySkipped {
		return newError(ErrInvalidArgument, "the body of this document was never read")
	}
	if doc.Version < minVersion || doc.Version > maxVersion {
		return newError(ErrUnsupportedVersion, "container version %d", doc.Version)
	}
	if doc.Version >= 3 && doc.Format != FormatBinary {
		return newError(ErrFormat, "format byte %q", doc.Format)
	}

	// The body goes first: it decides how many nodes there are.
	ws := newWriteSession(c.reg, &c.opts)
	section, err := c.bodySection(ws, doc)
	if err != nil {
		return err
	}

	cw := cursor.NewWriter(w)
	if err := cw.Bytes(magic); err != nil {
		return err
	}
	if err := cw.Int16(doc.Version); err != nil {
		return err
	}
	if doc.Version >= 3 {
		for _, b := range []byte{doc.Format, doc.RefCompression, doc.BodyCompression} {
			if err := cw.Byte(b); err != nil {
				return err
			}
		}
	}
	if doc.Version >= 4 {
		if err := cw.Byte(doc.Reserved); err != nil {
			return err
		}
	}
	raw := doc.rawClass
	if raw == 0 {
		raw = uint32(doc.class)
	}
	if err := cw.UInt32(raw); err != nil {
		return err
	}
	if doc.Version >= 6 {
		if err := c.writeUserData(cw, doc); err != nil {
			return err
		}
	}
	count := doc.NodeCount
	if count == 0 {
		count = int32(ws.nodes.count() + 1)
	}
	if err := cw.Int32(count); err != nil {
		return err
	}
	if err := writeRefTable(cw, doc.RefTable, doc.Version); err != nil {
		return err
	}
	return cw.Bytes(section)
}

// bodySection returns the body as it goes into the file.
func (c *Container) bodySection(ws *writeSession, doc *Document) ([]byte, error) {
	if doc.rawBody != nil {
		return doc.rawBody, nil
	}

	body := doc.Body
	if body == nil {
		var buf bytes.Buffer
		bw := cursor.NewWriter(&buf)
		if err := ws.writeNode(bw, doc.Root); err != nil {
			return nil, err
		}
		if err := bw.Bytes(doc.BodyTrailing); err != nil {
			return nil, err
		}
		body = buf.Bytes()
	}
	if doc.BodyCompression != Compressed {
		return body, nil
	}

	comp := doc.origCompressed
	if doc.origBody == nil || !bytes.Equal(body, doc.origBody) {
		var err error
		if comp, err = compressBody(c.opts.Compressor, body); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	sw := cursor.NewWriter(&buf)
	sw.Int32(int32(len(body)))
	sw.Int32(int32(len(comp)))
	sw.Bytes(comp)
	sw.Bytes(doc.fileTrailing)
	return buf.Bytes(), nil
}

func (c *Container) writeUserData(cw *cursor.Writer, doc *Document) error {
	if !doc.userData && len(doc.HeaderChunks) == 0 && len(doc.headerTrailing) == 0 {
		return cw.Int32(0)
	}

	hs := newWriteSession(c.reg, &c.opts)
	payloads := make([][]byte, len(doc.HeaderChunks))
	length := 4 + 8*len(doc.HeaderChunks) + len(doc.headerTrailing)
	for i, ch := range doc.HeaderChunks {
		data, raw, discovered := ch.snapshot()
		payloads[i] = raw
		if discovered {
			node := ch.node
			if node == nil {
				node = doc.Root
			}
			var buf bytes.Buffer
			rw := &ReadWriter{w: cursor.NewWriter(&buf), ws: hs}
			data.ReadWrite(node, rw)
			if err := rw.Err(); err != nil {
				return &ChunkError{ChunkID: ch.rawID, Err: err}
			}
			payloads[i] = buf.Bytes()
		}
		if uint32(len(payloads[i]))&heavyFlag != 0 {
			return newError(ErrInvalidArgument, "header chunk %08X too large", ch.rawID)
		}
		length += len(payloads[i])
	}

	if err := cw.Int32(int32(length)); err != nil {
		return err
	}
	if err := cw.Int32(int32(len(doc.HeaderChunks))); err != nil {
		return err
	}
	for i, ch := range doc.HeaderChunks {
		size := uint32(len(payloads[i]))
		if ch.Heavy {
			size |= heavyFlag
		}
		if err := cw.UInt32(ch.rawID); err != nil {
			return err
		}
		if err := cw.UInt32(size); err != nil {
			return err
		}
	}
	for _, p := range payloads {
		if err := cw.Bytes(p); err != nil {
			return err
		}
	}
	return cw.Bytes(doc.headerTrailing)
}
