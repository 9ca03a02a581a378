// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package catalog keeps an index of the headers of container files found on
// disk, so that files can be looked up by class without parsing them again.

package catalog

import (
	"fmt"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/westerndigitalcorporation/gbx/gbx"
	"github.com/westerndigitalcorporation/gbx/internal/catalog/fb"
)

// entryEncoding is stored in every encoded entry. Entries with another
// encoding are rejected.
const entryEncoding = 2

// Entry describes one indexed file.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time

	Class    gbx.ClassID // After remapping.
	RawClass uint32
	Version  int16

	RefCompression  byte
	BodyCompression byte

	// Ids of the header chunks, as stored.
	HeaderChunks []uint32

	// Number of files in the reference table.
	ExternalFiles int32
}

// String returns a one line description of the entry.
func (e Entry) String() string {
	return fmt.Sprintf("%s: class %s v%d %c%c, %d bytes, %d header chunks, %d refs",
		e.Path, e.Class, e.Version, e.RefCompression, e.BodyCompression, e.Size, len(e.HeaderChunks), e.ExternalFiles)
}

// NewEntry describes the file at 'path' from its parsed header.
func NewEntry(path string, size int64, mtime time.Time, doc *gbx.Document) Entry {
	e := Entry{
		Path:            path,
		Size:            size,
		ModTime:         mtime,
		Class:           doc.Class(),
		RawClass:        doc.RawClass(),
		Version:         doc.Version,
		RefCompression:  doc.RefCompression,
		BodyCompression: doc.BodyCompression,
	}
	for _, c := range doc.HeaderChunks {
		e.HeaderChunks = append(e.HeaderChunks, c.RawID())
	}
	if doc.RefTable != nil {
		e.ExternalFiles = int32(len(doc.RefTable.Files))
	}
	return e
}

// Unchanged returns true if the file described by 'e' still has the given
// size and modification time.
func (e Entry) Unchanged(size int64, mtime time.Time) bool {
	return e.Size == size && e.ModTime.Equal(mtime)
}

// encode serializes the entry without its path, which is the key.
func (e Entry) encode() []byte {
	bu := flatbuffers.NewBuilder(64 + 4*len(e.HeaderChunks))

	fb.EntryFStartHeaderChunksVector(bu, len(e.HeaderChunks))
	for i := len(e.HeaderChunks) - 1; i >= 0; i-- {
		bu.PrependUint32(e.HeaderChunks[i])
	}
	chunks := bu.EndVector(len(e.HeaderChunks))

	fb.EntryFStart(bu)
	fb.EntryFAddEncoding(bu, entryEncoding)
	fb.EntryFAddSize(bu, e.Size)
	fb.EntryFAddMtime(bu, e.ModTime.UnixNano())
	fb.EntryFAddClass(bu, uint32(e.Class))
	fb.EntryFAddRawClass(bu, e.RawClass)
	fb.EntryFAddVersion(bu, e.Version)
	fb.EntryFAddRefCompression(bu, e.RefCompression)
	fb.EntryFAddBodyCompression(bu, e.BodyCompression)
	fb.EntryFAddHeaderChunks(bu, chunks)
	fb.EntryFAddExternalFiles(bu, e.ExternalFiles)
	bu.Finish(fb.EntryFEnd(bu))
	return bu.FinishedBytes()
}

// decodeEntry is the inverse of encode. Nothing in the result points into
// 'b', which may belong to the database.
func decodeEntry(path string, b []byte) (e Entry, err error) {
	if len(b) < 8 || int(flatbuffers.GetUOffsetT(b))+4 > len(b) {
		return e, fmt.Errorf("entry for %q is truncated", path)
	}
	// The accessors don't check bounds.
	defer func() {
		if r := recover(); r != nil {
			e, err = Entry{}, fmt.Errorf("entry for %q is corrupt: %v", path, r)
		}
	}()

	f := fb.GetRootAsEntryF(b, 0)
	if v := f.Encoding(); v != entryEncoding {
		return e, fmt.Errorf("entry for %q has encoding %d", path, v)
	}
	e = Entry{
		Path:            path,
		Size:            f.Size(),
		ModTime:         time.Unix(0, f.Mtime()),
		Class:           gbx.ClassID(f.Class()),
		RawClass:        f.RawClass(),
		Version:         f.Version(),
		RefCompression:  f.RefCompression(),
		BodyCompression: f.BodyCompression(),
		ExternalFiles:   f.ExternalFiles(),
	}
	if n := f.HeaderChunksLength(); n > 0 {
		e.HeaderChunks = make([]uint32, n)
		for i := range e.HeaderChunks {
			e.HeaderChunks[i] = f.HeaderChunks(i)
		}
	}
	return e, nil
}
