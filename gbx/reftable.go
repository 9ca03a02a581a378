// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

// refFlagResource selects a resource index instead of a file name, and means
// the file has no folder.
const refFlagResource int32 = 4

// maxFolderDepth bounds recursion on corrupt input.
const maxFolderDepth = 64

// Folder is a node of the reference table folder tree.
type Folder struct {
	Name    string
	Folders []*Folder
}

// ExternalFile is a file the container depends on.
type ExternalFile struct {
	Flags int32

	// Name is used unless Flags has the resource bit set, in which case
	// ResourceIndex is.
	Name          string
	ResourceIndex int32

	// NodeIndex is the auxiliary node index the file stands for.
	NodeIndex int32

	// UseFile is only stored from version 5 on.
	UseFile bool
	useFile int32 // as read, written back while UseFile agrees with it

	// Folder is nil for the root folder, and always nil for resources.
	Folder *Folder
}

// IsResource returns true if the file is named by a resource index.
func (f *ExternalFile) IsResource() bool {
	return f.Flags&refFlagResource != 0
}

// RefTable is the reference table: a folder tree and the external files
// attached to its folders.
type RefTable struct {
	AncestorLevel int32

	// Root is the unnamed root folder. Its Name is not stored.
	Root  *Folder
	Files []*ExternalFile
}

// preorder lists the folders below the root in depth first pre-order, which
// is the order folder indices count in, starting at 1.
func (t *RefTable) preorder() []*Folder {
	var out []*Folder
	var visit func(f *Folder)
	visit = func(f *Folder) {
		for _, sub := range f.Folders {
			out = append(out, sub)
			visit(sub)
		}
	}
	if t.Root != nil {
		visit(t.Root)
	}
	return out
}

func readFolders(c *cursor.Reader, parent *Folder, depth int) error {
	if depth > maxFolderDepth {
		log.Errorf("reference table folders nested deeper than %d", maxFolderDepth)
		return newError(ErrIntegrity, "folder tree deeper than %d", maxFolderDepth)
	}
	n, err := c.Int32()
	if err != nil {
		return err
	}
	if n < 0 || int64(n) > c.Remaining() {
		log.Errorf("reference table folder count %d with %d bytes left", n, c.Remaining())
		return newError(ErrIntegrity, "folder count %d", n)
	}
	for i := int32(0); i < n; i++ {
		f := &Folder{}
		if f.Name, err = c.String(); err != nil {
			return err
		}
		parent.Folders = append(parent.Folders, f)
		if err := readFolders(c, f, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func writeFolders(w *cursor.Writer, parent *Folder) error {
	if err := w.Int32(int32(len(parent.Folders))); err != nil {
		return err
	}
	for _, f := range parent.Folders {
		if err := w.String(f.Name); err != nil {
			return err
		}
		if err := writeFolders(w, f); err != nil {
			return err
		}
	}
	return nil
}

// readRefTable reads the reference table. It returns nil if the table has no
// files.
func readRefTable(c *cursor.Reader, version int16) (*RefTable, error) {
	n, err := c.Int32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n < 0 || int64(n) > c.Remaining() {
		log.Errorf("reference table file count %d with %d bytes left", n, c.Remaining())
		return nil, newError(ErrIntegrity, "external file count %d", n)
	}

	t := &RefTable{Root: &Folder{}}
	if t.AncestorLevel, err = c.Int32(); err != nil {
		return nil, err
	}
	if err := readFolders(c, t.Root, 0); err != nil {
		return nil, err
	}
	folders := t.preorder()

	for i := int32(0); i < n; i++ {
		f := &ExternalFile{}
		if f.Flags, err = c.Int32(); err != nil {
			return nil, err
		}
		if f.IsResource() {
			f.ResourceIndex, err = c.Int32()
		} else {
			f.Name, err = c.String()
		}
		if err != nil {
			return nil, err
		}
		if f.NodeIndex, err = c.Int32(); err != nil {
			return nil, err
		}
		if version >= 5 {
			if f.useFile, err = c.Int32(); err != nil {
				return nil, err
			}
			f.UseFile = f.useFile != 0
		}
		if !f.IsResource() {
			idx, err := c.Int32()
			if err != nil {
				return nil, err
			}
			if idx < 0 || int(idx) > len(folders) {
				log.Errorf("file %q in folder %d of %d", f.Name, idx, len(folders))
				return nil, newError(ErrIntegrity, "folder index %d of %d", idx, len(folders))
			}
			if idx > 0 {
				f.Folder = folders[idx-1]
			}
		}
		t.Files = append(t.Files, f)
	}
	return t, nil
}

// writeRefTable writes 't', or an empty table if it's nil or has no files.
func writeRefTable(w *cursor.Writer, t *RefTable, version int16) error {
	if t == nil || len(t.Files) == 0 {
		return w.Int32(0)
	}
	if err := w.Int32(int32(len(t.Files))); err != nil {
		return err
	}
	if err := w.Int32(t.AncestorLevel); err != nil {
		return err
	}
	root := t.Root
	if root == nil {
		root = &Folder{}
	}
	if err := writeFolders(w, root); err != nil {
		return err
	}

	index := make(map[*Folder]int32)
	for i, f := range t.preorder() {
		index[f] = int32(i + 1)
	}

	for _, f := range t.Files {
		if err := w.Int32(f.Flags); err != nil {
			return err
		}
		var err error
		if f.IsResource() {
			err = w.Int32(f.ResourceIndex)
		} else {
			err = w.String(f.Name)
		}
		if err != nil {
			return err
		}
		if err := w.Int32(f.NodeIndex); err != nil {
			return err
		}
		if version >= 5 {
			v := f.useFile
			if f.UseFile != (v != 0) {
				v = 0
				if f.UseFile {
					v = 1
				}
			}
			if err := w.Int32(v); err != nil {
				return err
			}
		}
		if !f.IsResource() {
			var idx int32
			if f.Folder != nil {
				var ok bool
				if idx, ok = index[f.Folder]; !ok {
					return newError(ErrInvalidArgument, "file %q is in a folder outside of the table", f.Name)
				}
			}
			if err := w.Int32(idx); err != nil {
				return err
			}
		}
	}
	return nil
}
