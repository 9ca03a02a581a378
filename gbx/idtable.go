// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	log "github.com/golang/glog"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

/*

Lookback string encoding. The first Id of every scope is preceded by the
version word (always 3). After that each Id is one 32 bit word:

     0xFFFFFFFF                   empty string
     0xBFFFFFFF                   Unassigned
     01 000000...0 + string       new string, stored in the next slot
     10 000000...0 + string       new string, stored in the next slot
     01 k (k != 0)                back-reference to slot k-1
     10 k (k != 0)                back-reference to slot k-1
     00 k                         well-known number k, never stored
     11 k (other than all ones)   invalid

The header and the body each start a fresh scope. Slots are never removed
from a scope, so the numbering of a scope depends on every Id read before,
in stream order.

*/

const (
	idFlagMask       uint32 = 0xC0000000
	idIndexMask      uint32 = 0x3FFFFFFF
	idFlagNew        uint32 = 0x40000000
	idFlagAlt        uint32 = 0x80000000
	idWordEmpty      uint32 = 0xFFFFFFFF
	idWordUnassigned uint32 = 0xBFFFFFFF
)

// idScope is the Id table of one scope. The same type serves reading (slot
// lookups by index) and writing (index lookups by string).
//
// A scope can be forked. The fork sees the first 'mark' slots of its parent
// and appends only locally; it can later be committed back, provided the
// parent has not grown in the meantime.
type idScope struct {
	parent *idScope
	mark   int

	// version is zero until the version word was read or written.
	version int32

	// Visible slots. For a fork the first 'mark' entries alias the parent.
	strings []string

	// Writer side: slot of the first occurrence of strings appended in this
	// scope (not the parent's).
	index map[string]int
}

func newIdScope() *idScope {
	return &idScope{index: make(map[string]int)}
}

// forkAt returns a fork that sees the first 'n' slots of s and the given
// version state.
func (s *idScope) forkAt(n int, version int32) *idScope {
	return &idScope{
		parent:  s,
		mark:    n,
		version: version,
		strings: s.strings[:n:n],
		index:   make(map[string]int),
	}
}

func (s *idScope) fork() *idScope {
	return s.forkAt(len(s.strings), s.version)
}

// commit publishes the slots appended by a fork into its parent.
func (s *idScope) commit() {
	p := s.parent
	if p == nil || len(p.strings) != s.mark {
		panic("gbx: committing a stale Id scope fork")
	}
	for i := s.mark; i < len(s.strings); i++ {
		if _, ok := p.lookup(s.strings[i]); !ok {
			p.index[s.strings[i]] = i
		}
	}
	p.strings = s.strings
	p.version = s.version
}

// lookup returns the slot of 's', searching this scope and the visible part
// of its ancestors.
func (s *idScope) lookup(str string) (int, bool) {
	return s.lookupBelow(str, len(s.strings))
}

func (s *idScope) lookupBelow(str string, limit int) (int, bool) {
	if s.parent != nil {
		bound := s.mark
		if limit < bound {
			bound = limit
		}
		if i, ok := s.parent.lookupBelow(str, bound); ok {
			return i, true
		}
	}
	if i, ok := s.index[str]; ok && i < limit {
		return i, true
	}
	return 0, false
}

// read decodes one Id.
func (s *idScope) read(c *cursor.Reader) (Id, error) {
	if s.version == 0 {
		v, err := c.Int32()
		if err != nil {
			return Id{}, err
		}
		if v != IdVersion {
			return Id{}, newError(ErrUnsupportedVersion, "id version %d", v)
		}
		s.version = v
	}
	w, err := c.UInt32()
	if err != nil {
		return Id{}, err
	}
	switch {
	case w == idWordEmpty:
		return Id{}, nil
	case w == idWordUnassigned:
		return Unassigned, nil
	case w&idFlagMask == 0:
		return NumberId(w), nil
	case w&idFlagMask == idFlagMask:
		log.Errorf("invalid id word %08X at %d", w, c.Position())
		return Id{}, newError(ErrIntegrity, "invalid id word %08X", w)
	}
	id := Id{}
	if w&idFlagMask == idFlagAlt {
		id.flag = idFlagAlt
	}
	if w&idIndexMask == 0 {
		str, err := c.String()
		if err != nil {
			return Id{}, err
		}
		// Some writers repeat a known string inline. Keep that so it is
		// written the same way.
		_, id.inline = s.lookup(str)
		s.strings = append(s.strings, str)
		id.str = str
		return id, nil
	}
	slot := int(w&idIndexMask) - 1
	if slot >= len(s.strings) {
		log.Errorf("id back-reference %d with %d known strings", slot, len(s.strings))
		return Id{}, newError(ErrIntegrity, "id back-reference %d beyond %d known strings", slot, len(s.strings))
	}
	id.str = s.strings[slot]
	return id, nil
}

// write encodes one Id, registering new strings.
func (s *idScope) write(c *cursor.Writer, id Id) error {
	if s.version == 0 {
		if err := c.Int32(IdVersion); err != nil {
			return err
		}
		s.version = IdVersion
	}
	switch id.kind {
	case idUnassigned:
		return c.UInt32(idWordUnassigned)
	case idNumber:
		if id.num&idFlagMask != 0 {
			return newError(ErrInvalidArgument, "numeric id %d out of range", id.num)
		}
		return c.UInt32(id.num)
	}
	if id.str == "" {
		return c.UInt32(idWordEmpty)
	}
	flag := id.flag
	if flag == 0 {
		flag = idFlagNew
	}
	slot, ok := s.lookup(id.str)
	if ok && !id.inline {
		return c.UInt32(flag | uint32(slot+1))
	}
	if err := c.UInt32(flag); err != nil {
		return err
	}
	if err := c.String(id.str); err != nil {
		return err
	}
	if !ok {
		s.index[id.str] = len(s.strings)
	}
	s.strings = append(s.strings, id.str)
	return nil
}
