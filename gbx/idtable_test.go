// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"bytes"
	"testing"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

func writeIds(t *testing.T, s *idScope, ids ...Id) []byte {
	var buf bytes.Buffer
	w := cursor.NewWriter(&buf)
	for _, id := range ids {
		if err := s.write(w, id); err != nil {
			t.Fatalf("failed to write %q: %s", id, err)
		}
	}
	return buf.Bytes()
}

// Writing Foo, Bar, Foo stores two strings and one back-reference.
func TestIdBackReference(t *testing.T) {
	b := writeIds(t, newIdScope(), NewId("Foo"), NewId("Bar"), NewId("Foo"))

	want := newBodyWriter().
		u32(uint32(IdVersion)).
		u32(idFlagNew).str("Foo").
		u32(idFlagNew).str("Bar").
		u32(idFlagNew | 1).
		bytes()
	diff(t, "encoding", b, want)

	s := newIdScope()
	c := cursor.NewBytesReader(b)
	var got []Id
	for c.Remaining() > 0 {
		id, err := s.read(c)
		if err != nil {
			t.Fatalf("failed to read id: %s", err)
		}
		got = append(got, id)
	}
	if len(got) != 3 || got[0] != NewId("Foo") || got[1] != NewId("Bar") || got[2] != got[0] {
		t.Fatalf("read back %v", got)
	}
	if len(s.strings) != 2 {
		t.Fatalf("expected 2 stored strings, got %d", len(s.strings))
	}
}

func TestIdSpecialValues(t *testing.T) {
	ids := []Id{NewId(""), Unassigned, NumberId(11), NewId("x")}
	b := writeIds(t, newIdScope(), ids...)

	want := newBodyWriter().
		u32(uint32(IdVersion), idWordEmpty, idWordUnassigned, 11, idFlagNew).str("x").
		bytes()
	diff(t, "encoding", b, want)

	s := newIdScope()
	c := cursor.NewBytesReader(b)
	for _, expect := range ids {
		id, err := s.read(c)
		if err != nil {
			t.Fatalf("failed to read id: %s", err)
		}
		if !id.Equal(expect) {
			t.Fatalf("got %v, expected %v", id, expect)
		}
	}
	if n, ok := NumberId(11).Number(); !ok || n != 11 {
		t.Fatalf("bad number id")
	}
	if !Unassigned.IsUnassigned() || Unassigned.IsString() {
		t.Fatalf("bad unassigned id")
	}
}

// Strings first read with the 10 flag are written back with it.
func TestIdAlternateFlag(t *testing.T) {
	in := newBodyWriter().
		u32(uint32(IdVersion), idFlagAlt).str("Alt").
		u32(idFlagAlt | 1).
		bytes()

	s := newIdScope()
	c := cursor.NewBytesReader(in)
	a, err := s.read(c)
	if err != nil {
		t.Fatalf("failed to read: %s", err)
	}
	b, err := s.read(c)
	if err != nil {
		t.Fatalf("failed to read: %s", err)
	}
	if !a.Equal(NewId("Alt")) || !b.Equal(a) {
		t.Fatalf("read %v %v", a, b)
	}
	diff(t, "re-encoding", writeIds(t, newIdScope(), a, b), in)
}

func TestIdErrors(t *testing.T) {
	tests := []struct {
		in   []byte
		code Error
	}{
		{newBodyWriter().u32(2, idWordEmpty).bytes(), ErrUnsupportedVersion},
		{newBodyWriter().u32(3, 0xC0000001).bytes(), ErrIntegrity},
		{newBodyWriter().u32(3, idFlagNew|5).bytes(), ErrIntegrity},
	}
	for i, test := range tests {
		_, err := newIdScope().read(cursor.NewBytesReader(test.in))
		if !test.code.Is(err) {
			t.Errorf("case %d: expected %s, got %v", i, test.code, err)
		}
	}
	var buf bytes.Buffer
	if err := newIdScope().write(cursor.NewWriter(&buf), NumberId(0x40000000)); !ErrInvalidArgument.Is(err) {
		t.Errorf("out of range number id: %v", err)
	}
}

// A fork sees its parent's prefix, keeps its own strings and can be
// committed back.
func TestIdScopeFork(t *testing.T) {
	parent := newIdScope()
	writeIds(t, parent, NewId("a"))

	fork := parent.fork()
	b := writeIds(t, fork, NewId("a"), NewId("b"))
	want := newBodyWriter().u32(idFlagNew | 1).u32(idFlagNew).str("b").bytes()
	diff(t, "fork encoding", b, want)

	if _, ok := parent.lookup("b"); ok {
		t.Fatalf("fork leaked into its parent")
	}

	// A second fork at the same point doesn't see "b".
	other := parent.fork()
	if _, ok := other.lookup("b"); ok {
		t.Fatalf("sibling fork sees another fork's strings")
	}

	fork.commit()
	if i, ok := parent.lookup("b"); !ok || i != 1 {
		t.Fatalf("committed string at %d %v", i, ok)
	}
}

// A fork made at an earlier mark doesn't see strings the parent added later.
func TestIdScopeForkAtMark(t *testing.T) {
	parent := newIdScope()
	writeIds(t, parent, NewId("a"))
	mark := len(parent.strings)
	writeIds(t, parent, NewId("late"))

	fork := parent.forkAt(mark, parent.version)
	b := writeIds(t, fork, NewId("late"))
	want := newBodyWriter().u32(idFlagNew).str("late").bytes()
	diff(t, "fork encoding", b, want)
}

// A string repeated inline in one scope takes a second slot and is written
// inline again.
func TestIdRepeatedInline(t *testing.T) {
	in := newBodyWriter().
		u32(uint32(IdVersion), idFlagNew).str("Foo").
		u32(idFlagNew).str("Foo").
		u32(idFlagNew | 1).
		bytes()

	s := newIdScope()
	c := cursor.NewBytesReader(in)
	var ids []Id
	for c.Remaining() > 0 {
		id, err := s.read(c)
		if err != nil {
			t.Fatalf("failed to read id: %s", err)
		}
		ids = append(ids, id)
	}
	if len(s.strings) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(s.strings))
	}
	for _, id := range ids {
		if !id.Equal(NewId("Foo")) {
			t.Fatalf("read %v", id)
		}
	}

	out := newIdScope()
	diff(t, "re-encoding", writeIds(t, out, ids...), in)
	if i, ok := out.lookup("Foo"); !ok || i != 0 {
		t.Fatalf("back-references should use the first slot, got %d %v", i, ok)
	}
}
