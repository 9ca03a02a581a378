// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import "fmt"

type idKind uint8

const (
	idString idKind = iota
	idNumber
	idUnassigned
)

// Id is a lookback string: either an arbitrary string deduplicated through
// the session Id table, a well-known numeric constant, or the Unassigned
// sentinel. The zero value is the empty string.
type Id struct {
	kind idKind
	str  string
	num  uint32

	// flag is the top-bit pattern the string was first read with (01 or 10),
	// zero means the default 01.
	flag uint32

	// inline is set when the string was read inline although the scope
	// already held it.
	inline bool
}

// Unassigned is the sentinel Id that is neither a string nor a number.
var Unassigned = Id{kind: idUnassigned}

// NewId returns a string Id.
func NewId(s string) Id {
	return Id{str: s}
}

// NumberId returns a well-known numeric Id. Only the lower 30 bits are
// representable.
func NumberId(n uint32) Id {
	return Id{kind: idNumber, num: n}
}

// String returns the string value, the decimal number for numeric Ids and
// "<unassigned>" for the sentinel.
func (id Id) String() string {
	switch id.kind {
	case idNumber:
		return fmt.Sprintf("%d", id.num)
	case idUnassigned:
		return "<unassigned>"
	}
	return id.str
}

// Number returns the numeric value of a well-known Id.
func (id Id) Number() (uint32, bool) {
	return id.num, id.kind == idNumber
}

// IsString returns true for string Ids, including the empty string.
func (id Id) IsString() bool {
	return id.kind == idString
}

// IsUnassigned returns true for the Unassigned sentinel.
func (id Id) IsUnassigned() bool {
	return id.kind == idUnassigned
}

// Equal compares the logical value of two Ids, ignoring how they were encoded.
func (id Id) Equal(o Id) bool {
	return id.kind == o.kind && id.str == o.str && id.num == o.num
}

// Ident is the (id, collection, author) triple used to name most game
// resources.
type Ident struct {
	ID         Id
	Collection Id
	Author     Id
}

func (i Ident) String() string {
	return fmt.Sprintf("(%s, %s, %s)", i.ID, i.Collection, i.Author)
}
