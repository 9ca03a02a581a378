// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import "fmt"

/*

Class and chunk ids share one 32 bit space:

     +------------------------------+-------------------+
     |  class id (upper 20 bits)    |  local (12 bits)  |
     +------------------------------+-------------------+
     |<------------------------------------------------>|
                       chunk id (4 bytes)

A class id always has its lower 12 bits clear. A chunk belongs to the class
encoded in its upper 20 bits, which is either the class of the node being
read or one of its ancestors.

*/

const (
	// Terminator ends the chunk list of every node.
	Terminator uint32 = 0xFACADE01

	// SkipMarker ("PIKS" on disk) follows the id of a length-prefixed chunk.
	SkipMarker uint32 = 0x534B4950

	// IdVersion is the only lookback string version we read and write.
	IdVersion int32 = 3

	// heavyFlag marks a header chunk the game loads lazily. It lives in the
	// high bit of the size word of the chunk descriptor.
	heavyFlag uint32 = 0x80000000

	classMask uint32 = 0xFFFFF000
	localMask uint32 = 0x00000FFF
)

// ClassID identifies a class.
type ClassID uint32

func (c ClassID) String() string {
	return fmt.Sprintf("%08X", uint32(c))
}

// Valid returns true if the lower 12 bits are clear.
func (c ClassID) Valid() bool {
	return c != 0 && uint32(c)&localMask == 0
}

// ChunkClass returns the class a chunk id belongs to.
func ChunkClass(id uint32) ClassID {
	return ClassID(id & classMask)
}

// ChunkLocal returns the class-local part of a chunk id.
func ChunkLocal(id uint32) uint32 {
	return id & localMask
}
