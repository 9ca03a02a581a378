// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package testutil

import (
	"encoding/hex"
	"fmt"
)

// diffContext is how many bytes around the first difference DiffBytes shows.
const diffContext = 16

// DiffBytes returns "" if 'got' and 'want' are equal. Otherwise it describes
// the first difference, with a hex dump of both sides around it.
func DiffBytes(got, want []byte) string {
	i := 0
	for i < len(got) && i < len(want) && got[i] == want[i] {
		i++
	}
	if i == len(got) && i == len(want) {
		return ""
	}
	lo := i - diffContext
	if lo < 0 {
		lo = 0
	}
	return fmt.Sprintf("%d bytes, want %d; first difference at offset %d\ngot:\n%swant:\n%s",
		len(got), len(want), i, dump(got, lo), dump(want, lo))
}

func dump(b []byte, lo int) string {
	hi := lo + 3*diffContext
	if hi > len(b) {
		hi = len(b)
	}
	if lo >= hi {
		return "(end)\n"
	}
	return hex.Dump(b[lo:hi])
}
