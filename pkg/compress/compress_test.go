// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package compress

import (
	"bytes"
	"testing"
)

func testCodec(t *testing.T, c Codec) {
	for _, n := range []int{0, 1, 100, 64 * 1024} {
		src := bytes.Repeat([]byte("GBX body "), n/9+1)[:n]
		comp, err := c.Compress(src)
		if err != nil {
			t.Fatalf("compress %d bytes: %s", n, err)
		}
		out, err := c.Decompress(comp, n)
		if err != nil {
			t.Fatalf("decompress %d bytes: %s", n, err)
		}
		if !bytes.Equal(out, src) {
			t.Fatalf("%d bytes didn't survive the round trip", n)
		}
		if _, err := c.Decompress(comp, n+1); err == nil {
			t.Fatalf("wrong expected size %d accepted", n+1)
		}
	}
	if _, err := c.Decompress([]byte{0xff, 0xff, 0xff}, 10); err == nil {
		t.Fatalf("garbage accepted")
	}
}

func TestSnappy(t *testing.T) {
	testCodec(t, Snappy{})
}

func TestZlib(t *testing.T) {
	testCodec(t, Zlib{})
	testCodec(t, Zlib{Level: 9})
}

func TestByName(t *testing.T) {
	for _, name := range []string{"snappy", "zlib"} {
		if c, err := ByName(name); err != nil || c == nil {
			t.Errorf("%s: %v %v", name, c, err)
		}
	}
	if c, err := ByName("none"); err != nil || c != nil {
		t.Errorf("none: %v %v", c, err)
	}
	if _, err := ByName("lzo"); err == nil {
		t.Errorf("lzo should be unknown")
	}
}
