// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package cursor

import (
	"bytes"
	"io"
	"testing"
)

func TestPrimitives(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Byte(0x42)
	w.Bool(true)
	w.Int16(-2)
	w.Int32(-7)
	w.UInt32(0xFACADE01)
	w.Int64(1 << 40)
	w.Float32(1.5)
	w.String("Trackmania")
	if w.Written() != int64(buf.Len()) {
		t.Fatalf("written %d but buffer has %d", w.Written(), buf.Len())
	}

	r := NewBytesReader(buf.Bytes())
	if b, err := r.Byte(); err != nil || b != 0x42 {
		t.Fatalf("Byte: %v %v", b, err)
	}
	if v, err := r.Bool(); err != nil || !v {
		t.Fatalf("Bool: %v %v", v, err)
	}
	if v, err := r.Int16(); err != nil || v != -2 {
		t.Fatalf("Int16: %v %v", v, err)
	}
	if v, err := r.Int32(); err != nil || v != -7 {
		t.Fatalf("Int32: %v %v", v, err)
	}
	if v, err := r.Peek32(); err != nil || v != 0xFACADE01 {
		t.Fatalf("Peek32: %x %v", v, err)
	}
	if v, err := r.UInt32(); err != nil || v != 0xFACADE01 {
		t.Fatalf("UInt32: %x %v", v, err)
	}
	if v, err := r.Int64(); err != nil || v != 1<<40 {
		t.Fatalf("Int64: %v %v", v, err)
	}
	if v, err := r.Float32(); err != nil || v != 1.5 {
		t.Fatalf("Float32: %v %v", v, err)
	}
	if v, err := r.String(); err != nil || v != "Trackmania" {
		t.Fatalf("String: %q %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected nothing left, have %d", r.Remaining())
	}
	if _, err := r.Byte(); err != io.ErrUnexpectedEOF {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestLimits(t *testing.T) {
	r := NewBytesReader(make([]byte, 16))
	if err := r.PushLimit(8); err != nil {
		t.Fatalf("PushLimit: %v", err)
	}
	if err := r.PushLimit(12); err != ErrLimitExceeded {
		t.Fatalf("nested limit larger than outer should fail, got %v", err)
	}
	if err := r.PushLimit(4); err != nil {
		t.Fatalf("PushLimit: %v", err)
	}
	if _, err := r.Int64(); err != ErrLimitExceeded {
		t.Errorf("expected ErrLimitExceeded, got %v", err)
	}
	if _, err := r.Int32(); err != nil {
		t.Fatalf("Int32: %v", err)
	}
	if left := r.PopLimit(); left != 0 {
		t.Errorf("inner limit left %d", left)
	}
	if left := r.PopLimit(); left != 4 {
		t.Errorf("outer limit left %d, want 4", left)
	}
	if r.Remaining() != 12 {
		t.Errorf("remaining %d, want 12", r.Remaining())
	}
}

func TestBadStrings(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Int32(-1)
	if _, err := NewBytesReader(buf.Bytes()).String(); err != ErrNegativeLength {
		t.Errorf("expected ErrNegativeLength, got %v", err)
	}

	buf.Reset()
	w.Int32(100)
	w.Bytes([]byte("short"))
	if _, err := NewBytesReader(buf.Bytes()).String(); err != io.ErrUnexpectedEOF {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestSeekableStream(t *testing.T) {
	data := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	r := NewReader(bytes.NewReader(data))
	if r.Remaining() != 8 {
		t.Fatalf("remaining %d", r.Remaining())
	}
	if err := r.Seek(4); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if v, _ := r.Int32(); v != 2 {
		t.Errorf("got %d after seek", v)
	}
	if err := r.Seek(9); err != ErrInvalidSeek {
		t.Errorf("expected ErrInvalidSeek, got %v", err)
	}
}
