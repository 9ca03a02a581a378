// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package cursor

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer writes primitives to a stream. It is the mirror image of Reader.
type Writer struct {
	w   io.Writer
	n   int64
	buf [8]byte
}

// NewWriter returns a Writer appending to 'w'.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	return w.n
}

// Bytes writes 'b' verbatim.
func (w *Writer) Bytes(b []byte) error {
	n, err := w.w.Write(b)
	w.n += int64(n)
	if err == nil && n != len(b) {
		return io.ErrShortWrite
	}
	return err
}

// Byte writes a single byte.
func (w *Writer) Byte(v byte) error {
	w.buf[0] = v
	return w.Bytes(w.buf[:1])
}

// Bool writes a 32 bit boolean.
func (w *Writer) Bool(v bool) error {
	if v {
		return w.UInt32(1)
	}
	return w.UInt32(0)
}

// Int16 writes a little-endian int16.
func (w *Writer) Int16(v int16) error {
	binary.LittleEndian.PutUint16(w.buf[:2], uint16(v))
	return w.Bytes(w.buf[:2])
}

// UInt32 writes a little-endian uint32.
func (w *Writer) UInt32(v uint32) error {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	return w.Bytes(w.buf[:4])
}

// Int32 writes a little-endian int32.
func (w *Writer) Int32(v int32) error {
	return w.UInt32(uint32(v))
}

// UInt64 writes a little-endian uint64.
func (w *Writer) UInt64(v uint64) error {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	return w.Bytes(w.buf[:8])
}

// Int64 writes a little-endian int64.
func (w *Writer) Int64(v int64) error {
	return w.UInt64(uint64(v))
}

// Float32 writes a little-endian IEEE 754 float.
func (w *Writer) Float32(v float32) error {
	return w.UInt32(math.Float32bits(v))
}

// String writes an int32 length followed by the raw bytes of 's'.
func (w *Writer) String(s string) error {
	if len(s) > MaxStringLength {
		return ErrStringTooLong
	}
	if err := w.Int32(int32(len(s))); err != nil {
		return err
	}
	return w.Bytes([]byte(s))
}
