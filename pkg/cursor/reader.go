// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package cursor provides typed little-endian reads and writes of the
// primitives the Gbx container is built from. A Reader can be bounded by a
// stack of limits so that a length-prefixed section can never read past its
// own end.

package cursor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// MaxStringLength is the longest string we accept. Anything longer is almost
// certainly a misinterpreted length word.
const MaxStringLength = 16 * 1024 * 1024

var (
	// ErrLimitExceeded is returned when a read would cross the innermost limit.
	ErrLimitExceeded = errors.New("read crosses section limit")

	// ErrNegativeLength is returned for a negative length prefix.
	ErrNegativeLength = errors.New("negative length")

	// ErrStringTooLong is returned when a string length exceeds MaxStringLength.
	ErrStringTooLong = errors.New("string too long")

	// ErrInvalidSeek is returned for a seek outside of the current limit.
	ErrInvalidSeek = errors.New("seek outside of section")
)

// Reader reads primitives from a seekable stream.
//
// WARNING: Reader is not thread safe.
type Reader struct {
	r   io.ReadSeeker
	pos int64

	// size of the underlying stream, -1 until first needed.
	size int64

	// Absolute end offsets of the pushed limits, innermost last.
	limits []int64

	buf [8]byte
}

// NewReader returns a Reader positioned at the current offset of 'r'.
func NewReader(r io.ReadSeeker) *Reader {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		pos = 0
	}
	return &Reader{r: r, pos: pos, size: -1}
}

// NewBytesReader returns a Reader over an in-memory buffer.
func NewBytesReader(b []byte) *Reader {
	return &Reader{r: bytes.NewReader(b), size: int64(len(b))}
}

// Position returns the absolute offset of the next read.
func (r *Reader) Position() int64 {
	return r.pos
}

// Seek moves to the absolute offset 'pos'. The offset must stay inside the
// innermost limit.
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || pos > r.end() {
		return ErrInvalidSeek
	}
	if _, err := r.r.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	r.pos = pos
	return nil
}

// PushLimit bounds all following reads to the next 'n' bytes until the
// matching PopLimit.
func (r *Reader) PushLimit(n int64) error {
	if n < 0 {
		return ErrNegativeLength
	}
	if n > r.Remaining() {
		return ErrLimitExceeded
	}
	r.limits = append(r.limits, r.pos+n)
	return nil
}

// PopLimit removes the innermost limit and returns how many bytes inside it
// were left unread. The position is not changed.
func (r *Reader) PopLimit() int64 {
	if len(r.limits) == 0 {
		return 0
	}
	end := r.limits[len(r.limits)-1]
	r.limits = r.limits[:len(r.limits)-1]
	return end - r.pos
}

// Remaining returns the number of bytes that can still be read, either up to
// the innermost limit or up to the end of the stream.
func (r *Reader) Remaining() int64 {
	return r.end() - r.pos
}

func (r *Reader) end() int64 {
	if len(r.limits) > 0 {
		return r.limits[len(r.limits)-1]
	}
	if r.size < 0 {
		end, err := r.r.Seek(0, io.SeekEnd)
		if err != nil {
			return r.pos
		}
		if _, err = r.r.Seek(r.pos, io.SeekStart); err != nil {
			return r.pos
		}
		r.size = end
	}
	return r.size
}

// Read implements io.Reader and respects the innermost limit.
func (r *Reader) Read(p []byte) (int, error) {
	rem := r.Remaining()
	if rem <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := r.r.Read(p)
	r.pos += int64(n)
	return n, err
}

func (r *Reader) fill(p []byte) error {
	if int64(len(p)) > r.Remaining() {
		if len(r.limits) > 0 {
			return ErrLimitExceeded
		}
		return io.ErrUnexpectedEOF
	}
	n, err := io.ReadFull(r.r, p)
	r.pos += int64(n)
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Bytes reads exactly 'n' bytes into a new slice.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	b := make([]byte, n)
	if err := r.fill(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Rest reads everything up to the innermost limit or the end of the stream.
func (r *Reader) Rest() ([]byte, error) {
	return r.Bytes(int(r.Remaining()))
}

// Byte reads a single byte.
func (r *Reader) Byte() (byte, error) {
	if err := r.fill(r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// Bool reads a 32 bit boolean. Any non-zero value is true.
func (r *Reader) Bool() (bool, error) {
	v, err := r.UInt32()
	return v != 0, err
}

// Int16 reads a little-endian int16.
func (r *Reader) Int16() (int16, error) {
	if err := r.fill(r.buf[:2]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(r.buf[:2])), nil
}

// UInt32 reads a little-endian uint32.
func (r *Reader) UInt32() (uint32, error) {
	if err := r.fill(r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[:4]), nil
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() (int32, error) {
	v, err := r.UInt32()
	return int32(v), err
}

// UInt64 reads a little-endian uint64.
func (r *Reader) UInt64() (uint64, error) {
	if err := r.fill(r.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.buf[:8]), nil
}

// Int64 reads a little-endian int64.
func (r *Reader) Int64() (int64, error) {
	v, err := r.UInt64()
	return int64(v), err
}

// Float32 reads a little-endian IEEE 754 float.
func (r *Reader) Float32() (float32, error) {
	v, err := r.UInt32()
	return math.Float32frombits(v), err
}

// String reads an int32 length followed by that many bytes of UTF-8.
func (r *Reader) String() (string, error) {
	n, err := r.Int32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", ErrNegativeLength
	}
	if n > MaxStringLength {
		return "", ErrStringTooLong
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Peek32 returns the next little-endian uint32 without consuming it.
func (r *Reader) Peek32() (uint32, error) {
	pos := r.pos
	v, err := r.UInt32()
	if err != nil {
		return 0, err
	}
	return v, r.Seek(pos)
}
