// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"errors"
	"fmt"
	"io"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

// Error is the error taxonomy of the engine. Errors returned by this package
// can be tested with Error.Is, or taken apart with GbxError.
type Error int

const (
	// NoError means no error.
	NoError = Error(iota)

	//------ Fatal container errors ------//

	// ErrFormat is returned for a bad magic or a text-format container.
	ErrFormat

	// ErrUnsupportedVersion is returned for a container or Id table version we
	// don't know how to read.
	ErrUnsupportedVersion

	// ErrIntegrity is returned if a declared length is inconsistent with the
	// bytes that are actually available, or a value can't possibly be valid.
	ErrIntegrity

	// ErrCodecMissing is returned if compressed data is present but no
	// Compressor was configured.
	ErrCodecMissing

	//------ Class and chunk errors ------//

	// ErrUnknownClass is returned for a class id missing from the registry,
	// when the configuration asks for it to be fatal or when it appears inside
	// a node reference.
	ErrUnknownClass

	// ErrAbstractClass is returned when a node reference names a class that
	// can't be instantiated.
	ErrAbstractClass

	// ErrUnknownChunk is returned when asking to discover a chunk that no
	// registered class knows how to decode.
	ErrUnknownChunk

	//------ Meta-error ------//

	// ErrInvalidArgument is returned if an argument is bad or confusing.
	ErrInvalidArgument

	// ErrCanceled is returned when an operation is canceled through its context.
	ErrCanceled
)

var description = map[Error]string{
	NoError: "no error",

	ErrFormat:             "not a binary gbx container",
	ErrUnsupportedVersion: "unsupported version",
	ErrIntegrity:          "data integrity error",
	ErrCodecMissing:       "compressed data present but no compressor configured",

	ErrUnknownClass:  "unknown class",
	ErrAbstractClass: "class can't be instantiated",
	ErrUnknownChunk:  "unknown chunk",

	ErrInvalidArgument: "invalid argument",
	ErrCanceled:        "operation canceled",
}

// String returns a human readable error message.
func (e Error) String() string {
	if s, ok := description[e]; ok {
		return s
	}
	return fmt.Sprintf("gbx error %d", int(e))
}

// Error returns a golang error object with an error message corresponding to
// this gbx.Error.
func (e Error) Error() error {
	if e == NoError {
		return nil
	}
	return goError(e)
}

// Is checks whether the Go error 'g' is, or wraps, the receiver.
func (e Error) Is(g error) bool {
	var b goError
	return errors.As(g, &b) && Error(b) == e
}

// goError is a wrapper type to make our Error act like Go's 'error'
type goError Error

// Error implements the 'error' interface.
func (g goError) Error() string {
	return Error(g).String()
}

// GbxError gets the underlying gbx.Error from an error.
func GbxError(err error) (Error, bool) {
	var b goError
	if errors.As(err, &b) {
		return Error(b), true
	}
	return NoError, false
}

// ChunkError attaches the chunk and stream offset to an error that happened
// while reading or writing a chunk.
type ChunkError struct {
	ChunkID uint32
	Offset  int64
	Err     error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %08X at offset %d: %v", e.ChunkID, e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *ChunkError) Unwrap() error {
	return e.Err
}

// newError builds an error carrying 'code' with extra detail.
func newError(code Error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", code.Error(), fmt.Sprintf(format, args...))
}

// classify turns low-level cursor failures into ErrIntegrity while keeping
// the original error in the chain. Errors that already carry a code are
// returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := GbxError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF),
		errors.Is(err, cursor.ErrLimitExceeded),
		errors.Is(err, cursor.ErrNegativeLength),
		errors.Is(err, cursor.ErrStringTooLong),
		errors.Is(err, cursor.ErrInvalidSeek):
		return fmt.Errorf("%w: %w", ErrIntegrity.Error(), err)
	}
	return err
}
