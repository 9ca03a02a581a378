// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"fmt"
)

// UnknownClassPolicy says what to do with a container whose root class isn't
// registered.
type UnknownClassPolicy int

const (
	// UnknownClassOpaque keeps the header chunks and the body as raw bytes.
	// The document can still be written back unchanged.
	UnknownClassOpaque UnknownClassPolicy = iota

	// UnknownClassFail fails the read with ErrUnknownClass.
	UnknownClassFail
)

func (p UnknownClassPolicy) String() string {
	switch p {
	case UnknownClassOpaque:
		return "opaque"
	case UnknownClassFail:
		return "fail"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler so config files can spell
// the policy out.
func (p UnknownClassPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *UnknownClassPolicy) UnmarshalText(b []byte) error {
	switch string(b) {
	case "opaque":
		*p = UnknownClassOpaque
	case "fail":
		*p = UnknownClassFail
	default:
		return fmt.Errorf("unknown class policy %q", b)
	}
	return nil
}

// Options configures a Container.
type Options struct {
	UnknownClass UnknownClassPolicy // What to do with an unregistered root class.

	// Substitute the most recently read node for a reference to an index
	// that was never populated and is followed by an unknown class id. Some
	// real files need it. Off by default.
	SubstituteMissingNodes bool

	// Codec for compressed sections. Only required to read or write a
	// compressed body.
	Compressor Compressor `json:"-"`

	// --- Discovery ---
	DiscoverWorkers int // How many chunks DiscoverAll decodes in parallel.

	// --- Limits ---
	MaxChunkSize int64 // Largest lazy or header chunk accepted, in bytes.
	MaxBodySize  int64 // Largest uncompressed body accepted, in bytes.
}

// Validate validates the options have reasonable (not obviously wrong)
// values.
func (o Options) Validate() error {
	if o.UnknownClass != UnknownClassOpaque && o.UnknownClass != UnknownClassFail {
		return fmt.Errorf("invalid unknown class policy %d", int(o.UnknownClass))
	}
	if o.DiscoverWorkers <= 0 {
		return fmt.Errorf("DiscoverWorkers must be positive")
	}
	if o.MaxChunkSize <= 0 {
		return fmt.Errorf("MaxChunkSize must be positive")
	}
	if o.MaxBodySize <= 0 {
		return fmt.Errorf("MaxBodySize must be positive")
	}
	return nil
}

// DefaultOptions are the options used when none are given.
var DefaultOptions = Options{
	UnknownClass: UnknownClassOpaque,

	DiscoverWorkers: 4,

	// Real chunks are at most a few MB (embedded thumbnails and ghosts).
	MaxChunkSize: 64 << 20,
	MaxBodySize:  256 << 20,
}
