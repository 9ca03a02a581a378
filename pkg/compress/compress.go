// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT
//
// Package compress provides codecs for compressed container bodies. They
// satisfy gbx.Compressor and are injected through gbx.Options.

package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
)

// Codec is the method set of gbx.Compressor.
type Codec interface {
	Decompress(src []byte, size int) ([]byte, error)
	Compress(src []byte) ([]byte, error)
}

// Snappy is a block snappy codec.
type Snappy struct{}

// Decompress decodes a snappy block of 'size' bytes.
func (Snappy) Decompress(src []byte, size int) ([]byte, error) {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, fmt.Errorf("snappy block decodes to %d bytes, expected %d", n, size)
	}
	return snappy.Decode(make([]byte, n), src)
}

// Compress encodes 'src' as a snappy block.
func (Snappy) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

// Zlib is a zlib stream codec.
type Zlib struct {
	// Level is one of the zlib compression levels. Zero means the default.
	Level int
}

// Decompress inflates 'src', which must produce exactly 'size' bytes.
func (z Zlib) Decompress(src []byte, size int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	// There must be nothing left.
	var one [1]byte
	if n, _ := r.Read(one[:]); n != 0 {
		return nil, fmt.Errorf("zlib stream longer than %d bytes", size)
	}
	return out, nil
}

// Compress deflates 'src'.
func (z Zlib) Compress(src []byte) ([]byte, error) {
	level := z.Level
	if level == 0 {
		level = zlib.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ByName returns the codec named "snappy" or "zlib", or nil for "" or
// "none".
func ByName(name string) (Codec, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "snappy":
		return Snappy{}, nil
	case "zlib":
		return Zlib{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
