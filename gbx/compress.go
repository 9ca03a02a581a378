// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"fmt"

	log "github.com/golang/glog"
)

// Compressor is the codec of compressed container sections. The engine never
// compresses anything itself; a codec is injected through Options.
type Compressor interface {
	// Decompress returns the 'size' bytes 'src' decompresses to.
	Decompress(src []byte, size int) ([]byte, error)

	// Compress returns the compressed form of 'src'.
	Compress(src []byte) ([]byte, error)
}

func decompressBody(c Compressor, src []byte, size int) ([]byte, error) {
	if c == nil {
		return nil, newError(ErrCodecMissing, "%d compressed bytes", len(src))
	}
	out, err := c.Decompress(src, size)
	if err != nil {
		log.Errorf("failed to decompress %d bytes: %s", len(src), err)
		return nil, fmt.Errorf("%w: %w", ErrIntegrity.Error(), err)
	}
	if len(out) != size {
		log.Errorf("decompressed to %d bytes, expected %d", len(out), size)
		return nil, newError(ErrIntegrity, "decompressed to %d bytes, expected %d", len(out), size)
	}
	return out, nil
}

func compressBody(c Compressor, src []byte) ([]byte, error) {
	if c == nil {
		return nil, newError(ErrCodecMissing, "%d bytes to compress", len(src))
	}
	return c.Compress(src)
}
