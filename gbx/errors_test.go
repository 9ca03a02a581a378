// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"errors"
	"io"
	"testing"

	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

func TestErrorCodes(t *testing.T) {
	if NoError.Error() != nil {
		t.Fatalf("NoError should be nil")
	}
	err := &ChunkError{ChunkID: 0x03043002, Offset: 12, Err: newError(ErrIntegrity, "short")}
	if code, ok := GbxError(err); !ok || code != ErrIntegrity {
		t.Fatalf("code %v %v", code, ok)
	}
	if !ErrIntegrity.Is(err) || ErrFormat.Is(err) {
		t.Fatalf("bad Is")
	}
	if err.Error() != "chunk 03043002 at offset 12: data integrity error: short" {
		t.Fatalf("message %q", err.Error())
	}
	if _, ok := GbxError(io.EOF); ok {
		t.Fatalf("io.EOF has no code")
	}
}

func TestClassify(t *testing.T) {
	for _, low := range []error{io.ErrUnexpectedEOF, cursor.ErrLimitExceeded, cursor.ErrNegativeLength} {
		err := classify(low)
		if !ErrIntegrity.Is(err) || !errors.Is(err, low) {
			t.Errorf("%v classified as %v", low, err)
		}
	}
	coded := newError(ErrFormat, "x")
	if classify(coded) != coded {
		t.Errorf("coded error changed")
	}
	other := errors.New("other")
	if classify(other) != other || classify(nil) != nil {
		t.Errorf("unrelated error changed")
	}
}
