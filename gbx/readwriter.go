// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

import (
	"github.com/westerndigitalcorporation/gbx/pkg/cursor"
)

// ReadWriter is handed to ChunkData.ReadWrite. In read mode every method
// fills the value its argument points to; in write mode it writes it. The
// first error sticks: later calls do nothing, and the chunk fails with it.
//
// WARNING: ReadWriter is not thread safe.
type ReadWriter struct {
	r  *cursor.Reader
	rs *session

	w  *cursor.Writer
	ws *writeSession

	err error
}

// Reading returns true when decoding.
func (rw *ReadWriter) Reading() bool {
	return rw.r != nil
}

// Err returns the first error encountered.
func (rw *ReadWriter) Err() error {
	return rw.err
}

// Ok returns true while no error was encountered.
func (rw *ReadWriter) Ok() bool {
	return rw.err == nil
}

// Fail records an error found by the chunk codec itself, e.g. an unsupported
// chunk version.
func (rw *ReadWriter) Fail(err error) {
	if rw.err == nil {
		rw.err = err
	}
}

// Failf is Fail with an integrity error built from a format string.
func (rw *ReadWriter) Failf(format string, args ...interface{}) {
	rw.Fail(newError(ErrIntegrity, format, args...))
}

// Byte reads or writes one byte.
func (rw *ReadWriter) Byte(v *byte) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.r.Byte()
	} else {
		rw.err = rw.w.Byte(*v)
	}
}

// Bool reads or writes a 32 bit boolean.
func (rw *ReadWriter) Bool(v *bool) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.r.Bool()
	} else {
		rw.err = rw.w.Bool(*v)
	}
}

// Int16 reads or writes an int16.
func (rw *ReadWriter) Int16(v *int16) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.r.Int16()
	} else {
		rw.err = rw.w.Int16(*v)
	}
}

// Int32 reads or writes an int32.
func (rw *ReadWriter) Int32(v *int32) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.r.Int32()
	} else {
		rw.err = rw.w.Int32(*v)
	}
}

// UInt32 reads or writes a uint32.
func (rw *ReadWriter) UInt32(v *uint32) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.r.UInt32()
	} else {
		rw.err = rw.w.UInt32(*v)
	}
}

// Int64 reads or writes an int64.
func (rw *ReadWriter) Int64(v *int64) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.r.Int64()
	} else {
		rw.err = rw.w.Int64(*v)
	}
}

// Float32 reads or writes a float.
func (rw *ReadWriter) Float32(v *float32) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.r.Float32()
	} else {
		rw.err = rw.w.Float32(*v)
	}
}

// Vec3 reads or writes three floats.
func (rw *ReadWriter) Vec3(v *[3]float32) {
	for i := range v {
		rw.Float32(&v[i])
	}
}

// String reads or writes a length-prefixed string.
func (rw *ReadWriter) String(v *string) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.r.String()
	} else {
		rw.err = rw.w.String(*v)
	}
}

// Bytes reads or writes exactly 'n' bytes.
func (rw *ReadWriter) Bytes(v *[]byte, n int) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.r.Bytes(n)
		return
	}
	if len(*v) != n {
		rw.err = newError(ErrInvalidArgument, "have %d bytes, layout wants %d", len(*v), n)
		return
	}
	rw.err = rw.w.Bytes(*v)
}

// ByteArray reads or writes an int32 count followed by that many bytes.
func (rw *ReadWriter) ByteArray(v *[]byte) {
	n := int32(len(*v))
	rw.count(&n)
	rw.Bytes(v, int(n))
}

// count reads or writes an array length and checks it's plausible.
func (rw *ReadWriter) count(n *int32) {
	rw.Int32(n)
	if rw.err == nil && rw.r != nil && (*n < 0 || int64(*n) > rw.r.Remaining()) {
		rw.err = newError(ErrIntegrity, "array length %d with %d bytes left", *n, rw.r.Remaining())
	}
}

// Int32s reads or writes a count-prefixed array of int32.
func (rw *ReadWriter) Int32s(v *[]int32) {
	n := int32(len(*v))
	rw.count(&n)
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v = make([]int32, n)
	}
	for i := range *v {
		rw.Int32(&(*v)[i])
	}
}

// Strings reads or writes a count-prefixed array of strings.
func (rw *ReadWriter) Strings(v *[]string) {
	n := int32(len(*v))
	rw.count(&n)
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v = make([]string, n)
	}
	for i := range *v {
		rw.String(&(*v)[i])
	}
}

// Id reads or writes a lookback string through the session Id table.
func (rw *ReadWriter) Id(v *Id) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.rs.ids.read(rw.r)
	} else {
		rw.err = rw.ws.ids.write(rw.w, *v)
	}
}

// Ids reads or writes a count-prefixed array of Ids.
func (rw *ReadWriter) Ids(v *[]Id) {
	n := int32(len(*v))
	rw.count(&n)
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v = make([]Id, n)
	}
	for i := range *v {
		rw.Id(&(*v)[i])
	}
}

// Ident reads or writes an (id, collection, author) triple.
func (rw *ReadWriter) Ident(v *Ident) {
	rw.Id(&v.ID)
	rw.Id(&v.Collection)
	rw.Id(&v.Author)
}

// NodeRef reads or writes a node reference. Reading a reference seen for the
// first time decodes the referenced node inline.
func (rw *ReadWriter) NodeRef(v **Node) {
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v, rw.err = rw.rs.readNodeRef(rw.r)
	} else {
		rw.err = rw.ws.writeNodeRef(rw.w, *v)
	}
}

// NodeRefs reads or writes a count-prefixed array of node references.
func (rw *ReadWriter) NodeRefs(v *[]*Node) {
	n := int32(len(*v))
	rw.count(&n)
	if rw.err != nil {
		return
	}
	if rw.r != nil {
		*v = make([]*Node, n)
	}
	for i := range *v {
		rw.NodeRef(&(*v)[i])
	}
}

// Remaining returns the number of bytes left in the chunk being read. It's
// only meaningful for lazy chunks and returns 0 when writing.
func (rw *ReadWriter) Remaining() int64 {
	if rw.r == nil {
		return 0
	}
	return rw.r.Remaining()
}
