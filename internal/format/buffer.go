// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package format

import "fmt"

// Buffer is the (raw-bytes, length, format) triple every attribute, every
// kernel operand and every expression binding is built from. The backing
// array is exposed as a typed Go slice per format rather than as raw bytes;
// Go's slice headers already give us the pointer+length pair the original
// design calls for, without unsafe pointer arithmetic at every access site.
type Buffer struct {
	Format ElementFormat
	i8     []int8
	i16    []int16
	i32    []int32
	i64    []int64
	f32    []float32
	f64    []float64
}

// NewBuffer allocates a zeroed buffer of n elements in the given format.
func NewBuffer(f ElementFormat, n int) *Buffer {
	b := &Buffer{Format: f}
	switch f {
	case Int8:
		b.i8 = make([]int8, n)
	case Int16:
		b.i16 = make([]int16, n)
	case Int32:
		b.i32 = make([]int32, n)
	case Int64:
		b.i64 = make([]int64, n)
	case Float32:
		b.f32 = make([]float32, n)
	case Float64:
		b.f64 = make([]float64, n)
	default:
		panic(fmt.Sprintf("format: NewBuffer: unknown format %d", int(f)))
	}
	return b
}

// WrapInt8 and friends view an existing slice as a Buffer without copying;
// used by the runtime so attribute storage and kernel operands share memory.
func WrapInt8(s []int8) *Buffer    { return &Buffer{Format: Int8, i8: s} }
func WrapInt16(s []int16) *Buffer  { return &Buffer{Format: Int16, i16: s} }
func WrapInt32(s []int32) *Buffer  { return &Buffer{Format: Int32, i32: s} }
func WrapInt64(s []int64) *Buffer  { return &Buffer{Format: Int64, i64: s} }
func WrapFloat32(s []float32) *Buffer { return &Buffer{Format: Float32, f32: s} }
func WrapFloat64(s []float64) *Buffer { return &Buffer{Format: Float64, f64: s} }

func (b *Buffer) Len() int {
	switch b.Format {
	case Int8:
		return len(b.i8)
	case Int16:
		return len(b.i16)
	case Int32:
		return len(b.i32)
	case Int64:
		return len(b.i64)
	case Float32:
		return len(b.f32)
	case Float64:
		return len(b.f64)
	default:
		return 0
	}
}

// At widens element i to float64 regardless of the buffer's own format.
func (b *Buffer) At(i int) float64 {
	switch b.Format {
	case Int8:
		return float64(b.i8[i])
	case Int16:
		return float64(b.i16[i])
	case Int32:
		return float64(b.i32[i])
	case Int64:
		return float64(b.i64[i])
	case Float32:
		return float64(b.f32[i])
	case Float64:
		return b.f64[i]
	default:
		panic(fmt.Sprintf("format: At: unknown format %d", int(b.Format)))
	}
}

// SetFromDouble narrows v into element i of the destination buffer,
// saturating at the destination's representable range when it is an
// integer format, or converting directly when it is a float format.
func (b *Buffer) SetFromDouble(i int, v float64) {
	switch b.Format {
	case Int8:
		b.i8[i] = int8(saturate(v, Int8))
	case Int16:
		b.i16[i] = int16(saturate(v, Int16))
	case Int32:
		b.i32[i] = int32(saturate(v, Int32))
	case Int64:
		b.i64[i] = int64(saturate(v, Int64))
	case Float32:
		b.f32[i] = float32(v)
	case Float64:
		b.f64[i] = v
	default:
		panic(fmt.Sprintf("format: SetFromDouble: unknown format %d", int(b.Format)))
	}
}

// Slice returns a view over elements [lo,hi) of b, sharing the backing
// array (writes through the view are visible in b and vice versa). Used to
// address one row of a group buffer without copying.
func (b *Buffer) Slice(lo, hi int) *Buffer {
	switch b.Format {
	case Int8:
		return WrapInt8(b.i8[lo:hi:hi])
	case Int16:
		return WrapInt16(b.i16[lo:hi:hi])
	case Int32:
		return WrapInt32(b.i32[lo:hi:hi])
	case Int64:
		return WrapInt64(b.i64[lo:hi:hi])
	case Float32:
		return WrapFloat32(b.f32[lo:hi:hi])
	case Float64:
		return WrapFloat64(b.f64[lo:hi:hi])
	default:
		panic(fmt.Sprintf("format: Slice: unknown format %d", int(b.Format)))
	}
}

func (b *Buffer) Float64Slice() []float64 {
	if b.Format != Float64 {
		panic("format: Float64Slice called on non-double buffer")
	}
	return b.f64
}

// ConvertVector narrows every element of src (which must be 64-bit float)
// into dst, rounding and saturating per SetFromDouble. Lengths must match.
func ConvertVector(dst, src *Buffer) error {
	if src.Format != Float64 {
		return fmt.Errorf("format: ConvertVector: source must be double, got %s", src.Format)
	}
	if dst.Len() != src.Len() {
		return fmt.Errorf("format: ConvertVector: length mismatch dst=%d src=%d", dst.Len(), src.Len())
	}
	for i := 0; i < src.Len(); i++ {
		dst.SetFromDouble(i, src.f64[i])
	}
	return nil
}
