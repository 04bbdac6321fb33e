// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package format implements the six element storage formats shared by every
// attribute buffer in the pipeline, and the saturating conversions between
// them and the double-precision intermediate used by the expression engine.
package format

import (
	"fmt"
	"math"
)

// ElementFormat is the closed enumeration of storage formats every buffer,
// attribute and expression operand carries.
type ElementFormat int

const (
	Int8 ElementFormat = iota
	Int16
	Int32
	Int64
	Float32
	Float64
)

func (f ElementFormat) String() string {
	switch f {
	case Int8:
		return "I8"
	case Int16:
		return "I16"
	case Int32:
		return "I32"
	case Int64:
		return "I64"
	case Float32:
		return "R32"
	case Float64:
		return "R64"
	default:
		return fmt.Sprintf("ElementFormat(%d)", int(f))
	}
}

// ParseElementFormat accepts the config-facing spellings used by attrcalc's
// `type` option ("R32", "I32", ...) as well as the enum's own String().
func ParseElementFormat(s string) (ElementFormat, bool) {
	switch s {
	case "I8", "Int8":
		return Int8, true
	case "I16", "Int16":
		return Int16, true
	case "I32", "Int32":
		return Int32, true
	case "I64", "Int64":
		return Int64, true
	case "R32", "Float32":
		return Float32, true
	case "R64", "Float64":
		return Float64, true
	default:
		return 0, false
	}
}

func (f ElementFormat) IsInteger() bool {
	return f == Int8 || f == Int16 || f == Int32 || f == Int64
}

// BytesOf returns the storage width of one element in the given format.
func BytesOf(f ElementFormat) int {
	switch f {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		panic(fmt.Sprintf("format: unknown element format %d", int(f)))
	}
}

// integer range bounds used for saturation on narrowing.
func intRange(f ElementFormat) (min, max float64) {
	switch f {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Int64:
		return math.MinInt64, math.MaxInt64
	default:
		panic("format: intRange called on non-integer format")
	}
}

// saturate rounds v to the nearest integer (ties away from zero, matching
// the reference implementation's narrowing behaviour) and clamps it into
// the destination format's representable range.
func saturate(v float64, f ElementFormat) float64 {
	min, max := intRange(f)
	r := math.Round(v)
	if r < min {
		return min
	}
	if r > max {
		return max
	}
	return r
}
