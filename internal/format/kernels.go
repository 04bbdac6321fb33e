// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package format

import (
	"fmt"
	"math"
)

// Operator enumerates the binary and unary operators the kernel table and
// the expression engine both speak.
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpSin
	OpCos
	OpTan
	OpLog
	OpSqrt
	OpAbs
	OpExp
)

func (op Operator) IsBinary() bool {
	return op == OpAdd || op == OpSub || op == OpMul || op == OpDiv || op == OpPow
}

// binaryClosure is the IEEE-ish double-precision semantics for each binary
// operator. Division by exactly zero yields zero rather than Inf/NaN, a
// deliberate, documented departure from IEEE 754.
var binaryClosures = map[Operator]func(a, b float64) float64{
	OpAdd: func(a, b float64) float64 { return a + b },
	OpSub: func(a, b float64) float64 { return a - b },
	OpMul: func(a, b float64) float64 { return a * b },
	OpDiv: func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return a / b
	},
	OpPow: math.Pow,
}

var unaryClosures = map[Operator]func(a float64) float64{
	OpSin: math.Sin,
	OpCos: math.Cos,
	OpTan: math.Tan,
	OpLog: func(a float64) float64 {
		if a <= 0 {
			return 0
		}
		return math.Log(a)
	},
	OpSqrt: func(a float64) float64 {
		if a < 0 {
			return 0
		}
		return math.Sqrt(a)
	},
	OpAbs: math.Abs,
	OpExp: math.Exp,
}

// EvalBinary applies op element-wise to a and b (each may be any of the six
// formats, and the two need not share a format), widening both operands to
// double and writing the double result into dst. dst, a and b must all have
// equal length. The result format is always 64-bit float, matching the
// reference design's "only one explicit narrowing, performed by
// ConvertVector" rule.
func EvalBinary(op Operator, dst, a, b *Buffer) error {
	closure, ok := binaryClosures[op]
	if !ok {
		return fmt.Errorf("format: EvalBinary: unregistered operator %d", int(op))
	}
	if dst.Format != Float64 {
		return fmt.Errorf("format: EvalBinary: destination must be double")
	}
	n := dst.Len()
	if a.Len() != n || b.Len() != n {
		return fmt.Errorf("format: EvalBinary: length mismatch dst=%d a=%d b=%d", n, a.Len(), b.Len())
	}
	for i := 0; i < n; i++ {
		dst.f64[i] = closure(a.At(i), b.At(i))
	}
	return nil
}

// EvalUnary applies op element-wise to a, writing the double result into dst.
func EvalUnary(op Operator, dst, a *Buffer) error {
	closure, ok := unaryClosures[op]
	if !ok {
		return fmt.Errorf("format: EvalUnary: unregistered operator %d", int(op))
	}
	if dst.Format != Float64 {
		return fmt.Errorf("format: EvalUnary: destination must be double")
	}
	n := dst.Len()
	if a.Len() != n {
		return fmt.Errorf("format: EvalUnary: length mismatch dst=%d a=%d", n, a.Len())
	}
	for i := 0; i < n; i++ {
		dst.f64[i] = closure(a.At(i))
	}
	return nil
}

// Broadcast fills dst (which must be double) with the constant v.
func Broadcast(dst *Buffer, v float64) {
	for i := range dst.f64 {
		dst.f64[i] = v
	}
}

// MultiplyInPlace multiplies dst (any format) element-wise by factor (a
// double buffer of the same length), widening dst, multiplying, and
// narrowing back. Used by the mute stage to apply its taper factor vector
// through the same kernel family expressions use.
func MultiplyInPlace(dst *Buffer, factor *Buffer) error {
	if factor.Format != Float64 {
		return fmt.Errorf("format: MultiplyInPlace: factor must be double")
	}
	n := dst.Len()
	if factor.Len() != n {
		return fmt.Errorf("format: MultiplyInPlace: length mismatch dst=%d factor=%d", n, factor.Len())
	}
	for i := 0; i < n; i++ {
		dst.SetFromDouble(i, dst.At(i)*factor.f64[i])
	}
	return nil
}
