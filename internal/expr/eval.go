// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"fmt"

	"github.com/seismicpipe/seismicpipe/internal/format"
)

// EvalError is returned for any failure during evaluation: a missing
// binding, an operator rejecting its format, or a null operand.
type EvalError struct {
	Node    *Node
	Message string
}

func (e *EvalError) Error() string { return "expr: evaluation error: " + e.Message }

// Evaluator walks a Tree once, dispatching to the format package's kernels
// against a named set of input buffers, producing a double-typed result
// then narrowing it into the caller's destination buffer. A single double
// scratch region of `length` elements is reused across the whole tree: each
// recursive call claims the next unused region from the arena instead of
// allocating a new scratch slice, so the double scratch is allocated once
// (the arena, in NewEvaluator) regardless of the tree's depth; each claim
// only allocates the small Buffer view over its region.
type Evaluator struct {
	length int
	arena  []float64
	used   int
}

// NewEvaluator allocates the scratch arena sized for a tree of the given
// node count evaluated over rows of `length` elements: every unary/binary
// node needs its own length-sized region for the duration of the call that
// produced it, so worst case (a left-leaning chain) needs depth * length
// doubles. Passing nodeCount is a conservative, simple upper bound.
func NewEvaluator(length, nodeCount int) *Evaluator {
	if nodeCount < 1 {
		nodeCount = 1
	}
	return &Evaluator{
		length: length,
		arena:  make([]float64, length*(nodeCount+1)),
	}
}

func (ev *Evaluator) claim() *format.Buffer {
	start := ev.used * ev.length
	end := start + ev.length
	ev.used++
	return format.WrapFloat64(ev.arena[start:end:end])
}

// Bindings maps a variable name to its input buffer.
type Bindings map[string]*format.Buffer

// Eval evaluates tree against bindings and narrows the double result into
// dst (any of the six element formats). dst must have `length` elements.
func (ev *Evaluator) Eval(tree *Tree, bindings Bindings, dst *format.Buffer) error {
	ev.used = 0
	result, err := ev.evalNode(tree.Root, bindings)
	if err != nil {
		return err
	}
	if result.Format != format.Float64 {
		// A bare-variable tree yields the binding itself; widen it into
		// scratch so the narrowing below always sees a double source.
		widened := ev.claim()
		for i := 0; i < result.Len(); i++ {
			widened.SetFromDouble(i, result.At(i))
		}
		result = widened
	}
	return format.ConvertVector(dst, result)
}

func (ev *Evaluator) evalNode(n *Node, bindings Bindings) (*format.Buffer, error) {
	switch n.Kind {
	case KindNumber:
		out := ev.claim()
		format.Broadcast(out, n.Number)
		return out, nil

	case KindVariable:
		b, ok := bindings[n.Variable]
		if !ok {
			return nil, &EvalError{Node: n, Message: fmt.Sprintf("missing binding for variable %q", n.Variable)}
		}
		if b == nil {
			return nil, &EvalError{Node: n, Message: fmt.Sprintf("null operand for variable %q", n.Variable)}
		}
		if b.Len() != ev.length {
			return nil, &EvalError{Node: n, Message: fmt.Sprintf("variable %q has length %d, expected %d", n.Variable, b.Len(), ev.length)}
		}
		return b, nil

	case KindUnary:
		child, err := ev.evalNode(n.Child, bindings)
		if err != nil {
			return nil, err
		}
		out := ev.claim()
		if err := format.EvalUnary(n.Op, out, child); err != nil {
			return nil, &EvalError{Node: n, Message: err.Error()}
		}
		return out, nil

	case KindBinary:
		left, err := ev.evalNode(n.Left, bindings)
		if err != nil {
			return nil, err
		}
		right, err := ev.evalNode(n.Right, bindings)
		if err != nil {
			return nil, err
		}
		out := ev.claim()
		if err := format.EvalBinary(n.Op, out, left, right); err != nil {
			return nil, &EvalError{Node: n, Message: err.Error()}
		}
		return out, nil

	default:
		return nil, &EvalError{Node: n, Message: "unknown node kind"}
	}
}

// CountNodes returns the number of nodes in the tree, used to size an
// Evaluator's scratch arena.
func CountNodes(n *Node) int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case KindUnary:
		return 1 + CountNodes(n.Child)
	case KindBinary:
		return 1 + CountNodes(n.Left) + CountNodes(n.Right)
	default:
		return 1
	}
}
