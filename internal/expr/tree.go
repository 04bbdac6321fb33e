// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package expr implements the tokeniser, recursive-descent parser and
// type-dispatched vector evaluator used by the attrcalc and mute stages.
package expr

import "github.com/seismicpipe/seismicpipe/internal/format"

// NodeKind discriminates the immutable expression-tree node variants.
type NodeKind int

const (
	KindNumber NodeKind = iota
	KindVariable
	KindUnary
	KindBinary
)

// Node is an immutable expression-tree node. Only the fields relevant to
// Kind are populated; the tree is built once by Parse and never mutated.
type Node struct {
	Kind     NodeKind
	Number   float64
	Variable string
	Op       format.Operator
	Child    *Node // unary
	Left     *Node // binary
	Right    *Node // binary
}

// Tree is the parsed, immutable result of Parse: the root node plus the set
// of variable names actually referenced, in first-seen order.
type Tree struct {
	Root *Node
	Used []string
}

func number(v float64) *Node { return &Node{Kind: KindNumber, Number: v} }
func variable(name string) *Node { return &Node{Kind: KindVariable, Variable: name} }

func unary(op format.Operator, child *Node) *Node {
	return &Node{Kind: KindUnary, Op: op, Child: child}
}

func binary(op format.Operator, left, right *Node) *Node {
	return &Node{Kind: KindBinary, Op: op, Left: left, Right: right}
}
