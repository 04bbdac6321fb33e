// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seismicpipe/seismicpipe/internal/format"
)

var binarySymbols = map[format.Operator]string{
	format.OpAdd: "+",
	format.OpSub: "-",
	format.OpMul: "*",
	format.OpDiv: "/",
	format.OpPow: "POW",
}

var unaryNames = map[format.Operator]string{
	format.OpSin:  "SIN",
	format.OpCos:  "COS",
	format.OpTan:  "TAN",
	format.OpLog:  "LOG",
	format.OpSqrt: "SQRT",
	format.OpAbs:  "ABS",
	format.OpExp:  "EXP",
}

// String renders the tree back into source form. Numbers use the shortest
// round-tripping decimal representation; variable names are already
// upper-case by construction. Re-parsing String()'s output reproduces an
// equivalent tree.
func (t *Tree) String() string {
	return printNode(t.Root)
}

func printNode(n *Node) string {
	switch n.Kind {
	case KindNumber:
		return strconv.FormatFloat(n.Number, 'g', -1, 64)
	case KindVariable:
		return n.Variable
	case KindUnary:
		return fmt.Sprintf("%s(%s)", unaryNames[n.Op], printNode(n.Child))
	case KindBinary:
		if n.Op == format.OpPow {
			return fmt.Sprintf("POW(%s,%s)", printNode(n.Left), printNode(n.Right))
		}
		return fmt.Sprintf("(%s%s%s)", printNode(n.Left), binarySymbols[n.Op], printNode(n.Right))
	default:
		return ""
	}
}

// Canonical renders a flattened form without the outer parenthesisation
// String() always adds around a binary node, suitable for the round-trip test of a single binary
// expression of two variables (e.g. "A+B" rather than "(A+B)").
func (t *Tree) Canonical() string {
	s := t.String()
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	return s
}
