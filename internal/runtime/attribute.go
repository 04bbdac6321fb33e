// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package runtime implements the process-wide dataflow runtime: the
// attribute schema, the per-attribute buffers, the axis descriptors, group
// size, job state and the per-stage opaque-state slot described by the
// specification's dataflow-runtime component.
package runtime

import (
	"strings"

	"github.com/seismicpipe/seismicpipe/internal/format"
)

// AttributeDescriptor describes one registered attribute. Names are
// case-folded to upper-case at every boundary; this is enforced by
// UpperName, which every entry point into the runtime calls before using a
// name as a map key.
type AttributeDescriptor struct {
	Name       string
	Format     format.ElementFormat
	Length     int // samples per group row; 1 identifies a scalar attribute
	Unit       string
	ValueMin   float64
	ValueMax   float64
}

// UpperName case-folds an attribute or variable name exactly the way the
// runtime does at every boundary (AddAttribute, GetAttributeInfo, the
// parser's admissible-variable set, ...).
func UpperName(name string) string {
	return strings.ToUpper(name)
}

func (d AttributeDescriptor) IsScalar() bool { return d.Length == 1 }
