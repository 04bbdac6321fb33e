// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"math"
	"testing"

	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

const tinyGenConfig = `
maxtime: 20
sinterval: 5
primarykey:
  name: INLINE
  first: 10
  last: 12
  step: 1
secondarykey:
  name: CROSSLINE
  first: 20
  last: 22
  step: 1
`

func setupTinyGen(t *testing.T) *runtime.Runtime {
	t.Helper()
	rt := runtime.New()
	g := NewGen(rt)
	if err := g.Init("gen", tinyGenConfig); err != nil {
		t.Fatal(err)
	}
	return rt
}

func TestAttrCalcCreateLinearCombination(t *testing.T) {
	rt := setupTinyGen(t)
	gen := rt.GetModuleStruct("gen").(*Gen)
	if err := gen.Process("gen"); err != nil {
		t.Fatal(err)
	}

	calc := NewAttrCalc(rt)
	cfg := `
attrname: ATTR
action: create
expr: "INLINE + CROSSLINE * 2.7"
type: R32
`
	if err := calc.Init("attrcalc", cfg); err != nil {
		t.Fatal(err)
	}
	if err := calc.Process("attrcalc"); err != nil {
		t.Fatal(err)
	}

	attrBuf, err := rt.GetWritableBuffer("ATTR")
	if err != nil {
		t.Fatal(err)
	}
	crossBuf, err := rt.GetWritableBuffer("CROSSLINE")
	if err != nil {
		t.Fatal(err)
	}
	for r := 0; r < rt.GetGroupSize(); r++ {
		crossline := crossBuf.At(r)
		want := float32(10 + 2.7*crossline)
		got := float32(attrBuf.At(r))
		if math.Abs(float64(got-want)) > 1e-3 {
			t.Fatalf("row %d: ATTR = %v, want %v", r, got, want)
		}
	}
}

func TestAttrCalcUpdateIsIdentityWhenExprIsAttributeItself(t *testing.T) {
	rt := setupTinyGen(t)
	gen := rt.GetModuleStruct("gen").(*Gen)
	if err := gen.Process("gen"); err != nil {
		t.Fatal(err)
	}

	before, err := rt.GetWritableBuffer("CROSSLINE")
	if err != nil {
		t.Fatal(err)
	}
	beforeVals := make([]float64, before.Len())
	for i := range beforeVals {
		beforeVals[i] = before.At(i)
	}

	calc := NewAttrCalc(rt)
	cfg := `
attrname: CROSSLINE
action: update
expr: "CROSSLINE"
`
	if err := calc.Init("attrcalc2", cfg); err != nil {
		t.Fatal(err)
	}
	if err := calc.Process("attrcalc2"); err != nil {
		t.Fatal(err)
	}

	after, err := rt.GetWritableBuffer("CROSSLINE")
	if err != nil {
		t.Fatal(err)
	}
	for i := range beforeVals {
		if after.At(i) != beforeVals[i] {
			t.Fatalf("row %d changed: %v -> %v", i, beforeVals[i], after.At(i))
		}
	}
}

func TestAttrCalcRemove(t *testing.T) {
	rt := setupTinyGen(t)
	gen := rt.GetModuleStruct("gen").(*Gen)
	if err := gen.Process("gen"); err != nil {
		t.Fatal(err)
	}
	calc := NewAttrCalc(rt)
	if err := calc.Init("attrcalc", "attrname: DATA\naction: remove\n"); err != nil {
		t.Fatal(err)
	}
	if err := calc.Process("attrcalc"); err != nil {
		t.Fatal(err)
	}
	if rt.HasAttribute("DATA") {
		t.Fatal("expected DATA to be removed")
	}
}

func TestAttrCalcCreateDuplicateNameFails(t *testing.T) {
	rt := setupTinyGen(t)
	calc := NewAttrCalc(rt)
	cfg := "attrname: INLINE\naction: create\nexpr: \"INLINE\"\n"
	if err := calc.Init("attrcalc", cfg); err == nil {
		t.Fatal("expected error creating an attribute that already exists")
	}
}
