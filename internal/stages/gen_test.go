// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"testing"

	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

const genConfig = `
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
signal:
  ricker:
    pfreq: 25
    gate: 10
`

func TestGenPopulatesSchemaAndAxes(t *testing.T) {
	rt := runtime.New()
	g := NewGen(rt)
	if err := g.Init("gen", genConfig); err != nil {
		t.Fatal(err)
	}
	if rt.GetGroupSize() != 3 {
		t.Fatalf("expected group size 3, got %d", rt.GetGroupSize())
	}
	if rt.GetDataVectorLength() != 5 {
		t.Fatalf("expected 5 samples per trace, got %d", rt.GetDataVectorLength())
	}
	if rt.PrimaryKeyName() != "INLINE" || rt.SecondaryKeyName() != "CROSSLINE" {
		t.Fatalf("unexpected key names: %s / %s", rt.PrimaryKeyName(), rt.SecondaryKeyName())
	}
}

func TestGenFinishesAfterPrimaryRange(t *testing.T) {
	rt := runtime.New()
	g := NewGen(rt)
	if err := g.Init("gen", genConfig); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if rt.JobFinished() {
			t.Fatalf("job finished too early at iteration %d", i)
		}
		if err := g.Process("gen"); err != nil {
			t.Fatal(err)
		}
	}
	if !rt.JobFinished() {
		t.Fatal("expected job finished after 3 primary steps")
	}
}

func TestGenFillsPrimaryAndSecondaryBuffers(t *testing.T) {
	rt := runtime.New()
	g := NewGen(rt)
	if err := g.Init("gen", genConfig); err != nil {
		t.Fatal(err)
	}
	if err := g.Process("gen"); err != nil {
		t.Fatal(err)
	}
	pbuf, err := rt.GetWritableBuffer("INLINE")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < pbuf.Len(); i++ {
		if pbuf.At(i) != 10 {
			t.Fatalf("expected first group's inline value to be 10, got %v at row %d", pbuf.At(i), i)
		}
	}
	sbuf, err := rt.GetWritableBuffer("CROSSLINE")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{20, 21, 22}
	for i, w := range want {
		if sbuf.At(i) != w {
			t.Fatalf("crossline[%d] = %v, want %v", i, sbuf.At(i), w)
		}
	}
}
