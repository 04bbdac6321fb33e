// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"math"
	"testing"

	"github.com/seismicpipe/seismicpipe/internal/format"
)

func TestEvalLinearCombination(t *testing.T) {
	tree, errs := Parse("INLINE + CROSSLINE * 2.7", admit("INLINE", "CROSSLINE"))
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	const n = 3
	inline := format.WrapInt32([]int32{10, 10, 10})
	crossline := format.WrapInt32([]int32{20, 21, 22})
	bindings := Bindings{"INLINE": inline, "CROSSLINE": crossline}

	ev := NewEvaluator(n, CountNodes(tree.Root))
	dst := format.NewBuffer(format.Float32, n)
	if err := ev.Eval(tree, bindings, dst); err != nil {
		t.Fatalf("eval: %v", err)
	}

	for i := 0; i < n; i++ {
		want := float32(10 + 2.7*float64(crossline.At(i)))
		got := dst.At(i)
		if math.Abs(got-float64(want)) > 1e-4 {
			t.Errorf("row %d: got %v want %v", i, got, want)
		}
	}
}

func TestEvalMissingBinding(t *testing.T) {
	tree, errs := Parse("A", admit("A"))
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	ev := NewEvaluator(1, CountNodes(tree.Root))
	dst := format.NewBuffer(format.Float64, 1)
	if err := ev.Eval(tree, Bindings{}, dst); err == nil {
		t.Fatal("expected missing-binding error")
	}
}

func TestEvalReusesArenaAcrossCalls(t *testing.T) {
	tree, errs := Parse("A + B", admit("A", "B"))
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	ev := NewEvaluator(2, CountNodes(tree.Root))
	a := format.WrapFloat64([]float64{1, 2})
	b := format.WrapFloat64([]float64{3, 4})
	dst := format.NewBuffer(format.Float64, 2)

	for i := 0; i < 3; i++ {
		if err := ev.Eval(tree, Bindings{"A": a, "B": b}, dst); err != nil {
			t.Fatalf("eval iteration %d: %v", i, err)
		}
		if dst.At(0) != 4 || dst.At(1) != 6 {
			t.Fatalf("iteration %d: unexpected result %v %v", i, dst.At(0), dst.At(1))
		}
	}
}
