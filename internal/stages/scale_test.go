// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"math"
	"testing"

	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

func setupConstantTraceRuntime(t *testing.T, sampleCount int, constant float64) *runtime.Runtime {
	t.Helper()
	rt := runtime.New()
	if err := rt.AddAttribute("INLINE", format.Int32, 1); err != nil {
		t.Fatal(err)
	}
	if err := rt.AddAttribute("CROSSLINE", format.Int32, 1); err != nil {
		t.Fatal(err)
	}
	if err := rt.AddAttribute("DATA", format.Float32, sampleCount); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetPrimaryKeyName("INLINE"); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetSecondaryKeyName("CROSSLINE"); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetVolumeDataName("DATA"); err != nil {
		t.Fatal(err)
	}
	rt.SetSampleAxis(0, float64(sampleCount-1), sampleCount)
	if err := rt.SetGroupSize(1); err != nil {
		t.Fatal(err)
	}
	trace, err := rt.Row("DATA", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < sampleCount; i++ {
		trace.SetFromDouble(i, constant)
	}
	return rt
}

func TestScaleFactorMultipliesTrace(t *testing.T) {
	rt := setupConstantTraceRuntime(t, 5, 2.0)
	s := NewScale(rt)
	if err := s.Init("scale", "method:\n  factor:\n    value: 3\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Process("scale"); err != nil {
		t.Fatal(err)
	}
	trace, err := rt.Row("DATA", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < trace.Len(); i++ {
		if math.Abs(trace.At(i)-6.0) > 1e-3 {
			t.Fatalf("sample %d = %v, want 6", i, trace.At(i))
		}
	}
}

func TestScaleAGCConstantTracePassesThrough(t *testing.T) {
	rt := setupConstantTraceRuntime(t, 11, 4.0)
	s := NewScale(rt)
	if err := s.Init("scale", "method:\n  agc:\n    window_size: 3\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Process("scale"); err != nil {
		t.Fatal(err)
	}
	trace, err := rt.Row("DATA", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < trace.Len(); i++ {
		if math.Abs(trace.At(i)-4.0) > 1e-2 {
			t.Fatalf("sample %d = %v, want 4", i, trace.At(i))
		}
	}
}

func TestScaleDivergeMatchesSquareLaw(t *testing.T) {
	rt := setupConstantTraceRuntime(t, 11, 1.0)
	s := NewScale(rt)
	cfg := "method:\n  diverge:\n    a: 2\n    v: 1\n"
	if err := s.Init("scale", cfg); err != nil {
		t.Fatal(err)
	}
	if err := s.Process("scale"); err != nil {
		t.Fatal(err)
	}
	trace, err := rt.Row("DATA", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < trace.Len(); i++ {
		want := float64(i * i)
		if math.Abs(trace.At(i)-want) > 1e-2 {
			t.Fatalf("sample %d = %v, want %v", i, trace.At(i), want)
		}
	}
}

func TestScaleInitRequiresExactlyOneMethod(t *testing.T) {
	rt := setupConstantTraceRuntime(t, 3, 1.0)
	s := NewScale(rt)
	if err := s.Init("scale", "method: {}\n"); err == nil {
		t.Fatal("expected error when no scale method is configured")
	}
}
