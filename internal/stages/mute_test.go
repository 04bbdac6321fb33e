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

func setupMuteRuntime(t *testing.T) (*runtime.Runtime, []float64) {
	t.Helper()
	axisValues := []float64{0, 1000, 2000, 3000, 4000, 5000, 6000}
	rt := runtime.New()
	if err := rt.AddAttribute("INLINE", format.Int32, 1); err != nil {
		t.Fatal(err)
	}
	if err := rt.AddAttribute("CROSSLINE", format.Int32, 1); err != nil {
		t.Fatal(err)
	}
	if err := rt.AddAttribute("DATA", format.Float32, len(axisValues)); err != nil {
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
	rt.SetSampleAxis(axisValues[0], axisValues[len(axisValues)-1], len(axisValues))
	if err := rt.SetGroupSize(1); err != nil {
		t.Fatal(err)
	}
	trace, err := rt.Row("DATA", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range axisValues {
		trace.SetFromDouble(i, 10)
	}
	return rt, axisValues
}

func TestMuteGreaterThanLinearRamp(t *testing.T) {
	rt, axisValues := setupMuteRuntime(t)
	m := NewMute(rt)
	cfg := "compare_direction: \">\"\nthreshold:\n  value: 3000\ntapering_window_size: 2000\n"
	if err := m.Init("mute", cfg); err != nil {
		t.Fatal(err)
	}
	if err := m.Process("mute"); err != nil {
		t.Fatal(err)
	}
	trace, err := rt.Row("DATA", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := map[float64]float64{
		0:    10,
		2000: 10,
		3000: 10,
		4000: 5,
		5000: 0,
		6000: 0,
	}
	for i, v := range axisValues {
		if exp, ok := want[v]; ok {
			if math.Abs(trace.At(i)-exp) > 1e-3 {
				t.Fatalf("t=%v: got %v, want %v", v, trace.At(i), exp)
			}
		}
	}
}

func TestMuteHardStepWhenWindowZero(t *testing.T) {
	rt, axisValues := setupMuteRuntime(t)
	m := NewMute(rt)
	cfg := "compare_direction: \">\"\nthreshold:\n  value: 3000\ntapering_window_size: 0\n"
	if err := m.Init("mute", cfg); err != nil {
		t.Fatal(err)
	}
	if err := m.Process("mute"); err != nil {
		t.Fatal(err)
	}
	trace, err := rt.Row("DATA", 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range axisValues {
		want := 10.0
		if v > 3000 {
			want = 0
		}
		if math.Abs(trace.At(i)-want) > 1e-3 {
			t.Fatalf("t=%v: got %v, want %v", v, trace.At(i), want)
		}
	}
}

func TestMuteLessThanMirrorsGreaterThan(t *testing.T) {
	if muteFactor("<", 3000, 2000, 2000) != muteFactor(">", -3000, 2000, -2000) {
		t.Fatal("mirror identity broken")
	}
	got := muteFactor("<", 3000, 2000, 2000)
	want := 0.5
	if math.Abs(got-want) > 1e-3 {
		t.Fatalf("muteFactor(<) at t=2000 = %v, want %v", got, want)
	}
	if muteFactor("<", 3000, 2000, 1000) != 0 {
		t.Fatal("expected full mute at the far edge of the taper")
	}
	if muteFactor("<", 3000, 2000, 3000) != 1 {
		t.Fatal("expected no mute at/above the threshold")
	}
}
