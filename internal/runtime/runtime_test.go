// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runtime

import (
	"testing"

	"github.com/seismicpipe/seismicpipe/internal/format"
)

func newTestRuntime(t *testing.T, groupSize, sampleCount int) *Runtime {
	t.Helper()
	rt := New()
	if err := rt.AddAttribute("inline", format.Int32, 1); err != nil {
		t.Fatal(err)
	}
	if err := rt.AddAttribute("crossline", format.Int32, 1); err != nil {
		t.Fatal(err)
	}
	if err := rt.AddAttribute("data", format.Float32, sampleCount); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetPrimaryKeyName("INLINE"); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetSecondaryKeyName("crossline"); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetVolumeDataName("DATA"); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetGroupSize(groupSize); err != nil {
		t.Fatal(err)
	}
	return rt
}

func TestBufferSizeInvariant(t *testing.T) {
	rt := newTestRuntime(t, 4, 10)
	for _, name := range []string{"INLINE", "CROSSLINE", "DATA"} {
		d, err := rt.GetAttributeInfo(name)
		if err != nil {
			t.Fatal(err)
		}
		buf, err := rt.GetWritableBuffer(name)
		if err != nil {
			t.Fatal(err)
		}
		want := d.Length * rt.GetGroupSize()
		if buf.Len() != want {
			t.Errorf("%s: buffer length %d, want %d", name, buf.Len(), want)
		}
	}
}

func TestNameCaseFolding(t *testing.T) {
	rt := New()
	if err := rt.AddAttribute("myAttr", format.Int32, 1); err != nil {
		t.Fatal(err)
	}
	if !rt.HasAttribute("MYATTR") || !rt.HasAttribute("myattr") {
		t.Fatal("expected case-insensitive lookup")
	}
	if _, err := rt.GetAttributeInfo("myattr"); err != nil {
		t.Fatal(err)
	}
}

func TestDuplicateAttributeFails(t *testing.T) {
	rt := New()
	if err := rt.AddAttribute("X", format.Int32, 1); err != nil {
		t.Fatal(err)
	}
	if err := rt.AddAttribute("x", format.Float64, 2); err == nil {
		t.Fatal("expected duplicate-name error")
	}
}

func TestAllocateAfterGroupSize(t *testing.T) {
	rt := New()
	if err := rt.SetGroupSize(5); err != nil {
		t.Fatal(err)
	}
	if err := rt.AddAttribute("LATE", format.Int16, 3); err != nil {
		t.Fatal(err)
	}
	buf, err := rt.GetWritableBuffer("LATE")
	if err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 15 {
		t.Fatalf("expected 15 elements, got %d", buf.Len())
	}
}

func TestRowView(t *testing.T) {
	rt := newTestRuntime(t, 3, 4)
	buf, err := rt.GetWritableBuffer("DATA")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < buf.Len(); i++ {
		buf.SetFromDouble(i, float64(i))
	}
	row1, err := rt.Row("DATA", 1)
	if err != nil {
		t.Fatal(err)
	}
	if row1.Len() != 4 {
		t.Fatalf("expected row length 4, got %d", row1.Len())
	}
	if row1.At(0) != 4 {
		t.Fatalf("expected row 1 to start at element 4, got %v", row1.At(0))
	}
}

func TestAxisStep(t *testing.T) {
	rt := New()
	rt.SetPrimaryAxis(10, 20, 6)
	if got := rt.PrimaryAxis().Step(); got != 2 {
		t.Fatalf("expected step 2, got %v", got)
	}
}

// stubStage is a minimal Stage used to exercise Driver's control flow.
type stubStage struct {
	rt          *Runtime
	groups      int
	processed   int
	finishAfter int
	abortAfter  int
	cleanedUp   bool
}

func (s *stubStage) Init(stageID, config string) error { return nil }

func (s *stubStage) Process(stageID string) error {
	s.processed++
	if s.abortAfter > 0 && s.processed >= s.abortAfter {
		return errAbort("stub abort")
	}
	if s.rt.JobFinished() {
		s.cleanedUp = true
		return nil
	}
	if s.finishAfter > 0 && s.processed >= s.finishAfter {
		s.rt.SetJobFinished()
	}
	return nil
}

func TestDriverStopsAfterFinished(t *testing.T) {
	rt := New()
	src := &stubStage{rt: rt, finishAfter: 3}
	sink := &stubStage{rt: rt}
	d := NewDriver(rt, []StageEntry{
		{ID: "src", Stage: src},
		{ID: "sink", Stage: sink},
	})
	if err := d.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.processed != 3 {
		t.Fatalf("expected source processed 3 times, got %d", src.processed)
	}
	// sink must have been called once more than the point finished flipped,
	// and that final call must observe JobFinished()==true.
	if sink.processed != 3 || !sink.cleanedUp {
		t.Fatalf("expected sink to get exactly one cleanup call, got processed=%d cleanedUp=%v", sink.processed, sink.cleanedUp)
	}
}

func TestDriverStopsImmediatelyOnAbort(t *testing.T) {
	rt := New()
	src := &stubStage{rt: rt, abortAfter: 2}
	sink := &stubStage{rt: rt}
	d := NewDriver(rt, []StageEntry{
		{ID: "src", Stage: src},
		{ID: "sink", Stage: sink},
	})
	if err := d.Run(); err == nil {
		t.Fatal("expected abort error")
	}
	if !rt.Aborted() {
		t.Fatal("expected runtime to be marked aborted")
	}
	// sink must never see the pass in which src aborted.
	if sink.processed != 1 {
		t.Fatalf("expected sink to have processed exactly 1 group before abort, got %d", sink.processed)
	}
}
