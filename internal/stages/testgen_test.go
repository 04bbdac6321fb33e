// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"testing"

	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

const testgenExpectConfig = `
primarykey: {name: INLINE, first: 10, last: 12, step: 1}
secondarykey: {name: CROSSLINE, first: 20, last: 21, step: 1}
sampleaxis: {min: 0, max: 3, count: 4}
seed: 7
attributes:
  - {name: DATA, type: R32, length: 4, pattern: sequence}
  - {name: ATTR, type: R32, length: 1, pattern: random}
`

func TestTestGenAndTestExpectAgreeOnIdentityPipeline(t *testing.T) {
	rt := runtime.New()
	gen := NewTestGen(rt)
	if err := gen.Init("testgen", testgenExpectConfig); err != nil {
		t.Fatal(err)
	}
	exp := NewTestExpect(rt)
	if err := exp.Init("testexpect", testgenExpectConfig); err != nil {
		t.Fatal(err)
	}

	d := runtime.NewDriver(rt, []runtime.StageEntry{
		{ID: "testgen", Stage: passthroughStage{gen}},
		{ID: "testexpect", Stage: passthroughStage{exp}},
	})
	if err := d.Run(); err != nil {
		t.Fatalf("driver run: %v", err)
	}
}

func TestTestExpectCatchesMismatch(t *testing.T) {
	rt := runtime.New()
	gen := NewTestGen(rt)
	if err := gen.Init("testgen", testgenExpectConfig); err != nil {
		t.Fatal(err)
	}
	exp := NewTestExpect(rt)
	// Different seed: the "random" attribute no longer matches.
	mismatchConfig := `
primarykey: {name: INLINE, first: 10, last: 12, step: 1}
secondarykey: {name: CROSSLINE, first: 20, last: 21, step: 1}
sampleaxis: {min: 0, max: 3, count: 4}
seed: 99
attributes:
  - {name: DATA, type: R32, length: 4, pattern: sequence}
  - {name: ATTR, type: R32, length: 1, pattern: random}
`
	if err := exp.Init("testexpect", mismatchConfig); err != nil {
		t.Fatal(err)
	}

	d := runtime.NewDriver(rt, []runtime.StageEntry{
		{ID: "testgen", Stage: passthroughStage{gen}},
		{ID: "testexpect", Stage: passthroughStage{exp}},
	})
	if err := d.Run(); err == nil {
		t.Fatal("expected driver run to fail on mismatched seed")
	}
}

// passthroughStage wraps a stage already Init'd above so the driver's
// own Init pass (which would otherwise re-register every attribute and
// fail with "already exists") is a no-op.
type passthroughStage struct {
	s interface {
		Process(stageID string) error
	}
}

func (p passthroughStage) Init(stageID, config string) error { return nil }
func (p passthroughStage) Process(stageID string) error      { return p.s.Process(stageID) }
