// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"fmt"
	"testing"

	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// TestOutputWriterEmitsExactlyOneBrickPerPrimaryChunk mirrors the worked
// example: a primary range of 4*brickSize, secondary and sample axes of
// brickSize each, must yield exactly 4 committed bricks with no duplicates.
func TestOutputWriterEmitsExactlyOneBrickPerPrimaryChunk(t *testing.T) {
	const brickSize = 2
	const primaryCount = 4 * brickSize
	const secondaryCount = brickSize
	const sampleCount = brickSize

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
	rt.SetPrimaryAxis(0, primaryCount-1, primaryCount)
	rt.SetSecondaryAxis(0, secondaryCount-1, secondaryCount)
	rt.SetSampleAxis(0, sampleCount-1, sampleCount)
	if err := rt.SetGroupSize(secondaryCount); err != nil {
		t.Fatal(err)
	}

	out := NewOutput(rt)
	cfg := fmt.Sprintf("url: %s\nbricksize: %d\nchannels: [DATA]\n", t.TempDir(), brickSize)
	if err := out.Init("output", cfg); err != nil {
		t.Fatal(err)
	}

	for p := 0; p < primaryCount; p++ {
		inl, err := rt.GetWritableBuffer("INLINE")
		if err != nil {
			t.Fatal(err)
		}
		data, err := rt.GetWritableBuffer("DATA")
		if err != nil {
			t.Fatal(err)
		}
		for r := 0; r < secondaryCount; r++ {
			inl.SetFromDouble(r, float64(p))
			for s := 0; s < sampleCount; s++ {
				data.SetFromDouble(r*sampleCount+s, float64(p*100+r*10+s))
			}
		}
		if p == primaryCount-1 {
			rt.SetJobFinished()
		}
		if err := out.Process("output"); err != nil {
			t.Fatal(err)
		}
	}
	// Calling Process again after finalize must be a harmless no-op: the
	// driver never does this, but the stage should tolerate it.
	if err := out.Process("output"); err != nil {
		t.Fatal(err)
	}

	if len(out.channels) != 1 {
		t.Fatalf("expected exactly one channel, got %d", len(out.channels))
	}
	accessor := out.channels[0].accessor
	if got := accessor.ChunkCount(); got != 4 {
		t.Fatalf("expected 4 bricks committed, got %d", got)
	}
	for i := 0; i < accessor.ChunkCount(); i++ {
		if accessor.ChunkVolumeDataHash(i) == 0 {
			t.Fatalf("brick %d was never committed", i)
		}
	}
}
