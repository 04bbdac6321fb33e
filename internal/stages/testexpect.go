// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"fmt"
	"math"
	"strings"

	"github.com/seismicpipe/seismicpipe/internal/config"
	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// TestExpect is the matching sink for TestGen: it regenerates the same
// patternValue sequence independently (no shared state with TestGen,
// only the same config) and bitwise-compares it against the buffers
// currently in the runtime, one group at a time. A mismatch fails the
// job by returning an error, which the driver turns into an abort — it
// never calls SetJobAborted itself, since the driver already does that
// for any error a stage returns.
//
// Placed directly downstream of TestGen with no transform in between,
// this checks the writer/reader round trip. Placed downstream of an
// identity-preserving transform (attrcalc update=X, scale factor=1.0,
// mute with threshold outside range and window 0), it checks that the
// transform left the buffers untouched, per spec.md's round-trip laws.
type TestExpect struct {
	rt *runtime.Runtime

	primary, secondary axisSpec
	seed               int64
	attrs              []testAttrSpec
	tolerance          float64

	cursor int
}

func NewTestExpect(rt *runtime.Runtime) *TestExpect { return &TestExpect{rt: rt} }

func (e *TestExpect) Init(stageID, raw string) error {
	c, err := config.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("testexpect: %w", err)
	}

	e.primary = parseAxisSpec(c.Sub("primarykey"), axisSpec{name: "INLINE", first: 0, last: 0, step: 1})
	e.secondary = parseAxisSpec(c.Sub("secondarykey"), axisSpec{name: "CROSSLINE", first: 0, last: 0, step: 1})
	e.seed = int64(c.GetInt("seed", 1))
	e.tolerance = c.GetFloat("tolerance", 0)

	for _, ac := range c.GetSlice("attributes") {
		name := strings.ToUpper(ac.GetString("name", ""))
		if name == "" {
			return fmt.Errorf("testexpect: attribute entry missing name")
		}
		e.attrs = append(e.attrs, testAttrSpec{
			name:    name,
			length:  ac.GetInt("length", 1),
			pattern: ac.GetString("pattern", "sequence"),
		})
	}

	e.rt.SetModuleStruct(stageID, e)
	return nil
}

func (e *TestExpect) Process(stageID string) error {
	if e.cursor >= e.primary.count() {
		return nil
	}

	for r := 0; r < e.secondary.count(); r++ {
		for _, a := range e.attrs {
			buf, err := e.rt.Row(a.name, r)
			if err != nil {
				return fmt.Errorf("testexpect: %w", err)
			}
			// Narrow each expected value through the attribute's storage
			// format, exactly as TestGen's SetFromDouble did on write.
			stored := format.NewBuffer(buf.Format, 1)
			for i := 0; i < a.length; i++ {
				stored.SetFromDouble(0, patternValue(a.pattern, e.seed, e.cursor, r, i))
				want := stored.At(0)
				got := buf.At(i)
				if math.Abs(got-want) > e.tolerance {
					return fmt.Errorf("testexpect: attribute %s group %d row %d sample %d: got %v, want %v",
						a.name, e.cursor, r, i, got, want)
				}
			}
		}
	}

	e.cursor++
	return nil
}
