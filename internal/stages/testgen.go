// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"fmt"
	"strings"

	"github.com/seismicpipe/seismicpipe/internal/config"
	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// TestGen is a source stage for end-to-end scenario tests: instead of a
// wavelet, it fills every configured attribute from patternValue, so
// that a TestExpect stage placed downstream of an identity-preserving
// transform chain can regenerate and bitwise-compare the same values
// without any shared state between the two stages.
type TestGen struct {
	rt *runtime.Runtime

	primary, secondary axisSpec
	seed               int64
	attrs              []testAttrSpec

	cursor int
}

func NewTestGen(rt *runtime.Runtime) *TestGen { return &TestGen{rt: rt} }

func (g *TestGen) Init(stageID, raw string) error {
	c, err := config.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("testgen: %w", err)
	}

	g.primary = parseAxisSpec(c.Sub("primarykey"), axisSpec{name: "INLINE", first: 0, last: 0, step: 1})
	g.secondary = parseAxisSpec(c.Sub("secondarykey"), axisSpec{name: "CROSSLINE", first: 0, last: 0, step: 1})
	g.seed = int64(c.GetInt("seed", 1))

	dataName := strings.ToUpper(c.GetString("dataname", "DATA"))

	for _, ac := range c.GetSlice("attributes") {
		name := strings.ToUpper(ac.GetString("name", ""))
		if name == "" {
			return fmt.Errorf("testgen: attribute entry missing name")
		}
		length := ac.GetInt("length", 1)
		pattern := ac.GetString("pattern", "sequence")
		f, ok := format.ParseElementFormat(ac.GetString("type", "R32"))
		if !ok {
			return fmt.Errorf("testgen: attribute %q: unknown type", name)
		}
		if err := g.rt.AddAttribute(name, f, length); err != nil {
			return fmt.Errorf("testgen: %w", err)
		}
		g.attrs = append(g.attrs, testAttrSpec{name: name, length: length, pattern: pattern})
	}

	if err := g.rt.AddAttribute(g.primary.name, format.Int32, 1); err != nil {
		return fmt.Errorf("testgen: %w", err)
	}
	if err := g.rt.AddAttribute(g.secondary.name, format.Int32, 1); err != nil {
		return fmt.Errorf("testgen: %w", err)
	}
	if err := g.rt.SetPrimaryKeyName(g.primary.name); err != nil {
		return err
	}
	if err := g.rt.SetSecondaryKeyName(g.secondary.name); err != nil {
		return err
	}
	if err := g.rt.SetVolumeDataName(dataName); err != nil {
		return err
	}
	g.rt.SetPrimaryAxis(float64(g.primary.first), float64(g.primary.last), g.primary.count())
	g.rt.SetSecondaryAxis(float64(g.secondary.first), float64(g.secondary.last), g.secondary.count())
	sc := c.Sub("sampleaxis")
	sampleCount := sc.GetInt("count", 1)
	g.rt.SetSampleAxis(sc.GetFloat("min", 0), sc.GetFloat("max", float64(sampleCount-1)), sampleCount)
	if err := g.rt.SetGroupSize(g.secondary.count()); err != nil {
		return err
	}

	g.rt.SetModuleStruct(stageID, g)
	return nil
}

func (g *TestGen) Process(stageID string) error {
	if g.cursor >= g.primary.count() {
		return nil
	}

	pbuf, err := g.rt.GetWritableBuffer(g.primary.name)
	if err != nil {
		return err
	}
	sbuf, err := g.rt.GetWritableBuffer(g.secondary.name)
	if err != nil {
		return err
	}

	for r := 0; r < g.secondary.count(); r++ {
		pbuf.SetFromDouble(r, float64(g.primary.first+g.cursor*g.primary.step))
		sbuf.SetFromDouble(r, float64(g.secondary.first+r*g.secondary.step))

		for _, a := range g.attrs {
			dst, err := g.rt.Row(a.name, r)
			if err != nil {
				return err
			}
			for i := 0; i < a.length; i++ {
				dst.SetFromDouble(i, patternValue(a.pattern, g.seed, g.cursor, r, i))
			}
		}
	}

	g.cursor++
	if g.cursor >= g.primary.count() {
		g.rt.SetJobFinished()
	}
	return nil
}
