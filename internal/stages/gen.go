// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stages holds the source, transform, and sink stage
// implementations that plug into internal/runtime's Driver.
package stages

import (
	"fmt"
	"math"

	"github.com/seismicpipe/seismicpipe/internal/config"
	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// axisSpec is the common {name,first,last,step} shape shared by
// primarykey and secondarykey config blocks.
type axisSpec struct {
	name  string
	first int
	last  int
	step  int
}

func parseAxisSpec(c *config.Config, def axisSpec) axisSpec {
	return axisSpec{
		name:  c.GetString("name", def.name),
		first: c.GetInt("first", def.first),
		last:  c.GetInt("last", def.last),
		step:  c.GetInt("step", def.step),
	}
}

func (a axisSpec) count() int {
	if a.step == 0 {
		return 1
	}
	return (a.last-a.first)/a.step + 1
}

// Gen is the synthetic source stage: it materialises a regular primary ×
// secondary × sample grid and fills the trace amplitude attribute from a
// configured wavelet (Ricker or Ormsby), gated at a fixed delay.
type Gen struct {
	rt *runtime.Runtime

	primary   axisSpec
	secondary axisSpec

	maxTime    float64 // ms
	sInterval  float64 // ms
	dataName   string
	sampleLen  int

	wavelet func(tMs float64) float64

	cursor int // index into primary axis, 0-based
}

func NewGen(rt *runtime.Runtime) *Gen { return &Gen{rt: rt} }

func (g *Gen) Init(stageID, raw string) error {
	c, err := config.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("gen: %w", err)
	}

	g.maxTime = c.GetFloat("maxtime", 1000)
	g.sInterval = c.GetFloat("sinterval", 4)
	g.dataName = c.GetString("dataname", "DATA")
	g.sampleLen = int(g.maxTime/g.sInterval) + 1

	g.primary = parseAxisSpec(c.Sub("primarykey"), axisSpec{name: "INLINE", first: 0, last: 9, step: 1})
	g.secondary = parseAxisSpec(c.Sub("secondarykey"), axisSpec{name: "CROSSLINE", first: 0, last: 9, step: 1})

	switch {
	case c.Has("signal.ricker"):
		rc := c.Sub("signal.ricker")
		g.wavelet = rickerWavelet(rc.GetFloat("pfreq", 25), rc.GetFloat("gate", g.maxTime/2))
	case c.Has("signal.ormsby"):
		oc := c.Sub("signal.ormsby")
		g.wavelet = ormsbyWavelet(
			oc.GetFloat("f1", 5), oc.GetFloat("f2", 10), oc.GetFloat("f3", 40), oc.GetFloat("f4", 50),
			oc.GetFloat("gate", g.maxTime/2),
		)
	default:
		g.wavelet = rickerWavelet(25, g.maxTime/2)
	}

	if err := g.rt.AddAttribute(g.primary.name, format.Int32, 1); err != nil {
		return err
	}
	if err := g.rt.AddAttribute(g.secondary.name, format.Int32, 1); err != nil {
		return err
	}
	if err := g.rt.AddAttribute(g.dataName, format.Float32, g.sampleLen); err != nil {
		return err
	}
	if err := g.rt.SetPrimaryKeyName(g.primary.name); err != nil {
		return err
	}
	if err := g.rt.SetSecondaryKeyName(g.secondary.name); err != nil {
		return err
	}
	if err := g.rt.SetVolumeDataName(g.dataName); err != nil {
		return err
	}

	g.rt.SetPrimaryAxis(float64(g.primary.first), float64(g.primary.last), g.primary.count())
	g.rt.SetSecondaryAxis(float64(g.secondary.first), float64(g.secondary.last), g.secondary.count())
	g.rt.SetSampleAxis(0, g.maxTime, g.sampleLen)

	if err := g.rt.SetGroupSize(g.secondary.count()); err != nil {
		return err
	}

	g.rt.SetModuleStruct(stageID, g)
	return nil
}

func (g *Gen) Process(stageID string) error {
	if g.rt.JobFinished() {
		return nil
	}

	primaryBuf, err := g.rt.GetWritableBuffer(g.primary.name)
	if err != nil {
		return err
	}
	secondaryBuf, err := g.rt.GetWritableBuffer(g.secondary.name)
	if err != nil {
		return err
	}
	dataBuf, err := g.rt.GetWritableBuffer(g.dataName)
	if err != nil {
		return err
	}

	inlineValue := g.primary.first + g.cursor*g.primary.step
	for r := 0; r < g.secondary.count(); r++ {
		primaryBuf.SetFromDouble(r, float64(inlineValue))
		secondaryBuf.SetFromDouble(r, float64(g.secondary.first+r*g.secondary.step))
		for s := 0; s < g.sampleLen; s++ {
			t := float64(s) * g.sInterval
			dataBuf.SetFromDouble(r*g.sampleLen+s, g.wavelet(t))
		}
	}

	g.cursor++
	if g.cursor >= g.primary.count() {
		g.rt.SetJobFinished()
	}
	return nil
}

// rickerWavelet returns a zero-phase Ricker ("Mexican hat") wavelet of peak
// frequency pfreq Hz, delayed by gate milliseconds.
func rickerWavelet(pfreq, gate float64) func(float64) float64 {
	return func(tMs float64) float64 {
		t := (tMs - gate) / 1000
		a := math.Pi * pfreq * t
		a2 := a * a
		return (1 - 2*a2) * math.Exp(-a2)
	}
}

// ormsbyWavelet returns a trapezoidal band-pass Ormsby wavelet with corner
// frequencies f1<f2<f3<f4 Hz, delayed by gate milliseconds.
func ormsbyWavelet(f1, f2, f3, f4, gate float64) func(float64) float64 {
	sinc2 := func(f, t float64) float64 {
		x := math.Pi * f * t
		if x == 0 {
			return 1
		}
		s := math.Sin(x) / x
		return s * s
	}
	c4 := (math.Pi * f4 * f4) / (f4 - f3)
	c3 := (math.Pi * f3 * f3) / (f4 - f3)
	c2 := (math.Pi * f2 * f2) / (f2 - f1)
	c1 := (math.Pi * f1 * f1) / (f2 - f1)
	return func(tMs float64) float64 {
		t := (tMs - gate) / 1000
		return (c4*sinc2(f4, t) - c3*sinc2(f3, t)) - (c2*sinc2(f2, t) - c1*sinc2(f1, t))
	}
}
