// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"fmt"
	"math"

	"github.com/seismicpipe/seismicpipe/internal/config"
	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

type scaleMethod int

const (
	scaleFactor scaleMethod = iota
	scaleAGC
	scaleDiverge
)

// Scale implements the trace-scaling transform stage: a constant
// multiplicative factor, automatic gain control, or spherical-divergence
// correction.
type Scale struct {
	rt *runtime.Runtime

	method scaleMethod

	factor float64

	agcWindowMs float64

	divergeA float64
	divergeV float64
}

func NewScale(rt *runtime.Runtime) *Scale { return &Scale{rt: rt} }

func (s *Scale) Init(stageID, raw string) error {
	c, err := config.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("scale: %w", err)
	}

	switch {
	case c.Has("method.factor"):
		s.method = scaleFactor
		s.factor = c.Sub("method.factor").GetFloat("value", 1.0)
	case c.Has("method.agc"):
		s.method = scaleAGC
		s.agcWindowMs = c.Sub("method.agc").GetFloat("window_size", 0)
	case c.Has("method.diverge"):
		s.method = scaleDiverge
		dc := c.Sub("method.diverge")
		s.divergeA = dc.GetFloat("a", 1.0)
		s.divergeV = dc.GetFloat("v", 1.0)
	default:
		return fmt.Errorf("scale: exactly one of method.factor, method.agc, method.diverge is required")
	}

	s.rt.SetModuleStruct(stageID, s)
	return nil
}

func (s *Scale) Process(stageID string) error {
	// No JobFinished check: the driver calls every stage exactly once per
	// pass, including the pass that both fills and finishes the last
	// group, so skipping on JobFinished would silently drop that group.
	dataName := s.rt.VolumeDataName()
	sampleLen := s.rt.GetDataVectorLength()
	groupSize := s.rt.GetGroupSize()

	for r := 0; r < groupSize; r++ {
		trace, err := s.rt.Row(dataName, r)
		if err != nil {
			return err
		}
		switch s.method {
		case scaleFactor:
			s.applyFactor(trace)
		case scaleAGC:
			s.applyAGC(trace, sampleLen)
		case scaleDiverge:
			s.applyDiverge(trace, sampleLen)
		}
	}
	return nil
}

func (s *Scale) applyFactor(trace *format.Buffer) {
	n := trace.Len()
	factor := format.NewBuffer(format.Float64, n)
	format.Broadcast(factor, s.factor)
	_ = format.MultiplyInPlace(trace, factor)
}

// applyAGC normalises the local mean absolute amplitude (over a window
// centred on each sample) against the trace's overall mean absolute
// amplitude: output[i] = input[i] * globalMeanAbs / localMeanAbs[i]. A
// constant trace has localMeanAbs == globalMeanAbs everywhere, so the
// ratio is 1 and the trace passes through unchanged — the boundary
// behaviour the spec calls out.
func (s *Scale) applyAGC(trace *format.Buffer, sampleLen int) {
	axis := s.rt.SampleAxis()
	interval := axis.Step()
	if interval <= 0 {
		interval = 1
	}
	radius := int(math.Round(s.agcWindowMs / interval / 2))
	if radius < 1 {
		radius = 1
	}

	values := make([]float64, sampleLen)
	globalSum := 0.0
	for i := 0; i < sampleLen; i++ {
		values[i] = trace.At(i)
		globalSum += math.Abs(values[i])
	}
	globalMean := globalSum / float64(sampleLen)

	out := make([]float64, sampleLen)
	for i := 0; i < sampleLen; i++ {
		lo := i - radius
		if lo < 0 {
			lo = 0
		}
		hi := i + radius
		if hi >= sampleLen {
			hi = sampleLen - 1
		}
		sum, count := 0.0, 0
		for j := lo; j <= hi; j++ {
			sum += math.Abs(values[j])
			count++
		}
		localMean := sum / float64(count)
		if localMean == 0 {
			out[i] = values[i]
			continue
		}
		out[i] = values[i] * globalMean / localMean
	}
	for i, v := range out {
		trace.SetFromDouble(i, v)
	}
}

func (s *Scale) applyDiverge(trace *format.Buffer, sampleLen int) {
	axis := s.rt.SampleAxis()
	for i := 0; i < sampleLen; i++ {
		t := math.Abs(axis.ValueAt(i))
		g := math.Pow(t, s.divergeA) * s.divergeV
		trace.SetFromDouble(i, trace.At(i)*g)
	}
}
