// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"fmt"
	"math"

	"github.com/seismicpipe/seismicpipe/internal/config"
	"github.com/seismicpipe/seismicpipe/internal/expr"
	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// Mute implements the time-domain mute transform: a per-sample factor in
// [0,1] computed from a compare direction, a threshold, and a (possibly
// signed) tapering window, multiplied element-wise into the trace buffer.
//
// The threshold may be a fixed value or an expression over the job's
// current scalar attributes; when it is an expression it is re-evaluated
// per group row (the spec calls this "a scalar-per-group attribute" but
// does not say whether it can vary within a group — evaluating it per row
// is the more general reading and costs nothing extra since scalar
// attributes already carry one value per row).
type Mute struct {
	rt *runtime.Runtime

	direction  string // "<" or ">"
	thresholdV float64
	thresholdE *expr.Tree
	evalr      *expr.Evaluator
	window     int // signed
}

func NewMute(rt *runtime.Runtime) *Mute { return &Mute{rt: rt} }

func (m *Mute) Init(stageID, raw string) error {
	c, err := config.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("mute: %w", err)
	}

	m.direction = c.GetString("compare_direction", ">")
	if m.direction != "<" && m.direction != ">" {
		return fmt.Errorf("mute: compare_direction must be < or >, got %q", m.direction)
	}
	m.window = c.GetInt("tapering_window_size", 0)

	if c.Has("threshold.expr") {
		admissible := map[string]bool{}
		for _, name := range m.rt.AttributeNames() {
			admissible[name] = true
		}
		tree, errs := expr.Parse(c.GetString("threshold.expr", ""), admissible)
		if len(errs) > 0 {
			return fmt.Errorf("mute: threshold.expr: %v", errs)
		}
		m.thresholdE = tree
		m.evalr = expr.NewEvaluator(1, expr.CountNodes(tree.Root))
	} else {
		m.thresholdV = c.GetFloat("threshold.value", 0)
	}

	m.rt.SetModuleStruct(stageID, m)
	return nil
}

func (m *Mute) Process(stageID string) error {
	// No JobFinished check: the driver calls every stage exactly once per
	// pass, including the pass that both fills and finishes the last
	// group, so skipping on JobFinished would silently drop that group.
	dataName := m.rt.VolumeDataName()
	sampleAxis := m.rt.SampleAxis()
	sampleLen := m.rt.GetDataVectorLength()

	groupSize := m.rt.GetGroupSize()
	for r := 0; r < groupSize; r++ {
		th := m.thresholdV
		if m.thresholdE != nil {
			bindings := expr.Bindings{}
			for _, v := range m.thresholdE.Used {
				buf, err := m.rt.Row(v, r)
				if err != nil {
					return err
				}
				bindings[v] = buf
			}
			dst := format.NewBuffer(format.Float64, 1)
			if err := m.evalr.Eval(m.thresholdE, bindings, dst); err != nil {
				return fmt.Errorf("mute: threshold.expr: %w", err)
			}
			th = dst.At(0)
		}

		trace, err := m.rt.Row(dataName, r)
		if err != nil {
			return err
		}
		factor := format.NewBuffer(format.Float64, sampleLen)
		for s := 0; s < sampleLen; s++ {
			t := sampleAxis.ValueAt(s)
			factor.SetFromDouble(s, muteFactor(m.direction, th, float64(m.window), t))
		}
		if err := format.MultiplyInPlace(trace, factor); err != nil {
			return fmt.Errorf("mute: %w", err)
		}
	}
	return nil
}

// muteFactor computes the [0,1] ramp factor at axis value t given a
// compare direction, threshold th, and signed tapering window w. A
// positive w tapers on the outer side of the threshold (further into the
// muted region); a negative w tapers on the inner side (before the
// threshold, within the kept region). w == 0 is a hard step.
func muteFactor(direction string, th, w, t float64) float64 {
	absW := math.Abs(w)

	// Normalise to the ">" case by mirroring; "<" is the same shape with
	// the kept/muted sides swapped.
	if direction == "<" {
		return muteFactor(">", -th, w, -t)
	}

	var lo, hi float64 // factor ramps from 1 at lo to 0 at hi
	if w >= 0 {
		lo, hi = th, th+absW
	} else {
		lo, hi = th-absW, th
	}
	switch {
	case t <= lo:
		return 1
	case t >= hi:
		return 0
	case hi == lo:
		return 0
	default:
		return 1 - (t-lo)/(hi-lo)
	}
}
