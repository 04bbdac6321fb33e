// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/seismicpipe/seismicpipe/internal/brickstore"
	"github.com/seismicpipe/seismicpipe/internal/config"
	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// Input is the volumetric reader source stage: it reads a previously
// written bricked volume back in, one primary-key slice (group) at a
// time, through the same store interface the writer targets.
//
// sliceposition names three traversal orders in the worked examples
// (on_data_samples, on_secondary_key, on_primary_key); only
// on_primary_key composes with the rest of this pipeline, since every
// other stage assumes one group per primary-key step with the
// secondary axis as the group's row dimension. The other two values are
// accepted but read in the same order — they describe how an external
// viewer would slice the store for display, which this stage does not
// do.
type Input struct {
	rt *runtime.Runtime

	layout    brickstore.Layout
	brickSize int

	primary, secondary axisSpec
	sampleLen           int

	channels []*inputChannel
	cursor   int
}

type inputChannel struct {
	name        string
	perTraceLen int
	accessor    brickstore.PageAccessor
}

func NewInput(rt *runtime.Runtime) *Input { return &Input{rt: rt} }

func (in *Input) Init(stageID, raw string) error {
	c, err := config.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}

	url := c.GetString("url", "")
	if url == "" {
		return fmt.Errorf("input: url is required")
	}
	layout, err := brickstore.OpenURLForRead(url)
	if err != nil {
		return fmt.Errorf("input: open %s: %w", url, err)
	}
	in.layout = layout
	in.brickSize = layout.BrickSize()

	in.primary = parseAxisSpec(c.Sub("primarykey"), axisSpec{name: "INLINE", first: 0, last: 0, step: 1})
	in.secondary = parseAxisSpec(c.Sub("secondarykey"), axisSpec{name: "CROSSLINE", first: 0, last: 0, step: 1})
	sc := c.Sub("sampleaxis")
	sampleCount := sc.GetInt("count", 1)
	sampleMin := sc.GetFloat("min", 0)
	sampleMax := sc.GetFloat("max", float64(sampleCount-1))
	in.sampleLen = sampleCount

	dataName := strings.ToUpper(c.GetString("dataname", "DATA"))

	for _, cc := range c.GetSlice("channels") {
		name := strings.ToUpper(cc.GetString("name", ""))
		if name == "" {
			return fmt.Errorf("input: channel entry missing name")
		}
		length := cc.GetInt("length", 1)
		f, ok := format.ParseElementFormat(cc.GetString("type", "R32"))
		if !ok {
			return fmt.Errorf("input: channel %q: unknown type", name)
		}
		if err := in.rt.AddAttribute(name, f, length); err != nil {
			return fmt.Errorf("input: %w", err)
		}
		accessor, err := in.layout.Channel(name)
		if err != nil {
			return fmt.Errorf("input: channel %q: %w", name, err)
		}
		ic := &inputChannel{name: name, perTraceLen: length, accessor: accessor}
		in.channels = append(in.channels, ic)
	}

	if err := in.rt.AddAttribute(in.primary.name, format.Int32, 1); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := in.rt.AddAttribute(in.secondary.name, format.Int32, 1); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := in.rt.SetPrimaryKeyName(in.primary.name); err != nil {
		return err
	}
	if err := in.rt.SetSecondaryKeyName(in.secondary.name); err != nil {
		return err
	}
	if err := in.rt.SetVolumeDataName(dataName); err != nil {
		return err
	}
	in.rt.SetPrimaryAxis(float64(in.primary.first), float64(in.primary.last), in.primary.count())
	in.rt.SetSecondaryAxis(float64(in.secondary.first), float64(in.secondary.last), in.secondary.count())
	in.rt.SetSampleAxis(sampleMin, sampleMax, sampleCount)
	if err := in.rt.SetGroupSize(in.secondary.count()); err != nil {
		return err
	}

	in.rt.SetModuleStruct(stageID, in)
	return nil
}

func (in *Input) Process(stageID string) error {
	if in.cursor >= in.primary.count() {
		return nil
	}

	primaryValue := in.primary.first + in.cursor*in.primary.step
	pbuf, err := in.rt.GetWritableBuffer(in.primary.name)
	if err != nil {
		return err
	}
	sbuf, err := in.rt.GetWritableBuffer(in.secondary.name)
	if err != nil {
		return err
	}

	for r := 0; r < in.secondary.count(); r++ {
		secondaryValue := in.secondary.first + r*in.secondary.step
		pbuf.SetFromDouble(r, float64(primaryValue))
		sbuf.SetFromDouble(r, float64(secondaryValue))

		for _, ic := range in.channels {
			dst, err := in.rt.Row(ic.name, r)
			if err != nil {
				return err
			}
			if err := in.readTrace(ic, in.cursor, r, dst); err != nil {
				return err
			}
		}
	}

	in.cursor++
	if in.cursor >= in.primary.count() {
		in.rt.SetJobFinished()
	}
	return nil
}

// readTrace fills dst (length ic.perTraceLen) with the stored values for
// primary-row p, secondary-row s, by walking every sample chunk that
// contributes to it.
func (in *Input) readTrace(ic *inputChannel, p, s int, dst *format.Buffer) error {
	bs := in.brickSize
	pB, lp := p/bs, p%bs
	sB, ls := s/bs, s%bs
	sampleChunks := (ic.perTraceLen + bs - 1) / bs

	for scB := 0; scB < sampleChunks; scB++ {
		coord := [3]int{pB, sB, scB}
		page, err := ic.accessor.CreatePage(coord)
		if err != nil {
			return err
		}
		lo := scB * bs
		hi := lo + bs
		if hi > ic.perTraceLen {
			hi = ic.perTraceLen
		}
		for gsmp := lo; gsmp < hi; gsmp++ {
			lsmp := gsmp - lo
			elem := lsmp*page.Pitch[0] + ls*page.Pitch[1] + lp*page.Pitch[2]
			dst.SetFromDouble(gsmp, readFloat64(page.Buffer, elem))
		}
	}
	return nil
}

func readFloat64(buf []byte, elem int) float64 {
	off := elem * 8
	if off < 0 || off+8 > len(buf) {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
}
