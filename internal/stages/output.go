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
	"github.com/seismicpipe/seismicpipe/internal/runtime"
	"github.com/seismicpipe/seismicpipe/internal/util"
)

// Output is the bricked-volume writer sink stage. It buffers a rolling
// band of 2*brickSize primary-key slices per channel (amplitude plus
// every configured attribute) and dispatches each brick to the volume
// store exactly once, as soon as the sliding window fully covers it.
type Output struct {
	rt *runtime.Runtime

	layout    brickstore.Layout
	brickSize int

	primaryCount   int
	secondaryCount int

	channels  []*channelWindow
	finalized bool

	metrics BrickMetricsSink
}

// BrickMetricsSink is the optional instrumentation seam Output reports
// through; internal/telemetry.Metrics satisfies it without this package
// importing prometheus directly.
type BrickMetricsSink interface {
	BrickEmitted()
	SetWindowValid(n int)
}

// SetMetrics wires an optional metrics sink. Job wiring calls this after
// constructing the stage, if instrumentation is enabled.
func (o *Output) SetMetrics(m BrickMetricsSink) { o.metrics = m }

// channelWindow is one channel's sliding window plus the bookkeeping the
// writer needs to gather and emit bricks from it.
type channelWindow struct {
	name        string
	perTraceLen int // elements per (primary,secondary) cell: sample count for the trace channel, 1 for a scalar attribute
	accessor    brickstore.PageAccessor

	slots      [][]float64 // 2*brickSize slots, each secondaryCount*perTraceLen elements
	startIdx   int
	validCount int

	coordIndex map[[3]int]int
}

func NewOutput(rt *runtime.Runtime) *Output { return &Output{rt: rt} }

func (o *Output) Init(stageID, raw string) error {
	c, err := config.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}

	url := c.GetString("url", "")
	if url == "" {
		return fmt.Errorf("output: url is required")
	}
	o.brickSize = c.GetInt("bricksize", 64)
	if o.brickSize <= 0 {
		return fmt.Errorf("output: bricksize must be positive")
	}

	layout, err := brickstore.OpenURLForWrite(url, o.brickSize)
	if err != nil {
		return fmt.Errorf("output: open %s: %w", url, err)
	}
	o.layout = layout

	o.primaryCount = o.rt.PrimaryAxis().Count
	o.secondaryCount = o.rt.SecondaryAxis().Count

	names := c.GetStringSlice("channels")
	if len(names) == 0 {
		names = defaultChannelNames(o.rt)
	}

	for _, name := range names {
		name = strings.ToUpper(name)
		d, err := o.rt.GetAttributeInfo(name)
		if err != nil {
			return fmt.Errorf("output: channel %q: %w", name, err)
		}
		accessor, err := o.layout.Channel(name)
		if err != nil {
			return fmt.Errorf("output: channel %q: %w", name, err)
		}
		cw := &channelWindow{
			name:        name,
			perTraceLen: d.Length,
			accessor:    accessor,
			slots:       make([][]float64, 2*o.brickSize),
			coordIndex:  map[[3]int]int{},
		}
		o.channels = append(o.channels, cw)
	}

	o.rt.SetModuleStruct(stageID, o)
	return nil
}

// defaultChannelNames returns every attribute except the two key
// attributes, which are implied by a chunk's coordinate rather than
// stored as their own channel.
func defaultChannelNames(rt *runtime.Runtime) []string {
	keyNames := []string{rt.PrimaryKeyName(), rt.SecondaryKeyName()}
	var names []string
	for _, n := range rt.AttributeNames() {
		if util.Contains(keyNames, n) {
			continue
		}
		names = append(names, n)
	}
	return names
}

// Process fills the window with the current group's data, emits and
// slides whenever a channel's window is full, and — since the driver
// calls every stage exactly once per pass, including the pass that both
// fills and finishes the last group — finalizes the store inline in that
// same call rather than waiting for a pass that will never come.
func (o *Output) Process(stageID string) error {
	if o.finalized {
		return nil
	}

	for _, cw := range o.channels {
		if err := o.fill(cw); err != nil {
			return err
		}
	}
	if o.metrics != nil && len(o.channels) > 0 {
		o.metrics.SetWindowValid(o.channels[0].validCount)
	}
	if len(o.channels) > 0 && o.channels[0].validCount == 2*o.brickSize {
		for _, cw := range o.channels {
			if err := o.emitReady(cw); err != nil {
				return err
			}
			o.slide(cw)
		}
	}

	if o.rt.JobFinished() {
		if err := o.finalize(); err != nil {
			return err
		}
		o.finalized = true
	}
	return nil
}

// fill appends the current group's data for channel cw into the window
// at slot validCount and increments validCount.
func (o *Output) fill(cw *channelWindow) error {
	row := make([]float64, o.secondaryCount*cw.perTraceLen)
	for r := 0; r < o.secondaryCount; r++ {
		buf, err := o.rt.Row(cw.name, r)
		if err != nil {
			return err
		}
		for i := 0; i < cw.perTraceLen; i++ {
			row[r*cw.perTraceLen+i] = buf.At(i)
		}
	}
	cw.slots[cw.validCount] = row
	cw.validCount++
	return nil
}

func (o *Output) slide(cw *channelWindow) {
	if cw.validCount != 2*o.brickSize {
		return
	}
	copy(cw.slots[0:o.brickSize], cw.slots[o.brickSize:2*o.brickSize])
	for i := o.brickSize; i < 2*o.brickSize; i++ {
		cw.slots[i] = nil
	}
	cw.startIdx += o.brickSize
	cw.validCount = o.brickSize
}

func (o *Output) sampleChunkCount(perTraceLen int) int {
	n := (perTraceLen + o.brickSize - 1) / o.brickSize
	if n < 1 {
		n = 1
	}
	return n
}

// emitReady writes, exactly once, every brick whose full primary range
// currently lies inside the window [startIdx, startIdx+validCount).
func (o *Output) emitReady(cw *channelWindow) error {
	bs := o.brickSize
	primaryChunks := (o.primaryCount + bs - 1) / bs
	secondaryChunks := (o.secondaryCount + bs - 1) / bs
	sampleChunks := o.sampleChunkCount(cw.perTraceLen)

	for pB := 0; pB < primaryChunks; pB++ {
		lo := pB * bs
		hi := lo + bs
		if hi > o.primaryCount {
			hi = o.primaryCount
		}
		if lo < cw.startIdx || hi > cw.startIdx+cw.validCount {
			continue // brick not fully covered by the window yet
		}
		for sB := 0; sB < secondaryChunks; sB++ {
			for scB := 0; scB < sampleChunks; scB++ {
				if err := o.emitBrick(cw, [3]int{pB, sB, scB}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// finalize emits every brick the final window covers (the primary range
// need not reach a full brickSize at the tail of the volume) and commits
// the store.
func (o *Output) finalize() error {
	for _, cw := range o.channels {
		if err := o.emitReady(cw); err != nil {
			return err
		}
	}
	return o.layout.Commit()
}

func (o *Output) emitBrick(cw *channelWindow, coord [3]int) error {
	idx, ok := cw.coordIndex[coord]
	if ok && cw.accessor.ChunkVolumeDataHash(idx) != 0 {
		return nil // already emitted
	}

	page, err := cw.accessor.CreatePage(coord)
	if err != nil {
		return fmt.Errorf("output: channel %s: create page %v: %w", cw.name, coord, err)
	}
	if !ok {
		idx = cw.accessor.ChunkCount() - 1
		cw.coordIndex[coord] = idx
	}

	bs := o.brickSize
	needed := bs * bs * bs * 8
	if len(page.Buffer) < needed {
		grown := make([]byte, needed)
		copy(grown, page.Buffer)
		page.Buffer = grown
	}

	pLo, sLo, smLo := coord[0]*bs, coord[1]*bs, coord[2]*bs
	pHi := util.Min(pLo+bs, o.primaryCount)
	sHi := util.Min(sLo+bs, o.secondaryCount)
	smHi := util.Min(smLo+bs, cw.perTraceLen)

	for gp := pLo; gp < pHi; gp++ {
		slot := gp - cw.startIdx
		if slot < 0 || slot >= len(cw.slots) || cw.slots[slot] == nil {
			continue
		}
		rowData := cw.slots[slot]
		lp := gp - pLo
		for gs := sLo; gs < sHi; gs++ {
			ls := gs - sLo
			rowOffset := gs * cw.perTraceLen
			for gsmp := smLo; gsmp < smHi; gsmp++ {
				lsmp := gsmp - smLo
				v := rowData[rowOffset+gsmp]
				elem := lsmp*page.Pitch[0] + ls*page.Pitch[1] + lp*page.Pitch[2]
				writeFloat64(page.Buffer, elem, v)
			}
		}
	}

	if err := cw.accessor.Commit(idx); err != nil {
		return fmt.Errorf("output: channel %s: commit %v: %w", cw.name, coord, err)
	}
	if o.metrics != nil {
		o.metrics.BrickEmitted()
	}
	return nil
}

func writeFloat64(buf []byte, elem int, v float64) {
	binary.LittleEndian.PutUint64(buf[elem*8:elem*8+8], math.Float64bits(v))
}
