// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runtime

import (
	"fmt"

	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/logging"
)

const (
	axisPrimary = iota
	axisSecondary
	axisSample
)

// Stage is the contract every pipeline stage implements. init is called
// exactly once before any process call; process is called repeatedly,
// once per group, until the job is finished (one final call is still
// delivered so the stage can release its state) or aborted (no further
// calls are delivered to any stage at all).
type Stage interface {
	Init(stageID string, config string) error
	Process(stageID string) error
}

// Runtime is the process-wide dataflow container described by the
// specification: it owns the attribute schema, the per-attribute buffers,
// the axis descriptors, the group size, job state, and the per-stage
// opaque-state slot. It is not safe for concurrent mutation by design: the
// pipeline driver runs exactly one stage's init/process at a time, and
// every stage transition is a synchronisation point (see spec.md §5).
type Runtime struct {
	order   []string // attribute names in insertion order
	attrs   map[string]*AttributeDescriptor
	buffers map[string]*format.Buffer

	axes [3]AxisDescriptor

	primaryKeyName   string
	secondaryKeyName string
	volumeDataName   string

	groupSize int

	stageState map[string]any

	finished     bool
	aborted      bool
	abortMessage string
}

// New returns an empty Runtime ready for a source stage to populate.
func New() *Runtime {
	return &Runtime{
		attrs:      map[string]*AttributeDescriptor{},
		buffers:    map[string]*format.Buffer{},
		stageState: map[string]any{},
	}
}

// AddAttribute registers a new attribute. name is case-folded. Adding a
// name that already exists fails the stage (invariant: attribute names in
// a job are unique). If groupSize has already been set, the attribute's
// buffer is allocated immediately; otherwise it is allocated the first
// time SetGroupSize is called.
func (rt *Runtime) AddAttribute(name string, f format.ElementFormat, length int) error {
	name = UpperName(name)
	if length <= 0 {
		return fmt.Errorf("runtime: AddAttribute %q: length must be positive, got %d", name, length)
	}
	if _, exists := rt.attrs[name]; exists {
		return fmt.Errorf("runtime: AddAttribute %q: attribute already exists", name)
	}
	d := &AttributeDescriptor{Name: name, Format: f, Length: length}
	rt.attrs[name] = d
	rt.order = append(rt.order, name)
	if rt.groupSize > 0 {
		rt.buffers[name] = format.NewBuffer(f, length*rt.groupSize)
	}
	return nil
}

// RemoveAttribute deletes an attribute and its buffer; used by attrcalc's
// `remove` action. Fails if the attribute does not exist.
func (rt *Runtime) RemoveAttribute(name string) error {
	name = UpperName(name)
	if _, exists := rt.attrs[name]; !exists {
		return fmt.Errorf("runtime: RemoveAttribute %q: not found", name)
	}
	delete(rt.attrs, name)
	delete(rt.buffers, name)
	for i, n := range rt.order {
		if n == name {
			rt.order = append(rt.order[:i], rt.order[i+1:]...)
			break
		}
	}
	return nil
}

func (rt *Runtime) SetAttributeUnit(name, unit string) error {
	d, err := rt.descriptor(name)
	if err != nil {
		return err
	}
	d.Unit = unit
	return nil
}

func (rt *Runtime) SetAttributeValueRange(name string, min, max float64) error {
	d, err := rt.descriptor(name)
	if err != nil {
		return err
	}
	d.ValueMin = min
	d.ValueMax = max
	return nil
}

func (rt *Runtime) descriptor(name string) (*AttributeDescriptor, error) {
	name = UpperName(name)
	d, ok := rt.attrs[name]
	if !ok {
		return nil, fmt.Errorf("runtime: attribute %q not found", name)
	}
	return d, nil
}

// HasAttribute reports whether name (case-folded) is currently registered.
func (rt *Runtime) HasAttribute(name string) bool {
	_, ok := rt.attrs[UpperName(name)]
	return ok
}

func (rt *Runtime) SetPrimaryKeyName(name string) error   { return rt.setKeyName(&rt.primaryKeyName, name) }
func (rt *Runtime) SetSecondaryKeyName(name string) error { return rt.setKeyName(&rt.secondaryKeyName, name) }

func (rt *Runtime) setKeyName(slot *string, name string) error {
	d, err := rt.descriptor(name)
	if err != nil {
		return err
	}
	if d.Length != 1 || !d.Format.IsInteger() {
		return fmt.Errorf("runtime: key attribute %q must be scalar integer", d.Name)
	}
	*slot = d.Name
	return nil
}

func (rt *Runtime) SetVolumeDataName(name string) error {
	d, err := rt.descriptor(name)
	if err != nil {
		return err
	}
	rt.volumeDataName = d.Name
	return nil
}

func (rt *Runtime) PrimaryKeyName() string   { return rt.primaryKeyName }
func (rt *Runtime) SecondaryKeyName() string { return rt.secondaryKeyName }
func (rt *Runtime) VolumeDataName() string   { return rt.volumeDataName }

func (rt *Runtime) SetPrimaryAxis(min, max float64, count int) {
	rt.axes[axisPrimary] = AxisDescriptor{Name: rt.primaryKeyName, Min: min, Max: max, Count: count}
}

func (rt *Runtime) SetSecondaryAxis(min, max float64, count int) {
	rt.axes[axisSecondary] = AxisDescriptor{Name: rt.secondaryKeyName, Min: min, Max: max, Count: count}
}

func (rt *Runtime) SetSampleAxis(min, max float64, count int) {
	rt.axes[axisSample] = AxisDescriptor{Name: rt.volumeDataName, Min: min, Max: max, Count: count}
}

func (rt *Runtime) PrimaryAxis() AxisDescriptor   { return rt.axes[axisPrimary] }
func (rt *Runtime) SecondaryAxis() AxisDescriptor { return rt.axes[axisSecondary] }
func (rt *Runtime) SampleAxis() AxisDescriptor     { return rt.axes[axisSample] }

// SetGroupSize fixes groupSize for the life of the job and allocates the
// contiguous buffer for every attribute registered so far. Called once by
// the source stage's init, typically with the secondary-key axis count.
func (rt *Runtime) SetGroupSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("runtime: SetGroupSize: n must be positive, got %d", n)
	}
	rt.groupSize = n
	for name, d := range rt.attrs {
		if _, ok := rt.buffers[name]; !ok {
			rt.buffers[name] = format.NewBuffer(d.Format, d.Length*n)
		}
	}
	return nil
}

func (rt *Runtime) GetGroupSize() int { return rt.groupSize }

// GetDataVectorLength returns the per-row element count of the
// volume-data attribute (the sample count).
func (rt *Runtime) GetDataVectorLength() int {
	d, ok := rt.attrs[rt.volumeDataName]
	if !ok {
		return 0
	}
	return d.Length
}

// GetWritableBuffer returns the whole-group buffer for name. The same
// pointer remains valid for the life of the job: buffers are never
// reallocated across process calls.
func (rt *Runtime) GetWritableBuffer(name string) (*format.Buffer, error) {
	name = UpperName(name)
	b, ok := rt.buffers[name]
	if !ok {
		return nil, fmt.Errorf("runtime: GetWritableBuffer: no buffer for %q (group size not set, or attribute unknown)", name)
	}
	return b, nil
}

// Row returns a view over attribute name's data for group-row r
// (0 <= r < GetGroupSize()).
func (rt *Runtime) Row(name string, r int) (*format.Buffer, error) {
	d, err := rt.descriptor(name)
	if err != nil {
		return nil, err
	}
	b, err := rt.GetWritableBuffer(name)
	if err != nil {
		return nil, err
	}
	lo := r * d.Length
	return b.Slice(lo, lo+d.Length), nil
}

func (rt *Runtime) GetNumAttributes() int { return len(rt.order) }

func (rt *Runtime) GetAttributeName(i int) (string, error) {
	if i < 0 || i >= len(rt.order) {
		return "", fmt.Errorf("runtime: GetAttributeName: index %d out of range", i)
	}
	return rt.order[i], nil
}

func (rt *Runtime) GetAttributeInfo(name string) (AttributeDescriptor, error) {
	d, err := rt.descriptor(name)
	if err != nil {
		return AttributeDescriptor{}, err
	}
	return *d, nil
}

// AttributeNames returns every registered attribute name, in insertion
// order, satisfying the parser's need for an admissible-variable set.
func (rt *Runtime) AttributeNames() []string {
	out := make([]string, len(rt.order))
	copy(out, rt.order)
	return out
}

func (rt *Runtime) SetModuleStruct(stageID string, v any) { rt.stageState[stageID] = v }
func (rt *Runtime) GetModuleStruct(stageID string) any    { return rt.stageState[stageID] }

// SetJobAborted marks the job terminally aborted. No further process calls
// are dispatched to any stage after this; the calling stage is responsible
// for releasing its own state before returning.
func (rt *Runtime) SetJobAborted(message string) {
	if rt.aborted {
		return
	}
	rt.aborted = true
	rt.abortMessage = message
	logging.Error("job aborted: " + message)
}

func (rt *Runtime) Aborted() bool       { return rt.aborted }
func (rt *Runtime) AbortMessage() string { return rt.abortMessage }

func (rt *Runtime) SetJobFinished() { rt.finished = true }
func (rt *Runtime) JobFinished() bool { return rt.finished }
