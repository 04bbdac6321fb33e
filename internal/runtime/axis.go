// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runtime

// AxisDescriptor describes one of the three fixed axes of the volume. The
// primary and secondary axes carry integer-valued min/max and count; the
// sample axis carries float endpoints. Step is derived, never stored
// independently, so it can never drift out of sync with min/max/count.
type AxisDescriptor struct {
	Name  string
	Unit  string
	Min   float64
	Max   float64
	Count int
}

// Step returns (Max-Min)/(Count-1), the implicit spacing between
// consecutive axis samples. Count must be >= 2; a single-sample axis has
// no well-defined step and Step returns 0.
func (a AxisDescriptor) Step() float64 {
	if a.Count < 2 {
		return 0
	}
	return (a.Max - a.Min) / float64(a.Count-1)
}

// ValueAt returns the axis value at the i'th sample, 0-indexed.
func (a AxisDescriptor) ValueAt(i int) float64 {
	return a.Min + float64(i)*a.Step()
}
