// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

// testAttrSpec describes one attribute `testgen` materialises and
// `testexpect` independently regenerates to compare against, bitwise,
// per spec.md's round-trip/idempotence testable properties. Sharing
// exactly this struct and patternValue between the two stages is what
// lets them agree without either reading the other's state.
type testAttrSpec struct {
	name    string
	length  int
	pattern string // "sequence" or "random"
}

// patternValue is a pure function of (pattern, seed, p, s, i): same
// inputs always produce the same output, in either stage, regardless
// of call order or how the primary axis is chunked across Process
// calls. "sequence" is a simple affine function of the three indices,
// useful for eyeballing failures; "random" runs the indices through a
// splitmix64-style mix so the values are not trivially predictable from
// a glance at axis values, while staying exactly reproducible.
func patternValue(pattern string, seed int64, p, s, i int) float64 {
	if pattern == "random" {
		return float64(splitmix64(uint64(seed), p, s, i)%1_000_000) / 1000.0
	}
	return float64(p)*1000 + float64(s)*10 + float64(i)
}

func splitmix64(seed uint64, p, s, i int) uint64 {
	h := seed
	h = mix(h + uint64(int64(p)) + 1)
	h = mix(h + uint64(int64(s)) + 1)
	h = mix(h + uint64(int64(i)) + 1)
	return h
}

func mix(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
