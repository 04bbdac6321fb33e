// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import "testing"

const sampleYAML = `
job:
  name: test-run
  groupSize: 64
stages:
  - id: src
    type: gen
    config:
      brickSize: 16
      names:
        - INLINE
        - CROSSLINE
  - id: out
    type: output
    config:
      path: /tmp/out.vol
      compress: true
      gain: 1.5
`

func TestDecodeAndDottedLookup(t *testing.T) {
	cfg, err := Decode([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GetString("job.name", ""); got != "test-run" {
		t.Fatalf("job.name = %q", got)
	}
	if got := cfg.GetInt("job.groupSize", 0); got != 64 {
		t.Fatalf("job.groupSize = %d", got)
	}
}

func TestGetSliceStages(t *testing.T) {
	cfg, err := Decode([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	stages := cfg.GetSlice("stages")
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}
	if got := stages[0].GetString("id", ""); got != "src" {
		t.Fatalf("stages[0].id = %q", got)
	}
	sub := stages[0].Sub("config")
	if got := sub.GetInt("brickSize", 0); got != 16 {
		t.Fatalf("stages[0].config.brickSize = %d", got)
	}
	if names := sub.GetStringSlice("names"); len(names) != 2 || names[0] != "INLINE" {
		t.Fatalf("stages[0].config.names = %v", names)
	}
}

func TestGetBoolAndFloat(t *testing.T) {
	cfg, err := Decode([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	out := cfg.GetSlice("stages")[1].Sub("config")
	if !out.GetBool("compress", false) {
		t.Fatal("expected compress=true")
	}
	if got := out.GetFloat("gain", 0); got != 1.5 {
		t.Fatalf("gain = %v", got)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg, err := Decode([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	sub := cfg.GetSlice("stages")[0].Sub("config")
	raw, err := sub.Encode()
	if err != nil {
		t.Fatal(err)
	}
	reDecoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("re-decoding encoded config: %v", err)
	}
	if got := reDecoded.GetInt("brickSize", 0); got != 16 {
		t.Fatalf("brickSize after round trip = %d", got)
	}
	if names := reDecoded.GetStringSlice("names"); len(names) != 2 || names[1] != "CROSSLINE" {
		t.Fatalf("names after round trip = %v", names)
	}
}

func TestMissingPathReturnsDefault(t *testing.T) {
	cfg, err := Decode([]byte(sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GetString("does.not.exist", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if cfg.Has("does.not.exist") {
		t.Fatal("expected Has to report false")
	}
}
