// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"fmt"
	"os"

	"github.com/seismicpipe/seismicpipe/internal/config"
	"github.com/seismicpipe/seismicpipe/internal/events"
)

// jobFile is the parsed shape of a -job YAML file:
//
//	job:
//	  name: my-run
//	events:
//	  address: nats://localhost:4222
//	  subject: pipeline.lifecycle
//	stages:
//	  - id: src
//	    type: gen
//	    config: { ... }
//	  - id: out
//	    type: output
//	    config: { ... }
type jobFile struct {
	name        string
	eventConfig events.Config
	stages      []stageSpec
}

type stageSpec struct {
	id, typ string
	config  string // raw YAML for Stage.Init
}

func loadJobFile(path string) (*jobFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("job file: %w", err)
	}
	c, err := config.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("job file: %w", err)
	}

	jf := &jobFile{
		name: c.GetString("job.name", "unnamed"),
		eventConfig: events.Config{
			Address:       c.GetString("events.address", ""),
			Subject:       c.GetString("events.subject", ""),
			Username:      c.GetString("events.username", ""),
			Password:      c.GetString("events.password", ""),
			CredsFilePath: c.GetString("events.credsFilePath", ""),
		},
	}

	for _, sc := range c.GetSlice("stages") {
		id := sc.GetString("id", "")
		typ := sc.GetString("type", "")
		if id == "" || typ == "" {
			return nil, fmt.Errorf("job file: every stage entry needs an id and a type")
		}
		encoded, err := sc.Sub("config").Encode()
		if err != nil {
			return nil, fmt.Errorf("job file: stage %s: %w", id, err)
		}
		jf.stages = append(jf.stages, stageSpec{id: id, typ: typ, config: string(encoded)})
	}
	if len(jf.stages) == 0 {
		return nil, fmt.Errorf("job file: no stages declared")
	}
	return jf, nil
}
