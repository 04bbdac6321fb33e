// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/seismicpipe/seismicpipe/internal/config"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// AttrList is a pass-through diagnostic sink: once per job it renders
// the schema (or a configured subset of it) as a table to its writer,
// defaulting to stdout. It never aborts the job and never mutates
// buffers; it exists to let an operator eyeball what a pipeline run
// produced without reaching for a separate tool.
type AttrList struct {
	rt *runtime.Runtime

	names  []string // attributes to report, in this order; empty means every attribute
	out    io.Writer
	dumped bool
}

func NewAttrList(rt *runtime.Runtime) *AttrList { return &AttrList{rt: rt, out: os.Stdout} }

func (a *AttrList) Init(stageID, raw string) error {
	c, err := config.Decode([]byte(raw))
	if err != nil {
		return err
	}
	for _, n := range c.GetStringSlice("attributes") {
		a.names = append(a.names, strings.ToUpper(n))
	}
	a.rt.SetModuleStruct(stageID, a)
	return nil
}

// Process is a no-op until the job finishes, at which point it renders
// the table exactly once (there is no later pass to do it in, and
// rendering once per group would be noise rather than a diagnostic).
func (a *AttrList) Process(stageID string) error {
	if a.dumped {
		return nil
	}
	if a.rt.JobFinished() {
		a.dump()
		a.dumped = true
	}
	return nil
}

func (a *AttrList) dump() {
	names := a.names
	if len(names) == 0 {
		names = a.rt.AttributeNames()
	}

	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"Attribute", "Type", "Length", "Unit"})
	for _, n := range names {
		d, err := a.rt.GetAttributeInfo(n)
		if err != nil {
			table.Append([]string{n, "?", "?", "?"})
			continue
		}
		table.Append([]string{n, d.Format.String(), strconv.Itoa(d.Length), d.Unit})
	}
	table.Render()
}
