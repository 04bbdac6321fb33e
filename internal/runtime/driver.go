// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runtime

import "github.com/seismicpipe/seismicpipe/internal/logging"

// StageEntry pairs a Stage instance with the stage-id and raw config blob
// the runtime hands it at init.
type StageEntry struct {
	ID     string
	Stage  Stage
	Config string
}

// Driver runs the pull-driven, group-at-a-time loop described by the
// specification's §2 control flow: it initialises every stage in order,
// then repeatedly asks each stage in order to process one group, until a
// stage marks the job finished or aborted.
//
// The "one more process call after finished" contract falls out of stage
// ordering for free: the source stage is always first, so the pass in
// which it sets finished already delivers every downstream stage exactly
// one call observing JobFinished()==true before the driver stops — that
// call is its cleanup opportunity. The source stage itself must release
// its own resources inline in the same call that sets finished, since the
// driver never calls it again afterwards.
type Driver struct {
	RT     *Runtime
	Stages []StageEntry

	// OnStageError, if set, is called with every error a stage's Init or
	// Process returns, before the driver aborts the job. It is the single
	// seam ambient concerns (audit catalog, metrics) hang off of; it must
	// never alter control flow or itself abort the job — a failure inside
	// OnStageError is the caller's own responsibility to swallow.
	OnStageError func(stageID string, err error)

	// OnPassComplete, if set, is called once after every stage has run in
	// a pass (one primary-key group processed), before the JobFinished
	// check. Metrics wiring uses it to count processed groups.
	OnPassComplete func()
}

func NewDriver(rt *Runtime, stages []StageEntry) *Driver {
	return &Driver{RT: rt, Stages: stages}
}

func (d *Driver) reportStageError(stageID string, err error) {
	if d.OnStageError != nil {
		d.OnStageError(stageID, err)
	}
	d.RT.SetJobAborted(stageID + ": " + err.Error())
}

// Run executes the full init + process loop. It returns nil on a clean
// finish and a non-nil error (the abort message) if the job was aborted.
func (d *Driver) Run() error {
	for _, s := range d.Stages {
		if err := s.Stage.Init(s.ID, s.Config); err != nil {
			d.reportStageError(s.ID, err)
		}
		if d.RT.Aborted() {
			return errAbort(d.RT.AbortMessage())
		}
	}

	for {
		for _, s := range d.Stages {
			if err := s.Stage.Process(s.ID); err != nil {
				d.reportStageError(s.ID, err)
			}
			if d.RT.Aborted() {
				logging.Warn("pipeline aborted during stage " + s.ID)
				return errAbort(d.RT.AbortMessage())
			}
		}
		if d.OnPassComplete != nil {
			d.OnPassComplete()
		}
		if d.RT.JobFinished() {
			return nil
		}
	}
}

type errAbort string

func (e errAbort) Error() string { return string(e) }
