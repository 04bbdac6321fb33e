// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command seismicpipe runs one batch pipeline job: it reads a job file
// naming an ordered list of stages, wires each stage's runtime.StageEntry,
// and drives the job to completion, recording the run in the audit
// catalog and optionally exposing Prometheus metrics and a NATS lifecycle
// event.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gops/agent"

	"github.com/seismicpipe/seismicpipe/internal/catalog"
	"github.com/seismicpipe/seismicpipe/internal/events"
	"github.com/seismicpipe/seismicpipe/internal/logging"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
	"github.com/seismicpipe/seismicpipe/internal/stages"
	"github.com/seismicpipe/seismicpipe/internal/telemetry"
)

var version = "dev"

func main() {
	cliInit()
	logging.SetLogDateTime(flagLogDateTime)
	logging.SetLevel(flagLogLevel)

	if flagVersion {
		fmt.Printf("seismicpipe version %s\n", version)
		return
	}

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			logging.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := run(); err != nil {
		logging.Fatalf("%s", err.Error())
	}
}

func run() error {
	jf, err := loadJobFile(flagJobFile)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(flagCatalogDB)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer cat.Close()

	metrics := telemetry.New()
	if flagMetricsAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := metrics.Serve(ctx, flagMetricsAddr); err != nil {
				logging.Warnf("telemetry: %v", err)
			}
		}()
	}

	publisher := events.Connect(jf.eventConfig)
	defer publisher.Close()

	runID, err := cat.BeginRun(jf.name)
	if err != nil {
		logging.Warnf("catalog: begin run: %v", err)
	}

	rt := runtime.New()
	var entries []runtime.StageEntry
	for _, sp := range jf.stages {
		stage, err := stages.New(sp.typ, rt)
		if err != nil {
			return fmt.Errorf("job %s: %w", jf.name, err)
		}
		if sink, ok := stage.(interface{ SetMetrics(stages.BrickMetricsSink) }); ok {
			sink.SetMetrics(metrics)
		}
		entries = append(entries, runtime.StageEntry{ID: sp.id, Stage: stage, Config: sp.config})
	}

	driver := runtime.NewDriver(rt, entries)
	driver.OnStageError = func(stageID string, stageErr error) {
		metrics.StageError(stageID)
		if err := cat.RecordStageError(runID, stageID, stageErr.Error()); err != nil {
			logging.Warnf("catalog: record stage error: %v", err)
		}
	}
	driver.OnPassComplete = metrics.GroupsProcessed.Inc

	runErr := driver.Run()

	aborted := runErr != nil
	if err := cat.FinishRun(runID, aborted); err != nil {
		logging.Warnf("catalog: finish run: %v", err)
	}

	lifecycle := events.Lifecycle{
		JobName:    jf.name,
		RunID:      runID,
		Aborted:    aborted,
		FinishedAt: time.Now().Unix(),
	}
	if runErr != nil {
		lifecycle.Error = runErr.Error()
	}
	publisher.PublishFinished(lifecycle)

	if runErr != nil {
		return fmt.Errorf("job %s aborted: %w", jf.name, runErr)
	}
	logging.Infof("job %s finished", jf.name)
	return nil
}
