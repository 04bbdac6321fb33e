// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package telemetry registers the pipeline's Prometheus metrics and,
// optionally, serves them over HTTP. Each call to New registers against
// its own private registry so repeated test runs in the same binary
// don't collide on prometheus' default global registry.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seismicpipe/seismicpipe/internal/logging"
)

// Metrics holds the counters and gauge a running pipeline updates.
type Metrics struct {
	registry *prometheus.Registry

	GroupsProcessed prometheus.Counter
	BricksEmitted   prometheus.Counter
	StageErrors     *prometheus.CounterVec
	WindowValid     prometheus.Gauge
}

// New registers a fresh set of pipeline metrics against a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GroupsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_groups_processed_total",
			Help: "Number of primary-key groups processed by the source stage.",
		}),
		BricksEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_bricks_emitted_total",
			Help: "Number of bricks written to the volume store.",
		}),
		StageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_stage_errors_total",
			Help: "Number of errors raised by a stage, labelled by stage id.",
		}, []string{"stage"}),
		WindowValid: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_writer_window_valid_count",
			Help: "Current number of primary-key slots held in the writer's sliding window.",
		}),
	}
}

// StageError records one error for stageID.
func (m *Metrics) StageError(stageID string) {
	m.StageErrors.WithLabelValues(stageID).Inc()
}

// BrickEmitted and SetWindowValid satisfy stages.BrickMetricsSink, the
// seam the writer stage uses to report bricks and window occupancy
// without the stages package importing prometheus directly.
func (m *Metrics) BrickEmitted() { m.BricksEmitted.Inc() }

func (m *Metrics) SetWindowValid(n int) { m.WindowValid.Set(float64(n)) }

// Serve starts an HTTP server exposing /metrics on addr. It blocks until
// ctx is cancelled or the server fails; callers typically run it in its
// own goroutine.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("telemetry: serving metrics on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("telemetry: serve: %w", err)
		}
		return nil
	}
}
