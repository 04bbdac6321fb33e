// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsAreObservable(t *testing.T) {
	m := New()
	m.GroupsProcessed.Inc()
	m.GroupsProcessed.Inc()
	m.BricksEmitted.Inc()
	m.StageError("mute")
	m.StageError("mute")
	m.StageError("scale")
	m.WindowValid.Set(42)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(rr, req)

	body := rr.Body.String()
	checks := []string{
		`pipeline_groups_processed_total 2`,
		`pipeline_bricks_emitted_total 1`,
		`pipeline_stage_errors_total{stage="mute"} 2`,
		`pipeline_stage_errors_total{stage="scale"} 1`,
		`pipeline_writer_window_valid_count 42`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics output to contain %q, got:\n%s", want, body)
		}
	}
}

func TestNewReturnsIndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.GroupsProcessed.Inc()

	rr := httptest.NewRecorder()
	promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if strings.Contains(rr.Body.String(), "pipeline_groups_processed_total 1") {
		t.Fatal("expected second registry to be unaffected by the first's counter increments")
	}
}
