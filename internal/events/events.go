// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package events optionally publishes pipeline job lifecycle messages to a
// configured NATS subject, for operational dashboards that want to react
// to completion without polling the catalog. It is fire-and-forget: no
// subscriber logic lives here, and a missing or unreachable server only
// produces a warning, never a pipeline failure.
package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"

	"github.com/seismicpipe/seismicpipe/internal/logging"
)

// Config names the NATS server and subject to publish lifecycle events to.
// A zero-value Config (empty Address) disables publishing entirely.
type Config struct {
	Address       string `yaml:"address"`
	Subject       string `yaml:"subject"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	CredsFilePath string `yaml:"credsFilePath"`
}

// Publisher holds an optional live NATS connection. A nil *Publisher, or
// one built from a disabled Config, makes every method a no-op.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Lifecycle is the JSON payload published on job finish/abort.
type Lifecycle struct {
	JobName    string `json:"jobName"`
	RunID      int64  `json:"runId"`
	Aborted    bool   `json:"aborted"`
	FinishedAt int64  `json:"finishedAt"`
	Error      string `json:"error,omitempty"`
}

// Connect dials cfg.Address if configured. A disabled or unreachable
// configuration yields a non-nil, inert Publisher rather than an error,
// since event publication is an optional operational aid, not a
// correctness requirement of the pipeline.
func Connect(cfg Config) *Publisher {
	if cfg.Address == "" {
		return &Publisher{}
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}
	opts = append(opts, nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
		if err != nil {
			logging.Warnf("events: NATS error: %v", err)
		}
	}))

	conn, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		logging.Warnf("events: NATS connect to %s failed, publishing disabled: %v", cfg.Address, err)
		return &Publisher{}
	}
	logging.Infof("events: connected to %s", cfg.Address)

	subject := cfg.Subject
	if subject == "" {
		subject = "pipeline.lifecycle"
	}
	return &Publisher{conn: conn, subject: subject}
}

// PublishFinished marshals ev as JSON and publishes it. It never returns
// an error to the caller; failures are logged and swallowed so that a
// transient NATS outage can't abort an otherwise-successful run.
func (p *Publisher) PublishFinished(ev Lifecycle) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Warnf("events: marshal lifecycle event: %v", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		logging.Warnf("events: publish to %s failed: %v", p.subject, err)
		return
	}
	if err := p.conn.Flush(); err != nil {
		logging.Warnf("events: flush failed: %v", err)
	}
}

// Close releases the underlying connection, if any.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
