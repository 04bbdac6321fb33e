// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package catalog keeps a SQLite-backed audit trail of pipeline runs: when
// a run started and finished, whether it aborted, and which stages raised
// errors along the way. It is an audit sink only — the driver never reads
// it back to make scheduling decisions.
package catalog

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Store is a handle to the run/stage-error audit trail.
type Store struct {
	db        *sqlx.DB
	stmtCache *sq.StmtCache
}

// Open connects to (and migrates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := connect(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, stmtCache: statementCache(db)}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunRecord is one row of the run table, as returned by ListRuns.
type RunRecord struct {
	ID         int64  `db:"id"`
	JobName    string `db:"job_name"`
	StartedAt  int64  `db:"started_at"`
	FinishedAt *int64 `db:"finished_at"`
	Aborted    bool   `db:"aborted"`
}

// BeginRun records the start of a new pipeline run and returns its id.
func (s *Store) BeginRun(jobName string) (int64, error) {
	res, err := sq.Insert("run").
		Columns("job_name", "started_at", "aborted").
		Values(jobName, time.Now().Unix(), false).
		RunWith(s.stmtCache).
		Exec()
	if err != nil {
		return 0, fmt.Errorf("catalog: begin run: %w", err)
	}
	return res.LastInsertId()
}

// RecordStageError appends one stage-error row for runID.
func (s *Store) RecordStageError(runID int64, stageID, message string) error {
	_, err := sq.Insert("stage_error").
		Columns("run_id", "stage_id", "message", "occurred_at").
		Values(runID, stageID, message, time.Now().Unix()).
		RunWith(s.stmtCache).
		Exec()
	if err != nil {
		return fmt.Errorf("catalog: record stage error: %w", err)
	}
	return nil
}

// FinishRun marks runID as finished, successfully or aborted. The driver
// calls it once the pipeline loop has returned, regardless of abort (only
// the lifecycle event is published after it), so the audit trail always
// reflects the terminal state even when sinks fail to flush.
func (s *Store) FinishRun(runID int64, aborted bool) error {
	_, err := sq.Update("run").
		Set("finished_at", time.Now().Unix()).
		Set("aborted", aborted).
		Where(sq.Eq{"id": runID}).
		RunWith(s.stmtCache).
		Exec()
	if err != nil {
		return fmt.Errorf("catalog: finish run: %w", err)
	}
	return nil
}

// ListRuns returns every run row, most recent first.
func (s *Store) ListRuns() ([]RunRecord, error) {
	rows, err := sq.Select("id", "job_name", "started_at", "finished_at", "aborted").
		From("run").
		OrderBy("id DESC").
		RunWith(s.stmtCache).
		Query()
	if err != nil {
		return nil, fmt.Errorf("catalog: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.JobName, &r.StartedAt, &r.FinishedAt, &r.Aborted); err != nil {
			return nil, fmt.Errorf("catalog: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StageErrors returns every stage-error row recorded for runID, in the
// order they occurred.
func (s *Store) StageErrors(runID int64) ([]string, error) {
	rows, err := sq.Select("stage_id", "message").
		From("stage_error").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("id ASC").
		RunWith(s.stmtCache).
		Query()
	if err != nil {
		return nil, fmt.Errorf("catalog: stage errors: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var stageID, message string
		if err := rows.Scan(&stageID, &message); err != nil {
			return nil, fmt.Errorf("catalog: scan stage error: %w", err)
		}
		out = append(out, fmt.Sprintf("%s: %s", stageID, message))
	}
	return out, rows.Err()
}
