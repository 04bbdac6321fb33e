// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catalog

import (
	"database/sql"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"
)

var registerOnce sync.Once

func connect(path string) (*sqlx.DB, error) {
	registerOnce.Do(func() {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &hooks{}))
	})

	db, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// sqlite does not multithread; a single connection avoids waiting on locks.
	db.SetMaxOpenConns(1)

	if err := migrateDB(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// statementCache lets callers build squirrel queries against a shared
// prepared-statement cache, mirroring the teacher's repository layer.
func statementCache(db *sqlx.DB) *sq.StmtCache {
	return sq.NewStmtCache(db.DB)
}
