// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagJobFile     string
	flagLogLevel    string
	flagLogDateTime bool
	flagGops        bool
	flagCatalogDB   string
	flagMetricsAddr string
	flagVersion     bool
)

func cliInit() {
	flag.StringVar(&flagJobFile, "job", "./job.yaml", "Path to the pipeline job file describing the stage list")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err, crit]`")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Set this flag to add date and time to log messages")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagCatalogDB, "catalog-db", "./var/seismicpipe.db", "Path to the SQLite run/stage-error audit database")
	flag.StringVar(&flagMetricsAddr, "metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090) for the duration of the run")
	flag.BoolVar(&flagVersion, "version", false, "Show version information and exit")
	flag.Parse()
}
