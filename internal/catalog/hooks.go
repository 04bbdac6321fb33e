// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package catalog

import (
	"context"
	"time"

	"github.com/seismicpipe/seismicpipe/internal/logging"
)

type ctxKey string

const ctxKeyBegin ctxKey = "begin"

// hooks satisfies sqlhooks.Hooks, logging every query the catalog runs at
// debug level along with its elapsed time.
type hooks struct{}

func (h *hooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	logging.Debugf("catalog query %s %q", query, args)
	return context.WithValue(ctx, ctxKeyBegin, time.Now()), nil
}

func (h *hooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(ctxKeyBegin).(time.Time); ok {
		logging.Debugf("catalog query took %s", time.Since(begin))
	}
	return ctx, nil
}
