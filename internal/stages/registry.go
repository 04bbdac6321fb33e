// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"fmt"

	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// registry maps the stage type name used in a job file to a constructor.
// Job wiring (out of this core's scope per spec.md §1) decides which
// stages run and in what order; this registry is the seam it uses to turn
// a type name into a runtime.Stage.
var registry = map[string]func(*runtime.Runtime) runtime.Stage{
	"gen":        func(rt *runtime.Runtime) runtime.Stage { return NewGen(rt) },
	"segyinput":  func(rt *runtime.Runtime) runtime.Stage { return NewSEGYInput(rt) },
	"input":      func(rt *runtime.Runtime) runtime.Stage { return NewInput(rt) },
	"attrcalc":   func(rt *runtime.Runtime) runtime.Stage { return NewAttrCalc(rt) },
	"mute":       func(rt *runtime.Runtime) runtime.Stage { return NewMute(rt) },
	"scale":      func(rt *runtime.Runtime) runtime.Stage { return NewScale(rt) },
	"attrlist":   func(rt *runtime.Runtime) runtime.Stage { return NewAttrList(rt) },
	"testgen":    func(rt *runtime.Runtime) runtime.Stage { return NewTestGen(rt) },
	"testexpect": func(rt *runtime.Runtime) runtime.Stage { return NewTestExpect(rt) },
	"output":     func(rt *runtime.Runtime) runtime.Stage { return NewOutput(rt) },
}

// New constructs the named stage type bound to rt. It does not call Init;
// the caller (typically the driver via runtime.StageEntry) supplies the
// per-stage config separately.
func New(stageType string, rt *runtime.Runtime) (runtime.Stage, error) {
	ctor, ok := registry[stageType]
	if !ok {
		return nil, fmt.Errorf("stages: unknown stage type %q", stageType)
	}
	return ctor(rt), nil
}

// Types returns every registered stage type name, for diagnostics.
func Types() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}
