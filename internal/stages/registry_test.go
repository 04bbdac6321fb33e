// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"testing"

	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

func TestNewConstructsEveryRegisteredType(t *testing.T) {
	for _, typ := range Types() {
		rt := runtime.New()
		s, err := New(typ, rt)
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if s == nil {
			t.Fatalf("%s: constructed a nil stage", typ)
		}
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	rt := runtime.New()
	if _, err := New("not-a-real-stage", rt); err == nil {
		t.Fatal("expected an error for an unknown stage type")
	}
}
