// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickstore

import "testing"

func TestParseS3URL(t *testing.T) {
	u, err := parseS3URL("s3://my-bucket/volumes/run1")
	if err != nil {
		t.Fatal(err)
	}
	if u.bucket != "my-bucket" || u.prefix != "volumes/run1" {
		t.Fatalf("got bucket=%q prefix=%q", u.bucket, u.prefix)
	}
	if got := u.key("manifest.json"); got != "volumes/run1/manifest.json" {
		t.Fatalf("key() = %q", got)
	}
}

func TestParseS3URLBareBucket(t *testing.T) {
	u, err := parseS3URL("s3://my-bucket")
	if err != nil {
		t.Fatal(err)
	}
	if u.bucket != "my-bucket" || u.prefix != "" {
		t.Fatalf("got bucket=%q prefix=%q", u.bucket, u.prefix)
	}
	if got := u.key("manifest.json"); got != "manifest.json" {
		t.Fatalf("key() = %q", got)
	}
}

func TestParseS3URLRejectsNonS3Scheme(t *testing.T) {
	if _, err := parseS3URL("/local/path"); err == nil {
		t.Fatal("expected error for a non-s3 url")
	}
}

func TestS3ChunkKeyLayout(t *testing.T) {
	got := s3ChunkKey("volumes/run1", "DATA", [3]int{1, 2, 3})
	want := "volumes/run1/DATA/1_2_3.zst"
	if got != want {
		t.Fatalf("s3ChunkKey = %q, want %q", got, want)
	}
}
