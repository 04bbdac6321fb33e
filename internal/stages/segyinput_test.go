// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// writeMinimalSEGY synthesizes just enough of a SEG-Y rev1 byte stream
// for SEGYInput to parse: a 3200 byte textual header (left blank), a
// 400 byte binary header declaring sampleLen samples per trace in IEEE
// float32 format, then primaryLen*secondaryLen trace records, each a
// 240 byte header (inline/crossline at their standard byte offsets)
// followed by sampleLen IEEE float32 samples.
func writeMinimalSEGY(t *testing.T, path string, primaryLen, secondaryLen, sampleLen int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.Write(make([]byte, segyTextHeaderLen)); err != nil {
		t.Fatal(err)
	}

	binHdr := make([]byte, segyBinHeaderLen)
	binary.BigEndian.PutUint16(binHdr[segyBinSampleCntOff:], uint16(sampleLen))
	binary.BigEndian.PutUint16(binHdr[segyBinFormatOff:], 5) // IEEE float32
	if _, err := f.Write(binHdr); err != nil {
		t.Fatal(err)
	}

	for p := 0; p < primaryLen; p++ {
		for s := 0; s < secondaryLen; s++ {
			hdr := make([]byte, segyTraceHeaderLen)
			binary.BigEndian.PutUint32(hdr[segyTrInlineOff:], uint32(int32(100+p)))
			binary.BigEndian.PutUint32(hdr[segyTrCrosslineOff:], uint32(int32(s)))
			if _, err := f.Write(hdr); err != nil {
				t.Fatal(err)
			}
			samples := make([]byte, sampleLen*4)
			for i := 0; i < sampleLen; i++ {
				v := float32(p*100 + s*10 + i)
				binary.BigEndian.PutUint32(samples[i*4:], math.Float32bits(v))
			}
			if _, err := f.Write(samples); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestSEGYInputReadsTracesIntoGroups(t *testing.T) {
	const primaryLen, secondaryLen, sampleLen = 3, 2, 4
	path := filepath.Join(t.TempDir(), "vol.sgy")
	writeMinimalSEGY(t, path, primaryLen, secondaryLen, sampleLen)

	rt := runtime.New()
	in := NewSEGYInput(rt)
	cfg := "path: " + path + "\nsecondaryperprimary: 2\n"
	if err := in.Init("segyinput", cfg); err != nil {
		t.Fatal(err)
	}

	for p := 0; p < primaryLen; p++ {
		if err := in.Process("segyinput"); err != nil {
			t.Fatal(err)
		}
		inl, err := rt.GetWritableBuffer("INLINE")
		if err != nil {
			t.Fatal(err)
		}
		data, err := rt.GetWritableBuffer("DATA")
		if err != nil {
			t.Fatal(err)
		}
		for s := 0; s < secondaryLen; s++ {
			if got, want := inl.At(s), float64(100+p); got != want {
				t.Fatalf("p=%d s=%d: inline = %v, want %v", p, s, got, want)
			}
			for i := 0; i < sampleLen; i++ {
				want := float64(p*100 + s*10 + i)
				if got := data.At(s*sampleLen + i); got != want {
					t.Fatalf("p=%d s=%d i=%d: sample = %v, want %v", p, s, i, got, want)
				}
			}
		}
	}
	if !rt.JobFinished() {
		t.Fatal("expected job finished after reading all groups")
	}
}

func TestIBMFloat32ToFloat64Zero(t *testing.T) {
	if got := ibmFloat32ToFloat64(0); got != 0 {
		t.Fatalf("ibmFloat32ToFloat64(0) = %v, want 0", got)
	}
}
