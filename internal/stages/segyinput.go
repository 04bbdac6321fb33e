// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stages

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/seismicpipe/seismicpipe/internal/config"
	"github.com/seismicpipe/seismicpipe/internal/format"
	"github.com/seismicpipe/seismicpipe/internal/runtime"
)

// SEGY reel and trace header geometry, rev1. Byte offsets below are
// counted from the start of the respective header, 1-based offsets from
// the standard converted to 0-based slice indices.
const (
	segyTextHeaderLen   = 3200
	segyBinHeaderLen    = 400
	segyTraceHeaderLen  = 240
	segyBinSampleCntOff = 20 // int16: samples per trace
	segyBinFormatOff    = 24 // int16: data sample format code
	segyTrInlineOff     = 188
	segyTrCrosslineOff  = 192
)

// SEGYInput is the SEG-Y reader source stage. It reads the binary reel
// header and one 240-byte trace header per trace well enough to
// populate the primary/secondary key axes, the sample axis, and the
// trace-amplitude attribute, then streams one primary-key group (one or
// more consecutive traces sharing a primary key value) per Process call.
// No EBCDIC translation table is implemented; the 3200 byte textual
// header is skipped by seeking past it rather than decoded, since
// nothing downstream consumes it.
type SEGYInput struct {
	rt *runtime.Runtime

	f   *os.File
	fmt int16 // IBM float (1), IEEE float (5), or int32 (2) sample format code

	sampleLen    int
	dataName     string
	traceLen     int64 // bytes per trace record (header + samples)
	secondaryLen int   // traces expected per primary-key group, from config
	primaryLen   int   // number of groups, derived from file size unless overridden

	cursor int
}

type segyTrace struct {
	inline, crossline int32
	samples           []float64
}

func NewSEGYInput(rt *runtime.Runtime) *SEGYInput { return &SEGYInput{rt: rt} }

func (s *SEGYInput) Init(stageID, raw string) error {
	c, err := config.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("segyinput: %w", err)
	}

	path := c.GetString("path", "")
	if path == "" {
		return fmt.Errorf("segyinput: path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("segyinput: %w", err)
	}
	s.f = f

	if _, err := f.Seek(segyTextHeaderLen, io.SeekStart); err != nil {
		return fmt.Errorf("segyinput: seek past text header: %w", err)
	}
	binHdr := make([]byte, segyBinHeaderLen)
	if _, err := io.ReadFull(f, binHdr); err != nil {
		return fmt.Errorf("segyinput: read binary header: %w", err)
	}
	s.sampleLen = int(binary.BigEndian.Uint16(binHdr[segyBinSampleCntOff:]))
	s.fmt = int16(binary.BigEndian.Uint16(binHdr[segyBinFormatOff:]))
	if override := c.GetInt("samplecount", 0); override > 0 {
		s.sampleLen = override
	}
	s.traceLen = int64(segyTraceHeaderLen + s.sampleLen*4)

	s.dataName = c.GetString("dataname", "DATA")
	s.secondaryLen = c.GetInt("secondaryperprimary", 1)

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("segyinput: stat: %w", err)
	}
	traceAreaLen := info.Size() - segyTextHeaderLen - segyBinHeaderLen
	traceCount := 0
	if s.traceLen > 0 {
		traceCount = int(traceAreaLen / s.traceLen)
	}
	if s.secondaryLen > 0 {
		s.primaryLen = traceCount / s.secondaryLen
	}

	if err := s.rt.AddAttribute("INLINE", format.Int32, 1); err != nil {
		return fmt.Errorf("segyinput: %w", err)
	}
	if err := s.rt.AddAttribute("CROSSLINE", format.Int32, 1); err != nil {
		return fmt.Errorf("segyinput: %w", err)
	}
	if err := s.rt.AddAttribute(s.dataName, format.Float32, s.sampleLen); err != nil {
		return fmt.Errorf("segyinput: %w", err)
	}
	if err := s.rt.SetPrimaryKeyName("INLINE"); err != nil {
		return err
	}
	if err := s.rt.SetSecondaryKeyName("CROSSLINE"); err != nil {
		return err
	}
	if err := s.rt.SetVolumeDataName(s.dataName); err != nil {
		return err
	}
	s.rt.SetSampleAxis(0, float64(s.sampleLen-1), s.sampleLen)
	if err := s.rt.SetGroupSize(s.secondaryLen); err != nil {
		return err
	}

	if override := c.GetInt("primarycount", 0); override > 0 {
		s.primaryLen = override
	}
	s.rt.SetPrimaryAxis(0, float64(s.primaryLen-1), s.primaryLen)
	s.rt.SetSecondaryAxis(0, float64(s.secondaryLen-1), s.secondaryLen)

	s.rt.SetModuleStruct(stageID, s)
	return nil
}

// Process reads exactly one group's worth of traces (secondaryLen
// consecutive trace records), assuming the regular secondaryLen-traces-
// per-primary-key survey geometry declared in config (mirrors the same
// regular-grid assumption Gen and Input make).
func (s *SEGYInput) Process(stageID string) error {
	if s.cursor >= s.primaryLen {
		return nil
	}

	pbuf, err := s.rt.GetWritableBuffer("INLINE")
	if err != nil {
		return err
	}
	sbuf, err := s.rt.GetWritableBuffer("CROSSLINE")
	if err != nil {
		return err
	}

	for r := 0; r < s.secondaryLen; r++ {
		tr, err := s.readTrace()
		if err != nil {
			return fmt.Errorf("segyinput: group %d row %d: %w", s.cursor, r, err)
		}

		pbuf.SetFromDouble(r, float64(tr.inline))
		sbuf.SetFromDouble(r, float64(tr.crossline))
		dst, err := s.rt.Row(s.dataName, r)
		if err != nil {
			return err
		}
		for i, v := range tr.samples {
			dst.SetFromDouble(i, v)
		}
	}

	s.cursor++
	if s.cursor >= s.primaryLen {
		s.rt.SetJobFinished()
		s.f.Close()
	}
	return nil
}

func (s *SEGYInput) readTrace() (*segyTrace, error) {
	hdr := make([]byte, segyTraceHeaderLen)
	if _, err := io.ReadFull(s.f, hdr); err != nil {
		return nil, err
	}
	inline := int32(binary.BigEndian.Uint32(hdr[segyTrInlineOff:]))
	crossline := int32(binary.BigEndian.Uint32(hdr[segyTrCrosslineOff:]))

	sampleBytes := make([]byte, s.sampleLen*4)
	if _, err := io.ReadFull(s.f, sampleBytes); err != nil {
		return nil, fmt.Errorf("segyinput: short trace (inline=%d crossline=%d): %w", inline, crossline, err)
	}

	samples := make([]float64, s.sampleLen)
	for i := 0; i < s.sampleLen; i++ {
		raw := binary.BigEndian.Uint32(sampleBytes[i*4:])
		switch s.fmt {
		case 5: // IEEE float32
			samples[i] = float64(math.Float32frombits(raw))
		case 2: // int32
			samples[i] = float64(int32(raw))
		default: // IBM float32, format code 1, and any other unrecognised code
			samples[i] = ibmFloat32ToFloat64(raw)
		}
	}

	return &segyTrace{inline: inline, crossline: crossline, samples: samples}, nil
}

// ibmFloat32ToFloat64 converts a big-endian IBM System/360 single
// precision float (base-16 exponent, sign-magnitude) to a float64.
func ibmFloat32ToFloat64(raw uint32) float64 {
	sign := 1.0
	if raw&0x80000000 != 0 {
		sign = -1.0
	}
	exponent := int((raw>>24)&0x7f) - 64
	fraction := float64(raw&0x00ffffff) / float64(1<<24)
	return sign * fraction * math.Pow(16, float64(exponent))
}
