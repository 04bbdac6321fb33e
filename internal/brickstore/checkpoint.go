// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickstore

import (
	"bufio"
	"fmt"
	"os"

	"github.com/linkedin/goavro/v2"
)

// BrickMeta is one record of the checkpoint log: it records that a brick
// was committed, without needing to reread its (possibly large, compressed)
// payload file to know the store is non-empty at that coordinate. Grounded
// on internal/memorystore/avroCheckpoint.go's append-only OCF checkpoint
// pattern.
type BrickMeta struct {
	Channel        string
	PrimaryIndex   int64
	SecondaryIndex int64
	SampleIndex    int64
	ByteLength     int64
	Checksum       uint64
}

const brickMetaSchema = `{
  "type": "record",
  "name": "BrickMeta",
  "fields": [
    {"name": "channel", "type": "string"},
    {"name": "primaryIndex", "type": "long"},
    {"name": "secondaryIndex", "type": "long"},
    {"name": "sampleIndex", "type": "long"},
    {"name": "byteLength", "type": "long"},
    {"name": "checksum", "type": "long"}
  ]
}`

// checkpointLog appends BrickMeta records to an avro object-container file.
// One per Layout, shared across all channels.
//
// goavro's OCFWriter always starts a fresh header and sync marker when
// constructed, so a growing log cannot be built by repeatedly opening a
// writer over the same file handle (that would concatenate independent OCF
// streams). Instead, following internal/memorystore/avroCheckpoint.go's
// checkpoint pattern, every append reads back whatever records already
// exist, adds the new one, and rewrites the whole file as a single OCF
// stream. Checkpoint logs stay small (one record per brick, not per
// sample), so this is cheap in practice.
type checkpointLog struct {
	path   string
	codec  *goavro.Codec
	cached []BrickMeta
}

func openCheckpointLog(path string) (*checkpointLog, error) {
	codec, err := goavro.NewCodec(brickMetaSchema)
	if err != nil {
		return nil, fmt.Errorf("brickstore: brick meta codec: %w", err)
	}
	existing, err := readCheckpointLog(path)
	if err != nil {
		return nil, err
	}
	return &checkpointLog{path: path, codec: codec, cached: existing}, nil
}

func (c *checkpointLog) append(m BrickMeta) error {
	c.cached = append(c.cached, m)

	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("brickstore: rewrite checkpoint log: %w", err)
	}
	defer f.Close()

	writer, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               f,
		Codec:           c.codec,
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		return fmt.Errorf("brickstore: ocf writer: %w", err)
	}

	records := make([]any, len(c.cached))
	for i, rm := range c.cached {
		records[i] = map[string]any{
			"channel":        rm.Channel,
			"primaryIndex":   rm.PrimaryIndex,
			"secondaryIndex": rm.SecondaryIndex,
			"sampleIndex":    rm.SampleIndex,
			"byteLength":     rm.ByteLength,
			"checksum":       int64(rm.Checksum),
		}
	}
	return writer.Append(records)
}

func (c *checkpointLog) close() error {
	return nil
}

// readCheckpointLog replays every BrickMeta record in an existing
// checkpoint file, in append order, for restart recovery (OpenForRead, or
// resuming a partially-written OpenForWrite volume).
func readCheckpointLog(path string) ([]BrickMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("brickstore: open checkpoint log: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return nil, nil
	}

	br := bufio.NewReader(f)
	reader, err := goavro.NewOCFReader(br)
	if err != nil {
		return nil, fmt.Errorf("brickstore: ocf reader: %w", err)
	}

	var out []BrickMeta
	for reader.Scan() {
		rec, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("brickstore: read brick meta: %w", err)
		}
		m, ok := rec.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, BrickMeta{
			Channel:        m["channel"].(string),
			PrimaryIndex:   m["primaryIndex"].(int64),
			SecondaryIndex: m["secondaryIndex"].(int64),
			SampleIndex:    m["sampleIndex"].(int64),
			ByteLength:     m["byteLength"].(int64),
			Checksum:       uint64(m["checksum"].(int64)),
		})
	}
	return out, nil
}
