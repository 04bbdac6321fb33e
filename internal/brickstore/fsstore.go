// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickstore

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/seismicpipe/seismicpipe/internal/logging"
)

// NumFlushWorkers bounds the worker pool fsLayout.Flush fans chunk writes
// across. Modelled on internal/memorystore/avroCheckpoint.go's
// NumAvroWorkers: chunk payload I/O is independent per chunk once the
// writer has decided a brick is complete, so flushing need not serialise.
var NumFlushWorkers = 4

type manifest struct {
	BrickSize int      `json:"brickSize"`
	Channels  []string `json:"channels"`
}

// fsLayout is the local-filesystem reference Layout: one subdirectory per
// channel, one compressed file per chunk, plus a shared checkpoint log.
type fsLayout struct {
	root      string
	brickSize int
	readOnly  bool

	mu       sync.Mutex
	channels map[string]*fsChannel
	ckpt     *checkpointLog
}

// OpenForWrite creates (or resumes) a volume at root with the given chunk
// side length. Resuming a partially-written volume replays its checkpoint
// log so ChunkVolumeDataHash is correct without rereading payloads.
func OpenForWrite(root string, brickSize int) (Layout, error) {
	if brickSize <= 0 {
		return nil, fmt.Errorf("brickstore: brickSize must be positive, got %d", brickSize)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("brickstore: mkdir %s: %w", root, err)
	}

	manifestPath := filepath.Join(root, "manifest.json")
	if raw, err := os.ReadFile(manifestPath); err == nil {
		var m manifest
		if err := json.Unmarshal(raw, &m); err == nil && m.BrickSize != brickSize {
			return nil, fmt.Errorf("brickstore: existing volume has brickSize %d, requested %d", m.BrickSize, brickSize)
		}
	}

	ckpt, err := openCheckpointLog(filepath.Join(root, "checkpoint.avro"))
	if err != nil {
		return nil, err
	}

	l := &fsLayout{root: root, brickSize: brickSize, channels: map[string]*fsChannel{}, ckpt: ckpt}
	if err := l.replay(); err != nil {
		ckpt.close()
		return nil, err
	}
	return l, nil
}

// OpenForRead opens an existing volume read-only, replaying its checkpoint
// log to populate every channel's chunk index.
func OpenForRead(root string) (Layout, error) {
	manifestPath := filepath.Join(root, "manifest.json")
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("brickstore: read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("brickstore: parse manifest: %w", err)
	}

	l := &fsLayout{root: root, brickSize: m.BrickSize, readOnly: true, channels: map[string]*fsChannel{}}
	if err := l.replay(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *fsLayout) replay() error {
	metas, err := readCheckpointLog(filepath.Join(l.root, "checkpoint.avro"))
	if err != nil {
		return err
	}
	for _, m := range metas {
		ch, err := l.Channel(m.Channel)
		if err != nil {
			return err
		}
		fc := ch.(*fsChannel)
		coord := [3]int{int(m.PrimaryIndex), int(m.SecondaryIndex), int(m.SampleIndex)}
		fc.noteCommitted(coord, m.Checksum)
	}
	return nil
}

func (l *fsLayout) BrickSize() int { return l.brickSize }

func (l *fsLayout) Channel(name string) (PageAccessor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, ok := l.channels[name]; ok {
		return ch, nil
	}
	dir := filepath.Join(l.root, name)
	if !l.readOnly {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("brickstore: mkdir channel %s: %w", name, err)
		}
	}
	cache, _ := lru.New[[3]int, *Page](64)
	ch := &fsChannel{
		name:      name,
		dir:       dir,
		brickSize: l.brickSize,
		layout:    l,
		cache:     cache,
		index:     map[[3]int]int{},
		dirty:     map[[3]int]*Page{},
	}
	l.channels[name] = ch
	return ch, nil
}

func (l *fsLayout) Flush() error {
	l.mu.Lock()
	channels := make([]*fsChannel, 0, len(l.channels))
	for _, ch := range l.channels {
		channels = append(channels, ch)
	}
	l.mu.Unlock()

	type job struct {
		ch    *fsChannel
		coord [3]int
		page  *Page
	}
	var jobs []job
	for _, ch := range channels {
		ch.mu.Lock()
		for coord, p := range ch.dirty {
			jobs = append(jobs, job{ch: ch, coord: coord, page: p})
		}
		ch.dirty = map[[3]int]*Page{}
		ch.mu.Unlock()
	}
	if len(jobs) == 0 {
		return nil
	}

	workCh := make(chan job, len(jobs))
	errCh := make(chan error, len(jobs))
	var wg sync.WaitGroup
	workers := NumFlushWorkers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range workCh {
				if err := j.ch.writeChunkFile(j.coord, j.page); err != nil {
					logging.Errorf("brickstore: flush chunk %v/%v: %v", j.ch.name, j.coord, err)
					errCh <- err
				}
			}
		}()
	}
	for _, j := range jobs {
		workCh <- j
	}
	close(workCh)
	wg.Wait()
	close(errCh)

	var firstErr error
	for err := range errCh {
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	return l.writeManifest()
}

func (l *fsLayout) writeManifest() error {
	if l.readOnly {
		return nil
	}
	l.mu.Lock()
	names := make([]string, 0, len(l.channels))
	for n := range l.channels {
		names = append(names, n)
	}
	l.mu.Unlock()

	raw, err := json.Marshal(manifest{BrickSize: l.brickSize, Channels: names})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.root, "manifest.json"), raw, 0o644)
}

func (l *fsLayout) Commit() error {
	if err := l.Flush(); err != nil {
		return err
	}
	if l.ckpt != nil {
		return l.ckpt.close()
	}
	return nil
}

func (l *fsLayout) Close() error {
	if l.ckpt != nil {
		return l.ckpt.close()
	}
	return nil
}

// fsChannel is one channel's chunk index plus its pending-write buffer.
type fsChannel struct {
	name      string
	dir       string
	brickSize int
	layout    *fsLayout

	mu    sync.Mutex
	cache *lru.Cache[[3]int, *Page]
	index map[[3]int]int // coord -> hash (0 == uninitialised)
	order []([3]int)
	dirty map[[3]int]*Page
}

func (c *fsChannel) noteCommitted(coord [3]int, hash uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[coord]; !ok {
		c.order = append(c.order, coord)
	}
	if hash == 0 {
		hash = 1
	}
	c.index[coord] = int(hash)
}

func (c *fsChannel) ChunkCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *fsChannel) ChunkMinMax(i int, min, max *[3]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.order) {
		return fmt.Errorf("brickstore: chunk index %d out of range", i)
	}
	coord := c.order[i]
	for d := 0; d < 3; d++ {
		min[d] = coord[d] * c.brickSize
		max[d] = min[d] + c.brickSize - 1
	}
	return nil
}

func (c *fsChannel) ChunkVolumeDataHash(i int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.order) {
		return 0
	}
	return uint64(c.index[c.order[i]])
}

// CreatePage returns the writable page for the chunk at coord, allocating
// a zeroed buffer the first time this coordinate is seen. Pitch is fixed by
// the brick geometry: sample-axis stride 1, secondary stride brickSize,
// primary stride brickSize^2 — elements, not bytes; callers index into the
// byte buffer via format.Buffer views sized by the caller's element size.
func (c *fsChannel) CreatePage(coord [3]int) (*Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.dirty[coord]; ok {
		return p, nil
	}
	if p, ok := c.cache.Get(coord); ok {
		c.dirty[coord] = p
		return p, nil
	}
	bs := c.brickSize
	p := &Page{
		Buffer: make([]byte, 0),
		Pitch:  [3]int{1, bs, bs * bs},
	}
	if existing, err := c.readChunkFile(coord); err == nil {
		p.Buffer = existing
	}
	c.dirty[coord] = p
	if _, exists := c.index[coord]; !exists {
		c.index[coord] = 0
		c.order = append(c.order, coord)
	}
	return p, nil
}

// Commit marks a chunk non-empty and schedules it for the next Flush.
func (c *fsChannel) Commit(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.order) {
		return fmt.Errorf("brickstore: chunk index %d out of range", i)
	}
	coord := c.order[i]
	p, ok := c.dirty[coord]
	if !ok {
		return fmt.Errorf("brickstore: commit chunk %d: no pending page", i)
	}
	h := fnv.New64a()
	h.Write(p.Buffer)
	sum := h.Sum64()
	if sum == 0 {
		sum = 1
	}
	c.index[coord] = int(sum)
	c.cache.Add(coord, p)

	if c.layout.ckpt != nil {
		meta := BrickMeta{
			Channel:        c.name,
			PrimaryIndex:   int64(coord[0]),
			SecondaryIndex: int64(coord[1]),
			SampleIndex:    int64(coord[2]),
			ByteLength:     int64(len(p.Buffer)),
			Checksum:       sum,
		}
		if err := c.layout.ckpt.append(meta); err != nil {
			return fmt.Errorf("brickstore: append checkpoint: %w", err)
		}
	}
	return nil
}

func chunkFileName(coord [3]int) string {
	return fmt.Sprintf("%d_%d_%d.zst", coord[0], coord[1], coord[2])
}

func (c *fsChannel) writeChunkFile(coord [3]int, p *Page) error {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(p.Buffer, nil)
	path := filepath.Join(c.dir, chunkFileName(coord))
	return os.WriteFile(path, compressed, 0o644)
}

func (c *fsChannel) readChunkFile(coord [3]int) ([]byte, error) {
	path := filepath.Join(c.dir, chunkFileName(coord))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	return dec.DecodeAll(raw, nil)
}
