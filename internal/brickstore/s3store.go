// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package brickstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/seismicpipe/seismicpipe/internal/logging"
)

// OpenURLForWrite and OpenURLForRead dispatch on the url scheme: an
// "s3://" url is routed to the S3-backed layout (using default AWS
// credential/config resolution — LoadDefaultConfig's usual environment
// and shared-config chain applies, since stage config carries no way to
// pass a full S3StoreConfig today), anything else is treated as a local
// filesystem root. This is what lets Output/Input stay store-agnostic:
// they only ever see the Layout interface.
func OpenURLForWrite(url string, brickSize int) (Layout, error) {
	if strings.HasPrefix(url, "s3://") {
		return OpenS3ForWrite(url, brickSize, S3StoreConfig{})
	}
	return OpenForWrite(url, brickSize)
}

func OpenURLForRead(url string) (Layout, error) {
	if strings.HasPrefix(url, "s3://") {
		return OpenS3ForRead(url, S3StoreConfig{})
	}
	return OpenForRead(url)
}

// s3URL is an "s3://bucket/prefix" store location, as the Output/Input
// stages' url config option carries it. Everything under prefix is this
// volume's root: prefix/manifest.json, prefix/checkpoint.avro, and
// prefix/<channel>/<coord>.zst per brick.
type s3URL struct {
	bucket string
	prefix string
}

func parseS3URL(raw string) (s3URL, error) {
	if !strings.HasPrefix(raw, "s3://") {
		return s3URL{}, fmt.Errorf("brickstore: not an s3:// url: %s", raw)
	}
	rest := strings.TrimPrefix(raw, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return s3URL{}, fmt.Errorf("brickstore: s3 url missing bucket: %s", raw)
	}
	u := s3URL{bucket: parts[0]}
	if len(parts) == 2 {
		u.prefix = strings.TrimSuffix(parts[1], "/")
	}
	return u, nil
}

func (u s3URL) key(parts ...string) string {
	all := append([]string{u.prefix}, parts...)
	return strings.TrimPrefix(strings.Join(all, "/"), "/")
}

// s3Layout is the S3-backed Layout: same manifest/checkpoint/chunk-file
// scheme as fsLayout, with every "file" an S3 object instead of a local
// path. Grounded on the same PutObject/GetObject usage the teacher's
// pkg/archive/parquet.S3Target uses for its parquet archive backend.
type s3Layout struct {
	client    *s3.Client
	url       s3URL
	brickSize int
	readOnly  bool

	mu       sync.Mutex
	channels map[string]*s3Channel
	ckpt     *checkpointLog // local scratch copy; uploaded to S3 on Commit
}

// S3StoreConfig carries the credentials and endpoint overrides passed to
// OpenS3ForWrite/OpenS3ForRead. All fields are optional:
// LoadDefaultConfig's usual environment/shared-config resolution applies
// when they are left empty. The Output/Input stages reach S3 through
// OpenURLForWrite/OpenURLForRead, which always pass an empty one.
type S3StoreConfig struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// OpenS3ForWrite opens (or resumes) a volume at an s3:// url.
func OpenS3ForWrite(rawURL string, brickSize int, cfg S3StoreConfig) (Layout, error) {
	if brickSize <= 0 {
		return nil, fmt.Errorf("brickstore: brickSize must be positive, got %d", brickSize)
	}
	u, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(cfg)
	if err != nil {
		return nil, err
	}

	l := &s3Layout{client: client, url: u, brickSize: brickSize, channels: map[string]*s3Channel{}}

	if raw, err := l.getObject(u.key("manifest.json")); err == nil {
		var m manifest
		if err := json.Unmarshal(raw, &m); err == nil && m.BrickSize != brickSize {
			return nil, fmt.Errorf("brickstore: existing volume has brickSize %d, requested %d", m.BrickSize, brickSize)
		}
	}

	ckptPath, err := l.localScratchCheckpoint(u)
	if err != nil {
		return nil, err
	}
	ckpt, err := openCheckpointLog(ckptPath)
	if err != nil {
		return nil, err
	}
	l.ckpt = ckpt
	if err := l.replay(); err != nil {
		ckpt.close()
		return nil, err
	}
	return l, nil
}

// OpenS3ForRead opens an existing volume at an s3:// url, read-only.
func OpenS3ForRead(rawURL string, cfg S3StoreConfig) (Layout, error) {
	u, err := parseS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client(cfg)
	if err != nil {
		return nil, err
	}
	l := &s3Layout{client: client, url: u, readOnly: true, channels: map[string]*s3Channel{}}

	raw, err := l.getObject(u.key("manifest.json"))
	if err != nil {
		return nil, ErrNotFound
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("brickstore: parse manifest: %w", err)
	}
	l.brickSize = m.BrickSize

	ckptPath, err := l.localScratchCheckpoint(u)
	if err != nil {
		return nil, err
	}
	ckpt, err := openCheckpointLog(ckptPath)
	if err != nil {
		return nil, err
	}
	l.ckpt = ckpt
	if err := l.replay(); err != nil {
		return nil, err
	}
	return l, nil
}

func newS3Client(cfg S3StoreConfig) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("brickstore: load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// localScratchCheckpoint gives the shared checkpointLog machinery (which
// rewrites a whole local file per append) a private temp path per volume,
// keyed off the bucket+prefix so repeated opens of the same volume reuse
// the same scratch file within one process.
func (l *s3Layout) localScratchCheckpoint(u s3URL) (string, error) {
	dir := filepath.Join(os.TempDir(), "brickstore-s3-ckpt")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := strings.ReplaceAll(u.bucket+"_"+u.prefix, "/", "_")
	return filepath.Join(dir, name+".avro"), nil
}

func (l *s3Layout) getObject(key string) ([]byte, error) {
	out, err := l.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(l.url.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (l *s3Layout) putObject(key string, data []byte) error {
	_, err := l.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(l.url.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (l *s3Layout) replay() error {
	metas, err := readCheckpointLog(l.ckpt.path)
	if err != nil {
		return err
	}
	for _, m := range metas {
		ch, err := l.Channel(m.Channel)
		if err != nil {
			return err
		}
		sc := ch.(*s3Channel)
		coord := [3]int{int(m.PrimaryIndex), int(m.SecondaryIndex), int(m.SampleIndex)}
		sc.noteCommitted(coord, m.Checksum)
	}
	return nil
}

func (l *s3Layout) BrickSize() int { return l.brickSize }

func (l *s3Layout) Channel(name string) (PageAccessor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, ok := l.channels[name]; ok {
		return ch, nil
	}
	cache, _ := lru.New[[3]int, *Page](64)
	ch := &s3Channel{
		name:      name,
		layout:    l,
		brickSize: l.brickSize,
		cache:     cache,
		index:     map[[3]int]int{},
		dirty:     map[[3]int]*Page{},
	}
	l.channels[name] = ch
	return ch, nil
}

func (l *s3Layout) Flush() error {
	l.mu.Lock()
	channels := make([]*s3Channel, 0, len(l.channels))
	for _, ch := range l.channels {
		channels = append(channels, ch)
	}
	l.mu.Unlock()

	for _, ch := range channels {
		ch.mu.Lock()
		pending := ch.dirty
		ch.dirty = map[[3]int]*Page{}
		ch.mu.Unlock()

		for coord, p := range pending {
			if err := ch.writeChunkObject(coord, p); err != nil {
				logging.Errorf("brickstore: s3 flush chunk %v/%v: %v", ch.name, coord, err)
				return err
			}
		}
	}
	return l.writeManifest()
}

func (l *s3Layout) writeManifest() error {
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
	return l.putObject(l.url.key("manifest.json"), raw)
}

func (l *s3Layout) Commit() error {
	if err := l.Flush(); err != nil {
		return err
	}
	if l.ckpt == nil {
		return nil
	}
	if err := l.ckpt.close(); err != nil {
		return err
	}
	raw, err := os.ReadFile(l.ckpt.path)
	if err != nil {
		return err
	}
	return l.putObject(l.url.key("checkpoint.avro"), raw)
}

func (l *s3Layout) Close() error {
	if l.ckpt != nil {
		return l.ckpt.close()
	}
	return nil
}

// s3Channel mirrors fsChannel exactly, except chunk payloads live as S3
// objects rather than local files; the dirty-buffer and index bookkeeping
// is identical.
type s3Channel struct {
	name      string
	layout    *s3Layout
	brickSize int

	mu    sync.Mutex
	cache *lru.Cache[[3]int, *Page]
	index map[[3]int]int
	order [][3]int
	dirty map[[3]int]*Page
}

func (c *s3Channel) noteCommitted(coord [3]int, hash uint64) {
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

func (c *s3Channel) ChunkCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *s3Channel) ChunkMinMax(i int, min, max *[3]int) error {
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

func (c *s3Channel) ChunkVolumeDataHash(i int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.order) {
		return 0
	}
	return uint64(c.index[c.order[i]])
}

func (c *s3Channel) CreatePage(coord [3]int) (*Page, error) {
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
	p := &Page{Buffer: make([]byte, 0), Pitch: [3]int{1, bs, bs * bs}}
	if existing, err := c.readChunkObject(coord); err == nil {
		p.Buffer = existing
	}
	c.dirty[coord] = p
	if _, exists := c.index[coord]; !exists {
		c.index[coord] = 0
		c.order = append(c.order, coord)
	}
	return p, nil
}

func (c *s3Channel) Commit(i int) error {
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

func s3ChunkKey(prefix, channel string, coord [3]int) string {
	return fmt.Sprintf("%s/%s/%d_%d_%d.zst", prefix, channel, coord[0], coord[1], coord[2])
}

func (c *s3Channel) writeChunkObject(coord [3]int, p *Page) error {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(p.Buffer, nil)
	key := s3ChunkKey(c.layout.url.prefix, c.name, coord)
	return c.layout.putObject(key, compressed)
}

func (c *s3Channel) readChunkObject(coord [3]int) ([]byte, error) {
	key := s3ChunkKey(c.layout.url.prefix, c.name, coord)
	raw, err := c.layout.getObject(key)
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
