// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of seismicpipe.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config decodes the YAML job configuration that describes a
// pipeline run: the attribute schema, the stage list and per-stage
// parameters. Unlike the teacher's JSON-schema-validated, statically typed
// ProgramConfig, a pipeline job config is an open-ended tree (stage
// parameters vary per stage type), so it is decoded into a generic
// map[string]any and read through dotted-key accessors instead of a fixed
// struct.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config wraps a decoded YAML document and offers dotted-path lookups,
// e.g. GetString("stages.output.brickSize", "").
type Config struct {
	root map[string]any
}

// Decode parses raw YAML bytes into a Config.
func Decode(raw []byte) (*Config, error) {
	var root map[string]any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &Config{root: root}, nil
}

// Sub returns the Config rooted at the given dotted path, for handing a
// stage its own parameter subtree. Returns an empty Config if the path does
// not resolve to a map.
func (c *Config) Sub(path string) *Config {
	v, ok := c.lookup(path)
	if !ok {
		return &Config{root: map[string]any{}}
	}
	m, ok := asMap(v)
	if !ok {
		return &Config{root: map[string]any{}}
	}
	return &Config{root: m}
}

func (c *Config) lookup(path string) (any, bool) {
	if path == "" {
		return c.root, true
	}
	var cur any = c.root
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprintf("%v", k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// Has reports whether path resolves to any value.
func (c *Config) Has(path string) bool {
	_, ok := c.lookup(path)
	return ok
}

// GetString returns the string at path, or def if absent.
func (c *Config) GetString(path, def string) string {
	v, ok := c.lookup(path)
	if !ok {
		return def
	}
	return fmt.Sprintf("%v", v)
}

// GetInt returns the integer at path, or def if absent or not numeric.
func (c *Config) GetInt(path string, def int) int {
	v, ok := c.lookup(path)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return def
		}
		return i
	default:
		return def
	}
}

// GetFloat returns the float64 at path, or def if absent or not numeric.
func (c *Config) GetFloat(path string, def float64) float64 {
	v, ok := c.lookup(path)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

// GetBool returns the boolean at path, or def if absent or not boolean.
func (c *Config) GetBool(path string, def bool) bool {
	v, ok := c.lookup(path)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// GetStringSlice returns the string list at path, or nil if absent.
func (c *Config) GetStringSlice(path string) []string {
	v, ok := c.lookup(path)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = fmt.Sprintf("%v", it)
	}
	return out
}

// GetSlice returns the raw list of sub-documents at path (e.g. the stage
// list), each wrapped as a Config, or nil if absent.
func (c *Config) GetSlice(path string) []*Config {
	v, ok := c.lookup(path)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]*Config, 0, len(items))
	for _, it := range items {
		m, ok := asMap(it)
		if !ok {
			m = map[string]any{}
		}
		out = append(out, &Config{root: m})
	}
	return out
}

// Encode serialises c back to YAML text, the inverse of Decode. Job wiring
// uses this to hand a stage's own config subtree to Stage.Init, which
// expects a raw YAML string rather than a *Config.
func (c *Config) Encode() ([]byte, error) {
	out, err := yaml.Marshal(c.root)
	if err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return out, nil
}
