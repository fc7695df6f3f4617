// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.Logging.Level != "info" {
		t.Errorf("expected info default, got %q", cfg.Logging.Level)
	}
	if cfg.Store.Path == "" {
		t.Error("expected a default store path")
	}
	if cfg.Datasets.Dir != "datasets" {
		t.Errorf("unexpected dataset dir: %q", cfg.Datasets.Dir)
	}
	if cfg.Server.Addr != ":12310" {
		t.Errorf("unexpected server addr: %q", cfg.Server.Addr)
	}
	if cfg.Influx.Org != "benchtide" || cfg.Influx.Bucket != "evaluations" {
		t.Errorf("unexpected influx defaults: %q/%q", cfg.Influx.Org, cfg.Influx.Bucket)
	}
}

func TestConfigParsePreservesValues(t *testing.T) {
	raw := `
logging:
  level: debug
store:
  path: /tmp/benchtide-test
datasets:
  dir: /data/goldens
  watch: true
server:
  addr: ":9000"
influx:
  url: http://localhost:8086
  org: team
  bucket: evals
`
	var cfg Config
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	cfg.applyDefaults()

	if cfg.Logging.Level != "debug" {
		t.Errorf("level overridden: %q", cfg.Logging.Level)
	}
	if cfg.Store.Path != "/tmp/benchtide-test" {
		t.Errorf("store path overridden: %q", cfg.Store.Path)
	}
	if !cfg.Datasets.Watch || cfg.Datasets.Dir != "/data/goldens" {
		t.Errorf("dataset settings overridden: %+v", cfg.Datasets)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr overridden: %q", cfg.Server.Addr)
	}
	if cfg.Influx.Org != "team" || cfg.Influx.Bucket != "evals" {
		t.Errorf("influx overridden: %+v", cfg.Influx)
	}
}

func TestRegisterBuiltinSpecs(t *testing.T) {
	registry := newRegistry()
	for _, name := range []string{"qa_exact", "summarization", "code_go"} {
		if _, ok := registry.Get(name); !ok {
			t.Errorf("builtin spec %q not registered", name)
		}
	}
}
