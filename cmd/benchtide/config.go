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
	"os"
	"path/filepath"
)

// Config is the benchtide.yaml configuration shared by every command.
type Config struct {
	Logging struct {
		// Level is debug, info, warn, or error.
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Store struct {
		// Path is the badger directory for stored results.
		Path string `yaml:"path"`
	} `yaml:"store"`

	Datasets struct {
		// Dir holds ground-truth dataset files (yaml/yml/json).
		Dir string `yaml:"dir"`
		// Watch enables hot reload of edited dataset files while the
		// server runs.
		Watch bool `yaml:"watch"`
	} `yaml:"datasets"`

	Server struct {
		// Addr is the HTTP listen address for `benchtide serve`.
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Telemetry struct {
		// Enabled turns on OTel tracing/metrics in serve mode.
		Enabled     bool   `yaml:"enabled"`
		Environment string `yaml:"environment"`
	} `yaml:"telemetry"`

	Influx struct {
		// URL enables the Influx sink when non-empty. Token falls back
		// to INFLUXDB_TOKEN.
		URL    string `yaml:"url"`
		Token  string `yaml:"token"`
		Org    string `yaml:"org"`
		Bucket string `yaml:"bucket"`
	} `yaml:"influx"`
}

// applyDefaults fills in the values a missing or sparse config file
// leaves empty.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Store.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Store.Path = filepath.Join(home, ".benchtide", "results")
	}
	if c.Datasets.Dir == "" {
		c.Datasets.Dir = "datasets"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":12310"
	}
	if c.Influx.Org == "" {
		c.Influx.Org = "benchtide"
	}
	if c.Influx.Bucket == "" {
		c.Influx.Bucket = "evaluations"
	}
}
