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

	"github.com/AleutianAI/Benchtide/services/harness"
	"github.com/AleutianAI/Benchtide/services/harness/dataset"
	"github.com/AleutianAI/Benchtide/services/harness/store"
	"github.com/AleutianAI/Benchtide/services/harness/telemetry"
)

// openStore opens the configured badger-backed result store.
func openStore() (*store.Store, error) {
	return store.Open(store.DefaultConfig(config.Store.Path))
}

// newRegistry builds a registry carrying the builtin specs.
func newRegistry() *harness.Registry {
	registry := harness.NewRegistry()
	registerBuiltinSpecs(registry)
	return registry
}

// newDatasetLoader wraps the configured dataset directory in a caching
// file loader.
func newDatasetLoader() *dataset.CachingLoader {
	return dataset.NewCachingLoader(dataset.NewFileLoader(config.Datasets.Dir))
}

// newSink composes the configured telemetry sinks. Influx is wired
// only when a URL is configured; token falls back to INFLUXDB_TOKEN.
func newSink() telemetry.Sink {
	if config.Influx.URL == "" {
		return telemetry.NoOpSink{}
	}
	token := config.Influx.Token
	if token == "" {
		token = os.Getenv("INFLUXDB_TOKEN")
	}
	return telemetry.NewCompositeSink(
		telemetry.NewInfluxSink(config.Influx.URL, token, config.Influx.Org, config.Influx.Bucket),
	)
}
