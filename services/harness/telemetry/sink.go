// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"

	"github.com/AleutianAI/Benchtide/services/harness"
)

// Sink receives completed evaluation results for external tracking.
// Sinks observe runs; failures to record never fail the run itself,
// so callers log sink errors instead of propagating them.
type Sink interface {
	// RecordRun forwards one completed result.
	RecordRun(ctx context.Context, result *harness.Result) error

	// Close flushes and releases the sink.
	Close() error
}

// NoOpSink discards everything. Useful as a default.
type NoOpSink struct{}

// RecordRun discards the result.
func (NoOpSink) RecordRun(context.Context, *harness.Result) error { return nil }

// Close is a no-op.
func (NoOpSink) Close() error { return nil }

// CompositeSink fans each result out to every child sink.
//
// Thread Safety: Safe for concurrent use when all children are.
type CompositeSink struct {
	sinks []Sink
}

// NewCompositeSink combines sinks. Nil entries are skipped.
func NewCompositeSink(sinks ...Sink) *CompositeSink {
	composite := &CompositeSink{}
	for _, s := range sinks {
		if s != nil {
			composite.sinks = append(composite.sinks, s)
		}
	}
	return composite
}

// RecordRun forwards to every child, collecting errors so one failing
// sink does not starve the others.
func (c *CompositeSink) RecordRun(ctx context.Context, result *harness.Result) error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.RecordRun(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sink errors: %v", errs)
	}
	return nil
}

// Close closes every child.
func (c *CompositeSink) Close() error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sink close errors: %v", errs)
	}
	return nil
}

var (
	_ Sink = NoOpSink{}
	_ Sink = (*CompositeSink)(nil)
)
