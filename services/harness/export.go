// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-openapi/strfmt"
)

// ExportFormat selects an export encoding.
type ExportFormat string

const (
	// FormatJSON encodes the export record as indented JSON.
	FormatJSON ExportFormat = "json"
	// FormatCSV encodes one row per aggregated metric.
	FormatCSV ExportFormat = "csv"
)

// ExportRecord is the stable interchange form of a Result, consumed
// by external tracking systems. The timestamp is ISO-8601.
type ExportRecord struct {
	Name       string                      `json:"evaluation_name"`
	Dataset    string                      `json:"dataset"`
	Samples    int                         `json:"samples"`
	DurationMS int64                       `json:"duration_ms"`
	Timestamp  strfmt.DateTime             `json:"timestamp"`
	Aggregates map[string]AggregatedMetric `json:"aggregates"`
	Metadata   map[string]any              `json:"metadata,omitempty"`
}

// ToExportRecord converts a Result into its interchange form.
func ToExportRecord(result *Result) ExportRecord {
	return ExportRecord{
		Name:       result.Name,
		Dataset:    result.Dataset,
		Samples:    result.Samples,
		DurationMS: result.Duration.Milliseconds(),
		Timestamp:  strfmt.DateTime(result.Timestamp),
		Aggregates: result.Aggregates,
		Metadata:   result.Metadata,
	}
}

// Export encodes a Result to the writer in the requested format.
//
// Outputs:
//   - error: ErrUnsupportedFormat for unknown formats, otherwise any
//     encoder error.
func Export(w io.Writer, result *Result, format ExportFormat) error {
	record := ToExportRecord(result)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	case FormatCSV:
		return exportCSV(w, record)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// exportCSV writes one row per metric, sorted by name for stable
// output.
func exportCSV(w io.Writer, record ExportRecord) error {
	cw := csv.NewWriter(w)
	header := []string{"evaluation", "dataset", "timestamp", "metric", "mean", "std", "min", "max", "median", "count"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	names := make([]string, 0, len(record.Aggregates))
	for name := range record.Aggregates {
		names = append(names, name)
	}
	sort.Strings(names)

	ts := record.Timestamp.String()
	for _, name := range names {
		agg := record.Aggregates[name]
		row := []string{
			record.Name,
			record.Dataset,
			ts,
			name,
			formatFloat(agg.Mean),
			formatFloat(agg.Std),
			formatFloat(agg.Min),
			formatFloat(agg.Max),
			formatFloat(agg.Median),
			strconv.Itoa(agg.Count),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
