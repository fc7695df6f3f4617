// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Benchtide/services/harness"
	"github.com/AleutianAI/Benchtide/services/harness/compare"
)

// EvaluateRequest is the body accepted by POST /v1/evaluate and by the
// websocket evaluate endpoint.
type EvaluateRequest struct {
	// Spec names a registered evaluation spec.
	Spec string `json:"spec" binding:"required"`

	// Name optionally labels the produced result, e.g. with a model
	// variant. Empty keeps the spec name.
	Name string `json:"name"`

	// Predictions are the model outputs to score.
	Predictions []any `json:"predictions" binding:"required"`

	// GroundTruth optionally overrides the spec's dataset loader.
	GroundTruth []any `json:"ground_truth"`

	// Parallel selects concurrent evaluation. Defaults to true.
	Parallel *bool `json:"parallel"`

	// TimeoutMS is the batch deadline in milliseconds. Zero keeps the
	// runner default.
	TimeoutMS int64 `json:"timeout_ms"`

	// Workers bounds the worker pool. Zero keeps the runner default.
	Workers int `json:"workers"`
}

// CompareRequest is the body accepted by POST /v1/compare.
type CompareRequest struct {
	// Names are stored run names to compare. At least two.
	Names []string `json:"names" binding:"required"`
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ListSpecs returns the registered spec names.
func ListSpecs(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"specs": deps.Registry.List()})
	}
}

// ListResults returns the names of all stored runs.
func ListResults(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store not configured"})
			return
		}
		names, err := deps.Store.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": names})
	}
}

// GetResult returns one stored run by name.
func GetResult(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store not configured"})
			return
		}
		result, err := deps.Store.Get(c.Request.Context(), c.Param("name"))
		if err != nil {
			if errors.Is(err, harness.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// DeleteResult removes one stored run by name.
func DeleteResult(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store not configured"})
			return
		}
		if err := deps.Store.Delete(c.Request.Context(), c.Param("name")); err != nil {
			if errors.Is(err, harness.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": c.Param("name")})
	}
}

// Evaluate runs a registered spec against the posted predictions,
// persists the result when a store is configured, and returns it.
func Evaluate(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EvaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := runEvaluation(c, deps, &req)
		if err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, harness.ErrNotFound):
				status = http.StatusNotFound
			case errors.Is(err, harness.ErrLengthMismatch), errors.Is(err, harness.ErrNoGroundTruth):
				status = http.StatusBadRequest
			case errors.Is(err, harness.ErrEvaluationTimeout):
				status = http.StatusGatewayTimeout
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// CompareRuns loads the named stored runs and returns the comparison
// report: metric table, winners, rankings, and pairwise tests.
func CompareRuns(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "result store not configured"})
			return
		}

		var req CompareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		results, err := deps.Store.GetAll(c.Request.Context(), req.Names)
		if err != nil {
			if errors.Is(err, harness.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		report, err := compare.Compare(results)
		if err != nil {
			if errors.Is(err, harness.ErrInsufficientData) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// runEvaluation resolves the spec, maps the request onto run options,
// executes the run, and persists and records the result.
func runEvaluation(c *gin.Context, deps *Deps, req *EvaluateRequest) (*harness.Result, error) {
	spec, ok := deps.Registry.Get(req.Spec)
	if !ok {
		return nil, harness.ErrNotFound
	}

	opts := []harness.RunOption{harness.WithName(req.Name)}
	if req.GroundTruth != nil {
		opts = append(opts, harness.WithGroundTruth(req.GroundTruth))
	}
	if req.Parallel != nil {
		opts = append(opts, harness.WithParallel(*req.Parallel))
	}
	if req.TimeoutMS > 0 {
		opts = append(opts, harness.WithTimeout(time.Duration(req.TimeoutMS)*time.Millisecond))
	}
	if req.Workers > 0 {
		opts = append(opts, harness.WithWorkers(req.Workers))
	}

	result, err := deps.Runner.Run(c.Request.Context(), spec, req.Predictions, opts...)
	if err != nil {
		return nil, err
	}
	finishRun(c.Request.Context(), deps, result)
	return result, nil
}

// finishRun persists and records a completed run. Persistence and
// telemetry failures are logged, not surfaced; the evaluation itself
// succeeded and the caller still gets its result.
func finishRun(ctx context.Context, deps *Deps, result *harness.Result) {
	if deps.Store != nil {
		if err := deps.Store.Put(ctx, result); err != nil {
			deps.Logger.Error("persisting result failed",
				slog.String("result", result.Name),
				slog.String("error", err.Error()))
		}
	}
	if deps.Sink != nil {
		if err := deps.Sink.RecordRun(ctx, result); err != nil {
			deps.Logger.Warn("telemetry sink rejected run",
				slog.String("result", result.Name),
				slog.String("error", err.Error()))
		}
	}
}
