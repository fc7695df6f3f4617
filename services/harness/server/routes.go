// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the harness over HTTP: listing specs and
// stored results, triggering evaluations, comparing runs, and
// streaming run progress over a websocket.
package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/Benchtide/services/harness"
	"github.com/AleutianAI/Benchtide/services/harness/store"
	"github.com/AleutianAI/Benchtide/services/harness/telemetry"
)

// Deps carries the collaborators the handlers close over.
type Deps struct {
	// Registry resolves evaluation specs by name.
	Registry *harness.Registry

	// Runner executes evaluations.
	Runner *harness.Runner

	// Store persists results. May be nil; evaluate responses are then
	// not persisted and result routes return 503.
	Store *store.Store

	// Sink receives completed runs. May be nil.
	Sink telemetry.Sink

	// Logger for handler-level events. Nil selects slog.Default.
	Logger *slog.Logger
}

// NewRouter builds the gin engine with all harness routes.
func NewRouter(deps *Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("benchtide-harness"))

	router.GET("/health", HealthCheck)
	if handler := telemetry.MetricsHandler(); handler != nil {
		router.GET("/metrics", gin.WrapH(handler))
	}

	v1 := router.Group("/v1")
	{
		v1.GET("/specs", ListSpecs(deps))
		v1.POST("/evaluate", Evaluate(deps))
		v1.GET("/evaluate/ws", EvaluateWS(deps))
		v1.POST("/compare", CompareRuns(deps))

		results := v1.Group("/results")
		{
			results.GET("", ListResults(deps))
			results.GET("/:name", GetResult(deps))
			results.DELETE("/:name", DeleteResult(deps))
		}
	}
	return router
}
