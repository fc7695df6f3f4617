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
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/Benchtide/services/harness"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024 * 1024,
	WriteBufferSize: 1024 * 1024,
}

// progressInterval is how often in-flight runs report sample counts.
const progressInterval = 500 * time.Millisecond

// ProgressEvent is one frame on the evaluate websocket.
type ProgressEvent struct {
	Stage     string          `json:"stage"` // started, progress, completed, failed
	Spec      string          `json:"spec,omitempty"`
	Completed int64           `json:"completed,omitempty"`
	Total     int             `json:"total,omitempty"`
	Error     string          `json:"error,omitempty"`
	Result    *harness.Result `json:"result,omitempty"`
}

// wsConn serializes writes to a websocket connection. Gorilla
// connections allow only one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) send(event ProgressEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(event)
}

// progressSpec wraps a Spec and counts completed evaluations so the
// websocket handler can stream progress without touching the runner.
type progressSpec struct {
	harness.Spec
	completed atomic.Int64
}

func (p *progressSpec) Evaluate(ctx context.Context, prediction, truth any) (harness.MetricRecord, error) {
	record, err := p.Spec.Evaluate(ctx, prediction, truth)
	if err == nil {
		p.completed.Add(1)
	}
	return record, err
}

// Preprocess forwards to the wrapped spec's hook when it has one. The
// wrapper must not hide the inner spec's optional interfaces from the
// runner.
func (p *progressSpec) Preprocess(prediction any) (any, error) {
	if pre, ok := p.Spec.(harness.Preprocessor); ok {
		return pre.Preprocess(prediction)
	}
	return prediction, nil
}

// Postprocess forwards to the wrapped spec's hook when it has one.
func (p *progressSpec) Postprocess(record harness.MetricRecord) (harness.MetricRecord, error) {
	if post, ok := p.Spec.(harness.Postprocessor); ok {
		return post.Postprocess(record)
	}
	return record, nil
}

// EvaluateWS upgrades to a websocket, reads one EvaluateRequest, and
// streams started/progress/completed frames while the run executes.
//
// Description:
//
//	The run itself goes through the same path as POST /v1/evaluate
//	(including persistence and telemetry); the socket only adds a
//	progress channel. The connection closes after the terminal frame.
func EvaluateWS(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			deps.Logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		defer conn.Close()
		ws := &wsConn{conn: conn}

		var req EvaluateRequest
		if err := conn.ReadJSON(&req); err != nil {
			_ = ws.send(ProgressEvent{Stage: "failed", Error: "invalid evaluate request: " + err.Error()})
			return
		}
		spec, ok := deps.Registry.Get(req.Spec)
		if !ok {
			_ = ws.send(ProgressEvent{Stage: "failed", Spec: req.Spec, Error: harness.ErrNotFound.Error()})
			return
		}

		total := len(req.Predictions)
		if err := ws.send(ProgressEvent{Stage: "started", Spec: req.Spec, Total: total}); err != nil {
			return
		}

		counting := &progressSpec{Spec: spec}
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(progressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					_ = ws.send(ProgressEvent{
						Stage:     "progress",
						Spec:      req.Spec,
						Completed: counting.completed.Load(),
						Total:     total,
					})
				}
			}
		}()

		result, err := runWSEvaluation(c.Request.Context(), deps, counting, &req)
		close(done)

		if err != nil {
			_ = ws.send(ProgressEvent{Stage: "failed", Spec: req.Spec, Error: err.Error()})
			return
		}
		_ = ws.send(ProgressEvent{
			Stage:     "completed",
			Spec:      req.Spec,
			Completed: counting.completed.Load(),
			Total:     total,
			Result:    result,
		})
	}
}

// runWSEvaluation mirrors runEvaluation but takes an already-resolved
// (wrapped) spec and a plain context instead of a gin context.
func runWSEvaluation(ctx context.Context, deps *Deps, spec harness.Spec, req *EvaluateRequest) (*harness.Result, error) {
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

	result, err := deps.Runner.Run(ctx, spec, req.Predictions, opts...)
	if err != nil {
		return nil, err
	}
	finishRun(ctx, deps, result)
	return result, nil
}
