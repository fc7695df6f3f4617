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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Benchtide/pkg/ux"
	"github.com/AleutianAI/Benchtide/services/harness"
	"github.com/AleutianAI/Benchtide/services/harness/dataset"
	"github.com/AleutianAI/Benchtide/services/harness/server"
	"github.com/AleutianAI/Benchtide/services/harness/telemetry"
)

func runServe(cmd *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.Telemetry.Enabled {
		tcfg := telemetry.DefaultConfig()
		if config.Telemetry.Environment != "" {
			tcfg.Environment = config.Telemetry.Environment
		}
		shutdown, err := telemetry.Init(ctx, tcfg)
		if err != nil {
			ux.Error(fmt.Sprintf("Telemetry init failed: %v", err))
			return
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("Telemetry shutdown failed", "error", err)
			}
		}()
	}

	st, err := openStore()
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to open result store: %v", err))
		return
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("Failed to close result store", "error", closeErr)
		}
	}()

	loader := newDatasetLoader()
	if config.Datasets.Watch {
		watcher, err := dataset.NewWatcher(config.Datasets.Dir, loader, func(name string) {
			slog.Info("Dataset reloaded", "dataset", name)
		})
		if err != nil {
			slog.Warn("Dataset watcher unavailable", "error", err)
		} else {
			go watcher.Start(ctx)
			defer func() {
				if stopErr := watcher.Stop(); stopErr != nil {
					slog.Warn("Failed to stop dataset watcher", "error", stopErr)
				}
			}()
		}
	}

	sink := newSink()
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			slog.Warn("Failed to close telemetry sink", "error", closeErr)
		}
	}()

	router := server.NewRouter(&server.Deps{
		Registry: newRegistry(),
		Runner:   harness.NewRunner(loader),
		Store:    st,
		Sink:     sink,
	})

	addr := serveAddr
	if addr == "" {
		addr = config.Server.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ux.Success(fmt.Sprintf("Benchtide listening on %s", addr))

	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			ux.Error(fmt.Sprintf("Server failed: %v", err))
		}
	}
}
