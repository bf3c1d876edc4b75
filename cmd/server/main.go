// RangeFlow - Range Messaging and Administration
// Copyright 2026 RangeFlow contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rangeflow/rangeflow

// Package main is the entry point for the RangeFlow server.
//
// RangeFlow is a self-hosted messaging and administration service for
// office units ("ranges"): ranges authenticate, exchange short
// prioritized notes, receive realtime updates over WebSocket and
// browser push notifications, while administrators manage accounts and
// an audit log.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, YAML, env)
//  2. Logging: zerolog, configured from the logging section
//  3. Storage: BadgerDB document store
//  4. WebSocket Hub: realtime fan-out with per-range rooms
//  5. Push Dispatcher: Web Push with VAPID (disabled without keys)
//  6. HTTP Server: REST API under /api plus /metrics
//
// # Configuration
//
// Required:
//   - JWT_SECRET: 32+ character secret for token signing
//
// Common:
//   - HTTP_PORT (default 5000), BADGER_PATH (default /data/rangeflow)
//   - VAPID_PUBLIC_KEY / VAPID_PRIVATE_KEY: enable push notifications
//   - CORS_ORIGINS: comma-separated allowed origins
//   - LOG_LEVEL, LOG_FORMAT
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, waits up to 10 seconds for in-flight requests,
// closes the hub, drains pending push deliveries, and closes the store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rangeflow/rangeflow/internal/activity"
	"github.com/rangeflow/rangeflow/internal/api"
	"github.com/rangeflow/rangeflow/internal/auth"
	"github.com/rangeflow/rangeflow/internal/config"
	"github.com/rangeflow/rangeflow/internal/hub"
	"github.com/rangeflow/rangeflow/internal/logging"
	"github.com/rangeflow/rangeflow/internal/push"
	"github.com/rangeflow/rangeflow/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config) error {
	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Err(err).Msg("failed to close store")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return err
	}

	h := hub.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := h.RunWithContext(hubCtx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Err(err).Msg("websocket hub stopped unexpectedly")
		}
	}()

	recorder := activity.NewRecorder(st, h)
	dispatcher := push.NewDispatcher(cfg.Push, st)
	authSvc := auth.NewService(st, jwtManager, recorder, cfg)
	authMW := auth.NewMiddleware(jwtManager, st)
	handler := api.NewHandler(st, authSvc, jwtManager, h, recorder, dispatcher, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, authMW, cfg),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("addr", srv.Addr).
			Bool("push_enabled", dispatcher != nil).
			Msg("RangeFlow server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		stopHub()
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Err(err).Msg("http server shutdown failed")
	}

	stopHub()
	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
	}

	dispatcher.Wait()
	logging.Info().Msg("RangeFlow server stopped")
	return nil
}
