// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

// Package main is the entry point for the Parley server.
//
// Parley is a self-hosted realtime messaging backend: REST endpoints
// for accounts, conversations and history, and a websocket event
// surface for message fan-out, typing indicators, read receipts and
// presence.
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered load (env > config.yaml > defaults)
//  2. Logging: zerolog, configured from the logging section
//  3. Store: embedded BadgerDB with a background value log GC loop
//  4. Auth: JWT manager (HS256) for the REST and websocket surfaces
//  5. Realtime: session registry and hub
//  6. HTTP: Chi router with CORS, rate limiting and Prometheus metrics
//  7. Supervision: suture tree running the hub and the HTTP server
//
// # Configuration
//
// Required settings:
//   - JWT_SECRET: 32+ character token signing secret
//   - DB_PATH: Badger data directory (or DB_IN_MEMORY=true for dev)
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener stops
// accepting connections, in-flight requests drain (10s timeout), every
// websocket session receives a close frame, and the store closes last
// so queued writes land.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parley-im/parley/internal/api"
	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/config"
	"github.com/parley-im/parley/internal/logging"
	"github.com/parley-im/parley/internal/realtime"
	"github.com/parley-im/parley/internal/store"
	"github.com/parley-im/parley/internal/supervisor"
)

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

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("db_in_memory", cfg.Database.InMemory).
		Msg("Configuration loaded")

	db, err := store.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Msg("Store opened")

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db.StartGC(ctx, cfg.Database.GCInterval, cfg.Database.GCDiscardRatio)

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(cfg.Realtime, db, registry)

	handler := api.NewHandler(cfg, db, jwtManager, hub)
	router := api.NewRouter(cfg, handler, auth.NewMiddleware(jwtManager))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		// No blanket write timeout: websocket connections outlive any
		// sane request deadline. Handlers set their own deadlines.
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(hub)
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Parley stopped gracefully")
}
