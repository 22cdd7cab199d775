// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api serves decoded asset identities, token metadata and
// transaction flows over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultListenAddress = ":3000"
	DefaultMaxBatchUnits = 100
)

// ApiConfig holds configuration for the API server
type ApiConfig struct {
	ListenAddress string
	MaxBatchUnits int
	Resolver      MetadataResolver
	Transactions  TransactionSource
	Logos         LogoResolver
	Logger        *slog.Logger
	PromRegistry  prometheus.Registerer
}

// Api is the HTTP API server.
type Api struct {
	config     ApiConfig
	logger     *slog.Logger
	httpServer *http.Server
	handler    http.Handler
	metrics    apiMetrics
	mu         sync.Mutex
}

// New creates a new API server instance.
func New(cfg ApiConfig) (*Api, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("no metadata resolver provided")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.MaxBatchUnits <= 0 {
		cfg.MaxBatchUnits = DefaultMaxBatchUnits
	}
	a := &Api{
		config: cfg,
		logger: logger,
	}
	a.metrics.init(cfg.PromRegistry)

	mux := http.NewServeMux()
	a.handle(mux, "GET /health", a.handleHealth)
	a.handle(mux, "GET /api/v0/assets/{unit}/decode", a.handleDecode)
	a.handle(mux, "GET /api/v0/tokenmetadata/{unit}", a.handleTokenMetadata)
	a.handle(mux, "POST /api/v0/tokenmetadata", a.handleTokenMetadataBatch)
	a.handle(mux, "GET /api/v0/txs/{hash}/flows", a.handleTxFlows)
	a.handle(mux, "POST /api/v0/flows", a.handleFlows)
	a.handler = mux
	return a, nil
}

// Handler returns the API's HTTP handler
func (a *Api) Handler() http.Handler {
	return a.handler
}

// Start starts the HTTP server in a background goroutine.
func (a *Api) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	a.logger.Info("API listener started on " + ln.Addr().String())

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (a *Api) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	a.logger.Debug("shutting down API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

// handle registers a handler and records request metrics under its pattern
func (a *Api) handle(
	mux *http.ServeMux,
	pattern string,
	handler http.HandlerFunc,
) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		handler(sw, r)
		a.metrics.observe(pattern, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
