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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/blinklabs-io/tokenscope/api"
	"github.com/blinklabs-io/tokenscope/backend"
	"github.com/blinklabs-io/tokenscope/internal/config"
	"github.com/blinklabs-io/tokenscope/internal/version"
	"github.com/blinklabs-io/tokenscope/ipfs"
	"github.com/blinklabs-io/tokenscope/tokenmeta"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run starts the service with the default Prometheus registry and blocks
// until SIGINT or SIGTERM is received
func Run(cfg *config.Config, logger *slog.Logger) error {
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	return run(
		signalCtx,
		cfg,
		logger,
		prometheus.DefaultRegisterer,
		prometheus.DefaultGatherer,
	)
}

func run(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	registerer prometheus.Registerer,
	gatherer prometheus.Gatherer,
) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	if cfg.BackendUrl == "" {
		return errors.New("no backend URL configured")
	}
	shutdownTimeout := cfg.ShutdownTimeoutDuration()
	var shutdownFuncs []func(context.Context) error
	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		var err error
		// Run in reverse order of setup
		for i := len(shutdownFuncs) - 1; i >= 0; i-- {
			if fnErr := shutdownFuncs[i](shutdownCtx); fnErr != nil {
				err = errors.Join(err, fnErr)
			}
		}
		return err
	}
	// Configure tracing
	if cfg.Tracing {
		tracingShutdown, err := setupTracing(ctx, cfg.TracingStdout)
		if err != nil {
			return err
		}
		shutdownFuncs = append(shutdownFuncs, tracingShutdown)
	}
	// Open cache storage
	storage, err := openStorage(cfg, logger, registerer)
	if err != nil {
		return errors.Join(err, shutdown())
	}
	shutdownFuncs = append(
		shutdownFuncs,
		func(context.Context) error {
			return storage.Close()
		},
	)
	// Backend client
	client, err := backend.NewClient(
		cfg.BackendUrl,
		backend.WithHTTPClient(
			&http.Client{Timeout: cfg.BackendTimeoutDuration()},
		),
		backend.WithLogger(logger),
		backend.WithUserAgent("tokenscope/"+version.Version),
	)
	if err != nil {
		return errors.Join(err, shutdown())
	}
	cache, err := tokenmeta.New(
		client,
		tokenmeta.WithLogger(logger),
		tokenmeta.WithPromRegistry(registerer),
		tokenmeta.WithStorage(storage),
		tokenmeta.WithShortBackoff(cfg.ShortBackoffDuration()),
		tokenmeta.WithLongBackoff(cfg.LongBackoffDuration()),
		tokenmeta.WithBatchSize(cfg.BatchSize),
	)
	if err != nil {
		return errors.Join(
			fmt.Errorf("failed to load token metadata cache: %w", err),
			shutdown(),
		)
	}
	gateways := cfg.IpfsGateways
	if len(gateways) == 0 {
		gateways = ipfs.DefaultGateways
	}
	prober := ipfs.NewProber(
		gateways,
		&http.Client{Timeout: ipfs.DefaultProbeTimeout},
		logger,
	)
	apiServer, err := api.New(api.ApiConfig{
		ListenAddress: net.JoinHostPort(
			cfg.BindAddr,
			strconv.FormatUint(uint64(cfg.ApiPort), 10),
		),
		MaxBatchUnits: cfg.MaxBatchUnits,
		Resolver:      cache,
		Transactions:  client,
		Logos:         prober,
		Logger:        logger,
		PromRegistry:  registerer,
	})
	if err != nil {
		return errors.Join(err, shutdown())
	}
	if err := apiServer.Start(ctx); err != nil {
		return errors.Join(err, shutdown())
	}
	shutdownFuncs = append(shutdownFuncs, apiServer.Stop)
	// Metrics listener
	if cfg.MetricsPort > 0 {
		metricsServer, err := startMetrics(cfg, logger, gatherer)
		if err != nil {
			return errors.Join(err, shutdown())
		}
		shutdownFuncs = append(shutdownFuncs, metricsServer.Shutdown)
	}
	logger.Info(
		"tokenscope started",
		"component", "node",
		"storage", cfg.Storage,
		"backend", cfg.BackendUrl,
	)
	<-ctx.Done()
	logger.Info(
		"signal received, initiating graceful shutdown",
		"component", "node",
	)
	if err := shutdown(); err != nil {
		logger.Error(
			"shutdown errors occurred",
			"component", "node",
			"error", err,
		)
		return err
	}
	logger.Info("shutdown complete", "component", "node")
	return nil
}

func startMetrics(
	cfg *config.Config,
	logger *slog.Logger,
	gatherer prometheus.Gatherer,
) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr: net.JoinHostPort(
			cfg.BindAddr,
			strconv.FormatUint(uint64(cfg.MetricsPort), 10),
		),
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ln, err := net.Listen("tcp", metricsServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start metrics listener: %w", err)
	}
	logger.Info(
		"serving prometheus metrics on "+ln.Addr().String(),
		"component", "node",
	)
	go func() {
		if err := metricsServer.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error(
				fmt.Sprintf("metrics listener failed: %s", err),
				"component", "node",
			)
		}
	}()
	return metricsServer, nil
}
