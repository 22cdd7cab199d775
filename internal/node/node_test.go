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
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blinklabs-io/tokenscope/internal/config"
	"github.com/blinklabs-io/tokenscope/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testConfig(backendUrl string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BindAddr = "127.0.0.1"
	cfg.ApiPort = 0
	cfg.MetricsPort = 0
	cfg.Storage = config.StorageMemory
	cfg.BackendUrl = backendUrl
	cfg.ShutdownTimeout = "5s"
	return cfg
}

func TestRunRequiresBackend(t *testing.T) {
	reg := prometheus.NewRegistry()
	err := run(
		context.Background(),
		testConfig(""),
		testLogger(),
		reg,
		reg,
	)
	assert.ErrorContains(t, err, "no backend URL")
}

func TestRunStartsAndStops(t *testing.T) {
	backendServer := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}),
	)
	defer backendServer.Close()
	cfg := testConfig(backendServer.URL)
	cfg.Storage = config.StorageSqlite
	cfg.DataDir = t.TempDir()
	reg := prometheus.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, testLogger(), reg, reg)
	}()
	// Give the listeners a moment to come up
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not shut down")
	}
}

func TestOpenStorage(t *testing.T) {
	for _, backend := range []string{
		config.StorageMemory,
		config.StorageBadger,
		config.StorageSqlite,
	} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig("http://localhost")
			cfg.Storage = backend
			cfg.DataDir = t.TempDir()
			s, err := openStorage(cfg, testLogger(), prometheus.NewRegistry())
			require.NoError(t, err)
			_, err = s.Get("missing")
			assert.ErrorIs(t, err, store.ErrNotFound)
			require.NoError(t, s.Set("k", []byte("v")))
			val, err := s.Get("k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), val)
			require.NoError(t, s.Close())
		})
	}
	cfg := testConfig("http://localhost")
	cfg.Storage = "postgres"
	_, err := openStorage(cfg, testLogger(), prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestSetupTracingStdout(t *testing.T) {
	shutdown, err := setupTracing(context.Background(), true)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
