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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokenscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, "")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 5*time.Minute, cfg.ShortBackoffDuration())
	assert.Equal(t, 24*time.Hour, cfg.LongBackoffDuration())
	assert.Equal(t, 15*time.Second, cfg.BackendTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeoutDuration())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
backendUrl: https://api.example.com
storage: sqlite
shortBackoff: 1m
batchSize: 4
ipfsGateways:
  - https://gw1.example/ipfs/
  - https://gw2.example/ipfs/
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.BackendUrl)
	assert.Equal(t, StorageSqlite, cfg.Storage)
	assert.Equal(t, time.Minute, cfg.ShortBackoffDuration())
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Len(t, cfg.IpfsGateways, 2)
	// Untouched values keep their defaults
	assert.Equal(t, uint(3000), cfg.ApiPort)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfigFile(t, "storage: sqlite\n")
	t.Setenv("TOKENSCOPE_STORAGE", "memory")
	t.Setenv("TOKENSCOPE_API_PORT", "8080")
	t.Setenv("TOKENSCOPE_LONG_BACKOFF", "12h")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, uint(8080), cfg.ApiPort)
	assert.Equal(t, 12*time.Hour, cfg.LongBackoffDuration())
}

func TestLoadConfigInvalid(t *testing.T) {
	testDefs := []string{
		"storage: postgres\n",
		"batchSize: 0\n",
		"shortBackoff: soon\n",
		"longBackoff: -1h\n",
		"storage: [unterminated\n",
	}
	for _, content := range testDefs {
		_, err := LoadConfig(writeConfigFile(t, content))
		assert.Error(t, err, content)
	}
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
