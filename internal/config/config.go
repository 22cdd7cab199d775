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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "tokenscope.config"

const (
	DefaultStorage         = StorageBadger
	DefaultShutdownTimeout = "30s"
	DefaultBackendTimeout  = "15s"
	DefaultShortBackoff    = "5m"
	DefaultLongBackoff     = "24h"

	envPrefix = "tokenscope"
)

const (
	StorageMemory = "memory"
	StorageBadger = "badger"
	StorageSqlite = "sqlite"
)

var storageBackends = []string{StorageMemory, StorageBadger, StorageSqlite}

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	BindAddr        string   `yaml:"bindAddr"        split_words:"true"`
	ApiPort         uint     `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint     `yaml:"metricsPort"     split_words:"true"`
	BackendUrl      string   `yaml:"backendUrl"      split_words:"true"`
	BackendTimeout  string   `yaml:"backendTimeout"  split_words:"true"`
	Storage         string   `yaml:"storage"`
	DataDir         string   `yaml:"dataDir"         split_words:"true"`
	ShortBackoff    string   `yaml:"shortBackoff"    split_words:"true"`
	LongBackoff     string   `yaml:"longBackoff"     split_words:"true"`
	BatchSize       int      `yaml:"batchSize"       split_words:"true"`
	MaxBatchUnits   int      `yaml:"maxBatchUnits"   split_words:"true"`
	IpfsGateways    []string `yaml:"ipfsGateways"    split_words:"true"`
	Tracing         bool     `yaml:"tracing"`
	TracingStdout   bool     `yaml:"tracingStdout"   split_words:"true"`
	ShutdownTimeout string   `yaml:"shutdownTimeout" split_words:"true"`
}

// DefaultConfig returns a config populated with default values
func DefaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0",
		ApiPort:         3000,
		MetricsPort:     12799,
		BackendUrl:      "",
		BackendTimeout:  DefaultBackendTimeout,
		Storage:         DefaultStorage,
		DataDir:         ".tokenscope",
		ShortBackoff:    DefaultShortBackoff,
		LongBackoff:     DefaultLongBackoff,
		BatchSize:       10,
		MaxBatchUnits:   100,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadConfig loads defaults, then the YAML config file if any, then
// environment variables prefixed with TOKENSCOPE_
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		// Check for config file in this path: ~/.tokenscope/tokenscope.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".tokenscope", "tokenscope.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try /etc/tokenscope/tokenscope.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/tokenscope/tokenscope.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config for invalid values
func (c *Config) Validate() error {
	if !slices.Contains(storageBackends, c.Storage) {
		return fmt.Errorf(
			"invalid storage: %q (must be one of %v)",
			c.Storage,
			storageBackends,
		)
	}
	if c.BatchSize < 1 {
		return errors.New("batchSize must be at least 1")
	}
	for name, val := range map[string]string{
		"backendTimeout":  c.BackendTimeout,
		"shortBackoff":    c.ShortBackoff,
		"longBackoff":     c.LongBackoff,
		"shutdownTimeout": c.ShutdownTimeout,
	} {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, val, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s %q: negative duration", name, val)
		}
	}
	return nil
}

// BackendTimeoutDuration returns the parsed backend request timeout
func (c *Config) BackendTimeoutDuration() time.Duration {
	return mustDuration(c.BackendTimeout, DefaultBackendTimeout)
}

// ShortBackoffDuration returns the parsed network failure backoff
func (c *Config) ShortBackoffDuration() time.Duration {
	return mustDuration(c.ShortBackoff, DefaultShortBackoff)
}

// LongBackoffDuration returns the parsed failure backoff
func (c *Config) LongBackoffDuration() time.Duration {
	return mustDuration(c.LongBackoff, DefaultLongBackoff)
}

// ShutdownTimeoutDuration returns the parsed graceful shutdown timeout
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(c.ShutdownTimeout, DefaultShutdownTimeout)
}

// mustDuration parses val, falling back to def for values that were not
// validated
func mustDuration(val string, def string) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
