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

package tokenmeta

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultShortBackoff = 5 * time.Minute
	DefaultLongBackoff  = 24 * time.Hour
	DefaultBatchSize    = 10
)

type CacheOptionFunc func(*Cache)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) CacheOptionFunc {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) CacheOptionFunc {
	return func(c *Cache) {
		c.promRegistry = registry
	}
}

// WithStorage specifies the durable storage used to persist cache state
func WithStorage(storage Storage) CacheOptionFunc {
	return func(c *Cache) {
		c.storage = storage
	}
}

// WithShortBackoff specifies the retry delay after a network-level failure
func WithShortBackoff(backoff time.Duration) CacheOptionFunc {
	return func(c *Cache) {
		c.shortBackoff = backoff
	}
}

// WithLongBackoff specifies the retry delay after any other failure
func WithLongBackoff(backoff time.Duration) CacheOptionFunc {
	return func(c *Cache) {
		c.longBackoff = backoff
	}
}

// WithBatchSize specifies how many units ResolveBatch fetches at once
func WithBatchSize(size int) CacheOptionFunc {
	return func(c *Cache) {
		c.batchSize = size
	}
}

// WithClock overrides the time source, mostly useful for tests
func WithClock(now func() time.Time) CacheOptionFunc {
	return func(c *Cache) {
		c.now = now
	}
}
