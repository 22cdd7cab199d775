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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/blinklabs-io/tokenscope/store"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	metadataStorageKey = "token_metadata"
	failedStorageKey   = "token_failed"
)

// Storage is the durable backend for the cache state
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// FailedLookup records a unit whose last resolution failed
type FailedLookup struct {
	Unit       string    `json:"unit"`
	RetryAfter time.Time `json:"retry_after"`
}

// Stats is a point-in-time summary of the cache
type Stats struct {
	Entries       int `json:"entries"`
	FailedEntries int `json:"failed_entries"`
}

// Cache resolves token metadata and memoizes both successful and failed
// lookups. Concurrent resolutions of the same unit share one fetch.
type Cache struct {
	fetcher      Fetcher
	storage      Storage
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	now          func() time.Time
	metrics      cacheMetrics
	inFlight     singleflight.Group
	mu           sync.RWMutex
	persistMu    sync.Mutex
	metadata     map[string]Metadata
	failed       map[string]time.Time
	shortBackoff time.Duration
	longBackoff  time.Duration
	batchSize    int
}

// New creates a cache backed by fetcher and loads any persisted state
func New(fetcher Fetcher, opts ...CacheOptionFunc) (*Cache, error) {
	if fetcher == nil {
		return nil, errors.New("no metadata fetcher provided")
	}
	c := &Cache{
		fetcher:      fetcher,
		now:          time.Now,
		shortBackoff: DefaultShortBackoff,
		longBackoff:  DefaultLongBackoff,
		batchSize:    DefaultBatchSize,
		metadata: map[string]Metadata{
			NativeMetadata.Unit: NativeMetadata,
		},
		failed: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c.logger = c.logger.With("component", "tokenmeta")
	if c.storage == nil {
		c.storage = store.NewMemoryStore()
	}
	if c.batchSize < 1 {
		c.batchSize = 1
	}
	c.metrics.init(c.promRegistry)
	if err := c.load(); err != nil {
		return nil, err
	}
	c.updateGauges()
	return c, nil
}

// load restores persisted state. Corrupt blobs are discarded rather than
// failing startup
func (c *Cache) load() error {
	metadataBlob, err := c.storage.Get(metadataStorageKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load token metadata: %w", err)
	}
	if len(metadataBlob) > 0 {
		var stored map[string]Metadata
		if err := json.Unmarshal(metadataBlob, &stored); err != nil {
			c.logger.Warn(
				"discarding unreadable persisted token metadata",
				"error", err,
			)
		} else {
			for unit, md := range stored {
				c.metadata[unit] = md
			}
		}
	}
	failedBlob, err := c.storage.Get(failedStorageKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load failed lookups: %w", err)
	}
	if len(failedBlob) > 0 {
		var stored []FailedLookup
		if err := json.Unmarshal(failedBlob, &stored); err != nil {
			c.logger.Warn(
				"discarding unreadable persisted failed lookups",
				"error", err,
			)
		} else {
			now := c.now()
			for _, entry := range stored {
				if !now.Before(entry.RetryAfter) {
					continue
				}
				if _, ok := c.metadata[entry.Unit]; ok {
					continue
				}
				c.failed[entry.Unit] = entry.RetryAfter
			}
		}
	}
	c.logger.Debug(
		fmt.Sprintf(
			"loaded %d cached token metadata entries, %d failed lookups",
			len(c.metadata),
			len(c.failed),
		),
	)
	return nil
}

// Lookup returns cached metadata for unit without fetching
func (c *Cache) Lookup(unit string) (Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	md, ok := c.metadata[unit]
	return md, ok
}

// FailedUntil returns the retry time for a unit in failure backoff
func (c *Cache) FailedUntil(unit string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	retryAfter, ok := c.failed[unit]
	if !ok || !c.now().Before(retryAfter) {
		return time.Time{}, false
	}
	return retryAfter, true
}

// Stats returns the current cache sizes
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	failed := 0
	for _, retryAfter := range c.failed {
		if now.Before(retryAfter) {
			failed++
		}
	}
	return Stats{
		Entries:       len(c.metadata),
		FailedEntries: failed,
	}
}

// Resolve returns metadata for unit, fetching it at most once across
// concurrent callers. It never fails: unresolvable units produce a
// placeholder. A cancelled ctx stops the caller waiting but the shared
// fetch still runs to completion and updates the cache.
func (c *Cache) Resolve(ctx context.Context, unit string) Metadata {
	if md, ok := c.Lookup(unit); ok {
		c.metrics.hits.Inc()
		return md
	}
	c.metrics.misses.Inc()
	if _, ok := c.FailedUntil(unit); ok {
		c.metrics.backoffHits.Inc()
		return Metadata{Unit: unit}
	}
	fetchCtx := context.WithoutCancel(ctx)
	resultCh := c.inFlight.DoChan(unit, func() (any, error) {
		// Another request may have settled between our checks above and
		// joining the in-flight table
		if md, ok := c.Lookup(unit); ok {
			return md, nil
		}
		if _, ok := c.FailedUntil(unit); ok {
			return Metadata{Unit: unit}, nil
		}
		return c.fetch(fetchCtx, unit), nil
	})
	select {
	case res := <-resultCh:
		md, _ := res.Val.(Metadata)
		return md
	case <-ctx.Done():
		return Placeholder(unit)
	}
}

// ResolveBatch resolves units in bounded batches, waiting for each batch
// to complete before starting the next
func (c *Cache) ResolveBatch(
	ctx context.Context,
	units []string,
) map[string]Metadata {
	ret := make(map[string]Metadata, len(units))
	var retMu sync.Mutex
	seen := make(map[string]struct{}, len(units))
	pending := make([]string, 0, len(units))
	for _, unit := range units {
		if _, ok := seen[unit]; ok {
			continue
		}
		seen[unit] = struct{}{}
		pending = append(pending, unit)
	}
	for batch := range slices.Chunk(pending, c.batchSize) {
		if ctx.Err() != nil {
			// Fill the remainder from whatever is cached
			for _, unit := range batch {
				ret[unit] = c.cachedOrPlaceholder(unit)
			}
			continue
		}
		c.prefetch(ctx, batch)
		var g errgroup.Group
		for _, unit := range batch {
			g.Go(func() error {
				md := c.Resolve(ctx, unit)
				retMu.Lock()
				ret[unit] = md
				retMu.Unlock()
				return nil
			})
		}
		//nolint:errcheck
		g.Wait()
	}
	return ret
}

// Store merges externally resolved metadata into the cache, for example
// from a bulk asset query
func (c *Cache) Store(mds ...Metadata) {
	if len(mds) == 0 {
		return
	}
	c.mu.Lock()
	for _, md := range mds {
		c.storeLocked(md.Unit, md)
	}
	c.mu.Unlock()
	c.persist()
}

// prefetch bulk-loads the uncached units of a batch when the fetcher
// supports it
func (c *Cache) prefetch(ctx context.Context, units []string) {
	bf, ok := c.fetcher.(BatchFetcher)
	if !ok {
		return
	}
	missing := make([]string, 0, len(units))
	for _, unit := range units {
		if _, ok := c.Lookup(unit); ok {
			continue
		}
		if _, ok := c.FailedUntil(unit); ok {
			continue
		}
		missing = append(missing, unit)
	}
	if len(missing) < 2 {
		return
	}
	c.metrics.fetches.Inc()
	mds, err := bf.FetchAssets(ctx, missing)
	if err != nil {
		c.logger.Debug(
			"bulk token metadata lookup failed, using per-unit lookups",
			"units", len(missing),
			"error", err,
		)
		return
	}
	found := make([]Metadata, 0, len(mds))
	for _, unit := range missing {
		if md, ok := mds[unit]; ok {
			md.Unit = unit
			found = append(found, md)
		}
	}
	c.Store(found...)
}

func (c *Cache) cachedOrPlaceholder(unit string) Metadata {
	if md, ok := c.Lookup(unit); ok {
		return md
	}
	return Placeholder(unit)
}

func (c *Cache) fetch(ctx context.Context, unit string) Metadata {
	c.metrics.fetches.Inc()
	md, err := c.fetcher.FetchTokenMetadata(ctx, unit)
	if err != nil {
		backoff := c.longBackoff
		class := "other"
		if IsNetworkError(err) {
			backoff = c.shortBackoff
			class = "network"
		}
		c.metrics.fetchFailures.WithLabelValues(class).Inc()
		retryAfter := c.now().Add(backoff)
		c.mu.Lock()
		c.failed[unit] = retryAfter
		c.mu.Unlock()
		c.logger.Warn(
			"token metadata lookup failed",
			"unit", unit,
			"class", class,
			"retry_after", retryAfter,
			"error", err,
		)
		c.persist()
		return Placeholder(unit)
	}
	c.mu.Lock()
	md = c.storeLocked(unit, md)
	c.mu.Unlock()
	c.persist()
	return md
}

// storeLocked merges update into any existing entry and only then fills
// fields that are still empty from the decoded name. c.mu must be held.
func (c *Cache) storeLocked(unit string, update Metadata) Metadata {
	md := update
	if existing, ok := c.metadata[unit]; ok {
		md = merge(existing, update)
	}
	md = normalize(unit, md)
	c.metadata[unit] = md
	delete(c.failed, unit)
	return md
}

// persist writes the full cache state to storage. Failures are logged
// and otherwise ignored, since the in-memory state remains authoritative
func (c *Cache) persist() {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	c.mu.RLock()
	metadataBlob, err := json.Marshal(c.metadata)
	failed := make([]FailedLookup, 0, len(c.failed))
	for _, unit := range slices.Sorted(maps.Keys(c.failed)) {
		failed = append(failed, FailedLookup{
			Unit:       unit,
			RetryAfter: c.failed[unit],
		})
	}
	c.mu.RUnlock()
	c.updateGauges()
	if err != nil {
		c.logger.Error("failed to encode token metadata", "error", err)
		return
	}
	failedBlob, err := json.Marshal(failed)
	if err != nil {
		c.logger.Error("failed to encode failed lookups", "error", err)
		return
	}
	if err := c.storage.Set(metadataStorageKey, metadataBlob); err != nil {
		c.logger.Error("failed to persist token metadata", "error", err)
	}
	if err := c.storage.Set(failedStorageKey, failedBlob); err != nil {
		c.logger.Error("failed to persist failed lookups", "error", err)
	}
}

func (c *Cache) updateGauges() {
	stats := c.Stats()
	c.metrics.entries.Set(float64(stats.Entries))
	c.metrics.failedEntries.Set(float64(stats.FailedEntries))
}
