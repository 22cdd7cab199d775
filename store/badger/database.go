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

package badger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/tokenscope/store"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DefaultGcInterval     = 5 * time.Minute
	DefaultValueThreshold = 1024
)

// StoreBadger keeps cache blobs in badger. Data is not persisted when no
// data directory is configured
type StoreBadger struct {
	promRegistry   prometheus.Registerer
	db             *badger.DB
	logger         *slog.Logger
	gcTicker       *time.Ticker
	gcStopCh       chan struct{}
	dataDir        string
	gcWg           sync.WaitGroup
	gcInterval     time.Duration
	valueThreshold int64
	gcEnabled      bool
	metrics        storeMetrics
}

type storeMetrics struct {
	gets   prometheus.Counter
	sets   prometheus.Counter
	errors prometheus.Counter
}

// New creates a new badger store
func New(opts ...StoreBadgerOptionFunc) (*StoreBadger, error) {
	s := &StoreBadger{
		gcEnabled:      true,
		gcInterval:     DefaultGcInterval,
		valueThreshold: DefaultValueThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var badgerOpts badger.Options
	if s.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithInMemory(true)
		// Value log GC is not supported for in-memory databases
		s.gcEnabled = false
	} else {
		if _, err := os.Stat(s.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(s.dataDir, "cache")).
			WithCompression(options.Snappy)
	}
	badgerOpts = badgerOpts.
		WithLogger(NewBadgerLogger(s.logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING).
		WithValueThreshold(s.valueThreshold)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	s.db = db
	s.init()
	return s, nil
}

func (s *StoreBadger) init() {
	if s.promRegistry != nil {
		factory := promauto.With(s.promRegistry)
		s.metrics.gets = factory.NewCounter(prometheus.CounterOpts{
			Name: "tokenscope_store_badger_gets_total",
			Help: "total number of badger store reads",
		})
		s.metrics.sets = factory.NewCounter(prometheus.CounterOpts{
			Name: "tokenscope_store_badger_sets_total",
			Help: "total number of badger store writes",
		})
		s.metrics.errors = factory.NewCounter(prometheus.CounterOpts{
			Name: "tokenscope_store_badger_errors_total",
			Help: "total number of failed badger store operations",
		})
	}
	if s.gcEnabled {
		s.gcTicker = time.NewTicker(s.gcInterval)
		s.gcStopCh = make(chan struct{})
		s.gcWg.Add(1)
		go s.valueLogGc(s.gcTicker, s.gcStopCh)
	}
}

func (s *StoreBadger) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer s.gcWg.Done()
	for {
		select {
		case <-t.C:
			for {
				err := s.db.RunValueLogGC(0.5)
				if err == nil {
					// Run it again if it just rewrote a file
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Warn(
						fmt.Sprintf("badger store: GC failure: %s", err),
						"component", "store",
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

// Get returns the value stored for key
func (s *StoreBadger) Get(key string) ([]byte, error) {
	s.countOp(s.metrics.gets)
	var ret []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		ret, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, store.ErrNotFound
		}
		s.countOp(s.metrics.errors)
		return nil, err
	}
	return ret, nil
}

// Set stores value under key
func (s *StoreBadger) Set(key string, value []byte) error {
	s.countOp(s.metrics.sets)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		s.countOp(s.metrics.errors)
	}
	return err
}

// Close stops background GC and closes the database
func (s *StoreBadger) Close() error {
	if s.gcTicker != nil {
		s.gcTicker.Stop()
		close(s.gcStopCh)
		s.gcWg.Wait()
		s.gcTicker = nil
	}
	return s.db.Close()
}

func (s *StoreBadger) countOp(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
