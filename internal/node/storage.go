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
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/tokenscope/internal/config"
	"github.com/blinklabs-io/tokenscope/store"
	"github.com/blinklabs-io/tokenscope/store/badger"
	"github.com/blinklabs-io/tokenscope/store/sqlite"
	"github.com/prometheus/client_golang/prometheus"
)

// openStorage opens the cache storage backend selected by the config
func openStorage(
	cfg *config.Config,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (store.Store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return store.NewMemoryStore(), nil
	case config.StorageBadger:
		s, err := badger.New(
			badger.WithLogger(logger),
			badger.WithPromRegistry(registerer),
			badger.WithDataDir(cfg.DataDir),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger storage: %w", err)
		}
		return s, nil
	case config.StorageSqlite:
		s, err := sqlite.New(cfg.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Storage)
	}
}
