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

package sqlite

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/tokenscope/store"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// KvBlob is a single stored cache blob
type KvBlob struct {
	Key       string `gorm:"column:blob_key;primaryKey;size:128"`
	Value     []byte
	UpdatedAt time.Time
}

func (KvBlob) TableName() string {
	return "kv_blob"
}

// StoreSqlite keeps cache blobs in a SQLite database
type StoreSqlite struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New creates a SQLite store. Uses an in-memory database if dataDir is empty
func New(dataDir string, logger *slog.Logger) (*StoreSqlite, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var dsn string
	if dataDir == "" {
		dsn = "file::memory:"
	} else {
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dbPath := filepath.Join(dataDir, "cache.sqlite")
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", dbPath)
	}
	db, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, err
	}
	if dataDir == "" {
		// Each new connection to ":memory:" is a separate database
		sqlDb, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDb.SetMaxOpenConns(1)
	}
	s := &StoreSqlite{
		db:     db,
		logger: logger,
	}
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	s.logger.Debug(
		fmt.Sprintf("creating table: %#v", &KvBlob{}),
		"component", "store",
	)
	if err := s.db.AutoMigrate(&KvBlob{}); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the value stored for key
func (s *StoreSqlite) Get(key string) ([]byte, error) {
	var blob KvBlob
	result := s.db.Where("blob_key = ?", key).First(&blob)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return blob.Value, nil
}

// Set stores value under key, replacing any existing value
func (s *StoreSqlite) Set(key string, value []byte) error {
	blob := KvBlob{
		Key:   key,
		Value: value,
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob)
	return result.Error
}

// Close closes the underlying database handle
func (s *StoreSqlite) Close() error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
