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

// Package tokenmeta resolves and caches token metadata from a remote registry.
package tokenmeta

import (
	"context"

	"github.com/blinklabs-io/tokenscope/asset"
)

// Metadata is the display metadata for a single asset unit
type Metadata struct {
	Unit            string         `json:"unit"`
	Ticker          string         `json:"ticker"`
	Name            string         `json:"name"`
	Decimals        int            `json:"decimals"`
	Logo            string         `json:"logo,omitempty"`
	OnchainMetadata map[string]any `json:"onchain_metadata,omitempty"`
}

// Fetcher retrieves metadata for a single unit from a remote source
type Fetcher interface {
	FetchTokenMetadata(ctx context.Context, unit string) (Metadata, error)
}

// BatchFetcher is implemented by fetchers that can retrieve many units in
// one request. Units absent from the result are looked up individually.
type BatchFetcher interface {
	FetchAssets(ctx context.Context, units []string) (map[string]Metadata, error)
}

// NativeMetadata is the built-in metadata for the native currency
var NativeMetadata = Metadata{
	Unit:     asset.NativeUnit,
	Ticker:   "ADA",
	Name:     "Cardano",
	Decimals: 6,
}

// Placeholder returns best-effort metadata for a unit that could not be
// resolved, named from the decoded asset name
func Placeholder(unit string) Metadata {
	return Metadata{
		Unit: unit,
		Name: asset.Decode(unit).AssetName,
	}
}

// normalize fills missing display fields from the decoded asset name
func normalize(unit string, md Metadata) Metadata {
	md.Unit = unit
	if md.Decimals < 0 {
		md.Decimals = 0
	}
	if md.Ticker == "" || md.Name == "" {
		decoded := asset.Decode(unit).AssetName
		if md.Name == "" {
			md.Name = decoded
		}
		if md.Ticker == "" {
			md.Ticker = decoded
		}
	}
	return md
}

// merge overlays newly resolved fields onto existing metadata
func merge(existing, update Metadata) Metadata {
	if update.Ticker != "" {
		existing.Ticker = update.Ticker
	}
	if update.Name != "" {
		existing.Name = update.Name
	}
	if update.Decimals > 0 {
		existing.Decimals = update.Decimals
	}
	if update.Logo != "" {
		existing.Logo = update.Logo
	}
	if update.OnchainMetadata != nil {
		existing.OnchainMetadata = update.OnchainMetadata
	}
	return existing
}
