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

package api

import (
	"github.com/blinklabs-io/tokenscope/utxoflow"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy     bool `json:"is_healthy"`
	CacheEntries  int  `json:"cache_entries"`
	FailedEntries int  `json:"failed_entries"`
}

// DecodeResponse is returned by GET /api/v0/assets/{unit}/decode.
type DecodeResponse struct {
	Unit         string `json:"unit"`
	PolicyId     string `json:"policy_id"`
	AssetNameHex string `json:"asset_name_hex"`
	AssetName    string `json:"asset_name"`
	DisplayName  string `json:"display_name"`
	Label        uint16 `json:"label,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`
}

// MetadataResponse represents resolved token metadata.
type MetadataResponse struct {
	Unit            string         `json:"unit"`
	Ticker          string         `json:"ticker"`
	Name            string         `json:"name"`
	Decimals        int            `json:"decimals"`
	Logo            string         `json:"logo,omitempty"`
	LogoURL         string         `json:"logo_url,omitempty"`
	OnchainMetadata map[string]any `json:"onchain_metadata,omitempty"`
}

// FlowUnitResponse is the per-unit quantity of a flow.
type FlowUnitResponse struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// FlowResponse represents a single address to address flow.
type FlowResponse struct {
	From          string             `json:"from"`
	To            string             `json:"to"`
	TotalQuantity string             `json:"total_quantity"`
	Units         []FlowUnitResponse `json:"units"`
}

// SankeyLinkResponse is a diagram edge between node indexes.
type SankeyLinkResponse struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	Unit   string `json:"unit"`
	Value  string `json:"value"`
}

// SankeyResponse is a node/link graph for diagrams.
type SankeyResponse struct {
	Nodes []utxoflow.SankeyNode `json:"nodes"`
	Links []SankeyLinkResponse  `json:"links"`
}

// FlowsResponse is returned by the flow endpoints.
type FlowsResponse struct {
	Hash    string           `json:"hash,omitempty"`
	Flows   []FlowResponse   `json:"flows"`
	Summary utxoflow.Summary `json:"summary"`
	Sankey  SankeyResponse   `json:"sankey"`
}

// FlowsRequest is the body of POST /api/v0/flows.
type FlowsRequest struct {
	Inputs  []utxoflow.UTxO `json:"inputs"`
	Outputs []utxoflow.UTxO `json:"outputs"`
}

// ErrorResponse represents a Blockfrost-format error response.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
