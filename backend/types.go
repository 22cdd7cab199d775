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

package backend

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/blinklabs-io/tokenscope/tokenmeta"
	"github.com/blinklabs-io/tokenscope/utxoflow"
)

// TokenMetadataResponse is the registry's token metadata object. Field
// types vary between registries, so loosely typed fields are kept raw and
// normalized by Metadata
type TokenMetadataResponse struct {
	Ticker          *string         `json:"ticker"`
	Name            *string         `json:"name"`
	Decimals        json.RawMessage `json:"decimals"`
	Logo            json.RawMessage `json:"logo"`
	OnchainMetadata map[string]any  `json:"onchain_metadata"`
}

// Metadata converts the response into the strict cache shape
func (r TokenMetadataResponse) Metadata(unit string) tokenmeta.Metadata {
	ret := tokenmeta.Metadata{
		Unit:            unit,
		Decimals:        parseDecimals(r.Decimals),
		Logo:            parseLogo(r.Logo),
		OnchainMetadata: r.OnchainMetadata,
	}
	if r.Ticker != nil {
		ret.Ticker = strings.TrimSpace(*r.Ticker)
	}
	if r.Name != nil {
		ret.Name = strings.TrimSpace(*r.Name)
	}
	// CIP-25 on-chain metadata fills gaps left by the registry
	if ret.Name == "" {
		ret.Name = onchainString(r.OnchainMetadata, "name")
	}
	if ret.Logo == "" {
		ret.Logo = onchainString(r.OnchainMetadata, "image")
	}
	return ret
}

// MaxDecimals is the largest decimals value accepted from the backend.
// Larger or non-integral values are treated as absent
const MaxDecimals = 255

func parseDecimals(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 || n > MaxDecimals || n != math.Trunc(n) {
			return 0
		}
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil &&
			v >= 0 && v <= MaxDecimals {
			return v
		}
	}
	return 0
}

// parseLogo accepts a URL or data string. Legacy registries report the
// presence of a logo as 0/1, which carries no usable image
func parseLogo(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "0" || s == "1" {
		return ""
	}
	return s
}

// onchainString reads a CIP-25 string field, which may be split into an
// array of chunks to fit the 64 byte metadata string limit
func onchainString(md map[string]any, key string) string {
	if md == nil {
		return ""
	}
	switch v := md[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		var sb strings.Builder
		for _, part := range v {
			s, ok := part.(string)
			if !ok {
				return ""
			}
			sb.WriteString(s)
		}
		return strings.TrimSpace(sb.String())
	default:
		return ""
	}
}

// TransactionUtxos holds the inputs and outputs of a transaction
type TransactionUtxos struct {
	Inputs  []utxoflow.UTxO `json:"inputs"`
	Outputs []utxoflow.UTxO `json:"outputs"`
}

// TransactionResponse is the subset of the transaction payload used here
type TransactionResponse struct {
	Hash  string           `json:"hash"`
	Block string           `json:"block,omitempty"`
	Utxos TransactionUtxos `json:"utxos"`
}
