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
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/blinklabs-io/tokenscope/asset"
	"github.com/blinklabs-io/tokenscope/backend"
	"github.com/blinklabs-io/tokenscope/tokenmeta"
	"github.com/blinklabs-io/tokenscope/utxoflow"
	"golang.org/x/sync/errgroup"
)

const (
	// maxRequestBody bounds POST bodies
	maxRequestBody = 4 << 20

	// maxLogoLookups bounds concurrent logo resolutions per batch request
	maxLogoLookups = 8
)

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes a Blockfrost-format error response.
func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// handleHealth handles GET /health and returns cache health.
func (a *Api) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	stats := a.config.Resolver.Stats()
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy:     true,
		CacheEntries:  stats.Entries,
		FailedEntries: stats.FailedEntries,
	})
}

// handleDecode handles GET /api/v0/assets/{unit}/decode and
// returns the decoded asset identity.
func (a *Api) handleDecode(
	w http.ResponseWriter,
	r *http.Request,
) {
	writeJSON(w, http.StatusOK, NewDecodeResponse(r.PathValue("unit")))
}

// handleTokenMetadata handles GET /api/v0/tokenmetadata/{unit}.
// Unresolvable units still produce a placeholder.
func (a *Api) handleTokenMetadata(
	w http.ResponseWriter,
	r *http.Request,
) {
	md := a.config.Resolver.Resolve(r.Context(), r.PathValue("unit"))
	writeJSON(w, http.StatusOK, a.metadataResponse(r, md))
}

// handleTokenMetadataBatch handles POST /api/v0/tokenmetadata
// with a JSON list of units.
func (a *Api) handleTokenMetadataBatch(
	w http.ResponseWriter,
	r *http.Request,
) {
	var units []string
	if err := json.NewDecoder(
		http.MaxBytesReader(w, r.Body, maxRequestBody),
	).Decode(&units); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON list of units")
		return
	}
	if len(units) > a.config.MaxBatchUnits {
		writeError(w, http.StatusBadRequest, "too many units in request")
		return
	}
	mds := a.config.Resolver.ResolveBatch(r.Context(), units)
	resp := make(map[string]MetadataResponse, len(mds))
	var respMu sync.Mutex
	// Logo resolution may probe remote gateways
	var g errgroup.Group
	g.SetLimit(maxLogoLookups)
	for unit, md := range mds {
		g.Go(func() error {
			mr := a.metadataResponse(r, md)
			respMu.Lock()
			resp[unit] = mr
			respMu.Unlock()
			return nil
		})
	}
	//nolint:errcheck
	g.Wait()
	writeJSON(w, http.StatusOK, resp)
}

// handleTxFlows handles GET /api/v0/txs/{hash}/flows and returns
// the UTxO flows of a transaction fetched from the backend.
func (a *Api) handleTxFlows(
	w http.ResponseWriter,
	r *http.Request,
) {
	if a.config.Transactions == nil {
		writeError(w, http.StatusServiceUnavailable, "no transaction backend configured")
		return
	}
	hash := r.PathValue("hash")
	tx, err := a.config.Transactions.GetTransaction(r.Context(), hash)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		a.logger.Error(
			"failed to get transaction",
			"hash", hash,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, "failed to retrieve transaction")
		return
	}
	resp := NewFlowsResponse(tx.Utxos.Inputs, tx.Utxos.Outputs, r.URL.Query().Get("unit"))
	resp.Hash = tx.Hash
	writeJSON(w, http.StatusOK, resp)
}

// handleFlows handles POST /api/v0/flows for a posted set of
// inputs and outputs.
func (a *Api) handleFlows(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req FlowsRequest
	if err := json.NewDecoder(
		http.MaxBytesReader(w, r.Body, maxRequestBody),
	).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid flows request body")
		return
	}
	writeJSON(
		w,
		http.StatusOK,
		NewFlowsResponse(req.Inputs, req.Outputs, r.URL.Query().Get("unit")),
	)
}

func (a *Api) metadataResponse(
	r *http.Request,
	md tokenmeta.Metadata,
) MetadataResponse {
	resp := MetadataResponse{
		Unit:            md.Unit,
		Ticker:          md.Ticker,
		Name:            md.Name,
		Decimals:        md.Decimals,
		Logo:            md.Logo,
		OnchainMetadata: md.OnchainMetadata,
	}
	if md.Logo != "" && a.config.Logos != nil {
		resp.LogoURL = a.config.Logos.Resolve(r.Context(), md.Logo)
	}
	return resp
}

// NewDecodeResponse decodes unit into its API representation
func NewDecodeResponse(unit string) DecodeResponse {
	id := asset.Decode(unit)
	resp := DecodeResponse{
		Unit:         unit,
		PolicyId:     id.PolicyId,
		AssetNameHex: id.HexName,
		AssetName:    id.AssetName,
		DisplayName:  id.DisplayName,
		Label:        id.Label,
	}
	// Only well-formed units have a fingerprint
	if parsed, err := asset.ParseUnit(unit); err == nil {
		resp.Fingerprint = parsed.Fingerprint()
	}
	return resp
}

// NewFlowsResponse matches flows for a transaction and builds the API
// representation, with the Sankey links optionally limited to one unit
func NewFlowsResponse(
	inputs []utxoflow.UTxO,
	outputs []utxoflow.UTxO,
	unit string,
) FlowsResponse {
	flows := utxoflow.MatchFlows(inputs, outputs)
	resp := FlowsResponse{
		Flows:   make([]FlowResponse, 0, len(flows)),
		Summary: utxoflow.Summarize(flows),
	}
	for _, flow := range flows {
		fr := FlowResponse{
			From:          flow.From,
			To:            flow.To,
			TotalQuantity: flow.TotalQuantity.String(),
			Units:         make([]FlowUnitResponse, 0, len(flow.Units)),
		}
		for _, uq := range flow.Units {
			fr.Units = append(fr.Units, FlowUnitResponse{
				Unit:     uq.Unit,
				Quantity: uq.Quantity.String(),
			})
		}
		resp.Flows = append(resp.Flows, fr)
	}
	sankey := utxoflow.BuildSankey(flows, unit)
	resp.Sankey = SankeyResponse{
		Nodes: sankey.Nodes,
		Links: make([]SankeyLinkResponse, 0, len(sankey.Links)),
	}
	for _, link := range sankey.Links {
		resp.Sankey.Links = append(resp.Sankey.Links, SankeyLinkResponse{
			Source: link.Source,
			Target: link.Target,
			Unit:   link.Unit,
			Value:  link.Value.String(),
		})
	}
	return resp
}
