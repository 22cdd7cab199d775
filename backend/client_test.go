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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blinklabs-io/tokenscope/tokenmeta"
	"github.com/blinklabs-io/tokenscope/utxoflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUnit = "f0ff48bbb7bbe9d59a40f1ce90e9e9d0ff5002ec48f232b49ca0fb9a534e454b"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tokenmetadata/{unit}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("unit") {
		case testUnit:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ticker":"SNEK","name":"Snek","decimals":"0","logo":"https://example.com/snek.png"}`))
		case "nft":
			_, _ = w.Write([]byte(`{"decimals":null,"logo":1,"onchain_metadata":{"name":"Rare Bird","image":["ipfs://Qm","abc"]}}`))
		default:
			http.Error(w, `{"status_code":404,"error":"Not Found"}`, http.StatusNotFound)
		}
	})
	mux.HandleFunc("POST /assets", func(w http.ResponseWriter, r *http.Request) {
		var units []string
		if err := json.NewDecoder(r.Body).Decode(&units); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		resp := make(map[string]any)
		for _, unit := range units {
			if unit == testUnit {
				resp[unit] = map[string]any{"ticker": "SNEK", "decimals": 0}
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("GET /tx/{hash}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"hash": "abcd",
			"utxos": {
				"inputs": [{"address": "addr1a", "amount": [{"unit": "lovelace", "quantity": "100"}]}],
				"outputs": [
					{"address": "addr1b", "amount": [{"unit": "lovelace", "quantity": "30"}]},
					{"address": "addr1c", "amount": [{"unit": "lovelace", "quantity": 70}]}
				]
			}
		}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
	_, err = NewClient("ftp://example.com")
	require.Error(t, err)
	c, err := NewClient("https://example.com/api/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/api", c.baseURL.String())
}

func TestFetchTokenMetadata(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	md, err := c.FetchTokenMetadata(context.Background(), testUnit)
	require.NoError(t, err)
	assert.Equal(t, tokenmeta.Metadata{
		Unit:   testUnit,
		Ticker: "SNEK",
		Name:   "Snek",
		Logo:   "https://example.com/snek.png",
	}, md)
}

func TestFetchTokenMetadataOnchainFallback(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	md, err := c.FetchTokenMetadata(context.Background(), "nft")
	require.NoError(t, err)
	assert.Equal(t, "Rare Bird", md.Name)
	assert.Equal(t, "ipfs://Qmabc", md.Logo)
	assert.Zero(t, md.Decimals)
	assert.Empty(t, md.Ticker)
}

func TestFetchTokenMetadataNotFound(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.FetchTokenMetadata(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.False(t, tokenmeta.IsNetworkError(err))
}

func TestFetchTokenMetadataNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.FetchTokenMetadata(context.Background(), testUnit)
	require.Error(t, err)
	assert.True(t, tokenmeta.IsNetworkError(err))
}

func TestFetchAssets(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	mds, err := c.FetchAssets(context.Background(), []string{testUnit, "other"})
	require.NoError(t, err)
	require.Len(t, mds, 1)
	assert.Equal(t, "SNEK", mds[testUnit].Ticker)

	mds, err = c.FetchAssets(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, mds)
}

func TestGetTransaction(t *testing.T) {
	srv := newTestServer(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	tx, err := c.GetTransaction(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, "abcd", tx.Hash)
	require.Len(t, tx.Utxos.Inputs, 1)
	require.Len(t, tx.Utxos.Outputs, 2)

	flows := utxoflow.MatchFlows(tx.Utxos.Inputs, tx.Utxos.Outputs)
	require.Len(t, flows, 2)
	assert.Equal(t, "addr1c", flows[1].To)
	assert.Equal(t, "70", flows[1].TotalQuantity.String())
}

func TestTokenMetadataResponseNormalization(t *testing.T) {
	testDefs := []struct {
		name     string
		body     string
		decimals int
		logo     string
	}{
		{name: "numeric decimals", body: `{"decimals":6}`, decimals: 6},
		{name: "string decimals", body: `{"decimals":" 8 "}`, decimals: 8},
		{name: "negative decimals", body: `{"decimals":-2}`, decimals: 0},
		{name: "garbage decimals", body: `{"decimals":{"x":1}}`, decimals: 0},
		{name: "huge decimals", body: `{"decimals":1e300}`, decimals: 0},
		{name: "fractional decimals", body: `{"decimals":2.5}`, decimals: 0},
		{name: "max decimals", body: `{"decimals":255}`, decimals: 255},
		{name: "huge string decimals", body: `{"decimals":"99999999999999999999"}`, decimals: 0},
		{name: "logo flag", body: `{"logo":"1"}`, logo: ""},
		{name: "logo data", body: `{"logo":"iVBORw0KGgo="}`, logo: "iVBORw0KGgo="},
		{name: "numeric logo", body: `{"logo":0}`, logo: ""},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			var resp TokenMetadataResponse
			require.NoError(t, json.Unmarshal([]byte(testDef.body), &resp))
			md := resp.Metadata("unit")
			assert.Equal(t, testDef.decimals, md.Decimals)
			assert.Equal(t, testDef.logo, md.Logo)
		})
	}
}
