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
	"context"

	"github.com/blinklabs-io/tokenscope/backend"
	"github.com/blinklabs-io/tokenscope/tokenmeta"
)

// MetadataResolver resolves token metadata for the API. It is satisfied
// by *tokenmeta.Cache
type MetadataResolver interface {
	Resolve(ctx context.Context, unit string) tokenmeta.Metadata
	ResolveBatch(ctx context.Context, units []string) map[string]tokenmeta.Metadata
	Stats() tokenmeta.Stats
}

// TransactionSource retrieves transactions with their UTxOs. It is
// satisfied by *backend.Client
type TransactionSource interface {
	GetTransaction(ctx context.Context, hash string) (backend.TransactionResponse, error)
}

// LogoResolver maps logo references onto fetchable URLs
type LogoResolver interface {
	Resolve(ctx context.Context, uri string) string
}
