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

// Package ipfs maps IPFS logo references onto public HTTP gateways.
package ipfs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultGateways are probed in order
var DefaultGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
	"https://gateway.pinata.cloud/ipfs/",
	"https://dweb.link/ipfs/",
}

const (
	DefaultProbeTimeout   = 5 * time.Second
	DefaultFailureBackoff = 10 * time.Minute
)

// Path extracts the content path from an IPFS reference, reporting false
// for anything that is not one
func Path(uri string) (string, bool) {
	uri = strings.TrimSpace(uri)
	switch {
	case strings.HasPrefix(uri, "ipfs://ipfs/"):
		uri = strings.TrimPrefix(uri, "ipfs://ipfs/")
	case strings.HasPrefix(uri, "ipfs://"):
		uri = strings.TrimPrefix(uri, "ipfs://")
	case strings.HasPrefix(uri, "/ipfs/"):
		uri = strings.TrimPrefix(uri, "/ipfs/")
	case strings.HasPrefix(uri, "ipfs/"):
		uri = strings.TrimPrefix(uri, "ipfs/")
	case isBareCid(uri):
	default:
		return "", false
	}
	if uri == "" {
		return "", false
	}
	return uri, true
}

// isBareCid recognizes CIDv0 (Qm...) and base32 CIDv1 (bafy...) strings
func isBareCid(s string) bool {
	if strings.ContainsAny(s, ":/?#") {
		return false
	}
	return (strings.HasPrefix(s, "Qm") && len(s) == 46) ||
		(strings.HasPrefix(s, "bafy") && len(s) > 50)
}

// GatewayURLs expands an IPFS reference into one URL per gateway. Other
// URIs are returned unchanged as the only candidate
func GatewayURLs(uri string, gateways []string) []string {
	path, ok := Path(uri)
	if !ok {
		if uri == "" {
			return nil
		}
		return []string{uri}
	}
	if len(gateways) == 0 {
		gateways = DefaultGateways
	}
	ret := make([]string, 0, len(gateways))
	for _, gw := range gateways {
		if !strings.HasSuffix(gw, "/") {
			gw += "/"
		}
		ret = append(ret, gw+path)
	}
	return ret
}

// Prober finds a reachable gateway URL for IPFS logos and remembers the
// answer per reference. References no gateway answered for are not probed
// again until their backoff expires.
type Prober struct {
	httpClient     *http.Client
	logger         *slog.Logger
	gateways       []string
	now            func() time.Time
	failureBackoff time.Duration
	inFlight       singleflight.Group
	mu             sync.Mutex
	resolved       map[string]string
	failed         map[string]time.Time
}

type ProberOptionFunc func(*Prober)

// WithFailureBackoff specifies how long a reference that no gateway
// answered for is left unprobed
func WithFailureBackoff(backoff time.Duration) ProberOptionFunc {
	return func(p *Prober) {
		p.failureBackoff = backoff
	}
}

// WithClock specifies the time source used for failure backoff
func WithClock(now func() time.Time) ProberOptionFunc {
	return func(p *Prober) {
		p.now = now
	}
}

// NewProber creates a prober using the given gateways, or DefaultGateways
func NewProber(
	gateways []string,
	httpClient *http.Client,
	logger *slog.Logger,
	opts ...ProberOptionFunc,
) *Prober {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultProbeTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if len(gateways) == 0 {
		gateways = DefaultGateways
	}
	p := &Prober{
		httpClient:     httpClient,
		logger:         logger.With("component", "ipfs"),
		gateways:       gateways,
		now:            time.Now,
		failureBackoff: DefaultFailureBackoff,
		resolved:       make(map[string]string),
		failed:         make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve returns the first gateway URL answering a HEAD request with a
// 2xx status. If none answer, the first candidate is returned so a
// display can still attempt it. Concurrent calls for the same reference
// share one probe, which is not aborted when a caller's ctx is done.
func (p *Prober) Resolve(ctx context.Context, uri string) string {
	if _, ok := Path(uri); !ok {
		return strings.TrimSpace(uri)
	}
	candidates := GatewayURLs(uri, p.gateways)
	if resolved, ok := p.lookup(uri); ok {
		return resolved
	}
	if p.inBackoff(uri) {
		return candidates[0]
	}
	probeCtx := context.WithoutCancel(ctx)
	resultCh := p.inFlight.DoChan(uri, func() (any, error) {
		if resolved, ok := p.lookup(uri); ok {
			return resolved, nil
		}
		if p.inBackoff(uri) {
			return candidates[0], nil
		}
		return p.probeAll(probeCtx, uri, candidates), nil
	})
	select {
	case res := <-resultCh:
		resolved, _ := res.Val.(string)
		return resolved
	case <-ctx.Done():
		return candidates[0]
	}
}

func (p *Prober) probeAll(
	ctx context.Context,
	uri string,
	candidates []string,
) string {
	for _, candidate := range candidates {
		if p.probe(ctx, candidate) {
			p.mu.Lock()
			p.resolved[uri] = candidate
			delete(p.failed, uri)
			p.mu.Unlock()
			return candidate
		}
	}
	retryAfter := p.now().Add(p.failureBackoff)
	p.mu.Lock()
	p.failed[uri] = retryAfter
	p.mu.Unlock()
	p.logger.Debug(
		"no IPFS gateway answered",
		"uri", uri,
		"retry_after", retryAfter,
	)
	return candidates[0]
}

func (p *Prober) lookup(uri string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	resolved, ok := p.resolved[uri]
	return resolved, ok
}

func (p *Prober) inBackoff(uri string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	retryAfter, ok := p.failed[uri]
	if !ok {
		return false
	}
	if !p.now().Before(retryAfter) {
		delete(p.failed, uri)
		return false
	}
	return true
}

func (p *Prober) probe(ctx context.Context, candidate string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidate, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}
