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

// Package backend is a client for the explorer REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blinklabs-io/tokenscope/tokenmeta"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout = 15 * time.Second

	tracerName = "github.com/blinklabs-io/tokenscope/backend"

	// maxErrorBody limits how much of an error response is kept
	maxErrorBody = 512
)

var ErrNotFound = errors.New("not found")

var (
	_ tokenmeta.Fetcher      = (*Client)(nil)
	_ tokenmeta.BatchFetcher = (*Client)(nil)
)

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf(
		"%s %s: unexpected status %d: %s",
		e.Method,
		e.Path,
		e.StatusCode,
		e.Body,
	)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to the explorer backend
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	userAgent  string
}

type ClientOptionFunc func(*Client)

// WithHTTPClient specifies the HTTP client used for requests
func WithHTTPClient(httpClient *http.Client) ClientOptionFunc {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) ClientOptionFunc {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent specifies the User-Agent header sent with requests
func WithUserAgent(userAgent string) ClientOptionFunc {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a client for the backend rooted at baseURL
func NewClient(baseURL string, opts ...ClientOptionFunc) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("no backend URL provided")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL scheme: %q", u.Scheme)
	}
	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		tracer:    otel.Tracer(tracerName),
		userAgent: "tokenscope",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c.logger = c.logger.With("component", "backend")
	return c, nil
}

// FetchTokenMetadata implements tokenmeta.Fetcher using
// GET /tokenmetadata/{unit}
func (c *Client) FetchTokenMetadata(
	ctx context.Context,
	unit string,
) (tokenmeta.Metadata, error) {
	var resp TokenMetadataResponse
	if err := c.do(
		ctx,
		http.MethodGet,
		"/tokenmetadata/"+url.PathEscape(unit),
		nil,
		&resp,
	); err != nil {
		return tokenmeta.Metadata{}, err
	}
	return resp.Metadata(unit), nil
}

// FetchAssets retrieves metadata for many units in one request using
// POST /assets. Units missing from the response are omitted
func (c *Client) FetchAssets(
	ctx context.Context,
	units []string,
) (map[string]tokenmeta.Metadata, error) {
	if len(units) == 0 {
		return map[string]tokenmeta.Metadata{}, nil
	}
	var resp map[string]TokenMetadataResponse
	if err := c.do(ctx, http.MethodPost, "/assets", units, &resp); err != nil {
		return nil, err
	}
	ret := make(map[string]tokenmeta.Metadata, len(resp))
	for unit, md := range resp {
		ret[unit] = md.Metadata(unit)
	}
	return ret, nil
}

// GetTransaction retrieves a transaction with its UTxOs using
// GET /tx/{hash}
func (c *Client) GetTransaction(
	ctx context.Context,
	hash string,
) (TransactionResponse, error) {
	var resp TransactionResponse
	if err := c.do(
		ctx,
		http.MethodGet,
		"/tx/"+url.PathEscape(hash),
		nil,
		&resp,
	); err != nil {
		return TransactionResponse{}, err
	}
	if resp.Hash == "" {
		resp.Hash = hash
	}
	return resp, nil
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	dest any,
) (err error) {
	ctx, span := c.tracer.Start(
		ctx,
		"backend "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}
	// path segments are escaped by the callers
	reqURL := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors are returned unwrapped so callers can
		// classify them as network failures
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug(
		"backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(errBody)),
		}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
