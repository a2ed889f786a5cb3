// Copyright 2025 Poiesic Systems
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

// Package solr implements index.Dialer against the Solr select handler.
package solr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/corpusvec/core"
	"github.com/poiesic/corpusvec/index"
)

const (
	// DefaultTimeout bounds a single request, connection setup included.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 4096
)

var (
	// ErrEndpointRequired is returned when no endpoint is configured.
	ErrEndpointRequired = errors.New("solr endpoint required")

	// ErrBadResponse is returned when Solr answers with an unexpected payload.
	ErrBadResponse = errors.New("unexpected solr response")
)

// Dialer opens connections to one Solr core.
type Dialer struct {
	endpoint *url.URL
	timeout  time.Duration
	logger   *slog.Logger
}

var _ index.Dialer = (*Dialer)(nil)

// Option configures a Dialer.
type Option func(*Dialer)

// WithTimeout sets the per-request timeout. Default is DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dialer) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dialer) {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
	}
}

// NewDialer creates a dialer for the Solr core at endpoint,
// e.g. "http://localhost:8983/solr/pubmed".
func NewDialer(endpoint string, opts ...Option) (*Dialer, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse solr endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("solr endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}

	d := &Dialer{
		endpoint: u,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "solr", "endpoint", endpoint)
	return d, nil
}

// Dial returns a connection with its own transport, so nothing is shared
// with connections from earlier attempts.
func (d *Dialer) Dial(ctx context.Context) (index.Conn, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: d.timeout,
		}).DialContext,
		MaxIdleConnsPerHost:   1,
		ResponseHeaderTimeout: d.timeout,
	}
	return &conn{
		dialer:    d,
		transport: transport,
		client:    &http.Client{Transport: transport, Timeout: d.timeout},
	}, nil
}

type conn struct {
	dialer    *Dialer
	transport *http.Transport
	client    *http.Client
}

// selectResponse is the subset of the Solr JSON response we consume.
type selectResponse struct {
	Response *struct {
		NumFound int              `json:"numFound"`
		Start    int              `json:"start"`
		Docs     []map[string]any `json:"docs"`
	} `json:"response"`
	Error *struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

func (c *conn) Count(ctx context.Context, query string) (int, error) {
	res, err := c.query(ctx, index.Request{Query: query, Start: 0, Rows: 0})
	if err != nil {
		return 0, err
	}
	return res.Response.NumFound, nil
}

func (c *conn) Search(ctx context.Context, req index.Request) ([]core.Document, error) {
	res, err := c.query(ctx, req)
	if err != nil {
		return nil, err
	}
	docs := make([]core.Document, len(res.Response.Docs))
	for i, doc := range res.Response.Docs {
		docs[i] = core.Document(doc)
	}
	return docs, nil
}

func (c *conn) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func (c *conn) query(ctx context.Context, req index.Request) (*selectResponse, error) {
	params := url.Values{}
	q := req.Query
	if q == "" {
		q = "*:*"
	}
	params.Set("q", q)
	params.Set("start", strconv.Itoa(req.Start))
	params.Set("rows", strconv.Itoa(req.Rows))
	params.Set("wt", "json")
	if len(req.Fields) > 0 {
		params.Set("fl", strings.Join(req.Fields, ","))
	}

	u := *c.dialer.endpoint
	u.Path = strings.TrimRight(u.Path, "/") + "/select"
	u.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, index.Permanent(err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := fmt.Errorf("solr status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if isPermanentStatus(resp.StatusCode) {
			return nil, index.Permanent(statusErr)
		}
		return nil, statusErr
	}

	var res selectResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrBadResponse, err)
	}
	if res.Error != nil {
		return nil, index.Permanent(fmt.Errorf("solr error %d: %s", res.Error.Code, res.Error.Msg))
	}
	if res.Response == nil {
		return nil, fmt.Errorf("%w: missing response section", ErrBadResponse)
	}

	c.dialer.logger.Debug("solr query", "q", q, "start", req.Start, "rows", req.Rows, "found", res.Response.NumFound)
	return &res, nil
}

// isPermanentStatus reports client errors that a retry cannot fix.
func isPermanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
