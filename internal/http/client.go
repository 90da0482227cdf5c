// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package http provides the JSON client the network location providers talk to their APIs with.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"runtime"
	"time"

	"github.com/wneessen/waybar-landmark/internal/logger"
)

const (
	DefaultTimeout = time.Second * 10

	// MaxResponseSize limits how much of a response body is decoded.
	MaxResponseSize = 1 << 20
)

var (
	// version is set at build time
	version = "dev"

	UserAgent = fmt.Sprintf("waybar-landmark/%s (%s/%s; +https://github.com/wneessen/waybar-landmark/)",
		version, runtime.GOOS, runtime.GOARCH)

	ErrNonPointerTarget = errors.New("target must be a non-nil pointer")

	// ErrUnexpectedStatus is returned when the API answers with a non-2xx status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Client wraps the stdlib http.Client for JSON APIs.
type Client struct {
	*http.Client
	logger *logger.Logger
}

// RequestOption customizes a single request.
type RequestOption func(*request) error

type request struct {
	query   url.Values
	header  http.Header
	body    io.Reader
	timeout time.Duration
}

// WithQuery sets the query string of the request.
func WithQuery(query url.Values) RequestOption {
	return func(r *request) error {
		r.query = query
		return nil
	}
}

// WithHeader adds a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *request) error {
		r.header.Set(key, value)
		return nil
	}
}

// WithTimeout overrides DefaultTimeout for the request.
func WithTimeout(timeout time.Duration) RequestOption {
	return func(r *request) error {
		r.timeout = timeout
		return nil
	}
}

// WithJSONBody sends payload JSON-encoded as the request body.
func WithJSONBody(payload any) RequestOption {
	return func(r *request) error {
		buf := bytes.NewBuffer(nil)
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		r.body = buf
		r.header.Set("Content-Type", "application/json")
		return nil
	}
}

func New(log *logger.Logger) *Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &Client{
		Client: &http.Client{Timeout: DefaultTimeout, Transport: transport},
		logger: log,
	}
}

// GetJSON performs a GET request and decodes the JSON response into target. It returns the
// HTTP status code, if a response was received.
func (c *Client) GetJSON(ctx context.Context, endpoint string, target any, opts ...RequestOption) (int, error) {
	return c.do(ctx, http.MethodGet, endpoint, target, opts)
}

// PostJSON performs a POST request and decodes the JSON response into target.
func (c *Client) PostJSON(ctx context.Context, endpoint string, target any, opts ...RequestOption) (int, error) {
	return c.do(ctx, http.MethodPost, endpoint, target, opts)
}

func (c *Client) do(ctx context.Context, method, endpoint string, target any, opts []RequestOption) (int, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return 0, ErrNonPointerTarget
	}

	req := &request{header: make(http.Header), timeout: DefaultTimeout}
	for _, opt := range opts {
		if err := opt(req); err != nil {
			return 0, err
		}
	}

	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(req.query) > 0 {
		reqURL.RawQuery = req.query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL.String(), req.body)
	if err != nil {
		return 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header = req.header
	httpReq.Header.Set("User-Agent", UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close HTTP response body", logger.Err(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if err = json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(target); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode JSON: %w", err)
	}

	return resp.StatusCode, nil
}
