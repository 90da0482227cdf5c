// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package testhelper provides shared helpers for the package tests.
package testhelper

import (
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

// TestOnlineAPIURL is a reachable endpoint used by tests that talk to the network.
const TestOnlineAPIURL = "https://httpbin.org/delay/2"

// MockRoundTripper is a http.RoundTripper that answers requests with Fn.
type MockRoundTripper struct {
	Fn func(*http.Request) (*http.Response, error)
}

// RoundTrip satisfies the http.RoundTripper interface.
func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}

// JSONResponse returns a MockRoundTripper answering every request with status and body.
func JSONResponse(status int, body string) MockRoundTripper {
	return MockRoundTripper{Fn: func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	}}
}

// FileResponse returns a MockRoundTripper answering every request with the content of file.
func FileResponse(t *testing.T, file string) MockRoundTripper {
	t.Helper()
	return MockRoundTripper{Fn: func(*http.Request) (*http.Response, error) {
		data, err := os.Open(file)
		if err != nil {
			t.Errorf("failed to open response file: %s", err)
			return nil, err
		}
		return &http.Response{StatusCode: http.StatusOK, Body: data, Header: make(http.Header)}, nil
	}}
}

// PerformIntegrationTests skips the test unless PERFORM_INTEGRATION_TESTS is set.
func PerformIntegrationTests(t *testing.T) {
	t.Helper()
	if os.Getenv("PERFORM_INTEGRATION_TESTS") == "" {
		t.Skip("skipping integration test, set PERFORM_INTEGRATION_TESTS to run")
	}
}
