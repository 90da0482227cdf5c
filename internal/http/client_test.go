// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/wneessen/waybar-landmark/internal/logger"
	"github.com/wneessen/waybar-landmark/internal/testhelper"
)

type testType struct {
	String string  `json:"string"`
	Int    int     `json:"int"`
	Float  float64 `json:"float"`
	Bool   bool    `json:"bool"`
}

const testFile = "../../testdata/testtype.json"

func testClient(rt stdhttp.RoundTripper) *Client {
	client := New(logger.NewLogger(slog.LevelError, io.Discard))
	if rt != nil {
		client.Transport = rt
	}
	return client
}

func TestClient_GetJSON(t *testing.T) {
	t.Run("response is decoded into the target", func(t *testing.T) {
		client := testClient(testhelper.FileResponse(t, testFile))
		target := new(testType)
		status, err := client.GetJSON(t.Context(), "https://example.com", target)
		if err != nil {
			t.Fatalf("failed to get JSON response: %s", err)
		}
		if status != stdhttp.StatusOK {
			t.Errorf("expected status code 200, got %d", status)
		}
		want := testType{String: "test", Int: 123, Float: 123.456, Bool: true}
		if *target != want {
			t.Errorf("expected target to be %+v, got %+v", want, *target)
		}
	})
	t.Run("query, headers and user agent are sent", func(t *testing.T) {
		var got *stdhttp.Request
		client := testClient(testhelper.MockRoundTripper{Fn: func(req *stdhttp.Request) (*stdhttp.Response, error) {
			got = req
			return testhelper.JSONResponse(stdhttp.StatusOK, `{}`).RoundTrip(req)
		}})
		query := url.Values{}
		query.Set("key", "value")
		_, err := client.GetJSON(t.Context(), "https://example.com/lookup", new(testType),
			WithQuery(query), WithHeader("X-Custom-Header", "custom-value"))
		if err != nil {
			t.Fatalf("get request failed: %s", err)
		}
		if got.Method != stdhttp.MethodGet {
			t.Errorf("expected method GET, got %s", got.Method)
		}
		if got.URL.RawQuery != "key=value" {
			t.Errorf("expected query %q, got %q", "key=value", got.URL.RawQuery)
		}
		if got.Header.Get("X-Custom-Header") != "custom-value" {
			t.Errorf("expected custom header to be set, got %q", got.Header.Get("X-Custom-Header"))
		}
		if !strings.HasPrefix(got.Header.Get("User-Agent"), "waybar-landmark/") {
			t.Errorf("expected user agent to name the application, got %q", got.Header.Get("User-Agent"))
		}
	})
	t.Run("decoding into a non-pointer fails", func(t *testing.T) {
		client := testClient(nil)
		var target testType
		_, err := client.GetJSON(t.Context(), "https://example.com", target)
		if !errors.Is(err, ErrNonPointerTarget) {
			t.Errorf("expected error to be %s, got %v", ErrNonPointerTarget, err)
		}
	})
	t.Run("invalid url fails", func(t *testing.T) {
		client := testClient(nil)
		_, err := client.GetJSON(t.Context(), "http://example.com/xyz%", new(testType))
		if err == nil || !strings.Contains(err.Error(), "failed to parse URL") {
			t.Errorf("expected URL parsing to fail, got %v", err)
		}
	})
	t.Run("transport error is wrapped", func(t *testing.T) {
		client := testClient(testhelper.MockRoundTripper{Fn: func(*stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		}})
		_, err := client.GetJSON(t.Context(), "https://example.com", new(testType))
		if err == nil || !strings.Contains(err.Error(), "failed to perform HTTP request") {
			t.Errorf("expected request to fail, got %v", err)
		}
	})
	t.Run("non-2xx status code fails", func(t *testing.T) {
		client := testClient(testhelper.JSONResponse(stdhttp.StatusNotFound, `{"error":{"code":404}}`))
		status, err := client.GetJSON(t.Context(), "https://example.com", new(testType))
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected error to be %s, got %v", ErrUnexpectedStatus, err)
		}
		if status != stdhttp.StatusNotFound {
			t.Errorf("expected status code 404, got %d", status)
		}
	})
	t.Run("invalid JSON fails", func(t *testing.T) {
		client := testClient(testhelper.JSONResponse(stdhttp.StatusOK, "NOT_JSON"))
		_, err := client.GetJSON(t.Context(), "https://example.com", new(testType))
		if err == nil || !strings.Contains(err.Error(), "failed to decode JSON") {
			t.Errorf("expected decoding to fail, got %v", err)
		}
	})
	t.Run("failing body close is logged", func(t *testing.T) {
		buf := &strings.Builder{}
		client := New(logger.NewLogger(slog.LevelError, buf))
		client.Transport = testhelper.MockRoundTripper{Fn: func(*stdhttp.Request) (*stdhttp.Response, error) {
			return &stdhttp.Response{
				StatusCode: stdhttp.StatusOK,
				Body:       &failCloser{Reader: strings.NewReader(`{}`)},
				Header:     make(stdhttp.Header),
			}, nil
		}}
		if _, err := client.GetJSON(t.Context(), "https://example.com", new(testType)); err != nil {
			t.Fatalf("get request failed: %s", err)
		}
		if !strings.Contains(buf.String(), "failed to close HTTP response body") {
			t.Errorf("expected close failure to be logged, got %q", buf.String())
		}
	})
	t.Run("canceled context is returned unwrapped", func(t *testing.T) {
		testhelper.PerformIntegrationTests(t)
		client := testClient(nil)
		ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond)
		defer cancel()

		_, err := client.GetJSON(ctx, testhelper.TestOnlineAPIURL, new(testType))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected error to be %s, got %v", context.DeadlineExceeded, err)
		}
	})
}

func TestClient_PostJSON(t *testing.T) {
	t.Run("body is sent as JSON", func(t *testing.T) {
		var sent map[string]any
		var contentType string
		client := testClient(testhelper.MockRoundTripper{Fn: func(req *stdhttp.Request) (*stdhttp.Response, error) {
			contentType = req.Header.Get("Content-Type")
			if err := json.NewDecoder(req.Body).Decode(&sent); err != nil {
				return nil, err
			}
			return testhelper.FileResponse(t, testFile).RoundTrip(req)
		}})
		_, err := client.PostJSON(t.Context(), "https://example.com", new(testType),
			WithJSONBody(map[string]any{"considerIp": true}))
		if err != nil {
			t.Fatalf("post request failed: %s", err)
		}
		if contentType != "application/json" {
			t.Errorf("expected content type %q, got %q", "application/json", contentType)
		}
		if sent["considerIp"] != true {
			t.Errorf("expected body to be sent, got %v", sent)
		}
	})
	t.Run("unencodable body fails", func(t *testing.T) {
		client := testClient(nil)
		_, err := client.PostJSON(t.Context(), "https://example.com", new(testType),
			WithJSONBody(make(chan int)))
		if err == nil || !strings.Contains(err.Error(), "failed to encode request body") {
			t.Errorf("expected encoding to fail, got %v", err)
		}
	})
	t.Run("request times out", func(t *testing.T) {
		client := testClient(testhelper.MockRoundTripper{Fn: func(req *stdhttp.Request) (*stdhttp.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		}})
		_, err := client.PostJSON(t.Context(), "https://example.com", new(testType), WithTimeout(time.Millisecond))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected error to be %s, got %v", context.DeadlineExceeded, err)
		}
	})
}

type failCloser struct {
	io.Reader
}

func (failCloser) Close() error { return errors.New("failed to close") }
