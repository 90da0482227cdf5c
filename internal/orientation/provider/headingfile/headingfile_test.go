// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package headingfile

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wneessen/waybar-landmark/internal/orientation"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		heading float64
		ok      bool
	}{
		{"123.4", 123.4, true},
		{"  42 ", 42, true},
		{"alpha:90", 270, true},
		{"alpha: 0", 0, true},
		{"# comment", 0, false},
		{"", 0, false},
		{"north", 0, false},
		{"alpha:", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			heading, ok := ParseLine(tc.line)
			if ok != tc.ok || math.Abs(heading-tc.heading) > 1e-9 {
				t.Errorf("expected (%f, %t), got (%f, %t)", tc.heading, tc.ok, heading, ok)
			}
		})
	}
}

func TestProvider_HeadingStream(t *testing.T) {
	t.Run("headings are read from the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "heading")
		if err := os.WriteFile(path, []byte("# bridge\n10\nalpha:90\ngarbage\n"), 0o600); err != nil {
			t.Fatalf("failed to write heading file: %s", err)
		}
		provider := New(path)
		if provider.Name() != name {
			t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
		}
		stream, err := provider.HeadingStream(t.Context())
		if err != nil {
			t.Fatalf("failed to open heading stream: %s", err)
		}
		var headings []float64
		for r := range stream {
			headings = append(headings, r.Heading)
		}
		if len(headings) != 2 || headings[0] != 10 || headings[1] != 270 {
			t.Errorf("unexpected headings: %v", headings)
		}
	})
	t.Run("missing file is unsupported", func(t *testing.T) {
		provider := New(filepath.Join(t.TempDir(), "missing"))
		if _, err := provider.HeadingStream(t.Context()); !errors.Is(err, orientation.ErrUnsupported) {
			t.Errorf("expected error to be %s, got %s", orientation.ErrUnsupported, err)
		}
	})
	t.Run("cancelling the context closes the file", func(t *testing.T) {
		reader, writer := io.Pipe()
		provider := New("pipe")
		provider.openFn = func(string) (io.ReadCloser, error) { return reader, nil }

		ctx, cancel := context.WithCancel(t.Context())
		stream, err := provider.HeadingStream(ctx)
		if err != nil {
			t.Fatalf("failed to open heading stream: %s", err)
		}
		go func() { _, _ = io.Copy(writer, strings.NewReader("5\n")) }()
		if r := <-stream; r.Heading != 5 {
			t.Errorf("expected heading 5, got %f", r.Heading)
		}
		cancel()
		for range stream {
		}
		_ = writer.Close()
	})
}
