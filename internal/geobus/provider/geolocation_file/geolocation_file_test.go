// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation_file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/wneessen/waybar-landmark/internal/geobus"
)

const (
	testFile = "../../../../testdata/geolocation"
	testLat  = 51.9378
	testLon  = 8.8790
)

func TestNewGeolocationFileProvider(t *testing.T) {
	provider := NewGeolocationFileProvider(testFile)
	if !strings.EqualFold(provider.Name(), name) {
		t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
	}
	if provider.period != time.Minute || provider.ttl != time.Hour {
		t.Errorf("unexpected period/ttl: %s/%s", provider.period, provider.ttl)
	}
}

func TestGeolocationFileProvider_readFile(t *testing.T) {
	t.Run("fixture file is read", func(t *testing.T) {
		coord, err := NewGeolocationFileProvider(testFile).readFile()
		if err != nil {
			t.Fatalf("failed to read file: %s", err)
		}
		if coord.Lat != testLat || coord.Lon != testLon {
			t.Errorf("expected position %f,%f, got %f,%f", testLat, testLon, coord.Lat, coord.Lon)
		}
		if coord.Acc != DefaultAccuracy {
			t.Errorf("expected accuracy to be %f, got %f", DefaultAccuracy, coord.Acc)
		}
	})
	t.Run("missing file fails", func(t *testing.T) {
		if _, err := NewGeolocationFileProvider("non-existent.txt").readFile(); err == nil {
			t.Error("expected error, but didn't get one")
		}
	})

	tests := []struct {
		name    string
		content string
		want    geobus.Coordinate
		wantErr error
	}{
		{"accuracy column", "51.911667,8.839444,25\n", geobus.Coordinate{Lat: 51.911667, Lon: 8.839444, Acc: 25}, nil},
		{"comments and blank lines", "# home\n\n48.1371,11.5754\n", geobus.Coordinate{Lat: 48.1371, Lon: 11.5754, Acc: DefaultAccuracy}, nil},
		{"first valid line wins", "garbage\n52.52,13.405\n48.85,2.35\n", geobus.Coordinate{Lat: 52.52, Lon: 13.405, Acc: DefaultAccuracy}, nil},
		{"no coordinates", "# nothing here\n", geobus.Coordinate{}, ErrNoCoordinates},
		{"broken latitude", "abc,8.8\n", geobus.Coordinate{}, ErrNoCoordinates},
		{"broken longitude", "51.9,xyz\n", geobus.Coordinate{}, ErrNoCoordinates},
		{"out of range", "95.0,8.8\n", geobus.Coordinate{}, ErrNoCoordinates},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "geolocation")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatalf("failed to write geolocation file: %s", err)
			}
			coord, err := NewGeolocationFileProvider(path).readFile()
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if coord != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, coord)
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
	}{
		{"51.9,8.8", true},
		{" 51.9 , 8.8 , 12 ", true},
		{"51.9", false},
		{"51.9,8.8,0", false},
		{"91,8.8", false},
		{"51.9,8.8,1,2", false},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			if _, ok := parseLine(tc.line); ok != tc.ok {
				t.Errorf("expected parse result for %q to be %t", tc.line, tc.ok)
			}
		})
	}
}

func TestGeolocationFileProvider_LookupStream(t *testing.T) {
	t.Run("lookup stream succeeds", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			provider := NewGeolocationFileProvider(testFile)
			provider.period = time.Millisecond * 10

			out := provider.LookupStream(ctx, "test")
			result := <-out
			cancel()
			synctest.Wait()

			if result.Failed() {
				t.Fatalf("expected a position, got error: %s", result.Err)
			}
			if result.Key != "test" {
				t.Errorf("expected key to be %s, got %s", "test", result.Key)
			}
			if result.Lat != testLat {
				t.Errorf("expected latitude to be %f, got %f", testLat, result.Lat)
			}
			if result.Lon != testLon {
				t.Errorf("expected longitude to be %f, got %f", testLon, result.Lon)
			}
		})
	})
	t.Run("failure is reported before the first position", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			runCount := 0
			provider := NewGeolocationFileProvider(testFile)
			provider.period = time.Millisecond * 10
			provider.locateFn = func() (geobus.Coordinate, error) {
				runCount++
				if runCount < 3 {
					return geobus.Coordinate{}, errors.New("intentionally failing")
				}
				return geobus.Coordinate{Lat: 1, Lon: 2, Acc: DefaultAccuracy}, nil
			}

			out := provider.LookupStream(ctx, "test")
			failure := <-out
			if !errors.Is(failure.Err, geobus.ErrPositionUnavailable) {
				t.Errorf("expected position unavailable error, got %v", failure.Err)
			}
			result := <-out
			cancel()
			synctest.Wait()

			if result.Failed() {
				t.Fatalf("expected only one failure to be reported, got %s", result.Err)
			}
			if result.Lat != 1.0 || result.Lon != 2.0 {
				t.Errorf("unexpected position: %f,%f", result.Lat, result.Lon)
			}
		})
	})
}
