// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geolocation_file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/waybar-landmark/internal/geobus"
)

const (
	name = "geolocation_file"

	// DefaultAccuracy is used for lines that carry no accuracy column.
	DefaultAccuracy = 10.0
)

var ErrNoCoordinates = errors.New("no valid coordinates found in geolocation file")

// GeolocationFileProvider reads a fixed position from a file and emits it via a stream.
//
// The file holds one position per line in the form "lat,lon" or "lat,lon,accuracy", the accuracy
// given in meters. Empty lines and lines starting with "#" are skipped, the first valid line wins.
// The file is re-read periodically, so a changed position is picked up without a restart.
type GeolocationFileProvider struct {
	name     string
	path     string
	period   time.Duration
	ttl      time.Duration
	locateFn func() (geobus.Coordinate, error)
}

// NewGeolocationFileProvider initializes a GeolocationFileProvider with a file path and default update
// interval and TTL settings.
func NewGeolocationFileProvider(path string) *GeolocationFileProvider {
	provider := &GeolocationFileProvider{
		name:   name,
		path:   path,
		period: time.Minute,
		ttl:    time.Hour,
	}
	provider.locateFn = provider.readFile
	return provider
}

// Name returns the name of the GeolocationFileProvider instance.
func (p *GeolocationFileProvider) Name() string {
	return p.name
}

// LookupStream streams the position from the file. A failure is reported once as long as no
// position has been read yet.
func (p *GeolocationFileProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	poller := geobus.Poller{
		Source:   p.name,
		Period:   p.period,
		TTL:      p.ttl,
		FailOnce: true,
		Locate: func(context.Context) (geobus.Coordinate, error) {
			return p.locateFn()
		},
	}
	return poller.Stream(ctx, key)
}

// readFile reads the first valid position from the file at the configured path.
func (p *GeolocationFileProvider) readFile() (geobus.Coordinate, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to read geolocation file %q: %w", p.path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coord, ok := parseLine(line); ok {
			return coord, nil
		}
	}
	return geobus.Coordinate{}, ErrNoCoordinates
}

func parseLine(line string) (geobus.Coordinate, bool) {
	fields := strings.Split(line, ",")
	if len(fields) != 2 && len(fields) != 3 {
		return geobus.Coordinate{}, false
	}
	values := make([]float64, len(fields))
	for i, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return geobus.Coordinate{}, false
		}
		values[i] = value
	}

	coord := geobus.Coordinate{Lat: values[0], Lon: values[1], Acc: DefaultAccuracy}
	if len(values) == 3 {
		if values[2] <= 0 {
			return geobus.Coordinate{}, false
		}
		coord.Acc = values[2]
	}
	return coord, coord.Valid()
}
