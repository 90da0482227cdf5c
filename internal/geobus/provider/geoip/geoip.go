// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoip

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/waybar-landmark/internal/geobus"
	"github.com/wneessen/waybar-landmark/internal/http"
)

const (
	APIEndpoint   = "https://reallyfreegeoip.org/json/"
	LookupTimeout = time.Second * 5
	name          = "geoip"
)

// GeolocationGeoIPProvider resolves the position from the public IP address. It is the least
// accurate provider and only serves as a fallback.
type GeolocationGeoIPProvider struct {
	name     string
	http     *http.Client
	endpoint string
	period   time.Duration
	ttl      time.Duration
}

// APIResult is the response of the GeoIP API.
type APIResult struct {
	IP          string  `json:"ip"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country_name"`
	RegionCode  string  `json:"region_code,omitempty"`
	Region      string  `json:"region_name,omitempty"`
	City        string  `json:"city,omitempty"`
	ZipCode     string  `json:"zip_code,omitempty"`
	TimeZone    string  `json:"time_zone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// NewGeolocationGeoIPProvider returns a GeoIP provider using the given HTTP client.
func NewGeolocationGeoIPProvider(http *http.Client) *GeolocationGeoIPProvider {
	return &GeolocationGeoIPProvider{
		name:     name,
		http:     http,
		endpoint: APIEndpoint,
		period:   30 * time.Minute,
		ttl:      60 * time.Minute,
	}
}

// Name returns the name of the provider.
func (p *GeolocationGeoIPProvider) Name() string {
	return p.name
}

// LookupStream periodically resolves the position and emits it when it changed. A failed
// lookup is reported as long as no position was found yet.
func (p *GeolocationGeoIPProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	poller := geobus.Poller{Source: p.name, Period: p.period, TTL: p.ttl, Locate: p.locate}
	return poller.Stream(ctx, key)
}

func (p *GeolocationGeoIPProvider) locate(ctx context.Context) (geobus.Coordinate, error) {
	result := new(APIResult)
	if _, err := p.http.GetJSON(ctx, p.endpoint, result, http.WithTimeout(LookupTimeout)); err != nil {
		return geobus.Coordinate{}, fmt.Errorf("%w: failed to get geolocation data from API: %w",
			geobus.ErrPositionUnavailable, err)
	}
	if result.CountryCode == "" {
		return geobus.Coordinate{}, fmt.Errorf("%w: no location known for IP %q",
			geobus.ErrPositionUnavailable, result.IP)
	}

	return geobus.Coordinate{
		Lat: geobus.Truncate(result.Latitude, geobus.TruncPrecision),
		Lon: geobus.Truncate(result.Longitude, geobus.TruncPrecision),
		Acc: accuracy(result),
	}, nil
}

// accuracy estimates the accuracy from the most detailed field the API filled in.
func accuracy(result *APIResult) float64 {
	switch {
	case result.ZipCode != "":
		return geobus.AccuracyZip
	case result.City != "":
		return geobus.AccuracyCity
	case result.RegionCode != "":
		return geobus.AccuracyRegion
	case result.CountryCode != "":
		return geobus.AccuracyCountry
	default:
		return geobus.AccuracyUnknown
	}
}
