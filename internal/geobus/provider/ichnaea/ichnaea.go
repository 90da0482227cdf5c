// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package ichnaea

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mdlayher/wifi"

	"github.com/wneessen/waybar-landmark/internal/geobus"
	"github.com/wneessen/waybar-landmark/internal/http"
)

const (
	apiEndpoint   = "https://api.beacondb.net/v1/geolocate"
	lookupTimeout = time.Second * 5
	wifiScanTime  = time.Minute * 2
	name          = "ichnaea"
)

// scanner lists the wireless interfaces and the access points they see. It is implemented
// by *wifi.Client.
type scanner interface {
	Interfaces() ([]*wifi.Interface, error)
	AccessPoints(ifi *wifi.Interface) ([]*wifi.BSS, error)
	Close() error
}

// GeolocationICHNAEAProvider locates the device through an Ichnaea compatible API (BeaconDB) using
// the surrounding WiFi access points.
type GeolocationICHNAEAProvider struct {
	name     string
	http     *http.Client
	wlan     scanner
	endpoint string
	period   time.Duration
	ttl      time.Duration
	locateFn func(ctx context.Context) (geobus.Coordinate, error)
	seen     accessPoints
}

// accessPoints holds the result of the latest WiFi scan.
type accessPoints struct {
	mu   sync.RWMutex
	list []WirelessNetwork
}

func (a *accessPoints) store(list []WirelessNetwork) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list = list
}

func (a *accessPoints) load() []WirelessNetwork {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.list
}

// APIResult is the response of the geolocate API.
type APIResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

// WirelessNetwork is a single access point as sent to the geolocate API.
type WirelessNetwork struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
}

// NewGeolocationICHNAEAProvider returns a provider using the given HTTP client and the nl80211
// WiFi interfaces of the system.
func NewGeolocationICHNAEAProvider(http *http.Client) (*GeolocationICHNAEAProvider, error) {
	if http == nil {
		return nil, errors.New("http client is required")
	}
	wlan, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create wifi client: %w", err)
	}
	return newProvider(http, wlan), nil
}

func newProvider(http *http.Client, wlan scanner) *GeolocationICHNAEAProvider {
	provider := &GeolocationICHNAEAProvider{
		name:     name,
		http:     http,
		wlan:     wlan,
		endpoint: apiEndpoint,
		period:   time.Minute * 5,
		ttl:      time.Hour * 1,
	}
	provider.locateFn = provider.locate
	return provider
}

// Name returns the name of the provider.
func (p *GeolocationICHNAEAProvider) Name() string {
	return p.name
}

// Close releases the WiFi client.
func (p *GeolocationICHNAEAProvider) Close() error {
	return p.wlan.Close()
}

// LookupStream scans for access points in the background and periodically locates the device
// with them. A failed lookup is reported as long as no position was found yet.
func (p *GeolocationICHNAEAProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	p.scan()
	go p.scanLoop(ctx)

	return geobus.Poller{
		Source: p.name,
		Period: p.period,
		TTL:    p.ttl,
		Locate: func(ctx context.Context) (geobus.Coordinate, error) { return p.locateFn(ctx) },
	}.Stream(ctx, key)
}

// scanLoop rescans the WiFi environment until ctx is done.
func (p *GeolocationICHNAEAProvider) scanLoop(ctx context.Context) {
	ticker := time.NewTicker(wifiScanTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scan()
		}
	}
}

// scan replaces the known access points. A failed scan keeps the previous list.
func (p *GeolocationICHNAEAProvider) scan() {
	if list, err := p.wifiAccessPoints(); err == nil {
		p.seen.store(list)
	}
}

func (p *GeolocationICHNAEAProvider) wifiAccessPoints() ([]WirelessNetwork, error) {
	ifaces, err := p.wlan.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var list []WirelessNetwork
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		if bss, err := p.wlan.AccessPoints(iface); err == nil {
			list = append(list, mappable(bss)...)
		}
	}
	return list, nil
}

// mappable converts the scanned BSS into access points, leaving out hidden networks and networks
// whose SSID ends in "_nomap".
func mappable(bss []*wifi.BSS) []WirelessNetwork {
	list := make([]WirelessNetwork, 0, len(bss))
	for _, ap := range bss {
		if ap.SSID == "" || ap.SSID[0] == '\x00' || strings.HasSuffix(ap.SSID, "_nomap") {
			continue
		}
		list = append(list, WirelessNetwork{
			SignalStrength: ap.Signal / 100,
			MACAddress:     ap.BSSID.String(),
			LastSeen:       ap.LastSeen.Milliseconds(),
		})
	}
	return list
}

func (p *GeolocationICHNAEAProvider) locate(ctx context.Context) (geobus.Coordinate, error) {
	body := struct {
		ConsiderIP   bool              `json:"considerIp"`
		Accesspoints []WirelessNetwork `json:"wifiAccessPoints,omitempty"`
	}{ConsiderIP: true, Accesspoints: p.seen.load()}

	result := new(APIResult)
	_, err := p.http.PostJSON(ctx, p.endpoint, result, http.WithJSONBody(body), http.WithTimeout(lookupTimeout))
	switch {
	case err != nil:
		return geobus.Coordinate{}, fmt.Errorf("%w: failed to get geolocation data from API: %w",
			geobus.ErrPositionUnavailable, err)
	case result.Accuracy <= 0:
		return geobus.Coordinate{}, fmt.Errorf("%w: API returned no accuracy", geobus.ErrPositionUnavailable)
	}

	return geobus.Coordinate{
		Lat: geobus.Truncate(result.Location.Latitude, geobus.TruncPrecision),
		Lon: geobus.Truncate(result.Location.Longitude, geobus.TruncPrecision),
		Acc: geobus.Truncate(result.Accuracy, geobus.TruncPrecision),
	}, nil
}
