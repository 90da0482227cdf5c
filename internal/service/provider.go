// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"errors"

	"github.com/wneessen/waybar-landmark/internal/geobus"
	"github.com/wneessen/waybar-landmark/internal/geobus/provider/geoclue"
	"github.com/wneessen/waybar-landmark/internal/geobus/provider/geoip"
	"github.com/wneessen/waybar-landmark/internal/geobus/provider/geolocation_file"
	"github.com/wneessen/waybar-landmark/internal/geobus/provider/gpsd"
	"github.com/wneessen/waybar-landmark/internal/geobus/provider/ichnaea"
	"github.com/wneessen/waybar-landmark/internal/http"
	"github.com/wneessen/waybar-landmark/internal/logger"
	"github.com/wneessen/waybar-landmark/internal/orientation"
	gpscourse "github.com/wneessen/waybar-landmark/internal/orientation/provider/gpsd"
	"github.com/wneessen/waybar-landmark/internal/orientation/provider/headingfile"
	"github.com/wneessen/waybar-landmark/internal/orientation/provider/sensorproxy"
)

var ErrNoLocationProvider = errors.New("no geolocation providers enabled")

func (s *Service) selectGeobusProviders() ([]geobus.Provider, error) {
	httpClient := http.New(s.logger)
	var provider []geobus.Provider

	if !s.config.GeoLocation.DisableGeolocationFile {
		provider = append(provider, geolocation_file.NewGeolocationFileProvider(s.config.GeoLocation.File))
	}

	if !s.config.GeoLocation.DisableGeoClue {
		provider = append(provider, geoclue.NewGeolocationGeoClueProvider(DesktopID))
	}

	if !s.config.GeoLocation.DisableGPSD && s.gps != nil {
		provider = append(provider, gpsd.NewGeolocationGPSDProvider(s.gps))
	}

	if !s.config.GeoLocation.DisableGeoIP {
		provider = append(provider, geoip.NewGeolocationGeoIPProvider(httpClient))
	}

	if !s.config.GeoLocation.DisableICHNAEA {
		mls, err := ichnaea.NewGeolocationICHNAEAProvider(httpClient)
		if err != nil {
			s.logger.Error("failed to create ICHNAEA provider", logger.Err(err))
		} else {
			provider = append(provider, mls)
			s.closers = append(s.closers, mls)
		}
	}
	if len(provider) == 0 {
		return nil, ErrNoLocationProvider
	}

	return provider, nil
}

// selectOrientationProviders returns the enabled heading sources. An empty list is valid, the
// orientation is then reported as unsupported.
func (s *Service) selectOrientationProviders() []orientation.Provider {
	var provider []orientation.Provider

	if !s.config.Orientation.DisableSensorProxy {
		provider = append(provider, sensorproxy.New())
	}

	if !s.config.Orientation.DisableGPSD && s.gps != nil {
		provider = append(provider, gpscourse.New(s.gps))
	}

	if s.config.Orientation.HeadingFile != "" {
		provider = append(provider, headingfile.New(s.config.Orientation.HeadingFile))
	}

	return provider
}
