// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoclue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"testing/synctest"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/waybar-landmark/internal/geobus"
)

type fakeSource struct {
	coords    []geobus.Coordinate
	startErr  error
	closed    atomic.Bool
	keepAlive bool
}

func (s *fakeSource) Locations(ctx context.Context) (<-chan geobus.Coordinate, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	out := make(chan geobus.Coordinate)
	go func() {
		defer close(out)
		for _, c := range s.coords {
			select {
			case <-ctx.Done():
				return
			case out <- c:
			}
		}
		if s.keepAlive {
			<-ctx.Done()
		}
	}()
	return out, nil
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

func TestGeolocationGeoClueProvider_Name(t *testing.T) {
	provider := NewGeolocationGeoClueProvider("waybar-landmark")
	if provider.Name() != name {
		t.Errorf("expected provider name to be %s, got %s", name, provider.Name())
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"access denied", dbus.Error{Name: errAccessDenied}, geobus.ErrPermissionDenied},
		{"access denied pointer", dbus.NewError(errAccessDenied, nil), geobus.ErrPermissionDenied},
		{"wrapped access denied", fmt.Errorf("call: %w", dbus.Error{Name: errAccessDenied}), geobus.ErrPermissionDenied},
		{"service unknown", dbus.Error{Name: errServiceUnknown}, geobus.ErrPositionUnavailable},
		{"other error", errors.New("broken pipe"), geobus.ErrPositionUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := classifyError(tc.err); !errors.Is(err, tc.want) {
				t.Errorf("expected error to be %s, got %s", tc.want, err)
			}
		})
	}
	if classifyError(nil) != nil {
		t.Error("expected nil error to stay nil")
	}
}

func TestNewLocationPath(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
		ok   bool
	}{
		{"valid signal", &dbus.Signal{
			Name: clientIface + "." + locationUpdated,
			Body: []interface{}{dbus.ObjectPath("/"), dbus.ObjectPath("/org/freedesktop/GeoClue2/Location/1")},
		}, true},
		{"nil signal", nil, false},
		{"other member", &dbus.Signal{
			Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
			Body: []interface{}{dbus.ObjectPath("/"), dbus.ObjectPath("/org/freedesktop/GeoClue2/Location/1")},
		}, false},
		{"wrong body", &dbus.Signal{Name: clientIface + "." + locationUpdated, Body: []interface{}{"x"}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := newLocationPath(tc.sig); ok != tc.ok {
				t.Errorf("expected result to be %t", tc.ok)
			}
		})
	}
}

func TestGeolocationGeoClueProvider_LookupStream(t *testing.T) {
	t.Run("positions are emitted once per significant change", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			source := &fakeSource{keepAlive: true, coords: []geobus.Coordinate{
				{Lat: 51.911667, Lon: 8.839444, Acc: 0},
				{Lat: 51.911667, Lon: 8.839444, Acc: 20},
				{Lat: 51.911667, Lon: 8.839444, Acc: 20},
				{Lat: 51.92, Lon: 8.84, Acc: 20},
			}}
			provider := NewGeolocationGeoClueProvider("waybar-landmark")
			provider.connectFn = func(context.Context) (locationSource, error) { return source, nil }

			out := provider.LookupStream(ctx, "test")
			first, second := <-out, <-out
			synctest.Wait()
			select {
			case r := <-out:
				t.Errorf("expected no further result, got %+v", r)
			default:
			}
			cancel()
			synctest.Wait()

			if first.AccuracyMeters != 20 || first.Source != name {
				t.Errorf("unexpected first result: %+v", first)
			}
			if second.Lat != 51.92 {
				t.Errorf("unexpected second result: %+v", second)
			}
			if !source.closed.Load() {
				t.Error("expected location source to be closed")
			}
		})
	})
	t.Run("permission denied is reported", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			provider := NewGeolocationGeoClueProvider("waybar-landmark")
			provider.connectFn = func(context.Context) (locationSource, error) {
				return nil, classifyError(dbus.Error{Name: errAccessDenied})
			}

			out := provider.LookupStream(t.Context(), "test")
			r := <-out
			if !errors.Is(r.Err, geobus.ErrPermissionDenied) {
				t.Errorf("expected permission denied, got %v", r.Err)
			}
			if _, ok := <-out; ok {
				t.Error("expected stream to be closed after the failure")
			}
		})
	})
	t.Run("failing start is reported and closes the session", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			source := &fakeSource{startErr: classifyError(errors.New("no client"))}
			provider := NewGeolocationGeoClueProvider("waybar-landmark")
			provider.connectFn = func(context.Context) (locationSource, error) { return source, nil }

			r := <-provider.LookupStream(t.Context(), "test")
			if !errors.Is(r.Err, geobus.ErrPositionUnavailable) {
				t.Errorf("expected position unavailable, got %v", r.Err)
			}
			synctest.Wait()
			if !source.closed.Load() {
				t.Error("expected location source to be closed")
			}
		})
	})
}
