// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geoclue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/waybar-landmark/internal/geobus"
)

const (
	name = "geoclue"

	busName         = "org.freedesktop.GeoClue2"
	managerPath     = dbus.ObjectPath("/org/freedesktop/GeoClue2/Manager")
	managerIface    = "org.freedesktop.GeoClue2.Manager"
	clientIface     = "org.freedesktop.GeoClue2.Client"
	locationIface   = "org.freedesktop.GeoClue2.Location"
	locationUpdated = "LocationUpdated"

	errAccessDenied   = "org.freedesktop.DBus.Error.AccessDenied"
	errServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"

	// AccuracyLevelExact requests the most accurate position GeoClue can provide.
	AccuracyLevelExact uint32 = 8

	signalBufferSize = 8
)

// locationSource delivers positions from a location service session.
type locationSource interface {
	Locations(ctx context.Context) (<-chan geobus.Coordinate, error)
	Close() error
}

// GeolocationGeoClueProvider receives positions from the GeoClue2 location service on the system bus.
type GeolocationGeoClueProvider struct {
	name      string
	desktopID string
	ttl       time.Duration
	connectFn func(ctx context.Context) (locationSource, error)
}

// NewGeolocationGeoClueProvider returns a provider that registers with GeoClue under desktopID. GeoClue
// uses the desktop ID to look up the permission of the application.
func NewGeolocationGeoClueProvider(desktopID string) *GeolocationGeoClueProvider {
	provider := &GeolocationGeoClueProvider{
		name:      name,
		desktopID: desktopID,
		ttl:       time.Minute * 5,
	}
	provider.connectFn = provider.connect
	return provider
}

// Name returns the name of the provider.
func (p *GeolocationGeoClueProvider) Name() string {
	return p.name
}

// LookupStream starts a GeoClue session and emits every position GeoClue reports. If the session
// cannot be started, the classified failure is emitted and the stream is closed.
func (p *GeolocationGeoClueProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	go func() {
		defer close(out)

		source, err := p.connectFn(ctx)
		if err != nil {
			p.send(ctx, out, geobus.Result{Key: key, Source: p.name, At: time.Now(), Err: err})
			return
		}
		defer func() { _ = source.Close() }()

		locations, err := source.Locations(ctx)
		if err != nil {
			p.send(ctx, out, geobus.Result{Key: key, Source: p.name, At: time.Now(), Err: err})
			return
		}

		state := geobus.GeolocationState{}
		for coord := range locations {
			if !coord.Valid() || coord.Acc <= 0 || !state.HasChanged(coord) {
				continue
			}
			state.Update(coord)
			if !p.send(ctx, out, geobus.NewResult(key, p.name, coord, p.ttl)) {
				return
			}
		}
	}()
	return out
}

func (p *GeolocationGeoClueProvider) send(ctx context.Context, out chan<- geobus.Result, r geobus.Result) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- r:
		return true
	}
}

// classifyError maps a D-Bus error onto the location failure taxonomy.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	switch dbusErrorName(err) {
	case errAccessDenied:
		return fmt.Errorf("%w: %w", geobus.ErrPermissionDenied, err)
	case errServiceUnknown:
		return fmt.Errorf("%w: geoclue service not available: %w", geobus.ErrPositionUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", geobus.ErrPositionUnavailable, err)
	}
}

func dbusErrorName(err error) string {
	var valErr dbus.Error
	if errors.As(err, &valErr) {
		return valErr.Name
	}
	var ptrErr *dbus.Error
	if errors.As(err, &ptrErr) && ptrErr != nil {
		return ptrErr.Name
	}
	return ""
}

// dbusSession is a GeoClue client registered on the system bus.
type dbusSession struct {
	conn   *dbus.Conn
	client dbus.BusObject
	path   dbus.ObjectPath
}

func (p *GeolocationGeoClueProvider) connect(ctx context.Context) (locationSource, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to system bus: %w", geobus.ErrPositionUnavailable, err)
	}

	var clientPath dbus.ObjectPath
	manager := conn.Object(busName, managerPath)
	if err = manager.CallWithContext(ctx, managerIface+".GetClient", 0).Store(&clientPath); err != nil {
		_ = conn.Close()
		return nil, classifyError(err)
	}

	client := conn.Object(busName, clientPath)
	if err = client.SetProperty(clientIface+".DesktopId", dbus.MakeVariant(p.desktopID)); err != nil {
		_ = conn.Close()
		return nil, classifyError(err)
	}
	if err = client.SetProperty(clientIface+".RequestedAccuracyLevel", dbus.MakeVariant(AccuracyLevelExact)); err != nil {
		_ = conn.Close()
		return nil, classifyError(err)
	}
	return &dbusSession{conn: conn, client: client, path: clientPath}, nil
}

// Locations starts the GeoClue client and forwards each updated location until ctx is done.
func (s *dbusSession) Locations(ctx context.Context) (<-chan geobus.Coordinate, error) {
	if err := s.conn.AddMatchSignal(dbus.WithMatchObjectPath(s.path), dbus.WithMatchInterface(clientIface),
		dbus.WithMatchMember(locationUpdated)); err != nil {
		return nil, classifyError(err)
	}
	signals := make(chan *dbus.Signal, signalBufferSize)
	s.conn.Signal(signals)

	if err := s.client.CallWithContext(ctx, clientIface+".Start", 0).Err; err != nil {
		s.conn.RemoveSignal(signals)
		return nil, classifyError(err)
	}

	out := make(chan geobus.Coordinate)
	go func() {
		defer close(out)
		defer s.conn.RemoveSignal(signals)
		defer func() { _ = s.client.Call(clientIface+".Stop", 0).Err }()

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				path, ok := newLocationPath(sig)
				if !ok {
					continue
				}
				coord, err := s.readLocation(path)
				if err != nil {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- coord:
				}
			}
		}
	}()
	return out, nil
}

// Close closes the system bus connection.
func (s *dbusSession) Close() error {
	return s.conn.Close()
}

func (s *dbusSession) readLocation(path dbus.ObjectPath) (geobus.Coordinate, error) {
	location := s.conn.Object(busName, path)
	props := map[string]float64{"Latitude": 0, "Longitude": 0, "Accuracy": 0}
	for prop := range props {
		variant, err := location.GetProperty(locationIface + "." + prop)
		if err != nil {
			return geobus.Coordinate{}, fmt.Errorf("failed to read location property %s: %w", prop, err)
		}
		value, ok := variant.Value().(float64)
		if !ok {
			return geobus.Coordinate{}, fmt.Errorf("location property %s is not a double", prop)
		}
		props[prop] = value
	}
	return geobus.Coordinate{Lat: props["Latitude"], Lon: props["Longitude"], Acc: props["Accuracy"]}, nil
}

// newLocationPath extracts the path of the new location object from a LocationUpdated signal.
func newLocationPath(sig *dbus.Signal) (dbus.ObjectPath, bool) {
	if sig == nil || sig.Name != clientIface+"."+locationUpdated || len(sig.Body) != 2 {
		return "", false
	}
	path, ok := sig.Body[1].(dbus.ObjectPath)
	return path, ok && path.IsValid()
}
