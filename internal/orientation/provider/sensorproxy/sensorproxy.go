// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package sensorproxy reads the compass of iio-sensor-proxy over the system bus.
package sensorproxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/waybar-landmark/internal/orientation"
)

const (
	name = "sensorproxy"

	busName         = "net.hadess.SensorProxy"
	compassPath     = dbus.ObjectPath("/net/hadess/SensorProxy/Compass")
	compassIface    = "net.hadess.SensorProxy.Compass"
	propertiesIface = "org.freedesktop.DBus.Properties"
	propHasCompass  = "HasCompass"
	propHeading     = "CompassHeading"

	errServiceUnknown = "org.freedesktop.DBus.Error.ServiceUnknown"

	signalBufferSize = 8
)

// compass is a claimed compass delivering raw headings. A negative heading means the sensor
// has no reading.
type compass interface {
	Headings(ctx context.Context) (<-chan float64, error)
	Close() error
}

// Provider delivers the compass heading of iio-sensor-proxy.
type Provider struct {
	name      string
	connectFn func(ctx context.Context) (compass, error)
}

// New returns a sensorproxy Provider.
func New() *Provider {
	return &Provider{name: name, connectFn: connect}
}

// Name returns the name of the provider.
func (p *Provider) Name() string {
	return p.name
}

// HeadingStream claims the compass and streams its headings until ctx is done. It returns
// orientation.ErrUnsupported when iio-sensor-proxy is not running or the system has no compass.
func (p *Provider) HeadingStream(ctx context.Context) (<-chan orientation.Reading, error) {
	c, err := p.connectFn(ctx)
	if err != nil {
		return nil, err
	}
	headings, err := c.Headings(ctx)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	out := make(chan orientation.Reading)
	go func() {
		defer close(out)
		defer func() { _ = c.Close() }()
		for heading := range headings {
			if heading < 0 {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- orientation.Reading{Heading: heading, Source: p.name, At: time.Now()}:
			}
		}
	}()
	return out, nil
}

// headingFromSignal extracts the compass heading from a PropertiesChanged signal.
func headingFromSignal(sig *dbus.Signal) (float64, bool) {
	if sig == nil || sig.Name != propertiesIface+".PropertiesChanged" || len(sig.Body) < 2 {
		return 0, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != compassIface {
		return 0, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return 0, false
	}
	variant, ok := changed[propHeading]
	if !ok {
		return 0, false
	}
	heading, ok := variant.Value().(float64)
	return heading, ok
}

func isServiceUnknown(err error) bool {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return dbusErr.Name == errServiceUnknown
	}
	var dbusErrPtr *dbus.Error
	return errors.As(err, &dbusErrPtr) && dbusErrPtr != nil && dbusErrPtr.Name == errServiceUnknown
}

type dbusCompass struct {
	conn   *dbus.Conn
	object dbus.BusObject
}

func connect(ctx context.Context) (compass, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	object := conn.Object(busName, compassPath)

	variant, err := object.GetProperty(compassIface + "." + propHasCompass)
	if err != nil {
		_ = conn.Close()
		if isServiceUnknown(err) {
			return nil, fmt.Errorf("iio-sensor-proxy is not running: %w", orientation.ErrUnsupported)
		}
		return nil, fmt.Errorf("failed to query compass: %w", err)
	}
	if hasCompass, ok := variant.Value().(bool); !ok || !hasCompass {
		_ = conn.Close()
		return nil, fmt.Errorf("no compass found: %w", orientation.ErrUnsupported)
	}
	return &dbusCompass{conn: conn, object: object}, nil
}

// Headings claims the compass and forwards heading changes until ctx is done. The compass is
// released when the stream ends.
func (c *dbusCompass) Headings(ctx context.Context) (<-chan float64, error) {
	if err := c.conn.AddMatchSignal(dbus.WithMatchObjectPath(compassPath), dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged")); err != nil {
		return nil, fmt.Errorf("failed to subscribe to compass changes: %w", err)
	}
	signals := make(chan *dbus.Signal, signalBufferSize)
	c.conn.Signal(signals)

	if err := c.object.CallWithContext(ctx, compassIface+".ClaimCompass", 0).Err; err != nil {
		c.conn.RemoveSignal(signals)
		return nil, fmt.Errorf("failed to claim compass: %w", err)
	}

	out := make(chan float64)
	go func() {
		defer close(out)
		defer c.conn.RemoveSignal(signals)
		defer func() { _ = c.object.Call(compassIface+".ReleaseCompass", 0).Err }()

		if variant, err := c.object.GetProperty(compassIface + "." + propHeading); err == nil {
			if heading, ok := variant.Value().(float64); ok {
				select {
				case <-ctx.Done():
					return
				case out <- heading:
				}
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				heading, ok := headingFromSignal(sig)
				if !ok {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- heading:
				}
			}
		}
	}()
	return out, nil
}

// Close closes the system bus connection.
func (c *dbusCompass) Close() error {
	return c.conn.Close()
}
