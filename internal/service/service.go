// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/wneessen/waybar-landmark/internal/alignment"
	"github.com/wneessen/waybar-landmark/internal/camera"
	"github.com/wneessen/waybar-landmark/internal/config"
	"github.com/wneessen/waybar-landmark/internal/debounce"
	"github.com/wneessen/waybar-landmark/internal/geo"
	"github.com/wneessen/waybar-landmark/internal/geobus"
	"github.com/wneessen/waybar-landmark/internal/gpswatch"
	"github.com/wneessen/waybar-landmark/internal/haptic"
	"github.com/wneessen/waybar-landmark/internal/logger"
	"github.com/wneessen/waybar-landmark/internal/orientation"
	"github.com/wneessen/waybar-landmark/internal/presenter"
	"github.com/wneessen/waybar-landmark/internal/session"
)

const (
	DesktopID = "waybar-landmark"

	outputJobName    = "landmark_output_job"
	subscriberBuffer = 32
)

type outputData struct {
	Text    string   `json:"text"`
	Tooltip string   `json:"tooltip"`
	Classes []string `json:"class"`
}

type Service struct {
	config    *config.Config
	logger    *logger.Logger
	t         *spreak.Localizer
	presenter *presenter.Presenter
	scheduler gocron.Scheduler
	SignalSrc signalSource

	geobus      *geobus.GeoBus
	orientation *orientation.Bus
	gps         *gpswatch.Watcher
	tracker     *alignment.Tracker
	session     *session.Machine
	camera      *camera.Session
	locTimeout  *debounce.Timer
	target      geo.Point
	closers     []io.Closer

	// watchResume is replaced in tests, the default watches logind for resume events
	watchResume func(context.Context)
	systemBus   func() (sleepBus, error)

	outputLock sync.Mutex
	output     io.Writer

	// trackerLock orders tracker updates so the latest bearing is always evaluated last
	trackerLock sync.Mutex

	stateLock   sync.RWMutex
	position    geobus.Result
	hasPosition bool
	measurement geo.Measurement
	arMode      bool
}

func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if t == nil {
		return nil, errors.New("localizer is required")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	pres, err := presenter.New(conf, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	actuator := haptic.New(haptic.Options{
		Mode:    conf.Haptic.Mode,
		AppID:   DesktopID,
		Event:   conf.Haptic.Event,
		Summary: conf.Target.Name,
		Body:    t.Getf("Aligned with %s!", conf.Target.Name),
	}, log)
	tracker := alignment.New(alignment.Options{
		DeadBand:     conf.Alignment.DeadBand,
		AlignDelay:   conf.Alignment.AlignDelay,
		UnalignDelay: conf.Alignment.UnalignDelay,
		Pattern:      conf.HapticPattern(),
	}, actuator, log)

	serv := &Service{
		config:      conf,
		logger:      log,
		t:           t,
		presenter:   pres,
		scheduler:   scheduler,
		SignalSrc:   osSignals{},
		geobus:      geobus.New(log),
		orientation: orientation.New(log, conf.Intervals.HeadingMaxAge),
		tracker:     tracker,
		session:     session.NewMachine(log),
		camera:      camera.NewSession(camera.NewV4L2Provider(conf.Camera.Device), log),
		locTimeout:  debounce.New(),
		target:      geo.Point{Lat: conf.Target.Lat, Lon: conf.Target.Lon},
		output:      os.Stdout,
	}
	if !conf.GeoLocation.DisableGPSD || !conf.Orientation.DisableGPSD {
		serv.gps = gpswatch.New(conf.GPSD.Host, conf.GPSD.Port, log)
	}
	serv.watchResume = serv.monitorSleepResume
	serv.systemBus = connectSystemBus
	serv.session.OnTransition(serv.sessionTransition)
	serv.tracker.OnChange(func(bool) { serv.printOutput() })

	return serv, nil
}

func (s *Service) Run(ctx context.Context) error {
	geoProviders, err := s.selectGeobusProviders()
	if err != nil {
		return fmt.Errorf("failed to create geobus orchestrator: %w", err)
	}
	orchestrator := s.geobus.NewOrchestrator(geoProviders)
	headingProviders := s.selectOrientationProviders()

	if err = s.createScheduledJob(ctx, s.config.Intervals.Output, s.refresh, outputJobName); err != nil {
		return err
	}
	s.scheduler.Start()

	locations, unsubLocations := s.geobus.Subscribe(DesktopID, subscriberBuffer)
	headings, unsubHeadings := s.orientation.Subscribe(subscriberBuffer)

	var wg sync.WaitGroup
	wg.Go(func() { s.processLocationUpdates(ctx, locations) })
	wg.Go(func() { s.processHeadingUpdates(ctx, headings) })
	wg.Go(func() { orchestrator.Track(ctx, DesktopID) })
	wg.Go(func() { s.orientation.Run(ctx, headingProviders) })
	if s.gps != nil {
		wg.Go(func() { s.gps.Run(ctx) })
	}
	if s.watchResume != nil {
		wg.Go(func() { s.watchResume(ctx) })
	}

	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, clickSignals...)
	wg.Go(func() { s.HandleSignals(ctx, sigChan) })

	s.start()

	// Wait for the context to cancel
	<-ctx.Done()
	s.SignalSrc.Stop(sigChan)
	s.shutdown()
	wg.Wait()
	unsubLocations()
	unsubHeadings()

	return s.scheduler.Shutdown()
}

// start leaves the permission phase and begins waiting for the first position.
func (s *Service) start() {
	s.session.Dispatch(session.Event{Type: session.EventStart})
	s.printOutput()
}

// Retry restarts the location request after an error and reopens the camera in AR mode.
func (s *Service) Retry(ctx context.Context) {
	s.logger.Debug("retry requested", slog.String("phase", s.session.State().Phase.String()))
	s.session.Dispatch(session.Event{Type: session.EventRetry})

	s.stateLock.RLock()
	arMode := s.arMode
	s.stateLock.RUnlock()
	if arMode {
		if err := s.camera.Start(ctx); err != nil {
			s.logger.Warn("failed to restart camera", logger.Err(err))
		}
	}
	s.printOutput()
}

// ToggleAR switches between the compass and the augmented reality view. Entering AR mode opens the
// camera, leaving it releases the camera.
func (s *Service) ToggleAR(ctx context.Context) {
	s.stateLock.Lock()
	s.arMode = !s.arMode
	arMode := s.arMode
	s.stateLock.Unlock()

	if arMode {
		if err := s.camera.Start(ctx); err != nil {
			s.logger.Warn("failed to start camera", logger.Err(err))
		}
	} else if err := s.camera.Close(); err != nil {
		s.logger.Error("failed to release camera", logger.Err(err))
	}
	s.logger.Debug("AR mode toggled", slog.Bool("enabled", arMode))
	s.printOutput()
}

// sessionTransition arms the location timeout whenever the session starts waiting for a position
// and disarms it when the wait ends.
func (s *Service) sessionTransition(prev, next session.State) {
	if next.Phase == session.Loading {
		s.locTimeout.Schedule(s.config.Intervals.LocationTimeout, func() {
			s.logger.Debug("location request timed out")
			s.session.Dispatch(session.Event{Type: session.EventTimeout})
		})
	} else if prev.Phase == session.Loading {
		s.locTimeout.Cancel()
	}
	if next.Phase == session.Error {
		s.printOutput()
	}
}

// processLocationUpdates applies geolocation results from the geobus to the service state.
func (s *Service) processLocationUpdates(ctx context.Context, sub <-chan geobus.Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-sub:
			if !ok {
				return
			}
			s.applyLocation(r)
		}
	}
}

func (s *Service) applyLocation(r geobus.Result) {
	if r.Failed() {
		s.logger.Debug("geolocation provider failed", slog.String("source", r.Source), logger.Err(r.Err))
		s.dropPosition()
		s.session.Dispatch(session.Event{Type: session.EventLocationFailed, Err: r.Err})
		return
	}

	s.logger.Debug("received geolocation update", slog.Float64("lat", r.Lat), slog.Float64("lon", r.Lon),
		slog.Float64("accuracy", r.AccuracyMeters), slog.String("source", r.Source))

	// Distance and bearing always come from the same sample
	measurement := geo.Measure(geo.Point{Lat: r.Lat, Lon: r.Lon}, s.target)
	s.trackerLock.Lock()
	s.stateLock.Lock()
	s.position = r
	s.hasPosition = true
	s.measurement = measurement
	s.stateLock.Unlock()
	s.tracker.Update(measurement.Bearing, s.orientation.Heading())
	s.trackerLock.Unlock()

	s.session.Dispatch(session.Event{Type: session.EventPosition})
	s.printOutput()
}

// dropPosition forgets the current position. The bus only forwards failures once no valid
// position is left, so the last distance and bearing must not be shown any longer.
func (s *Service) dropPosition() {
	s.trackerLock.Lock()
	defer s.trackerLock.Unlock()
	s.stateLock.Lock()
	s.position = geobus.Result{}
	s.hasPosition = false
	s.measurement = geo.Measurement{}
	s.stateLock.Unlock()
	s.tracker.Reset()
}

// processHeadingUpdates feeds every heading reading into the alignment tracker.
func (s *Service) processHeadingUpdates(ctx context.Context, sub <-chan orientation.Reading) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub:
			if !ok {
				return
			}
			s.updateTracker()
		}
	}
}

// updateTracker feeds the current bearing and heading into the alignment tracker.
func (s *Service) updateTracker() {
	s.trackerLock.Lock()
	defer s.trackerLock.Unlock()

	s.stateLock.RLock()
	hasPosition := s.hasPosition
	bearing := s.measurement.Bearing
	s.stateLock.RUnlock()
	if !hasPosition {
		return
	}
	s.tracker.Update(bearing, s.orientation.Heading())
}

// refresh is the periodic output job. Re-evaluating the tracker lets a stale heading clear the
// alignment even when no further readings arrive.
func (s *Service) refresh(context.Context) {
	s.updateTracker()
	s.printOutput()
}

func (s *Service) snapshot() presenter.Snapshot {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()

	snap := presenter.Snapshot{
		Position:             s.position,
		HasPosition:          s.hasPosition,
		Measurement:          s.measurement,
		Heading:              s.orientation.Heading(),
		OrientationSupported: s.orientation.Supported(),
		Aligned:              s.tracker.Aligned(),
		Session:              s.session.State(),
		AR:                   s.arMode,
	}
	if s.arMode {
		snap.CameraErr = s.camera.Err()
	}
	return snap
}

// printOutput renders the current state and writes it as a single JSON line.
func (s *Service) printOutput() {
	out, err := s.presenter.Render(s.snapshot())
	if err != nil {
		s.logger.Error("failed to render output", logger.Err(err))
		return
	}

	output := outputData{
		Text:    out.Text,
		Tooltip: out.Tooltip,
		Classes: out.Classes,
	}

	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	if err = json.NewEncoder(s.output).Encode(output); err != nil {
		s.logger.Error("failed to encode output data", logger.Err(err))
	}
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// shutdown releases everything that outlives a single update: pending debounce callbacks, the
// camera stream and provider resources.
func (s *Service) shutdown() {
	s.tracker.Close()
	s.locTimeout.Stop()
	if err := s.camera.Close(); err != nil {
		s.logger.Error("failed to release camera", logger.Err(err))
	}
	for _, closer := range s.closers {
		if err := closer.Close(); err != nil {
			s.logger.Error("failed to close provider", logger.Err(err))
		}
	}
}
