// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package camera owns the camera stream used by the augmented reality mode.
package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wneessen/waybar-landmark/internal/logger"
)

// ErrCameraUnavailable is returned when no camera stream could be started.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Stream is an open camera stream. It must be closed to release the device.
type Stream interface {
	Device() string
	Close() error
}

// Provider opens camera streams.
type Provider interface {
	Open(ctx context.Context) (Stream, error)
}

// Session holds at most one open stream.
type Session struct {
	provider Provider
	logger   *logger.Logger

	mu     sync.Mutex
	stream Stream
	err    error
}

// NewSession returns a Session opening streams with provider.
func NewSession(provider Provider, log *logger.Logger) *Session {
	return &Session{provider: provider, logger: log}
}

// Start opens a new stream. A stream that is still open is released first, so Start doubles as
// retry. The returned error wraps ErrCameraUnavailable and is kept until the next Start or Close.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.releaseLocked(); err != nil {
		s.logger.Warn("failed to release camera stream", logger.Err(err))
	}

	if s.provider == nil {
		s.err = fmt.Errorf("%w: no camera configured", ErrCameraUnavailable)
		return s.err
	}
	stream, err := s.provider.Open(ctx)
	if err != nil {
		if !errors.Is(err, ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
		}
		s.err = err
		return err
	}
	s.stream, s.err = stream, nil
	s.logger.Debug("camera stream started", slog.String("device", stream.Device()))
	return nil
}

// Close releases the stream and clears a previous start error. Closing an idle session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
	return s.releaseLocked()
}

func (s *Session) releaseLocked() error {
	if s.stream == nil {
		return nil
	}
	stream := s.stream
	s.stream = nil
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close camera stream %s: %w", stream.Device(), err)
	}
	s.logger.Debug("camera stream released", slog.String("device", stream.Device()))
	return nil
}

// Active reports whether a stream is open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Err returns the error of the last failed Start.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
