// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/waybar-landmark/internal/logger"
)

// Orchestrator runs a set of location providers and publishes everything they report to a GeoBus.
type Orchestrator struct {
	Bus       *GeoBus
	Providers []Provider
}

// Track runs all providers concurrently for the given key until ctx is cancelled. A provider whose
// stream closes is restarted with exponential backoff.
func (o *Orchestrator) Track(ctx context.Context, key string) {
	var wg sync.WaitGroup
	for _, provider := range o.Providers {
		wg.Go(func() { o.supervise(ctx, provider, key) })
	}
	wg.Wait()
}

// supervise keeps a single provider alive. The backoff is reset once a stream delivered a position.
func (o *Orchestrator) supervise(ctx context.Context, provider Provider, key string) {
	name := provider.Name()
	for delay := initialBackoff; ctx.Err() == nil; delay = nextBackoff(delay) {
		stream, err := open(ctx, provider, key)
		switch {
		case err != nil:
			o.Bus.logger.Error("location provider failed", slog.String("provider", name), logger.Err(err))
			o.Bus.Publish(Result{
				Key: key, Source: name,
				Err: fmt.Errorf("%s: %w", name, ErrPositionUnavailable),
			})
		case o.forward(ctx, stream):
			delay = initialBackoff
		}

		if !sleepOrDone(ctx, delay) {
			return
		}
	}
}

// forward publishes the results of stream until it closes or ctx is done and reports whether a
// position was among them.
func (o *Orchestrator) forward(ctx context.Context, stream <-chan Result) (located bool) {
	for {
		select {
		case <-ctx.Done():
			return located
		case result, ok := <-stream:
			if !ok {
				return located
			}
			located = located || !result.Failed()
			o.Bus.Publish(result)
		}
	}
}

// open starts the provider stream. A panicking provider is reported as an error.
func open(ctx context.Context, provider Provider, key string) (stream <-chan Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			stream, err = nil, fmt.Errorf("provider panicked: %v", r)
		}
	}()
	if stream = provider.LookupStream(ctx, key); stream == nil {
		return nil, fmt.Errorf("provider returned no stream")
	}
	return stream, nil
}

// sleepOrDone waits for d and returns false if ctx ended first.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	return min(2*d, maxBackoff)
}
