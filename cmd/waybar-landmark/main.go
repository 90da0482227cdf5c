// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

//go:build linux

// Package main implements the waybar-landmark service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wneessen/waybar-landmark/internal/config"
	"github.com/wneessen/waybar-landmark/internal/i18n"
	"github.com/wneessen/waybar-landmark/internal/logger"
	"github.com/wneessen/waybar-landmark/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configExtensions are probed in order when no config file is given.
var configExtensions = []string{"toml", "yaml", "yml", "json"}

func main() {
	confPath := flag.String("config", "", "path to the config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGABRT, os.Interrupt)
	err := run(ctx, *confPath)
	stop()
	if err != nil {
		logger.New(slog.LevelError).Error("waybar-landmark terminated", logger.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, confPath string) error {
	conf, err := loadConfig(confPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(conf.LogLevel)

	t, err := i18n.New(conf.Locale)
	if err != nil {
		return fmt.Errorf("failed to initialize localizer: %w", err)
	}
	serv, err := service.New(conf, log, t)
	if err != nil {
		return fmt.Errorf("failed to initialize waybar-landmark service: %w", err)
	}

	log.Info(t.Get("starting waybar-landmark service"),
		slog.String("version", version), slog.String("commit", commit), slog.String("date", date),
		slog.String("target", conf.Target.Name))
	if err = serv.Run(ctx); err != nil {
		return fmt.Errorf("%s: %w", t.Get("failed to start waybar-landmark service"), err)
	}
	log.Info(t.Get("shutting down waybar-landmark service"))
	return nil
}

// loadConfig reads the given config file. Without one it probes the user config directory and
// falls back to defaults and environment overrides.
func loadConfig(confPath string) (*config.Config, error) {
	if confPath == "" {
		confPath = findConfigFile()
	}
	if confPath == "" {
		return config.New()
	}
	return config.NewFromFile(filepath.Dir(confPath), filepath.Base(confPath))
}

func findConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, ext := range configExtensions {
		candidate := filepath.Join(dir, "waybar-landmark", "config."+ext)
		if _, err = os.Stat(candidate); err == nil {
			return candidate
		}
		if !errors.Is(err, os.ErrNotExist) {
			return ""
		}
	}
	return ""
}
