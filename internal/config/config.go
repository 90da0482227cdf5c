// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv = "WAYBARLANDMARK"

	DefaultTextTpl    = `{{if .HasPosition}}{{.Arrow}} {{distance .Distance}}{{else}}{{.Message}}{{end}}`
	DefaultAltTextTpl = `{{if .HasPosition}}{{.Strip}} {{distance .Distance}}{{else}}{{.Message}}{{end}}`
	DefaultTooltipTpl = `{{.Target.Name}}` +
		`{{if .HasPosition}}` + "\n" +
		`{{loc "distance"}}: {{distance .Distance}}` + "\n" +
		`{{loc "bearing"}}: {{floatFormat .Bearing 0}}° {{.Compass}}` + "\n" +
		`{{loc "position"}}: {{lat .Latitude}} {{lon .Longitude}} (±{{floatFormat .Accuracy 0}} m)` + "\n" +
		`{{loc "heading"}}: {{if .Heading.IsSet}}{{floatFormat .Heading.Value 0}}°{{else}}{{loc "n/a"}}{{end}}` +
		`{{if .Hint}}` + "\n" + `{{.Hint}}{{end}}` +
		`{{else}}` + "\n" + `{{.Message}}{{end}}` + "\n" +
		`{{loc "gps"}}: {{loc .GPSStatus}}` +
		`{{if not .UpdateTime.IsZero}}` + "\n" + `{{loc "updated"}}: {{naturalTime .UpdateTime}}{{end}}`
	DefaultAltTooltipTpl = `{{.Target.Name}} ({{loc "ar"}})` +
		`{{if .CameraError}}` + "\n" + `{{.CameraError}}{{end}}` +
		`{{if .HasPosition}}` + "\n" +
		`{{loc "distance"}}: {{distance .Distance}}` + "\n" +
		`{{if .Hint}}{{.Hint}}{{else}}{{loc "in view"}}{{end}}` +
		`{{end}}`
)

// Config represents the application's configuration structure.
type Config struct {
	// Allowed values: metric, imperial
	Units    string     `fig:"units" default:"metric"`
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Target struct {
		Name string  `fig:"name" default:"Hermannsdenkmal"`
		Lat  float64 `fig:"lat" default:"51.911667"`
		Lon  float64 `fig:"lon" default:"8.839444"`
	} `fig:"target"`

	Alignment struct {
		// Allowed value: 0 < dead_band <= 180
		DeadBand     float64       `fig:"dead_band" default:"15"`
		AlignDelay   time.Duration `fig:"align_delay" default:"100ms"`
		UnalignDelay time.Duration `fig:"unalign_delay" default:"200ms"`
	} `fig:"alignment"`

	Intervals struct {
		Output          time.Duration `fig:"output" default:"5s"`
		LocationTimeout time.Duration `fig:"location_timeout" default:"15s"`
		HeadingMaxAge   time.Duration `fig:"heading_max_age" default:"10s"`
	} `fig:"intervals"`

	Templates struct {
		Text       string `fig:"text"`
		AltText    string `fig:"alt_text"`
		Tooltip    string `fig:"tooltip"`
		AltTooltip string `fig:"alt_tooltip"`
	} `fig:"templates"`

	GeoLocation struct {
		File                   string `fig:"file"`
		DisableGeoClue         bool   `fig:"disable_geoclue"`
		DisableGPSD            bool   `fig:"disable_gpsd"`
		DisableGeoIP           bool   `fig:"disable_geoip"`
		DisableGeolocationFile bool   `fig:"disable_geolocation_file"`
		DisableICHNAEA         bool   `fig:"disable_ichnaea"`
	} `fig:"geolocation"`

	GPSD struct {
		Host string `fig:"host" default:"localhost"`
		Port string `fig:"port" default:"2947"`
	} `fig:"gpsd"`

	Orientation struct {
		DisableSensorProxy bool   `fig:"disable_sensorproxy"`
		DisableGPSD        bool   `fig:"disable_gpsd"`
		HeadingFile        string `fig:"heading_file"`
	} `fig:"orientation"`

	Haptic struct {
		// Allowed values: feedbackd, notify, none
		Mode    string `fig:"mode" default:"feedbackd"`
		Event   string `fig:"event" default:"message-new-instant"`
		Pattern []int  `fig:"pattern" default:"[200,100,200]"`
	} `fig:"haptic"`

	Camera struct {
		Device string `fig:"device" default:"/dev/video0"`
	} `fig:"camera"`

	Overlay struct {
		// Allowed value: 0 < field_of_view <= 360
		FieldOfView float64 `fig:"field_of_view" default:"60"`
		Width       int     `fig:"width" default:"21"`
		Marker      string  `fig:"marker" default:"▲"`
	} `fig:"overlay"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Units != "metric" && c.Units != "imperial" {
		return fmt.Errorf("invalid units: %s", c.Units)
	}
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if math.IsNaN(c.Target.Lat) || c.Target.Lat < -90 || c.Target.Lat > 90 {
		return fmt.Errorf("invalid target latitude: %f", c.Target.Lat)
	}
	if math.IsNaN(c.Target.Lon) || c.Target.Lon < -180 || c.Target.Lon > 180 {
		return fmt.Errorf("invalid target longitude: %f", c.Target.Lon)
	}
	if c.Alignment.DeadBand <= 0 || c.Alignment.DeadBand > 180 {
		return fmt.Errorf("invalid alignment dead band: %f", c.Alignment.DeadBand)
	}
	if c.Alignment.AlignDelay < 0 || c.Alignment.UnalignDelay < 0 {
		return fmt.Errorf("invalid alignment delays: %s/%s", c.Alignment.AlignDelay, c.Alignment.UnalignDelay)
	}
	if c.Intervals.Output <= 0 {
		return fmt.Errorf("invalid output interval: %s", c.Intervals.Output)
	}
	if c.Intervals.LocationTimeout <= 0 {
		return fmt.Errorf("invalid location timeout: %s", c.Intervals.LocationTimeout)
	}
	if c.Intervals.HeadingMaxAge <= 0 {
		return fmt.Errorf("invalid heading max age: %s", c.Intervals.HeadingMaxAge)
	}
	switch strings.ToLower(c.Haptic.Mode) {
	case "feedbackd", "notify", "none":
	default:
		return fmt.Errorf("invalid haptic mode: %s", c.Haptic.Mode)
	}
	for _, ms := range c.Haptic.Pattern {
		if ms < 0 {
			return fmt.Errorf("invalid haptic pattern: %v", c.Haptic.Pattern)
		}
	}
	if c.Overlay.FieldOfView <= 0 || c.Overlay.FieldOfView > 360 {
		return fmt.Errorf("invalid overlay field of view: %f", c.Overlay.FieldOfView)
	}
	if c.Overlay.Width < 3 {
		return fmt.Errorf("invalid overlay width: %d", c.Overlay.Width)
	}
	if c.Target.Name == "" {
		c.Target.Name = fmt.Sprintf("%.4f,%.4f", c.Target.Lat, c.Target.Lon)
	}
	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}
	if c.Templates.AltText == "" {
		c.Templates.AltText = DefaultAltTextTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}
	if c.Templates.AltTooltip == "" {
		c.Templates.AltTooltip = DefaultAltTooltipTpl
	}
	if c.GeoLocation.File == "" {
		home, _ := os.UserHomeDir()
		c.GeoLocation.File = filepath.Join(home, ".config", "waybar-landmark", "geolocation")
	}

	return nil
}

// HapticPattern returns the configured vibration pattern.
func (c *Config) HapticPattern() []time.Duration {
	pattern := make([]time.Duration, 0, len(c.Haptic.Pattern))
	for _, ms := range c.Haptic.Pattern {
		pattern = append(pattern, time.Duration(ms)*time.Millisecond)
	}
	return pattern
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
