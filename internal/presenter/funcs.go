// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/vorlif/humanize"

	"github.com/wneessen/waybar-landmark/internal/geo"
)

const (
	kmPerMile   = 1.609344
	feetPerMile = 5280
)

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeFormat":    p.timeFormat,
		"localizedTime": p.localizedTime,
		"naturalTime":   p.naturalTime,
		"floatFormat":   p.floatFormat,
		"distance":      p.distance,
		"lat":           FormatLatitude,
		"lon":           FormatLongitude,
		"loc":           p.loc,
		"lc":            strings.ToLower,
		"uc":            strings.ToUpper,
	}
}

func (p *Presenter) loc(val string) string {
	val = strings.ToLower(val)
	if raw, ok := i18nVars[val]; ok {
		return p.localizer.Get(raw)
	}
	return val
}

func (p *Presenter) localizedTime(val time.Time) string {
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

func (p *Presenter) naturalTime(val time.Time) string {
	return p.humanizer.NaturalTime(val)
}

func (p *Presenter) timeFormat(val time.Time, fmt string) string {
	return val.Format(fmt)
}

func (p *Presenter) floatFormat(val float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, val)
}

func (p *Presenter) distance(km float64) string {
	return FormatDistance(km, p.units)
}

// FormatDistance formats a distance given in kilometers. Metric distances below one kilometer are
// shown in whole meters, imperial distances below a tenth of a mile in whole feet.
func FormatDistance(km float64, units string) string {
	if math.IsNaN(km) || km < 0 {
		km = 0
	}
	if units == "imperial" {
		miles := km / kmPerMile
		if miles < 0.1 {
			return fmt.Sprintf("%d ft", int(math.Round(miles*feetPerMile)))
		}
		return fmt.Sprintf("%.1f mi", miles)
	}
	if km < 1 {
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1f km", km)
}

// FormatLatitude formats a latitude with four decimals and its hemisphere, e.g. 51.9117°N.
func FormatLatitude(lat float64) string {
	return formatCoordinate(lat, "N", "S")
}

// FormatLongitude formats a longitude with four decimals and its hemisphere, e.g. 8.8394°E.
func FormatLongitude(lon float64) string {
	return formatCoordinate(lon, "E", "W")
}

func formatCoordinate(val float64, positive, negative string) string {
	hemisphere := positive
	if val < 0 {
		hemisphere = negative
	}
	return fmt.Sprintf("%.4f°%s", math.Abs(val), hemisphere)
}

// Arrow returns the arrow glyph closest to the given angle, with 0° pointing up.
func Arrow(deg float64) string {
	idx := int(math.Round(geo.Normalize(deg)/45)) % len(ArrowGlyphs)
	return ArrowGlyphs[idx]
}
