// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package presenter turns the tracking state into the text, tooltip and classes of the waybar
// module.
package presenter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"

	"github.com/wneessen/waybar-landmark/internal/config"
	"github.com/wneessen/waybar-landmark/internal/geo"
	"github.com/wneessen/waybar-landmark/internal/geobus"
	"github.com/wneessen/waybar-landmark/internal/overlay"
	"github.com/wneessen/waybar-landmark/internal/session"
	"github.com/wneessen/waybar-landmark/internal/vartype"
)

const (
	OutputClass    = "waybar-landmark"
	ClassActive    = "active"
	ClassAligned   = "aligned"
	ClassSearching = "searching"
	ClassError     = "error"
	ClassOff       = "off"
	ClassAR        = "ar"
)

// Landmark is the target the distance and bearing are computed against.
type Landmark struct {
	Name     string
	Lat, Lon float64
}

// Snapshot is the tracking state at the time of rendering.
type Snapshot struct {
	Position    geobus.Result
	HasPosition bool
	Measurement geo.Measurement

	Heading              vartype.VarFloat64
	OrientationSupported bool
	Aligned              bool

	Session   session.State
	AR        bool
	CameraErr error
}

// TemplateContext is the data the templates are executed with.
type TemplateContext struct {
	Target Landmark

	HasPosition bool
	Latitude    float64
	Longitude   float64
	Accuracy    float64
	Source      string
	UpdateTime  time.Time

	// Distance is in kilometers, Bearing in degrees clockwise from north.
	Distance float64
	Bearing  float64
	Compass  string

	Heading   vartype.VarFloat64
	Relative  vartype.VarFloat64
	Arrow     string
	Direction string
	Hint      string
	Aligned   bool

	AR          bool
	Placement   overlay.Placement
	Strip       string
	CameraError string

	Phase                string
	GPSStatus            string
	Message              string
	OrientationSupported bool
}

// Output is the rendered module content.
type Output struct {
	Text    string
	Tooltip string
	Classes []string
}

type Presenter struct {
	TextTemplate       *template.Template
	AltTextTemplate    *template.Template
	TooltipTemplate    *template.Template
	AltTooltipTemplate *template.Template

	localizer *spreak.Localizer
	humanizer *humanize.Humanizer

	target     Landmark
	units      string
	deadBand   float64
	fov        float64
	stripWidth int
	marker     string
}

func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	collection, err := humanize.New(humanize.WithLocale(de.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}
	pres := &Presenter{
		localizer:  loc,
		humanizer:  collection.CreateHumanizer(loc.Language()),
		target:     Landmark{Name: conf.Target.Name, Lat: conf.Target.Lat, Lon: conf.Target.Lon},
		units:      conf.Units,
		deadBand:   conf.Alignment.DeadBand,
		fov:        conf.Overlay.FieldOfView,
		stripWidth: conf.Overlay.Width,
		marker:     conf.Overlay.Marker,
	}

	templates := []struct {
		name string
		text string
		dst  **template.Template
	}{
		{"text", conf.Templates.Text, &pres.TextTemplate},
		{"alt_text", conf.Templates.AltText, &pres.AltTextTemplate},
		{"tooltip", conf.Templates.Tooltip, &pres.TooltipTemplate},
		{"alt_tooltip", conf.Templates.AltTooltip, &pres.AltTooltipTemplate},
	}
	for _, tpl := range templates {
		parsed, err := template.New(tpl.name).Funcs(pres.templateFuncMap()).Parse(tpl.text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", tpl.name, err)
		}
		*tpl.dst = parsed
	}

	// Execute every template once, so that field errors surface at startup
	if _, err = pres.Render(Snapshot{}); err != nil {
		return nil, err
	}
	if _, err = pres.Render(Snapshot{AR: true}); err != nil {
		return nil, err
	}

	return pres, nil
}

// Target returns the configured landmark.
func (p *Presenter) Target() Landmark {
	return p.target
}

// BuildContext derives the template context from a snapshot.
func (p *Presenter) BuildContext(snap Snapshot) TemplateContext {
	ctx := TemplateContext{
		Target:               p.target,
		HasPosition:          snap.HasPosition,
		Heading:              snap.Heading,
		Aligned:              snap.Aligned,
		AR:                   snap.AR,
		Phase:                snap.Session.Phase.String(),
		GPSStatus:            snap.Session.GPSStatus(),
		OrientationSupported: snap.OrientationSupported,
		Direction:            geo.DirectionUnknown.String(),
		Strip:                overlay.EmptyStrip(p.stripWidth),
	}
	if snap.CameraErr != nil {
		ctx.CameraError = p.localizer.Get(msgCameraUnavailable)
	}

	if !snap.HasPosition {
		ctx.Message = p.statusMessage(snap.Session)
		return ctx
	}

	ctx.Latitude = snap.Position.Lat
	ctx.Longitude = snap.Position.Lon
	ctx.Accuracy = snap.Position.AccuracyMeters
	ctx.Source = snap.Position.Source
	ctx.UpdateTime = snap.Position.At
	ctx.Distance = snap.Measurement.Distance
	ctx.Bearing = snap.Measurement.Bearing
	ctx.Compass = geo.CompassPoint(snap.Measurement.Bearing)

	// Without a heading the arrow points north-up at the target
	ctx.Arrow = Arrow(ctx.Bearing)
	if heading, ok := snap.Heading.Get(); ok {
		relative := geo.RelativeBearing(ctx.Bearing, heading)
		ctx.Relative = vartype.NewVariable(relative)
		ctx.Arrow = Arrow(relative)
		ctx.Placement = overlay.Place(ctx.Bearing, heading, ctx.Distance, p.fov)
		ctx.Strip = overlay.Strip(ctx.Placement, p.stripWidth, p.marker)

		direction := geo.TurnDirection(ctx.Bearing, heading, p.deadBand)
		if snap.AR {
			direction = ctx.Placement.Direction
		}
		ctx.Direction = direction.String()
		ctx.Hint = p.turnHint(direction)
	}

	switch {
	case snap.Aligned:
		ctx.Hint = p.localizer.Getf(msgAligned, p.target.Name)
	case !snap.Heading.IsSet() && !snap.OrientationSupported:
		ctx.Hint = p.localizer.Get(msgOrientationUnsupported)
	case !snap.Heading.IsSet():
		ctx.Hint = p.localizer.Get(msgWaitingForCompass)
	}

	return ctx
}

// Render executes the text and tooltip templates for the snapshot. In AR mode the alternative
// templates are used.
func (p *Presenter) Render(snap Snapshot) (Output, error) {
	ctx := p.BuildContext(snap)
	textTpl, tooltipTpl := p.TextTemplate, p.TooltipTemplate
	textName, tooltipName := "text", "tooltip"
	if snap.AR {
		textTpl, tooltipTpl = p.AltTextTemplate, p.AltTooltipTemplate
		textName, tooltipName = "alt text", "alt tooltip"
	}

	text, err := execute(textTpl, ctx)
	if err != nil {
		return Output{}, fmt.Errorf("failed to render %s template: %w", textName, err)
	}
	tooltip, err := execute(tooltipTpl, ctx)
	if err != nil {
		return Output{}, fmt.Errorf("failed to render %s template: %w", tooltipName, err)
	}

	return Output{
		Text:    strings.TrimSpace(text),
		Tooltip: strings.TrimSpace(tooltip),
		Classes: Classes(snap),
	}, nil
}

// Classes returns the CSS classes of the module for the snapshot.
func Classes(snap Snapshot) []string {
	classes := []string{OutputClass}
	switch snap.Session.GPSStatus() {
	case "active":
		classes = append(classes, ClassActive)
	case "searching":
		classes = append(classes, ClassSearching)
	case "error":
		classes = append(classes, ClassError)
	default:
		classes = append(classes, ClassOff)
	}
	if snap.Aligned {
		classes = append(classes, ClassAligned)
	}
	if snap.AR {
		classes = append(classes, ClassAR)
	}
	return classes
}

func (p *Presenter) statusMessage(state session.State) string {
	if state.Phase == session.Error {
		return p.localizer.Get(failureMessages[state.Failure])
	}
	if msg, ok := phaseMessages[state.Phase]; ok {
		return p.localizer.Get(msg)
	}
	return ""
}

func (p *Presenter) turnHint(direction geo.Direction) string {
	switch direction {
	case geo.DirectionLeft:
		return p.localizer.Get(msgTurnLeft)
	case geo.DirectionRight:
		return p.localizer.Get(msgTurnRight)
	default:
		return ""
	}
}

func execute(tpl *template.Template, ctx TemplateContext) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := tpl.Execute(buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}
