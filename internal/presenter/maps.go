// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"github.com/vorlif/spreak/localize"

	"github.com/wneessen/waybar-landmark/internal/session"
)

// ArrowGlyphs holds one arrow per 45° sector, starting at north and going clockwise.
var ArrowGlyphs = []string{"↑", "↗", "→", "↘", "↓", "↙", "←", "↖"}

// i18nVars maps the lowercase keys usable with the loc template function to their messages.
var i18nVars = map[string]localize.MsgID{
	"distance":  "Distance",
	"bearing":   "Bearing",
	"heading":   "Heading",
	"position":  "Position",
	"accuracy":  "Accuracy",
	"gps":       "GPS",
	"updated":   "Updated",
	"n/a":       "n/a",
	"ar":        "AR",
	"in view":   "In view",
	"active":    "active",
	"searching": "searching",
	"error":     "error",
	"off":       "off",
}

// phaseMessages are shown instead of the distance while no position is known.
var phaseMessages = map[session.Phase]localize.MsgID{
	session.RequestingPermission: "Requesting location access",
	session.Loading:              "Determining location",
}

var failureMessages = map[session.Failure]localize.MsgID{
	session.FailureNone:                "Location could not be determined.",
	session.FailurePermissionDenied:    "Location access denied. Please enable location sharing.",
	session.FailurePositionUnavailable: "Location information is unavailable. Please try again.",
	session.FailureTimeout:             "The location request took too long. Please try again.",
}

const (
	msgCameraUnavailable      localize.MsgID = "Camera could not be started. Please allow camera access."
	msgAligned                localize.MsgID = "Aligned with %s!"
	msgTurnLeft               localize.MsgID = "Turn left"
	msgTurnRight              localize.MsgID = "Turn right"
	msgWaitingForCompass      localize.MsgID = "Waiting for compass"
	msgOrientationUnsupported localize.MsgID = "Compass is not supported on this device"
)
