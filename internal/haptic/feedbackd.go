// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package haptic

import (
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/waybar-landmark/internal/logger"
)

const (
	feedbackdDest   = "org.sigxcpu.Feedback"
	feedbackdPath   = "/org/sigxcpu/Feedback"
	feedbackdMethod = "org.sigxcpu.Feedback.TriggerFeedback"

	// feedbackdDefaultTimeout lets feedbackd decide how long the feedback lasts
	feedbackdDefaultTimeout = int32(-1)
)

// Feedbackd triggers haptic feedback through the feedbackd daemon found on Linux phones.
type Feedbackd struct {
	obj    caller
	appID  string
	event  string
	logger *logger.Logger
}

// NewFeedbackd returns a Feedbackd actuator for the given D-Bus object.
func NewFeedbackd(obj caller, appID, event string, log *logger.Logger) *Feedbackd {
	return &Feedbackd{obj: obj, appID: appID, event: event, logger: log}
}

// Trigger asks feedbackd to play the configured event. feedbackd plays its own vibration profile
// for the event, the pattern is only used for logging. No reply is awaited.
func (f *Feedbackd) Trigger(pattern []time.Duration) {
	call := f.obj.Go(feedbackdMethod, dbus.FlagNoReplyExpected, nil, f.appID, f.event,
		map[string]dbus.Variant{}, feedbackdDefaultTimeout)
	if call != nil && call.Err != nil {
		f.logger.Debug("failed to trigger feedbackd event", logger.Err(call.Err))
		return
	}
	f.logger.Debug("haptic feedback triggered", slog.String("event", f.event),
		slog.Duration("pattern", PatternDuration(pattern)))
}
