// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package haptic

import (
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/waybar-landmark/internal/logger"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = "org.freedesktop.Notifications.Notify"
	notifyIcon   = "find-location"
)

// Notifier replaces haptic feedback with a desktop notification on devices without a vibration
// motor.
type Notifier struct {
	obj     caller
	appName string
	summary string
	body    string
	logger  *logger.Logger
}

// NewNotifier returns a Notifier for the given D-Bus object.
func NewNotifier(obj caller, appName, summary, body string, log *logger.Logger) *Notifier {
	return &Notifier{obj: obj, appName: appName, summary: summary, body: body, logger: log}
}

// Trigger sends the notification. The notification expires after the pattern duration.
func (n *Notifier) Trigger(pattern []time.Duration) {
	expire := int32(PatternDuration(pattern).Milliseconds())
	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(0))}
	call := n.obj.Go(notifyMethod, dbus.FlagNoReplyExpected, nil, n.appName, uint32(0), notifyIcon,
		n.summary, n.body, []string{}, hints, expire)
	if call != nil && call.Err != nil {
		n.logger.Debug("failed to send alignment notification", logger.Err(call.Err))
	}
}
