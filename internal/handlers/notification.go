package handlers

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/slacktail/internal/bus"
)

// Notification is a placeholder desktop-notification sink. Disabled by
// default; when enabled it completes without side effects.
type Notification struct {
	log     *slog.Logger
	enabled bool
}

// NewNotification creates the notification placeholder.
func NewNotification(enabled bool, log *slog.Logger) *Notification {
	if log == nil {
		log = slog.Default()
	}
	return &Notification{log: log, enabled: enabled}
}

// Name returns "notification".
func (n *Notification) Name() string { return "notification" }

// Enabled reports whether the handler is active.
func (n *Notification) Enabled() bool { return n.enabled }

// Handle is a no-op.
func (n *Notification) Handle(_ context.Context, msg bus.Message) error {
	if !n.enabled {
		return nil
	}
	n.log.Debug("notification suppressed", "team", msg.TeamName, "channel", msg.ChannelName)
	return nil
}
