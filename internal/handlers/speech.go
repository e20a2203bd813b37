package handlers

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/slacktail/internal/bus"
)

// DefaultSpeechCommand is the text-to-speech command used when none is
// configured.
const DefaultSpeechCommand = "say"

// Speech is a placeholder text-to-speech sink. It carries the configured
// command string but performs no side effects.
type Speech struct {
	log     *slog.Logger
	enabled bool
	command string
}

// NewSpeech creates the speech placeholder. An empty command defaults to
// DefaultSpeechCommand.
func NewSpeech(enabled bool, command string, log *slog.Logger) *Speech {
	if command == "" {
		command = DefaultSpeechCommand
	}
	if log == nil {
		log = slog.Default()
	}
	return &Speech{log: log, enabled: enabled, command: command}
}

// Name returns "speech".
func (s *Speech) Name() string { return "speech" }

// Enabled reports whether the handler is active.
func (s *Speech) Enabled() bool { return s.enabled }

// Command returns the configured speech command.
func (s *Speech) Command() string { return s.command }

// Handle is a no-op.
func (s *Speech) Handle(_ context.Context, msg bus.Message) error {
	if !s.enabled {
		return nil
	}
	s.log.Debug("speech suppressed", "command", s.command, "team", msg.TeamName)
	return nil
}
