// Package config loads and validates the .env.json configuration file.
package config

import "regexp"

// DefaultPath is the conventional config location in the working directory.
const DefaultPath = ".env.json"

var (
	appTokenRe  = regexp.MustCompile(`^xapp-1-[A-Za-z0-9-]+$`)
	botTokenRe  = regexp.MustCompile(`^xoxb-[A-Za-z0-9-]+$`)
	channelIDRe = regexp.MustCompile(`^C[A-Z0-9]{10}$`)
)

// Config is the full slacktail configuration.
type Config struct {
	Teams     map[string]TeamConfig `json:"teams"`
	Handlers  HandlersConfig        `json:"handlers"`
	Highlight HighlightConfig       `json:"highlight"`
	Telemetry TelemetryConfig       `json:"telemetry"`
}

// TeamConfig holds the credentials and channel subscription set for one
// workspace.
type TeamConfig struct {
	AppToken string   `json:"appToken"` // xapp-1-…, authenticates the Socket Mode session
	BotToken string   `json:"botToken"` // xoxb-…, authenticates directory API calls
	Channels []string `json:"channels"` // channel IDs, each C + 10 of [A-Z0-9]
}

// HandlersConfig toggles the built-in handlers.
type HandlersConfig struct {
	Console      ConsoleConfig `json:"console"`
	Notification ToggleConfig  `json:"notification"`
	Speech       SpeechConfig  `json:"speech"`
}

// ConsoleConfig controls the console renderer. Enabled defaults to true when
// absent.
type ConsoleConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// On reports the effective enabled state.
func (c ConsoleConfig) On() bool {
	return c.Enabled == nil || *c.Enabled
}

// ToggleConfig is a plain enabled flag, off by default.
type ToggleConfig struct {
	Enabled bool `json:"enabled"`
}

// SpeechConfig controls the speech handler.
type SpeechConfig struct {
	Enabled bool   `json:"enabled"`
	Command string `json:"command,omitempty"` // default "say"
}

// HighlightConfig lists the /pattern/flags keyword specs.
type HighlightConfig struct {
	Keywords []string `json:"keywords,omitempty"`
}

// TelemetryConfig controls optional OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	ServiceName string `json:"service_name,omitempty"` // default "slacktail"
	Insecure    bool   `json:"insecure,omitempty"`
}

// ValidAppToken reports whether s has the app-level token shape.
func ValidAppToken(s string) bool { return appTokenRe.MatchString(s) }

// ValidBotToken reports whether s has the bot token shape.
func ValidBotToken(s string) bool { return botTokenRe.MatchString(s) }

// ValidChannelID reports whether s has the channel identifier shape.
func ValidChannelID(s string) bool { return channelIDRe.MatchString(s) }
