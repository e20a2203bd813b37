package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"

	"github.com/nextlevelbuilder/slacktail/internal/highlight"
)

// Load reads, parses, and validates the config file. Any violation is fatal
// and reported with the team/field name.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded config against the syntactic shape rules.
func (c *Config) Validate() error {
	if len(c.Teams) == 0 {
		return fmt.Errorf("config: teams must be a non-empty mapping")
	}

	for name, team := range c.Teams {
		if !ValidAppToken(team.AppToken) {
			return fmt.Errorf("config: team %q: appToken must match xapp-1-…", name)
		}
		if !ValidBotToken(team.BotToken) {
			return fmt.Errorf("config: team %q: botToken must match xoxb-…", name)
		}
		if len(team.Channels) == 0 {
			return fmt.Errorf("config: team %q: channels must be a non-empty array", name)
		}
		for _, id := range team.Channels {
			if !ValidChannelID(id) {
				return fmt.Errorf("config: team %q: channel %q must match C[A-Z0-9]{10}", name, id)
			}
		}
	}

	for _, kw := range c.Highlight.Keywords {
		if _, err := highlight.Compile(kw); err != nil {
			return fmt.Errorf("config: highlight keyword %q: %w", kw, err)
		}
	}

	return nil
}
