// Package bus defines the message types exchanged between team clients and
// the processing pipeline.
package bus

import "time"

// Message is a single chat message received from a team, normalized for
// rendering. It is immutable once constructed: handlers receive it by value
// and must not retain references into it past Handle returning.
type Message struct {
	TeamName          string    `json:"team_name"`
	ChannelName       string    `json:"channel_name"`
	ChannelID         string    `json:"channel_id"`
	UserName          string    `json:"user_name"`
	Text              string    `json:"text"`
	PlatformTimestamp string    `json:"platform_timestamp"` // upstream string, e.g. "1712345678.000100"
	WallTime          time.Time `json:"wall_time"`          // derived absolute instant used for ordering
}

// Sink receives each accepted message from a team client.
type Sink func(Message)
