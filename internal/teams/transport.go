// Package teams maintains the per-workspace streaming clients and their
// fleet supervisor.
package teams

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/slacktail/internal/config"
)

// EventType tags a transport event.
type EventType int

const (
	// EventConnected signals the streaming session is (re)established.
	EventConnected EventType = iota
	// EventDisconnected signals the session dropped.
	EventDisconnected
	// EventError carries a transport-level error.
	EventError
	// EventMessage carries an inbound chat message.
	EventMessage
)

// RawMessage is a chat event as delivered by the platform, before
// demultiplexing.
type RawMessage struct {
	ChannelID string
	UserID    string
	Text      string
	Timestamp string // platform timestamp string, fractional epoch seconds
	SubType   string // non-empty for edits, joins, etc.
	BotID     string // non-empty when the author is a bot
}

// Event is one item on a transport's event stream.
type Event struct {
	Type    EventType
	Err     error
	Message *RawMessage
}

// ConversationInfo is a directory entry for a channel.
type ConversationInfo struct {
	ID       string
	Name     string
	IsMember bool
}

// UserInfo is a directory entry for a user. Display fields may be empty; the
// caller picks the first non-empty of DisplayName, RealName, Login.
type UserInfo struct {
	ID          string
	DisplayName string
	RealName    string
	Login       string
}

// Directory answers channel and user lookups against the platform's
// directory API.
type Directory interface {
	ConversationInfo(ctx context.Context, channelID string) (ConversationInfo, error)
	UserInfo(ctx context.Context, userID string) (UserInfo, error)
}

// Transport is one long-lived streaming session to a chat platform. Open is
// non-blocking after setup; events arrive on the Events channel until the
// transport is closed. Open after Close is allowed (reconnect).
type Transport interface {
	Directory
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Events() <-chan Event
}

// TransportFactory builds the transport for one team. The supervisor uses it
// so tests can substitute fakes for the platform SDK.
type TransportFactory func(team string, cfg config.TeamConfig, log *slog.Logger) (Transport, error)
