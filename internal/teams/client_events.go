package teams

import (
	"context"
	"strconv"
	"time"

	"github.com/nextlevelbuilder/slacktail/internal/bus"
)

// handleMessageEvent demultiplexes one inbound chat event: filter, resolve
// names, deliver to the sink. Any failure here drops the event and logs it;
// one bad event must not take the session down.
func (c *Client) handleMessageEvent(ctx context.Context, raw *RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("message handling panicked", "team", c.team, "panic", r)
		}
	}()

	if raw == nil {
		return
	}
	// Plain user messages only: edits/joins carry a subtype, bot traffic a
	// bot id, and anything outside the kept set was never subscribed.
	if raw.SubType != "" || raw.BotID != "" {
		return
	}

	c.mu.Lock()
	if !c.keptSet[raw.ChannelID] {
		c.mu.Unlock()
		return
	}
	channelName := c.directory[raw.ChannelID]
	c.mu.Unlock()
	if channelName == "" {
		channelName = raw.ChannelID
	}

	msg := bus.Message{
		TeamName:          c.team,
		ChannelName:       channelName,
		ChannelID:         raw.ChannelID,
		UserName:          c.resolveUser(ctx, raw.UserID),
		Text:              raw.Text,
		PlatformTimestamp: raw.Timestamp,
		WallTime:          epochToTime(raw.Timestamp),
	}
	c.sink(msg)
}

// resolveUser maps a user id to a display name, preferring display name over
// real name over login. Lookups go through the rate limiter and are cached;
// on any failure the raw id is used.
func (c *Client) resolveUser(ctx context.Context, userID string) string {
	if userID == "" {
		return "unknown"
	}

	c.mu.Lock()
	if name, ok := c.users[userID]; ok {
		c.mu.Unlock()
		return name
	}
	c.mu.Unlock()

	if err := c.userLimit.Wait(ctx); err != nil {
		return userID
	}

	info, err := c.tr.UserInfo(ctx, userID)
	if err != nil {
		c.log.Debug("user lookup failed", "team", c.team, "user", userID, "error", err)
		return userID
	}

	name := userID
	switch {
	case info.DisplayName != "":
		name = info.DisplayName
	case info.RealName != "":
		name = info.RealName
	case info.Login != "":
		name = info.Login
	}

	c.mu.Lock()
	if c.users == nil {
		c.users = make(map[string]string)
	}
	c.users[userID] = name
	c.mu.Unlock()
	return name
}

// epochToTime parses a fractional epoch-seconds timestamp string. A zero
// time is returned for anything unparseable.
func epochToTime(ts string) time.Time {
	v, err := strconv.ParseFloat(ts, 64)
	if err != nil || v <= 0 {
		return time.Time{}
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
