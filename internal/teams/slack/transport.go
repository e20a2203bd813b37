// Package slack adapts the Slack Socket Mode SDK to the teams transport
// interface.
package slack

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/nextlevelbuilder/slacktail/internal/config"
	"github.com/nextlevelbuilder/slacktail/internal/teams"
)

const eventBuffer = 64

// Transport is one Socket Mode session for one workspace. The event channel
// is created once and survives Close/Open cycles so the consumer never has
// to resubscribe.
type Transport struct {
	team string
	log  *slog.Logger

	api    *slackgo.Client
	events chan teams.Event

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTransport builds a transport from the team's app and bot tokens.
func NewTransport(team string, cfg config.TeamConfig, log *slog.Logger) (teams.Transport, error) {
	api := slackgo.New(cfg.BotToken, slackgo.OptionAppLevelToken(cfg.AppToken))
	return &Transport{
		team:   team,
		log:    log,
		api:    api,
		events: make(chan teams.Event, eventBuffer),
	}, nil
}

// Factory is the production teams.TransportFactory.
func Factory(team string, cfg config.TeamConfig, log *slog.Logger) (teams.Transport, error) {
	return NewTransport(team, cfg, log)
}

// Open verifies the credentials and starts the Socket Mode session. The
// session runs until Close or context cancellation; protocol events are
// translated onto the Events channel.
func (t *Transport) Open(ctx context.Context) error {
	if _, err := t.api.AuthTestContext(ctx); err != nil {
		return wrapErr(err)
	}

	sm := socketmode.New(t.api)

	runCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(2)
	go func() {
		defer t.wg.Done()
		if err := sm.RunContext(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			t.deliver(runCtx, teams.Event{Type: teams.EventError, Err: wrapErr(err)})
		}
	}()
	go func() {
		defer t.wg.Done()
		t.translate(runCtx, sm)
	}()
	return nil
}

// Close stops the session. The Events channel stays open for a later Open.
func (t *Transport) Close(ctx context.Context) error {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
	return nil
}

// Events returns the translated event stream.
func (t *Transport) Events() <-chan teams.Event { return t.events }

// translate maps Socket Mode protocol events onto transport events.
func (t *Transport) translate(ctx context.Context, sm *socketmode.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sm.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnected:
				t.deliver(ctx, teams.Event{Type: teams.EventConnected})
			case socketmode.EventTypeDisconnect:
				t.deliver(ctx, teams.Event{Type: teams.EventDisconnected})
			case socketmode.EventTypeConnectionError:
				err, _ := evt.Data.(error)
				t.deliver(ctx, teams.Event{Type: teams.EventError, Err: wrapErr(err)})
			case socketmode.EventTypeInvalidAuth:
				t.deliver(ctx, teams.Event{
					Type: teams.EventError,
					Err:  &teams.PlatformError{Code: "invalid_auth", Message: "socket mode rejected credentials"},
				})
			case socketmode.EventTypeEventsAPI:
				if evt.Request != nil {
					sm.Ack(*evt.Request)
				}
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				t.handleEventsAPI(ctx, apiEvent)
			}
		}
	}
}

func (t *Transport) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	t.deliver(ctx, teams.Event{
		Type: teams.EventMessage,
		Message: &teams.RawMessage{
			ChannelID: ev.Channel,
			UserID:    ev.User,
			Text:      ev.Text,
			Timestamp: ev.TimeStamp,
			SubType:   ev.SubType,
			BotID:     ev.BotID,
		},
	})
}

// deliver pushes one event, dropping it when the consumer is gone or the
// buffer is stuck full.
func (t *Transport) deliver(ctx context.Context, ev teams.Event) {
	select {
	case t.events <- ev:
	case <-ctx.Done():
	default:
		t.log.Warn("event buffer full, dropping event", "team", t.team, "type", ev.Type)
	}
}

// ConversationInfo resolves a channel against the Slack directory.
func (t *Transport) ConversationInfo(ctx context.Context, channelID string) (teams.ConversationInfo, error) {
	ch, err := t.api.GetConversationInfoContext(ctx, &slackgo.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil {
		return teams.ConversationInfo{}, wrapErr(err)
	}
	return teams.ConversationInfo{
		ID:       ch.ID,
		Name:     ch.Name,
		IsMember: ch.IsMember,
	}, nil
}

// UserInfo resolves a user against the Slack directory.
func (t *Transport) UserInfo(ctx context.Context, userID string) (teams.UserInfo, error) {
	u, err := t.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return teams.UserInfo{}, wrapErr(err)
	}
	return teams.UserInfo{
		ID:          u.ID,
		DisplayName: u.Profile.DisplayName,
		RealName:    u.RealName,
		Login:       u.Name,
	}, nil
}

// wrapErr normalizes SDK errors into PlatformError so the teams package can
// classify them without importing the SDK.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}

	var rle *slackgo.RateLimitedError
	if errors.As(err, &rle) {
		return &teams.PlatformError{Code: "rate_limited", Status: 429, Message: err.Error()}
	}

	var sce slackgo.StatusCodeError
	if errors.As(err, &sce) {
		return &teams.PlatformError{Status: sce.Code, Message: err.Error()}
	}

	var ser slackgo.SlackErrorResponse
	if errors.As(err, &ser) {
		return &teams.PlatformError{Code: ser.Err, Message: err.Error()}
	}

	return err
}
