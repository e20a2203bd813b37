package teams

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"invalid_auth code", &PlatformError{Code: "invalid_auth"}, true},
		{"token_revoked code", &PlatformError{Code: "token_revoked"}, true},
		{"account_inactive code", &PlatformError{Code: "account_inactive"}, true},
		{"http 401", &PlatformError{Status: 401, Message: "request failed"}, true},
		{"wrapped auth", fmt.Errorf("open transport: %w", &PlatformError{Code: "invalid_auth"}), true},
		{"message pattern", errors.New("slack: not_authed"), true},
		{"message 401", errors.New("server returned 401"), true},
		{"mixed case", errors.New("Authentication Failed for workspace"), true},
		{"plain network error", errors.New("connection reset by peer"), false},
		{"channel error", &PlatformError{Code: "channel_not_found"}, false},
		{"rate limit", &PlatformError{Status: 429, Message: "slow down"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyChannelError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want SkipReason
	}{
		{"not found code", &PlatformError{Code: "channel_not_found"}, SkipNotFound},
		{"not in channel", &PlatformError{Code: "not_in_channel"}, SkipNotAMember},
		{"access denied", &PlatformError{Code: "access_denied"}, SkipAccessDenied},
		{"archived", &PlatformError{Code: "is_archived"}, SkipAccessDenied},
		{"rate limit status", &PlatformError{Status: 429}, SkipRateLimited},
		{"rate limit code", &PlatformError{Code: "ratelimited"}, SkipRateLimited},
		{"missing scope", &PlatformError{Code: "missing_scope"}, SkipPermissionDenied},
		{"other code", &PlatformError{Code: "fatal_error"}, SkipAPIError},
		{"deadline", context.DeadlineExceeded, SkipNetworkTimeout},
		{"timeout message", errors.New("dial tcp: i/o timeout"), SkipNetworkTimeout},
		{"not found message", errors.New("channel_not_found"), SkipNotFound},
		{"permission message", errors.New("user lacks permission"), SkipPermissionDenied},
		{"unknown", errors.New("something odd happened"), SkipUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyChannelError(tt.err); got != tt.want {
				t.Errorf("classifyChannelError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestSummarizeSkipped(t *testing.T) {
	skipped := []SkippedChannel{
		{ChannelID: "C1111111111", Reason: SkipNotFound},
		{ChannelID: "bad", Reason: SkipInvalidFormat},
	}
	got := summarizeSkipped(skipped)
	want := "C1111111111(not-found), bad(invalid-format)"
	if got != want {
		t.Errorf("summarizeSkipped = %q, want %q", got, want)
	}
}
