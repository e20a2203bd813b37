package teams

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors for client and supervisor operations.
var (
	ErrNilSink            = errors.New("teams: nil message sink")
	ErrNoValidChannels    = errors.New("teams: no valid channels")
	ErrAlreadyInitialized = errors.New("teams: already initialized")
	ErrNotInitialized     = errors.New("teams: not initialized")
	ErrShuttingDown       = errors.New("teams: shutting down")
	ErrNoTeamsConnected   = errors.New("teams: no teams connected")
)

// SkipReason categorizes why a configured channel was not subscribed.
type SkipReason string

const (
	SkipInvalidFormat    SkipReason = "invalid-format"
	SkipNotFound         SkipReason = "not-found"
	SkipNotAMember       SkipReason = "not-a-member"
	SkipAccessDenied     SkipReason = "access-denied"
	SkipRateLimited      SkipReason = "rate-limited"
	SkipNetworkTimeout   SkipReason = "network-timeout"
	SkipPermissionDenied SkipReason = "permission-denied"
	SkipAPIError         SkipReason = "api-error"
	SkipUnknown          SkipReason = "unknown"
)

// SkippedChannel records one channel excluded at subscription time.
type SkippedChannel struct {
	ChannelID string
	Reason    SkipReason
	Err       error // underlying error, nil for shape rejections
}

// PlatformError is a normalized platform API failure. Transports convert
// SDK-specific errors into this form so classification does not depend on
// the SDK.
type PlatformError struct {
	Code    string // platform error code, e.g. "channel_not_found"
	Status  int    // HTTP status, 0 when not applicable
	Message string
}

func (e *PlatformError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// authCodes are the platform error codes that indicate a permanently bad
// credential.
var authCodes = map[string]bool{
	"invalid_auth":     true,
	"token_revoked":    true,
	"account_inactive": true,
}

// authPatterns are message substrings (matched case-insensitively) that
// indicate a permanent authentication failure.
var authPatterns = []string{
	"invalid_auth",
	"token_revoked",
	"account_inactive",
	"invalid_token",
	"not_authed",
	"token_expired",
	"unauthorized",
	"authentication failed",
	"invalid credentials",
	"401",
}

// IsAuthError reports whether err is a permanent authentication failure.
// Any of the following qualifies: an auth pattern in the message, an auth
// error code, or HTTP status 401.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var pe *PlatformError
	if errors.As(err, &pe) {
		if authCodes[pe.Code] || pe.Status == 401 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, p := range authPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// classifyChannelError maps a directory API failure onto a skip reason.
func classifyChannelError(err error) SkipReason {
	if err == nil {
		return SkipUnknown
	}

	var pe *PlatformError
	if errors.As(err, &pe) {
		if pe.Status == 429 {
			return SkipRateLimited
		}
		switch pe.Code {
		case "channel_not_found":
			return SkipNotFound
		case "not_in_channel":
			return SkipNotAMember
		case "access_denied", "restricted_action", "is_archived":
			return SkipAccessDenied
		case "ratelimited", "rate_limited":
			return SkipRateLimited
		case "missing_scope", "no_permission", "ekm_access_denied":
			return SkipPermissionDenied
		case "":
		default:
			return SkipAPIError
		}
	}

	if isTimeout(err) {
		return SkipNetworkTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not_found"):
		return SkipNotFound
	case strings.Contains(msg, "not_in_channel"), strings.Contains(msg, "not a member"):
		return SkipNotAMember
	case strings.Contains(msg, "access_denied"), strings.Contains(msg, "access denied"):
		return SkipAccessDenied
	case strings.Contains(msg, "rate"), strings.Contains(msg, "429"):
		return SkipRateLimited
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return SkipNetworkTimeout
	case strings.Contains(msg, "permission"), strings.Contains(msg, "missing_scope"):
		return SkipPermissionDenied
	case strings.Contains(msg, "error"):
		return SkipAPIError
	}
	return SkipUnknown
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// summarizeSkipped renders the skipped list for a log line.
func summarizeSkipped(skipped []SkippedChannel) string {
	parts := make([]string, len(skipped))
	for i, s := range skipped {
		parts[i] = fmt.Sprintf("%s(%s)", s.ChannelID, s.Reason)
	}
	return strings.Join(parts, ", ")
}
