// Package handlers provides the built-in message sinks: the console renderer
// plus the notification and speech placeholders.
package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/nextlevelbuilder/slacktail/internal/bus"
)

const (
	ansiRedBold = "\x1b[1;31m"
	ansiReset   = "\x1b[0m"
)

var (
	newlineRe    = regexp.MustCompile(`\r?\n`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Highlighter answers whether a text matches any configured keyword.
type Highlighter interface {
	MatchesAny(text string) bool
}

// Console renders each message as "{team}/{channel}/{user} > {text}" on one
// line of the output stream. Writes are line-atomic: concurrent Handle calls
// interleave only at line boundaries.
type Console struct {
	log     *slog.Logger
	matcher Highlighter
	enabled bool

	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates the console renderer. A nil out defaults to stdout; a
// nil matcher disables highlighting.
func NewConsole(out io.Writer, matcher Highlighter, enabled bool, log *slog.Logger) *Console {
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Console{
		log:     log,
		matcher: matcher,
		enabled: enabled,
		out:     out,
	}
}

// Name returns "console".
func (c *Console) Name() string { return "console" }

// Enabled reports whether the renderer is active.
func (c *Console) Enabled() bool { return c.enabled }

// Handle renders and writes one message line. Highlighting is decided on the
// original text, before sanitize/collapse.
func (c *Console) Handle(_ context.Context, msg bus.Message) error {
	text := Collapse(Sanitize(msg.Text))
	line := fmt.Sprintf("%s/%s/%s > %s", msg.TeamName, msg.ChannelName, msg.UserName, text)

	if c.matches(msg.Text) {
		line = ansiRedBold + line + ansiReset
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, line)
	return err
}

// matches asks the highlighter about the original text, failing soft: a
// panicking matcher renders the line unhighlighted.
func (c *Console) matches(text string) (hit bool) {
	if c.matcher == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("highlight matcher failed", "error", fmt.Sprint(r))
			hit = false
		}
	}()
	return c.matcher.MatchesAny(text)
}

// Sanitize drops ASCII control bytes except tab, newline, and carriage
// return.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// Collapse replaces newlines with spaces, squeezes whitespace runs to a
// single space, and trims the ends.
func Collapse(s string) string {
	s = newlineRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
