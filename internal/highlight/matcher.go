// Package highlight matches message text against a configured set of
// /pattern/flags keyword specs.
package highlight

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// ErrBadKeyword is returned when a keyword spec cannot be parsed or compiled.
var ErrBadKeyword = errors.New("highlight: bad keyword")

// specRe captures the /pattern/flags shape. The pattern group is greedy, so
// slashes inside the pattern are allowed; flags are drawn from "gimuy".
var specRe = regexp.MustCompile(`^/(.*)/([gimuy]*)$`)

// Matcher holds a list of keyword specs and their compiled predicates.
// The two lists stay in lockstep: a successfully added spec appears in both,
// a rejected spec in neither. Safe for concurrent use.
type Matcher struct {
	mu       sync.RWMutex
	specs    []string
	compiled []*regexp.Regexp
}

// New compiles the initial keyword list. The first failing spec rejects the
// whole matcher; no partially-initialized value is returned.
func New(keywords []string) (*Matcher, error) {
	m := &Matcher{}
	for _, kw := range keywords {
		if err := m.AddKeyword(kw); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddKeyword parses, compiles, and appends a /pattern/flags spec. On failure
// neither the source list nor the compiled list changes.
func (m *Matcher) AddKeyword(spec string) error {
	re, err := Compile(spec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs = append(m.specs, spec)
	m.compiled = append(m.compiled, re)
	return nil
}

// RemoveKeyword removes the first occurrence of spec and reports whether it
// was present.
func (m *Matcher) RemoveKeyword(spec string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.specs {
		if s == spec {
			m.specs = append(m.specs[:i], m.specs[i+1:]...)
			m.compiled = append(m.compiled[:i], m.compiled[i+1:]...)
			return true
		}
	}
	return false
}

// Keywords returns a copy of the configured specs.
func (m *Matcher) Keywords() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.specs))
	copy(out, m.specs)
	return out
}

// MatchesAny reports whether any compiled predicate matches text,
// short-circuiting on the first hit.
func (m *Matcher) MatchesAny(text string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, re := range m.compiled {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Compile parses a /pattern/flags spec and compiles its predicate.
// Flags i and m translate to the equivalent regexp flags; g, u, and y do not
// change matching semantics here and are accepted for compatibility.
func Compile(spec string) (*regexp.Regexp, error) {
	groups := specRe.FindStringSubmatch(spec)
	if groups == nil {
		return nil, fmt.Errorf("%w: must be in /pattern/flags form: %q", ErrBadKeyword, spec)
	}
	pattern, flags := groups[1], groups[2]

	var prefix strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			prefix.WriteString("(?i)")
		case 'm':
			prefix.WriteString("(?m)")
		}
	}

	re, err := regexp.Compile(prefix.String() + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: compile failed: %v", ErrBadKeyword, err)
	}
	return re, nil
}
