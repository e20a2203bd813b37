package highlight

import (
	"errors"
	"testing"
)

func TestAddKeyword_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"plain", "/php/", false},
		{"case insensitive", "/php/i", false},
		{"all flags", "/deploy/gimuy", false},
		{"slash inside pattern", "/a/b/i", false},
		{"empty pattern", "//", false},
		{"missing slashes", "php", true},
		{"missing trailing slash", "/php", true},
		{"unknown flag", "/php/x", true},
		{"bad regex", "/[unclosed/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Matcher{}
			err := m.AddKeyword(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AddKeyword(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrBadKeyword) {
				t.Errorf("error %v is not ErrBadKeyword", err)
			}
		})
	}
}

func TestAddKeyword_Atomicity(t *testing.T) {
	m, err := New([]string{"/one/"})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.AddKeyword("/[bad/"); err == nil {
		t.Fatal("expected error for invalid spec")
	}

	kws := m.Keywords()
	if len(kws) != 1 || kws[0] != "/one/" {
		t.Errorf("keyword list changed after failed add: %v", kws)
	}
	if m.MatchesAny("bad") {
		t.Error("rejected pattern is being matched")
	}
}

func TestNew_AllOrNothing(t *testing.T) {
	m, err := New([]string{"/ok/", "not-a-spec"})
	if err == nil {
		t.Fatal("expected constructor error")
	}
	if m != nil {
		t.Errorf("expected nil matcher on error, got %v", m)
	}
}

func TestMatchesAny(t *testing.T) {
	m, err := New([]string{"/php/i", "/^deploy/"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		text string
		want bool
	}{
		{"I love PHP", true},
		{"Hello\nphp\nworld", true},
		{"deploy now", true},
		{"do not deploy", false},
		{"golang", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := m.MatchesAny(tt.text); got != tt.want {
			t.Errorf("MatchesAny(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestRemoveKeyword(t *testing.T) {
	m, err := New([]string{"/a/", "/b/", "/a/"})
	if err != nil {
		t.Fatal(err)
	}

	if !m.RemoveKeyword("/a/") {
		t.Fatal("expected removal of first /a/")
	}
	if got := m.Keywords(); len(got) != 2 || got[0] != "/b/" || got[1] != "/a/" {
		t.Errorf("keywords after remove = %v", got)
	}
	if m.RemoveKeyword("/missing/") {
		t.Error("removal of absent spec reported true")
	}
	if !m.MatchesAny("a") {
		t.Error("remaining /a/ predicate no longer matches")
	}
}

func TestKeywords_DefensiveCopy(t *testing.T) {
	m, err := New([]string{"/a/"})
	if err != nil {
		t.Fatal(err)
	}

	kws := m.Keywords()
	kws[0] = "/mutated/"

	if got := m.Keywords(); got[0] != "/a/" {
		t.Errorf("internal state mutated through returned slice: %v", got)
	}
}
