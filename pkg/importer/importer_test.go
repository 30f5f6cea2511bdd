package importer

import (
	"strings"
	"testing"
)

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "GitHub", "GitHub"},
		{"trim", "  GitHub  ", "GitHub"},
		{"collapse whitespace", "My \t Bank\nAccount", "My Bank Account"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"nfc", "Cafe\u0301", "Caf\u00e9"},
		{"unicode kept", "日本語 アカウント", "日本語 アカウント"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDescription(tt.input); got != tt.want {
				t.Errorf("NormalizeDescription(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDescriptionTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("\u00e9", MaxDescriptionLength) // 2 bytes each
	got := NormalizeDescription(long)

	if len(got) > MaxDescriptionLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxDescriptionLength)
	}
	if !strings.HasPrefix(long, got) || len(got)%2 != 0 {
		t.Errorf("truncation split a rune: %q", got[len(got)-3:])
	}
}

func TestDeduplicateDescriptions(t *testing.T) {
	accounts := []*ImportedAccount{
		{Description: "GitHub"},
		{Description: "GitHub"},
		{Description: "GitHub (2)"},
		{Description: "GitHub"},
		{Description: "Other"},
	}
	DeduplicateDescriptions(accounts)

	want := []string{"GitHub", "GitHub (3)", "GitHub (2)", "GitHub (4)", "Other"}
	seen := make(map[string]bool)
	for i, a := range accounts {
		if a.Description != want[i] {
			t.Errorf("accounts[%d] = %q, want %q", i, a.Description, want[i])
		}
		if seen[a.Description] {
			t.Errorf("duplicate description after dedupe: %q", a.Description)
		}
		seen[a.Description] = true
	}
}

func TestGenerateFallbackName(t *testing.T) {
	tests := []struct {
		url     string
		counter int
		want    string
	}{
		{"https://www.example.com/login", 1, "example.com"},
		{"http://example.com:8080", 1, "example.com"},
		{"example.org/path", 1, "example.org"},
		{"", 3, "imported item 3"},
		{"https://", 4, "imported item 4"},
	}

	for _, tt := range tests {
		if got := GenerateFallbackName(tt.url, tt.counter); got != tt.want {
			t.Errorf("GenerateFallbackName(%q, %d) = %q, want %q", tt.url, tt.counter, got, tt.want)
		}
	}
}

func TestDecodeHTMLEntities(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a &amp; b", "a & b"},
		{"&lt;tag&gt;", "<tag>"},
		{"&quot;q&quot; &#39;s&apos;", "\"q\" 's'"},
		{"&amp;lt;", "&lt;"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := DecodeHTMLEntities(tt.input); got != tt.want {
			t.Errorf("DecodeHTMLEntities(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeValue(t *testing.T) {
	if got := NormalizeValue("  Cafe\u0301 "); got != "Caf\u00e9" {
		t.Errorf("NormalizeValue = %q", got)
	}
}

func TestIsEmptyOrWhitespace(t *testing.T) {
	for _, s := range []string{"", " ", "\t\n"} {
		if !IsEmptyOrWhitespace(s) {
			t.Errorf("IsEmptyOrWhitespace(%q) = false", s)
		}
	}
	if IsEmptyOrWhitespace(" a ") {
		t.Error("IsEmptyOrWhitespace(\" a \") = true")
	}
}

func TestGetParser(t *testing.T) {
	for _, name := range ValidSources() {
		p, err := GetParser(Source(name))
		if err != nil {
			t.Errorf("GetParser(%q) error: %v", name, err)
			continue
		}
		if string(p.Source()) != name {
			t.Errorf("GetParser(%q).Source() = %q", name, p.Source())
		}
	}

	if _, err := GetParser("keepass"); err == nil {
		t.Error("GetParser(keepass) should fail")
	}
}
