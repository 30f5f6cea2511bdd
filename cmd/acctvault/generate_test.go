package main

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/forest6511/acctvault/pkg/passgen"
)

func TestValidateGenerateFlags(t *testing.T) {
	tests := []struct {
		name        string
		length      int
		maxLength   int
		count       int
		exclude     string
		expectError bool
	}{
		{"valid defaults", defaultPasswordLength, 0, defaultPasswordCount, "", false},
		{"minimum length", minPasswordLength, 0, 1, "", false},
		{"maximum length", passgen.MaxLength, 0, 1, "", false},
		{"length too short", minPasswordLength - 1, 0, 1, "", true},
		{"length too long", passgen.MaxLength + 1, 0, 1, "", true},
		{"valid range", 16, 20, 1, "", false},
		{"range below length", 16, 12, 1, "", true},
		{"range too long", 16, passgen.MaxLength + 1, 1, "", true},
		{"count zero", 24, 0, 0, "", true},
		{"count too high", 24, 0, maxPasswordCount + 1, "", true},
		{"maximum count", 24, 0, maxPasswordCount, "", false},
		{"exclude too long", 24, 0, 1, strings.Repeat("a", maxExcludeLength+1), true},
		{"valid exclude", 24, 0, 1, "0O1lI", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldLength, oldMax, oldCount, oldExclude := generateLength, generateMaxLength, generateCount, generateExclude
			defer func() {
				generateLength, generateMaxLength, generateCount, generateExclude = oldLength, oldMax, oldCount, oldExclude
			}()

			generateLength = tt.length
			generateMaxLength = tt.maxLength
			generateCount = tt.count
			generateExclude = tt.exclude

			err := validateGenerateFlags()
			if tt.expectError && err == nil {
				t.Errorf("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuildGenerator(t *testing.T) {
	tests := []struct {
		name        string
		noLowercase bool
		noUppercase bool
		noNumbers   bool
		noSymbols   bool
		exclude     string
		allowed     func(rune) bool
		expectError bool
	}{
		{
			name:    "all kinds",
			allowed: func(r rune) bool { return r < unicode.MaxASCII && unicode.IsPrint(r) && r != ' ' },
		},
		{
			name:      "no symbols",
			noSymbols: true,
			allowed:   func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) },
		},
		{
			name:        "digits only",
			noLowercase: true,
			noUppercase: true,
			noSymbols:   true,
			allowed:     unicode.IsDigit,
		},
		{
			name:        "digits without ambiguous",
			noLowercase: true,
			noUppercase: true,
			noSymbols:   true,
			exclude:     "01",
			allowed:     func(r rune) bool { return unicode.IsDigit(r) && r != '0' && r != '1' },
		},
		{
			name:        "nothing enabled",
			noLowercase: true,
			noUppercase: true,
			noNumbers:   true,
			noSymbols:   true,
			expectError: true,
		},
		{
			name:        "every digit excluded",
			noLowercase: true,
			noUppercase: true,
			noSymbols:   true,
			exclude:     passgen.Digits,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := []bool{generateNoLowercase, generateNoUppercase, generateNoNumbers, generateNoSymbols, generateEach}
			oldExclude, oldLength, oldMax := generateExclude, generateLength, generateMaxLength
			defer func() {
				generateNoLowercase, generateNoUppercase, generateNoNumbers, generateNoSymbols, generateEach = old[0], old[1], old[2], old[3], old[4]
				generateExclude, generateLength, generateMaxLength = oldExclude, oldLength, oldMax
			}()

			generateNoLowercase = tt.noLowercase
			generateNoUppercase = tt.noUppercase
			generateNoNumbers = tt.noNumbers
			generateNoSymbols = tt.noSymbols
			generateEach = true
			generateExclude = tt.exclude
			generateLength = 32
			generateMaxLength = 0

			gen, err := buildGenerator()
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildGenerator failed: %v", err)
			}

			for range 50 {
				p, err := gen.Generate()
				if err != nil {
					t.Fatalf("Generate failed: %v", err)
				}
				if utf8.RuneCountInString(p) != 32 {
					t.Fatalf("len(%q) = %d, want 32", p, len(p))
				}
				for _, r := range p {
					if !tt.allowed(r) {
						t.Fatalf("%q contains unexpected %q", p, r)
					}
				}
			}
		})
	}
}

func TestBuildGenerator_EachKind(t *testing.T) {
	oldLength, oldEach := generateLength, generateEach
	defer func() { generateLength, generateEach = oldLength, oldEach }()
	generateLength = minPasswordLength
	generateEach = true

	gen, err := buildGenerator()
	if err != nil {
		t.Fatalf("buildGenerator failed: %v", err)
	}
	for range 100 {
		p, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		for _, set := range []string{passgen.Lowercase, passgen.Uppercase, passgen.Digits, passgen.Symbols} {
			if !strings.ContainsAny(p, set) {
				t.Fatalf("%q has no character from %q", p, set)
			}
		}
	}
}

func TestDefaultGenerator(t *testing.T) {
	gen := defaultGenerator()
	if err := gen.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	p, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if n := len(p); n < passgen.DefaultMinLength || n > passgen.DefaultMaxLength {
		t.Errorf("len(%q) = %d, want %d..%d", p, n, passgen.DefaultMinLength, passgen.DefaultMaxLength)
	}
}
