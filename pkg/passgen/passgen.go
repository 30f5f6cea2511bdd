// Package passgen generates random account passwords.
//
// A Generator draws a length uniformly from [MinLength, MaxLength], places
// the required characters of each class, fills the rest from the default
// set, and shuffles the result. All randomness comes from crypto/rand.
package passgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Character sets.
const (
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Digits    = "0123456789"
	Symbols   = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	Letters      = Uppercase + Lowercase
	Alphanumeric = Letters + Digits
	All          = Alphanumeric + Symbols
)

// Length limits.
const (
	MaxLength        = 256
	DefaultMinLength = 16
	DefaultMaxLength = 24
)

// Errors
var (
	ErrInvalidLength   = errors.New("passgen: invalid length range")
	ErrEmptyCharset    = errors.New("passgen: character set is empty")
	ErrTooManyRequired = errors.New("passgen: required characters exceed maximum length")
)

// Class is a set of characters of which at least Min must appear.
type Class struct {
	Chars string
	Min   int
}

// Generator produces passwords from a default character set plus
// per-class minimums.
type Generator struct {
	Default   string
	Classes   []Class
	MinLength int
	MaxLength int

	rand io.Reader
}

// New returns a generator over the alphanumeric set producing passwords of
// minLen to maxLen characters.
func New(minLen, maxLen int) *Generator {
	return &Generator{
		Default:   Alphanumeric,
		MinLength: minLen,
		MaxLength: maxLen,
		rand:      rand.Reader,
	}
}

// Require adds a class of which at least n characters must appear.
func (g *Generator) Require(chars string, n int) *Generator {
	g.Classes = append(g.Classes, Class{Chars: chars, Min: n})
	return g
}

// Exclude removes the given characters from the default set and from every
// class.
func (g *Generator) Exclude(chars string) *Generator {
	g.Default = removeChars(g.Default, chars)
	for i := range g.Classes {
		g.Classes[i].Chars = removeChars(g.Classes[i].Chars, chars)
	}
	return g
}

// Validate checks the generator can produce a password.
func (g *Generator) Validate() error {
	if g.MinLength < 1 || g.MaxLength < g.MinLength || g.MaxLength > MaxLength {
		return fmt.Errorf("%w: %d..%d (allowed 1..%d)", ErrInvalidLength, g.MinLength, g.MaxLength, MaxLength)
	}
	if g.Default == "" {
		return ErrEmptyCharset
	}
	required := 0
	for _, c := range g.Classes {
		if c.Min < 0 {
			return fmt.Errorf("%w: negative minimum for %q", ErrInvalidLength, c.Chars)
		}
		if c.Min > 0 && c.Chars == "" {
			return fmt.Errorf("%w: a required class has no characters left", ErrEmptyCharset)
		}
		required += c.Min
	}
	if required > g.MaxLength {
		return fmt.Errorf("%w: %d required, maximum %d", ErrTooManyRequired, required, g.MaxLength)
	}
	return nil
}

// Generate returns a new password.
func (g *Generator) Generate() (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}

	required := 0
	for _, c := range g.Classes {
		required += c.Min
	}
	lo := max(g.MinLength, required)
	extra, err := g.intn(g.MaxLength - lo + 1)
	if err != nil {
		return "", err
	}
	length := lo + extra

	password := make([]rune, 0, length)
	for _, c := range g.Classes {
		chars := []rune(c.Chars)
		for range c.Min {
			r, err := g.pick(chars)
			if err != nil {
				return "", err
			}
			password = append(password, r)
		}
	}
	def := []rune(g.Default)
	for len(password) < length {
		r, err := g.pick(def)
		if err != nil {
			return "", err
		}
		password = append(password, r)
	}

	// Fisher-Yates, so required characters land anywhere.
	for i := len(password) - 1; i > 0; i-- {
		j, err := g.intn(i + 1)
		if err != nil {
			return "", err
		}
		password[i], password[j] = password[j], password[i]
	}
	return string(password), nil
}

func (g *Generator) pick(chars []rune) (rune, error) {
	i, err := g.intn(len(chars))
	if err != nil {
		return 0, err
	}
	return chars[i], nil
}

func (g *Generator) intn(n int) (int, error) {
	r := g.rand
	if r == nil {
		r = rand.Reader
	}
	idx, err := rand.Int(r, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("passgen: failed to generate random number: %w", err)
	}
	return int(idx.Int64()), nil
}

// removeChars removes specified characters from a string
func removeChars(s, chars string) string {
	if chars == "" {
		return s
	}
	var result strings.Builder
	for _, c := range s {
		if !strings.ContainsRune(chars, c) {
			result.WriteRune(c)
		}
	}
	return result.String()
}
