// Package importer provides parsers for importing accounts from other password
// managers. Supports 1Password CSV, Bitwarden JSON, LastPass CSV and a plain
// CSV layout (description,url,username,password) that acctvault exports.
//
// Only login items map to accounts. Secure notes, cards and identities are
// reported as skipped.
package importer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Source represents the source password manager format.
type Source string

const (
	Source1Password Source = "1password"
	SourceBitwarden Source = "bitwarden"
	SourceLastPass  Source = "lastpass"
	SourceCSV       Source = "csv"
)

// MaxDescriptionLength is the maximum imported description length in bytes.
const MaxDescriptionLength = 256

// ImportedAccount is one login parsed from an export file.
type ImportedAccount struct {
	// Description is the normalized, de-duplicated account description.
	Description string

	// OriginalName is the item name before normalization.
	OriginalName string

	URL      string
	Username string
	Password string
}

// ImportResult contains the results of an import operation.
type ImportResult struct {
	// Accounts are the successfully parsed logins.
	Accounts []*ImportedAccount

	// Warnings are non-fatal issues encountered during parsing.
	Warnings []string

	// Skipped are items that were skipped with reasons.
	Skipped []SkippedItem
}

// SkippedItem represents an item that was skipped during import.
type SkippedItem struct {
	OriginalName string
	Reason       string
}

// Parser is the interface for export format parsers.
type Parser interface {
	// Parse parses the input data and returns imported accounts.
	Parse(data []byte) (*ImportResult, error)

	// Source returns the source type for this parser.
	Source() Source
}

// NormalizeDescription turns an item name into an account description:
// NFC normalization, trimmed and inner whitespace collapsed to single
// spaces, then truncated to MaxDescriptionLength on a rune boundary.
func NormalizeDescription(name string) string {
	name = norm.NFC.String(name)
	name = strings.Join(strings.FieldsFunc(name, unicode.IsSpace), " ")

	if len(name) > MaxDescriptionLength {
		cut := MaxDescriptionLength
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimSpace(name[:cut])
	}
	return name
}

// DeduplicateDescriptions makes descriptions unique within one import by
// appending " (2)", " (3)" and so on to later occurrences.
func DeduplicateDescriptions(accounts []*ImportedAccount) {
	used := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		used[a.Description] = true
	}

	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		base := a.Description
		if !seen[base] {
			seen[base] = true
			continue
		}
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s (%d)", base, n)
			if !used[candidate] {
				a.Description = candidate
				used[candidate] = true
				seen[candidate] = true
				break
			}
		}
	}
}

// GenerateFallbackName generates a description when the original name is
// empty: the URL hostname if there is one, otherwise "imported item N".
func GenerateFallbackName(url string, counter int) string {
	if url != "" {
		if hostname := extractHostname(url); hostname != "" {
			return hostname
		}
	}
	return fmt.Sprintf("imported item %d", counter)
}

// extractHostname extracts the hostname from a URL.
func extractHostname(urlStr string) string {
	// Simple hostname extraction without full URL parsing
	urlStr = strings.TrimPrefix(urlStr, "https://")
	urlStr = strings.TrimPrefix(urlStr, "http://")

	if idx := strings.Index(urlStr, "/"); idx != -1 {
		urlStr = urlStr[:idx]
	}
	if idx := strings.Index(urlStr, ":"); idx != -1 {
		urlStr = urlStr[:idx]
	}

	return strings.TrimPrefix(urlStr, "www.")
}

// DecodeHTMLEntities decodes common HTML entities found in LastPass exports.
func DecodeHTMLEntities(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&apos;", "'")
	// Last, so "&amp;lt;" decodes to "&lt;" rather than "<"
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

// NormalizeValue normalizes a value for comparison (e.g., in duplicate detection).
// Trims whitespace and normalizes Unicode.
func NormalizeValue(s string) string {
	s = strings.TrimSpace(s)
	s = norm.NFC.String(s)
	return s
}

// IsEmptyOrWhitespace checks if a string is empty or contains only whitespace.
func IsEmptyOrWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// newAccount builds an ImportedAccount, falling back to a generated
// description when name is blank. It returns nil when there is neither a
// username nor a password.
func newAccount(name, url, username, password string, itemCounter *int) *ImportedAccount {
	if username == "" && password == "" {
		return nil
	}

	description := NormalizeDescription(name)
	if description == "" {
		description = NormalizeDescription(GenerateFallbackName(url, *itemCounter))
		*itemCounter++
	}

	return &ImportedAccount{
		Description:  description,
		OriginalName: name,
		URL:          url,
		Username:     username,
		Password:     password,
	}
}

// GetParser returns a parser for the given source.
func GetParser(source Source) (Parser, error) {
	switch source {
	case Source1Password:
		return &OnePasswordParser{}, nil
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	case SourceLastPass:
		return &LastPassParser{}, nil
	case SourceCSV:
		return &CSVParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported import source: %s", source)
	}
}

// ValidSources returns a list of valid source names.
func ValidSources() []string {
	return []string{
		string(Source1Password),
		string(SourceBitwarden),
		string(SourceLastPass),
		string(SourceCSV),
	}
}
