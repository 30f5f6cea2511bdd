package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/acctvault/pkg/account"
)

// DuplicateGroup represents a group of accounts sharing the same password.
type DuplicateGroup struct {
	// Descriptions lists the accounts that share the password.
	Descriptions []string `json:"descriptions,omitempty"`
	// Count is the number of accounts in the group.
	Count int `json:"count"`
}

// duplicateEntry tracks a single password occurrence for grouping.
type duplicateEntry struct {
	description string
	hash        string
}

// sessionKey returns the calculator's HMAC key, creating it on first use.
func (c *Calculator) sessionKey() ([]byte, error) {
	if c.hmacKey == nil {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		c.hmacKey = key
	}
	return c.hmacKey, nil
}

// FindDuplicates groups accounts whose current passwords are equal.
// Uses HMAC-SHA256 with a session-local key for privacy-preserving comparison.
// Returns groups sorted by count (most duplicated first).
//
// Security properties:
// - HMAC with session-local key prevents offline guessing attacks
// - Hashes are computed per-session, never persisted
// - Values are normalized (trimmed whitespace, Unicode NFC)
func (c *Calculator) FindDuplicates(accounts []*account.Account, includeNames bool, limit int) ([]DuplicateGroup, error) {
	key, err := c.sessionKey()
	if err != nil {
		return nil, err
	}

	var entries []duplicateEntry
	for _, a := range accounts {
		value := normalizeValue(a.Password())
		if value == "" {
			continue
		}
		entries = append(entries, duplicateEntry{
			description: a.Description(),
			hash:        computeValueHash(value, key),
		})
	}

	hashGroups := make(map[string][]duplicateEntry)
	for _, entry := range entries {
		hashGroups[entry.hash] = append(hashGroups[entry.hash], entry)
	}

	var groups []DuplicateGroup
	for _, members := range hashGroups {
		if len(members) <= 1 {
			continue
		}

		group := DuplicateGroup{Count: len(members)}
		if includeNames {
			for _, m := range members {
				group.Descriptions = append(group.Descriptions, m.description)
			}
			sort.Strings(group.Descriptions)
		}
		groups = append(groups, group)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return firstOf(groups[i].Descriptions) < firstOf(groups[j].Descriptions)
	})

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	return groups, nil
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// computeValueHash computes HMAC-SHA256 of a value with the session key.
func computeValueHash(value string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeValue normalizes a password value for comparison.
func normalizeValue(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// FindWeakPasswords returns issues for accounts with weak passwords.
// Accounts without a password are not reported here.
func (c *Calculator) FindWeakPasswords(accounts []*account.Account, includeNames bool, limit int) []SecurityIssue {
	var issues []SecurityIssue

	for _, a := range accounts {
		password := a.Password()
		if password == "" {
			continue
		}
		if CalculateStrength(password) != PasswordWeak {
			continue
		}
		issue := SecurityIssue{
			Type:        IssueWeakPassword,
			Severity:    SeverityWarning,
			Description: "Password has insufficient strength (" + formatLength(len([]rune(password))) + ")",
			Suggestion:  "Use a longer password (14+ characters recommended)",
		}
		if includeNames {
			issue.Account = a.Description()
		}
		issues = append(issues, issue)
	}

	if limit > 0 && len(issues) > limit {
		issues = issues[:limit]
	}

	return issues
}

// formatLength returns a human-readable length description.
func formatLength(n int) string {
	if n == 1 {
		return "1 character"
	}
	return strconv.Itoa(n) + " characters"
}
