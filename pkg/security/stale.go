package security

import (
	"strconv"
	"time"

	"github.com/forest6511/acctvault/pkg/account"
)

// DefaultStaleAfter is the password age after which an account is reported.
const DefaultStaleAfter = 365 * 24 * time.Hour

// PasswordSince returns when the account's current password was first set:
// the timestamp of the oldest entry in the unbroken run of history entries,
// ending at the current one, that carry the current password. Edits that
// only touch the description, URL or username do not reset the age.
func PasswordSince(a *account.Account) time.Time {
	history := a.History()
	i := len(history) - 1
	current := history[i].Password
	for i > 0 && history[i-1].Password == current {
		i--
	}
	return history[i].Timestamp
}

// FindStalePasswords returns issues for accounts whose current password is
// older than staleAfter at the given time.
func (c *Calculator) FindStalePasswords(accounts []*account.Account, now time.Time, includeNames bool, limit int) []SecurityIssue {
	var issues []SecurityIssue

	for _, a := range accounts {
		if a.Password() == "" {
			continue
		}
		age := now.Sub(PasswordSince(a))
		if age <= c.staleAfter {
			continue
		}
		severity := SeverityWarning
		if age > 2*c.staleAfter {
			severity = SeverityCritical
		}
		issue := SecurityIssue{
			Type:        IssueStalePassword,
			Severity:    severity,
			Description: "Password unchanged for " + formatDays(int(age.Hours()/24)),
			Suggestion:  "Rotate the password",
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

// formatDays returns a human-readable day count.
func formatDays(days int) string {
	if days == 0 {
		return "less than a day"
	}
	if days == 1 {
		return "1 day"
	}
	return strconv.Itoa(days) + " days"
}
