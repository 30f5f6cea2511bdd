package security

import (
	"time"

	"github.com/forest6511/acctvault/pkg/account"
	"github.com/forest6511/acctvault/pkg/store"
)

// SecurityScore represents the overall security assessment of a store.
type SecurityScore struct {
	// Overall is the total score (0-100).
	Overall int `json:"overall"`
	// Components breaks down the score into categories.
	Components ScoreComponents `json:"components"`
	// Issues contains the detected security issues.
	Issues []SecurityIssue `json:"issues"`
	// Suggestions provides actionable recommendations.
	Suggestions []string `json:"suggestions"`
	// Limited indicates if the issue list was truncated.
	Limited bool `json:"limited"`
}

// ScoreComponents breaks down the security score into categories.
// Each component contributes up to 25 points (total: 100).
type ScoreComponents struct {
	// StrengthScore is based on average password strength (0-25).
	StrengthScore int `json:"strength"`
	// UniquenessScore is based on percentage of unique passwords (0-25).
	UniquenessScore int `json:"uniqueness"`
	// FreshnessScore is based on percentage of passwords rotated recently (0-25).
	FreshnessScore int `json:"freshness"`
	// CoverageScore is based on percentage of accounts with a password (0-25).
	CoverageScore int `json:"coverage"`
}

// IssueType identifies the type of security issue.
type IssueType string

const (
	// IssueWeakPassword indicates a password with insufficient strength.
	IssueWeakPassword IssueType = "weak"
	// IssueDuplicatePassword indicates passwords reused across accounts.
	IssueDuplicatePassword IssueType = "duplicate"
	// IssueStalePassword indicates a password that has not been rotated.
	IssueStalePassword IssueType = "stale"
	// IssueMissingPassword indicates an account with no password stored.
	IssueMissingPassword IssueType = "missing_password"
)

// Severity indicates the urgency of a security issue.
type Severity string

const (
	// SeverityCritical requires immediate attention.
	SeverityCritical Severity = "critical"
	// SeverityWarning should be addressed soon.
	SeverityWarning Severity = "warning"
	// SeverityInfo is informational only.
	SeverityInfo Severity = "info"
)

// SecurityIssue represents a detected security problem.
type SecurityIssue struct {
	// Type identifies the category of issue.
	Type IssueType `json:"type"`
	// Severity indicates urgency.
	Severity Severity `json:"severity"`
	// Account is the affected account description (may be empty for privacy).
	Account string `json:"account,omitempty"`
	// Accounts is used for duplicate issues (multiple accounts).
	Accounts []string `json:"accounts,omitempty"`
	// Description explains the issue.
	Description string `json:"description"`
	// Suggestion provides remediation guidance.
	Suggestion string `json:"suggestion,omitempty"`
}

// Calculator computes security scores for a store.
type Calculator struct {
	limits     Limits
	hmacKey    []byte // Session-local key for duplicate detection
	staleAfter time.Duration
	now        func() time.Time
}

// NewCalculator creates a new security calculator with the given issue limits.
func NewCalculator(limits Limits) *Calculator {
	return &Calculator{
		limits:     limits,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// WithStaleAfter sets the password age after which an account is stale.
// Non-positive values keep the default.
func (c *Calculator) WithStaleAfter(d time.Duration) *Calculator {
	if d > 0 {
		c.staleAfter = d
	}
	return c
}

// CalculateScore computes the full security score for the store.
func (c *Calculator) CalculateScore(s *store.Store, includeNames bool) (*SecurityScore, error) {
	accounts := s.Accounts()

	// Empty store: perfect score
	if len(accounts) == 0 {
		return &SecurityScore{
			Overall: 100,
			Components: ScoreComponents{
				StrengthScore:   25,
				UniquenessScore: 25,
				FreshnessScore:  25,
				CoverageScore:   25,
			},
			Issues:      []SecurityIssue{},
			Suggestions: []string{},
		}, nil
	}

	strengthScore, weakIssues := c.calculateStrengthScore(accounts, includeNames)
	uniquenessScore, dupIssues, err := c.calculateUniquenessScore(accounts, includeNames)
	if err != nil {
		return nil, err
	}
	freshnessScore, staleIssues := c.calculateFreshnessScore(accounts, includeNames)
	coverageScore, missingIssues := c.calculateCoverageScore(accounts, includeNames)

	allIssues := make([]SecurityIssue, 0, len(weakIssues)+len(dupIssues)+len(staleIssues)+len(missingIssues))
	allIssues = append(allIssues, weakIssues...)
	allIssues = append(allIssues, dupIssues...)
	allIssues = append(allIssues, staleIssues...)
	allIssues = append(allIssues, missingIssues...)

	limited := false
	if c.limits.IsLimited() {
		allIssues, limited = c.applyLimits(allIssues)
	}

	return &SecurityScore{
		Overall: strengthScore + uniquenessScore + freshnessScore + coverageScore,
		Components: ScoreComponents{
			StrengthScore:   strengthScore,
			UniquenessScore: uniquenessScore,
			FreshnessScore:  freshnessScore,
			CoverageScore:   coverageScore,
		},
		Issues:      allIssues,
		Suggestions: generateSuggestions(allIssues),
		Limited:     limited,
	}, nil
}

// withPassword returns the accounts that have a non-empty current password.
func withPassword(accounts []*account.Account) []*account.Account {
	var out []*account.Account
	for _, a := range accounts {
		if a.Password() != "" {
			out = append(out, a)
		}
	}
	return out
}

// calculateStrengthScore evaluates password strength across all accounts.
// Returns score (0-25) and weak password issues.
func (c *Calculator) calculateStrengthScore(accounts []*account.Account, includeNames bool) (int, []SecurityIssue) {
	scored := withPassword(accounts)
	if len(scored) == 0 {
		return 25, nil
	}

	totalPoints := 0
	for _, a := range scored {
		totalPoints += CalculateStrength(a.Password()).Points()
	}

	score := totalPoints / len(scored)
	if score > 25 {
		score = 25
	}
	return score, c.FindWeakPasswords(scored, includeNames, 0)
}

// calculateUniquenessScore evaluates password reuse across accounts.
// Returns score (0-25) and duplicate issues.
func (c *Calculator) calculateUniquenessScore(accounts []*account.Account, includeNames bool) (int, []SecurityIssue, error) {
	duplicates, err := c.FindDuplicates(accounts, includeNames, 0)
	if err != nil {
		return 0, nil, err
	}

	passwordHashes := make(map[string]bool)
	totalPasswords := 0
	for _, a := range accounts {
		value := normalizeValue(a.Password())
		if value == "" {
			continue
		}
		totalPasswords++
		passwordHashes[computeValueHash(value, c.hmacKey)] = true
	}

	if totalPasswords == 0 {
		return 25, nil, nil
	}

	var issues []SecurityIssue
	for _, dup := range duplicates {
		severity := SeverityWarning
		if dup.Count > 2 {
			severity = SeverityCritical
		}
		issue := SecurityIssue{
			Type:        IssueDuplicatePassword,
			Severity:    severity,
			Description: "Multiple accounts share the same password",
			Suggestion:  "Use unique passwords for each account",
		}
		if includeNames {
			issue.Accounts = dup.Descriptions
		}
		issues = append(issues, issue)
	}

	uniquenessRatio := float64(len(passwordHashes)) / float64(totalPasswords)
	return int(uniquenessRatio * 25), issues, nil
}

// calculateFreshnessScore evaluates how recently passwords were rotated.
// Returns score (0-25) and stale password issues.
func (c *Calculator) calculateFreshnessScore(accounts []*account.Account, includeNames bool) (int, []SecurityIssue) {
	scored := withPassword(accounts)
	if len(scored) == 0 {
		return 25, nil
	}

	issues := c.FindStalePasswords(scored, c.now(), includeNames, 0)
	freshRatio := float64(len(scored)-len(issues)) / float64(len(scored))
	return int(freshRatio * 25), issues
}

// calculateCoverageScore evaluates how many accounts store a password at all.
// Returns score (0-25) and missing password issues.
func (c *Calculator) calculateCoverageScore(accounts []*account.Account, includeNames bool) (int, []SecurityIssue) {
	var issues []SecurityIssue
	for _, a := range accounts {
		if a.Password() != "" {
			continue
		}
		issue := SecurityIssue{
			Type:        IssueMissingPassword,
			Severity:    SeverityInfo,
			Description: "Account has no password stored",
		}
		if includeNames {
			issue.Account = a.Description()
		}
		issues = append(issues, issue)
	}

	coverage := float64(len(accounts)-len(issues)) / float64(len(accounts))
	return int(coverage * 25), issues
}

// applyLimits caps each issue kind at its configured limit.
func (c *Calculator) applyLimits(issues []SecurityIssue) ([]SecurityIssue, bool) {
	limited := false
	counts := make(map[IssueType]int)
	result := make([]SecurityIssue, 0, len(issues))

	for _, issue := range issues {
		limit := c.limits.limitFor(issue.Type)
		if limit > 0 && counts[issue.Type] >= limit {
			limited = true
			continue
		}
		counts[issue.Type]++
		result = append(result, issue)
	}

	return result, limited
}

// generateSuggestions creates actionable recommendations based on issues.
func generateSuggestions(issues []SecurityIssue) []string {
	seen := make(map[IssueType]bool)
	for _, issue := range issues {
		seen[issue.Type] = true
	}

	suggestions := []string{}
	if seen[IssueWeakPassword] {
		suggestions = append(suggestions, "Update weak passwords with stronger alternatives (14+ characters)")
	}
	if seen[IssueDuplicatePassword] {
		suggestions = append(suggestions, "Replace duplicate passwords with unique values")
	}
	if seen[IssueStalePassword] {
		suggestions = append(suggestions, "Rotate passwords that have not changed in a long time")
	}
	if seen[IssueMissingPassword] {
		suggestions = append(suggestions, "Record the password for accounts that have none")
	}

	return suggestions
}
