package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/forest6511/acctvault/internal/config"
	"github.com/forest6511/acctvault/pkg/security"

	"github.com/spf13/cobra"
)

// Security command flags
var (
	securityDetails    bool
	securityJSON       bool
	securityAll        bool
	securityStaleAfter string
)

// securityCmd is the root security command.
var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Analyze account password health",
	Long: `Analyze the passwords of your accounts and get recommendations.

The security score is calculated from:
  - Password Strength (0-25): Average strength of account passwords
  - Uniqueness (0-25): Percentage of accounts with an unshared password
  - Freshness (0-25): Percentage of passwords changed recently
  - Coverage (0-25): Percentage of accounts that have a password

Password age comes from the account history: it counts from the first
update that set the current password.

Example:
  acctvault security              # Show security score and top issues
  acctvault security --details    # Show all components and suggestions
  acctvault security --json       # Output in JSON format`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		calc, err := newSecurityCalculator()
		if err != nil {
			return err
		}

		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		s, err := v.Store()
		if err != nil {
			return err
		}

		score, err := calc.CalculateScore(s, true)
		if err != nil {
			return fmt.Errorf("failed to calculate security score: %w", err)
		}

		if securityJSON {
			return outputSecurityJSON(score)
		}
		outputSecurityText(score, securityDetails)
		return nil
	},
}

// securityDuplicatesCmd lists reused passwords.
var securityDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List reused passwords",
	Long: `Show accounts that share the same password.

Only the top 3 groups are shown unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		calc, err := newSecurityCalculator()
		if err != nil {
			return err
		}
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		s, err := v.Store()
		if err != nil {
			return err
		}

		limits := securityLimits()
		groups, err := calc.FindDuplicates(s.Accounts(), true, limits.DuplicateLimit)
		if err != nil {
			return fmt.Errorf("failed to find duplicates: %w", err)
		}

		if len(groups) == 0 {
			fmt.Println("No reused passwords found!")
			return nil
		}

		fmt.Printf("Reused Passwords (%d groups shown)\n\n", len(groups))
		for i, group := range groups {
			fmt.Printf("%d. %d accounts share the same password:\n", i+1, group.Count)
			for _, d := range group.Descriptions {
				fmt.Printf("   - %s\n", d)
			}
			fmt.Println()
		}
		printLimitNotice(limits.DuplicateLimit, len(groups))
		return nil
	},
}

// securityWeakCmd lists weak passwords.
var securityWeakCmd = &cobra.Command{
	Use:   "weak",
	Short: "List weak passwords",
	Long: `Show accounts whose password is weak.

Strength is judged by length first: fewer than 8 characters is weak.
Only the top 3 are shown unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		calc, err := newSecurityCalculator()
		if err != nil {
			return err
		}
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		s, err := v.Store()
		if err != nil {
			return err
		}

		limits := securityLimits()
		issues := calc.FindWeakPasswords(s.Accounts(), true, limits.WeakLimit)
		if len(issues) == 0 {
			fmt.Println("No weak passwords found!")
			return nil
		}

		fmt.Printf("Weak Passwords (%d shown)\n\n", len(issues))
		printIssueList(issues)
		printLimitNotice(limits.WeakLimit, len(issues))
		return nil
	},
}

// securityStaleCmd lists passwords that have not changed for a long time.
var securityStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List passwords not changed for a long time",
	Long: `Show accounts whose current password is older than the stale window
(default 365 days, see --stale-after).

Example:
  acctvault security stale                    # Older than the configured window
  acctvault security stale --stale-after 90d  # Older than 90 days`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		calc, err := newSecurityCalculator()
		if err != nil {
			return err
		}
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		s, err := v.Store()
		if err != nil {
			return err
		}

		limits := securityLimits()
		issues := calc.FindStalePasswords(s.Accounts(), time.Now(), true, limits.StaleLimit)
		if len(issues) == 0 {
			fmt.Println("No stale passwords found!")
			return nil
		}

		fmt.Printf("Stale Passwords (%d shown)\n\n", len(issues))
		printIssueList(issues)
		printLimitNotice(limits.StaleLimit, len(issues))
		return nil
	},
}

// newSecurityCalculator builds a calculator from the flags and config.
func newSecurityCalculator() (*security.Calculator, error) {
	staleAfter := cfg.StaleAfter
	if securityStaleAfter != "" {
		d, err := config.ParseDuration(securityStaleAfter)
		if err != nil {
			return nil, fmt.Errorf("invalid --stale-after: %w", err)
		}
		staleAfter = d
	}
	return security.NewCalculator(securityLimits()).WithStaleAfter(staleAfter), nil
}

func securityLimits() security.Limits {
	if securityAll {
		return security.NewLimits(0)
	}
	return security.DefaultLimits()
}

// outputSecurityJSON outputs the security score as JSON.
func outputSecurityJSON(score *security.SecurityScore) error {
	data, err := json.MarshalIndent(score, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// outputSecurityText outputs the security score as formatted text.
func outputSecurityText(score *security.SecurityScore, verbose bool) {
	fmt.Printf("Security Score: %d/100 (%s)\n\n", score.Overall, scoreRating(score.Overall))

	fmt.Println("Components:")
	fmt.Printf("  Password Strength: %2d/25 %s\n", score.Components.StrengthScore, progressBar(score.Components.StrengthScore, 25))
	fmt.Printf("  Uniqueness:        %2d/25 %s\n", score.Components.UniquenessScore, progressBar(score.Components.UniquenessScore, 25))
	fmt.Printf("  Freshness:         %2d/25 %s\n", score.Components.FreshnessScore, progressBar(score.Components.FreshnessScore, 25))
	fmt.Printf("  Coverage:          %2d/25 %s\n", score.Components.CoverageScore, progressBar(score.Components.CoverageScore, 25))
	fmt.Println()

	if len(score.Issues) > 0 {
		fmt.Printf("Top Issues (%d):\n", len(score.Issues))
		for i, issue := range score.Issues {
			fmt.Printf("  %d. %s\n", i+1, formatIssue(issue))
		}
		fmt.Println()
	}

	if len(score.Suggestions) > 0 && verbose {
		fmt.Println("Suggestions:")
		for _, suggestion := range score.Suggestions {
			fmt.Printf("  - %s\n", suggestion)
		}
		fmt.Println()
	}

	if score.Limited {
		fmt.Println("Some issues are hidden; use 'acctvault security <kind> --all' for the full lists.")
	}
}

func scoreRating(overall int) string {
	switch {
	case overall >= 90:
		return "Excellent"
	case overall >= 70:
		return "Good"
	case overall >= 50:
		return "Fair"
	default:
		return "Needs Attention"
	}
}

// formatIssue renders an issue as "[TYPE] accounts: description".
func formatIssue(issue security.SecurityIssue) string {
	typeLabel := strings.ToUpper(string(issue.Type))
	names := ""
	if issue.Account != "" {
		names = fmt.Sprintf(" %q", issue.Account)
	} else if len(issue.Accounts) > 0 {
		names = " " + strings.Join(issue.Accounts, ", ")
	}
	return fmt.Sprintf("[%s]%s: %s", typeLabel, names, issue.Description)
}

func printIssueList(issues []security.SecurityIssue) {
	for i, issue := range issues {
		fmt.Printf("%d. %s\n", i+1, issue.Account)
		fmt.Printf("   %s\n\n", issue.Description)
	}
}

func printLimitNotice(limit, shown int) {
	if limit > 0 && shown >= limit {
		fmt.Println("More may exist; use --all for the full list.")
	}
}

// progressBar creates a simple ASCII progress bar.
func progressBar(value, maxVal int) string {
	const width = 20
	if maxVal <= 0 {
		return "[" + strings.Repeat("░", width) + "]"
	}
	value = min(max(value, 0), maxVal)
	filled := value * width / maxVal
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func init() {
	rootCmd.AddCommand(securityCmd)

	securityCmd.AddCommand(securityDuplicatesCmd)
	securityCmd.AddCommand(securityWeakCmd)
	securityCmd.AddCommand(securityStaleCmd)

	securityCmd.Flags().BoolVarP(&securityDetails, "details", "d", false, "Show all details including suggestions")
	securityCmd.Flags().BoolVar(&securityJSON, "json", false, "Output in JSON format")
	securityCmd.PersistentFlags().BoolVarP(&securityAll, "all", "a", false, "List every issue instead of the top 3")
	securityCmd.PersistentFlags().StringVar(&securityStaleAfter, "stale-after", "", "Password age considered stale (e.g., 90d, 2160h; default from config)")
}
