package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/forest6511/acctvault/internal/cli"
	"github.com/forest6511/acctvault/pkg/account"
	"github.com/forest6511/acctvault/pkg/crypto"
	"github.com/forest6511/acctvault/pkg/journal"
	"github.com/forest6511/acctvault/pkg/store"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// Account command flags
var (
	addURL      string
	addUsername string
	addGenerate bool

	showReveal bool
	showCopy   bool

	listLong bool

	historyReveal bool

	updateDescription string
	updateURL         string
	updateUsername    string
	updatePassword    bool
	updateGenerate    bool

	deleteForce bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)

	addCmd.Flags().StringVar(&addURL, "url", "", "Website URL")
	addCmd.Flags().StringVarP(&addUsername, "username", "u", "", "Username (prompted if omitted)")
	addCmd.Flags().BoolVarP(&addGenerate, "generate", "g", false, "Generate a random password instead of prompting")

	showCmd.Flags().BoolVarP(&showReveal, "reveal", "r", false, "Print the password instead of masking it")
	showCmd.Flags().BoolVarP(&showCopy, "copy", "c", false, "Copy the password to the clipboard (accessible to all processes)")

	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "Show username, URL and last update")

	historyCmd.Flags().BoolVarP(&historyReveal, "reveal", "r", false, "Print passwords instead of masking them")

	updateCmd.Flags().StringVar(&updateDescription, "description", "", "New description")
	updateCmd.Flags().StringVar(&updateURL, "url", "", "New URL")
	updateCmd.Flags().StringVarP(&updateUsername, "username", "u", "", "New username")
	updateCmd.Flags().BoolVarP(&updatePassword, "password", "p", false, "Prompt for a new password")
	updateCmd.Flags().BoolVarP(&updateGenerate, "generate", "g", false, "Generate a new random password")
	updateCmd.MarkFlagsMutuallyExclusive("password", "generate")

	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

// addCmd adds a new account
var addCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Adds a new account",
	Long: `Adds a new account. The description must not be used by another account.

Examples:
  acctvault add "GitHub" --url https://github.com -u octocat
  acctvault add "Bank" --generate`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description := strings.TrimSpace(args[0])
		if description == "" {
			return errors.New("description cannot be empty")
		}

		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		s, err := v.Store()
		if err != nil {
			return err
		}
		if s.Find(description) != nil {
			return fmt.Errorf("account '%s' already exists", description)
		}

		username := addUsername
		if !cmd.Flags().Changed("username") {
			if username, err = prompt("Username: "); err != nil {
				return err
			}
		}

		password, err := accountPassword(addGenerate)
		if err != nil {
			return err
		}

		if _, err := s.Create(description, addURL, username, password); err != nil {
			return fmt.Errorf("failed to add account: %w", err)
		}
		if err := saveVault(cmd.Context()); err != nil {
			return err
		}
		record(cmd.Context(), journal.OpAdd, description, nil)

		fmt.Printf("Account '%s' added\n", description)
		return nil
	},
}

// accountPassword generates a password or prompts for one.
func accountPassword(generate bool) (string, error) {
	if generate {
		password, err := defaultGenerator().Generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Generated a new password")
		return password, nil
	}

	password, err := readPassword("Account password: ")
	if err != nil {
		return "", err
	}
	defer crypto.SecureWipe(password)
	return string(password), nil
}

// showCmd shows the current values of an account
var showCmd = &cobra.Command{
	Use:   "show <description>",
	Short: "Shows an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		a, err := findAccount(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Description: %s\n", a.Description())
		if a.URL() != "" {
			fmt.Printf("URL:         %s\n", a.URL())
		}
		fmt.Printf("Username:    %s\n", a.Username())
		fmt.Printf("Password:    %s\n", maskPassword(a.Password(), showReveal))
		fmt.Printf("Updated:     %s (%s)\n", a.Timestamp().Format(time.RFC3339), humanize.Time(a.Timestamp()))
		fmt.Printf("History:     %d %s\n", a.UpdateCount(), plural(a.UpdateCount(), "entry", "entries"))

		if showCopy {
			if err := copyToClipboard(a.Password()); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to copy to clipboard: %v\n", err)
			} else {
				fmt.Fprintln(os.Stderr, "Password copied to clipboard")
			}
		}
		return nil
	},
}

// listCmd lists accounts, optionally filtered by description patterns
var listCmd = &cobra.Command{
	Use:   "list [pattern...]",
	Short: "Lists accounts",
	Long: `Lists accounts sorted by description.

Patterns select accounts by description. '*' matches any run of
characters except '/', so "work/*" selects one group.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		s, err := v.Store()
		if err != nil {
			return err
		}

		accounts := s.Accounts()
		if len(args) > 0 {
			if accounts, err = selectAccounts(s, args); err != nil {
				return err
			}
		}

		if len(accounts) == 0 {
			fmt.Println("No accounts stored")
			return nil
		}

		for _, a := range accounts {
			if !listLong {
				fmt.Println(a.Description())
				continue
			}
			line := a.Description()
			if a.Username() != "" {
				line += "  " + a.Username()
			}
			if a.URL() != "" {
				line += "  <" + a.URL() + ">"
			}
			line += fmt.Sprintf("  (updated %s)", humanize.Time(a.Timestamp()))
			fmt.Println(line)
		}
		return nil
	},
}

// historyCmd shows every recorded version of an account
var historyCmd = &cobra.Command{
	Use:   "history <description>",
	Short: "Shows the update history of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		a, err := findAccount(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n\n", a.Description(), a.ID())
		history := a.History()
		for i, e := range history {
			fmt.Printf("%d. %s\n", i+1, e.Timestamp.Format(time.RFC3339))
			for _, change := range describeEntry(history, i, historyReveal) {
				fmt.Printf("   %s\n", change)
			}
		}
		return nil
	},
}

// describeEntry lists the fields of history[i] that differ from the
// previous entry. The first entry lists every non-empty field.
func describeEntry(history []account.Entry, i int, reveal bool) []string {
	e := history[i]
	first := i == 0
	var prev account.Entry
	if !first {
		prev = history[i-1]
	}

	var lines []string
	field := func(label, value string, changed bool) {
		if (first && value != "") || (!first && changed) {
			lines = append(lines, fmt.Sprintf("%-12s %s", label+":", value))
		}
	}
	field("Description", e.Description, e.Description != prev.Description)
	field("URL", e.URL, e.URL != prev.URL)
	field("Username", e.Username, e.Username != prev.Username)
	if first || e.Password != prev.Password {
		field("Password", maskPassword(e.Password, reveal), true)
	}

	if len(lines) == 0 {
		lines = append(lines, "(no changes)")
	}
	return lines
}

// updateCmd records new values for an account
var updateCmd = &cobra.Command{
	Use:   "update <description>",
	Short: "Updates an account",
	Long: `Updates an account. Fields not named by a flag keep their current value.
The previous values stay in the account history.

Examples:
  acctvault update GitHub --password
  acctvault update GitHub --description "GitHub (work)" --username octo`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if !flags.Changed("description") && !flags.Changed("url") && !flags.Changed("username") &&
			!updatePassword && !updateGenerate {
			return errors.New("nothing to update: use --description, --url, --username, --password or --generate")
		}

		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		s, err := v.Store()
		if err != nil {
			return err
		}
		a, err := findAccount(args[0])
		if err != nil {
			return err
		}

		e := a.Current()
		if flags.Changed("description") {
			e.Description = strings.TrimSpace(updateDescription)
			if e.Description == "" {
				return errors.New("description cannot be empty")
			}
		}
		if flags.Changed("url") {
			e.URL = updateURL
		}
		if flags.Changed("username") {
			e.Username = updateUsername
		}
		if updatePassword || updateGenerate {
			if e.Password, err = accountPassword(updateGenerate); err != nil {
				return err
			}
		}

		before := a.Current()
		if e.SameFields(before) {
			fmt.Println("No changes")
			return nil
		}
		if err := s.Update(a, e.Description, e.URL, e.Username, e.Password); err != nil {
			if errors.Is(err, store.ErrDuplicateDescription) {
				return fmt.Errorf("account '%s' already exists", e.Description)
			}
			return fmt.Errorf("failed to update account: %w", err)
		}
		if err := saveVault(cmd.Context()); err != nil {
			return err
		}
		record(cmd.Context(), journal.OpUpdate, e.Description, changedFields(before, e))

		fmt.Printf("Account '%s' updated\n", e.Description)
		return nil
	},
}

// deleteCmd deletes accounts
var deleteCmd = &cobra.Command{
	Use:   "delete <pattern...>",
	Short: "Deletes accounts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		s, err := v.Store()
		if err != nil {
			return err
		}
		accounts, err := selectAccounts(s, args)
		if err != nil {
			return err
		}

		if !deleteForce {
			fmt.Fprintln(os.Stderr, "The following accounts will be deleted with their history:")
			for _, a := range accounts {
				fmt.Fprintf(os.Stderr, "  - %s\n", a.Description())
			}
			ok, err := confirm("Continue?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted")
				return nil
			}
		}

		for _, a := range accounts {
			if err := s.Delete(a); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}
		}
		if err := saveVault(cmd.Context()); err != nil {
			return err
		}
		for _, a := range accounts {
			record(cmd.Context(), journal.OpDelete, a.Description(), nil)
		}

		fmt.Printf("Deleted %d %s\n", len(accounts), plural(len(accounts), "account", "accounts"))
		return nil
	},
}

// changedFields names the fields that differ between two entries.
// Values are left out so the journal holds no credentials.
func changedFields(before, after account.Entry) map[string]string {
	var changed []string
	if before.Description != after.Description {
		changed = append(changed, "description")
	}
	if before.URL != after.URL {
		changed = append(changed, "url")
	}
	if before.Username != after.Username {
		changed = append(changed, "username")
	}
	if before.Password != after.Password {
		changed = append(changed, "password")
	}
	return map[string]string{"fields": strings.Join(changed, ",")}
}

// findAccount looks up an account of the unlocked store by exact description.
func findAccount(description string) (*account.Account, error) {
	s, err := v.Store()
	if err != nil {
		return nil, err
	}
	a := s.Find(description)
	if a == nil {
		return nil, fmt.Errorf("account '%s' not found", description)
	}
	return a, nil
}

// selectAccounts resolves description patterns against the store.
func selectAccounts(s *store.Store, patterns []string) ([]*account.Account, error) {
	return cli.Select(patterns, s.Accounts(), (*account.Account).Description)
}

// maskPassword hides a password unless reveal is set.
func maskPassword(password string, reveal bool) string {
	switch {
	case reveal:
		return password
	case password == "":
		return "(none)"
	default:
		return "********"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
