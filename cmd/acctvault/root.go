package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/forest6511/acctvault/internal/config"
	"github.com/forest6511/acctvault/internal/logging"
	"github.com/forest6511/acctvault/pkg/crypto"
	"github.com/forest6511/acctvault/pkg/journal"
	"github.com/forest6511/acctvault/pkg/vault"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configPath string
	vaultFile  string
	verbose    bool

	cfg         *config.Config
	logger      logging.Logger = logging.Discard()
	v           *vault.Vault
	j           *journal.Journal
	envPassword []byte

	stdin = bufio.NewReader(os.Stdin)
)

var rootCmd = &cobra.Command{
	Use:   "acctvault",
	Short: "acctvault keeps website accounts in an encrypted file",
	Long: `A password-encrypted store for website accounts.

Every account keeps its full history of descriptions, URLs, usernames and
passwords. Account files from other machines can be merged without losing
either side's changes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE loads the configuration and builds the vault handle
	// for every subcommand.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if vaultFile != "" {
			c.VaultFile = config.ExpandHome(vaultFile)
		}
		if verbose {
			c.Verbose = true
		}
		cfg = c

		logger = logging.New(os.Stderr, cfg.Verbose)
		envPassword = config.PasswordFromEnv()

		v = vault.New(cfg.VaultFile)
		v.KeepBackup = cfg.KeepBackup
		j = nil
		if cfg.Journal {
			j = journal.New(journal.PathFor(cfg.VaultFile))
		}
		logger.Debug(cmd.Context(), "using account file", "path", cfg.VaultFile, "keep_backup", cfg.KeepBackup)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/acctvault/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&vaultFile, "file", "", "Account file (default: ~/.acctvault/accounts.accts)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug messages to stderr")

	rootCmd.AddCommand(initCmd)
}

// initCmd creates a new, empty account file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates a new, empty account file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v.Exists() {
			return fmt.Errorf("%w: %s", vault.ErrVaultAlreadyExists, v.Path())
		}

		fmt.Fprintln(os.Stderr, "Initializing new account file...")
		password, err := readNewPassword("master password")
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(password)

		if err := v.Init(password); err != nil {
			return fmt.Errorf("failed to initialize account file: %w", err)
		}
		defer v.Lock()

		openJournal(cmd.Context(), password)
		record(cmd.Context(), journal.OpInit, "", nil)

		fmt.Printf("Account file initialized at %s\n", v.Path())
		return nil
	},
}

// readNewPassword asks for a password twice and checks its strength.
// ACCTVAULT_PASSWORD, when set, is used without confirmation.
func readNewPassword(what string) ([]byte, error) {
	if envPassword != nil {
		password := append([]byte(nil), envPassword...)
		if err := checkNewPassword(password); err != nil {
			crypto.SecureWipe(password)
			return nil, err
		}
		return password, nil
	}

	password1, err := readPassword(fmt.Sprintf("Enter %s: ", what))
	if err != nil {
		return nil, err
	}
	password2, err := readPassword(fmt.Sprintf("Confirm %s: ", what))
	defer crypto.SecureWipe(password2)
	if err != nil {
		crypto.SecureWipe(password1)
		return nil, err
	}

	if string(password1) != string(password2) {
		crypto.SecureWipe(password1)
		return nil, errors.New("passwords do not match")
	}
	if err := checkNewPassword(password1); err != nil {
		crypto.SecureWipe(password1)
		return nil, err
	}
	return password1, nil
}

// checkNewPassword rejects passwords outside the allowed length and prints
// the estimated strength with advisory warnings.
func checkNewPassword(password []byte) error {
	result := vault.ValidateMasterPassword(password)
	if !result.Valid {
		return fmt.Errorf("password validation failed: %s", result.Warnings[0])
	}

	fmt.Fprintf(os.Stderr, "Password strength: %s\n", result.Strength)
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	return nil
}

// readMasterPassword returns ACCTVAULT_PASSWORD if set, otherwise prompts.
// The caller wipes the result.
func readMasterPassword(prompt string) ([]byte, error) {
	if envPassword != nil {
		return append([]byte(nil), envPassword...), nil
	}
	return readPassword(prompt)
}

// readPassword prints prompt to stderr and reads a password. A terminal
// gets no echo; piped input is read one line at a time.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	if isTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		return password, nil
	}

	line, err := readLine(stdin)
	if err != nil {
		return nil, err
	}
	return []byte(line), nil
}

// readLine reads a single line, trimming the trailing newline.
// A final line without newline is returned as is; nothing at all is io.ErrUnexpectedEOF.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		if line == "" {
			return "", fmt.Errorf("failed to read input: %w", io.ErrUnexpectedEOF)
		}
	}
	value := strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(value, "\r"), nil
}

// prompt prints a question to stderr and reads one line of answer.
func prompt(question string) (string, error) {
	fmt.Fprint(os.Stderr, question)
	return readLine(stdin)
}

// confirm asks a yes/no question. Anything but y or yes is no.
func confirm(question string) (bool, error) {
	answer, err := prompt(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// isTerminal returns true if the file descriptor is a terminal
func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// ensureUnlocked ensures the vault is unlocked.
// If locked, prompts for password and attempts to unlock.
func ensureUnlocked(ctx context.Context) error {
	if !v.IsLocked() {
		return nil
	}

	password, err := readMasterPassword("Enter master password: ")
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(password)

	if err := v.Unlock(password); err != nil {
		if errors.Is(err, vault.ErrVaultNotFound) {
			return fmt.Errorf("%w: %s (run 'acctvault init' first)", err, v.Path())
		}
		return fmt.Errorf("failed to unlock account file: %w", err)
	}
	openJournal(ctx, password)

	s, err := v.Store()
	if err != nil {
		return err
	}
	logger.Debug(ctx, "unlocked account file", "path", v.Path(), "format", s.Format(), "accounts", s.Len())
	return nil
}

// saveVault writes the unlocked store back and logs the result.
func saveVault(ctx context.Context) error {
	if err := v.Save(); err != nil {
		return fmt.Errorf("failed to save account file: %w", err)
	}
	logger.Debug(ctx, "saved account file", "path", v.Path())
	return nil
}

// openJournal derives the journal key. A journal that cannot be opened
// only disables recording.
func openJournal(ctx context.Context, password []byte) {
	if j == nil {
		return
	}
	if err := j.Open(password); err != nil {
		logger.Warn(ctx, "journal unavailable", "path", j.Path(), "err", err)
	}
}

// record appends op to the journal when it is enabled and open.
func record(ctx context.Context, op, account string, fields map[string]string) {
	if j == nil || !j.IsOpen() {
		return
	}
	if err := j.Record(op, account, fields); err != nil {
		logger.Warn(ctx, "failed to write journal", "op", op, "err", err)
	}
}
