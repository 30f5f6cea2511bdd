package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/forest6511/acctvault/internal/config"
	"github.com/forest6511/acctvault/pkg/crypto"
	"github.com/forest6511/acctvault/pkg/journal"
	"github.com/forest6511/acctvault/pkg/store"
	"github.com/forest6511/acctvault/pkg/vault"

	"github.com/spf13/cobra"
)

var (
	backupOutput         string
	backupStdout         bool
	backupBackupPassword bool
	backupForce          bool

	restoreFromBackup bool
	restoreReplace    bool
	restoreDryRun     bool
	restoreVerifyOnly bool
	restoreForce      bool
)

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)

	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Output file path")
	backupCmd.Flags().BoolVar(&backupStdout, "stdout", false, "Output to stdout (for piping)")
	backupCmd.Flags().BoolVar(&backupBackupPassword, "backup-password", false, "Use separate backup password")
	backupCmd.Flags().BoolVarP(&backupForce, "force", "f", false, "Overwrite existing file")
	backupCmd.MarkFlagsMutuallyExclusive("output", "stdout")
	backupCmd.MarkFlagsOneRequired("output", "stdout")

	restoreCmd.Flags().BoolVar(&restoreFromBackup, "from-backup", false, "Restore from the backup kept next to the account file")
	restoreCmd.Flags().BoolVar(&restoreReplace, "replace", false, "Replace every account instead of merging histories")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "Show what would be restored without making changes")
	restoreCmd.Flags().BoolVar(&restoreVerifyOnly, "verify-only", false, "Only verify the backup decrypts")
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "Skip confirmation prompt")
	restoreCmd.MarkFlagsMutuallyExclusive("dry-run", "verify-only")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create an encrypted copy of the account file",
	Long: `Create an encrypted copy of every account and its history.

The copy is an ordinary account file: open it with --file, merge it with
'acctvault merge' or bring it back with 'acctvault restore'.

Examples:
  # Backup to a file
  acctvault backup -o accounts-backup.accts

  # Backup to stdout (for piping)
  acctvault backup --stdout | ssh host 'cat > accounts.accts'

  # Use separate backup password
  acctvault backup -o backup.accts --backup-password`,
	Args: cobra.NoArgs,
	RunE: executeBackup,
}

func executeBackup(cmd *cobra.Command, args []string) error {
	if err := ensureUnlocked(cmd.Context()); err != nil {
		return err
	}
	defer v.Lock()

	s, err := v.Store()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	defer func() { crypto.SecureWipe(buf.Bytes()) }()
	if backupBackupPassword {
		password, err := readNewPassword("backup password")
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(password)

		c := s.Clone()
		defer c.Forget()
		if err := c.WriteAccounts(&buf, password); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
	} else if err := s.Save(&buf); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	if backupStdout {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	out := config.ExpandHome(backupOutput)
	if err := writeSecureFile(out, buf.Bytes(), backupForce); err != nil {
		return err
	}
	logger.Info(cmd.Context(), "wrote backup", "path", out, "accounts", s.Len())
	record(cmd.Context(), journal.OpBackup, "", map[string]string{"accounts": strconv.Itoa(s.Len())})
	fmt.Printf("Backup created successfully: %s (%d accounts)\n", out, s.Len())
	return nil
}

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-file]",
	Short: "Restore accounts from an encrypted backup",
	Long: `Restore accounts from a backup made with 'acctvault backup' or from the
previous copy kept next to the account file (--from-backup).

By default the backup is merged: accounts keep the combined history of the
backup and the current file, so nothing is lost. With --replace the current
accounts are replaced by the backup's.

If no account file exists yet, the backup becomes the account file and its
password becomes the master password.

Examples:
  # Verify a backup without restoring
  acctvault restore backup.accts --verify-only

  # Preview a merge
  acctvault restore backup.accts --dry-run

  # Undo the last change
  acctvault restore --from-backup --replace`,
	Args: cobra.MaximumNArgs(1),
	RunE: executeRestore,
}

func executeRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	backupPath, err := restoreSource(args)
	if err != nil {
		return err
	}
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}

	password, err := readMasterPassword("Enter backup password (or master password): ")
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(password)

	b, err := vault.ReadFile(backupPath, password)
	if err != nil {
		if errors.Is(err, vault.ErrInvalidPassword) {
			return fmt.Errorf("verification failed: wrong password for %s", backupPath)
		}
		return fmt.Errorf("verification failed: %w", err)
	}
	defer b.Forget()

	if restoreVerifyOnly {
		fmt.Printf("Backup verification successful!\n")
		fmt.Printf("  Format:   %s\n", b.Format())
		fmt.Printf("  Accounts: %d\n", b.Len())
		return nil
	}

	if !v.Exists() {
		return restoreInto(ctx, b, password, backupPath)
	}

	if !restoreForce && !restoreDryRun {
		question := "This will merge the backup into the account file. Continue?"
		if restoreReplace {
			question = "This will replace every account with the backup. Continue?"
		}
		ok, err := confirm(question)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	if err := ensureUnlocked(ctx); err != nil {
		return err
	}
	defer v.Lock()

	s, err := v.Store()
	if err != nil {
		return err
	}
	target := s
	if restoreDryRun {
		target = s.Clone()
	}

	removed := 0
	if restoreReplace {
		removed = target.Len()
		for _, a := range target.Accounts() {
			if err := target.Delete(a); err != nil {
				return err
			}
		}
	}
	res := target.MergeAccounts(b)

	if restoreDryRun {
		fmt.Printf("Dry run complete. Would restore:\n")
	} else {
		fmt.Printf("Restore complete!\n")
	}
	if restoreReplace {
		fmt.Printf("  Accounts replaced: %d by %d\n", removed, res.Total())
	} else {
		fmt.Printf("  Accounts added:    %d\n", res.Added)
		fmt.Printf("  Accounts updated:  %d\n", res.Merged)
		fmt.Printf("  Unchanged:         %d\n", res.Unchanged)
	}
	for _, d := range target.DuplicateDescriptions() {
		fmt.Fprintf(os.Stderr, "warning: several accounts are named '%s'\n", d)
	}

	if restoreDryRun {
		return nil
	}
	if err := saveVault(ctx); err != nil {
		return err
	}
	record(ctx, journal.OpRestore, "", map[string]string{
		"replace":  strconv.FormatBool(restoreReplace),
		"accounts": strconv.Itoa(res.Total()),
	})
	return nil
}

// restoreSource returns the file to restore from.
func restoreSource(args []string) (string, error) {
	switch {
	case restoreFromBackup && len(args) > 0:
		return "", errors.New("give either a backup file or --from-backup, not both")
	case restoreFromBackup:
		return v.BackupPath(), nil
	case len(args) == 1:
		return config.ExpandHome(args[0]), nil
	default:
		return "", errors.New("a backup file or --from-backup is required")
	}
}

// restoreInto makes the backup the new account file.
func restoreInto(ctx context.Context, b *store.Store, password []byte, from string) error {
	if restoreDryRun {
		fmt.Printf("Dry run complete. Would create %s with %d accounts\n", v.Path(), b.Len())
		return nil
	}
	if err := v.Replace(b.Clone(), password); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	defer v.Lock()

	openJournal(ctx, password)
	record(ctx, journal.OpRestore, "", map[string]string{"accounts": strconv.Itoa(b.Len())})
	logger.Info(ctx, "restored account file", "from", from, "path", v.Path())
	fmt.Printf("Restore complete! Created %s with %d accounts\n", v.Path(), b.Len())
	return nil
}
