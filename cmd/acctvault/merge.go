package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/forest6511/acctvault/internal/config"
	"github.com/forest6511/acctvault/pkg/crypto"
	"github.com/forest6511/acctvault/pkg/journal"
	"github.com/forest6511/acctvault/pkg/store"
	"github.com/forest6511/acctvault/pkg/vault"

	"github.com/spf13/cobra"
)

var mergeDryRun bool

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "Show what would be merged without making changes")
}

// mergeCmd merges another account file into the current one
var mergeCmd = &cobra.Command{
	Use:   "merge <file>",
	Short: "Merges another account file into this one",
	Long: `Merges another account file, for example a copy edited on a different
machine, into the current account file.

Accounts only present in the other file are added. Accounts present in both
keep the combined history of the two copies, so no update is lost. The other
file is never modified.

Two files may each have created a different account under the same
description; such descriptions are reported after the merge.

Plaintext files of the oldest format are read without a password; their
accounts are always added as new accounts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := config.ExpandHome(args[0])
		if err := checkNotSelf(path); err != nil {
			return err
		}

		if err := ensureUnlocked(ctx); err != nil {
			return err
		}
		defer v.Lock()

		s, err := v.Store()
		if err != nil {
			return err
		}

		other, err := readOtherFile(ctx, path)
		if err != nil {
			return err
		}
		defer other.Forget()

		target := s
		if mergeDryRun {
			target = s.Clone()
		}
		res := target.MergeAccounts(other)
		logger.Info(ctx, "merged account file", "source", path,
			"added", res.Added, "merged", res.Merged, "unchanged", res.Unchanged)

		printMergeSummary(res, mergeDryRun)
		for _, d := range target.DuplicateDescriptions() {
			fmt.Fprintf(os.Stderr, "warning: several accounts are named '%s'; rename one with 'acctvault update'\n", d)
		}

		if mergeDryRun || res.Added+res.Merged == 0 {
			return nil
		}
		if err := saveVault(ctx); err != nil {
			return err
		}
		record(ctx, journal.OpMerge, "", map[string]string{
			"source": filepath.Base(path),
			"added":  strconv.Itoa(res.Added),
			"merged": strconv.Itoa(res.Merged),
		})
		return nil
	},
}

// readOtherFile decodes the file to merge. Plaintext files need no
// password; encrypted ones use their own.
func readOtherFile(ctx context.Context, path string) (*store.Store, error) {
	format, err := vault.DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	logger.Debug(ctx, "reading account file to merge", "path", path, "format", format)

	if !format.Encrypted() {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return store.ConvertV0(f)
	}

	password, err := readMasterPassword(fmt.Sprintf("Enter password for %s: ", filepath.Base(path)))
	if err != nil {
		return nil, err
	}
	defer crypto.SecureWipe(password)

	other, err := vault.ReadFile(path, password)
	if err != nil {
		if errors.Is(err, vault.ErrInvalidPassword) {
			return nil, fmt.Errorf("wrong password for %s", path)
		}
		return nil, err
	}
	return other, nil
}

// checkNotSelf refuses to merge the account file into itself.
func checkNotSelf(path string) error {
	a, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	b, err := filepath.Abs(v.Path())
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if a == b {
		return errors.New("cannot merge the account file into itself")
	}
	return nil
}

func printMergeSummary(res *store.MergeResult, dryRun bool) {
	if dryRun {
		fmt.Printf("Dry run, nothing was saved. Would merge %d accounts:\n", res.Total())
	} else {
		fmt.Printf("Merged %d accounts:\n", res.Total())
	}
	fmt.Printf("  Added:     %d\n", res.Added)
	fmt.Printf("  Updated:   %d\n", res.Merged)
	fmt.Printf("  Unchanged: %d\n", res.Unchanged)
}
