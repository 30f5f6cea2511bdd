package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forest6511/acctvault/pkg/importer"
	"github.com/forest6511/acctvault/pkg/journal"

	"github.com/spf13/cobra"
)

var (
	importFrom     string
	importConflict string
	importDryRun   bool
	importKeys     []string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFrom, "from", "", "Import source: 1password, bitwarden, lastpass, csv (auto-detected if not specified)")
	importCmd.Flags().StringVar(&importConflict, "conflict", "skip", "Conflict handling: skip, overwrite, error")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without making changes")
	importCmd.Flags().StringSliceVarP(&importKeys, "key", "k", nil, "Descriptions to import (glob pattern supported)")

	// Convenience aliases
	importCmd.Flags().Bool("skip", false, "Skip existing accounts (same as --conflict=skip)")
	importCmd.Flags().Bool("overwrite", false, "Update existing accounts (same as --conflict=overwrite)")
	importCmd.Flags().Bool("error", false, "Error on conflict (same as --conflict=error)")
	importCmd.MarkFlagsMutuallyExclusive("skip", "overwrite", "error")

	_ = importCmd.RegisterFlagCompletionFunc("from", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return importer.ValidSources(), cobra.ShellCompDirectiveNoFileComp
	})
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import accounts from another password manager",
	Long: `Import login items exported by another password manager.

Supported sources:
  1password  1Password CSV export
  bitwarden  Bitwarden unencrypted JSON export
  lastpass   LastPass CSV export
  csv        description,url,username,password (as written by 'acctvault export')

Only logins are imported. Secure notes, cards, identities, one-time
password secrets and custom fields are reported and left out.

Examples:
  # Import a 1Password export (source auto-detected)
  acctvault import 1password.csv

  # Preview a Bitwarden import
  acctvault import bitwarden.json --from bitwarden --dry-run

  # Import selected accounts, updating the ones that already exist
  acctvault import export.csv -k "work/*" --overwrite

Conflict handling:
  --skip       Keep accounts that already exist (default)
  --overwrite  Record the imported values as a new history entry
  --error      Exit with error if any description already exists`,
	Args: cobra.ExactArgs(1),
	RunE: executeImport,
}

func executeImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	filePath := args[0]

	mode, err := resolveConflictMode(cmd)
	if err != nil {
		return err
	}

	data, err := readImportFile(filePath)
	if err != nil {
		return err
	}

	source, err := resolveImportSource(importFrom, filePath, data)
	if err != nil {
		return err
	}
	parser, err := importer.GetParser(source)
	if err != nil {
		return err
	}

	result, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s file: %w", source, err)
	}
	logger.Debug(ctx, "parsed import file", "path", filePath, "source", source,
		"accounts", len(result.Accounts), "skipped", len(result.Skipped))

	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	for _, skipped := range result.Skipped {
		fmt.Fprintf(os.Stderr, "Skipped: %s (%s)\n", skipped.OriginalName, skipped.Reason)
	}

	accounts := result.Accounts
	if len(accounts) == 0 {
		fmt.Println("No accounts found in file")
		return nil
	}
	if len(importKeys) > 0 {
		if accounts, err = importer.FilterDescriptions(accounts, importKeys); err != nil {
			return err
		}
	}
	fmt.Printf("Found %d accounts to import\n", len(accounts))

	if err := ensureUnlocked(ctx); err != nil {
		return err
	}
	defer v.Lock()

	s, err := v.Store()
	if err != nil {
		return err
	}

	var res *importer.ApplyResult
	if importDryRun {
		res, err = importer.Plan(s, accounts, mode)
	} else {
		res, err = importer.Apply(s, accounts, mode)
	}
	if err != nil {
		if errors.Is(err, importer.ErrConflict) {
			return fmt.Errorf("%w (use --skip or --overwrite)", err)
		}
		return err
	}

	printImportOutcomes(res, importDryRun)
	printImportSummary(res)

	if importDryRun || res.Created+res.Updated == 0 {
		return nil
	}
	if err := saveVault(ctx); err != nil {
		return err
	}
	record(ctx, journal.OpImport, "", map[string]string{
		"source":  string(source),
		"created": strconv.Itoa(res.Created),
		"updated": strconv.Itoa(res.Updated),
	})
	return nil
}

// resolveConflictMode applies the --skip, --overwrite and --error aliases
// on top of --conflict.
func resolveConflictMode(cmd *cobra.Command) (importer.ConflictMode, error) {
	conflict := importConflict
	for _, alias := range []string{"skip", "overwrite", "error"} {
		if set, _ := cmd.Flags().GetBool(alias); set {
			conflict = alias
		}
	}
	return importer.ParseConflictMode(conflict)
}

// readImportFile reads and validates an export file.
func readImportFile(filePath string) ([]byte, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to access file: %w", err)
	}

	// Export files hold plaintext passwords; refuse to follow a link
	// somewhere else.
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("security: refusing to read symlink: %s", absPath)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", filePath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// resolveImportSource returns the --from source, or detects it from the
// file extension and CSV header.
func resolveImportSource(from, filePath string, data []byte) (importer.Source, error) {
	if from != "" {
		source := importer.Source(strings.ToLower(from))
		if _, err := importer.GetParser(source); err != nil {
			return "", fmt.Errorf("invalid --from value '%s': must be one of %v", from, importer.ValidSources())
		}
		return source, nil
	}
	return detectImportSource(filePath, data)
}

// detectImportSource guesses the source from the file extension and,
// for CSV files, the header row.
func detectImportSource(filePath string, data []byte) (importer.Source, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		return importer.SourceBitwarden, nil
	}

	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	header, _, _ := bytes.Cut(data, []byte("\n"))
	columns := make(map[string]bool)
	for _, c := range strings.Split(strings.ToLower(string(header)), ",") {
		columns[strings.Trim(strings.TrimSpace(c), `"`)] = true
	}

	switch {
	case columns["title"] && columns["website"]:
		return importer.Source1Password, nil
	case columns["name"] && columns["grouping"]:
		return importer.SourceLastPass, nil
	case columns["description"] && columns["password"]:
		return importer.SourceCSV, nil
	}
	return "", fmt.Errorf("cannot detect the format of %s: use --from (one of %v)", filePath, importer.ValidSources())
}

func printImportOutcomes(res *importer.ApplyResult, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = "[dry-run] "
	}
	for _, o := range res.Outcomes {
		d := o.Account.Description
		switch o.Action {
		case importer.ActionCreate:
			fmt.Printf("%sImported: %s\n", prefix, d)
		case importer.ActionUpdate:
			fmt.Printf("%sUpdated: %s\n", prefix, d)
		case importer.ActionUnchanged:
			fmt.Printf("%sUnchanged: %s\n", prefix, d)
		case importer.ActionSkip:
			fmt.Printf("%sSkipped (exists): %s\n", prefix, d)
		}
	}
}

// printImportSummary prints the import summary.
func printImportSummary(res *importer.ApplyResult) {
	fmt.Printf("\nImport summary:\n")
	fmt.Printf("  Imported:  %d\n", res.Created)
	if res.Updated > 0 {
		fmt.Printf("  Updated:   %d\n", res.Updated)
	}
	if res.Unchanged > 0 {
		fmt.Printf("  Unchanged: %d\n", res.Unchanged)
	}
	if res.Skipped > 0 {
		fmt.Printf("  Skipped:   %d\n", res.Skipped)
	}
}
