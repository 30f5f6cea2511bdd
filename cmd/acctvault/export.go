package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forest6511/acctvault/pkg/account"
	"github.com/forest6511/acctvault/pkg/importer"
	"github.com/forest6511/acctvault/pkg/journal"

	"github.com/spf13/cobra"
)

// Export format constants
const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// Export command flags
var (
	exportFormat      string
	exportOutput      string
	exportKeys        []string
	exportWithHistory bool
	exportForce       bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", formatCSV, "Output format: csv, json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().StringSliceVarP(&exportKeys, "key", "k", nil, "Descriptions to export (glob pattern supported)")
	exportCmd.Flags().BoolVar(&exportWithHistory, "with-history", false, "Include every history entry (JSON only)")
	exportCmd.Flags().BoolVar(&exportForce, "force", false, "Overwrite existing file without confirmation")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export accounts as unencrypted CSV or JSON",
	Long: `Export accounts as unencrypted CSV or JSON.

The CSV layout is description,url,username,password and can be read back
with 'acctvault import --from csv'.

Examples:
  # Export all accounts to stdout as CSV
  acctvault export

  # Export one group to a file
  acctvault export -k "work/*" -o work.csv

  # Export as JSON with full history
  acctvault export -f json --with-history -o accounts.json`,
	Args: cobra.NoArgs,
	RunE: executeExport,
}

// exportEntry is one history entry in JSON output
type exportEntry struct {
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password"`
	UpdatedAt   string `json:"updated_at"`
}

// exportAccount is one account in JSON output
type exportAccount struct {
	ID string `json:"id"`
	exportEntry
	History []exportEntry `json:"history,omitempty"`
}

func executeExport(cmd *cobra.Command, args []string) error {
	if err := validateExportFlags(); err != nil {
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
	accounts := s.Accounts()
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts in the account file")
	}
	if len(exportKeys) > 0 {
		if accounts, err = selectAccounts(s, exportKeys); err != nil {
			return err
		}
	}

	output, err := generateOutput(accounts)
	if err != nil {
		return err
	}

	record(cmd.Context(), journal.OpExport, "", map[string]string{
		"format":   exportFormat,
		"accounts": strconv.Itoa(len(accounts)),
	})

	if exportOutput == "" {
		fmt.Fprint(os.Stderr, "WARNING: THIS OUTPUT CONTAINS UNENCRYPTED PASSWORDS\n")
		_, err := os.Stdout.Write(output)
		return err
	}
	if err := writeSecureFile(exportOutput, output, exportForce); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d accounts to %s\n", len(accounts), exportOutput)
	fmt.Fprintln(os.Stderr, "WARNING: the file contains unencrypted passwords, delete it after use")
	return nil
}

// validateExportFlags validates the export command flags
func validateExportFlags() error {
	exportFormat = strings.ToLower(exportFormat)
	if exportFormat != formatCSV && exportFormat != formatJSON {
		return fmt.Errorf("invalid format '%s': must be '%s' or '%s'", exportFormat, formatCSV, formatJSON)
	}
	if exportWithHistory && exportFormat != formatJSON {
		return fmt.Errorf("--with-history flag is only valid with JSON format")
	}
	return nil
}

// generateOutput generates output based on format
func generateOutput(accounts []*account.Account) ([]byte, error) {
	switch exportFormat {
	case formatCSV:
		return generateCSVOutput(accounts)
	case formatJSON:
		return generateJSONOutput(accounts, exportWithHistory)
	default:
		return nil, fmt.Errorf("unknown format: %s", exportFormat)
	}
}

func generateCSVOutput(accounts []*account.Account) ([]byte, error) {
	rows := make([]*importer.ImportedAccount, len(accounts))
	for i, a := range accounts {
		rows[i] = &importer.ImportedAccount{
			Description: a.Description(),
			URL:         a.URL(),
			Username:    a.Username(),
			Password:    a.Password(),
		}
	}
	var buf bytes.Buffer
	if err := importer.WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func generateJSONOutput(accounts []*account.Account, withHistory bool) ([]byte, error) {
	result := make([]exportAccount, len(accounts))
	for i, a := range accounts {
		result[i] = exportAccount{
			ID:          a.ID().String(),
			exportEntry: toExportEntry(a.Current()),
		}
		if withHistory {
			for _, e := range a.History() {
				result[i].History = append(result[i].History, toExportEntry(e))
			}
		}
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func toExportEntry(e account.Entry) exportEntry {
	return exportEntry{
		Description: e.Description,
		URL:         e.URL,
		Username:    e.Username,
		Password:    e.Password,
		UpdatedAt:   e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// writeSecureFile writes content to a file with 0600 permissions.
// It refuses system directories and symlinks, and existing files unless force.
func writeSecureFile(path string, content []byte, force bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	sensitivePaths := []string{"/etc/", "/usr/", "/bin/", "/sbin/", "/var/log/", "/var/run/"}
	for _, sensitive := range sensitivePaths {
		if strings.HasPrefix(absPath, sensitive) {
			return fmt.Errorf("security: refusing to write to system directory: %s", absPath)
		}
	}

	info, err := os.Lstat(absPath)
	if err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("security: refusing to write to symlink: %s", absPath)
		}
		if !force {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", absPath)
		}
	}

	if dir := filepath.Dir(absPath); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// O_EXCL closes the gap between the check above and the open
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(absPath, flags, 0600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", absPath)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, writeErr := f.Write(content)
	closeErr := f.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to write file: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close file: %w", closeErr)
	}
	return nil
}
