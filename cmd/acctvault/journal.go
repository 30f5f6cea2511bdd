package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/forest6511/acctvault/internal/config"
	"github.com/forest6511/acctvault/pkg/journal"

	"github.com/spf13/cobra"
)

var (
	logLimit   int
	logSince   string
	logAccount string
	logJSON    bool

	logExportFormat string
	logExportSince  string
	logExportUntil  string
	logExportOutput string
	logExportForce  bool

	logPruneOlderThan string
	logPruneDryRun    bool
	logPruneForce     bool
)

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logListCmd)
	logCmd.AddCommand(logVerifyCmd)
	logCmd.AddCommand(logExportCmd)
	logCmd.AddCommand(logPruneCmd)

	logListCmd.Flags().IntVarP(&logLimit, "limit", "n", 50, "Maximum number of events to show (0 for all)")
	logListCmd.Flags().StringVar(&logSince, "since", "", "Show events since duration (e.g., 24h, 30d)")
	logListCmd.Flags().StringVar(&logAccount, "account", "", "Only show events for this account description")
	logListCmd.Flags().BoolVar(&logJSON, "json", false, "Output in JSON format")

	logExportCmd.Flags().StringVarP(&logExportFormat, "format", "f", "json", "Output format: json, csv")
	logExportCmd.Flags().StringVar(&logExportSince, "since", "", "Export events since duration (e.g., 30d)")
	logExportCmd.Flags().StringVar(&logExportUntil, "until", "", "Export events until date (RFC 3339)")
	logExportCmd.Flags().StringVarP(&logExportOutput, "output", "o", "", "Output file path (default: stdout)")
	logExportCmd.Flags().BoolVar(&logExportForce, "force", false, "Overwrite existing file")

	logPruneCmd.Flags().StringVar(&logPruneOlderThan, "older-than", "", "Delete events older than duration (e.g., 365d)")
	logPruneCmd.Flags().BoolVar(&logPruneDryRun, "dry-run", false, "Show what would be deleted without deleting")
	logPruneCmd.Flags().BoolVarP(&logPruneForce, "force", "f", false, "Skip confirmation prompt")
	_ = logPruneCmd.MarkFlagRequired("older-than")
}

// logCmd is the parent command for journal operations
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect the signed change journal",
	Long: `Inspect the change journal kept next to the account file.

Every change to the account file is recorded with an HMAC chain keyed by
the master password, so edits to the journal can be detected. Account
descriptions are stored as keyed hashes; passwords are never recorded.

Set 'journal: false' in the config file to stop recording.`,
}

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := sinceTime(logSince)
		if err != nil {
			return err
		}
		if err := openLog(cmd); err != nil {
			return err
		}
		defer v.Lock()
		defer j.Close()

		events, err := j.Events(0, since)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		if logAccount != "" {
			tag := j.AccountTag(logAccount)
			kept := events[:0]
			for _, e := range events {
				if e.Account == tag {
					kept = append(kept, e)
				}
			}
			events = kept
		}
		if logLimit > 0 && len(events) > logLimit {
			events = events[len(events)-logLimit:]
		}

		if logJSON {
			return journal.WriteJSON(os.Stdout, events)
		}
		if len(events) == 0 {
			fmt.Println("No journal events found")
			return nil
		}
		for _, e := range events {
			fmt.Println(formatEvent(e))
		}
		fmt.Printf("\nTotal: %d events\n", len(events))
		return nil
	},
}

var logVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the journal HMAC chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openLog(cmd); err != nil {
			return err
		}
		defer v.Lock()
		defer j.Close()

		res, err := j.Verify()
		if err != nil {
			return fmt.Errorf("failed to verify journal: %w", err)
		}
		if !res.Valid {
			fmt.Printf("✗ Journal verification FAILED (%d records)\n", res.RecordsTotal)
			for _, e := range res.Errors {
				fmt.Printf("    - %s\n", e)
			}
			return journal.ErrChainBroken
		}
		fmt.Printf("✓ Journal verified: %d records, chain intact\n", res.RecordsTotal)
		return nil
	},
}

var logExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export journal events as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(logExportFormat)
		if format != formatJSON && format != formatCSV {
			return fmt.Errorf("invalid format '%s': must be '%s' or '%s'", logExportFormat, formatJSON, formatCSV)
		}
		since, err := sinceTime(logExportSince)
		if err != nil {
			return err
		}
		var until time.Time
		if logExportUntil != "" {
			if until, err = time.Parse(time.RFC3339, logExportUntil); err != nil {
				return fmt.Errorf("invalid until format (use RFC 3339): %w", err)
			}
		}
		if err := openLog(cmd); err != nil {
			return err
		}
		defer v.Lock()
		defer j.Close()

		events, err := j.Events(0, time.Time{})
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		events = journal.Between(events, since, until)

		var b strings.Builder
		if format == formatCSV {
			err = journal.WriteCSV(&b, events)
		} else {
			err = journal.WriteJSON(&b, events)
		}
		if err != nil {
			return err
		}

		if logExportOutput == "" {
			fmt.Print(b.String())
			return nil
		}
		out := config.ExpandHome(logExportOutput)
		if err := writeSecureFile(out, []byte(b.String()), logExportForce); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d journal events to %s\n", len(events), out)
		return nil
	},
}

var logPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old journal events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		age, err := config.ParseDuration(logPruneOlderThan)
		if err != nil {
			return fmt.Errorf("invalid older-than format: %w", err)
		}
		cutoff := time.Now().Add(-age)

		if err := openLog(cmd); err != nil {
			return err
		}
		defer v.Lock()
		defer j.Close()

		n, err := j.Prune(cutoff, true)
		if err != nil {
			return fmt.Errorf("failed to preview prune: %w", err)
		}
		if n == 0 {
			fmt.Println("No journal events to delete")
			return nil
		}
		if logPruneDryRun {
			fmt.Printf("Would delete %d journal %s older than %s\n", n, plural(n, "event", "events"), cutoff.Format(time.RFC3339))
			return nil
		}
		if !logPruneForce {
			ok, err := confirm(fmt.Sprintf("Delete %d journal %s?", n, plural(n, "event", "events")))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted")
				return nil
			}
		}

		if n, err = j.Prune(cutoff, false); err != nil {
			return fmt.Errorf("failed to prune journal: %w", err)
		}
		fmt.Printf("Deleted %d journal %s\n", n, plural(n, "event", "events"))
		return nil
	},
}

// openLog unlocks the account file, which also opens the journal.
func openLog(cmd *cobra.Command) error {
	if j == nil {
		return errors.New("the journal is disabled in the config file")
	}
	if err := ensureUnlocked(cmd.Context()); err != nil {
		return err
	}
	if !j.IsOpen() {
		v.Lock()
		return fmt.Errorf("journal %s could not be opened", j.Path())
	}
	return nil
}

func sinceTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := config.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since format: %w", err)
	}
	return time.Now().Add(-d), nil
}

// formatEvent renders "TIMESTAMP OPERATION RESULT [account:TAG] [k=v...]".
func formatEvent(e journal.Event) string {
	line := fmt.Sprintf("%s %s %s", e.Timestamp, e.Operation, e.Result)
	if e.Account != "" {
		tag := e.Account
		if len(tag) > 12 {
			tag = tag[:12]
		}
		line += " account:" + tag
	}
	if len(e.Context) > 0 {
		data, _ := json.Marshal(e.Context)
		line += " " + string(data)
	}
	if e.Error != "" {
		line += " error:" + e.Error
	}
	return line
}
