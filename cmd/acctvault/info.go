package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/forest6511/acctvault/pkg/vault"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	infoJSON   bool
	infoUnlock bool
)

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output in JSON format")
	infoCmd.Flags().BoolVarP(&infoUnlock, "unlock", "u", false, "Also decrypt the file and report its accounts")
}

// fileInfo is the report printed by info
type fileInfo struct {
	Path           string                      `json:"path"`
	Integrity      *vault.IntegrityCheckResult `json:"integrity"`
	FormatName     string                      `json:"format_name,omitempty"`
	Backup         *backupInfo                 `json:"backup,omitempty"`
	FailedAttempts int                         `json:"failed_attempts"`
	Cooldown       string                      `json:"cooldown,omitempty"`
	Disk           *vault.DiskSpaceInfo        `json:"disk,omitempty"`
	Accounts       *int                        `json:"accounts,omitempty"`
	Duplicates     []string                    `json:"duplicate_descriptions,omitempty"`
	Journal        *journalStatus              `json:"journal,omitempty"`
}

type journalStatus struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
	Valid   bool   `json:"valid"`
}

type backupInfo struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the state of the account file",
	Long: `Show the state of the account file without changing it.

Checks the file format, that an encrypted body has a valid size, file
permissions, the kept backup, failed unlock attempts and free disk space.
With --unlock the file is decrypted and its accounts are counted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := collectFileInfo(cmd.Context())
		if err != nil {
			return err
		}

		if infoUnlock && report.Integrity.FileExists {
			if err := ensureUnlocked(cmd.Context()); err != nil {
				return err
			}
			defer v.Lock()

			s, err := v.Store()
			if err != nil {
				return err
			}
			n := s.Len()
			report.Accounts = &n
			report.Duplicates = s.DuplicateDescriptions()

			if j != nil && j.IsOpen() {
				if res, err := j.Verify(); err == nil {
					report.Journal = &journalStatus{Path: j.Path(), Records: res.RecordsTotal, Valid: res.Valid}
				}
			}
		}

		if infoJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		printFileInfo(report)
		return nil
	},
}

func collectFileInfo(ctx context.Context) (*fileInfo, error) {
	integrity, err := v.CheckIntegrity()
	if err != nil {
		return nil, err
	}
	report := &fileInfo{
		Path:      v.Path(),
		Integrity: integrity,
	}
	if integrity.FormatKnown {
		report.FormatName = integrity.Format.String()
	}

	if st, err := os.Stat(v.BackupPath()); err == nil {
		report.Backup = &backupInfo{Path: v.BackupPath(), Size: st.Size(), Modified: st.ModTime()}
	}

	if state, err := v.GetLockState(); err == nil && state != nil {
		report.FailedAttempts = state.FailedAttempts
	}
	if remaining := v.RemainingCooldown(); remaining > 0 {
		report.Cooldown = remaining.Round(time.Second).String()
	}

	if disk, err := v.CheckDiskSpace(); err == nil {
		report.Disk = disk
	} else {
		logger.Debug(ctx, "disk space check failed", "error", err)
	}
	return report, nil
}

func printFileInfo(r *fileInfo) {
	in := r.Integrity
	fmt.Printf("File:        %s\n", r.Path)
	if !in.FileExists {
		fmt.Println("Status:      not found (run 'acctvault init')")
		return
	}
	fmt.Printf("Size:        %s\n", humanize.IBytes(uint64(in.Size)))
	if in.FormatKnown {
		line := r.FormatName
		if in.NeedsUpgrade {
			line += " (older format, upgraded on next save)"
		}
		fmt.Printf("Format:      %s\n", line)
	}
	status := "OK"
	if !in.Valid {
		status = "PROBLEMS FOUND"
	}
	fmt.Printf("Status:      %s\n", status)
	for _, e := range in.Errors {
		fmt.Printf("  - %s\n", e)
	}

	if r.Accounts != nil {
		fmt.Printf("Accounts:    %d\n", *r.Accounts)
		for _, d := range r.Duplicates {
			fmt.Printf("  - description '%s' is used by several accounts\n", d)
		}
	}

	if r.Journal != nil {
		status := "chain intact"
		if !r.Journal.Valid {
			status = "VERIFICATION FAILED, run 'acctvault log verify'"
		}
		fmt.Printf("Journal:     %d %s, %s\n", r.Journal.Records, plural(r.Journal.Records, "event", "events"), status)
	}

	if r.Backup != nil {
		fmt.Printf("Backup:      %s (%s, %s)\n", r.Backup.Path,
			humanize.IBytes(uint64(r.Backup.Size)), humanize.Time(r.Backup.Modified))
	} else {
		fmt.Println("Backup:      none")
	}

	if r.FailedAttempts > 0 {
		fmt.Printf("Failed unlock attempts: %d\n", r.FailedAttempts)
	}
	if r.Cooldown != "" {
		fmt.Printf("Unlock cooldown: %s remaining\n", r.Cooldown)
	}

	if r.Disk != nil {
		fmt.Printf("Disk:        %s free of %s (%d%% used)\n",
			humanize.IBytes(r.Disk.Available), humanize.IBytes(r.Disk.Total), r.Disk.UsedPct)
	}
}
