package main

import (
	"fmt"
	"os"

	"github.com/forest6511/acctvault/pkg/crypto"
	"github.com/forest6511/acctvault/pkg/journal"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(passwdCmd)
}

// passwdCmd changes the master password.
var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the master password",
	Long: `Change the master password by re-encrypting the account file.

This operation:
  1. Verifies the current password
  2. Keeps the previous file as a backup
  3. Writes every account encrypted with the new password

The change is atomic: either fully succeeds or has no effect.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureUnlocked(cmd.Context()); err != nil {
			return err
		}
		defer v.Lock()

		newPassword, err := readNewPassword("new master password")
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(newPassword)

		if err := v.ChangePassword(newPassword); err != nil {
			return fmt.Errorf("failed to change password: %w", err)
		}
		logger.Info(cmd.Context(), "changed master password", "path", v.Path())

		if j != nil && j.IsOpen() {
			if err := j.Rekey(newPassword); err != nil {
				fmt.Fprintf(os.Stderr, "warning: journal was not re-signed: %v\n", err)
			}
		}
		record(cmd.Context(), journal.OpPasswd, "", nil)

		fmt.Println("Password changed successfully!")
		if v.KeepBackup {
			fmt.Printf("The previous file was kept at %s\n", v.BackupPath())
		}
		return nil
	},
}
