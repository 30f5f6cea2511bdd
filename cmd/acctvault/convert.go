package main

import (
	"fmt"
	"os"

	"github.com/forest6511/acctvault/internal/config"
	"github.com/forest6511/acctvault/pkg/crypto"
	"github.com/forest6511/acctvault/pkg/store"
	"github.com/forest6511/acctvault/pkg/vault"

	"github.com/spf13/cobra"
)

var (
	convertOutput string
	convertForce  bool
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "Write the converted file here instead of the account file")
	convertCmd.Flags().BoolVarP(&convertForce, "force", "f", false, "Overwrite an existing account file")
}

// convertCmd converts a plaintext account file into an encrypted one
var convertCmd = &cobra.Command{
	Use:   "convert <plaintext-file>",
	Short: "Converts a plaintext account file to the encrypted format",
	Long: `Converts an account file of the oldest, unencrypted format.

Every account is written with a fresh identity and a single history entry.
The plaintext file is left in place; delete it once the conversion is
verified.

Encrypted files of an older format need no conversion: they are rewritten
in the current format the next time they are saved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		src := config.ExpandHome(args[0])

		dst := v
		if convertOutput != "" {
			dst = vault.New(config.ExpandHome(convertOutput))
			dst.KeepBackup = v.KeepBackup
		}
		if dst.Exists() && !convertForce {
			return fmt.Errorf("output file already exists: %s (use --force to overwrite)", dst.Path())
		}

		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", src, err)
		}
		s, err := store.ConvertV0(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to convert %s: %w", src, err)
		}
		logger.Debug(ctx, "read plaintext account file", "path", src, "accounts", s.Len())

		password, err := readNewPassword("master password for the converted file")
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(password)

		if err := dst.Replace(s, password); err != nil {
			return fmt.Errorf("failed to write %s: %w", dst.Path(), err)
		}
		defer dst.Lock()

		fmt.Printf("Converted %d %s into %s\n", s.Len(), plural(s.Len(), "account", "accounts"), dst.Path())
		return nil
	},
}
