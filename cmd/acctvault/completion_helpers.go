package main

import (
	"os"
	"strings"

	"github.com/forest6511/acctvault/internal/config"
	"github.com/forest6511/acctvault/pkg/account"
	"github.com/forest6511/acctvault/pkg/crypto"
	"github.com/forest6511/acctvault/pkg/vault"

	"github.com/spf13/cobra"
)

// EnvCompletion opts in to description completion.
const EnvCompletion = "ACCTVAULT_COMPLETION_ENABLED"

// isDynamicCompletionEnabled checks if dynamic completion is opt-in enabled.
// Dynamic completion is disabled by default to prevent password prompts
// during tab completion.
func isDynamicCompletionEnabled() bool {
	return os.Getenv(EnvCompletion) == "1"
}

// completeDescriptions provides account description completion (opt-in only).
// Returns an empty list unless completion is enabled and the account file can
// be opened with ACCTVAULT_PASSWORD.
func completeDescriptions(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if !isDynamicCompletionEnabled() {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	descriptions, err := descriptionsForCompletion(toComplete)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return descriptions, cobra.ShellCompDirectiveNoFileComp
}

// descriptionsForCompletion returns descriptions starting with prefix,
// ignoring case.
//
// The root pre-run hook may already have taken the password from the
// environment, and the --file flag is parsed only after it, so both are
// resolved again here. The file is read without recording failed attempts.
func descriptionsForCompletion(prefix string) ([]string, error) {
	pw := append([]byte(nil), envPassword...)
	if len(pw) == 0 {
		pw = []byte(os.Getenv(config.EnvPassword))
	}
	defer crypto.SecureWipe(pw)
	if len(pw) == 0 {
		return nil, nil
	}

	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	path := c.VaultFile
	if vaultFile != "" {
		path = config.ExpandHome(vaultFile)
	}

	s, err := vault.ReadFile(path, pw)
	if err != nil {
		return nil, err
	}
	defer s.Forget()

	return filterPrefix(s.Accounts(), prefix), nil
}

func filterPrefix(accounts []*account.Account, prefix string) []string {
	var filtered []string
	lowerPrefix := strings.ToLower(prefix)
	for _, a := range accounts {
		d := a.Description()
		if strings.HasPrefix(strings.ToLower(d), lowerPrefix) {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// registerCompletionFunctions registers ValidArgsFunction for commands that
// take account descriptions.
func registerCompletionFunctions() {
	for _, c := range []*cobra.Command{showCmd, historyCmd, updateCmd, listCmd, deleteCmd} {
		c.ValidArgsFunction = completeDescriptions
	}
	_ = exportCmd.RegisterFlagCompletionFunc("key", completeDescriptions)
}
