package main

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script for your shell",
	Long: `To load completions:

Bash:
  $ source <(acctvault completion bash)

  # To load for each session (Linux):
  $ acctvault completion bash > ~/.local/share/bash-completion/completions/acctvault

  # To load for each session (macOS with Homebrew):
  $ acctvault completion bash > $(brew --prefix)/etc/bash_completion.d/acctvault

Zsh:
  # Ensure completion is enabled:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # Generate completion:
  $ acctvault completion zsh > ~/.zsh/completions/_acctvault
  # (create ~/.zsh/completions if needed, add to fpath in .zshrc)

Fish:
  $ acctvault completion fish > ~/.config/fish/completions/acctvault.fish

PowerShell:
  PS> acctvault completion powershell >> $PROFILE

Dynamic completion (account descriptions):
  Set ACCTVAULT_COMPLETION_ENABLED=1 to enable description completion.
  Note: ACCTVAULT_PASSWORD must also be set; completion never prompts.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	// Completion scripts need no config or account file.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	// Register dynamic completion functions for commands
	registerCompletionFunctions()
}
