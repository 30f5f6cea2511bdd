package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/forest6511/acctvault/pkg/passgen"

	"github.com/spf13/cobra"
)

const (
	minPasswordLength     = 8
	defaultPasswordLength = 24
	defaultPasswordCount  = 1
	maxPasswordCount      = 100
	maxExcludeLength      = 256
)

// Generate command flags
var (
	generateLength      int
	generateMaxLength   int
	generateCount       int
	generateNoSymbols   bool
	generateNoNumbers   bool
	generateNoUppercase bool
	generateNoLowercase bool
	generateEach        bool
	generateExclude     string
	generateCopy        bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&generateLength, "length", "l", defaultPasswordLength, "Password length (8-256)")
	generateCmd.Flags().IntVar(&generateMaxLength, "max-length", 0, "Pick a random length between --length and this value")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", defaultPasswordCount, "Number of passwords to generate (1-100)")
	generateCmd.Flags().BoolVar(&generateNoSymbols, "no-symbols", false, "Exclude symbols")
	generateCmd.Flags().BoolVar(&generateNoNumbers, "no-numbers", false, "Exclude numbers")
	generateCmd.Flags().BoolVar(&generateNoUppercase, "no-uppercase", false, "Exclude uppercase letters")
	generateCmd.Flags().BoolVar(&generateNoLowercase, "no-lowercase", false, "Exclude lowercase letters")
	generateCmd.Flags().BoolVar(&generateEach, "each", true, "Include at least one character of every enabled kind")
	generateCmd.Flags().StringVar(&generateExclude, "exclude", "", "Characters to exclude")
	generateCmd.Flags().BoolVarP(&generateCopy, "copy", "c", false, "Copy first password to clipboard (accessible to all processes)")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate secure random passwords",
	Long: `Generate cryptographically secure random passwords.

Examples:
  # Generate a 24-character password (default)
  acctvault generate

  # Generate a 32-character password without symbols
  acctvault generate -l 32 --no-symbols

  # Generate 5 passwords of 16 to 20 characters
  acctvault generate -n 5 -l 16 --max-length 20

  # Generate and copy to clipboard
  acctvault generate -c

  # Generate password excluding ambiguous characters
  acctvault generate --exclude "0O1lI"`,
	Args: cobra.NoArgs,
	// Generating needs no config or account file.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              executeGenerate,
}

func executeGenerate(cmd *cobra.Command, args []string) error {
	if err := validateGenerateFlags(); err != nil {
		return err
	}

	gen, err := buildGenerator()
	if err != nil {
		return err
	}

	passwords := make([]string, generateCount)
	for i := range passwords {
		password, err := gen.Generate()
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
		passwords[i] = password
	}

	for _, password := range passwords {
		fmt.Println(password)
	}

	if generateCopy && len(passwords) > 0 {
		if err := copyToClipboard(passwords[0]); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to copy to clipboard: %v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, "Password copied to clipboard")
		}
	}
	return nil
}

// validateGenerateFlags validates the generate command flags
func validateGenerateFlags() error {
	if generateLength < minPasswordLength {
		return fmt.Errorf("password length must be at least %d characters", minPasswordLength)
	}
	if generateLength > passgen.MaxLength {
		return fmt.Errorf("password length must be at most %d characters", passgen.MaxLength)
	}
	if generateMaxLength != 0 && (generateMaxLength < generateLength || generateMaxLength > passgen.MaxLength) {
		return fmt.Errorf("--max-length must be between %d and %d", generateLength, passgen.MaxLength)
	}
	if generateCount < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if generateCount > maxPasswordCount {
		return fmt.Errorf("count must be at most %d", maxPasswordCount)
	}
	if len(generateExclude) > maxExcludeLength {
		return fmt.Errorf("exclude string must be at most %d characters", maxExcludeLength)
	}
	return nil
}

// buildGenerator builds a generator from the character-kind flags
func buildGenerator() (*passgen.Generator, error) {
	maxLen := generateLength
	if generateMaxLength > 0 {
		maxLen = generateMaxLength
	}
	gen := passgen.New(generateLength, maxLen)

	var charset strings.Builder
	for _, kind := range []struct {
		chars    string
		disabled bool
	}{
		{passgen.Lowercase, generateNoLowercase},
		{passgen.Uppercase, generateNoUppercase},
		{passgen.Digits, generateNoNumbers},
		{passgen.Symbols, generateNoSymbols},
	} {
		if kind.disabled {
			continue
		}
		charset.WriteString(kind.chars)
		if generateEach {
			gen.Require(kind.chars, 1)
		}
	}
	gen.Default = charset.String()
	gen.Exclude(generateExclude)

	if err := gen.Validate(); err != nil {
		if gen.Default == "" {
			return nil, fmt.Errorf("character set is empty: adjust flags to include at least one character type")
		}
		return nil, err
	}
	return gen, nil
}

// defaultGenerator returns the generator used by add and update: every
// character kind, at least one of each.
func defaultGenerator() *passgen.Generator {
	gen := passgen.New(passgen.DefaultMinLength, passgen.DefaultMaxLength)
	gen.Default = passgen.All
	for _, chars := range []string{passgen.Lowercase, passgen.Uppercase, passgen.Digits, passgen.Symbols} {
		gen.Require(chars, 1)
	}
	return gen
}

// copyToClipboard copies text to the system clipboard
func copyToClipboard(text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		// Try wl-copy first, then xclip, then xsel
		if _, err := exec.LookPath("wl-copy"); err == nil && os.Getenv("WAYLAND_DISPLAY") != "" {
			cmd = exec.Command("wl-copy")
		} else if _, err := exec.LookPath("xclip"); err == nil {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		} else if _, err := exec.LookPath("xsel"); err == nil {
			cmd = exec.Command("xsel", "--clipboard", "--input")
		} else {
			return fmt.Errorf("clipboard tool not found: install wl-clipboard, xclip or xsel")
		}
	case "windows":
		cmd = exec.Command("clip")
	default:
		return fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}

	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
