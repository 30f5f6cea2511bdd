package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvFile     = "ACCTVAULT_FILE"
	EnvPassword = "ACCTVAULT_PASSWORD"
)

// FileName is the name of the config file inside the config directory.
const FileName = "config.yaml"

// DefaultStaleAfter is the default password age reported as stale.
const DefaultStaleAfter = 365 * 24 * time.Hour

// Config holds runtime settings for the acctvault CLI.
type Config struct {
	VaultFile  string
	KeepBackup bool
	StaleAfter time.Duration
	Verbose    bool
	Journal    bool
}

// fileConfig is the YAML shape of the config file. Pointer fields tell an
// absent key apart from an explicit false.
type fileConfig struct {
	VaultFile  string `yaml:"vault_file"`
	KeepBackup *bool  `yaml:"keep_backup"`
	StaleAfter string `yaml:"stale_after"`
	Verbose    *bool  `yaml:"verbose"`
	Journal    *bool  `yaml:"journal"`
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.VaultFile = defaultVaultFile()
	c.KeepBackup = true
	c.StaleAfter = DefaultStaleAfter
	c.Verbose = false
	c.Journal = true
}

func defaultVaultFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".acctvault", "accounts.accts")
	}
	return filepath.Join(home, ".acctvault", "accounts.accts")
}

// DefaultPath returns the config file location:
// $XDG_CONFIG_HOME/acctvault/config.yaml, falling back to
// ~/.config/acctvault/config.yaml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "acctvault", FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "acctvault", FileName), nil
}

// Load builds a Config from defaults, the config file and the environment.
//
// An empty path means DefaultPath; a missing default file is not an error.
// An explicitly named file must exist. A malformed file is always an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.parseYAML(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// parseYAML overlays c with the keys present in data.
func (c *Config) parseYAML(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.VaultFile != "" {
		c.VaultFile = ExpandHome(fc.VaultFile)
	}
	if fc.KeepBackup != nil {
		c.KeepBackup = *fc.KeepBackup
	}
	if fc.StaleAfter != "" {
		d, err := ParseDuration(fc.StaleAfter)
		if err != nil {
			return fmt.Errorf("stale_after: %w", err)
		}
		c.StaleAfter = d
	}
	if fc.Verbose != nil {
		c.Verbose = *fc.Verbose
	}
	if fc.Journal != nil {
		c.Journal = *fc.Journal
	}
	return nil
}

// applyEnv overlays c with environment overrides.
func (c *Config) applyEnv(getenv func(string) string) {
	if f := getenv(EnvFile); f != "" {
		c.VaultFile = ExpandHome(f)
	}
}

// PasswordFromEnv returns the master password from ACCTVAULT_PASSWORD, or
// nil if unset. The variable is cleared after reading so child processes
// do not inherit it.
func PasswordFromEnv() []byte {
	password := os.Getenv(EnvPassword)
	os.Unsetenv(EnvPassword)
	if password == "" {
		return nil
	}
	return []byte(password)
}

// ParseDuration accepts time.ParseDuration syntax plus a whole-day suffix
// such as "30d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", s)
	}
	return d, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
