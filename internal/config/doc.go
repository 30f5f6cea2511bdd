// Package config resolves runtime settings for the acctvault CLI.
//
// Settings are layered: built-in defaults, then the YAML config file, then
// environment variables. Command-line flags are applied last by the caller.
//
// Config file keys:
//
//	vault_file:  path to the account file (~ is expanded)
//	keep_backup: keep the previous file as <vault_file>.bak on every write
//	stale_after: password age that counts as stale, e.g. "8760h" or "365d"
//	verbose:     enable debug logging
//
// Environment:
//
//	ACCTVAULT_FILE      overrides vault_file
//	ACCTVAULT_PASSWORD  master password for non-interactive use
package config
