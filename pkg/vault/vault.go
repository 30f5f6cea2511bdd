// Package vault manages the encrypted account file on disk.
//
// A Vault wraps one account file and the store decoded from it. It adds the
// file-level concerns the store does not have: atomic replacement with an
// optional backup copy, owner-only permissions, a cooldown after repeated
// wrong passwords, and disk space checks before writing.
package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/forest6511/acctvault/pkg/crypto"
	"github.com/forest6511/acctvault/pkg/store"
)

// Constants
const (
	FileMode     = 0600 // Owner read/write only
	DirMode      = 0700 // Owner read/write/execute only
	BackupSuffix = ".bak"
	LockSuffix   = ".lock"

	// Failed unlock limits: 5 attempts -> 30s, 10 attempts -> 5min, 20 attempts -> 30min
	CooldownThreshold1 = 5
	CooldownThreshold2 = 10
	CooldownThreshold3 = 20
	CooldownDuration1  = 30 * time.Second
	CooldownDuration2  = 5 * time.Minute
	CooldownDuration3  = 30 * time.Minute

	// Disk capacity thresholds
	MinDiskSpaceBytes  = 10 * 1024 * 1024 // 10 MB minimum free space
	DiskWarningPercent = 90               // Warn when disk is 90% full
)

// Errors
var (
	ErrVaultAlreadyExists   = errors.New("vault: account file already exists at this path")
	ErrVaultNotFound        = errors.New("vault: account file not found at this path")
	ErrVaultLocked          = errors.New("vault: vault is locked")
	ErrVaultAlreadyUnlocked = errors.New("vault: vault is already unlocked")
	ErrInvalidPassword      = errors.New("vault: invalid master password")
	ErrTooManyAttempts      = errors.New("vault: too many failed unlock attempts")
	ErrCooldownActive       = errors.New("vault: cooldown period active")
	ErrInsufficientDisk     = errors.New("vault: insufficient disk space")
	ErrPasswordTooShort     = errors.New("vault: password must be at least 8 characters")
	ErrPasswordTooLong      = errors.New("vault: password must be at most 128 characters")
)

// Password validation constants
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// PasswordStrength represents the strength level of a password
type PasswordStrength int

const (
	PasswordWeak PasswordStrength = iota
	PasswordFair
	PasswordGood
	PasswordStrong
)

// String returns a human-readable representation of password strength
func (s PasswordStrength) String() string {
	switch s {
	case PasswordWeak:
		return "weak"
	case PasswordFair:
		return "fair"
	case PasswordGood:
		return "good"
	case PasswordStrong:
		return "strong"
	default:
		return "unknown"
	}
}

// PasswordValidationResult contains the result of password validation
type PasswordValidationResult struct {
	Valid    bool             // Whether password meets minimum requirements
	Strength PasswordStrength // Estimated strength
	Warnings []string         // Suggestions for improvement (not errors)
}

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>\-_=+\[\]\\;'~/\x60]`)
)

// ValidateMasterPassword checks a new master password. Length limits are
// hard requirements; complexity only produces warnings.
func ValidateMasterPassword(password []byte) *PasswordValidationResult {
	result := &PasswordValidationResult{
		Valid:    true,
		Strength: PasswordFair,
	}

	if len(password) < MinPasswordLength {
		result.Valid = false
		result.Strength = PasswordWeak
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
		return result
	}
	if len(password) > MaxPasswordLength {
		result.Valid = false
		result.Strength = PasswordWeak
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Password must be at most %d characters", MaxPasswordLength))
		return result
	}

	complexity := 0
	for _, re := range []*regexp.Regexp{upperRe, lowerRe, digitRe, specialRe} {
		if re.Match(password) {
			complexity++
		}
	}

	if complexity < 2 {
		result.Warnings = append(result.Warnings,
			"Consider using a mix of uppercase, lowercase, numbers, and symbols")
	}
	if len(password) < 12 {
		result.Warnings = append(result.Warnings,
			"Longer passwords (12+ characters) are more secure")
	}

	switch {
	case complexity >= 3 && len(password) >= 16:
		result.Strength = PasswordStrong
	case complexity >= 2 && len(password) >= 12:
		result.Strength = PasswordGood
	case complexity >= 2 || len(password) >= 12:
		result.Strength = PasswordFair
	default:
		result.Strength = PasswordWeak
	}

	return result
}

// LockState tracks failed unlock attempts for cooldown enforcement
type LockState struct {
	FailedAttempts int       `json:"failed_attempts"`
	LastAttempt    time.Time `json:"last_attempt"`
	CooldownUntil  time.Time `json:"cooldown_until"`
	LockoutCount   int       `json:"lockout_count"` // Number of times cooldown was triggered
}

// Vault manages one account file
type Vault struct {
	path  string       // Path to the account file (e.g., ~/.acctvault/accounts.accts)
	store *store.Store // Decoded accounts, nil while locked
	mu    sync.RWMutex

	// KeepBackup keeps the previous file as path+".bak" on every write.
	KeepBackup bool
}

// New creates a Vault for the account file at path. Nothing is read until
// Unlock.
func New(path string) *Vault {
	return &Vault{
		path:       path,
		KeepBackup: true,
	}
}

// Init creates a new, empty account file encrypted with masterPassword and
// leaves the vault unlocked.
func (v *Vault) Init(masterPassword []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.exists() {
		return ErrVaultAlreadyExists
	}
	if v.store != nil {
		return ErrVaultAlreadyUnlocked
	}
	if res := ValidateMasterPassword(masterPassword); !res.Valid {
		if len(masterPassword) < MinPasswordLength {
			return ErrPasswordTooShort
		}
		return ErrPasswordTooLong
	}

	if err := os.MkdirAll(filepath.Dir(v.path), DirMode); err != nil {
		return fmt.Errorf("vault: failed to create vault directory: %w", err)
	}

	s := store.New()
	if err := v.writeLocked(func(w io.Writer) error {
		return s.WriteAccounts(w, masterPassword)
	}); err != nil {
		s.Forget()
		return err
	}
	v.store = s
	return nil
}

// Unlock reads and decrypts the account file.
//
// A wrong password counts toward the cooldown; past a threshold, Unlock
// refuses to try until the cooldown ends. A successful unlock clears the
// failure count.
func (v *Vault) Unlock(masterPassword []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.exists() {
		return ErrVaultNotFound
	}
	if v.store != nil {
		return ErrVaultAlreadyUnlocked
	}

	if remaining, err := v.checkCooldown(); err != nil {
		if errors.Is(err, ErrCooldownActive) {
			return fmt.Errorf("%w: please wait %v", ErrCooldownActive, remaining.Round(time.Second))
		}
		return err
	}

	s, err := ReadFile(v.path, masterPassword)
	if err != nil {
		// A body that decrypts to garbage is indistinguishable from a wrong
		// password, so a corrupt file also counts toward the cooldown.
		if errors.Is(err, ErrInvalidPassword) {
			cooldown, recordErr := v.recordFailedAttempt()
			if recordErr != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to record unlock attempt: %v\n", recordErr)
			}
			if cooldown > 0 {
				return fmt.Errorf("%w: cooldown activated for %v", ErrTooManyAttempts, cooldown.Round(time.Second))
			}
		}
		return err
	}
	v.store = s

	if err := v.clearLockState(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to clear lock state: %v\n", err)
	}

	// Advisory only, the user may have reasons for wider permissions.
	for _, w := range v.PermissionWarnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return nil
}

// ReadFile decodes the account file at path. A wrong password is reported as
// ErrInvalidPassword, which also matches store.ErrDecryptionFailed.
func ReadFile(path string, password []byte) (*store.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("vault: failed to read %s: %w", path, err)
	}
	defer crypto.SecureWipe(data)

	s := store.New()
	if err := s.ReadAccounts(bytes.NewReader(data), password); err != nil {
		if errors.Is(err, store.ErrDecryptionFailed) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPassword, err)
		}
		return nil, fmt.Errorf("vault: failed to read %s: %w", path, err)
	}
	return s, nil
}

// Lock forgets the decoded accounts and the remembered password.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.store != nil {
		v.store.Forget()
		v.store = nil
	}
}

// IsLocked returns whether the vault is locked
func (v *Vault) IsLocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.store == nil
}

// Path returns the account file path
func (v *Vault) Path() string {
	return v.path
}

// Store returns the unlocked store. Changes become durable with Save.
func (v *Vault) Store() (*store.Store, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.store == nil {
		return nil, ErrVaultLocked
	}
	return v.store, nil
}

// Save writes the store back with the password it was unlocked with.
// Files read in an older format are written in the current one.
func (v *Vault) Save() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.store == nil {
		return ErrVaultLocked
	}
	return v.writeLocked(v.store.Save)
}

// ChangePassword re-encrypts the file with newPassword. The store remembers
// the new password only once the file is written; on failure it keeps the
// old one.
func (v *Vault) ChangePassword(newPassword []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.store == nil {
		return ErrVaultLocked
	}
	if res := ValidateMasterPassword(newPassword); !res.Valid {
		if len(newPassword) < MinPasswordLength {
			return ErrPasswordTooShort
		}
		return ErrPasswordTooLong
	}

	c := v.store.Clone()
	if err := v.writeLocked(func(w io.Writer) error {
		return c.WriteAccounts(w, newPassword)
	}); err != nil {
		c.Forget()
		return err
	}
	v.store.Forget()
	v.store = c
	return nil
}

// Replace swaps in s as the vault contents and writes it with password.
// Used to finish a conversion from the plaintext format.
func (v *Vault) Replace(s *store.Store, password []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(v.path), DirMode); err != nil {
		return fmt.Errorf("vault: failed to create vault directory: %w", err)
	}
	if err := v.writeLocked(func(w io.Writer) error {
		return s.WriteAccounts(w, password)
	}); err != nil {
		return err
	}
	if v.store != nil && v.store != s {
		v.store.Forget()
	}
	v.store = s
	return nil
}

// writeLocked writes the file through a temporary file in the same
// directory, then renames it over the target. The caller holds v.mu.
func (v *Vault) writeLocked(encode func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return err
	}
	defer crypto.SecureWipe(buf.Bytes())

	if err := v.checkDiskSpaceForWrite(buf.Len()); err != nil {
		return err
	}

	dir := filepath.Dir(v.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(v.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("vault: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpPath)
	}()

	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("vault: failed to set file permissions: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("vault: failed to write account file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("vault: failed to sync account file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: failed to close account file: %w", err)
	}

	if v.KeepBackup {
		if err := v.backupLocked(); err != nil {
			return err
		}
	}

	if err := os.Rename(tmpPath, v.path); err != nil {
		return fmt.Errorf("vault: failed to replace account file: %w", err)
	}
	return nil
}

// backupLocked copies the current file, if any, to the backup path.
func (v *Vault) backupLocked() error {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("vault: failed to read account file for backup: %w", err)
	}
	if err := os.WriteFile(v.BackupPath(), data, FileMode); err != nil {
		return fmt.Errorf("vault: failed to write backup: %w", err)
	}
	return nil
}

// BackupPath returns where the previous file is kept.
func (v *Vault) BackupPath() string {
	return v.path + BackupSuffix
}

// exists checks if the account file exists
func (v *Vault) exists() bool {
	_, err := os.Stat(v.path)
	return err == nil
}

// Exists reports whether the account file exists.
func (v *Vault) Exists() bool {
	return v.exists()
}

// PermissionWarnings lists insecure permissions on the account file and its
// directory. It is advisory and never blocks an operation.
func (v *Vault) PermissionWarnings() []string {
	var warnings []string
	if info, err := os.Stat(filepath.Dir(v.path)); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			warnings = append(warnings,
				fmt.Sprintf("vault directory has insecure permissions %04o (expected 0700)", perm))
		}
	}
	for _, p := range []string{v.path, v.BackupPath()} {
		if info, err := os.Stat(p); err == nil {
			if perm := info.Mode().Perm(); perm&0077 != 0 {
				warnings = append(warnings,
					fmt.Sprintf("%s has insecure permissions %04o (expected 0600)", filepath.Base(p), perm))
			}
		}
	}
	return warnings
}

// DetectFormat reads only the magic of the file at path.
func DetectFormat(path string) (store.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrVaultNotFound
		}
		return 0, fmt.Errorf("vault: failed to open %s: %w", path, err)
	}
	defer f.Close()
	return store.ReadFormat(f)
}

// IntegrityCheckResult reports what can be checked without the password.
type IntegrityCheckResult struct {
	Valid            bool         `json:"valid"`
	FileExists       bool         `json:"file_exists"`
	Format           store.Format `json:"format"`
	FormatKnown      bool         `json:"format_known"`
	SizeValid        bool         `json:"size_valid"`
	NeedsUpgrade     bool         `json:"needs_upgrade"`
	PermissionsValid bool         `json:"permissions_valid"`
	Size             int64        `json:"size"`
	Errors           []string     `json:"errors,omitempty"`
}

// CheckIntegrity inspects the file without decrypting it:
// 1. The file exists
// 2. Its magic names a known format
// 3. An encrypted body is a whole number of cipher blocks
// 4. Permissions are owner-only
func (v *Vault) CheckIntegrity() (*IntegrityCheckResult, error) {
	result := &IntegrityCheckResult{
		Valid:            true,
		PermissionsValid: true,
	}

	info, err := os.Stat(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			result.Valid = false
			result.Errors = append(result.Errors, "account file not found")
			return result, nil
		}
		return nil, fmt.Errorf("vault: failed to stat account file: %w", err)
	}
	result.FileExists = true
	result.Size = info.Size()

	format, err := DetectFormat(v.path)
	if err != nil {
		if !errors.Is(err, store.ErrFileFormat) {
			return nil, err
		}
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	result.Format = format
	result.FormatKnown = true
	result.NeedsUpgrade = format != store.FormatCurrent

	result.SizeValid = true
	if format.Encrypted() {
		body := info.Size() - store.MagicLength - crypto.SaltLength - crypto.IVLength
		if body <= 0 || body%crypto.IVLength != 0 {
			result.SizeValid = false
			result.Valid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("encrypted body is %d bytes, not a positive multiple of %d", body, crypto.IVLength))
		}
	}

	if warnings := v.PermissionWarnings(); len(warnings) > 0 {
		result.Valid = false
		result.PermissionsValid = false
		result.Errors = append(result.Errors, warnings...)
	}

	return result, nil
}

// lockPath returns the path of the failed-attempt state file
func (v *Vault) lockPath() string {
	return v.path + LockSuffix
}

// loadLockState reads the lock state from the lock file
func (v *Vault) loadLockState() (*LockState, error) {
	data, err := os.ReadFile(v.lockPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &LockState{}, nil // No lock state yet
		}
		return nil, fmt.Errorf("vault: failed to read lock state: %w", err)
	}

	var state LockState
	if err := json.Unmarshal(data, &state); err != nil {
		// Corrupted lock file - reset state
		return &LockState{}, nil
	}
	return &state, nil
}

// saveLockState writes the lock state to the lock file
func (v *Vault) saveLockState(state *LockState) error {
	if err := v.checkDiskSpaceForWrite(1024); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("vault: failed to marshal lock state: %w", err)
	}
	if err := os.WriteFile(v.lockPath(), data, FileMode); err != nil {
		return fmt.Errorf("vault: failed to write lock state: %w", err)
	}
	return nil
}

// clearLockState removes the lock state file (called on successful unlock)
func (v *Vault) clearLockState() error {
	err := os.Remove(v.lockPath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("vault: failed to clear lock state: %w", err)
	}
	return nil
}

// checkCooldown verifies if unlock is allowed or if cooldown is active
func (v *Vault) checkCooldown() (time.Duration, error) {
	state, err := v.loadLockState()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	if !state.CooldownUntil.IsZero() && now.Before(state.CooldownUntil) {
		return state.CooldownUntil.Sub(now), ErrCooldownActive
	}
	return 0, nil
}

// recordFailedAttempt records a failed unlock attempt and potentially triggers cooldown
func (v *Vault) recordFailedAttempt() (time.Duration, error) {
	state, err := v.loadLockState()
	if err != nil {
		return 0, err
	}

	state.FailedAttempts++
	state.LastAttempt = time.Now()

	var cooldown time.Duration
	switch {
	case state.FailedAttempts >= CooldownThreshold3:
		cooldown = CooldownDuration3
	case state.FailedAttempts >= CooldownThreshold2:
		cooldown = CooldownDuration2
	case state.FailedAttempts >= CooldownThreshold1:
		cooldown = CooldownDuration1
	}
	if cooldown > 0 {
		state.CooldownUntil = state.LastAttempt.Add(cooldown)
		state.LockoutCount++
	}

	if err := v.saveLockState(state); err != nil {
		return cooldown, err
	}
	return cooldown, nil
}

// GetLockState returns the current lock state for display purposes
func (v *Vault) GetLockState() (*LockState, error) {
	return v.loadLockState()
}

// RemainingCooldown returns the remaining cooldown time, or 0 if not in cooldown
func (v *Vault) RemainingCooldown() time.Duration {
	remaining, err := v.checkCooldown()
	if err != nil && !errors.Is(err, ErrCooldownActive) {
		return 0
	}
	return remaining
}

// DiskSpaceInfo contains disk usage information
type DiskSpaceInfo struct {
	Total     uint64 `json:"total"`     // Total disk space in bytes
	Free      uint64 `json:"free"`      // Free disk space in bytes
	Available uint64 `json:"available"` // Available to non-root users
	UsedPct   int    `json:"used_pct"`  // Percentage of disk used
}

// HasSufficientDiskSpace checks if there's enough disk space for operations
func (v *Vault) HasSufficientDiskSpace() (bool, error) {
	info, err := v.CheckDiskSpace()
	if err != nil {
		return false, err
	}
	return info.Available >= MinDiskSpaceBytes, nil
}

// checkDiskSpaceForWrite verifies sufficient disk space before write operations
func (v *Vault) checkDiskSpaceForWrite(dataSize int) error {
	info, err := v.CheckDiskSpace()
	if err != nil {
		// Don't block the write on a failed check
		fmt.Fprintf(os.Stderr, "warning: failed to check disk space: %v\n", err)
		return nil
	}

	// Need at least MinDiskSpaceBytes or 2x the data size, whichever is larger
	required := max(uint64(MinDiskSpaceBytes), uint64(dataSize)*2)
	if info.Available < required {
		return fmt.Errorf("%w: only %d MB available, need at least %d MB",
			ErrInsufficientDisk,
			info.Available/(1024*1024),
			required/(1024*1024))
	}

	if info.UsedPct >= DiskWarningPercent {
		fmt.Fprintf(os.Stderr, "warning: disk is %d%% full, consider freeing space\n", info.UsedPct)
	}
	return nil
}
