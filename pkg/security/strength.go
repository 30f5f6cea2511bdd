// Package security provides security analysis and scoring for stored accounts.
package security

import "unicode/utf8"

// PasswordStrength represents the strength level of an account password.
type PasswordStrength int

const (
	// PasswordWeak indicates an insecure password (less than 8 characters).
	PasswordWeak PasswordStrength = iota
	// PasswordFair indicates a minimally acceptable password.
	PasswordFair
	// PasswordGood indicates a good password.
	PasswordGood
	// PasswordStrong indicates a strong password.
	PasswordStrong
)

// String returns a human-readable representation of the password strength.
func (s PasswordStrength) String() string {
	switch s {
	case PasswordWeak:
		return "Weak"
	case PasswordFair:
		return "Fair"
	case PasswordGood:
		return "Good"
	case PasswordStrong:
		return "Strong"
	default:
		return "Unknown"
	}
}

// Points returns the score points for this strength level.
// Used in StrengthScore calculation: Weak=0, Fair=8, Good=17, Strong=25.
func (s PasswordStrength) Points() int {
	switch s {
	case PasswordWeak:
		return 0
	case PasswordFair:
		return 8
	case PasswordGood:
		return 17
	case PasswordStrong:
		return 25
	default:
		return 0
	}
}

// CalculateStrength evaluates a password by length alone, following
// NIST SP 800-63B: no composition rules, at least 8 characters, longer is
// better. Length is counted in characters, not bytes.
func CalculateStrength(password string) PasswordStrength {
	length := utf8.RuneCountInString(password)

	switch {
	case length >= 20:
		return PasswordStrong
	case length >= 14:
		return PasswordGood
	case length >= 8:
		return PasswordFair
	default:
		return PasswordWeak
	}
}
