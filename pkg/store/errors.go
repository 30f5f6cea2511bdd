package store

import (
	"errors"
	"fmt"

	"github.com/forest6511/acctvault/pkg/account"
	"github.com/forest6511/acctvault/pkg/crypto"
)

// File format errors. All of them match ErrFileFormat with errors.Is.
var (
	// ErrFileFormat is the base of every account file format error.
	ErrFileFormat = errors.New("store: file format error")

	// ErrUnknownFormat indicates the file does not start with a known magic.
	ErrUnknownFormat = fmt.Errorf("%w: unknown file magic", ErrFileFormat)

	// ErrUnsupportedFormat indicates a known revision that cannot be read
	// (or written) on this path.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format revision", ErrFileFormat)

	// ErrTruncated indicates the stream ended before the data it announced.
	ErrTruncated = fmt.Errorf("%w: truncated data", ErrFileFormat)

	// ErrMalformed indicates structurally invalid account data.
	ErrMalformed = fmt.Errorf("%w: malformed account data", ErrFileFormat)

	// ErrCorruptHistory indicates an account whose history breaks the
	// ordering invariants. It also matches account.ErrCorruptHistory.
	ErrCorruptHistory = fmt.Errorf("%w: %w", ErrFileFormat, account.ErrCorruptHistory)
)

// Cipher errors.
var (
	// ErrDecryptionFailed indicates the file could not be decrypted, most
	// likely because the password is wrong. It also matches
	// crypto.ErrDecryptionFailed.
	ErrDecryptionFailed = fmt.Errorf("store: decryption failed, wrong password or corrupted data: %w",
		crypto.ErrDecryptionFailed)
)

// Collection and precondition errors.
var (
	ErrDuplicateDescription = errors.New("store: an account with this description already exists")
	ErrAccountExists        = errors.New("store: account is already in the store")
	ErrAccountNotFound      = errors.New("store: account not found")
	ErrNoPassword           = errors.New("store: no remembered password, a password must be supplied")
	ErrEmptyPassword        = errors.New("store: password cannot be empty")
	ErrStringTooLong        = errors.New("store: string field longer than 65535 bytes")
)
