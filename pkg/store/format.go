package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/forest6511/acctvault/pkg/account"
)

// MagicLength is the size of the format tag at the start of every file.
const MagicLength = 8

// Format identifies an account file revision.
type Format int

// Known revisions. Files are always written as FormatCurrent.
const (
	FormatV0 Format = iota // plaintext, one entry per account
	FormatV1               // encrypted, one entry per account, no UUID
	FormatV2               // encrypted, UUID plus full history
)

// FormatCurrent is the revision produced by WriteAccounts.
const FormatCurrent = FormatV2

// formatLayout describes how one revision is laid out after the magic.
type formatLayout struct {
	name      string
	magic     [MagicLength]byte
	encrypted bool
	// decode reads one account from the body. nil means the revision is
	// not readable by ReadAccounts.
	decode func(r *wireReader) (*account.Account, error)
	// encode writes one account to the body. nil means the revision is
	// never written.
	encode func(w *wireWriter, a *account.Account)
}

var formats = [...]formatLayout{
	FormatV0: {name: "v0", magic: magic("ACCTS.00")},
	FormatV1: {name: "v1", magic: magic("ACCTS.01"), encrypted: true, decode: decodeTuple},
	FormatV2: {name: "v2", magic: magic("ACCTS.02"), encrypted: true, decode: decodeHistory, encode: encodeHistory},
}

var byMagic = func() map[[MagicLength]byte]Format {
	m := make(map[[MagicLength]byte]Format, len(formats))
	for f, layout := range formats {
		m[layout.magic] = Format(f)
	}
	return m
}()

func magic(s string) [MagicLength]byte {
	var m [MagicLength]byte
	if copy(m[:], s) != MagicLength {
		panic("store: magic must be 8 bytes: " + s)
	}
	return m
}

func (f Format) valid() bool {
	return f >= 0 && int(f) < len(formats)
}

func (f Format) layout() formatLayout {
	return formats[f]
}

// String returns a short name such as "v2".
func (f Format) String() string {
	if !f.valid() {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formats[f].name
}

// Magic returns the 8-byte tag written at the start of files of this format.
func (f Format) Magic() []byte {
	if !f.valid() {
		return nil
	}
	m := formats[f].magic
	return m[:]
}

// Encrypted reports whether the body of this format is encrypted.
func (f Format) Encrypted() bool {
	return f.valid() && formats[f].encrypted
}

// ParseMagic maps a file tag to its format.
func ParseMagic(b []byte) (Format, error) {
	if len(b) != MagicLength {
		return 0, fmt.Errorf("%w: tag is %d bytes", ErrUnknownFormat, len(b))
	}
	f, ok := byMagic[[MagicLength]byte(b)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, b)
	}
	return f, nil
}

// ReadFormat consumes the magic from r and returns the format it names.
func ReadFormat(r io.Reader) (Format, error) {
	var buf [MagicLength]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: file is shorter than its magic", ErrTruncated)
		}
		return 0, fmt.Errorf("store: failed to read magic: %w", err)
	}
	return ParseMagic(buf[:])
}
