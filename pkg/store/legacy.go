package store

import (
	"fmt"
	"io"

	"github.com/forest6511/acctvault/pkg/crypto"
)

// ConvertV0 reads a plaintext file of the oldest revision and returns its
// accounts as a new store. Every account gets a fresh UUID and a single
// entry stamped with the current time. The store has no remembered password;
// write it with WriteAccounts to finish the conversion.
//
// Files of any other revision fail with ErrUnsupportedFormat.
func ConvertV0(r io.Reader) (*Store, error) {
	format, err := ReadFormat(r)
	if err != nil {
		return nil, err
	}
	if format != FormatV0 {
		return nil, fmt.Errorf("%w: expected a %s file, got %s", ErrUnsupportedFormat, FormatV0, format)
	}

	body, err := readBody(r, false, nil)
	if err != nil {
		return nil, err
	}
	defer crypto.SecureWipe(body)

	accounts, err := decodeBody(body, decodeTuple)
	if err != nil {
		return nil, err
	}

	s := New()
	s.accounts = accounts
	s.format = FormatV0
	return s, nil
}
