package store

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/forest6511/acctvault/pkg/account"
	"github.com/forest6511/acctvault/pkg/crypto"
)

// maxPrealloc caps map and slice preallocation from untrusted counts.
const maxPrealloc = 1024

func decodeEntry(r *wireReader) account.Entry {
	description := r.string("description")
	url := r.string("url")
	username := r.string("username")
	password := r.string("password")
	ts := r.int64("timestamp")
	return account.NewEntry(description, url, username, password, time.UnixMilli(ts))
}

func encodeEntry(w *wireWriter, e account.Entry) {
	w.string(e.Description)
	w.string(e.URL)
	w.string(e.Username)
	w.string(e.Password)
	w.int64(e.Millis())
}

// decodeTuple reads a single unversioned account, as stored by the first
// two revisions. The account gets a fresh UUID and is stamped with the
// current time.
func decodeTuple(r *wireReader) (*account.Account, error) {
	description := r.string("description")
	url := r.string("url")
	username := r.string("username")
	password := r.string("password")
	if r.err != nil {
		return nil, r.err
	}
	entry := account.NewEntry(description, url, username, password, time.Now())
	return account.Restore(uuid.New(), []account.Entry{entry})
}

func decodeHistory(r *wireReader) (*account.Account, error) {
	idText := r.string("account id")
	count := r.int32("entry count")
	if r.err != nil {
		return nil, r.err
	}
	id, err := uuid.Parse(idText)
	if err != nil {
		return nil, fmt.Errorf("%w: account id %q: %v", ErrMalformed, idText, err)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: account %s has negative entry count %d", ErrMalformed, id, count)
	}

	history := make([]account.Entry, 0, min(int(count), maxPrealloc))
	for i := int32(0); i < count; i++ {
		e := decodeEntry(r)
		if r.err != nil {
			return nil, fmt.Errorf("account %s entry %d: %w", id, i, r.err)
		}
		history = append(history, e)
	}
	return account.Restore(id, history)
}

func encodeHistory(w *wireWriter, a *account.Account) {
	history := a.History()
	w.string(a.ID().String())
	w.int32(int32(len(history)))
	for _, e := range history {
		encodeEntry(w, e)
	}
}

// decodeBody parses a plaintext body: an account count followed by that
// many accounts read with decode.
func decodeBody(body []byte, decode func(*wireReader) (*account.Account, error)) (map[uuid.UUID]*account.Account, error) {
	r := newWireReader(body)
	count := r.int32("account count")
	if r.err != nil {
		return nil, r.err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative account count %d", ErrMalformed, count)
	}

	accounts := make(map[uuid.UUID]*account.Account, min(int(count), maxPrealloc))
	for i := int32(0); i < count; i++ {
		a, err := decode(r)
		if err != nil {
			if errors.Is(err, account.ErrCorruptHistory) {
				return nil, fmt.Errorf("%w: account %d: %v", ErrCorruptHistory, i, err)
			}
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		if _, dup := accounts[a.ID()]; dup {
			return nil, fmt.Errorf("%w: account id %s appears twice", ErrMalformed, a.ID())
		}
		accounts[a.ID()] = a
	}
	if n := r.remaining(); n > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after %d accounts", ErrMalformed, n, count)
	}
	return accounts, nil
}

// decode reads a whole account file from r.
//
// A structurally invalid body from an encrypted file is reported as both
// ErrDecryptionFailed and the underlying format error: without
// authentication, a wrong password can yield valid padding over garbage.
// History ordering violations are reported as format errors only.
func decode(r io.Reader, password []byte) (map[uuid.UUID]*account.Account, Format, error) {
	format, err := ReadFormat(r)
	if err != nil {
		return nil, 0, err
	}
	layout := format.layout()
	if layout.decode == nil {
		return nil, format, fmt.Errorf("%w: %s files must be converted first", ErrUnsupportedFormat, format)
	}

	body, err := readBody(r, layout.encrypted, password)
	if err != nil {
		return nil, format, err
	}
	defer crypto.SecureWipe(body)

	accounts, err := decodeBody(body, layout.decode)
	if err != nil {
		if layout.encrypted && !errors.Is(err, ErrCorruptHistory) {
			return nil, format, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
		}
		return nil, format, err
	}
	return accounts, format, nil
}

// readBody returns the plaintext body that follows the magic.
func readBody(r io.Reader, encrypted bool, password []byte) ([]byte, error) {
	if !encrypted {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("store: failed to read body: %w", err)
		}
		return body, nil
	}

	header := make([]byte, crypto.SaltLength+crypto.IVLength)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: missing salt or IV", ErrTruncated)
		}
		return nil, fmt.Errorf("store: failed to read header: %w", err)
	}
	salt, iv := header[:crypto.SaltLength], header[crypto.SaltLength:]

	ciphertext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("store: failed to read body: %w", err)
	}

	key := crypto.DeriveKey(password, salt)
	defer crypto.SecureWipe(key)

	body, err := crypto.Decrypt(key, iv, ciphertext)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return nil, ErrDecryptionFailed
		}
		return nil, fmt.Errorf("store: failed to decrypt: %w", err)
	}
	return body, nil
}

// encode writes accounts to w in the current format, with a fresh salt and
// IV.
func encode(w io.Writer, accounts []*account.Account, password []byte) error {
	layout := FormatCurrent.layout()

	var body wireWriter
	body.int32(int32(len(accounts)))
	for _, a := range accounts {
		layout.encode(&body, a)
	}
	defer crypto.SecureWipe(body.Bytes())
	if body.err != nil {
		return fmt.Errorf("store: failed to encode accounts: %w", body.err)
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return fmt.Errorf("store: failed to generate salt: %w", err)
	}
	iv, err := crypto.NewIV()
	if err != nil {
		return fmt.Errorf("store: failed to generate IV: %w", err)
	}

	key := crypto.DeriveKey(password, salt)
	defer crypto.SecureWipe(key)

	ciphertext, err := crypto.Encrypt(key, iv, body.Bytes())
	if err != nil {
		return fmt.Errorf("store: failed to encrypt: %w", err)
	}

	out := make([]byte, 0, MagicLength+len(salt)+len(iv)+len(ciphertext))
	out = append(out, layout.magic[:]...)
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("store: failed to write accounts: %w", err)
	}
	return nil
}
