// Package store holds a collection of accounts and their encrypted file
// form.
//
// A Store is keyed by account UUID. Descriptions are unique among accounts
// created or updated through the Store, and iteration is ordered by current
// description. ReadAccounts and WriteAccounts convert between a Store and the
// binary file format; the password used by the last successful call is
// remembered so the Store can be saved again without asking for it.
//
// A Store is not safe for concurrent use.
package store

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/google/uuid"

	"github.com/forest6511/acctvault/pkg/account"
	"github.com/forest6511/acctvault/pkg/crypto"
)

// Store is a UUID-keyed collection of accounts.
type Store struct {
	accounts map[uuid.UUID]*account.Account
	password []byte
	format   Format
}

// New returns an empty store with no remembered password.
func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]*account.Account),
		format:   FormatCurrent,
	}
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	return len(s.accounts)
}

// Create builds a new account and adds it to the store.
// It fails with ErrDuplicateDescription if another account already uses
// description.
func (s *Store) Create(description, url, username, password string) (*account.Account, error) {
	if s.Find(description) != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateDescription, description)
	}
	a := account.New(description, url, username, password)
	s.accounts[a.ID()] = a
	return a, nil
}

// Add inserts an existing account. The store takes ownership of a.
func (s *Store) Add(a *account.Account) error {
	if _, ok := s.accounts[a.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, a.ID())
	}
	if s.Find(a.Description()) != nil {
		return fmt.Errorf("%w: %q", ErrDuplicateDescription, a.Description())
	}
	s.accounts[a.ID()] = a
	return nil
}

// Update appends new values to the history of a, which must belong to the
// store. Renaming onto the description of a different account fails with
// ErrDuplicateDescription and leaves a unchanged. Keeping the current
// description always succeeds, even when a merge left it shared.
func (s *Store) Update(a *account.Account, description, url, username, password string) error {
	if !s.owns(a) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, a.ID())
	}
	if description != a.Description() {
		if other := s.Find(description); other != nil && other.ID() != a.ID() {
			return fmt.Errorf("%w: %q", ErrDuplicateDescription, description)
		}
	}
	a.Update(description, url, username, password)
	return nil
}

// Delete removes a from the store.
func (s *Store) Delete(a *account.Account) error {
	if _, ok := s.accounts[a.ID()]; !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, a.ID())
	}
	delete(s.accounts, a.ID())
	return nil
}

func (s *Store) owns(a *account.Account) bool {
	cur, ok := s.accounts[a.ID()]
	return ok && cur == a
}

// Get returns the account with the given UUID, or nil.
func (s *Store) Get(id uuid.UUID) *account.Account {
	return s.accounts[id]
}

// Find returns the first account, in iteration order, whose current
// description equals description, or nil.
func (s *Store) Find(description string) *account.Account {
	var found *account.Account
	for _, a := range s.accounts {
		if a.Description() != description {
			continue
		}
		if found == nil || compareAccounts(a, found) < 0 {
			found = a
		}
	}
	return found
}

// Accounts returns the accounts sorted by current description, ties broken
// by UUID. The slice is new; the accounts are the store's own.
func (s *Store) Accounts() []*account.Account {
	list := make([]*account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		list = append(list, a)
	}
	slices.SortFunc(list, compareAccounts)
	return list
}

// All iterates over the accounts in the order of Accounts.
func (s *Store) All() iter.Seq[*account.Account] {
	return slices.Values(s.Accounts())
}

func compareAccounts(a, b *account.Account) int {
	if c := cmp.Compare(a.Description(), b.Description()); c != 0 {
		return c
	}
	ida, idb := a.ID(), b.ID()
	return bytes.Compare(ida[:], idb[:])
}

// ReadAccounts replaces the contents of the store with the accounts read
// from r. Files in the current and the previous format are accepted.
//
// Nothing changes unless the whole file decodes. On success the password is
// remembered for Save.
func (s *Store) ReadAccounts(r io.Reader, password []byte) error {
	if len(password) == 0 {
		return ErrEmptyPassword
	}
	accounts, format, err := decode(r, password)
	if err != nil {
		return err
	}
	s.accounts = accounts
	s.format = format
	s.remember(password)
	return nil
}

// WriteAccounts writes every account to w in the current format, encrypted
// with password. On success the password is remembered for Save.
func (s *Store) WriteAccounts(w io.Writer, password []byte) error {
	if len(password) == 0 {
		return ErrEmptyPassword
	}
	if err := encode(w, s.Accounts(), password); err != nil {
		return err
	}
	s.format = FormatCurrent
	s.remember(password)
	return nil
}

// Save writes the store with the remembered password.
// It fails with ErrNoPassword if no password was ever supplied.
func (s *Store) Save(w io.Writer) error {
	if s.password == nil {
		return ErrNoPassword
	}
	return s.WriteAccounts(w, s.password)
}

// HasPassword reports whether a password is remembered.
func (s *Store) HasPassword() bool {
	return s.password != nil
}

// Forget wipes the remembered password.
func (s *Store) Forget() {
	if s.password != nil {
		crypto.SecureWipe(s.password)
		s.password = nil
	}
}

func (s *Store) remember(password []byte) {
	if s.password != nil && bytes.Equal(s.password, password) {
		return
	}
	s.Forget()
	s.password = bytes.Clone(password)
}

// Format returns the revision the store was last read from or written as.
// A store read from an older revision reports it until it is written.
func (s *Store) Format() Format {
	return s.format
}

// Equal reports whether s and o hold the same UUIDs with equal histories.
// Remembered passwords are not compared.
func (s *Store) Equal(o *Store) bool {
	if len(s.accounts) != len(o.accounts) {
		return false
	}
	for id, a := range s.accounts {
		if !a.Equal(o.accounts[id]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the accounts. The remembered password is not
// copied.
func (s *Store) Clone() *Store {
	c := New()
	c.format = s.format
	for id, a := range s.accounts {
		c.accounts[id] = a.Clone()
	}
	return c
}
