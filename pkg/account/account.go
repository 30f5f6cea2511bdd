// Package account models one credential record and its edit history.
//
// An Account has a stable UUID and a history of Entry snapshots kept in
// strictly increasing timestamp order. The newest entry holds the current
// values. Histories from two copies of the same account can be merged; the
// merge is a set union under the Compare order, so it is commutative,
// associative and idempotent.
package account

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrIDMismatch      = errors.New("account: cannot merge histories of different accounts")
	ErrIndexOutOfRange = errors.New("account: history index out of range")
	ErrCorruptHistory  = errors.New("account: corrupt history")
)

// now is the clock used for new entries and history validation.
var now = time.Now

// Account is a credential record: a UUID plus its update history.
// The history is never empty.
type Account struct {
	id      uuid.UUID
	history []Entry
}

// New creates an account with a fresh random UUID and a single history
// entry stamped with the current time.
func New(description, url, username, password string) *Account {
	return &Account{
		id:      uuid.New(),
		history: []Entry{NewEntry(description, url, username, password, now())},
	}
}

// Restore rebuilds an account from a decoded history.
//
// The history must be non-empty, strictly increasing by timestamp, and its
// newest entry must not be in the future. Violations return an error
// wrapping ErrCorruptHistory.
func Restore(id uuid.UUID, history []Entry) (*Account, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: account %s has no entries", ErrCorruptHistory, id)
	}
	for i := 1; i < len(history); i++ {
		if history[i].Millis() <= history[i-1].Millis() {
			return nil, fmt.Errorf("%w: account %s entry %d timestamp %d is not after %d",
				ErrCorruptHistory, id, i, history[i].Millis(), history[i-1].Millis())
		}
	}
	if last := history[len(history)-1].Millis(); last > now().UnixMilli() {
		return nil, fmt.Errorf("%w: account %s was last updated in the future (%d)",
			ErrCorruptHistory, id, last)
	}

	h := make([]Entry, len(history))
	copy(h, history)
	return &Account{id: id, history: h}, nil
}

// Update appends a new history entry with the given values.
//
// The new timestamp is strictly greater than the current one. When the
// clock has not advanced past the last entry, it is re-read until it has.
func (a *Account) Update(description, url, username, password string) {
	last := a.Current().Millis()
	ts := now()
	for ts.UnixMilli() <= last {
		ts = now()
	}
	a.history = append(a.history, NewEntry(description, url, username, password, ts))
}

// ID returns the account's immutable UUID.
func (a *Account) ID() uuid.UUID {
	return a.id
}

// Current returns the newest history entry.
func (a *Account) Current() Entry {
	return a.history[len(a.history)-1]
}

// Description returns the current description.
func (a *Account) Description() string {
	return a.Current().Description
}

// URL returns the current URL.
func (a *Account) URL() string {
	return a.Current().URL
}

// Username returns the current username.
func (a *Account) Username() string {
	return a.Current().Username
}

// Password returns the current password.
func (a *Account) Password() string {
	return a.Current().Password
}

// Timestamp returns the time of the most recent update.
func (a *Account) Timestamp() time.Time {
	return a.Current().Timestamp
}

// UpdateCount returns the number of entries in the history.
func (a *Account) UpdateCount() int {
	return len(a.history)
}

// UpdateData returns a history entry counted back from the newest one:
// index 0 is the current entry.
func (a *Account) UpdateData(index int) (Entry, error) {
	if index < 0 || index >= len(a.history) {
		return Entry{}, fmt.Errorf("%w: index %d, history has %d entries",
			ErrIndexOutOfRange, index, len(a.history))
	}
	return a.history[len(a.history)-1-index], nil
}

// History returns a copy of the history, oldest first.
func (a *Account) History() []Entry {
	h := make([]Entry, len(a.history))
	copy(h, a.history)
	return h
}

// MergeHistory merges the history of other, which must have the same UUID,
// into a. other is not modified.
func (a *Account) MergeHistory(other *Account) error {
	if a.id != other.id {
		return fmt.Errorf("%w: %s and %s", ErrIDMismatch, a.id, other.id)
	}
	a.history = mergeEntries(a.history, other.history)
	return nil
}

// mergeEntries walks two sorted histories and returns their union as a new
// slice. Identical entries collapse into one. Distinct entries sharing a
// timestamp resolve to the greatest under Compare so the result stays
// strictly increasing.
func mergeEntries(x, y []Entry) []Entry {
	out := make([]Entry, 0, len(x)+len(y))
	i, j := 0, 0
	for i < len(x) || j < len(y) {
		var next Entry
		switch {
		case j >= len(y):
			next = x[i]
			i++
		case i >= len(x):
			next = y[j]
			j++
		default:
			switch c := Compare(x[i], y[j]); {
			case c < 0:
				next = x[i]
				i++
			case c > 0:
				next = y[j]
				j++
			default:
				next = x[i]
				i++
				j++
			}
		}

		if n := len(out); n > 0 && out[n-1].Millis() == next.Millis() {
			out[n-1] = next
			continue
		}
		out = append(out, next)
	}
	return out
}

// Equal reports whether a and o have the same UUID and identical histories.
func (a *Account) Equal(o *Account) bool {
	if a == o {
		return true
	}
	if a == nil || o == nil || a.id != o.id || len(a.history) != len(o.history) {
		return false
	}
	for i := range a.history {
		if !a.history[i].Equal(o.history[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	return &Account{id: a.id, history: a.History()}
}

// String returns the current description.
func (a *Account) String() string {
	return a.Description()
}
