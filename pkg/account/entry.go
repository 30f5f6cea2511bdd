package account

import (
	"cmp"
	"time"
)

// Entry is one timestamped snapshot of an account's four fields.
// Entries are values; an Account never hands out a pointer into its history.
type Entry struct {
	Description string
	URL         string
	Username    string
	Password    string
	Timestamp   time.Time
}

// NewEntry returns an entry stamped with ts truncated to millisecond
// resolution, the precision the file format stores.
func NewEntry(description, url, username, password string, ts time.Time) Entry {
	return Entry{
		Description: description,
		URL:         url,
		Username:    username,
		Password:    password,
		Timestamp:   time.UnixMilli(ts.UnixMilli()),
	}
}

// Millis returns the entry timestamp in milliseconds since the Unix epoch.
func (e Entry) Millis() int64 {
	return e.Timestamp.UnixMilli()
}

// Equal reports whether e and o have identical fields and timestamps.
func (e Entry) Equal(o Entry) bool {
	return e.Millis() == o.Millis() && e.SameFields(o)
}

// SameFields reports whether e and o carry the same four values, ignoring
// timestamps.
func (e Entry) SameFields(o Entry) bool {
	return e.Description == o.Description &&
		e.URL == o.URL &&
		e.Username == o.Username &&
		e.Password == o.Password
}

// Compare orders entries by timestamp, then by description, URL, username
// and password. It returns -1, 0 or +1; 0 only for equal entries.
func Compare(a, b Entry) int {
	if c := cmp.Compare(a.Millis(), b.Millis()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Description, b.Description); c != 0 {
		return c
	}
	if c := cmp.Compare(a.URL, b.URL); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Username, b.Username); c != 0 {
		return c
	}
	return cmp.Compare(a.Password, b.Password)
}
